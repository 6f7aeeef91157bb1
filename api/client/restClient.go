// Copyright (C) 2022-2023 Algorand, Inc.
// This file is part of beaker-go
//
// beaker-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// beaker-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with beaker-go.  If not, see <https://www.gnu.org/licenses/>.

// Package client implements the REST interface this library needs from an
// algod node: program compilation, transaction submission, confirmation
// waits, and application/account state queries.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"

	"github.com/algorand-devrel/beaker-go/api/models"
	"github.com/algorand-devrel/beaker-go/data/basics"
	"github.com/algorand-devrel/beaker-go/data/transactions"
	"github.com/algorand-devrel/beaker-go/data/transactions/logic"
	"github.com/algorand-devrel/beaker-go/protocol"
)

const (
	authHeader          = "X-Algo-API-Token"
	healthCheckEndpoint = "/health"
	maxRawResponseBytes = 50e6
)

// rawRequestPaths is a set of paths where the body should not be urlencoded
var rawRequestPaths = map[string]bool{
	"/v2/transactions": true,
	"/v2/teal/compile": true,
}

// unauthorizedRequestError is generated when we receive 401 error from the
// server. This error includes the inner error as well as the likely
// parameters that caused the issue.
type unauthorizedRequestError struct {
	errorString string
	apiToken    string
	url         string
}

// Error format an error string for the unauthorizedRequestError error.
func (e unauthorizedRequestError) Error() string {
	return fmt.Sprintf("Unauthorized request to `%s` when using token `%s` : %s", e.url, e.apiToken, e.errorString)
}

// HTTPError is generated when we receive an unhandled error from the server.
// This error contains the error string.
type HTTPError struct {
	StatusCode  int
	Status      string
	ErrorString string
	Data        map[string]interface{}
}

// Error formats an error string.
func (e HTTPError) Error() string {
	return fmt.Sprintf("HTTP %s: %s", e.Status, e.ErrorString)
}

// RestClient manages the REST interface for a calling user.
type RestClient struct {
	serverURL url.URL
	apiToken  string
}

// MakeRestClient is the factory for constructing a RestClient for a given endpoint
func MakeRestClient(url url.URL, apiToken string) RestClient {
	return RestClient{
		serverURL: url,
		apiToken:  apiToken,
	}
}

// filterASCII filter out the non-ascii printable characters out of the given input string.
// It's used as a security qualifier before adding network provided data into an error message.
// The function allows only characters in the range of [32..126], which excludes all the
// control character, new lines, deletion, etc. All the alpha numeric and punctuation characters
// are included in this range.
func filterASCII(unfilteredString string) (filteredString string) {
	for i, r := range unfilteredString {
		if int(r) >= 0x20 && int(r) <= 0x7e {
			filteredString += string(unfilteredString[i])
		}
	}
	return
}

// extractError checks if the response signifies an error (for now, StatusCode != 200 or StatusCode != 201).
// If so, it returns the error.
// Otherwise, it returns nil.
func extractError(resp *http.Response) error {
	if resp.StatusCode == 200 || resp.StatusCode == 201 {
		return nil
	}

	errorBuf, _ := io.ReadAll(resp.Body) // ignore returned error
	var errorJSON models.ErrorResponse
	decodeErr := json.Unmarshal(errorBuf, &errorJSON)

	var errorString string
	var data map[string]interface{}
	if decodeErr == nil {
		errorString = errorJSON.Message
		if errorJSON.Data != nil {
			data = *errorJSON.Data
		}
	} else {
		errorString = string(errorBuf)
	}
	errorString = filterASCII(errorString)

	if resp.StatusCode == http.StatusUnauthorized {
		apiToken := resp.Request.Header.Get(authHeader)
		return unauthorizedRequestError{errorString, apiToken, resp.Request.URL.String()}
	}

	return HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, ErrorString: errorString, Data: data}
}

// stripTransaction gets a transaction of the form "tx-XXXXXXXX" and truncates the "tx-" part, if it starts with "tx-"
func stripTransaction(tx string) string {
	if strings.HasPrefix(tx, "tx-") {
		return strings.SplitAfter(tx, "-")[1]
	}
	return tx
}

// mergeRawQueries merges two raw queries, appending an "&" if both are non-empty
func mergeRawQueries(q1, q2 string) string {
	if q1 == "" || q2 == "" {
		return q1 + q2
	}
	return q1 + "&" + q2
}

// submitForm is a helper used for submitting (ex.) GETs and POSTs to the server
func (client RestClient) submitForm(
	ctx context.Context, response interface{}, path string, params interface{},
	body interface{}, requestMethod string, decodeJSON bool) error {

	var err error
	queryURL := client.serverURL
	queryURL.Path = path

	var req *http.Request
	var bodyReader io.Reader
	var v url.Values

	if params != nil {
		v, err = query.Values(params)
		if err != nil {
			return err
		}
	}

	if requestMethod == "POST" && rawRequestPaths[path] {
		reqBytes, ok := body.([]byte)
		if !ok {
			return fmt.Errorf("couldn't decode raw request as bytes")
		}
		bodyReader = bytes.NewBuffer(reqBytes)
	}

	queryURL.RawQuery = mergeRawQueries(queryURL.RawQuery, v.Encode())

	req, err = http.NewRequestWithContext(ctx, requestMethod, queryURL.String(), bodyReader)
	if err != nil {
		return err
	}

	// If we add another endpoint that does not require auth, we should add a
	// requiresAuth argument to submitForm rather than checking here
	if path != healthCheckEndpoint {
		req.Header.Set(authHeader, client.apiToken)
	}

	httpClient := &http.Client{}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}

	// Ensure response isn't too large
	resp.Body = http.MaxBytesReader(nil, resp.Body, maxRawResponseBytes)
	defer resp.Body.Close()

	err = extractError(resp)
	if err != nil {
		return err
	}

	if !decodeJSON {
		return nil
	}

	dec := protocol.NewJSONDecoder(resp.Body)
	return dec.Decode(&response)
}

// get performs a GET request to the specific path against the server
func (client RestClient) get(ctx context.Context, response interface{}, path string, request interface{}) error {
	return client.submitForm(ctx, response, path, request, nil, "GET", true /* decodeJSON */)
}

// post sends a POST request to the given path with the given body object.
// No query parameters will be sent if params is nil.
// response must be a pointer to an object as post writes the response there.
func (client RestClient) post(ctx context.Context, response interface{}, path string, params interface{}, body interface{}) error {
	return client.submitForm(ctx, response, path, params, body, "POST", true /* decodeJSON */)
}

// HealthCheck does a health check on the potentially running node,
// returning an error if the API is down
func (client RestClient) HealthCheck(ctx context.Context) error {
	return client.get(ctx, nil, healthCheckEndpoint, nil)
}

// Status retrieves the StatusResponse from the running node. The
// StatusResponse includes data like the consensus version and current round.
func (client RestClient) Status(ctx context.Context) (response models.NodeStatusResponse, err error) {
	err = client.get(ctx, &response, "/v2/status", nil)
	return
}

// StatusAfterBlock returns the node status once the node has reached the
// given round. The documented misfeature of this REST API is that it returns
// after about one minute regardless, so callers must re-check the round.
func (client RestClient) StatusAfterBlock(ctx context.Context, round basics.Round) (response models.NodeStatusResponse, err error) {
	err = client.get(ctx, &response, fmt.Sprintf("/v2/status/wait-for-block-after/%d", round), nil)
	return
}

// SuggestedParams gets the suggested transaction parameters
func (client RestClient) SuggestedParams(ctx context.Context) (response models.TransactionParametersResponse, err error) {
	err = client.get(ctx, &response, "/v2/transactions/params", nil)
	return
}

// SendRawTransaction gets a SignedTxn and broadcasts it to the network
func (client RestClient) SendRawTransaction(ctx context.Context, txn transactions.SignedTxn) (response models.PostTransactionsResponse, err error) {
	err = client.post(ctx, &response, "/v2/transactions", nil, protocol.Encode(&txn))
	return
}

// SendRawTransactionGroup gets a SignedTxn group and broadcasts it to the network
func (client RestClient) SendRawTransactionGroup(ctx context.Context, txgroup []transactions.SignedTxn) (response models.PostTransactionsResponse, err error) {
	// response is the txid of the first transaction,
	// which can be computed by the client anyway
	var enc []byte
	for _, tx := range txgroup {
		enc = append(enc, protocol.Encode(&tx)...)
	}

	err = client.post(ctx, &response, "/v2/transactions", nil, enc)
	return
}

// PendingTransactionInformation gets information about a recently issued
// transaction. There are several cases when this might succeed:
//
// - transaction committed (ConfirmedRound > 0)
// - transaction still in the pool (ConfirmedRound = 0, PoolError = "")
// - transaction removed from pool due to error (ConfirmedRound = 0, PoolError != "")
//
// Or the transaction may have happened sufficiently long ago that the
// node no longer remembers it, and this will return an error.
func (client RestClient) PendingTransactionInformation(ctx context.Context, transactionID string) (response models.PendingTransactionResponse, err error) {
	transactionID = stripTransaction(transactionID)
	err = client.get(ctx, &response, fmt.Sprintf("/v2/transactions/pending/%s", transactionID), nil)
	return
}

// ApplicationInformation gets the Application associated with the passed
// application index
func (client RestClient) ApplicationInformation(ctx context.Context, index basics.AppIndex) (response models.Application, err error) {
	err = client.get(ctx, &response, fmt.Sprintf("/v2/applications/%d", index), nil)
	return
}

// AccountApplicationInformation gets account information about a given app.
func (client RestClient) AccountApplicationInformation(ctx context.Context, accountAddress string, applicationID basics.AppIndex) (response models.AccountApplicationResponse, err error) {
	err = client.get(ctx, &response, fmt.Sprintf("/v2/accounts/%s/applications/%d", accountAddress, applicationID), nil)
	return
}

type compileParams struct {
	SourceMap bool `url:"sourcemap,omitempty"`
}

// TealCompile compiles the given program source and returns the compiled
// program bytes, its hash, and (when requested) the assembly source map.
func (client RestClient) TealCompile(ctx context.Context, program []byte, useSourceMap bool) (compiledProgram []byte, programHash basics.Address, sourceMap *logic.SourceMap, err error) {
	var compileResponse models.CompileResponse

	compileRequest := compileParams{SourceMap: useSourceMap}

	err = client.submitForm(ctx, &compileResponse, "/v2/teal/compile", compileRequest, program, "POST", true)
	if err != nil {
		return nil, basics.Address{}, nil, err
	}
	compiledProgram, err = base64.StdEncoding.DecodeString(compileResponse.Result)
	if err != nil {
		return nil, basics.Address{}, nil, err
	}
	programHash, err = basics.UnmarshalChecksumAddress(compileResponse.Hash)
	if err != nil {
		return nil, basics.Address{}, nil, err
	}

	// fast exit if we don't want sourcemap, then exit with what we have so far
	if !useSourceMap {
		return
	}

	if compileResponse.Sourcemap == nil {
		return nil, basics.Address{}, nil, fmt.Errorf("requested sourcemap but got nothing")
	}

	// convert the *map[string]interface{} into *logic.SourceMap
	var srcMapInstance logic.SourceMap
	var jsonBytes []byte

	if jsonBytes, err = json.Marshal(*compileResponse.Sourcemap); err != nil {
		return nil, basics.Address{}, nil, err
	}
	if err = json.Unmarshal(jsonBytes, &srcMapInstance); err != nil {
		return nil, basics.Address{}, nil, err
	}
	sourceMap = &srcMapInstance

	return
}

// WaitForConfirmedTxn waits until the passed txid is confirmed, or until
// waitRounds rounds pass beyond the round the wait started at, whichever
// comes first. Exceeding the bound is an error, not a silent retry.
func (client RestClient) WaitForConfirmedTxn(ctx context.Context, txid string, waitRounds uint64) (txn models.PendingTransactionResponse, err error) {
	status, err := client.Status(ctx)
	if err != nil {
		return
	}

	startRound := status.LastRound
	currentRound := startRound
	for {
		txn, err = client.PendingTransactionInformation(ctx, txid)
		if err == nil {
			if txn.Committed() {
				return txn, nil
			}
			if txn.PoolError != "" {
				return txn, fmt.Errorf("transaction %s kicked out of the pool: %s", txid, txn.PoolError)
			}
		}

		if currentRound >= startRound+waitRounds {
			return txn, fmt.Errorf("timed out waiting for transaction %s to be confirmed: %d rounds elapsed", txid, waitRounds)
		}

		status, err = client.StatusAfterBlock(ctx, basics.Round(currentRound))
		if err != nil {
			return
		}
		currentRound = status.LastRound
	}
}
