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

// Package appclient is the high-level client for deploying and calling an
// application: lifecycle transactions, ABI method calls, typed state reads,
// and source-level resolution of program failures.
package appclient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/algorand-devrel/beaker-go/abi"
	"github.com/algorand-devrel/beaker-go/api/client"
	"github.com/algorand-devrel/beaker-go/api/models"
	"github.com/algorand-devrel/beaker-go/crypto"
	"github.com/algorand-devrel/beaker-go/data/basics"
	"github.com/algorand-devrel/beaker-go/data/transactions"
	"github.com/algorand-devrel/beaker-go/data/transactions/logic"
	"github.com/algorand-devrel/beaker-go/logging"
	"github.com/algorand-devrel/beaker-go/protocol"
)

// DefaultWaitRounds bounds how many rounds a confirmation wait may span when
// the client is not configured otherwise.
const DefaultWaitRounds = 4

// defaultValidRounds is the validity window applied when no explicit
// LastValid override is given.
const defaultValidRounds = 1000

// Errors the client returns for misconfigured or premature calls.
var (
	ErrNoSigner          = errors.New("no signer configured")
	ErrNoPrograms        = errors.New("no approval and clear program sources configured")
	ErrAppNotCreated     = errors.New("application has not been created")
	ErrAppAlreadyCreated = errors.New("application has already been created")
	ErrNoStateFound      = errors.New("no state found")
)

// SourceSpec holds the application's program sources, base64-encoded TEAL.
type SourceSpec struct {
	Approval string `json:"approval"`
	Clear    string `json:"clear"`
}

// SchemaSpec holds the application's global and local state schemas.
type SchemaSpec struct {
	Global Schema `json:"global"`
	Local  Schema `json:"local"`
}

// ApplicationSpec is the portable description of an application: program
// sources, state schemas, and its ABI contract.
type ApplicationSpec struct {
	Source   SourceSpec   `json:"source"`
	Schema   SchemaSpec   `json:"schema"`
	Contract abi.Contract `json:"contract"`
}

// CompiledProgram is a compiled TEAL program together with the artifacts the
// client needs later: the source it came from and its assembly source map.
type CompiledProgram struct {
	Source    string
	Binary    []byte
	Hash      basics.Address
	SourceMap *logic.SourceMap
}

// ClientParams configures an ApplicationClient.
type ClientParams struct {
	// AppID of an already deployed application; 0 when the client will
	// create it.
	AppID basics.AppIndex

	// Sender of all transactions issued by the client.
	Sender basics.Address

	// Signer authorizing the sender's transactions. Required for every
	// operation that submits.
	Signer TransactionSigner

	// WaitRounds bounds confirmation waits; 0 means DefaultWaitRounds.
	WaitRounds uint64

	// ParamsMaxAge enables caching of suggested parameters for the given
	// duration; 0 fetches fresh parameters on every use.
	ParamsMaxAge time.Duration

	// Logger defaults to logging.Base().
	Logger logging.Logger
}

// ApplicationClient drives one application on behalf of one sender.
//
// Compiled programs and cached suggested parameters are guarded by mu; the
// rest of the client is set up at construction (or by Create) and read-only
// afterwards.
type ApplicationClient struct {
	client client.RestClient
	log    logging.Logger
	spec   ApplicationSpec

	approvalSource string
	clearSource    string

	sender basics.Address
	signer TransactionSigner

	appID      basics.AppIndex
	appAddress basics.Address

	waitRounds   uint64
	paramsMaxAge time.Duration

	mu           deadlock.Mutex
	approval     *CompiledProgram
	clear        *CompiledProgram
	cachedParams models.TransactionParametersResponse
	paramsExpire time.Time
}

// MakeApplicationClient builds a client over the given node connection and
// application spec. Program sources in the spec are base64-encoded TEAL; a
// spec without sources yields a client that can call but not create or
// update.
func MakeApplicationClient(restClient client.RestClient, spec ApplicationSpec, params ClientParams) (*ApplicationClient, error) {
	approvalSource, err := decodeSource(spec.Source.Approval)
	if err != nil {
		return nil, fmt.Errorf("bad approval program source: %w", err)
	}
	clearSource, err := decodeSource(spec.Source.Clear)
	if err != nil {
		return nil, fmt.Errorf("bad clear program source: %w", err)
	}

	ac := &ApplicationClient{
		client:         restClient,
		log:            params.Logger,
		spec:           spec,
		approvalSource: approvalSource,
		clearSource:    clearSource,
		sender:         params.Sender,
		signer:         params.Signer,
		appID:          params.AppID,
		waitRounds:     params.WaitRounds,
		paramsMaxAge:   params.ParamsMaxAge,
	}
	if ac.log == nil {
		ac.log = logging.Base()
	}
	if ac.waitRounds == 0 {
		ac.waitRounds = DefaultWaitRounds
	}
	if ac.appID != 0 {
		ac.appAddress = ac.appID.Address()
	}
	return ac, nil
}

func decodeSource(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	source, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(source), nil
}

// AppID returns the application id, 0 before creation.
func (ac *ApplicationClient) AppID() basics.AppIndex {
	return ac.appID
}

// AppAddress returns the application's escrow address, zero before creation.
func (ac *ApplicationClient) AppAddress() basics.Address {
	return ac.appAddress
}

// Sender returns the configured sender address.
func (ac *ApplicationClient) Sender() basics.Address {
	return ac.sender
}

// GetSuggestedParams returns suggested transaction parameters, from the cache
// when one is configured and still fresh.
func (ac *ApplicationClient) GetSuggestedParams(ctx context.Context) (models.TransactionParametersResponse, error) {
	ac.mu.Lock()
	if ac.paramsMaxAge > 0 && time.Now().Before(ac.paramsExpire) {
		params := ac.cachedParams
		ac.mu.Unlock()
		return params, nil
	}
	ac.mu.Unlock()

	params, err := ac.client.SuggestedParams(ctx)
	if err != nil {
		return models.TransactionParametersResponse{}, err
	}

	ac.mu.Lock()
	ac.cachedParams = params
	ac.paramsExpire = time.Now().Add(ac.paramsMaxAge)
	ac.mu.Unlock()
	return params, nil
}

// EnsurePrograms compiles the approval and clear programs, with source maps,
// and caches the results. Once populated, no further network calls are made;
// both programs are compiled or neither is cached.
func (ac *ApplicationClient) EnsurePrograms(ctx context.Context) (approval, clear *CompiledProgram, err error) {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	if ac.approval != nil && ac.clear != nil {
		return ac.approval, ac.clear, nil
	}
	if ac.approvalSource == "" || ac.clearSource == "" {
		return nil, nil, ErrNoPrograms
	}

	ac.log.Debugf("compiling approval program (%d bytes of source)", len(ac.approvalSource))
	approvalBin, approvalHash, approvalMap, err := ac.client.TealCompile(ctx, []byte(ac.approvalSource), true)
	if err != nil {
		return nil, nil, fmt.Errorf("could not compile approval program: %w", err)
	}

	ac.log.Debugf("compiling clear program (%d bytes of source)", len(ac.clearSource))
	clearBin, clearHash, clearMap, err := ac.client.TealCompile(ctx, []byte(ac.clearSource), true)
	if err != nil {
		return nil, nil, fmt.Errorf("could not compile clear program: %w", err)
	}

	ac.approval = &CompiledProgram{Source: ac.approvalSource, Binary: approvalBin, Hash: approvalHash, SourceMap: approvalMap}
	ac.clear = &CompiledProgram{Source: ac.clearSource, Binary: clearBin, Hash: clearHash, SourceMap: clearMap}
	return ac.approval, ac.clear, nil
}

// TransactionOverrides adjusts a transaction after the client has applied its
// computed defaults. Zero-valued fields leave the defaults in place.
type TransactionOverrides struct {
	// SuggestedParams short-circuits the parameter fetch entirely.
	SuggestedParams *models.TransactionParametersResponse

	Fee        uint64
	FirstValid basics.Round
	LastValid  basics.Round
	Note       []byte
	Lease      [32]byte
	RekeyTo    basics.Address

	Accounts      []basics.Address
	ForeignApps   []basics.AppIndex
	ForeignAssets []basics.AssetIndex
	Boxes         []transactions.BoxRef

	// ExtraPages requests additional program pages; create only.
	ExtraPages uint32
}

// makeHeader assembles a transaction header from suggested parameters and
// overrides. The fee is flat: the network minimum unless overridden.
func (ac *ApplicationClient) makeHeader(ctx context.Context, o *TransactionOverrides) (transactions.Header, error) {
	var params models.TransactionParametersResponse
	var err error
	if o != nil && o.SuggestedParams != nil {
		params = *o.SuggestedParams
	} else {
		params, err = ac.GetSuggestedParams(ctx)
		if err != nil {
			return transactions.Header{}, err
		}
	}

	var gh crypto.Digest
	copy(gh[:], params.GenesisHash)

	hdr := transactions.Header{
		Sender:      ac.sender,
		Fee:         basics.MicroAlgos{Raw: params.MinFee},
		FirstValid:  basics.Round(params.LastRound),
		LastValid:   basics.Round(params.LastRound + defaultValidRounds),
		GenesisID:   params.GenesisID,
		GenesisHash: gh,
	}

	if o != nil {
		if o.Fee != 0 {
			hdr.Fee = basics.MicroAlgos{Raw: o.Fee}
		}
		if o.FirstValid != 0 {
			hdr.FirstValid = o.FirstValid
		}
		if o.LastValid != 0 {
			hdr.LastValid = o.LastValid
		}
		if o.Note != nil {
			hdr.Note = o.Note
		}
		if o.Lease != ([32]byte{}) {
			hdr.Lease = o.Lease
		}
		if !o.RekeyTo.IsZero() {
			hdr.RekeyTo = o.RekeyTo
		}
	}
	return hdr, nil
}

func applyForeign(fields *transactions.ApplicationCallTxnFields, o *TransactionOverrides) {
	if o == nil {
		return
	}
	fields.Accounts = o.Accounts
	fields.ForeignApps = o.ForeignApps
	fields.ForeignAssets = o.ForeignAssets
	fields.Boxes = o.Boxes
}

// submit signs a single transaction, broadcasts it, and waits for it to
// confirm within the client's wait bound. Program failures come back resolved
// against the approval source when it has been compiled.
func (ac *ApplicationClient) submit(ctx context.Context, txn transactions.Transaction) (models.PendingTransactionResponse, string, error) {
	stxns, err := ac.signer.SignTransactions([]transactions.Transaction{txn}, []int{0})
	if err != nil {
		return models.PendingTransactionResponse{}, "", fmt.Errorf("could not sign transaction: %w", err)
	}

	txid := txn.ID().String()
	ac.log.Debugf("submitting transaction %s", txid)

	if _, err := ac.client.SendRawTransaction(ctx, stxns[0]); err != nil {
		return models.PendingTransactionResponse{}, txid, ac.mapError(err)
	}

	info, err := ac.client.WaitForConfirmedTxn(ctx, txid, ac.waitRounds)
	if err != nil {
		ac.log.Warnf("transaction %s did not confirm: %v", txid, err)
		return info, txid, ac.mapError(err)
	}
	return info, txid, nil
}

// mapError resolves program failures to source lines when the approval
// program has been compiled with a source map.
func (ac *ApplicationClient) mapError(err error) error {
	ac.mu.Lock()
	approval := ac.approval
	ac.mu.Unlock()
	if approval == nil {
		return err
	}
	return MapLogicError(err, approval.Source, approval.SourceMap)
}

// Create compiles the programs, submits the application create transaction,
// and waits for it. On success the client is bound to the new application id
// and its derived escrow address.
func (ac *ApplicationClient) Create(ctx context.Context, overrides *TransactionOverrides) (basics.AppIndex, basics.Address, string, error) {
	if ac.signer == nil {
		return 0, basics.Address{}, "", ErrNoSigner
	}
	if ac.appID != 0 {
		return 0, basics.Address{}, "", ErrAppAlreadyCreated
	}

	approval, clear, err := ac.EnsurePrograms(ctx)
	if err != nil {
		return 0, basics.Address{}, "", err
	}

	hdr, err := ac.makeHeader(ctx, overrides)
	if err != nil {
		return 0, basics.Address{}, "", err
	}

	fields := transactions.ApplicationCallTxnFields{
		OnCompletion:      transactions.NoOpOC,
		ApprovalProgram:   approval.Binary,
		ClearStateProgram: clear.Binary,
		GlobalStateSchema: ac.spec.Schema.Global.StateSchema(),
		LocalStateSchema:  ac.spec.Schema.Local.StateSchema(),
	}
	applyForeign(&fields, overrides)
	if overrides != nil {
		fields.ExtraProgramPages = overrides.ExtraPages
	}

	txn := transactions.Transaction{
		Type:                     protocol.ApplicationCallTx,
		Header:                   hdr,
		ApplicationCallTxnFields: fields,
	}

	info, txid, err := ac.submit(ctx, txn)
	if err != nil {
		return 0, basics.Address{}, txid, err
	}
	if info.ApplicationIndex == nil || *info.ApplicationIndex == 0 {
		return 0, basics.Address{}, txid, fmt.Errorf("create transaction %s confirmed without an application index", txid)
	}

	ac.appID = basics.AppIndex(*info.ApplicationIndex)
	ac.appAddress = ac.appID.Address()
	ac.log.Infof("created application %d at %s", ac.appID, ac.appAddress)
	return ac.appID, ac.appAddress, txid, nil
}

// lifecycleCall submits a bare application call with the given on-completion
// effect against the bound application.
func (ac *ApplicationClient) lifecycleCall(ctx context.Context, oc transactions.OnCompletion, withPrograms bool, overrides *TransactionOverrides) (models.PendingTransactionResponse, error) {
	if ac.signer == nil {
		return models.PendingTransactionResponse{}, ErrNoSigner
	}
	if ac.appID == 0 {
		return models.PendingTransactionResponse{}, ErrAppNotCreated
	}

	fields := transactions.ApplicationCallTxnFields{
		ApplicationID: ac.appID,
		OnCompletion:  oc,
	}
	if withPrograms {
		approval, clear, err := ac.EnsurePrograms(ctx)
		if err != nil {
			return models.PendingTransactionResponse{}, err
		}
		fields.ApprovalProgram = approval.Binary
		fields.ClearStateProgram = clear.Binary
	}
	applyForeign(&fields, overrides)

	hdr, err := ac.makeHeader(ctx, overrides)
	if err != nil {
		return models.PendingTransactionResponse{}, err
	}

	txn := transactions.Transaction{
		Type:                     protocol.ApplicationCallTx,
		Header:                   hdr,
		ApplicationCallTxnFields: fields,
	}

	info, _, err := ac.submit(ctx, txn)
	return info, err
}

// Update replaces the application's programs with freshly compiled ones.
func (ac *ApplicationClient) Update(ctx context.Context, overrides *TransactionOverrides) (models.PendingTransactionResponse, error) {
	return ac.lifecycleCall(ctx, transactions.UpdateApplicationOC, true, overrides)
}

// Delete removes the application from the ledger.
func (ac *ApplicationClient) Delete(ctx context.Context, overrides *TransactionOverrides) (models.PendingTransactionResponse, error) {
	return ac.lifecycleCall(ctx, transactions.DeleteApplicationOC, false, overrides)
}

// OptIn allocates local state for the sender.
func (ac *ApplicationClient) OptIn(ctx context.Context, overrides *TransactionOverrides) (models.PendingTransactionResponse, error) {
	return ac.lifecycleCall(ctx, transactions.OptInOC, false, overrides)
}

// CloseOut deallocates the sender's local state, running the approval
// program.
func (ac *ApplicationClient) CloseOut(ctx context.Context, overrides *TransactionOverrides) (models.PendingTransactionResponse, error) {
	return ac.lifecycleCall(ctx, transactions.CloseOutOC, false, overrides)
}

// ClearState deallocates the sender's local state unconditionally, running
// the clear program.
func (ac *ApplicationClient) ClearState(ctx context.Context, overrides *TransactionOverrides) (models.PendingTransactionResponse, error) {
	return ac.lifecycleCall(ctx, transactions.ClearStateOC, false, overrides)
}

// AddMethodCall appends a call to the given method onto an externally managed
// composer, so several calls (to this or other applications) can share one
// atomic group.
func (ac *ApplicationClient) AddMethodCall(ctx context.Context, composer *AtomicComposer, method abi.Method, args map[string]MethodArg, oc transactions.OnCompletion, overrides *TransactionOverrides) error {
	if ac.signer == nil {
		return ErrNoSigner
	}
	if ac.appID == 0 {
		return ErrAppNotCreated
	}

	ordered, err := BuildArgs(method, args, ac.signer)
	if err != nil {
		return err
	}

	hdr, err := ac.makeHeader(ctx, overrides)
	if err != nil {
		return err
	}

	params := MethodCallParams{
		AppID:        ac.appID,
		Method:       method,
		Args:         ordered,
		OnCompletion: oc,
		Header:       hdr,
		Signer:       ac.signer,
	}
	if overrides != nil {
		params.Accounts = overrides.Accounts
		params.ForeignApps = overrides.ForeignApps
		params.ForeignAssets = overrides.ForeignAssets
		params.Boxes = overrides.Boxes
	}
	return composer.AddMethodCall(params)
}

// Call executes a single method call and returns its decoded result.
func (ac *ApplicationClient) Call(ctx context.Context, method abi.Method, args map[string]MethodArg, overrides *TransactionOverrides) (ABIResult, error) {
	var composer AtomicComposer
	if err := ac.AddMethodCall(ctx, &composer, method, args, transactions.NoOpOC, overrides); err != nil {
		return ABIResult{}, err
	}

	results, err := composer.Execute(ctx, ac.client, ac.waitRounds)
	if err != nil {
		return ABIResult{}, ac.mapError(err)
	}
	return results[len(results)-1], nil
}

// CallByName looks the method up in the spec's contract and calls it.
func (ac *ApplicationClient) CallByName(ctx context.Context, name string, args map[string]MethodArg, overrides *TransactionOverrides) (ABIResult, error) {
	method, err := ac.spec.Contract.MethodByName(name)
	if err != nil {
		return ABIResult{}, err
	}
	return ac.Call(ctx, method, args, overrides)
}

// Fund sends amount microalgos from the sender to the application's escrow
// address.
func (ac *ApplicationClient) Fund(ctx context.Context, amount uint64, overrides *TransactionOverrides) (string, error) {
	if ac.signer == nil {
		return "", ErrNoSigner
	}
	if ac.appID == 0 {
		return "", ErrAppNotCreated
	}

	hdr, err := ac.makeHeader(ctx, overrides)
	if err != nil {
		return "", err
	}

	txn := transactions.Transaction{
		Type:   protocol.PaymentTx,
		Header: hdr,
		PaymentTxnFields: transactions.PaymentTxnFields{
			Receiver: ac.appAddress,
			Amount:   basics.MicroAlgos{Raw: amount},
		},
	}

	_, txid, err := ac.submit(ctx, txn)
	return txid, err
}

// GetApplicationState reads and decodes the application's global state.
func (ac *ApplicationClient) GetApplicationState(ctx context.Context, raw bool) (map[string]StateValue, error) {
	if ac.appID == 0 {
		return nil, ErrAppNotCreated
	}
	app, err := ac.client.ApplicationInformation(ctx, ac.appID)
	if err != nil {
		return nil, err
	}
	if app.Params.GlobalState == nil {
		return nil, fmt.Errorf("application %d global state: %w", ac.appID, ErrNoStateFound)
	}
	return DecodeState(*app.Params.GlobalState, raw)
}

// GetAccountState reads and decodes the given account's local state for the
// application.
func (ac *ApplicationClient) GetAccountState(ctx context.Context, account basics.Address, raw bool) (map[string]StateValue, error) {
	if ac.appID == 0 {
		return nil, ErrAppNotCreated
	}
	resp, err := ac.client.AccountApplicationInformation(ctx, account.String(), ac.appID)
	if err != nil {
		return nil, err
	}
	if resp.AppLocalState == nil || resp.AppLocalState.KeyValue == nil {
		return nil, fmt.Errorf("account %s local state for application %d: %w", account, ac.appID, ErrNoStateFound)
	}
	return DecodeState(*resp.AppLocalState.KeyValue, raw)
}
