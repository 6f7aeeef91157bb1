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

// Package models defines the subset of the algod v2 REST models this client
// consumes. Field names and tags follow the algod OpenAPI specification.
package models

import (
	"github.com/algorand-devrel/beaker-go/data/transactions"
)

// ErrorResponse is an error response from algod, with optional structured data.
type ErrorResponse struct {
	Data    *map[string]interface{} `json:"data,omitempty"`
	Message string                  `json:"message"`
}

// NodeStatusResponse carries the node's sync status.
type NodeStatusResponse struct {
	LastRound             uint64 `json:"last-round"`
	LastVersion           string `json:"last-version"`
	TimeSinceLastRound    uint64 `json:"time-since-last-round"`
	CatchupTime           uint64 `json:"catchup-time"`
	HasSyncedSinceStartup bool   `json:"has-synced-since-startup,omitempty"`
}

// TransactionParametersResponse contains the parameters that help a client
// construct a new transaction.
type TransactionParametersResponse struct {
	ConsensusVersion string `json:"consensus-version"`
	Fee              uint64 `json:"fee"`
	GenesisHash      []byte `json:"genesis-hash"`
	GenesisID        string `json:"genesis-id"`
	LastRound        uint64 `json:"last-round"`
	MinFee           uint64 `json:"min-fee"`
}

// CompileResponse is the result of `/v2/teal/compile`.
type CompileResponse struct {
	Hash      string                  `json:"hash"`
	Result    string                  `json:"result"`
	Sourcemap *map[string]interface{} `json:"sourcemap,omitempty"`
}

// PostTransactionsResponse is the result of posting a raw transaction group.
type PostTransactionsResponse struct {
	TxID string `json:"txId"`
}

// TealValue represents a key's value in an application's global or local state.
// Type 1 holds Bytes (base64 on the wire), type 2 holds Uint.
type TealValue struct {
	Bytes string `json:"bytes"`
	Type  uint64 `json:"type"`
	Uint  uint64 `json:"uint"`
}

// TealValueType values used on the REST surface.
const (
	TealValueTypeBytes uint64 = 1
	TealValueTypeUint  uint64 = 2
)

// TealKeyValue represents a key-value pair in an application store.
type TealKeyValue struct {
	Key   string    `json:"key"`
	Value TealValue `json:"value"`
}

// TealKeyValueStore represents a key-value store for use in an application.
type TealKeyValueStore []TealKeyValue

// ApplicationStateSchema specifies maximums on the number of each type that
// may be stored.
type ApplicationStateSchema struct {
	NumByteSlice uint64 `json:"num-byte-slice"`
	NumUint      uint64 `json:"num-uint"`
}

// ApplicationParams describes stored global state parameters of an application.
type ApplicationParams struct {
	ApprovalProgram   []byte                  `json:"approval-program"`
	ClearStateProgram []byte                  `json:"clear-state-program"`
	Creator           string                  `json:"creator"`
	ExtraProgramPages *uint64                 `json:"extra-program-pages,omitempty"`
	GlobalState       *TealKeyValueStore      `json:"global-state,omitempty"`
	GlobalStateSchema *ApplicationStateSchema `json:"global-state-schema,omitempty"`
	LocalStateSchema  *ApplicationStateSchema `json:"local-state-schema,omitempty"`
}

// Application holds an application index and its parameters.
type Application struct {
	ID     uint64            `json:"id"`
	Params ApplicationParams `json:"params"`
}

// ApplicationLocalState stores local state associated with an application.
type ApplicationLocalState struct {
	ID       uint64                 `json:"id"`
	KeyValue *TealKeyValueStore     `json:"key-value,omitempty"`
	Schema   ApplicationStateSchema `json:"schema"`
}

// AccountApplicationResponse describes the account's application local state
// and, when the account created the application, its parameters.
type AccountApplicationResponse struct {
	AppLocalState *ApplicationLocalState `json:"app-local-state,omitempty"`
	CreatedApp    *ApplicationParams     `json:"created-app,omitempty"`
	Round         uint64                 `json:"round"`
}

// PendingTransactionResponse carries details about a transaction submitted to
// the network: either still in the pool, or already confirmed.
//
// InnerTxns carries one level of nesting only; inner transactions spawned by
// inner transactions are not unpacked further by this client.
type PendingTransactionResponse struct {
	ApplicationIndex *uint64                       `json:"application-index,omitempty"`
	AssetIndex       *uint64                       `json:"asset-index,omitempty"`
	ConfirmedRound   *uint64                       `json:"confirmed-round,omitempty"`
	InnerTxns        *[]PendingTransactionResponse `json:"inner-txns,omitempty"`
	Logs             *[][]byte                     `json:"logs,omitempty"`
	PoolError        string                        `json:"pool-error"`
	Txn              transactions.SignedTxn        `json:"txn"`
}

// Committed reports whether the transaction has been written to the ledger.
func (p PendingTransactionResponse) Committed() bool {
	return p.ConfirmedRound != nil && *p.ConfirmedRound > 0
}
