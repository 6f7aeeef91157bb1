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

package appclient

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/algorand-devrel/beaker-go/abi"
	"github.com/algorand-devrel/beaker-go/api/client"
	"github.com/algorand-devrel/beaker-go/data/basics"
	"github.com/algorand-devrel/beaker-go/data/transactions"
	"github.com/algorand-devrel/beaker-go/protocol"
)

const (
	// maxTxGroupSize is the network's bound on atomic group size.
	maxTxGroupSize = 16

	// maxAppArgs is the network's bound on ApplicationArgs entries, the
	// method selector included.
	maxAppArgs = 16
)

// MethodArg is one actual argument supplied to a method call by name. The
// implementations form a closed set: Value for ABI-encodable Go values,
// TransactionWithSigner for transaction arguments, Struct for values to be
// flattened into an ABI tuple, and Array for sequences.
type MethodArg interface {
	methodArg()
}

// Value supplies an ABI-encodable Go value.
type Value struct {
	V interface{}
}

// Struct supplies an ordered list of members to encode as an ABI tuple.
type Struct struct {
	Fields []MethodArg
}

// Array supplies a sequence of elements.
type Array struct {
	Elems []MethodArg
}

func (Value) methodArg()                 {}
func (Struct) methodArg()                {}
func (Array) methodArg()                 {}
func (TransactionWithSigner) methodArg() {}

// resolveArg lowers a MethodArg to the value AddMethodCall consumes. A
// transaction argument with no signer of its own is paired with signer.
func resolveArg(arg MethodArg, signer TransactionSigner) interface{} {
	switch a := arg.(type) {
	case Value:
		return a.V
	case TransactionWithSigner:
		if a.Signer == nil {
			a.Signer = signer
		}
		return a
	case Struct:
		fields := make([]interface{}, len(a.Fields))
		for i, f := range a.Fields {
			fields[i] = resolveArg(f, signer)
		}
		return fields
	case Array:
		elems := make([]interface{}, len(a.Elems))
		for i, e := range a.Elems {
			elems[i] = resolveArg(e, signer)
		}
		return elems
	}
	return nil
}

// BuildArgs orders a set of named actual arguments by the method's argument
// declarations. Every declared argument must be supplied by name, no extra
// names may be present, and transaction arguments without an explicit signer
// are paired with the given one.
func BuildArgs(method abi.Method, provided map[string]MethodArg, signer TransactionSigner) ([]interface{}, error) {
	ordered := make([]interface{}, len(method.Args))
	seen := make(map[string]bool, len(method.Args))
	for i, arg := range method.Args {
		v, ok := provided[arg.Name]
		if !ok {
			return nil, fmt.Errorf("method %s is missing a value for argument %s", method.Name, arg.Name)
		}
		ordered[i] = resolveArg(v, signer)
		seen[arg.Name] = true
	}
	for name := range provided {
		if !seen[name] {
			return nil, fmt.Errorf("method %s has no argument named %s", method.Name, name)
		}
	}
	return ordered, nil
}

// MethodCallParams describes one application method call to add to a group.
type MethodCallParams struct {
	// AppID is the application to call, or 0 when creating.
	AppID basics.AppIndex

	// Method being called.
	Method abi.Method

	// Args are the actual arguments, in declaration order. Transaction-typed
	// arguments must be TransactionWithSigner values; reference-typed
	// arguments take an Address, AppIndex, or AssetIndex; everything else is
	// ABI-encoded.
	Args []interface{}

	// OnCompletion side effect of the call.
	OnCompletion transactions.OnCompletion

	// Header carries sender, fee, validity window, and genesis information.
	Header transactions.Header

	// Signer authorizes the method call transaction itself.
	Signer TransactionSigner

	// Fields used when creating or updating the application.
	ApprovalProgram   []byte
	ClearStateProgram []byte
	GlobalStateSchema basics.StateSchema
	LocalStateSchema  basics.StateSchema
	ExtraProgramPages uint32

	// Extra foreign references beyond those implied by reference arguments.
	Accounts      []basics.Address
	ForeignApps   []basics.AppIndex
	ForeignAssets []basics.AssetIndex
	Boxes         []transactions.BoxRef
}

// AtomicComposer accumulates transactions and method calls into one atomic
// group, signs it, and executes it. Adding is no longer possible once the
// group has been built.
type AtomicComposer struct {
	txns    []TransactionWithSigner
	methods map[int]abi.Method
	built   []transactions.Transaction
	signed  []transactions.SignedTxn
}

// Count returns the number of transactions accumulated so far.
func (c *AtomicComposer) Count() int {
	return len(c.txns)
}

// AddTransaction appends a plain transaction to the group.
func (c *AtomicComposer) AddTransaction(tws TransactionWithSigner) error {
	if c.built != nil {
		return errors.New("group has already been built")
	}
	if len(c.txns)+1 > maxTxGroupSize {
		return fmt.Errorf("group size is limited to %d transactions", maxTxGroupSize)
	}
	c.txns = append(c.txns, tws)
	return nil
}

// AddMethodCall appends an application method call. Transaction-typed
// arguments are placed in the group immediately before the call, and
// reference-typed arguments are packed into the call's foreign arrays.
func (c *AtomicComposer) AddMethodCall(params MethodCallParams) error {
	if c.built != nil {
		return errors.New("group has already been built")
	}
	method := params.Method
	if len(params.Args) != len(method.Args) {
		return fmt.Errorf("method %s expects %d arguments, got %d", method.Name, len(method.Args), len(params.Args))
	}
	if params.Signer == nil {
		return fmt.Errorf("method call %s has no signer", method.Name)
	}

	var pending []TransactionWithSigner
	appArgs := [][]byte{method.Selector()}
	accounts := append([]basics.Address(nil), params.Accounts...)
	foreignApps := append([]basics.AppIndex(nil), params.ForeignApps...)
	foreignAssets := append([]basics.AssetIndex(nil), params.ForeignAssets...)

	for i, formal := range method.Args {
		actual := params.Args[i]
		switch {
		case formal.IsTransaction():
			tws, ok := actual.(TransactionWithSigner)
			if !ok {
				return fmt.Errorf("argument %d of %s expects a transaction", i, method.Name)
			}
			if formal.Type != "txn" && string(tws.Txn.Type) != formal.Type {
				return fmt.Errorf("argument %d of %s expects a %s transaction, got %s", i, method.Name, formal.Type, tws.Txn.Type)
			}
			pending = append(pending, tws)
		case formal.IsReference():
			index, err := encodeReference(formal.Type, actual, params.Header.Sender, params.AppID, &accounts, &foreignApps, &foreignAssets)
			if err != nil {
				return fmt.Errorf("argument %d of %s: %w", i, method.Name, err)
			}
			appArgs = append(appArgs, []byte{index})
		default:
			abiType, err := formal.ABIType()
			if err != nil {
				return fmt.Errorf("argument %d of %s: %w", i, method.Name, err)
			}
			encoded, err := abiType.Encode(flattenValue(actual))
			if err != nil {
				return fmt.Errorf("could not encode argument %d of %s: %w", i, method.Name, err)
			}
			appArgs = append(appArgs, encoded)
		}
	}

	if len(appArgs) > maxAppArgs {
		return fmt.Errorf("method %s needs %d application arguments, exceeding the limit of %d", method.Name, len(appArgs), maxAppArgs)
	}
	if len(c.txns)+len(pending)+1 > maxTxGroupSize {
		return fmt.Errorf("group size is limited to %d transactions", maxTxGroupSize)
	}

	c.txns = append(c.txns, pending...)

	txn := transactions.Transaction{
		Type:   protocol.ApplicationCallTx,
		Header: params.Header,
		ApplicationCallTxnFields: transactions.ApplicationCallTxnFields{
			ApplicationID:     params.AppID,
			OnCompletion:      params.OnCompletion,
			ApplicationArgs:   appArgs,
			Accounts:          accounts,
			ForeignApps:       foreignApps,
			ForeignAssets:     foreignAssets,
			Boxes:             params.Boxes,
			GlobalStateSchema: params.GlobalStateSchema,
			LocalStateSchema:  params.LocalStateSchema,
			ApprovalProgram:   params.ApprovalProgram,
			ClearStateProgram: params.ClearStateProgram,
			ExtraProgramPages: params.ExtraProgramPages,
		},
	}

	if c.methods == nil {
		c.methods = make(map[int]abi.Method)
	}
	c.methods[len(c.txns)] = method
	c.txns = append(c.txns, TransactionWithSigner{Txn: txn, Signer: params.Signer})
	return nil
}

// encodeReference resolves a reference-typed argument to its uint8 index
// encoding, growing the relevant foreign array when the referenced entity is
// not already present. Index 0 denotes the sender for accounts and the called
// application for applications.
func encodeReference(
	refType string, actual interface{}, sender basics.Address, appID basics.AppIndex,
	accounts *[]basics.Address, foreignApps *[]basics.AppIndex, foreignAssets *[]basics.AssetIndex,
) (uint8, error) {
	switch refType {
	case "account":
		var addr basics.Address
		switch v := actual.(type) {
		case basics.Address:
			addr = v
		case string:
			var err error
			addr, err = basics.UnmarshalChecksumAddress(v)
			if err != nil {
				return 0, err
			}
		default:
			return 0, fmt.Errorf("expects an account address, got %T", actual)
		}
		if addr == sender {
			return 0, nil
		}
		for i, a := range *accounts {
			if a == addr {
				return uint8(i + 1), nil
			}
		}
		*accounts = append(*accounts, addr)
		return uint8(len(*accounts)), nil

	case "application":
		var id basics.AppIndex
		switch v := actual.(type) {
		case basics.AppIndex:
			id = v
		case uint64:
			id = basics.AppIndex(v)
		default:
			return 0, fmt.Errorf("expects an application id, got %T", actual)
		}
		if id == appID {
			return 0, nil
		}
		for i, a := range *foreignApps {
			if a == id {
				return uint8(i + 1), nil
			}
		}
		*foreignApps = append(*foreignApps, id)
		return uint8(len(*foreignApps)), nil

	case "asset":
		var id basics.AssetIndex
		switch v := actual.(type) {
		case basics.AssetIndex:
			id = v
		case uint64:
			id = basics.AssetIndex(v)
		default:
			return 0, fmt.Errorf("expects an asset id, got %T", actual)
		}
		for i, a := range *foreignAssets {
			if a == id {
				return uint8(i), nil
			}
		}
		*foreignAssets = append(*foreignAssets, id)
		return uint8(len(*foreignAssets) - 1), nil
	}
	return 0, fmt.Errorf("unknown reference type %s", refType)
}

// flattenValue converts struct values into the positional []interface{} form
// the ABI tuple encoder consumes, recursively. Non-struct values pass through
// unchanged.
func flattenValue(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return v
	}
	t := rv.Type()
	fields := make([]interface{}, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		fields = append(fields, flattenValue(rv.Field(i).Interface()))
	}
	return fields
}

// BuildGroup finalizes the accumulated transactions into an atomic group,
// assigning the group id when there is more than one member. Further adds are
// rejected once the group is built.
func (c *AtomicComposer) BuildGroup() ([]transactions.Transaction, error) {
	if c.built != nil {
		return c.built, nil
	}
	if len(c.txns) == 0 {
		return nil, errors.New("attempted to build an empty group")
	}
	group := make([]transactions.Transaction, len(c.txns))
	for i, tws := range c.txns {
		group[i] = tws.Txn
	}
	if len(group) > 1 {
		if err := transactions.AssignGroupID(group); err != nil {
			return nil, err
		}
	}
	c.built = group
	return group, nil
}

// GatherSignatures signs the built group, invoking each distinct signer once
// with all of the positions it is responsible for.
func (c *AtomicComposer) GatherSignatures() ([]transactions.SignedTxn, error) {
	if c.signed != nil {
		return c.signed, nil
	}
	group, err := c.BuildGroup()
	if err != nil {
		return nil, err
	}

	stxns := make([]transactions.SignedTxn, len(group))
	visited := make([]bool, len(group))
	for i, tws := range c.txns {
		if visited[i] {
			continue
		}
		if tws.Signer == nil {
			return nil, fmt.Errorf("transaction %d has no signer", i)
		}
		var indexes []int
		for j := i; j < len(c.txns); j++ {
			if !visited[j] && c.txns[j].Signer == tws.Signer {
				indexes = append(indexes, j)
				visited[j] = true
			}
		}
		signedHere, err := tws.Signer.SignTransactions(group, indexes)
		if err != nil {
			return nil, fmt.Errorf("could not sign transactions %v: %w", indexes, err)
		}
		if len(signedHere) != len(indexes) {
			return nil, fmt.Errorf("signer returned %d transactions for %d requested", len(signedHere), len(indexes))
		}
		for k, idx := range indexes {
			stxns[idx] = signedHere[k]
		}
	}
	c.signed = stxns
	return stxns, nil
}

// Execute signs and submits the group, waits for the first transaction to
// confirm within waitRounds rounds, and returns a result per method call in
// group order.
func (c *AtomicComposer) Execute(ctx context.Context, restClient client.RestClient, waitRounds uint64) ([]ABIResult, error) {
	stxns, err := c.GatherSignatures()
	if err != nil {
		return nil, err
	}

	if _, err := restClient.SendRawTransactionGroup(ctx, stxns); err != nil {
		return nil, err
	}

	if _, err := restClient.WaitForConfirmedTxn(ctx, c.built[0].ID().String(), waitRounds); err != nil {
		return nil, err
	}

	results := make([]ABIResult, 0, len(c.methods))
	for i := range c.built {
		method, ok := c.methods[i]
		if !ok {
			continue
		}
		txid := c.built[i].ID().String()
		info, err := restClient.PendingTransactionInformation(ctx, txid)
		if err != nil {
			return nil, fmt.Errorf("could not fetch confirmation of %s: %w", txid, err)
		}
		results = append(results, makeABIResult(txid, method, info))
	}
	return results, nil
}
