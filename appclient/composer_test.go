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
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand-devrel/beaker-go/abi"
	"github.com/algorand-devrel/beaker-go/crypto"
	"github.com/algorand-devrel/beaker-go/data/basics"
	"github.com/algorand-devrel/beaker-go/data/transactions"
	"github.com/algorand-devrel/beaker-go/protocol"
	"github.com/algorand-devrel/beaker-go/test/partitiontest"
)

func testKeypair(b byte) *crypto.SignatureSecrets {
	var seed crypto.Seed
	seed[0] = b
	return crypto.GenerateSignatureSecrets(seed)
}

func testHeader(sender basics.Address) transactions.Header {
	return transactions.Header{
		Sender:     sender,
		Fee:        basics.MicroAlgos{Raw: 1000},
		FirstValid: 10,
		LastValid:  1010,
		GenesisID:  "test-v1",
	}
}

func mustMethod(t *testing.T, sig string) abi.Method {
	t.Helper()
	m, err := abi.MethodFromSignature(sig)
	require.NoError(t, err)
	return m
}

func TestBuildArgsOrdering(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	method := mustMethod(t, "transfer(uint64,address)bool")
	method.Args[0].Name = "amount"
	method.Args[1].Name = "to"

	ordered, err := BuildArgs(method, map[string]MethodArg{
		"to":     Value{V: basics.Address{0x01}},
		"amount": Value{V: uint64(7)},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []interface{}{uint64(7), basics.Address{0x01}}, ordered)
}

func TestBuildArgsMissingAndUnknown(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	method := mustMethod(t, "transfer(uint64,address)bool")
	method.Args[0].Name = "amount"
	method.Args[1].Name = "to"

	_, err := BuildArgs(method, map[string]MethodArg{"amount": Value{V: uint64(7)}}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "to")

	_, err = BuildArgs(method, map[string]MethodArg{
		"amount": Value{V: uint64(7)},
		"to":     Value{V: basics.Address{}},
		"bogus":  Value{V: 1},
	}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bogus")
}

func TestBuildArgsPairsTxnWithSigner(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	method := mustMethod(t, "deposit(pay)void")
	method.Args[0].Name = "payment"

	signer := MakeBasicAccountSigner(testKeypair(1))
	payTxn := transactions.Transaction{Type: protocol.PaymentTx, Header: testHeader(signer.Address())}

	ordered, err := BuildArgs(method, map[string]MethodArg{
		"payment": TransactionWithSigner{Txn: payTxn},
	}, signer)
	require.NoError(t, err)

	tws, ok := ordered[0].(TransactionWithSigner)
	require.True(t, ok)
	require.Equal(t, signer, tws.Signer)
}

func TestBuildArgsFlattensStructs(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	method := mustMethod(t, "record((uint64,bool))void")
	method.Args[0].Name = "entry"

	ordered, err := BuildArgs(method, map[string]MethodArg{
		"entry": Struct{Fields: []MethodArg{Value{V: uint64(1)}, Value{V: true}}},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []interface{}{uint64(1), true}, ordered[0])
}

func TestAddMethodCallEncodesArgs(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	signer := MakeBasicAccountSigner(testKeypair(1))
	method := mustMethod(t, "add(uint64,uint64)uint64")

	var composer AtomicComposer
	require.NoError(t, composer.AddMethodCall(MethodCallParams{
		AppID:  7,
		Method: method,
		Args:   []interface{}{uint64(2), uint64(3)},
		Header: testHeader(signer.Address()),
		Signer: signer,
	}))

	group, err := composer.BuildGroup()
	require.NoError(t, err)
	require.Len(t, group, 1)

	call := group[0]
	require.Equal(t, protocol.ApplicationCallTx, call.Type)
	require.Equal(t, basics.AppIndex(7), call.ApplicationID)
	require.Len(t, call.ApplicationArgs, 3)
	require.Equal(t, method.Selector(), call.ApplicationArgs[0])
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 2}, call.ApplicationArgs[1])
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 3}, call.ApplicationArgs[2])

	// Single-transaction groups carry no group id.
	require.True(t, call.Group.IsZero())
}

func TestAddMethodCallReferenceArgs(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	signer := MakeBasicAccountSigner(testKeypair(1))
	sender := signer.Address()
	other := basics.Address{0xbb}
	method := mustMethod(t, "audit(account,account,asset,application)void")

	var composer AtomicComposer
	require.NoError(t, composer.AddMethodCall(MethodCallParams{
		AppID:  7,
		Method: method,
		Args:   []interface{}{sender, other, basics.AssetIndex(55), basics.AppIndex(7)},
		Header: testHeader(sender),
		Signer: signer,
	}))

	group, err := composer.BuildGroup()
	require.NoError(t, err)
	call := group[0]

	// The sender and the called application resolve to index 0 without
	// growing the foreign arrays.
	require.Equal(t, []byte{0}, call.ApplicationArgs[1])
	require.Equal(t, []byte{1}, call.ApplicationArgs[2])
	require.Equal(t, []byte{0}, call.ApplicationArgs[3])
	require.Equal(t, []byte{0}, call.ApplicationArgs[4])

	require.Equal(t, []basics.Address{other}, call.Accounts)
	require.Equal(t, []basics.AssetIndex{55}, call.ForeignAssets)
	require.Empty(t, call.ForeignApps)
}

func TestAddMethodCallPlacesTxnArgs(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	signer := MakeBasicAccountSigner(testKeypair(1))
	sender := signer.Address()
	method := mustMethod(t, "deposit(pay,uint64)void")

	payTxn := transactions.Transaction{
		Type:             protocol.PaymentTx,
		Header:           testHeader(sender),
		PaymentTxnFields: transactions.PaymentTxnFields{Receiver: basics.Address{0x02}, Amount: basics.MicroAlgos{Raw: 1}},
	}

	var composer AtomicComposer
	require.NoError(t, composer.AddMethodCall(MethodCallParams{
		AppID:  7,
		Method: method,
		Args:   []interface{}{TransactionWithSigner{Txn: payTxn, Signer: signer}, uint64(9)},
		Header: testHeader(sender),
		Signer: signer,
	}))

	group, err := composer.BuildGroup()
	require.NoError(t, err)
	require.Len(t, group, 2)
	require.Equal(t, protocol.PaymentTx, group[0].Type)
	require.Equal(t, protocol.ApplicationCallTx, group[1].Type)

	// The transaction argument is not ABI-encoded into the app args.
	require.Len(t, group[1].ApplicationArgs, 2)

	// Both members carry the same, nonzero group id.
	require.False(t, group[0].Group.IsZero())
	require.Equal(t, group[0].Group, group[1].Group)

	// A pay-typed argument rejects a mismatched transaction type.
	var rejecting AtomicComposer
	appl := transactions.Transaction{Type: protocol.ApplicationCallTx, Header: testHeader(sender)}
	err = rejecting.AddMethodCall(MethodCallParams{
		AppID:  7,
		Method: method,
		Args:   []interface{}{TransactionWithSigner{Txn: appl, Signer: signer}, uint64(9)},
		Header: testHeader(sender),
		Signer: signer,
	})
	require.Error(t, err)
}

func TestAddMethodCallArgumentLimit(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	signer := MakeBasicAccountSigner(testKeypair(1))

	// 16 encoded arguments plus the selector exceed the app args bound.
	sig := fmt.Sprintf("wide(%s)void", strings.TrimSuffix(strings.Repeat("uint64,", 16), ","))
	method := mustMethod(t, sig)

	args := make([]interface{}, 16)
	for i := range args {
		args[i] = uint64(i)
	}

	var composer AtomicComposer
	err := composer.AddMethodCall(MethodCallParams{
		AppID:  7,
		Method: method,
		Args:   args,
		Header: testHeader(signer.Address()),
		Signer: signer,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "limit")
}

func TestGatherSignatures(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	alice := MakeBasicAccountSigner(testKeypair(1))
	bob := MakeBasicAccountSigner(testKeypair(2))

	var composer AtomicComposer
	require.NoError(t, composer.AddTransaction(TransactionWithSigner{
		Txn:    transactions.Transaction{Type: protocol.PaymentTx, Header: testHeader(alice.Address())},
		Signer: alice,
	}))
	require.NoError(t, composer.AddTransaction(TransactionWithSigner{
		Txn:    transactions.Transaction{Type: protocol.PaymentTx, Header: testHeader(bob.Address())},
		Signer: bob,
	}))

	stxns, err := composer.GatherSignatures()
	require.NoError(t, err)
	require.Len(t, stxns, 2)

	group, err := composer.BuildGroup()
	require.NoError(t, err)
	require.True(t, alice.Address() == stxns[0].Txn.Sender)
	require.True(t, testKeypair(1).SignatureVerifier.Verify(group[0], stxns[0].Sig))
	require.True(t, testKeypair(2).SignatureVerifier.Verify(group[1], stxns[1].Sig))

	// Adding after building is rejected.
	err = composer.AddTransaction(TransactionWithSigner{Signer: alice})
	require.Error(t, err)
}

func TestEmptyComposer(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var composer AtomicComposer
	require.Equal(t, 0, composer.Count())
	_, err := composer.BuildGroup()
	require.Error(t, err)
}
