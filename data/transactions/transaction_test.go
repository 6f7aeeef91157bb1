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

package transactions

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand-devrel/beaker-go/crypto"
	"github.com/algorand-devrel/beaker-go/data/basics"
	"github.com/algorand-devrel/beaker-go/protocol"
	"github.com/algorand-devrel/beaker-go/test/partitiontest"
)

func keypair(b byte) *crypto.SignatureSecrets {
	var seed crypto.Seed
	seed[0] = b
	return crypto.GenerateSignatureSecrets(seed)
}

func testTxn(sender basics.Address, note []byte) Transaction {
	return Transaction{
		Type: protocol.PaymentTx,
		Header: Header{
			Sender:     sender,
			Fee:        basics.MicroAlgos{Raw: 1000},
			FirstValid: 100,
			LastValid:  1100,
			Note:       note,
			GenesisID:  "test-v1",
		},
		PaymentTxnFields: PaymentTxnFields{
			Receiver: basics.Address{0x02},
			Amount:   basics.MicroAlgos{Raw: 5_000_000},
		},
	}
}

func TestTransactionIDDependsOnContent(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	tx := testTxn(basics.Address{0x01}, nil)
	require.Equal(t, tx.ID(), tx.ID())

	other := testTxn(basics.Address{0x01}, []byte("x"))
	require.NotEqual(t, tx.ID(), other.ID())

	// Txids render as 52-character base32.
	require.Len(t, tx.ID().String(), 52)
}

func TestSignSetsAuthAddr(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	secrets := keypair(1)
	sender := basics.Address(secrets.SignatureVerifier)

	tx := testTxn(sender, nil)
	stx := tx.Sign(secrets)
	require.True(t, stx.AuthAddr.IsZero())
	require.True(t, secrets.SignatureVerifier.Verify(tx, stx.Sig))

	// Signing for somebody else's sender marks the authorizer.
	rekeyed := testTxn(basics.Address{0xaa}, nil)
	stx = rekeyed.Sign(secrets)
	require.Equal(t, sender, stx.AuthAddr)
	require.True(t, secrets.SignatureVerifier.Verify(rekeyed, stx.Sig))
}

func TestGroupIDAssignment(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	txns := []Transaction{
		testTxn(basics.Address{0x01}, []byte("a")),
		testTxn(basics.Address{0x01}, []byte("b")),
	}

	gid, err := ComputeGroupID(txns)
	require.NoError(t, err)
	require.False(t, gid.IsZero())

	require.NoError(t, AssignGroupID(txns))
	require.Equal(t, gid, txns[0].Group)
	require.Equal(t, gid, txns[1].Group)

	// A transaction already carrying a group id may not be regrouped.
	_, err = ComputeGroupID(txns)
	require.Error(t, err)
}

func TestGroupIDDependsOnMembers(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	a := testTxn(basics.Address{0x01}, []byte("a"))
	b := testTxn(basics.Address{0x01}, []byte("b"))

	gidAB, err := ComputeGroupID([]Transaction{a, b})
	require.NoError(t, err)
	gidBA, err := ComputeGroupID([]Transaction{b, a})
	require.NoError(t, err)
	require.NotEqual(t, gidAB, gidBA)

	gidA, err := ComputeGroupID([]Transaction{a})
	require.NoError(t, err)
	require.NotEqual(t, gidAB, gidA)
}

func TestTransactionEncodingRoundTrip(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	tx := Transaction{
		Type: protocol.ApplicationCallTx,
		Header: Header{
			Sender:     basics.Address{0x01},
			Fee:        basics.MicroAlgos{Raw: 1000},
			FirstValid: 1,
			LastValid:  1001,
		},
		ApplicationCallTxnFields: ApplicationCallTxnFields{
			ApplicationID:   7,
			OnCompletion:    OptInOC,
			ApplicationArgs: [][]byte{{0xde, 0xad}},
			ForeignApps:     []basics.AppIndex{8},
			Boxes:           []BoxRef{{Index: 0, Name: []byte("box")}},
		},
	}

	var decoded Transaction
	require.NoError(t, protocol.Decode(protocol.Encode(&tx), &decoded))
	require.Equal(t, tx, decoded)
	require.Equal(t, tx.ID(), decoded.ID())
}
