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
	"github.com/algorand-devrel/beaker-go/crypto"
	"github.com/algorand-devrel/beaker-go/data/basics"
	"github.com/algorand-devrel/beaker-go/data/transactions"
)

// TransactionSigner is the capability the client needs from a wallet: given
// an atomic group and the positions within it this signer is responsible
// for, produce the signed transactions for those positions.
type TransactionSigner interface {
	SignTransactions(group []transactions.Transaction, indexes []int) ([]transactions.SignedTxn, error)
}

// TransactionWithSigner pairs a transaction with the signer that will
// authorize it. Group members may each carry a different signer.
type TransactionWithSigner struct {
	Txn    transactions.Transaction
	Signer TransactionSigner
}

// BasicAccountSigner signs with a single account's ed25519 secrets.
type BasicAccountSigner struct {
	secrets *crypto.SignatureSecrets
}

// MakeBasicAccountSigner returns a signer over the given secrets.
func MakeBasicAccountSigner(secrets *crypto.SignatureSecrets) BasicAccountSigner {
	return BasicAccountSigner{secrets: secrets}
}

// Address returns the address of the signing account.
func (s BasicAccountSigner) Address() basics.Address {
	return basics.Address(s.secrets.SignatureVerifier)
}

// SignTransactions implements TransactionSigner.
func (s BasicAccountSigner) SignTransactions(group []transactions.Transaction, indexes []int) ([]transactions.SignedTxn, error) {
	stxns := make([]transactions.SignedTxn, len(indexes))
	for i, idx := range indexes {
		stxns[i] = group[idx].Sign(s.secrets)
	}
	return stxns, nil
}

// EmptySigner produces unsigned SignedTxn wrappers. It is useful for
// composing groups whose fee and shape are inspected without submission.
type EmptySigner struct{}

// SignTransactions implements TransactionSigner.
func (s EmptySigner) SignTransactions(group []transactions.Transaction, indexes []int) ([]transactions.SignedTxn, error) {
	stxns := make([]transactions.SignedTxn, len(indexes))
	for i, idx := range indexes {
		stxns[i] = transactions.SignedTxn{Txn: group[idx]}
	}
	return stxns, nil
}
