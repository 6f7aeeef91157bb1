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
	"bytes"
	"fmt"

	"github.com/algorand-devrel/beaker-go/abi"
	"github.com/algorand-devrel/beaker-go/api/models"
	"github.com/algorand-devrel/beaker-go/data/basics"
	"github.com/algorand-devrel/beaker-go/data/transactions"
)

// abiReturnHash prefixes the log entry carrying a method's return value:
// the selector of the "return" event, per the ABI conventions.
var abiReturnHash = []byte{0x15, 0x1f, 0x7c, 0x75}

// InnerTransaction is a transaction issued by the application itself during
// evaluation. Only the first level of inner transactions is unpacked; deeper
// nesting stays inside TxInfo.
type InnerTransaction struct {
	Txn transactions.SignedTxn

	// CreatedAsset is set when the inner transaction created an asset.
	CreatedAsset basics.AssetIndex

	// CreatedApp is set when the inner transaction created an application.
	CreatedApp basics.AppIndex
}

func extractInners(info models.PendingTransactionResponse) []InnerTransaction {
	if info.InnerTxns == nil {
		return nil
	}
	inners := make([]InnerTransaction, 0, len(*info.InnerTxns))
	for _, inner := range *info.InnerTxns {
		itxn := InnerTransaction{Txn: inner.Txn}
		if inner.AssetIndex != nil {
			itxn.CreatedAsset = basics.AssetIndex(*inner.AssetIndex)
		}
		if inner.ApplicationIndex != nil {
			itxn.CreatedApp = basics.AppIndex(*inner.ApplicationIndex)
		}
		inners = append(inners, itxn)
	}
	return inners
}

// ABIResult is the outcome of one confirmed method call.
type ABIResult struct {
	// TxID of the application call transaction.
	TxID string

	// TxInfo is the confirmed transaction as reported by algod.
	TxInfo models.PendingTransactionResponse

	// Method that was called.
	Method abi.Method

	// RawReturnValue is the return value before ABI decoding, without the
	// return-event prefix. Empty for void methods.
	RawReturnValue []byte

	// ReturnValue is the decoded return value. Nil for void methods.
	ReturnValue interface{}

	// DecodeError is set when the confirmed transaction carried no decodable
	// return value for a non-void method.
	DecodeError error

	// Inners are the first-level inner transactions issued by the call.
	Inners []InnerTransaction
}

// makeABIResult decodes the return value of a confirmed method call. Decoding
// problems are reported in the result's DecodeError rather than failing the
// whole group.
func makeABIResult(txid string, method abi.Method, info models.PendingTransactionResponse) ABIResult {
	result := ABIResult{
		TxID:   txid,
		TxInfo: info,
		Method: method,
		Inners: extractInners(info),
	}

	if method.Returns.IsVoid() {
		return result
	}

	raw, err := lastReturnLog(info)
	if err != nil {
		result.DecodeError = err
		return result
	}
	result.RawReturnValue = raw

	retType, err := method.Returns.ABIType()
	if err != nil {
		result.DecodeError = err
		return result
	}
	value, err := retType.Decode(raw)
	if err != nil {
		result.DecodeError = fmt.Errorf("could not decode return value of %s: %w", method.Name, err)
		return result
	}
	result.ReturnValue = value
	return result
}

// lastReturnLog finds the method return value among the call's logs: the
// last log entry bearing the return-event prefix.
func lastReturnLog(info models.PendingTransactionResponse) ([]byte, error) {
	if info.Logs == nil {
		return nil, fmt.Errorf("transaction did not log a return value")
	}
	logs := *info.Logs
	for i := len(logs) - 1; i >= 0; i-- {
		if bytes.HasPrefix(logs[i], abiReturnHash) {
			return logs[i][len(abiReturnHash):], nil
		}
	}
	return nil, fmt.Errorf("transaction did not log a return value")
}
