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

// Package abi describes contract methods: their names, typed arguments and
// returns, and the 4-byte selectors that identify them on the wire. Argument
// and return types are the AVM ABI types implemented by avm-abi.
package abi

import (
	"fmt"
	"strings"

	"github.com/algorand/avm-abi/abi"

	"github.com/algorand-devrel/beaker-go/crypto"
)

// VoidReturnType is the spelling of a method that returns nothing.
const VoidReturnType = "void"

// transaction argument type names accepted in method signatures, per the ABI
// conventions. A transaction-typed argument consumes the transaction placed
// immediately before the method call in its group.
var txnArgTypes = map[string]bool{
	"txn":    true,
	"pay":    true,
	"keyreg": true,
	"acfg":   true,
	"axfer":  true,
	"afrz":   true,
	"appl":   true,
}

// reference argument type names accepted in method signatures. A
// reference-typed argument is encoded as a uint8 index into the matching
// foreign array of the application call.
var refArgTypes = map[string]bool{
	"account":     true,
	"asset":       true,
	"application": true,
}

// Arg is one formal argument of a method.
type Arg struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
	Desc string `json:"desc,omitempty"`
}

// IsTransaction reports whether the argument expects a transaction in the
// group rather than an encoded value.
func (a Arg) IsTransaction() bool {
	return txnArgTypes[a.Type]
}

// IsReference reports whether the argument is an account/asset/application
// reference.
func (a Arg) IsReference() bool {
	return refArgTypes[a.Type]
}

// ABIType resolves the argument's AVM ABI type. Transaction and reference
// arguments have no ABI type and return an error.
func (a Arg) ABIType() (abi.Type, error) {
	if a.IsTransaction() || a.IsReference() {
		return abi.Type{}, fmt.Errorf("argument %s is not an ABI type: %s", a.Name, a.Type)
	}
	return abi.TypeOf(a.Type)
}

// Return describes a method's return value.
type Return struct {
	Type string `json:"type"`
	Desc string `json:"desc,omitempty"`
}

// IsVoid reports whether the method returns nothing.
func (r Return) IsVoid() bool {
	return r.Type == VoidReturnType
}

// ABIType resolves the return's AVM ABI type. Void returns an error.
func (r Return) ABIType() (abi.Type, error) {
	if r.IsVoid() {
		return abi.Type{}, fmt.Errorf("void return has no ABI type")
	}
	return abi.TypeOf(r.Type)
}

// Method describes one callable method of a contract.
type Method struct {
	Name    string `json:"name"`
	Desc    string `json:"desc,omitempty"`
	Args    []Arg  `json:"args"`
	Returns Return `json:"returns"`
}

// Signature returns the canonical signature string, e.g.
// "add(uint64,uint64)uint64".
func (m Method) Signature() string {
	argTypes := make([]string, len(m.Args))
	for i, arg := range m.Args {
		argTypes[i] = arg.Type
	}
	return fmt.Sprintf("%s(%s)%s", m.Name, strings.Join(argTypes, ","), m.Returns.Type)
}

// Selector returns the 4-byte selector identifying the method on the wire:
// the leading bytes of the hash of its canonical signature.
func (m Method) Selector() []byte {
	digest := crypto.Hash([]byte(m.Signature()))
	return digest[:4]
}

// MethodFromSignature parses a canonical signature string into a Method. Each
// argument type must be a valid ABI, transaction, or reference type, and the
// return must be a valid ABI type or "void".
func MethodFromSignature(signature string) (Method, error) {
	open := strings.Index(signature, "(")
	if open < 0 {
		return Method{}, fmt.Errorf("method signature %s is missing an open parenthesis", signature)
	}
	name := signature[:open]
	if name == "" {
		return Method{}, fmt.Errorf("method signature %s is missing a name", signature)
	}

	argsEnd, err := matchParens(signature, open)
	if err != nil {
		return Method{}, err
	}

	returnType := signature[argsEnd+1:]
	if returnType != VoidReturnType {
		if _, err := abi.TypeOf(returnType); err != nil {
			return Method{}, fmt.Errorf("method signature %s has a bad return type %s: %w", signature, returnType, err)
		}
	}

	argTypes, err := splitArgTypes(signature[open+1 : argsEnd])
	if err != nil {
		return Method{}, fmt.Errorf("method signature %s: %w", signature, err)
	}

	args := make([]Arg, len(argTypes))
	for i, argType := range argTypes {
		if !txnArgTypes[argType] && !refArgTypes[argType] {
			if _, err := abi.TypeOf(argType); err != nil {
				return Method{}, fmt.Errorf("method signature %s has a bad argument type %s: %w", signature, argType, err)
			}
		}
		args[i] = Arg{Type: argType}
	}

	return Method{
		Name:    name,
		Args:    args,
		Returns: Return{Type: returnType},
	}, nil
}

// matchParens returns the index of the parenthesis closing the one at open.
func matchParens(s string, open int) (int, error) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("method signature %s has unbalanced parentheses", s)
}

// splitArgTypes splits a comma-separated argument type list, respecting
// nested tuple parentheses.
func splitArgTypes(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var types []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in argument list %s", s)
			}
		case ',':
			if depth == 0 {
				types = append(types, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in argument list %s", s)
	}
	types = append(types, s[start:])
	for _, t := range types {
		if t == "" {
			return nil, fmt.Errorf("empty argument type in list %s", s)
		}
	}
	return types, nil
}
