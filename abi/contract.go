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

package abi

import "fmt"

// ContractNetworkInfo carries the deployed application id of a contract on
// one network, keyed by genesis hash in Contract.Networks.
type ContractNetworkInfo struct {
	AppID uint64 `json:"appID"`
}

// Contract is the interface description of a deployed application: its
// methods plus where it lives.
type Contract struct {
	Name     string                         `json:"name"`
	Desc     string                         `json:"desc,omitempty"`
	Networks map[string]ContractNetworkInfo `json:"networks,omitempty"`
	Methods  []Method                       `json:"methods"`
}

// MethodByName finds the contract method with the given name. Overloaded
// names are rejected; use the full signature to disambiguate in that case.
func (c Contract) MethodByName(name string) (Method, error) {
	var found *Method
	for i := range c.Methods {
		if c.Methods[i].Name == name {
			if found != nil {
				return Method{}, fmt.Errorf("contract %s has multiple methods named %s", c.Name, name)
			}
			found = &c.Methods[i]
		}
	}
	if found == nil {
		return Method{}, fmt.Errorf("contract %s has no method named %s", c.Name, name)
	}
	return *found, nil
}
