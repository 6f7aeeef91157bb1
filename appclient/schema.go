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
	"github.com/algorand-devrel/beaker-go/data/basics"
)

// AVMType is the type of a value held in an application's state store.
type AVMType string

const (
	// AVMUint64 occupies a uint slot in the state schema.
	AVMUint64 AVMType = "uint64"

	// AVMBytes occupies a byte-slice slot in the state schema.
	AVMBytes AVMType = "bytes"
)

// DeclaredSchemaValueSpec describes a single statically known state key.
type DeclaredSchemaValueSpec struct {
	// Type of the value held at this key.
	Type AVMType `json:"type"`

	// Key under which the value is stored.
	Key string `json:"key"`

	// Descr is a human description of the value.
	Descr string `json:"descr,omitempty"`

	// Static is true when the value is expected to be written once and
	// never changed.
	Static bool `json:"static,omitempty"`
}

// ReservedSchemaValueSpec reserves schema room for keys chosen at runtime.
type ReservedSchemaValueSpec struct {
	// Type of the values stored under the reserved keys.
	Type AVMType `json:"type"`

	// Descr is a human description of the reservation.
	Descr string `json:"descr,omitempty"`

	// MaxKeys is how many slots of Type to reserve.
	MaxKeys uint64 `json:"max_keys"`
}

// Schema declares the shape of an application's global or local state store:
// statically declared keys plus reservations for dynamically chosen ones.
// Key names must be unique within a schema.
type Schema struct {
	Declared map[string]DeclaredSchemaValueSpec `json:"declared"`
	Reserved map[string]ReservedSchemaValueSpec `json:"reserved"`
}

// StateSchema computes the storage-cell counts the network must allocate for
// this schema: one slot per declared key plus MaxKeys slots per reservation,
// counted per type.
func (s Schema) StateSchema() basics.StateSchema {
	var schema basics.StateSchema
	for _, spec := range s.Declared {
		if spec.Type == AVMUint64 {
			schema.NumUint++
		} else {
			schema.NumByteSlice++
		}
	}
	for _, spec := range s.Reserved {
		if spec.Type == AVMUint64 {
			schema.NumUint += spec.MaxKeys
		} else {
			schema.NumByteSlice += spec.MaxKeys
		}
	}
	return schema
}
