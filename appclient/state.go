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
	"encoding/base64"
	"fmt"

	"github.com/algorand-devrel/beaker-go/api/models"
	"github.com/algorand-devrel/beaker-go/data/basics"
)

// StateValue is one decoded application state value. A bytes-typed slot may
// semantically hold either opaque bytes or an address, so both renderings
// are kept: Bytes always carries the raw value, and Address carries the
// checksummed string when the value is exactly address-length and raw mode
// was not requested.
type StateValue struct {
	Type basics.TealType

	// Uint is the value of a uint-typed slot.
	Uint uint64

	// Bytes is the raw value of a bytes-typed slot.
	Bytes []byte

	// Address is the checksummed rendering of an address-length byte value.
	// Empty in raw mode or when the length does not match.
	Address string
}

// String renders the value the way a caller would usually want to see it.
func (v StateValue) String() string {
	switch v.Type {
	case basics.TealUintType:
		return fmt.Sprintf("%d", v.Uint)
	default:
		if v.Address != "" {
			return v.Address
		}
		return string(v.Bytes)
	}
}

// DecodeState decodes wire-format key/value records into typed state. Keys
// are base64 on the wire and are returned as their decoded bytes (which for
// declared keys are readable UTF-8). With raw set, bytes-typed values are
// never interpreted as addresses.
//
// A fresh map is built per call; callers own the result.
func DecodeState(kvs models.TealKeyValueStore, raw bool) (map[string]StateValue, error) {
	state := make(map[string]StateValue, len(kvs))

	for _, kv := range kvs {
		keyBytes, err := base64.StdEncoding.DecodeString(kv.Key)
		if err != nil {
			return nil, fmt.Errorf("state key %s is not valid base64: %w", kv.Key, err)
		}
		key := string(keyBytes)

		switch kv.Value.Type {
		case models.TealValueTypeBytes:
			valueBytes, err := base64.StdEncoding.DecodeString(kv.Value.Bytes)
			if err != nil {
				return nil, fmt.Errorf("state value for key %q is not valid base64: %w", key, err)
			}
			sv := StateValue{Type: basics.TealBytesType, Bytes: valueBytes}
			if !raw && len(valueBytes) == basics.AddressByteLength {
				var addr basics.Address
				copy(addr[:], valueBytes)
				sv.Address = addr.String()
			}
			state[key] = sv
		case models.TealValueTypeUint:
			state[key] = StateValue{Type: basics.TealUintType, Uint: kv.Value.Uint}
		default:
			return nil, fmt.Errorf("state value for key %q has unknown type %d", key, kv.Value.Type)
		}
	}

	return state, nil
}
