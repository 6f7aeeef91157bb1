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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand-devrel/beaker-go/data/basics"
	"github.com/algorand-devrel/beaker-go/test/partitiontest"
)

func TestSchemaStateSchema(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	require.Equal(t, basics.StateSchema{}, Schema{}.StateSchema())

	s := Schema{
		Declared: map[string]DeclaredSchemaValueSpec{
			"counter": {Type: AVMUint64, Key: "c"},
			"owner":   {Type: AVMBytes, Key: "o", Static: true},
			"title":   {Type: AVMBytes, Key: "t"},
		},
		Reserved: map[string]ReservedSchemaValueSpec{
			"scores":  {Type: AVMUint64, MaxKeys: 4},
			"entries": {Type: AVMBytes, MaxKeys: 2},
		},
	}

	require.Equal(t, basics.StateSchema{NumUint: 5, NumByteSlice: 4}, s.StateSchema())
}

func TestSchemaJSONShape(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	// App spec files spell the reservation count as max_keys.
	blob := `{
		"declared": {"counter": {"type": "uint64", "key": "c", "descr": "count"}},
		"reserved": {"slots": {"type": "bytes", "max_keys": 3}}
	}`

	var s Schema
	require.NoError(t, json.Unmarshal([]byte(blob), &s))
	require.Equal(t, AVMUint64, s.Declared["counter"].Type)
	require.Equal(t, "c", s.Declared["counter"].Key)
	require.Equal(t, uint64(3), s.Reserved["slots"].MaxKeys)
	require.Equal(t, basics.StateSchema{NumUint: 1, NumByteSlice: 3}, s.StateSchema())
}
