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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand-devrel/beaker-go/api/models"
	"github.com/algorand-devrel/beaker-go/data/basics"
	"github.com/algorand-devrel/beaker-go/test/partitiontest"
)

func b64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestDecodeStateUint(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	kvs := models.TealKeyValueStore{
		{Key: b64([]byte("counter")), Value: models.TealValue{Type: models.TealValueTypeUint, Uint: 42}},
	}

	state, err := DecodeState(kvs, false)
	require.NoError(t, err)
	require.Len(t, state, 1)
	require.Equal(t, basics.TealUintType, state["counter"].Type)
	require.Equal(t, uint64(42), state["counter"].Uint)
	require.Equal(t, "42", state["counter"].String())
}

func TestDecodeStateBytes(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	kvs := models.TealKeyValueStore{
		{Key: b64([]byte("title")), Value: models.TealValue{Type: models.TealValueTypeBytes, Bytes: b64([]byte("hello"))}},
	}

	state, err := DecodeState(kvs, false)
	require.NoError(t, err)
	require.Equal(t, basics.TealBytesType, state["title"].Type)
	require.Equal(t, []byte("hello"), state["title"].Bytes)
	require.Empty(t, state["title"].Address)
	require.Equal(t, "hello", state["title"].String())
}

func TestDecodeStateAddressDetection(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var addr basics.Address
	addr[0] = 0xaa
	kvs := models.TealKeyValueStore{
		{Key: b64([]byte("owner")), Value: models.TealValue{Type: models.TealValueTypeBytes, Bytes: b64(addr[:])}},
	}

	state, err := DecodeState(kvs, false)
	require.NoError(t, err)
	require.Equal(t, addr.String(), state["owner"].Address)
	require.Equal(t, addr[:], state["owner"].Bytes)
	require.Equal(t, addr.String(), state["owner"].String())

	// Raw mode never reinterprets 32-byte values as addresses.
	state, err = DecodeState(kvs, true)
	require.NoError(t, err)
	require.Empty(t, state["owner"].Address)
	require.Equal(t, addr[:], state["owner"].Bytes)
}

func TestDecodeStateErrors(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	// Key is not base64.
	_, err := DecodeState(models.TealKeyValueStore{
		{Key: "!!!", Value: models.TealValue{Type: models.TealValueTypeUint}},
	}, false)
	require.Error(t, err)

	// Bytes value is not base64.
	_, err = DecodeState(models.TealKeyValueStore{
		{Key: b64([]byte("k")), Value: models.TealValue{Type: models.TealValueTypeBytes, Bytes: "!!!"}},
	}, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"k"`)

	// Unknown value type names the record.
	_, err = DecodeState(models.TealKeyValueStore{
		{Key: b64([]byte("mystery")), Value: models.TealValue{Type: 9}},
	}, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"mystery"`)
}

func TestDecodeStateFreshMap(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	kvs := models.TealKeyValueStore{
		{Key: b64([]byte("k")), Value: models.TealValue{Type: models.TealValueTypeUint, Uint: 1}},
	}

	first, err := DecodeState(kvs, false)
	require.NoError(t, err)
	second, err := DecodeState(kvs, false)
	require.NoError(t, err)

	first["k"] = StateValue{Type: basics.TealUintType, Uint: 99}
	require.Equal(t, uint64(1), second["k"].Uint)
}
