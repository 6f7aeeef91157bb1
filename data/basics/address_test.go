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

package basics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/algorand-devrel/beaker-go/test/partitiontest"
)

func TestZeroAddressString(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var addr Address
	require.True(t, addr.IsZero())
	require.Equal(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAY5HFKQ", addr.String())
}

func TestAddressRoundTrip(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "raw")
		var addr Address
		copy(addr[:], raw)

		decoded, err := UnmarshalChecksumAddress(addr.String())
		require.NoError(t, err)
		require.Equal(t, addr, decoded)
	})
}

func TestAddressChecksumMalformed(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var addr Address
	addr[0] = 0x7f
	encoded := addr.String()

	// Flip a character inside the checksum portion.
	tail := encoded[len(encoded)-1]
	replacement := byte('B')
	if tail == replacement {
		replacement = 'C'
	}
	corrupted := encoded[:len(encoded)-1] + string(replacement)
	_, err := UnmarshalChecksumAddress(corrupted)
	require.Error(t, err)

	// Lowercase input is not valid base32.
	_, err = UnmarshalChecksumAddress(strings.ToLower(encoded))
	require.Error(t, err)

	// Truncated input.
	_, err = UnmarshalChecksumAddress(encoded[:10])
	require.Error(t, err)
}

func TestAddressMarshalText(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var addr Address
	addr[31] = 1

	text, err := addr.MarshalText()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.UnmarshalText(text))
	require.Equal(t, addr, decoded)

	require.Error(t, decoded.UnmarshalText([]byte("not-an-address")))
}
