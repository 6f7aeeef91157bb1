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
	"encoding/binary"

	"github.com/algorand/go-codec/codec"

	"github.com/algorand-devrel/beaker-go/crypto"
	"github.com/algorand-devrel/beaker-go/protocol"
)

// Round represents a protocol round index
type Round uint64

// MicroAlgos is our unit of currency. It is wrapped in a struct to nudge
// developers to use an overflow-checked library for any arithmetic.
type MicroAlgos struct {
	Raw uint64
}

// CodecEncodeSelf implements codec.Selfer to encode MicroAlgos as the raw
// uint, as it appears on the wire.
func (u MicroAlgos) CodecEncodeSelf(enc *codec.Encoder) {
	enc.MustEncode(u.Raw)
}

// CodecDecodeSelf implements codec.Selfer to decode MicroAlgos as the raw
// uint, as it appears on the wire.
func (u *MicroAlgos) CodecDecodeSelf(dec *codec.Decoder) {
	dec.MustDecode(&u.Raw)
}

// AppIndex is the unique integer index of an application that can be used to
// look up the creator of the application, whose balance record contains the
// AppParams
type AppIndex uint64

// AssetIndex is the unique integer index of an asset that can be used to look
// up the creator of the asset, whose balance record contains the AssetParams
type AssetIndex uint64

// ToBeHashed implements crypto.Hashable
func (app AppIndex) ToBeHashed() (protocol.HashID, []byte) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(app))
	return protocol.AppIndex, buf
}

// Address yields the "app address" of the app
func (app AppIndex) Address() Address {
	return Address(crypto.HashObj(app))
}
