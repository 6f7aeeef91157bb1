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

package crypto

import (
	"crypto/ed25519"

	"github.com/hdevalence/ed25519consensus"
)

type (
	// Seed is the entropy an ed25519 signing keypair is derived from.
	Seed [32]byte

	// PublicKey is an ed25519 public key.
	PublicKey [ed25519.PublicKeySize]byte

	// Signature is an ed25519 signature over the canonical, domain-prefixed
	// representation of a Hashable object.
	Signature [ed25519.SignatureSize]byte

	// SignatureVerifier verifies signatures produced by the matching
	// SignatureSecrets.
	SignatureVerifier = PublicKey
)

// SignatureSecrets holds an ed25519 keypair used to produce transaction
// signatures.
type SignatureSecrets struct {
	SignatureVerifier

	sk ed25519.PrivateKey
}

// GenerateSignatureSecrets derives a keypair deterministically from seed.
func GenerateSignatureSecrets(seed Seed) *SignatureSecrets {
	sk := ed25519.NewKeyFromSeed(seed[:])
	var pk PublicKey
	copy(pk[:], sk.Public().(ed25519.PublicKey))
	return &SignatureSecrets{
		SignatureVerifier: pk,
		sk:                sk,
	}
}

// Sign produces a signature over the hashable object's domain-prefixed
// representation.
func (s *SignatureSecrets) Sign(message Hashable) Signature {
	return s.SignBytes(HashRep(message))
}

// SignBytes signs a message directly, without prepending a domain prefix.
func (s *SignatureSecrets) SignBytes(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(s.sk, message))
	return sig
}

// Verify reports whether sig is a valid signature by v over message.
func (v SignatureVerifier) Verify(message Hashable, sig Signature) bool {
	return v.VerifyBytes(HashRep(message), sig)
}

// VerifyBytes reports whether sig is a valid signature by v over the raw
// message bytes. Verification uses the ZIP-215 consensus rules so that
// acceptance matches what the network itself would accept.
func (v SignatureVerifier) VerifyBytes(message []byte, sig Signature) bool {
	return ed25519consensus.Verify(v[:], message, sig[:])
}
