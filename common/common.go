// Copyright 2026 Quayside Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package common provides the identifier and digest types shared by the
// settlement engine's components
package common

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

const (
	// ParticipantIdSize is the size of a participant identifier in bytes
	ParticipantIdSize = 28
	// CurrencyIdSize is the size of a currency identifier in bytes
	CurrencyIdSize = 28
	// DigestSize is the size of an audit digest in bytes
	DigestSize = 32
)

// ParticipantId identifies a participant (locker) in a settlement session
type ParticipantId [ParticipantIdSize]byte

// NewParticipantId returns a ParticipantId populated from the provided bytes
func NewParticipantId(data []byte) ParticipantId {
	p := ParticipantId{}
	copy(p[:], data)
	return p
}

// HashParticipantId generates a ParticipantId from arbitrary key material
// using a Blake2b-224 hash
func HashParticipantId(data []byte) ParticipantId {
	tmpHash, err := blake2b.New(ParticipantIdSize, nil)
	if err != nil {
		panic(fmt.Sprintf("unexpected error creating empty blake2b hash: %s", err))
	}
	tmpHash.Write(data)
	return NewParticipantId(tmpHash.Sum(nil))
}

func (p ParticipantId) String() string {
	return hex.EncodeToString(p[:])
}

func (p ParticipantId) Bytes() []byte {
	return p[:]
}

// Bech32 encodes the participant identifier as bech32 with the given prefix
func (p ParticipantId) Bech32(prefix string) string {
	return encodeBech32(prefix, p[:])
}

func (p ParticipantId) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p ParticipantId) MarshalCBOR() ([]byte, error) {
	// Ensure we always encode a full-sized bytestring, even if the ID is zero-valued
	idBytes := make([]byte, ParticipantIdSize)
	copy(idBytes, p[:])
	return cbor.Marshal(idBytes)
}

func (p *ParticipantId) UnmarshalCBOR(data []byte) error {
	var tmpData []byte
	if err := cbor.Unmarshal(data, &tmpData); err != nil {
		return err
	}
	if len(tmpData) != ParticipantIdSize {
		return fmt.Errorf(
			"invalid participant ID length: %d, expected %d",
			len(tmpData),
			ParticipantIdSize,
		)
	}
	copy(p[:], tmpData)
	return nil
}

// CurrencyId identifies a currency tracked by the settlement ledger
type CurrencyId [CurrencyIdSize]byte

// NewCurrencyId returns a CurrencyId populated from the provided bytes
func NewCurrencyId(data []byte) CurrencyId {
	c := CurrencyId{}
	copy(c[:], data)
	return c
}

// HashCurrencyId generates a CurrencyId from arbitrary key material using a
// Blake2b-224 hash
func HashCurrencyId(data []byte) CurrencyId {
	tmpHash, err := blake2b.New(CurrencyIdSize, nil)
	if err != nil {
		panic(fmt.Sprintf("unexpected error creating empty blake2b hash: %s", err))
	}
	tmpHash.Write(data)
	return NewCurrencyId(tmpHash.Sum(nil))
}

func (c CurrencyId) String() string {
	return hex.EncodeToString(c[:])
}

func (c CurrencyId) Bytes() []byte {
	return c[:]
}

// Bech32 encodes the currency identifier as bech32 with the given prefix
func (c CurrencyId) Bech32(prefix string) string {
	return encodeBech32(prefix, c[:])
}

func (c CurrencyId) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c CurrencyId) MarshalCBOR() ([]byte, error) {
	idBytes := make([]byte, CurrencyIdSize)
	copy(idBytes, c[:])
	return cbor.Marshal(idBytes)
}

func (c *CurrencyId) UnmarshalCBOR(data []byte) error {
	var tmpData []byte
	if err := cbor.Unmarshal(data, &tmpData); err != nil {
		return err
	}
	if len(tmpData) != CurrencyIdSize {
		return fmt.Errorf(
			"invalid currency ID length: %d, expected %d",
			len(tmpData),
			CurrencyIdSize,
		)
	}
	copy(c[:], tmpData)
	return nil
}

// Digest is a Blake2b-256 hash over engine state used for auditing
type Digest [DigestSize]byte

// NewDigest returns a Digest populated from the provided bytes
func NewDigest(data []byte) Digest {
	d := Digest{}
	copy(d[:], data)
	return d
}

// HashDigest generates a Digest from the provided data
func HashDigest(data []byte) Digest {
	tmpHash, err := blake2b.New256(nil)
	if err != nil {
		panic(fmt.Sprintf("unexpected error creating empty blake2b hash: %s", err))
	}
	tmpHash.Write(data)
	return NewDigest(tmpHash.Sum(nil))
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) Bytes() []byte {
	return d[:]
}

func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func encodeBech32(prefix string, data []byte) string {
	// Convert data to base32 and encode as bech32
	convData, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		panic(
			fmt.Sprintf("unexpected error converting data to base32: %s", err),
		)
	}
	encoded, err := bech32.Encode(prefix, convData)
	if err != nil {
		panic(fmt.Sprintf("unexpected error encoding data as bech32: %s", err))
	}
	return encoded
}
