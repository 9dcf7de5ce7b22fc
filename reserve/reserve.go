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

// Package reserve defines the value-transfer collaborator used by the
// settlement engine and provides an in-memory implementation for tests and
// tooling. A transfer either fully succeeds or fails without partial effect.
package reserve

import (
	"errors"
	"fmt"

	"github.com/quayside-io/gosettle/common"
)

var (
	// ErrInsufficientReserve is returned when a transfer exceeds the pool balance
	ErrInsufficientReserve = errors.New("insufficient reserve for transfer")
	// ErrInvalidAmount is returned for zero or negative transfer amounts
	ErrInvalidAmount = errors.New("invalid transfer amount")
)

// Reserve is the external capability that holds pooled value and moves it to
// recipients on the engine's behalf
type Reserve interface {
	// Balance returns the pooled amount currently held for the given currency
	Balance(currency common.CurrencyId) int64
	// Transfer moves amount of currency from the pool to the recipient
	Transfer(
		currency common.CurrencyId,
		to common.ParticipantId,
		amount int64,
	) error
}

type holdingKey struct {
	participant common.ParticipantId
	currency    common.CurrencyId
}

// MemReserve is an in-memory Reserve tracking a pooled balance per currency
// and the amounts transferred out to each recipient
type MemReserve struct {
	pool     map[common.CurrencyId]int64
	holdings map[holdingKey]int64
}

// NewMemReserve returns an empty MemReserve
func NewMemReserve() *MemReserve {
	return &MemReserve{
		pool:     map[common.CurrencyId]int64{},
		holdings: map[holdingKey]int64{},
	}
}

// Deposit models an external payment of amount into the pool
func (r *MemReserve) Deposit(currency common.CurrencyId, amount int64) {
	r.pool[currency] += amount
}

// Balance returns the pooled amount currently held for the given currency
func (r *MemReserve) Balance(currency common.CurrencyId) int64 {
	return r.pool[currency]
}

// Holding returns the total amount transferred out to the given recipient
func (r *MemReserve) Holding(
	participant common.ParticipantId,
	currency common.CurrencyId,
) int64 {
	return r.holdings[holdingKey{participant: participant, currency: currency}]
}

// Transfer moves amount of currency from the pool to the recipient. It fails
// with ErrInsufficientReserve when the pool balance cannot cover the amount
func (r *MemReserve) Transfer(
	currency common.CurrencyId,
	to common.ParticipantId,
	amount int64,
) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if r.pool[currency] < amount {
		return fmt.Errorf(
			"%w: %d requested, %d available",
			ErrInsufficientReserve,
			amount,
			r.pool[currency],
		)
	}
	r.pool[currency] -= amount
	r.holdings[holdingKey{participant: to, currency: currency}] += amount
	return nil
}
