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

// Package gosettle implements a nested-lock accounting engine for shared
// pool settlement.
//
// Participants open re-entrant lock sessions against a Manager, perform
// provisional balance adjustments through the Settle and Take primitives,
// and must drive every adjustment back to zero before the outermost session
// closes. The call model is single-threaded and strictly call-stack
// structured: a callback runs to completion (or recurses into further
// Acquire calls) before control returns to its caller.
//
// This package is the main entry point into this library. The other packages
// can be used outside of this one, but it's not a primary design goal.
package gosettle

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/quayside-io/gosettle/common"
	"github.com/quayside-io/gosettle/ledger"
	"github.com/quayside-io/gosettle/lockstack"
	"github.com/quayside-io/gosettle/reserve"
)

// LockCallback is the capability invoked exactly once per Acquire call. The
// callback runs with full visibility of the current ledger and lock state
// and may re-enter Acquire on the same Manager
type LockCallback interface {
	LockAcquired(payload []byte) ([]byte, error)
}

// LockCallbackFunc is an adapter to allow plain functions as LockCallbacks
type LockCallbackFunc func(payload []byte) ([]byte, error)

func (f LockCallbackFunc) LockAcquired(payload []byte) ([]byte, error) {
	return f(payload)
}

// The Manager type orchestrates lock acquisition, nested re-entry, and
// release over one logical session context. It owns the lock history, the
// delta ledger, and the per-currency accounted reserve balances. Managers
// are independent of each other; multiple sessions can run side by side on
// separate Manager instances
type Manager struct {
	logger    *slog.Logger
	stack     *lockstack.Stack
	ledger    *ledger.Ledger
	reserve   reserve.Reserve
	accounted map[common.CurrencyId]int64
}

// NewManager returns a new Manager object with the specified options
func NewManager(options ...ManagerOptionFunc) *Manager {
	m := &Manager{
		stack:     lockstack.New(),
		ledger:    ledger.New(),
		accounted: map[common.CurrencyId]int64{},
	}
	// Apply provided options functions
	for _, option := range options {
		option(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.reserve == nil {
		m.reserve = reserve.NewMemReserve()
	}
	return m
}

// Acquire opens a lock session for the given owner and invokes the callback
// exactly once with the provided payload. Callbacks may re-enter Acquire to
// open nested sessions. When the outermost session closes, every
// (participant, currency) delta must be zero or the call fails with
// ErrUnsettledBalance. Any failure unwinds the full call chain and discards
// all effects of the session
func (m *Manager) Acquire(
	owner common.ParticipantId,
	callback LockCallback,
	payload []byte,
) ([]byte, error) {
	if callback == nil {
		return nil, errors.New("nil lock callback")
	}
	outermost := m.stack.Depth() == 0
	var ledgerSnap ledger.Snapshot
	var accountedSnap map[common.CurrencyId]int64
	var mark int
	if outermost {
		// Capture the pre-session state so a failed session can be fully
		// discarded
		ledgerSnap = m.ledger.Snapshot()
		accountedSnap = maps.Clone(m.accounted)
		mark = m.stack.Mark()
	}
	index := m.stack.Push(owner)
	m.logger.Debug(
		"lock acquired",
		"component", "gosettle",
		"owner", owner.String(),
		"index", index,
		"depth", m.stack.Depth(),
	)
	result, err := callback.LockAcquired(payload)
	if relErr := m.stack.Release(index); relErr != nil {
		// Unreachable with correct bookkeeping, but asserted rather than
		// ignored
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrInvalidNesting, relErr)
		}
	} else if err == nil && m.stack.Depth() == 0 {
		if nonzero := m.ledger.NonzeroCount(); nonzero != 0 {
			err = fmt.Errorf(
				"%w: %d unsettled currency deltas",
				ErrUnsettledBalance,
				nonzero,
			)
		}
	}
	if err != nil {
		if outermost {
			m.ledger.Restore(ledgerSnap)
			m.accounted = accountedSnap
			if discardErr := m.stack.Discard(mark); discardErr != nil {
				m.logger.Error(
					"failed to discard lock records",
					"component", "gosettle",
					"error", discardErr,
				)
			}
			m.logger.Warn(
				"session failed, effects discarded",
				"component", "gosettle",
				"owner", owner.String(),
				"error", err,
			)
		}
		return nil, err
	}
	m.logger.Debug(
		"lock released",
		"component", "gosettle",
		"index", index,
		"depth", m.stack.Depth(),
	)
	return result, nil
}

// Settle recognizes value already paid into the reserve as a credit against
// the active lock owner's delta for the given currency. The recognized
// amount is the difference between the live reserve balance and the balance
// the Manager has already accounted for. Returns the recognized amount
func (m *Manager) Settle(currency common.CurrencyId) (int64, error) {
	rec, err := m.activeRecord()
	if err != nil {
		return 0, fmt.Errorf("settle: %w", err)
	}
	balance := m.reserve.Balance(currency)
	paid := balance - m.accounted[currency]
	if paid != 0 {
		m.accounted[currency] = balance
		m.ledger.ApplyDelta(rec.Owner, currency, -paid)
	}
	m.logger.Debug(
		"settle",
		"component", "gosettle",
		"owner", rec.Owner.String(),
		"currency", currency.String(),
		"paid", paid,
	)
	return paid, nil
}

// Sync records the live reserve balance for the given currency as fully
// accounted without any ledger effect. It is used after funding the reserve
// outside a session, so that a later Settle only recognizes payments made
// after the sync. Returns the recorded balance
func (m *Manager) Sync(currency common.CurrencyId) int64 {
	balance := m.reserve.Balance(currency)
	m.accounted[currency] = balance
	return balance
}

// Take transfers amount of currency from the reserve to the recipient and
// charges it against the active lock owner's delta. It fails when the
// reserve cannot satisfy the transfer
func (m *Manager) Take(
	currency common.CurrencyId,
	recipient common.ParticipantId,
	amount int64,
) error {
	rec, err := m.activeRecord()
	if err != nil {
		return fmt.Errorf("take: %w", err)
	}
	if err := m.reserve.Transfer(currency, recipient, amount); err != nil {
		return fmt.Errorf("take: %w", err)
	}
	m.accounted[currency] -= amount
	m.ledger.ApplyDelta(rec.Owner, currency, amount)
	m.logger.Debug(
		"take",
		"component", "gosettle",
		"owner", rec.Owner.String(),
		"currency", currency.String(),
		"recipient", recipient.String(),
		"amount", amount,
	)
	return nil
}

// LocksLength returns the total number of Acquire calls recorded so far,
// including closed ones
func (m *Manager) LocksLength() int {
	return m.stack.Len()
}

// LockIndex returns the index of the currently active lock record. It fails
// with ErrNoActiveLock when no lock is open
func (m *Manager) LockIndex() (int, error) {
	index, ok := m.stack.Current()
	if !ok {
		return 0, ErrNoActiveLock
	}
	return index, nil
}

// Locks returns the lock record at the given index from the full history
func (m *Manager) Locks(index int) (lockstack.Record, error) {
	return m.stack.RecordAt(index)
}

// CurrencyDelta returns the signed outstanding balance for the given
// participant and currency
func (m *Manager) CurrencyDelta(
	participant common.ParticipantId,
	currency common.CurrencyId,
) int64 {
	return m.ledger.Delta(participant, currency)
}

// NonzeroDeltaCount returns the number of (participant, currency) pairs with
// a non-zero delta
func (m *Manager) NonzeroDeltaCount() int {
	return m.ledger.NonzeroCount()
}

// AuditDigest returns the Blake2b-256 hash of the CBOR-encoded lock history
func (m *Manager) AuditDigest() (common.Digest, error) {
	return m.stack.Digest()
}

// activeRecord returns the record owning the currently active lock
func (m *Manager) activeRecord() (lockstack.Record, error) {
	index, ok := m.stack.Current()
	if !ok {
		return lockstack.Record{}, ErrNoActiveLock
	}
	rec, err := m.stack.RecordAt(index)
	if err != nil {
		return lockstack.Record{}, fmt.Errorf("%w: %s", ErrInvalidNesting, err)
	}
	return rec, nil
}
