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

// Package ledger implements the per-(participant, currency) delta ledger for
// the settlement engine.
//
// Each entry is a signed fixed-point amount with the convention that a
// positive delta means the participant owes the manager and a negative delta
// means the manager owes the participant. The ledger maintains a single
// counter of non-zero entries; the counter is adjusted on every mutation
// that crosses zero, so it always equals the number of (participant,
// currency) pairs with an outstanding balance.
package ledger

import (
	"fmt"

	"github.com/quayside-io/gosettle/common"

	"github.com/jinzhu/copier"
)

// Key identifies a single ledger entry
type Key struct {
	Participant common.ParticipantId
	Currency    common.CurrencyId
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Participant.String(), k.Currency.String())
}

// Ledger tracks signed balance deltas and the count of non-zero entries
type Ledger struct {
	deltas  map[Key]int64
	nonzero int
}

// New returns an empty Ledger
func New() *Ledger {
	return &Ledger{
		deltas: map[Key]int64{},
	}
}

// Delta returns the current signed balance for the given participant and
// currency, defaulting to zero
func (l *Ledger) Delta(
	participant common.ParticipantId,
	currency common.CurrencyId,
) int64 {
	return l.deltas[Key{Participant: participant, Currency: currency}]
}

// ApplyDelta adds amount to the stored balance for the given participant and
// currency. The non-zero entry counter is adjusted whenever the stored value
// transitions between zero and non-zero
func (l *Ledger) ApplyDelta(
	participant common.ParticipantId,
	currency common.CurrencyId,
	amount int64,
) {
	key := Key{Participant: participant, Currency: currency}
	oldValue := l.deltas[key]
	newValue := oldValue + amount
	if oldValue == 0 && newValue != 0 {
		l.nonzero++
	} else if oldValue != 0 && newValue == 0 {
		l.nonzero--
	}
	if newValue == 0 {
		// Entries driven back to zero are equivalent to absent entries
		delete(l.deltas, key)
	} else {
		l.deltas[key] = newValue
	}
}

// NonzeroCount returns the number of (participant, currency) entries with a
// non-zero balance
func (l *Ledger) NonzeroCount() int {
	return l.nonzero
}

// Snapshot is a detached copy of the full ledger state
type Snapshot struct {
	Deltas  map[Key]int64
	Nonzero int
}

// Snapshot returns a deep copy of the current ledger state. The returned
// snapshot is independent of any later mutations
func (l *Ledger) Snapshot() Snapshot {
	snap := Snapshot{
		Deltas:  map[Key]int64{},
		Nonzero: l.nonzero,
	}
	if err := copier.CopyWithOption(
		&snap.Deltas,
		&l.deltas,
		copier.Option{DeepCopy: true},
	); err != nil {
		panic(fmt.Sprintf("unexpected error copying ledger deltas: %s", err))
	}
	return snap
}

// Restore replaces the ledger state with the contents of the provided
// snapshot. The snapshot remains valid after the call
func (l *Ledger) Restore(snap Snapshot) {
	newDeltas := map[Key]int64{}
	if err := copier.CopyWithOption(
		&newDeltas,
		&snap.Deltas,
		copier.Option{DeepCopy: true},
	); err != nil {
		panic(fmt.Sprintf("unexpected error copying ledger deltas: %s", err))
	}
	l.deltas = newDeltas
	l.nonzero = snap.Nonzero
}
