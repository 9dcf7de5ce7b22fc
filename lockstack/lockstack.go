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

// Package lockstack implements the append-only lock record history for the
// settlement engine.
//
// Each acquisition appends an immutable record naming its owner and the
// index of the record that was active when it was opened. Records are never
// mutated or compacted, so nesting relationships can be audited after the
// sessions that created them have closed. The only live state besides the
// history is the cursor pointing at the most recently opened, still-open
// record.
package lockstack

import (
	"errors"
	"fmt"

	"github.com/quayside-io/gosettle/common"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrRecordOutOfRange is returned when accessing a record index outside the history
	ErrRecordOutOfRange = errors.New("lockstack: record index out of range")
	// ErrNotCurrent is returned when releasing a record that is not the active cursor
	ErrNotCurrent = errors.New("lockstack: record is not the active cursor")
)

// Record is an immutable entry in the lock history
type Record struct {
	// Tells the CBOR decoder to convert to/from a struct and a CBOR array
	_           struct{} `cbor:",toarray"`
	Owner       common.ParticipantId
	ParentIndex int
}

func (r Record) String() string {
	return fmt.Sprintf("owner %s, parent %d", r.Owner.String(), r.ParentIndex)
}

// Stack is the append-only lock history plus the active cursor
type Stack struct {
	records []Record
	cur     int
	depth   int
}

// New returns an empty Stack with no active cursor
func New() *Stack {
	return &Stack{
		cur: -1,
	}
}

// Push appends a record for the given owner, capturing the current cursor as
// the new record's parent, and returns the new record's index. Records opened
// with no active cursor get parent index 0
func (s *Stack) Push(owner common.ParticipantId) int {
	parent := 0
	if s.depth > 0 {
		parent = s.cur
	}
	s.records = append(
		s.records,
		Record{
			Owner:       owner,
			ParentIndex: parent,
		},
	)
	s.cur = len(s.records) - 1
	s.depth++
	return s.cur
}

// Current returns the index of the most recently opened, still-open record.
// The second return value is false when no record is open
func (s *Stack) Current() (int, bool) {
	if s.depth == 0 {
		return 0, false
	}
	return s.cur, true
}

// Depth returns the number of currently open records
func (s *Stack) Depth() int {
	return s.depth
}

// Len returns the total number of records ever appended, including closed ones
func (s *Stack) Len() int {
	return len(s.records)
}

// RecordAt returns the record at the given index from the full history
func (s *Stack) RecordAt(index int) (Record, error) {
	if index < 0 || index >= len(s.records) {
		return Record{}, fmt.Errorf("%w: %d", ErrRecordOutOfRange, index)
	}
	return s.records[index], nil
}

// Release closes the record at the given index, which must be the active
// cursor, and restores the cursor to the record's parent. When the last open
// record is released the cursor becomes absent
func (s *Stack) Release(index int) error {
	if s.depth == 0 {
		return fmt.Errorf("%w: release with no open records", ErrNotCurrent)
	}
	if s.cur != index {
		return fmt.Errorf(
			"%w: release of %d while cursor is %d",
			ErrNotCurrent,
			index,
			s.cur,
		)
	}
	rec := s.records[index]
	s.depth--
	if s.depth == 0 {
		s.cur = -1
	} else {
		s.cur = rec.ParentIndex
	}
	return nil
}

// Mark returns the current history length for use with Discard
func (s *Stack) Mark() int {
	return len(s.records)
}

// Discard drops every record appended since the given mark and resets the
// cursor to absent. It is used to erase the records of a failed session
func (s *Stack) Discard(mark int) error {
	if mark < 0 || mark > len(s.records) {
		return fmt.Errorf("%w: %d", ErrRecordOutOfRange, mark)
	}
	s.records = s.records[:mark]
	s.cur = -1
	s.depth = 0
	return nil
}

// Records returns a copy of the full record history
func (s *Stack) Records() []Record {
	ret := make([]Record, len(s.records))
	copy(ret, s.records)
	return ret
}

// MarshalCBOR encodes the full record history as a CBOR array
func (s *Stack) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(s.records)
}

// Digest returns the Blake2b-256 hash of the CBOR-encoded record history
func (s *Stack) Digest() (common.Digest, error) {
	cborData, err := s.MarshalCBOR()
	if err != nil {
		return common.Digest{}, err
	}
	return common.HashDigest(cborData), nil
}
