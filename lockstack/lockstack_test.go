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

package lockstack_test

import (
	"testing"

	"github.com/quayside-io/gosettle/common"
	"github.com/quayside-io/gosettle/lockstack"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testOwnerA = common.HashParticipantId([]byte("owner-a"))
	testOwnerB = common.HashParticipantId([]byte("owner-b"))
	testOwnerC = common.HashParticipantId([]byte("owner-c"))
)

func TestEmptyStack(t *testing.T) {
	s := lockstack.New()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Depth())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestPushRelease(t *testing.T) {
	s := lockstack.New()
	idx := s.Push(testOwnerA)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, s.Depth())
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, idx, cur)
	err := s.Release(idx)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Depth())
	_, ok = s.Current()
	assert.False(t, ok)
	// History survives the release
	assert.Equal(t, 1, s.Len())
	rec, err := s.RecordAt(0)
	require.NoError(t, err)
	assert.Equal(t, testOwnerA, rec.Owner)
	assert.Equal(t, 0, rec.ParentIndex)
}

func TestNestedChain(t *testing.T) {
	s := lockstack.New()
	idx0 := s.Push(testOwnerA)
	idx1 := s.Push(testOwnerA)
	idx2 := s.Push(testOwnerA)
	assert.Equal(t, []int{0, 1, 2}, []int{idx0, idx1, idx2})
	assert.Equal(t, 3, s.Depth())
	// Each record's parent is the previous depth's index
	for i := 0; i < 3; i++ {
		rec, err := s.RecordAt(i)
		require.NoError(t, err)
		expectedParent := 0
		if i > 0 {
			expectedParent = i - 1
		}
		assert.Equal(t, expectedParent, rec.ParentIndex, "record %d", i)
	}
	// Releases restore the cursor one level at a time
	require.NoError(t, s.Release(idx2))
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, idx1, cur)
	require.NoError(t, s.Release(idx1))
	cur, ok = s.Current()
	require.True(t, ok)
	assert.Equal(t, idx0, cur)
	require.NoError(t, s.Release(idx0))
	_, ok = s.Current()
	assert.False(t, ok)
}

// Sibling records opened under the same ancestor must both point at that
// ancestor, not at each other
func TestSiblingParents(t *testing.T) {
	s := lockstack.New()
	idx0 := s.Push(testOwnerA)
	idx1 := s.Push(testOwnerB)
	require.NoError(t, s.Release(idx1))
	idx2 := s.Push(testOwnerC)
	rec1, err := s.RecordAt(idx1)
	require.NoError(t, err)
	rec2, err := s.RecordAt(idx2)
	require.NoError(t, err)
	assert.Equal(t, idx0, rec1.ParentIndex)
	assert.Equal(t, idx0, rec2.ParentIndex)
}

func TestReleaseErrors(t *testing.T) {
	s := lockstack.New()
	err := s.Release(0)
	assert.ErrorIs(t, err, lockstack.ErrNotCurrent)
	s.Push(testOwnerA)
	idx1 := s.Push(testOwnerA)
	err = s.Release(0)
	assert.ErrorIs(t, err, lockstack.ErrNotCurrent)
	// Depth is untouched by the failed release
	assert.Equal(t, 2, s.Depth())
	require.NoError(t, s.Release(idx1))
}

func TestRecordAtOutOfRange(t *testing.T) {
	s := lockstack.New()
	_, err := s.RecordAt(0)
	assert.ErrorIs(t, err, lockstack.ErrRecordOutOfRange)
	_, err = s.RecordAt(-1)
	assert.ErrorIs(t, err, lockstack.ErrRecordOutOfRange)
}

func TestDiscard(t *testing.T) {
	s := lockstack.New()
	idx0 := s.Push(testOwnerA)
	require.NoError(t, s.Release(idx0))
	mark := s.Mark()
	assert.Equal(t, 1, mark)
	s.Push(testOwnerB)
	s.Push(testOwnerB)
	require.NoError(t, s.Discard(mark))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.Depth())
	_, ok := s.Current()
	assert.False(t, ok)
	err := s.Discard(5)
	assert.ErrorIs(t, err, lockstack.ErrRecordOutOfRange)
}

func TestRecordsCopy(t *testing.T) {
	s := lockstack.New()
	s.Push(testOwnerA)
	records := s.Records()
	require.Len(t, records, 1)
	records[0].ParentIndex = 99
	rec, err := s.RecordAt(0)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ParentIndex)
}

func TestMarshalCbor(t *testing.T) {
	s := lockstack.New()
	idx0 := s.Push(testOwnerA)
	s.Push(testOwnerB)
	cborData, err := s.MarshalCBOR()
	require.NoError(t, err)
	var decoded []lockstack.Record
	err = cbor.Unmarshal(cborData, &decoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, testOwnerA, decoded[0].Owner)
	assert.Equal(t, testOwnerB, decoded[1].Owner)
	assert.Equal(t, idx0, decoded[1].ParentIndex)
}

func TestDigestDeterministic(t *testing.T) {
	s1 := lockstack.New()
	s2 := lockstack.New()
	for _, s := range []*lockstack.Stack{s1, s2} {
		s.Push(testOwnerA)
		s.Push(testOwnerB)
	}
	d1, err := s1.Digest()
	require.NoError(t, err)
	d2, err := s2.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	// The digest changes when the history changes
	s2.Push(testOwnerC)
	d3, err := s2.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}
