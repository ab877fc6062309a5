// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLeavesNoRemainderWhenTooSmall(t *testing.T) {
	a := newTestAllocator()

	p, err := a.Alloc(8, FirstFit)
	require.NoError(t, err)
	base := blockOf(uintptr(p), a.headerSize)
	h := headerAt(base)

	assert.False(t, h.isFree())
	assert.Zero(t, h.freeNext)
	assert.Zero(t, h.freePrev)
}

func TestSplitProducesFreeRemainder(t *testing.T) {
	a := newTestAllocator()

	// One large request carves a block whose remainder, after a small
	// second allocation reuses its front, is still well above minBlockSize.
	// A trailing live block keeps big off the heap's tail, so freeing it
	// lists it instead of tail-shrinking the heap.
	big, err := a.Alloc(4096, FirstFit)
	require.NoError(t, err)
	tail, err := a.Alloc(64, FirstFit)
	require.NoError(t, err)
	require.NoError(t, a.Free(big))

	p, err := a.Alloc(64, FirstFit)
	require.NoError(t, err)
	base := blockOf(uintptr(p), a.headerSize)
	h := headerAt(base)

	assert.False(t, h.isFree())
	require.NotZero(t, h.physNext, "split should have produced a physical successor")

	remainder := headerAt(h.physNext)
	assert.True(t, remainder.isFree())

	_ = tail
}

// A trailing live block keeps p2 from being the heap's tail, so freeing it
// lists it instead of tail-shrinking the heap; freeing p1 afterwards then
// exercises merge's forward-coalescing path.
func TestMergeCoalescesForwardNeighbor(t *testing.T) {
	a := newTestAllocator()

	p1, err := a.Alloc(64, FirstFit)
	require.NoError(t, err)
	p2, err := a.Alloc(64, FirstFit)
	require.NoError(t, err)
	spacer, err := a.Alloc(64, FirstFit)
	require.NoError(t, err)

	b1 := blockOf(uintptr(p1), a.headerSize)
	b2 := blockOf(uintptr(p2), a.headerSize)
	combinedSize := headerAt(b1).size + headerAt(b2).size

	require.NoError(t, a.Free(p2))
	require.NoError(t, a.Free(p1))

	h1, err := a.validate(b1)
	require.NoError(t, err)
	assert.True(t, h1.isFree())
	assert.Equal(t, combinedSize, h1.size, "adjacent free blocks must coalesce into one")

	_, err = a.validate(b2)
	require.Error(t, err, "the absorbed header must no longer validate")

	_ = spacer
}

func TestMergeCoalescesBackwardNeighbor(t *testing.T) {
	a := newTestAllocator()

	p1, err := a.Alloc(64, FirstFit)
	require.NoError(t, err)
	p2, err := a.Alloc(64, FirstFit)
	require.NoError(t, err)
	spacer, err := a.Alloc(64, FirstFit)
	require.NoError(t, err)

	b1 := blockOf(uintptr(p1), a.headerSize)

	require.NoError(t, a.Free(p1))
	require.NoError(t, a.Free(p2))

	h1, err := a.validate(b1)
	require.NoError(t, err)
	assert.True(t, h1.isFree())

	_ = spacer
}

// p2 is the heap's tail, so freeing it tail-shrinks the heap and moves the
// arena's top back to p1; freeing p1 afterwards does not move it again.
func TestTailShrinkLeavesPredecessorAsArenaTop(t *testing.T) {
	a := newTestAllocator()

	p1, err := a.Alloc(64, FirstFit)
	require.NoError(t, err)
	p2, err := a.Alloc(64, FirstFit)
	require.NoError(t, err)

	b1 := blockOf(uintptr(p1), a.headerSize)

	require.NoError(t, a.Free(p2))
	require.NoError(t, a.Free(p1))

	assert.Equal(t, b1, a.arena().top, "tail-shrinking p2 should leave its predecessor p1 as top")
}
