// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsOutOfHeapAddress(t *testing.T) {
	a := newTestAllocator()

	_, err := a.Alloc(32, FirstFit)
	require.NoError(t, err)

	_, err = a.validate(a.heapEnd + 4096)
	require.Error(t, err)
	kind, _ := AsKind(err)
	assert.Equal(t, KindOutOfHeap, kind)
}

func TestValidateDetectsCorruptMagic(t *testing.T) {
	a := newTestAllocator()

	p, err := a.Alloc(32, FirstFit)
	require.NoError(t, err)
	base := blockOf(uintptr(p), a.headerSize)

	headerAt(base).magic ^= 0xFFFFFFFF

	_, err = a.validate(base)
	require.Error(t, err)
	kind, _ := AsKind(err)
	assert.Equal(t, KindCorruptMagic, kind)
}

func TestValidateDetectsCorruptHeadCanary(t *testing.T) {
	a := newTestAllocator()

	p, err := a.Alloc(32, FirstFit)
	require.NoError(t, err)
	base := blockOf(uintptr(p), a.headerSize)

	headerAt(base).headCanary ^= 0xFFFFFFFF

	_, err = a.validate(base)
	require.Error(t, err)
	kind, _ := AsKind(err)
	assert.Equal(t, KindCorruptHeadCanary, kind)
}

func TestValidateDetectsCorruptTailCanary(t *testing.T) {
	a := newTestAllocator()

	p, err := a.Alloc(32, FirstFit)
	require.NoError(t, err)
	base := blockOf(uintptr(p), a.headerSize)
	h := headerAt(base)

	*tailCanaryPtr(base, h.size) ^= 0xFFFFFFFF

	_, err = a.validate(base)
	require.Error(t, err)
	kind, _ := AsKind(err)
	assert.Equal(t, KindCorruptTailCanary, kind)
}

// TestValidateDetectsCorruptTailCanaryFromBadSize exercises a size that has
// both overflowed past heapEnd and, as a side effect, moved the trailing
// canary read onto non-canary bytes. Check 4 (tail canary) fires before
// check 5 (size/heapEnd bound), so this must surface as a tail-canary
// failure, not a size-overflow one.
func TestValidateDetectsCorruptTailCanaryFromBadSize(t *testing.T) {
	a := newTestAllocator()

	p, err := a.Alloc(32, FirstFit)
	require.NoError(t, err)
	base := blockOf(uintptr(p), a.headerSize)

	headerAt(base).size = (a.heapEnd - base) + 1

	_, err = a.validate(base)
	require.Error(t, err)
	kind, _ := AsKind(err)
	assert.Equal(t, KindCorruptTailCanary, kind)
}

// TestValidateDetectsSizeOverflow isolates check 5 by forging a valid tail
// canary at the bad size's (wrong) slot, so the only remaining failure is
// the size/heapEnd bound itself.
func TestValidateDetectsSizeOverflow(t *testing.T) {
	a := newTestAllocator()

	p, err := a.Alloc(32, FirstFit)
	require.NoError(t, err)
	base := blockOf(uintptr(p), a.headerSize)

	badSize := (a.heapEnd - base) + 1
	headerAt(base).size = badSize
	*tailCanaryPtr(base, badSize) = a.cfg.TailCanaryValue

	_, err = a.validate(base)
	require.Error(t, err)
	kind, _ := AsKind(err)
	assert.Equal(t, KindSizeOverflow, kind)
}

func TestArmCanariesRoundTrip(t *testing.T) {
	a := newTestAllocator()

	p, err := a.Alloc(64, FirstFit)
	require.NoError(t, err)
	base := blockOf(uintptr(p), a.headerSize)

	h, err := a.validate(base)
	require.NoError(t, err)
	assert.Equal(t, a.cfg.MagicValue, h.magic)
	assert.Equal(t, a.cfg.HeadCanaryValue, h.headCanary)
	assert.Equal(t, a.cfg.TailCanaryValue, *tailCanaryPtr(base, h.size))
}

func TestHeaderSizeRespectsAlignment(t *testing.T) {
	for _, align := range []int{1, 2, 4, 8, 16} {
		hs := headerSizeFor(align)
		assert.Zero(t, hs%align, "headerSizeFor(%d) must be a multiple of alignment", align)
		assert.GreaterOrEqual(t, hs, 0)
	}
}
