// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

// BreakSource is the out-of-scope "kernel-break primitive" collaborator
// (§1, §6): it moves the process's (simulated) data-segment end by a
// signed byte offset and reports the previous end. Break(0) is the query
// idiom. The core never talks to the OS directly — only through this
// interface — which is what keeps the primitive a true external
// collaborator rather than something the allocator reimplements.
type BreakSource interface {
	// Base returns the fixed starting address of the break-managed
	// region; called once, at construction.
	Base() uintptr
	// Break advances (or, if delta is negative, retracts) the break by
	// delta bytes and returns the previous end address. Memory granted
	// from address space never touched before is zero-filled by the OS;
	// re-granting a range that was previously retracted and then grown
	// again returns whatever that range last held, not a fresh zero page.
	Break(delta int) (prevEnd uintptr, err error)
	// Current reports the break's present end address without moving
	// it — the Break(0) query idiom, surfaced as its own method since Go
	// doesn't need the overloaded zero-as-query trick.
	Current() uintptr
}

// grow extends the heap by delta bytes via the break primitive, advances
// heapEnd and records the break lease, and returns the address at which
// the new space begins. The new region is zero only the first time that
// address range is ever leased (BreakSource.Break); Alloc never promises
// zeroed payload regardless, and Calloc zeroes explicitly via Memset.
func (a *Allocator) grow(delta int) (uintptr, error) {
	prevEnd, err := a.breaks.Break(delta)
	if err != nil {
		return 0, newErr("grow", KindNoMem, err.Error())
	}

	a.lastBrkStart = prevEnd
	a.lastBrkEnd = prevEnd + uintptr(delta)
	a.heapEnd = a.lastBrkEnd
	a.stats.OnHeapGrow(delta)

	return prevEnd, nil
}

// appendTailBlock constructs a free block of size delta at addr
// (immediately after whatever grow() just leased) and links it onto the
// physical chain as the new top chunk.
func (a *Allocator) appendTailBlock(addr uintptr, delta int) {
	oldTop := a.arena().top

	a.armCanaries(addr, uintptr(delta))
	h := headerAt(addr)
	h.physPrev = oldTop
	h.physNext = 0
	h.freePrev, h.freeNext = 0, 0

	if oldTop != 0 {
		headerAt(oldTop).physNext = addr
	}
	a.arena().top = addr

	a.freeInsert(addr)
}

// canTailShrink reports whether the free-but-not-yet-listed block at addr
// qualifies for §4.5's tail shrink: all three of (a) its end equals
// heapEnd, (b) it fully spans [lastBrkStart, lastBrkEnd), and (c) the
// break primitive still agrees the current break is heapEnd, must hold
// simultaneously (§9 flags a historical revision that checked only two —
// this implementation adopts all three per that note).
func (a *Allocator) canTailShrink(addr uintptr) bool {
	h := headerAt(addr)
	blockEnd := addr + h.size

	if blockEnd != a.heapEnd {
		return false
	}
	if addr > a.lastBrkStart || blockEnd < a.lastBrkEnd {
		return false
	}
	return a.breaks.Current() == a.heapEnd
}

// doTailShrink retracts the break by the block's size, handing it back to
// the OS. addr must not be registered in any free list — the caller
// decides whether to fall back to merge-and-insert on failure, which this
// method treats as a warning, not an error, and never touches the free
// lists.
func (a *Allocator) doTailShrink(addr uintptr) bool {
	h := headerAt(addr)

	if _, err := a.breaks.Break(-int(h.size)); err != nil {
		a.cfg.Logger.Logf(LevelWarn, "tail shrink failed: %v", err)
		return false
	}

	a.heapEnd -= h.size
	a.stats.OnHeapShrink(int(h.size))

	if h.physPrev != 0 {
		headerAt(h.physPrev).physNext = 0
	}
	if a.arena().top == addr {
		a.arena().top = h.physPrev
	}

	if a.lastAllocated == addr {
		a.lastAllocated = a.firstUserBlock()
	}

	return true
}

// firstUserBlock returns the first block on the physical chain, or 0 if
// the heap is empty. It is the next-fit wrap target (§4.3): wrapping past
// heapEnd always lands here, never on internal arena metadata, since the
// core keeps arena state in Go-side structures rather than inside the
// managed heap region (see §9's flagged open question, resolved in
// DESIGN.md).
func (a *Allocator) firstUserBlock() uintptr {
	if a.heapBase == a.heapEnd {
		return 0
	}
	return a.heapBase
}
