// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

// split carves req bytes off the front of the free block at addr. If the
// remainder would be smaller than minBlockSize, the whole block is handed
// out with no remainder (§4.4). Otherwise a new free block is constructed
// immediately after the allocated half, the physical chain is re-linked,
// and the new block is inserted into its free list. The caller must have
// already removed addr from its free list; split never touches free-list
// membership of addr itself, only of the spun-off remainder.
func (a *Allocator) split(addr uintptr, req uintptr) {
	h := headerAt(addr)
	total := h.size

	remainder := total - req
	if remainder < uintptr(a.minBlockSize) {
		h.setFree(false)
		h.freePrev, h.freeNext = 0, 0
		return
	}

	newAddr := addr + req
	oldNext := h.physNext

	h.size = req
	a.armCanaries(addr, req)
	h.setFree(false)
	h.freePrev, h.freeNext = 0, 0
	h.physNext = newAddr

	a.armCanaries(newAddr, remainder)
	nh := headerAt(newAddr)
	nh.setFree(true)
	nh.physPrev = addr
	nh.physNext = oldNext
	if oldNext != 0 {
		headerAt(oldNext).physPrev = newAddr
	}

	if a.arena().top == addr || a.arena().top == 0 {
		a.arena().top = newAddr
	}

	a.freeInsert(newAddr)
}

// merge coalesces the free block at addr with each physically adjacent
// free neighbor, in both directions, and returns the (possibly relocated)
// base address of the surviving block. merge never crosses heap bounds
// and never operates on mapped regions; addr must already be free and
// already removed from its free list (the caller re-inserts the
// survivor, exactly once, after merge returns).
func (a *Allocator) merge(addr uintptr) uintptr {
	h := headerAt(addr)

	// Forward neighbor: sits at addr + size.
	if fwd := addr + h.size; fwd < a.heapEnd {
		if fh, err := a.validate(fwd); err == nil && fh.isFree() {
			a.freeRemove(fwd)
			h.size += fh.size
			h.physNext = fh.physNext
			if fh.physNext != 0 {
				headerAt(fh.physNext).physPrev = addr
			}
			if a.arena().top == fwd {
				a.arena().top = addr
			}
			a.armCanaries(addr, h.size)
			fh.magic = 0 // defunct header: absorbed into addr
		}
	}

	// Backward neighbor: reached via the physical-chain back-pointer.
	if h.physPrev != 0 {
		if bh, err := a.validate(h.physPrev); err == nil && bh.isFree() {
			back := h.physPrev
			a.freeRemove(back)
			bh.size += h.size
			bh.physNext = h.physNext
			if h.physNext != 0 {
				headerAt(h.physNext).physPrev = back
			}
			if a.arena().top == addr {
				a.arena().top = back
			}
			a.armCanaries(back, bh.size)
			h.magic = 0 // defunct header: absorbed into back
			addr = back
			h = bh
		}
	}

	h.setFree(true)
	return addr
}
