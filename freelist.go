// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import "github.com/cznic/mathutil"

// binOf maps a block's total size to a free-list bin index: ceil(size /
// bytesPerClass), clamped to [0, numClasses-1]. The last bin is an
// overflow catch-all for anything larger than the bin table otherwise
// covers.
func (a *Allocator) binOf(size uintptr) int {
	bin := (int(size) + a.cfg.BytesPerClass - 1) / a.cfg.BytesPerClass
	if bin >= a.cfg.NumClasses {
		return a.cfg.NumClasses - 1
	}
	if bin < 0 {
		return 0
	}
	return bin
}

// classMagnitude reports the bit length of size, a coarse log2 magnitude.
// Nothing in the package calls it; placement uses binOf.
func classMagnitude(size uintptr) int {
	return mathutil.BitLen(int(size))
}

// freeInsert prepends block to the bin matching its size. O(1).
func (a *Allocator) freeInsert(addr uintptr) {
	h := headerAt(addr)
	bin := a.binOf(h.size)
	h.setFree(true)

	arena := a.arena()
	head := arena.bins[bin]
	h.freePrev = 0
	h.freeNext = head
	if head != 0 {
		headerAt(head).freePrev = addr
	}
	arena.bins[bin] = addr
}

// freeRemove unlinks block from whichever bin currently holds it. O(1).
func (a *Allocator) freeRemove(addr uintptr) {
	h := headerAt(addr)
	bin := a.binOf(h.size)

	arena := a.arena()
	if h.freePrev != 0 {
		headerAt(h.freePrev).freeNext = h.freeNext
	} else {
		arena.bins[bin] = h.freeNext
	}
	if h.freeNext != 0 {
		headerAt(h.freeNext).freePrev = h.freePrev
	}

	h.freePrev = 0
	h.freeNext = 0
}
