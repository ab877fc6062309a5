// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

// Strategy selects a placement algorithm for Alloc/Calloc/Realloc.
type Strategy int

const (
	// FirstFit returns the first free block, from bin(size) upward,
	// whose size satisfies the request.
	FirstFit Strategy = iota
	// NextFit continues from the block returned by the previous
	// allocation, wrapping to the first user block at heap end.
	NextFit
	// BestFit returns the smallest free block, from bin(size) upward,
	// that satisfies the request; it stops at the first bin yielding any
	// candidate.
	BestFit
)

func (s Strategy) String() string {
	switch s {
	case FirstFit:
		return "first-fit"
	case NextFit:
		return "next-fit"
	case BestFit:
		return "best-fit"
	default:
		return "invalid"
	}
}

func validStrategy(s Strategy) bool {
	switch s {
	case FirstFit, NextFit, BestFit:
		return true
	default:
		return false
	}
}

// findFirstFit walks bins from bin(size) upward and returns the first
// block whose size satisfies the request and which validates.
func (a *Allocator) findFirstFit(size uintptr) uintptr {
	arena := a.arena()
	start := a.binOf(size)
	for bin := start; bin < len(arena.bins); bin++ {
		for addr := arena.bins[bin]; addr != 0; {
			h := headerAt(addr)
			next := h.freeNext
			if h.size >= size {
				if _, err := a.validate(addr); err == nil {
					return addr
				}
			}
			addr = next
		}
	}
	return 0
}

// findBestFit walks bins from bin(size) upward, tracking the
// minimum-size satisfying block within the first bin that yields any
// candidate at all (§4.3: "do not continue to larger bins" once a bin has
// produced a candidate).
func (a *Allocator) findBestFit(size uintptr) uintptr {
	arena := a.arena()
	start := a.binOf(size)
	for bin := start; bin < len(arena.bins); bin++ {
		var best uintptr
		var bestSize uintptr
		for addr := arena.bins[bin]; addr != 0; {
			h := headerAt(addr)
			next := h.freeNext
			if h.size >= size {
				if _, err := a.validate(addr); err == nil {
					if best == 0 || h.size < bestSize {
						best = addr
						bestSize = h.size
					}
				}
			}
			addr = next
		}
		if best != 0 {
			return best
		}
	}
	return 0
}

// findNextFit starts at lastAllocated and walks the physical chain
// forward, wrapping to the first user block at heap end. It falls back to
// first-fit when lastAllocated is zero, fails validation, or no longer
// refers to a block inside the current heap.
func (a *Allocator) findNextFit(size uintptr) uintptr {
	start := a.lastAllocated
	if start == 0 {
		return a.findFirstFit(size)
	}
	if _, err := a.validate(start); err != nil {
		return a.findFirstFit(size)
	}

	addr := start
	wrapped := false
	for {
		h := headerAt(addr)
		if h.isFree() && h.size >= size {
			if _, err := a.validate(addr); err == nil {
				return addr
			}
		}

		if h.physNext != 0 {
			addr = h.physNext
		} else {
			if wrapped {
				return 0
			}
			wrapped = true
			addr = a.firstUserBlock()
			if addr == 0 {
				return 0
			}
		}

		if addr == start {
			return 0
		}
	}
}

// findBlock dispatches to the requested strategy.
func (a *Allocator) findBlock(size uintptr, strategy Strategy) (uintptr, error) {
	if !validStrategy(strategy) {
		return 0, newErr("alloc", KindStrategyInvalid, strategy.String())
	}

	switch strategy {
	case FirstFit:
		return a.findFirstFit(size), nil
	case BestFit:
		return a.findBestFit(size), nil
	default:
		return a.findNextFit(size), nil
	}
}
