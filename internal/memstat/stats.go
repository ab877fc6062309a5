// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memstat holds the allocator's introspection counters, pulled
// out of the main package so the collector and the public API can both
// update them without reaching into Allocator internals. All updates
// happen under the allocator's mutex, so plain ints are sufficient —
// these are not meant for lock-free access.
package memstat

// Counters tracks allocation bookkeeping, descended from the teacher's
// unexported allocs/bytes/mmaps fields.
type Counters struct {
	Allocs     int // live allocations (heap + mapped)
	Frees      int // total frees serviced
	HeapBytes   int // bytes currently committed to the heap
	MappedBytes int // bytes currently held in large-block mappings
	MMaps       int // live large-block mappings
	GCCycles    int // completed mark-and-sweep cycles
	GCReclaimed int // blocks reclaimed by the collector, lifetime total
}

func (c *Counters) OnAlloc() { c.Allocs++ }

func (c *Counters) OnFree() {
	c.Allocs--
	c.Frees++
}

func (c *Counters) OnHeapGrow(delta int) { c.HeapBytes += delta }
func (c *Counters) OnHeapShrink(delta int) { c.HeapBytes -= delta }

func (c *Counters) OnMap(size int) {
	c.MMaps++
	c.MappedBytes += size
}

func (c *Counters) OnUnmap(size int) {
	c.MMaps--
	c.MappedBytes -= size
}

func (c *Counters) OnGCCycle(reclaimed int) {
	c.GCCycles++
	c.GCReclaimed += reclaimed
}
