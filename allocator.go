// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"sync"

	"github.com/RafaelVVolkmer/libmemalloc-sub000/internal/memstat"
)

// debugOrigin records where a live block was requested from: source file,
// line, and an optional caller-supplied tag. Kept out-of-band (keyed by
// block base address) rather than embedded in the raw header, because the
// header lives in memory the Go GC does not scan — a Go string stored
// there would have no root keeping its backing array alive.
type debugOrigin struct {
	file string
	line int
	tag  string
}

// Allocator is the allocator singleton described in §3: heap bounds, the
// free-list bins, the mapped-region list, the break lease bookkeeping and
// the collector control block. The zero value is not ready for use — call
// New. The allocation, free and introspection methods each take the
// allocator's mutex for their entire duration (§5); Close and the
// collector-control methods take it only around the steps that touch
// allocator state. There is no per-bin locking and no lock-free fast path.
type Allocator struct {
	mu sync.Mutex

	cfg          Config
	alignment    int
	headerSize   int
	minBlockSize int

	heapBase uintptr
	heapEnd  uintptr

	// lastBrkStart/lastBrkEnd bound the most recent heap-break lease;
	// tail shrink only ever returns exactly this span.
	lastBrkStart uintptr
	lastBrkEnd   uintptr

	lastAllocated uintptr // for next-fit continuation; 0 = none

	arenas []*Arena // core exclusively uses arenas[0]

	mapped *mappedRegion // singly linked list of large-block mappings

	origins map[uintptr]debugOrigin

	stats memstat.Counters

	breaks BreakSource
	pages  PageMapper

	gc *collector
}

// New constructs a ready-to-use Allocator. It reserves no heap until the
// first allocation forces growth.
func New(opts ...Option) (*Allocator, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if !isValidAlignment(cfg.Alignment) {
		return nil, newErr("New", KindInval, "alignment must be one of {1,2,4,8,16}")
	}
	if cfg.NumClasses <= 0 {
		return nil, newErr("New", KindInval, "NumClasses must be positive")
	}
	if cfg.BytesPerClass <= 0 {
		return nil, newErr("New", KindInval, "BytesPerClass must be positive")
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger{}
	}
	if cfg.MagicValue == 0 {
		cfg.MagicValue = magicValue
	}
	if cfg.HeadCanaryValue == 0 {
		cfg.HeadCanaryValue = headCanaryValue
	}
	if cfg.TailCanaryValue == 0 {
		cfg.TailCanaryValue = tailCanaryValue
	}
	if cfg.GCIntervalMS <= 0 {
		cfg.GCIntervalMS = defaultGCIntervalMS
	}

	a := &Allocator{
		cfg:          cfg,
		alignment:    cfg.Alignment,
		headerSize:   headerSizeFor(cfg.Alignment),
		arenas:       []*Arena{newArena(cfg.NumClasses)},
		origins:      make(map[uintptr]debugOrigin),
		breaks:       cfg.BreakSource,
		pages:        cfg.PageMapper,
	}
	a.minBlockSize = minBlockSizeFor(cfg.Alignment)

	if a.breaks == nil {
		bs, err := newOSBreakSource()
		if err != nil {
			return nil, newErr("New", KindNoMem, err.Error())
		}
		a.breaks = bs
	}
	if a.pages == nil {
		a.pages = osPageMapper{}
	}

	base := a.breaks.Base()
	a.heapBase = base
	a.heapEnd = base
	a.lastBrkStart = base
	a.lastBrkEnd = base

	a.gc = newCollector(a)

	return a, nil
}

func (a *Allocator) arena() *Arena { return a.arenas[0] }

// Close releases OS resources: every mapped region is unmapped and the
// collector task, if running, is stopped. It is not necessary to Close an
// Allocator when exiting a process.
func (a *Allocator) Close() error {
	// stopLocked joins the background collector task, which may itself be
	// mid-cycle and blocked acquiring a.mu; it must run before a.mu is
	// taken here, or the join and this call deadlock on each other.
	a.gc.stopLocked()

	a.mu.Lock()
	defer a.mu.Unlock()

	var first error
	for r := a.mapped; r != nil; {
		next := r.next
		if err := a.pages.Unmap(r.base, r.length); err != nil && first == nil {
			first = err
		}
		r = next
	}
	a.mapped = nil
	return first
}

// Stats reports the allocator's introspection counters, descended from
// the teacher's private allocs/bytes/mmaps fields.
type Stats struct {
	Allocs       int
	Frees        int
	HeapBytes    int
	MappedBytes  int
	MMaps        int
	GCCycles     int
	GCReclaimed  int
	HeapLen      int // heapEnd - heapBase
	LargestClass int // not filled in by Stats; always zero
}

func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Allocs:      a.stats.Allocs,
		Frees:       a.stats.Frees,
		HeapBytes:   a.stats.HeapBytes,
		MappedBytes: a.stats.MappedBytes,
		MMaps:       a.stats.MMaps,
		GCCycles:    a.stats.GCCycles,
		GCReclaimed: a.stats.GCReclaimed,
		HeapLen:     int(a.heapEnd - a.heapBase),
	}
}

// UsableSize reports the usable payload capacity of a live block, which
// may exceed the size originally requested (the teacher's UsableSize,
// promoted to the public surface — see SPEC_FULL.md's recovered-features
// section).
func (a *Allocator) UsableSize(ptr uintptr) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	base := blockOf(ptr, a.headerSize)
	h, err := a.validateAny(base)
	if err != nil {
		return 0, err
	}
	return int(h.size) - a.headerSize - canarySize, nil
}

// LeakInfo describes a live, named allocation for Leaks.
type LeakInfo struct {
	Ptr  uintptr
	Size int
	File string
	Line int
	Tag  string
}

// Leaks lists every currently-live block that was created via AllocAt and
// still carries debug-origin information. It is a diagnostic aid, not a
// collector trigger.
func (a *Allocator) Leaks() []LeakInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]LeakInfo, 0, len(a.origins))
	for base, o := range a.origins {
		h := headerAt(base)
		if h.isFree() {
			continue
		}
		out = append(out, LeakInfo{
			Ptr:  a.payloadOf(base),
			Size: int(h.size) - a.headerSize - canarySize,
			File: o.file,
			Line: o.line,
			Tag:  o.tag,
		})
	}
	return out
}
