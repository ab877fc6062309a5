// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"fmt"
	"sync"
	"unsafe"
)

func sliceAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// fakeBreakSource backs BreakSource with a plain Go byte slice instead of
// a real OS reservation, so tests don't depend on mmap/VirtualAlloc
// availability in the sandbox. Go's GC does not relocate live heap
// objects, so the slice's address is stable for as long as the fake is
// referenced.
type fakeBreakSource struct {
	mu      sync.Mutex
	region  []byte
	base    uintptr
	current uintptr
	limit   uintptr
}

func newFakeBreakSource(capacity int) *fakeBreakSource {
	region := make([]byte, capacity)
	base := sliceAddr(region)
	return &fakeBreakSource{region: region, base: base, current: base, limit: base + uintptr(capacity)}
}

func (f *fakeBreakSource) Base() uintptr { return f.base }

func (f *fakeBreakSource) Current() uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeBreakSource) Break(delta int) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.current
	next := prev + uintptr(delta)
	if delta > 0 && next > f.limit {
		return 0, fmt.Errorf("fake break: capacity exhausted")
	}
	if delta < 0 && next < f.base {
		return 0, fmt.Errorf("fake break: retracted past base")
	}
	f.current = next
	return prev, nil
}

// fakePageMapper backs PageMapper with individually allocated Go byte
// slices, one per mapping, tracked so Unmap can find them again.
type fakePageMapper struct {
	mu       sync.Mutex
	pageSize int
	regions  map[uintptr][]byte
}

func newFakePageMapper(pageSize int) *fakePageMapper {
	return &fakePageMapper{pageSize: pageSize, regions: make(map[uintptr][]byte)}
}

func (f *fakePageMapper) Map(length int) (uintptr, error) {
	b := make([]byte, length)
	addr := sliceAddr(b)

	f.mu.Lock()
	f.regions[addr] = b
	f.mu.Unlock()

	return addr, nil
}

func (f *fakePageMapper) Unmap(addr uintptr, length int) error {
	_ = length
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.regions[addr]; !ok {
		return fmt.Errorf("fake unmap: unknown address")
	}
	delete(f.regions, addr)
	return nil
}

func (f *fakePageMapper) PageSize() int { return f.pageSize }

func newTestAllocator(opts ...Option) *Allocator {
	base := append([]Option{
		WithBreakSource(newFakeBreakSource(64 << 20)),
		WithPageMapper(newFakePageMapper(4096)),
	}, opts...)

	a, err := New(base...)
	if err != nil {
		panic(err)
	}
	return a
}
