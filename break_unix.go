// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin || dragonfly || freebsd || linux || openbsd || solaris || netbsd

package malloc

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// reservationSize bounds how far the simulated heap can grow. True
// brk(2) is Linux-only, deprecated, and would fight the Go runtime's own
// mmap-based heap if called directly, so the break primitive is emulated
// atop one large anonymous reservation whose logical boundary (not its
// protection) moves — the standard "MORECORE emulation" userspace
// allocators use on platforms without sbrk. See SPEC_FULL.md's domain
// stack section.
const reservationSize = 1 << 30 // 1 GiB address-space reservation

// osBreakSource implements BreakSource atop a single anonymous mmap
// reservation. The whole reservation is PROT_READ|PROT_WRITE up front;
// only the logical "current break" cursor moves. Memory beyond any break
// this process has ever reached is the kernel's zero-filled anonymous
// page; memory inside a range this process retracted and later re-grows
// into holds whatever was last written there.
type osBreakSource struct {
	mu      sync.Mutex
	region  []byte
	base    uintptr
	current uintptr
	limit   uintptr
}

func newOSBreakSource() (*osBreakSource, error) {
	b, err := unix.Mmap(-1, 0, reservationSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("reserve break region: %w", err)
	}
	base := uintptr(unsafe.Pointer(&b[0]))
	return &osBreakSource{
		region:  b,
		base:    base,
		current: base,
		limit:   base + reservationSize,
	}, nil
}

func (o *osBreakSource) Base() uintptr { return o.base }

func (o *osBreakSource) Current() uintptr {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *osBreakSource) Break(delta int) (uintptr, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	prev := o.current
	next := prev + uintptr(delta)

	if delta > 0 && next > o.limit {
		return 0, fmt.Errorf("break: reservation exhausted")
	}
	if delta < 0 && next < o.base {
		return 0, fmt.Errorf("break: retracted past base")
	}

	o.current = next
	return prev, nil
}
