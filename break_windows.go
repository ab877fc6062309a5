// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package malloc

import (
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
)

const reservationSize = 1 << 30 // 1 GiB address-space reservation

// osBreakSource implements BreakSource atop a single VirtualAlloc
// reservation, mirroring break_unix.go's MORECORE emulation for
// platforms without sbrk.
type osBreakSource struct {
	mu      sync.Mutex
	base    uintptr
	current uintptr
	limit   uintptr
}

func newOSBreakSource() (*osBreakSource, error) {
	addr, err := windows.VirtualAlloc(0, reservationSize, windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("reserve break region: %w", err)
	}
	return &osBreakSource{
		base:    addr,
		current: addr,
		limit:   addr + reservationSize,
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
