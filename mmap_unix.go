// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2024 The libmemalloc Authors.

//go:build darwin || dragonfly || freebsd || linux || openbsd || solaris || netbsd

package malloc

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// osPageMapper is the default PageMapper, backed directly by mmap(2)/
// munmap(2) via golang.org/x/sys/unix rather than the raw syscall.Syscall
// trick the teacher used — the same operation, expressed through the
// pack's preferred binding.
type osPageMapper struct{}

func (osPageMapper) Map(length int) (uintptr, error) {
	b, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}

	addr := uintptr(unsafe.Pointer(&b[0]))
	if addr&uintptr(os.Getpagesize()-1) != 0 {
		panic("malloc: mmap returned a non-page-aligned address")
	}
	return addr, nil
}

func (osPageMapper) Unmap(addr uintptr, length int) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
	return unix.Munmap(b)
}

func (osPageMapper) PageSize() int { return os.Getpagesize() }
