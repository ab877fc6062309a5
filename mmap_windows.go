// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2024 The libmemalloc Authors.

//go:build windows

package malloc

import (
	"errors"
	"os"
	"sync"

	"golang.org/x/sys/windows"
)

// osPageMapper mirrors mmap_unix.go's default PageMapper for Windows:
// CreateFileMapping + MapViewOfFile in place of mmap(2), via
// golang.org/x/sys/windows rather than raw syscall plumbing.
type osPageMapper struct{}

var (
	handleMu  sync.Mutex
	handleMap = map[uintptr]windows.Handle{}
)

func (osPageMapper) Map(length int) (uintptr, error) {
	maxSizeHigh := uint32(int64(length) >> 32)
	maxSizeLow := uint32(int64(length) & 0xFFFFFFFF)

	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, maxSizeHigh, maxSizeLow, nil)
	if err != nil {
		return 0, os.NewSyscallError("CreateFileMapping", err)
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(length))
	if err != nil {
		return 0, os.NewSyscallError("MapViewOfFile", err)
	}

	handleMu.Lock()
	handleMap[addr] = h
	handleMu.Unlock()

	return addr, nil
}

func (osPageMapper) Unmap(addr uintptr, length int) error {
	_ = length
	if err := windows.UnmapViewOfFile(addr); err != nil {
		return err
	}

	handleMu.Lock()
	h, ok := handleMap[addr]
	if ok {
		delete(handleMap, addr)
	}
	handleMu.Unlock()

	if !ok {
		return errors.New("malloc: unknown base address")
	}
	return os.NewSyscallError("CloseHandle", windows.CloseHandle(h))
}

func (osPageMapper) PageSize() int {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return int(si.PageSize)
}
