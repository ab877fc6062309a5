// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

import (
	"math"
	"runtime"
	"unsafe"
)

// Alloc returns an aligned pointer to size bytes of uninitialized memory,
// placed by the given strategy. size must be > 0.
func (a *Allocator) Alloc(size int, strategy Strategy) (unsafe.Pointer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocLocked(size, strategy)
}

// AllocFirstFit is a thin wrapper selecting FirstFit.
func (a *Allocator) AllocFirstFit(size int) (unsafe.Pointer, error) { return a.Alloc(size, FirstFit) }

// AllocNextFit is a thin wrapper selecting NextFit.
func (a *Allocator) AllocNextFit(size int) (unsafe.Pointer, error) { return a.Alloc(size, NextFit) }

// AllocBestFit is a thin wrapper selecting BestFit.
func (a *Allocator) AllocBestFit(size int) (unsafe.Pointer, error) { return a.Alloc(size, BestFit) }

// AllocAt is like Alloc but stamps the caller's source location (and an
// optional tag) into the block's debug-origin record, readable later via
// Leaks. The recorded location is AllocAt's immediate caller.
func (a *Allocator) AllocAt(size int, strategy Strategy, tag string) (unsafe.Pointer, error) {
	_, file, line, _ := runtime.Caller(1)

	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := a.allocLocked(size, strategy)
	if err != nil {
		return nil, err
	}

	base := blockOf(uintptr(p), a.headerSize)
	a.origins[base] = debugOrigin{file: file, line: line, tag: tag}
	return p, nil
}

func (a *Allocator) allocLocked(size int, strategy Strategy) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, newErr("alloc", KindInval, "size must be > 0")
	}
	if !validStrategy(strategy) {
		return nil, newErr("alloc", KindStrategyInvalid, strategy.String())
	}

	if size > a.cfg.MMapThreshold {
		addr, err := a.allocMapped(size)
		if err != nil {
			return nil, err
		}
		a.stats.OnAlloc()
		return unsafe.Pointer(a.payloadOf(addr)), nil
	}

	total := uintptr(roundup(a.headerSize+size+canarySize, a.alignment))
	if total < uintptr(a.minBlockSize) {
		total = uintptr(a.minBlockSize)
	}

	addr, err := a.findBlock(total, strategy)
	if err != nil {
		return nil, err
	}

	if addr == 0 {
		prevEnd, growErr := a.grow(int(total))
		if growErr != nil {
			return nil, growErr
		}
		a.appendTailBlock(prevEnd, int(total))

		addr, err = a.findBlock(total, strategy)
		if err != nil {
			return nil, err
		}
		if addr == 0 {
			return nil, newErr("alloc", KindNoMem, "heap growth did not yield a usable block")
		}
	}

	a.freeRemove(addr)
	a.split(addr, total)
	a.lastAllocated = addr
	a.stats.OnAlloc()

	return unsafe.Pointer(a.payloadOf(addr)), nil
}

// Calloc is like Alloc except the returned memory is zero-filled. n*elem
// must not overflow (checked explicitly, per §9's note that the teacher's
// source left this check implicit).
func (a *Allocator) Calloc(n, elem int, strategy Strategy) (unsafe.Pointer, error) {
	if n < 0 || elem < 0 {
		return nil, newErr("calloc", KindInval, "n and elem must be >= 0")
	}
	if n != 0 && elem != 0 && n > math.MaxInt/elem {
		return nil, newErr("calloc", KindOverflow, "n*elem overflows")
	}

	total := n * elem
	a.mu.Lock()
	defer a.mu.Unlock()
	p, err := a.allocLocked(total, strategy)
	if err != nil {
		return nil, err
	}

	Memset(p, 0, total)
	return p, nil
}

// Realloc changes the size of the block at p. If p is nil, Realloc
// behaves like Alloc. If the block's current usable capacity already
// satisfies newSize, p is returned unchanged. Otherwise a new block is
// allocated, the old payload is copied, the old block is freed, and the
// new pointer is returned; allocation failure leaves p valid and
// unchanged (the new block is only ever requested before the old one is
// freed).
func (a *Allocator) Realloc(p unsafe.Pointer, newSize int, strategy Strategy) (unsafe.Pointer, error) {
	if p == nil {
		return a.Alloc(newSize, strategy)
	}
	if newSize <= 0 {
		return nil, newErr("realloc", KindInval, "newSize must be > 0")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	base := blockOf(uintptr(p), a.headerSize)
	h, err := a.validateAny(base)
	if err != nil {
		a.cfg.Logger.Logf(LevelWarn, "realloc: %v", err)
		return nil, err
	}
	if h.isFree() {
		return nil, newErr("realloc", KindDoubleFree, "pointer already free")
	}

	capacity := int(h.size) - a.headerSize - canarySize
	if capacity >= newSize {
		return p, nil
	}

	newPtr, err := a.allocLocked(newSize, strategy)
	if err != nil {
		return nil, err
	}

	n := capacity
	if newSize < n {
		n = newSize
	}
	Memcpy(newPtr, p, n)

	if err := a.freeLocked(p); err != nil {
		a.cfg.Logger.Logf(LevelWarn, "realloc: free of old block failed: %v", err)
	}

	return newPtr, nil
}

// Free releases the block at p. Free(nil) is a no-op. A second Free of an
// already-freed pointer returns DOUBLE-FREE and leaves heap state
// unchanged.
func (a *Allocator) Free(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.freeLocked(p)
}

func (a *Allocator) freeLocked(p unsafe.Pointer) error {
	base := blockOf(uintptr(p), a.headerSize)

	if region := a.findMapped(base); region != nil {
		h, err := a.validateMapped(base, region)
		if err != nil {
			a.cfg.Logger.Logf(LevelError, "free: %v", err)
			return err
		}
		if h.isFree() {
			return newErr("free", KindDoubleFree, "double free of mapped block")
		}
		delete(a.origins, base)
		a.stats.OnFree()
		return a.freeMapped(base, region)
	}

	h, err := a.validate(base)
	if err != nil {
		a.cfg.Logger.Logf(LevelWarn, "free: %v", err)
		return err
	}
	if h.isFree() {
		return newErr("free", KindDoubleFree, "double free")
	}

	delete(a.origins, base)
	a.stats.OnFree()

	h.setFree(true)
	if a.canTailShrink(base) && a.doTailShrink(base) {
		return nil
	}

	merged := a.merge(base)
	a.freeInsert(merged)
	return nil
}
