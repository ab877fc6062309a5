// Copyright 2024 The libmemalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package malloc

// PageMapper is the out-of-scope "anonymous page-mapping primitive"
// collaborator (§1, §6): it produces a page-aligned, writable anonymous
// region and its inverse. Reached only through this interface, matching
// BreakSource's treatment.
type PageMapper interface {
	Map(length int) (uintptr, error)
	Unmap(addr uintptr, length int) error
	PageSize() int
}

// mappedRegion is the metadata node for one large-block allocation,
// tracked in a singly linked list owned by the Allocator (§3). Mapped
// regions never participate in split/merge and never enter free lists.
type mappedRegion struct {
	base   uintptr
	length int
	next   *mappedRegion
}

// mmapBlockSize returns the total block size (header + payload +
// tail canary, alignment-rounded) for a requested payload size.
func (a *Allocator) mmapBlockSize(payload int) int {
	return roundup(a.headerSize+payload+canarySize, a.alignment)
}

// allocMapped services a request whose payload exceeds cfg.MMapThreshold
// by asking the PageMapper for a page-rounded region, writing the
// standard header and canaries at its base, and recording it in the
// mapped-region list (§4.6).
func (a *Allocator) allocMapped(payload int) (uintptr, error) {
	total := a.mmapBlockSize(payload)
	pageSize := a.pages.PageSize()
	mapped := roundup(total, pageSize)

	addr, err := a.pages.Map(mapped)
	if err != nil {
		return 0, newErr("alloc", KindNoMem, err.Error())
	}

	a.armCanaries(addr, uintptr(total))
	h := headerAt(addr)
	h.setFree(false)
	h.physPrev, h.physNext = 0, 0
	h.freePrev, h.freeNext = 0, 0

	a.mapped = &mappedRegion{base: addr, length: mapped, next: a.mapped}
	a.stats.OnMap(mapped)

	return addr, nil
}

// freeMapped unmaps a large-block allocation, removing its metadata node
// from the list. It does not validate the block header.
func (a *Allocator) freeMapped(addr uintptr, region *mappedRegion) error {
	_ = addr

	// Remove region from the singly linked list.
	if a.mapped == region {
		a.mapped = region.next
	} else {
		for r := a.mapped; r != nil; r = r.next {
			if r.next == region {
				r.next = region.next
				break
			}
		}
	}

	a.stats.OnUnmap(region.length)
	if err := a.pages.Unmap(region.base, region.length); err != nil {
		return newErr("free", KindInval, err.Error())
	}
	return nil
}

// findMapped returns the mappedRegion owning base, if any.
func (a *Allocator) findMapped(base uintptr) *mappedRegion {
	for r := a.mapped; r != nil; r = r.next {
		if r.base == base {
			return r
		}
	}
	return nil
}
