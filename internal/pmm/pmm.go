// Package pmm is the physical frame allocator (spec.md §4.1): a
// bitmap-backed, first-fit-by-lowest-index allocator over all RAM
// above the 1 MiB mark, serialized by its own lock. Grounded on
// original_source/source/kernel/core/memory.c (memory_alloc_page /
// memory_free_page wrap a bitmap_t exactly this way) and on
// internal/bitmap for the search itself.
package pmm

import (
	"ia32os/internal/bitmap"
	"ia32os/internal/bootcfg"
	"ia32os/internal/irqlock"
	"ia32os/internal/kerrno"
)

// Allocator owns a contiguous physical region in page-size chunks.
type Allocator struct {
	base     uintptr
	pageSize uintptr
	npages   int
	bm       *bitmap.Bitmap
}

var kernel *Allocator

// Init creates the singleton frame allocator over the usable region
// described by info, backed by a bitmap whose storage lives in
// scratch (a slice the caller has already carved out of identity-mapped
// memory below the first free page — spec.md's invariant that only
// pages wholly inside the region may be allocated means the bitmap's
// own backing bytes must not themselves be handed out, so internal/boot
// reserves them before calling Init).
func Init(info bootcfg.BootInfo, scratch []byte) *Allocator {
	base, size := info.UsableRegion()
	npages := int(size / bootcfg.PageSize)
	need := bitmap.ByteCount(npages)
	if len(scratch) < need {
		panic("pmm: scratch buffer too small for bitmap")
	}
	a := &Allocator{
		base:     base,
		pageSize: bootcfg.PageSize,
		npages:   npages,
		bm:       bitmap.New(scratch[:need], npages, false),
	}
	kernel = a
	return a
}

// Default returns the process-wide frame allocator singleton.
func Default() *Allocator { return kernel }

// NumPages reports the total number of page frames under management.
func (a *Allocator) NumPages() int { return a.npages }

// Alloc reserves n contiguous page frames and returns their base
// physical address, or kerrno.ErrNoMem if no such run exists. Linear in
// the bitmap length, always the lowest free index (spec.md §4.1).
func (a *Allocator) Alloc(n int) (uintptr, kerrno.Code) {
	if n <= 0 {
		return 0, kerrno.ErrInval
	}
	g := irqlock.Enter()
	defer g.Exit()
	idx := a.bm.AllocRun(false, n)
	if idx < 0 {
		return 0, kerrno.ErrNoMem
	}
	return a.base + uintptr(idx)*a.pageSize, kerrno.OK
}

// Free clears n bits starting at the frame index derived from addr.
// Undefined (silently corrupts accounting) if the range was not
// previously allocated — matches the source, which performs no
// double-free detection either.
func (a *Allocator) Free(addr uintptr, n int) {
	if addr < a.base {
		return
	}
	idx := int((addr - a.base) / a.pageSize)
	g := irqlock.Enter()
	defer g.Exit()
	a.bm.SetRun(idx, n, false)
}

// PageSize returns the fixed frame size.
func (a *Allocator) PageSize() uintptr { return a.pageSize }
