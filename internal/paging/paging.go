// Package paging implements per-process two-level x86 page tables:
// address-space create, fork-copy, destroy, and heap growth (spec.md
// §4.2). Grounded on original_source/source/kernel/core/memory.c
// (memory_create_uvm / memory_copy_uvm / memory_destroy_uvm /
// memory_alloc_for / memory_alloc_page_for) and on
// original_source/source/kernel/include/cpu/mmu.h for the PDE/PTE
// layout. Physical addresses are dereferenced directly via unsafe
// pointers: the kernel identity-maps all extended memory into its own
// address space (spec.md §6), so a physical address IS a valid kernel
// virtual address once paging is live — exactly the capability
// spec.md §9 calls a "core design decision", not an accident.
package paging

import (
	"unsafe"

	"ia32os/internal/bootcfg"
	"ia32os/internal/cpu"
	"ia32os/internal/kerrno"
	"ia32os/internal/pmm"
)

const (
	entriesPerTable = 1024
	dirShift        = 22
	tblShift        = 12
	idxMask         = 0x3FF
	offsetMask      = 0xFFF
)

// Perm packs the permission bits narrowed onto a leaf PTE. The
// directory entry covering it is always made PermPresent|PermWrite so
// supervisor code can always reach it; only the leaf narrows to the
// caller's requested permissions, per spec.md §4.2 "map(...) ... fail
// if the leaf is already present" / "setting a permissive directory
// entry that the leaf entry narrows".
type Perm uint32

const (
	PermPresent Perm = 1 << 0
	PermWrite   Perm = 1 << 1
	PermUser    Perm = 1 << 2
)

type entry uint32

func makeEntry(frame uintptr, perm Perm) entry {
	return entry(uint32(frame&^offsetMask) | uint32(perm))
}

func (e entry) present() bool    { return e&entry(PermPresent) != 0 }
func (e entry) frame() uintptr   { return uintptr(e) &^ offsetMask }
func (e entry) perm() Perm       { return Perm(e) & (PermPresent | PermWrite | PermUser) }

// kernelDirIndexCount is the number of directory entries covering
// kernel space [0, UserBase). These entries must be identical across
// every address space (spec.md §3 invariant a).
var kernelDirIndexCount = int(bootcfg.UserBase >> dirShift)

// Directory is a page directory: a physical-address handle to the
// 4 KiB frame holding 1024 directory entries.
type Directory struct {
	phys uintptr
}

func dirTable(phys uintptr) *[entriesPerTable]entry {
	return (*[entriesPerTable]entry)(unsafe.Pointer(phys))
}

func zeroFrame(phys uintptr) {
	table := dirTable(phys)
	for i := range table {
		table[i] = 0
	}
}

// kernelDir is the canonical kernel directory built once at boot;
// every CreateUVM copies its kernel-space half verbatim.
var kernelDir Directory

// SetKernelDirectory installs the canonical kernel directory. Called
// once during boot after the kernel's own mappings are established.
func SetKernelDirectory(d Directory) { kernelDir = d }

// NewKernelDirectory allocates and zeroes a fresh directory frame with
// no mappings at all — used exactly once, by boot, to build
// kernelDir itself.
func NewKernelDirectory() (Directory, kerrno.Code) {
	phys, code := pmm.Default().Alloc(1)
	if kerrno.IsErr(code) {
		return Directory{}, code
	}
	zeroFrame(phys)
	return Directory{phys: phys}, kerrno.OK
}

// CreateUVM allocates one frame for the page directory, zeroes it,
// copies all kernel-space directory entries verbatim from the
// canonical kernel directory, and leaves user space empty (spec.md
// §4.2).
func CreateUVM() (Directory, kerrno.Code) {
	phys, code := pmm.Default().Alloc(1)
	if kerrno.IsErr(code) {
		return Directory{}, code
	}
	zeroFrame(phys)
	dst := dirTable(phys)
	src := dirTable(kernelDir.phys)
	for i := 0; i < kernelDirIndexCount; i++ {
		dst[i] = src[i]
	}
	return Directory{phys: phys}, kerrno.OK
}

// tableFor returns the page-table frame for the directory entry
// covering vaddr, allocating and zeroing one (with a permissive
// directory entry) if absent and allocate is set. Fails with
// ErrNotFound when the table is absent and allocate is false, and
// otherwise only on frame exhaustion.
func tableFor(d Directory, vaddr uintptr, allocate bool) (*[entriesPerTable]entry, kerrno.Code) {
	dirIdx := (vaddr >> dirShift) & idxMask
	dir := dirTable(d.phys)
	de := dir[dirIdx]
	if !de.present() {
		if !allocate {
			return nil, kerrno.ErrNotFound
		}
		phys, code := pmm.Default().Alloc(1)
		if kerrno.IsErr(code) {
			return nil, code
		}
		zeroFrame(phys)
		dir[dirIdx] = makeEntry(phys, PermPresent|PermWrite|PermUser)
		de = dir[dirIdx]
	}
	return (*[entriesPerTable]entry)(unsafe.Pointer(de.frame())), kerrno.OK
}

// Map maps n consecutive pages starting at vstart to n consecutive
// physical frames starting at pstart, with the given leaf permission.
// Fails if any leaf in the range is already present (spec.md §4.2).
func Map(d Directory, vstart, pstart uintptr, n int, perm Perm) kerrno.Code {
	for i := 0; i < n; i++ {
		v := vstart + uintptr(i)*bootcfg.PageSize
		p := pstart + uintptr(i)*bootcfg.PageSize
		table, code := tableFor(d, v, true)
		if kerrno.IsErr(code) {
			return code
		}
		tblIdx := (v >> tblShift) & idxMask
		if table[tblIdx].present() {
			return kerrno.ErrExists
		}
		table[tblIdx] = makeEntry(p, perm|PermPresent)
		cpu.InvalidatePage(v)
	}
	return kerrno.OK
}

// AllocFor allocates ceil(size/PageSize) fresh frames and maps them
// starting at vaddr. On any failure partway through, every frame
// allocated in this call is freed before returning (spec.md §4.2).
func AllocFor(d Directory, vaddr uintptr, size uintptr, perm Perm) kerrno.Code {
	npages := int((size + bootcfg.PageSize - 1) / bootcfg.PageSize)
	allocated := make([]uintptr, 0, npages)
	rollback := func() {
		for i, frame := range allocated {
			v := vaddr + uintptr(i)*bootcfg.PageSize
			unmapOne(d, v)
			pmm.Default().Free(frame, 1)
		}
	}
	for i := 0; i < npages; i++ {
		v := vaddr + uintptr(i)*bootcfg.PageSize
		frame, code := pmm.Default().Alloc(1)
		if kerrno.IsErr(code) {
			rollback()
			return code
		}
		zeroFrame(frame)
		if code := Map(d, v, frame, 1, perm); kerrno.IsErr(code) {
			pmm.Default().Free(frame, 1)
			rollback()
			return code
		}
		allocated = append(allocated, frame)
	}
	return kerrno.OK
}

func unmapOne(d Directory, vaddr uintptr) {
	table, code := tableFor(d, vaddr, false)
	if kerrno.IsErr(code) {
		return
	}
	tblIdx := (vaddr >> tblShift) & idxMask
	table[tblIdx] = 0
	cpu.InvalidatePage(vaddr)
}

// GetPaddr returns the physical address mapped for vaddr in d, or 0 if
// unmapped (spec.md §4.2).
func GetPaddr(d Directory, vaddr uintptr) uintptr {
	table, code := tableFor(d, vaddr, false)
	if kerrno.IsErr(code) {
		return 0
	}
	tblIdx := (vaddr >> tblShift) & idxMask
	e := table[tblIdx]
	if !e.present() {
		return 0
	}
	return e.frame() | (vaddr & offsetMask)
}

// CopyUVMData copies n bytes from srcVaddr (in the *currently active*
// address space) to dstVaddr in dstPD, which need not be active. It
// walks the destination page by page via GetPaddr, exactly as exec
// uses it to transfer argv into a not-yet-active directory (spec.md
// §4.2 / §4.4 step 6).
func CopyUVMData(dstVaddr uintptr, dstPD Directory, srcVaddr uintptr, n int) kerrno.Code {
	srcPtr := unsafe.Pointer(srcVaddr)
	srcBytes := unsafe.Slice((*byte)(srcPtr), n)
	copied := 0
	for copied < n {
		dv := dstVaddr + uintptr(copied)
		pageOff := dv & offsetMask
		chunk := int(bootcfg.PageSize - pageOff)
		if chunk > n-copied {
			chunk = n - copied
		}
		paddr := GetPaddr(dstPD, dv)
		if paddr == 0 {
			return kerrno.ErrInval
		}
		dst := unsafe.Slice((*byte)(unsafe.Pointer(paddr)), chunk)
		copy(dst, srcBytes[copied:copied+chunk])
		copied += chunk
	}
	return kerrno.OK
}

// CopyUVM creates a new address space and, for every present
// user-space leaf in src, allocates a fresh frame, copies the page
// contents (both addresses reachable directly via the kernel's
// identity map, per spec.md §4.2), and maps it into the child with
// the parent's permission bits preserved.
func CopyUVM(src Directory) (Directory, kerrno.Code) {
	dst, code := CreateUVM()
	if kerrno.IsErr(code) {
		return Directory{}, code
	}
	srcDir := dirTable(src.phys)
	userStart := kernelDirIndexCount
	for dirIdx := userStart; dirIdx < entriesPerTable; dirIdx++ {
		de := srcDir[dirIdx]
		if !de.present() {
			continue
		}
		srcTable := (*[entriesPerTable]entry)(unsafe.Pointer(de.frame()))
		for tblIdx := 0; tblIdx < entriesPerTable; tblIdx++ {
			pte := srcTable[tblIdx]
			if !pte.present() {
				continue
			}
			vaddr := uintptr(dirIdx)<<dirShift | uintptr(tblIdx)<<tblShift
			newFrame, code := pmm.Default().Alloc(1)
			if kerrno.IsErr(code) {
				DestroyUVM(dst)
				return Directory{}, code
			}
			srcBytes := unsafe.Slice((*byte)(unsafe.Pointer(pte.frame())), bootcfg.PageSize)
			dstBytes := unsafe.Slice((*byte)(unsafe.Pointer(newFrame)), bootcfg.PageSize)
			copy(dstBytes, srcBytes)
			if code := Map(dst, vaddr, newFrame, 1, pte.perm()&^PermPresent); kerrno.IsErr(code) {
				pmm.Default().Free(newFrame, 1)
				DestroyUVM(dst)
				return Directory{}, code
			}
		}
	}
	return dst, kerrno.OK
}

// DestroyUVM frees every user-space leaf frame, every user-space
// page-table frame, and the directory frame itself.
func DestroyUVM(d Directory) {
	dir := dirTable(d.phys)
	for dirIdx := kernelDirIndexCount; dirIdx < entriesPerTable; dirIdx++ {
		de := dir[dirIdx]
		if !de.present() {
			continue
		}
		table := (*[entriesPerTable]entry)(unsafe.Pointer(de.frame()))
		for tblIdx := 0; tblIdx < entriesPerTable; tblIdx++ {
			pte := table[tblIdx]
			if pte.present() {
				pmm.Default().Free(pte.frame(), 1)
			}
		}
		pmm.Default().Free(de.frame(), 1)
	}
	pmm.Default().Free(d.phys, 1)
}

// Phys returns the page-directory physical address, used to load CR3
// on a task switch.
func (d Directory) Phys() uintptr { return d.phys }

// FromPhys wraps an existing page-directory physical address (used to
// represent "the currently active directory" without re-deriving it).
func FromPhys(phys uintptr) Directory { return Directory{phys: phys} }
