// Package proc is the process lifecycle on top of internal/task and
// internal/paging: fork (copy-on-spawn address space), execve (ELF32
// loader for PT_LOAD segments with argv seeding), exit/wait (zombie
// reaping), and sbrk (spec.md §4.4). Grounded on
// original_source/source/kernel/core/task.c's sys_fork/sys_execve/
// sys_exit/sys_wait and include/core/syscall.h's syscall_frame_t.
package proc

import (
	"unsafe"

	"ia32os/internal/bootcfg"
	"ia32os/internal/irqlock"
	"ia32os/internal/kerrno"
	"ia32os/internal/paging"
	"ia32os/internal/pmm"
	"ia32os/internal/task"
	"ia32os/internal/vfs"
)

const (
	KernelStackPages = 1

	// UserWindowSize bounds one process's address space below its
	// stack: a modest fixed window, matching spec.md's scope of a
	// teaching kernel rather than a demand-paged general OS.
	UserWindowSize = 4 * 1024 * 1024
	StackPages     = 4
	StackTop       = bootcfg.UserBase + UserWindowSize
)

// exitWaiters is the single wait queue every wait() call parks on;
// woken on every exit, then each waiter re-checks whether one of ITS
// children became a zombie (spec.md §4.4 wait(): "blocks until any
// child of the caller exits").
var exitWaiters task.WaitList

// Fork duplicates the calling task: a copy-on-spawn address space
// (internal/paging.CopyUVM), a fresh kernel stack, and a copy of the
// open-file table whose entries are retained, not reopened, matching
// original_source's fd table copy — both parent and child fds refer to
// the same internal/vfs.OpenFile, so a close() in one doesn't affect
// the other's descriptor slot but does share the underlying file offset.
func Fork(parent *task.Task) (*task.Task, kerrno.Code) {
	childPD, code := paging.CopyUVM(parent.PD)
	if kerrno.IsErr(code) {
		return nil, code
	}
	stackPhys, code := pmm.Default().Alloc(KernelStackPages)
	if kerrno.IsErr(code) {
		paging.DestroyUVM(childPD)
		return nil, code
	}
	child, code := task.Spawn(parent.NameString(), parent.Flag, parent.Ctx.EIP, parent.Ctx.ESP, childPD, stackPhys)
	if kerrno.IsErr(code) {
		pmm.Default().Free(stackPhys, KernelStackPages)
		paging.DestroyUVM(childPD)
		return nil, code
	}
	child.ParentPid = parent.Pid
	child.HeapStart = parent.HeapStart
	child.HeapEnd = parent.HeapEnd
	child.Ctx = parent.Ctx
	child.Ctx.CR3 = childPD.Phys()
	child.Ctx.EAX = 0 // fork() returns 0 in the child, parent's own return is wired by the syscall gateway
	child.Files = parent.Files
	for _, v := range child.Files {
		if f, ok := v.(*vfs.OpenFile); ok && f != nil {
			f.Retain()
		}
	}
	task.SetReady(child)
	return child, kerrno.OK
}

// Execve replaces t's address space with the ELF32 image at path,
// seeds argv on a fresh user stack, and repoints t's context at the
// image's entry point (spec.md §4.4 execve()). t keeps running as the
// same task/pid; only its address space and context change.
func Execve(t *task.Task, path string, argv []string) kerrno.Code {
	f, code := vfs.Open(path, vfs.OReadOnly)
	if kerrno.IsErr(code) {
		return code
	}
	defer f.Close()

	var hdrBuf [elfEhdrSize]byte
	n, code := f.Read(hdrBuf[:])
	if kerrno.IsErr(code) || n != elfEhdrSize {
		return kerrno.ErrInval
	}
	hdr, code := parseElfHeader(hdrBuf[:])
	if kerrno.IsErr(code) {
		return code
	}

	newPD, code := paging.CreateUVM()
	if kerrno.IsErr(code) {
		return code
	}

	var heapEnd uintptr
	for i := 0; i < int(hdr.phnum); i++ {
		if _, code := f.Seek(int64(hdr.phoff)+int64(i)*int64(hdr.phentsize), vfs.SeekSet); kerrno.IsErr(code) {
			paging.DestroyUVM(newPD)
			return code
		}
		var phBuf [elfPhdrSize]byte
		n, code := f.Read(phBuf[:])
		if kerrno.IsErr(code) || n != elfPhdrSize {
			paging.DestroyUVM(newPD)
			return kerrno.ErrInval
		}
		ph := parseProgHeader(phBuf[:])
		if ph.pType != ptLoad {
			continue
		}
		if uintptr(ph.vaddr) < bootcfg.UserBase {
			paging.DestroyUVM(newPD)
			return kerrno.ErrInval
		}
		// Always mapped writable so the loader can deposit the
		// segment's bytes below, even for a read-only text segment;
		// ia32os never re-protects a segment to read-only afterward,
		// a simplification over marking .text immutable post-load.
		if code := paging.AllocFor(newPD, uintptr(ph.vaddr), uintptr(ph.memsz), paging.PermUser|paging.PermWrite); kerrno.IsErr(code) {
			paging.DestroyUVM(newPD)
			return code
		}
		if ph.filesz > 0 {
			if _, code := f.Seek(int64(ph.offset), vfs.SeekSet); kerrno.IsErr(code) {
				paging.DestroyUVM(newPD)
				return code
			}
			segBuf := make([]byte, ph.filesz)
			if _, code := f.Read(segBuf); kerrno.IsErr(code) {
				paging.DestroyUVM(newPD)
				return code
			}
			if code := paging.CopyUVMData(uintptr(ph.vaddr), newPD, uintptr(unsafe.Pointer(&segBuf[0])), len(segBuf)); kerrno.IsErr(code) {
				paging.DestroyUVM(newPD)
				return code
			}
		}
		if segEnd := uintptr(ph.vaddr) + uintptr(ph.memsz); segEnd > heapEnd {
			heapEnd = segEnd
		}
	}

	stackBase := uintptr(StackTop) - uintptr(StackPages)*bootcfg.PageSize
	if code := paging.AllocFor(newPD, stackBase, uintptr(StackPages)*bootcfg.PageSize, paging.PermUser|paging.PermWrite); kerrno.IsErr(code) {
		paging.DestroyUVM(newPD)
		return code
	}

	sp, code := seedArgv(newPD, argv)
	if kerrno.IsErr(code) {
		paging.DestroyUVM(newPD)
		return code
	}

	old := t.PD
	t.PD = newPD
	t.Ctx.CR3 = newPD.Phys()
	t.Ctx.EIP = uintptr(hdr.entry)
	t.Ctx.ESP = sp
	t.HeapStart = heapEnd
	t.HeapEnd = heapEnd
	paging.DestroyUVM(old)
	return kerrno.OK
}

// seedArgv writes argv's strings and a standard argc/argv[]/NULL
// pointer prologue onto the top of the new stack, growing down from
// StackTop, and returns the resulting stack pointer.
func seedArgv(pd paging.Directory, argv []string) (uintptr, kerrno.Code) {
	sp := uintptr(StackTop)
	ptrs := make([]uint32, len(argv))
	for i, s := range argv {
		bytes := append([]byte(s), 0)
		sp -= uintptr(len(bytes))
		if code := paging.CopyUVMData(sp, pd, uintptr(unsafe.Pointer(&bytes[0])), len(bytes)); kerrno.IsErr(code) {
			return 0, code
		}
		ptrs[i] = uint32(sp)
	}
	sp &^= 3 // 4-byte align before the pointer array

	if code := writeUint32(pd, &sp, 0); kerrno.IsErr(code) { // argv[] NULL terminator
		return 0, code
	}
	for i := len(ptrs) - 1; i >= 0; i-- {
		if code := writeUint32(pd, &sp, ptrs[i]); kerrno.IsErr(code) {
			return 0, code
		}
	}
	argvPtr := uint32(sp)
	if code := writeUint32(pd, &sp, argvPtr); kerrno.IsErr(code) {
		return 0, code
	}
	if code := writeUint32(pd, &sp, uint32(len(argv))); kerrno.IsErr(code) {
		return 0, code
	}
	return sp, kerrno.OK
}

// writeUint32 pushes v below *sp (stack grows down) and updates *sp.
func writeUint32(pd paging.Directory, sp *uintptr, v uint32) kerrno.Code {
	*sp -= 4
	return paging.CopyUVMData(*sp, pd, uintptr(unsafe.Pointer(&v)), 4)
}

// Exit closes t's open files, re-parents any live children to the
// first task (spec.md §4.4 exit(): "re-parent every child to the first
// task"), marks t ZOMBIE, wakes every wait()er, and switches away for
// good. t's address space and kernel stack are deliberately NOT freed
// here — t is still running on its own kernel stack at this point, so
// freeing it here would be a use-after-free; that teardown happens in
// Wait, once a reaper has observed t as a ZOMBIE and nothing can still
// be executing on its stack.
func Exit(t *task.Task, status int32) {
	t.ExitStatus = status
	for i := range t.Files {
		if f, ok := t.Files[i].(*vfs.OpenFile); ok && f != nil {
			f.Close()
		}
		t.Files[i] = nil
	}

	firstTask := task.Idle()
	task.Each(func(cand *task.Task) {
		if cand.ParentPid == t.Pid {
			cand.ParentPid = firstTask.Pid
		}
	})

	g := irqlock.Enter()
	t.State = task.Zombie
	// Wakes every wait()er unconditionally, which covers "wake the
	// first task too" when one of the orphans re-parented above is
	// already ZOMBIE — no separate targeted wake is needed.
	task.WakeAll(&exitWaiters)
	task.Dispatch()
	g.Exit()
}

// Wait blocks the caller until one of its children exits, reaps it,
// and returns its pid and exit status. Returns ErrNotFound immediately
// if the caller has no children at all (spec.md §4.4 wait()).
func Wait(parent *task.Task) (int32, int32, kerrno.Code) {
	for {
		var zombie *task.Task
		hasChild := false
		task.Each(func(cand *task.Task) {
			if cand.ParentPid != parent.Pid {
				return
			}
			hasChild = true
			if zombie == nil && cand.State == task.Zombie {
				zombie = cand
			}
		})
		if zombie != nil {
			pid := zombie.Pid
			status := zombie.ExitStatus
			paging.DestroyUVM(zombie.PD)
			pmm.Default().Free(zombie.KernelStack, KernelStackPages)
			task.Release(zombie)
			return pid, status, kerrno.OK
		}
		if !hasChild {
			return 0, 0, kerrno.ErrNotFound
		}
		task.BlockOn(&exitWaiters)
	}
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}

// Sbrk grows t's heap by delta bytes, mapping whole fresh pages as
// needed, and returns the previous break. A negative delta is
// rejected (spec.md Open Question decision, DESIGN.md).
func Sbrk(t *task.Task, delta int32) (uintptr, kerrno.Code) {
	if delta < 0 {
		return 0, kerrno.ErrInval
	}
	old := t.HeapEnd
	newEnd := old + uintptr(delta)
	oldPageEnd := alignUp(old, bootcfg.PageSize)
	newPageEnd := alignUp(newEnd, bootcfg.PageSize)
	if newPageEnd > oldPageEnd {
		if code := paging.AllocFor(t.PD, oldPageEnd, newPageEnd-oldPageEnd, paging.PermUser|paging.PermWrite); kerrno.IsErr(code) {
			return 0, code
		}
	}
	t.HeapEnd = newEnd
	return old, kerrno.OK
}
