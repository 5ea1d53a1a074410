package irq

import (
	"unsafe"

	"ia32os/internal/fat16"
	"ia32os/internal/kerrno"
	"ia32os/internal/klog"
	"ia32os/internal/proc"
	"ia32os/internal/task"
	"ia32os/internal/vfs"
)

func userBytes(uaddr uint32, n int) []byte {
	if n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(uaddr))), n)
}

func userCString(uaddr uint32, maxLen int) string {
	b := userBytes(uaddr, maxLen)
	end := 0
	for end < len(b) && b[end] != 0 {
		end++
	}
	return string(b[:end])
}

func allocFD(t *task.Task, v any) (int, kerrno.Code) {
	for i := range t.Files {
		if t.Files[i] == nil {
			t.Files[i] = v
			return i, kerrno.OK
		}
	}
	return -1, kerrno.ErrNoMem
}

func fdFile(t *task.Task, fd uint32) (*vfs.OpenFile, kerrno.Code) {
	if int(fd) >= len(t.Files) {
		return nil, kerrno.ErrBadFD
	}
	f, ok := t.Files[fd].(*vfs.OpenFile)
	if !ok || f == nil {
		return nil, kerrno.ErrBadFD
	}
	return f, kerrno.OK
}

func fdDir(t *task.Task, fd uint32) (*vfs.Dir, kerrno.Code) {
	if int(fd) >= len(t.Files) {
		return nil, kerrno.ErrBadFD
	}
	d, ok := t.Files[fd].(*vfs.Dir)
	if !ok || d == nil {
		return nil, kerrno.ErrBadFD
	}
	return d, kerrno.OK
}

// dispatch is the syscall number -> operation table (spec.md §4.5/§6).
// An unrecognized number logs and returns -1, per spec.md §7.
func dispatch(t *task.Task, f *Frame) uint32 {
	switch f.Num {
	case SysSleep:
		task.Sleep(f.Arg0)
		return 0
	case SysGetpid:
		return uint32(t.Pid)
	case SysFork:
		child, code := proc.Fork(t)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		return uint32(child.Pid)
	case SysExecve:
		path := userCString(f.Arg0, 256)
		argv := readArgv(f.Arg1)
		code := proc.Execve(t, path, argv)
		return asRet(code)
	case SysYield:
		task.Yield()
		return 0
	case SysExit:
		proc.Exit(t, int32(f.Arg0))
		return 0 // unreachable: Exit never returns to this task
	case SysWait:
		pid, status, code := proc.Wait(t)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		if f.Arg0 != 0 {
			statusPtr := (*int32)(unsafe.Pointer(uintptr(f.Arg0)))
			*statusPtr = status
		}
		return uint32(pid)

	case SysOpen:
		path := userCString(f.Arg0, 256)
		of, code := vfs.Open(path, int(f.Arg1))
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		fd, code := allocFD(t, of)
		if kerrno.IsErr(code) {
			of.Close()
			return asRet(code)
		}
		return uint32(fd)
	case SysRead:
		of, code := fdFile(t, f.Arg0)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		buf := userBytes(f.Arg1, int(f.Arg2))
		n, code := of.Read(buf)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		return uint32(n)
	case SysWrite:
		of, code := fdFile(t, f.Arg0)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		buf := userBytes(f.Arg1, int(f.Arg2))
		n, code := of.Write(buf)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		return uint32(n)
	case SysClose:
		of, code := fdFile(t, f.Arg0)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		t.Files[f.Arg0] = nil
		return asRet(of.Close())
	case SysLseek:
		of, code := fdFile(t, f.Arg0)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		pos, code := of.Seek(int64(int32(f.Arg1)), int(f.Arg2))
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		return pos
	case SysIsATTY:
		of, code := fdFile(t, f.Arg0)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		if of.IsATTY() {
			return 1
		}
		return 0
	case SysSbrk:
		addr, code := proc.Sbrk(t, int32(f.Arg0))
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		return uint32(addr)
	case SysFstat:
		of, code := fdFile(t, f.Arg0)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		st, code := of.Stat()
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		out := (*vfs.Stat)(unsafe.Pointer(uintptr(f.Arg1)))
		*out = st
		return 0
	case SysDup:
		of, code := fdFile(t, f.Arg0)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		fd, code := allocFD(t, of)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		of.Retain()
		return uint32(fd)

	case SysOpendir:
		path := userCString(f.Arg0, 256)
		d, code := vfs.OpenDir(path)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		fd, code := allocFD(t, d)
		return asRetOr(fd, code)
	case SysReaddir:
		d, code := fdDir(t, f.Arg0)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		entry, ok := d.ReadDir()
		if !ok {
			return asRet(kerrno.ErrNotFound)
		}
		out := (*DirentOut)(unsafe.Pointer(uintptr(f.Arg1)))
		out.fill(entry)
		return 0
	case SysClosedir:
		d, code := fdDir(t, f.Arg0)
		if kerrno.IsErr(code) {
			return asRet(code)
		}
		t.Files[f.Arg0] = nil
		return asRet(d.Close())

	case SysPrintMsg:
		msg := userCString(f.Arg0, 256)
		klog.Println(msg)
		return 0

	default:
		klog.Errorf("irq: unknown syscall", int32(f.Num))
		return 0xFFFFFFFF // -1
	}
}

func asRet(code kerrno.Code) uint32 { return uint32(int32(code)) }

func asRetOr(v int, code kerrno.Code) uint32 {
	if kerrno.IsErr(code) {
		return asRet(code)
	}
	return uint32(v)
}

// readArgv walks a NULL-terminated array of user-space string
// pointers (argv[], as execve's Arg1 — c.f. original_source's
// sys_execve signature) and returns the decoded strings.
func readArgv(uaddr uint32) []string {
	if uaddr == 0 {
		return nil
	}
	var out []string
	ptrs := (*[256]uint32)(unsafe.Pointer(uintptr(uaddr)))
	for i := 0; i < len(ptrs); i++ {
		p := ptrs[i]
		if p == 0 {
			break
		}
		out = append(out, userCString(p, 256))
	}
	return out
}

// DirentOut is the user-space readdir() output record.
type DirentOut struct {
	Name  [32]byte
	IsDir uint32
	Size  uint32
}

func (d *DirentOut) fill(e fat16.DirListing) {
	n := copy(d.Name[:len(d.Name)-1], e.Name)
	d.Name[n] = 0
	if e.IsDir {
		d.IsDir = 1
	}
	d.Size = e.Size
}
