// Package vfs is the virtual filesystem layer (spec.md §4.10): a
// mount table resolved by longest-prefix match, a uniform open file
// handle over either a FAT16 file or a character device, and the
// syscall-facing read/write/close/seek/stat/dup/opendir operations.
// Grounded on original_source/source/kernel/fs/fs.c's file_t/fs_t
// split between disk-backed and device-backed files.
package vfs

import (
	"ia32os/internal/devfs"
	"ia32os/internal/device"
	"ia32os/internal/fat16"
	"ia32os/internal/kerrno"
)

const (
	OReadOnly  = 0
	OWriteOnly = 1
	ORdWr      = 2
	OCreat     = fat16.OCreat << 8
	OTrunc     = fat16.OTrunc << 8

	SeekSet = 0
)

type kind int

const (
	kindFile kind = iota
	kindDevice
)

// OpenFile is one process's handle on an open path — stored directly
// in internal/task.Task's FDTable ([MaxOpenFiles]any) so internal/task
// never has to import vfs.
type OpenFile struct {
	k        kind
	fh       *fat16.Handle
	devVT    *device.VTable
	devMinor int
	path     string

	// ref counts the fds referencing this handle — one at Open, plus
	// one per fork (a copied FDTable) or dup that reaches it. Close
	// only persists/releases at ref 0 (spec.md §3: "ref >= 1 while
	// referenced ... on last release persist metadata").
	ref int
}

// mountEntry pairs a path prefix with the filesystem mounted there.
type mountEntry struct {
	prefix string
	fs     *fat16.FS
}

var mounts []mountEntry

// Mount registers fs at prefix (e.g. "/" or "/mnt"). Resolution picks
// the longest registered prefix that matches a given path — the Open
// Question decision recorded in DESIGN.md.
func Mount(prefix string, fs *fat16.FS) {
	mounts = append(mounts, mountEntry{prefix: prefix, fs: fs})
}

func resolve(path string) (*fat16.FS, string, kerrno.Code) {
	best := -1
	bestLen := -1
	for i, m := range mounts {
		if len(path) < len(m.prefix) {
			continue
		}
		if path[:len(m.prefix)] != m.prefix {
			continue
		}
		if len(m.prefix) > bestLen {
			bestLen = len(m.prefix)
			best = i
		}
	}
	if best < 0 {
		return nil, "", kerrno.ErrBadPath
	}
	rest := path[bestLen:]
	for len(rest) > 0 && rest[0] == '/' {
		rest = rest[1:]
	}
	return mounts[best].fs, rest, kerrno.OK
}

// Open resolves path to either a tty device or a FAT16 file and
// returns a uniform handle (spec.md §4.10 open()).
func Open(path string, flags int) (*OpenFile, kerrno.Code) {
	if vt, minor, code := devfs.Open(path); code == kerrno.OK {
		return &OpenFile{k: kindDevice, devVT: vt, devMinor: minor, path: path, ref: 1}, kerrno.OK
	}
	fs, rest, code := resolve(path)
	if kerrno.IsErr(code) {
		return nil, code
	}
	fatFlags := 0
	if flags&OCreat != 0 {
		fatFlags |= fat16.OCreat
	}
	if flags&OTrunc != 0 {
		fatFlags |= fat16.OTrunc
	}
	fh, code := fat16.Open(fs, rest, fatFlags)
	if kerrno.IsErr(code) {
		return nil, code
	}
	return &OpenFile{k: kindFile, fh: fh, path: path, ref: 1}, kerrno.OK
}

// Retain adds one more reference to f, called whenever an existing fd
// is duplicated onto another descriptor (fork's copied FDTable, dup())
// rather than reopened.
func (f *OpenFile) Retain() { f.ref++ }

// Read reads into buf from the file position (files) or blocks for
// input (tty devices).
func (f *OpenFile) Read(buf []byte) (int, kerrno.Code) {
	switch f.k {
	case kindDevice:
		return f.devVT.Read(f.devMinor, buf)
	default:
		return f.fh.Read(buf)
	}
}

// Write writes buf to the file position (files) or renders it (tty devices).
func (f *OpenFile) Write(buf []byte) (int, kerrno.Code) {
	switch f.k {
	case kindDevice:
		return f.devVT.Write(f.devMinor, buf)
	default:
		return f.fh.Write(buf)
	}
}

// Close drops one reference; only the last holder's Close actually
// releases the device or persists and frees the FAT16 handle.
func (f *OpenFile) Close() kerrno.Code {
	f.ref--
	if f.ref > 0 {
		return kerrno.OK
	}
	switch f.k {
	case kindDevice:
		return device.Close(device.MajorTTY, f.devMinor)
	default:
		return f.fh.Close()
	}
}

// Seek repositions a file's offset; only SeekSet is valid (spec.md
// §4.10 Open Question decision), and only for FAT16 files — devices
// are not seekable.
func (f *OpenFile) Seek(offset int64, whence int) (uint32, kerrno.Code) {
	if f.k == kindDevice {
		return 0, kerrno.ErrInval
	}
	return f.fh.Seek(offset, whence)
}

// IsATTY reports whether this handle is a tty device (spec.md's
// isatty syscall).
func (f *OpenFile) IsATTY() bool { return f.k == kindDevice }

// Stat is the minimal fstat() surface spec.md names: size and
// directory-ness. Devices report size 0.
type Stat struct {
	Size  uint32
	IsDir bool
}

func (f *OpenFile) Stat() (Stat, kerrno.Code) {
	if f.k == kindDevice {
		return Stat{}, kerrno.OK
	}
	return Stat{Size: f.fh.Size}, kerrno.OK
}

// Dir is an open-directory cursor for opendir/readdir/closedir
// (spec.md §4.10); ia32os has no subdirectories, so this always lists
// one mounted FAT16 volume's root.
type Dir struct {
	entries []fat16.DirListing
	pos     int
}

func OpenDir(path string) (*Dir, kerrno.Code) {
	fs, _, code := resolve(path)
	if kerrno.IsErr(code) {
		return nil, code
	}
	entries, code := fs.ReadDirAll()
	if kerrno.IsErr(code) {
		return nil, code
	}
	return &Dir{entries: entries}, kerrno.OK
}

// ReadDir returns the next entry, or ok=false at end of directory.
func (d *Dir) ReadDir() (fat16.DirListing, bool) {
	if d.pos >= len(d.entries) {
		return fat16.DirListing{}, false
	}
	e := d.entries[d.pos]
	d.pos++
	return e, true
}

func (d *Dir) Close() kerrno.Code { return kerrno.OK }
