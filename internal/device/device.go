// Package device is the major/minor device registry (spec.md §4.12):
// a small table mapping (major, minor) to a capability vtable plus an
// open-count, grounded on original_source/source/kernel/dev/dev.c.
// Represented as the capability-set spec.md §9 calls for ("Device and
// fs vtables ... represent as a capability set {open, read, write,
// close, seek, stat, ioctl, opendir, readdir, closedir, unlink}"),
// narrowed here to the subset an actual character device (the tty
// layer) uses; block devices (the ATA disk) are driven directly by
// internal/fat16 and never go through this registry, matching the
// source where disk_t is used only by fatfs, never exposed through
// dev.c's major/minor table.
package device

import "ia32os/internal/kerrno"

const (
	MajorTTY = 1

	MaxMinorsPerMajor = 8
)

// VTable is the operation set a character device implements.
type VTable struct {
	Open    func(minor int) kerrno.Code
	Read    func(minor int, buf []byte) (int, kerrno.Code)
	Write   func(minor int, buf []byte) (int, kerrno.Code)
	Close   func(minor int) kerrno.Code
	Control func(minor int, cmd int, arg int) kerrno.Code
}

type slot struct {
	vt        *VTable
	openCount int
	present   bool
}

var table [MaxMinorsPerMajor + 1][MaxMinorsPerMajor]slot // indexed [major][minor]

// Register installs vt as the handler for (major, minor). Called once
// per virtual terminal during internal/tty's bring-up.
func Register(major, minor int, vt *VTable) kerrno.Code {
	if major < 0 || major > MaxMinorsPerMajor || minor < 0 || minor >= MaxMinorsPerMajor {
		return kerrno.ErrInval
	}
	table[major][minor] = slot{vt: vt, present: true}
	return kerrno.OK
}

func lookup(major, minor int) *slot {
	if major < 0 || major > MaxMinorsPerMajor || minor < 0 || minor >= MaxMinorsPerMajor {
		return nil
	}
	s := &table[major][minor]
	if !s.present {
		return nil
	}
	return s
}

// Open increments the device's open count and returns its vtable.
func Open(major, minor int) (*VTable, kerrno.Code) {
	s := lookup(major, minor)
	if s == nil {
		return nil, kerrno.ErrBadPath
	}
	if code := s.vt.Open(minor); kerrno.IsErr(code) {
		return nil, code
	}
	s.openCount++
	return s.vt, kerrno.OK
}

// Close decrements the device's open count and, on last close, calls
// its Close hook.
func Close(major, minor int) kerrno.Code {
	s := lookup(major, minor)
	if s == nil {
		return kerrno.ErrBadPath
	}
	if s.openCount > 0 {
		s.openCount--
	}
	if s.openCount == 0 {
		return s.vt.Close(minor)
	}
	return kerrno.OK
}

// OpenCount reports how many descriptors currently reference (major, minor).
func OpenCount(major, minor int) int {
	s := lookup(major, minor)
	if s == nil {
		return 0
	}
	return s.openCount
}
