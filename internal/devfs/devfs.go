// Package devfs resolves "tty0".."tty7" pathnames to device
// major/minor pairs (spec.md §4.9/§4.10): the thin naming layer that
// sits between internal/vfs's path resolution and internal/device's
// major/minor registry, grounded on
// original_source/source/kernel/dev/dev.c's dev_open name-to-id
// lookup table.
package devfs

import (
	"ia32os/internal/device"
	"ia32os/internal/kerrno"
)

const namePrefix = "tty"

// Resolve reports whether path names a tty device and, if so, its
// minor number (0-based virtual terminal index).
func Resolve(path string) (minor int, ok bool) {
	if len(path) <= len(namePrefix) || path[:len(namePrefix)] != namePrefix {
		return 0, false
	}
	digits := path[len(namePrefix):]
	n := 0
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n >= device.MaxMinorsPerMajor {
		return 0, false
	}
	return n, true
}

// Open resolves path and opens the underlying tty device's vtable.
func Open(path string) (*device.VTable, int, kerrno.Code) {
	minor, ok := Resolve(path)
	if !ok {
		return nil, 0, kerrno.ErrBadPath
	}
	vt, code := device.Open(device.MajorTTY, minor)
	return vt, minor, code
}
