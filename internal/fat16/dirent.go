package fat16

import "ia32os/internal/kerrno"

// dirEntry is the 32-byte on-disk directory entry (diritem_t in
// original_source/include/fs/fatfs/fatfs.h): 8.3 name, attribute byte,
// timestamps (not decoded, and written as zero — spec.md §4.7 names no
// real-time clock), starting cluster split hi/lo, and file size.
type dirEntry struct {
	name      [8]byte
	ext       [3]byte
	attr      byte
	fstClusHI uint16
	fstClusLO uint16
	fileSize  uint32
}

func decodeDirEntry(b []byte) dirEntry {
	var d dirEntry
	copy(d.name[:], b[0:8])
	copy(d.ext[:], b[8:11])
	d.attr = b[11]
	d.fstClusHI = le16At(b, 20)
	d.fstClusLO = le16At(b, 26)
	d.fileSize = le32At(b, 28)
	return d
}

func encodeDirEntry(d dirEntry) [DirEntrySize]byte {
	var b [DirEntrySize]byte
	copy(b[0:8], d.name[:])
	copy(b[8:11], d.ext[:])
	b[11] = d.attr
	b[20] = byte(d.fstClusHI)
	b[21] = byte(d.fstClusHI >> 8)
	b[26] = byte(d.fstClusLO)
	b[27] = byte(d.fstClusLO >> 8)
	b[28] = byte(d.fileSize)
	b[29] = byte(d.fileSize >> 8)
	b[30] = byte(d.fileSize >> 16)
	b[31] = byte(d.fileSize >> 24)
	return b
}

func (d dirEntry) firstCluster() uint16 {
	return d.fstClusLO
}

func (d dirEntry) isFree() bool { return d.name[0] == DirNameFree }
func (d dirEntry) isEnd() bool  { return d.name[0] == DirNameEnd }
func (d dirEntry) isDir() bool  { return d.attr&AttrDirectory != 0 }

// to83 converts "README.TXT" into the space-padded 8.3 name/ext pair
// FAT16 stores on disk. Names longer than 8 or extensions longer than
// 3 are rejected — spec.md §4.7 Non-goals excludes VFAT long names.
func to83(path string) ([8]byte, [3]byte, kerrno.Code) {
	var name [8]byte
	var ext [3]byte
	for i := range name {
		name[i] = ' '
	}
	for i := range ext {
		ext[i] = ' '
	}
	base := path
	dot := -1
	for i, c := range path {
		if c == '.' {
			dot = i
		}
	}
	extPart := ""
	if dot >= 0 {
		base = path[:dot]
		extPart = path[dot+1:]
	}
	if len(base) == 0 || len(base) > 8 || len(extPart) > 3 {
		return name, ext, kerrno.ErrBadPath
	}
	for i := 0; i < len(base); i++ {
		name[i] = upperByte(base[i])
	}
	for i := 0; i < len(extPart); i++ {
		ext[i] = upperByte(extPart[i])
	}
	return name, ext, kerrno.OK
}

func upperByte(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// rootDirSlot finds the directory-entry index matching name in the
// root directory (ia32os has no subdirectories — spec.md §4.7
// Non-goals), returning ErrNotFound if absent.
func (fs *FS) rootDirSlot(name83 [8]byte, ext83 [3]byte) (int, dirEntry, kerrno.Code) {
	var sector [SectorSize]byte
	entriesPerSector := int(fs.bytesPerSec) / DirEntrySize
	total := int(fs.rootEntCnt)
	for base := 0; base < total; base += entriesPerSector {
		sec := fs.rootStartSector + uint32(base/entriesPerSector)
		if code := fs.readSectors(sec, 1, sector[:]); kerrno.IsErr(code) {
			return -1, dirEntry{}, code
		}
		lim := entriesPerSector
		if base+lim > total {
			lim = total - base
		}
		for i := 0; i < lim; i++ {
			off := i * DirEntrySize
			d := decodeDirEntry(sector[off : off+DirEntrySize])
			if d.isEnd() {
				return -1, dirEntry{}, kerrno.ErrNotFound
			}
			if d.isFree() || d.attr&AttrLongName == AttrLongName {
				continue
			}
			if d.name == name83 && d.ext == ext83 {
				return base + i, d, kerrno.OK
			}
		}
	}
	return -1, dirEntry{}, kerrno.ErrNotFound
}

// rootDirFreeSlot finds the first free-or-end entry index available
// for a new file, extending the scan to the terminating 0x00 entry.
func (fs *FS) rootDirFreeSlot() (int, kerrno.Code) {
	var sector [SectorSize]byte
	entriesPerSector := int(fs.bytesPerSec) / DirEntrySize
	total := int(fs.rootEntCnt)
	for base := 0; base < total; base += entriesPerSector {
		sec := fs.rootStartSector + uint32(base/entriesPerSector)
		if code := fs.readSectors(sec, 1, sector[:]); kerrno.IsErr(code) {
			return -1, code
		}
		lim := entriesPerSector
		if base+lim > total {
			lim = total - base
		}
		for i := 0; i < lim; i++ {
			off := i * DirEntrySize
			d := decodeDirEntry(sector[off : off+DirEntrySize])
			if d.isFree() || d.isEnd() {
				return base + i, kerrno.OK
			}
		}
	}
	return -1, kerrno.ErrNoSpace
}

func (fs *FS) readDirEntryAt(index int) (dirEntry, kerrno.Code) {
	entriesPerSector := int(fs.bytesPerSec) / DirEntrySize
	sec := fs.rootStartSector + uint32(index/entriesPerSector)
	var sector [SectorSize]byte
	if code := fs.readSectors(sec, 1, sector[:]); kerrno.IsErr(code) {
		return dirEntry{}, code
	}
	off := (index % entriesPerSector) * DirEntrySize
	return decodeDirEntry(sector[off : off+DirEntrySize]), kerrno.OK
}

func (fs *FS) writeDirEntryAt(index int, d dirEntry) kerrno.Code {
	entriesPerSector := int(fs.bytesPerSec) / DirEntrySize
	sec := fs.rootStartSector + uint32(index/entriesPerSector)
	var sector [SectorSize]byte
	if code := fs.readSectors(sec, 1, sector[:]); kerrno.IsErr(code) {
		return code
	}
	off := (index % entriesPerSector) * DirEntrySize
	enc := encodeDirEntry(d)
	copy(sector[off:off+DirEntrySize], enc[:])
	return fs.writeSectors(sec, 1, sector[:])
}

// DirListing is one entry in a directory scan (spec.md §4.10 readdir).
type DirListing struct {
	Name  string
	IsDir bool
	Size  uint32
}

// ReadDirAll returns every live entry in the root directory, in
// on-disk order, for the opendir/readdir/closedir trio (spec.md
// §4.10) — ia32os keeps the whole small root table in one pass rather
// than a streaming cursor, since the root table's size (the BPB's
// root entry count) is fixed at format time.
func (fs *FS) ReadDirAll() ([]DirListing, kerrno.Code) {
	var out []DirListing
	var sector [SectorSize]byte
	entriesPerSector := int(fs.bytesPerSec) / DirEntrySize
	total := int(fs.rootEntCnt)
	for base := 0; base < total; base += entriesPerSector {
		sec := fs.rootStartSector + uint32(base/entriesPerSector)
		if code := fs.readSectors(sec, 1, sector[:]); kerrno.IsErr(code) {
			return nil, code
		}
		lim := entriesPerSector
		if base+lim > total {
			lim = total - base
		}
		for i := 0; i < lim; i++ {
			off := i * DirEntrySize
			d := decodeDirEntry(sector[off : off+DirEntrySize])
			if d.isEnd() {
				return out, kerrno.OK
			}
			if d.isFree() || d.attr&AttrLongName == AttrLongName || d.attr&AttrVolumeID != 0 {
				continue
			}
			out = append(out, DirListing{Name: from83(d), IsDir: d.isDir(), Size: d.fileSize})
		}
	}
	return out, kerrno.OK
}

func from83(d dirEntry) string {
	name := trimSpaces(d.name[:])
	ext := trimSpaces(d.ext[:])
	if ext == "" {
		return name
	}
	return name + "." + ext
}

func trimSpaces(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}
