package fat16

import "ia32os/internal/kerrno"

// Open flags, matching spec.md §4.10's vfs-level flags; fat16 only
// needs to know about create/truncate.
const (
	OCreat = 1 << 0
	OTrunc = 1 << 1
)

// Handle is one open FAT16 file. vfs.OpenFile embeds or references one
// per spec.md §3's per-process fd table entry.
type Handle struct {
	fs           *FS
	dirIndex     int
	firstCluster uint16
	curCluster   uint16 // cluster containing byte Pos (0 if Pos==Size==0 and no clusters allocated)
	curClusStart uint32 // file-byte offset where curCluster begins
	Pos          uint32
	Size         uint32
	dirty        bool
}

// Open looks up name in the root directory and returns a Handle.
// With OCreat, a missing file is created; with OTrunc, an existing
// file's cluster chain is freed and its size reset to zero — exactly
// spec.md §4.10's open() semantics.
func Open(fs *FS, name string, flags int) (*Handle, kerrno.Code) {
	name83, ext83, code := to83(name)
	if kerrno.IsErr(code) {
		return nil, code
	}
	idx, d, code := fs.rootDirSlot(name83, ext83)
	if code == kerrno.ErrNotFound {
		if flags&OCreat == 0 {
			return nil, kerrno.ErrNotFound
		}
		freeIdx, code := fs.rootDirFreeSlot()
		if kerrno.IsErr(code) {
			return nil, code
		}
		d = dirEntry{name: name83, ext: ext83, attr: AttrArchive}
		if code := fs.writeDirEntryAt(freeIdx, d); kerrno.IsErr(code) {
			return nil, code
		}
		idx = freeIdx
	} else if kerrno.IsErr(code) {
		return nil, code
	}

	h := &Handle{fs: fs, dirIndex: idx, firstCluster: d.firstCluster(), Size: d.fileSize}
	h.curCluster = h.firstCluster
	h.curClusStart = 0

	if flags&OTrunc != 0 && h.firstCluster != 0 {
		if code := fs.freeChain(h.firstCluster); kerrno.IsErr(code) {
			return nil, code
		}
		h.firstCluster = 0
		h.curCluster = 0
		h.Size = 0
		h.dirty = true
	}
	return h, kerrno.OK
}

// seekToClusterFor repositions h.curCluster/h.curClusStart so that the
// cluster containing byte offset target is current, walking the chain
// forward from the current cluster, or from the first cluster when
// target lies behind it — this engine never walks a FAT16 chain
// backward.
func (h *Handle) seekToClusterFor(target uint32) kerrno.Code {
	if target < h.curClusStart {
		h.curCluster = h.firstCluster
		h.curClusStart = 0
	}
	clusterBytes := h.fs.clusterByteSize
	for h.curClusStart+clusterBytes <= target {
		if h.curCluster == 0 || h.curCluster >= ClusterInvalid {
			return kerrno.ErrIO
		}
		next, code := h.fs.getNext(h.curCluster)
		if kerrno.IsErr(code) {
			return code
		}
		h.curCluster = next
		h.curClusStart += clusterBytes
	}
	return kerrno.OK
}

// Read copies up to len(buf) bytes starting at h.Pos into buf,
// clamped to the file's Size, and advances Pos.
func (h *Handle) Read(buf []byte) (int, kerrno.Code) {
	if h.Pos >= h.Size || len(buf) == 0 {
		return 0, kerrno.OK
	}
	want := uint32(len(buf))
	if remain := h.Size - h.Pos; want > remain {
		want = remain
	}
	var total uint32
	clusterBytes := h.fs.clusterByteSize
	var sector [SectorSize]byte
	secPerClus := uint32(h.fs.secPerClus)
	for total < want {
		if code := h.seekToClusterFor(h.Pos); kerrno.IsErr(code) {
			return int(total), code
		}
		inCluster := h.Pos - h.curClusStart
		clusterLBA := h.fs.clusterToSector(h.curCluster)
		secIdx := inCluster / uint32(h.fs.bytesPerSec)
		secOff := inCluster % uint32(h.fs.bytesPerSec)
		if secIdx >= secPerClus {
			return int(total), kerrno.ErrIO
		}
		if code := h.fs.readSectors(clusterLBA+secIdx, 1, sector[:]); kerrno.IsErr(code) {
			return int(total), code
		}
		n := uint32(h.fs.bytesPerSec) - secOff
		if remaining := want - total; n > remaining {
			n = remaining
		}
		if tail := clusterBytes - inCluster; n > tail {
			n = tail
		}
		copy(buf[total:total+n], sector[secOff:secOff+n])
		total += n
		h.Pos += n
	}
	return int(total), kerrno.OK
}

// Write copies buf into the file starting at h.Pos, allocating new
// clusters as needed. It works one sector at a time: a chunk covering
// less than a whole sector reads that sector first and merges into it,
// a whole-sector chunk is written without a pre-read, and a brand new
// cluster is never zero-filled before the first write into it.
func (h *Handle) Write(buf []byte) (int, kerrno.Code) {
	if len(buf) == 0 {
		return 0, kerrno.OK
	}
	clusterBytes := h.fs.clusterByteSize
	secPerClus := uint32(h.fs.secPerClus)
	var total uint32
	want := uint32(len(buf))
	var sector [SectorSize]byte

	for total < want {
		if h.firstCluster == 0 {
			chain, code := h.fs.allocFree(1)
			if kerrno.IsErr(code) {
				return int(total), code
			}
			h.firstCluster = chain[0]
			h.curCluster = chain[0]
			h.curClusStart = 0
		}
		if code := h.seekToClusterForWrite(h.Pos); kerrno.IsErr(code) {
			return int(total), code
		}
		inCluster := h.Pos - h.curClusStart
		clusterLBA := h.fs.clusterToSector(h.curCluster)
		secIdx := inCluster / uint32(h.fs.bytesPerSec)
		secOff := inCluster % uint32(h.fs.bytesPerSec)
		if secIdx >= secPerClus {
			return int(total), kerrno.ErrIO
		}
		n := uint32(h.fs.bytesPerSec) - secOff
		if remaining := want - total; n > remaining {
			n = remaining
		}
		if tail := clusterBytes - inCluster; n > tail {
			n = tail
		}
		if n < uint32(h.fs.bytesPerSec) {
			if code := h.fs.readSectors(clusterLBA+secIdx, 1, sector[:]); kerrno.IsErr(code) {
				return int(total), code
			}
		}
		copy(sector[secOff:secOff+n], buf[total:total+n])
		if code := h.fs.writeSectors(clusterLBA+secIdx, 1, sector[:]); kerrno.IsErr(code) {
			return int(total), code
		}
		total += n
		h.Pos += n
		if h.Pos > h.Size {
			h.Size = h.Pos
			h.dirty = true
		}
	}
	return int(total), kerrno.OK
}

// seekToClusterForWrite is seekToClusterFor but allocates a fresh
// cluster and appends it to the chain when the walk runs off the end
// (the write path extends the file; the read path never does).
func (h *Handle) seekToClusterForWrite(target uint32) kerrno.Code {
	if target < h.curClusStart {
		h.curCluster = h.firstCluster
		h.curClusStart = 0
	}
	clusterBytes := h.fs.clusterByteSize
	for h.curClusStart+clusterBytes <= target {
		next, code := h.fs.getNext(h.curCluster)
		if kerrno.IsErr(code) {
			return code
		}
		if next == 0 || next >= ClusterInvalid {
			chain, code := h.fs.allocFree(1)
			if kerrno.IsErr(code) {
				return code
			}
			if code := h.fs.setNext(h.curCluster, chain[0]); kerrno.IsErr(code) {
				return code
			}
			next = chain[0]
		}
		h.curCluster = next
		h.curClusStart += clusterBytes
	}
	return kerrno.OK
}

// Seek repositions Pos. Only SEEK_SET (whence == 0) is supported, per
// the Open Question decision recorded in SPEC_FULL.md.
func (h *Handle) Seek(offset int64, whence int) (uint32, kerrno.Code) {
	if whence != 0 {
		return h.Pos, kerrno.ErrInval
	}
	if offset < 0 {
		return h.Pos, kerrno.ErrInval
	}
	h.Pos = uint32(offset)
	return h.Pos, kerrno.OK
}

// Close flushes the directory entry's size/start-cluster fields if the
// file was written to.
func (h *Handle) Close() kerrno.Code {
	if !h.dirty {
		return kerrno.OK
	}
	d, code := h.fs.readDirEntryAt(h.dirIndex)
	if kerrno.IsErr(code) {
		return code
	}
	d.fstClusLO = h.firstCluster
	d.fileSize = h.Size
	if code := h.fs.writeDirEntryAt(h.dirIndex, d); kerrno.IsErr(code) {
		return code
	}
	h.dirty = false
	return kerrno.OK
}

// Unlink removes name from the root directory and frees its cluster
// chain (spec.md §4.10).
func Unlink(fs *FS, name string) kerrno.Code {
	name83, ext83, code := to83(name)
	if kerrno.IsErr(code) {
		return code
	}
	idx, d, code := fs.rootDirSlot(name83, ext83)
	if kerrno.IsErr(code) {
		return code
	}
	if d.firstCluster() != 0 {
		if code := fs.freeChain(d.firstCluster()); kerrno.IsErr(code) {
			return code
		}
	}
	d.name[0] = DirNameFree
	return fs.writeDirEntryAt(idx, d)
}
