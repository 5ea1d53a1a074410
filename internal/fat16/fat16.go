// Package fat16 is the FAT16 filesystem engine (spec.md §4.7):
// mount, cluster chain walk/alloc/free, directory-entry lookup, and
// chunked file read/write. Grounded on
// original_source/source/kernel/fs/fatfs/fatfs.c and
// .../include/fs/fatfs/fatfs.h for the exact on-disk layout (spec.md
// treats the on-disk format as an external collaborator, so the field
// layout is taken from the original rather than guessed).
package fat16

import (
	"ia32os/internal/kerrno"
)

const (
	SectorSize = 512

	// Cluster numbering (original_source fatfs.h).
	ClusterFree    = 0x0000
	ClusterInvalid = 0xFFF8 // >= this is end-of-chain / reserved
	FirstDataCluster = 2

	DirEntrySize = 32
	ShortNameLen = 11

	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID

	DirNameFree = 0xE5
	DirNameEnd  = 0x00
)

// BlockDevice is the minimal surface fat16 needs of a disk: LBA
// sector read/write returning the count actually transferred, exactly
// internal/ata.Controller's shape. Kept as an interface so the
// cluster-math and directory logic can be exercised by a hosted test
// with an in-memory fake, without linking internal/cpu's go:linkname
// declarations.
type BlockDevice interface {
	ReadSectors(lba uint32, count int, buf []byte) (int, kerrno.Code)
	WriteSectors(lba uint32, count int, buf []byte) (int, kerrno.Code)
}

// FS is one mounted FAT16 volume.
type FS struct {
	dev          BlockDevice
	partStart    uint32 // partition's starting LBA on the underlying device

	bytesPerSec uint16
	secPerClus  uint8
	rsvdSecCnt  uint16
	numFATs     uint8
	rootEntCnt  uint16
	fatSz16     uint16

	fatStartSector  uint32 // relative to partStart
	rootStartSector uint32
	dataStartSector uint32
	clusterByteSize uint32

	fatBuffer        [SectorSize]byte
	currentFATSector int64 // -1 == nothing cached

	// No internal lock: fat16 is only ever driven from a syscall
	// handler, and the syscall gateway (internal/irq) runs one
	// syscall to completion before dispatching the next, so
	// concurrent fat16 calls never occur. Keeping this package free
	// of internal/task (and so internal/cpu) keeps it hosted-testable.
}

// Mount reads the BPB from the partition starting at partitionStartLBA
// on dev and validates the FAT16 signature (spec.md §4.7).
func Mount(dev BlockDevice, partitionStartLBA uint32) (*FS, kerrno.Code) {
	var sector [SectorSize]byte
	n, code := dev.ReadSectors(partitionStartLBA, 1, sector[:])
	if kerrno.IsErr(code) || n != 1 {
		return nil, kerrno.ErrIO
	}
	bpb, code := parseBPB(sector[:])
	if kerrno.IsErr(code) {
		return nil, code
	}
	fs := &FS{
		dev:         dev,
		partStart:   partitionStartLBA,
		bytesPerSec: bpb.bytesPerSec,
		secPerClus:  bpb.secPerClus,
		rsvdSecCnt:  bpb.rsvdSecCnt,
		numFATs:     bpb.numFATs,
		rootEntCnt:  bpb.rootEntCnt,
		fatSz16:     bpb.fatSz16,
		currentFATSector: -1,
	}
	fs.fatStartSector = uint32(bpb.rsvdSecCnt)
	rootSectors := (uint32(bpb.rootEntCnt)*DirEntrySize + uint32(bpb.bytesPerSec) - 1) / uint32(bpb.bytesPerSec)
	fs.rootStartSector = fs.fatStartSector + uint32(bpb.numFATs)*uint32(bpb.fatSz16)
	fs.dataStartSector = fs.rootStartSector + rootSectors
	fs.clusterByteSize = uint32(bpb.secPerClus) * uint32(bpb.bytesPerSec)
	return fs, kerrno.OK
}

func (fs *FS) readSectors(relLBA uint32, count int, buf []byte) kerrno.Code {
	n, code := fs.dev.ReadSectors(fs.partStart+relLBA, count, buf)
	if kerrno.IsErr(code) || n != count {
		return kerrno.ErrIO
	}
	return kerrno.OK
}

func (fs *FS) writeSectors(relLBA uint32, count int, buf []byte) kerrno.Code {
	n, code := fs.dev.WriteSectors(fs.partStart+relLBA, count, buf)
	if kerrno.IsErr(code) || n != count {
		return kerrno.ErrIO
	}
	return kerrno.OK
}

// clusterToSector returns the data-region sector where cluster begins.
func (fs *FS) clusterToSector(cluster uint16) uint32 {
	return fs.dataStartSector + uint32(cluster-FirstDataCluster)*uint32(fs.secPerClus)
}

// getNext returns the FAT entry for cluster (the next cluster in the
// chain, or a value >= ClusterInvalid at end-of-chain). Uses the
// single-sector "current_sector" memo the way the source does.
func (fs *FS) getNext(cluster uint16) (uint16, kerrno.Code) {
	byteOff := uint32(cluster) * 2
	sector := int64(fs.fatStartSector) + int64(byteOff/uint32(fs.bytesPerSec))
	if sector != fs.currentFATSector {
		if code := fs.readSectors(uint32(sector), 1, fs.fatBuffer[:]); kerrno.IsErr(code) {
			return 0, code
		}
		fs.currentFATSector = sector
	}
	off := byteOff % uint32(fs.bytesPerSec)
	return uint16(fs.fatBuffer[off]) | uint16(fs.fatBuffer[off+1])<<8, kerrno.OK
}

// setNext writes value as the FAT entry for cluster, mirrored to every
// FAT copy (spec.md §4.7: "writes are mirrored to all FAT copies").
func (fs *FS) setNext(cluster uint16, value uint16) kerrno.Code {
	byteOff := uint32(cluster) * 2
	sectorInFAT := byteOff / uint32(fs.bytesPerSec)
	off := byteOff % uint32(fs.bytesPerSec)
	sector := int64(fs.fatStartSector) + int64(sectorInFAT)
	if sector != fs.currentFATSector {
		if code := fs.readSectors(uint32(sector), 1, fs.fatBuffer[:]); kerrno.IsErr(code) {
			return code
		}
		fs.currentFATSector = sector
	}
	fs.fatBuffer[off] = byte(value)
	fs.fatBuffer[off+1] = byte(value >> 8)
	for copyIdx := uint32(0); copyIdx < uint32(fs.numFATs); copyIdx++ {
		dst := fs.fatStartSector + copyIdx*uint32(fs.fatSz16) + sectorInFAT
		if code := fs.writeSectors(dst, 1, fs.fatBuffer[:]); kerrno.IsErr(code) {
			return code
		}
	}
	return kerrno.OK
}

// allocFree picks the first n free clusters (scanning from
// FirstDataCluster upward), chains them together and terminates the
// run, and returns the chain head-to-tail. Returns ErrNoSpace if fewer
// than n free clusters exist.
func (fs *FS) allocFree(n int) ([]uint16, kerrno.Code) {
	if n <= 0 {
		return nil, kerrno.ErrInval
	}
	maxCluster := uint16(ClusterInvalid - 1)
	var found []uint16
	for c := uint16(FirstDataCluster); c < maxCluster && len(found) < n; c++ {
		v, code := fs.getNext(c)
		if kerrno.IsErr(code) {
			return nil, code
		}
		if v == ClusterFree {
			found = append(found, c)
		}
	}
	if len(found) < n {
		return nil, kerrno.ErrNoSpace
	}
	for i := 0; i < len(found)-1; i++ {
		if code := fs.setNext(found[i], found[i+1]); kerrno.IsErr(code) {
			return nil, code
		}
	}
	if code := fs.setNext(found[len(found)-1], ClusterInvalid); kerrno.IsErr(code) {
		return nil, code
	}
	return found, kerrno.OK
}

// freeChain walks the chain starting at start and clears every
// cluster's FAT entry to ClusterFree.
func (fs *FS) freeChain(start uint16) kerrno.Code {
	cluster := start
	for cluster != 0 && cluster < ClusterInvalid {
		next, code := fs.getNext(cluster)
		if kerrno.IsErr(code) {
			return code
		}
		if code := fs.setNext(cluster, ClusterFree); kerrno.IsErr(code) {
			return code
		}
		cluster = next
	}
	return kerrno.OK
}
