package fat16

import "ia32os/internal/kerrno"

// bpb holds the BIOS Parameter Block fields fat16 actually needs,
// parsed by walking the dbr_t layout from original_source's fatfs.h
// field-by-field rather than hardcoding byte offsets, so a change in
// field order upstream can't silently desync reader from struct.
type bpb struct {
	bytesPerSec uint16
	secPerClus  uint8
	rsvdSecCnt  uint16
	numFATs     uint8
	rootEntCnt  uint16
	totSec16    uint16
	fatSz16     uint16
	totSec32    uint32
}

func le16At(b []byte, off int) uint16 {
	return uint16(b[off]) | uint16(b[off+1])<<8
}

func le32At(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

// parseBPB decodes sector and checks the FAT16 filesystem-type string,
// following dbr_t: BS_jmpBoot[3], BS_OEMName[8], BPB_BytsPerSec(2),
// BPB_SecPerClus(1), BPB_RsvdSecCnt(2), BPB_NumFATs(1), BPB_RootEntCnt(2),
// BPB_TotSec16(2), BPB_Media(1), BPB_FATSz16(2), BPB_SecPerTrk(2),
// BPB_NumHeads(2), BPB_HiddSec(4), BPB_TotSec32(4), BS_DrvNum(1),
// BS_Reserved1(1), BS_BootSig(1), BS_VolID(4), BS_VolLab[11],
// BS_FilSysType[8].
func parseBPB(sector []byte) (bpb, kerrno.Code) {
	if len(sector) < SectorSize {
		return bpb{}, kerrno.ErrInval
	}
	cur := 3 + 8 // jmpBoot + OEMName
	var out bpb
	out.bytesPerSec = le16At(sector, cur)
	cur += 2
	out.secPerClus = sector[cur]
	cur++
	out.rsvdSecCnt = le16At(sector, cur)
	cur += 2
	out.numFATs = sector[cur]
	cur++
	out.rootEntCnt = le16At(sector, cur)
	cur += 2
	out.totSec16 = le16At(sector, cur)
	cur += 2
	cur++ // Media
	out.fatSz16 = le16At(sector, cur)
	cur += 2
	cur += 2 + 2 + 4 // SecPerTrk, NumHeads, HiddSec
	out.totSec32 = le32At(sector, cur)
	cur += 4
	cur += 1 + 1 + 1 + 4 // DrvNum, Reserved1, BootSig, VolID
	cur += 11            // VolLab
	fsType := string(sector[cur : cur+8])

	sig := le16At(sector, mbrSignatureOffset)
	if sig != 0xAA55 {
		return bpb{}, kerrno.ErrInval
	}
	if out.bytesPerSec == 0 || out.secPerClus == 0 || out.numFATs == 0 {
		return bpb{}, kerrno.ErrInval
	}
	if fsType[:5] != "FAT16" {
		return bpb{}, kerrno.ErrInval
	}
	return out, kerrno.OK
}

const mbrSignatureOffset = 510
