package fat16

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ia32os/internal/kerrno"
)

// memDisk is an in-memory BlockDevice fake so the cluster-math and
// directory logic can run under `go test` without touching
// internal/ata or internal/cpu.
type memDisk struct {
	sectors []byte
}

func newMemDisk(nsectors int) *memDisk {
	return &memDisk{sectors: make([]byte, nsectors*SectorSize)}
}

func (m *memDisk) ReadSectors(lba uint32, count int, buf []byte) (int, kerrno.Code) {
	off := int(lba) * SectorSize
	if off+count*SectorSize > len(m.sectors) {
		return 0, kerrno.ErrIO
	}
	copy(buf, m.sectors[off:off+count*SectorSize])
	return count, kerrno.OK
}

func (m *memDisk) WriteSectors(lba uint32, count int, buf []byte) (int, kerrno.Code) {
	off := int(lba) * SectorSize
	if off+count*SectorSize > len(m.sectors) {
		return 0, kerrno.ErrIO
	}
	copy(m.sectors[off:off+count*SectorSize], buf[:count*SectorSize])
	return count, kerrno.OK
}

func putLE16(b []byte, off int, v uint16) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
}

// formatTestVolume builds a minimal valid FAT16 boot sector: 512 bytes
// per sector, 1 sector per cluster, 1 reserved sector, 2 FATs of 1
// sector each, a 16-entry root directory.
func formatTestVolume(totalSectors int) *memDisk {
	d := newMemDisk(totalSectors)
	boot := d.sectors[0:SectorSize]
	putLE16(boot, 11, 512) // BytsPerSec
	boot[13] = 1           // SecPerClus
	putLE16(boot, 14, 1)   // RsvdSecCnt
	boot[16] = 2           // NumFATs
	putLE16(boot, 17, 16)  // RootEntCnt
	putLE16(boot, 19, uint16(totalSectors))
	boot[21] = 0xF8      // Media
	putLE16(boot, 22, 1) // FATSz16
	copy(boot[54:62], []byte("FAT16   "))
	putLE16(boot, mbrSignatureOffset, 0xAA55)
	return d
}

func mustMount(t *testing.T, totalSectors int) *FS {
	t.Helper()
	dev := formatTestVolume(totalSectors)
	fs, code := Mount(dev, 0)
	require.Equal(t, kerrno.OK, code)
	require.NotNil(t, fs)
	return fs
}

func TestMountParsesBPB(t *testing.T) {
	fs := mustMount(t, 20)
	require.EqualValues(t, 512, fs.bytesPerSec)
	require.EqualValues(t, 1, fs.secPerClus)
	require.EqualValues(t, 1, fs.fatStartSector)
	require.EqualValues(t, 3, fs.rootStartSector) // 1 + 2*1
	require.EqualValues(t, 4, fs.dataStartSector) // 3 + ceil(16*32/512)
}

func TestMountRejectsBadSignature(t *testing.T) {
	dev := newMemDisk(4)
	_, code := Mount(dev, 0)
	require.Equal(t, kerrno.ErrInval, code)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	fs := mustMount(t, 20)
	h, code := Open(fs, "HELLO.TXT", OCreat)
	require.Equal(t, kerrno.OK, code)

	msg := []byte("hello, fat16")
	n, code := h.Write(msg)
	require.Equal(t, kerrno.OK, code)
	require.Equal(t, len(msg), n)
	require.Equal(t, kerrno.OK, h.Close())

	h2, code := Open(fs, "HELLO.TXT", 0)
	require.Equal(t, kerrno.OK, code)
	require.EqualValues(t, len(msg), h2.Size)

	buf := make([]byte, len(msg))
	n, code = h2.Read(buf)
	require.Equal(t, kerrno.OK, code)
	require.Equal(t, len(msg), n)
	require.Equal(t, msg, buf)
}

func TestWriteSpanningMultipleClusters(t *testing.T) {
	fs := mustMount(t, 20) // cluster size 512 bytes
	h, code := Open(fs, "BIG.DAT", OCreat)
	require.Equal(t, kerrno.OK, code)

	data := make([]byte, 900)
	for i := range data {
		data[i] = byte(i)
	}
	n, code := h.Write(data)
	require.Equal(t, kerrno.OK, code)
	require.Equal(t, len(data), n)
	require.Equal(t, kerrno.OK, h.Close())

	h2, code := Open(fs, "BIG.DAT", 0)
	require.Equal(t, kerrno.OK, code)
	require.EqualValues(t, len(data), h2.Size)

	readBack := make([]byte, len(data))
	n, code = h2.Read(readBack)
	require.Equal(t, kerrno.OK, code)
	require.Equal(t, len(data), n)
	require.Equal(t, data, readBack)
}

func TestOpenMissingWithoutCreateFails(t *testing.T) {
	fs := mustMount(t, 20)
	_, code := Open(fs, "NOPE.TXT", 0)
	require.Equal(t, kerrno.ErrNotFound, code)
}

func TestTruncateResetsSize(t *testing.T) {
	fs := mustMount(t, 20)
	h, code := Open(fs, "T.TXT", OCreat)
	require.Equal(t, kerrno.OK, code)
	_, code = h.Write([]byte("some content"))
	require.Equal(t, kerrno.OK, code)
	require.Equal(t, kerrno.OK, h.Close())

	h2, code := Open(fs, "T.TXT", OTrunc)
	require.Equal(t, kerrno.OK, code)
	require.EqualValues(t, 0, h2.Size)
}

func TestSeekRejectsNonSetWhence(t *testing.T) {
	fs := mustMount(t, 20)
	h, code := Open(fs, "S.TXT", OCreat)
	require.Equal(t, kerrno.OK, code)
	_, code = h.Seek(0, 1)
	require.Equal(t, kerrno.ErrInval, code)
}

func TestUnlinkFreesChainAndRemovesEntry(t *testing.T) {
	fs := mustMount(t, 20)
	h, code := Open(fs, "DEL.TXT", OCreat)
	require.Equal(t, kerrno.OK, code)
	_, code = h.Write([]byte("bye"))
	require.Equal(t, kerrno.OK, code)
	require.Equal(t, kerrno.OK, h.Close())

	require.Equal(t, kerrno.OK, Unlink(fs, "DEL.TXT"))

	_, code = Open(fs, "DEL.TXT", 0)
	require.Equal(t, kerrno.ErrNotFound, code)
}

func TestReadDirAllListsCreatedFiles(t *testing.T) {
	fs := mustMount(t, 20)
	for _, name := range []string{"A.TXT", "B.TXT"} {
		h, code := Open(fs, name, OCreat)
		require.Equal(t, kerrno.OK, code)
		require.Equal(t, kerrno.OK, h.Close())
	}
	listing, code := fs.ReadDirAll()
	require.Equal(t, kerrno.OK, code)
	require.Len(t, listing, 2)
}
