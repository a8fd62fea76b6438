// Package testing provides fixtures for exercising a mounted fs5600 image in
// package tests elsewhere in this module, mirroring the teacher's own root
// testing package (CreateRandomImage, CreateDefaultCache): small helpers
// that either return a usable value or fail the test outright.
package testing

import (
	"testing"

	"github.com/stretchr/testify/require"

	terrafs "github.com/adig2208/TerraFS"
	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/format"
	"github.com/adig2208/TerraFS/internal/ondisk"
)

// BuildImage formats a fresh in-memory image of the given size, with a root
// directory of mode 0040777 as in the ROFiles table, and mounts it, failing
// t if either step errors.
func BuildImage(t *testing.T, blocks, inodes uint32) (*terrafs.FileSystem, blockdev.Device) {
	dev := blockdev.NewMemDevice(make([]byte, blocks*ondisk.BlockSize))
	require.NoError(t, format.Format(dev, format.Options{TotalBlocks: blocks, InodeCount: inodes, RootMode: 0040777}))

	fs, err := terrafs.Init(dev)
	require.NoError(t, err)
	return fs, dev
}

// CanonicalBlocks and CanonicalInodes describe the read-only reference image
// enumerated in ROFiles: 400 blocks. Built with this module's layout (64-byte
// inodes, 128-byte directory entries), the ROFiles tree leaves 30 blocks in
// use, not the 45 of the externally generated image.
const (
	CanonicalBlocks = 400
	CanonicalInodes = 64
)

// ROFile is one row of the canonical read-only test image's contents,
// translated from the ro_files[] table in the original C test harness.
// Ctime/Mtime are recorded there but the spec only pins Mtime (ctime tracks
// it); Checksum is the file's CRC32 (0 for directories, which aren't
// checksummed).
type ROFile struct {
	Path     string
	Size     uint32
	Mode     uint16
	Uid      uint32
	Gid      uint32
	Mtime    int64
	Checksum uint32
}

// ROFiles is the canonical read-only test image's full content table.
var ROFiles = []ROFile{
	{"/", 4096, 0040777, 0, 0, 1565283167, 0},
	{"/file.1k", 1000, 0100666, 500, 500, 1565283152, 1726121896},
	{"/file.10", 10, 0100666, 500, 500, 1565283167, 3766980606},
	{"/dir-with-long-name", 4096, 0040777, 0, 0, 1565283167, 0},
	{"/dir-with-long-name/file.12k+", 12289, 0100666, 0, 500, 1565283167, 2781093465},
	{"/dir2", 8192, 0040777, 500, 500, 1565283167, 0},
	{"/dir2/twenty-seven-byte-file-name", 1000, 0100666, 500, 500, 1565283167, 2902524398},
	{"/dir2/file.4k+", 4098, 0100777, 500, 500, 1565283167, 1626046637},
	{"/dir3", 4096, 0040777, 0, 500, 1565283167, 0},
	{"/dir3/subdir", 4096, 0040777, 0, 500, 1565283167, 0},
	{"/dir3/subdir/file.4k-", 4095, 0100666, 500, 500, 1565283167, 2991486384},
	{"/dir3/subdir/file.8k-", 8190, 0100666, 500, 500, 1565283167, 724101859},
	{"/dir3/subdir/file.12k", 12288, 0100666, 500, 500, 1565283167, 1483119748},
	{"/dir3/file.12k-", 12287, 0100777, 0, 500, 1565283167, 1203178000},
	{"/file.8k+", 8195, 0100666, 500, 500, 1565283167, 1217760297},
}
