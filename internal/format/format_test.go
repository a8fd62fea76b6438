package format_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/format"
	"github.com/adig2208/TerraFS/internal/freemap"
	"github.com/adig2208/TerraFS/internal/inodetbl"
	"github.com/adig2208/TerraFS/internal/ondisk"
)

func TestFormatProducesValidSuperblock(t *testing.T) {
	dev := blockdev.NewMemDevice(make([]byte, 64*ondisk.BlockSize))
	require.NoError(t, format.Format(dev, format.Options{TotalBlocks: 64, InodeCount: 16}))

	sbBuf := make([]byte, ondisk.BlockSize)
	require.NoError(t, dev.ReadBlocks(ondisk.SuperblockLBA, sbBuf))
	sb := ondisk.DecodeSuperblock(sbBuf)

	assert.EqualValues(t, ondisk.Magic, sb.Magic)
	assert.EqualValues(t, 64, sb.TotalBlocks)
	assert.EqualValues(t, 16, sb.InodeCount)
	assert.EqualValues(t, ondisk.RootInode, sb.RootInode)
}

func TestFormatCreatesEmptyRootDirectory(t *testing.T) {
	dev := blockdev.NewMemDevice(make([]byte, 64*ondisk.BlockSize))
	require.NoError(t, format.Format(dev, format.Options{TotalBlocks: 64, InodeCount: 16}))

	table, err := inodetbl.Load(dev, ondisk.InodeTableStartLBA, 16)
	require.NoError(t, err)

	root, err := table.Get(ondisk.RootInode)
	require.NoError(t, err)
	assert.True(t, root.IsAllocated())
	assert.EqualValues(t, ondisk.BlockSize, root.Size)
	assert.NotZero(t, root.Direct[0])
}

func TestFormatReservesMetadataBlocksInBitmap(t *testing.T) {
	dev := blockdev.NewMemDevice(make([]byte, 64*ondisk.BlockSize))
	require.NoError(t, format.Format(dev, format.Options{TotalBlocks: 64, InodeCount: 16}))

	bitmapBuf := make([]byte, ondisk.BlockSize)
	require.NoError(t, dev.ReadBlocks(ondisk.BitmapLBA, bitmapBuf))
	fm := freemap.New(bitmapBuf, 64, ondisk.InodeTableStartLBA+ondisk.InodeBlocks(16))

	// Root's data block plus the reserved metadata region are accounted for.
	assert.Less(t, fm.CountFree(), uint32(64))
}

func TestFormatRejectsMismatchedDeviceSize(t *testing.T) {
	dev := blockdev.NewMemDevice(make([]byte, 10*ondisk.BlockSize))
	err := format.Format(dev, format.Options{TotalBlocks: 64, InodeCount: 16})
	assert.Error(t, err)
}
