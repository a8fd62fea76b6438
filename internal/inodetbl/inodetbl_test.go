package inodetbl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/inodetbl"
	"github.com/adig2208/TerraFS/internal/ondisk"
)

func newDevice(t *testing.T, inodeCount uint32) blockdev.Device {
	t.Helper()
	blocks := ondisk.InodeTableStartLBA + ondisk.InodeBlocks(inodeCount)
	return blockdev.NewMemDevice(make([]byte, blocks*ondisk.BlockSize))
}

func TestLoadOfFreshTableIsAllUnallocated(t *testing.T) {
	dev := newDevice(t, 64)
	table, err := inodetbl.Load(dev, ondisk.InodeTableStartLBA, 64)
	require.NoError(t, err)
	assert.EqualValues(t, 64, table.Count())

	in, err := table.Get(1)
	require.NoError(t, err)
	assert.False(t, in.IsAllocated())
}

func TestGetRejectsInodeZeroAndOutOfRange(t *testing.T) {
	dev := newDevice(t, 8)
	table, err := inodetbl.Load(dev, ondisk.InodeTableStartLBA, 8)
	require.NoError(t, err)

	_, err = table.Get(ondisk.NoInode)
	assert.Error(t, err)
	_, err = table.Get(8)
	assert.Error(t, err)
}

func TestAllocReturnsLowestUnusedSlotAndPersists(t *testing.T) {
	dev := newDevice(t, 8)
	table, err := inodetbl.Load(dev, ondisk.InodeTableStartLBA, 8)
	require.NoError(t, err)

	ino, err := table.Alloc(0100666)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ino)

	reloaded, err := inodetbl.Load(dev, ondisk.InodeTableStartLBA, 8)
	require.NoError(t, err)
	in, err := reloaded.Get(ino)
	require.NoError(t, err)
	assert.EqualValues(t, 0100666, in.Mode)
}

func TestFreeMakesSlotReusableByAlloc(t *testing.T) {
	dev := newDevice(t, 4)
	table, err := inodetbl.Load(dev, ondisk.InodeTableStartLBA, 4)
	require.NoError(t, err)

	ino, err := table.Alloc(0100666)
	require.NoError(t, err)
	require.NoError(t, table.Free(ino))

	reused, err := table.Alloc(0040777)
	require.NoError(t, err)
	assert.Equal(t, ino, reused)
}

func TestAllocExhaustionReturnsNoSpace(t *testing.T) {
	dev := newDevice(t, 2)
	table, err := inodetbl.Load(dev, ondisk.InodeTableStartLBA, 2)
	require.NoError(t, err)

	_, err = table.Alloc(0100666)
	require.NoError(t, err)
	_, err = table.Alloc(0100666)
	assert.Error(t, err)
}

func TestStoreUpdatesInPlace(t *testing.T) {
	dev := newDevice(t, 4)
	table, err := inodetbl.Load(dev, ondisk.InodeTableStartLBA, 4)
	require.NoError(t, err)

	ino, err := table.Alloc(0100666)
	require.NoError(t, err)

	in, err := table.Get(ino)
	require.NoError(t, err)
	in.Size = 4096
	require.NoError(t, table.Store(ino, in))

	got, err := table.Get(ino)
	require.NoError(t, err)
	assert.EqualValues(t, 4096, got.Size)
}
