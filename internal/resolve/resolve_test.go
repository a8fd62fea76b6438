package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/dirent"
	"github.com/adig2208/TerraFS/internal/errs"
	"github.com/adig2208/TerraFS/internal/filedata"
	"github.com/adig2208/TerraFS/internal/freemap"
	"github.com/adig2208/TerraFS/internal/inodetbl"
	"github.com/adig2208/TerraFS/internal/ondisk"
	"github.com/adig2208/TerraFS/internal/resolve"
)

// fixture builds: root (1) containing "sub" (dir, ino 2) containing "leaf"
// (file, ino 3); root also directly contains "top" (file, ino 4).
func newFixture(t *testing.T) (blockdev.Device, *inodetbl.Table) {
	t.Helper()
	const totalBlocks = 20
	const inodeCount = 8
	dev := blockdev.NewMemDevice(make([]byte, totalBlocks*ondisk.BlockSize))
	fm := freemap.NewEmpty(totalBlocks, ondisk.InodeTableStartLBA+ondisk.InodeBlocks(inodeCount))

	table, err := inodetbl.Load(dev, ondisk.InodeTableStartLBA, inodeCount)
	require.NoError(t, err)

	mkdirInode := func(ino uint32) *ondisk.Inode {
		in := &ondisk.Inode{Mode: 0040777}
		blank := make([]byte, ondisk.BlockSize)
		_, err := filedata.Write(dev, fm, in, blank, 0)
		require.NoError(t, err)
		require.NoError(t, table.Store(ino, *in))
		return in
	}

	root := mkdirInode(ondisk.RootInode)
	_ = table.Store(ondisk.RootInode, *root)

	sub := mkdirInode(2)
	require.NoError(t, dirent.Insert(dev, root, "sub", 2))
	require.NoError(t, table.Store(ondisk.RootInode, *root))
	require.NoError(t, table.Store(2, *sub))

	leaf, err := table.Get(3)
	require.NoError(t, err)
	leaf.Mode = 0100666
	require.NoError(t, table.Store(3, leaf))
	require.NoError(t, dirent.Insert(dev, sub, "leaf", 3))
	require.NoError(t, table.Store(2, *sub))

	top, err := table.Get(4)
	require.NoError(t, err)
	top.Mode = 0100666
	require.NoError(t, table.Store(4, top))
	require.NoError(t, dirent.Insert(dev, root, "top", 4))
	require.NoError(t, table.Store(ondisk.RootInode, *root))

	return dev, table
}

func TestResolveNestedPath(t *testing.T) {
	dev, table := newFixture(t)
	res, err := resolve.Resolve(dev, table, ondisk.RootInode, "/sub/leaf")
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.ParentIno)
	assert.Equal(t, "leaf", res.Name)
	assert.EqualValues(t, 3, res.Ino)
}

func TestResolveTopLevelPath(t *testing.T) {
	dev, table := newFixture(t)
	res, err := resolve.Resolve(dev, table, ondisk.RootInode, "/top")
	require.NoError(t, err)
	assert.EqualValues(t, ondisk.RootInode, res.ParentIno)
	assert.EqualValues(t, 4, res.Ino)
}

func TestResolveMissingLeafIsNotFound(t *testing.T) {
	dev, table := newFixture(t)
	_, err := resolve.Resolve(dev, table, ondisk.RootInode, "/missing")
	de, ok := err.(errs.DriverError)
	require.True(t, ok)
	assert.Equal(t, errs.ErrNotFound.Errno, de.Errno)
}

func TestResolveNonDirectoryInMiddleOfPathIsNotADirectory(t *testing.T) {
	dev, table := newFixture(t)
	_, err := resolve.Resolve(dev, table, ondisk.RootInode, "/top/file")
	de, ok := err.(errs.DriverError)
	require.True(t, ok)
	assert.Equal(t, errs.ErrNotADirectory.Errno, de.Errno)
}

func TestResolveMissingNonFinalComponentIsNotFound(t *testing.T) {
	dev, table := newFixture(t)
	_, err := resolve.Resolve(dev, table, ondisk.RootInode, "/nope/file")
	de, ok := err.(errs.DriverError)
	require.True(t, ok)
	assert.Equal(t, errs.ErrNotFound.Errno, de.Errno)
}

func TestResolveParentToleratesMissingLeaf(t *testing.T) {
	dev, table := newFixture(t)
	res, err := resolve.ResolveParent(dev, table, ondisk.RootInode, "/sub/newfile")
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.ParentIno)
	assert.EqualValues(t, 0, res.Ino)
	assert.Equal(t, "newfile", res.Name)
}

func TestResolveParentReportsExistingLeaf(t *testing.T) {
	dev, table := newFixture(t)
	res, err := resolve.ResolveParent(dev, table, ondisk.RootInode, "/sub/leaf")
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Ino)
}

func TestResolveParentTruncatesLongNames(t *testing.T) {
	dev, table := newFixture(t)
	longName := "this-name-is-definitely-longer-than-27-bytes"
	res, err := resolve.ResolveParent(dev, table, ondisk.RootInode, "/"+longName)
	require.NoError(t, err)
	assert.Equal(t, longName[:ondisk.NameMax], res.Name)
}
