package fsck_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	terrafs "github.com/adig2208/TerraFS"
	"github.com/adig2208/TerraFS/internal/fsck"
	"github.com/adig2208/TerraFS/internal/ondisk"
	fs5600test "github.com/adig2208/TerraFS/testing"
)

func TestCheckPassesOnFreshlyFormattedImage(t *testing.T) {
	_, dev := fs5600test.BuildImage(t, 64, 16)
	assert.NoError(t, fsck.Check(dev))
}

func TestCheckPassesAfterOrdinaryMutation(t *testing.T) {
	fs, dev := fs5600test.BuildImage(t, 64, 16)
	id := terrafs.Identity{Uid: 500, Gid: 500}
	require.NoError(t, fs.Create("/a", 0100666, id))
	_, err := fs.Write("/a", []byte("hello"), 0)
	require.NoError(t, err)
	require.NoError(t, fs.Mkdir("/d", 0040777, id))

	assert.NoError(t, fsck.Check(dev))
}

func TestCheckFlagsBlockClaimedButNotMarkedUsed(t *testing.T) {
	fs, dev := fs5600test.BuildImage(t, 64, 16)
	id := terrafs.Identity{Uid: 500, Gid: 500}
	require.NoError(t, fs.Create("/a", 0100666, id))
	_, err := fs.Write("/a", []byte("hello"), 0)
	require.NoError(t, err)

	// Corrupt the bitmap directly: clear every bit, so every block the
	// inode table still references now looks unmarked.
	zeroBitmap := make([]byte, ondisk.BlockSize)
	require.NoError(t, dev.WriteBlocks(ondisk.BitmapLBA, zeroBitmap))

	err = fsck.Check(dev)
	assert.Error(t, err)
}
