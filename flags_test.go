package terrafs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	terrafs "github.com/adig2208/TerraFS"
)

func TestFileTypeBitsMatchPOSIXValues(t *testing.T) {
	assert.EqualValues(t, 0040000, terrafs.S_IFDIR)
	assert.EqualValues(t, 0100000, terrafs.S_IFREG)
}

func TestModePermMaskExcludesFileTypeBits(t *testing.T) {
	assert.Zero(t, terrafs.ModePermMask&terrafs.S_IFDIR)
	assert.Zero(t, terrafs.ModePermMask&terrafs.S_IFREG)
	assert.EqualValues(t, 0o7777, terrafs.ModePermMask)
}
