package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adig2208/TerraFS/internal/manifest"
	fs5600test "github.com/adig2208/TerraFS/testing"
)

const sampleManifest = `path,size,mode,uid,gid,seed
/dA,0,16877,0,0,0
/dA/greeting,13,33206,500,500,42
`

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))
	return path
}

func TestLoadParsesEntries(t *testing.T) {
	path := writeManifest(t)
	entries, err := manifest.Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/dA", entries[0].Path)
	assert.Equal(t, "/dA/greeting", entries[1].Path)
	assert.EqualValues(t, 13, entries[1].Size)
	assert.EqualValues(t, 500, entries[1].Uid)
}

func TestApplyCreatesDirectoriesAndFiles(t *testing.T) {
	path := writeManifest(t)
	entries, err := manifest.Load(path)
	require.NoError(t, err)

	fs, _ := fs5600test.BuildImage(t, fs5600test.CanonicalBlocks, fs5600test.CanonicalInodes)
	require.NoError(t, manifest.Apply(fs, entries))

	st, err := fs.Getattr("/dA")
	require.NoError(t, err)
	assert.EqualValues(t, 16877, st.Mode)

	st, err = fs.Getattr("/dA/greeting")
	require.NoError(t, err)
	assert.EqualValues(t, 13, st.Size)
}
