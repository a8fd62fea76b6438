// Package manifest parses a CSV description of a file system's initial
// contents and populates a mounted image from it — an in-module stand-in
// for the external gen-disk.py manifest generator that built the canonical
// read-only test image (disk1.in/disk2.in in the original source tree).
//
// Grounded on the teacher's use of github.com/gocarina/gocsv for
// structured, tagged-field CSV parsing (disks.DiskGeometry).
package manifest

import (
	"os"

	"github.com/gocarina/gocsv"

	terrafs "github.com/adig2208/TerraFS"
)

// Entry describes one file or directory to create when applying a
// manifest. ContentSeed selects a deterministic byte pattern for file
// contents (see generatePattern), mirroring the original C harness's
// generate_pattern helper rather than embedding literal file bytes in CSV.
type Entry struct {
	Path        string `csv:"path"`
	Size        uint32 `csv:"size"`
	Mode        uint16 `csv:"mode"`
	Uid         uint32 `csv:"uid"`
	Gid         uint32 `csv:"gid"`
	ContentSeed uint32 `csv:"seed"`
}

// Load parses a manifest CSV file into a slice of Entry.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	if err := gocsv.UnmarshalFile(f, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// generatePattern fills buf with a repeating deterministic byte sequence
// derived from seed, the same role generate_pattern() plays in the original
// C test harness: reproducible file contents without storing them.
func generatePattern(buf []byte, seed uint32) {
	state := seed
	for i := range buf {
		state = state*1103515245 + 12345
		buf[i] = byte(state >> 16)
	}
}

// Apply creates every entry of entries against fs, in manifest order.
// Directories (Mode carrying the directory bit) are created with Mkdir;
// everything else is created with Create and filled via Write using the
// entry's deterministic content pattern.
func Apply(fs *terrafs.FileSystem, entries []Entry) error {
	for _, e := range entries {
		id := terrafs.Identity{Uid: e.Uid, Gid: e.Gid}
		if e.Mode&terrafs.S_IFDIR != 0 {
			if err := fs.Mkdir(e.Path, e.Mode&^terrafs.S_IFMT, id); err != nil {
				return err
			}
			continue
		}

		if err := fs.Create(e.Path, e.Mode&^terrafs.S_IFMT, id); err != nil {
			return err
		}
		if e.Size == 0 {
			continue
		}
		buf := make([]byte, e.Size)
		generatePattern(buf, e.ContentSeed)
		if _, err := fs.Write(e.Path, buf, 0); err != nil {
			return err
		}
	}
	return nil
}
