// Package dirent implements the directory engine of §4.5: lookup, insertion,
// removal, and iteration over the fixed-width directory entries held in a
// directory inode's data blocks.
//
// Grounded on the teacher's drivers/unixv6 dirents.go, which scans a
// directory's blocks for fixed-size records in exactly this way; the entry
// layout itself is ondisk.DirEntry.
package dirent

import (
	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/errs"
	"github.com/adig2208/TerraFS/internal/filedata"
	"github.com/adig2208/TerraFS/internal/freemap"
	"github.com/adig2208/TerraFS/internal/ondisk"
)

// blockCount returns the number of directory blocks currently mapped by in,
// derived from its byte size per the Open Question resolution in §5 of
// SPEC_FULL.md: a directory's size is always an exact multiple of
// BlockSize, one entry per slot, no partial blocks.
func blockCount(in *ondisk.Inode) uint32 {
	return in.Size / ondisk.BlockSize
}

// Lookup scans dir for an entry named name, returning its inode number, or
// errs.ErrNotFound if no such entry exists.
func Lookup(dev blockdev.Device, in *ondisk.Inode, name string) (uint32, error) {
	name = ondisk.TruncateName(name)
	found := uint32(0)
	err := Iterate(dev, in, func(entry ondisk.DirEntry) (bool, error) {
		if entry.Valid && entry.Name == name {
			found = entry.Inode
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	if found == ondisk.NoInode {
		return 0, errs.ErrNotFound
	}
	return found, nil
}

// Iterate calls visit once per slot (valid or not) across every block
// currently mapped by dir, in block-then-slot order, stopping early if visit
// returns false.
func Iterate(dev blockdev.Device, dir *ondisk.Inode, visit func(ondisk.DirEntry) (bool, error)) error {
	blocks := blockCount(dir)
	block := make([]byte, ondisk.BlockSize)
	for b := uint32(0); b < blocks; b++ {
		lba, err := filedata.MapBlock(dev, dir, b)
		if err != nil {
			return err
		}
		if lba == 0 {
			continue
		}
		if err := dev.ReadBlocks(lba, block); err != nil {
			return errs.ErrIOFailed.Wrap(err)
		}
		for s := uint32(0); s < ondisk.EntriesPerBlock; s++ {
			offset := s * ondisk.DirEntrySize
			entry := ondisk.DecodeDirEntry(block[offset : offset+ondisk.DirEntrySize])
			cont, err := visit(entry)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
	}
	return nil
}

// IsEmpty reports whether dir has no valid entries at all (not even "."
// or ".."; callers that reserve those slots must account for them
// themselves per §4.5).
func IsEmpty(dev blockdev.Device, dir *ondisk.Inode) (bool, error) {
	empty := true
	err := Iterate(dev, dir, func(entry ondisk.DirEntry) (bool, error) {
		if entry.Valid {
			empty = false
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return empty, nil
}

// Insert adds a (name -> ino) mapping to dir's first free slot. It returns
// errs.ErrExists if name is already present, and errs.ErrNoSpaceOnDevice if
// every currently-mapped block is full; per the Open Question resolution in
// §5, Insert never grows a directory into a new block itself.
func Insert(dev blockdev.Device, dir *ondisk.Inode, name string, ino uint32) error {
	name = ondisk.TruncateName(name)
	if _, err := Lookup(dev, dir, name); err == nil {
		return errs.ErrExists
	} else if de, ok := err.(errs.DriverError); !ok || de.Errno != errs.ErrNotFound.Errno {
		return err
	}
	blocks := blockCount(dir)
	block := make([]byte, ondisk.BlockSize)

	for b := uint32(0); b < blocks; b++ {
		lba, err := filedata.MapBlock(dev, dir, b)
		if err != nil {
			return err
		}
		if lba == 0 {
			continue
		}
		if err := dev.ReadBlocks(lba, block); err != nil {
			return errs.ErrIOFailed.Wrap(err)
		}

		freeSlot := -1
		for s := uint32(0); s < ondisk.EntriesPerBlock; s++ {
			offset := s * ondisk.DirEntrySize
			entry := ondisk.DecodeDirEntry(block[offset : offset+ondisk.DirEntrySize])
			if entry.Valid {
				if entry.Name == name {
					return errs.ErrExists
				}
				continue
			}
			if freeSlot < 0 {
				freeSlot = int(s)
			}
		}

		if freeSlot >= 0 {
			offset := uint32(freeSlot) * ondisk.DirEntrySize
			copy(block[offset:offset+ondisk.DirEntrySize],
				ondisk.EncodeDirEntry(ondisk.DirEntry{Valid: true, Inode: ino, Name: name}))
			if err := dev.WriteBlocks(lba, block); err != nil {
				return errs.ErrIOFailed.Wrap(err)
			}
			return nil
		}
	}

	return errs.ErrNoSpaceOnDevice.WithMessage("directory block is full")
}

// InsertGrow behaves like Insert, but if every block currently mapped by dir
// is full, it allocates one additional directory block through the
// file-data engine's block-map machinery and retries once, per the
// directory-growth resolution in SPEC_FULL.md §5. mtime/ctime are the
// caller's responsibility.
func InsertGrow(dev blockdev.Device, fm *freemap.FreeMap, dir *ondisk.Inode, name string, ino uint32) error {
	err := Insert(dev, dir, name, ino)
	if err == nil {
		return nil
	}
	de, ok := err.(errs.DriverError)
	if !ok || de.Errno != errs.ErrNoSpaceOnDevice.Errno {
		return err
	}

	blank := make([]byte, ondisk.BlockSize)
	if _, writeErr := filedata.Write(dev, fm, dir, blank, dir.Size); writeErr != nil {
		return writeErr
	}
	return Insert(dev, dir, name, ino)
}

// Remove clears the entry named name from dir, leaving its slot free for
// reuse by a later Insert. Returns errs.ErrNotFound if name is absent.
func Remove(dev blockdev.Device, dir *ondisk.Inode, name string) error {
	name = ondisk.TruncateName(name)
	blocks := blockCount(dir)
	block := make([]byte, ondisk.BlockSize)

	for b := uint32(0); b < blocks; b++ {
		lba, err := filedata.MapBlock(dev, dir, b)
		if err != nil {
			return err
		}
		if lba == 0 {
			continue
		}
		if err := dev.ReadBlocks(lba, block); err != nil {
			return errs.ErrIOFailed.Wrap(err)
		}

		for s := uint32(0); s < ondisk.EntriesPerBlock; s++ {
			offset := s * ondisk.DirEntrySize
			entry := ondisk.DecodeDirEntry(block[offset : offset+ondisk.DirEntrySize])
			if entry.Valid && entry.Name == name {
				clear := make([]byte, ondisk.DirEntrySize)
				copy(block[offset:offset+ondisk.DirEntrySize], clear)
				if err := dev.WriteBlocks(lba, block); err != nil {
					return errs.ErrIOFailed.Wrap(err)
				}
				return nil
			}
		}
	}

	return errs.ErrNotFound
}
