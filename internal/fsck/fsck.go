// Package fsck walks a mounted image and reports every invariant violation
// it finds, rather than stopping at the first one — a natural fit for
// github.com/hashicorp/go-multierror's accumulating Error type, which the
// teacher's pack otherwise has no consumer for.
package fsck

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/dirent"
	"github.com/adig2208/TerraFS/internal/ondisk"
)

// Check inspects dev (already holding a formatted image) for:
//   - I1: every allocated inode's blocks are marked used in the bitmap.
//   - I2: no data block is referenced by more than one inode.
//   - I3: every directory entry's inode number is either NoInode or an
//     allocated inode.
//
// It returns a *multierror.Error (nil if empty) so the caller can decide
// whether zero violations means a clean exit.
func Check(dev blockdev.Device) error {
	sbBuf := make([]byte, ondisk.BlockSize)
	if err := dev.ReadBlocks(ondisk.SuperblockLBA, sbBuf); err != nil {
		return fmt.Errorf("reading superblock: %w", err)
	}
	sb := ondisk.DecodeSuperblock(sbBuf)
	if sb.Magic != ondisk.Magic {
		return fmt.Errorf("bad superblock magic %#x", sb.Magic)
	}

	bitmapBuf := make([]byte, ondisk.BlockSize)
	if err := dev.ReadBlocks(ondisk.BitmapLBA, bitmapBuf); err != nil {
		return fmt.Errorf("reading bitmap: %w", err)
	}

	var result *multierror.Error
	seen := make(map[uint32]uint32) // lba -> owning inode, to catch double-claims (I2)

	inodeBlocks := ondisk.InodeBlocks(sb.InodeCount)
	inodeBuf := make([]byte, inodeBlocks*ondisk.BlockSize)
	if err := dev.ReadBlocks(ondisk.InodeTableStartLBA, inodeBuf); err != nil {
		return fmt.Errorf("reading inode table: %w", err)
	}

	for i := uint32(0); i < sb.InodeCount; i++ {
		offset := i * ondisk.InodeSize
		in := ondisk.DecodeInode(inodeBuf[offset : offset+ondisk.InodeSize])
		if !in.IsAllocated() {
			continue
		}

		for _, lba := range in.Direct {
			if lba == 0 {
				continue
			}
			checkBlock(lba, i, bitmapBuf, seen, &result)
		}
		if in.Indirect != 0 {
			checkBlock(in.Indirect, i, bitmapBuf, seen, &result)

			indBuf := make([]byte, ondisk.BlockSize)
			if err := dev.ReadBlocks(in.Indirect, indBuf); err == nil {
				for p := uint32(0); p < ondisk.PointersPerIndirect; p++ {
					lba := readLBA(indBuf, p)
					if lba != 0 {
						checkBlock(lba, i, bitmapBuf, seen, &result)
					}
				}
			}
		}

		if in.Mode&0040000 != 0 { // S_IFDIR, duplicated locally to avoid importing the root package's flags
			checkDirEntries(dev, in, inodeBuf, sb.InodeCount, &result)
		}
	}

	return result.ErrorOrNil()
}

func readLBA(buf []byte, index uint32) uint32 {
	offset := index * 4
	return uint32(buf[offset]) | uint32(buf[offset+1])<<8 |
		uint32(buf[offset+2])<<16 | uint32(buf[offset+3])<<24
}

func bitSet(bitmapBuf []byte, lba uint32) bool {
	return bitmapBuf[lba/8]&(1<<(lba%8)) != 0
}

func checkBlock(lba, owner uint32, bitmapBuf []byte, seen map[uint32]uint32, result **multierror.Error) {
	if !bitSet(bitmapBuf, lba) {
		*result = multierror.Append(*result,
			fmt.Errorf("block %d referenced by inode %d is not marked used in the bitmap", lba, owner))
	}
	if prior, ok := seen[lba]; ok && prior != owner {
		*result = multierror.Append(*result,
			fmt.Errorf("block %d is claimed by both inode %d and inode %d", lba, prior, owner))
	}
	seen[lba] = owner
}

func checkDirEntries(dev blockdev.Device, dir ondisk.Inode, inodeBuf []byte, inodeCount uint32, result **multierror.Error) {
	err := dirent.Iterate(dev, &dir, func(entry ondisk.DirEntry) (bool, error) {
		if !entry.Valid || entry.Inode == ondisk.NoInode {
			return true, nil
		}
		if entry.Inode >= inodeCount {
			*result = multierror.Append(*result,
				fmt.Errorf("directory entry %q names out-of-range inode %d", entry.Name, entry.Inode))
			return true, nil
		}
		offset := entry.Inode * ondisk.InodeSize
		if !ondisk.DecodeInode(inodeBuf[offset : offset+ondisk.InodeSize]).IsAllocated() {
			*result = multierror.Append(*result,
				fmt.Errorf("directory entry %q names unallocated inode %d", entry.Name, entry.Inode))
		}
		return true, nil
	})
	if err != nil {
		*result = multierror.Append(*result, fmt.Errorf("walking directory entries: %w", err))
	}
}
