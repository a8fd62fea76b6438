// Package format builds a fresh fs5600 image: a superblock, a free-block
// bitmap with the metadata region reserved, a zeroed inode table, and a
// single-block, empty root directory at RootInode.
//
// Grounded on the teacher's file_systems/unixv1/format.go, which writes a
// superblock and zeroed inode table to a freshly sized device in exactly
// this sequence.
package format

import (
	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/errs"
	"github.com/adig2208/TerraFS/internal/freemap"
	"github.com/adig2208/TerraFS/internal/ondisk"
)

// Options configures a new image.
type Options struct {
	TotalBlocks uint32
	InodeCount  uint32
	RootMode    uint16
}

// DefaultRootMode is the mode a freshly formatted root directory gets if
// Options.RootMode is left zero: a directory, world-readable and
// world-traversable, writable by its owner.
const DefaultRootMode = 0040755

// Format writes a complete, empty file system to dev, which must already be
// sized to opts.TotalBlocks blocks.
func Format(dev blockdev.Device, opts Options) error {
	if dev.TotalBlocks() != opts.TotalBlocks {
		return errs.ErrInvalidArgument.WithMessage("device size does not match requested block count")
	}

	rootMode := opts.RootMode
	if rootMode == 0 {
		rootMode = DefaultRootMode
	}

	sb := ondisk.Superblock{
		Magic:       ondisk.Magic,
		TotalBlocks: opts.TotalBlocks,
		InodeCount:  opts.InodeCount,
		RootInode:   ondisk.RootInode,
	}
	firstData := sb.FirstDataBlock()

	fm := freemap.NewEmpty(opts.TotalBlocks, firstData)

	rootBlockLBA, err := fm.Alloc()
	if err != nil {
		return err
	}

	root := ondisk.Inode{
		Mode: rootMode,
		Size: ondisk.BlockSize,
	}
	root.Direct[0] = rootBlockLBA

	inodeBlocks := ondisk.InodeBlocks(opts.InodeCount)
	inodeBuf := make([]byte, inodeBlocks*ondisk.BlockSize)
	copy(inodeBuf[ondisk.RootInode*ondisk.InodeSize:], ondisk.EncodeInode(root))

	if err := dev.WriteBlocks(ondisk.SuperblockLBA, ondisk.EncodeSuperblock(sb)); err != nil {
		return errs.ErrIOFailed.Wrap(err)
	}
	if err := dev.WriteBlocks(ondisk.BitmapLBA, fm.Bytes()); err != nil {
		return errs.ErrIOFailed.Wrap(err)
	}
	if err := dev.WriteBlocks(ondisk.InodeTableStartLBA, inodeBuf); err != nil {
		return errs.ErrIOFailed.Wrap(err)
	}

	emptyBlock := make([]byte, ondisk.BlockSize)
	if err := dev.WriteBlocks(rootBlockLBA, emptyBlock); err != nil {
		return errs.ErrIOFailed.Wrap(err)
	}

	return dev.Flush()
}
