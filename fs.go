package terrafs

import (
	"io"

	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/errs"
	"github.com/adig2208/TerraFS/internal/freemap"
	"github.com/adig2208/TerraFS/internal/inodetbl"
	"github.com/adig2208/TerraFS/internal/ondisk"
	"github.com/sirupsen/logrus"
)

// Identity models the uid/gid a caller is acting as — the Go stand-in for
// FUSE's fuse_get_context(), threaded explicitly into Create and Mkdir
// instead of read from ambient global state.
type Identity struct {
	Uid uint32
	Gid uint32
}

// Stat is the platform-independent attribute record returned by Getattr,
// filled the way the teacher's disko.FileStat is filled, trimmed to the
// fields this file system actually tracks.
type Stat struct {
	Size   uint32
	Mode   uint16
	Uid    uint32
	Gid    uint32
	Nlink  uint32
	Blocks uint32
	Atime  int64
	Mtime  int64
	Ctime  int64
}

// FSStat is returned by Statfs, modeled on struct statvfs (§4.7).
type FSStat struct {
	Bsize   uint32
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Namemax uint32
}

// FileSystem is a single mounted fs5600 image: the block device plus the
// three engines (bitmap, inode table, and the path/directory/file-data
// machinery layered over them) required to service the operation vector.
type FileSystem struct {
	dev    blockdev.Device
	sb     ondisk.Superblock
	free   *freemap.FreeMap
	inodes *inodetbl.Table
	log    *logrus.Logger
}

// newFileSystem wires a FileSystem to a discard logger. Use SetLogger to
// attach one that actually writes somewhere (cmd/fs5600ctl's shell command
// attaches its own logger, which -v raises to debug level).
func newFileSystem() *FileSystem {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &FileSystem{log: logger}
}

// SetLogger replaces the file system's logger. Passing nil is a no-op.
func (fs *FileSystem) SetLogger(logger *logrus.Logger) {
	if logger != nil {
		fs.log = logger
	}
}

// Init mounts dev: it is the Go equivalent of the operation vector's init
// callback (§4.7). It reads the superblock from LBA 0, validates the magic
// number, loads the free-block bitmap, and reads the entire inode table into
// memory. No state survives a mount beyond what's read here and what is
// subsequently written back to dev.
func Init(dev blockdev.Device) (*FileSystem, error) {
	fs := newFileSystem()
	fs.dev = dev

	sbBuf := make([]byte, ondisk.BlockSize)
	if err := dev.ReadBlocks(ondisk.SuperblockLBA, sbBuf); err != nil {
		return nil, errs.ErrIOFailed.Wrap(err)
	}
	sb := ondisk.DecodeSuperblock(sbBuf)
	if sb.Magic != ondisk.Magic {
		return nil, errs.ErrFileSystemCorrupted.WithMessage("bad superblock magic")
	}
	fs.sb = sb

	bitmapBuf := make([]byte, ondisk.BlockSize)
	if err := dev.ReadBlocks(ondisk.BitmapLBA, bitmapBuf); err != nil {
		return nil, errs.ErrIOFailed.Wrap(err)
	}
	fs.free = freemap.New(bitmapBuf, sb.TotalBlocks, sb.FirstDataBlock())

	inodes, err := inodetbl.Load(dev, ondisk.InodeTableStartLBA, sb.InodeCount)
	if err != nil {
		return nil, err
	}
	fs.inodes = inodes

	fs.log.WithFields(logrus.Fields{
		"total_blocks": sb.TotalBlocks,
		"inode_count":  sb.InodeCount,
	}).Debug("mounted fs5600 image")

	return fs, nil
}

// flushBitmap writes the in-memory bitmap back to LBA 1. Every mutating
// engine call in ops.go that can allocate or free a block must call this
// before returning, since internal/freemap only mutates its in-memory copy.
func (fs *FileSystem) flushBitmap() error {
	if err := fs.dev.WriteBlocks(ondisk.BitmapLBA, fs.free.Bytes()); err != nil {
		return errs.ErrIOFailed.Wrap(err)
	}
	return nil
}

func blocksFor(size uint32) uint32 {
	return (size + 511) / 512
}

func statFromInode(in ondisk.Inode) Stat {
	return Stat{
		Size:   in.Size,
		Mode:   in.Mode,
		Uid:    uint32(in.Uid),
		Gid:    uint32(in.Gid),
		Nlink:  1,
		Blocks: blocksFor(in.Size),
		Atime:  int64(in.Mtime),
		Mtime:  int64(in.Mtime),
		Ctime:  int64(in.Ctime),
	}
}
