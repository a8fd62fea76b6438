// Package blockdev is the block device shim of §4.1: a thin layer over an
// image file (or an in-memory image, for tests) that transfers whole
// 4096-byte blocks by logical block address. It has no knowledge of the
// file system layered on top of it.
//
// Grounded on the teacher's file_systems/common/blockcache package, trimmed
// to fs5600's fixed 4096-byte block size and simple whole-block transfers
// (fs5600 has no variable block size and no caching beyond the device
// itself, per §5).
package blockdev

import (
	"fmt"
	"io"
	"os"

	"github.com/adig2208/TerraFS/internal/ondisk"
	"github.com/xaionaro-go/bytesextra"
)

// Device is the interface the rest of the module consumes. An out-of-range
// LBA is a programmer error, not a file-system error (§4.1): implementations
// panic rather than return an errno for such calls.
type Device interface {
	// ReadBlocks fills buf (a multiple of ondisk.BlockSize) starting at lba.
	ReadBlocks(lba uint32, buf []byte) error
	// WriteBlocks writes buf (a multiple of ondisk.BlockSize) starting at lba.
	WriteBlocks(lba uint32, buf []byte) error
	// TotalBlocks returns the fixed size of the image, in blocks.
	TotalBlocks() uint32
	// Flush persists any OS-level buffering. A no-op for in-memory images.
	Flush() error
}

type streamDevice struct {
	stream      io.ReadWriteSeeker
	totalBlocks uint32
	closer      io.Closer
}

// NewFileDevice opens an existing image file at path for reading and
// writing. The file's size, divided by ondisk.BlockSize, fixes the device's
// block count; any trailing partial block is ignored.
func NewFileDevice(path string) (Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &streamDevice{
		stream:      f,
		totalBlocks: uint32(info.Size() / ondisk.BlockSize),
		closer:      f,
	}, nil
}

// NewMemDevice wraps an in-memory image, primarily for tests and the
// manifest-driven formatter. len(data) must be a multiple of
// ondisk.BlockSize.
func NewMemDevice(data []byte) Device {
	return &streamDevice{
		stream:      bytesextra.NewReadWriteSeeker(data),
		totalBlocks: uint32(len(data) / ondisk.BlockSize),
	}
}

func (d *streamDevice) checkBounds(lba uint32, n int) error {
	if n%ondisk.BlockSize != 0 {
		return fmt.Errorf("buffer length %d is not a multiple of block size %d", n, ondisk.BlockSize)
	}
	blocks := uint32(n / ondisk.BlockSize)
	if lba >= d.totalBlocks || lba+blocks > d.totalBlocks {
		return fmt.Errorf("block range [%d, %d) out of bounds [0, %d)", lba, lba+blocks, d.totalBlocks)
	}
	return nil
}

func (d *streamDevice) seek(lba uint32) error {
	_, err := d.stream.Seek(int64(lba)*ondisk.BlockSize, io.SeekStart)
	return err
}

func (d *streamDevice) ReadBlocks(lba uint32, buf []byte) error {
	if err := d.checkBounds(lba, len(buf)); err != nil {
		panic(err)
	}
	if err := d.seek(lba); err != nil {
		return err
	}
	_, err := io.ReadFull(d.stream, buf)
	return err
}

func (d *streamDevice) WriteBlocks(lba uint32, buf []byte) error {
	if err := d.checkBounds(lba, len(buf)); err != nil {
		panic(err)
	}
	if err := d.seek(lba); err != nil {
		return err
	}
	_, err := d.stream.Write(buf)
	return err
}

func (d *streamDevice) TotalBlocks() uint32 {
	return d.totalBlocks
}

func (d *streamDevice) Flush() error {
	if syncer, ok := d.stream.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}
