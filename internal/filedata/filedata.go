// Package filedata implements the file data engine of §4.6: mapping file
// offsets to block addresses through an inode's direct/indirect map, and the
// read/write/truncate operations built on that map.
//
// Grounded on the teacher's blockcache (block-oriented I/O over
// discontiguous storage) generalized to fs5600's concrete two-level map, and
// on disko's ResizeCallback discipline of zeroing newly-allocated blocks
// before exposing them.
package filedata

import (
	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/errs"
	"github.com/adig2208/TerraFS/internal/freemap"
	"github.com/adig2208/TerraFS/internal/ondisk"
)

// MapBlock returns the LBA backing block index blockIndex within in, or 0 if
// that offset is sparse (unallocated). dev is used only to fetch the
// indirect block, if any.
func MapBlock(dev blockdev.Device, in *ondisk.Inode, blockIndex uint32) (uint32, error) {
	if blockIndex < ondisk.NumDirect {
		return in.Direct[blockIndex], nil
	}

	indirectIndex := blockIndex - ondisk.NumDirect
	if indirectIndex >= ondisk.PointersPerIndirect {
		return 0, errs.ErrInvalidArgument.WithMessage("offset exceeds file size limit")
	}
	if in.Indirect == 0 {
		return 0, nil
	}

	buf := make([]byte, ondisk.BlockSize)
	if err := dev.ReadBlocks(in.Indirect, buf); err != nil {
		return 0, errs.ErrIOFailed.Wrap(err)
	}
	return readLBA(buf, indirectIndex), nil
}

func readLBA(buf []byte, index uint32) uint32 {
	offset := index * 4
	return uint32(buf[offset]) | uint32(buf[offset+1])<<8 |
		uint32(buf[offset+2])<<16 | uint32(buf[offset+3])<<24
}

func writeLBA(buf []byte, index uint32, lba uint32) {
	offset := index * 4
	buf[offset] = byte(lba)
	buf[offset+1] = byte(lba >> 8)
	buf[offset+2] = byte(lba >> 16)
	buf[offset+3] = byte(lba >> 24)
}

// Read copies up to len(buf) bytes of in's data starting at off into buf,
// clamped to the file's size, and returns the number of bytes delivered.
// Sparse blocks read back as zero (§4.6).
func Read(dev blockdev.Device, in *ondisk.Inode, buf []byte, off uint32) (int, error) {
	if off >= in.Size {
		return 0, nil
	}
	length := uint32(len(buf))
	if off+length > in.Size {
		length = in.Size - off
	}

	delivered := uint32(0)
	block := make([]byte, ondisk.BlockSize)
	for delivered < length {
		absOffset := off + delivered
		blockIndex := absOffset / ondisk.BlockSize
		blockOff := absOffset % ondisk.BlockSize
		chunk := ondisk.BlockSize - blockOff
		if remaining := length - delivered; chunk > remaining {
			chunk = remaining
		}

		lba, err := MapBlock(dev, in, blockIndex)
		if err != nil {
			return int(delivered), err
		}
		if lba == 0 {
			for i := uint32(0); i < chunk; i++ {
				buf[delivered+i] = 0
			}
		} else {
			if err := dev.ReadBlocks(lba, block); err != nil {
				return int(delivered), errs.ErrIOFailed.Wrap(err)
			}
			copy(buf[delivered:delivered+chunk], block[blockOff:blockOff+chunk])
		}
		delivered += chunk
	}
	return int(delivered), nil
}

// loadIndirect fetches in's indirect block, allocating and zeroing one first
// if it doesn't exist yet (§4.6, §9 indirect-block laziness).
func loadIndirect(dev blockdev.Device, fm *freemap.FreeMap, in *ondisk.Inode) ([]byte, error) {
	buf := make([]byte, ondisk.BlockSize)
	if in.Indirect == 0 {
		lba, err := fm.Alloc()
		if err != nil {
			return nil, err
		}
		if err := dev.WriteBlocks(lba, buf); err != nil {
			fm.Free(lba)
			return nil, errs.ErrIOFailed.Wrap(err)
		}
		in.Indirect = lba
		return buf, nil
	}
	if err := dev.ReadBlocks(in.Indirect, buf); err != nil {
		return nil, errs.ErrIOFailed.Wrap(err)
	}
	return buf, nil
}

// ensureBlock returns the LBA backing blockIndex, allocating (and
// zero-filling) one if it doesn't exist yet, and installing it in the
// direct array or indirect block as appropriate.
func ensureBlock(dev blockdev.Device, fm *freemap.FreeMap, in *ondisk.Inode, blockIndex uint32) (uint32, error) {
	if blockIndex < ondisk.NumDirect {
		if in.Direct[blockIndex] != 0 {
			return in.Direct[blockIndex], nil
		}
		lba, err := fm.Alloc()
		if err != nil {
			return 0, err
		}
		zero := make([]byte, ondisk.BlockSize)
		if err := dev.WriteBlocks(lba, zero); err != nil {
			fm.Free(lba)
			return 0, errs.ErrIOFailed.Wrap(err)
		}
		in.Direct[blockIndex] = lba
		return lba, nil
	}

	indirectIndex := blockIndex - ondisk.NumDirect
	if indirectIndex >= ondisk.PointersPerIndirect {
		return 0, errs.ErrInvalidArgument.WithMessage("offset exceeds file size limit")
	}

	indirectBuf, err := loadIndirect(dev, fm, in)
	if err != nil {
		return 0, err
	}
	if lba := readLBA(indirectBuf, indirectIndex); lba != 0 {
		return lba, nil
	}

	lba, err := fm.Alloc()
	if err != nil {
		return 0, err
	}
	zero := make([]byte, ondisk.BlockSize)
	if err := dev.WriteBlocks(lba, zero); err != nil {
		fm.Free(lba)
		return 0, errs.ErrIOFailed.Wrap(err)
	}
	writeLBA(indirectBuf, indirectIndex, lba)
	if err := dev.WriteBlocks(in.Indirect, indirectBuf); err != nil {
		return 0, errs.ErrIOFailed.Wrap(err)
	}
	return lba, nil
}

// Write copies buf into in's data starting at off, allocating blocks as
// needed, and extends in.Size when off+len(buf) exceeds it (§4.6). It does
// not set Mtime/Ctime; the caller (the operation vector) owns timestamps.
func Write(dev blockdev.Device, fm *freemap.FreeMap, in *ondisk.Inode, buf []byte, off uint32) (int, error) {
	length := uint32(len(buf))
	written := uint32(0)
	block := make([]byte, ondisk.BlockSize)

	for written < length {
		absOffset := off + written
		blockIndex := absOffset / ondisk.BlockSize
		blockOff := absOffset % ondisk.BlockSize
		chunk := ondisk.BlockSize - blockOff
		if remaining := length - written; chunk > remaining {
			chunk = remaining
		}

		lba, err := ensureBlock(dev, fm, in, blockIndex)
		if err != nil {
			return int(written), err
		}

		if chunk != ondisk.BlockSize {
			if err := dev.ReadBlocks(lba, block); err != nil {
				return int(written), errs.ErrIOFailed.Wrap(err)
			}
		}
		copy(block[blockOff:blockOff+chunk], buf[written:written+chunk])
		if err := dev.WriteBlocks(lba, block); err != nil {
			return int(written), errs.ErrIOFailed.Wrap(err)
		}
		written += chunk
	}

	if off+length > in.Size {
		in.Size = off + length
	}
	return int(written), nil
}

// Truncate0 releases every block referenced by in (direct, indirect entries,
// and the indirect block itself) and resets its size and block map to
// empty. Only length == 0 is supported by the specification (§4.6).
func Truncate0(dev blockdev.Device, fm *freemap.FreeMap, in *ondisk.Inode) error {
	for i := range in.Direct {
		if in.Direct[i] != 0 {
			fm.Free(in.Direct[i])
			in.Direct[i] = 0
		}
	}

	if in.Indirect != 0 {
		buf := make([]byte, ondisk.BlockSize)
		if err := dev.ReadBlocks(in.Indirect, buf); err == nil {
			for i := uint32(0); i < ondisk.PointersPerIndirect; i++ {
				if lba := readLBA(buf, i); lba != 0 {
					fm.Free(lba)
				}
			}
		}
		fm.Free(in.Indirect)
		in.Indirect = 0
	}

	in.Size = 0
	return nil
}
