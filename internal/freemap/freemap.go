// Package freemap implements the bitmap allocator of §4.2: the free-block
// bitmap that lives at LBA 1, one bit per block. It is grounded on the
// teacher's unixv1 driver and blockcache package, both of which use
// github.com/boljen/go-bitmap to track block usage.
package freemap

import (
	"github.com/adig2208/TerraFS/internal/errs"
	"github.com/adig2208/TerraFS/internal/ondisk"
	"github.com/boljen/go-bitmap"
)

// FreeMap wraps the on-disk bitmap block in memory. Callers are responsible
// for writing Bytes() back to LBA 1 after any mutating call.
type FreeMap struct {
	bm             bitmap.Bitmap
	totalBlocks    uint32
	firstDataBlock uint32
}

// New wraps raw (the exact contents of the bitmap block) as a FreeMap.
// firstDataBlock is the lowest LBA alloc/scan may return; everything below
// it (superblock, bitmap, inode table) is permanently reserved.
func New(raw []byte, totalBlocks, firstDataBlock uint32) *FreeMap {
	return &FreeMap{
		bm:             bitmap.Bitmap(raw),
		totalBlocks:    totalBlocks,
		firstDataBlock: firstDataBlock,
	}
}

// NewEmpty builds a fresh FreeMap of the given size with every reserved
// block (below firstDataBlock) marked used and every data block free. Used
// by the formatter. The backing slice is at least one whole block long, so
// Bytes() can be written straight to LBA 1.
func NewEmpty(totalBlocks, firstDataBlock uint32) *FreeMap {
	size := (int(totalBlocks) + 7) / 8
	if size < ondisk.BlockSize {
		size = ondisk.BlockSize
	}
	fm := &FreeMap{
		bm:             bitmap.Bitmap(make([]byte, size)),
		totalBlocks:    totalBlocks,
		firstDataBlock: firstDataBlock,
	}
	for i := uint32(0); i < firstDataBlock; i++ {
		fm.bm.Set(int(i), true)
	}
	return fm
}

// Bytes returns the raw bitmap block contents, ready to write to LBA 1.
func (fm *FreeMap) Bytes() []byte {
	return fm.bm.Data(false)
}

// IsSet reports whether block i is currently marked in use.
func (fm *FreeMap) IsSet(i uint32) bool {
	return fm.bm.Get(int(i))
}

// MarkUsed force-sets a block as in use, without allocating it through
// Alloc. Used by the formatter to reserve the superblock/bitmap/inode-table
// blocks, and by mount-time consistency checks.
func (fm *FreeMap) MarkUsed(lba uint32) {
	fm.bm.Set(int(lba), true)
}

// Alloc finds the first free data block, in ascending LBA order, marks it
// used, and returns it. Allocation order is load-bearing: §8's "free count
// restored" properties and the bitmap allocator policy note in §9 both
// depend on deterministic first-fit reuse of just-freed blocks.
func (fm *FreeMap) Alloc() (uint32, error) {
	for i := fm.firstDataBlock; i < fm.totalBlocks; i++ {
		if !fm.bm.Get(int(i)) {
			fm.bm.Set(int(i), true)
			return i, nil
		}
	}
	return 0, errs.ErrNoSpaceOnDevice
}

// Free clears the bit for lba. No zeroing of the block's contents is
// required (§4.2).
func (fm *FreeMap) Free(lba uint32) {
	fm.bm.Set(int(lba), false)
}

// CountFree returns the number of unallocated data blocks.
func (fm *FreeMap) CountFree() uint32 {
	free := uint32(0)
	for i := fm.firstDataBlock; i < fm.totalBlocks; i++ {
		if !fm.bm.Get(int(i)) {
			free++
		}
	}
	return free
}

// TotalBlocks returns the size of the image this map covers, in blocks.
func (fm *FreeMap) TotalBlocks() uint32 {
	return fm.totalBlocks
}
