// Package inodetbl implements the inode table of §4.3: a fixed array of
// inode records held resident in memory for the duration of a mount
// (grounded on the teacher's unixv1 driver, which reads every inode into
// driver.inodes at Mount time) and written back block-by-block on mutation.
package inodetbl

import (
	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/errs"
	"github.com/adig2208/TerraFS/internal/ondisk"
)

// Table is the in-memory inode table for one mounted image.
type Table struct {
	dev      blockdev.Device
	startLBA uint32
	inodes   []ondisk.Inode
}

// Load reads every inode record from the device into memory.
func Load(dev blockdev.Device, startLBA uint32, count uint32) (*Table, error) {
	t := &Table{dev: dev, startLBA: startLBA, inodes: make([]ondisk.Inode, count)}

	blocks := ondisk.InodeBlocks(count)
	buf := make([]byte, blocks*ondisk.BlockSize)
	if err := dev.ReadBlocks(startLBA, buf); err != nil {
		return nil, errs.ErrIOFailed.Wrap(err)
	}

	for i := uint32(0); i < count; i++ {
		offset := i * ondisk.InodeSize
		t.inodes[i] = ondisk.DecodeInode(buf[offset : offset+ondisk.InodeSize])
	}
	return t, nil
}

// Count returns the total number of inode slots in the table.
func (t *Table) Count() uint32 {
	return uint32(len(t.inodes))
}

// Get returns inode number ino. Inode 0 ("no inode") is never valid input.
func (t *Table) Get(ino uint32) (ondisk.Inode, error) {
	if ino == ondisk.NoInode || ino >= uint32(len(t.inodes)) {
		return ondisk.Inode{}, errs.ErrNotFound
	}
	return t.inodes[ino], nil
}

// Store writes in back to both the in-memory table and its backing block.
func (t *Table) Store(ino uint32, in ondisk.Inode) error {
	if ino == ondisk.NoInode || ino >= uint32(len(t.inodes)) {
		return errs.ErrNotFound
	}
	t.inodes[ino] = in
	return t.flushBlockContaining(ino)
}

// Alloc returns the lowest unused inode number (mode == 0), marks it
// allocated with the given mode, and persists it.
func (t *Table) Alloc(mode uint16) (uint32, error) {
	for i := uint32(1); i < uint32(len(t.inodes)); i++ {
		if !t.inodes[i].IsAllocated() {
			t.inodes[i] = ondisk.Inode{Mode: mode}
			if err := t.flushBlockContaining(i); err != nil {
				return 0, err
			}
			return i, nil
		}
	}
	return 0, errs.ErrNoSpaceOnDevice
}

// Free resets an inode slot to unused. Callers must release all of its data
// blocks first (§4.3).
func (t *Table) Free(ino uint32) error {
	if ino == ondisk.NoInode || ino >= uint32(len(t.inodes)) {
		return errs.ErrNotFound
	}
	t.inodes[ino] = ondisk.Inode{}
	return t.flushBlockContaining(ino)
}

// flushBlockContaining writes the whole inode-table block holding ino back
// to the device; inode records are smaller than a block, so a single-inode
// write is always a read-modify-write of the containing block.
func (t *Table) flushBlockContaining(ino uint32) error {
	blockIndex := ino / ondisk.InodesPerBlock
	firstInode := blockIndex * ondisk.InodesPerBlock
	lastInode := firstInode + ondisk.InodesPerBlock
	if lastInode > uint32(len(t.inodes)) {
		lastInode = uint32(len(t.inodes))
	}

	buf := make([]byte, ondisk.BlockSize)
	for i := firstInode; i < lastInode; i++ {
		offset := (i - firstInode) * ondisk.InodeSize
		copy(buf[offset:offset+ondisk.InodeSize], ondisk.EncodeInode(t.inodes[i]))
	}

	if err := t.dev.WriteBlocks(t.startLBA+blockIndex, buf); err != nil {
		return errs.ErrIOFailed.Wrap(err)
	}
	return nil
}
