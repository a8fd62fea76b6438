// Package ondisk defines the on-disk layout of the fs5600 file system:
// block geometry, the superblock, inode records, and directory entries, and
// the binary encoding used to move them to and from a block device.
//
// All multi-byte integers are little-endian. Block 0 holds the superblock,
// block 1 the free-block bitmap, blocks 2..(2+InodeBlocks-1) the inode
// table, and everything after that is data.
package ondisk

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"
)

// BlockSize is the fixed size of every block on an fs5600 image.
const BlockSize = 4096

// Magic identifies an fs5600 superblock.
const Magic = 0xF5600F5

// SuperblockLBA and BitmapLBA are fixed by the on-disk format (§6).
const (
	SuperblockLBA      = 0
	BitmapLBA          = 1
	InodeTableStartLBA = 2
)

// NoInode is the sentinel inode number meaning "no inode" (§3, I7).
const NoInode = 0

// RootInode is the canonical inode number of the root directory.
const RootInode = 1

// NumDirect is the number of direct block pointers stored in an inode. Along
// with one indirect block of PointersPerIndirect entries, this must address
// at least 12288 bytes (three blocks) per §3.
const NumDirect = 6

// PointersPerIndirect is the number of LBAs that fit in one indirect block.
const PointersPerIndirect = BlockSize / 4

// MaxFileBlocks is the largest number of data blocks a file can address.
const MaxFileBlocks = NumDirect + PointersPerIndirect

// InodeSize is the size, in bytes, of one serialized inode record. It evenly
// divides BlockSize so a block holds a whole number of inodes.
const InodeSize = 64

// InodesPerBlock is the number of inode records packed into one block.
const InodesPerBlock = BlockSize / InodeSize

// NameCapacity is the fixed storage width of a directory entry's name field,
// including its NUL terminator (§3). NameMax is the usable portion.
const (
	NameCapacity = 28
	NameMax      = NameCapacity - 1
)

// DirEntrySize is the size, in bytes, of one serialized directory entry.
// 4096 / DirEntrySize is an integer, giving EntriesPerBlock entries per
// directory block (conventionally 32, per §3).
const DirEntrySize = 128

// EntriesPerBlock is the number of directory entries in one directory block.
const EntriesPerBlock = BlockSize / DirEntrySize

// Superblock is the in-memory form of block 0.
type Superblock struct {
	Magic       uint32
	TotalBlocks uint32
	InodeCount  uint32
	RootInode   uint32
}

// InodeBlocks returns the number of blocks the inode table occupies for the
// given inode count.
func InodeBlocks(inodeCount uint32) uint32 {
	return (inodeCount + InodesPerBlock - 1) / InodesPerBlock
}

// FirstDataBlock returns the LBA of the first block available for file and
// directory data, given the superblock's inode count.
func (sb Superblock) FirstDataBlock() uint32 {
	return InodeTableStartLBA + InodeBlocks(sb.InodeCount)
}

// EncodeSuperblock serializes sb into a zero-padded BlockSize buffer.
func EncodeSuperblock(sb Superblock) []byte {
	buf := make([]byte, BlockSize)
	w := bytewriter.New(buf)
	binary.Write(w, binary.LittleEndian, sb.Magic)
	binary.Write(w, binary.LittleEndian, sb.TotalBlocks)
	binary.Write(w, binary.LittleEndian, sb.InodeCount)
	binary.Write(w, binary.LittleEndian, sb.RootInode)
	return buf
}

// DecodeSuperblock reads a Superblock from the first bytes of buf.
func DecodeSuperblock(buf []byte) Superblock {
	r := bytes.NewReader(buf)
	var sb Superblock
	binary.Read(r, binary.LittleEndian, &sb.Magic)
	binary.Read(r, binary.LittleEndian, &sb.TotalBlocks)
	binary.Read(r, binary.LittleEndian, &sb.InodeCount)
	binary.Read(r, binary.LittleEndian, &sb.RootInode)
	return sb
}

// Inode is the in-memory form of one inode record.
//
// Direct holds up to NumDirect data block LBAs; Indirect, if nonzero, is the
// LBA of a block holding up to PointersPerIndirect further LBAs. A zero
// entry anywhere means "no block" (sparse/unallocated).
type Inode struct {
	Mode     uint16
	Uid      uint16
	Gid      uint16
	Ctime    uint32
	Mtime    uint32
	Size     uint32
	Direct   [NumDirect]uint32
	Indirect uint32
}

// IsAllocated reports whether this inode slot is in use. A zero Mode marks a
// free slot (§4.3).
func (in Inode) IsAllocated() bool {
	return in.Mode != 0
}

// EncodeInode serializes in into a zero-padded InodeSize buffer.
func EncodeInode(in Inode) []byte {
	buf := make([]byte, InodeSize)
	w := bytewriter.New(buf)
	binary.Write(w, binary.LittleEndian, in.Mode)
	binary.Write(w, binary.LittleEndian, in.Uid)
	binary.Write(w, binary.LittleEndian, in.Gid)
	binary.Write(w, binary.LittleEndian, in.Ctime)
	binary.Write(w, binary.LittleEndian, in.Mtime)
	binary.Write(w, binary.LittleEndian, in.Size)
	for _, d := range in.Direct {
		binary.Write(w, binary.LittleEndian, d)
	}
	binary.Write(w, binary.LittleEndian, in.Indirect)
	return buf
}

// DecodeInode reads an Inode from the first InodeSize bytes of buf.
func DecodeInode(buf []byte) Inode {
	r := bytes.NewReader(buf)
	var in Inode
	binary.Read(r, binary.LittleEndian, &in.Mode)
	binary.Read(r, binary.LittleEndian, &in.Uid)
	binary.Read(r, binary.LittleEndian, &in.Gid)
	binary.Read(r, binary.LittleEndian, &in.Ctime)
	binary.Read(r, binary.LittleEndian, &in.Mtime)
	binary.Read(r, binary.LittleEndian, &in.Size)
	for i := range in.Direct {
		binary.Read(r, binary.LittleEndian, &in.Direct[i])
	}
	binary.Read(r, binary.LittleEndian, &in.Indirect)
	return in
}

// DirEntry is the in-memory form of one directory entry (§3).
type DirEntry struct {
	Valid bool
	Inode uint32
	Name  string
}

// TruncateName clamps name to NameMax bytes, the silent-truncation rule of
// §4.4.
func TruncateName(name string) string {
	if len(name) > NameMax {
		return name[:NameMax]
	}
	return name
}

// EncodeDirEntry serializes entry into a zero-padded DirEntrySize buffer.
func EncodeDirEntry(entry DirEntry) []byte {
	buf := make([]byte, DirEntrySize)
	if entry.Valid {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint32(buf[4:8], entry.Inode)
	name := TruncateName(entry.Name)
	copy(buf[8:8+NameCapacity], name)
	// buf[8+len(name)] is already 0 (NUL terminator) from zero-init.
	return buf
}

// DecodeDirEntry reads a DirEntry from the first DirEntrySize bytes of buf.
func DecodeDirEntry(buf []byte) DirEntry {
	nameField := buf[8 : 8+NameCapacity]
	end := bytes.IndexByte(nameField, 0)
	if end < 0 {
		end = len(nameField)
	}
	return DirEntry{
		Valid: buf[0] != 0,
		Inode: binary.LittleEndian.Uint32(buf[4:8]),
		Name:  string(nameField[:end]),
	}
}
