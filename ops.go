package terrafs

import (
	"time"

	"github.com/adig2208/TerraFS/internal/dirent"
	"github.com/adig2208/TerraFS/internal/errs"
	"github.com/adig2208/TerraFS/internal/filedata"
	"github.com/adig2208/TerraFS/internal/ondisk"
	"github.com/adig2208/TerraFS/internal/resolve"
)

func isDir(mode uint16) bool { return mode&S_IFDIR != 0 }
func isReg(mode uint16) bool { return mode&S_IFREG != 0 }

// Getattr fills a Stat for path (§4.7 getattr).
func (fs *FileSystem) Getattr(path string) (Stat, error) {
	res, err := resolve.Resolve(fs.dev, fs.inodes, ondisk.RootInode, path)
	if err != nil {
		return Stat{}, err
	}
	in, err := fs.inodes.Get(res.Ino)
	if err != nil {
		return Stat{}, err
	}
	return statFromInode(in), nil
}

// DirFiller receives one directory entry per call during Readdir; it
// returns false to stop iteration early, matching the FUSE filler's
// non-zero-return-stops convention (§4.7 readdir).
type DirFiller func(name string, stat Stat) bool

// Readdir lists path's entries, skipping "." and ".." (neither is ever
// stored, per §4.7).
func (fs *FileSystem) Readdir(path string, filler DirFiller) error {
	res, err := resolve.Resolve(fs.dev, fs.inodes, ondisk.RootInode, path)
	if err != nil {
		return err
	}
	dirInode, err := fs.inodes.Get(res.Ino)
	if err != nil {
		return err
	}
	if !isDir(dirInode.Mode) {
		return errs.ErrNotADirectory
	}

	return dirent.Iterate(fs.dev, &dirInode, func(entry ondisk.DirEntry) (bool, error) {
		if !entry.Valid {
			return true, nil
		}
		childInode, err := fs.inodes.Get(entry.Inode)
		if err != nil {
			return true, nil
		}
		return filler(entry.Name, statFromInode(childInode)), nil
	})
}

// Read copies up to len(buf) bytes of path's data starting at off (§4.7
// read). path must resolve to a regular file.
func (fs *FileSystem) Read(path string, buf []byte, off uint32) (int, error) {
	res, err := resolve.Resolve(fs.dev, fs.inodes, ondisk.RootInode, path)
	if err != nil {
		return 0, err
	}
	in, err := fs.inodes.Get(res.Ino)
	if err != nil {
		return 0, err
	}
	if isDir(in.Mode) {
		return 0, errs.ErrIsADirectory
	}
	return filedata.Read(fs.dev, &in, buf, off)
}

// Write copies buf into path's data starting at off, extending the file and
// allocating blocks as needed (§4.7 write). path must resolve to a regular
// file.
func (fs *FileSystem) Write(path string, buf []byte, off uint32) (int, error) {
	res, err := resolve.Resolve(fs.dev, fs.inodes, ondisk.RootInode, path)
	if err != nil {
		return 0, err
	}
	in, err := fs.inodes.Get(res.Ino)
	if err != nil {
		return 0, err
	}
	if isDir(in.Mode) {
		return 0, errs.ErrIsADirectory
	}

	n, err := filedata.Write(fs.dev, fs.free, &in, buf, off)
	if err != nil {
		return n, err
	}
	if err := fs.flushBitmap(); err != nil {
		return n, err
	}
	in.Mtime = uint32(time.Now().Unix())
	in.Ctime = in.Mtime
	if err := fs.inodes.Store(res.Ino, in); err != nil {
		return n, err
	}
	return n, nil
}

// Create adds a new, empty regular file at path, owned by id (§4.7 create).
func (fs *FileSystem) Create(path string, mode uint16, id Identity) error {
	return fs.createInode(path, mode|S_IFREG, id, 0)
}

// Mkdir adds a new, empty directory at path, owned by id (§4.7 mkdir). One
// data block is allocated and zeroed for it up front.
func (fs *FileSystem) Mkdir(path string, mode uint16, id Identity) error {
	return fs.createInode(path, mode|S_IFDIR, id, ondisk.BlockSize)
}

// createInode is the shared body of Create and Mkdir: resolve the parent,
// reject an existing leaf, allocate an inode, and (for directories) a single
// zeroed data block, then link it into the parent.
func (fs *FileSystem) createInode(path string, mode uint16, id Identity, initialSize uint32) error {
	res, err := resolve.ResolveParent(fs.dev, fs.inodes, ondisk.RootInode, path)
	if err != nil {
		return err
	}
	if res.Ino != ondisk.NoInode {
		return errs.ErrExists
	}

	ino, err := fs.inodes.Alloc(mode)
	if err != nil {
		return err
	}

	in, err := fs.inodes.Get(ino)
	if err != nil {
		return err
	}
	in.Mode = mode
	in.Uid = uint16(id.Uid)
	in.Gid = uint16(id.Gid)
	in.Mtime = uint32(time.Now().Unix())
	in.Ctime = in.Mtime

	if isDir(mode) {
		lba, err := fs.free.Alloc()
		if err != nil {
			fs.inodes.Free(ino)
			return err
		}
		zero := make([]byte, ondisk.BlockSize)
		if err := fs.dev.WriteBlocks(lba, zero); err != nil {
			fs.free.Free(lba)
			fs.inodes.Free(ino)
			return errs.ErrIOFailed.Wrap(err)
		}
		in.Direct[0] = lba
		in.Size = initialSize
		if err := fs.flushBitmap(); err != nil {
			return err
		}
	}

	if err := fs.inodes.Store(ino, in); err != nil {
		return err
	}

	parent, err := fs.inodes.Get(res.ParentIno)
	if err != nil {
		return err
	}
	if err := dirent.InsertGrow(fs.dev, fs.free, &parent, res.Name, ino); err != nil {
		return err
	}
	if err := fs.flushBitmap(); err != nil {
		return err
	}
	return fs.inodes.Store(res.ParentIno, parent)
}

// Unlink removes a regular file at path, releasing its data blocks, its
// inode, and its parent directory entry (§4.7 unlink).
func (fs *FileSystem) Unlink(path string) error {
	res, err := resolve.Resolve(fs.dev, fs.inodes, ondisk.RootInode, path)
	if err != nil {
		return err
	}
	in, err := fs.inodes.Get(res.Ino)
	if err != nil {
		return err
	}
	if isDir(in.Mode) {
		return errs.ErrIsADirectory
	}

	if err := filedata.Truncate0(fs.dev, fs.free, &in); err != nil {
		return err
	}
	if err := fs.inodes.Free(res.Ino); err != nil {
		return err
	}

	parent, err := fs.inodes.Get(res.ParentIno)
	if err != nil {
		return err
	}
	if err := dirent.Remove(fs.dev, &parent, res.Name); err != nil {
		return err
	}
	return fs.flushBitmap()
}

// Rmdir removes an empty directory at path (§4.7 rmdir). The root directory
// can never be removed: a path resolving to it is rejected with -EINVAL.
func (fs *FileSystem) Rmdir(path string) error {
	res, err := resolve.Resolve(fs.dev, fs.inodes, ondisk.RootInode, path)
	if err != nil {
		return err
	}
	if res.Ino == ondisk.RootInode {
		return errs.ErrInvalidArgument.WithMessage("cannot remove the root directory")
	}
	in, err := fs.inodes.Get(res.Ino)
	if err != nil {
		return err
	}
	if !isDir(in.Mode) {
		return errs.ErrNotADirectory
	}

	empty, err := dirent.IsEmpty(fs.dev, &in)
	if err != nil {
		return err
	}
	if !empty {
		return errs.ErrDirectoryNotEmpty
	}

	if err := filedata.Truncate0(fs.dev, fs.free, &in); err != nil {
		return err
	}
	if err := fs.inodes.Free(res.Ino); err != nil {
		return err
	}

	parent, err := fs.inodes.Get(res.ParentIno)
	if err != nil {
		return err
	}
	if err := dirent.Remove(fs.dev, &parent, res.Name); err != nil {
		return err
	}
	return fs.flushBitmap()
}

// Rename moves src to dst within the same directory (§4.7 rename). Renaming
// across directories is rejected with -EINVAL; there is no atomic
// replacement of an existing dst.
func (fs *FileSystem) Rename(src, dst string) error {
	srcRes, err := resolve.Resolve(fs.dev, fs.inodes, ondisk.RootInode, src)
	if err != nil {
		return err
	}

	dstRes, err := resolve.ResolveParent(fs.dev, fs.inodes, ondisk.RootInode, dst)
	if err != nil {
		return err
	}
	if dstRes.Ino != ondisk.NoInode {
		return errs.ErrExists
	}
	if srcRes.ParentIno != dstRes.ParentIno {
		return errs.ErrInvalidArgument.WithMessage("rename is intra-directory only")
	}

	parent, err := fs.inodes.Get(srcRes.ParentIno)
	if err != nil {
		return err
	}
	if err := dirent.Remove(fs.dev, &parent, srcRes.Name); err != nil {
		return err
	}
	if err := dirent.InsertGrow(fs.dev, fs.free, &parent, dstRes.Name, srcRes.Ino); err != nil {
		return err
	}
	return fs.flushBitmap()
}

// Chmod replaces the low twelve permission bits of path's mode, preserving
// the file-type bits (§4.7 chmod).
func (fs *FileSystem) Chmod(path string, mode uint16) error {
	res, err := resolve.Resolve(fs.dev, fs.inodes, ondisk.RootInode, path)
	if err != nil {
		return err
	}
	in, err := fs.inodes.Get(res.Ino)
	if err != nil {
		return err
	}
	in.Mode = (in.Mode &^ ModePermMask) | (mode & ModePermMask)
	return fs.inodes.Store(res.Ino, in)
}

// Utime sets path's mtime (and ctime, which always tracks it) to mtime.
// Size, mode, uid, and gid are unchanged (§4.7 utime).
func (fs *FileSystem) Utime(path string, mtime int64) error {
	res, err := resolve.Resolve(fs.dev, fs.inodes, ondisk.RootInode, path)
	if err != nil {
		return err
	}
	in, err := fs.inodes.Get(res.Ino)
	if err != nil {
		return err
	}
	in.Mtime = uint32(mtime)
	in.Ctime = uint32(mtime)
	return fs.inodes.Store(res.Ino, in)
}

// Truncate implements §4.7's narrowed truncate: only length 0 is accepted.
// Any other requested length is -EINVAL; a directory target is -EISDIR.
// Path errors and -EISDIR take precedence over -EINVAL (§7).
func (fs *FileSystem) Truncate(path string, length uint32) error {
	res, err := resolve.Resolve(fs.dev, fs.inodes, ondisk.RootInode, path)
	if err != nil {
		return err
	}
	in, err := fs.inodes.Get(res.Ino)
	if err != nil {
		return err
	}
	if isDir(in.Mode) {
		return errs.ErrIsADirectory
	}
	if length != 0 {
		return errs.ErrInvalidArgument.WithMessage("only truncation to length 0 is supported")
	}

	if err := filedata.Truncate0(fs.dev, fs.free, &in); err != nil {
		return err
	}
	if err := fs.flushBitmap(); err != nil {
		return err
	}
	return fs.inodes.Store(res.Ino, in)
}

// Statfs reports whole-filesystem statistics (§4.7 statfs).
func (fs *FileSystem) Statfs() (FSStat, error) {
	return FSStat{
		Bsize:   ondisk.BlockSize,
		Blocks:  uint64(fs.sb.TotalBlocks),
		Bfree:   uint64(fs.free.CountFree()),
		Bavail:  uint64(fs.free.CountFree()),
		Namemax: ondisk.NameMax,
	}, nil
}
