// Package resolve implements the path resolver of §4.4: walking a slash
// separated path one component at a time through the directory engine,
// applying the error-priority rules of §7 (ENOTDIR beats ENOENT; a missing
// non-final component is ENOENT, the path can never be completed).
//
// Grounded on the teacher's basedriver path-walking helpers, generalized to
// fs5600's single fixed directory format.
package resolve

import (
	"strings"

	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/dirent"
	"github.com/adig2208/TerraFS/internal/errs"
	"github.com/adig2208/TerraFS/internal/inodetbl"
	"github.com/adig2208/TerraFS/internal/ondisk"
)

// split breaks path into its non-empty components. Leading/trailing slashes
// and repeated slashes are ignored, matching ordinary POSIX path parsing.
func split(path string) []string {
	raw := strings.Split(path, "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Result is the outcome of resolving a path to its final component.
type Result struct {
	// ParentIno is the inode number of the final component's containing
	// directory.
	ParentIno uint32
	// Name is the final path component (already truncated to NameMax).
	Name string
	// Ino is the inode number the final component names, or 0 if it
	// doesn't exist (only possible from ResolveParent).
	Ino uint32
}

func isDir(in ondisk.Inode) bool {
	return in.Mode&0170000 == 0040000 // S_IFDIR, duplicated here to avoid an import cycle with the root package's flags.go
}

// walk descends from root following every entry of components, returning
// the inode number the last one names. Callers pass every path component
// except the leaf, so the result is the directory that should contain it.
func walk(dev blockdev.Device, inodes *inodetbl.Table, root uint32, components []string) (uint32, error) {
	current := root
	for _, name := range components {
		in, err := inodes.Get(current)
		if err != nil {
			return 0, err
		}
		if !isDir(in) {
			return 0, errs.ErrNotADirectory
		}
		next, err := dirent.Lookup(dev, &in, name)
		if err != nil {
			return 0, err
		}
		current = next
	}
	return current, nil
}

// Resolve walks path from root to its final component, which must exist.
// Returns errs.ErrNotFound if any component (including the leaf) is
// missing, and errs.ErrNotADirectory if a non-final component names a file.
func Resolve(dev blockdev.Device, inodes *inodetbl.Table, root uint32, path string) (Result, error) {
	components := split(path)
	if len(components) == 0 {
		return Result{ParentIno: root, Name: "", Ino: root}, nil
	}

	leaf := ondisk.TruncateName(components[len(components)-1])
	parentIno, err := walk(dev, inodes, root, components[:len(components)-1])
	if err != nil {
		return Result{}, err
	}

	parentInode, err := inodes.Get(parentIno)
	if err != nil {
		return Result{}, err
	}
	if !isDir(parentInode) {
		return Result{}, errs.ErrNotADirectory
	}

	ino, err := dirent.Lookup(dev, &parentInode, leaf)
	if err != nil {
		return Result{}, err
	}
	return Result{ParentIno: parentIno, Name: leaf, Ino: ino}, nil
}

// ResolveParent walks path to the directory that would contain its final
// component, without requiring that component to exist. Used by create and
// mkdir (§4.7), which need the parent directory and a validated leaf name
// but tolerate (indeed expect) the leaf to be absent.
//
// If the leaf already exists, Ino is its inode number and callers must
// decide for themselves whether that is an error (create/mkdir both treat
// it as errs.ErrExists).
func ResolveParent(dev blockdev.Device, inodes *inodetbl.Table, root uint32, path string) (Result, error) {
	components := split(path)
	if len(components) == 0 {
		return Result{}, errs.ErrInvalidArgument.WithMessage("path has no final component")
	}

	leaf := ondisk.TruncateName(components[len(components)-1])
	parentIno, err := walk(dev, inodes, root, components[:len(components)-1])
	if err != nil {
		return Result{}, err
	}

	parentInode, err := inodes.Get(parentIno)
	if err != nil {
		return Result{}, err
	}
	if !isDir(parentInode) {
		return Result{}, errs.ErrNotADirectory
	}

	ino, err := dirent.Lookup(dev, &parentInode, leaf)
	if err != nil {
		if de, ok := err.(errs.DriverError); ok && de.Errno == errs.ErrNotFound.Errno {
			return Result{ParentIno: parentIno, Name: leaf, Ino: 0}, nil
		}
		return Result{}, err
	}
	return Result{ParentIno: parentIno, Name: leaf, Ino: ino}, nil
}
