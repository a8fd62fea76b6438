package terrafs

import "github.com/adig2208/TerraFS/internal/errs"

// DriverError is a wrapper around a POSIX errno code, with an optional
// descriptive message. It is the single error type returned by every engine
// in this module; operation-vector methods unwrap it to a negative int at
// the very last step before returning to the caller.
//
// The concrete type lives in internal/errs so engine packages can use it
// without importing this package (which in turn imports them).
type DriverError = errs.DriverError

// Errno codes used by the operations in §4.7 of the specification, named the
// way the POSIX manual names them.
var (
	ErrNotFound            = errs.ErrNotFound
	ErrNotADirectory       = errs.ErrNotADirectory
	ErrIsADirectory        = errs.ErrIsADirectory
	ErrExists              = errs.ErrExists
	ErrInvalidArgument     = errs.ErrInvalidArgument
	ErrDirectoryNotEmpty   = errs.ErrDirectoryNotEmpty
	ErrNoSpaceOnDevice     = errs.ErrNoSpaceOnDevice
	ErrFileSystemCorrupted = errs.ErrFileSystemCorrupted
	ErrIOFailed            = errs.ErrIOFailed
	ErrNameTooLong         = errs.ErrNameTooLong
)

// Errno extracts the negative errno value from any error produced by this
// module, for use at the operation-vector boundary. Errors that aren't a
// DriverError are reported as -EIO.
func Errno(err error) int {
	return errs.ToErrno(err)
}
