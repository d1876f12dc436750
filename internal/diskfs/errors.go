package diskfs

import "errors"

// Package-specific error variables that can be used with errors.Is() for
// error handling. The FUSE host maps each of these to a syscall.Errno at
// the boundary; this package never imports syscall itself.
var (
	// ErrNotFound is returned when a directory or file reference does not
	// exist.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when mkdir/mknod targets a name that is
	// already in use.
	ErrExists = errors.New("already exists")

	// ErrNameTooLong is returned when a directory name, file name, or
	// extension exceeds its fixed on-disk width.
	ErrNameTooLong = errors.New("name too long")

	// ErrNotPermitted is returned for path shapes the two-level namespace
	// does not allow (nesting beyond one directory level).
	ErrNotPermitted = errors.New("operation not permitted")

	// ErrIsADirectory is returned when a read is attempted against a
	// directory or root reference.
	ErrIsADirectory = errors.New("is a directory")

	// ErrFileTooBig is returned when a write offset lies beyond the
	// current end of file.
	ErrFileTooBig = errors.New("file too big")

	// ErrNoSpace is returned when the allocator has no free blocks left.
	ErrNoSpace = errors.New("no space left on device")

	// ErrIO wraps failures from the underlying block device.
	ErrIO = errors.New("i/o error")
)
