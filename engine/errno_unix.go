//go:build unix

package engine

import (
	"errors"

	"golang.org/x/sys/unix"
)

// errnoCode maps a system error to its engine code.
func errnoCode(err error) (ErrorCode, bool) {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return 0, false
	}
	switch errno {
	case unix.EIO:
		return ErrIO, true
	case unix.EAGAIN:
		return ErrAgain, true
	case unix.ENOMEM:
		return ErrNoMem, true
	case unix.EACCES, unix.EPERM, unix.EROFS:
		return ErrAccess, true
	case unix.EINVAL:
		return ErrInvalidArg, true
	case unix.ENOSPC:
		return ErrNoSpace, true
	case unix.ENOENT, unix.ENOTDIR:
		return ErrInvalid, true
	}
	return 0, false
}
