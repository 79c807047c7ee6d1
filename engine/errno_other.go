//go:build !unix

package engine

import (
	"errors"
	"io/fs"
)

// errnoCode maps a system error to its engine code. Without errno values
// only the portable fs classes are recognized.
func errnoCode(err error) (ErrorCode, bool) {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return ErrAccess, true
	case errors.Is(err, fs.ErrNotExist):
		return ErrInvalid, true
	case errors.Is(err, fs.ErrInvalid):
		return ErrInvalidArg, true
	}
	return 0, false
}
