package engine

import (
	"errors"
	"fmt"
)

// Error represents an engine error with an error code
type Error struct {
	Code    ErrorCode
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("engine: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors carrying the same code, so errors.Is(err, ErrNotFoundError)
// holds for any not-found error regardless of wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// ErrorCode classifies engine failures. Engine statuses use the MDBX numbers,
// system statuses use errno numbers.
type ErrorCode int

const (
	// Success indicates the operation completed successfully
	Success ErrorCode = 0

	// ErrNotFound indicates the key/data pair was not found (EOF)
	ErrNotFound ErrorCode = -30798

	// ErrCorrupted indicates the database is corrupted
	ErrCorrupted ErrorCode = -30796

	// ErrPanic indicates a fatal environment error; the env must be closed
	ErrPanic ErrorCode = -30795

	// ErrInvalid indicates the environment or file is not usable
	ErrInvalid ErrorCode = -30793

	// ErrMapFull indicates the environment mapsize was reached
	ErrMapFull ErrorCode = -30792

	// ErrReadersFull indicates the reader lock table is full
	ErrReadersFull ErrorCode = -30790

	// ErrMapResized indicates another process grew the map beyond ours
	ErrMapResized ErrorCode = -30785

	// ErrBadTxn indicates the transaction is invalid or finished
	ErrBadTxn ErrorCode = -30782

	// ErrBadValSize indicates invalid key or data size
	ErrBadValSize ErrorCode = -30781

	// ErrBadDBI indicates the table handle is invalid
	ErrBadDBI ErrorCode = -30780

	// ErrProblem indicates an unexpected internal error
	ErrProblem ErrorCode = -30779

	// ErrBusy indicates another write transaction is running
	ErrBusy ErrorCode = -30778

	// ErrIO is EIO
	ErrIO ErrorCode = 5

	// ErrAgain is EAGAIN, e.g. the file lock is held by another handle
	ErrAgain ErrorCode = 11

	// ErrNoMem is ENOMEM
	ErrNoMem ErrorCode = 12

	// ErrAccess is EACCES, e.g. a write inside a read-only transaction
	ErrAccess ErrorCode = 13

	// ErrInvalidArg is EINVAL
	ErrInvalidArg ErrorCode = 22

	// ErrNoSpace is ENOSPC
	ErrNoSpace ErrorCode = 28
)

var errorMessages = map[ErrorCode]string{
	Success:        "success",
	ErrNotFound:    "key/data pair not found",
	ErrCorrupted:   "database is corrupted",
	ErrPanic:       "fatal environment error",
	ErrInvalid:     "environment is not valid",
	ErrMapFull:     "environment mapsize limit reached",
	ErrReadersFull: "environment maxreaders limit reached",
	ErrMapResized:  "map was resized by another process",
	ErrBadTxn:      "transaction is invalid",
	ErrBadValSize:  "invalid key or value size",
	ErrBadDBI:      "invalid table handle",
	ErrProblem:     "unexpected internal error",
	ErrBusy:        "another write transaction is running",
	ErrIO:          "input/output error",
	ErrAgain:       "resource temporarily unavailable",
	ErrNoMem:       "out of memory",
	ErrAccess:      "permission denied",
	ErrInvalidArg:  "invalid argument",
	ErrNoSpace:     "no space left on device",
}

func (c ErrorCode) String() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return fmt.Sprintf("unknown error code %d", int(c))
}

// Known reports whether c is one of the codes above.
func (c ErrorCode) Known() bool {
	_, ok := errorMessages[c]
	return ok
}

// NewError creates a new Error with the given code
func NewError(code ErrorCode) *Error {
	return &Error{Code: code, Message: code.String()}
}

// WrapError creates a new Error wrapping another error
func WrapError(code ErrorCode, err error) *Error {
	e := NewError(code)
	e.Err = err
	return e
}

// Common error variables for convenience
var (
	ErrNotFoundError  = NewError(ErrNotFound)
	ErrBadTxnError    = NewError(ErrBadTxn)
	ErrBadDBIError    = NewError(ErrBadDBI)
	ErrReadOnlyError  = NewError(ErrAccess)
	ErrInvalidEnv     = NewError(ErrInvalid)
	ErrKeyRequired    = WrapError(ErrBadValSize, errors.New("key required"))
	ErrTxnClosedError = WrapError(ErrBadTxn, errors.New("transaction already finished"))
)

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return Code(err) == ErrNotFound
}

// Code returns the error code from an error, Success for nil, or the errno
// class for raw system errors. Anything else is ErrProblem.
func Code(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if code, ok := errnoCode(err); ok {
		return code
	}
	return ErrProblem
}

// Classify wraps a native driver error, keeping an existing engine code or
// deriving one from the system errno it carries.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return WrapError(Code(err), err)
}

// SystemCode reports the engine code of a system error wrapped anywhere in
// err's chain.
func SystemCode(err error) (ErrorCode, bool) {
	return errnoCode(err)
}
