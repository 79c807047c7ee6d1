// Package engine defines the narrow transactional storage contract the
// collection backend runs on, and a registry of drivers implementing it.
//
// The contract is the subset of the MDBX/LMDB model the backend needs: one
// environment, named tables with sorted duplicates, read-only and read-write
// transactions, and cursors. Drivers live in subpackages and register
// themselves from init:
//
//	import _ "github.com/Giulio2002/gcoll/engine/gdbxdrv"
//
//	eng, err := engine.Open("gdbx", engine.Options{Path: "./db", Mode: 0664})
//
// Byte slices returned by Txn and Cursor methods point into engine memory and
// are only valid until the transaction ends. Callers copy what they keep.
package engine

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// DBI is a table handle, valid for the lifetime of the Engine that returned it.
type DBI uint32

// Table flags (subset of MDBX database flags, same values)
const (
	// TableDefaults uses byte-order keys with a single value per key
	TableDefaults uint = 0

	// DupSort allows multiple values per key, sorted by byte order
	DupSort uint = 0x04

	// Create creates the table if it doesn't exist
	Create uint = 0x40000
)

// Op is a cursor positioning operation.
type Op uint

// Cursor operations
const (
	// First positions at the first record of the table
	First Op = iota

	// Next moves to the next record, including the next duplicate
	Next

	// SetKey positions at the first duplicate of the given key
	SetKey

	// SetRange positions at the first record whose key is >= the given key
	SetRange

	// NextDup moves to the next duplicate of the current key
	NextDup
)

var opNames = [...]string{"first", "next", "set_key", "set_range", "next_dup"}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint(op))
}

// Engine is an open storage environment.
type Engine interface {
	// OpenTable opens (or with Create, creates) a named table and returns its
	// handle. Must be called before any transaction touches the table.
	OpenTable(name string, flags uint) (DBI, error)

	// BeginTxn starts a transaction. Read-only transactions see a consistent
	// snapshot taken at begin; read-write transactions are serialized.
	BeginTxn(readOnly bool) (Txn, error)

	// Close releases the environment. All transactions must be finished.
	Close() error
}

// Txn is a transaction. It is terminated exactly once, by Commit or Abort.
// Commit terminates the transaction even when it fails; Abort after a
// terminated transaction is a no-op.
type Txn interface {
	// Get returns the first value stored under key (ErrNotFound if absent).
	Get(dbi DBI, key []byte) ([]byte, error)

	// Put adds a key/value record. In a DupSort table an existing key gains
	// another duplicate; an identical pair is stored once.
	Put(dbi DBI, key, value []byte) error

	// Del removes the key/value record, or every record of key when value
	// is nil.
	Del(dbi DBI, key, value []byte) error

	// OpenCursor opens a cursor; it must be closed before the txn ends.
	OpenCursor(dbi DBI) (Cursor, error)

	ReadOnly() bool
	Commit() error
	Abort()
}

// Cursor iterates a table inside one transaction.
type Cursor interface {
	// Get performs op and returns the record at the new position.
	// ErrNotFound reports exhaustion or a missing key.
	Get(key []byte, op Op) ([]byte, []byte, error)
	Close()
}

// Options configures an engine instance.
type Options struct {
	// Path is the database file (no subdirectory layout)
	Path string

	// Mode is the permission mode for created files
	Mode os.FileMode

	// MaxTables is the number of named tables the environment can hold
	MaxTables uint32

	// MaxReaders bounds concurrent read transactions (mmap engines)
	MaxReaders uint32

	// MapSize is the upper bound of the memory map in bytes; 0 keeps the
	// driver default
	MapSize int64

	// NoSync trades durability of the last commits for write speed
	NoSync bool
}

// OpenFunc opens an engine with the given options.
type OpenFunc func(opts Options) (Engine, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]OpenFunc)
)

// Register makes a driver available under name. It panics if name is
// registered twice or fn is nil.
func Register(name string, fn OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if fn == nil {
		panic("engine: Register open func is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("engine: Register called twice for driver " + name)
	}
	drivers[name] = fn
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens an engine using the named driver.
func Open(driver string, opts Options) (Engine, error) {
	driversMu.RLock()
	fn, ok := drivers[driver]
	driversMu.RUnlock()

	if !ok {
		return nil, WrapError(ErrInvalid, fmt.Errorf("unknown driver %q", driver))
	}
	return fn(opts)
}
