//go:build mdbx

// Package mdbxdrv registers the "mdbx" engine driver, backed by libmdbx via
// mdbx-go. It needs cgo and is only built with the "mdbx" build tag. Files
// are interchangeable with the gdbx driver's.
package mdbxdrv

import (
	"errors"
	"runtime"

	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/Giulio2002/gcoll/engine"
)

// Name is the driver name passed to engine.Open.
const Name = "mdbx"

const (
	defaultMaxTables  = 4
	defaultMaxReaders = 126
)

func init() {
	engine.Register(Name, Open)
}

// Engine is a libmdbx environment.
type Engine struct {
	env *mdbx.Env
}

// Open creates and opens a libmdbx environment at opts.Path.
func Open(opts engine.Options) (engine.Engine, error) {
	env, err := mdbx.NewEnv(mdbx.Label("gcoll"))
	if err != nil {
		return nil, classify(err)
	}

	maxTables := opts.MaxTables
	if maxTables == 0 {
		maxTables = defaultMaxTables
	}
	if err := env.SetOption(mdbx.OptMaxDB, uint64(maxTables)); err != nil {
		env.Close()
		return nil, classify(err)
	}

	maxReaders := opts.MaxReaders
	if maxReaders == 0 {
		maxReaders = defaultMaxReaders
	}
	if err := env.SetOption(mdbx.OptMaxReaders, uint64(maxReaders)); err != nil {
		env.Close()
		return nil, classify(err)
	}

	if opts.MapSize > 0 {
		if err := env.SetGeometry(-1, -1, int(opts.MapSize), -1, -1, -1); err != nil {
			env.Close()
			return nil, classify(err)
		}
	}

	// transactions are not pinned to the goroutine's thread
	flags := uint(mdbx.NoSubdir | mdbx.WriteMap | mdbx.NoTLS)
	if opts.NoSync {
		flags |= mdbx.SafeNoSync
	}
	if err := env.Open(opts.Path, flags, opts.Mode); err != nil {
		env.Close()
		return nil, classify(err)
	}
	return &Engine{env: env}, nil
}

// Env returns the underlying mdbx environment.
func (e *Engine) Env() *mdbx.Env {
	return e.env
}

// OpenTable opens a named table inside its own write transaction.
func (e *Engine) OpenTable(name string, flags uint) (engine.DBI, error) {
	t, err := e.BeginTxn(false)
	if err != nil {
		return 0, err
	}
	mt := t.(*txn)

	var dbFlags uint
	if flags&engine.DupSort != 0 {
		dbFlags |= mdbx.DupSort
	}
	if flags&engine.Create != 0 {
		dbFlags |= mdbx.Create
	}

	dbi, err := mt.txn.OpenDBISimple(name, dbFlags)
	if err != nil {
		mt.Abort()
		return 0, classify(err)
	}
	if err := mt.Commit(); err != nil {
		return 0, err
	}
	return engine.DBI(dbi), nil
}

// BeginTxn starts a transaction. Write transactions lock the OS thread until
// they end, as libmdbx requires.
func (e *Engine) BeginTxn(readOnly bool) (engine.Txn, error) {
	var flags uint
	if readOnly {
		flags = mdbx.Readonly
	} else {
		runtime.LockOSThread()
	}
	t, err := e.env.BeginTxn(nil, flags)
	if err != nil {
		if !readOnly {
			runtime.UnlockOSThread()
		}
		return nil, classify(err)
	}
	return &txn{txn: t, readOnly: readOnly}, nil
}

// Close closes the environment.
func (e *Engine) Close() error {
	e.env.Close()
	return nil
}

type txn struct {
	txn      *mdbx.Txn
	readOnly bool
	done     bool
}

func (t *txn) Get(dbi engine.DBI, key []byte) ([]byte, error) {
	v, err := t.txn.Get(mdbx.DBI(dbi), key)
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

func (t *txn) Put(dbi engine.DBI, key, value []byte) error {
	if len(key) == 0 {
		return engine.ErrKeyRequired
	}
	return classify(t.txn.Put(mdbx.DBI(dbi), key, value, mdbx.Upsert))
}

func (t *txn) Del(dbi engine.DBI, key, value []byte) error {
	return classify(t.txn.Del(mdbx.DBI(dbi), key, value))
}

func (t *txn) OpenCursor(dbi engine.DBI) (engine.Cursor, error) {
	c, err := t.txn.OpenCursor(mdbx.DBI(dbi))
	if err != nil {
		return nil, classify(err)
	}
	return &cursor{cur: c}, nil
}

func (t *txn) ReadOnly() bool {
	return t.readOnly
}

func (t *txn) Commit() error {
	if t.done {
		return engine.ErrTxnClosedError
	}
	t.done = true
	defer t.release()
	_, err := t.txn.Commit()
	return classify(err)
}

func (t *txn) Abort() {
	if t.done {
		return
	}
	t.done = true
	defer t.release()
	t.txn.Abort()
}

func (t *txn) release() {
	if !t.readOnly {
		runtime.UnlockOSThread()
	}
}

type cursor struct {
	cur *mdbx.Cursor
}

func (c *cursor) Get(key []byte, op engine.Op) ([]byte, []byte, error) {
	var mop uint
	switch op {
	case engine.First:
		mop = mdbx.First
	case engine.Next:
		mop = mdbx.Next
	case engine.SetKey:
		mop = mdbx.SetKey
	case engine.SetRange:
		mop = mdbx.SetRange
	case engine.NextDup:
		mop = mdbx.NextDup
	default:
		return nil, nil, engine.NewError(engine.ErrInvalidArg)
	}

	k, v, err := c.cur.Get(key, nil, mop)
	if err != nil {
		return nil, nil, classify(err)
	}
	return k, v, nil
}

func (c *cursor) Close() {
	c.cur.Close()
}

// classify maps libmdbx status codes to engine codes. Both use the MDBX
// numbering, so a known Errno translates directly.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if mdbx.IsNotFound(err) {
		return engine.ErrNotFoundError
	}

	var errno mdbx.Errno
	if errors.As(err, &errno) {
		if code := engine.ErrorCode(errno); code.Known() {
			return engine.WrapError(code, err)
		}
	}
	if sys, ok := engine.SystemCode(err); ok {
		return engine.WrapError(sys, err)
	}
	return engine.WrapError(engine.ErrProblem, err)
}
