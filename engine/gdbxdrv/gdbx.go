// Package gdbxdrv registers the "gdbx" engine driver, backed by the pure Go
// MDBX implementation. The database is a single memory-mapped file opened
// with NoSubdir and WriteMap; the engine keeps its reader table in the
// companion "-lck" file.
package gdbxdrv

import (
	"github.com/Giulio2002/gdbx"

	"github.com/Giulio2002/gcoll/engine"
)

// Name is the driver name passed to engine.Open.
const Name = "gdbx"

const (
	defaultMaxTables  = 4
	defaultMaxReaders = 126
)

func init() {
	engine.Register(Name, Open)
}

// Engine is a gdbx environment.
type Engine struct {
	env *gdbx.Env
}

// Open creates and opens a gdbx environment at opts.Path.
func Open(opts engine.Options) (engine.Engine, error) {
	env, err := gdbx.NewEnv(gdbx.Label("gcoll"))
	if err != nil {
		return nil, classify(err)
	}

	maxTables := opts.MaxTables
	if maxTables == 0 {
		maxTables = defaultMaxTables
	}
	if err := env.SetMaxDBs(maxTables); err != nil {
		env.Close()
		return nil, classify(err)
	}

	maxReaders := opts.MaxReaders
	if maxReaders == 0 {
		maxReaders = defaultMaxReaders
	}
	if err := env.SetMaxReaders(maxReaders); err != nil {
		env.Close()
		return nil, classify(err)
	}

	if opts.MapSize > 0 {
		if err := env.SetGeometry(-1, -1, opts.MapSize, -1, -1, -1); err != nil {
			env.Close()
			return nil, classify(err)
		}
	}

	flags := gdbx.NoSubdir | gdbx.WriteMap
	if opts.NoSync {
		flags |= gdbx.SafeNoSync
	}
	if err := env.Open(opts.Path, flags, opts.Mode); err != nil {
		env.Close()
		return nil, classify(err)
	}

	return &Engine{env: env}, nil
}

// Env returns the underlying gdbx environment.
func (e *Engine) Env() *gdbx.Env {
	return e.env
}

// OpenTable opens a named table inside its own write transaction so the
// handle is visible to every later transaction.
func (e *Engine) OpenTable(name string, flags uint) (engine.DBI, error) {
	txn, err := e.env.BeginTxn(nil, gdbx.TxnReadWrite)
	if err != nil {
		return 0, classify(err)
	}

	var dbFlags uint
	if flags&engine.DupSort != 0 {
		dbFlags |= gdbx.DupSort
	}
	if flags&engine.Create != 0 {
		dbFlags |= gdbx.Create
	}

	dbi, err := txn.OpenDBISimple(name, dbFlags)
	if err != nil {
		txn.Abort()
		return 0, classify(err)
	}
	if _, err := txn.Commit(); err != nil {
		return 0, classify(err)
	}
	return engine.DBI(dbi), nil
}

// BeginTxn starts a gdbx transaction.
func (e *Engine) BeginTxn(readOnly bool) (engine.Txn, error) {
	flags := gdbx.TxnReadWrite
	if readOnly {
		flags = gdbx.TxnReadOnly
	}
	t, err := e.env.BeginTxn(nil, flags)
	if err != nil {
		return nil, classify(err)
	}
	return &txn{txn: t, readOnly: readOnly}, nil
}

// Close closes the environment, waiting for open readers to finish.
func (e *Engine) Close() error {
	e.env.Close()
	return nil
}

type txn struct {
	txn      *gdbx.Txn
	readOnly bool
	done     bool
}

func (t *txn) Get(dbi engine.DBI, key []byte) ([]byte, error) {
	v, err := t.txn.Get(gdbx.DBI(dbi), key)
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

func (t *txn) Put(dbi engine.DBI, key, value []byte) error {
	if len(key) == 0 {
		return engine.ErrKeyRequired
	}
	return classify(t.txn.Put(gdbx.DBI(dbi), key, value, gdbx.Upsert))
}

func (t *txn) Del(dbi engine.DBI, key, value []byte) error {
	return classify(t.txn.Del(gdbx.DBI(dbi), key, value))
}

func (t *txn) OpenCursor(dbi engine.DBI) (engine.Cursor, error) {
	c, err := t.txn.OpenCursor(gdbx.DBI(dbi))
	if err != nil {
		return nil, classify(err)
	}
	return &cursor{cur: c}, nil
}

func (t *txn) ReadOnly() bool {
	return t.readOnly
}

// Commit ends the transaction; gdbx aborts internally when the commit fails.
func (t *txn) Commit() error {
	if t.done {
		return engine.ErrTxnClosedError
	}
	t.done = true
	_, err := t.txn.Commit()
	return classify(err)
}

func (t *txn) Abort() {
	if t.done {
		return
	}
	t.done = true
	t.txn.Abort()
}

type cursor struct {
	cur *gdbx.Cursor
}

func (c *cursor) Get(key []byte, op engine.Op) ([]byte, []byte, error) {
	var gop gdbx.CursorOp
	switch op {
	case engine.First:
		gop = gdbx.First
	case engine.Next:
		gop = gdbx.Next
	case engine.SetKey:
		gop = gdbx.SetKey
	case engine.SetRange:
		gop = gdbx.SetRange
	case engine.NextDup:
		gop = gdbx.NextDup
	default:
		return nil, nil, engine.NewError(engine.ErrInvalidArg)
	}

	k, v, err := c.cur.Get(key, nil, gop)
	if err != nil {
		return nil, nil, classify(err)
	}
	return k, v, nil
}

func (c *cursor) Close() {
	c.cur.Close()
}

// classify maps gdbx status codes to engine codes.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var code engine.ErrorCode
	switch gdbx.Code(err) {
	case gdbx.ErrNotFound:
		return engine.ErrNotFoundError
	case gdbx.ErrPanic:
		code = engine.ErrPanic
	case gdbx.ErrCorrupted, gdbx.ErrPageNotFound:
		code = engine.ErrCorrupted
	case gdbx.ErrMapFull:
		code = engine.ErrMapFull
	case gdbx.ErrReadersFull:
		code = engine.ErrReadersFull
	case gdbx.ErrUnableExtendMapsize:
		code = engine.ErrMapResized
	case gdbx.ErrBusy:
		code = engine.ErrBusy
	case gdbx.ErrBadTxn:
		code = engine.ErrBadTxn
	case gdbx.ErrBadDBI:
		code = engine.ErrBadDBI
	case gdbx.ErrBadValSize:
		code = engine.ErrBadValSize
	case gdbx.ErrPermissionDenied:
		code = engine.ErrAccess
	case gdbx.ErrInvalid, gdbx.ErrIncompatible:
		code = engine.ErrInvalid
	default:
		code = engine.ErrProblem
	}

	// an OS failure underneath says more than the engine's generic class
	if sys, ok := engine.SystemCode(err); ok && (code == engine.ErrInvalid || code == engine.ErrProblem) {
		code = sys
	}
	return engine.WrapError(code, err)
}
