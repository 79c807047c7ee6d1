// Package boltdrv registers the "bolt" engine driver on top of bbolt.
//
// bbolt has no native duplicates, so a DupSort table stores one nested bucket
// per key whose keys are the values, prefixed with a marker byte so empty
// values stay representable. Bucket keys are byte-ordered, which gives the
// same key and duplicate ordering as a DupSort MDBX table.
//
// Because duplicates are bucket keys, a duplicate value is limited to
// bbolt's maximum key size (32 KiB). Larger values fail with
// engine.ErrBadValSize.
package boltdrv

import (
	"bytes"
	"errors"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/Giulio2002/gcoll/engine"
)

// Name is the driver name passed to engine.Open.
const Name = "bolt"

const (
	// dupMarker prefixes every duplicate stored as a nested bucket key
	dupMarker byte = 'v'

	// mainTable is the bucket used for the unnamed table
	mainTable = "__main__"

	defaultOpenTimeout = time.Second
	defaultMmapSize    = 16 << 20
)

var dupPresent = []byte{1}

func init() {
	engine.Register(Name, Open)
}

type table struct {
	name []byte
	dup  bool
}

// Engine is a bbolt database.
type Engine struct {
	db *bolt.DB

	mu     sync.RWMutex
	tables []table
}

// Open opens (creating if needed) the bbolt file at opts.Path.
func Open(opts engine.Options) (engine.Engine, error) {
	mmapSize := defaultMmapSize
	if opts.MapSize > 0 {
		mmapSize = int(opts.MapSize)
	}
	db, err := bolt.Open(opts.Path, opts.Mode, &bolt.Options{
		Timeout:         defaultOpenTimeout,
		NoSync:          opts.NoSync,
		InitialMmapSize: mmapSize,
	})
	if err != nil {
		return nil, classify(err)
	}
	return &Engine{db: db}, nil
}

// DB returns the underlying bbolt database.
func (e *Engine) DB() *bolt.DB {
	return e.db
}

// OpenTable creates (with engine.Create) or looks up a top-level bucket.
func (e *Engine) OpenTable(name string, flags uint) (engine.DBI, error) {
	if name == "" {
		name = mainTable
	}
	bname := []byte(name)

	err := e.db.Update(func(tx *bolt.Tx) error {
		if flags&engine.Create != 0 {
			_, err := tx.CreateBucketIfNotExists(bname)
			return err
		}
		if tx.Bucket(bname) == nil {
			return engine.ErrNotFoundError
		}
		return nil
	})
	if err != nil {
		return 0, classify(err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, t := range e.tables {
		if bytes.Equal(t.name, bname) {
			return engine.DBI(i), nil
		}
	}
	e.tables = append(e.tables, table{name: bname, dup: flags&engine.DupSort != 0})
	return engine.DBI(len(e.tables) - 1), nil
}

// BeginTxn starts a bbolt transaction.
func (e *Engine) BeginTxn(readOnly bool) (engine.Txn, error) {
	tx, err := e.db.Begin(!readOnly)
	if err != nil {
		return nil, classify(err)
	}
	return &txn{env: e, tx: tx}, nil
}

// Close closes the database file.
func (e *Engine) Close() error {
	return classify(e.db.Close())
}

func (e *Engine) table(dbi engine.DBI) (table, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if int(dbi) >= len(e.tables) {
		return table{}, false
	}
	return e.tables[dbi], true
}

type txn struct {
	env  *Engine
	tx   *bolt.Tx
	done bool
}

func (t *txn) bucket(dbi engine.DBI) (*bolt.Bucket, bool, error) {
	if t.done {
		return nil, false, engine.ErrTxnClosedError
	}
	tbl, ok := t.env.table(dbi)
	if !ok {
		return nil, false, engine.ErrBadDBIError
	}
	b := t.tx.Bucket(tbl.name)
	if b == nil {
		return nil, false, engine.ErrBadDBIError
	}
	return b, tbl.dup, nil
}

func dupKey(value []byte) []byte {
	k := make([]byte, 0, len(value)+1)
	k = append(k, dupMarker)
	return append(k, value...)
}

func (t *txn) Get(dbi engine.DBI, key []byte) ([]byte, error) {
	b, dup, err := t.bucket(dbi)
	if err != nil {
		return nil, err
	}
	if !dup {
		if v := b.Get(key); v != nil {
			return v, nil
		}
		return nil, engine.ErrNotFoundError
	}

	nb := b.Bucket(key)
	if nb == nil {
		return nil, engine.ErrNotFoundError
	}
	k, _ := nb.Cursor().First()
	if k == nil {
		return nil, engine.ErrNotFoundError
	}
	return k[1:], nil
}

func (t *txn) Put(dbi engine.DBI, key, value []byte) error {
	b, dup, err := t.bucket(dbi)
	if err != nil {
		return err
	}
	if !t.tx.Writable() {
		return engine.ErrReadOnlyError
	}
	if len(key) == 0 {
		return engine.ErrKeyRequired
	}
	if !dup {
		return classify(b.Put(key, value))
	}

	nb, err := b.CreateBucketIfNotExists(key)
	if err != nil {
		return classify(err)
	}
	return classify(nb.Put(dupKey(value), dupPresent))
}

func (t *txn) Del(dbi engine.DBI, key, value []byte) error {
	b, dup, err := t.bucket(dbi)
	if err != nil {
		return err
	}
	if !t.tx.Writable() {
		return engine.ErrReadOnlyError
	}
	if !dup {
		if b.Get(key) == nil {
			return engine.ErrNotFoundError
		}
		return classify(b.Delete(key))
	}

	nb := b.Bucket(key)
	if nb == nil {
		return engine.ErrNotFoundError
	}
	if value == nil {
		return classify(b.DeleteBucket(key))
	}

	dk := dupKey(value)
	if nb.Get(dk) == nil {
		return engine.ErrNotFoundError
	}
	if err := nb.Delete(dk); err != nil {
		return classify(err)
	}
	// a key with no duplicates left is absent
	if k, _ := nb.Cursor().First(); k == nil {
		return classify(b.DeleteBucket(key))
	}
	return nil
}

func (t *txn) OpenCursor(dbi engine.DBI) (engine.Cursor, error) {
	b, dup, err := t.bucket(dbi)
	if err != nil {
		return nil, err
	}
	return &cursor{b: b, dup: dup, outer: b.Cursor()}, nil
}

func (t *txn) ReadOnly() bool {
	return !t.tx.Writable()
}

// Commit commits a writable transaction; bbolt rolls back on failure.
// Read-only transactions are rolled back.
func (t *txn) Commit() error {
	if t.done {
		return engine.ErrTxnClosedError
	}
	t.done = true
	if !t.tx.Writable() {
		return classify(t.tx.Rollback())
	}
	return classify(t.tx.Commit())
}

func (t *txn) Abort() {
	if t.done {
		return
	}
	t.done = true
	_ = t.tx.Rollback()
}

type cursor struct {
	b     *bolt.Bucket
	dup   bool
	outer *bolt.Cursor
	inner *bolt.Cursor
	key   []byte
}

// enter positions on the first duplicate of the first non-empty key at or
// after k.
func (c *cursor) enter(k []byte) ([]byte, []byte, error) {
	for ; k != nil; k, _ = c.outer.Next() {
		nb := c.b.Bucket(k)
		if nb == nil {
			continue
		}
		inner := nb.Cursor()
		if dk, _ := inner.First(); dk != nil {
			c.key, c.inner = k, inner
			return k, dk[1:], nil
		}
	}
	c.key, c.inner = nil, nil
	return nil, nil, engine.ErrNotFoundError
}

func (c *cursor) plain(k, v []byte) ([]byte, []byte, error) {
	if k == nil {
		c.key = nil
		return nil, nil, engine.ErrNotFoundError
	}
	c.key = k
	return k, v, nil
}

func (c *cursor) Get(key []byte, op engine.Op) ([]byte, []byte, error) {
	if c.outer == nil {
		return nil, nil, engine.ErrTxnClosedError
	}
	if !c.dup {
		return c.getPlain(key, op)
	}

	switch op {
	case engine.First:
		k, _ := c.outer.First()
		return c.enter(k)
	case engine.Next:
		if c.inner == nil {
			k, _ := c.outer.First()
			return c.enter(k)
		}
		if dk, _ := c.inner.Next(); dk != nil {
			return c.key, dk[1:], nil
		}
		k, _ := c.outer.Next()
		return c.enter(k)
	case engine.SetKey:
		k, _ := c.outer.Seek(key)
		if !bytes.Equal(k, key) {
			return nil, nil, engine.ErrNotFoundError
		}
		return c.enter(k)
	case engine.SetRange:
		k, _ := c.outer.Seek(key)
		return c.enter(k)
	case engine.NextDup:
		if c.inner == nil {
			return nil, nil, engine.ErrNotFoundError
		}
		if dk, _ := c.inner.Next(); dk != nil {
			return c.key, dk[1:], nil
		}
		return nil, nil, engine.ErrNotFoundError
	}
	return nil, nil, engine.NewError(engine.ErrInvalidArg)
}

func (c *cursor) getPlain(key []byte, op engine.Op) ([]byte, []byte, error) {
	switch op {
	case engine.First:
		return c.plain(c.outer.First())
	case engine.Next:
		if c.key == nil {
			return c.plain(c.outer.First())
		}
		return c.plain(c.outer.Next())
	case engine.SetKey:
		k, v := c.outer.Seek(key)
		if !bytes.Equal(k, key) {
			return nil, nil, engine.ErrNotFoundError
		}
		return c.plain(k, v)
	case engine.SetRange:
		return c.plain(c.outer.Seek(key))
	case engine.NextDup:
		return nil, nil, engine.ErrNotFoundError
	}
	return nil, nil, engine.NewError(engine.ErrInvalidArg)
}

func (c *cursor) Close() {
	c.outer, c.inner, c.key = nil, nil, nil
}

// classify maps bbolt errors to engine codes.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var e *engine.Error
	if errors.As(err, &e) {
		return err
	}

	code := engine.ErrProblem
	switch {
	case errors.Is(err, berrors.ErrTimeout):
		// the file lock is held by another handle or process
		code = engine.ErrAgain
	case errors.Is(err, berrors.ErrDatabaseNotOpen), errors.Is(err, berrors.ErrInvalid),
		errors.Is(err, berrors.ErrVersionMismatch):
		code = engine.ErrInvalid
	case errors.Is(err, berrors.ErrChecksum):
		code = engine.ErrCorrupted
	case errors.Is(err, berrors.ErrTxNotWritable), errors.Is(err, berrors.ErrDatabaseReadOnly):
		code = engine.ErrAccess
	case errors.Is(err, berrors.ErrTxClosed):
		code = engine.ErrBadTxn
	case errors.Is(err, berrors.ErrKeyRequired), errors.Is(err, berrors.ErrKeyTooLarge),
		errors.Is(err, berrors.ErrValueTooLarge):
		code = engine.ErrBadValSize
	case errors.Is(err, berrors.ErrIncompatibleValue):
		code = engine.ErrInvalidArg
	case errors.Is(err, berrors.ErrBucketNotFound):
		code = engine.ErrBadDBI
	default:
		if sys, ok := engine.SystemCode(err); ok {
			code = sys
		}
	}
	return engine.WrapError(code, err)
}
