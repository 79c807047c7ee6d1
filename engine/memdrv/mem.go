// Package memdrv registers the "mem" engine driver: tables kept in
// copy-on-write B-trees. Readers hold the tree published at begin, the single
// writer mutates a copy and publishes it on commit. Nothing is persisted.
package memdrv

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/tidwall/btree"

	"github.com/Giulio2002/gcoll/engine"
)

// Name is the driver name passed to engine.Open.
const Name = "mem"

func init() {
	engine.Register(Name, Open)
}

type record struct {
	key, val []byte
}

func lessRecord(a, b record) bool {
	if c := bytes.Compare(a.key, b.key); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.val, b.val) < 0
}

// snapshot is an immutable set of tables. It is never mutated after publish.
type snapshot struct {
	tables []*btree.BTreeG[record]
	names  map[string]engine.DBI
	flags  []uint
}

func (s *snapshot) clone() *snapshot {
	c := &snapshot{
		tables: make([]*btree.BTreeG[record], len(s.tables)),
		names:  make(map[string]engine.DBI, len(s.names)),
		flags:  append([]uint(nil), s.flags...),
	}
	for i, t := range s.tables {
		c.tables[i] = t.Copy()
	}
	for name, dbi := range s.names {
		c.names[name] = dbi
	}
	return c
}

// Engine is an in-memory environment.
type Engine struct {
	writer sync.Mutex // held for the lifetime of the write transaction
	cur    atomic.Pointer[snapshot]
	closed atomic.Bool
}

// Open returns an empty in-memory environment; opts are ignored.
func Open(_ engine.Options) (engine.Engine, error) {
	return New(), nil
}

// New returns an empty in-memory environment.
func New() *Engine {
	e := &Engine{}
	e.cur.Store(&snapshot{names: make(map[string]engine.DBI)})
	return e
}

// OpenTable opens or creates a named table.
func (e *Engine) OpenTable(name string, flags uint) (engine.DBI, error) {
	if e.closed.Load() {
		return 0, engine.ErrInvalidEnv
	}

	e.writer.Lock()
	defer e.writer.Unlock()

	s := e.cur.Load()
	if dbi, ok := s.names[name]; ok {
		return dbi, nil
	}
	if flags&engine.Create == 0 {
		return 0, engine.ErrNotFoundError
	}

	next := s.clone()
	dbi := engine.DBI(len(next.tables))
	next.tables = append(next.tables, btree.NewBTreeG[record](lessRecord))
	next.flags = append(next.flags, flags&engine.DupSort)
	next.names[name] = dbi
	e.cur.Store(next)
	return dbi, nil
}

// BeginTxn starts a transaction; a write transaction blocks until the
// previous writer finishes.
func (e *Engine) BeginTxn(readOnly bool) (engine.Txn, error) {
	if e.closed.Load() {
		return nil, engine.ErrInvalidEnv
	}
	if readOnly {
		return &txn{env: e, snap: e.cur.Load(), readOnly: true}, nil
	}

	e.writer.Lock()
	if e.closed.Load() {
		e.writer.Unlock()
		return nil, engine.ErrInvalidEnv
	}
	return &txn{env: e, snap: e.cur.Load().clone()}, nil
}

// Close marks the environment closed; later transactions fail.
func (e *Engine) Close() error {
	e.closed.Store(true)
	return nil
}

type txn struct {
	env      *Engine
	snap     *snapshot
	readOnly bool
	done     bool
}

func (t *txn) table(dbi engine.DBI) (*btree.BTreeG[record], error) {
	if t.done {
		return nil, engine.ErrTxnClosedError
	}
	if int(dbi) >= len(t.snap.tables) {
		return nil, engine.ErrBadDBIError
	}
	return t.snap.tables[dbi], nil
}

func (t *txn) Get(dbi engine.DBI, key []byte) ([]byte, error) {
	tr, err := t.table(dbi)
	if err != nil {
		return nil, err
	}
	var found []byte
	tr.Ascend(record{key: key}, func(r record) bool {
		if bytes.Equal(r.key, key) {
			found = r.val
		}
		return false
	})
	if found == nil {
		return nil, engine.ErrNotFoundError
	}
	return found, nil
}

func (t *txn) Put(dbi engine.DBI, key, value []byte) error {
	tr, err := t.table(dbi)
	if err != nil {
		return err
	}
	if t.readOnly {
		return engine.ErrReadOnlyError
	}
	if len(key) == 0 {
		return engine.ErrKeyRequired
	}

	r := record{key: bytes.Clone(key), val: bytes.Clone(value)}
	if r.val == nil {
		r.val = []byte{}
	}
	if t.snap.flags[dbi]&engine.DupSort == 0 {
		t.deleteKey(tr, key)
	}
	tr.Set(r)
	return nil
}

func (t *txn) Del(dbi engine.DBI, key, value []byte) error {
	tr, err := t.table(dbi)
	if err != nil {
		return err
	}
	if t.readOnly {
		return engine.ErrReadOnlyError
	}

	if value != nil {
		if _, ok := tr.Delete(record{key: key, val: value}); !ok {
			return engine.ErrNotFoundError
		}
		return nil
	}
	if t.deleteKey(tr, key) == 0 {
		return engine.ErrNotFoundError
	}
	return nil
}

// deleteKey removes every duplicate of key and returns how many there were.
func (t *txn) deleteKey(tr *btree.BTreeG[record], key []byte) int {
	var dups []record
	tr.Ascend(record{key: key}, func(r record) bool {
		if !bytes.Equal(r.key, key) {
			return false
		}
		dups = append(dups, r)
		return true
	})
	for _, r := range dups {
		tr.Delete(r)
	}
	return len(dups)
}

func (t *txn) OpenCursor(dbi engine.DBI) (engine.Cursor, error) {
	tr, err := t.table(dbi)
	if err != nil {
		return nil, err
	}
	return &cursor{tr: tr}, nil
}

func (t *txn) ReadOnly() bool {
	return t.readOnly
}

func (t *txn) Commit() error {
	if t.done {
		return engine.ErrTxnClosedError
	}
	t.done = true
	if t.readOnly {
		return nil
	}
	t.env.cur.Store(t.snap)
	t.env.writer.Unlock()
	return nil
}

func (t *txn) Abort() {
	if t.done {
		return
	}
	t.done = true
	if !t.readOnly {
		t.env.writer.Unlock()
	}
}

type cursor struct {
	tr     *btree.BTreeG[record]
	cur    record
	placed bool
}

// seek positions at the first record >= pivot, or past the end.
func (c *cursor) seek(pivot record, skipEqual bool) bool {
	found := false
	c.tr.Ascend(pivot, func(r record) bool {
		if skipEqual && !lessRecord(pivot, r) {
			return true
		}
		c.cur, found = r, true
		return false
	})
	c.placed = found
	return found
}

func (c *cursor) Get(key []byte, op engine.Op) ([]byte, []byte, error) {
	var ok bool
	switch op {
	case engine.First:
		var r record
		r, ok = c.tr.Min()
		c.cur, c.placed = r, ok
	case engine.Next:
		if !c.placed {
			return c.Get(nil, engine.First)
		}
		ok = c.seek(c.cur, true)
	case engine.SetKey:
		ok = c.seek(record{key: key}, false) && bytes.Equal(c.cur.key, key)
		c.placed = ok
	case engine.SetRange:
		ok = c.seek(record{key: key}, false)
	case engine.NextDup:
		if !c.placed {
			return nil, nil, engine.ErrNotFoundError
		}
		prev := c.cur
		if ok = c.seek(prev, true) && bytes.Equal(c.cur.key, prev.key); !ok {
			// stay on the last duplicate, as MDBX does
			c.cur, c.placed = prev, true
		}
	default:
		return nil, nil, engine.NewError(engine.ErrInvalidArg)
	}

	if !ok {
		return nil, nil, engine.ErrNotFoundError
	}
	return c.cur.key, c.cur.val, nil
}

func (c *cursor) Close() {
	c.tr = nil
	c.placed = false
}
