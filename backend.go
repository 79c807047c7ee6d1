package gcoll

import (
	"bytes"
	"regexp"
	"sync"
	"time"

	"github.com/Giulio2002/gcoll/engine"
)

// Backend is the persistent Collection. All backends bound to one Env share
// its table; the collection name only labels results, metrics and
// diagnostics.
type Backend struct {
	name string

	bindOnce sync.Once
	env      *Env
}

var _ Collection = (*Backend)(nil)

// New returns a backend for the named collection. With a nil env the
// backend binds to Shared on its first operation.
func New(name string, env *Env) *Backend {
	return &Backend{name: name, env: env}
}

// Name returns the collection name.
func (b *Backend) Name() string {
	return b.name
}

// Env returns the environment the backend is bound to.
func (b *Backend) Env() *Env {
	return b.bind()
}

// Store adds a record. Earlier values of key stay as duplicates.
func (b *Backend) Store(key, value string) bool {
	start := time.Now()
	err := b.update(opStore, func(txn engine.Txn, dbi engine.DBI) error {
		if err := txn.Put(dbi, toVal(key), toVal(value)); err != nil {
			return b.fail(opStore, stepPut, err)
		}
		return nil
	})
	observe(b.name, opStore, start, outcomeOf(err))
	return err == nil
}

// StoreOrUpdateFirst replaces the values of key with value, or stores it
// when key is absent.
func (b *Backend) StoreOrUpdateFirst(key, value string) bool {
	return b.replaceFirst(opStoreOrUpdateFirst, key, value, false) == nil
}

// UpdateFirst replaces the values of an existing key with value. It fails,
// writing nothing, when key is absent.
func (b *Backend) UpdateFirst(key, value string) bool {
	return b.Update(key, value) == nil
}

// Update is UpdateFirst returning the failure. The error satisfies
// engine.IsNotFound when key is absent.
func (b *Backend) Update(key, value string) error {
	return b.replaceFirst(opUpdateFirst, key, value, true)
}

func (b *Backend) replaceFirst(op, key, value string, mustExist bool) error {
	start := time.Now()
	k := toVal(key)

	err := b.update(op, func(txn engine.Txn, dbi engine.DBI) error {
		_, err := txn.Get(dbi, k)
		switch {
		case err == nil:
			if err := txn.Del(dbi, k, nil); err != nil {
				return b.fail(op, stepDel, err)
			}
		case engine.IsNotFound(err):
			if mustExist {
				return b.fail(op, stepGet, err)
			}
		default:
			return b.fail(op, stepGet, err)
		}

		if err := txn.Put(dbi, k, toVal(value)); err != nil {
			return b.fail(op, stepPut, err)
		}
		return nil
	})
	observe(b.name, op, start, outcomeOf(err))
	return err
}

// Delete removes every value of key. An absent key is not an error.
func (b *Backend) Delete(key string) bool {
	start := time.Now()
	k := toVal(key)

	err := b.update(opDelete, func(txn engine.Txn, dbi engine.DBI) error {
		if _, err := txn.Get(dbi, k); err != nil {
			if engine.IsNotFound(err) {
				return errNoWrite
			}
			return b.fail(opDelete, stepGet, err)
		}
		if err := txn.Del(dbi, k, nil); err != nil {
			return b.fail(opDelete, stepDel, err)
		}
		return nil
	})
	observe(b.name, opDelete, start, outcomeOf(err))
	return err == nil
}

// ResolveFirst returns the first value of key in duplicate order.
func (b *Backend) ResolveFirst(key string) (string, bool) {
	start := time.Now()
	var value string

	err := b.view(opResolveFirst, func(txn engine.Txn, dbi engine.DBI) error {
		v, err := txn.Get(dbi, toVal(key))
		if err != nil {
			if engine.IsNotFound(err) {
				return err
			}
			return b.fail(opResolveFirst, stepGet, err)
		}
		value = fromVal(v)
		return nil
	})
	observe(b.name, opResolveFirst, start, outcomeOf(err))
	if err != nil {
		return "", false
	}
	return value, true
}

// ResolveDuplicates returns every value of key in duplicate order, or nil
// when key is absent or the read fails.
func (b *Backend) ResolveDuplicates(key string) []VariableValue {
	start := time.Now()
	var out []VariableValue

	err := b.view(opResolveDuplicates, func(txn engine.Txn, dbi engine.DBI) error {
		cur, err := txn.OpenCursor(dbi)
		if err != nil {
			return b.fail(opResolveDuplicates, stepCursorOpen, err)
		}
		defer cur.Close()

		_, v, err := cur.Get(toVal(key), engine.SetKey)
		for ; err == nil; _, v, err = cur.Get(nil, engine.NextDup) {
			out = append(out, VariableValue{Collection: b.name, Key: key, Value: fromVal(v)})
		}
		if !engine.IsNotFound(err) {
			return b.fail(opResolveDuplicates, stepCursorGet, err)
		}
		if len(out) == 0 {
			return err
		}
		return nil
	})
	observe(b.name, opResolveDuplicates, start, outcomeOf(err))
	if err != nil {
		return nil
	}
	return out
}

// ResolveByPrefix returns, in key order, the records whose key starts with
// prefix byte for byte and is not omitted by exclusions. An empty prefix
// selects every record.
func (b *Backend) ResolveByPrefix(prefix string, exclusions KeyExclusions) []VariableValue {
	start := time.Now()
	var out []VariableValue
	p := toVal(prefix)

	err := b.view(opResolveByPrefix, func(txn engine.Txn, dbi engine.DBI) error {
		cur, err := txn.OpenCursor(dbi)
		if err != nil {
			return b.fail(opResolveByPrefix, stepCursorOpen, err)
		}
		defer cur.Close()

		var k, v []byte
		if len(p) == 0 {
			k, v, err = cur.Get(nil, engine.First)
		} else {
			k, v, err = cur.Get(p, engine.SetRange)
		}
		for ; err == nil; k, v, err = cur.Get(nil, engine.Next) {
			if !bytes.HasPrefix(k, p) {
				return nil
			}
			key := fromVal(k)
			if omitted(exclusions, key) {
				continue
			}
			out = append(out, VariableValue{Collection: b.name, Key: key, Value: fromVal(v)})
		}
		if !engine.IsNotFound(err) {
			return b.fail(opResolveByPrefix, stepCursorGet, err)
		}
		return nil
	})
	observe(b.name, opResolveByPrefix, start, outcomeOf(err))
	if err != nil {
		return nil
	}
	return out
}

// ResolveByPattern returns, in key order, the records whose key matches the
// regular expression pattern and is not omitted by exclusions. Matching is
// case-sensitive and unanchored. An invalid pattern yields nil.
func (b *Backend) ResolveByPattern(pattern string, exclusions KeyExclusions) []VariableValue {
	start := time.Now()

	re, err := regexp.Compile(pattern)
	if err != nil {
		b.fail(opResolveByPattern, stepCompile, err)
		observe(b.name, opResolveByPattern, start, outcomeError)
		return nil
	}

	var out []VariableValue
	err = b.view(opResolveByPattern, func(txn engine.Txn, dbi engine.DBI) error {
		cur, err := txn.OpenCursor(dbi)
		if err != nil {
			return b.fail(opResolveByPattern, stepCursorOpen, err)
		}
		defer cur.Close()

		k, v, err := cur.Get(nil, engine.First)
		for ; err == nil; k, v, err = cur.Get(nil, engine.Next) {
			if !re.Match(k) {
				continue
			}
			key := fromVal(k)
			if omitted(exclusions, key) {
				continue
			}
			out = append(out, VariableValue{Collection: b.name, Key: key, Value: fromVal(v)})
		}
		if !engine.IsNotFound(err) {
			return b.fail(opResolveByPattern, stepCursorGet, err)
		}
		return nil
	})
	observe(b.name, opResolveByPattern, start, outcomeOf(err))
	if err != nil {
		return nil
	}
	return out
}

// Count returns the number of records in the table, duplicates included.
func (b *Backend) Count() (int, bool) {
	start := time.Now()
	n := 0

	err := b.view(opCount, func(txn engine.Txn, dbi engine.DBI) error {
		cur, err := txn.OpenCursor(dbi)
		if err != nil {
			return b.fail(opCount, stepCursorOpen, err)
		}
		defer cur.Close()

		_, _, err = cur.Get(nil, engine.First)
		for ; err == nil; _, _, err = cur.Get(nil, engine.Next) {
			n++
		}
		if !engine.IsNotFound(err) {
			return b.fail(opCount, stepCursorGet, err)
		}
		return nil
	})
	observe(b.name, opCount, start, outcomeOf(err))
	if err != nil {
		return 0, false
	}
	Records.Set(float64(n))
	return n, true
}
