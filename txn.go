package gcoll

import (
	"errors"

	"github.com/Giulio2002/gcoll/engine"
)

// errNoWrite ends an update scope successfully without committing.
var errNoWrite = errors.New("gcoll: nothing to write")

// scopeFunc runs inside a transaction on the backend's table.
type scopeFunc func(txn engine.Txn, dbi engine.DBI) error

// bind attaches the backend to its environment on first use.
func (b *Backend) bind() *Env {
	b.bindOnce.Do(func() {
		if b.env == nil {
			b.env = Shared()
		}
	})
	return b.env
}

// beginTxn starts a transaction on the bound environment. An invalid
// environment fails without touching the engine.
func (b *Backend) beginTxn(readOnly bool) (engine.Txn, engine.DBI, error) {
	env := b.bind()
	if !env.Valid() {
		return nil, 0, engine.ErrInvalidEnv
	}
	txn, err := env.Engine().BeginTxn(readOnly)
	if err != nil {
		return nil, 0, err
	}
	return txn, env.DBI(), nil
}

// view runs fn in a read-only transaction that is always aborted.
func (b *Backend) view(op string, fn scopeFunc) error {
	txn, dbi, err := b.beginTxn(true)
	if err != nil {
		return b.fail(op, stepTxnBegin, err)
	}
	defer txn.Abort()

	return fn(txn, dbi)
}

// update runs fn in a read-write transaction, committing when fn succeeds
// and aborting on every other path, panics included. If fn returns
// errNoWrite the transaction is aborted and update reports success.
func (b *Backend) update(op string, fn scopeFunc) error {
	txn, dbi, err := b.beginTxn(false)
	if err != nil {
		return b.fail(op, stepTxnBegin, err)
	}
	// no-op once Commit ran
	defer txn.Abort()

	if err := fn(txn, dbi); err != nil {
		if errors.Is(err, errNoWrite) {
			return nil
		}
		return err
	}
	if err := txn.Commit(); err != nil {
		return b.fail(op, stepCommit, err)
	}
	return nil
}

// fail reports a failed step and returns err unchanged.
func (b *Backend) fail(op, step string, err error) error {
	logFailure(b.name, op, step, err)
	return err
}
