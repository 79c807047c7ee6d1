package gcoll

import (
	"sync"
	"sync/atomic"

	"github.com/Giulio2002/gcoll/engine"
)

// Env is an open environment: one engine instance and the dup-sorted table
// every collection stores into. An Env is safe for concurrent use.
//
// An Env whose open failed is still a usable value: Valid reports false, Err
// returns the cause, and backends bound to it fail every operation.
type Env struct {
	cfg Config
	eng engine.Engine
	dbi engine.DBI
	err error

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open opens the environment described by cfg, creating the file and the
// table as needed. Open never returns nil; check Valid.
func Open(cfg Config) *Env {
	cfg = cfg.withDefaults()
	e := &Env{cfg: cfg}

	eng, err := engine.Open(cfg.Engine, cfg.options())
	if err != nil {
		e.err = err
		logFailure("", "open", stepEnvOpen, err)
		return e
	}

	dbi, err := eng.OpenTable(cfg.Table, engine.Create|engine.DupSort)
	if err != nil {
		eng.Close()
		e.err = err
		logFailure("", "open", stepTableOpen, err)
		return e
	}

	e.eng = eng
	e.dbi = dbi
	return e
}

// Valid reports whether the environment is open and usable.
func (e *Env) Valid() bool {
	return e.eng != nil && !e.closed.Load()
}

// Err returns why the environment is not valid, or nil.
func (e *Env) Err() error {
	if e.err != nil {
		return e.err
	}
	if e.closed.Load() {
		return engine.ErrInvalidEnv
	}
	return nil
}

// Engine returns the engine handle. Only meaningful when Valid.
func (e *Env) Engine() engine.Engine {
	return e.eng
}

// DBI returns the table handle. Only meaningful when Valid.
func (e *Env) DBI() engine.DBI {
	return e.dbi
}

// Config returns the configuration the environment was opened with,
// defaults filled in.
func (e *Env) Config() Config {
	return e.cfg
}

// Close closes the engine. Transactions must not be running. Calling Close
// more than once returns the first result.
func (e *Env) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.eng != nil {
			e.closeErr = e.eng.Close()
		}
	})
	return e.closeErr
}

var (
	sharedOnce sync.Once
	sharedEnv  *Env
)

// Shared returns the process-wide environment, opening it with
// DefaultConfig on first use unless InitShared ran first.
func Shared() *Env {
	return InitShared(DefaultConfig())
}

// InitShared opens the process-wide environment with cfg if it has not been
// opened yet, and returns it. Once opened, later cfg values are ignored.
// Concurrent first calls open the environment exactly once.
func InitShared(cfg Config) *Env {
	sharedOnce.Do(func() {
		sharedEnv = Open(cfg)
	})
	return sharedEnv
}
