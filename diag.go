package gcoll

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/Giulio2002/gcoll/engine"
)

var (
	debugLog atomic.Bool
	logger   atomic.Pointer[slog.Logger]
)

func init() {
	logger.Store(defaultLogger())
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// SetDebugLog enables or disables failure diagnostics.
func SetDebugLog(enabled bool) {
	debugLog.Store(enabled)
}

// SetLogger replaces the diagnostics sink. A nil logger restores the default
// text handler on stderr.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = defaultLogger()
	}
	logger.Store(l)
}

// describe returns a human readable description of a failed step.
func describe(step string, err error) string {
	code := engine.Code(err)

	switch step {
	case stepEnvOpen, stepTableOpen:
		switch code {
		case engine.ErrAccess:
			return "database file is not accessible with the configured permissions"
		case engine.ErrInvalid:
			return "database file cannot be opened, the path does not exist or is not an environment"
		case engine.ErrCorrupted:
			return "database file is corrupted"
		case engine.ErrAgain:
			return "database file is locked by another handle or process"
		}
	case stepTxnBegin:
		switch code {
		case engine.ErrPanic:
			return "environment hit a fatal error earlier and must be reopened"
		case engine.ErrMapResized:
			return "another process grew the map beyond this mapping"
		case engine.ErrReadersFull:
			return "reader slot table is full"
		case engine.ErrNoMem:
			return "out of memory starting the transaction"
		case engine.ErrInvalid:
			return "environment is not open"
		case engine.ErrBusy:
			return "another write transaction is running"
		}
	case stepGet, stepCursorGet:
		switch code {
		case engine.ErrNotFound:
			return "key not found"
		case engine.ErrBadTxn:
			return "transaction is no longer usable"
		case engine.ErrBadDBI:
			return "table handle is not valid in this transaction"
		}
	case stepDel, stepPut:
		switch code {
		case engine.ErrAccess:
			return "write attempted inside a read-only transaction"
		case engine.ErrInvalidArg, engine.ErrBadValSize:
			return "key or value rejected by the engine"
		case engine.ErrMapFull:
			return "map size limit reached"
		}
	case stepCommit:
		switch code {
		case engine.ErrInvalidArg:
			return "transaction is not valid for commit"
		case engine.ErrNoSpace:
			return "no space left on device"
		case engine.ErrIO:
			return "low-level I/O error while writing"
		case engine.ErrNoMem:
			return "out of memory during commit"
		case engine.ErrMapFull:
			return "map size limit reached"
		}
	case stepCompile:
		return "pattern is not a valid regular expression"
	}
	return code.String()
}

// logFailure emits one diagnostic line when debug logging is enabled.
func logFailure(collection, op, step string, err error) {
	if !debugLog.Load() {
		return
	}
	l := logger.Load()
	if !l.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	l.Debug(describe(step, err),
		"collection", collection,
		"op", op,
		"step", step,
		"code", int(engine.Code(err)),
		"err", err,
	)
}
