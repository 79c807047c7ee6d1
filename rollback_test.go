package gcoll

import (
	"strings"
	"testing"
	"time"

	"github.com/Giulio2002/gcoll/engine"
	"github.com/Giulio2002/gcoll/engine/memdrv"
)

// rejectedValue is refused by the "faulty" driver's Put.
const rejectedValue = "rejected"

func init() {
	engine.Register("faulty", func(engine.Options) (engine.Engine, error) {
		return faultyEngine{memdrv.New()}, nil
	})
}

// faultyEngine is the mem engine with a Put that fails for rejectedValue,
// after any Del issued earlier in the same transaction has run.
type faultyEngine struct{ engine.Engine }

func (e faultyEngine) BeginTxn(readOnly bool) (engine.Txn, error) {
	txn, err := e.Engine.BeginTxn(readOnly)
	if err != nil {
		return nil, err
	}
	return faultyTxn{txn}, nil
}

type faultyTxn struct{ engine.Txn }

func (t faultyTxn) Put(dbi engine.DBI, key, value []byte) error {
	if string(value) == rejectedValue {
		return engine.NewError(engine.ErrMapFull)
	}
	return t.Txn.Put(dbi, key, value)
}

func checkUnchanged(t *testing.T, b *Backend, key string, want ...string) {
	t.Helper()
	if v, ok := b.ResolveFirst(key); !ok || v != want[0] {
		t.Errorf("ResolveFirst(%s): got %q %v, want %q", key, v, ok, want[0])
	}
	if got := values(b.ResolveDuplicates(key)); !equal(got, want) {
		t.Errorf("ResolveDuplicates(%s): got %v, want %v", key, got, want)
	}
}

func TestFailedReplaceKeepsPriorValues(t *testing.T) {
	b := New("test", openTestEnv(t, "faulty"))
	b.Store("k", "old")
	b.Store("k", "older")

	if b.StoreOrUpdateFirst("k", rejectedValue) {
		t.Fatal("StoreOrUpdateFirst should fail when Put fails")
	}
	checkUnchanged(t, b, "k", "old", "older")

	if b.UpdateFirst("k", rejectedValue) {
		t.Fatal("UpdateFirst should fail when Put fails")
	}
	checkUnchanged(t, b, "k", "old", "older")

	if !b.StoreOrUpdateFirst("k", "new") {
		t.Fatal("StoreOrUpdateFirst after a failed replace failed")
	}
	checkUnchanged(t, b, "k", "new")
}

func TestOversizedReplaceKeepsPriorValue(t *testing.T) {
	// bolt stores duplicates as bucket keys, which bbolt caps at 32 KiB
	b := New("test", openTestEnv(t, "bolt"))
	b.Store("k", "old")

	if b.StoreOrUpdateFirst("k", strings.Repeat("x", 40000)) {
		t.Fatal("StoreOrUpdateFirst of a 40000-byte value should fail on bolt")
	}
	checkUnchanged(t, b, "k", "old")
}

func TestFailedWriteReleasesWriter(t *testing.T) {
	for _, driver := range []string{"mem", "gdbx", "bolt", "faulty"} {
		t.Run(driver, func(t *testing.T) {
			b := New("test", openTestEnv(t, driver))
			if b.Store("", "v") {
				t.Fatal("Store with an empty key should fail")
			}

			done := make(chan bool, 1)
			go func() { done <- b.Store("k", "v") }()
			select {
			case ok := <-done:
				if !ok {
					t.Fatal("Store after a failed Store failed")
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Store after a failed Store did not return")
			}
			if v, ok := b.ResolveFirst("k"); !ok || v != "v" {
				t.Errorf("ResolveFirst: got %q %v, want \"v\"", v, ok)
			}
		})
	}
}
