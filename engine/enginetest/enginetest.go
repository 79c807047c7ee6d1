// Package enginetest is the contract suite every engine driver must pass.
package enginetest

import (
	"fmt"
	"testing"

	"github.com/Giulio2002/gcoll/engine"
)

// OpenFunc opens a fresh, empty engine for one test. The suite closes it.
type OpenFunc func(t *testing.T) engine.Engine

// Run runs the contract suite against the driver opened by open.
func Run(t *testing.T, open OpenFunc) {
	tests := []struct {
		name string
		fn   func(t *testing.T, eng engine.Engine, dbi engine.DBI)
	}{
		{"PutGet", testPutGet},
		{"DupOrdering", testDupOrdering},
		{"DelValue", testDelValue},
		{"DelAll", testDelAll},
		{"CursorScan", testCursorScan},
		{"SetRange", testSetRange},
		{"Abort", testAbort},
		{"SnapshotIsolation", testSnapshotIsolation},
		{"ReadOnlyWrite", testReadOnlyWrite},
		{"TxnTermination", testTxnTermination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := open(t)
			defer eng.Close()

			dbi, err := eng.OpenTable("contract", engine.Create|engine.DupSort)
			if err != nil {
				t.Fatalf("OpenTable failed: %v", err)
			}
			again, err := eng.OpenTable("contract", engine.Create|engine.DupSort)
			if err != nil {
				t.Fatalf("OpenTable (again) failed: %v", err)
			}
			if again != dbi {
				t.Fatalf("OpenTable handle mismatch: got %d, want %d", again, dbi)
			}
			tt.fn(t, eng, dbi)
		})
	}
}

// Put writes pairs in one committed transaction, failing the test on error.
func Put(t *testing.T, eng engine.Engine, dbi engine.DBI, pairs ...string) {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatalf("Put needs key/value pairs, got %d strings", len(pairs))
	}

	txn, err := eng.BeginTxn(false)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	for i := 0; i < len(pairs); i += 2 {
		if err := txn.Put(dbi, []byte(pairs[i]), []byte(pairs[i+1])); err != nil {
			txn.Abort()
			t.Fatalf("Put(%q, %q) failed: %v", pairs[i], pairs[i+1], err)
		}
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

// Scan returns every record as "key=value" in cursor order.
func Scan(t *testing.T, eng engine.Engine, dbi engine.DBI) []string {
	t.Helper()

	txn, err := eng.BeginTxn(true)
	if err != nil {
		t.Fatalf("BeginTxn (read) failed: %v", err)
	}
	defer txn.Abort()

	cur, err := txn.OpenCursor(dbi)
	if err != nil {
		t.Fatalf("OpenCursor failed: %v", err)
	}
	defer cur.Close()

	var out []string
	for {
		k, v, err := cur.Get(nil, engine.Next)
		if engine.IsNotFound(err) {
			break
		}
		if err != nil {
			t.Fatalf("cursor Next failed: %v", err)
		}
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

func get(t *testing.T, eng engine.Engine, dbi engine.DBI, key string) (string, bool) {
	t.Helper()

	txn, err := eng.BeginTxn(true)
	if err != nil {
		t.Fatalf("BeginTxn (read) failed: %v", err)
	}
	defer txn.Abort()

	v, err := txn.Get(dbi, []byte(key))
	if engine.IsNotFound(err) {
		return "", false
	}
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return string(v), true
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testPutGet(t *testing.T, eng engine.Engine, dbi engine.DBI) {
	if _, ok := get(t, eng, dbi, "missing"); ok {
		t.Fatal("Get on empty table should report not found")
	}

	Put(t, eng, dbi, "ip:1.2.3.4", "5")

	v, ok := get(t, eng, dbi, "ip:1.2.3.4")
	if !ok || v != "5" {
		t.Errorf("Get mismatch: got %q (found=%v), want %q", v, ok, "5")
	}
	if _, ok := get(t, eng, dbi, "ip:1.2.3.5"); ok {
		t.Error("Get on absent key should report not found")
	}
}

func testDupOrdering(t *testing.T, eng engine.Engine, dbi engine.DBI) {
	Put(t, eng, dbi, "k", "b", "k", "c", "k", "a", "j", "z", "l", "0")

	if v, _ := get(t, eng, dbi, "k"); v != "a" {
		t.Errorf("Get should return the first duplicate: got %q, want %q", v, "a")
	}

	txn, err := eng.BeginTxn(true)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	defer txn.Abort()

	cur, err := txn.OpenCursor(dbi)
	if err != nil {
		t.Fatalf("OpenCursor failed: %v", err)
	}
	defer cur.Close()

	k, v, err := cur.Get([]byte("k"), engine.SetKey)
	if err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	got := []string{string(k) + "=" + string(v)}
	for {
		k, v, err = cur.Get(nil, engine.NextDup)
		if engine.IsNotFound(err) {
			break
		}
		if err != nil {
			t.Fatalf("NextDup failed: %v", err)
		}
		got = append(got, string(k)+"="+string(v))
	}

	want := []string{"k=a", "k=b", "k=c"}
	if !equal(got, want) {
		t.Errorf("duplicates mismatch: got %v, want %v", got, want)
	}

	if _, _, err := cur.Get([]byte("kk"), engine.SetKey); !engine.IsNotFound(err) {
		t.Errorf("SetKey on absent key: got %v, want not found", err)
	}
}

func testDelValue(t *testing.T, eng engine.Engine, dbi engine.DBI) {
	Put(t, eng, dbi, "a", "1", "a", "2", "a", "3")

	txn, err := eng.BeginTxn(false)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	if err := txn.Del(dbi, []byte("a"), []byte("2")); err != nil {
		txn.Abort()
		t.Fatalf("Del value failed: %v", err)
	}
	if err := txn.Del(dbi, []byte("a"), []byte("9")); !engine.IsNotFound(err) {
		txn.Abort()
		t.Fatalf("Del of absent value: got %v, want not found", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	want := []string{"a=1", "a=3"}
	if got := Scan(t, eng, dbi); !equal(got, want) {
		t.Errorf("after Del value: got %v, want %v", got, want)
	}
}

func testDelAll(t *testing.T, eng engine.Engine, dbi engine.DBI) {
	Put(t, eng, dbi, "a", "1", "a", "2", "b", "1")

	txn, err := eng.BeginTxn(false)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	if err := txn.Del(dbi, []byte("a"), nil); err != nil {
		txn.Abort()
		t.Fatalf("Del all failed: %v", err)
	}
	if err := txn.Del(dbi, []byte("zz"), nil); !engine.IsNotFound(err) {
		txn.Abort()
		t.Fatalf("Del of absent key: got %v, want not found", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, ok := get(t, eng, dbi, "a"); ok {
		t.Error("key should be absent after deleting all duplicates")
	}
	want := []string{"b=1"}
	if got := Scan(t, eng, dbi); !equal(got, want) {
		t.Errorf("after Del all: got %v, want %v", got, want)
	}
}

func testCursorScan(t *testing.T, eng engine.Engine, dbi engine.DBI) {
	if got := Scan(t, eng, dbi); len(got) != 0 {
		t.Fatalf("scan of empty table: got %v", got)
	}

	Put(t, eng, dbi, "c", "1", "a", "2", "b", "2", "a", "1", "ab", "x")

	want := []string{"a=1", "a=2", "ab=x", "b=2", "c=1"}
	if got := Scan(t, eng, dbi); !equal(got, want) {
		t.Errorf("scan mismatch: got %v, want %v", got, want)
	}
}

func testSetRange(t *testing.T, eng engine.Engine, dbi engine.DBI) {
	Put(t, eng, dbi, "apple", "1", "banana", "2", "cherry", "3")

	txn, err := eng.BeginTxn(true)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	defer txn.Abort()

	cur, err := txn.OpenCursor(dbi)
	if err != nil {
		t.Fatalf("OpenCursor failed: %v", err)
	}
	defer cur.Close()

	k, v, err := cur.Get([]byte("b"), engine.SetRange)
	if err != nil {
		t.Fatalf("SetRange failed: %v", err)
	}
	if string(k) != "banana" || string(v) != "2" {
		t.Errorf("SetRange mismatch: got %s=%s, want banana=2", k, v)
	}
	k, _, err = cur.Get(nil, engine.Next)
	if err != nil || string(k) != "cherry" {
		t.Errorf("Next after SetRange: got %q, %v; want cherry", k, err)
	}
	if _, _, err := cur.Get([]byte("d"), engine.SetRange); !engine.IsNotFound(err) {
		t.Errorf("SetRange past the end: got %v, want not found", err)
	}
}

func testAbort(t *testing.T, eng engine.Engine, dbi engine.DBI) {
	txn, err := eng.BeginTxn(false)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	if err := txn.Put(dbi, []byte("k"), []byte("v")); err != nil {
		txn.Abort()
		t.Fatalf("Put failed: %v", err)
	}
	txn.Abort()

	if _, ok := get(t, eng, dbi, "k"); ok {
		t.Error("aborted write should not be visible")
	}
}

func testSnapshotIsolation(t *testing.T, eng engine.Engine, dbi engine.DBI) {
	Put(t, eng, dbi, "counter", "1")

	before, err := eng.BeginTxn(true)
	if err != nil {
		t.Fatalf("BeginTxn (read) failed: %v", err)
	}
	defer before.Abort()

	// make sure the snapshot is established before the write
	if v, err := before.Get(dbi, []byte("counter")); err != nil || string(v) != "1" {
		t.Fatalf("snapshot read: got %q, %v", v, err)
	}

	txn, err := eng.BeginTxn(false)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	if err := txn.Put(dbi, []byte("fresh"), []byte("x")); err != nil {
		txn.Abort()
		t.Fatalf("Put failed: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, err := before.Get(dbi, []byte("fresh")); !engine.IsNotFound(err) {
		t.Errorf("older snapshot saw a later commit: %v", err)
	}
	if v, ok := get(t, eng, dbi, "fresh"); !ok || v != "x" {
		t.Errorf("newer snapshot: got %q (found=%v), want x", v, ok)
	}
}

func testReadOnlyWrite(t *testing.T, eng engine.Engine, dbi engine.DBI) {
	txn, err := eng.BeginTxn(true)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	defer txn.Abort()

	if !txn.ReadOnly() {
		t.Fatal("transaction should be read-only")
	}
	err = txn.Put(dbi, []byte("k"), []byte("v"))
	if err == nil {
		t.Fatal("Put in a read-only transaction should fail")
	}
	if code := engine.Code(err); code != engine.ErrAccess {
		t.Errorf("Put in read-only txn: got code %d (%v), want %d", code, err, engine.ErrAccess)
	}
}

func testTxnTermination(t *testing.T, eng engine.Engine, dbi engine.DBI) {
	txn, err := eng.BeginTxn(false)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	if err := txn.Put(dbi, []byte("k"), []byte("v")); err != nil {
		txn.Abort()
		t.Fatalf("Put failed: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := txn.Commit(); err == nil {
		t.Error("second Commit should fail")
	}
	txn.Abort() // no-op after commit

	// the writer slot was released: a new write transaction can start
	Put(t, eng, dbi, "k2", "v2")
	want := []string{"k=v", "k2=v2"}
	if got := Scan(t, eng, dbi); !equal(got, want) {
		t.Errorf("scan mismatch: got %v, want %v", got, want)
	}
}
