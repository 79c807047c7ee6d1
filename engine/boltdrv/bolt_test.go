package boltdrv

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/Giulio2002/gcoll/engine"
	"github.com/Giulio2002/gcoll/engine/enginetest"
)

func openTemp(t *testing.T) engine.Engine {
	t.Helper()
	eng, err := Open(engine.Options{
		Path:   filepath.Join(t.TempDir(), "test.bolt"),
		Mode:   0644,
		NoSync: true,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return eng
}

func TestContract(t *testing.T) {
	enginetest.Run(t, openTemp)
}

func TestEmptyValue(t *testing.T) {
	eng := openTemp(t)
	defer eng.Close()

	dbi, err := eng.OpenTable("t", engine.Create|engine.DupSort)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	enginetest.Put(t, eng, dbi, "k", "", "k", "x")

	got := enginetest.Scan(t, eng, dbi)
	if len(got) != 2 || got[0] != "k=" || got[1] != "k=x" {
		t.Errorf("scan: got %v, want [k= k=x]", got)
	}
}

func TestLastDuplicateRemovesKey(t *testing.T) {
	eng := openTemp(t)
	defer eng.Close()

	dbi, err := eng.OpenTable("t", engine.Create|engine.DupSort)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	enginetest.Put(t, eng, dbi, "k", "only", "m", "1")

	txn, err := eng.BeginTxn(false)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	if err := txn.Del(dbi, []byte("k"), []byte("only")); err != nil {
		txn.Abort()
		t.Fatalf("Del failed: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	txn, err = eng.BeginTxn(true)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	defer txn.Abort()
	if _, err := txn.Get(dbi, []byte("k")); !engine.IsNotFound(err) {
		t.Errorf("Get after deleting the last duplicate: got %v, want not found", err)
	}
}

func TestMainTable(t *testing.T) {
	eng := openTemp(t)
	defer eng.Close()

	dbi, err := eng.OpenTable("", engine.Create)
	if err != nil {
		t.Fatalf("OpenTable(\"\") failed: %v", err)
	}
	enginetest.Put(t, eng, dbi, "k", "1")
	enginetest.Put(t, eng, dbi, "k", "2")

	got := enginetest.Scan(t, eng, dbi)
	if len(got) != 1 || got[0] != "k=2" {
		t.Errorf("plain table scan: got %v, want [k=2]", got)
	}
}

func TestLockedFile(t *testing.T) {
	opts := engine.Options{Path: filepath.Join(t.TempDir(), "locked.bolt"), Mode: 0644}
	eng, err := Open(opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer eng.Close()

	second, err := Open(opts)
	if err == nil {
		second.Close()
		t.Fatal("second Open of a locked file succeeded")
	}
	if got := engine.Code(err); got != engine.ErrAgain {
		t.Errorf("second Open: got code %d (%v), want ErrAgain", got, err)
	}
}

func TestDuplicateTooLarge(t *testing.T) {
	eng := openTemp(t)
	defer eng.Close()

	dbi, err := eng.OpenTable("t", engine.Create|engine.DupSort)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	txn, err := eng.BeginTxn(false)
	if err != nil {
		t.Fatalf("BeginTxn failed: %v", err)
	}
	defer txn.Abort()

	err = txn.Put(dbi, []byte("k"), []byte(strings.Repeat("x", 40000)))
	if got := engine.Code(err); got != engine.ErrBadValSize {
		t.Errorf("Put of a 40000-byte duplicate: got %v, want ErrBadValSize", err)
	}
}
