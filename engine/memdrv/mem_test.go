package memdrv

import (
	"testing"

	"github.com/Giulio2002/gcoll/engine"
	"github.com/Giulio2002/gcoll/engine/enginetest"
)

func TestContract(t *testing.T) {
	enginetest.Run(t, func(t *testing.T) engine.Engine {
		return New()
	})
}

func TestOpenTableWithoutCreate(t *testing.T) {
	eng := New()
	defer eng.Close()

	if _, err := eng.OpenTable("absent", engine.DupSort); !engine.IsNotFound(err) {
		t.Fatalf("OpenTable without Create: got %v, want not found", err)
	}
}

func TestEmptyValue(t *testing.T) {
	eng := New()
	defer eng.Close()

	dbi, err := eng.OpenTable("t", engine.Create|engine.DupSort)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	enginetest.Put(t, eng, dbi, "k", "")

	got := enginetest.Scan(t, eng, dbi)
	if len(got) != 1 || got[0] != "k=" {
		t.Errorf("scan: got %v, want [k=]", got)
	}
}

func TestPlainTableOverwrites(t *testing.T) {
	eng := New()
	defer eng.Close()

	dbi, err := eng.OpenTable("plain", engine.Create)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	enginetest.Put(t, eng, dbi, "k", "1")
	enginetest.Put(t, eng, dbi, "k", "2")

	got := enginetest.Scan(t, eng, dbi)
	if len(got) != 1 || got[0] != "k=2" {
		t.Errorf("scan: got %v, want [k=2]", got)
	}
}

func TestClosed(t *testing.T) {
	eng := New()
	eng.Close()

	if _, err := eng.BeginTxn(true); engine.Code(err) != engine.ErrInvalid {
		t.Errorf("BeginTxn on closed engine: got %v, want invalid", err)
	}
}
