package gcoll

import (
	"fmt"
	"path/filepath"
	"sort"
	"testing"
)

var testEngines = []string{"mem", "gdbx", "bolt"}

// openTestEnv opens a fresh environment on driver in a temp directory.
func openTestEnv(t *testing.T, driver string) *Env {
	t.Helper()
	env := Open(Config{
		Path:   filepath.Join(t.TempDir(), "collections.db"),
		Mode:   0644,
		Engine: driver,
		NoSync: true,
	})
	if !env.Valid() {
		t.Fatalf("Open(%s) failed: %v", driver, env.Err())
	}
	t.Cleanup(func() { env.Close() })
	return env
}

// forEachEngine runs fn once per driver with a fresh backend.
func forEachEngine(t *testing.T, fn func(t *testing.T, b *Backend)) {
	for _, driver := range testEngines {
		t.Run(driver, func(t *testing.T) {
			fn(t, New("test", openTestEnv(t, driver)))
		})
	}
}

func values(vv []VariableValue) []string {
	out := make([]string, len(vv))
	for i, v := range vv {
		out[i] = v.Value
	}
	return out
}

func pairs(vv []VariableValue) []string {
	out := make([]string, len(vv))
	for i, v := range vv {
		out[i] = v.Key + "=" + v.Value
	}
	return out
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

func TestStoreResolveFirst(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		if _, ok := b.ResolveFirst("missing"); ok {
			t.Fatal("ResolveFirst on empty collection should be absent")
		}
		if !b.Store("k", "v") {
			t.Fatal("Store failed")
		}
		v, ok := b.ResolveFirst("k")
		if !ok || v != "v" {
			t.Errorf("ResolveFirst: got %q, %v, want \"v\", true", v, ok)
		}
	})
}

func TestIPScenario(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		const key = "ip:1.2.3.4"

		if !b.Store(key, "5") {
			t.Fatal("Store failed")
		}
		if v, ok := b.ResolveFirst(key); !ok || v != "5" {
			t.Fatalf("after Store: got %q, %v, want \"5\"", v, ok)
		}

		if !b.StoreOrUpdateFirst(key, "6") {
			t.Fatal("StoreOrUpdateFirst failed")
		}
		if v, ok := b.ResolveFirst(key); !ok || v != "6" {
			t.Fatalf("after replace: got %q, %v, want \"6\"", v, ok)
		}

		if !b.Delete(key) {
			t.Fatal("Delete failed")
		}
		if _, ok := b.ResolveFirst(key); ok {
			t.Fatal("key should be absent after Delete")
		}
	})
}

func TestDuplicates(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		b.Store("a", "2")
		b.Store("a", "1")
		b.Store("b", "0")

		got := b.ResolveDuplicates("a")
		if want := []string{"1", "2"}; !equal(values(got), want) {
			t.Fatalf("ResolveDuplicates: got %v, want %v", values(got), want)
		}
		for _, r := range got {
			if r.Collection != "test" || r.Key != "a" {
				t.Errorf("result %+v should carry collection and key", r)
			}
		}

		if v, _ := b.ResolveFirst("a"); v != "1" {
			t.Errorf("ResolveFirst: got %q, want first duplicate \"1\"", v)
		}
		if got := b.ResolveDuplicates("missing"); len(got) != 0 {
			t.Errorf("ResolveDuplicates of absent key: got %v", pairs(got))
		}
	})
}

func TestReplaceLeavesOneValue(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		b.Store("k", "old1")
		b.Store("k", "old2")

		if !b.StoreOrUpdateFirst("k", "v1") {
			t.Fatal("first replace failed")
		}
		if !b.StoreOrUpdateFirst("k", "v2") {
			t.Fatal("second replace failed")
		}

		if v, _ := b.ResolveFirst("k"); v != "v2" {
			t.Errorf("ResolveFirst: got %q, want \"v2\"", v)
		}
		if got := b.ResolveDuplicates("k"); !equal(values(got), []string{"v2"}) {
			t.Errorf("ResolveDuplicates: got %v, want [v2]", values(got))
		}
	})
}

func TestStoreOrUpdateFirstAbsent(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		if !b.StoreOrUpdateFirst("new", "1") {
			t.Fatal("StoreOrUpdateFirst of an absent key should store it")
		}
		if v, ok := b.ResolveFirst("new"); !ok || v != "1" {
			t.Errorf("ResolveFirst: got %q, %v", v, ok)
		}
	})
}

func TestUpdateFirst(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		if b.UpdateFirst("absent", "1") {
			t.Fatal("UpdateFirst of an absent key should fail")
		}
		if _, ok := b.ResolveFirst("absent"); ok {
			t.Fatal("failed UpdateFirst must not write")
		}

		b.Store("k", "1")
		b.Store("k", "2")
		if !b.UpdateFirst("k", "3") {
			t.Fatal("UpdateFirst of an existing key failed")
		}
		if got := b.ResolveDuplicates("k"); !equal(values(got), []string{"3"}) {
			t.Errorf("ResolveDuplicates: got %v, want [3]", values(got))
		}
	})
}

func TestDelete(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		if !b.Delete("never-stored") {
			t.Fatal("Delete of an absent key should succeed")
		}

		b.Store("k", "1")
		b.Store("k", "2")
		b.Store("other", "x")

		if !b.Delete("k") {
			t.Fatal("Delete failed")
		}
		if got := b.ResolveDuplicates("k"); len(got) != 0 {
			t.Errorf("Delete should remove every duplicate, left %v", values(got))
		}
		if v, ok := b.ResolveFirst("other"); !ok || v != "x" {
			t.Errorf("Delete touched another key: %q, %v", v, ok)
		}
	})
}

func TestEmptyValue(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		if !b.Store("k", "") {
			t.Fatal("Store of empty value failed")
		}
		v, ok := b.ResolveFirst("k")
		if !ok || v != "" {
			t.Errorf("ResolveFirst: got %q, %v, want \"\", true", v, ok)
		}
	})
}

func TestEmptyKeyRejected(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		if b.Store("", "v") {
			t.Error("Store with an empty key should fail")
		}
	})
}

func seed(t *testing.T, b *Backend) []string {
	t.Helper()
	records := [][2]string{
		{"ip:1.2.3.4", "5"},
		{"ip:10.0.0.1", "1"},
		{"ip:10.0.0.2", "2"},
		{"ip:10.0.0.2", "3"},
		{"IP:10.0.0.3", "9"},
		{"session:abc", "s"},
		{"ipx", "n"},
	}
	var all []string
	for _, r := range records {
		if !b.Store(r[0], r[1]) {
			t.Fatalf("Store(%q, %q) failed", r[0], r[1])
		}
		all = append(all, r[0]+"="+r[1])
	}
	sort.Strings(all)
	return all
}

func TestResolveByPrefixAll(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		if got := b.ResolveByPrefix("", nil); len(got) != 0 {
			t.Fatalf("empty collection: got %v", pairs(got))
		}

		all := seed(t, b)
		got := pairs(b.ResolveByPrefix("", nil))
		sort.Strings(got)
		if !equal(got, all) {
			t.Errorf("ResolveByPrefix(\"\"): got %v, want %v", got, all)
		}
	})
}

func TestResolveByPrefix(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		seed(t, b)

		got := pairs(b.ResolveByPrefix("ip:10.", nil))
		want := []string{"ip:10.0.0.1=1", "ip:10.0.0.2=2", "ip:10.0.0.2=3"}
		if !equal(got, want) {
			t.Errorf("ResolveByPrefix(ip:10.): got %v, want %v", got, want)
		}

		got = pairs(b.ResolveByPrefix("ip", ExcludeKeys("ip:10.0.0.2")))
		want = []string{"ip:1.2.3.4=5", "ip:10.0.0.1=1", "ipx=n"}
		if !equal(got, want) {
			t.Errorf("ResolveByPrefix(ip) with exclusion: got %v, want %v", got, want)
		}

		if got := b.ResolveByPrefix("zzz", nil); len(got) != 0 {
			t.Errorf("prefix past every key: got %v", pairs(got))
		}
		if got := b.ResolveByPrefix("ip:10.*", nil); len(got) != 0 {
			t.Errorf("prefix has no wildcard semantics: got %v", pairs(got))
		}
	})
}

func TestResolveByPattern(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		seed(t, b)

		got := pairs(b.ResolveByPattern(`^ip:10\.`, ExcludeKeys("ip:10.0.0.1")))
		want := []string{"ip:10.0.0.2=2", "ip:10.0.0.2=3"}
		if !equal(got, want) {
			t.Errorf("ResolveByPattern with exclusion: got %v, want %v", got, want)
		}

		// unanchored and case-sensitive
		got = pairs(b.ResolveByPattern(`10\.0\.0\.[13]`, nil))
		want = []string{"IP:10.0.0.3=9", "ip:10.0.0.1=1"}
		if !equal(got, want) {
			t.Errorf("ResolveByPattern unanchored: got %v, want %v", got, want)
		}
		if got := b.ResolveByPattern(`^ip:10\.0\.0\.3$`, nil); len(got) != 0 {
			t.Errorf("matching should be case-sensitive: got %v", pairs(got))
		}

		omitSessions := ExclusionFunc(func(key string) bool {
			return len(key) > 8 && key[:8] == "session:"
		})
		if got := b.ResolveByPattern(`.`, omitSessions); len(got) != 6 {
			t.Errorf("ResolveByPattern(.) with func exclusion: got %d records, want 6", len(got))
		}
	})
}

func TestResolveByPatternInvalid(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		seed(t, b)
		if got := b.ResolveByPattern(`(`, nil); got != nil {
			t.Errorf("invalid pattern: got %v, want nil", pairs(got))
		}
	})
}

func TestResultsAreCopies(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		b.Store("k", "before")
		got := b.ResolveByPrefix("k", nil)

		b.StoreOrUpdateFirst("k", "after")
		b.Store("k2", "more")

		if len(got) != 1 || got[0].Value != "before" {
			t.Errorf("earlier result changed: %v", pairs(got))
		}
	})
}

func TestCount(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		if n, ok := b.Count(); !ok || n != 0 {
			t.Fatalf("Count on empty: got %d, %v", n, ok)
		}
		all := seed(t, b)
		if n, ok := b.Count(); !ok || n != len(all) {
			t.Errorf("Count: got %d, %v, want %d", n, ok, len(all))
		}
	})
}

func TestSnapshotIsolation(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		env := b.Env()
		b.Store("counter", "1")

		before, err := env.Engine().BeginTxn(true)
		if err != nil {
			t.Fatalf("BeginTxn failed: %v", err)
		}
		defer before.Abort()

		if !b.StoreOrUpdateFirst("counter", "2") {
			t.Fatal("StoreOrUpdateFirst failed")
		}

		v, err := before.Get(env.DBI(), []byte("counter"))
		if err != nil || string(v) != "1" {
			t.Errorf("reader begun before the write: got %q, %v, want \"1\"", v, err)
		}
		if v, _ := b.ResolveFirst("counter"); v != "2" {
			t.Errorf("reader begun after the write: got %q, want \"2\"", v)
		}
	})
}

func TestSharedTable(t *testing.T) {
	env := openTestEnv(t, "mem")
	ip := New("ip", env)
	global := New("global", env)

	ip.Store("k", "v")
	v, ok := global.ResolveFirst("k")
	if !ok || v != "v" {
		t.Fatalf("backends on one Env should share records: got %q, %v", v, ok)
	}
	if r := global.ResolveDuplicates("k"); len(r) != 1 || r[0].Collection != "global" {
		t.Errorf("result should carry the resolving collection: %+v", r)
	}
}

func TestConcurrentStores(t *testing.T) {
	forEachEngine(t, func(t *testing.T, b *Backend) {
		const workers, per = 8, 25

		done := make(chan bool, workers)
		for w := 0; w < workers; w++ {
			go func(w int) {
				ok := true
				for i := 0; i < per; i++ {
					ok = b.Store(fmt.Sprintf("w%d", w), fmt.Sprintf("%03d", i)) && ok
					b.ResolveByPrefix("w", nil)
				}
				done <- ok
			}(w)
		}
		for w := 0; w < workers; w++ {
			if !<-done {
				t.Error("a concurrent Store failed")
			}
		}

		if n, _ := b.Count(); n != workers*per {
			t.Errorf("Count: got %d, want %d", n, workers*per)
		}
	})
}
