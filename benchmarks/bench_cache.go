// Package benchmarks compares the collection backend across engine drivers.
package benchmarks

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Giulio2002/gcoll"
	"github.com/Giulio2002/gcoll/engine"
)

var (
	cacheMu  sync.Mutex
	cacheDir string
	envs     = make(map[string]*gcoll.Env)
)

// drivers returns the engines compiled into this binary.
func drivers() []string {
	return engine.Drivers()
}

// forEachDriver runs fn as one sub-benchmark per driver.
func forEachDriver(b *testing.B, fn func(b *testing.B, driver string)) {
	for _, driver := range drivers() {
		b.Run(driver, func(b *testing.B) {
			fn(b, driver)
		})
	}
}

// sizes used by the read benchmarks
var benchSizes = []int{1_000, 100_000}

func formatSize(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%dM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%dK", n/1_000)
	}
	return fmt.Sprintf("%d", n)
}

func benchKey(i int) string {
	return fmt.Sprintf("ip:%d.%d.%d.%d", (i>>24)&0xff, (i>>16)&0xff, (i>>8)&0xff, i&0xff)
}

// freshEnv opens an empty environment that is closed when b finishes.
func freshEnv(b *testing.B, driver string) *gcoll.Env {
	b.Helper()
	env := gcoll.Open(gcoll.Config{
		Path:    filepath.Join(b.TempDir(), "bench.db"),
		Engine:  driver,
		MapSize: 1 << 32,
		NoSync:  true,
	})
	if !env.Valid() {
		b.Fatalf("open %s: %v", driver, env.Err())
	}
	b.Cleanup(func() { env.Close() })
	return env
}

// cachedEnv returns an environment holding size keys with dups values each,
// populated once per process and shared by every benchmark asking for it.
func cachedEnv(b *testing.B, driver string, size, dups int) *gcoll.Env {
	b.Helper()
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("%s_%d_%d", driver, size, dups)
	if env, ok := envs[key]; ok {
		return env
	}

	if cacheDir == "" {
		dir, err := os.MkdirTemp("", "gcoll-bench-*")
		if err != nil {
			b.Fatal(err)
		}
		cacheDir = dir
	}

	env := gcoll.Open(gcoll.Config{
		Path:    filepath.Join(cacheDir, key+".db"),
		Engine:  driver,
		MapSize: 1 << 32,
		NoSync:  true,
	})
	if !env.Valid() {
		b.Fatalf("open %s: %v", driver, env.Err())
	}
	populate(b, env, size, dups)
	envs[key] = env
	return env
}

// populate writes size keys with dups values each, one transaction per key.
func populate(b *testing.B, env *gcoll.Env, size, dups int) {
	b.Helper()
	c := gcoll.New("bench", env)
	for i := 0; i < size; i++ {
		k := benchKey(i)
		for j := 0; j < dups; j++ {
			if !c.Store(k, fmt.Sprintf("%08d", j)) {
				b.Fatalf("populate: Store(%q) failed", k)
			}
		}
	}
}
