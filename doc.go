// Package gcoll implements persistent collections for a security rule
// engine: named variables (counters, session markers, reputation scores)
// that survive across requests and are shared by every caller in the
// process, and by other processes through the database file.
//
// Records live in one table of an MDBX-family environment configured for
// sorted duplicates, so a key may hold several values. The default engine
// is gdbx, a pure Go MDBX; bbolt, an in-memory B-tree and (with the mdbx
// build tag) libmdbx are available through the same contract.
//
// Key features:
//   - Exact lookup, duplicate enumeration, prefix scan, regex scan
//   - Replace and delete with one value per key afterwards
//   - Snapshot reads, one serialized writer
//   - Every transaction and cursor released on every path
//
// Basic usage:
//
//	env := gcoll.Open(gcoll.DefaultConfig())
//	if !env.Valid() {
//	    log.Fatal(env.Err())
//	}
//	defer env.Close()
//
//	ip := gcoll.New("ip", env)
//	ip.Store("ip:1.2.3.4", "5")
//
//	if v, ok := ip.ResolveFirst("ip:1.2.3.4"); ok {
//	    fmt.Println(v)
//	}
//
//	for _, r := range ip.ResolveByPattern(`^ip:10\.`, gcoll.ExcludeKeys("ip:10.0.0.1")) {
//	    fmt.Println(r.Key, r.Value)
//	}
//
// Operations report failure through their return values only. Engine
// failures are described on a debug logger that is off by default; see
// SetDebugLog.
package gcoll
