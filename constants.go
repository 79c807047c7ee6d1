package gcoll

import "os"

// Defaults for Config
const (
	// DefaultPath is the database file, relative to the working directory
	DefaultPath = "./modsec-shared-collections"

	// DefaultMode is the permission mode of a created database file
	DefaultMode os.FileMode = 0664

	// DefaultEngine is the driver used when Config.Engine is empty
	DefaultEngine = "gdbx"

	// DefaultTable is the table holding every collection record
	DefaultTable = "collections"
)

// Operation names, as used in metrics labels and diagnostics
const (
	opStore              = "store"
	opStoreOrUpdateFirst = "store_or_update_first"
	opUpdateFirst        = "update_first"
	opDelete             = "delete"
	opResolveFirst       = "resolve_first"
	opResolveDuplicates  = "resolve_duplicates"
	opResolveByPrefix    = "resolve_by_prefix"
	opResolveByPattern   = "resolve_by_pattern"
	opCount              = "count"
)

// Steps inside an operation, named in diagnostics
const (
	stepEnvOpen    = "env_open"
	stepTableOpen  = "table_open"
	stepTxnBegin   = "txn_begin"
	stepGet        = "get"
	stepPut        = "put"
	stepDel        = "del"
	stepCommit     = "commit"
	stepCursorOpen = "cursor_open"
	stepCursorGet  = "cursor_get"
	stepCompile    = "compile"
)
