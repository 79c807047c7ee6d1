package gcoll

import (
	"os"

	"github.com/Giulio2002/gcoll/engine"
)

// Config describes the environment backing the collections.
type Config struct {
	// Path is the database file
	Path string

	// Mode is the permission mode used when the file is created
	Mode os.FileMode

	// Engine names the driver, see engine.Drivers
	Engine string

	// Table is the dup-sorted table holding the records
	Table string

	// MaxReaders bounds concurrent read transactions; 0 keeps the driver default
	MaxReaders uint32

	// MapSize is the upper bound of the map in bytes; 0 keeps the driver default
	MapSize int64

	// NoSync skips the fsync at commit. The last commits may be lost on a crash.
	NoSync bool
}

// DefaultConfig returns the configuration of the process-wide environment.
func DefaultConfig() Config {
	return Config{
		Path:   DefaultPath,
		Mode:   DefaultMode,
		Engine: DefaultEngine,
		Table:  DefaultTable,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.Mode == 0 {
		c.Mode = d.Mode
	}
	if c.Engine == "" {
		c.Engine = d.Engine
	}
	if c.Table == "" {
		c.Table = d.Table
	}
	return c
}

func (c Config) options() engine.Options {
	return engine.Options{
		Path:       c.Path,
		Mode:       c.Mode,
		MaxTables:  4,
		MaxReaders: c.MaxReaders,
		MapSize:    c.MapSize,
		NoSync:     c.NoSync,
	}
}
