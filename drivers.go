package gcoll

// Drivers available to Config.Engine.
import (
	_ "github.com/Giulio2002/gcoll/engine/boltdrv"
	_ "github.com/Giulio2002/gcoll/engine/gdbxdrv"
	_ "github.com/Giulio2002/gcoll/engine/memdrv"
)
