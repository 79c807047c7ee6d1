//go:build mdbx

package gcoll

import _ "github.com/Giulio2002/gcoll/engine/mdbxdrv"
