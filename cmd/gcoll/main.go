// Command gcoll operates on a persistent collection file from the shell.
//
// Every subcommand opens the environment, runs one operation and closes it:
//
//	gcoll --path ./modsec-shared-collections store ip:1.2.3.4 5
//	gcoll get ip:1.2.3.4
//	gcoll match '^ip:10\.' --exclude ip:10.0.0.1
//
// Flags can also be set as GCOLL_* environment variables (GCOLL_PATH,
// GCOLL_LOG_LEVEL, ...) or in .env / .env.local files.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := execute(os.Stdout, os.Args[1:]); err != nil {
		if !errors.Is(err, errAbsent) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
