package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/Giulio2002/gcoll"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// errAbsent makes the command exit non-zero without printing an error.
var errAbsent = errors.New("not found")

// app is the state shared by the subcommands of one invocation.
type app struct {
	v    *viper.Viper
	out  io.Writer
	env  *gcoll.Env
	coll *gcoll.Backend
}

// execute runs one invocation. The environment is closed after Execute
// returns because cobra skips post-run hooks when RunE fails.
func execute(out io.Writer, args []string) error {
	root, a := newRootCmd(out)
	root.SetArgs(args)
	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(out io.Writer) (*cobra.Command, *app) {
	a := &app{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:   "gcoll",
		Short: "persistent shared collections",
		Long: fmt.Sprintf(`%s

Store and resolve collection variables in an MDBX-family database file
shared by every process that opens it.`, gcoll.Version()),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
	}
	root.SetOut(out)

	setupFlags(root)
	initConfig(a.v)

	root.AddCommand(
		a.storeCmd(),
		a.setCmd(),
		a.updateCmd(),
		a.getCmd(),
		a.dupsCmd(),
		a.delCmd(),
		a.prefixCmd(),
		a.matchCmd(),
		a.countCmd(),
		a.versionCmd(),
	)
	return root, a
}

// open binds flags, configures logging and opens the environment.
func (a *app) open(cmd *cobra.Command, _ []string) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := setupLogging(a.v); err != nil {
		return err
	}

	cfg, err := loadConfig(a.v)
	if err != nil {
		return err
	}
	a.env = gcoll.Open(cfg)
	if !a.env.Valid() {
		return fmt.Errorf("open %s: %w", cfg.Path, a.env.Err())
	}
	a.coll = gcoll.New(a.v.GetString("collection"), a.env)
	return nil
}

func (a *app) close() error {
	if a.env == nil {
		return nil
	}
	return a.env.Close()
}
