package main

import (
	"errors"
	"fmt"

	"github.com/Giulio2002/gcoll"
	"github.com/Giulio2002/gcoll/engine"
	"github.com/spf13/cobra"
)

var errFailed = errors.New("operation failed, run with --log-level debug for details")

func (a *app) print(records []gcoll.VariableValue) {
	for _, r := range records {
		fmt.Fprintf(a.out, "%s=%s\n", r.Key, r.Value)
	}
}

func result(ok bool) error {
	if !ok {
		return errFailed
	}
	return nil
}

func (a *app) storeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "store [key] [value]",
		Short: "Adds a value to a key, keeping the existing values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return result(a.coll.Store(args[0], args[1]))
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Makes value the only value of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return result(a.coll.StoreOrUpdateFirst(args[0], args[1]))
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [key] [value]",
		Short: "Replaces the values of an existing key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.coll.Update(args[0], args[1])
			switch {
			case err == nil:
				return nil
			case engine.IsNotFound(err):
				return errAbsent
			default:
				return errFailed
			}
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Prints the first value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok := a.coll.ResolveFirst(args[0])
			if !ok {
				return errAbsent
			}
			fmt.Fprintln(a.out, v)
			return nil
		},
	}
}

func (a *app) dupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dups [key]",
		Short: "Prints every value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.print(a.coll.ResolveDuplicates(args[0]))
			return nil
		},
	}
}

func (a *app) delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key and all its values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return result(a.coll.Delete(args[0]))
		},
	}
}

func (a *app) prefixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefix [prefix]",
		Short: "Prints the records whose key starts with prefix (all records without one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			exclude, _ := cmd.Flags().GetStringSlice("exclude")
			a.print(a.coll.ResolveByPrefix(prefix, gcoll.ExcludeKeys(exclude...)))
			return nil
		},
	}
	cmd.Flags().StringSlice("exclude", nil, "keys to leave out")
	return cmd
}

func (a *app) matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match [pattern]",
		Short: "Prints the records whose key matches a regular expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exclude, _ := cmd.Flags().GetStringSlice("exclude")
			a.print(a.coll.ResolveByPattern(args[0], gcoll.ExcludeKeys(exclude...)))
			return nil
		},
	}
	cmd.Flags().StringSlice("exclude", nil, "keys to leave out")
	return cmd
}

func (a *app) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Prints the number of records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, ok := a.coll.Count()
			if !ok {
				return errFailed
			}
			fmt.Fprintln(a.out, n)
			return nil
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gcoll",
		Args:  cobra.NoArgs,
		// no environment needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, gcoll.Version())
		},
	}
}
