package main

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/Giulio2002/gcoll"
	"github.com/Giulio2002/gcoll/engine"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// setupFlags adds the environment flags shared by every subcommand.
func setupFlags(cmd *cobra.Command) {
	d := gcoll.DefaultConfig()
	flags := cmd.PersistentFlags()

	flags.String("path", d.Path, "database file")
	flags.String("engine", d.Engine, fmt.Sprintf("storage engine (%s)", strings.Join(engine.Drivers(), ", ")))
	flags.String("table", d.Table, "table holding the records")
	flags.String("collection", "global", "collection name reported in results")
	flags.Uint32("max-readers", 0, "maximum concurrent readers (0 keeps the engine default)")
	flags.Int64("map-size", 0, "upper bound of the map in bytes (0 keeps the engine default)")
	flags.Bool("no-sync", false, "skip fsync at commit")
	flags.String("log-level", "off", "diagnostics level (off, debug, info, warn, error)")
}

// initConfig loads .env files and binds GCOLL_* environment variables.
func initConfig(v *viper.Viper) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix("gcoll")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// loadConfig reads the environment configuration from v.
func loadConfig(v *viper.Viper) (gcoll.Config, error) {
	cfg := gcoll.Config{
		Path:       v.GetString("path"),
		Mode:       gcoll.DefaultMode,
		Engine:     v.GetString("engine"),
		Table:      v.GetString("table"),
		MaxReaders: v.GetUint32("max-readers"),
		MapSize:    v.GetInt64("map-size"),
		NoSync:     v.GetBool("no-sync"),
	}
	if !slices.Contains(engine.Drivers(), cfg.Engine) {
		return cfg, fmt.Errorf("unknown engine %q (available: %s)", cfg.Engine, strings.Join(engine.Drivers(), ", "))
	}
	return cfg, nil
}

// setupLogging routes diagnostics to stderr at the configured level.
func setupLogging(v *viper.Viper) error {
	name := v.GetString("log-level")
	if name == "" || name == "off" {
		gcoll.SetDebugLog(false)
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	gcoll.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	gcoll.SetDebugLog(level <= slog.LevelDebug)
	return nil
}
