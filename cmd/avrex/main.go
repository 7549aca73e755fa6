package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/config"
	"github.com/ovaphlow/pitchfork/service-avrex/pkg/utilities"
)

var (
	v      = config.New()
	cfg    config.Config
	logger *zap.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "avrex",
	Short:         "AVreX invite-only accounts, balances and ads.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// load .env file if present; real environment variables win
		_ = godotenv.Load()

		cfg = config.Load(v)
		lg, err := utilities.Init(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = lg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db-driver", "", "database driver (sqlite3 or postgres)")
	pf.String("db-url", "", "database DSN")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Bool("log-dev", false, "human readable development logs")
	pf.String("log-file", "", "also write logs to this file, rotated daily")
	bindFlags(rootCmd, map[string]string{
		"db-driver": config.KeyDatabaseDriver,
		"db-url":    config.KeyDatabaseURL,
		"log-level": config.KeyLogLevel,
		"log-dev":   config.KeyLogDev,
		"log-file":  config.KeyLogFile,
	}, true)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(usersCmd)
}

// bindFlags binds flags to viper keys so a flag only overrides the
// environment when it was set.
func bindFlags(cmd *cobra.Command, keys map[string]string, persistent bool) {
	fs := cmd.Flags()
	if persistent {
		fs = cmd.PersistentFlags()
	}
	for flag, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
