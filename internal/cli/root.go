package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/hedger/config"
)

// RootConfig carries the persistent flag values shared by all subcommands.
type RootConfig struct {
	ConfigPath string
	DBPath     string
	LogLevel   string
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "hedger",
		Short:         "Hedger — parametric price-drop insurance engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "./hedger.sqlite", "SQLite journal database")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		lvl, err := logrus.ParseLevel(rc.LogLevel)
		if err != nil {
			return fmt.Errorf("parse log level %q: %w", rc.LogLevel, err)
		}
		logrus.SetLevel(lvl)
		return nil
	}

	// Subcommands
	cmd.AddCommand(
		newPlansCmd(),
		newQuoteCmd(rc),
		newDemoCmd(rc),
		newJournalCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("hedger (dev)")
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: the --config file when
// given, otherwise defaults plus HEDGER_* environment overrides.
func loadConfig(rc *RootConfig) (*config.Config, error) {
	if rc.ConfigPath != "" {
		return config.LoadFromFile(rc.ConfigPath)
	}

	cfg := config.Default()
	if rc.DBPath != "" {
		cfg.Journal.DBPath = rc.DBPath
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
