// Package cli implements the kindred command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kindredloop/kindred/internal/config"
	"github.com/kindredloop/kindred/internal/logging"
)

var (
	configPath string
	dbPath     string
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kindred",
		Short: "Kindred companion engine",
		Long:  "Kindred routes messages to persona agents, remembers what matters, and adapts its dialogue strategy over the life of a conversation.",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $HOME/.kindred/config.yaml)")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default <data_dir>/kindred.db)")

	root.AddCommand(serveCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(memoryCmd())
	return root
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	switch cfg.LogLevel {
	case "debug":
		logging.SetLevel(slog.LevelDebug)
	case "warn":
		logging.SetLevel(slog.LevelWarn)
	case "error":
		logging.SetLevel(slog.LevelError)
	}
	return cfg, nil
}
