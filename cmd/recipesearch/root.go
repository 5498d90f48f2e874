package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"recipefinder/internal/config"
	"recipefinder/internal/logging"
	"recipefinder/internal/recipe"
)

// opener returns the recipe store a command works on.
type opener func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*recipe.SQLStore, error)

func openFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*recipe.SQLStore, error) {
	return recipe.Open(ctx, cfg.Database.Driver, cfg.Database.URL, logger)
}

// app holds what every subcommand needs once flags are parsed.
type app struct {
	open       opener
	configPath string
	driver     string
	dsn        string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

// newRootCmd builds the command tree. A nil open uses the configured database.
func newRootCmd(open opener) *cobra.Command {
	if open == nil {
		open = openFromConfig
	}
	a := &app{open: open}

	cmd := &cobra.Command{
		Use:          "recipesearch",
		Short:        "Search a recipe database by ingredients, tags and keywords",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to configuration file")
	flags.StringVar(&a.driver, "driver", "", "database driver (sqlite or postgres)")
	flags.StringVar(&a.dsn, "db", "", "database URL or SQLite file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newQueryCmd(a), newSourcesCmd(a))
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.driver != "" {
		cfg.Database.Driver = a.driver
	}
	if a.dsn != "" {
		cfg.Database.URL = a.dsn
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	// Logs go to stderr so they never mix with query output.
	logger, err := logging.New(cfg.Log.Level, true)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func newSourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the source domains present in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.open(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			sources, err := store.Sources(ctx)
			if err != nil {
				return err
			}
			for _, s := range sources {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}
