package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pyae198022/ShopHub/internal/config"
	"github.com/pyae198022/ShopHub/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shophubctl",
	Short: "ShopHub administration tool",
	Long: `shophubctl manages a ShopHub database from the command line: creating
accounts, applying migrations, loading sample products and moving orders
through their lifecycle.

It reads the same configuration as the server (.env, config.yaml and
environment variables).`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore loads config and returns a migrated store.
func openStore(ctx context.Context) (*config.Config, *store.Store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Ensure tables exist if running the CLI before the server
	if err := db.Migrate(ctx, store.Migrations()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return cfg, db, nil
}
