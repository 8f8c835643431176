package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stacman/stacman/internal/config"
	"github.com/stacman/stacman/internal/core/store"
)

// openStore opens the configured database at the current schema version.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return db, nil
}

// withStore loads the config, opens the store for fn and closes it after.
func withStore(cmd *cobra.Command, fn func(cfg *config.Config, db *store.Store) error) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return errors.Join(fn(cfg, db), db.Close())
}
