//go:build cgo

package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stacman/stacman/internal/config"
)

func TestOpenMemoryStore(t *testing.T) {
	store, err := Open(context.Background(), config.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	require.Equal(t, "libsql", store.Driver())
	require.False(t, store.Local())
	require.NoError(t, store.Close())
}

func TestOpenLocalStoreSharesOneWriter(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{Path: t.TempDir() + "/nested/stacman.db"})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.True(t, store.Local())
	require.Equal(t, 1, store.DB.Stats().MaxOpenConnections)

	var journalMode string
	require.NoError(t, store.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode))
	require.Contains(t, journalMode, "wal")

	var busyTimeout int
	require.NoError(t, store.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout))
	require.GreaterOrEqual(t, busyTimeout, 1000)
}

func TestMigrateRecordsSchemaVersion(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{Path: "file:" + t.TempDir() + "/stacman.db"})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	require.Zero(t, version)

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))

	version, err = store.SchemaVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, schemaVersion, version)
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{Path: "file:" + t.TempDir() + "/stacman.db"})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.DB.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion+1))
	require.NoError(t, err)
	require.ErrorIs(t, store.Migrate(ctx), ErrSchemaTooNew)
}
