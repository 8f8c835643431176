package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stacman/stacman/internal/config"
	"github.com/stretchr/testify/require"
)

func TestResolveDataSource(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.StoreConfig
		dsn   string
		local bool
	}{
		{"remote with token", config.StoreConfig{URL: "libsql://example.turso.io", AuthToken: "token123"}, "libsql://example.turso.io?authToken=token123", false},
		{"remote keeps query", config.StoreConfig{URL: "libsql://example.turso.io?foo=bar", AuthToken: "token123"}, "libsql://example.turso.io?authToken=token123&foo=bar", false},
		{"remote token already set", config.StoreConfig{URL: "libsql://example.turso.io?authToken=a", AuthToken: "b"}, "libsql://example.turso.io?authToken=a", false},
		{"url wins over path", config.StoreConfig{URL: "libsql://db.example", Path: "ignored.db"}, "libsql://db.example", false},
		{"file prefix", config.StoreConfig{Path: "file:./stacman.db"}, "file:./stacman.db", true},
		{"memory", config.StoreConfig{Path: ":memory:"}, ":memory:", false},
		{"libsql path", config.StoreConfig{Path: "libsql://replica"}, "libsql://replica", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := resolveDataSource(tt.cfg)
			require.NoError(t, err)
			require.Equal(t, tt.dsn, source.dsn)
			require.Equal(t, tt.local, source.local)
		})
	}
}

func TestResolveDataSourcePlainPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "stacman.db")

	source, err := resolveDataSource(config.StoreConfig{Path: path})
	require.NoError(t, err)
	require.Equal(t, "file:"+path, source.dsn)
	require.True(t, source.local)
	require.DirExists(t, filepath.Dir(path))
}

func TestResolveDataSourceRequiresLocation(t *testing.T) {
	_, err := resolveDataSource(config.StoreConfig{})
	require.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "postgres", Path: ":memory:"})
	require.ErrorContains(t, err, "unsupported store driver")
}

func TestBackoffQueryWhereClause(t *testing.T) {
	_, _, err := BackoffQuery{}.whereClause()
	require.Error(t, err)

	where, args, err := BackoffQuery{All: true, Key: "ignored"}.whereClause()
	require.NoError(t, err)
	require.Empty(t, where)
	require.Empty(t, args)

	where, args, err = BackoffQuery{Key: " questions "}.whereClause()
	require.NoError(t, err)
	require.Equal(t, "WHERE backoff_key = ?", where)
	require.Equal(t, []any{"questions"}, args)

	where, args, err = BackoffQuery{Prefix: "users_by"}.whereClause()
	require.NoError(t, err)
	require.Contains(t, where, "LIKE")
	require.Equal(t, []any{`users\_by%`}, args)
}
