package localdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO metadata (key, value) VALUES ('k', x'01')`)
	require.NoError(t, err)

	require.NoError(t, RunMigrations(context.Background(), db), "migrations are idempotent")
	assert.FileExists(t, path)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "cache.db"))
	assert.Error(t, err)
}
