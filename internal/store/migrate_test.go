package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatementsIgnoresCommentSemicolons(t *testing.T) {
	src := `-- header comment; with a semicolon
CREATE TABLE a (x INTEGER); -- trailing note; also with one
ALTER TABLE a
    ADD COLUMN y INTEGER;
`
	got := splitStatements(src)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (x INTEGER);", got[0])
	assert.Equal(t, "ALTER TABLE a\n    ADD COLUMN y INTEGER;", got[1])
}

func TestSplitStatementsShippedMigrations(t *testing.T) {
	for _, name := range []string{"migrations/001_init.sql", "migrations/002_broadcast.sql"} {
		src, err := migrationsFS.ReadFile(name)
		require.NoError(t, err)
		for _, stmt := range splitStatements(string(src)) {
			assert.NotContains(t, stmt, "--", "comment leaked into %s", name)
		}
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	repo, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	listID := openSimple(t, repo, "g1")
	_, _, err = repo.JoinSimple(ctx, listID, "u1", "小明", "", "")
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Migrations re-run against the existing schema without losing rows.
	repo, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	active, err := repo.ActiveList(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, listID, active.ID)
	n, err := repo.EntryCount(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
