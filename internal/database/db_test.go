package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMigrated(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "funds.db"), Name: "funds"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newMigrated(t)
	require.NoError(t, db.Migrate())

	var count int
	err := db.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN
		('funds', 'price_history', 'fund_metrics', 'user_profiles', 'recommendations', 'recommendation_history')`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newMigrated(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO funds (scheme_code, scheme_name, created_at, updated_at) VALUES ('X1', 'X', 0, 0)`)
		require.NoError(t, err)
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM funds`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newMigrated(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestPlaceholdersAndChunks(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?, ?, ?", Placeholders(3))

	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, Chunks(5, 2))
	assert.Nil(t, Chunks(0, 10))
}
