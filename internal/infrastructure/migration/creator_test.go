package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add web orders", "add_web_orders"},
		{"Add-Web-Orders", "add_web_orders"},
		{"ADD__WEB__ORDERS", "add_web_orders"},
		{"index v2", "index_v2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "special_chars"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	root := t.TempDir()

	t.Run("first migration is numbered 000001 for every driver", func(t *testing.T) {
		files, err := CreateMigration(root, "add lot index", "Index lots by sku")
		require.NoError(t, err)
		require.Len(t, files, len(Drivers))

		for i, mf := range files {
			assert.Equal(t, Drivers[i], mf.Driver)
			assert.Equal(t, "000001", mf.Version)
			assert.Equal(t, filepath.Join(root, mf.Driver, "000001_add_lot_index.up.sql"), mf.UpPath)

			up, err := os.ReadFile(mf.UpPath)
			require.NoError(t, err)
			assert.Contains(t, string(up), "Index lots by sku")
			assert.Contains(t, string(up), "Driver: "+mf.Driver)

			down, err := os.ReadFile(mf.DownPath)
			require.NoError(t, err)
			assert.Contains(t, string(down), "Rollback")
		}
	})

	t.Run("next migration continues from the highest version", func(t *testing.T) {
		// a version only present for one driver still counts
		require.NoError(t, os.WriteFile(filepath.Join(root, "sqlite", "000004_manual.up.sql"), nil, 0o644))

		files, err := CreateMigration(root, "second", "")
		require.NoError(t, err)
		assert.Equal(t, "000005", files[0].Version)
	})

	t.Run("name without usable characters is rejected", func(t *testing.T) {
		_, err := CreateMigration(root, "!!!", "")
		require.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory has no migrations", func(t *testing.T) {
		names, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("lists versioned up files in order", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"000002_b.up.sql", "000002_b.down.sql",
			"000001_a.up.sql", "000001_a.down.sql",
			"notes.txt", "latest.up.sql",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
		}

		names, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_a", "000002_b"}, names)
	})

	t.Run("embedded migrations are in lockstep across drivers", func(t *testing.T) {
		pg, err := ListMigrations(filepath.Join("..", "..", "..", "migrations", "postgres"))
		require.NoError(t, err)
		lite, err := ListMigrations(filepath.Join("..", "..", "..", "migrations", "sqlite"))
		require.NoError(t, err)

		assert.NotEmpty(t, pg)
		assert.Equal(t, pg, lite)
	})
}
