package sqlite

import (
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := DefaultConfig("/srv/buvette/association.db")
	cfg.BusyTimeout = 1500 * time.Millisecond

	dsn := DSN(cfg)
	name, query, ok := strings.Cut(dsn, "?")
	require.True(t, ok)
	assert.Equal(t, "file:///srv/buvette/association.db", name)

	params, err := url.ParseQuery(query)
	require.NoError(t, err)
	assert.Equal(t, "immediate", params.Get("_txlock"))
	assert.Equal(t, "1500", params.Get("_busy_timeout"))
	assert.Equal(t, "on", params.Get("_foreign_keys"))
	assert.Equal(t, "WAL", params.Get("_journal_mode"))
}

func TestDSN_EscapesPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"relative", "data/association.db", "file:data/association.db"},
		{"question mark", "/tmp/quoi?.db", "file:///tmp/quoi%3F.db"},
		{"hash", "/tmp/buvette#2/association.db", "file:///tmp/buvette%232/association.db"},
		{"percent", "/tmp/100%/association.db", "file:///tmp/100%25/association.db"},
		{"space", "/tmp/mes documents/association.db", "file:///tmp/mes%20documents/association.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, _, ok := strings.Cut(DSN(DefaultConfig(tt.path)), "?")
			require.True(t, ok)
			assert.Equal(t, tt.want, name)
		})
	}
}

func TestOpen_PathWithSpecialCharacters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caisse #1?", "association%.db")

	db, err := Open(testContext(), DefaultConfig(path))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.FileExists(t, path)
}
