package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/internal/database"
	"github.com/wanderlens/arsync/internal/logging"
	"github.com/wanderlens/arsync/internal/model"
	"github.com/wanderlens/arsync/pkg/core"
)

func TestFileBackend_WritesJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arsync.db")
	b, err := New(config.SQLiteConfig{Path: path}, logging.NewNop(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.StartSession(&core.Session{ID: "s1", StartTime: time.Unix(1, 0)}, nil))
	require.NoError(t, b.RecordAction(&core.Action{Kind: core.ActionShare, Marker: "chapel"}))
	require.NoError(t, b.EndSession())
	require.NoError(t, b.Close())

	assert.Equal(t, path, b.ExportedFilePath())
	var count int64
	require.NoError(t, b.DB().Model(&model.Action{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMemoryBackend_DumpsOnEndSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.db")
	b, err := New(config.SQLiteConfig{Path: path, InMemory: true}, logging.NewNop(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, b.StartSession(&core.Session{ID: "mem-1", StartTime: time.Unix(1, 0)}, nil))
	require.NoError(t, b.EndSession())

	_, err = os.Stat(path)
	require.NoError(t, err)

	disk, err := database.OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	var s model.Session
	require.NoError(t, disk.First(&s, "id = ?", "mem-1").Error)
	assert.NotNil(t, s.EndTime)
}
