package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/internal/logging"
	"github.com/wanderlens/arsync/internal/storage"
	gormstorage "github.com/wanderlens/arsync/internal/storage/gorm"
	influxstorage "github.com/wanderlens/arsync/internal/storage/influx"
	"github.com/wanderlens/arsync/internal/storage/memory"
	"github.com/wanderlens/arsync/internal/storage/postgres"
	sqlitestorage "github.com/wanderlens/arsync/internal/storage/sqlite"
	wsstorage "github.com/wanderlens/arsync/internal/storage/websocket"
)

// Compile-time interface checks
var (
	_ storage.Backend = (*memory.Backend)(nil)
	_ storage.Backend = (*gormstorage.Backend)(nil)
	_ storage.Backend = (*sqlitestorage.Backend)(nil)
	_ storage.Backend = (*postgres.Backend)(nil)
	_ storage.Backend = (*influxstorage.Backend)(nil)
	_ storage.Backend = (*wsstorage.Backend)(nil)

	_ storage.Exporter = (*memory.Backend)(nil)
	_ storage.Exporter = (*sqlitestorage.Backend)(nil)
	_ storage.Exporter = (*influxstorage.Backend)(nil)

	_ storage.PerformanceRecorder = (*memory.Backend)(nil)
	_ storage.PerformanceRecorder = (*gormstorage.Backend)(nil)
	_ storage.PerformanceRecorder = (*influxstorage.Backend)(nil)
	_ storage.PerformanceRecorder = (*wsstorage.Backend)(nil)

	_ storage.WriteTimer = (*gormstorage.Backend)(nil)
	_ storage.WriteTimer = (*postgres.Backend)(nil)
)

func deps() storage.Dependencies {
	return storage.Dependencies{Logger: logging.NewNop(), DBLog: zerolog.Nop()}
}

func TestNewBackend_Types(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.StorageConfig
		expected any
	}{
		{"default", config.StorageConfig{}, &memory.Backend{}},
		{"memory", config.StorageConfig{Type: storage.TypeMemory}, &memory.Backend{}},
		{"sqlite", config.StorageConfig{Type: storage.TypeSQLite, SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "a.db")}}, &sqlitestorage.Backend{}},
		{"postgres", config.StorageConfig{Type: storage.TypePostgres}, &postgres.Backend{}},
		{"influx", config.StorageConfig{Type: storage.TypeInflux}, &influxstorage.Backend{}},
		{"websocket", config.StorageConfig{Type: storage.TypeWebSocket}, &wsstorage.Backend{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := storage.NewBackend(tt.cfg, deps())
			require.NoError(t, err)
			assert.IsType(t, tt.expected, b)
		})
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "mysql"}, deps())
	assert.ErrorContains(t, err, "unknown storage type: mysql")
}
