package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"
	"github.com/wanderlens/arsync/internal/config"
	influxstorage "github.com/wanderlens/arsync/internal/storage/influx"
	"github.com/wanderlens/arsync/internal/storage/memory"
	"github.com/wanderlens/arsync/internal/storage/postgres"
	sqlitestorage "github.com/wanderlens/arsync/internal/storage/sqlite"
	wsstorage "github.com/wanderlens/arsync/internal/storage/websocket"
)

// Storage type names accepted in config.
const (
	TypeMemory    = "memory"
	TypeSQLite    = "sqlite"
	TypePostgres  = "postgres"
	TypeInflux    = "influx"
	TypeWebSocket = "websocket"
)

// Dependencies are the loggers handed to backends. Gorm and influx
// components log through zerolog.
type Dependencies struct {
	Logger *slog.Logger
	DBLog  zerolog.Logger
}

// NewBackend creates a storage backend based on configuration. The backend
// is not initialized.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	switch cfg.Type {
	case TypeMemory, "":
		return memory.New(cfg.Memory), nil
	case TypeSQLite:
		b, err := sqlitestorage.New(cfg.SQLite, deps.Logger, deps.DBLog)
		if err != nil {
			return nil, err
		}
		return b, nil
	case TypePostgres:
		return postgres.New(postgres.Dependencies{
			Config: cfg.Postgres,
			Logger: deps.Logger,
			DBLog:  deps.DBLog,
		}), nil
	case TypeInflux:
		return influxstorage.New(cfg.Influx, deps.DBLog), nil
	case TypeWebSocket:
		return wsstorage.New(cfg.WebSocket, deps.Logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
