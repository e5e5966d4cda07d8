// Package postgres is the Postgres journal: the GORM backend over a
// connection opened at Init.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"
	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/internal/database"
	gormstorage "github.com/wanderlens/arsync/internal/storage/gorm"
	"gorm.io/gorm"
)

// Dependencies holds the connection settings. DB, when set, is used instead
// of dialing Config.
type Dependencies struct {
	Config config.PostgresConfig
	DB     *gorm.DB
	Logger *slog.Logger
	DBLog  zerolog.Logger
}

// Backend implements storage.Backend on Postgres.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates a backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{Logger: deps.Logger, DBLog: deps.DBLog}),
		deps:    deps,
	}
}

// Init connects when no DB was injected, then migrates and starts the writer.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		var err error
		db, err = database.OpenPostgres(b.deps.Config, b.deps.DBLog)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:     db,
		Logger: b.deps.Logger,
		DBLog:  b.deps.DBLog,
	})
	return b.Backend.Init()
}
