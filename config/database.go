package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kendall-kelly/rto-dispatch-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrNoDatabaseURL is returned when a connector is built without a URL
var ErrNoDatabaseURL = errors.New("database url is empty")

// Connector owns the process-wide database handle.
// The first call to DB opens the connection and later calls reuse it. A failed
// open is not cached, so the next call retries from scratch.
type Connector struct {
	mu   sync.Mutex
	open func() (*gorm.DB, error)
	db   *gorm.DB
}

// NewConnector returns a connector for a postgres URL, or for a local SQLite
// file when the URL starts with "sqlite:". An in-memory SQLite database lives
// on a single connection, since every new connection would start empty.
func NewConnector(databaseURL string) *Connector {
	return NewConnectorFunc(func() (*gorm.DB, error) {
		if databaseURL == "" {
			return nil, ErrNoDatabaseURL
		}
		db, err := gorm.Open(Dialector(databaseURL), GormConfig())
		if err != nil {
			return nil, err
		}
		if IsInMemorySQLite(databaseURL) {
			sqlDB, err := db.DB()
			if err != nil {
				return nil, err
			}
			sqlDB.SetMaxOpenConns(1)
		}
		return db, nil
	})
}

// NewConnectorFunc returns a connector that uses open to establish the handle
func NewConnectorFunc(open func() (*gorm.DB, error)) *Connector {
	return &Connector{open: open}
}

// NewConnectorFromDB wraps an already opened handle (primarily for testing)
func NewConnectorFromDB(db *gorm.DB) *Connector {
	return &Connector{db: db, open: func() (*gorm.DB, error) { return db, nil }}
}

// DB returns the shared handle, opening it on first use
func (c *Connector) DB() (*gorm.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	db, err := c.open()
	if err != nil {
		slog.Error("database connection failed", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if db == nil {
		return nil, fmt.Errorf("failed to connect to database: nil handle")
	}

	slog.Info("database connection established")
	c.db = db
	return c.db, nil
}

// Close releases the underlying pool if it was opened
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	c.db = nil
	return sqlDB.Close()
}

// Dialector picks the gorm driver for a database URL
func Dialector(databaseURL string) gorm.Dialector {
	if path, ok := strings.CutPrefix(databaseURL, "sqlite:"); ok {
		return sqlite.Open(path)
	}
	return postgres.Open(databaseURL)
}

// IsInMemorySQLite reports whether a database URL names an in-memory SQLite database
func IsInMemorySQLite(databaseURL string) bool {
	path, ok := strings.CutPrefix(databaseURL, "sqlite:")
	if !ok {
		return false
	}
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:") || strings.Contains(path, "mode=memory")
}

// GormConfig is shared by every connection so unique violations surface as gorm.ErrDuplicatedKey
func GormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

// Migrate creates or updates the tables for every model
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
