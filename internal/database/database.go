// FilePath: internal/database/database.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/greeneye-project/greeneye-hub/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	nuts "github.com/vaudience/go-nuts"
)

// DB wraps the registry database connection
type DB interface {
	Close() error
	Ping(ctx context.Context) error
	GetDB() *sqlx.DB
}

// SQLiteDB represents the embedded registry database connection. It is
// shared between the API-serving threads and the MQTT ingestion callback,
// so it is opened with a busy timeout instead of failing fast on locks.
type SQLiteDB struct {
	db *sqlx.DB
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository represents common repository operations
type Repository interface {
	BeginTx(ctx context.Context) (Transaction, error)
	Ping(ctx context.Context) error
}

// NewSQLiteDB opens (creating if needed) the single-file registry database.
func NewSQLiteDB(cfg config.DatabaseConfig) (DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	// DELETE journal + NORMAL sync: WAL misbehaves on bind-mounted volumes.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=DELETE&_synchronous=NORMAL",
		url.PathEscape(cfg.Path), cfg.BusyTimeout.Milliseconds())

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %w", err)
	}

	nuts.L.Infof("[SQLiteDB] Connected to %s", cfg.Path)
	return &SQLiteDB{db: db}, nil
}

// Implementation of DB interface for SQLiteDB
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) GetDB() *sqlx.DB {
	return s.db
}
