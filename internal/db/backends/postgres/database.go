package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/leafsii/journal-backend/internal/db/interfaces"
	"github.com/leafsii/journal-backend/internal/db/migrations"
)

// foreign_key_violation
const pgForeignKeyViolation = "23503"

// Config holds connection pool settings
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Database implements interfaces.Database using database/sql with the pgx driver
type Database struct {
	cfg Config

	mu sync.RWMutex
	db *sql.DB
}

// NewDatabase creates a Postgres database; call Connect before use
func NewDatabase(cfg Config) *Database {
	return &Database{cfg: cfg}
}

// Connect opens the pool and verifies connectivity
func (d *Database) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return nil
	}

	db, err := sql.Open("pgx", d.cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if d.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(d.cfg.MaxOpenConns)
	}
	if d.cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(d.cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	d.db = db
	log.Println("Connected to postgres database")
	return nil
}

// Disconnect closes the pool
func (d *Database) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	log.Println("Disconnected from postgres database")
	return nil
}

// IsHealthy pings the database
func (d *Database) IsHealthy(ctx context.Context) bool {
	db, err := d.conn("health")
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

// Migrate applies the embedded goose migrations
func (d *Database) Migrate(ctx context.Context) error {
	db, err := d.conn("migrate")
	if err != nil {
		return err
	}
	return migrations.Up(db)
}

// DB exposes the underlying pool
func (d *Database) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

func (d *Database) Categories() interfaces.CategoryRepository {
	return &categoryRepository{d: d}
}

func (d *Database) Entries() interfaces.EntryRepository {
	return &entryRepository{d: d}
}

func (d *Database) Comments() interfaces.CommentRepository {
	return &commentRepository{d: d}
}

func (d *Database) Media() interfaces.MediaRepository {
	return &mediaRepository{d: d}
}

func (d *Database) conn(op string) (*sql.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, &interfaces.DatabaseError{Op: op, Err: interfaces.ErrDatabaseNotConnected}
	}
	return d.db, nil
}

// wrapError converts driver errors into the store's error taxonomy
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return interfaces.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return &interfaces.DatabaseError{Op: op, Err: fmt.Errorf("%w: %s", interfaces.ErrForeignKeyConstraint, pgErr.ConstraintName)}
	}
	return &interfaces.DatabaseError{Op: op, Err: err}
}

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
