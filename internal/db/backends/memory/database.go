package memory

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/db/interfaces"
)

// Table names, also used as keys of the id sequences
const (
	tableCategories = "categories"
	tableEntries    = "entries"
	tableComments   = "comments"
	tableMedia      = "media"
)

// Database implements interfaces.Database on top of plain maps. It enforces
// the same foreign keys and cascades as the SQL schema so it can stand in
// for Postgres in development and tests.
type Database struct {
	mu        sync.RWMutex
	connected bool
	now       func() time.Time

	categories map[int64]entities.Category
	entries    map[int64]entities.Entry
	comments   map[int64]entities.Comment
	media      map[int64]entities.Media
	sequences  map[string]int64
}

// Option configures an in-memory database
type Option func(*Database)

// WithClock overrides the time source used for default timestamps
func WithClock(now func() time.Time) Option {
	return func(db *Database) {
		db.now = now
	}
}

// NewDatabase creates a new in-memory database
func NewDatabase(opts ...Option) *Database {
	db := &Database{now: time.Now}
	db.reset()
	for _, opt := range opts {
		opt(db)
	}
	return db
}

func (db *Database) reset() {
	db.categories = make(map[int64]entities.Category)
	db.entries = make(map[int64]entities.Entry)
	db.comments = make(map[int64]entities.Comment)
	db.media = make(map[int64]entities.Media)
	db.sequences = make(map[string]int64)
}

// Connect establishes a connection to the database
func (db *Database) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = true
	log.Println("Connected to in-memory database")
	return nil
}

// Disconnect drops every row; a disconnected in-memory database keeps nothing
func (db *Database) Disconnect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = false
	db.reset()
	log.Println("Disconnected from in-memory database")
	return nil
}

// IsHealthy checks if the database connection is healthy
func (db *Database) IsHealthy(ctx context.Context) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.connected
}

// Migrate is a no-op beyond the connection check: tables exist from construction
func (db *Database) Migrate(ctx context.Context) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if !db.connected {
		return interfaces.ErrDatabaseNotConnected
	}
	return nil
}

func (db *Database) Categories() interfaces.CategoryRepository {
	return &categoryRepository{db: db}
}

func (db *Database) Entries() interfaces.EntryRepository {
	return &entryRepository{db: db}
}

func (db *Database) Comments() interfaces.CommentRepository {
	return &commentRepository{db: db}
}

func (db *Database) Media() interfaces.MediaRepository {
	return &mediaRepository{db: db}
}

// nextID returns the next auto-increment id for a table (must hold write lock)
func (db *Database) nextID(table string) int64 {
	db.sequences[table]++
	return db.sequences[table]
}

// timestamp mirrors Postgres timestamp precision (must hold a lock)
func (db *Database) timestamp() time.Time {
	return db.now().UTC().Truncate(time.Microsecond)
}

// checkConnected must be called with a lock held
func (db *Database) checkConnected(op string) error {
	if !db.connected {
		return &interfaces.DatabaseError{Op: op, Err: interfaces.ErrDatabaseNotConnected}
	}
	return nil
}

// Clear removes all rows and resets the id sequences (for testing)
func (db *Database) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.reset()
}
