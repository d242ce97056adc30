package interfaces

import "context"

// Database is the journal's persistent store. Implementations own their
// connection pool: Connect opens it, Disconnect releases it.
type Database interface {
	// Connect establishes a connection to the database
	Connect(ctx context.Context) error

	// Disconnect closes the database connection
	Disconnect(ctx context.Context) error

	// IsHealthy checks if the database connection is healthy
	IsHealthy(ctx context.Context) bool

	// Migrate creates the journal tables if they do not exist yet
	Migrate(ctx context.Context) error

	Categories() CategoryRepository
	Entries() EntryRepository
	Comments() CommentRepository
	Media() MediaRepository
}
