package interfaces

import (
	"context"

	"github.com/leafsii/journal-backend/internal/db/entities"
)

// CategoryRepository lists and creates categories. Categories are never
// updated or deleted.
type CategoryRepository interface {
	// List returns every category ordered by name ascending
	List(ctx context.Context) ([]entities.Category, error)

	// FindByName returns the first category with the exact name, or ErrNotFound
	FindByName(ctx context.Context, name string) (*entities.Category, error)

	Create(ctx context.Context, in entities.NewCategory) (*entities.Category, error)
}

// EntryRepository provides CRUD over entries. Reads join the category.
type EntryRepository interface {
	// List returns every entry with its category, newest date first
	List(ctx context.Context) ([]entities.EntryWithCategory, error)

	// Get returns one entry with its category, or ErrNotFound
	Get(ctx context.Context, id int64) (*entities.EntryWithCategory, error)

	// Create inserts an entry; date and updated_at default to now
	Create(ctx context.Context, in entities.EntryInput) (*entities.Entry, error)

	// Update replaces title, content and category and bumps updated_at.
	// Returns ErrNotFound when no entry has the id.
	Update(ctx context.Context, id int64, in entities.EntryInput) (*entities.Entry, error)

	// Delete removes the entry together with its media and comments. Deleting
	// a missing id is not an error.
	Delete(ctx context.Context, id int64) error
}

// CommentRepository manages comments attached to entries.
type CommentRepository interface {
	// ListByEntry returns the entry's comments, newest first
	ListByEntry(ctx context.Context, entryID int64) ([]entities.Comment, error)

	Create(ctx context.Context, in entities.NewComment) (*entities.Comment, error)

	// Delete removes a comment by id and returns the removed row, or nil when
	// nothing matched
	Delete(ctx context.Context, id int64) (*entities.Comment, error)
}

// MediaRepository manages media rows. It does not touch stored files.
type MediaRepository interface {
	// ListByEntry returns the entry's media, newest first
	ListByEntry(ctx context.Context, entryID int64) ([]entities.Media, error)

	Create(ctx context.Context, in entities.NewMedia) (*entities.Media, error)

	// ListURLs returns the url of every media row
	ListURLs(ctx context.Context) ([]string, error)

	// Delete removes a media row by id and returns the removed row, or nil
	// when nothing matched
	Delete(ctx context.Context, id int64) (*entities.Media, error)
}
