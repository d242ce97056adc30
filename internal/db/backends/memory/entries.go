package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/db/interfaces"
)

type entryRepository struct {
	db *Database
}

func (r *entryRepository) List(ctx context.Context) ([]entities.EntryWithCategory, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if err := r.db.checkConnected("list entries"); err != nil {
		return nil, err
	}

	result := make([]entities.EntryWithCategory, 0, len(r.db.entries))
	for _, e := range r.db.entries {
		result = append(result, r.withCategory(e))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *entryRepository) Get(ctx context.Context, id int64) (*entities.EntryWithCategory, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if err := r.db.checkConnected("get entry"); err != nil {
		return nil, err
	}

	e, ok := r.db.entries[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	out := r.withCategory(e)
	return &out, nil
}

func (r *entryRepository) Create(ctx context.Context, in entities.EntryInput) (*entities.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected("create entry"); err != nil {
		return nil, err
	}
	if err := r.checkCategory(in.CategoryID); err != nil {
		return nil, err
	}

	now := r.db.timestamp()
	e := entities.Entry{
		ID:         r.db.nextID(tableEntries),
		Title:      in.Title,
		Content:    in.Content,
		CategoryID: copyID(in.CategoryID),
		Date:       now,
		UpdatedAt:  now,
	}
	r.db.entries[e.ID] = e

	out := copyEntry(e)
	return &out, nil
}

func (r *entryRepository) Update(ctx context.Context, id int64, in entities.EntryInput) (*entities.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected("update entry"); err != nil {
		return nil, err
	}

	e, ok := r.db.entries[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if err := r.checkCategory(in.CategoryID); err != nil {
		return nil, err
	}

	// updated_at must move forward even when the clock did not
	now := r.db.timestamp()
	if !now.After(e.UpdatedAt) {
		now = e.UpdatedAt.Add(time.Microsecond)
	}

	e.Title = in.Title
	e.Content = in.Content
	e.CategoryID = copyID(in.CategoryID)
	e.UpdatedAt = now
	r.db.entries[id] = e

	out := copyEntry(e)
	return &out, nil
}

func (r *entryRepository) Delete(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected("delete entry"); err != nil {
		return err
	}

	if _, ok := r.db.entries[id]; !ok {
		return nil
	}
	delete(r.db.entries, id)

	// ON DELETE CASCADE
	for cid, c := range r.db.comments {
		if c.EntryID == id {
			delete(r.db.comments, cid)
		}
	}
	for mid, m := range r.db.media {
		if m.EntryID == id {
			delete(r.db.media, mid)
		}
	}
	return nil
}

// checkCategory enforces the category_id foreign key (must hold a lock)
func (r *entryRepository) checkCategory(categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	if _, ok := r.db.categories[*categoryID]; !ok {
		return &interfaces.DatabaseError{
			Op:  fmt.Sprintf("entries.category_id=%d", *categoryID),
			Err: interfaces.ErrForeignKeyConstraint,
		}
	}
	return nil
}

// withCategory joins an entry with its category (must hold a lock)
func (r *entryRepository) withCategory(e entities.Entry) entities.EntryWithCategory {
	out := entities.EntryWithCategory{Entry: copyEntry(e)}
	if e.CategoryID != nil {
		if c, ok := r.db.categories[*e.CategoryID]; ok {
			cp := copyCategory(c)
			out.Category = &cp
		}
	}
	return out
}

func copyEntry(e entities.Entry) entities.Entry {
	e.CategoryID = copyID(e.CategoryID)
	return e
}
