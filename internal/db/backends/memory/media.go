package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/db/interfaces"
)

type mediaRepository struct {
	db *Database
}

func (r *mediaRepository) ListByEntry(ctx context.Context, entryID int64) ([]entities.Media, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if err := r.db.checkConnected("list media"); err != nil {
		return nil, err
	}

	result := make([]entities.Media, 0)
	for _, m := range r.db.media {
		if m.EntryID == entryID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *mediaRepository) ListURLs(ctx context.Context) ([]string, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if err := r.db.checkConnected("list media urls"); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(r.db.media))
	for _, m := range r.db.media {
		urls = append(urls, m.URL)
	}
	sort.Strings(urls)
	return urls, nil
}

func (r *mediaRepository) Create(ctx context.Context, in entities.NewMedia) (*entities.Media, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected("create media"); err != nil {
		return nil, err
	}
	if _, ok := r.db.entries[in.EntryID]; !ok {
		return nil, &interfaces.DatabaseError{
			Op:  fmt.Sprintf("media.entry_id=%d", in.EntryID),
			Err: interfaces.ErrForeignKeyConstraint,
		}
	}

	m := entities.Media{
		ID:        r.db.nextID(tableMedia),
		EntryID:   in.EntryID,
		Type:      in.Type,
		URL:       in.URL,
		CreatedAt: r.db.timestamp(),
	}
	r.db.media[m.ID] = m
	return &m, nil
}

func (r *mediaRepository) Delete(ctx context.Context, id int64) (*entities.Media, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected("delete media"); err != nil {
		return nil, err
	}

	m, ok := r.db.media[id]
	if !ok {
		return nil, nil
	}
	delete(r.db.media, id)
	return &m, nil
}
