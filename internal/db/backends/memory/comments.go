package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/db/interfaces"
)

type commentRepository struct {
	db *Database
}

func (r *commentRepository) ListByEntry(ctx context.Context, entryID int64) ([]entities.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if err := r.db.checkConnected("list comments"); err != nil {
		return nil, err
	}

	result := make([]entities.Comment, 0)
	for _, c := range r.db.comments {
		if c.EntryID == entryID {
			result = append(result, c)
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

func (r *commentRepository) Create(ctx context.Context, in entities.NewComment) (*entities.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected("create comment"); err != nil {
		return nil, err
	}
	if _, ok := r.db.entries[in.EntryID]; !ok {
		return nil, &interfaces.DatabaseError{
			Op:  fmt.Sprintf("comments.entry_id=%d", in.EntryID),
			Err: interfaces.ErrForeignKeyConstraint,
		}
	}

	c := entities.Comment{
		ID:         r.db.nextID(tableComments),
		EntryID:    in.EntryID,
		Content:    in.Content,
		AuthorName: in.AuthorName,
		CreatedAt:  r.db.timestamp(),
	}
	r.db.comments[c.ID] = c
	return &c, nil
}

func (r *commentRepository) Delete(ctx context.Context, id int64) (*entities.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected("delete comment"); err != nil {
		return nil, err
	}

	c, ok := r.db.comments[id]
	if !ok {
		return nil, nil
	}
	delete(r.db.comments, id)
	return &c, nil
}
