package memory

import (
	"context"
	"sort"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/db/interfaces"
)

type categoryRepository struct {
	db *Database
}

func (r *categoryRepository) List(ctx context.Context) ([]entities.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if err := r.db.checkConnected("list categories"); err != nil {
		return nil, err
	}

	result := make([]entities.Category, 0, len(r.db.categories))
	for _, c := range r.db.categories {
		result = append(result, copyCategory(c))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *categoryRepository) FindByName(ctx context.Context, name string) (*entities.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if err := r.db.checkConnected("find category"); err != nil {
		return nil, err
	}

	var found *entities.Category
	for _, c := range r.db.categories {
		if c.Name != name {
			continue
		}
		if found == nil || c.ID < found.ID {
			cp := copyCategory(c)
			found = &cp
		}
	}
	if found == nil {
		return nil, interfaces.ErrNotFound
	}
	return found, nil
}

func (r *categoryRepository) Create(ctx context.Context, in entities.NewCategory) (*entities.Category, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected("create category"); err != nil {
		return nil, err
	}

	c := entities.Category{
		ID:          r.db.nextID(tableCategories),
		Name:        in.Name,
		Description: copyString(in.Description),
		CreatedAt:   r.db.timestamp(),
	}
	r.db.categories[c.ID] = c

	out := copyCategory(c)
	return &out, nil
}

func copyCategory(c entities.Category) entities.Category {
	c.Description = copyString(c.Description)
	return c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
