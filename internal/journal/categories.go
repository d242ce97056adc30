package journal

import (
	"context"
	"fmt"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/store"
)

// ListCategories returns every category ordered by name
func (s *Service) ListCategories(ctx context.Context) ([]entities.Category, error) {
	return cachedRead(ctx, s, store.KeyCategories, func(ctx context.Context) ([]entities.Category, error) {
		categories, err := s.db.Categories().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list categories: %w", err)
		}
		return categories, nil
	})
}

func (s *Service) CreateCategory(ctx context.Context, in entities.NewCategory) (*entities.Category, error) {
	if err := required("name", in.Name, MsgNameRequired); err != nil {
		return nil, err
	}

	ctx = detach(ctx)
	category, err := s.db.Categories().Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidate(ctx, store.KeyCategories)
	s.publish(ctx, ChannelCategories, EventCategoryCreated, category.ID, nil)
	return category, nil
}
