package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/db/interfaces"
)

func strPtr(s string) *string { return &s }

// DefaultCategories are the categories a fresh journal starts with
var DefaultCategories = []entities.NewCategory{
	{Name: "Personnel", Description: strPtr("Pensées et moments du quotidien")},
	{Name: "Travail", Description: strPtr("Projets, réunions et idées professionnelles")},
	{Name: "Voyages", Description: strPtr("Souvenirs de voyages et découvertes")},
	{Name: "Lectures", Description: strPtr("Notes de lecture")},
}

// SeedCategories creates every category whose name does not exist yet and
// returns how many were created.
func SeedCategories(ctx context.Context, db interfaces.Database, categories []entities.NewCategory) (int, error) {
	created := 0
	for _, c := range categories {
		_, err := db.Categories().FindByName(ctx, c.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, interfaces.ErrNotFound) {
			return created, fmt.Errorf("failed to look up category %q: %w", c.Name, err)
		}
		if _, err := db.Categories().Create(ctx, c); err != nil {
			return created, fmt.Errorf("failed to create category %q: %w", c.Name, err)
		}
		created++
	}
	return created, nil
}
