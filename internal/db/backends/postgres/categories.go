package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leafsii/journal-backend/internal/db/entities"
)

type categoryRepository struct {
	d *Database
}

const categoryColumns = `id, name, description, created_at`

func scanCategory(s scanner) (*entities.Category, error) {
	var (
		c    entities.Category
		desc sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Description = stringPtr(desc)
	return &c, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]entities.Category, error) {
	db, err := r.d.conn("list categories")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, wrapError("list categories", err)
	}
	defer rows.Close()

	result := make([]entities.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("list categories", err)
	}
	return result, nil
}

func (r *categoryRepository) FindByName(ctx context.Context, name string) (*entities.Category, error) {
	db, err := r.d.conn("find category")
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = $1 ORDER BY id ASC LIMIT 1`, name)
	c, err := scanCategory(row)
	if err != nil {
		return nil, wrapError("find category", err)
	}
	return c, nil
}

func (r *categoryRepository) Create(ctx context.Context, in entities.NewCategory) (*entities.Category, error) {
	db, err := r.d.conn("create category")
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx,
		`INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING `+categoryColumns,
		in.Name, nullString(in.Description),
	)
	c, err := scanCategory(row)
	if err != nil {
		return nil, wrapError("create category", err)
	}
	return c, nil
}
