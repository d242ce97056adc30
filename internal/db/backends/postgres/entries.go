package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/db/interfaces"
)

type entryRepository struct {
	d *Database
}

const entryColumns = `id, title, content, category_id, date, updated_at`

const entryWithCategoryQuery = `
	SELECT e.id, e.title, e.content, e.category_id, e.date, e.updated_at,
	       c.id, c.name, c.description, c.created_at
	FROM entries e
	LEFT JOIN categories c ON c.id = e.category_id`

func scanEntry(s scanner) (*entities.Entry, error) {
	var (
		e          entities.Entry
		categoryID sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.Title, &e.Content, &categoryID, &e.Date, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.CategoryID = int64Ptr(categoryID)
	return &e, nil
}

func scanEntryWithCategory(s scanner) (*entities.EntryWithCategory, error) {
	var (
		e          entities.EntryWithCategory
		categoryID sql.NullInt64
		cID        sql.NullInt64
		cName      sql.NullString
		cDesc      sql.NullString
		cCreated   sql.NullTime
	)
	err := s.Scan(
		&e.ID, &e.Title, &e.Content, &categoryID, &e.Date, &e.UpdatedAt,
		&cID, &cName, &cDesc, &cCreated,
	)
	if err != nil {
		return nil, err
	}
	e.CategoryID = int64Ptr(categoryID)
	if cID.Valid {
		e.Category = &entities.Category{
			ID:          cID.Int64,
			Name:        cName.String,
			Description: stringPtr(cDesc),
			CreatedAt:   cCreated.Time,
		}
	}
	return &e, nil
}

func (r *entryRepository) List(ctx context.Context) ([]entities.EntryWithCategory, error) {
	db, err := r.d.conn("list entries")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, entryWithCategoryQuery+` ORDER BY e.date DESC, e.id DESC`)
	if err != nil {
		return nil, wrapError("list entries", err)
	}
	defer rows.Close()

	result := make([]entities.EntryWithCategory, 0)
	for rows.Next() {
		e, err := scanEntryWithCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("list entries", err)
	}
	return result, nil
}

func (r *entryRepository) Get(ctx context.Context, id int64) (*entities.EntryWithCategory, error) {
	db, err := r.d.conn("get entry")
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, entryWithCategoryQuery+` WHERE e.id = $1`, id)
	e, err := scanEntryWithCategory(row)
	if err != nil {
		return nil, wrapError("get entry", err)
	}
	return e, nil
}

func (r *entryRepository) Create(ctx context.Context, in entities.EntryInput) (*entities.Entry, error) {
	db, err := r.d.conn("create entry")
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx,
		`INSERT INTO entries (title, content, category_id) VALUES ($1, $2, $3) RETURNING `+entryColumns,
		in.Title, in.Content, nullInt64(in.CategoryID),
	)
	e, err := scanEntry(row)
	if err != nil {
		return nil, wrapError("create entry", err)
	}
	return e, nil
}

func (r *entryRepository) Update(ctx context.Context, id int64, in entities.EntryInput) (*entities.Entry, error) {
	db, err := r.d.conn("update entry")
	if err != nil {
		return nil, err
	}

	// GREATEST keeps updated_at strictly increasing within one clock tick
	row := db.QueryRowContext(ctx, `
		UPDATE entries
		SET title = $2,
		    content = $3,
		    category_id = $4,
		    updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')
		WHERE id = $1
		RETURNING `+entryColumns,
		id, in.Title, in.Content, nullInt64(in.CategoryID),
	)
	e, err := scanEntry(row)
	if err != nil {
		return nil, wrapError("update entry", err)
	}
	return e, nil
}

func (r *entryRepository) Delete(ctx context.Context, id int64) error {
	db, err := r.d.conn("delete entry")
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id); err != nil {
		return wrapError("delete entry", err)
	}
	return nil
}

// isNotFound reports whether a lookup came back empty
func isNotFound(err error) bool {
	return errors.Is(err, interfaces.ErrNotFound)
}
