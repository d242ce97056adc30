package postgres

import (
	"context"
	"fmt"

	"github.com/leafsii/journal-backend/internal/db/entities"
)

type commentRepository struct {
	d *Database
}

const commentColumns = `id, entry_id, content, author_name, created_at`

func scanComment(s scanner) (*entities.Comment, error) {
	var c entities.Comment
	if err := s.Scan(&c.ID, &c.EntryID, &c.Content, &c.AuthorName, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commentRepository) ListByEntry(ctx context.Context, entryID int64) ([]entities.Comment, error) {
	db, err := r.d.conn("list comments")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE entry_id = $1 ORDER BY created_at DESC, id DESC`,
		entryID,
	)
	if err != nil {
		return nil, wrapError("list comments", err)
	}
	defer rows.Close()

	result := make([]entities.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("list comments", err)
	}
	return result, nil
}

func (r *commentRepository) Create(ctx context.Context, in entities.NewComment) (*entities.Comment, error) {
	db, err := r.d.conn("create comment")
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx,
		`INSERT INTO comments (entry_id, content, author_name) VALUES ($1, $2, $3) RETURNING `+commentColumns,
		in.EntryID, in.Content, in.AuthorName,
	)
	c, err := scanComment(row)
	if err != nil {
		return nil, wrapError("create comment", err)
	}
	return c, nil
}

func (r *commentRepository) Delete(ctx context.Context, id int64) (*entities.Comment, error) {
	db, err := r.d.conn("delete comment")
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `DELETE FROM comments WHERE id = $1 RETURNING `+commentColumns, id)
	c, err := scanComment(row)
	if err != nil {
		if err = wrapError("delete comment", err); isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}
