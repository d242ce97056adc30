package postgres

import (
	"context"
	"fmt"

	"github.com/leafsii/journal-backend/internal/db/entities"
)

type mediaRepository struct {
	d *Database
}

const mediaColumns = `id, entry_id, type, url, created_at`

func scanMedia(s scanner) (*entities.Media, error) {
	var m entities.Media
	if err := s.Scan(&m.ID, &m.EntryID, &m.Type, &m.URL, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mediaRepository) ListByEntry(ctx context.Context, entryID int64) ([]entities.Media, error) {
	db, err := r.d.conn("list media")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE entry_id = $1 ORDER BY created_at DESC, id DESC`,
		entryID,
	)
	if err != nil {
		return nil, wrapError("list media", err)
	}
	defer rows.Close()

	result := make([]entities.Media, 0)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("list media", err)
	}
	return result, nil
}

func (r *mediaRepository) ListURLs(ctx context.Context) ([]string, error) {
	db, err := r.d.conn("list media urls")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT url FROM media ORDER BY url`)
	if err != nil {
		return nil, wrapError("list media urls", err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan media url: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("list media urls", err)
	}
	return urls, nil
}

func (r *mediaRepository) Create(ctx context.Context, in entities.NewMedia) (*entities.Media, error) {
	db, err := r.d.conn("create media")
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx,
		`INSERT INTO media (entry_id, type, url) VALUES ($1, $2, $3) RETURNING `+mediaColumns,
		in.EntryID, string(in.Type), in.URL,
	)
	m, err := scanMedia(row)
	if err != nil {
		return nil, wrapError("create media", err)
	}
	return m, nil
}

func (r *mediaRepository) Delete(ctx context.Context, id int64) (*entities.Media, error) {
	db, err := r.d.conn("delete media")
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `DELETE FROM media WHERE id = $1 RETURNING `+mediaColumns, id)
	m, err := scanMedia(row)
	if err != nil {
		if err = wrapError("delete media", err); isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}
