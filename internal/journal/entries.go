package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/db/interfaces"
	"github.com/leafsii/journal-backend/internal/storage"
	"github.com/leafsii/journal-backend/internal/store"
)

// ListEntries returns every entry with its category, newest first
func (s *Service) ListEntries(ctx context.Context) ([]entities.EntryWithCategory, error) {
	return cachedRead(ctx, s, store.KeyEntries, func(ctx context.Context) ([]entities.EntryWithCategory, error) {
		entries, err := s.db.Entries().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list entries: %w", err)
		}
		return entries, nil
	})
}

// GetEntry returns ErrNotFound when id matches no entry
func (s *Service) GetEntry(ctx context.Context, id int64) (*entities.EntryWithCategory, error) {
	return cachedRead(ctx, s, store.EntryKey(id), func(ctx context.Context) (*entities.EntryWithCategory, error) {
		entry, err := s.db.Entries().Get(ctx, id)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return nil, fmt.Errorf("entry %d: %w", id, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get entry %d: %w", id, err)
		}
		return entry, nil
	})
}

func (s *Service) CreateEntry(ctx context.Context, in entities.EntryInput) (*entities.Entry, error) {
	in, err := normalizeEntryInput(in)
	if err != nil {
		return nil, err
	}

	ctx = detach(ctx)
	entry, err := s.db.Entries().Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	s.invalidate(ctx, store.KeyEntries)
	s.publish(ctx, ChannelEntries, EventEntryCreated, entry.ID, &entry.ID)
	return entry, nil
}

// UpdateEntry replaces title, content and category. It returns ErrNotFound
// when id matches no entry.
func (s *Service) UpdateEntry(ctx context.Context, id int64, in entities.EntryInput) (*entities.Entry, error) {
	in, err := normalizeEntryInput(in)
	if err != nil {
		return nil, err
	}

	ctx = detach(ctx)
	entry, err := s.db.Entries().Update(ctx, id, in)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("entry %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update entry %d: %w", id, err)
	}

	s.invalidate(ctx, store.KeyEntries, store.EntryKey(id))
	s.publish(ctx, ChannelEntries, EventEntryUpdated, entry.ID, &entry.ID)
	return entry, nil
}

// DeleteEntry removes the entry with its comments and media. Deleting a
// missing entry succeeds.
func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	ctx = detach(ctx)

	// collected before the cascade so the files can follow their rows
	media, err := s.db.Media().ListByEntry(ctx, id)
	if err != nil {
		s.logger.Warnw("Failed to list media before entry delete", "entryId", id, "error", err)
		media = nil
	}

	if err := s.db.Entries().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, err)
	}

	for _, m := range media {
		s.removeBlob(ctx, m.URL)
	}
	s.invalidate(ctx, store.KeyEntries, store.EntryKey(id))
	s.publish(ctx, ChannelEntries, EventEntryDeleted, id, &id)
	return nil
}

// normalizeEntryInput validates required fields and maps a zero category
// id to no category, so 0 can never reference a category.
func normalizeEntryInput(in entities.EntryInput) (entities.EntryInput, error) {
	if err := required("title", in.Title, MsgTitleRequired); err != nil {
		return in, err
	}
	if err := required("content", in.Content, MsgContentRequired); err != nil {
		return in, err
	}
	if in.CategoryID != nil && *in.CategoryID == 0 {
		in.CategoryID = nil
	}
	return in, nil
}

// removeBlob deletes the stored file behind a media URL; failures are only logged
func (s *Service) removeBlob(ctx context.Context, url string) {
	name, ok := storage.NameFromURL(url)
	if !ok {
		s.logger.Warnw("Media URL does not point to stored file", "url", url)
		return
	}
	if err := s.blobs.Delete(ctx, name); err != nil {
		s.logger.Warnw("Failed to delete stored file", "name", name, "error", err)
	}
}
