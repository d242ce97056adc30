package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/leafsii/journal-backend/internal/storage"
)

// SweepOrphans deletes stored files that no media row points at and that
// are older than grace. Younger files may belong to an upload whose row is
// not inserted yet.
func (s *Service) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	objects, err := s.blobs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored files: %w", err)
	}
	urls, err := s.db.Media().ListURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list media urls: %w", err)
	}

	referenced := make(map[string]bool, len(urls))
	for _, url := range urls {
		if name, ok := storage.NameFromURL(url); ok {
			referenced[name] = true
		}
	}

	cutoff := time.Now().Add(-grace)
	removed := 0
	for _, obj := range objects {
		if referenced[obj.Name] || obj.ModTime.After(cutoff) {
			continue
		}
		if err := s.blobs.Delete(ctx, obj.Name); err != nil {
			s.logger.Warnw("Failed to remove orphaned file", "name", obj.Name, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Infow("Removed orphaned files", "count", removed, "scanned", len(objects))
	}
	return removed, nil
}
