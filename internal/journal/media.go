package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/storage"
)

// sniffLen is how many leading bytes are read to detect a missing content type
const sniffLen = 3072

// Upload is a file received from a client
type Upload struct {
	Filename    string
	ContentType string
	Size        int64 // -1 when unknown
	Body        io.Reader
}

// ClassifyMediaType maps a MIME type to a media type
func ClassifyMediaType(contentType string) entities.MediaType {
	mediaType := contentType
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return entities.MediaTypeImage
	case strings.HasPrefix(mediaType, "video/"):
		return entities.MediaTypeVideo
	case mediaType == "application/pdf":
		return entities.MediaTypePDF
	default:
		return entities.MediaTypeOther
	}
}

// ListMedia returns the media of an entry, newest first
func (s *Service) ListMedia(ctx context.Context, entryID int64) ([]entities.Media, error) {
	media, err := s.db.Media().ListByEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media of entry %d: %w", entryID, err)
	}
	return media, nil
}

// isGenericContentType reports whether the declared type says nothing about
// the file, so the bytes have to be sniffed
func isGenericContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	base, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(base), "application/octet-stream")
}

// CreateMedia stores the file, then records it. The stored file is removed
// again when the row cannot be inserted.
func (s *Service) CreateMedia(ctx context.Context, entryID int64, up *Upload) (*entities.Media, error) {
	if up == nil || up.Body == nil {
		return nil, &ValidationError{Field: "file", Message: MsgNoFile}
	}

	ctx = detach(ctx)

	contentType := strings.TrimSpace(up.ContentType)
	body := up.Body
	if isGenericContentType(contentType) {
		var err error
		contentType, body, err = sniffContentType(body)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
	}
	mediaType := ClassifyMediaType(contentType)

	name := storage.NewObjectName(up.Filename)
	written, err := s.blobs.Put(ctx, name, body, up.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	media, err := s.db.Media().Create(ctx, entities.NewMedia{
		EntryID: entryID,
		Type:    mediaType,
		URL:     storage.URL(name),
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, name); delErr != nil {
			s.logger.Errorw("Failed to remove stored file after insert failure", "name", name, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create media: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordUpload(ctx, string(mediaType), written)
	}
	s.logger.Infow("Media uploaded", "id", media.ID, "entryId", entryID, "type", mediaType, "bytes", written)
	s.publish(ctx, ChannelMedia, EventMediaCreated, media.ID, &media.EntryID)
	return media, nil
}

// DeleteMedia removes the row, then its stored file. A file that cannot be
// removed is only logged. Deleting a missing media succeeds.
func (s *Service) DeleteMedia(ctx context.Context, id int64) error {
	ctx = detach(ctx)
	media, err := s.db.Media().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete media %d: %w", id, err)
	}
	if media == nil {
		return nil
	}

	s.removeBlob(ctx, media.URL)
	s.publish(ctx, ChannelMedia, EventMediaDeleted, media.ID, &media.EntryID)
	return nil
}

// OpenFile opens a stored upload by object name
func (s *Service) OpenFile(ctx context.Context, name string) (*storage.Object, error) {
	obj, err := s.blobs.Open(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("file %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	return obj, nil
}

// sniffContentType detects the type from the leading bytes and returns a
// reader that still yields the whole body.
func sniffContentType(body io.Reader) (string, io.Reader, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(body, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	header = header[:n]
	return mimetype.Detect(header).String(), io.MultiReader(bytes.NewReader(header), body), nil
}
