package journal

import (
	"context"
	"fmt"

	"github.com/leafsii/journal-backend/internal/db/entities"
)

// ListComments returns the comments of an entry, newest first
func (s *Service) ListComments(ctx context.Context, entryID int64) ([]entities.Comment, error) {
	comments, err := s.db.Comments().ListByEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of entry %d: %w", entryID, err)
	}
	return comments, nil
}

func (s *Service) CreateComment(ctx context.Context, in entities.NewComment) (*entities.Comment, error) {
	if err := required("content", in.Content, MsgContentRequired); err != nil {
		return nil, err
	}
	if err := required("authorName", in.AuthorName, MsgAuthorNameRequired); err != nil {
		return nil, err
	}

	ctx = detach(ctx)
	comment, err := s.db.Comments().Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.publish(ctx, ChannelComments, EventCommentCreated, comment.ID, &comment.EntryID)
	return comment, nil
}

// DeleteComment succeeds whether or not the comment existed
func (s *Service) DeleteComment(ctx context.Context, id int64) error {
	ctx = detach(ctx)
	comment, err := s.db.Comments().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment %d: %w", id, err)
	}
	if comment != nil {
		s.publish(ctx, ChannelComments, EventCommentDeleted, comment.ID, &comment.EntryID)
	}
	return nil
}
