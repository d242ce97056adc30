package journal

import (
	"context"
	"time"
)

// Pub/sub channels carrying change events
const (
	ChannelCategories = "journal:categories"
	ChannelEntries    = "journal:entries"
	ChannelComments   = "journal:comments"
	ChannelMedia      = "journal:media"
)

var topicChannels = map[string]string{
	"categories": ChannelCategories,
	"entries":    ChannelEntries,
	"comments":   ChannelComments,
	"media":      ChannelMedia,
}

// TopicChannel maps a client-facing topic name to its channel
func TopicChannel(topic string) (string, bool) {
	ch, ok := topicChannels[topic]
	return ch, ok
}

// AllChannels lists every change-event channel
func AllChannels() []string {
	return []string{ChannelCategories, ChannelEntries, ChannelComments, ChannelMedia}
}

type EventType string

const (
	EventCategoryCreated EventType = "category.created"
	EventEntryCreated    EventType = "entry.created"
	EventEntryUpdated    EventType = "entry.updated"
	EventEntryDeleted    EventType = "entry.deleted"
	EventCommentCreated  EventType = "comment.created"
	EventCommentDeleted  EventType = "comment.deleted"
	EventMediaCreated    EventType = "media.created"
	EventMediaDeleted    EventType = "media.deleted"
)

// Event is published after every successful write. EntryID is set for
// events about an entry or its children.
type Event struct {
	Type    EventType `json:"type"`
	ID      int64     `json:"id"`
	EntryID *int64    `json:"entryId,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher delivers change events; *store.Cache implements it
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

func (s *Service) publish(ctx context.Context, channel string, eventType EventType, id int64, entryID *int64) {
	if s.events == nil {
		return
	}
	event := Event{Type: eventType, ID: id, EntryID: entryID, At: time.Now().UTC()}
	if err := s.events.Publish(ctx, channel, event); err != nil {
		s.logger.Warnw("Failed to publish change event", "channel", channel, "type", eventType, "id", id, "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordEvent(ctx, string(eventType))
	}
}
