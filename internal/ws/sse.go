package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leafsii/journal-backend/internal/journal"
	"github.com/leafsii/journal-backend/internal/metrics"
)

type SSEHandler struct {
	subscriber Subscriber
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
	heartbeat  time.Duration
}

func NewSSEHandler(subscriber Subscriber, logger *zap.SugaredLogger, metrics *metrics.Metrics) *SSEHandler {
	return &SSEHandler{
		subscriber: subscriber,
		logger:     logger,
		metrics:    metrics,
		heartbeat:  30 * time.Second,
	}
}

// HandleSSE streams change events. Query parameters: topics, a comma
// separated subset of categories,entries,comments,media (default all), and
// entryId to only receive events about one entry.
func (h *SSEHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	channels, err := parseChannels(r.URL.Query().Get("topics"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var entryFilter int64
	if raw := r.URL.Query().Get("entryId"); raw != "" {
		entryFilter, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || entryFilter <= 0 {
			http.Error(w, "invalid entryId", http.StatusBadRequest)
			return
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Create context that cancels when client disconnects
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if h.metrics != nil {
		h.metrics.IncrementConnections(ctx)
		defer h.metrics.DecrementConnections(context.Background())
	}

	sub := h.subscriber.Subscribe(ctx, channels...)
	defer sub.Close()

	h.logger.Debugw("SSE connection established", "channels", channels, "entryId", entryFilter)
	h.sendEvent(w, flusher, "connected", "", map[string]interface{}{"channels": channels})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debugw("SSE client disconnected")
			return

		case <-heartbeat.C:
			h.sendEvent(w, flusher, "heartbeat", "", map[string]interface{}{
				"timestamp": time.Now().Unix(),
			})

		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg == nil {
				continue
			}

			var event journal.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Warnw("Failed to parse message payload", "channel", msg.Channel, "error", err)
				continue
			}
			if !matchesEntry(entryFilter, event.EntryID) {
				continue
			}

			h.sendEvent(w, flusher, string(event.Type), fmt.Sprintf("%s:%d", channelTopic(msg.Channel), event.ID), event)
		}
	}
}

func parseChannels(topicsParam string) ([]string, error) {
	if strings.TrimSpace(topicsParam) == "" {
		return journal.AllChannels(), nil
	}

	seen := make(map[string]bool)
	channels := make([]string, 0)
	for _, topic := range strings.Split(topicsParam, ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		ch, ok := journal.TopicChannel(topic)
		if !ok {
			return nil, fmt.Errorf("unknown topic %q", topic)
		}
		if !seen[ch] {
			seen[ch] = true
			channels = append(channels, ch)
		}
	}
	if len(channels) == 0 {
		return journal.AllChannels(), nil
	}
	return channels, nil
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType, id string, data interface{}) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		h.logger.Errorw("Failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	fmt.Fprintf(w, "data: %s\n\n", dataBytes)

	flusher.Flush()
}
