package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leafsii/journal-backend/internal/journal"
	"github.com/leafsii/journal-backend/internal/metrics"
	"github.com/leafsii/journal-backend/internal/store"
)

func newTestHub(t *testing.T) (*Hub, *store.Cache) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	cache := store.NewInMemoryCache(logger, nil)
	t.Cleanup(func() { cache.Close() })

	hub := NewHub(cache, []string{"http://localhost:5173"}, logger, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub, cache
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type published struct {
	channel string
	event   journal.Event
}

// publishUntil republishes events until stop is closed, covering the window
// before the hub subscription and the client subscribe message are in place.
func publishUntil(cache *store.Cache, stop <-chan struct{}, events ...published) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		for _, e := range events {
			cache.Publish(context.Background(), e.channel, e.event)
		}
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func TestHubDeliversSubscribedTopics(t *testing.T) {
	hub, cache := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server)
	require.NoError(t, conn.WriteJSON(WSSubscriptionRequest{
		Type:    "subscribe",
		Topics:  []string{"comments"},
		EntryID: 7,
	}))

	other, wanted := int64(3), int64(7)
	stop := make(chan struct{})
	defer close(stop)
	go publishUntil(cache, stop,
		published{journal.ChannelEntries, journal.Event{Type: journal.EventEntryUpdated, ID: 7, EntryID: &wanted}},
		published{journal.ChannelComments, journal.Event{Type: journal.EventCommentCreated, ID: 1, EntryID: &other}},
		published{journal.ChannelComments, journal.Event{Type: journal.EventCommentCreated, ID: 2, EntryID: &wanted}},
	)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, "update", msg.Type)
	assert.Equal(t, "comments", msg.Topic)

	var event journal.Event
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, journal.EventCommentCreated, event.Type)
	assert.Equal(t, int64(2), event.ID)
	require.NotNil(t, event.EntryID)
	assert.Equal(t, int64(7), *event.EntryID)
}

func TestHubTracksClients(t *testing.T) {
	hub, _ := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

var liveConnections = regexp.MustCompile(`(?m)^journal_live_connections(?:\{[^}]*\})? (\S+)$`)

func scrapeLiveConnections(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	match := liveConnections.FindStringSubmatch(string(body))
	if match == nil {
		return ""
	}
	return match[1]
}

func TestHubInactiveCleanupReleasesGauge(t *testing.T) {
	m, metricsHandler, err := metrics.Setup("journal-ws-test")
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()
	cache := store.NewInMemoryCache(logger, nil)
	t.Cleanup(func() { cache.Close() })
	hub := NewHub(cache, nil, logger, m)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	dial(t, server)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "1", scrapeLiveConnections(t, metricsHandler))

	for _, client := range hub.snapshot(nil) {
		client.lastActive.Store(time.Now().Add(-time.Hour).UnixNano())
	}
	hub.cleanupInactiveClients(ctx)

	assert.Zero(t, hub.ClientCount())
	assert.Equal(t, "0", scrapeLiveConnections(t, metricsHandler))
}

func TestHubRefusesClientsAfterShutdown(t *testing.T) {
	logger := zap.NewNop().Sugar()
	cache := store.NewInMemoryCache(logger, nil)
	t.Cleanup(func() { cache.Close() })
	hub := NewHub(cache, nil, logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection should be closed, not left hanging")
	}
	assert.Zero(t, hub.ClientCount())
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	hub, _ := newTestHub(t)

	check := func(origin string) bool {
		req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		return hub.upgrader.CheckOrigin(req)
	}

	assert.True(t, check(""))
	assert.True(t, check("http://localhost:5173"))
	assert.False(t, check("http://evil.example"))
}

func TestClientSubscriptionMessages(t *testing.T) {
	hub, _ := newTestHub(t)
	client := &Client{hub: hub, topics: make(map[string]bool)}
	entry := int64(4)

	client.handleMessage([]byte(`{"type":"subscribe","topics":["media","bogus"]}`))
	assert.True(t, client.wants("media", &entry))
	assert.True(t, client.wants("media", nil))
	assert.False(t, client.wants("bogus", nil))
	assert.False(t, client.wants("entries", &entry))

	client.handleMessage([]byte(`{"type":"subscribe","topics":["entries"],"entryId":5}`))
	assert.False(t, client.wants("entries", &entry))
	assert.False(t, client.wants("entries", nil))

	client.handleMessage([]byte(`{"type":"unsubscribe","topics":["media"]}`))
	assert.False(t, client.wants("media", nil))

	client.handleMessage([]byte(`not json`))
	assert.False(t, client.wants("media", nil))
}

func TestChannelTopic(t *testing.T) {
	assert.Equal(t, "entries", channelTopic(journal.ChannelEntries))
	assert.Equal(t, "media", channelTopic(journal.ChannelMedia))
	assert.Equal(t, "other", channelTopic("other"))
}
