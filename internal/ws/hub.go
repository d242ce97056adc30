package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/leafsii/journal-backend/internal/journal"
	"github.com/leafsii/journal-backend/internal/metrics"
	"github.com/leafsii/journal-backend/internal/store"
)

// Subscriber opens pub/sub subscriptions; *store.Cache implements it
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) store.Subscription
}

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	subscriber Subscriber
	upgrader   websocket.Upgrader
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
	mu         sync.RWMutex
}

type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	lastActive atomic.Int64 // unix nanos

	mu      sync.RWMutex
	topics  map[string]bool
	entryID int64 // 0 means every entry
}

type Message struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// WSSubscriptionRequest is sent by clients to pick topics, e.g.
// {"type":"subscribe","topics":["comments","media"],"entryId":3}
type WSSubscriptionRequest struct {
	Type    string   `json:"type"`
	Topics  []string `json:"topics"`
	EntryID int64    `json:"entryId,omitempty"`
}

func NewHub(subscriber Subscriber, allowedOrigins []string, logger *zap.SugaredLogger, metrics *metrics.Metrics) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// same-origin requests carry no Origin header
				return origin == "" || origins[origin] || origins["*"]
			},
		},
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	go h.startSubscription(ctx)
	go h.startClientCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			h.logger.Infow("WebSocket hub shutting down")
			h.closeAll(context.Background())
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.IncrementConnections(ctx)
			}
			h.logger.Debugw("Client registered", "remote", client.conn.RemoteAddr().String())

		case client := <-h.unregister:
			h.removeClient(ctx, client)
		}
	}
}

// removeClient drops a client once; later calls are no-ops
func (h *Hub) removeClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	if ok {
		if h.metrics != nil {
			h.metrics.DecrementConnections(ctx)
		}
		h.logger.Debugw("Client unregistered", "remote", client.conn.RemoteAddr().String())
	}
}

func (h *Hub) closeAll(ctx context.Context) {
	for _, client := range h.snapshot(nil) {
		h.removeClient(ctx, client)
	}
}

// snapshot returns the current clients, or only those keep accepts
func (h *Hub) snapshot(keep func(*Client) bool) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if keep == nil || keep(client) {
			clients = append(clients, client)
		}
	}
	return clients
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) startSubscription(ctx context.Context) {
	channels := journal.AllChannels()
	sub := h.subscriber.Subscribe(ctx, channels...)
	defer sub.Close()

	h.logger.Debugw("WebSocket hub subscribed", "channels", channels)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg != nil {
				h.handleMessage(ctx, msg)
			}
		}
	}
}

func (h *Hub) handleMessage(ctx context.Context, msg *store.Message) {
	var event journal.Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		h.logger.Warnw("Dropping malformed change event", "channel", msg.Channel, "error", err)
		return
	}

	topic := channelTopic(msg.Channel)
	wsMessage := Message{
		Type:      "update",
		Topic:     topic,
		Data:      json.RawMessage(msg.Payload),
		Timestamp: time.Now().Unix(),
	}

	messageBytes, err := json.Marshal(wsMessage)
	if err != nil {
		h.logger.Errorw("Failed to marshal WebSocket message", "error", err)
		return
	}

	h.broadcastToClients(ctx, messageBytes, topic, event.EntryID)
}

func (h *Hub) broadcastToClients(ctx context.Context, message []byte, topic string, entryID *int64) {
	var slow []*Client

	// sends happen under the read lock; send channels are only closed under the write lock
	h.mu.RLock()
	for client := range h.clients {
		if !client.wants(topic, entryID) {
			continue
		}
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Debugw("Dropping slow client", "remote", client.conn.RemoteAddr().String())
		h.removeClient(ctx, client)
	}
}

func (h *Hub) startClientCleanup(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cleanupInactiveClients(ctx)
		}
	}
}

func (h *Hub) cleanupInactiveClients(ctx context.Context) {
	cutoff := time.Now().Add(-90 * time.Second).UnixNano()

	inactive := h.snapshot(func(c *Client) bool { return c.lastActive.Load() < cutoff })
	for _, client := range inactive {
		h.logger.Debugw("Cleaning up inactive client", "remote", client.conn.RemoteAddr().String())
		h.removeClient(ctx, client)
	}
}

// WebSocket endpoint handler
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		topics: make(map[string]bool),
	}
	client.touch()

	select {
	case h.register <- client:
	case <-h.done:
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Errorw("WebSocket error", "error", err)
			}
			break
		}

		c.touch()
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var sub WSSubscriptionRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		c.hub.logger.Warnw("Invalid subscription message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch sub.Type {
	case "subscribe":
		for _, topic := range sub.Topics {
			if _, ok := journal.TopicChannel(topic); ok || topic == "*" {
				c.topics[topic] = true
			}
		}
		c.entryID = sub.EntryID
		c.hub.logger.Debugw("Client subscribed to topics", "topics", sub.Topics, "entryId", sub.EntryID)

	case "unsubscribe":
		for _, topic := range sub.Topics {
			delete(c.topics, topic)
		}
		c.hub.logger.Debugw("Client unsubscribed from topics", "topics", sub.Topics)
	}
}

// wants reports whether an event on topic about entryID should reach the client
func (c *Client) wants(topic string, entryID *int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.topics[topic] && !c.topics["*"] {
		return false
	}
	return matchesEntry(c.entryID, entryID)
}

// matchesEntry applies an entry filter; 0 disables filtering
func matchesEntry(filter int64, entryID *int64) bool {
	if filter == 0 {
		return true
	}
	return entryID != nil && *entryID == filter
}

// channelTopic is the inverse of journal.TopicChannel
func channelTopic(channel string) string {
	for _, topic := range []string{"categories", "entries", "comments", "media"} {
		if ch, _ := journal.TopicChannel(topic); ch == channel {
			return topic
		}
	}
	return channel
}
