package store

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Message is a payload received on a pub/sub channel
type Message struct {
	Channel string
	Payload string
}

// Subscription delivers messages for the channels it was opened with.
// The channel returned by Channel is closed after Close.
type Subscription interface {
	Channel() <-chan *Message
	Close() error
}

// memorySubscription is the in-process Subscription used without Redis
type memorySubscription struct {
	channels map[string]bool
	msgChan  chan *Message
	closeCh  chan struct{}
	closed   bool
	mu       sync.RWMutex
}

func newMemorySubscription(channels []string) *memorySubscription {
	channelMap := make(map[string]bool)
	for _, ch := range channels {
		channelMap[ch] = true
	}

	return &memorySubscription{
		channels: channelMap,
		msgChan:  make(chan *Message, 100),
		closeCh:  make(chan struct{}),
	}
}

func (m *memorySubscription) Channel() <-chan *Message {
	return m.msgChan
}

func (m *memorySubscription) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.closeCh)
		close(m.msgChan)
	}
	return nil
}

// sendMessage delivers without blocking; a full buffer drops the message
func (m *memorySubscription) sendMessage(msg *Message) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed || !m.channels[msg.Channel] {
		return
	}

	select {
	case m.msgChan <- msg:
	default:
	}
}

// PubSubHub fans published messages out to in-memory subscriptions
type PubSubHub struct {
	subscribers map[string][]*memorySubscription // channel -> list of subscribers
	mu          sync.RWMutex
}

// NewPubSubHub creates a new pubsub hub
func NewPubSubHub() *PubSubHub {
	return &PubSubHub{
		subscribers: make(map[string][]*memorySubscription),
	}
}

// Subscribe registers a subscription that ends when ctx is done or it is closed
func (h *PubSubHub) Subscribe(ctx context.Context, channels ...string) Subscription {
	sub := newMemorySubscription(channels)

	h.mu.Lock()
	for _, channel := range channels {
		h.subscribers[channel] = append(h.subscribers[channel], sub)
	}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closeCh:
		}
		h.remove(sub, channels)
	}()

	return sub
}

func (h *PubSubHub) remove(sub *memorySubscription, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, channel := range channels {
		subscribers := h.subscribers[channel]
		for i, s := range subscribers {
			if s == sub {
				h.subscribers[channel] = append(subscribers[:i:i], subscribers[i+1:]...)
				break
			}
		}
		if len(h.subscribers[channel]) == 0 {
			delete(h.subscribers, channel)
		}
	}
}

// Publish sends a message to all subscribers of a channel
func (h *PubSubHub) Publish(channel, payload string) {
	h.mu.RLock()
	subscribers := make([]*memorySubscription, len(h.subscribers[channel]))
	copy(subscribers, h.subscribers[channel])
	h.mu.RUnlock()

	msg := &Message{
		Channel: channel,
		Payload: payload,
	}
	for _, sub := range subscribers {
		sub.sendMessage(msg)
	}
}

// subscriberCount is used by tests to observe cleanup
func (h *PubSubHub) subscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[channel])
}

// redisSubscription adapts *redis.PubSub to Subscription
type redisSubscription struct {
	ps   *redis.PubSub
	out  chan *Message
	done chan struct{}
	once sync.Once
	err  error
}

func newRedisSubscription(ctx context.Context, ps *redis.PubSub) *redisSubscription {
	s := &redisSubscription{
		ps:   ps,
		out:  make(chan *Message, 100),
		done: make(chan struct{}),
	}
	go s.pump(ctx)
	return s
}

func (s *redisSubscription) pump(ctx context.Context) {
	defer close(s.out)

	in := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- &Message{Channel: msg.Channel, Payload: msg.Payload}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Channel() <-chan *Message {
	return s.out
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.ps.Close()
	})
	return s.err
}
