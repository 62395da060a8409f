// Package notification provides the notification manager for broadcasting events.
package notification

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/domain/track"
)

const defaultBuffer = 64

// Kind identifies the component a notification originates from.
type Kind string

const (
	KindPlayback Kind = "playback"
	KindTrend    Kind = "trend"
)

// Notification is a single event delivered to subscribers.
type Notification struct {
	SequenceNo uint64
	Kind       Kind
	Event      string       // Playback event type or trend entry state
	State      string       // Playback state
	Index      int          // Playback cursor, -1 when none
	Track      *track.Track // Track at cursor
	Period     string       // Trend period
	Reason     string
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription delivers queued notifications to one stream, in order.
type subscription struct {
	id      string
	stream  Stream
	queue   chan Notification
	done    chan struct{}
	stopped chan struct{}
	dropped atomic.Int64
}

// Manager manages notification subscriptions and broadcasting.
// Each subscriber has its own queue and delivery goroutine, so a slow
// stream only delays itself.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    atomic.Uint64
	buffer        int
}

// NewManager creates a new notification manager. buffer is the number of
// notifications queued per subscriber; 0 selects the default.
func NewManager(buffer int) *Manager {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Manager{
		subscriptions: make(map[string]*subscription),
		buffer:        buffer,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &subscription{
		id:      uuid.New().String(),
		stream:  stream,
		queue:   make(chan Notification, m.buffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	m.subscriptions[sub.id] = sub

	go m.deliver(sub)

	return sub.id
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	return m.sequenceNo.Add(1)
}

// Unsubscribe removes a subscription. It returns once the stream is no
// longer used by the manager.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	sub := m.removeLocked(subscriptionID)
	m.mu.Unlock()

	if sub != nil {
		<-sub.stopped
	}
}

// Must be called with lock held.
func (m *Manager) removeLocked(subscriptionID string) *subscription {
	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return nil
	}
	delete(m.subscriptions, subscriptionID)
	close(sub.done)
	if n := sub.dropped.Load(); n > 0 {
		zlog.Debug().Msgf("subscriber removed: id=%s dropped=%d", sub.id, n)
	}
	return sub
}

// Broadcast assigns the next sequence number to notification and queues a
// copy for every subscriber. It never blocks: a subscriber whose queue is
// full misses the notification.
func (m *Manager) Broadcast(notification *Notification) {
	notification.SequenceNo = m.NextSequenceNo()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscriptions {
		select {
		case sub.queue <- *notification:
		default:
			sub.dropped.Add(1)
			zlog.Debug().Msgf("notification dropped, subscriber too slow: id=%s seq=%d", sub.id, notification.SequenceNo)
		}
	}
}

// deliver sends queued notifications until the subscription is removed or
// its stream fails.
func (m *Manager) deliver(sub *subscription) {
	defer close(sub.stopped)

	for {
		select {
		case <-sub.done:
			return
		case n := <-sub.queue:
			if err := sub.stream.Send(&n); err != nil {
				zlog.Debug().Msgf("notification send failed, dropping subscriber: id=%s error=%v", sub.id, err)
				m.mu.Lock()
				m.removeLocked(sub.id)
				m.mu.Unlock()
				return
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions and waits for their delivery goroutines.
// Queued notifications not yet sent are discarded.
func (m *Manager) Close() {
	m.mu.Lock()
	removed := make([]*subscription, 0, len(m.subscriptions))
	for id := range m.subscriptions {
		removed = append(removed, m.removeLocked(id))
	}
	m.mu.Unlock()

	for _, sub := range removed {
		<-sub.stopped
	}
}
