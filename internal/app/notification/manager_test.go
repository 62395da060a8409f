package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStream struct {
	mu    sync.Mutex
	got   []*Notification
	err   error
	block chan struct{}
}

func (s *recordingStream) Send(n *Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, n)
	return nil
}

func (s *recordingStream) received() []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Notification(nil), s.got...)
}

func receivedCount(s *recordingStream, n int) func() bool {
	return func() bool { return len(s.received()) == n }
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager(0)
	defer m.Close()
	a := &recordingStream{}
	b := &recordingStream{}
	idA := m.Subscribe(a)
	m.Subscribe(b)
	require.Equal(t, 2, m.SubscriberCount())

	m.Broadcast(&Notification{Kind: KindPlayback, Event: "track_started"})
	m.Broadcast(&Notification{Kind: KindTrend, Event: "fresh", Period: "week"})

	for _, s := range []*recordingStream{a, b} {
		require.Eventually(t, receivedCount(s, 2), time.Second, 5*time.Millisecond)
		got := s.received()
		assert.Equal(t, uint64(1), got[0].SequenceNo)
		assert.Equal(t, "track_started", got[0].Event)
		assert.Equal(t, uint64(2), got[1].SequenceNo)
		assert.Equal(t, "week", got[1].Period)
	}

	m.Unsubscribe(idA)
	m.Broadcast(&Notification{Kind: KindPlayback})
	require.Eventually(t, receivedCount(b, 3), time.Second, 5*time.Millisecond)
	assert.Len(t, a.received(), 2)
}

func TestManager_DeliveryKeepsOrder(t *testing.T) {
	m := NewManager(128)
	defer m.Close()
	s := &recordingStream{}
	m.Subscribe(s)

	for i := 0; i < 100; i++ {
		m.Broadcast(&Notification{Kind: KindPlayback, Index: i})
	}

	require.Eventually(t, receivedCount(s, 100), time.Second, 5*time.Millisecond)
	for i, n := range s.received() {
		assert.Equal(t, i, n.Index)
		assert.Equal(t, uint64(i+1), n.SequenceNo)
	}
}

func TestManager_FailingSubscriberIsDropped(t *testing.T) {
	m := NewManager(0)
	defer m.Close()
	m.Subscribe(&recordingStream{err: errors.New("gone")})
	ok := &recordingStream{}
	m.Subscribe(ok)

	m.Broadcast(&Notification{Kind: KindPlayback})

	assert.Eventually(t, func() bool { return m.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, receivedCount(ok, 1), time.Second, 5*time.Millisecond)
}

func TestManager_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewManager(1)
	slow := &recordingStream{block: make(chan struct{})}
	fast := &recordingStream{}
	m.Subscribe(slow)
	m.Subscribe(fast)

	done := make(chan struct{})
	go func() {
		// The slow queue holds one; the rest are dropped for it
		for i := 0; i < 5; i++ {
			m.Broadcast(&Notification{Kind: KindPlayback, Index: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	assert.Eventually(t, func() bool { return len(fast.received()) >= 1 }, time.Second, 5*time.Millisecond)

	close(slow.block)
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_Close(t *testing.T) {
	m := NewManager(0)
	m.Subscribe(&recordingStream{})
	m.Subscribe(&recordingStream{})

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())

	// Broadcasting after close reaches nobody
	m.Broadcast(&Notification{Kind: KindPlayback})
	m.Unsubscribe("unknown")
}
