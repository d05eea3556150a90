package realtime

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// chanSubscriber collects enqueued frames on a buffered channel, mirroring
// the client send buffer.
type chanSubscriber struct {
	id string
	ch chan []byte
}

func newChanSubscriber(id string, buffer int) *chanSubscriber {
	return &chanSubscriber{id: id, ch: make(chan []byte, buffer)}
}

func (s *chanSubscriber) ID() string { return s.id }

func (s *chanSubscriber) Enqueue(msg []byte) bool {
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

func (s *chanSubscriber) drain(t *testing.T) []envelope {
	t.Helper()
	var out []envelope
	for {
		select {
		case raw := <-s.ch:
			var env envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	a := newChanSubscriber("a", 8)
	b := newChanSubscriber("b", 8)
	g.Attach(a)
	g.Attach(b)

	g.Broadcast(EventAllCharacters, map[string]int{"n": 1})

	for _, s := range []*chanSubscriber{a, b} {
		got := s.drain(t)
		require.Len(t, got, 1)
		require.Equal(t, EventAllCharacters, got[0].Event)
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	s := newChanSubscriber("a", 8)
	g.Attach(s)

	g.Publish([]Event{
		{Name: EventAddCharacter, Payload: 1},
		{Name: EventAllCharacters, Payload: 2},
		{Name: EventUserLoginNotification, Payload: 3},
	})

	got := s.drain(t)
	require.Len(t, got, 3)
	require.Equal(t, EventAddCharacter, got[0].Event)
	require.Equal(t, EventAllCharacters, got[1].Event)
	require.Equal(t, EventUserLoginNotification, got[2].Event)
}

func TestBroadcastDropsOnFullBuffer(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	full := newChanSubscriber("full", 1)
	healthy := newChanSubscriber("ok", 8)
	g.Attach(full)
	g.Attach(healthy)

	g.Broadcast("first", nil)
	g.Broadcast("second", nil) // overflows the one-slot buffer

	require.Len(t, full.drain(t), 1)
	require.Len(t, healthy.drain(t), 2)
}

func TestSendToTargetsOneConnection(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	a := newChanSubscriber("a", 8)
	b := newChanSubscriber("b", 8)
	g.Attach(a)
	g.Attach(b)

	g.SendTo("a", EventForceLogout, map[string]string{"message": "bye"})

	require.Len(t, a.drain(t), 1)
	require.Empty(t, b.drain(t))

	// unknown connection is a no-op
	g.SendTo("ghost", EventForceLogout, nil)
}

func TestDetachStopsDelivery(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	s := newChanSubscriber("a", 8)
	g.Attach(s)
	require.Equal(t, 1, g.SubscriberCount())

	g.Detach("a")
	require.Equal(t, 0, g.SubscriberCount())

	g.Broadcast("after", nil)
	require.Empty(t, s.drain(t))
}

func TestBroadcastSkipsUnserializablePayload(t *testing.T) {
	g := NewGateway(zerolog.Nop())
	s := newChanSubscriber("a", 8)
	g.Attach(s)

	g.Broadcast("bad", func() {})
	require.Empty(t, s.drain(t))
}
