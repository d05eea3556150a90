package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// envelope is the wire frame for every server-pushed event.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// subscriber is one attached connection. Enqueue must never block; it reports
// whether the message was accepted.
type subscriber interface {
	ID() string
	Enqueue(msg []byte) bool
}

// Gateway delivers named events to every attached subscriber on a single
// shared topic. A slow or dead subscriber drops messages instead of stalling
// the others. Events published by one goroutine arrive at each subscriber in
// publish order.
type Gateway struct {
	mu   sync.RWMutex
	subs map[string]subscriber
	log  zerolog.Logger
}

func NewGateway(log zerolog.Logger) *Gateway {
	return &Gateway{subs: make(map[string]subscriber), log: log}
}

// Attach registers a subscriber under its connection id.
func (g *Gateway) Attach(s subscriber) {
	g.mu.Lock()
	g.subs[s.ID()] = s
	g.mu.Unlock()
}

// Detach removes the subscriber for the connection id. No-op when absent.
func (g *Gateway) Detach(connID string) {
	g.mu.Lock()
	delete(g.subs, connID)
	g.mu.Unlock()
}

// Broadcast sends the event to every attached subscriber.
func (g *Gateway) Broadcast(event string, payload interface{}) {
	msg, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		g.log.Error().Err(err).Str("event", event).Msg("broadcast payload not serializable")
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, s := range g.subs {
		if !s.Enqueue(msg) {
			g.log.Warn().Str("event", event).Str("conn", s.ID()).Msg("subscriber send buffer full, dropping event")
		}
	}
}

// SendTo delivers the event to a single connection. No-op when the
// connection is gone.
func (g *Gateway) SendTo(connID, event string, payload interface{}) {
	msg, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		g.log.Error().Err(err).Str("event", event).Msg("event payload not serializable")
		return
	}

	g.mu.RLock()
	s, ok := g.subs[connID]
	g.mu.RUnlock()
	if !ok {
		return
	}
	if !s.Enqueue(msg) {
		g.log.Warn().Str("event", event).Str("conn", connID).Msg("subscriber send buffer full, dropping event")
	}
}

// Publish broadcasts a batch of events in order.
func (g *Gateway) Publish(events []Event) {
	for _, ev := range events {
		g.Broadcast(ev.Name, ev.Payload)
	}
}

// SubscriberCount returns the number of attached connections.
func (g *Gateway) SubscriberCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.subs)
}
