package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	sseChannelBuffer = 16
	sseHeartbeat     = 30 * time.Second
)

// Event is a message pushed to the players of a session.
type Event struct {
	Type    string            `json:"type"`
	Pseudo  string            `json:"pseudo,omitempty"`
	Color   string            `json:"color,omitempty"`
	Row     *int              `json:"row,omitempty"`
	Col     *int              `json:"col,omitempty"`
	Value   *string           `json:"value,omitempty"`
	State   [][]string        `json:"state,omitempty"`
	Players map[string]Player `json:"players,omitempty"`
	Solved  bool              `json:"solved,omitempty"`
}

func cellEvent(pseudo string, row, col int, value string) Event {
	return Event{Type: "cell_update", Pseudo: pseudo, Row: &row, Col: &col, Value: &value}
}

// subscriber is a single SSE connection.
type subscriber struct {
	ch     chan string
	gameID string
}

// Broadcaster fans events out to the SSE subscribers of each session.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[*subscriber]struct{}),
	}
}

// Subscribe registers a subscriber for a session.
func (b *Broadcaster) Subscribe(gameID string) *subscriber {
	s := &subscriber{
		ch:     make(chan string, sseChannelBuffer),
		gameID: gameID,
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call twice.
func (b *Broadcaster) Unsubscribe(s *subscriber) {
	b.mu.Lock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
	b.mu.Unlock()
}

// Publish sends evt to every subscriber of a session. Subscribers whose
// buffer is full miss the event.
func (b *Broadcaster) Publish(gameID string, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Error("encode event", "type", evt.Type, "err", err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs {
		if s.gameID != gameID {
			continue
		}
		select {
		case s.ch <- string(data):
		default:
		}
	}
}

// SubscriberCount returns the number of open streams for a session.
func (b *Broadcaster) SubscriberCount(gameID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for s := range b.subs {
		if s.gameID == gameID {
			n++
		}
	}
	return n
}

// ServeSSE streams a session's events until the client goes away. initial,
// if not nil, is sent first.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, gameID string, initial *Event, onDisconnect func()) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s := b.Subscribe(gameID)
	defer func() {
		b.Unsubscribe(s)
		if onDisconnect != nil {
			onDisconnect()
		}
	}()

	if initial != nil {
		if data, err := json.Marshal(initial); err == nil {
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-s.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
