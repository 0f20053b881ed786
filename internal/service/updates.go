package service

import (
	"sync"
	"time"

	"controlling_incubator/internal/models"
)

type UpdateKind string

const (
	UpdateState        UpdateKind = "state"
	UpdateData         UpdateKind = "data"
	UpdateNotification UpdateKind = "notification"
)

const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

const subscriberBuffer = 16

// Notification is a user-visible lifecycle message.
type Notification struct {
	Level   string    `json:"level"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Update is one element of a subscription stream.
type Update struct {
	Kind         UpdateKind       `json:"kind"`
	Snapshot     *models.Snapshot `json:"snapshot,omitempty"`
	Notification *Notification    `json:"notification,omitempty"`
}

type hub struct {
	mu     sync.Mutex
	subs   map[int]chan Update
	next   int
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Update)}
}

// Subscribe registers a listener. The channel is closed when cancel is
// called or the manager stops.
func (m *ConnectionManager) Subscribe() (<-chan Update, func()) {
	return m.hub.subscribe()
}

func (h *hub) subscribe() (<-chan Update, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Update, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// broadcast never blocks. A full subscriber loses its oldest queued
// update, so the latest snapshot always gets through.
func (h *hub) broadcast(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- u:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- u:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
