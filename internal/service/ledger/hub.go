package ledger

import (
	"sync"

	"zhuoji-service/pkg/logger"

	"go.uber.org/zap"
)

const (
	MessageHandSettled   = "hand_settled"
	MessageSessionClosed = "session_closed"
	MessageSnapshot      = "snapshot"
)

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

// Hub fans session events out to websocket watchers. Slow watchers miss
// messages instead of blocking the publisher.
type Hub struct {
	mu   sync.Mutex
	seq  map[string]int64
	subs map[string]map[string]chan OutgoingMessage
}

func NewHub() *Hub {
	return &Hub{
		seq:  make(map[string]int64),
		subs: make(map[string]map[string]chan OutgoingMessage),
	}
}

func (h *Hub) Subscribe(sessionID, watcherID string) chan OutgoingMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchers, ok := h.subs[sessionID]
	if !ok {
		watchers = make(map[string]chan OutgoingMessage)
		h.subs[sessionID] = watchers
	}
	if old, ok := watchers[watcherID]; ok {
		close(old)
	}
	ch := make(chan OutgoingMessage, 8)
	watchers[watcherID] = ch
	return ch
}

func (h *Hub) Unsubscribe(sessionID, watcherID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchers := h.subs[sessionID]
	if ch, ok := watchers[watcherID]; ok {
		delete(watchers, watcherID)
		close(ch)
	}
	if len(watchers) == 0 {
		delete(h.subs, sessionID)
	}
}

// Send delivers a message to a single watcher without advancing the
// session sequence.
func (h *Hub) Send(sessionID, watcherID, msgType string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[sessionID][watcherID]; ok {
		h.deliverLocked(sessionID, watcherID, ch, OutgoingMessage{Type: msgType, Seq: h.seq[sessionID], Data: data})
	}
}

func (h *Hub) Publish(sessionID, msgType string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq[sessionID]++
	msg := OutgoingMessage{Type: msgType, Seq: h.seq[sessionID], Data: data}
	for watcherID, ch := range h.subs[sessionID] {
		h.deliverLocked(sessionID, watcherID, ch, msg)
	}
}

func (h *Hub) Watchers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

func (h *Hub) deliverLocked(sessionID, watcherID string, ch chan OutgoingMessage, msg OutgoingMessage) {
	select {
	case ch <- msg:
	default:
		logger.Log.Warn("ws watcher channel full",
			zap.String("sessionID", sessionID),
			zap.String("watcherID", watcherID),
			zap.String("type", msg.Type),
		)
	}
}
