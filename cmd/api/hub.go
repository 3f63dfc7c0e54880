package main

import (
	"fmt"
	"log"
	"sync"

	v1 "github.com/easylease/sublease/api/chat/v1"
)

// StreamSender is what the hub needs from a Subscribe stream.
type StreamSender interface {
	Send(*v1.Message) error
}

// lockedSender serialises sends; a gRPC stream must not be written from two
// goroutines at once.
type lockedSender struct {
	mu sync.Mutex
	s  StreamSender
}

func (l *lockedSender) Send(m *v1.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Send(m)
}

// ConnectionHub maps user ids to their open Subscribe streams. A user may be
// connected from several clients at once.
type ConnectionHub struct {
	mu      sync.RWMutex
	streams map[string]map[int64]*lockedSender
	nextID  int64
}

// NewConnectionHub creates a new hub instance.
func NewConnectionHub() *ConnectionHub {
	return &ConnectionHub{streams: make(map[string]map[int64]*lockedSender)}
}

// Register adds a stream for userID and returns the id to unregister it with.
func (h *ConnectionHub) Register(userID string, s StreamSender) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.streams[userID]; !ok {
		h.streams[userID] = make(map[int64]*lockedSender)
	}

	h.nextID++
	id := h.nextID
	h.streams[userID][id] = &lockedSender{s: s}
	return id
}

// Unregister removes a previously registered stream.
func (h *ConnectionHub) Unregister(userID string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.streams[userID]; ok {
		delete(conns, id)
		if len(conns) == 0 {
			delete(h.streams, userID)
		}
	}
}

// Connected reports how many streams userID has open.
func (h *ConnectionHub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[userID])
}

// SendToUser sends msg to every stream of userID. Streams that fail are
// unregistered; the first error is returned after all streams were tried.
func (h *ConnectionHub) SendToUser(userID string, msg *v1.Message) error {
	h.mu.RLock()
	conns := make(map[int64]*lockedSender, len(h.streams[userID]))
	for id, s := range h.streams[userID] {
		conns[id] = s
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return fmt.Errorf("user %s not connected", userID)
	}

	var firstErr error
	var failedIDs []int64
	for id, s := range conns {
		if err := s.Send(msg); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failedIDs = append(failedIDs, id)
		}
	}

	for _, id := range failedIDs {
		h.Unregister(userID, id)
	}
	return firstErr
}

// Publish delivers a confirmed message to both participants. Offline users
// are skipped; they read the message from history later.
func (h *ConnectionHub) Publish(msg *v1.Message) {
	recipients := []string{msg.SenderID}
	if msg.ReceiverID != msg.SenderID {
		recipients = append(recipients, msg.ReceiverID)
	}
	for _, id := range recipients {
		if h.Connected(id) == 0 {
			continue
		}
		if err := h.SendToUser(id, msg); err != nil {
			log.Printf("delivery of %s to %s failed: %v", msg.CorrelationID, id, err)
		}
	}
}
