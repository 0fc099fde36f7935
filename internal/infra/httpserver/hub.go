package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/bryanwahyu/aishield/internal/domain/notification"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	// Client -> Server
	TypeAnalyze MessageType = "analyze"
	TypeReset   MessageType = "reset"
	TypePing    MessageType = "ping"

	// Server -> Client
	TypeState        MessageType = "state"
	TypeNotification MessageType = "notification"
	TypePong         MessageType = "pong"
	TypeError        MessageType = "error"
)

// Message is the base WebSocket message structure
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AnalyzePayload sent by client to start analysis
type AnalyzePayload struct {
	Message string `json:"message"`
}

// ErrorPayload for error messages
type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(t MessageType, payload any) Message {
	if payload == nil {
		return Message{Type: t}
	}
	b, _ := json.Marshal(payload)
	return Message{Type: t, Payload: b}
}

func decodePayload(msg Message, v any) error {
	if len(msg.Payload) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(msg.Payload, v)
}

// Hub relays notifications to the websocket clients of the matching session.
// It is registered as a notification sink.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*wsClient]struct{})}
}

func (h *Hub) register(sessionID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[sessionID]
	if !ok {
		set = make(map[*wsClient]struct{})
		h.clients[sessionID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(sessionID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[sessionID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, sessionID)
	}
}

// Count returns the number of clients attached to a session.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) Name() string { return "websocket" }

func (h *Hub) Deliver(_ context.Context, ev notification.Event) error {
	msg := newMessage(TypeNotification, ev)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[ev.SessionID] {
		c.enqueue(msg)
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close(context.Context) error {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*wsClient]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.close()
		}
	}
	return nil
}
