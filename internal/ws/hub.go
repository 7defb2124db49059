// Package ws pushes search session updates to websocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alex-user-go/hotelsearch/internal/obs"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// MessageType represents the type of a websocket message.
type MessageType string

const (
	MessageTypeState  MessageType = "state"
	MessageTypeClosed MessageType = "session_closed"
)

// Message is what clients receive.
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Client represents a websocket client connection.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	initial   func() any
}

type envelope struct {
	sessionID string
	data      []byte
}

// Hub manages websocket connections per session.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	metrics  *obs.Metrics
	logger   *slog.Logger
}

// NewHub creates a new Hub. Run must be started before clients connect.
func NewHub(metrics *obs.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.sessionID] == nil {
				h.clients[client.sessionID] = make(map[*Client]bool)
			}
			h.clients[client.sessionID][client] = true
			total := len(h.clients[client.sessionID])
			h.mu.Unlock()
			h.metrics.AddWSClients(1)
			h.logger.Debug("websocket client registered", "session_id", client.sessionID, "total", total)
			h.sendInitial(client)

		case client := <-h.unregister:
			h.remove(client)

		case env := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for client := range h.clients[env.sessionID] {
				select {
				case client.send <- env.data:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range slow {
				h.logger.Warn("dropping slow websocket client", "session_id", client.sessionID)
				h.remove(client)
			}

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, clients := range h.clients {
				for client := range clients {
					close(client.send)
					h.metrics.AddWSClients(-1)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	h.metrics.AddWSClients(-1)
	h.logger.Debug("websocket client unregistered", "session_id", client.sessionID, "remaining", len(clients))
	if len(clients) == 0 {
		delete(h.clients, client.sessionID)
	}
}

// sendInitial queues the client's first state. It runs on the Run loop right
// after registration, so every later broadcast is queued behind it.
func (h *Hub) sendInitial(client *Client) {
	if client.initial == nil {
		return
	}
	data, err := json.Marshal(Message{
		Type:      MessageTypeState,
		SessionID: client.sessionID,
		Payload:   client.initial(),
		Timestamp: time.Now().UnixMilli(),
	})
	client.initial = nil
	if err != nil {
		h.logger.Error("failed to marshal websocket message", "session_id", client.sessionID, "error", err)
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// Broadcast sends payload to every client of a session.
func (h *Hub) Broadcast(sessionID string, msgType MessageType, payload any) {
	data, err := json.Marshal(Message{
		Type:      msgType,
		SessionID: sessionID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		h.logger.Error("failed to marshal websocket message", "session_id", sessionID, "error", err)
		return
	}
	select {
	case h.broadcast <- envelope{sessionID: sessionID, data: data}:
	case <-h.done:
	}
}

// ClientCount returns the number of clients watching a session.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// ServeWS upgrades the request and streams messages of sessionID to it.
// initial, when not nil, is called once the client is registered and its
// result is sent before any broadcast.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, initial func() any) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade the websocket", "session_id", sessionID, "error", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: sessionID,
		initial:   initial,
	}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

// readPump discards client messages and unregisters the client once the
// connection is gone.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
