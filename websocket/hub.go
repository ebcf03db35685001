package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1024 * 1024 // 1MB; speech events carry text, not audio
)

// Hub tracks clients grouped by session id. A group normally holds one
// client, but nothing prevents several observers of the same session.
type Hub struct {
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex
}

type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	UserID    string
	SessionID string

	// MessageHandler is invoked synchronously from the read pump, so events
	// for one session are processed strictly in arrival order.
	MessageHandler func(*Client, []byte)

	// CloseHandler runs once when the read pump exits, before the client is
	// removed from its session group.
	CloseHandler func(*Client, int)
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*Client]bool),
	}
}

// RegisterClient adds a connection to the broadcast group for sessionID.
// Registration is synchronous: once it returns, Broadcast reaches the client.
func (h *Hub) RegisterClient(conn *websocket.Conn, userID, sessionID string) *Client {
	client := &Client{
		Hub:       h,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		UserID:    userID,
		SessionID: sessionID,
	}

	h.mu.Lock()
	group, ok := h.sessions[sessionID]
	if !ok {
		group = make(map[*Client]bool)
		h.sessions[sessionID] = group
	}
	group[client] = true
	h.mu.Unlock()

	slog.Info("Client registered", "user_id", userID, "session_id", sessionID)
	return client
}

// unregisterClient removes the client and closes its send channel under the
// same lock Broadcast sends under, so a send can never hit a closed channel.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if group, ok := h.sessions[client.SessionID]; ok {
		if _, ok := group[client]; ok {
			delete(group, client)
			close(client.Send)
		}
		if len(group) == 0 {
			delete(h.sessions, client.SessionID)
		}
	}
	h.mu.Unlock()
	slog.Info("Client unregistered", "user_id", client.UserID, "session_id", client.SessionID)
}

// Broadcast sends a message to every client observing the session.
func (h *Hub) Broadcast(sessionID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.sessions[sessionID] {
		select {
		case client.Send <- message:
		default:
			slog.Warn("Dropping message to slow client", "session_id", sessionID)
		}
	}
}

// SessionClientCount reports how many clients are registered for a session.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func (c *Client) ReadPump() {
	closeCode := websocket.CloseNormalClosure
	defer func() {
		if c.CloseHandler != nil {
			c.CloseHandler(c, closeCode)
		}
		c.Hub.unregisterClient(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				closeCode = ce.Code
			} else {
				closeCode = websocket.CloseAbnormalClosure
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket read error", "error", err, "session_id", c.SessionID)
			}
			break
		}

		// Synchronous: the next event is not read until this one is fully
		// handled, including any oracle and persistence calls.
		if c.MessageHandler != nil {
			c.MessageHandler(c, messageBytes)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
