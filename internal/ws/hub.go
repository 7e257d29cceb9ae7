package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dispatch/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 8192
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks belong to the deployment's reverse proxy.
		return true
	},
}

// frame is the wire shape of every message in both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// eventFrame is the server-to-client shape: the event name wrapping
// the service result envelope.
type eventFrame struct {
	Event string `json:"event"`
	service.Result
}

// client is one user's open connection.
type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

// Hub tracks every open connection, one per user: a reconnect replaces
// the previous connection. It implements service.EventSender; the
// inbound side is delegated to the handlers set before serving.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	onConnect    func(userID string) error
	onMessage    func(userID, event string, data json.RawMessage)
	onDisconnect func(userID string)
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// SetHandlers installs the connection lifecycle callbacks. Must be
// called before the first ServeWS.
func (h *Hub) SetHandlers(
	onConnect func(userID string) error,
	onMessage func(userID, event string, data json.RawMessage),
	onDisconnect func(userID string),
) {
	h.onConnect = onConnect
	h.onMessage = onMessage
	h.onDisconnect = onDisconnect
}

// SendToUser marshals the event and queues it on the user's
// connection. A user without an open connection misses the event; a
// connection too slow to drain its queue drops it.
func (h *Hub) SendToUser(userID, event string, payload service.Result) {
	data, err := json.Marshal(eventFrame{Event: event, Result: payload})
	if err != nil {
		log.Printf("[WS] marshal %s for %s failed: %v", event, userID, err)
		return
	}

	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("[WS] dropped %s for %s: send queue full", event, userID)
	}
}

// IsConnected reports whether the user has an open connection.
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.clients[userID]
	return ok
}

// ServeWS upgrades the request and runs the connection until it
// closes. The connect callback rejects unknown users: they get one
// error frame and the connection is closed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed for %s: %v", userID, err)
		return
	}

	if h.onConnect != nil {
		if err := h.onConnect(userID); err != nil {
			reject, _ := json.Marshal(eventFrame{
				Event:  service.EventSocketError,
				Result: service.Result{Status: 404, Message: err.Error()},
			})
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.TextMessage, reject)
			_ = conn.Close()
			return
		}
	}

	c := &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		hub:    h,
	}

	h.add(c)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[c.userID]; ok {
		close(old.send)
	}
	h.clients[c.userID] = c
}

// remove drops the client if it is still the user's current
// connection; a client replaced by a reconnect leaves the newer
// connection alone.
func (h *Hub) remove(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.clients[c.userID]
	if !ok || current != c {
		return false
	}

	delete(h.clients, c.userID)
	close(c.send)
	return true
}

func (c *client) readPump() {
	defer func() {
		if c.hub.remove(c) && c.hub.onDisconnect != nil {
			c.hub.onDisconnect(c.userID)
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] read error for %s: %v", c.userID, err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			log.Printf("[WS] bad frame from %s: %v", c.userID, err)
			continue
		}

		// Handlers run off the read loop; the pump only parses frames.
		if c.hub.onMessage != nil {
			go c.hub.onMessage(c.userID, f.Event, f.Data)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// Ensure Hub implements service.EventSender.
var _ service.EventSender = (*Hub)(nil)
