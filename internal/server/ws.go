package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/helmetscan/internal/server/api"
)

const (
	writeTimeout = 5 * time.Second

	// sendBuffer is the number of events queued per client before the client
	// is dropped as too slow.
	sendBuffer = 16
)

// eventClient is one WebSocket subscriber. Only its write loop writes to conn.
type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub broadcasts run events to WebSocket clients.
type EventHub struct {
	upgrader websocket.Upgrader
	clients  map[*eventClient]bool
	mu       sync.Mutex
}

// NewEventHub creates an EventHub. allowedOrigin "*" or "" accepts any origin.
func NewEventHub(allowedOrigin string) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigin, r.Header.Get("Origin"))
			},
		},
		clients: make(map[*eventClient]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := &eventClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writeLoop()
	defer h.remove(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish queues event for every connected client and returns without
// waiting on the network. Clients whose queue is full are dropped.
func (h *EventHub) Publish(event api.Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Failed to encode event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Debug("Dropping slow event client")
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *EventHub) remove(c *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked unregisters c and closes its queue. h.mu must be held.
func (h *EventHub) removeLocked(c *eventClient) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// writeLoop writes queued events until the queue is closed or a write fails.
// Closing the connection ends the read loop in ServeHTTP.
func (c *eventClient) writeLoop() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debugf("Event client write failed: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
