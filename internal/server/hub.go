package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
)

const (
	writeWait  = 10 * time.Second
	clientSend = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to every connected websocket client. Slow clients
// lose events instead of stalling the sender.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) Broadcast(event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.GlobalLogger.Error("Could not encode event " + event.Type + ": " + err.Error())
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logging.GlobalLogger.Warn("Dropping event for slow websocket client")
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and streams events until the client goes
// away. Incoming messages are read and discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.GlobalLogger.Warn("Websocket upgrade failed: " + err.Error())
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientSend)}
	h.register(c)

	go func() {
		defer conn.Close()
		for message := range c.send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logging.GlobalLogger.Debug("Websocket write failed: " + err.Error())
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
