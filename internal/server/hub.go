// internal/server/hub.go
package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pagepack/internal/report"
)

// Message types sent to the browser.
const (
	MessageReload = "reload"
	MessageErrors = "errors"
)

// Message is one live-reload notification.
type Message struct {
	Type   string              `json:"type"`
	Errors []report.BuildError `json:"errors,omitempty"`
}

// upgrader accepts any origin; the dev server is local and the host check
// runs before the upgrade.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub keeps the connected live-reload clients. A client that connects while
// the last build is failing receives the errors right away.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	failing *Message
	log     zerolog.Logger
}

func newHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		log:     log,
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.log.Debug().Int("clients", len(h.clients)).Msg("live-reload client connected")
	if h.failing != nil {
		h.write(conn, *h.failing)
	}
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		h.log.Debug().Int("clients", len(h.clients)).Msg("live-reload client disconnected")
	}
}

// broadcast sends msg to every client. Errors are remembered for clients
// that connect later; any other message clears them.
func (h *Hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if msg.Type == MessageErrors {
		h.failing = &msg
	} else {
		h.failing = nil
	}
	for client := range h.clients {
		h.write(client, msg)
	}
}

// write must be called with h.mu held.
func (h *Hub) write(conn *websocket.Conn, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to encode live-reload message")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.log.Debug().Err(err).Msg("dropping live-reload client")
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// serveWs upgrades the request and holds the connection until the peer
// goes away. Clients never send anything.
func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	hub.register(conn)
	defer hub.unregister(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
