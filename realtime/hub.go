package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"subsidy-crm/crm-service/logging"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is what gets pushed to connected clients.
type Event struct {
	Type    string            `json:"type"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Payload map[string]string `json:"payload,omitempty"`
}

// client serializes writes to one connection: websocket connections support a
// single concurrent writer, and pushes arrive from many dispatcher goroutines.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks one websocket set per username and fans events out to them.
// Delivery is best-effort: a dead connection is dropped, never retried.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*client]bool
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*client]bool)}
}

// Subscribe upgrades the request and registers the connection under the
// username until the peer goes away.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, username string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn}
	h.mu.Lock()
	if h.conns[username] == nil {
		h.conns[username] = make(map[*client]bool)
	}
	h.conns[username][c] = true
	h.mu.Unlock()

	logging.Logger.Infof("Event ID: WS_SUBSCRIBED, Description: Live channel opened for user %s", username)

	// Reader loop only exists to observe the close.
	go func() {
		defer h.remove(username, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

func (h *Hub) remove(username string, c *client) {
	h.mu.Lock()
	if set, ok := h.conns[username]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, username)
		}
	}
	h.mu.Unlock()
	c.conn.Close()
}

// Push sends an event to every connection of the given user.
func (h *Hub) Push(username string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.conns[username]))
	for c := range h.conns[username] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			h.remove(username, c)
		}
	}
}

// ActiveUsers lists usernames with at least one open connection.
func (h *Hub) ActiveUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.conns))
	for username := range h.conns {
		users = append(users, username)
	}
	return users
}
