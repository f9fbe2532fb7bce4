// Package realtime pushes live events to connected browser sessions over websockets.
package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// AdminRoom receives every admin-facing event
const AdminRoom = "admin"

// UserRoom returns the room a single user's sessions join
func UserRoom(id uuid.UUID) string {
	return "user:" + id.String()
}

// Envelope is the JSON frame written to clients
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms []string
	once  sync.Once
}

// Hub tracks connected clients by room
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*client]struct{}
	upgrader websocket.Upgrader
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and joins the connection to the user's room,
// plus the admin room for admins. It returns once the connection is registered.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID, isAdmin bool) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade websocket: %w", err)
	}

	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: []string{UserRoom(userID)},
	}
	if isAdmin {
		c.rooms = append(c.rooms, AdminRoom)
	}

	h.register(c)
	zap.L().Debug("Websocket client connected", zap.String("user_id", userID.String()), zap.Bool("admin", isAdmin))

	go c.writePump()
	go c.readPump()
	return nil
}

// PublishToUser sends an event to every session of one user
func (h *Hub) PublishToUser(userID uuid.UUID, event string, data any) {
	h.publish(UserRoom(userID), event, data)
}

// PublishToAdmins sends an event to every admin session
func (h *Hub) PublishToAdmins(event string, data any) {
	h.publish(AdminRoom, event, data)
}

// ClientCount returns the number of sessions in a room
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*client
	seen := make(map[*client]struct{})
	for _, members := range h.rooms {
		for c := range members {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				all = append(all, c)
			}
		}
	}
	h.rooms = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.close()
	}
}

func (h *Hub) publish(room, event string, data any) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		zap.L().Warn("Failed to encode realtime event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.rooms[room] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// A client that cannot keep up is dropped rather than blocking publishers
	for _, c := range slow {
		zap.L().Warn("Dropping slow websocket client", zap.String("room", room))
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range c.rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*client]struct{})
			h.rooms[room] = members
		}
		members[c] = struct{}{}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	for _, room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()
	c.close()
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// readPump discards inbound frames and detects disconnects
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("Websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
