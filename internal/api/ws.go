package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/journal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub fans emitted room events out to websocket observers. Observers are
// purely downstream: a slow or dead connection never blocks the room core.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*websocket.Conn]bool),
	}
}

func (h *Hub) Add(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
}

func (h *Hub) Remove(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) Broadcast(roomID string, n Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.rooms[roomID]
	if !ok {
		return nil
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("ws: marshal %s: %w", n.Event, err)
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Warn("ws: write failed, dropping connection", "room", roomID, "error", err)
			conn.Close()
			delete(conns, conn)
		}
	}

	return nil
}

// BroadcastRoomEvent pushes one emitted event to the room's observers.
func (a *API) BroadcastRoomEvent(_ context.Context, e event.Event) error {
	re, ok := e.(journal.RoomEvent)
	if !ok {
		return fmt.Errorf("ws: event %s carries no room", e.Name())
	}

	return a.hub.Broadcast(re.Room(), Notification{
		Event: e.Name(),
		Data:  e,
	})
}

// Watch upgrades the request to a websocket and streams the room's events
// until the client disconnects.
func (a *API) Watch(c *gin.Context) {
	roomID := c.Param("room")
	if _, err := a.rs.GetSummary(roomID); err != nil {
		abortWithError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("ws: upgrade failed", "room", roomID, "error", err)
		return
	}

	a.hub.Add(roomID, conn)

	// Observers only listen; the read loop just detects disconnects.
	go func() {
		defer a.hub.Remove(roomID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
