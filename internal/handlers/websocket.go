package handlers

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// Message types pushed to or accepted from clients.
const (
	msgRoomUpdated = "room_updated"
	msgRoomDeleted = "room_deleted"
	msgPing        = "ping"
	msgPong        = "pong"
)

// WebSocketMessage is the envelope of every frame in both directions.
type WebSocketMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// RoomEventPayload tells clients what changed so they can refetch. It never
// carries words or roles.
type RoomEventPayload struct {
	RoomID string `json:"roomId"`
	Event  string `json:"event,omitempty"`
}

// Hub keeps the open sockets of every room and implements service.Notifier.
type Hub struct {
	svc      *service.RoomService
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]*hubRoom
}

type hubRoom struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// Client is one socket. A session may hold several, one per tab.
type Client struct {
	sessionID string
	roomID    string
	conn      *websocket.Conn
	writeMu   sync.Mutex
}

func (c *Client) send(msg WebSocketMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// NewHub accepts upgrades from allowedOrigins; "*" or an empty list accepts any
// origin.
func NewHub(s *service.RoomService, allowedOrigins []string) *Hub {
	h := &Hub{
		svc:   s,
		rooms: make(map[string]*hubRoom),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
				return true
			}
			return slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// HandleWebSocket streams invalidation events of one room to a seated player
// or spectator. Closing the socket does not remove the player.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := normalizeID(chi.URLParam(r, "roomId"))
	sessionID := normalizeID(r.URL.Query().Get("sessionId"))
	if err := validateRoomID(roomID); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if err := validateSessionID(sessionID); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if _, err := h.svc.GetPlayerBySession(r.Context(), roomID, sessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("websocket upgrade failed")
		return
	}

	client := h.register(roomID, sessionID, conn)
	defer func() {
		h.unregister(client)
		conn.Close()
	}()
	log.Debug().Str("room", roomID).Str("session", sessionID).Msg("websocket connected")

	for {
		var msg WebSocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("room", roomID).Msg("websocket closed")
			}
			return
		}
		switch msg.Type {
		case msgPing:
			if err := client.send(WebSocketMessage{Type: msgPong}); err != nil {
				return
			}
		default:
			log.Debug().Str("type", msg.Type).Msg("unknown websocket message")
		}
	}
}

func (h *Hub) register(roomID, sessionID string, conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		room = &hubRoom{clients: make(map[*Client]struct{})}
		h.rooms[roomID] = room
	}
	client := &Client{sessionID: sessionID, roomID: roomID, conn: conn}
	room.mu.Lock()
	room.clients[client] = struct{}{}
	room.mu.Unlock()
	return client
}

// unregister drops the client and forgets the room once it has no sockets.
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[client.roomID]
	if !ok {
		return
	}
	room.mu.Lock()
	delete(room.clients, client)
	empty := len(room.clients) == 0
	room.mu.Unlock()
	if empty {
		delete(h.rooms, client.roomID)
	}
}

// Connections returns the number of open sockets in roomID.
func (h *Hub) Connections(roomID string) int {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	room.mu.RLock()
	defer room.mu.RUnlock()
	return len(room.clients)
}

func (h *Hub) broadcast(roomID string, msg WebSocketMessage) {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.mu.RLock()
	clients := make([]*Client, 0, len(room.clients))
	for c := range room.clients {
		clients = append(clients, c)
	}
	room.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			log.Debug().Err(err).Str("room", roomID).Str("session", c.sessionID).Msg("websocket send failed")
		}
	}
}

func (h *Hub) RoomChanged(roomID, event string) {
	h.broadcast(roomID, WebSocketMessage{
		Type:    msgRoomUpdated,
		Payload: RoomEventPayload{RoomID: roomID, Event: event},
	})
}

func (h *Hub) RoomDeleted(roomID string) {
	h.broadcast(roomID, WebSocketMessage{
		Type:    msgRoomDeleted,
		Payload: RoomEventPayload{RoomID: roomID},
	})
}
