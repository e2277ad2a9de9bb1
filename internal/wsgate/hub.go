// Package wsgate is the WebSocket transport: it authenticates connections,
// decodes inbound events for the coordinator and delivers outbound events
// through per-connection send queues.
package wsgate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/checkers-arena/internal/identity"
	"github.com/park285/checkers-arena/internal/obslog"
	"github.com/park285/checkers-arena/internal/router"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

var ErrUnknownConn = errf("unknown connection")

type client struct {
	id     router.ConnID
	player identity.PlayerID
	send   chan []byte
}

// Hub tracks live connections and broadcast rooms. It implements
// match.Broadcaster. Sends never block: a full queue drops the frame.
type Hub struct {
	mu      sync.RWMutex
	clients map[router.ConnID]*client
	rooms   map[string]map[router.ConnID]struct{}
	bufSize int
}

func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Hub{
		clients: make(map[router.ConnID]*client),
		rooms:   make(map[string]map[router.ConnID]struct{}),
		bufSize: bufSize,
	}
}

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encode(event string, payload any) ([]byte, error) {
	b, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return b, nil
}

func (h *Hub) ToConn(_ context.Context, conn router.ConnID, event string, payload any) error {
	b, err := encode(event, payload)
	if err != nil {
		return err
	}
	h.mu.RLock()
	c, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return ErrUnknownConn
	}
	h.deliver(c, event, b)
	return nil
}

func (h *Hub) ToRoom(_ context.Context, room string, event string, payload any) error {
	b, err := encode(event, payload)
	if err != nil {
		return err
	}
	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[room]))
	for id := range h.rooms[room] {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.deliver(c, event, b)
	}
	return nil
}

func (h *Hub) ToAll(_ context.Context, event string, payload any) error {
	b, err := encode(event, payload)
	if err != nil {
		return err
	}
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.deliver(c, event, b)
	}
	return nil
}

func (h *Hub) JoinRoom(conn router.ConnID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	members := h.rooms[room]
	if members == nil {
		members = make(map[router.ConnID]struct{})
		h.rooms[room] = members
	}
	members[conn] = struct{}{}
}

func (h *Hub) LeaveRoom(conn router.ConnID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(conn, room)
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(id router.ConnID, player identity.PlayerID) *client {
	c := &client{id: id, player: player, send: make(chan []byte, h.bufSize)}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(id router.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
	for room := range h.rooms {
		h.leaveLocked(id, room)
	}
}

func (h *Hub) leaveLocked(conn router.ConnID, room string) {
	members := h.rooms[room]
	delete(members, conn)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) deliver(c *client, event string, b []byte) {
	select {
	case c.send <- b:
	default:
		obslog.L().Warn("ws_send_dropped", obslog.Conn(string(c.id)), zap.String("event", event))
	}
}
