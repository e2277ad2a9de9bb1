// Package router tracks which connection currently holds each seat.
//
// The index is kept in both directions so a bare disconnect, which only knows
// the connection handle, resolves to its seats without scanning rooms.
package router

import (
	"sort"
	"sync"

	"github.com/park285/checkers-arena/internal/board"
)

// ConnID is a transport connection handle.
type ConnID string

// Seat is one side of one room.
type Seat struct {
	Room string
	Side board.Side
}

type Router struct {
	mu     sync.RWMutex
	seats  map[Seat]ConnID
	byConn map[ConnID]map[Seat]struct{}
}

func New() *Router {
	return &Router{
		seats:  make(map[Seat]ConnID),
		byConn: make(map[ConnID]map[Seat]struct{}),
	}
}

// Bind points the seat at conn. A previous holder loses the seat; its handle
// is returned so the caller can detach it from the room.
func (r *Router) Bind(room string, side board.Side, conn ConnID) (prev ConnID, replaced bool) {
	seat := Seat{Room: room, Side: side}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.seats[seat]; ok {
		if old == conn {
			return "", false
		}
		r.dropReverseLocked(old, seat)
		prev, replaced = old, true
	}
	r.seats[seat] = conn
	set := r.byConn[conn]
	if set == nil {
		set = make(map[Seat]struct{})
		r.byConn[conn] = set
	}
	set[seat] = struct{}{}
	return prev, replaced
}

// Unbind clears the seat. Unbinding an empty seat is a no-op.
func (r *Router) Unbind(room string, side board.Side) (ConnID, bool) {
	seat := Seat{Room: room, Side: side}
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.seats[seat]
	if !ok {
		return "", false
	}
	delete(r.seats, seat)
	r.dropReverseLocked(conn, seat)
	return conn, true
}

// UnbindIf clears the seat only while conn still holds it. A handle that lost
// the seat to a rebind gets false and leaves the new holder in place.
func (r *Router) UnbindIf(room string, side board.Side, conn ConnID) bool {
	seat := Seat{Room: room, Side: side}
	r.mu.Lock()
	defer r.mu.Unlock()
	if held, ok := r.seats[seat]; !ok || held != conn {
		return false
	}
	delete(r.seats, seat)
	r.dropReverseLocked(conn, seat)
	return true
}

// UnbindRoom clears both seats of room.
func (r *Router) UnbindRoom(room string) {
	for _, side := range [2]board.Side{board.First, board.Second} {
		r.Unbind(room, side)
	}
}

func (r *Router) ConnectionFor(room string, side board.Side) (ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.seats[Seat{Room: room, Side: side}]
	return conn, ok
}

// SideOf reports which seat of room conn holds.
func (r *Router) SideOf(room string, conn ConnID) (board.Side, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for seat := range r.byConn[conn] {
		if seat.Room == room {
			return seat.Side, true
		}
	}
	return board.First, false
}

// SeatsOf lists every seat conn holds, ordered by room then side.
func (r *Router) SeatsOf(conn ConnID) []Seat {
	r.mu.RLock()
	set := r.byConn[conn]
	out := make([]Seat, 0, len(set))
	for seat := range set {
		out = append(out, seat)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Room != out[j].Room {
			return out[i].Room < out[j].Room
		}
		return out[i].Side < out[j].Side
	})
	return out
}

func (r *Router) dropReverseLocked(conn ConnID, seat Seat) {
	set := r.byConn[conn]
	delete(set, seat)
	if len(set) == 0 {
		delete(r.byConn, conn)
	}
}
