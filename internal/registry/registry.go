// Package registry is the process-wide table of live rooms.
package registry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"iter"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/checkers-arena/internal/identity"
	"github.com/park285/checkers-arena/internal/obslog"
	"github.com/park285/checkers-arena/internal/session"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

var ErrNotFound = errf("room not found")

// Registry maps room ids to sessions. Its lock only guards the map; session
// state is always read under the session's own lock, never while this one
// is held.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*session.Session

	newID func() (string, error)
}

func New() *Registry {
	return &Registry{rooms: make(map[string]*session.Session), newID: roomID}
}

// Create opens a room with creator on the first seat.
func (r *Registry) Create(creator identity.PlayerID, opts ...session.Option) (*session.Session, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id, err := r.newID()
		if err != nil {
			return nil, fmt.Errorf("room id: %w", err)
		}
		r.mu.Lock()
		if _, exists := r.rooms[id]; exists {
			r.mu.Unlock()
			continue
		}
		s := session.New(id, creator, opts...)
		r.rooms[id] = s
		n := len(r.rooms)
		r.mu.Unlock()
		obslog.L().Info("room_created", obslog.Room(id), obslog.Identity(string(creator)), zap.Int("rooms", n))
		return s, nil
	}
	return nil, fmt.Errorf("room id collision")
}

func (r *Registry) Get(id string) (*session.Session, error) {
	r.mu.RLock()
	s, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	_, ok := r.rooms[id]
	delete(r.rooms, id)
	r.mu.Unlock()
	if ok {
		obslog.L().Info("room_removed", obslog.Room(id))
	}
}

// RemoveIf removes id only while it still maps to s.
func (r *Registry) RemoveIf(id string, s *session.Session) bool {
	r.mu.Lock()
	cur, ok := r.rooms[id]
	if ok && cur == s {
		delete(r.rooms, id)
	}
	r.mu.Unlock()
	removed := ok && cur == s
	if removed {
		obslog.L().Info("room_removed", obslog.Room(id))
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// OpenRooms yields rooms that still have a free seat and an unfinished game.
// Each range over the result takes a fresh snapshot.
func (r *Registry) OpenRooms() iter.Seq[session.RoomSummary] {
	return func(yield func(session.RoomSummary) bool) {
		r.mu.RLock()
		snapshot := make([]*session.Session, 0, len(r.rooms))
		for _, s := range r.rooms {
			snapshot = append(snapshot, s)
		}
		r.mu.RUnlock()

		for _, s := range snapshot {
			sum, open := s.Listing()
			if !open {
				continue
			}
			if !yield(sum) {
				return
			}
		}
	}
}

func roomID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
