package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/park285/checkers-arena/internal/board"
	"github.com/park285/checkers-arena/internal/identity"
	"github.com/park285/checkers-arena/internal/session"
)

func TestCreateGetRemove(t *testing.T) {
	r := New()
	s, err := r.Create("alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(s.ID()) != 32 {
		t.Fatalf("room id %q should be 32 hex chars", s.ID())
	}
	got, err := r.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("get: %v", err)
	}
	r.Remove(s.ID())
	if _, err := r.Get(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after remove: %v", err)
	}
	r.Remove(s.ID())
}

func TestRemoveIfOnlyRemovesSameSession(t *testing.T) {
	r := New()
	s, _ := r.Create("alice")
	other := session.New(s.ID(), "mallory")
	if r.RemoveIf(s.ID(), other) {
		t.Fatalf("removed a different session")
	}
	if !r.RemoveIf(s.ID(), s) {
		t.Fatalf("expected removal")
	}
	if r.Len() != 0 {
		t.Fatalf("len %d", r.Len())
	}
}

func TestCreateRetriesOnCollision(t *testing.T) {
	r := New()
	ids := []string{"dup", "dup", "fresh"}
	r.newID = func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}
	if _, err := r.Create("alice"); err != nil {
		t.Fatalf("first: %v", err)
	}
	s, err := r.Create("bob")
	if err != nil || s.ID() != "fresh" {
		t.Fatalf("second create should skip the duplicate id: %v", err)
	}
}

func TestOpenRoomsListsWaitingRoomsOnly(t *testing.T) {
	r := New()
	waiting, _ := r.Create("alice")
	full, _ := r.Create("bob")
	if _, err := full.Join("carol"); err != nil {
		t.Fatalf("join: %v", err)
	}

	var got []session.RoomSummary
	for sum := range r.OpenRooms() {
		got = append(got, sum)
	}
	if len(got) != 1 || got[0].ID != waiting.ID() || got[0].Host != "alice" || got[0].Players != 1 {
		t.Fatalf("open rooms: %+v", got)
	}

	full.Leave(board.Second)
	n := 0
	for range r.OpenRooms() {
		n++
	}
	if n != 2 {
		t.Fatalf("sequence must be restartable and reflect new state, got %d rooms", n)
	}
}

func TestOpenRoomsStopsEarly(t *testing.T) {
	r := New()
	for i := 0; i < 5; i++ {
		if _, err := r.Create(identity.PlayerID(fmt.Sprintf("p%d", i))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	n := 0
	for range r.OpenRooms() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("break not honored")
	}
}

func TestConcurrentCreate(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.Create(identity.PlayerID(fmt.Sprintf("p%d", i))); err != nil {
				t.Errorf("create: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if r.Len() != 32 {
		t.Fatalf("len %d", r.Len())
	}
}

func TestOpenRoomsDuringSeatChurn(t *testing.T) {
	r := New()
	s, err := r.Create("alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			if _, err := s.Join("bob"); err != nil {
				t.Errorf("join: %v", err)
				return
			}
			s.Leave(board.Second)
		}
	}()

	var bad []session.RoomSummary
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		for sum := range r.OpenRooms() {
			if sum.Players != 1 || sum.Status != session.StatusWaiting {
				bad = append(bad, sum)
			}
		}
	}
	if len(bad) != 0 {
		t.Fatalf("listed rooms that were not joinable: %+v", bad[0])
	}
}
