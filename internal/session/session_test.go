package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/park285/checkers-arena/internal/board"
	"github.com/park285/checkers-arena/internal/rules"
)

func c(x, y int) board.Coord { return board.Coord{X: x, Y: y} }

func seated(t *testing.T) *Session {
	t.Helper()
	s := New("room-1", "alice")
	side, err := s.Join("bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if side != board.Second {
		t.Fatalf("joiner should take the second seat, got %v", side)
	}
	return s
}

func TestJoinRules(t *testing.T) {
	s := New("room-1", "alice")
	if _, err := s.Join("alice"); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("self join: %v", err)
	}
	if !s.Open() {
		t.Fatalf("room with one player should be open")
	}
	if _, err := s.Join("bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := s.Join("carol"); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("third player: %v", err)
	}
	if s.Open() {
		t.Fatalf("full room must not be open")
	}
	if side, ok := s.Rejoin("bob"); !ok || side != board.Second {
		t.Fatalf("rejoin: %v %v", side, ok)
	}
	if _, ok := s.Rejoin("carol"); ok {
		t.Fatalf("stranger cannot rejoin")
	}
}

func TestMoveAuthorization(t *testing.T) {
	s := New("room-1", "alice")
	if _, err := s.Move(board.First, "alice", rules.Sequence{c(0, 5), c(1, 4)}); !errors.Is(err, ErrWaiting) {
		t.Fatalf("move before opponent: %v", err)
	}
	if _, err := s.Join("bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := s.Move(board.Second, "bob", rules.Sequence{c(1, 2), c(0, 3)}); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("second side first: %v", err)
	}
	if _, err := s.Move(board.First, "bob", rules.Sequence{c(0, 5), c(1, 4)}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong identity for seat: %v", err)
	}
	if _, err := s.Move(board.First, "alice", rules.Sequence{c(0, 5), c(0, 4)}); !errors.Is(err, rules.ErrIllegalMove) {
		t.Fatalf("illegal move: %v", err)
	}

	res, err := s.Move(board.First, "alice", rules.Sequence{c(0, 5), c(1, 4)})
	if err != nil {
		t.Fatalf("legal move: %v", err)
	}
	if res.Views[board.First].Turn != board.Second {
		t.Fatalf("turn should pass to second")
	}
	if _, err := s.Move(board.First, "alice", rules.Sequence{c(1, 4), c(2, 3)}); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("repeat move: %v", err)
	}
}

func TestDuplicateGuard(t *testing.T) {
	s := seated(t)
	// Hand the turn back to the first side without a recorded opposing move.
	if _, err := s.Move(board.First, "alice", rules.Sequence{c(0, 5), c(1, 4)}); err != nil {
		t.Fatalf("move: %v", err)
	}
	s.state.Turn = board.First
	if _, err := s.Move(board.First, "alice", rules.Sequence{c(2, 5), c(3, 4)}); !errors.Is(err, ErrDuplicateAction) {
		t.Fatalf("expected duplicate action, got %v", err)
	}
}

func TestCaptureChainKeepsTurn(t *testing.T) {
	s := seated(t)
	var b board.Board
	b.Set(c(1, 2), board.SecondMan)
	b.Set(c(2, 3), board.FirstMan)
	b.Set(c(4, 5), board.FirstMan)
	b.Set(c(0, 7), board.FirstMan)
	b.Set(c(7, 0), board.SecondMan)
	s.state = rules.State{Board: b, Turn: board.Second}

	res, err := s.Move(board.Second, "bob", rules.Sequence{c(1, 2), c(3, 4)})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	view := res.Views[board.Second]
	if !view.Obligation.MustContinue || view.Obligation.PinnedOrigin != c(3, 4) || view.Turn != board.Second {
		t.Fatalf("expected pinned follow-up, got %+v", view.Obligation)
	}
	if _, err := s.Move(board.Second, "bob", rules.Sequence{c(7, 0), c(6, 1)}); !errors.Is(err, rules.ErrIllegalMove) {
		t.Fatalf("other piece during chain: %v", err)
	}
	if _, err := s.Move(board.Second, "bob", rules.Sequence{c(3, 4), c(5, 6)}); err != nil {
		t.Fatalf("follow-up capture: %v", err)
	}
	if got := s.View(board.First); got.Turn != board.First || len(got.Captured[board.First]) != 2 {
		t.Fatalf("after chain: turn %v captured %v", got.Turn, got.Captured)
	}
}

func TestGameEndsAndRejectsFurtherMoves(t *testing.T) {
	s := seated(t)
	var b board.Board
	b.Set(c(1, 2), board.SecondMan)
	b.Set(c(2, 3), board.FirstMan)
	s.state = rules.State{Board: b, Turn: board.Second}

	res, err := s.Move(board.Second, "bob", rules.Sequence{c(1, 2), c(3, 4)})
	if err != nil {
		t.Fatalf("final capture: %v", err)
	}
	if !res.Ended || res.Winner != board.Second {
		t.Fatalf("expected second side win, got %+v", res)
	}
	if s.Summary().Status != StatusEnded {
		t.Fatalf("status %q", s.Summary().Status)
	}
	if _, err := s.Move(board.First, "alice", rules.Sequence{c(0, 7), c(1, 6)}); !errors.Is(err, ErrGameEnded) {
		t.Fatalf("move after end: %v", err)
	}
	if _, err := s.Join("carol"); !errors.Is(err, ErrGameEnded) {
		t.Fatalf("join after end: %v", err)
	}
}

func TestLeaveResetsToWaiting(t *testing.T) {
	s := seated(t)
	if _, err := s.Move(board.First, "alice", rules.Sequence{c(0, 5), c(1, 4)}); err != nil {
		t.Fatalf("move: %v", err)
	}
	res := s.Leave(board.Second)
	if !res.Vacated || !res.Reset || res.Empty || res.Identity != "bob" {
		t.Fatalf("leave: %+v", res)
	}
	v := res.Views[board.First]
	if v.Turn != board.First || v.Status != StatusWaiting || v.Occupied(board.Second) {
		t.Fatalf("waiting view: %+v", v)
	}
	if v.Board.At(c(1, 4)) != board.FirstMan {
		t.Fatalf("board should be kept across the reset")
	}
	if again := s.Leave(board.Second); again.Vacated {
		t.Fatalf("second leave must be a no-op")
	}

	side, err := s.Join("carol")
	if err != nil || side != board.Second {
		t.Fatalf("new opponent: %v %v", side, err)
	}
	if _, err := s.Move(board.First, "alice", rules.Sequence{c(2, 5), c(3, 4)}); err != nil {
		t.Fatalf("first side moves again after reset: %v", err)
	}
}

func TestFirstSeatRefilledAfterHostLeaves(t *testing.T) {
	s := seated(t)
	s.Leave(board.First)
	if !s.Open() {
		t.Fatalf("room should be open")
	}
	if got := s.Summary().Host; got != "bob" {
		t.Fatalf("host should fall back to the remaining player, got %q", got)
	}
	side, err := s.Join("carol")
	if err != nil || side != board.First {
		t.Fatalf("refill first seat: %v %v", side, err)
	}
}

func TestLastLeaveClosesRoom(t *testing.T) {
	s := seated(t)
	s.Leave(board.First)
	res := s.Leave(board.Second)
	if !res.Empty || !s.Closed() {
		t.Fatalf("room should close: %+v", res)
	}
	if _, err := s.Join("carol"); !errors.Is(err, ErrClosed) {
		t.Fatalf("join closed room: %v", err)
	}
	if _, err := s.Move(board.First, "alice", rules.Sequence{c(0, 5), c(1, 4)}); !errors.Is(err, ErrClosed) {
		t.Fatalf("move in closed room: %v", err)
	}
}

func TestViewsArePerSeat(t *testing.T) {
	s := seated(t)
	first, second := s.View(board.First), s.View(board.Second)
	if first.Board != board.Standard() {
		t.Fatalf("first view must be canonical")
	}
	if second.Board != board.Standard().View(board.Second) {
		t.Fatalf("second view must be rotated")
	}
	if second.Seat != board.Second || second.Players[board.First] != "alice" {
		t.Fatalf("view metadata: %+v", second)
	}
}

func TestListingMatchesOpen(t *testing.T) {
	s := New("room-1", "alice")
	sum, open := s.Listing()
	if !open || sum.Players != 1 || sum.Status != StatusWaiting || sum.Host != "alice" {
		t.Fatalf("fresh room: %+v %v", sum, open)
	}
	if _, err := s.Join("bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if sum, open := s.Listing(); open || sum.Status != StatusPlaying {
		t.Fatalf("full room listed as open: %+v", sum)
	}
}

func TestConcurrentSameMoveAppliesOnce(t *testing.T) {
	const workers = 32
	rooms := []*Session{seated(t), seated(t)}

	var wg sync.WaitGroup
	ok := make([]int, len(rooms))
	var mu sync.Mutex
	for r, s := range rooms {
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(r int, s *Session) {
				defer wg.Done()
				_, err := s.Move(board.First, "alice", rules.Sequence{c(0, 5), c(1, 4)})
				switch {
				case err == nil:
					mu.Lock()
					ok[r]++
					mu.Unlock()
				case errors.Is(err, ErrOutOfTurn), errors.Is(err, ErrDuplicateAction):
				default:
					t.Errorf("room %d: unexpected error %v", r, err)
				}
			}(r, s)
		}
	}
	wg.Wait()

	for r, s := range rooms {
		if ok[r] != 1 {
			t.Fatalf("room %d: %d moves accepted, want 1", r, ok[r])
		}
		v := s.View(board.First)
		if v.Turn != board.Second || v.Board.At(c(0, 5)) != board.Empty || v.Board.At(c(1, 4)) != board.FirstMan {
			t.Fatalf("room %d: board does not show exactly one move:\n%s", r, v.Board)
		}
		if v.Board.Count(board.First) != 12 || v.Board.Total() != 24 {
			t.Fatalf("room %d: piece count changed", r)
		}
	}
}

func TestConcurrentJoinAndLeave(t *testing.T) {
	for i := 0; i < 100; i++ {
		s := seated(t)
		var (
			wg      sync.WaitGroup
			left    LeaveResult
			joinErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			left = s.Leave(board.Second)
		}()
		go func() {
			defer wg.Done()
			_, joinErr = s.Join("carol")
		}()
		wg.Wait()

		if !left.Vacated || left.Identity != "bob" {
			t.Fatalf("iteration %d: leave %+v", i, left)
		}
		v := s.View(board.First)
		switch {
		case joinErr == nil:
			if v.Players[board.Second] != "carol" || v.Status != StatusPlaying {
				t.Fatalf("iteration %d: carol joined but view is %+v", i, v.Players)
			}
		case errors.Is(joinErr, ErrSeatTaken):
			if v.Occupied(board.Second) || v.Status != StatusWaiting {
				t.Fatalf("iteration %d: join refused but seat filled: %+v", i, v.Players)
			}
		default:
			t.Fatalf("iteration %d: join: %v", i, joinErr)
		}
		if v.Players[board.First] != "alice" {
			t.Fatalf("iteration %d: host changed: %+v", i, v.Players)
		}
	}
}
