// Package session holds one room's authoritative game state and seat table.
//
// Every exported method runs under the session's own mutex from validation
// through snapshot, so moves, joins and leaves on one room are serialized while
// other rooms proceed independently. Nothing here performs I/O.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/checkers-arena/internal/board"
	"github.com/park285/checkers-arena/internal/identity"
	"github.com/park285/checkers-arena/internal/obslog"
	"github.com/park285/checkers-arena/internal/rules"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

var (
	ErrClosed          = errf("room closed")
	ErrGameEnded       = errf("game has ended")
	ErrSeatTaken       = errf("seat taken")
	ErrUnauthorized    = errf("identity does not occupy this seat")
	ErrOutOfTurn       = errf("not your turn")
	ErrWaiting         = errf("waiting for an opponent")
	ErrDuplicateAction = errf("duplicate action")
)

// Status is the lobby-facing phase of a room.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

// Session is one room. Create it through the registry.
type Session struct {
	mu sync.Mutex

	id        string
	createdAt time.Time
	updatedAt time.Time

	state     rules.State
	seats     [2]identity.PlayerID
	lastMover identity.PlayerID
	ended     bool
	winner    board.Side
	closed    bool

	now func() time.Time
}

// Option customizes a new session.
type Option func(*Session)

// WithPosition starts the room from st instead of the opening position.
func WithPosition(st rules.State) Option {
	return func(s *Session) { s.state = st }
}

// New seats creator on the first side of a fresh board.
func New(id string, creator identity.PlayerID, opts ...Option) *Session {
	s := &Session{id: id, state: rules.NewState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.seats[board.First] = creator
	s.createdAt = s.now()
	s.updatedAt = s.createdAt
	return s
}

func (s *Session) ID() string { return s.id }

// State is one seat's perspective snapshot. Board is rotated for the seat;
// Obligation.PinnedOrigin and all other coordinates stay canonical.
type State struct {
	RoomID     string
	Seat       board.Side
	Board      board.Board
	Turn       board.Side
	Players    [2]identity.PlayerID
	Obligation rules.Obligation
	Captured   [2][]board.Piece
	Ended      bool
	Winner     board.Side
	Status     Status
	UpdatedAt  time.Time
}

// Occupied reports whether side has a player.
func (st State) Occupied(side board.Side) bool { return st.Players[side] != "" }

// RoomSummary is what the lobby shows for a room.
type RoomSummary struct {
	ID        string
	Host      identity.PlayerID
	Players   int
	Status    Status
	CreatedAt time.Time
}

// MoveResult carries both perspectives after an accepted move.
type MoveResult struct {
	Outcome rules.Outcome
	Views   [2]State
	Ended   bool
	Winner  board.Side
}

// LeaveResult describes what a Leave did.
type LeaveResult struct {
	Identity identity.PlayerID
	Vacated  bool
	// Empty: no seats left, the session is closed and should be removed.
	Empty bool
	// Reset: a seat opened mid-game and the room went back to waiting.
	Reset bool
	Views [2]State
}

// Join seats id on the second side, or on the first side if that one is open.
func (s *Session) Join(id identity.PlayerID) (board.Side, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return board.First, ErrClosed
	}
	if s.ended {
		return board.First, ErrGameEnded
	}
	if _, seated := s.seatOfLocked(id); seated {
		return board.First, ErrSeatTaken
	}
	var side board.Side
	switch {
	case s.seats[board.Second] == "":
		side = board.Second
	case s.seats[board.First] == "":
		side = board.First
	default:
		return board.First, ErrSeatTaken
	}
	s.seats[side] = id
	s.touchLocked()
	obslog.L().Info("session_joined", obslog.Room(s.id), obslog.Side(side), obslog.Identity(string(id)))
	return side, nil
}

// Rejoin returns the seat id already holds, for reconnects.
func (s *Session) Rejoin(id identity.PlayerID) (board.Side, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return board.First, false
	}
	return s.seatOfLocked(id)
}

// SideOf reports which seat id occupies.
func (s *Session) SideOf(id identity.PlayerID) (board.Side, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seatOfLocked(id)
}

// Leave vacates side. Leaving an empty seat or a closed room is a no-op.
func (s *Session) Leave(side board.Side) LeaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res LeaveResult
	if s.closed || s.seats[side] == "" {
		return res
	}
	res.Identity = s.seats[side]
	res.Vacated = true
	s.seats[side] = ""
	s.touchLocked()

	if s.seats[side.Opponent()] == "" {
		s.closed = true
		res.Empty = true
		obslog.L().Info("session_emptied", obslog.Room(s.id))
		return res
	}
	if !s.ended {
		s.state.Turn = board.First
		s.state.Obligation = rules.Obligation{}
		s.lastMover = ""
		res.Reset = true
	}
	res.Views = s.viewsLocked()
	obslog.L().Info("session_left",
		obslog.Room(s.id),
		obslog.Side(side),
		obslog.Identity(string(res.Identity)),
		zap.Bool("reset", res.Reset),
	)
	return res
}

// Move plays seq for the player sitting on side.
func (s *Session) Move(side board.Side, id identity.PlayerID, seq rules.Sequence) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return MoveResult{}, ErrClosed
	}
	if s.ended {
		return MoveResult{}, ErrGameEnded
	}
	if id == "" || s.seats[side] != id {
		return MoveResult{}, ErrUnauthorized
	}
	if s.seats[side.Opponent()] == "" {
		return MoveResult{}, ErrWaiting
	}
	if s.state.Turn != side {
		return MoveResult{}, ErrOutOfTurn
	}
	if s.lastMover == id && !s.state.Obligation.MustContinue {
		return MoveResult{}, ErrDuplicateAction
	}

	out, err := rules.Apply(&s.state, seq)
	if err != nil {
		return MoveResult{}, err
	}
	s.lastMover = id
	if out.Ended {
		s.ended = true
		s.winner = out.Winner
	}
	s.touchLocked()

	obslog.L().Info("session_move",
		obslog.Room(s.id),
		obslog.Side(side),
		obslog.Path(seq),
		zap.Int("captured", len(out.Captured)),
		zap.Bool("must_continue", out.MustContinue),
		zap.Bool("ended", out.Ended),
	)
	return MoveResult{Outcome: out, Views: s.viewsLocked(), Ended: s.ended, Winner: s.winner}, nil
}

// View returns side's perspective snapshot.
func (s *Session) View(side board.Side) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(side)
}

// Summary returns the lobby entry for the room.
func (s *Session) Summary() RoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

// Listing returns the lobby entry together with Open, read under one lock so
// the two cannot disagree.
func (s *Session) Listing() (RoomSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked(), s.openLocked()
}

// Open reports whether the room can take a new player.
func (s *Session) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *Session) openLocked() bool {
	return !s.closed && !s.ended && s.playersLocked() == 1
}

func (s *Session) summaryLocked() RoomSummary {
	host := s.seats[board.First]
	if host == "" {
		host = s.seats[board.Second]
	}
	return RoomSummary{
		ID:        s.id,
		Host:      host,
		Players:   s.playersLocked(),
		Status:    s.statusLocked(),
		CreatedAt: s.createdAt,
	}
}

// Closed reports whether both seats emptied and the room was torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) seatOfLocked(id identity.PlayerID) (board.Side, bool) {
	if id == "" {
		return board.First, false
	}
	for _, side := range [2]board.Side{board.First, board.Second} {
		if s.seats[side] == id {
			return side, true
		}
	}
	return board.First, false
}

func (s *Session) playersLocked() int {
	n := 0
	for _, p := range s.seats {
		if p != "" {
			n++
		}
	}
	return n
}

func (s *Session) statusLocked() Status {
	switch {
	case s.ended:
		return StatusEnded
	case s.playersLocked() < 2:
		return StatusWaiting
	}
	return StatusPlaying
}

func (s *Session) viewsLocked() [2]State {
	return [2]State{s.viewLocked(board.First), s.viewLocked(board.Second)}
}

func (s *Session) viewLocked(side board.Side) State {
	var captured [2][]board.Piece
	for i := range s.state.Captured {
		captured[i] = append([]board.Piece(nil), s.state.Captured[i]...)
	}
	return State{
		RoomID:     s.id,
		Seat:       side,
		Board:      s.state.Board.View(side),
		Turn:       s.state.Turn,
		Players:    s.seats,
		Obligation: s.state.Obligation,
		Captured:   captured,
		Ended:      s.ended,
		Winner:     s.winner,
		Status:     s.statusLocked(),
		UpdatedAt:  s.updatedAt,
	}
}

func (s *Session) touchLocked() { s.updatedAt = s.now() }
