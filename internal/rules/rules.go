// Package rules validates and applies checkers moves.
//
// A move is a path of cells: the origin followed by one or more landing cells.
// Paths longer than two cells are capture chains and every link must capture.
// Validation always runs on a scratch copy of the board, so a rejected path
// never leaves a partially applied chain behind.
package rules

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/checkers-arena/internal/board"
	"github.com/park285/checkers-arena/internal/obslog"
)

// ErrIllegalMove is wrapped by every legality failure.
var ErrIllegalMove = errf("illegal move")

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

func illegal(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegalMove, fmt.Sprintf(format, args...))
}

// Sequence is a move path in canonical coordinates.
type Sequence []board.Coord

// Obligation pins the piece that must keep capturing before the turn passes.
type Obligation struct {
	MustContinue bool
	PinnedOrigin board.Coord
}

// State is everything the engine reads and writes for one game.
type State struct {
	Board      board.Board
	Turn       board.Side
	Obligation Obligation
	// Captured holds removed pieces, indexed by the side that lost them.
	Captured [2][]board.Piece
}

// NewState returns the opening position with the first side to move.
func NewState() State {
	return State{Board: board.Standard(), Turn: board.First}
}

// Outcome describes what Apply changed.
type Outcome struct {
	Captured     []board.Piece
	Promoted     bool
	Landing      board.Coord
	MustContinue bool
	Ended        bool
	Winner       board.Side
}

var diagonals = [4][2]int{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}

// IsLegal reports why seq cannot be played by st.Turn, or nil if it can.
// st is not modified.
func IsLegal(st State, seq Sequence) error {
	b := st.Board
	_, err := play(&b, st.Turn, st.Obligation, seq)
	logDecision(st.Turn, seq, err)
	return err
}

// Apply validates seq and, if legal, plays it on st. On error st is untouched.
func Apply(st *State, seq Sequence) (Outcome, error) {
	b := st.Board
	tr, err := play(&b, st.Turn, st.Obligation, seq)
	logDecision(st.Turn, seq, err)
	if err != nil {
		return Outcome{}, err
	}

	st.Board = b
	for _, p := range tr.captured {
		if owner, ok := p.Side(); ok {
			st.Captured[owner] = append(st.Captured[owner], p)
		}
	}

	out := Outcome{Captured: tr.captured, Promoted: tr.promoted, Landing: tr.landing}
	mover := st.Turn
	if tr.lastCaptured && CanContinueCapture(st.Board, mover, tr.landing) {
		st.Obligation = Obligation{MustContinue: true, PinnedOrigin: tr.landing}
		out.MustContinue = true
	} else {
		st.Obligation = Obligation{}
		st.Turn = mover.Opponent()
	}
	if w, ok := Winner(st.Board); ok {
		out.Ended = true
		out.Winner = w
	}

	obslog.L().Debug("rules_applied",
		obslog.Side(mover),
		obslog.Path(seq),
		zap.Int("captured", len(tr.captured)),
		zap.Bool("promoted", tr.promoted),
		zap.Bool("must_continue", out.MustContinue),
		zap.Bool("ended", out.Ended),
	)
	return out, nil
}

// CanContinueCapture reports whether the piece of side at pos has a capture.
func CanContinueCapture(b board.Board, side board.Side, pos board.Coord) bool {
	if !pos.InBounds() {
		return false
	}
	piece := b.At(pos)
	if !piece.BelongsTo(side) {
		return false
	}
	for _, d := range diagonals {
		if piece.IsKing() {
			if kingCaptureAlong(&b, side, pos, d[0], d[1]) {
				return true
			}
			continue
		}
		mid := pos.Add(d[0], d[1])
		land := pos.Add(2*d[0], 2*d[1])
		if land.InBounds() && b.At(land) == board.Empty && b.At(mid).BelongsTo(side.Opponent()) {
			return true
		}
	}
	return false
}

// CountPieces returns how many pieces side still has.
func CountPieces(b board.Board, side board.Side) int { return b.Count(side) }

// Winner reports the side whose opponent has no pieces left.
func Winner(b board.Board) (board.Side, bool) {
	switch {
	case b.Count(board.First) == 0:
		return board.Second, true
	case b.Count(board.Second) == 0:
		return board.First, true
	}
	return board.First, false
}

type trace struct {
	captured     []board.Piece
	promoted     bool
	lastCaptured bool
	landing      board.Coord
}

// play walks seq link by link on b, mutating it as each link lands.
func play(b *board.Board, side board.Side, obl Obligation, seq Sequence) (trace, error) {
	var tr trace
	if len(seq) < 2 {
		return tr, illegal("path needs an origin and at least one landing cell, got %d cells", len(seq))
	}
	for _, c := range seq {
		if !c.InBounds() {
			return tr, illegal("%s is off the board", c)
		}
	}
	if obl.MustContinue && seq[0] != obl.PinnedOrigin {
		return tr, illegal("must continue capturing with the piece at %s", obl.PinnedOrigin)
	}

	chain := len(seq) > 2
	for i := 0; i+1 < len(seq); i++ {
		from, to := seq[i], seq[i+1]
		piece := b.At(from)
		if !piece.BelongsTo(side) {
			return tr, illegal("no %s piece at %s", side, from)
		}
		if b.At(to) != board.Empty {
			return tr, illegal("destination %s is occupied", to)
		}

		var (
			victim   board.Coord
			captured bool
			err      error
		)
		if piece.IsKing() {
			victim, captured, err = kingStep(b, side, from, to)
		} else {
			victim, captured, err = manStep(b, side, from, to)
		}
		if err != nil {
			return tr, err
		}
		if chain && !captured {
			return tr, illegal("link %s->%s of a chain does not capture", from, to)
		}

		b.Set(to, piece)
		b.Set(from, board.Empty)
		if captured {
			tr.captured = append(tr.captured, b.At(victim))
			b.Set(victim, board.Empty)
		}
		if !piece.IsKing() && to.Y == side.PromotionRow() {
			b.Set(to, piece.Promoted())
			tr.promoted = true
		}
		tr.lastCaptured = captured
	}

	if obl.MustContinue && len(tr.captured) == 0 {
		return tr, illegal("the pinned piece must capture")
	}
	tr.landing = seq[len(seq)-1]
	return tr, nil
}

func manStep(b *board.Board, side board.Side, from, to board.Coord) (board.Coord, bool, error) {
	dx, dy := to.X-from.X, to.Y-from.Y
	switch {
	case abs(dx) == 1 && abs(dy) == 1:
		if dy != side.Forward() {
			return board.Coord{}, false, illegal("men step forward only, %s->%s", from, to)
		}
		return board.Coord{}, false, nil
	case abs(dx) == 2 && abs(dy) == 2:
		mid := from.Add(dx/2, dy/2)
		if !b.At(mid).BelongsTo(side.Opponent()) {
			return board.Coord{}, false, illegal("jump %s->%s does not cross an opposing piece", from, to)
		}
		return mid, true, nil
	}
	return board.Coord{}, false, illegal("men move one diagonal cell or jump two, %s->%s", from, to)
}

func kingStep(b *board.Board, side board.Side, from, to board.Coord) (board.Coord, bool, error) {
	dx, dy := to.X-from.X, to.Y-from.Y
	if dx == 0 || abs(dx) != abs(dy) {
		return board.Coord{}, false, illegal("kings move along diagonals, %s->%s", from, to)
	}
	sx, sy := sign(dx), sign(dy)
	var (
		enemy board.Coord
		found bool
	)
	for k := 1; k < abs(dx); k++ {
		c := from.Add(sx*k, sy*k)
		p := b.At(c)
		if p == board.Empty {
			continue
		}
		if p.BelongsTo(side) {
			return board.Coord{}, false, illegal("path %s->%s crosses own piece at %s", from, to, c)
		}
		if found {
			return board.Coord{}, false, illegal("path %s->%s crosses more than one opposing piece", from, to)
		}
		enemy, found = c, true
	}
	return enemy, found, nil
}

// kingCaptureAlong: first occupied cell along (dx, dy) is an opponent and the
// cell right behind it is free.
func kingCaptureAlong(b *board.Board, side board.Side, pos board.Coord, dx, dy int) bool {
	c := pos.Add(dx, dy)
	for c.InBounds() && b.At(c) == board.Empty {
		c = c.Add(dx, dy)
	}
	if !c.InBounds() || !b.At(c).BelongsTo(side.Opponent()) {
		return false
	}
	land := c.Add(dx, dy)
	return land.InBounds() && b.At(land) == board.Empty
}

func logDecision(side board.Side, seq Sequence, err error) {
	if err != nil {
		obslog.L().Debug("rules_rejected", obslog.Side(side), obslog.Path(seq), zap.Error(err))
		return
	}
	obslog.L().Debug("rules_accepted", obslog.Side(side), obslog.Path(seq))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
