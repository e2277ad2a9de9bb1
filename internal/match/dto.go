package match

import (
	"github.com/park285/checkers-arena/internal/board"
	"github.com/park285/checkers-arena/internal/rules"
	"github.com/park285/checkers-arena/internal/session"
	"github.com/park285/checkers-arena/pkg/checkersdto"
)

func toSequence(coords []checkersdto.Coord) rules.Sequence {
	seq := make(rules.Sequence, len(coords))
	for i, c := range coords {
		seq[i] = board.Coord{X: c[0], Y: c[1]}
	}
	return seq
}

func pieces(ps []board.Piece) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = int(p)
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GameStateDTO converts a seat snapshot to its wire form.
func GameStateDTO(st session.State, message string) checkersdto.GameState {
	out := checkersdto.GameState{
		RoomID:             st.RoomID,
		Board:              st.Board.Rows(),
		Turn:               st.Turn.String(),
		FirstSideIdentity:  optional(string(st.Players[board.First])),
		SecondSideIdentity: optional(string(st.Players[board.Second])),
		Seat:               st.Seat.String(),
		MustContinue:       st.Obligation.MustContinue,
		CapturedFirst:      pieces(st.Captured[board.First]),
		CapturedSecond:     pieces(st.Captured[board.Second]),
		Ended:              st.Ended,
		Status:             string(st.Status),
		Message:            message,
	}
	if st.Obligation.MustContinue {
		o := st.Obligation.PinnedOrigin
		out.PinnedOrigin = &checkersdto.Coord{o.X, o.Y}
	}
	if st.Ended {
		out.Winner = optional(st.Winner.String())
	}
	return out
}

func gameEndedDTO(st session.State) checkersdto.GameEnded {
	return checkersdto.GameEnded{
		Winner:         st.Winner.String(),
		Board:          st.Board.Rows(),
		CapturedFirst:  pieces(st.Captured[board.First]),
		CapturedSecond: pieces(st.Captured[board.Second]),
	}
}
