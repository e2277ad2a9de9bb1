package obslog

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/checkers-arena/internal/board"
)

// Shared field constructors so every package logs rooms and seats the same way.

func Room(id string) zap.Field { return zap.String("room_id", id) }

func Conn(id string) zap.Field { return zap.String("conn_id", id) }

func Side(s board.Side) zap.Field { return zap.Stringer("side", s) }

func Identity(id string) zap.Field { return zap.String("identity", id) }

// Path renders a move path compactly, e.g. "(1,2)->(3,4)".
func Path(seq []board.Coord) zap.Field {
	return zap.Stringer("path", pathStringer(seq))
}

type pathStringer []board.Coord

func (p pathStringer) String() string {
	out := ""
	for i, c := range p {
		if i > 0 {
			out += "->"
		}
		out += fmt.Sprintf("(%d,%d)", c.X, c.Y)
	}
	return out
}
