package board

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Size is the edge length of the board.
const Size = 8

// Side identifies one of the two players.
type Side uint8

const (
	First Side = iota
	Second
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == First {
		return Second
	}
	return First
}

// Forward is the row delta of a non-capturing man step.
func (s Side) Forward() int {
	if s == First {
		return -1
	}
	return 1
}

// PromotionRow is the opposing back rank, where men of s become kings.
func (s Side) PromotionRow() int {
	if s == First {
		return 0
	}
	return Size - 1
}

func (s Side) String() string {
	if s == First {
		return "first"
	}
	return "second"
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSide accepts "first"/"second" and the legacy "white"/"black".
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "first", "white", "w":
		return First, nil
	case "second", "black", "b":
		return Second, nil
	}
	return First, fmt.Errorf("unknown side %q", raw)
}

// Piece is the content of one cell. Values are part of the wire format.
type Piece uint8

const (
	Empty      Piece = 0
	FirstMan   Piece = 1
	SecondMan  Piece = 2
	FirstKing  Piece = 3
	SecondKing Piece = 4
)

// Side reports the owner of p; ok is false for Empty.
func (p Piece) Side() (side Side, ok bool) {
	switch p {
	case FirstMan, FirstKing:
		return First, true
	case SecondMan, SecondKing:
		return Second, true
	}
	return First, false
}

// BelongsTo reports whether p is a man or king of side.
func (p Piece) BelongsTo(side Side) bool {
	s, ok := p.Side()
	return ok && s == side
}

func (p Piece) IsKing() bool { return p == FirstKing || p == SecondKing }

// Promoted returns the king of p's side; kings and Empty are returned unchanged.
func (p Piece) Promoted() Piece {
	switch p {
	case FirstMan:
		return FirstKing
	case SecondMan:
		return SecondKing
	}
	return p
}

// Man returns the man of side.
func Man(side Side) Piece {
	if side == First {
		return FirstMan
	}
	return SecondMan
}

// King returns the king of side.
func King(side Side) Piece {
	if side == First {
		return FirstKing
	}
	return SecondKing
}

// Coord is a (column, row) cell address. It travels as a [x, y] pair.
type Coord struct {
	X int
	Y int
}

func (c Coord) InBounds() bool {
	return c.X >= 0 && c.X < Size && c.Y >= 0 && c.Y < Size
}

// Add returns c shifted by (dx, dy).
func (c Coord) Add(dx, dy int) Coord { return Coord{X: c.X + dx, Y: c.Y + dy} }

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

func (c Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.X, c.Y})
}

func (c *Coord) UnmarshalJSON(b []byte) error {
	var pair []int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("coordinate must be [x, y]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate must have 2 elements, got %d", len(pair))
	}
	c.X, c.Y = pair[0], pair[1]
	return nil
}

// Board is the grid indexed [row][col]. Row 0 is the second side's home edge.
type Board [Size][Size]Piece

// Standard returns the opening position: men on the dark cells ((row+col) odd)
// of rows 0-2 for the second side and rows 5-7 for the first side.
func Standard() Board {
	var b Board
	for row := 0; row < 3; row++ {
		for col := 0; col < Size; col++ {
			if (row+col)%2 == 1 {
				b[row][col] = SecondMan
			}
		}
	}
	for row := Size - 3; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if (row+col)%2 == 1 {
				b[row][col] = FirstMan
			}
		}
	}
	return b
}

// At returns the piece at c. The caller guarantees c is in bounds.
func (b *Board) At(c Coord) Piece { return b[c.Y][c.X] }

// Set places p at c.
func (b *Board) Set(c Coord, p Piece) { b[c.Y][c.X] = p }

// View returns the board as side sees it: the second side gets the grid
// rotated 180 degrees so its own men advance up the screen.
func (b Board) View(side Side) Board {
	if side == First {
		return b
	}
	var out Board
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			out[Size-1-row][Size-1-col] = b[row][col]
		}
	}
	return out
}

// Count returns the number of men and kings side has on the board.
func (b Board) Count(side Side) int {
	n := 0
	for row := range b {
		for _, p := range b[row] {
			if p.BelongsTo(side) {
				n++
			}
		}
	}
	return n
}

// Total returns the number of occupied cells.
func (b Board) Total() int {
	return b.Count(First) + b.Count(Second)
}

// Rows converts the board into nested int slices for JSON payloads.
// []Piece would encode as base64 since Piece is a byte.
func (b Board) Rows() [][]int {
	out := make([][]int, Size)
	for row := range b {
		out[row] = make([]int, Size)
		for col, p := range b[row] {
			out[row][col] = int(p)
		}
	}
	return out
}

// String renders the board as text, one row per line, for logs and test failures.
func (b Board) String() string {
	var sb strings.Builder
	for row := range b {
		for col, p := range b[row] {
			if col > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(pieceGlyph(p))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func pieceGlyph(p Piece) string {
	switch p {
	case FirstMan:
		return "w"
	case FirstKing:
		return "W"
	case SecondMan:
		return "b"
	case SecondKing:
		return "B"
	}
	return "."
}
