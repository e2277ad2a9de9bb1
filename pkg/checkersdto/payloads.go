package checkersdto

import (
	"encoding/json"
	"fmt"
)

// Coord is a canonical (column, row) pair.
type Coord [2]int

// UnmarshalJSON requires exactly two integers. A plain [2]int would drop
// extra elements and zero-fill missing ones.
func (c *Coord) UnmarshalJSON(b []byte) error {
	var pair []int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("coordinate must be [x, y]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate must have 2 elements, got %d", len(pair))
	}
	c[0], c[1] = pair[0], pair[1]
	return nil
}

type RoomCreated struct {
	RoomID      string `json:"room_id"`
	DisplayName string `json:"display_name"`
	PlayerCount int    `json:"player_count"`
	Status      string `json:"status"`
}

type RoomEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
	Status  string `json:"status"`
}

type RoomsList struct {
	Rooms []RoomEntry `json:"rooms"`
}

// GameState is sent as game_joined and game_update. Board is rotated for Seat;
// PinnedOrigin is canonical.
type GameState struct {
	RoomID             string  `json:"room_id"`
	Board              [][]int `json:"board"`
	Turn               string  `json:"turn"`
	FirstSideIdentity  *string `json:"first_side_identity"`
	SecondSideIdentity *string `json:"second_side_identity"`
	Seat               string  `json:"seat"`
	MustContinue       bool    `json:"must_continue"`
	PinnedOrigin       *Coord  `json:"pinned_origin"`
	CapturedFirst      []int   `json:"captured_first"`
	CapturedSecond     []int   `json:"captured_second"`
	Ended              bool    `json:"ended"`
	Winner             *string `json:"winner"`
	Status             string  `json:"status"`
	Message            string  `json:"message,omitempty"`
}

type GameEnded struct {
	Winner         string  `json:"winner"`
	Board          [][]int `json:"board"`
	CapturedFirst  []int   `json:"captured_first"`
	CapturedSecond []int   `json:"captured_second"`
}

type PlayerEvent struct {
	Identity string `json:"identity"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

type ConnectionConfirmed struct {
	Message string `json:"message"`
}
