package checkersdto

import "encoding/json"

// Envelope is the WebSocket frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomRequest covers join_game, leave_room and the room part of make_move.
// Token, when present, must resolve to the connection's identity.
type RoomRequest struct {
	RoomID string `json:"room_id"`
	Token  string `json:"token,omitempty"`
}

type Move struct {
	Sequence []Coord `json:"sequence"`
}

type MoveRequest struct {
	RoomID string `json:"room_id"`
	Token  string `json:"token,omitempty"`
	Move   Move   `json:"move"`
}

type TokenOnly struct {
	Token string `json:"token,omitempty"`
}

// Response is the HTTP API envelope: Status 0 on success, 1 on failure.
type Response struct {
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func OK(data any) Response { return Response{Status: 0, Data: data} }

func Fail(msg string) Response { return Response{Status: 1, Error: msg} }
