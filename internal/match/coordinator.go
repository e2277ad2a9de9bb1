// Package match turns transport requests into session operations and fans
// the results out to the right connections.
package match

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/checkers-arena/internal/board"
	"github.com/park285/checkers-arena/internal/identity"
	"github.com/park285/checkers-arena/internal/msgcat"
	"github.com/park285/checkers-arena/internal/obslog"
	"github.com/park285/checkers-arena/internal/registry"
	"github.com/park285/checkers-arena/internal/router"
	"github.com/park285/checkers-arena/internal/rules"
	"github.com/park285/checkers-arena/internal/session"
	"github.com/park285/checkers-arena/pkg/checkersdto"
)

// Broadcaster delivers events. Implementations must not block on slow peers.
type Broadcaster interface {
	ToConn(ctx context.Context, conn router.ConnID, event string, payload any) error
	ToRoom(ctx context.Context, room string, event string, payload any) error
	ToAll(ctx context.Context, event string, payload any) error
	JoinRoom(conn router.ConnID, room string)
	LeaveRoom(conn router.ConnID, room string)
}

type Coordinator struct {
	rooms *registry.Registry
	seats *router.Router
	out   Broadcaster
	auth  identity.Resolver
	msgs  *msgcat.Catalog

	// seatLocks holds one *sync.Mutex per room. Joins and leaves of a room
	// run under it so a router binding and its session seat change together.
	seatLocks sync.Map
}

func New(rooms *registry.Registry, seats *router.Router, out Broadcaster, auth identity.Resolver, msgs *msgcat.Catalog) *Coordinator {
	return &Coordinator{rooms: rooms, seats: seats, out: out, auth: auth, msgs: msgs}
}

// Authenticate resolves a connection's handshake token.
func (c *Coordinator) Authenticate(ctx context.Context, token string) (identity.PlayerID, error) {
	id, err := c.auth.Resolve(ctx, token)
	if err != nil {
		obslog.L().Info("auth_rejected", zap.String("token", identity.Redact(token)), zap.Error(err))
		return "", err
	}
	return id, nil
}

// VerifyToken checks that a token carried inside an event belongs to id.
// An empty token is accepted; the connection was authenticated at handshake.
func (c *Coordinator) VerifyToken(ctx context.Context, id identity.PlayerID, token string) error {
	if token == "" {
		return nil
	}
	got, err := c.auth.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if got != id {
		return identity.ErrUnauthorized
	}
	return nil
}

func (c *Coordinator) CreateRoom(ctx context.Context, conn router.ConnID, id identity.PlayerID) error {
	s, err := c.rooms.Create(id)
	if err != nil {
		return c.fail(ctx, conn, "create_room", err)
	}
	c.seats.Bind(s.ID(), board.First, conn)
	c.out.JoinRoom(conn, s.ID())

	sum := s.Summary()
	c.send(ctx, conn, checkersdto.EventRoomCreated, checkersdto.RoomCreated{
		RoomID:      sum.ID,
		DisplayName: c.displayName(sum),
		PlayerCount: sum.Players,
		Status:      string(sum.Status),
	})
	c.broadcastRooms(ctx)
	return nil
}

func (c *Coordinator) JoinRoom(ctx context.Context, conn router.ConnID, roomID string, id identity.PlayerID) error {
	s, err := c.rooms.Get(roomID)
	if err != nil {
		return c.fail(ctx, conn, "join_game", err)
	}
	unlock := c.seatLock(roomID)
	defer unlock()

	if side, ok := s.Rejoin(id); ok {
		c.bind(roomID, side, conn)
		c.send(ctx, conn, checkersdto.EventGameJoined, GameStateDTO(s.View(side), c.text("game.joined", nil)))
		obslog.L().Info("seat_rebound", obslog.Room(roomID), obslog.Side(side), obslog.Conn(string(conn)))
		return nil
	}

	side, err := s.Join(id)
	if err != nil {
		return c.fail(ctx, conn, "join_game", err)
	}
	c.bind(roomID, side, conn)

	c.send(ctx, conn, checkersdto.EventGameJoined, GameStateDTO(s.View(side), c.text("game.joined", nil)))
	other := side.Opponent()
	if oc, ok := c.seats.ConnectionFor(roomID, other); ok {
		c.send(ctx, oc, checkersdto.EventGameJoined, GameStateDTO(s.View(other), c.text("game.opponent_joined", nil)))
	}
	c.toRoom(ctx, roomID, checkersdto.EventPlayerJoined, checkersdto.PlayerEvent{Identity: string(id)})
	c.broadcastRooms(ctx)
	return nil
}

// SubmitMove plays seq for the seat conn holds in roomID.
func (c *Coordinator) SubmitMove(ctx context.Context, conn router.ConnID, roomID string, id identity.PlayerID, coords []checkersdto.Coord) error {
	s, err := c.rooms.Get(roomID)
	if err != nil {
		return c.fail(ctx, conn, "make_move", err)
	}
	side, ok := c.seats.SideOf(roomID, conn)
	if !ok {
		return c.fail(ctx, conn, "make_move", ErrNotSeated)
	}
	res, err := s.Move(side, id, toSequence(coords))
	if err != nil {
		return c.fail(ctx, conn, "make_move", err)
	}
	c.publishMove(ctx, roomID, res)
	return nil
}

// SubmitMoveAs plays seq for whichever seat id holds, without a connection.
// Connected seats still receive the usual updates.
func (c *Coordinator) SubmitMoveAs(ctx context.Context, roomID string, id identity.PlayerID, coords []checkersdto.Coord) (session.State, error) {
	s, err := c.rooms.Get(roomID)
	if err != nil {
		return session.State{}, err
	}
	side, ok := s.SideOf(id)
	if !ok {
		return session.State{}, ErrNotSeated
	}
	res, err := s.Move(side, id, toSequence(coords))
	if err != nil {
		return session.State{}, err
	}
	c.publishMove(ctx, roomID, res)
	return res.Views[side], nil
}

func (c *Coordinator) LeaveRoom(ctx context.Context, conn router.ConnID, roomID string, id identity.PlayerID) error {
	s, err := c.rooms.Get(roomID)
	if err != nil {
		return c.fail(ctx, conn, "leave_room", err)
	}
	side, ok := c.seats.SideOf(roomID, conn)
	if !ok {
		return c.fail(ctx, conn, "leave_room", ErrNotSeated)
	}
	if got, seated := s.SideOf(id); !seated || got != side {
		return c.fail(ctx, conn, "leave_room", session.ErrUnauthorized)
	}
	c.vacate(ctx, roomID, s, side, conn)
	return nil
}

// Disconnect releases every seat conn holds. Safe to call repeatedly.
func (c *Coordinator) Disconnect(ctx context.Context, conn router.ConnID) {
	for _, seat := range c.seats.SeatsOf(conn) {
		s, err := c.rooms.Get(seat.Room)
		if err != nil {
			c.seats.UnbindIf(seat.Room, seat.Side, conn)
			continue
		}
		c.vacate(ctx, seat.Room, s, seat.Side, conn)
	}
}

func (c *Coordinator) ListRooms(ctx context.Context, conn router.ConnID) {
	c.send(ctx, conn, checkersdto.EventRoomsList, checkersdto.RoomsList{Rooms: c.Rooms()})
}

func (c *Coordinator) CheckConnection(ctx context.Context, conn router.ConnID) {
	c.send(ctx, conn, checkersdto.EventConnectionConfirmed, checkersdto.ConnectionConfirmed{
		Message: c.text("connection.confirmed", nil),
	})
}

// Rooms returns the open rooms in lobby form.
func (c *Coordinator) Rooms() []checkersdto.RoomEntry {
	out := []checkersdto.RoomEntry{}
	for sum := range c.rooms.OpenRooms() {
		out = append(out, checkersdto.RoomEntry{
			ID:      sum.ID,
			Name:    c.displayName(sum),
			Players: sum.Players,
			Status:  string(sum.Status),
		})
	}
	return out
}

// StateFor returns id's perspective of roomID.
func (c *Coordinator) StateFor(roomID string, id identity.PlayerID) (session.State, error) {
	s, err := c.rooms.Get(roomID)
	if err != nil {
		return session.State{}, err
	}
	side, ok := s.SideOf(id)
	if !ok {
		return session.State{}, ErrNotSeated
	}
	return s.View(side), nil
}

// Title is the display name of roomID, or the id itself once the room is gone.
func (c *Coordinator) Title(roomID string) string {
	s, err := c.rooms.Get(roomID)
	if err != nil {
		return roomID
	}
	return c.displayName(s.Summary())
}

// StatusText summarizes st in one line for captions.
func (c *Coordinator) StatusText(st session.State) string {
	switch {
	case st.Ended:
		return c.text("game.over", map[string]any{"Winner": st.Winner.String()})
	case st.Status == session.StatusWaiting:
		return c.text("game.waiting", nil)
	case st.Obligation.MustContinue:
		return c.text("game.continue_capture", map[string]any{"Origin": st.Obligation.PinnedOrigin.String()})
	}
	return c.text("game.turn", map[string]any{"Side": st.Turn.String()})
}

// Message renders the client-facing text for err.
func (c *Coordinator) Message(err error) string {
	kind := KindOf(err)
	data := map[string]any{}
	switch kind {
	case KindIllegalMove:
		data["Reason"] = reason(err, rules.ErrIllegalMove)
	case KindBadRequest:
		data["Reason"] = reason(err, ErrBadRequest)
	}
	return c.text("error."+string(kind), data)
}

func (c *Coordinator) publishMove(ctx context.Context, roomID string, res session.MoveResult) {
	msg := c.text("game.move_accepted", nil)
	switch {
	case res.Ended:
		msg = c.text("game.over", map[string]any{"Winner": res.Winner.String()})
	case res.Outcome.MustContinue:
		msg = c.text("game.continue_capture", map[string]any{"Origin": res.Outcome.Landing.String()})
	}
	for _, side := range [2]board.Side{board.First, board.Second} {
		if conn, ok := c.seats.ConnectionFor(roomID, side); ok {
			c.send(ctx, conn, checkersdto.EventGameUpdate, GameStateDTO(res.Views[side], msg))
		}
	}
	if !res.Ended {
		return
	}
	for _, side := range [2]board.Side{board.First, board.Second} {
		if conn, ok := c.seats.ConnectionFor(roomID, side); ok {
			c.send(ctx, conn, checkersdto.EventGameEnded, gameEndedDTO(res.Views[side]))
		}
	}
	obslog.L().Info("game_ended", obslog.Room(roomID), zap.Stringer("winner", res.Winner))
}

// vacate frees side on behalf of conn. If the seat was rebound to another
// connection in the meantime the call does nothing.
func (c *Coordinator) vacate(ctx context.Context, roomID string, s *session.Session, side board.Side, conn router.ConnID) {
	unlock := c.seatLock(roomID)
	defer unlock()
	if !c.seats.UnbindIf(roomID, side, conn) {
		return
	}
	res := s.Leave(side)
	if !res.Vacated {
		return
	}

	c.toRoom(ctx, roomID, checkersdto.EventPlayerLeft, checkersdto.PlayerEvent{Identity: string(res.Identity)})
	switch {
	case res.Empty:
		c.toRoom(ctx, roomID, checkersdto.EventRoomDeleted, roomID)
		c.seats.UnbindRoom(roomID)
		c.rooms.RemoveIf(roomID, s)
		c.seatLocks.Delete(roomID)
	case res.Reset:
		msg := c.text("game.player_left", map[string]any{"Identity": string(res.Identity)})
		for _, other := range [2]board.Side{board.First, board.Second} {
			if !res.Views[other].Occupied(other) {
				continue
			}
			if oc, ok := c.seats.ConnectionFor(roomID, other); ok {
				c.send(ctx, oc, checkersdto.EventGameUpdate, GameStateDTO(res.Views[other], msg))
			}
		}
	}
	c.out.LeaveRoom(conn, roomID)
	c.broadcastRooms(ctx)
}

func (c *Coordinator) seatLock(roomID string) func() {
	v, _ := c.seatLocks.LoadOrStore(roomID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (c *Coordinator) bind(roomID string, side board.Side, conn router.ConnID) {
	if prev, replaced := c.seats.Bind(roomID, side, conn); replaced {
		c.out.LeaveRoom(prev, roomID)
	}
	c.out.JoinRoom(conn, roomID)
}

func (c *Coordinator) broadcastRooms(ctx context.Context) {
	if err := c.out.ToAll(ctx, checkersdto.EventRoomsList, checkersdto.RoomsList{Rooms: c.Rooms()}); err != nil {
		obslog.L().Warn("broadcast_failed", zap.String("event", checkersdto.EventRoomsList), zap.Error(err))
	}
}

func (c *Coordinator) send(ctx context.Context, conn router.ConnID, event string, payload any) {
	if err := c.out.ToConn(ctx, conn, event, payload); err != nil {
		obslog.L().Warn("send_failed", obslog.Conn(string(conn)), zap.String("event", event), zap.Error(err))
	}
}

func (c *Coordinator) toRoom(ctx context.Context, roomID, event string, payload any) {
	if err := c.out.ToRoom(ctx, roomID, event, payload); err != nil {
		obslog.L().Warn("broadcast_failed", obslog.Room(roomID), zap.String("event", event), zap.Error(err))
	}
}

func (c *Coordinator) fail(ctx context.Context, conn router.ConnID, op string, err error) error {
	kind := KindOf(err)
	fields := []zap.Field{zap.String("op", op), obslog.Conn(string(conn)), zap.String("kind", string(kind)), zap.Error(err)}
	if kind == KindInternal {
		obslog.L().Error("request_failed", fields...)
	} else {
		obslog.L().Info("request_rejected", fields...)
	}
	c.send(ctx, conn, checkersdto.EventGameError, checkersdto.ErrorPayload{Message: c.Message(err), Kind: string(kind)})
	return err
}

func (c *Coordinator) displayName(sum session.RoomSummary) string {
	return c.text("room.display_name", map[string]any{"Host": string(sum.Host)})
}

func (c *Coordinator) text(key string, data any) string {
	if data == nil {
		data = map[string]any{}
	}
	return c.msgs.Text(key, data, key)
}
