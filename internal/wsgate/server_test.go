package wsgate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/checkers-arena/internal/identity"
	"github.com/park285/checkers-arena/internal/match"
	"github.com/park285/checkers-arena/internal/msgcat"
	"github.com/park285/checkers-arena/internal/registry"
	"github.com/park285/checkers-arena/internal/router"
	"github.com/park285/checkers-arena/pkg/checkersdto"
)

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	auth := identity.NewStaticResolver(map[string]identity.PlayerID{"ta": "alice", "tb": "bob"})
	hub := NewHub(16)
	rooms := registry.New()
	coord := match.New(rooms, router.New(), hub, auth, msgs)
	srv := httptest.NewServer(NewServer(hub, coord, Options{PingInterval: time.Minute}))
	t.Cleanup(srv.Close)
	return srv, rooms
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, map[string]any{"event": event, "data": data}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// readUntil skips frames until event arrives and decodes its data into v.
func readUntil(t *testing.T, conn *websocket.Conn, event string, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var msg inbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if msg.Event != event {
			continue
		}
		if v != nil {
			if err := json.Unmarshal(msg.Data, v); err != nil {
				t.Fatalf("decode %s: %v", event, err)
			}
		}
		return
	}
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=nope"
	_, resp, err := websocket.Dial(ctx, url, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestBearerHeaderHandshake(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer ta"}},
	})
	if err != nil {
		t.Fatalf("dial with bearer header: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	send(t, conn, checkersdto.EventCheckConnection, nil)
	var ok checkersdto.ConnectionConfirmed
	readUntil(t, conn, checkersdto.EventConnectionConfirmed, &ok)
	if ok.Message == "" {
		t.Fatalf("empty confirmation")
	}
}

func TestCreateJoinMoveOverWebSocket(t *testing.T) {
	srv, rooms := newTestServer(t)
	alice := dial(t, srv, "ta")
	bob := dial(t, srv, "tb")

	send(t, alice, checkersdto.EventCreateRoom, map[string]any{})
	var created checkersdto.RoomCreated
	readUntil(t, alice, checkersdto.EventRoomCreated, &created)
	if created.RoomID == "" || created.PlayerCount != 1 {
		t.Fatalf("room_created %+v", created)
	}

	send(t, bob, checkersdto.EventGetRooms, nil)
	var list checkersdto.RoomsList
	readUntil(t, bob, checkersdto.EventRoomsList, &list)
	if len(list.Rooms) != 1 || list.Rooms[0].ID != created.RoomID {
		t.Fatalf("rooms_list %+v", list)
	}

	send(t, bob, checkersdto.EventJoinGame, checkersdto.RoomRequest{RoomID: created.RoomID, Token: "tb"})
	var bobView, aliceView checkersdto.GameState
	readUntil(t, bob, checkersdto.EventGameJoined, &bobView)
	readUntil(t, alice, checkersdto.EventGameJoined, &aliceView)
	if bobView.Seat != "second" || aliceView.Seat != "first" {
		t.Fatalf("seats %s %s", bobView.Seat, aliceView.Seat)
	}

	send(t, alice, checkersdto.EventMakeMove, map[string]any{
		"room_id": created.RoomID,
		"move":    map[string]any{"sequence": [][2]int{{0, 5}, {1, 4}}},
	})
	var update checkersdto.GameState
	readUntil(t, bob, checkersdto.EventGameUpdate, &update)
	if update.Turn != "second" {
		t.Fatalf("turn %s", update.Turn)
	}

	send(t, alice, checkersdto.EventMakeMove, map[string]any{
		"room_id": created.RoomID,
		"move":    map[string]any{"sequence": [][2]int{{1, 4}, {2, 3}}},
	})
	var rejected checkersdto.ErrorPayload
	readUntil(t, alice, checkersdto.EventGameError, &rejected)
	if rejected.Kind != string(match.KindOutOfTurn) {
		t.Fatalf("expected out of turn, got %+v", rejected)
	}

	_ = bob.Close(websocket.StatusNormalClosure, "")
	var left checkersdto.PlayerEvent
	readUntil(t, alice, checkersdto.EventPlayerLeft, &left)
	if left.Identity != "bob" {
		t.Fatalf("playerLeft %+v", left)
	}
	if rooms.Len() != 1 {
		t.Fatalf("room should survive a single disconnect")
	}
}

func TestMismatchedEventTokenRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := dial(t, srv, "ta")
	send(t, alice, checkersdto.EventCreateRoom, map[string]any{"token": "tb"})
	var rejected checkersdto.ErrorPayload
	readUntil(t, alice, checkersdto.EventGameError, &rejected)
	if rejected.Kind != string(match.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %+v", rejected)
	}

	send(t, alice, "dance", nil)
	readUntil(t, alice, checkersdto.EventGameError, &rejected)
	if rejected.Kind != string(match.KindBadRequest) {
		t.Fatalf("expected bad request, got %+v", rejected)
	}

	send(t, alice, checkersdto.EventJoinGame, map[string]any{})
	readUntil(t, alice, checkersdto.EventGameError, &rejected)
	if rejected.Kind != string(match.KindBadRequest) {
		t.Fatalf("missing room id: %+v", rejected)
	}
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	h := NewHub(1)
	c := h.register("c1", "alice")
	ctx := context.Background()
	if err := h.ToConn(ctx, "c1", "a", nil); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := h.ToConn(ctx, "c1", "b", nil); err != nil {
		t.Fatalf("second send must not fail: %v", err)
	}
	if len(c.send) != 1 {
		t.Fatalf("queue length %d", len(c.send))
	}
	if err := h.ToConn(ctx, "ghost", "a", nil); err != ErrUnknownConn {
		t.Fatalf("unknown conn: %v", err)
	}
	h.JoinRoom("c1", "r")
	h.unregister("c1")
	if h.Len() != 0 || len(h.rooms) != 0 {
		t.Fatalf("unregister left state behind")
	}
}

func TestMalformedCoordinatesRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := dial(t, srv, "ta")
	bob := dial(t, srv, "tb")

	send(t, alice, checkersdto.EventCreateRoom, map[string]any{})
	var created checkersdto.RoomCreated
	readUntil(t, alice, checkersdto.EventRoomCreated, &created)
	send(t, bob, checkersdto.EventJoinGame, checkersdto.RoomRequest{RoomID: created.RoomID})
	readUntil(t, alice, checkersdto.EventGameJoined, nil)

	for _, seq := range []any{
		[][]int{{0, 5, 99}, {1, 4, -7}},
		[][]int{{0, 5}, {1}},
	} {
		send(t, alice, checkersdto.EventMakeMove, map[string]any{
			"room_id": created.RoomID,
			"move":    map[string]any{"sequence": seq},
		})
		var rejected checkersdto.ErrorPayload
		readUntil(t, alice, checkersdto.EventGameError, &rejected)
		if rejected.Kind != string(match.KindBadRequest) {
			t.Fatalf("sequence %v: expected bad request, got %+v", seq, rejected)
		}
	}

	// The rejected frames left the opening position untouched.
	send(t, alice, checkersdto.EventMakeMove, map[string]any{
		"room_id": created.RoomID,
		"move":    map[string]any{"sequence": [][]int{{0, 5}, {1, 4}}},
	})
	var update checkersdto.GameState
	readUntil(t, alice, checkersdto.EventGameUpdate, &update)
	if update.Turn != "second" || update.Board[4][1] != 1 {
		t.Fatalf("update %+v", update)
	}
}
