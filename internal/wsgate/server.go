package wsgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/checkers-arena/internal/identity"
	"github.com/park285/checkers-arena/internal/match"
	"github.com/park285/checkers-arena/internal/obslog"
	"github.com/park285/checkers-arena/internal/router"
	"github.com/park285/checkers-arena/pkg/checkersdto"
)

type Options struct {
	// OriginPatterns are host patterns allowed to open cross-origin sockets.
	OriginPatterns []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

// Server upgrades authenticated HTTP requests and runs one connection each.
type Server struct {
	hub   *Hub
	coord *match.Coordinator
	opts  Options
}

func NewServer(hub *Hub, coord *match.Coordinator, opts Options) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Server{hub: hub, coord: coord, opts: opts}
}

func handshakeToken(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	return identity.BearerToken(r.Header.Get("Authorization"))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	player, err := s.coord.Authenticate(r.Context(), handshakeToken(r))
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		obslog.L().Error("ws_auth_backend_error", zap.Error(err))
		http.Error(w, "identity backend unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.opts.OriginPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.Error(err))
		return
	}

	id := router.ConnID(uuid.NewString())
	c := s.hub.register(id, player)
	obslog.L().Info("ws_connected", obslog.Conn(string(id)), obslog.Identity(string(player)))

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		s.hub.unregister(id)
		s.coord.Disconnect(context.Background(), id)
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
		obslog.L().Info("ws_disconnected", obslog.Conn(string(id)), obslog.Identity(string(player)))
	}()

	go s.writeLoop(ctx, cancel, conn, c)
	go s.pingLoop(ctx, cancel, conn, c)
	s.readLoop(ctx, conn, c)
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		var env checkersdto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				obslog.L().Debug("ws_read_ended", obslog.Conn(string(c.id)), zap.Error(err))
			}
			return
		}
		s.dispatch(ctx, c, env)
	}
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *client) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-c.send:
			wctx, wcancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, b)
			wcancel()
			if err != nil {
				obslog.L().Warn("ws_write_failed", obslog.Conn(string(c.id)), zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) pingLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *client) {
	t := time.NewTicker(s.opts.PingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			pcancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				obslog.L().Info("ws_ping_timeout", obslog.Conn(string(c.id)))
				cancel()
				return
			}
		}
	}
}

func (s *Server) dispatch(ctx context.Context, c *client, env checkersdto.Envelope) {
	switch env.Event {
	case checkersdto.EventCreateRoom:
		var req checkersdto.TokenOnly
		if s.decode(ctx, c, env, &req, false) && s.verify(ctx, c, req.Token) {
			_ = s.coord.CreateRoom(ctx, c.id, c.player)
		}
	case checkersdto.EventJoinGame:
		var req checkersdto.RoomRequest
		if s.decode(ctx, c, env, &req, true) && s.verify(ctx, c, req.Token) && s.needRoom(ctx, c, req.RoomID) {
			_ = s.coord.JoinRoom(ctx, c.id, req.RoomID, c.player)
		}
	case checkersdto.EventMakeMove:
		var req checkersdto.MoveRequest
		if s.decode(ctx, c, env, &req, true) && s.verify(ctx, c, req.Token) && s.needRoom(ctx, c, req.RoomID) {
			_ = s.coord.SubmitMove(ctx, c.id, req.RoomID, c.player, req.Move.Sequence)
		}
	case checkersdto.EventLeaveRoom:
		var req checkersdto.RoomRequest
		if s.decode(ctx, c, env, &req, true) && s.verify(ctx, c, req.Token) && s.needRoom(ctx, c, req.RoomID) {
			_ = s.coord.LeaveRoom(ctx, c.id, req.RoomID, c.player)
		}
	case checkersdto.EventGetRooms:
		var req checkersdto.TokenOnly
		if s.decode(ctx, c, env, &req, false) && s.verify(ctx, c, req.Token) {
			s.coord.ListRooms(ctx, c.id)
		}
	case checkersdto.EventCheckConnection:
		s.coord.CheckConnection(ctx, c.id)
	default:
		s.reject(ctx, c, fmt.Errorf("%w: unknown event %q", match.ErrBadRequest, env.Event))
	}
}

func (s *Server) decode(ctx context.Context, c *client, env checkersdto.Envelope, v any, required bool) bool {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		if required {
			s.reject(ctx, c, fmt.Errorf("%w: %s needs a data object", match.ErrBadRequest, env.Event))
			return false
		}
		return true
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		s.reject(ctx, c, fmt.Errorf("%w: %s: %v", match.ErrBadRequest, env.Event, err))
		return false
	}
	return true
}

func (s *Server) verify(ctx context.Context, c *client, token string) bool {
	if err := s.coord.VerifyToken(ctx, c.player, token); err != nil {
		s.reject(ctx, c, err)
		return false
	}
	return true
}

func (s *Server) needRoom(ctx context.Context, c *client, roomID string) bool {
	if strings.TrimSpace(roomID) == "" {
		s.reject(ctx, c, fmt.Errorf("%w: room_id is required", match.ErrBadRequest))
		return false
	}
	return true
}

func (s *Server) reject(ctx context.Context, c *client, err error) {
	obslog.L().Info("ws_request_rejected", obslog.Conn(string(c.id)), zap.Error(err))
	_ = s.hub.ToConn(ctx, c.id, checkersdto.EventGameError, checkersdto.ErrorPayload{
		Message: s.coord.Message(err),
		Kind:    string(match.KindOf(err)),
	})
}
