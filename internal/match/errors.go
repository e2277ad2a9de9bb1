package match

import (
	"errors"
	"strings"

	"github.com/park285/checkers-arena/internal/identity"
	"github.com/park285/checkers-arena/internal/registry"
	"github.com/park285/checkers-arena/internal/rules"
	"github.com/park285/checkers-arena/internal/session"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

var (
	ErrNotSeated  = errf("not a player in this room")
	ErrBadRequest = errf("bad request")
)

// Kind classifies a rejection for clients.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindUnauthorized    Kind = "unauthorized"
	KindIllegalMove     Kind = "illegal_move"
	KindSeatTaken       Kind = "seat_taken"
	KindGameEnded       Kind = "game_ended"
	KindOutOfTurn       Kind = "out_of_turn"
	KindDuplicateAction Kind = "duplicate_action"
	KindBadRequest      Kind = "bad_request"
	KindInternal        Kind = "internal"
)

// KindOf maps any error produced below the coordinator to its kind.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, session.ErrClosed):
		return KindNotFound
	case errors.Is(err, identity.ErrUnauthorized), errors.Is(err, session.ErrUnauthorized), errors.Is(err, ErrNotSeated):
		return KindUnauthorized
	case errors.Is(err, rules.ErrIllegalMove):
		return KindIllegalMove
	case errors.Is(err, session.ErrSeatTaken):
		return KindSeatTaken
	case errors.Is(err, session.ErrGameEnded):
		return KindGameEnded
	case errors.Is(err, session.ErrOutOfTurn), errors.Is(err, session.ErrWaiting):
		return KindOutOfTurn
	case errors.Is(err, session.ErrDuplicateAction):
		return KindDuplicateAction
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest
	}
	return KindInternal
}

// reason strips the sentinel prefix from a wrapped error.
func reason(err error, sentinel error) string {
	msg := err.Error()
	if r, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return r
	}
	return msg
}
