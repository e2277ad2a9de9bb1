package identity

import (
	"context"
	"fmt"
	"strings"
)

// StaticResolver serves a fixed token table. Used for local runs and tests.
type StaticResolver struct {
	tokens map[string]PlayerID
}

func NewStaticResolver(tokens map[string]PlayerID) *StaticResolver {
	cp := make(map[string]PlayerID, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &StaticResolver{tokens: cp}
}

func (r *StaticResolver) Resolve(_ context.Context, token string) (PlayerID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	id, ok := r.tokens[token]
	if !ok || id == "" {
		return "", ErrUnauthorized
	}
	return id, nil
}

// ParseStaticTokens reads "token=player,token2=player2".
func ParseStaticTokens(raw string) (map[string]PlayerID, error) {
	out := make(map[string]PlayerID)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		tok, player, ok := strings.Cut(pair, "=")
		tok, player = strings.TrimSpace(tok), strings.TrimSpace(player)
		if !ok || tok == "" || player == "" {
			return nil, fmt.Errorf("invalid static token entry %q", pair)
		}
		out[tok] = PlayerID(player)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no static tokens configured")
	}
	return out, nil
}
