package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const sessionQuery = `SELECT player_id FROM auth_sessions WHERE token = $1 AND expires_at > now()`

// SQLResolver reads the auth service's auth_sessions table in Postgres.
type SQLResolver struct {
	db *sql.DB
}

func NewSQLResolver(ctx context.Context, databaseURL string) (*SQLResolver, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLResolver{db: db}, nil
}

func (r *SQLResolver) Resolve(ctx context.Context, token string) (PlayerID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	var id string
	err := r.db.QueryRowContext(ctx, sessionQuery, token).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}
	if strings.TrimSpace(id) == "" {
		return "", ErrUnauthorized
	}
	return PlayerID(id), nil
}

func (r *SQLResolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
