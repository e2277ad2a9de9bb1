package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// HTTPResolver asks the auth service's GET /me endpoint who owns a token.
type HTTPResolver struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type HTTPOption func(*HTTPResolver)

func WithTimeout(d time.Duration) HTTPOption {
	return func(r *HTTPResolver) { r.defaultTimeout = d }
}

func WithRetry(max int) HTTPOption {
	return func(r *HTTPResolver) { r.retryMax = max }
}

func WithMaxConnsPerHost(n int) HTTPOption {
	return func(r *HTTPResolver) { r.http.MaxConnsPerHost = n }
}

// WithDial replaces the client's dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) HTTPOption {
	return func(r *HTTPResolver) { r.http.Dial = dial }
}

func NewHTTPResolver(baseURL string, opts ...HTTPOption) (*HTTPResolver, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("AUTH_BASE_URL is required")
	}
	r := &HTTPResolver{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type meResponse struct {
	User     string `json:"user"`
	Username string `json:"username"`
}

func (r *HTTPResolver) Resolve(ctx context.Context, token string) (PlayerID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	var me meResponse
	if err := r.getJSON(ctx, "/me", token, &me); err != nil {
		return "", err
	}
	id := strings.TrimSpace(me.User)
	if id == "" {
		id = strings.TrimSpace(me.Username)
	}
	if id == "" {
		return "", ErrUnauthorized
	}
	return PlayerID(id), nil
}

func (r *HTTPResolver) getJSON(ctx context.Context, path, token string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(r.baseURL + path)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	attempts := r.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := r.http.DoDeadline(req, resp, r.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("auth request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		switch {
		case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden || status == fasthttp.StatusNotFound:
			return ErrUnauthorized
		case status < 200 || status >= 300:
			lastErr = fmt.Errorf("auth api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode auth response: %w", err)
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (r *HTTPResolver) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(r.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(1<<uint(attempt-1)) * 50 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
