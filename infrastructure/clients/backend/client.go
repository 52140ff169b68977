package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/sync/singleflight"

	"postbridge/domain/model"
	"postbridge/infrastructure/logger"
)

// SessionSource is the slice of the session store the pipeline needs.
type SessionSource interface {
	Load() *model.Session
	UpdateTokens(tokens model.AuthTokens, userOverride ...*model.AuthUser)
	Clear()
}

// Client wraps every outgoing backend call: it attaches the current
// credential, detects expiry, and coalesces concurrent refresh attempts into
// a single network round trip.
type Client struct {
	base     string
	http     *http.Client
	sessions SessionSource
	refresh  singleflight.Group
}

func NewClient(base string, sessions SessionSource, timeout time.Duration) *Client {
	return &Client{
		base:     strings.TrimSuffix(base, "/"),
		http:     &http.Client{Timeout: timeout},
		sessions: sessions,
	}
}

// Do issues a JSON request and decodes a 2xx body into out (out may be nil).
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	_, err := c.DoWithHeaders(ctx, method, path, nil, body, out)
	return err
}

// DoQuery is Do with query parameters appended to the path.
func (c *Client) DoQuery(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	_, err := c.DoWithHeaders(ctx, method, path, query, body, out)
	return err
}

// DoWithHeaders additionally exposes the response headers of a successful
// call (the resend endpoints return their cooldown in Retry-After).
func (c *Client) DoWithHeaders(ctx context.Context, method, path string, query url.Values, body, out interface{}) (http.Header, error) {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		payload = raw
	}

	resp, err := c.send(ctx, method, path, query, payload, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode response body: %w", err)
		}
	}
	return resp.Header, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, retried bool) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, query, payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	apiErr := decodeAPIError(resp)
	resp.Body.Close()

	if apiErr.IsAuthExpired() && !retried && c.refreshable(path) {
		// One refresh, one re-issue. A second 401 propagates.
		if refreshErr := c.refreshTokens(ctx); refreshErr != nil {
			c.sessions.Clear()
			return nil, fmt.Errorf("%w: %v", model.ErrSessionInvalidated, apiErr)
		}
		return c.send(ctx, method, path, query, payload, true)
	}

	return nil, apiErr
}

// refreshable reports whether a 401 on this path may be repaired by a token
// refresh. Credential bootstrap endpoints answer 401 for their own reasons
// (wrong password, revoked refresh token) and must propagate as-is.
func (c *Client) refreshable(path string) bool {
	switch path {
	case "/auth/login", "/auth/register", "/auth/refresh":
		return false
	}
	return c.sessions.Load() != nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Request, error) {
	target := c.base + path
	if len(query) > 0 {
		target = target + "?" + query.Encode()
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if req.Header.Get("Authorization") == "" {
		if session := c.sessions.Load(); session != nil {
			tokenType := session.Tokens.TokenType
			if tokenType == "" {
				tokenType = "Bearer"
			}
			req.Header.Set("Authorization", fmt.Sprintf("%s %s", tokenType, session.Tokens.AccessToken))
			if expiresSoon(session.Tokens.AccessToken) {
				logger.GetLogger().WithField("path", path).Debug("access token near expiry")
			}
		}
	}
	return req, nil
}

// refreshTokens coalesces concurrent refresh attempts: however many requests
// fail with 401 at once, the refresh endpoint is called at most once and all
// waiters share its outcome. The refresh runs on a context detached from the
// triggering request: its outcome is shared by every waiter, so one caller
// disconnecting must not fail the flight and log everyone out. The http
// client's timeout still bounds the call.
func (c *Client) refreshTokens(ctx context.Context) error {
	refreshCtx := context.WithoutCancel(ctx)
	_, err, _ := c.refresh.Do("refresh", func() (interface{}, error) {
		session := c.sessions.Load()
		if session == nil {
			return nil, model.ErrNoSession
		}
		body := map[string]string{}
		if session.Tokens.RefreshToken != "" {
			body["refreshToken"] = session.Tokens.RefreshToken
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err := c.newRequest(refreshCtx, http.MethodPost, "/auth/refresh", nil, payload)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, decodeAPIError(resp)
		}
		var auth model.AuthResponse
		if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
			return nil, fmt.Errorf("decode refresh response: %w", err)
		}
		// Refresh rotates only the credential half of the session.
		c.sessions.UpdateTokens(auth.Tokens)
		return nil, nil
	})
	return err
}

func decodeAPIError(resp *http.Response) *model.APIError {
	apiErr := &model.APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if len(raw) > 0 {
		var body struct {
			ErrorCode         string  `json:"errorCode"`
			Message           string  `json:"message"`
			Detail            string  `json:"detail"`
			RetryAfterSeconds float64 `json:"retryAfterSeconds"`
		}
		if err := json.Unmarshal(raw, &body); err == nil {
			apiErr.ErrorCode = body.ErrorCode
			apiErr.Message = body.Message
			apiErr.Detail = body.Detail
			apiErr.RetryAfterSeconds = body.RetryAfterSeconds
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
	}
	if apiErr.RetryAfterSeconds == 0 {
		if secs, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			apiErr.RetryAfterSeconds = secs
		}
	}
	return apiErr
}

// parseRetryAfter handles both forms the header allows: delta-seconds and an
// HTTP-date.
func parseRetryAfter(v string) (float64, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return secs, true
	}
	if at, err := http.ParseTime(v); err == nil {
		secs := time.Until(at).Seconds()
		if secs < 0 {
			secs = 0
		}
		return secs, true
	}
	return 0, false
}

// expiresSoon peeks at the access token's exp claim without verifying the
// signature; only the backend can verify, this is purely diagnostic.
func expiresSoon(accessToken string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(accessToken, claims); err != nil {
		return false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return time.Until(time.Unix(int64(exp), 0)) < 30*time.Second
}

// RetryAfterHeader reads a cooldown hint from response headers.
func RetryAfterHeader(h http.Header) time.Duration {
	if secs, ok := parseRetryAfter(h.Get("Retry-After")); ok && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}
