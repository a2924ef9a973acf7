package obp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const userAgent = "bankdash/0.1"

// Client is the authenticated request gateway. Every outbound call gets
// cache-busting, no-store headers, credential attachment, and a bounded
// 401 recovery sequence: invalidate, re-verify, retry the original request
// exactly once.
type Client struct {
	fetcher   Fetcher
	state     SessionState
	verifier  *Verifier
	endpoints Endpoints
	logger    *slog.Logger
}

// NewClient creates a gateway. fetcher, state, and verifier must be non-nil.
func NewClient(fetcher Fetcher, state SessionState, verifier *Verifier, endpoints Endpoints, logger *slog.Logger) *Client {
	if fetcher == nil || state == nil || verifier == nil {
		panic("obp: NewClient requires fetcher, state, and verifier")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		fetcher:   fetcher,
		state:     state,
		verifier:  verifier,
		endpoints: endpoints,
		logger:    logger,
	}
}

// Endpoints returns the path layout the client was built with.
func (c *Client) Endpoints() Endpoints { return c.endpoints }

// Get issues an authenticated GET and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, path, nil, false)
}

// Post issues an authenticated POST with a JSON body and returns the raw
// JSON response body.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.request(ctx, http.MethodPost, path, body, false)
}

// request is the single request path. recovered tracks whether the 401
// recovery sequence has already run for this logical call; it bounds the
// retry budget to exactly one recovery attempt.
func (c *Client) request(ctx context.Context, method, path string, body any, recovered bool) (json.RawMessage, error) {
	// Empty-handed: try to establish trust once before the first attempt.
	if c.state.Credential().IsZero() && !recovered {
		c.verifier.Probe(ctx)
	}

	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, fmt.Errorf("obp: %s %s: %w", method, path, err)
	}

	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("obp: %s %s: reading response: %w", method, path, readErr)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return c.recover(ctx, method, path, body, recovered, raw)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	c.logger.Debug("request succeeded",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	return json.RawMessage(raw), nil
}

// recover handles a 401: clear held state, re-verify, and retry once.
// If re-verification fails, one last-resort refresh probe is attempted
// before giving up. Never recurses more than one level deep.
func (c *Client) recover(ctx context.Context, method, path string, body any, recovered bool, respBody []byte) (json.RawMessage, error) {
	if recovered {
		return nil, &APIError{
			StatusCode: http.StatusUnauthorized,
			Body:       string(respBody),
			Err:        ErrNotAuthenticated,
		}
	}

	c.logger.Warn("request unauthorized, attempting session recovery",
		slog.String("method", method),
		slog.String("path", path),
	)

	c.state.Clear()

	if c.verifier.Probe(ctx) {
		return c.request(ctx, method, path, body, true)
	}

	if c.verifier.Refresh(ctx) {
		return c.request(ctx, method, path, body, true)
	}

	return nil, &APIError{
		StatusCode: http.StatusUnauthorized,
		Body:       string(respBody),
		Err:        ErrNotAuthenticated,
	}
}

// send performs a single HTTP exchange with credential attachment and
// anti-caching applied.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rdr io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, cacheBust(c.fetcher.BaseURL()+path), rdr)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	setNoStore(req.Header)
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Authorization only for a real token. The CookieDelegated sentinel
	// relies on the fetcher's cookie jar instead.
	if tok, ok := c.state.Credential().Token(); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	return c.fetcher.Do(req)
}

// cacheBust appends a random nonce so intermediaries never serve a stale
// authentication verdict or stale banking data.
func cacheBust(u string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}

	return u + sep + "_cb=" + uuid.NewString()
}

// setNoStore disables HTTP caching on both modern and legacy intermediaries.
func setNoStore(h http.Header) {
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
}
