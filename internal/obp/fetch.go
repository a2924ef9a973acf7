package obp

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// defaultTimeout bounds every request so a hung upstream cannot block the
// caller indefinitely.
const defaultTimeout = 30 * time.Second

// Fetcher sends HTTP requests to the banking backend. Two implementations
// exist, selected once at construction instead of branching on environment
// inside the request path:
//
//   - ProxyFetcher targets the dashboard's own proxy routes and carries a
//     cookie jar, so http-only session cookies flow on every request.
//   - DirectFetcher targets the upstream API directly and relies solely on
//     bearer tokens.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
	BaseURL() string
}

// ProxyFetcher talks to the dashboard proxy with cookie forwarding.
type ProxyFetcher struct {
	base string
	hc   *http.Client
}

// NewProxyFetcher builds a ProxyFetcher with a fresh cookie jar.
// base must be non-empty; ErrNoBaseURL otherwise.
func NewProxyFetcher(base string, timeout time.Duration) (*ProxyFetcher, error) {
	if base == "" {
		return nil, ErrNoBaseURL
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("obp: creating cookie jar: %w", err)
	}

	return &ProxyFetcher{
		base: base,
		hc:   &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

func (f *ProxyFetcher) Do(req *http.Request) (*http.Response, error) { return f.hc.Do(req) }
func (f *ProxyFetcher) BaseURL() string                              { return f.base }

// DirectFetcher talks to the upstream API without a cookie jar.
type DirectFetcher struct {
	base string
	hc   *http.Client
}

// NewDirectFetcher builds a DirectFetcher. base must be non-empty;
// ErrNoBaseURL otherwise. hc may be nil, in which case a client with the
// default timeout is used.
func NewDirectFetcher(base string, hc *http.Client) (*DirectFetcher, error) {
	if base == "" {
		return nil, ErrNoBaseURL
	}

	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	return &DirectFetcher{base: base, hc: hc}, nil
}

func (f *DirectFetcher) Do(req *http.Request) (*http.Response, error) { return f.hc.Do(req) }
func (f *DirectFetcher) BaseURL() string                              { return f.base }
