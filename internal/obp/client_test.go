package obp

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memState is an in-memory SessionState for tests.
type memState struct {
	cred   Credential
	via    Origin
	clears int
}

func (m *memState) Credential() Credential { return m.cred }

func (m *memState) SetCredential(cred Credential, via Origin) {
	m.cred = cred
	m.via = via
}

func (m *memState) Clear() {
	m.cred = NoCredential()
	m.via = OriginNone
	m.clears++
}

// staticPersisted is a PersistedCredential returning a fixed result.
type staticPersisted struct {
	tok string
	ok  bool
}

func (s staticPersisted) Load() (string, bool) { return s.tok, s.ok }

// newTestClient wires a Client against the given httptest server with the
// default endpoint layout.
func newTestClient(t *testing.T, url string, state SessionState, persisted PersistedCredential) *Client {
	t.Helper()

	fetcher, err := NewDirectFetcher(url, nil)
	require.NoError(t, err)

	verifier := NewVerifier(fetcher, state, DefaultEndpoints(), persisted, slog.Default())

	return NewClient(fetcher, state, verifier, DefaultEndpoints(), slog.Default())
}

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
		assert.Equal(t, "no-cache", r.Header.Get("Pragma"))
		assert.NotEmpty(t, r.URL.Query().Get("_cb"))

		_, _ = w.Write([]byte(`[{"id":"b1"}]`))
	}))
	defer srv.Close()

	state := &memState{cred: BearerToken("tok-1"), via: OriginMemory}
	client := newTestClient(t, srv.URL, state, nil)

	raw, err := client.Get(context.Background(), "/api/banks")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"b1"}]`, string(raw))
}

func TestGet_DelegatedCredentialOmitsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	state := &memState{cred: CookieDelegated(), via: OriginProbe}
	client := newTestClient(t, srv.URL, state, nil)

	_, err := client.Get(context.Background(), "/api/banks")
	require.NoError(t, err)
}

func TestGet_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"server error", http.StatusInternalServerError, ErrServerError},
		{"bad gateway", http.StatusBadGateway, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			state := &memState{cred: BearerToken("tok")}
			client := newTestClient(t, srv.URL, state, nil)

			_, err := client.Get(context.Background(), "/api/banks")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestGet_Persistent401_RetriesExactlyOnce(t *testing.T) {
	var dataCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, _ *http.Request) {
		dataCalls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	// Recovery succeeds, so the gateway earns its single retry.
	mux.HandleFunc("/api/auth/verify", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"authenticated":true}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	state := &memState{cred: BearerToken("stale")}
	client := newTestClient(t, srv.URL, state, nil)

	_, err := client.Get(context.Background(), "/api/data")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	// One original attempt plus exactly one post-recovery retry.
	assert.Equal(t, 2, dataCalls)
	assert.GreaterOrEqual(t, state.clears, 1)
}

func TestGet_401ThenSuccessAfterRecovery(t *testing.T) {
	var dataCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, _ *http.Request) {
		dataCalls++
		if dataCalls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/api/auth/verify", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"authenticated":true}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	state := &memState{cred: BearerToken("stale")}
	client := newTestClient(t, srv.URL, state, nil)

	raw, err := client.Get(context.Background(), "/api/data")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, 2, dataCalls)
	assert.True(t, state.cred.Delegated())
}

func TestGet_401_NoRetryWhenRecoveryFails(t *testing.T) {
	var dataCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, _ *http.Request) {
		dataCalls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	// Every verification route rejects, so no retry budget is earned.
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	state := &memState{cred: BearerToken("stale")}
	client := newTestClient(t, srv.URL, state, nil)

	_, err := client.Get(context.Background(), "/api/data")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 1, dataCalls)
	assert.True(t, state.cred.IsZero())
}

func TestGet_EmptyCredentialProbesFirst(t *testing.T) {
	var order []string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/verify", func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "probe")
		_, _ = w.Write([]byte(`{"success":true,"authenticated":true}`))
	})
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "data")
		_, _ = w.Write([]byte(`{}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	state := &memState{}
	client := newTestClient(t, srv.URL, state, nil)

	_, err := client.Get(context.Background(), "/api/data")
	require.NoError(t, err)
	assert.Equal(t, []string{"probe", "data"}, order)
	assert.True(t, state.cred.Delegated())
}

func TestCacheBust(t *testing.T) {
	a := cacheBust("http://x/api/banks")
	b := cacheBust("http://x/api/banks")

	assert.Contains(t, a, "?_cb=")
	assert.NotEqual(t, a, b)

	withQuery := cacheBust("http://x/api/banks?limit=5")
	assert.Contains(t, withQuery, "&_cb=")
	assert.Equal(t, 1, strings.Count(withQuery, "?"))
}
