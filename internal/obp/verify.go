package obp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// Verifier establishes session trust when no credential is held in memory.
// It never returns an error: network failures during probing degrade to
// "not authenticated" and are logged, not propagated.
type Verifier struct {
	fetcher   Fetcher
	state     SessionState
	endpoints Endpoints
	persisted PersistedCredential // may be nil
	logger    *slog.Logger
}

// NewVerifier creates a Verifier. persisted may be nil when no client-visible
// credential store exists.
func NewVerifier(fetcher Fetcher, state SessionState, endpoints Endpoints, persisted PersistedCredential, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &Verifier{
		fetcher:   fetcher,
		state:     state,
		endpoints: endpoints,
		persisted: persisted,
		logger:    logger,
	}
}

// Probe attempts to establish trust, in order:
//
//  1. read the client-visible credential store; if a live token is present,
//     adopt it and stop;
//  2. issue a credentialed probe against the "who am I" endpoint; on
//     success, adopt the cookie-delegated sentinel;
//  3. probe an unrelated authenticated resource, for deployments where the
//     probe route does not enforce authentication consistently.
//
// Every probe disables HTTP caching so the verdict is never stale.
func (v *Verifier) Probe(ctx context.Context) bool {
	if v.persisted != nil {
		if tok, ok := v.persisted.Load(); ok {
			v.logger.Debug("adopted persisted credential")
			v.state.SetCredential(BearerToken(tok), OriginCookie)

			return true
		}
	}

	if v.probeOnce(ctx, v.endpoints.Probe, true) {
		v.logger.Debug("session verified via probe endpoint")
		v.state.SetCredential(CookieDelegated(), OriginProbe)

		return true
	}

	if v.probeOnce(ctx, v.endpoints.Banks, false) {
		v.logger.Debug("session verified via secondary resource probe")
		v.state.SetCredential(CookieDelegated(), OriginProbe)

		return true
	}

	v.logger.Debug("session verification failed")

	return false
}

// Refresh issues the last-resort refresh probe. Used by the gateway only
// after normal recovery has failed.
func (v *Verifier) Refresh(ctx context.Context) bool {
	if !v.probeOnce(ctx, v.endpoints.Refresh, true) {
		return false
	}

	v.logger.Info("session refreshed via refresh endpoint")
	v.state.SetCredential(CookieDelegated(), OriginProbe)

	return true
}

// probeOnce issues one credentialed GET. When wantAuthFlag is set the body
// must decode to a ProbeResult reporting an authenticated session; otherwise
// any 2xx counts.
func (v *Verifier) probeOnce(ctx context.Context, path string, wantAuthFlag bool) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cacheBust(v.fetcher.BaseURL()+path), nil)
	if err != nil {
		v.logger.Warn("building probe request failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return false
	}

	setNoStore(req.Header)
	req.Header.Set("User-Agent", userAgent)

	resp, err := v.fetcher.Do(req)
	if err != nil {
		v.logger.Debug("probe request failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return false
	}

	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		v.logger.Debug("reading probe response failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return false
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		v.logger.Debug("probe returned non-2xx",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return false
	}

	if !wantAuthFlag {
		return true
	}

	var pr ProbeResult
	if err := json.Unmarshal(raw, &pr); err != nil {
		v.logger.Debug("probe response undecodable",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return false
	}

	return pr.Success && pr.Authenticated
}
