// Package session implements the session store and the lifecycle controller
// that decides, from available credential sources, whether the user is
// authenticated.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mkoivisto/bankdash/internal/credfile"
	"github.com/mkoivisto/bankdash/internal/obp"
)

// Store holds the current credential and mirrors real bearer tokens into the
// client-visible credential file. It implements obp.SessionState.
//
// File I/O failures are logged and swallowed: the in-memory state stays
// authoritative for the lifetime of the process.
type Store struct {
	mu     sync.Mutex
	cred   obp.Credential
	via    obp.Origin
	dir    string // data directory for the credential file; "" = memory only
	logger *slog.Logger

	// nowFunc returns the current time. Tests override this.
	nowFunc func() time.Time
}

// NewStore creates a Store persisting to the credential file under dir.
// An empty dir disables persistence.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		via:     obp.OriginNone,
		dir:     dir,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Credential returns the currently held credential.
func (s *Store) Credential() obp.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cred
}

// Via reports how the current session state was established.
func (s *Store) Via() obp.Origin {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.via
}

// HasCredential reports whether a non-empty credential is held in memory.
func (s *Store) HasCredential() bool {
	return !s.Credential().IsZero()
}

// SetCredential replaces the held credential. Real bearer tokens are
// persisted with a 7-day expiry; the cookie-delegated sentinel is held in
// memory only (the actual credential lives in an http-only cookie).
// Setting NoCredential is equivalent to Clear.
func (s *Store) SetCredential(cred obp.Credential, via obp.Origin) {
	if cred.IsZero() {
		s.Clear()
		return
	}

	s.mu.Lock()
	s.cred = cred
	s.via = via
	s.mu.Unlock()

	if tok, ok := cred.Token(); ok && s.dir != "" {
		if err := credfile.WriteToken(s.dir, tok, s.nowFunc()); err != nil {
			s.logger.Warn("persisting credential failed, keeping in-memory state",
				slog.String("error", err.Error()),
			)
		}
	}
}

// Clear drops the in-memory credential and removes the persisted token under
// all known path variants.
func (s *Store) Clear() {
	s.mu.Lock()
	s.cred = obp.NoCredential()
	s.via = obp.OriginNone
	s.mu.Unlock()

	if s.dir == "" {
		return
	}

	if err := credfile.ClearToken(s.dir); err != nil {
		s.logger.Warn("clearing persisted credential failed",
			slog.String("error", err.Error()),
		)
	}
}

// FileCredential reads the client-visible credential file for the verifier.
// It implements obp.PersistedCredential. A set logged-out marker suppresses
// adoption even when a live token is still on disk.
type FileCredential struct {
	dir     string
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewFileCredential creates a FileCredential reading from dir.
func NewFileCredential(dir string, logger *slog.Logger) *FileCredential {
	if logger == nil {
		logger = slog.Default()
	}

	return &FileCredential{dir: dir, logger: logger, nowFunc: time.Now}
}

// Load returns the persisted bearer token if one is live and the user has
// not explicitly logged out.
func (f *FileCredential) Load() (string, bool) {
	if f.dir == "" {
		return "", false
	}

	cf, err := credfile.Load(credfile.Path(f.dir))
	if err != nil {
		f.logger.Warn("reading credential file failed",
			slog.String("error", err.Error()),
		)

		return "", false
	}

	if cf == nil || cf.LoggedOut || !cf.HasLiveToken(f.nowFunc()) {
		return "", false
	}

	return cf.Token, true
}
