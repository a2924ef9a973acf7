package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkoivisto/bankdash/internal/credfile"
	"github.com/mkoivisto/bankdash/internal/obp"
	bdsync "github.com/mkoivisto/bankdash/internal/sync"
)

// ErrLoginRequired signals that no credential source could establish a
// session and the caller should direct the user to log in.
var ErrLoginRequired = errors.New("session: login required")

// Syncer runs data synchronization cycles. Implemented by *sync.Orchestrator;
// mock implementations are used in tests.
type Syncer interface {
	Sync(ctx context.Context, bankHint string) (*bdsync.Result, error)
	Reset()
}

// CacheInvalidator clears the resource cache. Implemented by cache.Memory
// and cache.DB.
type CacheInvalidator interface {
	InvalidateAll() error
}

// Controller is the session lifecycle entry point: Initialize on application
// start, Login for explicit credential exchange, Logout for full local and
// remote invalidation.
type Controller struct {
	store    *Store
	verifier *obp.Verifier
	client   *obp.Client
	cache    CacheInvalidator
	syncer   Syncer
	dir      string
	logger   *slog.Logger
	nowFunc  func() time.Time
}

// ControllerConfig holds the collaborators a Controller needs.
type ControllerConfig struct {
	Store    *Store
	Verifier *obp.Verifier
	Client   *obp.Client
	Cache    CacheInvalidator
	Syncer   Syncer
	DataDir  string
	Logger   *slog.Logger
}

// NewController wires a Controller from its collaborators.
func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		store:    cfg.Store,
		verifier: cfg.Verifier,
		client:   cfg.Client,
		cache:    cfg.Cache,
		syncer:   cfg.Syncer,
		dir:      cfg.DataDir,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Initialize decides whether the user is authenticated and, if so, runs a
// sync cycle. A set logged-out marker short-circuits to ErrLoginRequired
// without probing, so a still-valid server-side cookie cannot silently
// re-authenticate a user who signed out.
func (c *Controller) Initialize(ctx context.Context) (*bdsync.Result, error) {
	f, err := credfile.Load(credfile.Path(c.dir))
	if err != nil {
		c.logger.Warn("reading credential file failed",
			slog.String("error", err.Error()),
		)
	}

	if f != nil && f.LoggedOut {
		c.logger.Info("logged-out marker set, skipping session verification")
		return nil, ErrLoginRequired
	}

	switch {
	case f.HasLiveToken(c.nowFunc()):
		c.logger.Debug("adopting persisted credential")
		c.store.SetCredential(obp.BearerToken(f.Token), obp.OriginCookie)
	case c.verifier.Probe(ctx):
		// Probe adopted the cookie-delegated state.
	default:
		return nil, ErrLoginRequired
	}

	res, syncErr := c.syncer.Sync(ctx, "")
	if syncErr != nil {
		if errors.Is(syncErr, obp.ErrNotAuthenticated) {
			c.store.Clear()
			return nil, ErrLoginRequired
		}

		return nil, syncErr
	}

	return res, nil
}

// Login exchanges credentials for a bearer token and stores it. The store
// write doubles as the local fallback: even if the upstream failed to set
// its cookie, the credential file reflects the new token afterward.
// Login does not trigger a sync; sequencing is left to the caller.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	tok, err := c.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("session: login: %w", err)
	}

	c.store.SetCredential(obp.BearerToken(tok), obp.OriginMemory)

	if err := credfile.SetLoggedOut(c.dir, false); err != nil {
		c.logger.Warn("clearing logged-out marker failed",
			slog.String("error", err.Error()),
		)
	}

	if err := credfile.SetLastUsername(c.dir, username); err != nil {
		c.logger.Warn("recording last username failed",
			slog.String("error", err.Error()),
		)
	}

	c.logger.Info("login successful")

	return nil
}

// Logout performs full local and remote credential invalidation. Local
// state is torn down first so in-flight consumers stop reading authenticated
// data; the remote call is best-effort and never blocks cleanup.
func (c *Controller) Logout(ctx context.Context) error {
	if c.syncer != nil {
		c.syncer.Reset()
	}

	if c.cache != nil {
		if err := c.cache.InvalidateAll(); err != nil {
			c.logger.Warn("cache invalidation failed",
				slog.String("error", err.Error()),
			)
		}
	}

	c.store.Clear()

	if err := c.client.Logout(ctx); err != nil {
		c.logger.Warn("remote logout failed, local state already cleared",
			slog.String("error", err.Error()),
		)
	}

	if err := credfile.SetLoggedOut(c.dir, true); err != nil {
		return fmt.Errorf("session: setting logged-out marker: %w", err)
	}

	c.logger.Info("logout complete")

	return nil
}

// LastUsername returns the last-used username recorded at login, for
// display only.
func (c *Controller) LastUsername() string {
	f, err := credfile.Load(credfile.Path(c.dir))
	if err != nil || f == nil {
		return ""
	}

	return f.LastUsername
}
