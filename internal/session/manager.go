// Package session owns the client's authentication state: the persisted token
// pair, the cached identity of the signed-in user, and the authenticated
// transport every backend call goes through.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/graphql"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
)

// User-facing messages. Backend-supplied messages are passed through verbatim
// and only fall back to these.
const (
	MsgLoginFailed        = "Login failed"
	MsgSignupFailed       = "Sign up failed"
	MsgInvalidCredentials = "Invalid credentials"
	MsgNetworkError       = "Network error. Please try again."
	MsgTooManyAttempts    = "Too many attempts. Please wait a moment and try again."
)

// DefaultSignupRedirectURL is where account confirmation links point.
const DefaultSignupRedirectURL = "app://account"

// Config tunes a Manager.
type Config struct {
	// Endpoint is the GraphQL URL; empty selects graphql.DefaultEndpoint.
	Endpoint string

	SignupRedirectURL string

	// RefreshOnExpiry makes the transport try a tokenRefresh exchange before
	// dropping to an anonymous retry on 401.
	RefreshOnExpiry bool

	// LoginRate and LoginBurst throttle Login and Signup together. A zero
	// LoginRate disables throttling.
	LoginRate  float64
	LoginBurst int
}

// Manager is the single owner of the persisted token pair and the cached
// identity. It is safe for concurrent use.
type Manager struct {
	cfg     Config
	store   storage.SecureStorage
	base    httpclient.Doer
	anon    *graphql.Client
	authed  *graphql.Client
	logger  *slog.Logger
	limiter *rate.Limiter
	flight  singleflight.Group

	// mu serializes session mutations. It is never held across a network call.
	mu sync.Mutex
	// gen changes on every token write or reset; in-flight identity fetches
	// compare it before publishing their result.
	gen atomic.Uint64

	userMu sync.RWMutex
	user   *domain.User
}

// NewManager creates a Manager that persists tokens in store and talks to the
// backend through base. base must not itself attach credentials.
func NewManager(cfg Config, store storage.SecureStorage, base httpclient.Doer, logger *slog.Logger) *Manager {
	if cfg.SignupRedirectURL == "" {
		cfg.SignupRedirectURL = DefaultSignupRedirectURL
	}

	limit := rate.Inf
	if cfg.LoginRate > 0 {
		limit = rate.Limit(cfg.LoginRate)
	}
	burst := cfg.LoginBurst
	if burst < 1 {
		burst = 1
	}

	m := &Manager{
		cfg:     cfg,
		store:   store,
		base:    base,
		logger:  logger,
		limiter: rate.NewLimiter(limit, burst),
	}
	m.anon = graphql.New(cfg.Endpoint, base, logger)
	m.authed = m.anon.WithDoer(httpclient.DoerFunc(m.FetchWithAuth))
	return m
}

// Endpoint returns the GraphQL URL the manager talks to.
func (m *Manager) Endpoint() string { return m.anon.Endpoint() }

// IsAuthenticated reports whether a non-empty access token is stored.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, ok := m.AccessToken(ctx)
	return ok
}

// AccessToken returns the stored access token. A storage failure is logged
// and reported as no token.
func (m *Manager) AccessToken(ctx context.Context) (string, bool) {
	token, ok, err := m.store.GetItem(ctx, storage.AccessTokenKey)
	if err != nil {
		logger.WithContext(ctx, m.logger).WarnContext(ctx, "failed to read access token",
			logger.Err(err),
		)
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func (m *Manager) refreshToken(ctx context.Context) (string, bool) {
	token, ok, err := m.store.GetItem(ctx, storage.RefreshTokenKey)
	if err != nil {
		logger.WithContext(ctx, m.logger).WarnContext(ctx, "failed to read refresh token",
			logger.Err(err),
		)
		return "", false
	}
	return token, ok && token != ""
}

// SetTokens persists both tokens, overwriting any previous pair. If the
// refresh token cannot be written the access token write is undone, so a
// failed call never leaves a new access token next to a stale refresh token.
func (m *Manager) SetTokens(ctx context.Context, access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setTokensLocked(ctx, access, refresh)
}

func (m *Manager) setTokensLocked(ctx context.Context, access, refresh string) error {
	if access == "" || refresh == "" {
		return apperrors.InvalidInput("access and refresh tokens are required")
	}

	prev, hadPrev, _ := m.store.GetItem(ctx, storage.AccessTokenKey)

	if err := m.store.SetItem(ctx, storage.AccessTokenKey, access); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := m.store.SetItem(ctx, storage.RefreshTokenKey, refresh); err != nil {
		var rollbackErr error
		if hadPrev {
			rollbackErr = m.store.SetItem(ctx, storage.AccessTokenKey, prev)
		} else {
			rollbackErr = m.store.RemoveItem(ctx, storage.AccessTokenKey)
		}
		if rollbackErr != nil {
			logger.WithContext(ctx, m.logger).ErrorContext(ctx, "failed to roll back access token",
				logger.Err(rollbackErr),
			)
		}
		m.gen.Add(1)
		return fmt.Errorf("store refresh token: %w", err)
	}

	m.gen.Add(1)
	logger.WithContext(ctx, m.logger).DebugContext(ctx, "session tokens stored",
		logger.Token("access_token", access),
	)
	return nil
}

// ResetTokens removes both tokens and the cached identity. Both removals are
// attempted even when the first fails; failures are joined.
func (m *Manager) ResetTokens(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetLocked(ctx, "reset")
}

func (m *Manager) resetLocked(ctx context.Context, reason string) error {
	errAccess := m.store.RemoveItem(ctx, storage.AccessTokenKey)
	errRefresh := m.store.RemoveItem(ctx, storage.RefreshTokenKey)
	m.gen.Add(1)
	m.setUser(nil)
	tokenResetsTotal.WithLabelValues(reason).Inc()

	if errAccess != nil {
		errAccess = fmt.Errorf("remove access token: %w", errAccess)
	}
	if errRefresh != nil {
		errRefresh = fmt.Errorf("remove refresh token: %w", errRefresh)
	}
	return errors.Join(errAccess, errRefresh)
}

// FetchWithAuth issues req through the base transport, attaching the stored
// access token as a bearer credential when there is one. The response is
// returned as-is; status codes are not interpreted. req itself is not modified.
func (m *Manager) FetchWithAuth(ctx context.Context, req *http.Request) (*http.Response, error) {
	token, ok := m.AccessToken(ctx)
	if !ok {
		return m.base.Do(ctx, req)
	}
	return m.sendWithToken(ctx, req, token)
}

func (m *Manager) sendWithToken(ctx context.Context, req *http.Request, token string) (*http.Response, error) {
	authed := req.Clone(ctx)
	authed.Header.Set("Authorization", "Bearer "+token)
	return m.base.Do(ctx, authed)
}

// CurrentUser returns the cached identity of the signed-in user.
func (m *Manager) CurrentUser() (domain.User, bool) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()
	if m.user == nil {
		return domain.User{}, false
	}
	return *m.user, true
}

func (m *Manager) setUser(u *domain.User) {
	m.userMu.Lock()
	defer m.userMu.Unlock()
	if u == nil {
		m.user = nil
		return
	}
	cpy := *u
	m.user = &cpy
}

// Snapshot returns the session as the UI renders it.
func (m *Manager) Snapshot(ctx context.Context) domain.Session {
	var s domain.Session
	token, ok := m.AccessToken(ctx)
	if !ok {
		return s
	}
	s.Authenticated = true
	if u, ok := m.CurrentUser(); ok {
		s.User = &u
	}
	if exp, ok := tokenExpiry(token); ok {
		s.AccessTokenExpiresAt = &exp
	}
	return s
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend remains the only judge of validity.
func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.UTC(), true
}
