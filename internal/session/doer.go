package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/graphql"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
)

// AuthDoer is the authenticated transport handed to anything that talks to
// the backend on the user's behalf. A rejected or failed authenticated
// attempt clears the session and is re-issued exactly once without
// credentials, so expired tokens degrade to anonymous access.
type AuthDoer struct {
	m *Manager
}

var _ httpclient.Doer = (*AuthDoer)(nil)

// AuthDoer returns the manager's authenticated transport.
func (m *Manager) AuthDoer() *AuthDoer {
	return &AuthDoer{m: m}
}

// Do issues req, authenticated when a token is stored. The request body is
// buffered so the retry carries the identical payload.
func (d *AuthDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	m := d.m

	token, ok := m.AccessToken(ctx)
	if !ok {
		return m.base.Do(ctx, req)
	}

	req, err := replayable(req)
	if err != nil {
		return nil, err
	}

	first, err := attempt(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := m.sendWithToken(ctx, first, token)

	var reason string
	switch {
	case err != nil && !retryable(ctx, err):
		return nil, err
	case err != nil:
		reason = "transport"
	case resp.StatusCode == http.StatusUnauthorized:
		reason = "unauthorized"
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	default:
		return resp, nil
	}

	log := logger.WithContext(ctx, m.logger)
	log.WarnContext(ctx, "authenticated request failed, retrying",
		slog.String("reason", reason),
		logger.Token("access_token", token),
		logger.Err(err),
	)

	if reason == "unauthorized" && m.cfg.RefreshOnExpiry {
		fresh, refreshErr := m.exchangeRefreshToken(ctx, token)
		if refreshErr == nil {
			retry, err := attempt(ctx, req)
			if err != nil {
				return nil, err
			}
			authRetriesTotal.WithLabelValues("refreshed").Inc()
			return m.sendWithToken(ctx, retry, fresh)
		}
		log.InfoContext(ctx, "token refresh failed", logger.Err(refreshErr))
	}

	m.invalidate(ctx, token, reason)

	retry, err := attempt(ctx, req)
	if err != nil {
		return nil, err
	}
	authRetriesTotal.WithLabelValues("anonymous").Inc()
	return m.base.Do(ctx, retry)
}

// retryable reports whether a failed authenticated attempt should cost the
// session its tokens. A caller giving up, an open breaker, and a 5xx say
// nothing about the credential.
func retryable(ctx context.Context, err error) bool {
	var serverErr *httpclient.ServerError
	switch {
	case ctx.Err() != nil:
		return false
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return false
	case errors.As(err, &serverErr):
		return false
	default:
		return true
	}
}

// invalidate resets the session if token is still the stored one. A newer
// login that raced the failed request keeps its tokens.
func (m *Manager) invalidate(ctx context.Context, token, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.AccessToken(ctx)
	if ok && current != token {
		return
	}
	if err := m.resetLocked(ctx, reason); err != nil {
		logger.WithContext(ctx, m.logger).ErrorContext(ctx, "failed to clear rejected session",
			logger.Err(err),
		)
	}
}

// exchangeRefreshToken trades the stored refresh token for a new access token.
// Concurrent 401s for the same token share one exchange.
func (m *Manager) exchangeRefreshToken(ctx context.Context, rejected string) (string, error) {
	v, err, _ := m.flight.Do("token-refresh:"+rejected, func() (any, error) {
		refresh, ok := m.refreshToken(ctx)
		if !ok {
			return "", apperrors.Unauthorized("no refresh token stored")
		}

		var data graphql.TokenRefreshData
		err := m.anon.Do(ctx, graphql.Request{
			Query:         graphql.RefreshTokenMutation,
			OperationName: graphql.OpRefreshToken,
			Variables:     map[string]any{"refreshToken": refresh},
		}, &data)
		if err != nil {
			return "", fmt.Errorf("refresh token: %w", err)
		}
		payload := data.TokenRefresh
		if payload == nil || len(payload.Errors) > 0 || payload.Token == "" {
			msg := "refresh rejected"
			if payload != nil {
				msg = messageOr(graphql.FirstMessage(payload.Errors), msg)
			}
			return "", apperrors.Unauthorized(msg)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		current, _ := m.AccessToken(ctx)
		if current != rejected {
			return "", apperrors.Unauthorized("session changed during refresh")
		}
		if err := m.store.SetItem(ctx, storage.AccessTokenKey, payload.Token); err != nil {
			return "", fmt.Errorf("store refreshed access token: %w", err)
		}
		logger.WithContext(ctx, m.logger).InfoContext(ctx, "access token refreshed",
			logger.Token("access_token", payload.Token),
		)
		return payload.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// replayable returns req with a GetBody so it can be sent more than once.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	cpy := req.Clone(req.Context())
	cpy.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	cpy.Body, _ = cpy.GetBody()
	return cpy, nil
}

// attempt derives one send of req with a fresh body and no credentials.
func attempt(ctx context.Context, req *http.Request) (*http.Request, error) {
	out := req.Clone(ctx)
	out.Header.Del("Authorization")
	if req.GetBody != nil && req.Body != nil && req.Body != http.NoBody {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		out.Body = body
	}
	return out, nil
}
