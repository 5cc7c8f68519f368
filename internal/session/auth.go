package session

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/graphql"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/tracing"
	"github.com/utafrali/storefront/pkg/validator"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges credentials for a token pair. On success the tokens are
// stored and the returned identity is cached. Rejections are reported in the
// result, never as an error.
func (m *Manager) Login(ctx context.Context, email, password string) domain.AuthResult {
	ctx, span := tracing.Tracer("session").Start(ctx, "session.Login")
	defer span.End()
	log := logger.WithContext(ctx, m.logger)

	if res, ok := m.admit(ctx, "login", email, password); !ok {
		span.SetAttributes(attribute.Bool("session.success", false))
		return res
	}

	var data graphql.TokenCreateData
	err := m.anon.Do(ctx, graphql.Request{
		Query:         graphql.LoginMutation,
		OperationName: graphql.OpLogin,
		Variables:     map[string]any{"email": email, "password": password},
	}, &data)
	if res, failed := m.requestFailure(ctx, "login", err, MsgLoginFailed); failed {
		tracing.Fail(span, err)
		return res
	}

	payload := data.TokenCreate
	if payload != nil && len(payload.Errors) > 0 {
		authAttemptsTotal.WithLabelValues("login", outcomeRejected).Inc()
		return domain.AuthResult{Error: messageOr(graphql.FirstMessage(payload.Errors), MsgLoginFailed)}
	}
	if payload == nil || payload.Token == "" || payload.RefreshToken == "" {
		authAttemptsTotal.WithLabelValues("login", outcomeRejected).Inc()
		return domain.AuthResult{Error: MsgInvalidCredentials}
	}

	m.mu.Lock()
	if err := m.setTokensLocked(ctx, payload.Token, payload.RefreshToken); err != nil {
		m.mu.Unlock()
		authAttemptsTotal.WithLabelValues("login", outcomeStorage).Inc()
		log.ErrorContext(ctx, "failed to persist session tokens", logger.Err(err))
		tracing.Fail(span, err)
		return domain.AuthResult{Error: MsgLoginFailed}
	}
	m.setUser(payload.User)
	m.mu.Unlock()

	authAttemptsTotal.WithLabelValues("login", outcomeSuccess).Inc()
	attrs := []any{logger.Token("access_token", payload.Token)}
	if payload.User != nil {
		attrs = append(attrs, slog.String("user_id", payload.User.ID))
	}
	log.InfoContext(ctx, "user signed in", attrs...)
	span.SetAttributes(attribute.Bool("session.success", true))
	return domain.AuthResult{Success: true}
}

// Signup registers an account. It does not sign the user in.
func (m *Manager) Signup(ctx context.Context, email, password string) domain.AuthResult {
	ctx, span := tracing.Tracer("session").Start(ctx, "session.Signup")
	defer span.End()

	if res, ok := m.admit(ctx, "signup", email, password); !ok {
		return res
	}

	var data graphql.AccountRegisterData
	err := m.anon.Do(ctx, graphql.Request{
		Query:         graphql.SignUpMutation,
		OperationName: graphql.OpSignUp,
		Variables: map[string]any{
			"email":       email,
			"password":    password,
			"redirectUrl": m.cfg.SignupRedirectURL,
		},
	}, &data)
	if res, failed := m.requestFailure(ctx, "signup", err, MsgSignupFailed); failed {
		tracing.Fail(span, err)
		return res
	}

	payload := data.AccountRegister
	if payload == nil {
		authAttemptsTotal.WithLabelValues("signup", outcomeRejected).Inc()
		return domain.AuthResult{Error: MsgSignupFailed}
	}
	if len(payload.Errors) > 0 {
		authAttemptsTotal.WithLabelValues("signup", outcomeRejected).Inc()
		return domain.AuthResult{Error: messageOr(graphql.FirstMessage(payload.Errors), MsgSignupFailed)}
	}
	if payload.User == nil {
		authAttemptsTotal.WithLabelValues("signup", outcomeRejected).Inc()
		return domain.AuthResult{Error: MsgSignupFailed}
	}

	authAttemptsTotal.WithLabelValues("signup", outcomeSuccess).Inc()
	logger.WithContext(ctx, m.logger).InfoContext(ctx, "account registered")
	return domain.AuthResult{Success: true}
}

// admit validates credentials and applies the attempt throttle before any
// network call is made.
func (m *Manager) admit(ctx context.Context, flow, email, password string) (domain.AuthResult, bool) {
	if err := validator.Validate(credentials{Email: email, Password: password}); err != nil {
		authAttemptsTotal.WithLabelValues(flow, outcomeInvalid).Inc()
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			return domain.AuthResult{Error: verr.First()}, false
		}
		return domain.AuthResult{Error: err.Error()}, false
	}
	if !m.limiter.Allow() {
		authAttemptsTotal.WithLabelValues(flow, outcomeThrottled).Inc()
		logger.WithContext(ctx, m.logger).WarnContext(ctx, "auth attempt throttled",
			slog.String("flow", flow),
		)
		return domain.AuthResult{Error: MsgTooManyAttempts}, false
	}
	return domain.AuthResult{}, true
}

// requestFailure maps a GraphQL round-trip error to a result. A top-level
// errors list carries a user-facing message; anything else is a network
// problem from the user's point of view.
func (m *Manager) requestFailure(ctx context.Context, flow string, err error, fallback string) (domain.AuthResult, bool) {
	if err == nil {
		return domain.AuthResult{}, false
	}
	var gqlErrs graphql.Errors
	if errors.As(err, &gqlErrs) {
		authAttemptsTotal.WithLabelValues(flow, outcomeRejected).Inc()
		return domain.AuthResult{Error: messageOr(gqlErrs.First(), fallback)}, true
	}
	authAttemptsTotal.WithLabelValues(flow, outcomeNetwork).Inc()
	logger.WithContext(ctx, m.logger).ErrorContext(ctx, "auth request failed",
		slog.String("flow", flow),
		logger.Err(err),
	)
	return domain.AuthResult{Error: MsgNetworkError}, true
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// Logout clears the token pair and the cached identity. Storage failures are
// logged; the identity is cleared regardless.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	err := m.resetLocked(ctx, "logout")
	m.mu.Unlock()

	log := logger.WithContext(ctx, m.logger)
	if err != nil {
		log.ErrorContext(ctx, "failed to clear session storage on logout", logger.Err(err))
		return
	}
	log.InfoContext(ctx, "user signed out")
}

// RefreshUser reloads the signed-in user's identity. Any failure, including a
// null identity, clears the cached user. Concurrent calls share one request,
// which is not cancelled when the caller that started it goes away.
func (m *Manager) RefreshUser(ctx context.Context) {
	shared := context.WithoutCancel(ctx)
	_, _, _ = m.flight.Do("current-user", func() (any, error) {
		m.refreshUser(shared)
		return nil, nil
	})
}

func (m *Manager) refreshUser(ctx context.Context) {
	log := logger.WithContext(ctx, m.logger)
	gen := m.gen.Load()

	var (
		data graphql.MeData
		err  error
	)
	authenticated := m.IsAuthenticated(ctx)
	if authenticated {
		err = m.authed.Do(ctx, graphql.Request{
			Query:         graphql.CurrentUserQuery,
			OperationName: graphql.OpCurrentUser,
		}, &data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen.Load() != gen {
		// Tokens changed while the request was in flight; whoever changed
		// them owns the identity now.
		identityRefreshesTotal.WithLabelValues("superseded").Inc()
		return
	}

	switch {
	case !authenticated:
		m.setUser(nil)
		identityRefreshesTotal.WithLabelValues("anonymous").Inc()
	case err != nil:
		m.setUser(nil)
		identityRefreshesTotal.WithLabelValues("error").Inc()
		log.WarnContext(ctx, "failed to refresh current user", logger.Err(err))
	case data.Me == nil:
		m.setUser(nil)
		identityRefreshesTotal.WithLabelValues("missing").Inc()
		log.InfoContext(ctx, "backend returned no current user")
	default:
		m.setUser(data.Me)
		identityRefreshesTotal.WithLabelValues(outcomeSuccess).Inc()
	}
}
