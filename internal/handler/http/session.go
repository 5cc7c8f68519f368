package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// SessionService is the part of the session manager the local API drives.
type SessionService interface {
	Login(ctx context.Context, email, password string) domain.AuthResult
	Signup(ctx context.Context, email, password string) domain.AuthResult
	Logout(ctx context.Context)
	RefreshUser(ctx context.Context)
	Snapshot(ctx context.Context) domain.Session
	IsAuthenticated(ctx context.Context) bool
	CurrentUser() (domain.User, bool)
}

var _ SessionService = (*session.Manager)(nil)

// SessionHandler handles HTTP requests for session endpoints.
type SessionHandler struct {
	session SessionService
	logger  *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(svc SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{session: svc, logger: logger}
}

// CredentialsRequest is the JSON body for login and signup. Field rules are
// enforced by the session manager so the UI gets its usual messages.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse reports the outcome of login or signup along with the
// resulting session.
type AuthResponse struct {
	domain.AuthResult
	Session domain.Session `json:"session"`
}

// Login handles POST /api/v1/session/login. Failures are reported in the
// body with 200; only malformed requests get an error status.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	res := h.session.Login(r.Context(), req.Email, req.Password)
	httputil.WriteData(w, http.StatusOK, AuthResponse{AuthResult: res, Session: h.session.Snapshot(r.Context())})
}

// Signup handles POST /api/v1/session/signup. It never signs the user in.
func (h *SessionHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	res := h.session.Signup(r.Context(), req.Email, req.Password)
	httputil.WriteData(w, http.StatusOK, AuthResponse{AuthResult: res, Session: h.session.Snapshot(r.Context())})
}

// Logout handles POST /api/v1/session/logout.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Logout(r.Context())
	httputil.WriteData(w, http.StatusOK, h.session.Snapshot(r.Context()))
}

// Refresh handles POST /api/v1/session/refresh.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.session.RefreshUser(r.Context())
	httputil.WriteData(w, http.StatusOK, h.session.Snapshot(r.Context()))
}

// Get handles GET /api/v1/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.session.Snapshot(r.Context()))
}

// currentUserID feeds middleware.RequestLogger.
func currentUserID(svc SessionService) func(context.Context) (string, bool) {
	return func(context.Context) (string, bool) {
		u, ok := svc.CurrentUser()
		return u.ID, ok
	}
}
