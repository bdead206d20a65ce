// Package auth exposes the password login endpoint that trades member
// credentials for a session token.
package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"memberd/internal/jwt_token"
	"memberd/internal/member"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/platform/httputil"
	"memberd/pkg/requestcontext"
)

// defaultSessionTTL bounds how long a login session stays valid.
const defaultSessionTTL = 24 * time.Hour

// Authenticator checks a username/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*member.Member, error)
}

// Handler handles the login endpoint.
type Handler struct {
	members    Authenticator
	tokens     *jwttoken.JWTService
	lockout    *Lockout
	sessionTTL time.Duration
	logger     *slog.Logger
}

func New(members Authenticator, tokens *jwttoken.JWTService, logger *slog.Logger) *Handler {
	return &Handler{
		members:    members,
		tokens:     tokens,
		lockout:    NewLockout(),
		sessionTTL: defaultSessionTTL,
		logger:     logger,
	}
}

// Register mounts the login route. It is necessarily unauthenticated.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login/", h.handleLogin)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "username and password are required"))
		return
	}

	if !h.lockout.Allowed(ctx, req.Username) {
		h.logger.WarnContext(ctx, "login throttled",
			"request_id", requestcontext.RequestID(ctx),
			"username", req.Username,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeTooManyRequests, "too many failed login attempts"))
		return
	}

	m, err := h.members.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		h.lockout.RecordFailure(ctx, req.Username)
		h.logger.WarnContext(ctx, "login rejected",
			"request_id", requestcontext.RequestID(ctx),
			"username", req.Username,
		)
		httputil.WriteError(w, err)
		return
	}
	h.lockout.RecordSuccess(ctx, req.Username)

	token, err := h.tokens.GenerateSessionToken(m.ID, h.sessionTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "session token generation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not create session"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.sessionTTL),
	})
}
