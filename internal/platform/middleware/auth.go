package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"memberd/pkg/requestcontext"
)

// JWTValidator validates session tokens minted by the identity front door.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	MemberID uuid.UUID
}

// CredentialVerifier checks a per-member API key and resolves its owner.
type CredentialVerifier interface {
	VerifyKey(ctx context.Context, key string) (uuid.UUID, error)
}

// Authorizer is the pluggable authorization contract point. The default
// deployment permits everything; production installs a real check here
// without touching handler logic.
type Authorizer interface {
	Authorize(r *http.Request, memberID uuid.UUID) error
}

// PermitAll is the reference Authorizer: no authorization enforced.
type PermitAll struct{}

func (PermitAll) Authorize(*http.Request, uuid.UUID) error { return nil }

const (
	apiKeyHeader = "Api-Key"
	bearerPrefix = "Bearer "
)

// Authenticate resolves the caller's identity from either a session JWT
// (Authorization: Bearer) or a member API credential (Api-Key header) and
// stores the member ID in the request context. Requests without credentials
// proceed anonymously; presented-but-invalid credentials are rejected.
func Authenticate(validator JWTValidator, verifier CredentialVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if key := r.Header.Get(apiKeyHeader); key != "" && verifier != nil {
				memberID, err := verifier.VerifyKey(ctx, key)
				if err != nil {
					unauthorized(w, ctx, logger, "invalid API credential", err)
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithMemberID(ctx, memberID)))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(authHeader, bearerPrefix); ok && validator != nil {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					unauthorized(w, ctx, logger, "invalid or expired token", err)
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithMemberID(ctx, claims.MemberID)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Authorize consults the installed Authorizer for every request.
func Authorize(authz Authorizer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if err := authz.Authorize(r, requestcontext.MemberID(ctx)); err != nil {
				logger.WarnContext(ctx, "request rejected by authorizer",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
					"error", err,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that reached a protected route without an
// authenticated member. Runs after Authenticate.
func RequireAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requestcontext.MemberID(r.Context()) == uuid.Nil {
				unauthorized(w, r.Context(), logger, "authentication required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetMemberID retrieves the authenticated member ID from the context,
// uuid.Nil for anonymous callers.
func GetMemberID(ctx context.Context) uuid.UUID {
	return requestcontext.MemberID(ctx)
}

func unauthorized(w http.ResponseWriter, ctx context.Context, logger *slog.Logger, description string, err error) {
	logger.WarnContext(ctx, "unauthorized access",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
