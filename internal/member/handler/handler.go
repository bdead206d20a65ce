// Package handler exposes the member collection over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"memberd/internal/member"
	"memberd/internal/member/service"
	"memberd/internal/platform/middleware"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/platform/httputil"
	"memberd/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service defines the member operations the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, req service.CreateRequest) (*member.Member, string, error)
	Get(ctx context.Context, id uuid.UUID) (*member.Member, error)
	List(ctx context.Context, filters map[string]string) ([]*member.Member, error)
	Update(ctx context.Context, id uuid.UUID, patch service.Patch) (*member.Member, error)
	RotateCredential(ctx context.Context, memberID uuid.UUID) (string, error)
}

// Handler handles member endpoints.
type Handler struct {
	members Service
	logger  *slog.Logger
}

func New(members Service, logger *slog.Logger) *Handler {
	return &Handler{members: members, logger: logger}
}

// Register mounts the member routes. Registration is open; everything else
// requires an authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/member/", h.handleCreate)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.logger))
		r.Get("/member/", h.handleList)
		r.Get("/me/", h.handleMe)
		r.Get("/member/me/", h.handleMe)
		r.Post("/member/me/rotate-key/", h.handleRotateKey)
		r.Get("/member/{memberID}/", h.handleGet)
		r.Patch("/member/{memberID}/", h.handleUpdate)
	})
}

// createResponse is the one place the raw API key ever appears.
type createResponse struct {
	*member.Member
	APIKey string `json:"api_key"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	m, apiKey, err := h.members.Create(ctx, req)
	if err != nil {
		h.logError(ctx, "create member failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createResponse{Member: m, APIKey: apiKey})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := make(map[string]string)
	for _, field := range member.FilterableFields() {
		if value := r.URL.Query().Get(field); value != "" {
			filters[field] = value
		}
	}

	members, err := h.members.List(ctx, filters)
	if err != nil {
		h.logError(ctx, "list members failed", err)
		httputil.WriteError(w, err)
		return
	}
	if members == nil {
		members = []*member.Member{}
	}
	httputil.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid member id"))
		return
	}

	m, err := h.members.Get(ctx, id)
	if err != nil {
		h.logError(ctx, "get member failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	m, err := h.members.Get(ctx, middleware.GetMemberID(ctx))
	if err != nil {
		h.logError(ctx, "get current member failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid member id"))
		return
	}

	var patch service.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	m, err := h.members.Update(ctx, id, patch)
	if err != nil {
		h.logError(ctx, "update member failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

// rotateKeyResponse carries a freshly rotated API key.
type rotateKeyResponse struct {
	APIKey string `json:"api_key"`
}

func (h *Handler) handleRotateKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, err := h.members.RotateCredential(ctx, middleware.GetMemberID(ctx))
	if err != nil {
		h.logError(ctx, "rotate credential failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rotateKeyResponse{APIKey: key})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
