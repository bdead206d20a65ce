// Package handler exposes membership types and memberships over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"memberd/internal/membership"
	"memberd/internal/membership/service"
	"memberd/internal/platform/middleware"
	"memberd/pkg/domain"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/platform/httputil"
	"memberd/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service defines the membership operations the HTTP layer needs.
type Service interface {
	CreateType(ctx context.Context, req service.CreateTypeRequest) (*membership.MembershipType, error)
	UpdateType(ctx context.Context, id uuid.UUID, patch service.TypePatch) (*membership.MembershipType, error)
	GetType(ctx context.Context, id uuid.UUID) (*membership.MembershipType, error)
	ListTypes(ctx context.Context) ([]*membership.MembershipType, error)
	Create(ctx context.Context, req service.CreateRequest) (*membership.Membership, error)
	Get(ctx context.Context, id uuid.UUID) (*membership.Membership, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*membership.Membership, error)
	ExpiryOf(ctx context.Context, m *membership.Membership) (domain.Date, bool, error)
}

// Handler handles membership endpoints.
type Handler struct {
	memberships Service
	logger      *slog.Logger
}

func New(memberships Service, logger *slog.Logger) *Handler {
	return &Handler{memberships: memberships, logger: logger}
}

// Register mounts the membership routes. All of them require authentication.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.logger))

		r.Get("/membershiptype/", h.handleListTypes)
		r.Post("/membershiptype/", h.handleCreateType)
		r.Get("/membershiptype/{typeID}/", h.handleGetType)
		r.Patch("/membershiptype/{typeID}/", h.handleUpdateType)

		r.Get("/membership/", h.handleList)
		r.Post("/membership/", h.handleCreate)
		r.Get("/membership/{membershipID}/", h.handleGet)
	})
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.CreateTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	t, err := h.memberships.CreateType(ctx, req)
	if err != nil {
		h.logError(ctx, "create membership type failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleUpdateType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "typeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid membership type id"))
		return
	}

	var patch service.TypePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	t, err := h.memberships.UpdateType(ctx, id, patch)
	if err != nil {
		h.logError(ctx, "update membership type failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleGetType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "typeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid membership type id"))
		return
	}

	t, err := h.memberships.GetType(ctx, id)
	if err != nil {
		h.logError(ctx, "get membership type failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	types, err := h.memberships.ListTypes(ctx)
	if err != nil {
		h.logError(ctx, "list membership types failed", err)
		httputil.WriteError(w, err)
		return
	}
	if types == nil {
		types = []*membership.MembershipType{}
	}
	httputil.WriteJSON(w, http.StatusOK, types)
}

// membershipResponse augments the stored membership with its computed expiry.
// Perpetual types omit the field.
type membershipResponse struct {
	*membership.Membership
	Expires *domain.Date `json:"expires,omitempty"`
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, status int, m *membership.Membership) {
	expiry, expires, err := h.memberships.ExpiryOf(ctx, m)
	if err != nil {
		h.logError(ctx, "compute membership expiry failed", err)
		httputil.WriteError(w, err)
		return
	}
	resp := membershipResponse{Membership: m}
	if expires {
		resp.Expires = &expiry
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.MemberID == uuid.Nil {
		// Self purchase.
		req.MemberID = middleware.GetMemberID(ctx)
	}

	m, err := h.memberships.Create(ctx, req)
	if err != nil {
		h.logError(ctx, "create membership failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.respond(ctx, w, http.StatusCreated, m)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "membershipID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid membership id"))
		return
	}

	m, err := h.memberships.Get(ctx, id)
	if err != nil {
		h.logError(ctx, "get membership failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.respond(ctx, w, http.StatusOK, m)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	memberID := middleware.GetMemberID(ctx)
	if raw := r.URL.Query().Get("member_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid member id"))
			return
		}
		memberID = id
	}

	memberships, err := h.memberships.ListByMember(ctx, memberID)
	if err != nil {
		h.logError(ctx, "list memberships failed", err)
		httputil.WriteError(w, err)
		return
	}

	out := make([]membershipResponse, 0, len(memberships))
	for _, m := range memberships {
		expiry, expires, err := h.memberships.ExpiryOf(ctx, m)
		if err != nil {
			h.logError(ctx, "compute membership expiry failed", err)
			httputil.WriteError(w, err)
			return
		}
		resp := membershipResponse{Membership: m}
		if expires {
			e := expiry
			resp.Expires = &e
		}
		out = append(out, resp)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
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
