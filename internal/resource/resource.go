// Package resource is the descriptor-driven REST layer for the simple
// entities: each collection declares its URL name, permitted operations,
// filter whitelist and construction hooks, and gets uniform routing, decoding
// and error mapping. Entities with bespoke behavior (members, memberships)
// have their own handlers.
package resource

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"memberd/internal/platform/middleware"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/platform/httputil"
	"memberd/pkg/requestcontext"
)

// Op is a bitmask of the operations a resource exposes.
type Op uint8

const (
	OpList Op = 1 << iota
	OpCreate
	OpGet
	OpPatch
)

// ReadWrite is the full operation set.
const ReadWrite = OpList | OpCreate | OpGet | OpPatch

// ReadCreate omits patching.
const ReadCreate = OpList | OpCreate | OpGet

// Store is the persistence contract a resource needs.
type Store[T any] interface {
	Insert(ctx context.Context, obj T) error
	Get(ctx context.Context, id uuid.UUID) (T, error)
	List(ctx context.Context, filters map[string]string) ([]T, error)
	Update(ctx context.Context, obj T) error
}

// Descriptor declares one resource. New builds a validated object from a
// request body; Apply folds a patch body into an existing object. Either hook
// may be nil when the corresponding operation is not declared.
type Descriptor[T any] struct {
	Name       string
	Operations Op
	Filterable []string

	New   func(ctx context.Context, body json.RawMessage, now time.Time) (T, error)
	Apply func(ctx context.Context, existing T, body json.RawMessage, now time.Time) (T, error)
}

// Handler serves one resource collection.
type Handler[T any] struct {
	desc   Descriptor[T]
	store  Store[T]
	logger *slog.Logger
}

func NewHandler[T any](desc Descriptor[T], store Store[T], logger *slog.Logger) *Handler[T] {
	return &Handler[T]{desc: desc, store: store, logger: logger}
}

// Register mounts the declared operations under /<name>/. Every route
// requires an authenticated caller.
func (h *Handler[T]) Register(r chi.Router) {
	base := "/" + h.desc.Name + "/"
	item := base + "{resourceID}/"

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.logger))
		if h.desc.Operations&OpList != 0 {
			r.Get(base, h.handleList)
		}
		if h.desc.Operations&OpCreate != 0 {
			r.Post(base, h.handleCreate)
		}
		if h.desc.Operations&OpGet != 0 {
			r.Get(item, h.handleGet)
		}
		if h.desc.Operations&OpPatch != 0 {
			r.Patch(item, h.handlePatch)
		}
	})
}

func (h *Handler[T]) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := make(map[string]string)
	for _, field := range h.desc.Filterable {
		if value := r.URL.Query().Get(field); value != "" {
			filters[field] = value
		}
	}

	items, err := h.store.List(ctx, filters)
	if err != nil {
		h.logError(ctx, "list failed", err)
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	obj, err := h.desc.New(ctx, body, requestcontext.Now(ctx))
	if err != nil {
		h.logError(ctx, "create rejected", err)
		httputil.WriteError(w, err)
		return
	}
	if err := h.store.Insert(ctx, obj); err != nil {
		h.logError(ctx, "create failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, obj)
}

func (h *Handler[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "resourceID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "invalid %s id", h.desc.Name))
		return
	}

	obj, err := h.store.Get(ctx, id)
	if err != nil {
		h.logError(ctx, "get failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, obj)
}

func (h *Handler[T]) handlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "resourceID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "invalid %s id", h.desc.Name))
		return
	}

	existing, err := h.store.Get(ctx, id)
	if err != nil {
		h.logError(ctx, "patch failed", err)
		httputil.WriteError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	obj, err := h.desc.Apply(ctx, existing, body, requestcontext.Now(ctx))
	if err != nil {
		h.logError(ctx, "patch rejected", err)
		httputil.WriteError(w, err)
		return
	}
	if err := h.store.Update(ctx, obj); err != nil {
		h.logError(ctx, "patch failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, obj)
}

func (h *Handler[T]) logError(ctx context.Context, msg string, err error) {
	logFn := h.logger.WarnContext
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		logFn = h.logger.ErrorContext
	}
	logFn(ctx, msg,
		"resource", h.desc.Name,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
