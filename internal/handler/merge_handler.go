package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/thatlq1812/identity-service/internal/domain"
)

// DuplicateScanner is the scanner surface the handler needs
type DuplicateScanner interface {
	ScanDuplicates(ctx context.Context, wsID string, scope domain.ScanScope) ([]domain.DuplicateGroup, error)
}

// MergePreviewer is the previewer surface the handler needs
type MergePreviewer interface {
	PreviewMerge(ctx context.Context, wsID, keepID, deleteID string) (*domain.MergePreview, error)
	PreviewBulkMerge(ctx context.Context, wsID string, pairs []domain.MergePair) (*domain.BulkMergePreview, error)
}

// MergeExecutor is the executor surface the handler needs
type MergeExecutor interface {
	ExecuteMerge(ctx context.Context, req domain.MergeRequest) (*domain.MergeResult, error)
}

// BulkMergeCoordinator is the coordinator surface the handler needs
type BulkMergeCoordinator interface {
	ExecuteBulkMerge(ctx context.Context, wsID string, pairs []domain.MergePair, balance domain.BalanceStrategy, actor string) (*domain.BulkMergeResult, error)
}

// MergeHandler exposes the workspace-scoped merge operations over HTTP.
// Authorization is the caller's responsibility, not the core's.
type MergeHandler struct {
	scanner     DuplicateScanner
	previewer   MergePreviewer
	executor    MergeExecutor
	coordinator BulkMergeCoordinator
	logger      *zap.Logger
}

// NewMergeHandler creates a new handler instance
func NewMergeHandler(scanner DuplicateScanner, previewer MergePreviewer, executor MergeExecutor, coordinator BulkMergeCoordinator, logger *zap.Logger) *MergeHandler {
	return &MergeHandler{
		scanner:     scanner,
		previewer:   previewer,
		executor:    executor,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Register mounts the merge routes on r.
func (h *MergeHandler) Register(r chi.Router) {
	r.Route("/v1/workspaces/{wsID}/users", func(r chi.Router) {
		r.Get("/duplicates", h.scanDuplicates)
		r.Post("/merge/preview", h.previewMerge)
		r.Post("/merge/preview/bulk", h.previewBulkMerge)
		r.Post("/merge", h.executeMerge)
		r.Post("/merge/bulk", h.executeBulkMerge)
	})
}

type previewMergeRequest struct {
	KeepUserID   string `json:"keepUserId"`
	DeleteUserID string `json:"deleteUserId"`
}

type executeMergeRequest struct {
	KeepUserID      string                 `json:"keepUserId"`
	DeleteUserID    string                 `json:"deleteUserId"`
	FieldStrategy   map[string]string      `json:"fieldStrategy"`
	BalanceStrategy domain.BalanceStrategy `json:"balanceStrategy"`
}

type bulkPairsRequest struct {
	Pairs []domain.MergePair `json:"pairs"`
}

type executeBulkMergeRequest struct {
	Pairs           []domain.MergePair     `json:"pairs"`
	BalanceStrategy domain.BalanceStrategy `json:"balanceStrategy"`
}

func (h *MergeHandler) scanDuplicates(w http.ResponseWriter, r *http.Request) {
	scope := domain.ScanScope(r.URL.Query().Get("field"))
	if scope == "" {
		scope = domain.ScanAll
	}

	groups, err := h.scanner.ScanDuplicates(r.Context(), chi.URLParam(r, "wsID"), scope)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *MergeHandler) previewMerge(w http.ResponseWriter, r *http.Request) {
	var req previewMergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, badRequest(err))
		return
	}

	preview, err := h.previewer.PreviewMerge(r.Context(), chi.URLParam(r, "wsID"), req.KeepUserID, req.DeleteUserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, preview)
}

func (h *MergeHandler) previewBulkMerge(w http.ResponseWriter, r *http.Request) {
	var req bulkPairsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, badRequest(err))
		return
	}

	preview, err := h.previewer.PreviewBulkMerge(r.Context(), chi.URLParam(r, "wsID"), req.Pairs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, preview)
}

func (h *MergeHandler) executeMerge(w http.ResponseWriter, r *http.Request) {
	var req executeMergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, badRequest(err))
		return
	}

	fields := make(domain.FieldStrategy, len(req.FieldStrategy))
	for name, choice := range req.FieldStrategy {
		fields[domain.MergeField(name)] = domain.FieldChoice(choice)
	}
	balance := req.BalanceStrategy
	if balance == "" {
		balance = domain.BalanceKeep
	}

	result, err := h.executor.ExecuteMerge(r.Context(), domain.MergeRequest{
		WorkspaceID:     chi.URLParam(r, "wsID"),
		KeepUserID:      req.KeepUserID,
		DeleteUserID:    req.DeleteUserID,
		FieldStrategy:   fields,
		BalanceStrategy: balance,
		Actor:           actor(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *MergeHandler) executeBulkMerge(w http.ResponseWriter, r *http.Request) {
	var req executeBulkMergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, badRequest(err))
		return
	}
	balance := req.BalanceStrategy
	if balance == "" {
		balance = domain.BalanceKeep
	}

	result, err := h.coordinator.ExecuteBulkMerge(r.Context(), chi.URLParam(r, "wsID"), req.Pairs, balance, actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// actor identifies who asked for the merge; the upstream gateway fills the
// header after authenticating the caller.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor-Id"); a != "" {
		return a
	}
	return "unknown"
}

func badRequest(err error) error {
	return errors.Join(domain.ErrInvalidInput, err)
}

func (h *MergeHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError maps domain errors to HTTP status codes
func (h *MergeHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrConstraintViolation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTransient):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	h.writeJSON(w, status, map[string]string{"message": err.Error()})
}
