package handlers

import (
	"net/http"
	"time"

	"pathway-engine/application/ports"
	"pathway-engine/pkg/common"
	"pathway-engine/pkg/errors"

	"go.uber.org/zap"
)

// SyncHandler exposes sync bookkeeping: orphan candidates flagged during
// failed runs. Candidates are surfaced for manual review, never deleted
// here.
type SyncHandler struct {
	links  ports.LinkRepository
	errors *errors.ErrorHandler
	logger *zap.Logger
}

// NewSyncHandler creates a sync handler
func NewSyncHandler(links ports.LinkRepository, errorHandler *errors.ErrorHandler, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		links:  links,
		errors: errorHandler,
		logger: logger,
	}
}

// OrphanCandidateResponse is the JSON form of an orphan candidate
type OrphanCandidateResponse struct {
	ResourceID string    `json:"resource_id"`
	Kind       string    `json:"kind"`
	Reason     string    `json:"reason,omitempty"`
	MarkedAt   time.Time `json:"marked_at"`
}

// ListOrphanCandidates handles GET /sync/orphan-candidates
func (h *SyncHandler) ListOrphanCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.links.ListOrphanCandidates(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	out := make([]OrphanCandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, OrphanCandidateResponse{
			ResourceID: c.ResourceID,
			Kind:       string(c.Kind),
			Reason:     c.Reason,
			MarkedAt:   c.MarkedAt,
		})
	}
	common.RespondJSON(w, http.StatusOK, out)
}
