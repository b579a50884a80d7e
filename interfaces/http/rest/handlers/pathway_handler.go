package handlers

import (
	"net/http"

	"pathway-engine/application/builder"
	"pathway-engine/application/services"
	"pathway-engine/domain/core/aggregates"
	appsync "pathway-engine/application/sync"
	"pathway-engine/pkg/common"
	"pathway-engine/pkg/errors"
	"pathway-engine/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxDocumentBytes = 1 << 20 // 1 MiB

// PathwayHandler handles pathway HTTP requests
type PathwayHandler struct {
	service *services.PathwayService
	errors  *errors.ErrorHandler
	logger  *zap.Logger
}

// NewPathwayHandler creates a pathway handler
func NewPathwayHandler(service *services.PathwayService, errorHandler *errors.ErrorHandler, logger *zap.Logger) *PathwayHandler {
	return &PathwayHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger,
	}
}

// BuildPathwayRequest is the build-and-sync request body
type BuildPathwayRequest struct {
	Name     string                   `json:"name" validate:"required,min=1,max=120"`
	Document builder.AnalysisDocument `json:"document" validate:"required"`
}

// BuildPathwayResponse reports a completed build-and-sync run
type BuildPathwayResponse struct {
	PathwayID      string           `json:"pathway_id"`
	RemoteID       string           `json:"remote_id"`
	Outcome        appsync.Outcome  `json:"outcome"`
	Checksum       string           `json:"checksum"`
	KnowledgeBases []string         `json:"knowledge_bases,omitempty"`
	Stats          aggregates.Stats `json:"stats"`
}

// BuildPathway handles POST /pathways
func (h *PathwayHandler) BuildPathway(w http.ResponseWriter, r *http.Request) {
	var req BuildPathwayRequest
	if err := common.ParseJSONBody(r, &req, maxDocumentBytes); err != nil {
		h.errors.Handle(w, r, errors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.service.BuildAndSync(r.Context(), req.Document, req.Name)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, BuildPathwayResponse{
		PathwayID:      result.Sync.PathwayID,
		RemoteID:       result.Sync.RemoteID,
		Outcome:        result.Sync.Outcome,
		Checksum:       result.Sync.Checksum,
		KnowledgeBases: result.Sync.KnowledgeBases,
		Stats:          result.Pathway.Stats(),
	})
}

// ListPathways handles GET /pathways
func (h *PathwayHandler) ListPathways(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListPathways(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	type entry struct {
		RemoteID    string `json:"remote_id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		NodeCount   int    `json:"node_count"`
	}
	out := make([]entry, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, entry{
			RemoteID:    s.RemoteID,
			Name:        s.Name,
			Description: s.Description,
			NodeCount:   s.NodeCount,
		})
	}
	common.RespondJSON(w, http.StatusOK, out)
}

// GetPathwayStats handles GET /pathways/{remoteID}/stats
func (h *PathwayHandler) GetPathwayStats(w http.ResponseWriter, r *http.Request) {
	remoteID := chi.URLParam(r, "remoteID")
	if remoteID == "" {
		h.errors.Handle(w, r, errors.NewValidationError("pathway id is required"))
		return
	}

	stats, err := h.service.GetPathwayStats(r.Context(), remoteID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, stats)
}
