package handlers

import (
	"net/http"
	"time"

	"pathway-engine/application/services"
	"pathway-engine/domain/core/entities"
	"pathway-engine/pkg/common"
	"pathway-engine/pkg/errors"
	"pathway-engine/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxKnowledgeBaseBytes = 4 << 20 // 4 MiB

// KnowledgeBaseHandler handles knowledge base HTTP requests
type KnowledgeBaseHandler struct {
	service *services.KnowledgeBaseService
	errors  *errors.ErrorHandler
	logger  *zap.Logger
}

// NewKnowledgeBaseHandler creates a knowledge base handler
func NewKnowledgeBaseHandler(service *services.KnowledgeBaseService, errorHandler *errors.ErrorHandler, logger *zap.Logger) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger,
	}
}

// CreateKnowledgeBaseRequest is the creation request body
type CreateKnowledgeBaseRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=120"`
	Description string   `json:"description" validate:"max=500"`
	Content     string   `json:"content" validate:"required,min=1"`
	Tags        []string `json:"tags" validate:"max=32,dive,min=1,max=64"`
}

// UpdateKnowledgeBaseRequest is the update request body. Empty content
// leaves the existing content in place; a nil tag list leaves tags alone.
type UpdateKnowledgeBaseRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags" validate:"omitempty,max=32,dive,min=1,max=64"`
}

// KnowledgeBaseResponse is the JSON form of a knowledge base
type KnowledgeBaseResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toKnowledgeBaseResponse(kb *entities.KnowledgeBase) KnowledgeBaseResponse {
	return KnowledgeBaseResponse{
		ID:          kb.ID().String(),
		Name:        kb.Name(),
		Description: kb.Description(),
		Content:     kb.Content(),
		Tags:        kb.Tags(),
		CreatedAt:   kb.CreatedAt(),
		UpdatedAt:   kb.UpdatedAt(),
	}
}

// CreateKnowledgeBase handles POST /knowledge-bases
func (h *KnowledgeBaseHandler) CreateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var req CreateKnowledgeBaseRequest
	if err := common.ParseJSONBody(r, &req, maxKnowledgeBaseBytes); err != nil {
		h.errors.Handle(w, r, errors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	kb, err := h.service.Create(r.Context(), req.Name, req.Description, req.Content, req.Tags)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, toKnowledgeBaseResponse(kb))
}

// GetKnowledgeBase handles GET /knowledge-bases/{kbID}
func (h *KnowledgeBaseHandler) GetKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	kb, err := h.service.Get(r.Context(), chi.URLParam(r, "kbID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toKnowledgeBaseResponse(kb))
}

// ListKnowledgeBases handles GET /knowledge-bases
func (h *KnowledgeBaseHandler) ListKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	kbs, err := h.service.List(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	out := make([]KnowledgeBaseResponse, 0, len(kbs))
	for _, kb := range kbs {
		out = append(out, toKnowledgeBaseResponse(kb))
	}
	common.RespondJSON(w, http.StatusOK, out)
}

// GetRemoteKnowledgeBase handles GET /knowledge-bases/{kbID}/remote
func (h *KnowledgeBaseHandler) GetRemoteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	resource, err := h.service.GetRemote(r.Context(), chi.URLParam(r, "kbID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"remote_id":   resource.RemoteID,
		"name":        resource.Name,
		"description": resource.Description,
		"content":     resource.Content,
	})
}

// UpdateKnowledgeBase handles PUT /knowledge-bases/{kbID}
func (h *KnowledgeBaseHandler) UpdateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var req UpdateKnowledgeBaseRequest
	if err := common.ParseJSONBody(r, &req, maxKnowledgeBaseBytes); err != nil {
		h.errors.Handle(w, r, errors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	kb, err := h.service.Update(r.Context(), chi.URLParam(r, "kbID"), req.Content, req.Tags)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toKnowledgeBaseResponse(kb))
}

// DeleteKnowledgeBase handles DELETE /knowledge-bases/{kbID}. Every pathway
// referencing the knowledge base is detached on the runtime before the
// remote resource goes away.
func (h *KnowledgeBaseHandler) DeleteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	kbID := chi.URLParam(r, "kbID")
	if err := h.service.Delete(r.Context(), kbID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.logger.Info("knowledge base deleted via api", zap.String("kbID", kbID))
	w.WriteHeader(http.StatusNoContent)
}
