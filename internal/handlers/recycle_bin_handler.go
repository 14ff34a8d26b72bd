package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
	"gem-backend/pkg/utils"
)

type RecycleBinHandler struct {
	Service RecycleBinAPI
}

func NewRecycleBinHandler(s RecycleBinAPI) *RecycleBinHandler {
	return &RecycleBinHandler{Service: s}
}

func (h *RecycleBinHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	f := models.RecycleBinFilter{
		EntityType: models.EntityType(r.URL.Query().Get("entity_type")),
		Page:       utils.ParsePage(r),
	}
	if f.EntityType != "" && !f.EntityType.Valid() {
		utils.Error(w, r, apperrors.Validation("invalid entity_type").
			WithDetail("entity_type", string(f.EntityType)))
		return
	}

	res, err := h.Service.List(r.Context(), actor, f)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *RecycleBinHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, h.Service.Restore)
}

func (h *RecycleBinHandler) Purge(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, h.Service.Purge)
}

// Empty purges every entry of the tenant.
func (h *RecycleBinHandler) Empty(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	res, err := h.Service.Empty(r.Context(), actor)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

type batchFunc func(ctx context.Context, actor models.Actor, ids []uuid.UUID) (*models.RecycleBinResult, error)

func (h *RecycleBinHandler) batch(w http.ResponseWriter, r *http.Request, fn batchFunc) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req models.RecycleBinIDsRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	res, err := fn(r.Context(), actor, req.IDs)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}
