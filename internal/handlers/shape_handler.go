package handlers

import (
	"net/http"

	"gem-backend/internal/models"
	"gem-backend/pkg/utils"
)

type ShapeHandler struct {
	Service ShapeAPI
}

func NewShapeHandler(s ShapeAPI) *ShapeHandler {
	return &ShapeHandler{Service: s}
}

// List returns the tenant's shape master list, seeding it on first use.
func (h *ShapeHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	shapes, err := h.Service.List(r.Context(), actor)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	if shapes == nil {
		shapes = []*models.Shape{}
	}
	utils.JSON(w, http.StatusOK, shapes)
}
