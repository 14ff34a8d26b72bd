package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"gem-backend/internal/models"
	"gem-backend/pkg/utils"
)

type CategoryHandler struct {
	Service    CategoryAPI
	RecycleBin RecycleBinAPI
}

func NewCategoryHandler(s CategoryAPI, bin RecycleBinAPI) *CategoryHandler {
	return &CategoryHandler{Service: s, RecycleBin: bin}
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req models.CreateCategoryRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	category, err := h.Service.Create(r.Context(), actor, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	categories, err := h.Service.List(r.Context(), actor)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	utils.JSON(w, http.StatusOK, categories)
}

// Delete moves the category to the recycle bin. Categories still used by
// live inventory are refused.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, mux.Vars(r))
	if !ok {
		return
	}

	entry, err := h.RecycleBin.DeleteCategory(r.Context(), actor, id)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, entry)
}
