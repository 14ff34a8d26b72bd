package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"gem-backend/internal/models"
	"gem-backend/pkg/utils"
)

type InventoryHandler struct {
	Service    InventoryAPI
	RecycleBin RecycleBinAPI
}

func NewInventoryHandler(s InventoryAPI, bin RecycleBinAPI) *InventoryHandler {
	return &InventoryHandler{Service: s, RecycleBin: bin}
}

func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := models.InventoryFilter{
		Status: models.Status(q.Get("status")),
		Search: q.Get("search"),
		Page:   utils.ParsePage(r),
	}
	if raw := q.Get("category_id"); raw != "" {
		id, err := utils.ParseUUID(raw, "category_id")
		if err != nil {
			utils.Error(w, r, err)
			return
		}
		f.CategoryID = &id
	}

	res, err := h.Service.List(r.Context(), actor, f)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req models.CreateInventoryRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	item, err := h.Service.Create(r.Context(), actor, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, item)
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, mux.Vars(r))
	if !ok {
		return
	}

	item, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, item)
}

// UpdateStatus approves an item or puts it on hold.
func (h *InventoryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, mux.Vars(r))
	if !ok {
		return
	}
	var req models.UpdateStatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	item, err := h.Service.SetBaseStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, item)
}

// Delete moves the item to the recycle bin.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, mux.Vars(r))
	if !ok {
		return
	}

	entry, err := h.RecycleBin.DeleteItem(r.Context(), actor, id)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, entry)
}
