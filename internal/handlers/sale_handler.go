package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"gem-backend/internal/models"
	"gem-backend/pkg/utils"
)

type SaleHandler struct {
	Service SaleAPI
}

func NewSaleHandler(s SaleAPI) *SaleHandler {
	return &SaleHandler{Service: s}
}

// Create commits a line sale.
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req models.CreateSaleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	sale, err := h.Service.Sell(r.Context(), actor, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, sale)
}

// CreateFull sells everything left on an item.
func (h *SaleHandler) CreateFull(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req models.FullSaleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	sale, err := h.Service.SellFullItem(r.Context(), actor, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, sale)
}

func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	f := models.SaleFilter{
		IncludeCancelled: utils.ParseBool(r, "include_cancelled"),
		Page:             utils.ParsePage(r),
	}
	if raw := r.URL.Query().Get("inventory_id"); raw != "" {
		id, err := utils.ParseUUID(raw, "inventory_id")
		if err != nil {
			utils.Error(w, r, err)
			return
		}
		f.InventoryID = &id
	}

	res, err := h.Service.List(r.Context(), actor, f)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, mux.Vars(r))
	if !ok {
		return
	}

	sale, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, sale)
}

// Undo cancels a sale. The body is optional.
func (h *SaleHandler) Undo(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, mux.Vars(r))
	if !ok {
		return
	}
	var req models.UndoSaleRequest
	if err := utils.DecodeOptionalJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	sale, err := h.Service.Undo(r.Context(), actor, id, req.Reason)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, sale)
}
