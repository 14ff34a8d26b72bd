package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gem-backend/internal/models"
	"gem-backend/pkg/utils"
)

type InvoiceHandler struct {
	Service InvoiceAPI
}

func NewInvoiceHandler(s InvoiceAPI) *InvoiceHandler {
	return &InvoiceHandler{Service: s}
}

// Create bills a set of sales.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req models.CreateInvoiceRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	inv, err := h.Service.Create(r.Context(), actor, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	f := models.InvoiceFilter{
		Status: models.InvoiceStatus(r.URL.Query().Get("status")),
		Page:   utils.ParsePage(r),
	}

	res, err := h.Service.List(r.Context(), actor, f)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.Service.Get)
}

// Update edits the terms of an unlocked invoice.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, mux.Vars(r))
	if !ok {
		return
	}
	var req models.UpdateInvoiceRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	inv, err := h.Service.Update(r.Context(), actor, id, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.Service.Lock)
}

func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.Service.MarkPaid)
}

func (h *InvoiceHandler) byID(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error)) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, mux.Vars(r))
	if !ok {
		return
	}

	inv, err := op(r.Context(), actor, id)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, inv)
}
