package handlers

import (
	"net/http"

	"gem-backend/pkg/utils"
)

type DashboardHandler struct {
	Service DashboardAPI
}

func NewDashboardHandler(s DashboardAPI) *DashboardHandler {
	return &DashboardHandler{Service: s}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	stats, err := h.Service.Stats(r.Context(), actor)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, stats)
}
