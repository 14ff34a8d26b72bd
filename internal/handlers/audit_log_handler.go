package handlers

import (
	"net/http"

	"gem-backend/pkg/utils"
)

type AuditLogHandler struct {
	Service AuditAPI
}

func NewAuditLogHandler(s AuditAPI) *AuditLogHandler {
	return &AuditLogHandler{Service: s}
}

func (h *AuditLogHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	res, err := h.Service.List(r.Context(), actor, utils.ParsePage(r))
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}
