package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"gem-backend/internal/logger"
	"gem-backend/internal/models"
	"gem-backend/pkg/utils"
)

type AuthHandler struct {
	Service UserAPI
}

func NewAuthHandler(s UserAPI) *AuthHandler {
	return &AuthHandler{Service: s}
}

// Login exchanges email and password for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	authResp, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("user logged in",
		zap.String("user_id", authResp.User.ID.String()),
		zap.String("owner_id", authResp.User.OwnerID.String()))
	utils.JSON(w, http.StatusOK, authResp)
}
