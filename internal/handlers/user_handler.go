package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"gem-backend/internal/models"
	"gem-backend/pkg/utils"
)

type UserHandler struct {
	Service UserAPI
}

func NewUserHandler(s UserAPI) *UserHandler {
	return &UserHandler{Service: s}
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req models.CreateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	user, err := h.Service.CreateUser(r.Context(), actor, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, user)
}

// ListUsers returns the users of the caller's tenant.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	users, err := h.Service.ListUsers(r.Context(), actor)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	utils.JSON(w, http.StatusOK, users)
}

// SetActive enables or suspends a user.
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, mux.Vars(r))
	if !ok {
		return
	}
	var req setActiveRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	if err := h.Service.SetActive(r.Context(), actor, id, req.IsActive); err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{"id": id, "is_active": req.IsActive})
}
