package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/response"
)

// userHandlers manages accounts (admin-only).
type userHandlers struct {
	users *auth.UserStore
	log   *zap.Logger
}

func (h *userHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.log.Error("listing users", zap.Error(err))
		response.Internal(w, "internal error")
		return
	}
	response.JSON(w, users, http.StatusOK)
}

func (h *userHandlers) addUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string    `json:"email"`
		Name  string    `json:"name"`
		Role  auth.Role `json:"role"`
	}
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		response.Validation(w, "email is required")
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleTenant
	}
	if !req.Role.IsValid() {
		response.Validation(w, "role must be admin, owner or tenant")
		return
	}

	user, err := h.users.Add(r.Context(), req.Email, req.Name, req.Role)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			response.Conflict(w, err.Error())
			return
		}
		h.log.Error("adding user", zap.Error(err))
		response.Internal(w, "internal error")
		return
	}

	response.JSON(w, user, http.StatusCreated)
}

func (h *userHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	if id == principal(r).UserID {
		response.Validation(w, "cannot delete yourself")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		h.log.Error("deleting user", zap.String("id", id), zap.Error(err))
		response.Internal(w, "internal error")
		return
	}

	response.JSON(w, map[string]interface{}{"id": id, "deleted": true}, http.StatusOK)
}
