package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestao-usuarios/backend/internal/middleware"
	"github.com/gestao-usuarios/backend/internal/permissions"
)

// Routes mounts the user-management endpoints. Everything here requires a
// valid session and the manage_users permission.
func (h *Handler) Routes(resolver middleware.TokenResolver) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequireAuth(resolver))
	r.Use(middleware.RequirePermission(permissions.ActionManageUsers))

	r.Get("/users", h.ListUsersHandler)
	r.Post("/users", h.CreateUserHandler)
	r.Get("/users/{id}", h.GetUserHandler)
	r.Put("/users/{id}", h.UpdateUserHandler)
	r.Delete("/users/{id}", h.DeleteUserHandler)
	r.Post("/users/{id}/toggle-status", h.ToggleUserStatusHandler)

	return r
}
