package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestao-usuarios/backend/internal/middleware"
	"github.com/gestao-usuarios/backend/internal/permissions"
)

func (h *Handler) Routes(resolver middleware.TokenResolver) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequireAuth(resolver))
	r.Use(middleware.RequirePermission(permissions.ActionManageUsers))

	r.Get("/dashboard", h.DashboardHandler)
	r.Post("/users/bulk-action", h.BulkActionHandler)
	r.Get("/system-info", h.SystemInfoHandler)

	return r
}
