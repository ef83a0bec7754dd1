package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestao-usuarios/backend/internal/middleware"
)

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	resolver := SessionInfo{Sessions: h.sessions}

	r.Post("/login", h.LoginHandler)
	r.Post("/verify-token", h.VerifyTokenHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(resolver))
		r.Post("/logout", h.LogoutHandler)
		r.Get("/me", h.MeHandler)
		r.Post("/refresh-token", h.RefreshTokenHandler)
		r.Post("/change-password", h.ChangePasswordHandler)
	})

	return r
}
