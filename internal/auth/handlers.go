package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/gestao-usuarios/backend/internal/logger"
	"github.com/gestao-usuarios/backend/internal/utils"
)

type Handler struct {
	db       *gorm.DB
	sessions *SessionManager
	validate *validator.Validate
}

func NewHandler(db *gorm.DB, sessions *SessionManager) *Handler {
	return &Handler{
		db:       db,
		sessions: sessions,
		validate: validator.New(),
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	var user User
	err := h.db.First(&user, "username = ?", req.Username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !CheckPassword(&user, req.Password)) {
		utils.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	if !user.IsActive {
		utils.Error(w, http.StatusUnauthorized, "Inactive user")
		return
	}

	session, err := h.sessions.Create(&user)
	if err != nil {
		lg := logger.Get()
		lg.Error().Err(err).Msg("failed to create session")
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	now := time.Now().UTC()
	if err := h.db.Model(&user).Update("last_login", now).Error; err != nil {
		lg := logger.Get()
		lg.Error().Err(err).Uint("user_id", user.ID).Msg("failed to record last login")
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}
	user.LastLogin = &now

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      session.Token,
		"user":       user,
		"expires_at": session.ExpiresAt,
	})
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := h.sessions.InvalidateByID(identity.SessionID); err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var user User
	if err := h.db.First(&user, identity.UserID).Error; err != nil {
		utils.Error(w, http.StatusNotFound, "User not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, user)
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

// VerifyTokenHandler is a stateless check: it never mutates the session
// record, even when the token turns out to be expired.
func (h *Handler) VerifyTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "Token required",
		})
		return
	}

	user, session, err := h.sessions.Resolve(req.Token)
	if err != nil {
		utils.WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"valid": false,
			"error": "Invalid or expired token",
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"valid":      true,
		"user":       user,
		"expires_at": session.ExpiresAt,
	})
}

func (h *Handler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var session Session
	if err := h.db.First(&session, identity.SessionID).Error; err != nil {
		utils.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	fresh, err := h.sessions.Refresh(&session)
	if err != nil {
		lg := logger.Get()
		lg.Error().Err(err).Uint("session_id", session.ID).Msg("failed to refresh session")
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      fresh.Token,
		"expires_at": fresh.ExpiresAt,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

func (h *Handler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Current and new password are required")
		return
	}

	var user User
	if err := h.db.First(&user, identity.UserID).Error; err != nil {
		utils.Error(w, http.StatusUnauthorized, "User not found")
		return
	}

	if !CheckPassword(&user, req.CurrentPassword) {
		utils.Error(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	if err := SetPassword(&user, req.NewPassword); err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}
	if err := h.db.Model(&user).Update("password_hash", user.PasswordHash).Error; err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}
