package users

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/gestao-usuarios/backend/internal/auth"
	"github.com/gestao-usuarios/backend/internal/logger"
	"github.com/gestao-usuarios/backend/internal/permissions"
	"github.com/gestao-usuarios/backend/internal/utils"
)

var roleListMessage = "Role must be one of: " + strings.Join(permissions.Roles, ", ")

type Handler struct {
	db       *gorm.DB
	validate *validator.Validate
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, validate: validator.New()}
}

func parseID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (h *Handler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	var users []auth.User
	if err := h.db.Order("id").Find(&users).Error; err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}
	utils.WriteJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Username string  `json:"username" validate:"required"`
	Password string  `json:"password" validate:"required"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     string  `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	// An empty email means "no email"; the unique index only applies to
	// real values.
	if req.Email != nil && *req.Email == "" {
		req.Email = nil
	}

	role := req.Role
	if role == "" {
		role = permissions.RoleLeitura
	}
	if !permissions.ValidRole(role) {
		utils.Error(w, http.StatusBadRequest, roleListMessage)
		return
	}

	// Pre-check so duplicates come back as a clean 400; the unique indexes
	// still catch the concurrent case.
	var count int64
	h.db.Model(&auth.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		utils.Error(w, http.StatusBadRequest, "Username already exists")
		return
	}
	if req.Email != nil && *req.Email != "" {
		h.db.Model(&auth.User{}).Where("email = ?", *req.Email).Count(&count)
		if count > 0 {
			utils.Error(w, http.StatusBadRequest, "Email already exists")
			return
		}
	}

	user := auth.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     role,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := auth.SetPassword(&user, req.Password); err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	if err := h.db.Create(&user).Error; err != nil {
		if auth.IsUniqueViolation(err) {
			utils.Error(w, http.StatusBadRequest, "Username or email already exists")
			return
		}
		lg := logger.Get()
		lg.Error().Err(err).Msg("failed to create user")
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var user auth.User
	if err := h.db.First(&user, id).Error; err != nil {
		utils.Error(w, http.StatusNotFound, "User not found")
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password"`
}

func (h *Handler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var user auth.User
	if err := h.db.First(&user, id).Error; err != nil {
		utils.Error(w, http.StatusNotFound, "User not found")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	if req.Username != nil && *req.Username != "" && *req.Username != user.Username {
		var count int64
		h.db.Model(&auth.User{}).Where("username = ? AND id <> ?", *req.Username, user.ID).Count(&count)
		if count > 0 {
			utils.Error(w, http.StatusBadRequest, "Username already exists")
			return
		}
		user.Username = *req.Username
	}

	if req.Email != nil && *req.Email != "" && (user.Email == nil || *req.Email != *user.Email) {
		var count int64
		h.db.Model(&auth.User{}).Where("email = ? AND id <> ?", *req.Email, user.ID).Count(&count)
		if count > 0 {
			utils.Error(w, http.StatusBadRequest, "Email already exists")
			return
		}
		user.Email = req.Email
	}

	if req.Role != nil && *req.Role != "" {
		if !permissions.ValidRole(*req.Role) {
			utils.Error(w, http.StatusBadRequest, roleListMessage)
			return
		}
		user.Role = *req.Role
	}

	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if req.Password != nil && *req.Password != "" {
		if err := auth.SetPassword(&user, *req.Password); err != nil {
			utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
			return
		}
	}

	if err := h.db.Save(&user).Error; err != nil {
		if auth.IsUniqueViolation(err) {
			utils.Error(w, http.StatusBadRequest, "Username or email already exists")
			return
		}
		lg := logger.Get()
		lg.Error().Err(err).Uint("user_id", user.ID).Msg("failed to update user")
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var user auth.User
	if err := h.db.First(&user, id).Error; err != nil {
		utils.Error(w, http.StatusNotFound, "User not found")
		return
	}

	if utils.TargetsSelf(identity.UserID, user.ID) {
		utils.Error(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	// Sessions go with the user, in the same transaction.
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&auth.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		lg := logger.Get()
		lg.Error().Err(err).Uint("user_id", user.ID).Msg("failed to delete user")
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ToggleUserStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var user auth.User
	if err := h.db.First(&user, id).Error; err != nil {
		utils.Error(w, http.StatusNotFound, "User not found")
		return
	}

	if utils.TargetsSelf(identity.UserID, user.ID) {
		utils.Error(w, http.StatusBadRequest, "Cannot deactivate your own account")
		return
	}

	user.IsActive = !user.IsActive
	if err := h.db.Model(&user).Update("is_active", user.IsActive).Error; err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	status := "deactivated"
	if user.IsActive {
		status = "activated"
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "User " + status + " successfully",
		"user":    user,
	})
}
