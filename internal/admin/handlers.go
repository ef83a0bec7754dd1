package admin

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/gestao-usuarios/backend/internal/auth"
	"github.com/gestao-usuarios/backend/internal/logger"
	"github.com/gestao-usuarios/backend/internal/permissions"
	"github.com/gestao-usuarios/backend/internal/utils"
)

const (
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
	ActionDelete     = "delete"
	ActionChangeRole = "change_role"
)

type Handler struct {
	db       *gorm.DB
	validate *validator.Validate
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, validate: validator.New()}
}

func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	var total, active int64
	if err := h.db.Model(&auth.User{}).Count(&total).Error; err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}
	if err := h.db.Model(&auth.User{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	rolesCount := make(map[string]int64, len(permissions.Roles))
	for _, role := range permissions.Roles {
		var n int64
		if err := h.db.Model(&auth.User{}).Where("role = ? AND is_active = ?", role, true).Count(&n).Error; err != nil {
			utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
			return
		}
		rolesCount[role] = n
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"total_users":    total,
		"active_users":   active,
		"inactive_users": total - active,
		"roles_count":    rolesCount,
	})
}

type bulkActionRequest struct {
	Action  string `json:"action" validate:"required"`
	UserIDs []uint `json:"user_ids" validate:"required,min=1"`
	NewRole string `json:"new_role"`
}

// BulkActionHandler applies one action to a set of users. The
// self-modification guard runs against the whole requested id set before any
// record is touched; after that each record is updated individually, so a
// partial success reports an accurate count.
func (h *Handler) BulkActionHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req bulkActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Action and user ids are required")
		return
	}

	switch req.Action {
	case ActionActivate, ActionDeactivate, ActionDelete:
	case ActionChangeRole:
		if !permissions.ValidRole(req.NewRole) {
			utils.Error(w, http.StatusBadRequest, "Role must be one of: "+strings.Join(permissions.Roles, ", "))
			return
		}
	default:
		utils.Error(w, http.StatusBadRequest, "Invalid action")
		return
	}

	if utils.TargetsSelf(identity.UserID, req.UserIDs...) {
		utils.Error(w, http.StatusBadRequest, "Cannot apply bulk actions to your own account")
		return
	}

	var users []auth.User
	if err := h.db.Where("id IN ?", req.UserIDs).Find(&users).Error; err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}
	if len(users) == 0 {
		utils.Error(w, http.StatusNotFound, "No users found")
		return
	}

	updated := 0
	for i := range users {
		if err := h.applyAction(&users[i], req.Action, req.NewRole); err != nil {
			lg := logger.Get()
			lg.Error().Err(err).Uint("user_id", users[i].ID).Str("action", req.Action).Msg("bulk action failed for user")
			continue
		}
		updated++
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"message":       "Action \"" + req.Action + "\" applied successfully",
		"updated_count": updated,
	})
}

func (h *Handler) applyAction(user *auth.User, action, newRole string) error {
	switch action {
	case ActionActivate:
		return h.db.Model(user).Update("is_active", true).Error
	case ActionDeactivate:
		return h.db.Model(user).Update("is_active", false).Error
	case ActionChangeRole:
		return h.db.Model(user).Update("role", newRole).Error
	case ActionDelete:
		return h.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ?", user.ID).Delete(&auth.Session{}).Error; err != nil {
				return err
			}
			return tx.Delete(user).Error
		})
	}
	return nil
}

func (h *Handler) SystemInfoHandler(w http.ResponseWriter, r *http.Request) {
	var totalUsers, activeSessions int64
	if err := h.db.Model(&auth.User{}).Count(&totalUsers).Error; err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}
	err := h.db.Model(&auth.Session{}).
		Where("is_active = ? AND expires_at > ?", true, time.Now().UTC()).
		Count(&activeSessions).Error
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"go_version":      runtime.Version(),
		"current_time":    time.Now().UTC(),
		"total_users":     totalUsers,
		"active_sessions": activeSessions,
	})
}
