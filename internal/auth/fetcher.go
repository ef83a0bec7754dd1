package auth

import (
	"github.com/gestao-usuarios/backend/internal/utils"
)

// SessionInfo adapts the SessionManager to the middleware's TokenResolver
// interface.
type SessionInfo struct {
	Sessions *SessionManager
}

func (si SessionInfo) ResolveToken(rawToken string) (utils.Identity, error) {
	user, session, err := si.Sessions.Resolve(rawToken)
	if err != nil {
		return utils.Identity{}, err
	}

	return utils.Identity{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		IsActive:  user.IsActive,
		SessionID: session.ID,
	}, nil
}
