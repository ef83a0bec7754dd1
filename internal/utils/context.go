package utils

import (
	"context"
)

type contextKey string

const ContextIdentityKey contextKey = "identity"

// Identity is the user+session pair resolved from a bearer token. Role and
// IsActive are read fresh from the user record on every request, never cached
// inside the token.
type Identity struct {
	UserID    uint
	Username  string
	Role      string
	IsActive  bool
	SessionID uint
}

func GetIdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(ContextIdentityKey).(Identity)
	return identity, ok
}

// TargetsSelf reports whether actorID appears in ids. Destructive admin
// operations use it to refuse acting on the caller's own account; bulk
// operations check the whole requested id set before any record is touched.
func TargetsSelf(actorID uint, ids ...uint) bool {
	for _, id := range ids {
		if id == actorID {
			return true
		}
	}
	return false
}
