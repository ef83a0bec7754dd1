package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrInvalidToken covers missing, unknown and already-invalidated tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken marks a session found active in storage but past its
	// expiry. Both errors surface to clients identically (401); they are
	// distinct only for logging.
	ErrExpiredToken = errors.New("expired token")
)

// SessionManager owns the session lifecycle: token issuance, lookup,
// invalidation and refresh. Multiple concurrent sessions per user are
// allowed; creating a session never retires the user's other sessions.
type SessionManager struct {
	db *gorm.DB
}

func NewSessionManager(db *gorm.DB) *SessionManager {
	return &SessionManager{db: db}
}

// Create issues a new session for user, expiring SessionTTL from now.
// Callers must verify user.IsActive before calling; eligibility is not
// checked here.
func (m *SessionManager) Create(user *User) (*Session, error) {
	return createSession(m.db, user.ID)
}

// Resolve looks up a bearer token and returns the owning user and session.
// An optional "Bearer " prefix is stripped. The active-flag and expiry are
// read from the same record snapshot; a session invalidated concurrently
// resolves as invalid.
func (m *SessionManager) Resolve(rawToken string) (*User, *Session, error) {
	token := strings.TrimSpace(strings.TrimPrefix(rawToken, "Bearer "))
	if token == "" {
		return nil, nil, ErrInvalidToken
	}

	var session Session
	err := m.db.First(&session, "token = ? AND is_active = ?", token, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, err
	}

	if session.Expired() {
		return nil, nil, ErrExpiredToken
	}

	var user User
	err = m.db.First(&user, session.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, err
	}

	return &user, &session, nil
}

// Invalidate retires the session. Invalidation is terminal: nothing
// reactivates a session.
func (m *SessionManager) Invalidate(session *Session) error {
	if err := m.db.Model(session).Update("is_active", false).Error; err != nil {
		return err
	}
	session.IsActive = false
	return nil
}

// InvalidateByID retires the session with the given id.
func (m *SessionManager) InvalidateByID(sessionID uint) error {
	return m.db.Model(&Session{}).Where("id = ?", sessionID).Update("is_active", false).Error
}

// Refresh retires session and issues a replacement for the same user in a
// single transaction, so a failure never leaves the old token retired
// without a successor.
func (m *SessionManager) Refresh(session *Session) (*Session, error) {
	var fresh *Session
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Session{}).Where("id = ?", session.ID).Update("is_active", false).Error; err != nil {
			return err
		}
		created, err := createSession(tx, session.UserID)
		if err != nil {
			return err
		}
		fresh = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	session.IsActive = false
	return fresh, nil
}

func createSession(tx *gorm.DB, userID uint) (*Session, error) {
	// The token column has a unique index; regenerate on the (vanishingly
	// rare) collision.
	for attempt := 0; attempt < 2; attempt++ {
		token, err := GenerateToken()
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		session := &Session{
			UserID:    userID,
			Token:     token,
			CreatedAt: now,
			ExpiresAt: now.Add(SessionTTL),
			IsActive:  true,
		}
		err = tx.Create(session).Error
		if err == nil {
			return session, nil
		}
		if !IsUniqueViolation(err) {
			return nil, err
		}
	}
	return nil, errors.New("could not allocate a unique session token")
}

// IsUniqueViolation reports whether err is a unique-constraint failure from
// the underlying store (Postgres in production, SQLite in tests).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
