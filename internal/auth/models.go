package auth

import "time"

// SessionTTL is the fixed lifetime of a session from creation.
const SessionTTL = 8 * time.Hour

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Email        *string    `gorm:"size:120;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         string     `gorm:"size:20;not null;default:'leitura'" json:"role"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"size:255;uniqueIndex;not null" json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Expired reports whether the session is past its expiry. Expiry is a
// read-time fact: the stored record is never mutated when it lapses.
func (s *Session) Expired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}
