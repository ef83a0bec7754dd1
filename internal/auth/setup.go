package auth

import (
	"gorm.io/gorm"
)

// Migrate creates or updates the user and session tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Session{})
}
