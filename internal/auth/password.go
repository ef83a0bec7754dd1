package auth

import "golang.org/x/crypto/bcrypt"

// SetPassword replaces the user's stored hash with a bcrypt hash of
// plaintext. Only the in-memory struct is mutated; the caller persists.
func SetPassword(u *User, plaintext string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashed)
	return nil
}

// CheckPassword reports whether plaintext matches the stored hash. A missing
// stored hash never matches.
func CheckPassword(u *User, plaintext string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}
