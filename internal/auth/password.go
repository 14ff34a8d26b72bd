package auth

import "golang.org/x/crypto/bcrypt"

// Cost 8 keeps login latency around 25ms on small nodes; the login route is
// rate limited.
const bcryptCost = 8

// MinPasswordLength is enforced when staff accounts are created.
const MinPasswordLength = 8

// HashPassword generates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if the provided password matches the hash
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
