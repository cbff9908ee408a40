package security

import (
	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BcryptVerifier checks submitted passwords against stored bcrypt hashes.
type BcryptVerifier struct{}

func (BcryptVerifier) Verify(plaintextPassword, storedHash string) bool {
	return CheckPassword(plaintextPassword, storedHash)
}
