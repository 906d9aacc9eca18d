package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GenerateSecret generates a cryptographically secure random secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GeneratePIN generates a random numeric PIN of the given length.
func GeneratePIN(digits int) (string, error) {
	b := make([]byte, digits)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	pin := make([]byte, digits)
	for i, v := range b {
		pin[i] = '0' + v%10
	}
	return string(pin), nil
}

// HashAdminPIN produces the bcrypt hash stored in ADMIN_PIN_HASH.
func HashAdminPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	return string(hash), nil
}

// CheckAdminPIN compares a submitted PIN against the stored hash.
func CheckAdminPIN(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
