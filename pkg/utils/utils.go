package utils

import (
	"net/mail"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt cost used for passwords, PINs and OTPs.
var HashCost = 12

// HashPassword hashes a plain secret with bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plain secret with a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsEmail returns true if the string is a valid email address.
func IsEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
