package utils

import (
	"golang.org/x/exp/rand"
)

const passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRandomPassword creates a 10 character temporary password.
func GenerateRandomPassword() string {
	password := make([]byte, 10)
	for i := range password {
		password[i] = passwordCharset[rand.Intn(len(passwordCharset))]
	}
	return string(password)
}
