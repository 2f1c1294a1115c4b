// internal/domain/cardnumber.go
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashCardNumber returns the hex SHA-256 digest used to look cards up.
func HashCardNumber(cardNumber string) string {
	sum := sha256.Sum256([]byte(cardNumber))
	return hex.EncodeToString(sum[:])
}

// MaskCardNumber keeps only the last four digits visible.
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) < 4 {
		return "****"
	}
	return strings.Repeat("*", len(cardNumber)-4) + cardNumber[len(cardNumber)-4:]
}

// LastFour returns the trailing four characters, for logs.
func LastFour(cardNumber string) string {
	if len(cardNumber) < 4 {
		return cardNumber
	}
	return cardNumber[len(cardNumber)-4:]
}
