package pkg

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Session tokens are typed in by the second player, so the alphabet skips
// the characters that are easy to misread (0/O, 1/I).
const (
	sessionIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	sessionIDLength   = 8
)

// GenerateSessionID - generates a short, human-shareable session token.
func GenerateSessionID() (string, error) {
	id, err := gonanoid.Generate(sessionIDAlphabet, sessionIDLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	return id, nil
}

// GenerateNewPlayerID - generates a unique player identifier.
func GenerateNewPlayerID() string {
	return uuid.NewString()
}
