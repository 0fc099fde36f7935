package middleware

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxMessageBytes caps a submitted message.
const MaxMessageBytes = 20000

// ValidateSessionID checks the uuid format of a session ID.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session ID format")
	}
	return nil
}

// ValidateMessage rejects oversized input and NUL bytes. Everything else is
// forwarded exactly as entered. Blank input is allowed here, the controller
// treats it as a no-op.
func ValidateMessage(msg string) error {
	if len(msg) > MaxMessageBytes {
		return fmt.Errorf("message too long: %d bytes (max %d)", len(msg), MaxMessageBytes)
	}
	if strings.ContainsRune(msg, 0) {
		return fmt.Errorf("message contains NUL bytes")
	}
	return nil
}
