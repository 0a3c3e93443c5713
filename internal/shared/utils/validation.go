// Package utils holds input validation for the bridge API.
package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Limits on bridge input
const (
	MaxMessageLength  = 16 * 1024
	MaxUsernameLength = 150
	MaxPasswordLength = 256
	MaxIDLength       = 128
)

// ErrInvalid marks every validation failure
var ErrInvalid = errors.New("invalid input")

// SafeIDPattern matches event IDs and audio references
var SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// ValidateString checks length in runes and rejects NUL bytes
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if value == "" {
		if required {
			return invalid("%s is required", fieldName)
		}
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return invalid("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return invalid("%s must not exceed %d characters", fieldName, maxLen)
	}
	if !utf8.ValidString(value) || strings.Contains(value, "\x00") {
		return invalid("%s contains invalid characters", fieldName)
	}
	return nil
}

// ValidateID checks an optional event ID or a required audio reference
func ValidateID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}
	if id != "" && !SafeIDPattern.MatchString(id) {
		return invalid("%s contains invalid characters", fieldName)
	}
	return nil
}

// ValidateCredentials checks a login form
func ValidateCredentials(username, password string) error {
	if err := ValidateString(strings.TrimSpace(username), "username", 1, MaxUsernameLength, true); err != nil {
		return err
	}
	return ValidateString(password, "password", 1, MaxPasswordLength, true)
}

// ValidateMessage bounds an outgoing chat message. Blank text passes; the
// session treats it as a no-op.
func ValidateMessage(message string) error {
	return ValidateString(message, "message", 0, MaxMessageLength, false)
}
