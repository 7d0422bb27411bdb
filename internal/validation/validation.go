// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	minHandleLen   = 3
	maxHandleLen   = 30
	minPasswordLen = 12
	maxPasswordLen = 128
	maxEmailLen    = 254
	// MaxCommentLen bounds a single comment.
	MaxCommentLen = 1000
)

var (
	handleRegex  = regexp.MustCompile(`^[a-z0-9_-]+$`)
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	digitRegex   = regexp.MustCompile(`[0-9]`)
	specialRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
)

// Handles that would shadow top-level routes.
var reservedHandles = map[string]struct{}{
	"api":     {},
	"auth":    {},
	"profile": {},
	"feed":    {},
	"upload":  {},
	"login":   {},
	"logout":  {},
	"health":  {},
	"metrics": {},
	"me":      {},
}

// NormalizeHandle trims and lowercases a handle as typed by a user.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// ValidateHandle checks a normalized handle.
func ValidateHandle(handle string) error {
	if len(handle) < minHandleLen {
		return fmt.Errorf("username must be at least %d characters long", minHandleLen)
	}
	if len(handle) > maxHandleLen {
		return fmt.Errorf("username must not exceed %d characters", maxHandleLen)
	}
	if !handleRegex.MatchString(handle) {
		return fmt.Errorf("username can only contain lowercase letters, numbers, underscores, and hyphens")
	}
	if handle[0] == '_' || handle[0] == '-' || handle[len(handle)-1] == '_' || handle[len(handle)-1] == '-' {
		return fmt.Errorf("username cannot start or end with underscore or hyphen")
	}
	if _, ok := reservedHandles[handle]; ok {
		return fmt.Errorf("username is reserved")
	}
	return nil
}

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLen)
	}

	var hasUpper, hasLower bool
	for _, r := range password {
		hasUpper = hasUpper || unicode.IsUpper(r)
		hasLower = hasLower || unicode.IsLower(r)
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !digitRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}
	if !specialRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one special character (!@#$%%^&*)")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > maxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLen)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// NormalizeComment trims text and enforces the comment length bounds.
func NormalizeComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("comment text is required")
	}
	if len([]rune(text)) > MaxCommentLen {
		return "", fmt.Errorf("comment too long (max %d characters)", MaxCommentLen)
	}
	return text, nil
}
