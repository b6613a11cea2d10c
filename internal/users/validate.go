package users

import (
	"fmt"
	"regexp"
	"strings"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateUsername trims and checks a username: 3 to 50 characters, letters,
// digits and underscores only.
func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("username is required")
	}
	if len(username) < 3 {
		return "", fmt.Errorf("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return "", fmt.Errorf("username must be no more than 50 characters")
	}
	if !usernamePattern.MatchString(username) {
		return "", fmt.Errorf("username can only contain letters, numbers, and underscores")
	}
	return username, nil
}

// ValidatePassword checks password length: 6 to 128 characters. Note that
// bcrypt only considers the first 72 bytes; longer passwords are accepted
// but truncated at hash time.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	if len(password) > 128 {
		return fmt.Errorf("password must be no more than 128 characters")
	}
	return nil
}
