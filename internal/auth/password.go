package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidateUsername(username string) error {
	if len([]rune(strings.TrimSpace(username))) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	return nil
}

// ValidatePassword requires at least 6 characters including a letter and a digit.
func ValidatePassword(password string) error {
	if len([]rune(password)) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if !letter {
		return errors.New("password must contain at least one letter")
	}
	if !digit {
		return errors.New("password must contain at least one digit")
	}
	return nil
}
