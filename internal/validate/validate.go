package validate

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reLang  = regexp.MustCompile(`^[a-z]{2}$`)
	reGrade = regexp.MustCompile(`^[A-Za-z0-9+\-/. ]{1,10}$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// ID validates a resource identifier (user/homework/submission ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Name validates a person's first or last name.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > 50 {
		return "", false
	}
	return s, true
}

// Language accepts a lowercase two-letter code; empty means "en".
func Language(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "en", true
	}
	return s, reLang.MatchString(s)
}

func Title(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > 120 {
		return "", false
	}
	return s, true
}

// Text bounds free-form bodies (descriptions, submission content, feedback).
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	return s, utf8.RuneCountInString(s) <= max
}

// Date accepts YYYY-MM-DD; empty returns nil.
func Date(s string) (*string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return nil, false
	}
	return &s, true
}

func Grade(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reGrade.MatchString(s)
}

// PasswordShape is the cheap length window checked before touching the store
// on login.
func PasswordShape(s string) bool {
	return len(s) >= 8 && len(s) <= 72
}

// Password enforces the strength rules for new passwords.
func Password(s string) bool {
	if !PasswordShape(s) {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}
