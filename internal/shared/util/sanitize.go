package util

import (
	"errors"
	"strings"
)

const maxFileNameLen = 100

// ErrInvalidFileName is returned when nothing usable is left of a name.
var ErrInvalidFileName = errors.New("invalid file name")

// SafeFileName reduces name to ASCII letters, digits, dot, dash and underscore
// so it can go into a Content-Disposition header unquoted. Other runs of
// characters become a single dash.
func SafeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
			dash = r == '-'
		case r == '"':
		default:
			if !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	s := strings.Trim(b.String(), "-.")
	if len(s) > maxFileNameLen {
		s = s[:maxFileNameLen]
	}
	if s == "" {
		return "", ErrInvalidFileName
	}
	return s, nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
