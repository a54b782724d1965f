package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWWN is returned when a value does not normalize to an 8-octet WWN
var ErrInvalidWWN = errors.New("invalid WWN")

// canonicalWWNLength is the length of XX:XX:XX:XX:XX:XX:XX:XX
const canonicalWWNLength = 23

// NormalizeWWN converts the vendor spellings of a World Wide Name
// (10000000C9A1B2C3, 10:00:00:00:c9:a1:b2:c3, 10-00-..., 0x1000...) into
// lower-case colon-separated octets.
func NormalizeWWN(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}

	var digits strings.Builder
	for _, c := range s {
		switch {
		case c == ':' || c == '-' || c == '.' || c == ' ':
			continue
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f':
			digits.WriteRune(c)
		case c >= 'A' && c <= 'F':
			digits.WriteRune(c + ('a' - 'A'))
		default:
			return "", fmt.Errorf("%q: %w", raw, ErrInvalidWWN)
		}
	}

	hex := digits.String()
	if len(hex) != 16 {
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidWWN)
	}

	var out strings.Builder
	out.Grow(canonicalWWNLength)
	for i := 0; i < len(hex); i += 2 {
		if i > 0 {
			out.WriteByte(':')
		}
		out.WriteString(hex[i : i+2])
	}

	wwn := out.String()
	if len(wwn) != canonicalWWNLength {
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidWWN)
	}
	return wwn, nil
}

// IsWWN reports whether raw normalizes to a canonical WWN
func IsWWN(raw string) bool {
	_, err := NormalizeWWN(raw)
	return err == nil
}
