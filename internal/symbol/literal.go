package symbol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidLiteral is returned for tokens that match neither literal form.
	ErrInvalidLiteral = errors.New("invalid symbol literal")

	// ErrOutOfRange is returned when a literal decodes to a non-scalar value.
	ErrOutOfRange = errors.New("symbol outside unicode scalar range")
)

// Parse decodes a symbol literal. Two forms are accepted:
//
//	\u{E900}   1-6 hex digits inside braces
//	U+E900     one or more hex digits
//
// Anything else is rejected. The decoded value must be a Unicode scalar
// value (at most U+10FFFF and not a surrogate).
func Parse(lit string) (Symbol, error) {
	var digits string
	switch {
	case strings.HasPrefix(lit, `\u{`) && strings.HasSuffix(lit, "}"):
		digits = lit[3 : len(lit)-1]
		if len(digits) > 6 {
			return 0, fmt.Errorf("%w %q: more than 6 hex digits", ErrInvalidLiteral, lit)
		}
	case strings.HasPrefix(lit, "U+"):
		digits = lit[2:]
	default:
		return 0, fmt.Errorf("%w %q", ErrInvalidLiteral, lit)
	}

	if digits == "" || !isHex(digits) {
		return 0, fmt.Errorf("%w %q: expected hex digits", ErrInvalidLiteral, lit)
	}

	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrOutOfRange, lit)
	}
	if !utf8.ValidRune(rune(v)) {
		return 0, fmt.Errorf("%w %q", ErrOutOfRange, lit)
	}
	return Symbol(v), nil
}

// FormatEscaped renders s as \u{XXXX}.
func FormatEscaped(s Symbol) string {
	return fmt.Sprintf(`\u{%04X}`, uint32(s))
}

// FormatUPlus renders s as U+XXXX.
func FormatUPlus(s Symbol) string {
	return fmt.Sprintf("U+%04X", uint32(s))
}

// Rune returns s as a rune, for collaborators encoding instruction streams.
func (s Symbol) Rune() rune {
	return rune(s)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// MarshalText renders the symbol in U+ form.
func (s Symbol) MarshalText() ([]byte, error) {
	return []byte(FormatUPlus(s)), nil
}

// UnmarshalText accepts either literal form.
func (s *Symbol) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
