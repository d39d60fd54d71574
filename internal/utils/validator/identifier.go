package validator

import (
	"strings"
	"unicode"
)

// IdentifierLength is the number of digits in a national identifier.
const IdentifierLength = 9

// Normalize strips whitespace and the separators '-', '.', '/' and left-pads
// the remaining digits with zeros to IdentifierLength. ok is false when the
// input contains anything else, no digits at all, or more than IdentifierLength
// digits.
func Normalize(s string) (string, bool) {
	var b strings.Builder
	b.Grow(IdentifierLength)

	for _, r := range s {
		switch {
		case unicode.IsSpace(r), r == '-', r == '.', r == '/':
			continue
		case r >= '0' && r <= '9':
			if b.Len() == IdentifierLength {
				return "", false
			}
			b.WriteRune(r)
		default:
			return "", false
		}
	}

	digits := b.String()
	if digits == "" {
		return "", false
	}
	if len(digits) < IdentifierLength {
		digits = strings.Repeat("0", IdentifierLength-len(digits)) + digits
	}
	return digits, true
}

// Validate reports whether s is a well-formed identifier: weights 1,2,1,2,...
// applied from the leftmost digit, two-digit products folded to their digit
// sum, total divisible by ten.
func Validate(s string) bool {
	digits, ok := Normalize(s)
	if !ok {
		return false
	}

	sum := 0
	for i := 0; i < len(digits); i++ {
		n := int(digits[i]-'0') * (i%2 + 1)
		if n > 9 {
			n -= 9
		}
		sum += n
	}
	return sum%10 == 0
}
