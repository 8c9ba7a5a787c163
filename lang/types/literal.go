package types

import (
	"regexp"
	"strconv"
)

// rxIntLit matches the integer literal forms accepted both in the XML source
// and by the READ instruction: optional sign, then decimal digits, 0x hex or
// 0o octal. A leading zero does not switch to octal; "010" is ten.
var rxIntLit = regexp.MustCompile(`^[+-]?(\d+|0[xX][0-9a-fA-F]+|0[oO][0-7]+)$`)

// ParseInt parses an IPPcode22 integer literal. It reports ok=false when the
// literal does not match the accepted forms or does not fit in a signed
// 64-bit integer.
func ParseInt(lit string) (int64, bool) {
	if !rxIntLit.MatchString(lit) {
		return 0, false
	}
	sign, s := "", lit
	if s[0] == '+' || s[0] == '-' {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}
	base := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base, s = 16, s[2:]
		case 'o', 'O':
			base, s = 8, s[2:]
		}
	}
	v, err := strconv.ParseInt(sign+s, base, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var rxEscape = regexp.MustCompile(`\\(\d{3})`)

// DecodeEscapes replaces every \DDD escape (three decimal digits) with the
// codepoint of that decimal value. It is applied exactly once: at load time
// for string literals and at READ time for string input.
func DecodeEscapes(s string) string {
	return rxEscape.ReplaceAllStringFunc(s, func(m string) string {
		n, _ := strconv.Atoi(m[1:])
		return string(rune(n))
	})
}
