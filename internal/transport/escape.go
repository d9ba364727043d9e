package transport

import "strings"

// ReservedSafe are the characters the reference data delete endpoint wants
// left unescaped inside path segments and the value parameter.
const ReservedSafe = "/*()"

const upperhex = "0123456789ABCDEF"

// Quote percent-encodes s byte by byte, leaving unreserved characters
// (ALPHA / DIGIT / "-" / "." / "_" / "~") and any byte in safe untouched.
func Quote(s, safe string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || (c < 0x80 && strings.IndexByte(safe, c) >= 0) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
