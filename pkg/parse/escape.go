package parse

import (
	"html"
	"strings"
	"unicode/utf8"
)

const upperHex = "0123456789ABCDEF"

// Quote percent-encodes every byte of s except ASCII letters, digits, "_.-~" and the
// characters listed in safe. Hex digits are uppercase.
func Quote(s, safe string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || (c < utf8.RuneSelf && strings.IndexByte(safe, c) >= 0) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_', c == '.', c == '-', c == '~':
		return true
	}
	return false
}

// Unquote decodes valid %XX escapes in s. Malformed escapes are left as they are and
// each maximal run of decoded bytes that cannot start valid UTF-8 becomes one U+FFFD.
func Unquote(s string) string {
	return unquote(s, true)
}

// UnquoteIgnore is Unquote but drops decoded bytes that do not form valid UTF-8.
func UnquoteIgnore(s string) string {
	return unquote(s, false)
}

func unquote(s string, replace bool) string {
	if strings.IndexByte(s, '%') < 0 {
		return s
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			buf = append(buf, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		buf = append(buf, s[i])
	}

	var b strings.Builder
	b.Grow(len(buf))
	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size <= 1 {
			if replace {
				b.WriteRune(utf8.RuneError)
			}
			buf = buf[invalidPrefixLen(buf):]
			continue
		}
		b.Write(buf[:size])
		buf = buf[size:]
	}
	return b.String()
}

// invalidPrefixLen returns how many bytes of b, which does not start with a valid
// encoding, belong to the truncated sequence its first byte opens. A byte that cannot
// open a sequence counts alone.
func invalidPrefixLen(b []byte) int {
	need, lo, hi := 0, byte(0x80), byte(0xBF)
	switch c := b[0]; {
	case 0xC2 <= c && c <= 0xDF:
		need = 1
	case c == 0xE0:
		need, lo = 2, 0xA0
	case c == 0xED:
		need, hi = 2, 0x9F
	case 0xE1 <= c && c <= 0xEF:
		need = 2
	case c == 0xF0:
		need, lo = 3, 0x90
	case c == 0xF4:
		need, hi = 3, 0x8F
	case 0xF1 <= c && c <= 0xF3:
		need = 3
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(b) {
		if b[n] < lo || b[n] > hi {
			break
		}
		lo, hi = 0x80, 0xBF
		n++
	}
	return n
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

var htmlEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	`'`, "&#x27;",
)

// HTMLEscape escapes the five HTML special characters, quotes included.
func HTMLEscape(s string) string {
	return htmlEscaper.Replace(s)
}

// HTMLUnescape resolves named and numeric character references.
func HTMLUnescape(s string) string {
	return html.UnescapeString(s)
}
