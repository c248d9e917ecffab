// Package uri builds backend URIs from client requests and maps backend
// redirects back into the client's namespace.
package uri

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// asciiQueryChars marks the ASCII characters left unescaped. '%' is handled
// separately because it depends on the caller.
var asciiQueryChars = func() [utf8.RuneSelf]bool {
	var set [utf8.RuneSelf]bool
	for c := 'a'; c <= 'z'; c++ {
		set[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		set[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		set[c] = true
	}
	for _, c := range "_-!.~'()*" + ",;:$&+=" + "?/[]@" {
		set[c] = true
	}
	return set
}()

// Encode escapes the characters of s that a strict URI parser rejects.
//
// With encodePercent set, '%' is escaped too; use it for segments the
// front-end already decoded (the path). Without it existing escapes are left
// in place, which is what encoded segments (query, fragment) need.
//
// Non-ASCII characters pass through unless they are control or space
// characters. Those are written as '%' followed by their code value in
// uppercase hex, not as UTF-8 octets.
func Encode(s string, encodePercent bool) string {
	var b *strings.Builder
	for i, r := range s {
		// invalid bytes decode as RuneError with size 1 and are copied as is
		_, size := utf8.DecodeRuneInString(s[i:])
		if !needsEscape(r, encodePercent) {
			if b != nil {
				b.WriteString(s[i : i+size])
			}
			continue
		}
		if b == nil {
			b = new(strings.Builder)
			b.Grow(len(s) + 5*3)
			b.WriteString(s[:i])
		}
		fmt.Fprintf(b, "%%%02X", r)
	}
	if b == nil {
		return s
	}
	return b.String()
}

func needsEscape(r rune, encodePercent bool) bool {
	if r < utf8.RuneSelf {
		if r == '%' {
			return encodePercent
		}
		return !asciiQueryChars[r]
	}
	return isISOControl(r) || isSpaceChar(r)
}

func isISOControl(r rune) bool {
	return r <= 0x1F || (r >= 0x7F && r <= 0x9F)
}

// isSpaceChar reports Unicode space separators (Zs, Zl, Zp).
func isSpaceChar(r rune) bool {
	return unicode.In(r, unicode.Zs, unicode.Zl, unicode.Zp)
}
