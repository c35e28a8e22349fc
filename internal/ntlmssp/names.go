package ntlmssp

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// NameDecoder turns a wire-encoded domain or user name into a string.
type NameDecoder func([]byte) string

// StripNulls drops every null byte. For Basic Latin names in UTF-16LE this
// yields the ASCII name; other code points come out mangled. Control
// characters are escaped.
func StripNulls(b []byte) string {
	return escapeControl(string(bytes.ReplaceAll(b, []byte{0}, nil)))
}

// DecodeUTF16LE decodes b as UTF-16LE. Odd trailing bytes and decode
// failures fall back to StripNulls. Control characters are escaped.
func DecodeUTF16LE(b []byte) string {
	if len(b)%2 != 0 {
		return StripNulls(b)
	}
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return StripNulls(b)
	}
	return escapeControl(string(out))
}

// escapeControl rewrites C0 controls, DEL and stray C1 bytes as \xNN and
// encoded C1 controls as \uNNNN. Names end up on a terminal and in
// line-oriented hash files.
func escapeControl(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		r, n := utf8.DecodeRuneInString(s[i:])
		if n == 1 && (r < 0x20 || r == 0x7f || (s[i] >= 0x80 && s[i] <= 0x9f)) {
			fmt.Fprintf(&b, `\x%02x`, s[i])
		} else if isControl(r) {
			fmt.Fprintf(&b, `\u%04x`, r)
		} else {
			b.WriteString(s[i : i+n])
		}
		i += n
	}
	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 || (r >= 0x7f && r <= 0x9f)
}
