package appcreds

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// decodeKeyIdentifier turns a raw customKeyIdentifier byte sequence into a
// readable name. Encoding is sniffed from the byte-order marker; UTF-16
// without a BOM is caught by the every-other-byte-zero heuristic; everything
// else falls back to UTF-8.
func decodeKeyIdentifier(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	switch {
	case len(raw) >= 4 && bytes.HasPrefix(raw, []byte{0xFF, 0xFE, 0x00, 0x00}):
		return decodeWith(raw, utf32.UTF32(utf32.LittleEndian, utf32.UseBOM))
	case len(raw) >= 4 && bytes.HasPrefix(raw, []byte{0x00, 0x00, 0xFE, 0xFF}):
		return decodeWith(raw, utf32.UTF32(utf32.BigEndian, utf32.UseBOM))
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}):
		return decodeWith(raw, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM))
	case looksLikeUTF16LE(raw):
		return decodeWith(raw, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM))
	}

	if utf8.Valid(raw) {
		return cleanDecoded(string(raw))
	}
	return cleanDecoded(strings.ToValidUTF8(string(raw), ""))
}

func decodeWith(raw []byte, enc encoding.Encoding) string {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return cleanDecoded(strings.ToValidUTF8(string(raw), ""))
	}
	return cleanDecoded(string(out))
}

// looksLikeUTF16LE reports whether an even-length buffer without a BOM has a
// zero in every odd position, the shape of ASCII text stored as UTF-16LE.
func looksLikeUTF16LE(raw []byte) bool {
	if len(raw) < 2 || len(raw)%2 != 0 {
		return false
	}
	for i := 1; i < len(raw); i += 2 {
		if raw[i] != 0x00 {
			return false
		}
	}
	return true
}

func cleanDecoded(s string) string {
	return strings.TrimRight(strings.TrimPrefix(s, "\ufeff"), "\x00")
}
