package dump

import (
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

// DecodeBody turns raw body bytes into printable text. Bodies are read as
// UTF-8 with each maximal invalid subsequence replaced by a single U+FFFD.
// With decodeCharset set, a charset declared in contentType is honoured when
// the WHATWG index knows it. It never fails.
func DecodeBody(body []byte, contentType string, decodeCharset bool) string {
	if !decodeCharset {
		return decodeUTF8(body)
	}

	charset := charsetOf(contentType)
	if charset == "" {
		return decodeUTF8(body)
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return decodeUTF8(body)
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return decodeUTF8(body)
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return decodeUTF8(body)
	}
	return string(decoded)
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}

func decodeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b) + 8)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
			b = b[invalidPrefixLen(b):]
			continue
		}
		sb.Write(b[:size])
		b = b[size:]
	}
	return sb.String()
}

// invalidPrefixLen returns the length of the maximal subpart at the start of
// b: a lead byte plus the continuation bytes that could still have completed
// it. b must not start with a valid encoding.
func invalidPrefixLen(b []byte) int {
	lead := b[0]

	var need int
	lo, hi := byte(0x80), byte(0xBF)
	switch {
	case lead >= 0xC2 && lead <= 0xDF:
		need = 1
	case lead == 0xE0:
		need, lo = 2, 0xA0
	case lead >= 0xE1 && lead <= 0xEC, lead == 0xEE, lead == 0xEF:
		need = 2
	case lead == 0xED:
		need, hi = 2, 0x9F
	case lead == 0xF0:
		need, lo = 3, 0x90
	case lead >= 0xF1 && lead <= 0xF3:
		need = 3
	case lead == 0xF4:
		need, hi = 3, 0x8F
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(b) {
		c := b[n]
		if c < lo || c > hi {
			break
		}
		n++
		lo, hi = 0x80, 0xBF
	}
	return n
}
