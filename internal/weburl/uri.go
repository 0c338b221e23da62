package weburl

import (
	"strings"
	"unicode/utf8"

	"github.com/woxQAQ/wbg-host/internal/jsval"
)

const (
	uriUnreserved = "-_.!~*'()"
	uriReserved   = ";/?:@&=+$,#"
)

// EncodeURIComponent escapes everything except letters, digits and -_.!~*'().
func EncodeURIComponent(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", jsval.NewURIError("URI malformed")
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAlnum(c) || strings.IndexByte(uriUnreserved, c) >= 0 {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}
	return sb.String(), nil
}

// DecodeURI decodes escape sequences except those that encode a reserved
// character or '#'.
func DecodeURI(s string) (string, error) {
	return decode(s, uriReserved)
}

// DecodeURIComponent decodes every escape sequence.
func DecodeURIComponent(s string) (string, error) {
	return decode(s, "")
}

func decode(s, keep string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '%' {
			sb.WriteByte(s[i])
			i++
			continue
		}
		b, ok := escapedByte(s, i)
		if !ok {
			return "", jsval.NewURIError("URI malformed")
		}
		if b < utf8.RuneSelf {
			if strings.IndexByte(keep, b) >= 0 {
				sb.WriteString(s[i : i+3])
			} else {
				sb.WriteByte(b)
			}
			i += 3
			continue
		}

		// Multi-byte sequence: every byte must be escaped.
		n := sequenceLength(b)
		if n == 0 {
			return "", jsval.NewURIError("URI malformed")
		}
		seq := []byte{b}
		for k := 1; k < n; k++ {
			c, ok := escapedByte(s, i+3*k)
			if !ok {
				return "", jsval.NewURIError("URI malformed")
			}
			seq = append(seq, c)
		}
		if !utf8.Valid(seq) {
			return "", jsval.NewURIError("URI malformed")
		}
		sb.Write(seq)
		i += 3 * n
	}
	return sb.String(), nil
}

func escapedByte(s string, i int) (byte, bool) {
	if i+2 >= len(s) || s[i] != '%' || !isHex(s[i+1]) || !isHex(s[i+2]) {
		return 0, false
	}
	return unhex(s[i+1])<<4 | unhex(s[i+2]), true
}

func sequenceLength(b byte) int {
	switch {
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	}
	return 0
}
