package weburl

import (
	"strings"

	"github.com/woxQAQ/wbg-host/internal/jsval"
)

type pair struct {
	name, value string
}

// SearchParams is an ordered list of name/value pairs in
// application/x-www-form-urlencoded form. When linked to a URL every
// mutation rewrites the URL's query.
type SearchParams struct {
	pairs []pair
	owner *URL
}

// ParseSearchParams parses a query string, with or without the leading "?".
func ParseSearchParams(s string) *SearchParams {
	sp := &SearchParams{}
	s = strings.TrimPrefix(s, "?")
	for _, part := range strings.Split(s, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		sp.pairs = append(sp.pairs, pair{formDecode(name), formDecode(value)})
	}
	return sp
}

func (sp *SearchParams) ClassName() string { return "URLSearchParams" }

// Len returns the number of pairs.
func (sp *SearchParams) Len() int { return len(sp.pairs) }

// Append adds a pair at the end.
func (sp *SearchParams) Append(name, value string) {
	sp.pairs = append(sp.pairs, pair{name, value})
	sp.update()
}

// Set replaces the first pair named name and removes the others.
func (sp *SearchParams) Set(name, value string) {
	out := sp.pairs[:0]
	found := false
	for _, p := range sp.pairs {
		if p.name != name {
			out = append(out, p)
			continue
		}
		if !found {
			out = append(out, pair{name, value})
			found = true
		}
	}
	if !found {
		out = append(out, pair{name, value})
	}
	sp.pairs = out
	sp.update()
}

// Get returns the first value named name.
func (sp *SearchParams) Get(name string) (string, bool) {
	for _, p := range sp.pairs {
		if p.name == name {
			return p.value, true
		}
	}
	return "", false
}

// GetAll returns every value named name.
func (sp *SearchParams) GetAll(name string) []string {
	var out []string
	for _, p := range sp.pairs {
		if p.name == name {
			out = append(out, p.value)
		}
	}
	return out
}

// Has reports whether a pair named name exists.
func (sp *SearchParams) Has(name string) bool {
	_, ok := sp.Get(name)
	return ok
}

// Delete removes every pair named name.
func (sp *SearchParams) Delete(name string) {
	out := sp.pairs[:0]
	for _, p := range sp.pairs {
		if p.name != name {
			out = append(out, p)
		}
	}
	sp.pairs = out
	sp.update()
}

// String serializes the pairs without a leading "?".
func (sp *SearchParams) String() string {
	var sb strings.Builder
	for i, p := range sp.pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(formEncode(p.name))
		sb.WriteByte('=')
		sb.WriteString(formEncode(p.value))
	}
	return sb.String()
}

// Iterator yields [name, value] arrays.
func (sp *SearchParams) Iterator() *jsval.Iterator {
	i := 0
	return jsval.NewIterator(func() (any, bool) {
		if i >= len(sp.pairs) {
			return jsval.Undefined, true
		}
		p := sp.pairs[i]
		i++
		return &jsval.Array{Elems: []any{p.name, p.value}}, false
	})
}

// GetProperty exposes size.
func (sp *SearchParams) GetProperty(key string) (any, bool) {
	if key == "size" {
		return float64(len(sp.pairs)), true
	}
	return nil, false
}

func (sp *SearchParams) update() {
	if sp.owner != nil {
		sp.owner.u.RawQuery = sp.String()
	}
}

func formEncode(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			sb.WriteByte('+')
		case isAlnum(c) || c == '*' || c == '-' || c == '.' || c == '_':
			sb.WriteByte(c)
		default:
			sb.WriteByte('%')
			sb.WriteByte(upperhex[c>>4])
			sb.WriteByte(upperhex[c&15])
		}
	}
	return sb.String()
}

// formDecode is lenient: invalid escapes are kept literally.
func formDecode(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if !strings.Contains(s, "%") {
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
	return strings.ToValidUTF8(string(buf), "\uFFFD")
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	}
	return c - 'A' + 10
}
