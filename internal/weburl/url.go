// Package weburl implements URL, URLSearchParams and the URI component
// coding functions on top of net/url.
package weburl

import (
	"net/url"
	"strings"

	"github.com/woxQAQ/wbg-host/internal/jsval"
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

// URL is a parsed absolute URL.
type URL struct {
	u      *url.URL
	params *SearchParams
}

// Parse parses an absolute URL.
func Parse(raw string) (*URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return nil, invalidURL(raw)
	}
	return newURL(u)
}

// ParseWithBase resolves raw against base.
func ParseWithBase(raw, base string) (*URL, error) {
	b, err := Parse(base)
	if err != nil {
		return nil, invalidURL(base)
	}
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, invalidURL(raw)
	}
	return newURL(b.u.ResolveReference(ref))
}

func newURL(u *url.URL) (*URL, error) {
	u.Scheme = strings.ToLower(u.Scheme)
	_, special := defaultPorts[u.Scheme]
	if special {
		if u.Host == "" {
			return nil, invalidURL(u.String())
		}
		host := strings.ToLower(u.Hostname())
		if port := u.Port(); port != "" && port != defaultPorts[u.Scheme] {
			host = joinHostPort(host, port)
		} else if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		u.Host = host
		if u.Path == "" && u.Opaque == "" {
			u.Path = "/"
		}
	}
	// Drop a bare "?" or "#".
	u.ForceQuery = false
	u.RawFragment = u.EscapedFragment()

	out := &URL{u: u}
	out.params = ParseSearchParams(u.RawQuery)
	out.params.owner = out
	return out, nil
}

func joinHostPort(host, port string) string {
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return host + ":" + port
}

func invalidURL(raw string) error {
	return jsval.NewTypeError("Failed to construct 'URL': Invalid URL '" + raw + "'")
}

func (u *URL) ClassName() string { return "URL" }

// Href returns the serialized URL.
func (u *URL) Href() string { return u.u.String() }

func (u *URL) String() string { return u.Href() }

// Protocol returns the scheme followed by a colon.
func (u *URL) Protocol() string { return u.u.Scheme + ":" }

// Host returns hostname and non-default port.
func (u *URL) Host() string { return u.u.Host }

// Hostname returns the host without port.
func (u *URL) Hostname() string { return u.u.Hostname() }

// Port returns the explicit non-default port.
func (u *URL) Port() string { return u.u.Port() }

// Origin returns the ASCII serialization of the origin.
func (u *URL) Origin() string {
	if _, special := defaultPorts[u.u.Scheme]; !special || u.u.Scheme == "ftp" && u.u.Host == "" {
		return "null"
	}
	return u.u.Scheme + "://" + u.u.Host
}

// Pathname returns the escaped path.
func (u *URL) Pathname() string {
	if u.u.Opaque != "" {
		return u.u.Opaque
	}
	return u.u.EscapedPath()
}

// SetPathname replaces the path.
func (u *URL) SetPathname(p string) {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u.u.Path = p
	u.u.RawPath = ""
}

// Search returns "?query" or "".
func (u *URL) Search() string {
	if u.u.RawQuery == "" {
		return ""
	}
	return "?" + u.u.RawQuery
}

// SetSearch replaces the query and resets the linked search params.
func (u *URL) SetSearch(s string) {
	s = strings.TrimPrefix(s, "?")
	u.u.RawQuery = escapeQuery(s)
	u.params.pairs = ParseSearchParams(s).pairs
}

// Hash returns "#fragment" or "".
func (u *URL) Hash() string {
	if u.u.Fragment == "" {
		return ""
	}
	return "#" + u.u.EscapedFragment()
}

// SetHash replaces the fragment.
func (u *URL) SetHash(h string) {
	h = strings.TrimPrefix(h, "#")
	u.u.Fragment = h
	u.u.RawFragment = ""
}

// SearchParams returns the params linked to this URL's query.
func (u *URL) SearchParams() *SearchParams { return u.params }

// SameOrigin reports whether both URLs share an origin.
func (u *URL) SameOrigin(other *URL) bool {
	return u.Origin() != "null" && u.Origin() == other.Origin()
}

// GetProperty exposes the URL attributes.
func (u *URL) GetProperty(key string) (any, bool) {
	switch key {
	case "href":
		return u.Href(), true
	case "origin":
		return u.Origin(), true
	case "protocol":
		return u.Protocol(), true
	case "host":
		return u.Host(), true
	case "hostname":
		return u.Hostname(), true
	case "port":
		return u.Port(), true
	case "pathname":
		return u.Pathname(), true
	case "search":
		return u.Search(), true
	case "hash":
		return u.Hash(), true
	case "searchParams":
		return u.params, true
	}
	return nil, false
}

// SetProperty updates writable URL attributes.
func (u *URL) SetProperty(key string, v any) error {
	s := jsval.ToString(v)
	switch key {
	case "search":
		u.SetSearch(s)
	case "hash":
		u.SetHash(s)
	case "pathname":
		u.SetPathname(s)
	case "href":
		next, err := Parse(s)
		if err != nil {
			return err
		}
		*u = *next
		u.params.owner = u
	}
	return nil
}

// escapeQuery percent-encodes characters not allowed in a query.
func escapeQuery(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= ' ' || c == '"' || c == '#' || c == '<' || c == '>' || c >= 0x7F {
			sb.WriteByte('%')
			sb.WriteByte(upperhex[c>>4])
			sb.WriteByte(upperhex[c&15])
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

const upperhex = "0123456789ABCDEF"
