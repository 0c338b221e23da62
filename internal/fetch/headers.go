package fetch

import (
	"net/http"
	"strings"

	"github.com/woxQAQ/wbg-host/internal/jsval"
)

type header struct {
	name, value string
}

// Headers is an ordered header list with case-insensitive names.
type Headers struct {
	list []header
}

// NewHeaders creates an empty header list.
func NewHeaders() *Headers { return &Headers{} }

// HeadersFrom implements new Headers(init) for a Headers, an object of
// name/value members or an array of pairs.
func HeadersFrom(init any) (*Headers, error) {
	h := NewHeaders()
	switch t := init.(type) {
	case *Headers:
		h.list = append(h.list, t.list...)
	case *jsval.Object:
		for _, k := range t.Keys() {
			v, _ := t.Get(k)
			if err := h.Append(k, jsval.ToString(v)); err != nil {
				return nil, err
			}
		}
	case *jsval.Array:
		for _, e := range t.Elems {
			pair, ok := e.(*jsval.Array)
			if !ok || pair.Len() != 2 {
				return nil, jsval.NewTypeError("Failed to construct 'Headers': Invalid value")
			}
			if err := h.Append(jsval.ToString(pair.At(0)), jsval.ToString(pair.At(1))); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

func (h *Headers) ClassName() string { return "Headers" }

func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7F || strings.IndexByte("\"(),/:;<=>?@[\\]{}", c) >= 0 {
			return false
		}
	}
	return true
}

func normalize(name, value string) (string, string, error) {
	if !validHeaderName(name) {
		return "", "", jsval.NewTypeError("Invalid header name: '" + name + "'")
	}
	value = strings.Trim(value, " \t\r\n")
	if strings.ContainsAny(value, "\r\n\x00") {
		return "", "", jsval.NewTypeError("Invalid header value")
	}
	return strings.ToLower(name), value, nil
}

// Append adds a value.
func (h *Headers) Append(name, value string) error {
	name, value, err := normalize(name, value)
	if err != nil {
		return err
	}
	h.list = append(h.list, header{name, value})
	return nil
}

// Set replaces every value of name.
func (h *Headers) Set(name, value string) error {
	name, value, err := normalize(name, value)
	if err != nil {
		return err
	}
	h.Delete(name)
	h.list = append(h.list, header{name, value})
	return nil
}

// Get returns the values of name joined by ", ".
func (h *Headers) Get(name string) (string, bool) {
	name = strings.ToLower(name)
	var values []string
	for _, e := range h.list {
		if e.name == name {
			values = append(values, e.value)
		}
	}
	return strings.Join(values, ", "), values != nil
}

// Has reports whether name is present.
func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Delete removes every value of name.
func (h *Headers) Delete(name string) {
	name = strings.ToLower(name)
	out := h.list[:0]
	for _, e := range h.list {
		if e.name != name {
			out = append(out, e)
		}
	}
	h.list = out
}

// Len returns the number of entries.
func (h *Headers) Len() int { return len(h.list) }

// HTTP converts the list into an http.Header.
func (h *Headers) HTTP() http.Header {
	out := make(http.Header, len(h.list))
	for _, e := range h.list {
		out.Add(e.name, e.value)
	}
	return out
}

func headersFromHTTP(src http.Header) *Headers {
	h := NewHeaders()
	for name, values := range src {
		for _, v := range values {
			h.list = append(h.list, header{strings.ToLower(name), v})
		}
	}
	return h
}
