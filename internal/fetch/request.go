package fetch

import (
	"strings"

	"github.com/woxQAQ/wbg-host/internal/jsval"
)

var forbiddenMethods = map[string]bool{"CONNECT": true, "TRACE": true, "TRACK": true}

var normalizedMethods = map[string]bool{
	"DELETE": true, "GET": true, "HEAD": true, "OPTIONS": true, "POST": true, "PUT": true,
}

// Request is an outgoing request. URL is kept as given and resolved when
// fetched.
type Request struct {
	Method      string
	URL         string
	Headers     *Headers
	Body        []byte
	Mode        string
	Credentials string
}

// NewRequest implements new Request(url, init). init may be undefined or an
// object with method, headers, body, mode and credentials members.
func NewRequest(rawURL string, init any) (*Request, error) {
	r := &Request{
		Method:      "GET",
		URL:         rawURL,
		Headers:     NewHeaders(),
		Mode:        "cors",
		Credentials: "same-origin",
	}
	if jsval.IsNullish(init) {
		return r, nil
	}

	get := func(key string) any {
		v, _ := jsval.Get(init, key)
		return v
	}

	if m := get("method"); !jsval.IsNullish(m) {
		method := jsval.ToString(m)
		if forbiddenMethods[strings.ToUpper(method)] {
			return nil, jsval.NewTypeError("Failed to construct 'Request': '" + method + "' HTTP method is unsupported.")
		}
		if normalizedMethods[strings.ToUpper(method)] {
			method = strings.ToUpper(method)
		}
		r.Method = method
	}
	if h := get("headers"); !jsval.IsNullish(h) {
		headers, err := HeadersFrom(h)
		if err != nil {
			return nil, err
		}
		r.Headers = headers
	}
	if b := get("body"); !jsval.IsNullish(b) {
		if r.Method == "GET" || r.Method == "HEAD" {
			return nil, jsval.NewTypeError("Failed to construct 'Request': Request with GET/HEAD method cannot have body.")
		}
		r.Body = bodyBytes(b)
		if _, ok := b.(string); ok && !r.Headers.Has("content-type") {
			r.Headers.Set("content-type", "text/plain;charset=UTF-8")
		}
	}
	if m := get("mode"); !jsval.IsNullish(m) {
		r.Mode = jsval.ToString(m)
	}
	if c := get("credentials"); !jsval.IsNullish(c) {
		r.Credentials = jsval.ToString(c)
	}
	return r, nil
}

func bodyBytes(v any) []byte {
	switch t := v.(type) {
	case *jsval.Uint8Array:
		return append([]byte(nil), t.Bytes()...)
	case *jsval.ArrayBuffer:
		return append([]byte(nil), t.Data...)
	}
	return []byte(jsval.ToString(v))
}

func (r *Request) ClassName() string { return "Request" }

// GetProperty exposes the request attributes.
func (r *Request) GetProperty(key string) (any, bool) {
	switch key {
	case "method":
		return r.Method, true
	case "url":
		return r.URL, true
	case "headers":
		return r.Headers, true
	case "mode":
		return r.Mode, true
	case "credentials":
		return r.Credentials, true
	}
	return nil, false
}
