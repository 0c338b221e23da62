package fetch

import (
	"encoding/json"

	"github.com/woxQAQ/wbg-host/internal/jsval"
	"github.com/woxQAQ/wbg-host/internal/loop"
)

// Response is a completed response with a buffered body.
type Response struct {
	Status     int
	StatusText string
	URL        string
	Redirected bool
	Headers    *Headers

	body     []byte
	bodyUsed bool
	loop     *loop.Loop
}

func (r *Response) ClassName() string { return "Response" }

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// BodyUsed reports whether the body was consumed.
func (r *Response) BodyUsed() bool { return r.bodyUsed }

func (r *Response) consume() ([]byte, error) {
	if r.bodyUsed {
		return nil, jsval.NewTypeError("Failed to execute 'text' on 'Response': body stream already read")
	}
	r.bodyUsed = true
	return r.body, nil
}

// Text returns a promise of the body decoded as UTF-8.
func (r *Response) Text() *loop.Promise {
	body, err := r.consume()
	if err != nil {
		return r.loop.RejectedWith(err)
	}
	return r.loop.Resolved(string(body))
}

// JSON returns a promise of the parsed body.
func (r *Response) JSON() *loop.Promise {
	body, err := r.consume()
	if err != nil {
		return r.loop.RejectedWith(err)
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return r.loop.RejectedWith(jsval.NewSyntaxError("Unexpected token in JSON: " + err.Error()))
	}
	return r.loop.Resolved(jsval.FromGo(v))
}

// ArrayBuffer returns a promise of the raw body.
func (r *Response) ArrayBuffer() *loop.Promise {
	body, err := r.consume()
	if err != nil {
		return r.loop.RejectedWith(err)
	}
	return r.loop.Resolved(&jsval.ArrayBuffer{Data: append([]byte(nil), body...)})
}

// GetProperty exposes the response attributes and body readers.
func (r *Response) GetProperty(key string) (any, bool) {
	switch key {
	case "status":
		return float64(r.Status), true
	case "statusText":
		return r.StatusText, true
	case "ok":
		return r.OK(), true
	case "url":
		return r.URL, true
	case "redirected":
		return r.Redirected, true
	case "headers":
		return r.Headers, true
	case "bodyUsed":
		return r.bodyUsed, true
	case "text":
		return jsval.NewFunction("text", func(any, []any) (any, error) { return r.Text(), nil }), true
	case "json":
		return jsval.NewFunction("json", func(any, []any) (any, error) { return r.JSON(), nil }), true
	case "arrayBuffer":
		return jsval.NewFunction("arrayBuffer", func(any, []any) (any, error) { return r.ArrayBuffer(), nil }), true
	}
	return nil, false
}
