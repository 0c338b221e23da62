package host

import (
	"github.com/woxQAQ/wbg-host/internal/fetch"
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

func response(c *Call, i int) (*fetch.Response, error) {
	return receiver[*fetch.Response](c, i, "Response")
}

func netEntries() []*Entry {
	return []*Entry{
		throwing(entry("Request.newwithstr", "ii>i", func(c *Call) error {
			raw, err := c.Str(0)
			if err != nil {
				return err
			}
			req, err := fetch.NewRequest(raw, jsval.Undefined)
			if err != nil {
				return err
			}
			c.ReturnObject(req)
			return nil
		})),
		throwing(entry("Request.newwithstrandinit", "iii>i", func(c *Call) error {
			raw, err := c.Str(0)
			if err != nil {
				return err
			}
			req, err := fetch.NewRequest(raw, c.Get(2))
			if err != nil {
				return err
			}
			c.ReturnObject(req)
			return nil
		})),

		throwing(entry("Headers.new", ">i", func(c *Call) error {
			c.ReturnObject(fetch.NewHeaders())
			return nil
		})),
		throwing(entry("Headers.set", "iiiii>", func(c *Call) error {
			h, err := receiver[*fetch.Headers](c, 0, "Headers")
			if err != nil {
				return err
			}
			name, err := c.Str(1)
			if err != nil {
				return err
			}
			value, err := c.Str(3)
			if err != nil {
				return err
			}
			return h.Set(name, value)
		})),

		// Window and WorkerGlobalScope fetch share the entry; the receiver
		// is always the session global.
		entry("fetch", "ii>i", func(c *Call) error {
			env := c.Env()
			if env.Fetch == nil {
				c.ReturnObject(env.Loop.RejectedWith(jsval.NewTypeError("Failed to fetch")))
				return nil
			}
			c.ReturnObject(env.Fetch.Fetch(env.Bridge.Context(), c.Get(1)))
			return nil
		}),

		typeTest("Response.instanceof_Response", func(v any) bool {
			_, ok := v.(*fetch.Response)
			return ok
		}),
		entry("Response.status", "i>i", func(c *Call) error {
			r, err := response(c, 0)
			if err != nil {
				return err
			}
			c.ReturnU32(uint32(r.Status))
			return nil
		}),
		entry("Response.url", "ii>", func(c *Call) error {
			r, err := response(c, 1)
			if err != nil {
				return err
			}
			return c.PutString(c.U32(0), r.URL)
		}),
		throwing(entry("Response.text", "i>i", func(c *Call) error {
			r, err := response(c, 0)
			if err != nil {
				return err
			}
			c.ReturnObject(r.Text())
			return nil
		})),
	}
}
