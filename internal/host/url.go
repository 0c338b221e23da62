package host

import (
	"github.com/woxQAQ/wbg-host/internal/fetch"
	"github.com/woxQAQ/wbg-host/internal/jsval"
	"github.com/woxQAQ/wbg-host/internal/weburl"
)

// uriFunc declares the global URI coding functions.
func uriFunc(name string, code func(string) (string, error)) *Entry {
	return entry(name, "ii>i", func(c *Call) error {
		s, err := c.Str(0)
		if err != nil {
			return err
		}
		out, err := code(s)
		if err != nil {
			return err
		}
		c.ReturnObject(out)
		return nil
	})
}

func urlEntries() []*Entry {
	return []*Entry{
		// Location getters throw; URL getters share the entries.
		throwing(stringGetter("URL.origin", "origin", false)),
		throwing(stringGetter("URL.pathname", "pathname", false)),
		throwing(stringGetter("URL.search", "search", false)),
		throwing(stringGetter("URL.hash", "hash", false)),
		stringSetter("URL.setsearch", "search"),
		entry("URL.searchParams", "i>i", func(c *Call) error {
			u, err := receiver[*weburl.URL](c, 0, "URL")
			if err != nil {
				return err
			}
			c.ReturnObject(u.SearchParams())
			return nil
		}),
		throwing(entry("URL.new", "ii>i", func(c *Call) error {
			raw, err := c.Str(0)
			if err != nil {
				return err
			}
			u, err := weburl.Parse(raw)
			if err != nil {
				return err
			}
			c.ReturnObject(u)
			return nil
		})),
		throwing(entry("URL.newwithbase", "iiii>i", func(c *Call) error {
			raw, err := c.Str(0)
			if err != nil {
				return err
			}
			base, err := c.Str(2)
			if err != nil {
				return err
			}
			u, err := weburl.ParseWithBase(raw, base)
			if err != nil {
				return err
			}
			c.ReturnObject(u)
			return nil
		})),

		throwing(entry("URLSearchParams.new", ">i", func(c *Call) error {
			c.ReturnObject(weburl.ParseSearchParams(""))
			return nil
		})),
		entry("URLSearchParams.append", "iiiii>", func(c *Call) error {
			sp, err := receiver[*weburl.SearchParams](c, 0, "URLSearchParams")
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
			sp.Append(name, value)
			return nil
		}),
		// append(name, value) with host values, shared by Headers and
		// URLSearchParams.
		throwing(entry("append", "iii>", func(c *Call) error {
			name, value := jsval.ToString(c.Get(1)), jsval.ToString(c.Get(2))
			switch t := c.Get(0).(type) {
			case *fetch.Headers:
				return t.Append(name, value)
			case *weburl.SearchParams:
				t.Append(name, value)
				return nil
			}
			return jsval.NewTypeError("append is not a function")
		})),

		throwing(uriFunc("decodeURI", weburl.DecodeURI)),
		uriFunc("encodeURIComponent", weburl.EncodeURIComponent),
	}
}
