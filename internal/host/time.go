package host

import (
	"time"

	"github.com/woxQAQ/wbg-host/internal/jsval"
	"github.com/woxQAQ/wbg-host/internal/loop"
)

func date(c *Call) (*jsval.Date, error) {
	return receiver[*jsval.Date](c, 0, "Date")
}

func timeEntries() []*Entry {
	return []*Entry{
		entry("Date.new0", ">i", func(c *Call) error {
			c.ReturnObject(jsval.NewDate(time.Now()))
			return nil
		}),
		entry("Date.now", ">F", func(c *Call) error {
			c.ReturnF64(jsval.Now())
			return nil
		}),
		entry("Date.getTime", "i>F", func(c *Call) error {
			d, err := date(c)
			if err != nil {
				return err
			}
			c.ReturnF64(d.GetTime())
			return nil
		}),
		entry("Date.getTimezoneOffset", "i>F", func(c *Call) error {
			d, err := date(c)
			if err != nil {
				return err
			}
			c.ReturnF64(d.TimezoneOffset())
			return nil
		}),

		entry("Promise.resolve", "i>i", func(c *Call) error {
			c.ReturnObject(c.Env().Loop.Resolved(c.Get(0)))
			return nil
		}),
		entry("Promise.then", "ii>i", func(c *Call) error {
			p, err := receiver[*loop.Promise](c, 0, "Promise")
			if err != nil {
				return err
			}
			c.ReturnObject(p.ThenFunctions(c.Get(1), jsval.Undefined))
			return nil
		}),
		entry("Promise.then#2", "iii>i", func(c *Call) error {
			p, err := receiver[*loop.Promise](c, 0, "Promise")
			if err != nil {
				return err
			}
			c.ReturnObject(p.ThenFunctions(c.Get(1), c.Get(2)))
			return nil
		}),

		entry("RegExp.new", "iiii>i", func(c *Call) error {
			pattern, err := c.Str(0)
			if err != nil {
				return err
			}
			flags, err := c.Str(2)
			if err != nil {
				return err
			}
			re, err := jsval.NewRegExp(pattern, flags)
			if err != nil {
				return err
			}
			c.ReturnObject(re)
			return nil
		}),
		entry("RegExp.exec", "iii>i", func(c *Call) error {
			re, err := receiver[*jsval.RegExp](c, 0, "RegExp")
			if err != nil {
				return err
			}
			s, err := c.Str(1)
			if err != nil {
				return err
			}
			m, err := re.Exec(s)
			if err != nil {
				return err
			}
			c.ReturnOptional(m)
			return nil
		}),
	}
}
