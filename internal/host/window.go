package host

import (
	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

// globalEntry returns the window for the self referencing global names.
func globalEntry(name string) *Entry {
	return throwing(entry(name, ">i", func(c *Call) error {
		c.ReturnObject(c.Env().Window)
		return nil
	}))
}

func windowEntries() []*Entry {
	return []*Entry{
		typeTest("Window.instanceof_Window", func(v any) bool {
			_, ok := v.(*dom.Window)
			return ok
		}),
		// Sessions never run in a worker.
		typeTest("WorkerGlobalScope.instanceof_WorkerGlobalScope", func(any) bool { return false }),

		entry("Window.document", "i>i", func(c *Call) error {
			v, err := property(c, 0, "document")
			if err != nil {
				return err
			}
			c.ReturnOptional(v)
			return nil
		}),
		entry("Window.location", "i>i", func(c *Call) error {
			v, err := property(c, 0, "location")
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		}),
		throwing(entry("Window.history", "i>i", func(c *Call) error {
			w, err := receiver[*dom.Window](c, 0, "Window")
			if err != nil {
				return err
			}
			c.ReturnObject(w.History)
			return nil
		})),
		entry("Window.scrollTo", "iFF>", func(c *Call) error {
			w, err := receiver[*dom.Window](c, 0, "Window")
			if err != nil {
				return err
			}
			w.ScrollTo(c.F64(1), c.F64(2))
			return nil
		}),
		throwing(entry("Window.requestAnimationFrame", "ii>i", func(c *Call) error {
			w, err := receiver[*dom.Window](c, 0, "Window")
			if err != nil {
				return err
			}
			fn, ok := c.Get(1).(*jsval.Function)
			if !ok {
				return jsval.NewTypeError("Failed to execute 'requestAnimationFrame' on 'Window': The callback provided as parameter 1 is not a function.")
			}
			c.ReturnI32(int32(w.RequestAnimationFrame(fn)))
			return nil
		})),

		entry("queueMicrotask", "i>", func(c *Call) error {
			fn, ok := c.Get(0).(*jsval.Function)
			if !ok {
				return jsval.NewTypeError("Failed to execute 'queueMicrotask' on 'Window': parameter 1 is not of type 'Function'.")
			}
			c.Env().Window.QueueMicrotask(fn)
			return nil
		}),
		entry("Window.queueMicrotask", "i>i", func(c *Call) error {
			v, err := property(c, 0, "queueMicrotask")
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		}),

		globalEntry("globalThis"),
		globalEntry("self"),
		globalEntry("window"),
		throwing(entry("global", ">i", func(*Call) error {
			return jsval.NewReferenceError("global is not defined")
		})),

		throwing(entry("History.pushState", "iiiiii>", func(c *Call) error {
			return changeState(c, (*dom.History).PushState)
		})),
		throwing(entry("History.replaceState", "iiiiii>", func(c *Call) error {
			return changeState(c, (*dom.History).ReplaceState)
		})),
	}
}

// changeState decodes (history, state, title, url) for pushState and
// replaceState. The title is decoded for validity and otherwise ignored.
func changeState(c *Call, change func(h *dom.History, state any, rawURL *string) error) error {
	h, err := receiver[*dom.History](c, 0, "History")
	if err != nil {
		return err
	}
	if _, err := c.Str(2); err != nil {
		return err
	}
	rawURL, err := c.OptionalStr(4)
	if err != nil {
		return err
	}
	return change(h, c.Get(1), rawURL)
}
