package host

import (
	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

// listenerTarget is implemented by nodes and the window.
type listenerTarget interface {
	AddEventListener(typ string, fn *jsval.Function, opts dom.ListenerOptions)
	RemoveEventListener(typ string, fn *jsval.Function, capture bool)
}

// listenerOptions reads the third addEventListener argument: a capture
// boolean or an options object.
func listenerOptions(v any) dom.ListenerOptions {
	if jsval.IsNullish(v) {
		return dom.ListenerOptions{}
	}
	if !jsval.IsObject(v) {
		return dom.ListenerOptions{Capture: jsval.Truthy(v)}
	}
	flag := func(key string) bool {
		f, _ := jsval.Get(v, key)
		return jsval.Truthy(f)
	}
	return dom.ListenerOptions{Capture: flag("capture"), Once: flag("once"), Passive: flag("passive")}
}

// listenerCall decodes (target, type, listener) and the optional options
// argument at index 4.
func listenerCall(c *Call, withOptions bool, do func(t listenerTarget, typ string, fn *jsval.Function, opts dom.ListenerOptions)) error {
	t, err := receiver[listenerTarget](c, 0, "EventTarget")
	if err != nil {
		return err
	}
	typ, err := c.Str(1)
	if err != nil {
		return err
	}
	var opts dom.ListenerOptions
	if withOptions {
		opts = listenerOptions(c.Get(4))
	}
	// Listeners that are not functions are ignored.
	fn, _ := c.Get(3).(*jsval.Function)
	do(t, typ, fn, opts)
	return nil
}

func addListener(t listenerTarget, typ string, fn *jsval.Function, opts dom.ListenerOptions) {
	t.AddEventListener(typ, fn, opts)
}

func event(c *Call) (*dom.Event, error) {
	return receiver[*dom.Event](c, 0, "Event")
}

// eventFlag declares boolean event attribute getters.
func eventFlag(name, key string) *Entry {
	return entry(name, "i>i", func(c *Call) error {
		e, err := event(c)
		if err != nil {
			return err
		}
		v, _ := e.GetProperty(key)
		c.ReturnBool(jsval.Truthy(v))
		return nil
	})
}

func eventEntries() []*Entry {
	return []*Entry{
		throwing(entry("EventTarget.addEventListener", "iiii>", func(c *Call) error {
			return listenerCall(c, false, addListener)
		})),
		throwing(entry("EventTarget.addEventListener#options", "iiiii>", func(c *Call) error {
			return listenerCall(c, true, addListener)
		})),
		throwing(entry("EventTarget.removeEventListener", "iiii>", func(c *Call) error {
			return listenerCall(c, false, func(t listenerTarget, typ string, fn *jsval.Function, _ dom.ListenerOptions) {
				t.RemoveEventListener(typ, fn, false)
			})
		})),

		entry("Event.target", "i>i", func(c *Call) error {
			e, err := event(c)
			if err != nil {
				return err
			}
			c.ReturnOptional(e.Target())
			return nil
		}),
		eventFlag("Event.defaultPrevented", "defaultPrevented"),
		eventFlag("Event.cancelBubble", "cancelBubble"),
		entry("Event.composedPath", "i>i", func(c *Call) error {
			e, err := event(c)
			if err != nil {
				return err
			}
			c.ReturnObject(&jsval.Array{Elems: e.ComposedPath()})
			return nil
		}),
		entry("Event.preventDefault", "i>", func(c *Call) error {
			e, err := event(c)
			if err != nil {
				return err
			}
			e.PreventDefault()
			return nil
		}),
		eventFlag("MouseEvent.ctrlKey", "ctrlKey"),
		eventFlag("MouseEvent.shiftKey", "shiftKey"),
		eventFlag("MouseEvent.altKey", "altKey"),
		eventFlag("MouseEvent.metaKey", "metaKey"),
		entry("MouseEvent.button", "i>i", func(c *Call) error {
			e, err := event(c)
			if err != nil {
				return err
			}
			c.ReturnI32(int32(e.Button))
			return nil
		}),
	}
}
