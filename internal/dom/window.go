package dom

import (
	"go.uber.org/zap"

	"github.com/woxQAQ/wbg-host/internal/jsval"
	"github.com/woxQAQ/wbg-host/internal/loop"
	"github.com/woxQAQ/wbg-host/internal/weburl"
)

// Window is the global object of a session.
type Window struct {
	EventTarget

	Document *Node
	Location *Location
	History  *History

	ScrollX float64
	ScrollY float64

	// ScrolledInto is the last element passed to scrollIntoView.
	ScrolledInto *Node

	globals map[string]any
	loop    *loop.Loop
	logger  *zap.Logger
}

// NewWindow creates a window with an empty document at rawURL.
func NewWindow(l *loop.Loop, logger *zap.Logger, rawURL string) (*Window, error) {
	u, err := weburl.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	w := &Window{
		globals: make(map[string]any),
		loop:    l,
		logger:  logger.With(zap.String("component", "dom")),
	}
	w.Document = &Node{Type: DocumentNode, window: w}
	w.Location = &Location{url: u}
	w.History = &History{
		window:  w,
		entries: []historyEntry{{state: nil, url: u}},
	}
	return w, nil
}

func (w *Window) target() *EventTarget { return &w.EventTarget }

func (w *Window) parentTarget() eventTarget { return nil }

func (w *Window) ClassName() string { return "Window" }

// Loop returns the event loop the window belongs to.
func (w *Window) Loop() *loop.Loop { return w.loop }

// Dispatch dispatches e at t, which must be a *Node or the window itself.
// It reports whether the default action was not prevented.
func (w *Window) Dispatch(t any, e *Event) bool {
	var target eventTarget
	switch v := t.(type) {
	case *Node:
		target = v
	case *Window:
		target = v
	default:
		return true
	}
	return dispatch(target, e, w.reportError)
}

func (w *Window) reportError(err error) {
	w.logger.Error("Uncaught exception in event listener",
		zap.String("error", jsval.ToString(jsval.ThrownValue(err))))
}

// Define installs a global property, e.g. a host function.
func (w *Window) Define(name string, v any) {
	w.globals[name] = v
}

// QueueMicrotask schedules fn. Errors it throws are reported like listener
// errors.
func (w *Window) QueueMicrotask(fn *jsval.Function) {
	w.loop.QueueMicrotask(func() {
		if _, err := fn.Invoke(jsval.Undefined); err != nil {
			w.reportError(err)
		}
	})
}

// RequestAnimationFrame schedules fn for the next frame and returns its id.
func (w *Window) RequestAnimationFrame(fn *jsval.Function) int {
	return w.loop.RequestAnimationFrame(func(ts float64) {
		if _, err := fn.Invoke(jsval.Undefined, ts); err != nil {
			w.reportError(err)
		}
	})
}

// ScrollTo records the scroll position.
func (w *Window) ScrollTo(x, y float64) {
	w.ScrollX, w.ScrollY = x, y
}

// ScrollIntoView records n as the scrolled element.
func (w *Window) ScrollIntoView(n *Node) {
	w.ScrolledInto = n
}

// GetProperty exposes the window globals.
func (w *Window) GetProperty(key string) (any, bool) {
	switch key {
	case "window", "self", "globalThis", "frames", "top", "parent":
		return w, true
	case "document":
		return w.Document, true
	case "location":
		return w.Location, true
	case "history":
		return w.History, true
	case "scrollX", "pageXOffset":
		return w.ScrollX, true
	case "scrollY", "pageYOffset":
		return w.ScrollY, true
	case "origin":
		return w.Location.Origin(), true
	case "queueMicrotask":
		return jsval.NewFunction(key, func(_ any, args []any) (any, error) {
			fn, ok := firstArg(args).(*jsval.Function)
			if !ok {
				return nil, jsval.NewTypeError("Failed to execute 'queueMicrotask' on 'Window': parameter 1 is not of type 'Function'.")
			}
			w.QueueMicrotask(fn)
			return jsval.Undefined, nil
		}), true
	}
	v, ok := w.globals[key]
	return v, ok
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return jsval.Undefined
	}
	return args[0]
}

// Location is window.location.
type Location struct {
	url *weburl.URL
}

func (l *Location) ClassName() string { return "Location" }

// URL returns the current document URL.
func (l *Location) URL() *weburl.URL { return l.url }

// Href returns the current URL.
func (l *Location) Href() string { return l.url.Href() }

// Origin returns the document origin.
func (l *Location) Origin() string { return l.url.Origin() }

// Pathname returns the document path.
func (l *Location) Pathname() string { return l.url.Pathname() }

// Search returns the query including "?".
func (l *Location) Search() string { return l.url.Search() }

// Hash returns the fragment including "#".
func (l *Location) Hash() string { return l.url.Hash() }

// Resolve parses raw relative to the current URL.
func (l *Location) Resolve(raw string) (*weburl.URL, error) {
	return weburl.ParseWithBase(raw, l.url.Href())
}

// GetProperty exposes the location attributes.
func (l *Location) GetProperty(key string) (any, bool) {
	if key == "searchParams" {
		return nil, false
	}
	return l.url.GetProperty(key)
}

type historyEntry struct {
	state any
	url   *weburl.URL
}

// History is the session history of a window. Navigation never leaves the
// document: entries only change the location and state.
type History struct {
	window  *Window
	entries []historyEntry
	index   int
}

func (h *History) ClassName() string { return "History" }

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Index returns the position of the current entry.
func (h *History) Index() int { return h.index }

// State returns the state of the current entry.
func (h *History) State() any { return h.entries[h.index].state }

func (h *History) resolve(rawURL *string) (*weburl.URL, error) {
	loc := h.window.Location
	if rawURL == nil {
		return loc.url, nil
	}
	u, err := loc.Resolve(*rawURL)
	if err != nil {
		return nil, jsval.NewDOMException("SecurityError", "Failed to execute 'pushState' on 'History': invalid URL")
	}
	if !u.SameOrigin(loc.url) {
		return nil, jsval.NewDOMException("SecurityError",
			"A history state object with URL '"+u.Href()+"' cannot be created in a document with origin '"+loc.Origin()+"'.")
	}
	return u, nil
}

// PushState adds an entry after the current one, discarding forward entries.
// A nil rawURL keeps the current URL.
func (h *History) PushState(state any, rawURL *string) error {
	u, err := h.resolve(rawURL)
	if err != nil {
		return err
	}
	h.entries = append(h.entries[:h.index+1], historyEntry{state: state, url: u})
	h.index++
	h.window.Location.url = u
	return nil
}

// ReplaceState replaces the current entry.
func (h *History) ReplaceState(state any, rawURL *string) error {
	u, err := h.resolve(rawURL)
	if err != nil {
		return err
	}
	h.entries[h.index] = historyEntry{state: state, url: u}
	h.window.Location.url = u
	return nil
}

// Go moves delta entries and queues a popstate event. Out of range moves are
// ignored and report false.
func (h *History) Go(delta int) bool {
	next := h.index + delta
	if delta == 0 || next < 0 || next >= len(h.entries) {
		return false
	}
	h.index = next
	entry := h.entries[next]
	h.window.Location.url = entry.url

	w := h.window
	w.loop.Post(func() {
		w.Dispatch(w, NewEvent("popstate", EventInit{State: entry.state}))
	})
	return true
}

// Back is Go(-1).
func (h *History) Back() bool { return h.Go(-1) }

// Forward is Go(1).
func (h *History) Forward() bool { return h.Go(1) }

// GetProperty exposes length and state.
func (h *History) GetProperty(key string) (any, bool) {
	switch key {
	case "length":
		return float64(len(h.entries)), true
	case "state":
		return orNull(h.State()), true
	}
	return nil, false
}
