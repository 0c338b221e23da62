package dom

import (
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

// ListenerOptions mirrors the options bag of addEventListener.
type ListenerOptions struct {
	Capture bool
	Once    bool
	Passive bool
}

type listener struct {
	typ     string
	fn      *jsval.Function
	capture bool
	once    bool
	passive bool
	removed bool
}

// EventTarget holds the listeners of a node or window.
type EventTarget struct {
	listeners []*listener
}

type eventTarget interface {
	target() *EventTarget
	parentTarget() eventTarget
}

// AddEventListener registers fn. Registering the same (type, fn, capture)
// twice is a no-op.
func (et *EventTarget) AddEventListener(typ string, fn *jsval.Function, opts ListenerOptions) {
	if fn == nil {
		return
	}
	for _, l := range et.listeners {
		if l.typ == typ && l.fn == fn && l.capture == opts.Capture {
			return
		}
	}
	et.listeners = append(et.listeners, &listener{
		typ:     typ,
		fn:      fn,
		capture: opts.Capture,
		once:    opts.Once,
		passive: opts.Passive,
	})
}

// RemoveEventListener unregisters the matching listener.
func (et *EventTarget) RemoveEventListener(typ string, fn *jsval.Function, capture bool) {
	for i, l := range et.listeners {
		if l.typ == typ && l.fn == fn && l.capture == capture {
			l.removed = true
			et.listeners = append(et.listeners[:i], et.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of listeners for typ.
func (et *EventTarget) ListenerCount(typ string) int {
	n := 0
	for _, l := range et.listeners {
		if l.typ == typ {
			n++
		}
	}
	return n
}

// Event phases.
const (
	PhaseNone      = 0
	PhaseCapturing = 1
	PhaseAtTarget  = 2
	PhaseBubbling  = 3
)

// EventInit carries constructor options and input state for synthesized
// events.
type EventInit struct {
	Bubbles    bool
	Cancelable bool
	Composed   bool

	Button   float64
	CtrlKey  bool
	ShiftKey bool
	AltKey   bool
	MetaKey  bool
	Key      string

	Detail any
	State  any
}

// Event is a dispatched event. Mouse, keyboard and popstate fields are
// carried on the same type.
type Event struct {
	EventInit

	Type  string
	Class string

	target           any
	currentTarget    any
	phase            int
	path             []any
	defaultPrevented bool
	stopped          bool
	stoppedNow       bool
	inPassive        bool
	dispatching      bool
}

var eventClasses = map[string]string{
	"click":      "MouseEvent",
	"dblclick":   "MouseEvent",
	"mousedown":  "MouseEvent",
	"mouseup":    "MouseEvent",
	"mousemove":  "MouseEvent",
	"mouseover":  "MouseEvent",
	"mouseout":   "MouseEvent",
	"mouseenter": "MouseEvent",
	"mouseleave": "MouseEvent",
	"keydown":    "KeyboardEvent",
	"keyup":      "KeyboardEvent",
	"input":      "InputEvent",
	"popstate":   "PopStateEvent",
}

// NewEvent creates an event of the given type.
func NewEvent(typ string, init EventInit) *Event {
	class, ok := eventClasses[typ]
	if !ok {
		class = "Event"
	}
	return &Event{EventInit: init, Type: typ, Class: class}
}

func (e *Event) ClassName() string { return e.Class }

// Target returns the dispatch target.
func (e *Event) Target() any { return e.target }

// CurrentTarget returns the target whose listeners are running.
func (e *Event) CurrentTarget() any { return e.currentTarget }

// PreventDefault cancels the event when it is cancelable and the running
// listener is not passive.
func (e *Event) PreventDefault() {
	if e.Cancelable && !e.inPassive {
		e.defaultPrevented = true
	}
}

// DefaultPrevented reports whether PreventDefault took effect.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// StopPropagation stops dispatch after the current target.
func (e *Event) StopPropagation() { e.stopped = true }

// StopImmediatePropagation stops dispatch after the current listener.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
	e.stoppedNow = true
}

// CancelBubble is the legacy alias of the stop propagation flag.
func (e *Event) CancelBubble() bool { return e.stopped }

// SetCancelBubble sets the stop propagation flag; false is ignored.
func (e *Event) SetCancelBubble(v bool) {
	if v {
		e.stopped = true
	}
}

// ComposedPath returns the propagation path while dispatching, empty
// otherwise.
func (e *Event) ComposedPath() []any {
	if !e.dispatching {
		return nil
	}
	return append([]any(nil), e.path...)
}

// GetProperty exposes the event attributes.
func (e *Event) GetProperty(key string) (any, bool) {
	switch key {
	case "type":
		return e.Type, true
	case "target":
		return orNull(e.target), true
	case "currentTarget":
		return orNull(e.currentTarget), true
	case "eventPhase":
		return float64(e.phase), true
	case "bubbles":
		return e.Bubbles, true
	case "cancelable":
		return e.Cancelable, true
	case "defaultPrevented":
		return e.defaultPrevented, true
	case "cancelBubble":
		return e.stopped, true
	case "button":
		return e.Button, true
	case "ctrlKey":
		return e.CtrlKey, true
	case "shiftKey":
		return e.ShiftKey, true
	case "altKey":
		return e.AltKey, true
	case "metaKey":
		return e.MetaKey, true
	case "key":
		return e.Key, true
	case "detail":
		return orUndefined(e.Detail), true
	case "state":
		return orNull(e.State), true
	}
	return nil, false
}

// SetProperty supports the cancelBubble and returnValue setters.
func (e *Event) SetProperty(key string, v any) error {
	switch key {
	case "cancelBubble":
		e.SetCancelBubble(jsval.Truthy(v))
	case "returnValue":
		if !jsval.Truthy(v) {
			e.PreventDefault()
		}
	}
	return nil
}

func orNull(v any) any {
	if v == nil {
		return nil
	}
	if n, ok := v.(*Node); ok && n == nil {
		return nil
	}
	return v
}

func orUndefined(v any) any {
	if v == nil {
		return jsval.Undefined
	}
	return v
}

// dispatch runs the capture, target and bubble phases. Listener errors are
// passed to report and do not stop propagation.
func dispatch(t eventTarget, e *Event, report func(error)) bool {
	if e.dispatching {
		return !e.defaultPrevented
	}
	e.target = t
	e.path = e.path[:0]
	var chain []eventTarget
	for p := t; p != nil; p = p.parentTarget() {
		chain = append(chain, p)
		e.path = append(e.path, p)
	}

	e.dispatching = true
	for i := len(chain) - 1; i > 0 && !e.stopped; i-- {
		e.phase = PhaseCapturing
		invoke(chain[i], e, true, report)
	}
	if !e.stopped {
		e.phase = PhaseAtTarget
		invoke(t, e, true, report)
		if !e.stopped {
			invoke(t, e, false, report)
		}
	}
	if e.Bubbles {
		for i := 1; i < len(chain) && !e.stopped; i++ {
			e.phase = PhaseBubbling
			invoke(chain[i], e, false, report)
		}
	}
	e.dispatching = false
	e.phase = PhaseNone
	e.currentTarget = nil
	return !e.defaultPrevented
}

func invoke(t eventTarget, e *Event, capture bool, report func(error)) {
	e.currentTarget = t
	et := t.target()
	snapshot := append([]*listener(nil), et.listeners...)
	for _, l := range snapshot {
		if l.removed || l.typ != e.Type || l.capture != capture {
			continue
		}
		if l.once {
			et.RemoveEventListener(l.typ, l.fn, l.capture)
		}
		e.inPassive = l.passive
		if _, err := l.fn.Invoke(t, e); err != nil && report != nil {
			report(err)
		}
		e.inPassive = false
		if e.stoppedNow {
			return
		}
	}
}
