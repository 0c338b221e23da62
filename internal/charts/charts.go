// Package charts stands in for the chart library the guest drives. Charts
// store the merged option documents and event handlers; nothing is drawn.
package charts

import (
	"fmt"
	"sync"

	"github.com/Jeffail/gabs/v2"
	"go.uber.org/zap"

	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

// Registry tracks the charts of a session, one per host element.
type Registry struct {
	sync.RWMutex
	byElement map[*dom.Node]*Chart
	charts    []*Chart
	nextID    int
	logger    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		byElement: make(map[*dom.Node]*Chart),
		logger:    logger.With(zap.String("component", "charts")),
	}
}

// Init creates a chart on el, or returns the chart already hosted there.
func (r *Registry) Init(el *dom.Node, theme string, opts any) (*Chart, error) {
	if el == nil || el.Type != dom.ElementNode {
		return nil, jsval.NewTypeError("Initialize failed: invalid dom.")
	}

	r.Lock()
	defer r.Unlock()

	if c, ok := r.byElement[el]; ok {
		r.logger.Warn("There is a chart instance already initialized on the dom",
			zap.String("chart", c.ID))
		return c, nil
	}

	r.nextID++
	c := &Chart{
		ID:       fmt.Sprintf("ec_%d", r.nextID),
		Element:  el,
		Theme:    theme,
		Init:     jsval.ToGo(opts),
		option:   gabs.New(),
		handlers: make(map[string][]*jsval.Function),
		registry: r,
	}
	r.byElement[el] = c
	r.charts = append(r.charts, c)

	r.logger.Debug("Chart initialized", zap.String("chart", c.ID), zap.String("theme", theme))
	return c, nil
}

// Get returns the chart hosted by el.
func (r *Registry) Get(el *dom.Node) (*Chart, bool) {
	r.RLock()
	defer r.RUnlock()
	c, ok := r.byElement[el]
	return c, ok
}

// Find returns the chart with the given id.
func (r *Registry) Find(id string) (*Chart, bool) {
	r.RLock()
	defer r.RUnlock()
	for _, c := range r.charts {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// List returns the live charts in creation order.
func (r *Registry) List() []*Chart {
	r.RLock()
	defer r.RUnlock()
	return append([]*Chart(nil), r.charts...)
}

// Dispose removes the chart hosted by el.
func (r *Registry) Dispose(el *dom.Node) bool {
	r.Lock()
	defer r.Unlock()
	c, ok := r.byElement[el]
	if !ok {
		return false
	}
	delete(r.byElement, el)
	for i, other := range r.charts {
		if other == c {
			r.charts = append(r.charts[:i], r.charts[i+1:]...)
			break
		}
	}
	c.mu.Lock()
	c.disposed = true
	c.mu.Unlock()
	return true
}

// Chart is a chart instance.
type Chart struct {
	ID      string
	Element *dom.Node
	Theme   string
	Init    any

	mu       sync.RWMutex
	option   *gabs.Container
	updates  int
	handlers map[string][]*jsval.Function
	disposed bool
	registry *Registry
}

func (c *Chart) ClassName() string { return "ECharts" }

// SetOption merges opt into the stored option. Nested objects merge member
// by member; any other collision, arrays included, takes the new value.
// notMerge replaces the option entirely.
func (c *Chart) SetOption(opt any, notMerge bool) error {
	doc, ok := jsval.ToGo(opt).(map[string]any)
	if !ok {
		return jsval.NewTypeError("setOption expects an object")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return jsval.NewError("Instance " + c.ID + " has been disposed")
	}
	if notMerge {
		c.option = gabs.New()
	}
	err := c.option.MergeFn(gabs.Wrap(doc), func(_, src any) any {
		return src
	})
	if err != nil {
		return fmt.Errorf("failed to merge chart option: %w", err)
	}
	c.updates++
	return nil
}

// Option returns a copy of the merged option.
func (c *Chart) Option() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	parsed, err := gabs.ParseJSON(c.option.Bytes())
	if err != nil {
		return map[string]any{}
	}
	out, _ := parsed.Data().(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// OptionJSON returns the merged option as JSON.
func (c *Chart) OptionJSON() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.option.Bytes()
}

// Updates returns how many times SetOption succeeded.
func (c *Chart) Updates() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updates
}

// On registers a handler for a chart event.
func (c *Chart) On(event string, fn *jsval.Function) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], fn)
	c.mu.Unlock()
}

// Off removes every handler of event.
func (c *Chart) Off(event string) {
	c.mu.Lock()
	delete(c.handlers, event)
	c.mu.Unlock()
}

// Events returns the event names with handlers.
func (c *Chart) Events() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		out = append(out, name)
	}
	return out
}

// Dispatch calls the handlers of event with params converted to a host
// value. It returns the number of handlers called. Must run on the loop.
func (c *Chart) Dispatch(event string, params map[string]any) (int, error) {
	c.mu.RLock()
	handlers := append([]*jsval.Function(nil), c.handlers[event]...)
	c.mu.RUnlock()

	arg := jsval.FromGo(params)
	if params == nil {
		arg = jsval.NewObject()
	}
	if o, ok := arg.(*jsval.Object); ok {
		o.Set("type", event)
	}
	for _, fn := range handlers {
		if _, err := fn.Invoke(c, arg); err != nil {
			return 0, err
		}
	}
	return len(handlers), nil
}

// GetProperty exposes the instance methods used through reflection.
func (c *Chart) GetProperty(key string) (any, bool) {
	switch key {
	case "id":
		return c.ID, true
	case "getOption":
		return jsval.NewFunction("getOption", func(any, []any) (any, error) {
			return jsval.FromGo(c.Option()), nil
		}), true
	case "setOption":
		return jsval.NewFunction("setOption", func(_ any, args []any) (any, error) {
			var opt any = jsval.Undefined
			notMerge := false
			if len(args) > 0 {
				opt = args[0]
			}
			if len(args) > 1 {
				notMerge = jsval.Truthy(args[1])
			}
			return jsval.Undefined, c.SetOption(opt, notMerge)
		}), true
	case "dispose":
		return jsval.NewFunction("dispose", func(any, []any) (any, error) {
			c.registry.Dispose(c.Element)
			return jsval.Undefined, nil
		}), true
	case "isDisposed":
		return jsval.NewFunction("isDisposed", func(any, []any) (any, error) {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return c.disposed, nil
		}), true
	}
	return nil, false
}
