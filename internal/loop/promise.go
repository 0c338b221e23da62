package loop

import (
	"github.com/woxQAQ/wbg-host/internal/jsval"
	"go.uber.org/zap"
)

// State is the settlement state of a promise.
type State int

const (
	Pending State = iota
	Fulfilled
	Rejected
)

func (s State) String() string {
	switch s {
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	}
	return "pending"
}

// Handler reacts to a settled value.
type Handler func(v any) (any, error)

type reaction struct {
	onFulfilled Handler
	onRejected  Handler
	child       *Promise
}

// Promise is a host promise settled on its loop.
type Promise struct {
	loop      *Loop
	state     State
	value     any
	reactions []reaction
	handled   bool
	// locked is set once the promise follows another promise.
	locked bool
}

// NewPromise creates a pending promise.
func (l *Loop) NewPromise() *Promise {
	return &Promise{loop: l}
}

// Resolved implements Promise.resolve(v).
func (l *Loop) Resolved(v any) *Promise {
	if p, ok := v.(*Promise); ok {
		return p
	}
	p := l.NewPromise()
	p.Resolve(v)
	return p
}

// RejectedWith creates a promise rejected with reason.
func (l *Loop) RejectedWith(reason any) *Promise {
	p := l.NewPromise()
	p.Reject(reason)
	return p
}

func (p *Promise) ClassName() string { return "Promise" }

// State returns the settlement state.
func (p *Promise) State() State { return p.state }

// Value returns the fulfillment value or rejection reason.
func (p *Promise) Value() any { return p.value }

// Resolve settles the promise with v, adopting v's state if it is a promise.
func (p *Promise) Resolve(v any) {
	if p.state != Pending || p.locked {
		return
	}
	if v == any(p) {
		p.Reject(jsval.NewTypeError("Chaining cycle detected for promise"))
		return
	}
	if other, ok := v.(*Promise); ok {
		p.locked = true
		other.then(func(v any) (any, error) {
			p.settle(Fulfilled, v)
			return nil, nil
		}, func(r any) (any, error) {
			p.settle(Rejected, r)
			return nil, nil
		})
		return
	}
	p.settle(Fulfilled, v)
}

// Reject settles the promise with reason.
func (p *Promise) Reject(reason any) {
	if p.state != Pending || p.locked {
		return
	}
	p.settle(Rejected, reason)
}

func (p *Promise) settle(state State, v any) {
	if p.state != Pending {
		return
	}
	p.state = state
	p.value = v

	reactions := p.reactions
	p.reactions = nil
	for _, r := range reactions {
		p.schedule(r)
	}

	if state == Rejected && !p.handled {
		p.loop.Post(func() {
			if !p.handled {
				p.loop.logger.Warn("Unhandled promise rejection",
					zap.String("reason", jsval.ToString(v)),
				)
			}
		})
	}
}

// Then registers reactions and returns the derived promise. A nil handler
// passes the settlement through.
func (p *Promise) Then(onFulfilled, onRejected Handler) *Promise {
	return p.then(onFulfilled, onRejected)
}

func (p *Promise) then(onFulfilled, onRejected Handler) *Promise {
	child := p.loop.NewPromise()
	r := reaction{onFulfilled: onFulfilled, onRejected: onRejected, child: child}
	p.handled = true

	if p.state == Pending {
		p.reactions = append(p.reactions, r)
	} else {
		p.schedule(r)
	}
	return child
}

func (p *Promise) schedule(r reaction) {
	state, value := p.state, p.value
	p.loop.QueueMicrotask(func() {
		handler := r.onFulfilled
		if state == Rejected {
			handler = r.onRejected
		}
		if handler == nil {
			if state == Rejected {
				r.child.Reject(value)
			} else {
				r.child.Resolve(value)
			}
			return
		}

		result, err := handler(value)
		if err != nil {
			r.child.Reject(jsval.ThrownValue(err))
			return
		}
		r.child.Resolve(result)
	})
}

// ThenFunctions adapts host function values to Then. Values that are not
// functions pass settlements through.
func (p *Promise) ThenFunctions(onFulfilled, onRejected any) *Promise {
	return p.Then(functionHandler(onFulfilled), functionHandler(onRejected))
}

func functionHandler(v any) Handler {
	fn, ok := v.(*jsval.Function)
	if !ok {
		return nil
	}
	return func(arg any) (any, error) {
		return fn.Invoke(jsval.Undefined, arg)
	}
}

// GetProperty exposes then for reflective access.
func (p *Promise) GetProperty(key string) (any, bool) {
	if key != "then" {
		return nil, false
	}
	return jsval.NewFunction("then", func(_ any, args []any) (any, error) {
		var onFulfilled, onRejected any = jsval.Undefined, jsval.Undefined
		if len(args) > 0 {
			onFulfilled = args[0]
		}
		if len(args) > 1 {
			onRejected = args[1]
		}
		return p.ThenFunctions(onFulfilled, onRejected), nil
	}), true
}
