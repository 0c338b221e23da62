package host

import (
	"math"
	"strings"

	"github.com/woxQAQ/wbg-host/internal/jsval"
)

const maxSafeInteger = 1<<53 - 1

// newFunction implements new Function(body) for the bodies generated glue
// uses to find the global object.
func newFunction(env *Env, body string) *jsval.Function {
	if strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(body), ";")) == "return this" {
		return jsval.NewFunction("anonymous", func(any, []any) (any, error) {
			return env.Window, nil
		})
	}
	return jsval.NewFunction("anonymous", func(any, []any) (any, error) {
		return nil, jsval.NewEvalError("Code generation from strings disallowed for this context")
	})
}

func reflectEntries() []*Entry {
	return []*Entry{
		throwing(entry("Reflect.get", "ii>i", func(c *Call) error {
			target := c.Get(0)
			if !jsval.IsObject(target) && jsval.TypeOf(target) != "function" {
				return jsval.NewTypeError("Reflect.get called on non-object")
			}
			v, err := jsval.Get(target, c.Get(1))
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		})),
		throwing(entry("Reflect.set", "iii>i", func(c *Call) error {
			target := c.Get(0)
			if !jsval.IsObject(target) && jsval.TypeOf(target) != "function" {
				return jsval.NewTypeError("Reflect.set called on non-object")
			}
			if err := jsval.Set(target, c.Get(1), c.Get(2)); err != nil {
				return err
			}
			c.ReturnBool(true)
			return nil
		})),
		entry("Object.getwithrefkey", "ii>i", func(c *Call) error {
			v, err := jsval.Get(c.Get(0), c.Get(1))
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		}),
		entry("Object.set", "iii>", func(c *Call) error {
			key, v := c.Take(1), c.Take(2)
			return jsval.Set(c.Get(0), key, v)
		}),
		entry("Object.new", ">i", func(c *Call) error {
			c.ReturnObject(jsval.NewObject())
			return nil
		}),
		entry("Object.is", "ii>i", func(c *Call) error {
			c.ReturnBool(jsval.SameValue(c.Get(0), c.Get(1)))
			return nil
		}),

		entry("Function.newnoargs", "ii>i", func(c *Call) error {
			body, err := c.Str(0)
			if err != nil {
				return err
			}
			c.ReturnObject(newFunction(c.Env(), body))
			return nil
		}),
		throwing(entry("Function.call", "ii>i", func(c *Call) error {
			v, err := jsval.Call(c.Get(0), c.Get(1))
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		})),
		throwing(entry("Function.call#1", "iii>i", func(c *Call) error {
			v, err := jsval.Call(c.Get(0), c.Get(1), c.Get(2))
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		})),

		entry("Symbol.iterator", ">i", func(c *Call) error {
			c.ReturnObject(jsval.SymbolIterator)
			return nil
		}),
		throwing(entry("Iterator.next", "i>i", func(c *Call) error {
			v, err := method(c.Get(0), "next")
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		})),
		entry("Object.next", "i>i", func(c *Call) error {
			v, err := property(c, 0, "next")
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		}),
		entry("IteratorResult.done", "i>i", func(c *Call) error {
			v, err := property(c, 0, "done")
			if err != nil {
				return err
			}
			c.ReturnBool(jsval.Truthy(v))
			return nil
		}),
		entry("IteratorResult.value", "i>i", func(c *Call) error {
			v, err := property(c, 0, "value")
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		}),

		typeTest("Number.isSafeInteger", func(v any) bool {
			n, ok := jsval.Number(v)
			return ok && !math.IsInf(n, 0) && n == math.Trunc(n) && math.Abs(n) <= maxSafeInteger
		}),
	}
}
