package host

import (
	"math"
	"math/big"

	abi "github.com/woxQAQ/wbg-host/api/wasm"
	"github.com/woxQAQ/wbg-host/internal/bridge"
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

// Memory is the value of __wbindgen_memory(). Its buffer always reflects
// the current linear memory.
type Memory struct {
	views *bridge.Views
}

func (m *Memory) ClassName() string { return "Memory" }

func (m *Memory) GetProperty(key string) (any, bool) {
	if key == "buffer" {
		return &jsval.ArrayBuffer{Data: m.views.Uint8()}, true
	}
	return nil, false
}

var mask64 = new(big.Int).SetUint64(math.MaxUint64)

func typeTest(name string, test func(v any) bool) *Entry {
	return entry(name, "i>i", func(c *Call) error {
		c.ReturnBool(test(c.Get(0)))
		return nil
	})
}

func intrinsicEntries() []*Entry {
	return []*Entry{
		entry("__wbindgen_error_new", "ii>i", func(c *Call) error {
			msg, err := c.Str(0)
			if err != nil {
				return err
			}
			c.ReturnObject(jsval.NewError(msg))
			return nil
		}),
		entry("__wbindgen_throw", "ii>", func(c *Call) error {
			msg, err := c.Env().Bridge.String(c.U32(0), c.U32(1))
			if err != nil {
				return err
			}
			return jsval.NewError(msg)
		}),

		typeTest("__wbindgen_is_undefined", jsval.IsUndefined),
		typeTest("__wbindgen_is_null", jsval.IsNull),
		typeTest("__wbindgen_is_object", jsval.IsObject),
		typeTest("__wbindgen_is_function", func(v any) bool { return jsval.TypeOf(v) == "function" }),
		typeTest("__wbindgen_is_string", func(v any) bool { return jsval.TypeOf(v) == "string" }),
		typeTest("__wbindgen_is_bigint", func(v any) bool { return jsval.TypeOf(v) == "bigint" }),
		typeTest("__wbindgen_is_falsy", func(v any) bool { return !jsval.Truthy(v) }),

		entry("__wbindgen_in", "ii>i", func(c *Call) error {
			ok, err := jsval.Has(c.Get(1), c.Get(0))
			if err != nil {
				return err
			}
			c.ReturnBool(ok)
			return nil
		}),

		entry("__wbindgen_string_new", "ii>i", func(c *Call) error {
			s, err := c.Env().Bridge.String(c.U32(0), c.U32(1))
			if err != nil {
				return err
			}
			c.ReturnObject(s)
			return nil
		}),
		entry("__wbindgen_string_get", "ii>", func(c *Call) error {
			s, ok := c.Get(1).(string)
			return c.PutOptionalString(c.U32(0), s, ok)
		}),
		entry("__wbindgen_number_new", "F>i", func(c *Call) error {
			c.ReturnObject(c.F64(0))
			return nil
		}),
		entry("__wbindgen_number_get", "ii>", func(c *Call) error {
			n, ok := jsval.Number(c.Get(1))
			return c.PutOptionalF64(c.U32(0), n, ok)
		}),
		entry("__wbindgen_boolean_get", "i>i", func(c *Call) error {
			switch v := c.Get(0).(type) {
			case bool:
				c.ReturnBool(v)
			default:
				c.ReturnU32(abi.BooleanAbsent)
			}
			return nil
		}),
		entry("__wbindgen_as_number", "i>F", func(c *Call) error {
			n, err := jsval.ToNumber(c.Get(0))
			if err != nil {
				return err
			}
			c.ReturnF64(n)
			return nil
		}),

		entry("__wbindgen_bigint_from_i64", "I>i", func(c *Call) error {
			c.ReturnObject(big.NewInt(c.I64(0)))
			return nil
		}),
		entry("__wbindgen_bigint_from_u64", "I>i", func(c *Call) error {
			c.ReturnObject(new(big.Int).SetUint64(uint64(c.I64(0))))
			return nil
		}),
		entry("__wbindgen_bigint_get_as_i64", "ii>", func(c *Call) error {
			v, ok := c.Get(1).(*big.Int)
			if !ok {
				return c.PutOptionalI64(c.U32(0), 0, false)
			}
			low := new(big.Int).And(v, mask64).Uint64()
			return c.PutOptionalI64(c.U32(0), int64(low), true)
		}),

		entry("__wbindgen_jsval_eq", "ii>i", func(c *Call) error {
			c.ReturnBool(jsval.StrictEquals(c.Get(0), c.Get(1)))
			return nil
		}),
		entry("__wbindgen_jsval_loose_eq", "ii>i", func(c *Call) error {
			c.ReturnBool(jsval.LooseEquals(c.Get(0), c.Get(1)))
			return nil
		}),

		entry("__wbindgen_object_clone_ref", "i>i", func(c *Call) error {
			c.ReturnU32(c.Env().Bridge.Heap().Clone(c.U32(0)))
			return nil
		}),
		entry("__wbindgen_object_drop_ref", "i>", func(c *Call) error {
			c.Env().Bridge.Heap().Drop(c.U32(0))
			return nil
		}),
		entry("__wbindgen_cb_drop", "i>i", func(c *Call) error {
			c.ReturnBool(c.Env().Bridge.DropClosure(c.U32(0)))
			return nil
		}),
		entry("__wbindgen_debug_string", "ii>", func(c *Call) error {
			return c.PutString(c.U32(0), bridge.DebugString(c.Get(1)))
		}),
		entry("__wbindgen_memory", ">i", func(c *Call) error {
			c.ReturnObject(&Memory{views: c.Env().Bridge.Views()})
			return nil
		}),
	}
}
