package host

import (
	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

func collectionEntries() []*Entry {
	return []*Entry{
		entry("Array.new", ">i", func(c *Call) error {
			c.ReturnObject(jsval.NewArray(0))
			return nil
		}),
		entry("Array.get", "ii>i", func(c *Call) error {
			arr, err := receiver[*jsval.Array](c, 0, "Array")
			if err != nil {
				return err
			}
			c.ReturnObject(arr.At(int(c.U32(1))))
			return nil
		}),
		entry("Array.set", "iii>", func(c *Call) error {
			arr, err := receiver[*jsval.Array](c, 0, "Array")
			if err != nil {
				return err
			}
			arr.SetAt(int(c.U32(1)), c.Take(2))
			return nil
		}),
		typeTest("Array.isArray", func(v any) bool {
			_, ok := v.(*jsval.Array)
			return ok
		}),

		// length of arrays, typed arrays and node lists.
		entry("length", "i>i", func(c *Call) error {
			switch t := c.Get(0).(type) {
			case *jsval.Array:
				c.ReturnU32(uint32(t.Len()))
			case *jsval.Uint8Array:
				c.ReturnU32(uint32(t.Len()))
			case *dom.NodeList:
				c.ReturnU32(uint32(t.Len()))
			default:
				v, err := property(c, 0, "length")
				if err != nil {
					return err
				}
				n, err := jsval.ToNumber(v)
				if err != nil {
					return err
				}
				c.ReturnU32(uint32(n))
			}
			return nil
		}),

		typeTest("ArrayBuffer.instanceof_ArrayBuffer", func(v any) bool {
			_, ok := v.(*jsval.ArrayBuffer)
			return ok
		}),
		typeTest("Uint8Array.instanceof_Uint8Array", func(v any) bool {
			_, ok := v.(*jsval.Uint8Array)
			return ok
		}),
		entry("Uint8Array.new", "i>i", func(c *Call) error {
			a, err := jsval.Uint8ArrayFrom(c.Get(0))
			if err != nil {
				return err
			}
			c.ReturnObject(a)
			return nil
		}),
		entry("Uint8Array.set", "iii>", func(c *Call) error {
			dst, err := receiver[*jsval.Uint8Array](c, 0, "Uint8Array")
			if err != nil {
				return err
			}
			src, err := jsval.Uint8ArrayFrom(c.Get(1))
			if err != nil {
				return err
			}
			return dst.Set(src.Bytes(), int(c.U32(2)))
		}),
		entry("buffer", "i>i", func(c *Call) error {
			v, err := property(c, 0, "buffer")
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		}),
	}
}
