package bridge

import (
	"math/big"
	"strings"

	"github.com/woxQAQ/wbg-host/internal/jsval"
)

// DebugString renders v for Debug formatting on the guest side.
func DebugString(v any) string {
	switch t := v.(type) {
	case bool:
		return jsval.ToString(t)
	case string:
		return `"` + t + `"`
	case *jsval.Symbol:
		if t.Description == "" {
			return "Symbol"
		}
		return "Symbol(" + t.Description + ")"
	case *jsval.Function:
		if t.Name == "" {
			return "Function"
		}
		return "Function(" + t.Name + ")"
	case *jsval.Array:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = DebugString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *jsval.Error:
		return t.Name + ": " + t.Message + "\n" + t.Stack
	case *big.Int:
		return "BigInt"
	}

	if jsval.IsNullish(v) {
		return jsval.ToString(v)
	}
	if _, ok := jsval.Number(v); ok {
		return jsval.ToString(v)
	}

	className := jsval.ClassName(v)
	if className == "Object" {
		s, ok, err := jsval.Stringify(v)
		if err != nil || !ok {
			return "Object"
		}
		return "Object(" + s + ")"
	}
	return className
}
