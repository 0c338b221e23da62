package jsval

import (
	"encoding/json"
	"maps"
	"math"
	"math/big"
	"slices"
	"strings"
)

// Stringify implements JSON.stringify(v) without replacer or indentation.
// ok is false when v serializes to undefined.
func Stringify(v any) (string, bool, error) {
	var sb strings.Builder
	ok, err := stringify(&sb, v, map[any]bool{})
	return sb.String(), ok, err
}

func stringify(sb *strings.Builder, v any, seen map[any]bool) (bool, error) {
	switch t := v.(type) {
	case undefinedType, *Function, *Symbol:
		return false, nil
	case nil:
		sb.WriteString("null")
	case bool:
		if t {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case string:
		b, _ := json.Marshal(t)
		sb.Write(b)
	case *big.Int:
		return false, NewTypeError("Do not know how to serialize a BigInt")
	case *Array:
		if seen[t] {
			return false, NewTypeError("Converting circular structure to JSON")
		}
		seen[t] = true
		defer delete(seen, t)
		sb.WriteByte('[')
		for i, e := range t.Elems {
			if i > 0 {
				sb.WriteByte(',')
			}
			ok, err := stringify(sb, e, seen)
			if err != nil {
				return false, err
			}
			if !ok {
				sb.WriteString("null")
			}
		}
		sb.WriteByte(']')
	case *Object:
		if seen[t] {
			return false, NewTypeError("Converting circular structure to JSON")
		}
		seen[t] = true
		defer delete(seen, t)
		sb.WriteByte('{')
		first := true
		for _, k := range t.keys {
			var member strings.Builder
			ok, err := stringify(&member, t.props[k], seen)
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}
			if !first {
				sb.WriteByte(',')
			}
			first = false
			key, _ := json.Marshal(k)
			sb.Write(key)
			sb.WriteByte(':')
			sb.WriteString(member.String())
		}
		sb.WriteByte('}')
	default:
		if n, ok := Number(v); ok {
			if math.IsNaN(n) || math.IsInf(n, 0) {
				sb.WriteString("null")
			} else {
				sb.WriteString(FormatNumber(n))
			}
			return true, nil
		}
		sb.WriteString("{}")
	}
	return true, nil
}

// ToGo converts a value tree into plain Go values: map[string]any, []any,
// float64, string, bool and nil. Undefined object members are omitted.
func ToGo(v any) any {
	switch t := v.(type) {
	case undefinedType, nil:
		return nil
	case bool, string:
		return t
	case *big.Int:
		return t.String()
	case *Array:
		out := make([]any, len(t.Elems))
		for i, e := range t.Elems {
			out[i] = ToGo(e)
		}
		return out
	case *Object:
		out := make(map[string]any, len(t.keys))
		for _, k := range t.keys {
			e := t.props[k]
			if IsUndefined(e) {
				continue
			}
			if _, fn := e.(*Function); fn {
				continue
			}
			out[k] = ToGo(e)
		}
		return out
	case *Function:
		return nil
	}
	if n, ok := Number(v); ok {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		return n
	}
	return ToString(v)
}

// FromGo converts plain Go values into a value tree. Map keys are inserted
// in sorted order.
func FromGo(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		o := NewObject()
		for _, k := range slices.Sorted(maps.Keys(t)) {
			o.Set(k, FromGo(t[k]))
		}
		return o
	case []any:
		a := &Array{Elems: make([]any, len(t))}
		for i, e := range t {
			a.Elems[i] = FromGo(e)
		}
		return a
	case json.Number:
		f, _ := t.Float64()
		return f
	}
	if n, ok := Number(v); ok {
		return n
	}
	return v
}
