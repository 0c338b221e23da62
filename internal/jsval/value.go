// Package jsval is the host value model shared by the bridge, the call
// surface and the headless environment.
//
// Values are plain Go values:
//
//	undefined     Undefined
//	null          nil
//	boolean       bool
//	number        float64
//	string        string
//	bigint        *big.Int
//	symbol        *Symbol
//	function      *Function
//	object        *Object, *Array, *Error, *Iterator and host types
package jsval

import (
	"math"
	"math/big"
)

type undefinedType struct{}

func (undefinedType) String() string { return "undefined" }

// Undefined is the undefined value.
var Undefined any = undefinedType{}

// IsUndefined reports whether v is undefined.
func IsUndefined(v any) bool {
	_, ok := v.(undefinedType)
	return ok
}

// IsNull reports whether v is null.
func IsNull(v any) bool {
	return v == nil
}

// IsNullish reports whether v is null or undefined.
func IsNullish(v any) bool {
	return v == nil || IsUndefined(v)
}

// Classed is implemented by host objects that report a constructor name.
type Classed interface {
	ClassName() string
}

// TypeOf returns the typeof tag of v.
func TypeOf(v any) string {
	switch v.(type) {
	case undefinedType:
		return "undefined"
	case nil:
		return "object"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, uint32, uint64:
		return "number"
	case string:
		return "string"
	case *big.Int:
		return "bigint"
	case *Symbol:
		return "symbol"
	case *Function:
		return "function"
	default:
		return "object"
	}
}

// IsObject reports whether v is a non-null object (functions excluded).
func IsObject(v any) bool {
	return v != nil && TypeOf(v) == "object"
}

// Number converts Go numeric kinds to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// Truthy implements ToBoolean.
func Truthy(v any) bool {
	switch t := v.(type) {
	case undefinedType, nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case *big.Int:
		return t.Sign() != 0
	}
	if n, ok := Number(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	return true
}

// ClassName returns the constructor name of an object value.
func ClassName(v any) string {
	switch t := v.(type) {
	case Classed:
		return t.ClassName()
	case *Object:
		if t.Class != "" {
			return t.Class
		}
		return "Object"
	case *Array:
		return "Array"
	case *Function:
		return "Function"
	case *Error:
		return t.Name
	}
	return "Object"
}
