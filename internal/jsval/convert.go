package jsval

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
)

// ToNumber implements the unary plus operator.
func ToNumber(v any) (float64, error) {
	switch t := v.(type) {
	case undefinedType:
		return math.NaN(), nil
	case nil:
		return 0, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		return StringToNumber(t), nil
	case *big.Int:
		return 0, NewTypeError("Cannot convert a BigInt value to a number")
	case *Symbol:
		return 0, NewTypeError("Cannot convert a Symbol value to a number")
	}
	if n, ok := Number(v); ok {
		return n, nil
	}
	if a, ok := v.(*Array); ok {
		switch len(a.Elems) {
		case 0:
			return 0, nil
		case 1:
			return ToNumber(ToString(a.Elems[0]))
		}
	}
	return math.NaN(), nil
}

// StringToNumber parses a numeric string literal, NaN when malformed.
func StringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	// Go accepts forms JS rejects.
	if strings.ContainsAny(s, "_xXpP") || strings.EqualFold(s, "inf") ||
		strings.EqualFold(s, "+inf") || strings.EqualFold(s, "-inf") ||
		strings.EqualFold(s, "nan") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// FormatNumber implements Number.prototype.toString for radix 10.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	exp := strconv.FormatFloat(f, 'e', -1, 64)
	mant, e, _ := strings.Cut(exp, "e")
	n, _ := strconv.Atoi(e)
	if n >= -6 && n < 21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	sign := "+"
	if n < 0 {
		sign = "-"
		n = -n
	}
	return mant + "e" + sign + strconv.Itoa(n)
}

// ToString implements String(v).
func ToString(v any) string {
	switch t := v.(type) {
	case undefinedType:
		return "undefined"
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	case *big.Int:
		return t.String()
	case *Symbol:
		return "Symbol(" + t.Description + ")"
	case *Function:
		return "function " + t.Name + "() { [native code] }"
	case *Array:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			if !IsNullish(e) {
				parts[i] = ToString(e)
			}
		}
		return strings.Join(parts, ",")
	case *Error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	}
	if n, ok := Number(v); ok {
		return FormatNumber(n)
	}
	return "[object " + ClassName(v) + "]"
}

// StrictEquals implements ===.
func StrictEquals(a, b any) bool {
	if na, ok := Number(a); ok {
		nb, ok := Number(b)
		return ok && na == nb
	}
	if ba, ok := a.(*big.Int); ok {
		bb, ok := b.(*big.Int)
		return ok && ba.Cmp(bb) == 0
	}
	return identical(a, b)
}

// SameValue implements Object.is.
func SameValue(a, b any) bool {
	na, aok := Number(a)
	nb, bok := Number(b)
	if aok && bok {
		if math.IsNaN(na) && math.IsNaN(nb) {
			return true
		}
		if na == 0 && nb == 0 {
			return math.Signbit(na) == math.Signbit(nb)
		}
		return na == nb
	}
	return StrictEquals(a, b)
}

// LooseEquals implements ==.
func LooseEquals(a, b any) bool {
	if IsNullish(a) || IsNullish(b) {
		return IsNullish(a) && IsNullish(b)
	}

	ta, tb := TypeOf(a), TypeOf(b)
	if ta == tb {
		return StrictEquals(a, b)
	}

	switch {
	case ta == "boolean":
		n, _ := ToNumber(a)
		return LooseEquals(n, b)
	case tb == "boolean":
		n, _ := ToNumber(b)
		return LooseEquals(a, n)
	case ta == "number" && tb == "string":
		na, _ := Number(a)
		return na == StringToNumber(b.(string))
	case ta == "string" && tb == "number":
		nb, _ := Number(b)
		return StringToNumber(a.(string)) == nb
	case ta == "bigint" && (tb == "number" || tb == "string"):
		return bigEqualsPrimitive(a.(*big.Int), b)
	case tb == "bigint" && (ta == "number" || ta == "string"):
		return bigEqualsPrimitive(b.(*big.Int), a)
	case (ta == "object" || ta == "function") && tb != "object" && tb != "function":
		return LooseEquals(ToString(a), b)
	case (tb == "object" || tb == "function") && ta != "object" && ta != "function":
		return LooseEquals(a, ToString(b))
	}
	return false
}

func bigEqualsPrimitive(x *big.Int, v any) bool {
	if s, ok := v.(string); ok {
		y, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
		return ok && x.Cmp(y) == 0
	}
	n, _ := Number(v)
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
		return false
	}
	y, _ := new(big.Float).SetFloat64(n).Int(nil)
	return x.Cmp(y) == 0
}

func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
