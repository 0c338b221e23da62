package jsval

import (
	"math"
	"strconv"
	"unicode/utf16"
)

// Symbol is a unique property key.
type Symbol struct {
	Description string
}

// SymbolIterator is the well-known Symbol.iterator.
var SymbolIterator = &Symbol{Description: "Symbol.iterator"}

// Object is an ordinary object with insertion-ordered string keys.
type Object struct {
	// Class overrides the reported constructor name.
	Class string

	keys    []string
	props   map[string]any
	symbols map[*Symbol]any
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{props: make(map[string]any)}
}

// Get returns the own property key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.props[key]
	return v, ok
}

// Set creates or replaces the own property key.
func (o *Object) Set(key string, v any) {
	if o.props == nil {
		o.props = make(map[string]any)
	}
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = v
}

// Delete removes the own property key.
func (o *Object) Delete(key string) bool {
	if _, ok := o.props[key]; !ok {
		return false
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns own string keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of own string keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Array is a dense array.
type Array struct {
	Elems []any
}

// NewArray creates an array of n undefined elements.
func NewArray(n int) *Array {
	a := &Array{Elems: make([]any, n)}
	for i := range a.Elems {
		a.Elems[i] = Undefined
	}
	return a
}

// Len returns the array length.
func (a *Array) Len() int {
	return len(a.Elems)
}

// At returns element i or undefined.
func (a *Array) At(i int) any {
	if i < 0 || i >= len(a.Elems) {
		return Undefined
	}
	return a.Elems[i]
}

// SetAt stores v at i, growing the array with undefined holes.
func (a *Array) SetAt(i int, v any) {
	for len(a.Elems) <= i {
		a.Elems = append(a.Elems, Undefined)
	}
	a.Elems[i] = v
}

// Push appends v.
func (a *Array) Push(v any) {
	a.Elems = append(a.Elems, v)
}

// Iterator returns an iterator over the elements.
func (a *Array) Iterator() *Iterator {
	i := 0
	return NewIterator(func() (any, bool) {
		if i >= len(a.Elems) {
			return Undefined, true
		}
		v := a.Elems[i]
		i++
		return v, false
	})
}

// Iterable is implemented by values that can produce an iterator.
type Iterable interface {
	Iterator() *Iterator
}

// Iterator follows the iterator protocol.
type Iterator struct {
	next func() (any, bool)
}

// NewIterator wraps a step function returning (value, done).
func NewIterator(next func() (any, bool)) *Iterator {
	return &Iterator{next: next}
}

// Next advances the iterator.
func (it *Iterator) Next() *IterResult {
	v, done := it.next()
	return &IterResult{Value: v, Done: done}
}

func (it *Iterator) ClassName() string { return "Array Iterator" }

// GetProperty exposes next.
func (it *Iterator) GetProperty(key string) (any, bool) {
	if key != "next" {
		return nil, false
	}
	return NewFunction("next", func(this any, args []any) (any, error) {
		return it.Next(), nil
	}), true
}

// Iterator makes iterators iterable.
func (it *Iterator) Iterator() *Iterator { return it }

// IterResult is the result of Iterator.Next.
type IterResult struct {
	Done  bool
	Value any
}

// GetProperty exposes done and value.
func (r *IterResult) GetProperty(key string) (any, bool) {
	switch key {
	case "done":
		return r.Done, true
	case "value":
		return r.Value, true
	}
	return nil, false
}

// PropertyGetter is implemented by host objects with readable properties.
type PropertyGetter interface {
	GetProperty(key string) (any, bool)
}

// PropertySetter is implemented by host objects with writable properties.
type PropertySetter interface {
	SetProperty(key string, v any) error
}

// PropertyKey converts a value to a property key: a string or a *Symbol.
func PropertyKey(v any) any {
	if s, ok := v.(*Symbol); ok {
		return s
	}
	return ToString(v)
}

// Get implements Reflect.get(target, key).
func Get(target, key any) (any, error) {
	if IsNullish(target) {
		return nil, NewTypeError("Cannot read properties of " + ToString(target) +
			" (reading '" + ToString(key) + "')")
	}

	pk := PropertyKey(key)
	if sym, ok := pk.(*Symbol); ok {
		return getSymbol(target, sym), nil
	}
	k := pk.(string)

	switch t := target.(type) {
	case *Object:
		if v, ok := t.Get(k); ok {
			return v, nil
		}
	case *Array:
		if k == "length" {
			return float64(len(t.Elems)), nil
		}
		if i, ok := arrayIndex(k); ok {
			return t.At(i), nil
		}
	case string:
		units := utf16.Encode([]rune(t))
		if k == "length" {
			return float64(len(units)), nil
		}
		if i, ok := arrayIndex(k); ok && i < len(units) {
			return string(utf16.Decode(units[i : i+1])), nil
		}
	case *Function:
		switch k {
		case "name":
			return t.Name, nil
		case "call":
			return NewFunction("call", func(_ any, args []any) (any, error) {
				this := any(Undefined)
				if len(args) > 0 {
					this, args = args[0], args[1:]
				}
				return t.Invoke(this, args...)
			}), nil
		}
	case *Error:
		switch k {
		case "name":
			return t.Name, nil
		case "message":
			return t.Message, nil
		case "stack":
			return t.Stack, nil
		case "cause":
			if t.Cause != nil {
				return t.Cause, nil
			}
		}
	case PropertyGetter:
		if v, ok := t.GetProperty(k); ok {
			return v, nil
		}
	}
	return Undefined, nil
}

func getSymbol(target any, sym *Symbol) any {
	if o, ok := target.(*Object); ok && o.symbols != nil {
		if v, ok := o.symbols[sym]; ok {
			return v
		}
	}
	if sym != SymbolIterator {
		return Undefined
	}
	if s, ok := target.(string); ok {
		runes := []rune(s)
		return NewFunction("[Symbol.iterator]", func(any, []any) (any, error) {
			i := 0
			return NewIterator(func() (any, bool) {
				if i >= len(runes) {
					return Undefined, true
				}
				i++
				return string(runes[i-1]), false
			}), nil
		})
	}
	if it, ok := target.(Iterable); ok {
		return NewFunction("[Symbol.iterator]", func(any, []any) (any, error) {
			return it.Iterator(), nil
		})
	}
	return Undefined
}

// Set implements target[key] = v in strict mode.
func Set(target, key, v any) error {
	if !IsObject(target) && TypeOf(target) != "function" {
		return NewTypeError("Cannot create property '" + ToString(key) + "' on " +
			TypeOf(target) + " '" + ToString(target) + "'")
	}

	pk := PropertyKey(key)
	if sym, ok := pk.(*Symbol); ok {
		o, ok := target.(*Object)
		if !ok {
			return nil
		}
		if o.symbols == nil {
			o.symbols = make(map[*Symbol]any)
		}
		o.symbols[sym] = v
		return nil
	}
	k := pk.(string)

	switch t := target.(type) {
	case *Object:
		t.Set(k, v)
	case *Array:
		if k == "length" {
			n, err := ToNumber(v)
			if err != nil {
				return err
			}
			if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
				return NewRangeError("Invalid array length")
			}
			size := int(n)
			if size < len(t.Elems) {
				t.Elems = t.Elems[:size]
			} else {
				for len(t.Elems) < size {
					t.Elems = append(t.Elems, Undefined)
				}
			}
			return nil
		}
		if i, ok := arrayIndex(k); ok {
			t.SetAt(i, v)
		}
	case PropertySetter:
		return t.SetProperty(k, v)
	}
	return nil
}

// Has implements the in operator.
func Has(target, key any) (bool, error) {
	if !IsObject(target) && TypeOf(target) != "function" {
		return false, NewTypeError("Cannot use 'in' operator to search for '" +
			ToString(key) + "' in " + ToString(target))
	}
	pk := PropertyKey(key)
	if sym, ok := pk.(*Symbol); ok {
		return !IsUndefined(getSymbol(target, sym)), nil
	}
	k := pk.(string)
	switch t := target.(type) {
	case *Object:
		_, ok := t.Get(k)
		return ok, nil
	case *Array:
		if k == "length" {
			return true, nil
		}
		i, ok := arrayIndex(k)
		return ok && i < len(t.Elems), nil
	case *Function:
		return k == "name" || k == "call", nil
	case *Error:
		return k == "name" || k == "message" || k == "stack", nil
	case PropertyGetter:
		_, ok := t.GetProperty(k)
		return ok, nil
	}
	return false, nil
}

func arrayIndex(k string) (int, bool) {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return 0, false
	}
	i, err := strconv.ParseUint(k, 10, 32)
	if err != nil || i == math.MaxUint32 {
		return 0, false
	}
	return int(i), true
}
