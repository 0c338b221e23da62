package jsval

import (
	"strings"
	"unicode/utf16"

	"github.com/dlclark/regexp2"
)

// RegExp is a compiled ECMAScript regular expression.
type RegExp struct {
	Source string
	Flags  string

	// LastIndex is the UTF-16 offset global and sticky searches resume at.
	LastIndex int

	re *regexp2.Regexp
}

// NewRegExp compiles pattern with the given flags.
func NewRegExp(pattern, flags string) (*RegExp, error) {
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	for i, f := range flags {
		if strings.ContainsRune(flags[i+1:], f) {
			return nil, NewSyntaxError("Invalid flags supplied to RegExp constructor '" + flags + "'")
		}
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'u':
			opts |= regexp2.Unicode
		case 'g', 'y', 'd':
		default:
			return nil, NewSyntaxError("Invalid flags supplied to RegExp constructor '" + flags + "'")
		}
	}

	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, NewSyntaxError("Invalid regular expression: /" + pattern + "/: " + err.Error())
	}
	return &RegExp{Source: pattern, Flags: flags, re: re}, nil
}

func (r *RegExp) ClassName() string { return "RegExp" }

func (r *RegExp) String() string {
	return "/" + r.Source + "/" + r.Flags
}

func (r *RegExp) global() bool { return strings.ContainsAny(r.Flags, "gy") }

// Exec runs the expression against s. It returns null when there is no
// match, otherwise an array of the match followed by its groups, with
// undefined for groups that did not participate.
func (r *RegExp) Exec(s string) (any, error) {
	runes := []rune(s)
	start := 0
	if r.global() {
		start = runeOffset(runes, r.LastIndex)
		if start > len(runes) {
			r.LastIndex = 0
			return nil, nil
		}
	}

	m, err := r.re.FindRunesMatchStartingAt(runes, start)
	if err != nil {
		return nil, NewError(err.Error())
	}
	if m == nil || (strings.ContainsRune(r.Flags, 'y') && m.Index != start) {
		if r.global() {
			r.LastIndex = 0
		}
		return nil, nil
	}

	groups := m.Groups()
	out := &Array{Elems: make([]any, len(groups))}
	for i, g := range groups {
		if len(g.Captures) == 0 {
			out.Elems[i] = Undefined
			continue
		}
		out.Elems[i] = g.String()
	}
	if r.global() {
		r.LastIndex = utf16Offset(runes[:m.Index+m.Length])
	}
	return out, nil
}

// Test reports whether s matches.
func (r *RegExp) Test(s string) (bool, error) {
	m, err := r.Exec(s)
	return m != nil, err
}

// runeOffset converts a UTF-16 offset into a rune index.
func runeOffset(runes []rune, units int) int {
	n := 0
	for i, r := range runes {
		if n >= units {
			return i
		}
		n += utf16.RuneLen(r)
	}
	if n >= units {
		return len(runes)
	}
	return len(runes) + 1
}

func utf16Offset(runes []rune) int {
	n := 0
	for _, r := range runes {
		n += utf16.RuneLen(r)
	}
	return n
}

func (r *RegExp) GetProperty(key string) (any, bool) {
	switch key {
	case "source":
		return r.Source, true
	case "flags":
		return r.Flags, true
	case "global":
		return strings.ContainsRune(r.Flags, 'g'), true
	case "lastIndex":
		return float64(r.LastIndex), true
	case "exec":
		return NewFunction("exec", func(_ any, args []any) (any, error) {
			return r.Exec(ToString(argOr(args, 0)))
		}), true
	case "test":
		return NewFunction("test", func(_ any, args []any) (any, error) {
			return r.Test(ToString(argOr(args, 0)))
		}), true
	}
	return nil, false
}

func (r *RegExp) SetProperty(key string, v any) error {
	if key != "lastIndex" {
		return NewTypeError("Cannot assign to property '" + key + "' of RegExp")
	}
	n, err := ToNumber(v)
	if err != nil {
		return err
	}
	r.LastIndex = int(n)
	return nil
}

func argOr(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}
