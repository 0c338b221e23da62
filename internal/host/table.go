// Package host implements the call surface a guest module imports from the
// "wbg" namespace: a table of named host operations, the rules that bind a
// module's imports to them, and the adapters that turn each operation into a
// wazero host function.
package host

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero/api"

	abi "github.com/woxQAQ/wbg-host/api/wasm"
	"github.com/woxQAQ/wbg-host/internal/wasm"
)

// Func performs one host operation. Arguments are read from and results
// written to the call.
type Func func(c *Call) error

// Entry is one host operation.
type Entry struct {
	// Name identifies the entry in import aliases, e.g. "Array.new".
	Name string

	// Stem is the import name without the binding prefix and hash suffix.
	Stem string

	Params  []api.ValueType
	Results []api.ValueType

	// Throws marks entries whose errors are stored in the guest's exception
	// slot instead of unwinding the call.
	Throws bool

	Fn Func
}

// Signature renders the entry's wasm type.
func (e *Entry) Signature() string {
	return wasm.Signature(e.Params, e.Results)
}

// entry declares an operation. The stem is the part of name after the last
// dot, up to an optional "#variant" suffix; sig lists parameter then result
// types ("i" i32, "I" i64, "F" f64) separated by ">".
func entry(name, sig string, fn Func) *Entry {
	stem := name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		stem = name[i+1:]
	}
	stem, _, _ = strings.Cut(stem, "#")
	params, results, _ := strings.Cut(sig, ">")
	return &Entry{
		Name:    name,
		Stem:    stem,
		Params:  valueTypes(params),
		Results: valueTypes(results),
		Fn:      fn,
	}
}

// throwing marks e as a throwing entry.
func throwing(e *Entry) *Entry {
	e.Throws = true
	return e
}

func valueTypes(s string) []api.ValueType {
	out := make([]api.ValueType, 0, len(s))
	for _, c := range s {
		switch c {
		case 'i':
			out = append(out, api.ValueTypeI32)
		case 'I':
			out = append(out, api.ValueTypeI64)
		case 'F':
			out = append(out, api.ValueTypeF64)
		default:
			panic("host: bad signature " + s)
		}
	}
	return out
}

// Table is an immutable set of entries indexed for import resolution.
type Table struct {
	byName     map[string]*Entry
	byStem     map[string][]*Entry
	intrinsics map[string]*Entry
}

// NewTable indexes entries. Names must be unique.
func NewTable(entries ...[]*Entry) *Table {
	t := &Table{
		byName:     make(map[string]*Entry),
		byStem:     make(map[string][]*Entry),
		intrinsics: make(map[string]*Entry),
	}
	for _, group := range entries {
		for _, e := range group {
			if _, dup := t.byName[e.Name]; dup {
				panic("host: duplicate entry " + e.Name)
			}
			t.byName[e.Name] = e
			if strings.HasPrefix(e.Name, abi.IntrinsicPrefix) {
				t.intrinsics[e.Name] = e
				continue
			}
			t.byStem[e.Stem] = append(t.byStem[e.Stem], e)
		}
	}
	return t
}

// DefaultTable returns every built-in operation.
func DefaultTable() *Table {
	return NewTable(
		intrinsicEntries(),
		consoleEntries(),
		errorEntries(),
		domEntries(),
		windowEntries(),
		urlEntries(),
		netEntries(),
		eventEntries(),
		collectionEntries(),
		reflectEntries(),
		timeEntries(),
		chartEntries(),
	)
}

// Lookup returns the entry with the given name.
func (t *Table) Lookup(name string) (*Entry, bool) {
	e, ok := t.byName[name]
	return e, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.byName)
}

// Names returns every entry name, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stem extracts the stem of a generated binding name
// "__wbg_<stem>_<hash>". ok is false for other names.
func Stem(importName string) (string, bool) {
	rest, ok := strings.CutPrefix(importName, abi.BindingPrefix)
	if !ok {
		return "", false
	}
	i := strings.LastIndexByte(rest, '_')
	if i <= 0 {
		return "", false
	}
	return rest[:i], true
}

// Resolve finds the entry for one import: by exact name for intrinsics,
// then through aliases (import name to entry name), then by stem and
// signature.
func (t *Table) Resolve(imp wasm.Import, aliases map[string]string) (*Entry, error) {
	fail := func(format string, args ...any) error {
		return &wasm.ImportResolutionError{Module: imp.Module, Name: imp.Name, Reason: fmt.Sprintf(format, args...)}
	}
	check := func(e *Entry) (*Entry, error) {
		if e.Signature() != imp.Signature() {
			return nil, fail("%s has type %s, import expects %s", e.Name, e.Signature(), imp.Signature())
		}
		return e, nil
	}

	if e, ok := t.intrinsics[imp.Name]; ok {
		return check(e)
	}
	if target, ok := aliases[imp.Name]; ok {
		e, ok := t.byName[target]
		if !ok {
			return nil, fail("alias names unknown entry %q", target)
		}
		return check(e)
	}
	if strings.HasPrefix(imp.Name, abi.IntrinsicPrefix) {
		return nil, fail("unknown intrinsic")
	}

	stem, ok := Stem(imp.Name)
	if !ok {
		return nil, fail("not a generated binding name")
	}
	var matches []*Entry
	for _, e := range t.byStem[stem] {
		if e.Signature() == imp.Signature() {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		if len(t.byStem[stem]) == 0 {
			return nil, fail("no host operation named %q", stem)
		}
		return nil, fail("no host operation %q with type %s", stem, imp.Signature())
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, e := range matches {
		names[i] = e.Name
	}
	sort.Strings(names)
	return nil, fail("ambiguous stem %q, add an import alias to one of %s", stem, strings.Join(names, ", "))
}
