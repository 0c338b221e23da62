package charts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/jsval"
	"github.com/woxQAQ/wbg-host/internal/loop"
)

func newElement(t *testing.T) *dom.Node {
	t.Helper()
	logger := zaptest.NewLogger(t)
	w, err := dom.NewWindow(loop.New(logger), logger, "http://localhost/")
	if err != nil {
		t.Fatal(err)
	}
	el, err := w.Document.CreateElement("div")
	if err != nil {
		t.Fatal(err)
	}
	return el
}

func TestInitReusesChartPerElement(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	el := newElement(t)

	c1, err := r.Init(el, "dark", jsval.Undefined)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	c2, _ := r.Init(el, "light", jsval.Undefined)
	if c1 != c2 {
		t.Error("Init() on the same element should return the existing chart")
	}
	if c1.Theme != "dark" {
		t.Errorf("Theme = %s, want dark", c1.Theme)
	}

	other, _ := r.Init(newElement(t), "", nil)
	if other == c1 || len(r.List()) != 2 {
		t.Error("different elements should get different charts")
	}
	if found, ok := r.Find(other.ID); !ok || found != other {
		t.Error("Find() should locate charts by id")
	}

	if _, err := r.Init(nil, "", nil); err == nil {
		t.Error("Init(nil) should fail")
	}
}

func TestSetOptionMerges(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	c, _ := r.Init(newElement(t), "", nil)

	first := jsval.FromGo(map[string]any{
		"title":  map[string]any{"text": "latency", "left": "center"},
		"series": []any{map[string]any{"type": "line", "data": []any{1.0, 2.0}}},
	})
	second := jsval.FromGo(map[string]any{
		"title":  map[string]any{"text": "p99"},
		"series": []any{map[string]any{"type": "bar"}},
		"legend": map[string]any{"show": true},
	})

	if err := c.SetOption(first, false); err != nil {
		t.Fatalf("SetOption() failed: %v", err)
	}
	if err := c.SetOption(second, false); err != nil {
		t.Fatalf("SetOption() failed: %v", err)
	}

	want := map[string]any{
		"title":  map[string]any{"text": "p99", "left": "center"},
		"series": []any{map[string]any{"type": "bar"}},
		"legend": map[string]any{"show": true},
	}
	if diff := cmp.Diff(want, c.Option()); diff != "" {
		t.Errorf("Option() mismatch (-want +got):\n%s", diff)
	}
	if c.Updates() != 2 {
		t.Errorf("Updates() = %d, want 2", c.Updates())
	}

	if err := c.SetOption(jsval.FromGo(map[string]any{"x": 1.0}), true); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"x": 1.0}, c.Option()); diff != "" {
		t.Errorf("notMerge should replace (-want +got):\n%s", diff)
	}

	if err := c.SetOption("not an object", false); err == nil {
		t.Error("SetOption() should reject non-objects")
	}
}

func TestOnAndDispatch(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	c, _ := r.Init(newElement(t), "", nil)

	var got []any
	c.On("click", jsval.NewFunction("onClick", func(this any, args []any) (any, error) {
		if this != c {
			t.Error("handler receiver should be the chart")
		}
		name, _ := jsval.Get(args[0], "name")
		typ, _ := jsval.Get(args[0], "type")
		got = append(got, name, typ)
		return jsval.Undefined, nil
	}))

	n, err := c.Dispatch("click", map[string]any{"name": "GET /api"})
	if err != nil || n != 1 {
		t.Fatalf("Dispatch() = %d, %v", n, err)
	}
	if diff := cmp.Diff([]any{"GET /api", "click"}, got); diff != "" {
		t.Errorf("handler args mismatch (-want +got):\n%s", diff)
	}

	if n, _ := c.Dispatch("mouseover", nil); n != 0 {
		t.Errorf("Dispatch() without handlers = %d", n)
	}
	c.Off("click")
	if len(c.Events()) != 0 {
		t.Error("Off() should remove handlers")
	}
}

func TestDispose(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	el := newElement(t)
	c, _ := r.Init(el, "", nil)

	dispose, _ := jsval.Get(c, "dispose")
	if _, err := jsval.Call(dispose, c); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Get(el); ok {
		t.Error("disposed chart still registered")
	}
	if err := c.SetOption(jsval.NewObject(), false); err == nil {
		t.Error("SetOption() after dispose should fail")
	}
	if fresh, _ := r.Init(el, "", nil); fresh == c {
		t.Error("Init() after dispose should create a new chart")
	}
}
