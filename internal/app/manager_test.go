package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/wbg-host/internal/config"
	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/jsval"
	"github.com/woxQAQ/wbg-host/internal/metrics"
	"github.com/woxQAQ/wbg-host/internal/wasm"
)

func newTestManager(t *testing.T, paths ...string) *Manager {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	runtime, err := wasm.NewRuntime(ctx, logger, wasm.DefaultRuntimeConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	cfg := &config.Config{
		AppPaths: paths,
		Fetch:    config.FetchConfig{Timeout: 5 * time.Second, UserAgent: "wbghost-test", MaxBodyBytes: 1 << 20},
		Document: config.DocumentConfig{URL: "http://localhost/"},
	}
	manager := NewManager(cfg, runtime, metrics.New(), logger)
	t.Cleanup(func() {
		if err := manager.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown() failed: %v", err)
		}
	})
	return manager
}

func startTracer(t *testing.T) (*Manager, *Session) {
	t.Helper()
	manager := newTestManager(t, "testdata/apps")
	if err := manager.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	s, err := manager.StartSession(context.Background(), "tracer")
	if err != nil {
		t.Fatalf("StartSession() failed: %v", err)
	}
	return manager, s
}

// guestU32 calls a guest export on the session loop.
func guestU32(t *testing.T, s *Session, export string, params ...uint64) uint32 {
	t.Helper()
	var out uint32
	err := s.Do(context.Background(), func() error {
		res, err := s.instance.Exports().Call(s.Bridge.Context(), export, params...)
		if err != nil {
			return err
		}
		out = api.DecodeU32(res[0])
		return nil
	})
	if err != nil {
		t.Fatalf("%s() failed: %v", export, err)
	}
	return out
}

func TestManager_LoadAll(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, "testdata/apps")

	if manager.IsLoaded() {
		t.Error("Manager should not be loaded initially")
	}
	if err := manager.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if !manager.IsLoaded() {
		t.Error("Manager should be loaded")
	}
	if err := manager.LoadAll(ctx); err == nil {
		t.Error("second LoadAll() should fail")
	}

	if _, err := manager.GetApp("tracer"); err != nil {
		t.Errorf("GetApp() failed: %v", err)
	}
	if _, err := manager.GetApp("nonexistent"); err == nil {
		t.Error("GetApp() should fail for unknown app")
	} else if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("expected NotFoundError, got %T", err)
	}

	if got := manager.Apps(""); len(got) != 1 {
		t.Errorf("Apps() = %d apps, want 1", len(got))
	}
	if got := manager.Apps(CapabilityCharts); len(got) != 1 {
		t.Errorf("Apps(charts) = %d apps, want 1", len(got))
	}
	if got := manager.Apps(CapabilityFetch); len(got) != 0 {
		t.Errorf("Apps(fetch) = %d apps, want 0", len(got))
	}
}

func TestManager_LoadAll_NoApps(t *testing.T) {
	manager := newTestManager(t, "/nonexistent/path")
	if err := manager.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() should tolerate empty paths: %v", err)
	}
	if manager.Registry().Count() != 0 {
		t.Errorf("expected no apps, got %d", manager.Registry().Count())
	}
}

func TestSession_Start(t *testing.T) {
	ctx := context.Background()
	manager, s := startTracer(t)

	h := guestU32(t, s, "start_handle")
	if h < 132 {
		t.Fatalf("start handle = %d, want a reclaimable slot", h)
	}
	if got := s.Bridge.Heap().Get(h); got != "hello" {
		t.Errorf("heap[%d] = %v, want hello", h, got)
	}

	html, err := s.OuterHTML(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<title>tracer</title>", `<button id="go">go</button>`} {
		if !strings.Contains(html, want) {
			t.Errorf("OuterHTML() = %s, missing %s", html, want)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Location != "https://tracer.test/app/" || stats.HistoryLength != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.Bridge.LiveHandles == 0 {
		t.Error("interned start string should be live")
	}

	if got, err := manager.Session(s.ID); err != nil || got != s {
		t.Errorf("Session(%s) = %v, %v", s.ID, got, err)
	}
	if got := manager.Sessions(); len(got) != 1 {
		t.Errorf("Sessions() = %d, want 1", len(got))
	}
}

func TestSession_ClosureListener(t *testing.T) {
	ctx := context.Background()
	_, s := startTracer(t)

	h := guestU32(t, s, "make_closure", api.EncodeU32(5), api.EncodeU32(6))
	err := s.Do(ctx, func() error {
		fn, ok := s.Bridge.Heap().Get(h).(*jsval.Function)
		if !ok {
			return errors.New("closure wrapper did not return a function")
		}
		s.Window.Document.GetElementByID("go").AddEventListener("click", fn, dom.ListenerOptions{})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	notCanceled, err := s.DispatchEvent(ctx, "go", "click", dom.EventInit{Bubbles: true, Cancelable: true})
	if err != nil {
		t.Fatalf("DispatchEvent() failed: %v", err)
	}
	if !notCanceled {
		t.Error("event should not be canceled")
	}
	if n := guestU32(t, s, "invoke_count"); n != 1 {
		t.Errorf("invoke_count = %d, want 1", n)
	}
	if arg := guestU32(t, s, "last_arg"); arg < 132 {
		t.Errorf("listener argument = %d, want an event handle", arg)
	}

	if _, err := s.DispatchEvent(ctx, "missing", "click", dom.EventInit{}); err == nil {
		t.Error("DispatchEvent() should fail for an unknown element")
	}
}

func TestSession_ExceptionsAndStop(t *testing.T) {
	ctx := context.Background()
	manager, s := startTracer(t)

	var ptr, n uint32
	err := s.Do(ctx, func() error {
		var err error
		ptr, n, err = s.Bridge.PassString(s.Bridge.Context(), "%E0%A4%A")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if ret := guestU32(t, s, "decode", api.EncodeU32(ptr), api.EncodeU32(n)); ret != 0 {
		t.Errorf("throwing import returned %d, want 0", ret)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Bridge.Exceptions != 1 {
		t.Errorf("Exceptions = %d, want 1", stats.Bridge.Exceptions)
	}

	if _, err := s.Navigate(ctx, -1); err == nil {
		t.Error("Navigate(-1) should fail with a single history entry")
	}
	if _, err := s.ChartDispatch(ctx, "chart-1", "click", nil); err == nil {
		t.Error("ChartDispatch() should fail for an unknown chart")
	}

	if err := manager.StopSession(ctx, s.ID); err != nil {
		t.Fatalf("StopSession() failed: %v", err)
	}
	if s.exceptions != 1 {
		t.Errorf("recorded exceptions = %d, want 1", s.exceptions)
	}
	if _, err := manager.Session(s.ID); err == nil {
		t.Error("stopped session should be forgotten")
	}
	var notFound *SessionNotFoundError
	if err := manager.StopSession(ctx, s.ID); !errors.As(err, &notFound) {
		t.Errorf("second StopSession() = %v", err)
	}
}

func TestManager_StartSession_Errors(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	_, err := manager.StartSession(ctx, "nonexistent")
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("expected NotFoundError, got %T", err)
	}

	// Same module, but the manifest does not describe the closure wrapper.
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join("testdata", "apps", "tracer", "tracer.wasm"))
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "app.wasm"), data, 0o644)
	os.WriteFile(filepath.Join(dir, ManifestFile),
		[]byte("name: undeclared\nversion: 1.0.0\nwasm: {file: app.wasm}\ncapabilities: [dom]\n"), 0o644)

	app, err := manager.loader.LoadApp(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.Registry().Register(app); err != nil {
		t.Fatal(err)
	}

	_, err = manager.StartSession(ctx, "undeclared")
	var startErr *SessionStartError
	if !errors.As(err, &startErr) || startErr.Phase != "resolve" {
		t.Fatalf("StartSession() = %v, want a resolve failure", err)
	}
	var resolveErr *wasm.ImportResolutionError
	if !errors.As(err, &resolveErr) || resolveErr.Name != "__wbindgen_closure_wrapper7" {
		t.Errorf("unexpected cause %v", err)
	}
	if len(manager.Sessions()) != 0 {
		t.Error("failed session should not be tracked")
	}
}
