package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/wbg-host/internal/app"
	"github.com/woxQAQ/wbg-host/internal/config"
	"github.com/woxQAQ/wbg-host/internal/metrics"
	"github.com/woxQAQ/wbg-host/internal/wasm"
	"github.com/woxQAQ/wbg-host/pkg/protocol"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	runtime, err := wasm.NewRuntime(ctx, logger, wasm.DefaultRuntimeConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	cfg := &config.Config{
		AppPaths:       []string{"../app/testdata/apps"},
		MetricsEnabled: true,
		HTTP:           config.HTTPConfig{Enabled: true, Addr: "127.0.0.1:0"},
		Fetch:          config.FetchConfig{Timeout: 5 * time.Second},
		Document:       config.DocumentConfig{URL: "http://localhost/"},
	}
	m := metrics.New()
	manager := app.NewManager(cfg, runtime, m, logger)
	if err := manager.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	srv := httptest.NewServer(New(cfg, manager, m, logger).Handler())
	t.Cleanup(func() {
		srv.Close()
		if err := manager.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown() failed: %v", err)
		}
	})
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func expect(t *testing.T, resp *http.Response, code int, out any) {
	t.Helper()
	if resp.StatusCode != code {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d (%s)", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, code, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", resp.Request.URL.Path, err)
		}
	}
}

func startSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var info protocol.SessionInfo
	expect(t, do(t, srv, http.MethodPost, "/sessions", `{"app":"tracer"}`), http.StatusCreated, &info)
	if info.App != "tracer" || info.ID == "" {
		t.Fatalf("unexpected session %+v", info)
	}
	return info.ID
}

func TestApps(t *testing.T) {
	srv := newTestServer(t)

	var health map[string]string
	expect(t, do(t, srv, http.MethodGet, "/healthz", ""), http.StatusOK, &health)
	if health["status"] != "ok" {
		t.Errorf("healthz = %v", health)
	}

	var apps []protocol.AppInfo
	expect(t, do(t, srv, http.MethodGet, "/apps", ""), http.StatusOK, &apps)
	if len(apps) != 1 || apps[0].Name != "tracer" || apps[0].Imports != 6 {
		t.Fatalf("unexpected apps %+v", apps)
	}

	expect(t, do(t, srv, http.MethodGet, "/apps?capability=fetch", ""), http.StatusOK, &apps)
	if len(apps) != 0 {
		t.Errorf("fetch apps = %+v, want none", apps)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	var sessions []protocol.SessionInfo
	expect(t, do(t, srv, http.MethodGet, "/sessions", ""), http.StatusOK, &sessions)
	if len(sessions) != 1 || sessions[0].ID != id {
		t.Errorf("sessions = %+v", sessions)
	}

	var snap protocol.Snapshot
	expect(t, do(t, srv, http.MethodGet, "/sessions/"+id, ""), http.StatusOK, &snap)
	if snap.ID != id || snap.Location != "https://tracer.test/app/" || snap.Stats.HistoryLength != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Stats.LiveHandles == 0 {
		t.Error("start routine should leave a live handle")
	}

	resp := do(t, srv, http.MethodGet, "/sessions/"+id+"/html", "")
	expect(t, resp, http.StatusOK, nil)
	html, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(html), `<button id="go">go</button>`) {
		t.Errorf("html = %s", html)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %s", ct)
	}

	var charts []protocol.ChartSnapshot
	expect(t, do(t, srv, http.MethodGet, "/sessions/"+id+"/charts", ""), http.StatusOK, &charts)
	if len(charts) != 0 {
		t.Errorf("charts = %+v, want none", charts)
	}

	var console []protocol.ConsoleEntry
	expect(t, do(t, srv, http.MethodGet, "/sessions/"+id+"/console", ""), http.StatusOK, &console)

	expect(t, do(t, srv, http.MethodDelete, "/sessions/"+id, ""), http.StatusNoContent, nil)
	expect(t, do(t, srv, http.MethodGet, "/sessions/"+id, ""), http.StatusNotFound, nil)
	expect(t, do(t, srv, http.MethodDelete, "/sessions/"+id, ""), http.StatusNotFound, nil)
}

func TestDriveSession(t *testing.T) {
	srv := newTestServer(t)
	id := startSession(t, srv)

	var dispatched protocol.DispatchResult
	expect(t, do(t, srv, http.MethodPost, "/sessions/"+id+"/events",
		`{"target":"go","type":"click","bubbles":true,"cancelable":true}`), http.StatusOK, &dispatched)
	if !dispatched.NotCanceled {
		t.Error("click without listeners should not be canceled")
	}

	var apiErr protocol.Error
	expect(t, do(t, srv, http.MethodPost, "/sessions/"+id+"/events",
		`{"target":"missing","type":"click"}`), http.StatusNotFound, &apiErr)
	if !strings.Contains(apiErr.Error, "missing") {
		t.Errorf("error = %s", apiErr.Error)
	}
	expect(t, do(t, srv, http.MethodPost, "/sessions/"+id+"/events", `{"type":"click"}`), http.StatusBadRequest, nil)

	expect(t, do(t, srv, http.MethodPost, "/sessions/"+id+"/navigate", `{"delta":-1}`), http.StatusConflict, nil)
	expect(t, do(t, srv, http.MethodPost, "/sessions/"+id+"/navigate", `{"delta":"back"}`), http.StatusBadRequest, nil)

	expect(t, do(t, srv, http.MethodPost, "/sessions/"+id+"/charts/chart-1/events", `{"event":"click"}`),
		http.StatusNotFound, nil)
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t)

	expect(t, do(t, srv, http.MethodPost, "/sessions", `{"app":"nonexistent"}`), http.StatusNotFound, nil)
	expect(t, do(t, srv, http.MethodPost, "/sessions", `{"app":`), http.StatusBadRequest, nil)
	expect(t, do(t, srv, http.MethodPost, "/sessions", `{"app":"tracer","extra":1}`), http.StatusBadRequest, nil)
	expect(t, do(t, srv, http.MethodPost, "/sessions", `{}`), http.StatusBadRequest, nil)
	expect(t, do(t, srv, http.MethodGet, "/sessions/unknown/html", ""), http.StatusNotFound, nil)
	expect(t, do(t, srv, http.MethodPut, "/sessions", ""), http.StatusMethodNotAllowed, nil)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	startSession(t, srv)

	resp := do(t, srv, http.MethodGet, "/metrics", "")
	expect(t, resp, http.StatusOK, nil)
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`wbghost_http_requests_total{code="201",route="/sessions"} 1`,
		"wbghost_sessions_active 1",
		`wbghost_imports_bound_total{app="tracer"} 6`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
