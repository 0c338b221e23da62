package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseManifest_Valid(t *testing.T) {
	dir := filepath.Join("testdata", "apps", "tracer")

	manifest, err := ParseManifest(dir)
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}

	if manifest.Name != "tracer" {
		t.Errorf("expected Name 'tracer', got '%s'", manifest.Name)
	}
	if manifest.Version != "0.3.1" {
		t.Errorf("expected Version '0.3.1', got '%s'", manifest.Version)
	}
	if manifest.WasmPath() != filepath.Join(dir, "tracer.wasm") {
		t.Errorf("unexpected WasmPath %s", manifest.WasmPath())
	}
	if manifest.TemplatePath() != filepath.Join(dir, "index.html") {
		t.Errorf("unexpected TemplatePath %s", manifest.TemplatePath())
	}
	if manifest.Document.URL != "https://tracer.test/app/" {
		t.Errorf("unexpected document URL %s", manifest.Document.URL)
	}

	want := map[string]ClosureConfig{
		"__wbindgen_closure_wrapper7": {Destructor: 0, Mutable: true, Invoke: "invoke", Args: 1},
	}
	if diff := cmp.Diff(want, manifest.Bindings.Closures); diff != "" {
		t.Errorf("closures mismatch (-want +got):\n%s", diff)
	}

	if !manifest.HasCapability(CapabilityCharts) || manifest.HasCapability(CapabilityFetch) {
		t.Errorf("unexpected capabilities %v", manifest.Capabilities)
	}
}

func TestParseManifest_NotFound(t *testing.T) {
	dir := filepath.Join("testdata", "apps", "nonexistent")

	_, err := ParseManifest(dir)
	if err == nil {
		t.Fatal("ParseManifest() should fail for nonexistent directory")
	}
	if _, ok := err.(*ManifestNotFoundError); !ok {
		t.Errorf("expected ManifestNotFoundError, got %T", err)
	}
}

func TestParseManifest_InvalidYAML(t *testing.T) {
	_, err := ParseManifest(filepath.Join("testdata", "invalid", "invalid-yaml"))
	if err == nil {
		t.Fatal("ParseManifest() should fail for invalid YAML")
	}
	if _, ok := err.(*ManifestParseError); !ok {
		t.Errorf("expected ManifestParseError, got %T", err)
	}
}

func TestParseManifest_ValidationErrors(t *testing.T) {
	tests := []struct {
		dir   string
		field string
	}{
		{"missing-fields", "name"},
		{"bad-closure", "bindings.closures"},
		{"bad-capability", "capabilities"},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			_, err := ParseManifest(filepath.Join("testdata", "invalid", tt.dir))
			validationErr, ok := err.(*ManifestValidationError)
			if !ok {
				t.Fatalf("expected ManifestValidationError, got %T (%v)", err, err)
			}
			if validationErr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, validationErr.Field)
			}
		})
	}
}

func TestParseManifest_MissingWasm(t *testing.T) {
	_, err := ParseManifest(filepath.Join("testdata", "invalid", "missing-wasm"))
	wasmErr, ok := err.(*WasmNotFoundError)
	if !ok {
		t.Fatalf("expected WasmNotFoundError, got %T", err)
	}
	if wasmErr.WasmFile != "absent.wasm" {
		t.Errorf("unexpected WasmFile %s", wasmErr.WasmFile)
	}
}

func TestManifestValidate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.wasm"), []byte("\x00asm"), 0o644); err != nil {
		t.Fatal(err)
	}

	valid := func() *Manifest {
		return &Manifest{
			Name:         "demo",
			Version:      "1.0.0",
			Wasm:         WasmConfig{File: "app.wasm"},
			Capabilities: []string{CapabilityDOM},
			dir:          dir,
		}
	}

	tests := []struct {
		name    string
		mutate  func(m *Manifest)
		wantErr string
	}{
		{"valid", func(*Manifest) {}, ""},
		{"name with slash", func(m *Manifest) { m.Name = "a/b" }, "slashes"},
		{"no version", func(m *Manifest) { m.Version = "" }, "version is required"},
		{"no module", func(m *Manifest) { m.Wasm.File = "" }, "wasm.file or wasm.url"},
		{"file and url", func(m *Manifest) { m.Wasm.URL = "https://cdn.test/app.wasm" }, "mutually exclusive"},
		{"remote module", func(m *Manifest) { m.Wasm = WasmConfig{URL: "https://cdn.test/app.wasm"} }, ""},
		{"bad module url", func(m *Manifest) { m.Wasm = WasmConfig{URL: "not a url"} }, "wasm"},
		{"bad document url", func(m *Manifest) { m.Document.URL = "::" }, "document"},
		{"no capabilities", func(m *Manifest) { m.Capabilities = nil }, "at least one capability"},
		{"alias prefix", func(m *Manifest) {
			m.Bindings.Aliases = map[string]string{"decodeURI": "decodeURI"}
		}, "not a generated binding name"},
		{"alias target", func(m *Manifest) {
			m.Bindings.Aliases = map[string]string{"__wbg_new_0123": ""}
		}, "has no target"},
		{"closure prefix", func(m *Manifest) {
			m.Bindings.Closures = map[string]ClosureConfig{"__wbg_closure": {Invoke: "invoke"}}
		}, "not a closure wrapper"},
		{"closure args", func(m *Manifest) {
			m.Bindings.Closures = map[string]ClosureConfig{"__wbindgen_closure_wrapper9": {Invoke: "invoke", Args: -1}}
		}, "must not be negative"},
		{"missing template", func(m *Manifest) { m.Document.Template = "index.html" }, "document.template"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestAppBindings(t *testing.T) {
	manifest, err := ParseManifest(filepath.Join("testdata", "apps", "tracer"))
	if err != nil {
		t.Fatal(err)
	}
	b := (&App{Manifest: manifest}).Bindings()

	cl, ok := b.Closures["__wbindgen_closure_wrapper7"]
	if !ok {
		t.Fatal("closure wrapper missing from bindings")
	}
	if cl.Invoke != "invoke" || cl.Args != 1 || !cl.Mutable || cl.Destructor != 0 {
		t.Errorf("unexpected closure binding %+v", cl)
	}
}
