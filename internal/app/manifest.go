package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	abi "github.com/woxQAQ/wbg-host/api/wasm"
	"github.com/woxQAQ/wbg-host/internal/weburl"
)

// ManifestFile is the file name of a bundle manifest.
const ManifestFile = "manifest.yaml"

// Capability names a host service an app may use.
const (
	CapabilityDOM    = "dom"
	CapabilityFetch  = "fetch"
	CapabilityCharts = "charts"
)

var validCapabilities = map[string]bool{
	CapabilityDOM:    true,
	CapabilityFetch:  true,
	CapabilityCharts: true,
}

// Manifest represents the app manifest.yaml structure.
type Manifest struct {
	Name         string         `yaml:"name"`
	Version      string         `yaml:"version"`
	Description  string         `yaml:"description"`
	Wasm         WasmConfig     `yaml:"wasm"`
	Document     DocumentConfig `yaml:"document"`
	Bindings     BindingsConfig `yaml:"bindings"`
	Capabilities []string       `yaml:"capabilities"`
	Author       string         `yaml:"author"`
	License      string         `yaml:"license"`

	// Internal fields
	dir string // Directory containing manifest
}

// WasmConfig holds Wasm module configuration. Exactly one of File and URL
// is set.
type WasmConfig struct {
	File string `yaml:"file"`
	URL  string `yaml:"url"`
	Size int    `yaml:"size"` // KB
}

// DocumentConfig describes the document a session starts with.
type DocumentConfig struct {
	// URL is the initial location. Empty means the configured default.
	URL string `yaml:"url"`
	// Template is an HTML file, relative to the bundle, loaded before the
	// start routine runs.
	Template string `yaml:"template"`
}

// BindingsConfig carries what the generated glue knows and the module
// alone does not tell.
type BindingsConfig struct {
	// TableIndex selects the function table holding closure destructors.
	TableIndex uint32 `yaml:"table_index"`
	// Aliases maps import names to host operations where the stem and
	// signature are ambiguous.
	Aliases map[string]string `yaml:"aliases"`
	// Closures maps closure wrapper imports to their descriptors.
	Closures map[string]ClosureConfig `yaml:"closures"`
}

// ClosureConfig describes one closure wrapper import.
type ClosureConfig struct {
	Destructor uint32 `yaml:"destructor"`
	Mutable    bool   `yaml:"mutable"`
	Invoke     string `yaml:"invoke"`
	Args       int    `yaml:"args"`
}

// ParseManifest reads and parses manifest.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *Manifest) invalid(field, format string, args ...any) error {
	return &ManifestValidationError{
		Path:    m.Path(),
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return m.invalid("name", "name is required")
	}
	if strings.ContainsAny(m.Name, "/ \t") {
		return m.invalid("name", "name must not contain slashes or spaces")
	}
	if m.Version == "" {
		return m.invalid("version", "version is required")
	}

	switch {
	case m.Wasm.File == "" && m.Wasm.URL == "":
		return m.invalid("wasm.file", "wasm.file or wasm.url is required")
	case m.Wasm.File != "" && m.Wasm.URL != "":
		return m.invalid("wasm.url", "wasm.file and wasm.url are mutually exclusive")
	case m.Wasm.URL != "":
		if _, err := weburl.Parse(m.Wasm.URL); err != nil {
			return m.invalid("wasm.url", "%v", err)
		}
	}

	if m.Document.URL != "" {
		if _, err := weburl.Parse(m.Document.URL); err != nil {
			return m.invalid("document.url", "%v", err)
		}
	}

	if len(m.Capabilities) == 0 {
		return m.invalid("capabilities", "at least one capability is required")
	}
	for _, c := range m.Capabilities {
		if !validCapabilities[c] {
			return m.invalid("capabilities", "unknown capability: %s (must be one of: dom, fetch, charts)", c)
		}
	}

	for _, name := range sortedKeys(m.Bindings.Aliases) {
		if !strings.HasPrefix(name, abi.BindingPrefix) {
			return m.invalid("bindings.aliases", "%s is not a generated binding name", name)
		}
		if m.Bindings.Aliases[name] == "" {
			return m.invalid("bindings.aliases", "%s has no target", name)
		}
	}
	for _, name := range sortedKeys(m.Bindings.Closures) {
		cl := m.Bindings.Closures[name]
		if !strings.HasPrefix(name, abi.ClosureWrapperPrefix) {
			return m.invalid("bindings.closures", "%s is not a closure wrapper", name)
		}
		if cl.Invoke == "" {
			return m.invalid("bindings.closures", "%s: invoke is required", name)
		}
		if cl.Args < 0 {
			return m.invalid("bindings.closures", "%s: args must not be negative", name)
		}
	}

	if m.Wasm.File != "" {
		if _, err := os.Stat(m.WasmPath()); os.IsNotExist(err) {
			return &WasmNotFoundError{
				ManifestPath: m.Path(),
				WasmFile:     m.Wasm.File,
			}
		}
	}
	if m.Document.Template != "" {
		if _, err := os.Stat(m.TemplatePath()); err != nil {
			return m.invalid("document.template", "%v", err)
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasCapability reports whether the manifest lists c.
func (m *Manifest) HasCapability(c string) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// WasmPath returns the path to the Wasm file.
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// TemplatePath returns the path to the document template, or "".
func (m *Manifest) TemplatePath() string {
	if m.Document.Template == "" {
		return ""
	}
	return filepath.Join(m.dir, m.Document.Template)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
