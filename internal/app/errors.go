package app

import (
	"fmt"
)

// ManifestNotFoundError occurs when manifest.yaml is not found in a directory.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when manifest.yaml cannot be parsed as valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when manifest.yaml fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// WasmNotFoundError occurs when the Wasm file referenced in manifest doesn't exist.
type WasmNotFoundError struct {
	ManifestPath string
	WasmFile     string
}

func (e *WasmNotFoundError) Error() string {
	return fmt.Sprintf("Wasm file '%s' not found (referenced in manifest '%s')",
		e.WasmFile, e.ManifestPath)
}

// LoadError occurs when app loading fails.
type LoadError struct {
	AppName string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load app '%s': %v", e.AppName, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NotFoundError occurs when an app is not in the registry.
type NotFoundError struct {
	AppName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("app '%s' not found", e.AppName)
}

// AlreadyRegisteredError occurs when attempting to register a duplicate app.
type AlreadyRegisteredError struct {
	AppName string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("app '%s' is already registered", e.AppName)
}

// NoAppsFoundError occurs when no apps are found in the configured paths.
type NoAppsFoundError struct {
	Paths []string
}

func (e *NoAppsFoundError) Error() string {
	return fmt.Sprintf("no apps found in paths: %v", e.Paths)
}

// SessionNotFoundError occurs when a session id is unknown.
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session '%s' not found", e.ID)
}

// SessionStartError occurs when a session fails during instantiation or
// its start routine.
type SessionStartError struct {
	AppName string
	Phase   string
	Err     error
}

func (e *SessionStartError) Error() string {
	return fmt.Sprintf("failed to start session of '%s' (%s): %v", e.AppName, e.Phase, e.Err)
}

func (e *SessionStartError) Unwrap() error {
	return e.Err
}

// ElementNotFoundError occurs when no element of a session document has
// the requested id.
type ElementNotFoundError struct {
	ID string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("no element with id '%s'", e.ID)
}

// ChartNotFoundError occurs when a session hosts no chart with the
// requested id.
type ChartNotFoundError struct {
	ID string
}

func (e *ChartNotFoundError) Error() string {
	return fmt.Sprintf("chart '%s' not found", e.ID)
}

// HistoryRangeError occurs when navigation leaves the session history.
type HistoryRangeError struct {
	Delta int
}

func (e *HistoryRangeError) Error() string {
	return fmt.Sprintf("history has no entry at offset %d", e.Delta)
}
