package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/wbg-host/internal/wasm"
)

// Loader handles loading apps from disk.
type Loader struct {
	runtime      *wasm.Runtime
	moduleLoader *wasm.ModuleLoader
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewLoader creates a new app loader. httpClient downloads modules of
// manifests with a wasm.url; nil means http.DefaultClient.
func NewLoader(runtime *wasm.Runtime, httpClient *http.Client, logger *zap.Logger) *Loader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Loader{
		runtime:      runtime,
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		httpClient:   httpClient,
		logger:       logger.With(zap.String("component", "app-loader")),
	}
}

// LoadApp loads a single app from a directory.
func (l *Loader) LoadApp(ctx context.Context, dir string) (*App, error) {
	l.logger.Debug("Loading app", zap.String("dir", dir))

	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading app",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.Strings("capabilities", manifest.Capabilities),
	)

	// Compile Wasm module (uses internal caching)
	var compiled *wasm.CompiledModule
	if manifest.Wasm.URL != "" {
		compiled, err = l.moduleLoader.LoadModuleFromURL(ctx, manifest.Wasm.URL, l.httpClient)
	} else {
		compiled, err = l.moduleLoader.LoadModuleFromFile(ctx, manifest.WasmPath())
	}
	if err != nil {
		return nil, &LoadError{
			AppName: manifest.Name,
			Err:     err,
		}
	}

	app := &App{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}

	l.logger.Info("App loaded successfully",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
		zap.Int("imports", len(compiled.Imports)),
	)

	return app, nil
}

// DiscoverApps scans directories for apps.
func (l *Loader) DiscoverApps(ctx context.Context, paths []string) ([]*App, error) {
	var apps []*App
	var errs []error

	for _, basePath := range paths {
		l.logger.Debug("Scanning app directory", zap.String("path", basePath))

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("App path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		// Try to load each subdirectory as an app
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			appDir := filepath.Join(basePath, entry.Name())

			app, err := l.LoadApp(ctx, appDir)
			if err != nil {
				l.logger.Error("Failed to load app",
					zap.String("dir", appDir),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}

			apps = append(apps, app)
		}
	}

	if len(apps) > 0 && len(errs) > 0 {
		l.logger.Warn("Some apps failed to load",
			zap.Int("loaded", len(apps)),
			zap.Int("failed", len(errs)),
		)
	}

	if len(apps) == 0 {
		return nil, &NoAppsFoundError{Paths: paths}
	}

	return apps, nil
}
