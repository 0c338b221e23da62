package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/wbg-host/internal/config"
	"github.com/woxQAQ/wbg-host/internal/fetch"
	"github.com/woxQAQ/wbg-host/internal/host"
	"github.com/woxQAQ/wbg-host/internal/metrics"
	"github.com/woxQAQ/wbg-host/internal/wasm"
)

// Manager manages app loading and the sessions running them.
type Manager struct {
	cfg         *config.Config
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	table       *host.Table
	metrics     *metrics.Metrics
	logger      *zap.Logger

	mu       sync.RWMutex
	loaded   bool
	sessions map[string]*Session
}

// NewManager creates a new app manager. m may be nil.
func NewManager(
	cfg *config.Config,
	runtime *wasm.Runtime,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		cfg:         cfg,
		runtime:     runtime,
		loader:      NewLoader(runtime, &http.Client{Timeout: cfg.Fetch.Timeout}, logger),
		registry:    NewRegistry(logger),
		instanceMgr: wasm.NewInstanceManager(runtime, logger),
		table:       host.DefaultTable(),
		metrics:     m,
		logger:      logger.With(zap.String("component", "app-manager")),
		sessions:    make(map[string]*Session),
	}
}

// LoadAll discovers and loads all apps from the configured paths.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("apps already loaded")
	}

	m.logger.Info("Loading apps", zap.Strings("paths", m.cfg.AppPaths))

	apps, err := m.loader.DiscoverApps(ctx, m.cfg.AppPaths)
	if err != nil {
		var notFound *NoAppsFoundError
		if errors.As(err, &notFound) {
			m.logger.Warn("No apps found in configured paths",
				zap.Strings("paths", m.cfg.AppPaths),
			)
			m.loaded = true
			return nil
		}
		return err
	}

	for _, a := range apps {
		if err := m.registry.Register(a); err != nil {
			m.logger.Error("Failed to register app",
				zap.String("name", a.Name()),
				zap.Error(err),
			)
			continue
		}
	}

	m.loaded = true
	m.logger.Info("Apps loaded successfully", zap.Int("count", len(apps)))
	return nil
}

// GetApp retrieves an app by name.
func (m *Manager) GetApp(name string) (*App, error) {
	a, ok := m.registry.Get(name)
	if !ok {
		return nil, &NotFoundError{AppName: name}
	}
	return a, nil
}

// Apps returns the loaded apps, or those using capability when it is set.
func (m *Manager) Apps(capability string) []*App {
	if capability == "" {
		return m.registry.List()
	}
	return m.registry.LookupByCapability(capability)
}

// StartSession instantiates an app and runs its start routine.
func (m *Manager) StartSession(ctx context.Context, name string) (*Session, error) {
	a, err := m.GetApp(name)
	if err != nil {
		return nil, err
	}

	begin := time.Now()
	s, err := startSession(ctx, a, sessionDeps{
		instances: m.instanceMgr,
		table:     m.table,
		metrics:   m.metrics,
		fetch: fetch.Config{
			Timeout:      m.cfg.Fetch.Timeout,
			UserAgent:    m.cfg.Fetch.UserAgent,
			MaxBodyBytes: m.cfg.Fetch.MaxBodyBytes,
		},
		documentURL: m.cfg.Document.URL,
		logger:      m.logger,
	})
	m.metrics.SessionStarted(name, time.Since(begin), err)
	if err != nil {
		m.logger.Error("Failed to start session", zap.String("app", name), zap.Error(err))
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Session returns a running session.
func (m *Manager) Session(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, &SessionNotFoundError{ID: id}
	}
	return s, nil
}

// Sessions returns the running sessions, oldest first.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StopSession closes a session and forgets it.
func (m *Manager) StopSession(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return &SessionNotFoundError{ID: id}
	}
	return m.stop(ctx, s)
}

func (m *Manager) stop(ctx context.Context, s *Session) error {
	err := s.Close(ctx)
	m.metrics.SessionStopped(s.App.Name(), s.exceptions)
	return err
}

// Shutdown stops every session and closes the runtime.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down app manager")

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var err error
	for _, s := range sessions {
		err = multierr.Append(err, m.stop(ctx, s))
	}
	if rerr := m.runtime.Close(ctx); rerr != nil {
		m.logger.Error("Failed to shutdown runtime", zap.Error(rerr))
		err = multierr.Append(err, rerr)
	}

	m.logger.Info("App manager shutdown complete")
	return err
}

// Registry returns the app registry (for testing/inspection).
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether apps have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
