package app

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry manages loaded apps.
type Registry struct {
	sync.RWMutex
	apps         map[string]*App   // name -> app
	byCapability map[string][]*App // capability -> apps
	logger       *zap.Logger
}

// NewRegistry creates a new app registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		apps:         make(map[string]*App),
		byCapability: make(map[string][]*App),
		logger:       logger.With(zap.String("component", "app-registry")),
	}
}

// Register adds an app to the registry.
func (r *Registry) Register(app *App) error {
	r.Lock()
	defer r.Unlock()

	name := app.Manifest.Name

	if _, exists := r.apps[name]; exists {
		return &AlreadyRegisteredError{AppName: name}
	}

	r.apps[name] = app

	for _, c := range app.Manifest.Capabilities {
		r.byCapability[c] = append(r.byCapability[c], app)
	}

	r.logger.Info("App registered",
		zap.String("name", name),
		zap.Strings("capabilities", app.Manifest.Capabilities),
	)

	return nil
}

// Get retrieves an app by name.
func (r *Registry) Get(name string) (*App, bool) {
	r.RLock()
	defer r.RUnlock()

	app, ok := r.apps[name]
	return app, ok
}

// LookupByCapability finds apps that use a capability.
func (r *Registry) LookupByCapability(capability string) []*App {
	r.RLock()
	defer r.RUnlock()

	apps, ok := r.byCapability[capability]
	if !ok || len(apps) == 0 {
		return []*App{}
	}
	// Return copy to avoid race conditions
	result := make([]*App, len(apps))
	copy(result, apps)
	return result
}

// List returns all registered apps sorted by name.
func (r *Registry) List() []*App {
	r.RLock()
	defer r.RUnlock()

	result := make([]*App, 0, len(r.apps))
	for _, app := range r.apps {
		result = append(result, app)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Unregister removes an app from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	app, ok := r.apps[name]
	if !ok {
		return
	}

	for _, c := range app.Manifest.Capabilities {
		apps := r.byCapability[c]
		for i, a := range apps {
			if a.Manifest.Name == name {
				r.byCapability[c] = append(apps[:i], apps[i+1:]...)
				break
			}
		}
	}

	delete(r.apps, name)

	r.logger.Info("App unregistered", zap.String("name", name))
}

// Count returns the number of registered apps.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.apps)
}
