package app

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/wbg-host/internal/bridge"
	"github.com/woxQAQ/wbg-host/internal/charts"
	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/fetch"
	"github.com/woxQAQ/wbg-host/internal/host"
	"github.com/woxQAQ/wbg-host/internal/loop"
	"github.com/woxQAQ/wbg-host/internal/metrics"
	"github.com/woxQAQ/wbg-host/internal/wasm"
)

const (
	defaultDocument = "<!DOCTYPE html><html><head></head><body></body></html>"
	consoleLimit    = 512
)

// Session is one running instance of an app. All guest-visible state is
// owned by the session's loop goroutine; the methods below hop onto it.
type Session struct {
	ID        string
	App       *App
	CreatedAt time.Time

	Window  *dom.Window
	Loop    *loop.Loop
	Bridge  *bridge.Bridge
	Charts  *charts.Registry
	Console *host.Console

	instance *wasm.Instance
	cancel   context.CancelFunc
	done     chan error
	logger   *zap.Logger

	closeOnce  sync.Once
	closeErr   error
	exceptions int
}

// SessionStats is a point-in-time view of a session.
type SessionStats struct {
	Bridge        bridge.Stats
	Location      string
	HistoryLength int
	Charts        int
	PendingTasks  int
	ConsoleLines  int
}

// sessionDeps are the manager-owned pieces a session is built from.
type sessionDeps struct {
	instances   *wasm.InstanceManager
	table       *host.Table
	metrics     *metrics.Metrics
	fetch       fetch.Config
	documentURL string
	logger      *zap.Logger
}

// startSession instantiates app, attaches the bridge and runs the guest
// start routine on a fresh loop. The returned session's loop keeps running
// until Close.
func startSession(ctx context.Context, a *App, deps sessionDeps) (*Session, error) {
	id := wasm.NewID()
	logger := deps.logger.With(zap.String("session", id), zap.String("app", a.Name()))

	fail := func(phase string, err error) error {
		return &SessionStartError{AppName: a.Name(), Phase: phase, Err: err}
	}

	l := loop.New(logger)
	docURL := a.Manifest.Document.URL
	if docURL == "" {
		docURL = deps.documentURL
	}
	w, err := dom.NewWindow(l, logger, docURL)
	if err != nil {
		return nil, fail("document", err)
	}

	page := defaultDocument
	if path := a.Manifest.TemplatePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fail("document", err)
		}
		page = string(data)
	}
	if err := w.LoadHTML(page); err != nil {
		return nil, fail("document", err)
	}

	br := bridge.New(logger)
	env := &host.Env{
		Bridge:  br,
		Window:  w,
		Loop:    l,
		Console: host.NewConsole(logger, consoleLimit),
		Logger:  logger,
	}
	if a.Manifest.HasCapability(CapabilityFetch) {
		env.Fetch = fetch.NewClient(l, logger, deps.fetch, w.Location.Href,
			fetch.WithObserver(deps.metrics.FetchObserver(a.Name())))
	}
	if a.Manifest.HasCapability(CapabilityCharts) {
		env.Charts = charts.NewRegistry(logger)
	}

	funcs, err := env.HostFunctions(deps.table, a.Compiled.Imports, a.Bindings())
	if err != nil {
		return nil, fail("resolve", err)
	}
	deps.metrics.ImportsBound(a.Name(), len(funcs))

	inst, err := deps.instances.Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName:    a.Compiled.Name,
		InstanceID:    id,
		HostFunctions: funcs,
		TableIndex:    a.Manifest.Bindings.TableIndex,
		OnGrow:        func(uint64) { br.Views().Invalidate() },
	})
	if err != nil {
		return nil, fail("instantiate", err)
	}
	env.Guest = inst.Exports()

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        id,
		App:       a,
		CreatedAt: time.Now(),
		Window:    w,
		Loop:      l,
		Bridge:    br,
		Charts:    env.Charts,
		Console:   env.Console,
		instance:  inst,
		cancel:    cancel,
		done:      make(chan error, 1),
		logger:    logger,
	}

	l.AfterTask(func() {
		if n := br.ReleaseFinalized(); n > 0 {
			logger.Debug("Released finalized closures", zap.Int("count", n))
		}
	})
	go func() { s.done <- l.Run(runCtx) }()

	err = l.Do(ctx, func() error {
		br.Attach(runCtx, inst.Memory(), inst.Exports())
		br.Finalize()
		return inst.Exports().Start(runCtx)
	})
	if err != nil {
		return nil, multierr.Append(fail("start", err), s.Close(context.Background()))
	}

	logger.Info("Session started", zap.Int("imports", len(funcs)))
	return s, nil
}

// Do runs fn on the session loop and waits for it.
func (s *Session) Do(ctx context.Context, fn func() error) error {
	return s.Loop.Do(ctx, fn)
}

// OuterHTML serializes the current document.
func (s *Session) OuterHTML(ctx context.Context) (string, error) {
	var out string
	err := s.Do(ctx, func() error {
		if root := s.Window.Document.DocumentElement(); root != nil {
			out = root.OuterHTML()
		}
		return nil
	})
	return out, err
}

// Stats collects the bridge and window counters.
func (s *Session) Stats(ctx context.Context) (SessionStats, error) {
	var st SessionStats
	err := s.Do(ctx, func() error {
		st = SessionStats{
			Bridge:        s.Bridge.Stats(),
			Location:      s.Window.Location.Href(),
			HistoryLength: s.Window.History.Len(),
			PendingTasks:  s.Loop.Pending(),
			ConsoleLines:  len(s.Console.Entries()),
		}
		if s.Charts != nil {
			st.Charts = len(s.Charts.List())
		}
		return nil
	})
	return st, err
}

// DispatchEvent fires an event of type typ at the element with the given
// id. It reports whether no listener canceled the event.
func (s *Session) DispatchEvent(ctx context.Context, elementID, typ string, init dom.EventInit) (bool, error) {
	var notCanceled bool
	err := s.Do(ctx, func() error {
		target := s.Window.Document.GetElementByID(elementID)
		if target == nil {
			return &ElementNotFoundError{ID: elementID}
		}
		notCanceled = s.Window.Dispatch(target, dom.NewEvent(typ, init))
		return nil
	})
	return notCanceled, err
}

// Navigate moves through the session history like history.go(delta) and
// returns the resulting location.
func (s *Session) Navigate(ctx context.Context, delta int) (string, error) {
	var href string
	err := s.Do(ctx, func() error {
		if !s.Window.History.Go(delta) {
			return &HistoryRangeError{Delta: delta}
		}
		href = s.Window.Location.Href()
		return nil
	})
	return href, err
}

// ChartDispatch delivers a chart event to the handlers registered with
// ECharts.on and returns how many ran.
func (s *Session) ChartDispatch(ctx context.Context, chartID, event string, params map[string]any) (int, error) {
	if s.Charts == nil {
		return 0, &ChartNotFoundError{ID: chartID}
	}
	var n int
	err := s.Do(ctx, func() error {
		chart, ok := s.Charts.Find(chartID)
		if !ok {
			return &ChartNotFoundError{ID: chartID}
		}
		var err error
		n, err = chart.Dispatch(event, params)
		return err
	})
	return n, err
}

// Close stops the loop and releases the bridge and the module instance.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.cancel()
		select {
		case <-s.done:
		case <-ctx.Done():
			s.closeErr = ctx.Err()
			return
		}

		s.exceptions = s.Bridge.Stats().Exceptions
		s.Bridge.Close()
		s.closeErr = s.instance.Close(ctx)
		s.logger.Info("Session closed", zap.Int("exceptions", s.exceptions))
	})
	return s.closeErr
}
