// Package server exposes running sessions over a small JSON API: start and
// stop sessions, snapshot their document and charts, and drive them with
// synthesized events and history navigation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/woxQAQ/wbg-host/internal/app"
	"github.com/woxQAQ/wbg-host/internal/config"
	"github.com/woxQAQ/wbg-host/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP inspection API.
type Server struct {
	cfg     *config.Config
	manager *app.Manager
	metrics *metrics.Metrics
	logger  *zap.Logger
	router  *mux.Router
}

// New builds the router. m may be nil.
func New(cfg *config.Config, manager *app.Manager, m *metrics.Metrics, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		manager: manager,
		metrics: m,
		logger:  logger.With(zap.String("component", "server")),
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.observe)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/apps", s.handleApps).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.handleStartSession).Methods(http.MethodPost)

	sr := r.PathPrefix("/sessions/{id}").Subrouter()
	sr.HandleFunc("", s.handleSnapshot).Methods(http.MethodGet)
	sr.HandleFunc("", s.handleStopSession).Methods(http.MethodDelete)
	sr.HandleFunc("/html", s.handleHTML).Methods(http.MethodGet)
	sr.HandleFunc("/charts", s.handleCharts).Methods(http.MethodGet)
	sr.HandleFunc("/charts/{chart}/events", s.handleChartEvent).Methods(http.MethodPost)
	sr.HandleFunc("/console", s.handleConsole).Methods(http.MethodGet)
	sr.HandleFunc("/events", s.handleDispatch).Methods(http.MethodPost)
	sr.HandleFunc("/navigate", s.handleNavigate).Methods(http.MethodPost)

	if s.cfg.MetricsEnabled && s.cfg.MetricsPort == 0 {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

// Handler returns the API handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve runs the API listener and, when metrics are enabled on their own
// port, the metrics listener until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	var servers []*http.Server
	if s.cfg.HTTP.Enabled {
		servers = append(servers, &http.Server{Addr: s.cfg.HTTP.Addr, Handler: s.router})
	}
	if s.cfg.MetricsEnabled && s.cfg.MetricsPort > 0 {
		mr := mux.NewRouter()
		mr.Handle("/metrics", s.metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:    net.JoinHostPort("", strconv.Itoa(s.cfg.MetricsPort)),
			Handler: mr,
		})
	}

	for _, srv := range servers {
		g.Go(func() error {
			s.logger.Info("Listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var err error
		for _, srv := range servers {
			err = multierr.Append(err, srv.Shutdown(shutdownCtx))
		}
		return err
	})

	return g.Wait()
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// observe logs and counts every request under its route template.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		begin := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.HTTPRequest(route, rec.code)
		s.logger.Debug("Request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("code", rec.code),
			zap.Duration("duration", time.Since(begin)),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func statusOf(err error) int {
	var (
		appNotFound     *app.NotFoundError
		sessionNotFound *app.SessionNotFoundError
		elementNotFound *app.ElementNotFoundError
		chartNotFound   *app.ChartNotFoundError
		historyRange    *app.HistoryRangeError
		startErr        *app.SessionStartError
	)
	switch {
	case errors.As(err, &appNotFound), errors.As(err, &sessionNotFound),
		errors.As(err, &elementNotFound), errors.As(err, &chartNotFound):
		return http.StatusNotFound
	case errors.As(err, &historyRange):
		return http.StatusConflict
	case errors.As(err, &startErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}
	s.writeJSON(w, code, errorBody(err))
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusBadRequest, errorBody(err))
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
	sess, err := s.manager.Session(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return sess, true
}
