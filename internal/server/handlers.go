package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/woxQAQ/wbg-host/internal/app"
	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/jsval"
	"github.com/woxQAQ/wbg-host/pkg/protocol"
)

func errorBody(err error) protocol.Error {
	return protocol.Error{Error: err.Error()}
}

func appInfo(a *app.App) protocol.AppInfo {
	info := protocol.AppInfo{
		Name:         a.Name(),
		Version:      a.Version(),
		Description:  a.Manifest.Description,
		Capabilities: a.Capabilities(),
		LoadedAt:     a.LoadedAt,
	}
	if a.Compiled != nil {
		info.Imports = len(a.Compiled.Imports)
		info.SizeBytes = a.Compiled.SizeBytes
	}
	return info
}

func sessionInfo(sess *app.Session) protocol.SessionInfo {
	return protocol.SessionInfo{ID: sess.ID, App: sess.App.Name(), CreatedAt: sess.CreatedAt}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleApps(w http.ResponseWriter, r *http.Request) {
	apps := s.manager.Apps(r.URL.Query().Get("capability"))
	out := make([]protocol.AppInfo, 0, len(apps))
	for _, a := range apps {
		out = append(out, appInfo(a))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := s.manager.Sessions()
	out := make([]protocol.SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionInfo(sess))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req protocol.StartSessionRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if req.App == "" {
		s.badRequest(w, errors.New("app is required"))
		return
	}

	sess, err := s.manager.StartSession(r.Context(), req.App)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sessionInfo(sess))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st, err := sess.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, protocol.Snapshot{
		SessionInfo: sessionInfo(sess),
		Location:    st.Location,
		Stats: protocol.Stats{
			HeapSlots:     st.Bridge.HeapSlots,
			LiveHandles:   st.Bridge.LiveHandles,
			FreeHead:      st.Bridge.FreeHead,
			LiveClosures:  st.Bridge.LiveClosures,
			Exceptions:    st.Bridge.Exceptions,
			LastException: st.Bridge.LastException,
			HistoryLength: st.HistoryLength,
			Charts:        st.Charts,
			PendingTasks:  st.PendingTasks,
			ConsoleLines:  st.ConsoleLines,
		},
	})
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.StopSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	html, err := sess.OuterHTML(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	out := []protocol.ChartSnapshot{}
	if sess.Charts != nil {
		err := sess.Do(r.Context(), func() error {
			for _, c := range sess.Charts.List() {
				snap := protocol.ChartSnapshot{
					ID:      c.ID,
					Updates: c.Updates(),
					Events:  c.Events(),
					Option:  c.Option(),
				}
				if c.Element != nil {
					snap.Element = c.Element.ID()
				}
				out = append(out, snap)
			}
			return nil
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChartEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req protocol.ChartEventRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if req.Event == "" {
		s.badRequest(w, errors.New("event is required"))
		return
	}
	n, err := sess.ChartDispatch(r.Context(), mux.Vars(r)["chart"], req.Event, req.Params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, protocol.ChartEventResult{Handled: n})
}

func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	entries := sess.Console.Entries()
	out := make([]protocol.ConsoleEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, protocol.ConsoleEntry{Level: e.Level, Message: e.Message, Time: e.Time})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req protocol.DispatchRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if req.Target == "" || req.Type == "" {
		s.badRequest(w, errors.New("target and type are required"))
		return
	}

	init := dom.EventInit{
		Bubbles:    req.Bubbles,
		Cancelable: req.Cancelable,
		Button:     float64(req.Button),
		CtrlKey:    req.CtrlKey,
		ShiftKey:   req.ShiftKey,
		AltKey:     req.AltKey,
		MetaKey:    req.MetaKey,
		Key:        req.Key,
	}
	if req.Detail != nil {
		init.Detail = jsval.FromGo(req.Detail)
	}

	notCanceled, err := sess.DispatchEvent(r.Context(), req.Target, req.Type, init)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, protocol.DispatchResult{NotCanceled: notCanceled})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req protocol.NavigateRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	href, err := sess.Navigate(r.Context(), req.Delta)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, protocol.NavigateResult{Location: href})
}
