package daemon

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/runnerr0/tabtrail/internal/snapshot"
	"github.com/runnerr0/tabtrail/internal/tracker"
)

type tabCreatedRequest struct {
	TabID int `json:"tabId"`
}

type tabUpdatedRequest struct {
	TabID     int    `json:"tabId"`
	Status    string `json:"status"`
	URL       string `json:"url"`
	EntryTime int64  `json:"entryTime"`
}

type tabRemovedRequest struct {
	TabID int `json:"tabId"`
}

type snapshotRequest struct {
	TabID        int    `json:"tabId"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	RenderedHTML string `json:"renderedHtml"`
	EntryTime    int64  `json:"entryTime"`
}

type clearRequest struct {
	TabID int  `json:"tabId"`
	All   bool `json:"all"`
}

type statusResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	InstanceID string `json:"instance_id"`
	Sessions   int    `json:"sessions"`
}

// Handler builds the daemon's route table. Everything under /api/ sits
// behind bearer auth; /status stays open so health probes work without the
// token.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/tabs/created", s.handleTabCreated)
	api.HandleFunc("POST /api/tabs/updated", s.handleTabUpdated)
	api.HandleFunc("POST /api/tabs/removed", s.handleTabRemoved)
	api.HandleFunc("POST /api/snapshots", s.handleSnapshot)
	api.HandleFunc("GET /api/history", s.handleHistory)
	api.HandleFunc("POST /api/clear", s.handleClear)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("/api/", s.requireAuth(api))

	return s.logRequests(mux)
}

func (s *Server) handleTabCreated(w http.ResponseWriter, r *http.Request) {
	var req tabCreatedRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.TabID <= 0 {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "missing tabId"})
		return
	}
	s.dispatch(w, r, tracker.TabCreated{ID: req.TabID})
}

func (s *Server) handleTabUpdated(w http.ResponseWriter, r *http.Request) {
	var req tabUpdatedRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.TabID <= 0 {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "missing tabId"})
		return
	}

	// The extension reports every load state transition; only a finished
	// load with a real URL becomes a navigation.
	if req.Status != "complete" || req.URL == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if req.EntryTime == 0 {
		req.EntryTime = time.Now().UnixMilli()
	}
	s.dispatch(w, r, tracker.TabNavigationCompleted{ID: req.TabID, URL: req.URL, EntryTime: req.EntryTime})
}

func (s *Server) handleTabRemoved(w http.ResponseWriter, r *http.Request) {
	var req tabRemovedRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.TabID <= 0 {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "missing tabId"})
		return
	}
	s.dispatch(w, r, tracker.TabRemoved{ID: req.TabID})
}

// dispatch hands a lifecycle event to the tracker and acknowledges receipt.
// The extension cannot act on a tracking failure, so the response is 204
// either way; Handle has already logged anything that went wrong.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, ev tracker.Event) {
	if err := s.tracker.Handle(r.Context(), ev); err != nil {
		s.log.Error("event dispatch failed", "event", ev.Name(), "tab", ev.TabID(), "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.TabID <= 0 {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "missing tabId"})
		return
	}
	if req.URL == "" {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "missing url"})
		return
	}
	if req.EntryTime == 0 {
		req.EntryTime = time.Now().UnixMilli()
	}

	snap := snapshot.Snapshot{
		URL:          req.URL,
		Title:        req.Title,
		RenderedHTML: req.RenderedHTML,
		EntryTime:    req.EntryTime,
	}

	// Unlike lifecycle events, the user is waiting on this one: failures go
	// back in the response so the extension can show them.
	entry, err := s.tracker.OnSnapshotRequested(r.Context(), req.TabID, snap)
	if err != nil {
		s.log.Error("snapshot failed", "tab", req.TabID, "url", req.URL, "error", err)
		s.respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.respond(w, http.StatusOK, entry)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if tab := r.URL.Query().Get("tab"); tab != "" {
		tabID, err := strconv.Atoi(tab)
		if err != nil {
			s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid tab id"})
			return
		}
		entries, err := s.tracker.History(r.Context(), tabID)
		if err != nil {
			s.respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if entries == nil {
			entries = []tracker.HistoryEntry{}
		}
		s.respond(w, http.StatusOK, tracker.TabHistoryRecord{TabSessionID: tabID, TabHistory: entries})
		return
	}

	records, err := s.tracker.Histories(r.Context())
	if err != nil {
		s.respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if records == nil {
		records = []tracker.TabHistoryRecord{}
	}
	s.respond(w, http.StatusOK, records)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if !s.decode(w, r, &req) {
		return
	}

	var err error
	switch {
	case req.All:
		err = s.tracker.ClearAll(r.Context())
	case req.TabID > 0:
		err = s.tracker.Clear(r.Context(), req.TabID)
	default:
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "missing tabId or all"})
		return
	}
	if err != nil {
		s.respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:     "ok",
		Version:    s.opts.Version,
		InstanceID: s.instanceID,
	}

	sessions, err := s.tracker.Sessions(r.Context())
	if err != nil {
		s.log.Warn("status probe could not read sessions", "error", err)
		resp.Status = "degraded"
	}
	for _, info := range sessions {
		if info.Active {
			resp.Sessions++
		}
	}

	s.respond(w, http.StatusOK, resp)
}

// decode reads a JSON body capped at the configured request size. On failure
// the 400 is already written and the handler should stop.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxRequestSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("encode response", "error", err)
	}
}
