package internalhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/pkositsyn/bdayd/internal/app"
	"github.com/pkositsyn/bdayd/internal/birthday"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Host string
	Port int
}

type Server struct {
	srv  *http.Server
	app  *app.App
	addr string
}

func NewServer(config Config, a *app.App) *Server {
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	s := &Server{app: a, addr: addr}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /groups", s.setupGroup)
	mux.HandleFunc("GET /groups/{group}", s.groupSettings)
	mux.HandleFunc("PUT /groups/{group}/timezone", s.setTimezone)
	mux.HandleFunc("PUT /groups/{group}/target", s.setAnnounceTarget)
	mux.HandleFunc("POST /groups/{group}/birthdays", s.addOrUpdate)
	mux.HandleFunc("GET /groups/{group}/birthdays", s.listUpcoming)
	mux.HandleFunc("GET /groups/{group}/birthdays/{subject}", s.get)
	mux.HandleFunc("DELETE /groups/{group}/birthdays/{subject}", s.remove)
	mux.HandleFunc("GET /groups/{group}/today", s.dueToday)

	s.srv = &http.Server{Addr: addr, Handler: loggingMiddleware(mux)}
	return s
}

func (s *Server) Start(_ context.Context) error {
	log.Printf("starting http server on %s", s.addr)
	err := s.srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type addRequest struct {
	SubjectID    string `json:"subjectId"`
	Month        int    `json:"month"`
	Day          int    `json:"day"`
	Hour         *int   `json:"hour,omitempty"`
	Minute       *int   `json:"minute,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	NotifyTarget string `json:"notifyTarget,omitempty"`
}

type addResponse struct {
	NextOccurrence time.Time `json:"nextOccurrence"`
}

func (s *Server) addOrUpdate(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var tod *birthday.TimeOfDay
	if req.Hour != nil {
		minute := 0
		if req.Minute != nil {
			minute = *req.Minute
		}
		tod = &birthday.TimeOfDay{Hour: *req.Hour, Minute: minute}
	}
	notifyTarget := req.NotifyTarget
	if notifyTarget == "" {
		notifyTarget = req.SubjectID
	}
	next, err := s.app.AddOrUpdate(
		r.Context(), r.PathValue("group"), req.SubjectID,
		req.Month, req.Day, tod, req.Timezone, notifyTarget,
	)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addResponse{NextOccurrence: next})
}

type listResponse struct {
	Events    []birthday.Event `json:"events"`
	Remaining int              `json:"remaining"`
}

func (s *Server) listUpcoming(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("bad limit %q", v))
			return
		}
		limit = parsed
	}
	events, remaining, err := s.app.ListUpcoming(r.Context(), r.PathValue("group"), limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if events == nil {
		events = []birthday.Event{}
	}
	writeJSON(w, http.StatusOK, listResponse{Events: events, Remaining: remaining})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	event, err := s.app.Get(r.Context(), r.PathValue("group"), r.PathValue("subject"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no birthday for %q", r.PathValue("subject")))
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	removed, err := s.app.Remove(r.Context(), r.PathValue("group"), r.PathValue("subject"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) dueToday(w http.ResponseWriter, r *http.Request) {
	events, err := s.app.DueToday(r.Context(), r.PathValue("group"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if events == nil {
		events = []birthday.Event{}
	}
	writeJSON(w, http.StatusOK, listResponse{Events: events})
}

func (s *Server) setupGroup(w http.ResponseWriter, r *http.Request) {
	var cfg birthday.GroupConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if cfg.GroupID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("groupId is required"))
		return
	}
	if err := s.app.SetupGroup(r.Context(), cfg); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (s *Server) groupSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.app.GroupSettings(r.Context(), r.PathValue("group"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if cfg == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("group %q is not set up", r.PathValue("group")))
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) setTimezone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.app.SetTimezone(r.Context(), r.PathValue("group"), req.Timezone); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setAnnounceTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.app.SetAnnounceTarget(r.Context(), r.PathValue("group"), req.Target); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, birthday.ErrInvalidDate),
		errors.Is(err, birthday.ErrInvalidTimeOfDay),
		errors.Is(err, birthday.ErrInvalidTimezone),
		errors.Is(err, birthday.ErrNoTimezone),
		errors.Is(err, birthday.ErrInvalidLocalTime):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, birthday.ErrGroupExists):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, birthday.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		log.Errorf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}
