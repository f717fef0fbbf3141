// Package web serves the showtimes view-model as a small JSON API. Each
// browser gets its own dismissal set through a session cookie.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"cartelera-cli/model"
	"cartelera-cli/showtimes"
	"cartelera-cli/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const SessionCookie = "cartelera_session"

type sessionKey struct{}

type Server struct {
	snapshot showtimes.Snapshot
	sessions store.Sessions
	now      func() time.Time
}

// NewServer serves movies to every session. The movie list is never
// modified after this call.
func NewServer(movies []model.Movie, sessions store.Sessions, now func() time.Time) *Server {
	if sessions == nil {
		sessions = store.NewMemorySessions()
	}
	if now == nil {
		now = time.Now
	}
	return &Server{
		snapshot: showtimes.NewSnapshot(movies),
		sessions: sessions,
		now:      now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.withSession)
		r.Get("/days", s.DaysHandler)
		r.Get("/days/{date}", s.DayHandler)
		r.Post("/dismiss", s.DismissHandler)
		r.Delete("/dismissed", s.ClearHandler)
	})

	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[web] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Printf("[web] shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) DaysHandler(w http.ResponseWriter, r *http.Request) {
	state := s.stateFor(r)
	writeJSON(w, http.StatusOK, daysResponse{Days: state.Tabs(), Active: state.ActiveDay()})
}

func (s *Server) DayHandler(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	state := s.stateFor(r).Update(showtimes.SelectDay{Date: date})

	query := r.URL.Query()
	if q := strings.TrimSpace(query.Get("q")); q != "" {
		state = state.Update(showtimes.SetQuery{Date: date, Query: q})
	}
	if query.Has("start") || query.Has("end") {
		window := state.Range(date)
		if raw := query.Get("start"); raw != "" {
			minutes, ok := showtimes.ParseTime(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "start must be HH:MM")
				return
			}
			window.Start = minutes
		}
		if raw := query.Get("end"); raw != "" {
			minutes, ok := showtimes.ParseTime(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "end must be HH:MM")
				return
			}
			window.End = minutes
		}
		state = state.Update(showtimes.SetRange{Date: date, Range: window})
	}

	section, ok := state.Section(date)
	if !ok {
		writeError(w, http.StatusNotFound, "no showtimes on "+date)
		return
	}
	writeJSON(w, http.StatusOK, section)
}

type dismissRequest struct {
	ID   string `json:"id"`
	Date string `json:"date,omitempty"`
}

type daysResponse struct {
	Days   []showtimes.DayTab `json:"days"`
	Active string             `json:"active,omitempty"`
}

// DismissHandler hides one showing for the session and answers with the
// resulting view. When date is given it stays selected if it still has movies.
func (s *Server) DismissHandler(w http.ResponseWriter, r *http.Request) {
	var req dismissRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	dismissals := s.dismissalsFor(r)
	dismissals.Dismiss(req.ID)

	state := showtimes.NewState(s.snapshot, dismissals.Load(), s.now())
	if req.Date != "" {
		state = state.Update(showtimes.SelectDay{Date: req.Date})
	}
	writeJSON(w, http.StatusOK, state.View())
}

func (s *Server) ClearHandler(w http.ResponseWriter, r *http.Request) {
	s.dismissalsFor(r).Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			if parsed, err := uuid.Parse(cookie.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = store.NewSessionID()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func (s *Server) dismissalsFor(r *http.Request) *store.DismissalStore {
	id, _ := r.Context().Value(sessionKey{}).(string)
	kv, err := s.sessions.Open(id)
	if err != nil {
		log.Printf("[web] open session %s: %v", id, err)
		return store.NewDismissalStore(nil)
	}
	return store.NewDismissalStore(kv)
}

func (s *Server) stateFor(r *http.Request) showtimes.State {
	return showtimes.NewState(s.snapshot, s.dismissalsFor(r).Load(), s.now())
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		log.Printf("[web] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
