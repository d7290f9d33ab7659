// Package server exposes practice, history and coaching over HTTP and a
// WebSocket practice channel.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/blackwell-systems/smilecoach/internal/auth"
	"github.com/blackwell-systems/smilecoach/internal/coach"
	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/inference"
	"github.com/blackwell-systems/smilecoach/internal/localstore"
	"github.com/blackwell-systems/smilecoach/internal/practice"
	"github.com/blackwell-systems/smilecoach/internal/smile"
	"github.com/blackwell-systems/smilecoach/internal/store"
)

// Deps holds everything the server needs. Detector is optional; without it
// WebSocket clients must send expression samples rather than raw frames.
type Deps struct {
	Auth      *auth.Service
	History   *history.Service
	Local     *localstore.Store
	Evaluator *smile.Evaluator
	Coach     *coach.Engine
	Detector  inference.Detector

	Practice       practice.Config
	GuestLimit     int
	AllowedOrigins []string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Server routes requests to handlers.
type Server struct {
	deps   Deps
	router *mux.Router
}

// New creates a server and registers every route.
func New(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Evaluator == nil {
		d.Evaluator = smile.NewEvaluator(smile.DefaultWeights())
	}
	if d.Coach == nil {
		d.Coach = coach.NewDefaultEngine()
	}
	if d.GuestLimit <= 0 {
		d.GuestLimit = localstore.DefaultGuestLimit
	}
	s := &Server{deps: d, router: mux.NewRouter()}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.cors)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes.
	v1.HandleFunc("/auth/signup", s.handleSignup).Methods("POST", "OPTIONS")
	v1.HandleFunc("/auth/login", s.handleLogin).Methods("POST", "OPTIONS")
	v1.HandleFunc("/evaluate", s.handleEvaluate).Methods("POST", "OPTIONS")

	// The WebSocket handshake cannot carry custom headers from a browser,
	// so the socket resolves its identity from query parameters itself.
	v1.HandleFunc("/ws/practice", s.handlePracticeWS).Methods("GET")

	// Routes scoped to a signed-in user or a guest device.
	scoped := v1.NewRoute().Subrouter()
	scoped.Use(s.requireIdentity)

	scoped.HandleFunc("/sessions", s.handleListSessions).Methods("GET", "OPTIONS")
	scoped.HandleFunc("/sessions", s.handleClearSessions).Methods("DELETE", "OPTIONS")
	scoped.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE", "OPTIONS")
	scoped.HandleFunc("/sessions/{id}/mood", s.handleSessionMood).Methods("PUT", "OPTIONS")
	scoped.HandleFunc("/analysis", s.handleAnalysis).Methods("GET", "OPTIONS")
	scoped.HandleFunc("/advice", s.handleAdvice).Methods("GET", "OPTIONS")
	scoped.HandleFunc("/report/weekly", s.handleWeeklyReport).Methods("GET", "OPTIONS")
	scoped.HandleFunc("/calendar", s.handleCalendar).Methods("GET", "OPTIONS")
	scoped.HandleFunc("/guest/accept", s.handleGuestAccept).Methods("POST", "OPTIONS")
	scoped.HandleFunc("/guest/quota", s.handleGuestQuota).Methods("GET", "OPTIONS")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.deps.Detector != nil {
		if err := s.deps.Detector.Ready(r.Context()); err != nil {
			status["model"] = "unavailable"
		} else {
			status["model"] = "ready"
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) cors(next http.Handler) http.Handler {
	allowed := "*"
	if len(s.deps.AllowedOrigins) > 0 {
		allowed = strings.Join(s.deps.AllowedOrigins, ", ")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowed)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+DeviceHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, history.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, history.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidSignup):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, history.ErrRemoteSaveFailed):
		return http.StatusAccepted
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
