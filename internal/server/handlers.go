package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/blackwell-systems/smilecoach/internal/analyzer"
	"github.com/blackwell-systems/smilecoach/internal/coach"
	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		writeError(w, http.StatusNotImplemented, "accounts are disabled")
		return
	}
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tok, err := s.deps.Auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tok)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		writeError(w, http.StatusNotImplemented, "accounts are disabled")
		return
	}
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tok, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

type evaluateRequest struct {
	Context smile.Context `json:"context"`
	Sample  smile.Sample  `json:"sample"`
}

type evaluateResponse struct {
	Quality  smile.Quality   `json:"quality"`
	Snippets []smile.Snippet `json:"snippets"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, err := smile.ParseContext(string(req.Context))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := s.deps.Evaluator.Evaluate(req.Sample, ctx)
	writeJSON(w, http.StatusOK, evaluateResponse{Quality: q, Snippets: smile.Snippets(req.Sample.Normalized(), q)})
}

// records loads the caller's history, newest first.
func (s *Server) records(r *http.Request) ([]history.Record, error) {
	return s.deps.History.List(r.Context(), identityFrom(r.Context()))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	records, err := s.records(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n < len(records) {
			records = records[:n]
		}
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": records})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.History.Delete(r.Context(), identityFrom(r.Context()), id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.History.Clear(r.Context(), identityFrom(r.Context())); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionMood(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mood string `json:"mood"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mood, err := history.ParseMoodAfter(req.Mood)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := mux.Vars(r)["id"]
	if err := s.deps.History.UpdateMoodAfter(r.Context(), identityFrom(r.Context()), id, mood); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	records, err := s.records(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	now := s.deps.Now()
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis": analyzer.Analyze(records, now),
		"today":    analyzer.Today(records, now),
	})
}

type adviceResponse struct {
	Advice      coach.Advice           `json:"advice"`
	Today       history.TodayAggregate `json:"today"`
	TipOfTheDay coach.Message          `json:"tip_of_the_day"`
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	records, err := s.records(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	now := s.deps.Now()
	today := analyzer.Today(records, now)
	writeJSON(w, http.StatusOK, adviceResponse{
		Advice:      s.deps.Coach.Advise(analyzer.Analyze(records, now), today),
		Today:       today,
		TipOfTheDay: coach.TipOfTheDay(now),
	})
}

func (s *Server) handleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	records, err := s.records(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Coach.WeeklyReport(analyzer.Analyze(records, s.deps.Now())))
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.deps.Now()
	month := now
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := time.ParseInLocation("2006-01", v, now.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		month = m
	}
	records, err := s.records(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	days := analyzer.Calendar(records, month)
	if days == nil {
		days = []analyzer.DaySummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": month.Format("2006-01"), "days": days})
}

func (s *Server) handleGuestAccept(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if !id.Guest() {
		writeError(w, http.StatusBadRequest, "guest mode needs a device id and no token")
		return
	}
	if err := s.deps.Local.AcceptGuestMode(r.Context(), id.DeviceID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type quotaResponse struct {
	Accepted  bool `json:"accepted"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
}

func (s *Server) handleGuestQuota(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if !id.Guest() {
		writeError(w, http.StatusBadRequest, "guest quota applies to guest devices only")
		return
	}
	q := s.deps.Local.Quota(id.DeviceID, s.deps.GuestLimit)
	left, err := q.Remaining(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	accepted, err := s.deps.Local.GuestAccepted(r.Context(), id.DeviceID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quotaResponse{Accepted: accepted, Limit: q.Limit(), Remaining: left})
}
