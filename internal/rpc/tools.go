package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blackwell-systems/smilecoach/internal/analyzer"
	"github.com/blackwell-systems/smilecoach/internal/coach"
	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

// defaultRecentN is the session count get_recent_sessions returns without n.
const defaultRecentN = 5

var errNoHistory = errors.New("no history store configured")

// EvaluateResult is the evaluate_sample result.
type EvaluateResult struct {
	Quality  smile.Quality   `json:"quality"`
	Snippets []smile.Snippet `json:"snippets"`
}

// AnalysisResult is the get_history_analysis result.
type AnalysisResult struct {
	Analysis analyzer.HistoryAnalysis `json:"analysis"`
	Today    history.TodayAggregate   `json:"today"`
}

// AdviceResult is the get_advice result.
type AdviceResult struct {
	Advice      coach.Advice  `json:"advice"`
	TipOfTheDay coach.Message `json:"tip_of_the_day"`
}

// RecentSessionsResult is the get_recent_sessions result.
type RecentSessionsResult struct {
	Sessions []RecentSession `json:"sessions"`
}

// RecentSession summarizes one record without its evidence image.
type RecentSession struct {
	ID              string         `json:"id"`
	CreatedAt       string         `json:"created_at"`
	Context         smile.Context  `json:"context"`
	MaxScore        int            `json:"max_score"`
	MoodBefore      history.Mood   `json:"mood_before,omitempty"`
	MoodAfter       history.Mood   `json:"mood_after,omitempty"`
	DurationSeconds int            `json:"duration_seconds"`
	MetricsAtMax    map[string]int `json:"metrics_at_max,omitempty"`
}

var (
	noArgsSchema   = json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`)
	recentNSchema  = json.RawMessage(`{"type":"object","properties":{"n":{"type":"integer","description":"Number of sessions to return (default 5)"}},"additionalProperties":false}`)
	evaluateSchema = json.RawMessage(`{"type":"object","properties":{"context":{"type":"string","enum":["practice","social","joy"]},"sample":{"type":"object","description":"Expression probabilities: happy, sad, angry, fearful, surprised, neutral, optional landmarks"}},"required":["context","sample"],"additionalProperties":false}`)
)

func addTools(s *Server) {
	s.registerTool(toolDef{
		Name:        "evaluate_sample",
		Description: "Score one expression sample against a practice context and pick coaching snippets.",
		InputSchema: evaluateSchema,
		Handler:     s.handleEvaluateSample,
	})
	s.registerTool(toolDef{
		Name:        "get_history_analysis",
		Description: "Rolling averages, streaks, growth, weakest metric and today's totals.",
		InputSchema: noArgsSchema,
		Handler:     s.handleGetHistoryAnalysis,
	})
	s.registerTool(toolDef{
		Name:        "get_advice",
		Description: "Personalized coaching advice as message keys and params, plus the tip of the day.",
		InputSchema: noArgsSchema,
		Handler:     s.handleGetAdvice,
	})
	s.registerTool(toolDef{
		Name:        "get_weekly_report",
		Description: "Weekly summary, achievements, improvements and next week's goals.",
		InputSchema: noArgsSchema,
		Handler:     s.handleGetWeeklyReport,
	})
	s.registerTool(toolDef{
		Name:        "get_recent_sessions",
		Description: "Last N practice sessions, newest first.",
		InputSchema: recentNSchema,
		Handler:     s.handleGetRecentSessions,
	})
}

func (s *Server) handleEvaluateSample(_ context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Context string        `json:"context"`
		Sample  *smile.Sample `json:"sample"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	c, err := smile.ParseContext(params.Context)
	if err != nil {
		return nil, err
	}
	if params.Sample == nil {
		return nil, errors.New("sample is required")
	}
	q := s.deps.Evaluator.Evaluate(*params.Sample, c)
	return EvaluateResult{Quality: q, Snippets: smile.Snippets(params.Sample.Normalized(), q)}, nil
}

func (s *Server) records(ctx context.Context) ([]history.Record, error) {
	if s.deps.History == nil {
		return nil, errNoHistory
	}
	return s.deps.History.List(ctx, s.deps.Identity)
}

func (s *Server) handleGetHistoryAnalysis(ctx context.Context, _ json.RawMessage) (any, error) {
	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	now := s.deps.Now()
	return AnalysisResult{Analysis: analyzer.Analyze(records, now), Today: analyzer.Today(records, now)}, nil
}

func (s *Server) handleGetAdvice(ctx context.Context, _ json.RawMessage) (any, error) {
	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	now := s.deps.Now()
	return AdviceResult{
		Advice:      s.deps.Coach.Advise(analyzer.Analyze(records, now), analyzer.Today(records, now)),
		TipOfTheDay: coach.TipOfTheDay(now),
	}, nil
}

func (s *Server) handleGetWeeklyReport(ctx context.Context, _ json.RawMessage) (any, error) {
	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	return s.deps.Coach.WeeklyReport(analyzer.Analyze(records, s.deps.Now())), nil
}

func (s *Server) handleGetRecentSessions(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		N *int `json:"n"`
	}
	if len(args) > 0 {
		_ = json.Unmarshal(args, &params)
	}
	n := defaultRecentN
	if params.N != nil && *params.N > 0 {
		n = *params.N
	}

	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	if n > len(records) {
		n = len(records)
	}

	out := make([]RecentSession, 0, n)
	for _, r := range records[:n] {
		out = append(out, RecentSession{
			ID:              r.ID,
			CreatedAt:       r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Context:         r.Context,
			MaxScore:        r.MaxScore,
			MoodBefore:      r.MoodBefore,
			MoodAfter:       r.MoodAfter,
			DurationSeconds: r.DurationSeconds,
			MetricsAtMax:    r.MetricsAtMax,
		})
	}
	return RecentSessionsResult{Sessions: out}, nil
}
