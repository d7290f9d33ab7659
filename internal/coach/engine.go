package coach

import (
	"github.com/blackwell-systems/smilecoach/internal/analyzer"
	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

// Engine produces advice and weekly reports from a history analysis.
type Engine struct {
	goals     Goals
	exercises Exercises
	rules     []Rule
}

// NewEngine creates an engine with the given thresholds and the default
// report rules.
func NewEngine(goals Goals, exercises Exercises) *Engine {
	return &Engine{
		goals:     goals,
		exercises: exercises,
		rules: []Rule{
			StreakAchievement,
			GrowthAchievement,
			PracticeFrequency,
		},
	}
}

// NewDefaultEngine creates an engine with the stock thresholds.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultGoals(), DefaultExercises())
}

// Advise picks an advice branch from today's sessions. It never fails: an
// empty history with no sessions today yields first-practice motivation
// with beginner exercises.
func (e *Engine) Advise(a analyzer.HistoryAnalysis, today history.TodayAggregate) Advice {
	switch {
	case today.SessionCount == 0:
		return e.motivation(a)
	case today.AvgScore >= e.goals.ExcellentScore:
		return e.achievement(a, today)
	case today.AvgScore >= e.goals.TargetScore:
		return e.progress(a, today)
	default:
		return e.improvement(a, today)
	}
}

func (e *Engine) motivation(a analyzer.HistoryAnalysis) Advice {
	var main Message
	switch {
	case a.CurrentStreak > 0:
		main = msg(KeyStreak, "days", itoa(a.CurrentStreak))
	case a.TotalSessions > e.goals.ConsistentUser:
		main = msg(KeyConsistentUser)
	case a.TotalSessions > 0 && a.Last7Count == 0:
		main = msg(KeyWelcomeBack)
	default:
		main = msg(KeyFirstPractice)
	}

	when := msg(TimeGeneral)
	if a.PreferredTime != "" {
		when = msg(TimePreferred, "time", string(a.PreferredTime))
	}

	return Advice{
		Category:          CategoryMotivation,
		MainMessage:       main,
		TechnicalTips:     []Message{msg(TipRelax), msg(TipMirror), msg(TipBreathe)},
		ExerciseTier:      TierBeginner,
		Exercises:         e.beginnerExercises()[:2],
		MotivationalQuote: msg(QuoteMotivation),
		NextGoal:          msg(GoalTodayPractice, "minutes", itoa(e.goals.DailyMinutes)),
		RecommendedTime:   when,
	}
}

func (e *Engine) achievement(a analyzer.HistoryAnalysis, today history.TodayAggregate) Advice {
	next := msg(GoalDaily)
	if a.CurrentStreak >= e.goals.StreakTarget {
		next = msg(GoalStreak, "days", itoa(e.goals.StreakExtended))
	}
	return Advice{
		Category:          CategoryAchievement,
		MainMessage:       msg(KeyExcellent, "score", itoa(today.AvgScore)),
		TechnicalTips:     []Message{msg(TipAngles), msg(TipEmotion), msg(TipRealWorld)},
		ExerciseTier:      TierAdvanced,
		Exercises:         e.advancedExercises(),
		MotivationalQuote: msg(QuoteAchievement),
		NextGoal:          next,
		RecommendedTime:   msg(TimeShort),
	}
}

func (e *Engine) progress(a analyzer.HistoryAnalysis, today history.TodayAggregate) Advice {
	main := msg(KeySteadyProgress, "score", itoa(today.AvgScore))
	if a.GrowthRate != nil && *a.GrowthRate > e.goals.FastGrowth {
		main = msg(KeyFastGrowth, "score", itoa(today.AvgScore))
	}

	target := min(today.AvgScore+e.goals.NextGoalStep, e.goals.NextGoalCap)

	when := msg(TimeEvening)
	if a.PreferredTime == analyzer.Morning {
		when = msg(TimeMorning)
	}

	return Advice{
		Category:          CategoryTechnical,
		MainMessage:       main,
		TechnicalTips:     []Message{msg(TipEyesAndMouth), msg(TipHold, "seconds", "3"), msg(TipVariety)},
		ExerciseTier:      TierIntermediate,
		Exercises:         e.intermediateExercises(),
		MotivationalQuote: msg(QuoteProgress),
		NextGoal:          msg(GoalNextScore, "score", itoa(target)),
		RecommendedTime:   when,
	}
}

func (e *Engine) improvement(a analyzer.HistoryAnalysis, today history.TodayAggregate) Advice {
	focus := a.WeakestMetric
	if focus == "" {
		focus = focusFromScore(today.AvgScore)
	}
	return Advice{
		Category:          CategoryImprovement,
		MainMessage:       msg(KeyGoodStart, "focus", focus),
		TechnicalTips:     []Message{msg(TipMetricPrefix + focus), msg(TipObserve), msg(TipStartSmall)},
		ExerciseTier:      TierBeginner,
		Exercises:         e.beginnerExercises(),
		MotivationalQuote: msg(QuoteImprovement),
		NextGoal:          msg(GoalTargetScore, "score", itoa(e.goals.TargetScore)),
		RecommendedTime:   msg(TimeStressFree),
	}
}

// focusFromScore infers a focus metric when history has no metric data.
func focusFromScore(avg int) string {
	switch {
	case avg < 50:
		return smile.MetricNaturalness
	case avg < 60:
		return smile.MetricStability
	default:
		return smile.MetricConfidence
	}
}

func (e *Engine) beginnerExercises() []Message {
	x := e.exercises
	return []Message{
		msg(ExerciseLipCorner, "hold", itoa(x.LipCornerHold), "reps", itoa(x.LipCornerReps)),
		msg(ExerciseCheekPuff, "reps", itoa(x.CheekPuffReps)),
		msg(ExerciseLipPurse, "reps", itoa(x.LipPurseReps)),
	}
}

func (e *Engine) intermediateExercises() []Message {
	x := e.exercises
	return []Message{
		msg(ExerciseAsymmetric, "hold", itoa(x.AsymmetricHold), "reps", itoa(x.AsymmetricReps)),
		msg(ExerciseEyeSmile, "hold", itoa(x.EyeSmileHold), "reps", itoa(x.EyeSmileReps)),
	}
}

func (e *Engine) advancedExercises() []Message {
	return []Message{
		msg(ExerciseMicroControl, "steps", itoa(e.exercises.MicroSteps)),
		msg(ExerciseEmotionSwitch),
	}
}

// WeeklyReport summarizes the last seven days. Achievements and improvement
// notes come from the engine's rules, highest priority first; the three
// next-week goals are always present.
func (e *Engine) WeeklyReport(a analyzer.HistoryAnalysis) Report {
	r := Report{
		Summary:      msg(ReportNoPractice),
		Achievements: []Message{},
		Improvements: []Message{},
	}
	if a.Last7Count > 0 {
		r.Summary = msg(ReportSummary, "count", itoa(a.Last7Count), "score", itoa(a.Last7Average))
	}

	ctx := &ReportContext{Analysis: a, Goals: e.goals}
	var notes []Note
	for _, rule := range e.rules {
		notes = append(notes, rule(ctx)...)
	}
	for _, n := range RankNotes(notes) {
		switch n.Kind {
		case NoteAchievement:
			r.Achievements = append(r.Achievements, n.Message)
		case NoteImprovement:
			r.Improvements = append(r.Improvements, n.Message)
		}
	}

	streakGoal := msg(GoalDailyPractice)
	if a.CurrentStreak >= e.goals.StreakTarget {
		streakGoal = msg(GoalContinueStreak, "days", itoa(a.CurrentStreak))
	}
	r.NextWeekGoals = []Message{
		streakGoal,
		msg(GoalNewContext),
		msg(GoalIncreaseScore, "points", itoa(e.goals.ScoreIncrease)),
	}
	return r
}
