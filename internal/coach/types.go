// Package coach turns a practice history analysis into personalized advice
// and a weekly report. All output is message keys plus parameters; text
// lookup happens in the presentation layer.
package coach

import (
	"strconv"

	"github.com/blackwell-systems/smilecoach/internal/analyzer"
)

// Category names the advice branch that produced an Advice.
type Category string

const (
	CategoryMotivation  Category = "motivation"
	CategoryAchievement Category = "achievement"
	CategoryTechnical   Category = "technical"
	CategoryImprovement Category = "improvement"
)

// Tier is an exercise difficulty level.
type Tier string

const (
	TierBeginner     Tier = "beginner"
	TierIntermediate Tier = "intermediate"
	TierAdvanced     Tier = "advanced"
)

// Message is a message key plus render parameters.
type Message struct {
	Key    string            `json:"key"`
	Params map[string]string `json:"params,omitempty"`
}

// msg builds a Message from alternating key/value parameter pairs.
func msg(key string, kv ...string) Message {
	m := Message{Key: key}
	if len(kv) > 1 {
		m.Params = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m.Params[kv[i]] = kv[i+1]
		}
	}
	return m
}

func itoa(n int) string { return strconv.Itoa(n) }

// Advice is the structured coaching output for the home screen.
type Advice struct {
	Category          Category  `json:"category"`
	MainMessage       Message   `json:"main_message"`
	TechnicalTips     []Message `json:"technical_tips"`
	ExerciseTier      Tier      `json:"exercise_tier"`
	Exercises         []Message `json:"exercises"`
	MotivationalQuote Message   `json:"motivational_quote"`
	NextGoal          Message   `json:"next_goal"`
	RecommendedTime   Message   `json:"recommended_time"`
}

// Report is the weekly practice summary.
type Report struct {
	Summary       Message   `json:"summary"`
	Achievements  []Message `json:"achievements"`
	Improvements  []Message `json:"improvements"`
	NextWeekGoals []Message `json:"next_week_goals"`
}

// Goals holds the thresholds that drive goal setting and branch framing.
type Goals struct {
	TargetScore       int `mapstructure:"target_score"`
	StreakTarget      int `mapstructure:"streak_target"`
	StreakExtended    int `mapstructure:"streak_extended"`
	WeeklySessions    int `mapstructure:"weekly_sessions"`
	NextGoalStep      int `mapstructure:"next_goal_step"`
	NextGoalCap       int `mapstructure:"next_goal_cap"`
	ScoreIncrease     int `mapstructure:"score_increase"`
	ConsistentUser    int `mapstructure:"consistent_user"`
	FastGrowth        int `mapstructure:"fast_growth"`
	AchievementGrowth int `mapstructure:"achievement_growth"`
	ExcellentScore    int `mapstructure:"excellent_score"`
	DailyMinutes      int `mapstructure:"daily_minutes"`
}

// DefaultGoals returns the stock goal thresholds.
func DefaultGoals() Goals {
	return Goals{
		TargetScore:       70,
		StreakTarget:      7,
		StreakExtended:    14,
		WeeklySessions:    5,
		NextGoalStep:      10,
		NextGoalCap:       95,
		ScoreIncrease:     5,
		ConsistentUser:    20,
		FastGrowth:        5,
		AchievementGrowth: 10,
		ExcellentScore:    90,
		DailyMinutes:      5,
	}
}

// Exercises holds the repetition and hold counts rendered into exercise
// messages.
type Exercises struct {
	LipCornerHold  int `mapstructure:"lip_corner_hold"`
	LipCornerReps  int `mapstructure:"lip_corner_reps"`
	CheekPuffReps  int `mapstructure:"cheek_puff_reps"`
	LipPurseReps   int `mapstructure:"lip_purse_reps"`
	AsymmetricHold int `mapstructure:"asymmetric_hold"`
	AsymmetricReps int `mapstructure:"asymmetric_reps"`
	EyeSmileHold   int `mapstructure:"eye_smile_hold"`
	EyeSmileReps   int `mapstructure:"eye_smile_reps"`
	MicroSteps     int `mapstructure:"micro_steps"`
}

// DefaultExercises returns the stock exercise counts.
func DefaultExercises() Exercises {
	return Exercises{
		LipCornerHold:  5,
		LipCornerReps:  10,
		CheekPuffReps:  5,
		LipPurseReps:   10,
		AsymmetricHold: 3,
		AsymmetricReps: 10,
		EyeSmileHold:   10,
		EyeSmileReps:   5,
		MicroSteps:     10,
	}
}

// ReportContext is the input every weekly report rule sees.
type ReportContext struct {
	Analysis analyzer.HistoryAnalysis
	Goals    Goals
}

// Priority orders report notes. Lower values are shown first.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
)

// NoteKind separates achievements from improvement notes.
type NoteKind string

const (
	NoteAchievement NoteKind = "achievement"
	NoteImprovement NoteKind = "improvement"
)

// Note is a single finding produced by a report rule.
type Note struct {
	Kind     NoteKind
	Priority Priority
	Message  Message
}

// Rule inspects the report context and returns zero or more notes.
type Rule func(ctx *ReportContext) []Note
