package coach

// Main message keys.
const (
	KeyStreak         = "advice.motivation.streak"
	KeyConsistentUser = "advice.motivation.consistent"
	KeyWelcomeBack    = "advice.motivation.welcome_back"
	KeyFirstPractice  = "advice.motivation.first_practice"
	KeyExcellent      = "advice.achievement.excellent"
	KeyFastGrowth     = "advice.progress.fast_growth"
	KeySteadyProgress = "advice.progress.steady"
	KeyGoodStart      = "advice.improvement.good_start"
)

// Technical tip keys.
const (
	TipRelax        = "tip.relax"
	TipMirror       = "tip.mirror"
	TipBreathe      = "tip.breathe"
	TipAngles       = "tip.angles"
	TipEmotion      = "tip.emotion"
	TipRealWorld    = "tip.real_world"
	TipEyesAndMouth = "tip.eyes_and_mouth"
	TipHold         = "tip.hold"
	TipVariety      = "tip.variety"
	TipObserve      = "tip.observe"
	TipStartSmall   = "tip.start_small"

	// TipMetricPrefix is followed by a metric name, e.g. tip.metric.stability.
	TipMetricPrefix = "tip.metric."
)

// Exercise keys.
const (
	ExerciseLipCorner     = "exercise.beginner.lip_corner"
	ExerciseCheekPuff     = "exercise.beginner.cheek_puff"
	ExerciseLipPurse      = "exercise.beginner.lip_purse"
	ExerciseAsymmetric    = "exercise.intermediate.asymmetric"
	ExerciseEyeSmile      = "exercise.intermediate.eye_smile"
	ExerciseMicroControl  = "exercise.advanced.micro_control"
	ExerciseEmotionSwitch = "exercise.advanced.emotion_switch"
)

// Quote keys.
const (
	QuoteMotivation  = "quote.motivation"
	QuoteAchievement = "quote.achievement"
	QuoteProgress    = "quote.progress"
	QuoteImprovement = "quote.improvement"
)

// Goal keys.
const (
	GoalTodayPractice  = "goal.today_practice"
	GoalStreak         = "goal.streak"
	GoalDaily          = "goal.daily"
	GoalNextScore      = "goal.next_score"
	GoalTargetScore    = "goal.target_score"
	GoalContinueStreak = "goal.continue_streak"
	GoalDailyPractice  = "goal.daily_practice"
	GoalNewContext     = "goal.new_context"
	GoalIncreaseScore  = "goal.increase_score"
)

// Recommended time keys.
const (
	TimePreferred  = "time.preferred"
	TimeGeneral    = "time.general"
	TimeShort      = "time.short"
	TimeMorning    = "time.morning"
	TimeEvening    = "time.evening"
	TimeStressFree = "time.stress_free"
)

// Weekly report keys.
const (
	ReportNoPractice        = "report.no_practice"
	ReportSummary           = "report.summary"
	ReportStreakAchievement = "report.achievement.streak"
	ReportGrowthAchievement = "report.achievement.growth"
	ReportPracticeMore      = "report.improvement.practice_more"
)

// TipOfTheDayKeys are rotated by TipOfTheDay.
var TipOfTheDayKeys = []string{
	"tip.daily.1",
	"tip.daily.2",
	"tip.daily.3",
	"tip.daily.4",
	"tip.daily.5",
}
