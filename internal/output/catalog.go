package output

import (
	"sort"
	"strings"
)

// catalog holds the English text for every coaching message key. Parameters
// are written as {name}.
var catalog = map[string]string{
	// Live snippets.
	"coach.activate_cheeks":          "Lift your cheeks. A real smile starts there.",
	"coach.engage_eyes":              "Let your eyes smile too for genuine warmth.",
	"coach.relax_forehead":           "Relax your forehead and let the tension go.",
	"coach.practice.lift_confidence": "Smile a little wider and own it.",
	"coach.social.warm_up":           "Warm up your expression as if greeting a friend.",
	"coach.praise.perfect":           "Perfect. Hold that smile.",
	"coach.praise.good":              "Good smile. Keep it natural.",
	"coach.praise.practicing":        "You're getting there. Keep practicing.",
	"coach.praise.try":               "Give it a try. Think of something that makes you happy.",

	// Advice main messages.
	"advice.motivation.streak":         "{days} days in a row. Keep the streak alive today!",
	"advice.motivation.consistent":     "You've built a real habit. Let's add today's session.",
	"advice.motivation.welcome_back":   "Welcome back! A short session gets you going again.",
	"advice.motivation.first_practice": "Start your first smile practice today.",
	"advice.achievement.excellent":     "Excellent work: today's average is {score}.",
	"advice.progress.fast_growth":      "You're improving fast. Today's average is {score}.",
	"advice.progress.steady":           "Steady progress. Today's average is {score}.",
	"advice.improvement.good_start":    "Good start. Let's work on your {focus}.",

	// Technical tips.
	"tip.relax":                      "Relax your face before you begin.",
	"tip.mirror":                     "Practice in front of a mirror.",
	"tip.breathe":                    "Take a deep breath and smile on the exhale.",
	"tip.angles":                     "Try smiling at different angles.",
	"tip.emotion":                    "Let a real feeling drive the smile.",
	"tip.real_world":                 "Use your smile in a real conversation today.",
	"tip.eyes_and_mouth":             "Move your eyes and mouth together.",
	"tip.hold":                       "Hold your best smile for {seconds} seconds.",
	"tip.variety":                    "Vary the intensity from subtle to broad.",
	"tip.observe":                    "Notice how your face feels at your best score.",
	"tip.start_small":                "Start with a small smile and build up.",
	"tip.metric.confidence":          "Open the smile fully to project confidence.",
	"tip.metric.stability":           "Keep the smile steady instead of flickering.",
	"tip.metric.naturalness":         "Relax the jaw so the smile looks natural.",
	"tip.metric.affinity":            "Soften your eyes to look approachable.",
	"tip.metric.trust":               "Keep a calm, even expression.",
	"tip.metric.ease":                "Let your shoulders drop and ease into it.",
	"tip.metric.authenticity":        "Think of a happy memory while smiling.",
	"tip.metric.brightness":          "Let the smile reach your cheeks and eyes.",
	"tip.metric.emotionalExpression": "Let the joy show all over your face.",

	// Exercises.
	"exercise.beginner.lip_corner":     "Lift the corners of your lips and hold {hold}s, {reps} times.",
	"exercise.beginner.cheek_puff":     "Puff your cheeks and release, {reps} times.",
	"exercise.beginner.lip_purse":      "Purse your lips then smile wide, {reps} times.",
	"exercise.intermediate.asymmetric": "Lift one side at a time and hold {hold}s, {reps} times per side.",
	"exercise.intermediate.eye_smile":  "Smile with your eyes only and hold {hold}s, {reps} times.",
	"exercise.advanced.micro_control":  "Grow your smile in {steps} small steps.",
	"exercise.advanced.emotion_switch": "Switch between a polite and a joyful smile.",

	// Quotes.
	"quote.motivation":  "A smile is the shortest distance between two people.",
	"quote.achievement": "Your smile can change the world around you.",
	"quote.progress":    "Small steps every day add up.",
	"quote.improvement": "Every expert was once a beginner.",

	// Goals.
	"goal.today_practice":  "Practice for {minutes} minutes today.",
	"goal.streak":          "Build a {days}-day streak.",
	"goal.daily":           "Practice every day this week.",
	"goal.next_score":      "Reach a score of {score}.",
	"goal.target_score":    "Reach a score of {score}.",
	"goal.continue_streak": "Keep your {days}-day streak going.",
	"goal.daily_practice":  "Practice a little every day.",
	"goal.new_context":     "Try a context you haven't practiced yet.",
	"goal.increase_score":  "Raise your average by {points} points.",

	// Recommended times.
	"time.preferred":   "Your best time is the {time}.",
	"time.general":     "Any quiet moment works.",
	"time.short":       "A short session any time of day.",
	"time.morning":     "Morning, to start the day with a smile.",
	"time.evening":     "Evening, to unwind.",
	"time.stress_free": "A calm moment without pressure.",

	// Weekly report.
	"report.no_practice":               "No practice this week yet.",
	"report.summary":                   "{count} sessions this week with an average of {score}.",
	"report.achievement.streak":        "{days}-day practice streak.",
	"report.achievement.growth":        "Scores up {rate}% on last week.",
	"report.improvement.practice_more": "{count} of {target} sessions this week. Practice more often.",

	// Tip of the day.
	"tip.daily.1": "Smiling at yourself in the mirror first thing sets the tone for the day.",
	"tip.daily.2": "A genuine smile involves the muscles around your eyes.",
	"tip.daily.3": "Smiling even when you don't feel like it can lift your mood.",
	"tip.daily.4": "Relaxed shoulders make for a more natural smile.",
	"tip.daily.5": "Smiles are contagious. Share one today.",
}

// metricNames maps metric ids to display names.
var metricNames = map[string]string{
	"confidence":          "Confidence",
	"stability":           "Stability",
	"naturalness":         "Naturalness",
	"affinity":            "Affinity",
	"trust":               "Trust",
	"ease":                "Ease",
	"authenticity":        "Authenticity",
	"brightness":          "Brightness",
	"emotionalExpression": "Emotional expression",
}

// Text renders a message key with its parameters. Unknown keys render as
// the key itself. Metric-valued parameters use display names.
func Text(key string, params map[string]string) string {
	tmpl, ok := catalog[key]
	if !ok {
		return key
	}
	if len(params) == 0 {
		return tmpl
	}
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	pairs := make([]string, 0, 2*len(params))
	for _, k := range names {
		v := params[k]
		if k == "focus" {
			v = strings.ToLower(MetricName(v))
		}
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// MetricName returns the display name of a metric id.
func MetricName(id string) string {
	if n, ok := metricNames[id]; ok {
		return n
	}
	return id
}

// HasText reports whether key has catalog text.
func HasText(key string) bool {
	_, ok := catalog[key]
	return ok
}
