package smile

import "math"

// Evaluator converts expression samples into contextual smile quality.
// It is pure and safe for concurrent use.
type Evaluator struct {
	w Weights
}

// NewEvaluator creates an evaluator with the given weights.
func NewEvaluator(w Weights) *Evaluator {
	return &Evaluator{w: w}
}

// Weights returns the evaluator's tuning.
func (e *Evaluator) Weights() Weights {
	return e.w
}

// Evaluate scores a sample for a context. Unknown contexts are scored as
// ContextPractice.
func (e *Evaluator) Evaluate(sample Sample, ctx Context) Quality {
	s := sample.Normalized()
	if !ctx.Valid() {
		ctx = ContextPractice
	}

	comfort := e.comfort(s)
	naturalness := e.naturalness(s)

	var a, b, c float64
	switch ctx {
	case ContextSocial:
		a, b, c = e.social(s, comfort, naturalness)
	case ContextJoy:
		a, b, c = e.joy(s)
	default:
		a, b, c = e.practice(s, comfort, naturalness)
	}

	labels := LabelsFor(ctx)
	return Quality{
		OverallScore:  (a + b + c) / 3,
		Naturalness:   naturalness,
		Comfort:       comfort,
		EyeEngagement: clamp(0.6*s.Surprised+0.4*s.Happy, 0, 1),
		Wellness:      (s.Happy + (1 - s.Sad) + (1 - s.Fearful) + (1 - s.Angry)) / 4,
		IndividualScores: map[string]int{
			labels.Primary:   Percent(a),
			labels.Secondary: Percent(b),
			labels.Tertiary:  Percent(c),
		},
		Context: ctx,
	}
}

func (e *Evaluator) comfort(s Sample) float64 {
	w := e.w.Comfort
	return clamp(1-(w.Fearful*s.Fearful+w.Angry*s.Angry+w.Sad*s.Sad), w.Min, 1)
}

func (e *Evaluator) naturalness(s Sample) float64 {
	w := e.w.Naturalness
	return clamp(w.Happy*s.Happy+w.Neutral*s.Neutral+w.Calm*(1-s.Angry), w.Min, 1)
}

// metric bounds a contextual sub-metric.
func (e *Evaluator) metric(v float64) float64 {
	return clamp(v, e.w.MetricFloor, e.w.MetricCeiling)
}

// practice returns confidence, stability and naturalness.
func (e *Evaluator) practice(s Sample, comfort, naturalness float64) (float64, float64, float64) {
	w := e.w.Practice
	confidence := w.Happy*s.Happy + w.Neutral*s.Neutral + w.Fearless*(1-s.Fearful) + e.w.BaseOffset
	return e.metric(confidence), e.metric(comfort), e.metric(naturalness)
}

// social returns affinity, trust and ease.
func (e *Evaluator) social(s Sample, comfort, naturalness float64) (float64, float64, float64) {
	w := e.w.Social
	affinity := w.AffinityHappy*s.Happy + w.AffinityNeutral*s.Neutral +
		w.AffinitySurprised*s.Surprised - w.AffinityFearful*s.Fearful + e.w.BaseOffset
	trust := w.TrustComfort*comfort + w.TrustFearless*(1-s.Fearful) +
		w.TrustCalm*(1-s.Angry) + e.w.BaseOffset
	ease := w.EaseNaturalness*naturalness + w.EaseFearless*(1-s.Fearful) +
		w.EaseNeutral*s.Neutral + e.w.BaseOffset
	return e.metric(affinity), e.metric(trust), e.metric(ease)
}

// joy returns authenticity, brightness and emotional expression.
func (e *Evaluator) joy(s Sample) (float64, float64, float64) {
	authenticity, brightness, expression := e.JoyComponents(s)
	return e.metric(authenticity), e.metric(brightness), e.metric(expression)
}

// JoyComponents returns the unbounded joy sub-metrics (authenticity,
// brightness, emotional expression) before the metric floor is applied.
func (e *Evaluator) JoyComponents(sample Sample) (float64, float64, float64) {
	s := sample.Normalized()
	w := e.w.Joy
	eyeWrinkles := 0.5*s.Surprised + 0.5*s.Happy

	var authenticity float64
	if s.Happy > w.GateHappy && eyeWrinkles > w.GateEyeWrinkles {
		authenticity = 0.7*s.Happy + 0.3*eyeWrinkles - 0.5*s.Sad - 0.3*s.Fearful
	} else {
		authenticity = (0.5*s.Happy + 0.2*eyeWrinkles) * w.UngatedPenalty
	}

	brightness := (1-math.Abs(s.Happy-w.BrightnessPeak)*2)*0.6 + (1-s.Neutral)*0.2 + (1-s.Sad)*0.2

	var expression float64
	if s.Happy > w.ExpressionHappy {
		expression = (0.5*s.Happy + 0.4*eyeWrinkles + 0.1*(1-s.Neutral)) * 0.8
	} else {
		expression = (0.3*s.Happy + 0.2*eyeWrinkles) * 0.5
	}

	return authenticity, brightness, expression
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
