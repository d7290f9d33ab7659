package smile

import (
	"math"
	"testing"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(DefaultWeights())
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluate_BoundsHoldForAllContexts(t *testing.T) {
	e := newTestEvaluator()
	steps := []float64{0, 0.25, 0.5, 0.75, 1}

	for _, ctx := range Contexts {
		for _, h := range steps {
			for _, sd := range steps {
				for _, a := range steps {
					for _, f := range steps {
						for _, su := range steps {
							for _, n := range steps {
								s := Sample{Happy: h, Sad: sd, Angry: a, Fearful: f, Surprised: su, Neutral: n}
								q := e.Evaluate(s, ctx)
								if q.OverallScore < 0.3 || q.OverallScore > 1.0 {
									t.Fatalf("%s %+v: overall %.4f outside [0.3,1]", ctx, s, q.OverallScore)
								}
								if q.Naturalness < 0.35 || q.Naturalness > 1.0 {
									t.Fatalf("%s %+v: naturalness %.4f outside [0.35,1]", ctx, s, q.Naturalness)
								}
								if q.Comfort < 0.4 || q.Comfort > 1.0 {
									t.Fatalf("%s %+v: comfort %.4f outside [0.4,1]", ctx, s, q.Comfort)
								}
							}
						}
					}
				}
			}
		}
	}
}

func TestEvaluate_OutOfRangeInputsAreClamped(t *testing.T) {
	e := newTestEvaluator()
	q := e.Evaluate(Sample{Happy: 7, Sad: -3, Angry: math.NaN(), Fearful: 2}, ContextSocial)
	if q.OverallScore < 0.3 || q.OverallScore > 1.0 {
		t.Errorf("overall %.4f outside [0.3,1]", q.OverallScore)
	}
	if q.Wellness < 0 || q.Wellness > 1 {
		t.Errorf("wellness %.4f outside [0,1]", q.Wellness)
	}
}

func TestEvaluate_PracticeKnownValues(t *testing.T) {
	e := newTestEvaluator()
	q := e.Evaluate(Sample{Happy: 0.8, Neutral: 0.1}, ContextPractice)

	// confidence = 0.48 + 0.02 + 0.2 + 0.3 -> clamped to 1
	// comfort = 1, naturalness = 0.4 + 0.02 + 0.3 = 0.72
	if !approxEqual(q.Naturalness, 0.72) {
		t.Errorf("naturalness: got %.4f, want 0.72", q.Naturalness)
	}
	if !approxEqual(q.Comfort, 1) {
		t.Errorf("comfort: got %.4f, want 1", q.Comfort)
	}
	if !approxEqual(q.OverallScore, (1+1+0.72)/3) {
		t.Errorf("overall: got %.4f, want %.4f", q.OverallScore, (1+1+0.72)/3)
	}
	if q.Score() != 91 {
		t.Errorf("score: got %d, want 91", q.Score())
	}

	want := map[string]int{MetricConfidence: 100, MetricStability: 100, MetricNaturalness: 72}
	for k, v := range want {
		if q.IndividualScores[k] != v {
			t.Errorf("individual %s: got %d, want %d", k, q.IndividualScores[k], v)
		}
	}
	if q.Context != ContextPractice {
		t.Errorf("context: got %s", q.Context)
	}
}

func TestEvaluate_ComfortPenalizesTension(t *testing.T) {
	e := newTestEvaluator()
	q := e.Evaluate(Sample{Fearful: 1, Angry: 1, Sad: 1}, ContextPractice)
	if !approxEqual(q.Comfort, 0.4) {
		t.Errorf("comfort: got %.4f, want floor 0.4", q.Comfort)
	}
	q = e.Evaluate(Sample{Fearful: 0.5}, ContextPractice)
	if !approxEqual(q.Comfort, 0.85) {
		t.Errorf("comfort: got %.4f, want 0.85", q.Comfort)
	}
}

func TestEvaluate_SocialScoresRiseWithWarmth(t *testing.T) {
	e := newTestEvaluator()
	happy := []float64{0.2, 0.6, 0.8}
	neutral := []float64{0.5, 0.3, 0.1}
	want := []int{81, 89, 92}

	prev := 0
	for i := range happy {
		q := e.Evaluate(Sample{Happy: happy[i], Neutral: neutral[i]}, ContextSocial)
		if q.Score() != want[i] {
			t.Errorf("tick %d: score %d, want %d", i, q.Score(), want[i])
		}
		if q.Score() <= prev {
			t.Errorf("tick %d: score %d did not increase from %d", i, q.Score(), prev)
		}
		prev = q.Score()
	}
}

func TestEvaluate_JoyDuchenneGate(t *testing.T) {
	e := newTestEvaluator()
	genuine := Sample{Happy: 0.9, Surprised: 0.7, Neutral: 0.1}
	polite := Sample{Happy: 0.5, Surprised: 0.1}

	gAuth, _, _ := e.JoyComponents(genuine)
	pAuth, _, _ := e.JoyComponents(polite)
	if !(gAuth > pAuth) {
		t.Fatalf("gated authenticity %.4f should exceed ungated %.4f", gAuth, pAuth)
	}

	gq := e.Evaluate(genuine, ContextJoy)
	pq := e.Evaluate(polite, ContextJoy)
	if gq.IndividualScores[MetricAuthenticity] <= pq.IndividualScores[MetricAuthenticity] {
		t.Errorf("authenticity percent: genuine %d should exceed polite %d",
			gq.IndividualScores[MetricAuthenticity], pq.IndividualScores[MetricAuthenticity])
	}
	if gq.OverallScore <= pq.OverallScore {
		t.Errorf("overall: genuine %.4f should exceed polite %.4f", gq.OverallScore, pq.OverallScore)
	}
}

func TestJoyComponents_BrightnessPeaksNearTarget(t *testing.T) {
	e := newTestEvaluator()
	_, peak, _ := e.JoyComponents(Sample{Happy: 0.85})
	_, over, _ := e.JoyComponents(Sample{Happy: 1.0})
	_, under, _ := e.JoyComponents(Sample{Happy: 0.5})
	if peak <= over || peak <= under {
		t.Errorf("brightness should peak at 0.85: peak=%.3f over=%.3f under=%.3f", peak, over, under)
	}
}

func TestEvaluate_ConfigurableGate(t *testing.T) {
	w := DefaultWeights()
	w.Joy.GateHappy = 0.95
	e := NewEvaluator(w)

	genuine := Sample{Happy: 0.9, Surprised: 0.7}
	strict, _, _ := e.JoyComponents(genuine)
	loose, _, _ := newTestEvaluator().JoyComponents(genuine)
	if strict >= loose {
		t.Errorf("raising the gate should lower authenticity: strict=%.3f loose=%.3f", strict, loose)
	}
}

func TestEvaluate_UnknownContextFallsBackToPractice(t *testing.T) {
	e := newTestEvaluator()
	q := e.Evaluate(Sample{Happy: 0.5}, Context("bogus"))
	if q.Context != ContextPractice {
		t.Errorf("context: got %q, want practice", q.Context)
	}
	if _, ok := q.IndividualScores[MetricConfidence]; !ok {
		t.Error("expected practice metric labels")
	}
}

func TestContextFor(t *testing.T) {
	tests := []struct {
		purpose Purpose
		want    Context
	}{
		{PurposeConfidence, ContextPractice},
		{PurposeRelationship, ContextSocial},
		{PurposeHappiness, ContextJoy},
	}
	for _, tt := range tests {
		got, ok := ContextFor(tt.purpose)
		if !ok || got != tt.want {
			t.Errorf("ContextFor(%s) = %s, %v; want %s", tt.purpose, got, ok, tt.want)
		}
	}
	if _, ok := ContextFor("fame"); ok {
		t.Error("unknown purpose should not map")
	}
}

func TestParseContext(t *testing.T) {
	c, err := ParseContext(" Social ")
	if err != nil || c != ContextSocial {
		t.Errorf("ParseContext: got %q, %v", c, err)
	}
	if _, err := ParseContext("party"); err == nil {
		t.Error("expected error for unknown context")
	}
}

func TestSampleNormalized_DropsPartialLandmarks(t *testing.T) {
	s := Sample{Happy: 0.5, Landmarks: make([]Point, 10)}
	if got := s.Normalized(); got.Landmarks != nil {
		t.Errorf("expected partial landmarks dropped, got %d points", len(got.Landmarks))
	}
	s.Landmarks = make([]Point, LandmarkCount)
	if got := s.Normalized(); len(got.Landmarks) != LandmarkCount {
		t.Errorf("expected full landmark set kept, got %d", len(got.Landmarks))
	}
}
