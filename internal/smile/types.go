// Package smile scores facial-expression samples against a practice context
// and selects short coaching snippets for the live overlay.
package smile

import (
	"fmt"
	"strings"
)

// Context is the practice target selected once per session.
type Context string

const (
	// ContextPractice targets self-confidence.
	ContextPractice Context = "practice"
	// ContextSocial targets social warmth.
	ContextSocial Context = "social"
	// ContextJoy targets genuine happiness.
	ContextJoy Context = "joy"
)

// Contexts lists every supported context in display order.
var Contexts = []Context{ContextPractice, ContextSocial, ContextJoy}

// Valid reports whether c is one of the known contexts.
func (c Context) Valid() bool {
	switch c {
	case ContextPractice, ContextSocial, ContextJoy:
		return true
	}
	return false
}

// ParseContext accepts a context name case-insensitively.
func ParseContext(s string) (Context, error) {
	c := Context(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown practice context %q (want practice, social or joy)", s)
	}
	return c, nil
}

// Purpose is what the user says they want to practice for.
type Purpose string

const (
	PurposeConfidence   Purpose = "confidence"
	PurposeRelationship Purpose = "relationship"
	PurposeHappiness    Purpose = "happiness"
)

// ParsePurpose accepts a purpose name case-insensitively.
func ParsePurpose(s string) (Purpose, error) {
	p := Purpose(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := purposeContexts[p]; !ok {
		return "", fmt.Errorf("unknown purpose %q (want confidence, relationship or happiness)", s)
	}
	return p, nil
}

var purposeContexts = map[Purpose]Context{
	PurposeConfidence:   ContextPractice,
	PurposeRelationship: ContextSocial,
	PurposeHappiness:    ContextJoy,
}

// ContextFor returns the practice context a purpose maps to.
func ContextFor(p Purpose) (Context, bool) {
	c, ok := purposeContexts[p]
	return c, ok
}

// Metric names. The first three belong to ContextPractice, the next three
// to ContextSocial and the last three to ContextJoy.
const (
	MetricConfidence  = "confidence"
	MetricStability   = "stability"
	MetricNaturalness = "naturalness"

	MetricAffinity = "affinity"
	MetricTrust    = "trust"
	MetricEase     = "ease"

	MetricAuthenticity        = "authenticity"
	MetricBrightness          = "brightness"
	MetricEmotionalExpression = "emotionalExpression"
)

// MetricLabels names the primary, secondary and tertiary metrics of a context.
type MetricLabels struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Tertiary  string `json:"tertiary"`
}

// Names returns the three metric names in order.
func (l MetricLabels) Names() []string {
	return []string{l.Primary, l.Secondary, l.Tertiary}
}

var contextLabels = map[Context]MetricLabels{
	ContextPractice: {MetricConfidence, MetricStability, MetricNaturalness},
	ContextSocial:   {MetricAffinity, MetricTrust, MetricEase},
	ContextJoy:      {MetricAuthenticity, MetricBrightness, MetricEmotionalExpression},
}

// LabelsFor returns the metric labels shown for a context. Unknown contexts
// fall back to the practice labels.
func LabelsFor(c Context) MetricLabels {
	if l, ok := contextLabels[c]; ok {
		return l
	}
	return contextLabels[ContextPractice]
}

// Point is a single facial landmark in frame coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkCount is the number of points in a full landmark set.
const LandmarkCount = 68

// Sample is one inference result for one video frame. The probabilities are
// each in [0,1] but are not required to sum to 1.
type Sample struct {
	Happy     float64 `json:"happy"`
	Sad       float64 `json:"sad"`
	Angry     float64 `json:"angry"`
	Fearful   float64 `json:"fearful"`
	Surprised float64 `json:"surprised"`
	Neutral   float64 `json:"neutral"`

	// Landmarks is either empty or LandmarkCount points long.
	Landmarks []Point `json:"landmarks,omitempty"`
}

// Normalized returns a copy with every probability clamped into [0,1].
// Landmark sets of the wrong length are dropped.
func (s Sample) Normalized() Sample {
	out := Sample{
		Happy:     clamp(s.Happy, 0, 1),
		Sad:       clamp(s.Sad, 0, 1),
		Angry:     clamp(s.Angry, 0, 1),
		Fearful:   clamp(s.Fearful, 0, 1),
		Surprised: clamp(s.Surprised, 0, 1),
		Neutral:   clamp(s.Neutral, 0, 1),
	}
	if len(s.Landmarks) == LandmarkCount {
		out.Landmarks = s.Landmarks
	}
	return out
}

// Quality is the evaluator output for one sample.
type Quality struct {
	OverallScore  float64 `json:"overall_score"`
	Naturalness   float64 `json:"naturalness"`
	Comfort       float64 `json:"comfort"`
	EyeEngagement float64 `json:"eye_engagement"`
	Wellness      float64 `json:"wellness"`

	// IndividualScores maps the context's three metric names to integer percents.
	IndividualScores map[string]int `json:"individual_scores"`

	Context Context `json:"context"`
}

// Score returns the overall score as an integer percent.
func (q Quality) Score() int {
	return Percent(q.OverallScore)
}

// Percent converts a [0,1] value to a rounded integer percent.
func Percent(v float64) int {
	return int(roundHalfUp(v * 100))
}
