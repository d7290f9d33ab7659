package smile

// MaxSnippets caps the number of coaching snippets shown at once.
const MaxSnippets = 2

// Snippet is a coaching message key plus render parameters. Text lookup
// happens in the presentation layer.
type Snippet struct {
	Key    string            `json:"key"`
	Params map[string]string `json:"params,omitempty"`
}

// Snippet keys.
const (
	SnippetActivateCheeks   = "coach.activate_cheeks"
	SnippetEngageEyes       = "coach.engage_eyes"
	SnippetRelaxForehead    = "coach.relax_forehead"
	SnippetLiftConfidence   = "coach.practice.lift_confidence"
	SnippetWarmUp           = "coach.social.warm_up"
	SnippetPraisePerfect    = "coach.praise.perfect"
	SnippetPraiseGood       = "coach.praise.good"
	SnippetPraisePracticing = "coach.praise.practicing"
	SnippetPraiseTry        = "coach.praise.try"
)

// snippetRule fires a message when its condition holds. Rules are listed in
// priority order.
type snippetRule struct {
	key  string
	when func(s Sample, q Quality) bool
}

var snippetRules = []snippetRule{
	{SnippetActivateCheeks, func(s Sample, _ Quality) bool {
		return s.Happy < 0.3
	}},
	{SnippetEngageEyes, func(s Sample, q Quality) bool {
		return q.EyeEngagement < 0.3 && s.Happy > 0.4
	}},
	{SnippetRelaxForehead, func(s Sample, _ Quality) bool {
		return s.Fearful > 0.2
	}},
	{SnippetLiftConfidence, func(s Sample, q Quality) bool {
		return q.Context == ContextPractice && s.Happy < 0.5
	}},
	{SnippetWarmUp, func(s Sample, q Quality) bool {
		return q.Context == ContextSocial && s.Neutral > s.Happy
	}},
}

// Snippets selects one or two coaching messages for a sample and its
// evaluated quality, highest priority first. When no corrective rule fires
// a praise message keyed on wellness is returned instead.
func Snippets(sample Sample, q Quality) []Snippet {
	s := sample.Normalized()
	params := map[string]string{"context": string(q.Context)}

	var out []Snippet
	for _, r := range snippetRules {
		if len(out) == MaxSnippets {
			break
		}
		if r.when(s, q) {
			out = append(out, Snippet{Key: r.key, Params: params})
		}
	}
	if len(out) > 0 {
		return out
	}

	key := SnippetPraiseTry
	switch {
	case q.Wellness > 0.8:
		key = SnippetPraisePerfect
	case q.Wellness > 0.6:
		key = SnippetPraiseGood
	case q.Wellness > 0.4:
		key = SnippetPraisePracticing
	}
	return []Snippet{{Key: key, Params: params}}
}
