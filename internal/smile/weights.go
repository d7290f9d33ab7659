package smile

// Weights holds every tuning constant used by the evaluator. The defaults
// reproduce the hand-tuned values the scoring model shipped with; none of
// them comes from calibration data, so they are loaded from config.
type Weights struct {
	// BaseOffset is added to the practice and social blends so a neutral
	// face never displays 0%.
	BaseOffset float64 `mapstructure:"base_offset" json:"base_offset"`

	// MetricFloor and MetricCeiling bound every contextual sub-metric.
	MetricFloor   float64 `mapstructure:"metric_floor" json:"metric_floor"`
	MetricCeiling float64 `mapstructure:"metric_ceiling" json:"metric_ceiling"`

	Comfort     ComfortWeights     `mapstructure:"comfort" json:"comfort"`
	Naturalness NaturalnessWeights `mapstructure:"naturalness" json:"naturalness"`
	Practice    PracticeWeights    `mapstructure:"practice" json:"practice"`
	Social      SocialWeights      `mapstructure:"social" json:"social"`
	Joy         JoyWeights         `mapstructure:"joy" json:"joy"`
}

// ComfortWeights penalize tension expressions.
type ComfortWeights struct {
	Fearful float64 `mapstructure:"fearful" json:"fearful"`
	Angry   float64 `mapstructure:"angry" json:"angry"`
	Sad     float64 `mapstructure:"sad" json:"sad"`
	Min     float64 `mapstructure:"min" json:"min"`
}

// NaturalnessWeights blend happy, neutral and the absence of anger.
type NaturalnessWeights struct {
	Happy   float64 `mapstructure:"happy" json:"happy"`
	Neutral float64 `mapstructure:"neutral" json:"neutral"`
	Calm    float64 `mapstructure:"calm" json:"calm"`
	Min     float64 `mapstructure:"min" json:"min"`
}

// PracticeWeights drive the confidence metric.
type PracticeWeights struct {
	Happy    float64 `mapstructure:"happy" json:"happy"`
	Neutral  float64 `mapstructure:"neutral" json:"neutral"`
	Fearless float64 `mapstructure:"fearless" json:"fearless"`
}

// SocialWeights drive the affinity, trust and ease metrics.
type SocialWeights struct {
	AffinityHappy     float64 `mapstructure:"affinity_happy" json:"affinity_happy"`
	AffinityNeutral   float64 `mapstructure:"affinity_neutral" json:"affinity_neutral"`
	AffinitySurprised float64 `mapstructure:"affinity_surprised" json:"affinity_surprised"`
	AffinityFearful   float64 `mapstructure:"affinity_fearful" json:"affinity_fearful"`

	TrustComfort  float64 `mapstructure:"trust_comfort" json:"trust_comfort"`
	TrustFearless float64 `mapstructure:"trust_fearless" json:"trust_fearless"`
	TrustCalm     float64 `mapstructure:"trust_calm" json:"trust_calm"`

	EaseNaturalness float64 `mapstructure:"ease_naturalness" json:"ease_naturalness"`
	EaseFearless    float64 `mapstructure:"ease_fearless" json:"ease_fearless"`
	EaseNeutral     float64 `mapstructure:"ease_neutral" json:"ease_neutral"`
}

// JoyWeights hold the Duchenne gate and the joy blends.
type JoyWeights struct {
	// GateHappy and GateEyeWrinkles must both be exceeded for a smile to
	// count as a Duchenne smile.
	GateHappy       float64 `mapstructure:"gate_happy" json:"gate_happy"`
	GateEyeWrinkles float64 `mapstructure:"gate_eye_wrinkles" json:"gate_eye_wrinkles"`

	// UngatedPenalty scales authenticity when the gate is not met.
	UngatedPenalty float64 `mapstructure:"ungated_penalty" json:"ungated_penalty"`

	// BrightnessPeak is the happy value at which brightness is maximal.
	BrightnessPeak float64 `mapstructure:"brightness_peak" json:"brightness_peak"`

	// ExpressionHappy is the happy threshold for full emotional expression.
	ExpressionHappy float64 `mapstructure:"expression_happy" json:"expression_happy"`
}

// DefaultWeights returns the shipped tuning.
func DefaultWeights() Weights {
	return Weights{
		BaseOffset:    0.3,
		MetricFloor:   0.3,
		MetricCeiling: 1.0,
		Comfort: ComfortWeights{
			Fearful: 0.3,
			Angry:   0.2,
			Sad:     0.2,
			Min:     0.4,
		},
		Naturalness: NaturalnessWeights{
			Happy:   0.5,
			Neutral: 0.2,
			Calm:    0.3,
			Min:     0.35,
		},
		Practice: PracticeWeights{
			Happy:    0.6,
			Neutral:  0.2,
			Fearless: 0.2,
		},
		Social: SocialWeights{
			AffinityHappy:     0.6,
			AffinityNeutral:   0.2,
			AffinitySurprised: 0.1,
			AffinityFearful:   0.1,
			TrustComfort:      0.5,
			TrustFearless:     0.3,
			TrustCalm:         0.2,
			EaseNaturalness:   0.6,
			EaseFearless:      0.2,
			EaseNeutral:       0.2,
		},
		Joy: JoyWeights{
			GateHappy:       0.8,
			GateEyeWrinkles: 0.6,
			UngatedPenalty:  0.6,
			BrightnessPeak:  0.85,
			ExpressionHappy: 0.75,
		},
	}
}
