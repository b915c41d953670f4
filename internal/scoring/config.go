package scoring

// Qualification policy names.
const (
	PolicyPrevalenceMargin = "prevalence_margin"
	PolicyTopPercent       = "top_percent"
)

// Thresholds collects every tunable of the evaluation pipeline.
// Zero values are not meaningful; construct with DefaultThresholds and
// override from configuration.
type Thresholds struct {
	// Validity gate
	MinCoverage         float64
	MaxFailureRate      float64
	MaxUniqueP          int
	MaxPStdDev          float64
	MaxExtremeWrongRate float64
	ExtremeHigh         float64
	ExtremeLow          float64

	// Qualification
	Policy             string
	PrevalenceMargin   float64
	RandomEdge         float64 // required fractional edge over the random baseline
	TopFraction        float64
	MinInformativeBest float64 // below this, the absolute prevalence check is skipped

	// Stability
	Window          int
	RegretLimit     float64
	StabilityFactor float64

	// Ensemble
	Alpha     float64
	MinModels int

	// Invariants
	MinArenaRounds    int
	MinMinorityLabels int
	MinPrevalence     float64
	MaxPrevalence     float64
}

// DefaultThresholds returns the pipeline defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinCoverage:         0.8,
		MaxFailureRate:      0.1,
		MaxUniqueP:          2,
		MaxPStdDev:          0.02,
		MaxExtremeWrongRate: 0.2,
		ExtremeHigh:         0.8,
		ExtremeLow:          0.2,

		Policy:             PolicyPrevalenceMargin,
		PrevalenceMargin:   0.1,
		RandomEdge:         0.10,
		TopFraction:        0.7,
		MinInformativeBest: 0.1,

		Window:          6,
		RegretLimit:     1.5,
		StabilityFactor: 2.0,

		Alpha:     1.0,
		MinModels: 3,

		MinArenaRounds:    4,
		MinMinorityLabels: 2,
		MinPrevalence:     0.05,
		MaxPrevalence:     0.95,
	}
}
