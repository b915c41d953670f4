package models

import "time"

// HorizonDiagnostics summarizes the label mix and baseline losses for one
// horizon. Baselines are the reference point for every skill judgment.
type HorizonDiagnostics struct {
	Horizon        Horizon `json:"horizon"`
	TrueCount      int     `json:"true_count"`
	FalseCount     int     `json:"false_count"`
	Prevalence     float64 `json:"prevalence"`
	RandomLoss     float64 `json:"random_loss"`
	AlwaysTrueLoss float64 `json:"always_true_loss"`
	AlwaysFalseLoss float64 `json:"always_false_loss"`
	PrevalenceBest float64 `json:"prevalence_best"`
}

// ValidityRule names a validity gate rule a model/horizon pair can violate.
type ValidityRule string

const (
	RuleCoverage     ValidityRule = "coverage"
	RuleFailureRate  ValidityRule = "failure_rate"
	RuleDegenerate   ValidityRule = "degenerate"
	RuleExtremeWrong ValidityRule = "extreme_wrong"
)

// HorizonValidity is the per-horizon verdict with the measured quantities
// behind it.
type HorizonValidity struct {
	Valid            bool           `json:"valid"`
	Violations       []ValidityRule `json:"violations,omitempty"`
	Coverage         float64        `json:"coverage"`
	FailureRate      float64        `json:"failure_rate"`
	UniqueProbs      int            `json:"unique_probs"`
	ProbStdDev       float64        `json:"prob_std_dev"`
	ExtremeWrongRate float64        `json:"extreme_wrong_rate"`
}

// ValidityResult is the per-model verdict across horizons. Validity is
// horizon-local: a model can be valid on one horizon and invalid on another.
type ValidityResult struct {
	Model     string                      `json:"model"`
	ByHorizon map[Horizon]HorizonValidity `json:"by_horizon"`
}

// ValidHorizons lists the horizons the model passed.
func (v ValidityResult) ValidHorizons() []Horizon {
	out := make([]Horizon, 0, len(v.ByHorizon))
	for _, h := range AllHorizons() {
		if hv, ok := v.ByHorizon[h]; ok && hv.Valid {
			out = append(out, h)
		}
	}
	return out
}

// QualificationResult records which valid models showed skill on a horizon,
// and the policy plus threshold that produced the decision.
type QualificationResult struct {
	Horizon   Horizon  `json:"horizon"`
	Policy    string   `json:"policy"`
	Threshold float64  `json:"threshold"`
	Qualified []string `json:"qualified"`
}

// IsQualified reports membership in the qualified set.
func (q QualificationResult) IsQualified(model string) bool {
	for _, m := range q.Qualified {
		if m == model {
			return true
		}
	}
	return false
}

// StabilityScore holds rolling-window loss statistics for one model/horizon.
// Regret is the worst window relative to the cohort median worst window.
type StabilityScore struct {
	BestWindow  float64 `json:"best_window"`
	WorstWindow float64 `json:"worst_window"`
	Variance    float64 `json:"variance"`
	Regret      float64 `json:"regret"`
	Windows     int     `json:"windows"`
	Flagged     bool    `json:"flagged"`
}

// EnsembleResult is the combined estimate for one round/horizon.
// A round with fewer contributors than the configured minimum is marked
// not scoreable and must stay out of the ensemble's reported loss.
type EnsembleResult struct {
	Round              int                `json:"round"`
	Horizon            Horizon            `json:"horizon"`
	Probability        float64            `json:"probability"`
	IsScoreable        bool               `json:"is_scoreable"`
	ContributingModels []string           `json:"contributing_models"`
	Weights            map[string]float64 `json:"weights"`
	WeightEntropy      float64            `json:"weight_entropy"`
	Label              *bool              `json:"label,omitempty"`
}

// HorizonInvariants is the consolidated per-horizon view: the rankability
// flag plus the strictly narrowing model sets
// evaluated >= effective >= valid >= qualified >= arenaEligible.
type HorizonInvariants struct {
	Horizon        Horizon  `json:"horizon"`
	Rankable       bool     `json:"rankable"`
	MinorityLabels int      `json:"minority_labels"`
	Prevalence     float64  `json:"prevalence"`
	Evaluated      []string `json:"evaluated"`
	Effective      []string `json:"effective"`
	Valid          []string `json:"valid"`
	Qualified      []string `json:"qualified"`
	ArenaEligible  []string `json:"arena_eligible"`
}

// RunInvariants is the single derived snapshot answering every set-membership
// question for a run. It is computed once per recomputation pass; no other
// component re-derives these sets.
type RunInvariants struct {
	ComputedAt time.Time                     `json:"computed_at"`
	Rounds     int                           `json:"rounds"`
	ByHorizon  map[Horizon]HorizonInvariants `json:"by_horizon"`
	Eliminated []string                      `json:"eliminated"`
	// Disqualified lists models that were evaluated on at least one
	// horizon yet qualified on none. Horizon-local misses only narrow a
	// model's influence; this set is the run-wide skill cutoff.
	Disqualified []string `json:"disqualified"`
}

// ModelHorizonReport carries one model's metrics on one horizon.
// CalibrationSlope and ECE are nil when there is not enough signal to
// compute them; they are never NaN at this boundary.
type ModelHorizonReport struct {
	Horizon          Horizon             `json:"horizon"`
	EffectiveRounds  int                 `json:"effective_rounds"`
	MeanLogLoss      *float64            `json:"mean_log_loss,omitempty"`
	MeanBrier        *float64            `json:"mean_brier,omitempty"`
	CalibrationSlope *float64            `json:"calibration_slope,omitempty"`
	ECE              *float64            `json:"ece,omitempty"`
	Validity         HorizonValidity     `json:"validity"`
	Qualified        bool                `json:"qualified"`
	Stability        *StabilityScore     `json:"stability,omitempty"`
}

// ModelReport is the full per-model report across horizons.
type ModelReport struct {
	Model      string                         `json:"model"`
	Failures   map[FailureType]int            `json:"failures"`
	ByHorizon  map[Horizon]ModelHorizonReport `json:"by_horizon"`
	Eliminated bool                           `json:"eliminated"`
}

// RunReport is the consolidated output handed to report renderers. It is a
// pure recomputation from history: same history, same report.
type RunReport struct {
	GeneratedAt time.Time                       `json:"generated_at"`
	Rounds      int                             `json:"rounds"`
	Diagnostics map[Horizon]HorizonDiagnostics  `json:"diagnostics"`
	Models      map[string]ModelReport          `json:"models"`
	Ensemble    []EnsembleResult                `json:"ensemble"`
	Invariants  *RunInvariants                  `json:"invariants"`
}
