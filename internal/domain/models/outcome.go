package models

import "time"

// FailureType classifies why a model failed to produce a usable prediction.
type FailureType string

const (
	FailureTransport FailureType = "transport"
	FailureTimeout   FailureType = "timeout"
	FailureParse     FailureType = "parse"
	FailureSchema    FailureType = "schema"
	FailureOther     FailureType = "other"
)

// AllFailureTypes returns the full failure taxonomy.
func AllFailureTypes() []FailureType {
	return []FailureType{FailureTransport, FailureTimeout, FailureParse, FailureSchema, FailureOther}
}

// NormalizeFailureType maps raw strings into the taxonomy, defaulting to "other".
func NormalizeFailureType(s string) FailureType {
	f := FailureType(s)
	switch f {
	case FailureTransport, FailureTimeout, FailureParse, FailureSchema, FailureOther:
		return f
	default:
		return FailureOther
	}
}

// RoundOutcome is one model's result for one horizon in one round.
// Either Prob holds a probability in [0,1], or Failed is set with a typed
// reason. Label/HasLabel are filled when the ground-truth resolver settles
// the round; a failed round never carries a fabricated probability.
type RoundOutcome struct {
	Round    int         `json:"round"`
	Model    string      `json:"model"`
	Horizon  Horizon     `json:"horizon"`
	Prob     float64     `json:"prob"`
	Label    bool        `json:"label"`
	HasLabel bool        `json:"has_label"`
	Failed   bool        `json:"failed"`
	Failure  FailureType `json:"failure,omitempty"`
	At       time.Time   `json:"at"`
}

// Scoreable reports whether this outcome can enter loss aggregation:
// a non-failed prediction joined with a resolved label.
func (o RoundOutcome) Scoreable() bool {
	return !o.Failed && o.HasLabel
}

// ModelHistory is the append-only per-model record of round outcomes, one
// chronological sequence per horizon. It has a single writer (the benchmark
// use case); every downstream computation takes read-only views from it.
type ModelHistory struct {
	Model    string
	outcomes map[Horizon][]RoundOutcome
	failures map[FailureType]int
}

// NewModelHistory creates an empty history for a model.
func NewModelHistory(model string) *ModelHistory {
	return &ModelHistory{
		Model:    model,
		outcomes: make(map[Horizon][]RoundOutcome),
		failures: make(map[FailureType]int),
	}
}

// Append records one outcome. Outcomes for a horizon must arrive in round
// order; Append does not reorder.
func (h *ModelHistory) Append(o RoundOutcome) {
	h.outcomes[o.Horizon] = append(h.outcomes[o.Horizon], o)
	if o.Failed {
		h.failures[NormalizeFailureType(string(o.Failure))]++
	}
}

// Resolve fills the label for the outcome at (round, horizon). It is the
// only post-append write and belongs to the same single writer as Append.
// Returns false if no matching outcome exists.
func (h *ModelHistory) Resolve(round int, horizon Horizon, label bool) bool {
	seq := h.outcomes[horizon]
	for i := range seq {
		if seq[i].Round == round {
			seq[i].Label = label
			seq[i].HasLabel = true
			return true
		}
	}
	return false
}

// Outcomes returns the chronological outcome sequence for a horizon.
// Callers must treat the returned slice as read-only.
func (h *ModelHistory) Outcomes(horizon Horizon) []RoundOutcome {
	return h.outcomes[horizon]
}

// IntendedRounds is the number of rounds the model was asked on a horizon,
// failed attempts included.
func (h *ModelHistory) IntendedRounds(horizon Horizon) int {
	return len(h.outcomes[horizon])
}

// EffectiveRounds counts scoreable outcomes on a horizon.
func (h *ModelHistory) EffectiveRounds(horizon Horizon) int {
	n := 0
	for _, o := range h.outcomes[horizon] {
		if o.Scoreable() {
			n++
		}
	}
	return n
}

// FailedRounds returns the failure tally for one type.
func (h *ModelHistory) FailedRounds(t FailureType) int { return h.failures[t] }

// Failures returns a copy of the per-type failure tallies.
func (h *ModelHistory) Failures() map[FailureType]int {
	out := make(map[FailureType]int, len(h.failures))
	for t, c := range h.failures {
		out[t] = c
	}
	return out
}

// TotalFailures returns the failure tally across all types.
func (h *ModelHistory) TotalFailures() int {
	n := 0
	for _, c := range h.failures {
		n += c
	}
	return n
}

// HasOutcomes reports whether any outcome was ever recorded.
func (h *ModelHistory) HasOutcomes() bool {
	for _, hz := range AllHorizons() {
		if len(h.outcomes[hz]) > 0 {
			return true
		}
	}
	return false
}
