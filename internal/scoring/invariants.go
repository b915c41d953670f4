package scoring

import (
	"sort"
	"time"

	"ForecastBench/internal/domain/models"
)

// RunAnalysis bundles every derived result of one recomputation pass.
// It is produced by Analyze alone; downstream code reads it, never rebuilds
// any of its sets.
type RunAnalysis struct {
	Rounds        int
	Diagnostics   map[models.Horizon]models.HorizonDiagnostics
	Validity      map[string]models.ValidityResult
	Qualification map[models.Horizon]models.QualificationResult
	Stability     map[models.Horizon]map[string]models.StabilityScore
	Invariants    *models.RunInvariants
}

// Analyze is the single consolidation point of the pipeline. Given the model
// histories and thresholds, it derives the horizon rankability flags and the
// nested model sets
// evaluated >= effective >= valid >= qualified >= arenaEligible,
// each a narrowing by one extra criterion. The computation is a pure function
// of history: idempotent and order-independent for the same input.
func Analyze(histories map[string]*models.ModelHistory, rounds int, th Thresholds) *RunAnalysis {
	a := &RunAnalysis{
		Rounds:        rounds,
		Diagnostics:   Diagnose(histories),
		Validity:      make(map[string]models.ValidityResult, len(histories)),
		Qualification: make(map[models.Horizon]models.QualificationResult),
		Stability:     make(map[models.Horizon]map[string]models.StabilityScore),
	}

	for model, hist := range histories {
		a.Validity[model] = EvaluateValidity(hist, rounds, th)
	}

	inv := &models.RunInvariants{
		ComputedAt: time.Now().UTC(),
		Rounds:     rounds,
		ByHorizon:  make(map[models.Horizon]models.HorizonInvariants),
	}

	flagsByModel := make(map[string][]bool)
	evaluatedAnywhere := make(map[string]bool)
	qualifiedAnywhere := make(map[string]bool)

	for _, h := range models.AllHorizons() {
		diag := a.Diagnostics[h]
		hi := models.HorizonInvariants{
			Horizon:        h,
			MinorityLabels: minorityCount(diag),
			Prevalence:     diag.Prevalence,
			Evaluated:      []string{},
			Effective:      []string{},
			Valid:          []string{},
			Qualified:      []string{},
			ArenaEligible:  []string{},
		}
		hi.Rankable = hi.MinorityLabels >= th.MinMinorityLabels &&
			diag.Prevalence >= th.MinPrevalence && diag.Prevalence <= th.MaxPrevalence

		meanLosses := make(map[string]float64)
		for model, hist := range histories {
			if hist.IntendedRounds(h) == 0 {
				continue
			}
			hi.Evaluated = append(hi.Evaluated, model)
			if hist.EffectiveRounds(h) == 0 {
				continue
			}
			hi.Effective = append(hi.Effective, model)
			if !a.Validity[model].ByHorizon[h].Valid {
				continue
			}
			hi.Valid = append(hi.Valid, model)
			losses := LossSeries(hist, h)
			mean := 0.0
			for _, l := range losses {
				mean += l
			}
			meanLosses[model] = mean / float64(len(losses))
		}

		qual := Qualify(h, meanLosses, diag, th)
		a.Qualification[h] = qual
		hi.Qualified = append(hi.Qualified, qual.Qualified...)
		for _, model := range hi.Evaluated {
			evaluatedAnywhere[model] = true
		}
		for _, model := range qual.Qualified {
			qualifiedAnywhere[model] = true
		}

		cohortLosses := make(map[string][]float64, len(qual.Qualified))
		for _, model := range qual.Qualified {
			cohortLosses[model] = LossSeries(histories[model], h)
		}
		stab := AnalyzeStability(cohortLosses, th)
		a.Stability[h] = stab
		for model, s := range stab {
			flagsByModel[model] = append(flagsByModel[model], s.Flagged)
		}

		for _, model := range qual.Qualified {
			if histories[model].EffectiveRounds(h) >= th.MinArenaRounds {
				hi.ArenaEligible = append(hi.ArenaEligible, model)
			}
		}

		sort.Strings(hi.Evaluated)
		sort.Strings(hi.Effective)
		sort.Strings(hi.Valid)
		sort.Strings(hi.Qualified)
		sort.Strings(hi.ArenaEligible)
		inv.ByHorizon[h] = hi
	}

	// A model leaves the run only when it is erratic on a majority of the
	// horizons it was scored on; horizon-local flags just narrow influence.
	inv.Eliminated = EliminatedModels(flagsByModel)
	for _, h := range models.AllHorizons() {
		hi := inv.ByHorizon[h]
		hi.ArenaEligible = without(hi.ArenaEligible, inv.Eliminated)
		inv.ByHorizon[h] = hi
	}

	for model := range evaluatedAnywhere {
		if !qualifiedAnywhere[model] {
			inv.Disqualified = append(inv.Disqualified, model)
		}
	}
	sort.Strings(inv.Disqualified)

	a.Invariants = inv
	return a
}

// LossSeries returns the chronological per-round log losses of scoreable
// outcomes for one model/horizon.
func LossSeries(hist *models.ModelHistory, horizon models.Horizon) []float64 {
	outcomes := hist.Outcomes(horizon)
	out := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Scoreable() {
			continue
		}
		out = append(out, LogLoss(o.Prob, o.Label))
	}
	return out
}

func minorityCount(d models.HorizonDiagnostics) int {
	if d.TrueCount < d.FalseCount {
		return d.TrueCount
	}
	return d.FalseCount
}

func without(set []string, remove []string) []string {
	if len(remove) == 0 {
		return set
	}
	drop := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		drop[r] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for _, s := range set {
		if _, ok := drop[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
