package scoring

import (
	"math"

	"ForecastBench/internal/domain/models"
)

// EvaluateValidity gates one model across all horizons. A model/horizon pair
// is invalid when any rule trips: coverage below minimum, failure rate above
// maximum, a degenerate (near-constant) predictor, or too many confidently
// wrong predictions. Each horizon gets its own verdict.
func EvaluateValidity(hist *models.ModelHistory, intendedRounds int, th Thresholds) models.ValidityResult {
	res := models.ValidityResult{
		Model:     hist.Model,
		ByHorizon: make(map[models.Horizon]models.HorizonValidity, len(models.AllHorizons())),
	}
	for _, h := range models.AllHorizons() {
		res.ByHorizon[h] = evaluateHorizon(hist, h, intendedRounds, th)
	}
	return res
}

func evaluateHorizon(hist *models.ModelHistory, horizon models.Horizon, intendedRounds int, th Thresholds) models.HorizonValidity {
	outcomes := hist.Outcomes(horizon)
	v := models.HorizonValidity{Valid: true}

	effective := 0
	failed := 0
	probs := make([]float64, 0, len(outcomes))
	extremeWrong := 0
	for _, o := range outcomes {
		if o.Failed {
			failed++
			continue
		}
		probs = append(probs, o.Prob)
		if !o.HasLabel {
			continue
		}
		effective++
		confident := o.Prob > th.ExtremeHigh || o.Prob < th.ExtremeLow
		wrong := (o.Prob > th.ExtremeHigh && !o.Label) || (o.Prob < th.ExtremeLow && o.Label)
		if confident && wrong {
			extremeWrong++
		}
	}

	if intendedRounds > 0 {
		v.Coverage = float64(effective) / float64(intendedRounds)
	}
	if len(outcomes) > 0 {
		v.FailureRate = float64(failed) / float64(len(outcomes))
	}
	v.UniqueProbs = countUnique(probs)
	v.ProbStdDev = stdDev(probs)
	if effective > 0 {
		v.ExtremeWrongRate = float64(extremeWrong) / float64(effective)
	}

	if v.Coverage < th.MinCoverage {
		v.Violations = append(v.Violations, models.RuleCoverage)
	}
	if v.FailureRate > th.MaxFailureRate {
		v.Violations = append(v.Violations, models.RuleFailureRate)
	}
	// A constant or cached answer shows up as too few distinct values and a
	// flat distribution; both must hold before the model is called degenerate.
	if len(probs) >= 2 && v.UniqueProbs < th.MaxUniqueP && v.ProbStdDev < th.MaxPStdDev {
		v.Violations = append(v.Violations, models.RuleDegenerate)
	}
	if v.ExtremeWrongRate > th.MaxExtremeWrongRate {
		v.Violations = append(v.Violations, models.RuleExtremeWrong)
	}

	v.Valid = len(v.Violations) == 0
	return v
}

func countUnique(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}

func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}
