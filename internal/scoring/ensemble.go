package scoring

import (
	"math"
	"sort"

	"ForecastBench/internal/domain/models"
)

// EnsembleInput is one model's standing at the moment a round is combined:
// its prediction for this round (if any) and its trailing scored history.
type EnsembleInput struct {
	Model           string
	Prob            float64
	Valid           bool // produced a non-failed prediction this round
	TrailingLosses  []float64
	EffectiveRounds int
}

// CombineRound computes the online ensemble estimate for one round/horizon.
// Each model's raw weight is exp(-alpha * trailing mean log loss) discounted
// by min(1, effectiveRounds/W) so that models with thin history cannot
// dominate. Weights are normalized over models that produced a valid
// prediction this round; zero or non-finite raw weights are excluded from
// normalization rather than silently given zero mass. If normalization
// collapses, the valid models share uniform weight. With fewer than
// MinModels valid predictions the round is not scoreable: the probability
// falls back to 0.5 and must stay out of loss aggregation.
func CombineRound(round int, horizon models.Horizon, inputs []EnsembleInput, th Thresholds) models.EnsembleResult {
	res := models.EnsembleResult{
		Round:              round,
		Horizon:            horizon,
		Probability:        0.5,
		ContributingModels: []string{},
		Weights:            map[string]float64{},
	}

	valid := make([]EnsembleInput, 0, len(inputs))
	for _, in := range inputs {
		if in.Valid {
			valid = append(valid, in)
		}
	}
	if len(valid) < th.MinModels {
		return res
	}
	res.IsScoreable = true

	raw := make(map[string]float64, len(valid))
	total := 0.0
	for _, in := range valid {
		w := rawWeight(in, th)
		if w <= 0 || math.IsInf(w, 0) || math.IsNaN(w) {
			continue
		}
		raw[in.Model] = w
		total += w
	}

	if total <= 0 || len(raw) == 0 {
		// all excluded: uniform over the models that answered this round
		u := 1.0 / float64(len(valid))
		for _, in := range valid {
			res.Weights[in.Model] = u
		}
	} else {
		for m, w := range raw {
			res.Weights[m] = w / total
		}
	}

	p := 0.0
	for _, in := range valid {
		if w, ok := res.Weights[in.Model]; ok {
			p += w * in.Prob
			res.ContributingModels = append(res.ContributingModels, in.Model)
		}
	}
	sort.Strings(res.ContributingModels)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	res.Probability = p
	res.WeightEntropy = WeightEntropy(res.Weights)
	return res
}

func rawWeight(in EnsembleInput, th Thresholds) float64 {
	if len(in.TrailingLosses) == 0 {
		return 0
	}
	n := len(in.TrailingLosses)
	if th.Window > 0 && n > th.Window {
		n = th.Window
	}
	sum := 0.0
	for _, l := range in.TrailingLosses[len(in.TrailingLosses)-n:] {
		sum += l
	}
	rolling := sum / float64(n)

	coverage := 1.0
	if th.Window > 0 {
		coverage = float64(in.EffectiveRounds) / float64(th.Window)
		if coverage > 1 {
			coverage = 1
		}
	}
	return math.Exp(-th.Alpha*rolling) * coverage
}

// WeightEntropy is the Shannon entropy of a normalized weight set, in nats.
// High entropy means near-uniform blending; low entropy means one model
// dominates.
func WeightEntropy(weights map[string]float64) float64 {
	e := 0.0
	for _, w := range weights {
		if w <= 0 {
			continue
		}
		e -= w * math.Log(w)
	}
	return e
}
