package scoring

import (
	"sort"

	"ForecastBench/internal/domain/models"
)

// AnalyzeStability computes rolling-window log-loss statistics for the
// qualified cohort on one horizon. lossesByModel holds chronological
// per-round log losses for each qualified model. Regret is each model's
// worst window relative to the cohort median worst window (1 when the
// median is 0, to avoid division artifacts). A model's horizon is flagged
// when regret exceeds RegretLimit or its window variance exceeds
// StabilityFactor times the cohort median variance.
func AnalyzeStability(lossesByModel map[string][]float64, th Thresholds) map[string]models.StabilityScore {
	scores := make(map[string]models.StabilityScore, len(lossesByModel))
	worsts := make([]float64, 0, len(lossesByModel))
	variances := make([]float64, 0, len(lossesByModel))

	for model, losses := range lossesByModel {
		if len(losses) == 0 {
			continue
		}
		best, worst, variance, n := windowStats(losses, th.Window)
		scores[model] = models.StabilityScore{
			BestWindow:  best,
			WorstWindow: worst,
			Variance:    variance,
			Windows:     n,
		}
		worsts = append(worsts, worst)
		variances = append(variances, variance)
	}
	if len(scores) == 0 {
		return scores
	}

	medWorst := median(worsts)
	medVar := median(variances)

	for model, s := range scores {
		if medWorst == 0 {
			s.Regret = 1
		} else {
			s.Regret = s.WorstWindow / medWorst
		}
		s.Flagged = s.Regret > th.RegretLimit || s.Variance > th.StabilityFactor*medVar
		scores[model] = s
	}
	return scores
}

// windowStats computes min/max window averages and the population variance
// of window averages over rolling windows of size w. A sequence shorter
// than w is treated as a single window.
func windowStats(losses []float64, w int) (best, worst, variance float64, n int) {
	if w <= 0 || len(losses) < w {
		w = len(losses)
	}
	avgs := make([]float64, 0, len(losses)-w+1)
	sum := 0.0
	for i, l := range losses {
		sum += l
		if i >= w {
			sum -= losses[i-w]
		}
		if i >= w-1 {
			avgs = append(avgs, sum/float64(w))
		}
	}

	best = avgs[0]
	worst = avgs[0]
	mean := 0.0
	for _, a := range avgs {
		if a < best {
			best = a
		}
		if a > worst {
			worst = a
		}
		mean += a
	}
	mean /= float64(len(avgs))
	for _, a := range avgs {
		d := a - mean
		variance += d * d
	}
	variance /= float64(len(avgs))
	return best, worst, variance, len(avgs)
}

// EliminatedModels lists models flagged on a strict majority of the horizons
// they were scored on. Horizon-local flags only narrow a model's
// contribution; full elimination needs a majority.
func EliminatedModels(flagsByModel map[string][]bool) []string {
	out := []string{}
	for model, flags := range flagsByModel {
		if len(flags) == 0 {
			continue
		}
		flagged := 0
		for _, f := range flags {
			if f {
				flagged++
			}
		}
		if flagged*2 > len(flags) {
			out = append(out, model)
		}
	}
	sort.Strings(out)
	return out
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
