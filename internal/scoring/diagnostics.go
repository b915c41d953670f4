package scoring

import (
	"math"
	"sort"

	"ForecastBench/internal/domain/models"
)

// DiagnoseLabels computes the label mix and baseline losses for one horizon.
// Baselines: random = ln 2; alwaysTrue/alwaysFalse are constant predictors at
// 1-ε/ε; prevalenceBest predicts the true prevalence for everyone and is the
// information-theoretic floor for this label mix.
func DiagnoseLabels(horizon models.Horizon, labels []bool) models.HorizonDiagnostics {
	d := models.HorizonDiagnostics{
		Horizon:    horizon,
		RandomLoss: math.Ln2,
	}
	for _, y := range labels {
		if y {
			d.TrueCount++
		} else {
			d.FalseCount++
		}
	}
	n := d.TrueCount + d.FalseCount
	if n == 0 {
		return d
	}
	d.Prevalence = float64(d.TrueCount) / float64(n)

	sumTrue := 0.0
	sumFalse := 0.0
	sumBest := 0.0
	for _, y := range labels {
		sumTrue += LogLoss(1-Epsilon, y)
		sumFalse += LogLoss(Epsilon, y)
		sumBest += LogLoss(d.Prevalence, y)
	}
	d.AlwaysTrueLoss = sumTrue / float64(n)
	d.AlwaysFalseLoss = sumFalse / float64(n)
	d.PrevalenceBest = sumBest / float64(n)
	return d
}

// HorizonLabels joins the resolved labels for a horizon across all model
// histories, deduplicated by round. Every model sees the same ground truth
// for a round, so the first resolved outcome per round wins.
func HorizonLabels(histories map[string]*models.ModelHistory, horizon models.Horizon) []bool {
	byRound := make(map[int]bool)
	rounds := make([]int, 0)
	for _, h := range histories {
		for _, o := range h.Outcomes(horizon) {
			if !o.HasLabel {
				continue
			}
			if _, seen := byRound[o.Round]; !seen {
				byRound[o.Round] = o.Label
				rounds = append(rounds, o.Round)
			}
		}
	}
	sort.Ints(rounds)
	labels := make([]bool, 0, len(rounds))
	for _, r := range rounds {
		labels = append(labels, byRound[r])
	}
	return labels
}

// Diagnose computes diagnostics for every horizon from the model histories.
func Diagnose(histories map[string]*models.ModelHistory) map[models.Horizon]models.HorizonDiagnostics {
	out := make(map[models.Horizon]models.HorizonDiagnostics, len(models.AllHorizons()))
	for _, h := range models.AllHorizons() {
		out[h] = DiagnoseLabels(h, HorizonLabels(histories, h))
	}
	return out
}
