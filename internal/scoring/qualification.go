package scoring

import (
	"sort"

	"ForecastBench/internal/domain/models"
)

// Qualify decides which valid models demonstrate skill on a horizon.
// meanLosses maps model id to its mean log loss over scoreable rounds;
// only valid models belong in it. Two policies:
//
//   - prevalence_margin: absolute skill. A model qualifies when its loss is
//     under prevalenceBest + margin and at least RandomEdge better than the
//     random baseline. When prevalenceBest is too small to be informative
//     (a lopsided label mix), the absolute check is skipped rather than
//     falsely disqualifying everyone.
//   - top_percent: relative skill. A model qualifies when its loss ranks in
//     the top TopFraction of the valid cohort. Used when absolute thresholds
//     are not meaningful, e.g. thin data.
func Qualify(horizon models.Horizon, meanLosses map[string]float64, diag models.HorizonDiagnostics, th Thresholds) models.QualificationResult {
	res := models.QualificationResult{
		Horizon:   horizon,
		Policy:    th.Policy,
		Qualified: []string{},
	}
	if len(meanLosses) == 0 {
		return res
	}

	switch th.Policy {
	case PolicyTopPercent:
		qualifyTopPercent(&res, meanLosses, th)
	default:
		res.Policy = PolicyPrevalenceMargin
		qualifyPrevalenceMargin(&res, meanLosses, diag, th)
	}
	sort.Strings(res.Qualified)
	return res
}

func qualifyPrevalenceMargin(res *models.QualificationResult, meanLosses map[string]float64, diag models.HorizonDiagnostics, th Thresholds) {
	absThreshold := diag.PrevalenceBest + th.PrevalenceMargin
	randThreshold := diag.RandomLoss * (1 - th.RandomEdge)
	skipAbs := diag.PrevalenceBest < th.MinInformativeBest

	res.Threshold = absThreshold
	if skipAbs {
		res.Threshold = randThreshold
	}
	for model, loss := range meanLosses {
		if !skipAbs && loss >= absThreshold {
			continue
		}
		if loss >= randThreshold {
			continue
		}
		res.Qualified = append(res.Qualified, model)
	}
}

func qualifyTopPercent(res *models.QualificationResult, meanLosses map[string]float64, th Thresholds) {
	type ranked struct {
		model string
		loss  float64
	}
	cohort := make([]ranked, 0, len(meanLosses))
	for m, l := range meanLosses {
		cohort = append(cohort, ranked{m, l})
	}
	sort.Slice(cohort, func(i, j int) bool {
		if cohort[i].loss != cohort[j].loss {
			return cohort[i].loss < cohort[j].loss
		}
		return cohort[i].model < cohort[j].model // stable tie-break
	})

	keep := int(float64(len(cohort))*th.TopFraction + 0.5)
	if keep < 1 {
		keep = 1
	}
	if keep > len(cohort) {
		keep = len(cohort)
	}
	res.Threshold = cohort[keep-1].loss
	for _, r := range cohort[:keep] {
		res.Qualified = append(res.Qualified, r.model)
	}
}
