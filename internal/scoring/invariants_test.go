package scoring

import (
	"testing"

	"ForecastBench/internal/domain/models"
)

// buildRun assembles a small cohort: three skilled models, one degenerate,
// one that never produced a labeled round.
func buildRun(t *testing.T) (map[string]*models.ModelHistory, int) {
	t.Helper()
	const rounds = 12
	histories := make(map[string]*models.ModelHistory)

	labels := make([]bool, rounds)
	for r := 0; r < rounds; r++ {
		labels[r] = r%2 == 0
	}

	sharp := func(name string, base float64) {
		h := models.NewModelHistory(name)
		for _, hz := range models.AllHorizons() {
			for r := 0; r < rounds; r++ {
				p := 1 - base
				if !labels[r] {
					p = base
				}
				// small per-round wobble keeps the predictor non-degenerate
				p += float64(r%3) * 0.01
				h.Append(models.RoundOutcome{Round: r + 1, Model: name, Horizon: hz, Prob: p, Label: labels[r], HasLabel: true})
			}
		}
		histories[name] = h
	}
	sharp("alpha", 0.15)
	sharp("beta", 0.2)
	sharp("gamma", 0.25)

	degenerate := models.NewModelHistory("flat")
	for _, hz := range models.AllHorizons() {
		for r := 0; r < rounds; r++ {
			degenerate.Append(models.RoundOutcome{Round: r + 1, Model: "flat", Horizon: hz, Prob: 0.5, Label: labels[r], HasLabel: true})
		}
	}
	histories["flat"] = degenerate

	unresolved := models.NewModelHistory("pending")
	for r := 0; r < rounds; r++ {
		unresolved.Append(models.RoundOutcome{Round: r + 1, Model: "pending", Horizon: models.H1h, Prob: 0.6})
	}
	histories["pending"] = unresolved

	return histories, rounds
}

func TestAnalyzeNestedSets(t *testing.T) {
	histories, rounds := buildRun(t)
	a := Analyze(histories, rounds, DefaultThresholds())

	hi := a.Invariants.ByHorizon[models.H1h]
	if !contains(hi.Evaluated, "pending") {
		t.Fatalf("pending has history, must be evaluated: %v", hi.Evaluated)
	}
	if contains(hi.Effective, "pending") {
		t.Fatalf("pending has no label match, must not be effective: %v", hi.Effective)
	}
	if contains(hi.Valid, "flat") {
		t.Fatalf("degenerate model must not be valid: %v", hi.Valid)
	}
	for _, m := range []string{"alpha", "beta", "gamma"} {
		if !contains(hi.Qualified, m) {
			t.Fatalf("%s should qualify on 1h: %v", m, hi.Qualified)
		}
	}

	// each set narrows the one before it
	assertSubset(t, hi.ArenaEligible, hi.Qualified)
	assertSubset(t, hi.Qualified, hi.Valid)
	assertSubset(t, hi.Valid, hi.Effective)
	assertSubset(t, hi.Effective, hi.Evaluated)
}

func TestAnalyzeDisqualified(t *testing.T) {
	histories, rounds := buildRun(t)
	a := Analyze(histories, rounds, DefaultThresholds())

	for _, m := range []string{"flat", "pending"} {
		if !contains(a.Invariants.Disqualified, m) {
			t.Fatalf("%s qualifies on no horizon, must be disqualified: %v", m, a.Invariants.Disqualified)
		}
	}
	for _, m := range []string{"alpha", "beta", "gamma"} {
		if contains(a.Invariants.Disqualified, m) {
			t.Fatalf("%s qualifies on at least one horizon: %v", m, a.Invariants.Disqualified)
		}
	}
}

func TestAnalyzeRankability(t *testing.T) {
	histories, rounds := buildRun(t)
	a := Analyze(histories, rounds, DefaultThresholds())
	hi := a.Invariants.ByHorizon[models.H1h]
	if !hi.Rankable {
		t.Fatalf("balanced label mix should be rankable: %+v", hi)
	}
	if hi.MinorityLabels != 6 {
		t.Fatalf("minorityLabels = %d, want 6", hi.MinorityLabels)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	histories, rounds := buildRun(t)
	th := DefaultThresholds()
	a1 := Analyze(histories, rounds, th)
	a2 := Analyze(histories, rounds, th)

	for _, h := range models.AllHorizons() {
		i1 := a1.Invariants.ByHorizon[h]
		i2 := a2.Invariants.ByHorizon[h]
		if !equalStrings(i1.Qualified, i2.Qualified) {
			t.Fatalf("qualification not stable on %s: %v vs %v", h, i1.Qualified, i2.Qualified)
		}
		if !equalStrings(i1.ArenaEligible, i2.ArenaEligible) {
			t.Fatalf("arena set not stable on %s: %v vs %v", h, i1.ArenaEligible, i2.ArenaEligible)
		}
	}
}

func TestLossSeriesSkipsFailuresAndUnresolved(t *testing.T) {
	h := models.NewModelHistory("m")
	h.Append(models.RoundOutcome{Round: 1, Horizon: models.H1h, Prob: 0.8, Label: true, HasLabel: true})
	h.Append(models.RoundOutcome{Round: 2, Horizon: models.H1h, Failed: true, Failure: models.FailureParse})
	h.Append(models.RoundOutcome{Round: 3, Horizon: models.H1h, Prob: 0.6})
	losses := LossSeries(h, models.H1h)
	if len(losses) != 1 {
		t.Fatalf("losses = %v, want a single scoreable entry", losses)
	}
}

func contains(set []string, s string) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

func assertSubset(t *testing.T, inner, outer []string) {
	t.Helper()
	for _, m := range inner {
		if !contains(outer, m) {
			t.Fatalf("%q in %v but missing from %v", m, inner, outer)
		}
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
