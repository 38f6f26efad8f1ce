package planning

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/active-agent/internal/model"
	"github.com/danielpatrickdp/active-agent/internal/policy"
	"github.com/danielpatrickdp/active-agent/internal/tensor"
)

// chainModel builds a 3-state chain with identity likelihood and two actions:
// 0 stays, 1 shifts right (clamped at the end). prefs is the C vector; a nil
// goal omits H, otherwise H marks the final state.
func chainModel(t *testing.T, prefs []float64, withGoal bool, policyPrior []float64) *model.GenerativeModel {
	t.Helper()
	const n = 3
	dims := model.Dims{NumObs: []int{n}, NumStates: []int{n}, NumControls: []int{2}, Batch: 1}

	a := tensor.New(1, n, n)
	for s := 0; s < n; s++ {
		a.Set(1, 0, s, s)
	}
	b := tensor.New(1, n, n, 2)
	for s := 0; s < n; s++ {
		b.Set(1, 0, s, s, 0)
		next := s + 1
		if next >= n {
			next = n - 1
		}
		b.Set(1, 0, next, s, 1)
	}
	if prefs == nil {
		prefs = []float64{1.0 / n, 1.0 / n, 1.0 / n}
	}
	c, _ := tensor.FromSlice(append([]float64(nil), prefs...), 1, n)
	d, _ := tensor.FromSlice([]float64{1, 0, 0}, 1, n)

	ts := model.Tensors{
		A: []tensor.Dense{a}, B: []tensor.Dense{b},
		C: []tensor.Dense{c}, D: []tensor.Dense{d},
	}
	if withGoal {
		h, _ := tensor.FromSlice([]float64{0, 0, 1}, 1, n)
		ts.H = []tensor.Dense{h}
	}
	if policyPrior != nil {
		e, _ := tensor.FromSlice(append([]float64(nil), policyPrior...), 1, len(policyPrior))
		ts.E = &e
	}

	g, err := model.New(dims, ts, model.DefaultBuildConfig())
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	return g
}

func chainPolicies(horizon int) []policy.Policy {
	return policy.ConstructPolicies([]int{3}, []int{2}, horizon)
}

func utilityOnly() Config {
	return Config{UseUtility: true, UtilityWeight: 1, Temperature: 1}
}

func TestInferPoliciesUniformPreferenceIsUniform(t *testing.T) {
	g := chainModel(t, nil, false, nil)
	ev, err := NewEvaluator(g, chainPolicies(1), utilityOnly())
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	res, err := ev.InferPolicies(g.InitialBelief())
	if err != nil {
		t.Fatalf("InferPolicies: %v", err)
	}
	post := res.Posterior[0]
	if math.Abs(post[0]-post[1]) > 1e-6 {
		t.Fatalf("uniform preference should tie the policies, got %v", post)
	}
	if !tensor.IsNormalized(post, 1e-9) {
		t.Fatalf("posterior not normalized: %v", post)
	}
}

func TestInferPoliciesPrefersHighUtilityAction(t *testing.T) {
	// Preference concentrates on the middle observation, one step away
	// under the shift action.
	g := chainModel(t, []float64{0.05, 0.9, 0.05}, false, nil)
	ev, err := NewEvaluator(g, chainPolicies(1), utilityOnly())
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	res, err := ev.InferPolicies(g.InitialBelief())
	if err != nil {
		t.Fatalf("InferPolicies: %v", err)
	}
	if tensor.ArgMax(res.Posterior[0]) != 1 {
		t.Fatalf("expected the shift policy to win, posterior %v", res.Posterior[0])
	}
	// NegEFE difference is exactly the log-preference gap.
	want := math.Log(0.9) - math.Log(0.05)
	got := res.NegEFE[0][1] - res.NegEFE[0][0]
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("negEFE gap %f, want %f", got, want)
	}
}

func TestStateInfoGainZeroForIdentityLikelihood(t *testing.T) {
	// A degenerate one-hot belief rolled through deterministic transitions
	// and an identity likelihood predicts a one-hot observation: no
	// ambiguity, no epistemic value.
	g := chainModel(t, nil, false, nil)
	cfg := Config{UseStatesInfoGain: true, StateInfoWeight: 1, Temperature: 1}
	ev, err := NewEvaluator(g, chainPolicies(1), cfg)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	res, err := ev.InferPolicies(g.InitialBelief())
	if err != nil {
		t.Fatalf("InferPolicies: %v", err)
	}
	for pi, s := range res.Terms[0].Scores[0] {
		if math.Abs(s) > 1e-9 {
			t.Fatalf("policy %d: expected zero info gain, got %f", pi, s)
		}
	}
}

func TestInductiveTermRewardsApproach(t *testing.T) {
	g := chainModel(t, nil, true, nil)
	cfg := Config{UseInductive: true, InductiveWeight: 1, InductiveDepth: 3, Temperature: 1}
	ev, err := NewEvaluator(g, chainPolicies(1), cfg)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	res, err := ev.InferPolicies(g.InitialBelief())
	if err != nil {
		t.Fatalf("InferPolicies: %v", err)
	}
	scores := res.Terms[0].Scores[0]
	if res.Terms[0].Name != "inductive" {
		t.Fatalf("unexpected term name %s", res.Terms[0].Name)
	}
	if scores[0] != 0 {
		t.Fatalf("staying should not change the goal distance, got %f", scores[0])
	}
	if math.Abs(scores[1]-1) > 1e-9 {
		t.Fatalf("shifting should reduce the distance by 1, got %f", scores[1])
	}
	if tensor.ArgMax(res.Posterior[0]) != 1 {
		t.Fatalf("expected the approach policy to win, posterior %v", res.Posterior[0])
	}
}

func TestInductiveTermDepthZeroIsExactlyZero(t *testing.T) {
	g := chainModel(t, nil, true, nil)
	cfg := Config{UseInductive: true, InductiveWeight: 1, InductiveDepth: 0, Temperature: 1}
	ev, err := NewEvaluator(g, chainPolicies(1), cfg)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	res, err := ev.InferPolicies(g.InitialBelief())
	if err != nil {
		t.Fatalf("InferPolicies: %v", err)
	}
	for pi, s := range res.Terms[0].Scores[0] {
		if s != 0 {
			t.Fatalf("policy %d: depth 0 must contribute exactly 0, got %f", pi, s)
		}
	}
}

func TestInductiveTermAccumulatesOverHorizon(t *testing.T) {
	g := chainModel(t, nil, true, nil)
	cfg := Config{UseInductive: true, InductiveWeight: 1, InductiveDepth: 3, Temperature: 1}
	ev, err := NewEvaluator(g, chainPolicies(2), cfg)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	res, err := ev.InferPolicies(g.InitialBelief())
	if err != nil {
		t.Fatalf("InferPolicies: %v", err)
	}
	// Policy 3 is shift-shift: two unit reductions.
	if got := res.Terms[0].Scores[0][3]; math.Abs(got-2) > 1e-9 {
		t.Fatalf("shift-shift should score 2, got %f", got)
	}
	if tensor.ArgMax(res.Posterior[0]) != 3 {
		t.Fatalf("expected shift-shift to win, posterior %v", res.Posterior[0])
	}
}

func TestPolicyPriorBiasesPosterior(t *testing.T) {
	g := chainModel(t, nil, false, []float64{0.9, 0.1})
	ev, err := NewEvaluator(g, chainPolicies(1), utilityOnly())
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	res, err := ev.InferPolicies(g.InitialBelief())
	if err != nil {
		t.Fatalf("InferPolicies: %v", err)
	}
	// Uniform preference leaves only the prior.
	if math.Abs(res.Posterior[0][0]-0.9) > 1e-9 {
		t.Fatalf("expected the prior to carry through, got %v", res.Posterior[0])
	}
}

func TestNewEvaluatorRejectsPolicyPriorLengthMismatch(t *testing.T) {
	g := chainModel(t, nil, false, []float64{0.5, 0.3, 0.2})
	if _, err := NewEvaluator(g, chainPolicies(1), utilityOnly()); err == nil {
		t.Fatal("expected error for E length vs policy count mismatch")
	}
}

func TestNewEvaluatorRejectsBadPolicies(t *testing.T) {
	g := chainModel(t, nil, false, nil)
	if _, err := NewEvaluator(g, nil, utilityOnly()); err == nil {
		t.Fatal("expected error for empty policy set")
	}
	bad := []policy.Policy{{Actions: [][]int{{2}}}}
	if _, err := NewEvaluator(g, bad, utilityOnly()); err == nil {
		t.Fatal("expected error for out-of-range action")
	}
	mixed := []policy.Policy{
		{Actions: [][]int{{0}}},
		{Actions: [][]int{{0}, {1}}},
	}
	if _, err := NewEvaluator(g, mixed, utilityOnly()); err == nil {
		t.Fatal("expected error for mixed policy lengths")
	}
}

func TestTemperatureSharpensPosterior(t *testing.T) {
	g := chainModel(t, []float64{0.05, 0.9, 0.05}, false, nil)
	hot, err := NewEvaluator(g, chainPolicies(1), Config{UseUtility: true, UtilityWeight: 1, Temperature: 4})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	cold, err := NewEvaluator(g, chainPolicies(1), Config{UseUtility: true, UtilityWeight: 1, Temperature: 0.25})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	bel := g.InitialBelief()
	hr, err := hot.InferPolicies(bel)
	if err != nil {
		t.Fatalf("InferPolicies: %v", err)
	}
	cr, err := cold.InferPolicies(bel)
	if err != nil {
		t.Fatalf("InferPolicies: %v", err)
	}
	if cr.Posterior[0][1] <= hr.Posterior[0][1] {
		t.Fatalf("low temperature should sharpen: cold %v, hot %v", cr.Posterior[0], hr.Posterior[0])
	}
}

func TestInferPoliciesIsPure(t *testing.T) {
	g := chainModel(t, []float64{0.05, 0.9, 0.05}, false, nil)
	ev, err := NewEvaluator(g, chainPolicies(2), DefaultConfig())
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	bel := g.InitialBelief()
	a, err := ev.InferPolicies(bel)
	if err != nil {
		t.Fatalf("InferPolicies: %v", err)
	}
	b, err := ev.InferPolicies(bel)
	if err != nil {
		t.Fatalf("InferPolicies: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("repeated evaluation diverged:\n%s", diff)
	}
}

func TestWnormMasksZeroCounts(t *testing.T) {
	counts, _ := tensor.FromSlice([]float64{2, 0, 2, 4}, 2, 2)
	w := wnorm(counts)
	if w.At(1, 0) != 0 {
		t.Fatalf("zero count should stay masked, got %f", w.At(1, 0))
	}
	want := 1.0/4 - 1.0/2 // column 0 sums to 4
	if math.Abs(w.At(0, 0)-want) > 1e-12 {
		t.Fatalf("w[0,0] = %f, want %f", w.At(0, 0), want)
	}
}
