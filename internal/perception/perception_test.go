package perception

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/active-agent/internal/model"
	"github.com/danielpatrickdp/active-agent/internal/tensor"
)

// identityModel builds a fully observable single-factor model with n states
// and a uniform prior.
func identityModel(t *testing.T, n int) *model.GenerativeModel {
	t.Helper()
	dims := model.Dims{NumObs: []int{n}, NumStates: []int{n}, NumControls: []int{1}, Batch: 1}

	a := tensor.New(1, n, n)
	b := tensor.New(1, n, n, 1)
	for s := 0; s < n; s++ {
		a.Set(1, 0, s, s)
		b.Set(1, 0, s, s, 0)
	}
	c := tensor.New(1, n)
	d := tensor.New(1, n)
	for i := 0; i < n; i++ {
		c.Set(1/float64(n), 0, i)
		d.Set(1/float64(n), 0, i)
	}

	g, err := model.New(dims, model.Tensors{
		A: []tensor.Dense{a}, B: []tensor.Dense{b},
		C: []tensor.Dense{c}, D: []tensor.Dense{d},
	}, model.DefaultBuildConfig())
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	return g
}

// noisyModel builds a single-factor 2-state model with a soft likelihood.
func noisyModel(t *testing.T) *model.GenerativeModel {
	t.Helper()
	dims := model.Dims{NumObs: []int{2}, NumStates: []int{2}, NumControls: []int{1}, Batch: 1}

	a, _ := tensor.FromSlice([]float64{0.8, 0.3, 0.2, 0.7}, 1, 2, 2)
	b := tensor.New(1, 2, 2, 1)
	b.Set(1, 0, 0, 0, 0)
	b.Set(1, 0, 1, 1, 0)
	c, _ := tensor.FromSlice([]float64{0.5, 0.5}, 1, 2)
	d, _ := tensor.FromSlice([]float64{0.6, 0.4}, 1, 2)

	g, err := model.New(dims, model.Tensors{
		A: []tensor.Dense{a}, B: []tensor.Dense{b},
		C: []tensor.Dense{c}, D: []tensor.Dense{d},
	}, model.DefaultBuildConfig())
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	return g
}

func TestInferStatesIdentityIsOneHot(t *testing.T) {
	g := identityModel(t, 4)
	res, err := InferStates(g, [][]int{{2}}, g.InitialBelief(), DefaultConfig())
	if err != nil {
		t.Fatalf("InferStates: %v", err)
	}
	q := res.Qs.Qs[0][0]
	if q[2] < 0.999 {
		t.Fatalf("expected near one-hot at state 2, got %v", q)
	}
	if !res.Converged[0] {
		t.Fatalf("identity model should converge, residual %e after %d sweeps", res.Residual[0], res.Sweeps[0])
	}
}

func TestInferStatesPosteriorNormalized(t *testing.T) {
	g := noisyModel(t)
	res, err := InferStates(g, [][]int{{0}}, g.InitialBelief(), DefaultConfig())
	if err != nil {
		t.Fatalf("InferStates: %v", err)
	}
	if !tensor.IsNormalized(res.Qs.Qs[0][0], 1e-9) {
		t.Fatalf("posterior not normalized: %v", res.Qs.Qs[0][0])
	}
}

func TestInferStatesMatchesBayesSingleFactor(t *testing.T) {
	// With one factor the fixed point is exact Bayes:
	// q(s) prop A[o,s] * prior(s).
	g := noisyModel(t)
	res, err := InferStates(g, [][]int{{0}}, g.InitialBelief(), DefaultConfig())
	if err != nil {
		t.Fatalf("InferStates: %v", err)
	}
	post := []float64{0.8 * 0.6, 0.3 * 0.4}
	tensor.Normalize(post)
	for s := range post {
		if math.Abs(res.Qs.Qs[0][0][s]-post[s]) > 1e-9 {
			t.Fatalf("posterior %v, want %v", res.Qs.Qs[0][0], post)
		}
	}
}

func TestInferStatesIsPure(t *testing.T) {
	g := noisyModel(t)
	prior := g.InitialBelief()
	a, err := InferStates(g, [][]int{{1}}, prior, DefaultConfig())
	if err != nil {
		t.Fatalf("InferStates: %v", err)
	}
	b, err := InferStates(g, [][]int{{1}}, prior, DefaultConfig())
	if err != nil {
		t.Fatalf("InferStates: %v", err)
	}
	if diff := cmp.Diff(a.Qs, b.Qs); diff != "" {
		t.Fatalf("repeated inference diverged:\n%s", diff)
	}
	if prior.Qs[0][0][0] != 0.6 {
		t.Fatalf("prior was mutated: %v", prior.Qs[0][0])
	}
}

func TestInferStatesRejectsBadObservation(t *testing.T) {
	g := identityModel(t, 3)
	if _, err := InferStates(g, [][]int{{3}}, g.InitialBelief(), DefaultConfig()); err == nil {
		t.Fatal("expected error for out-of-range observation")
	}
	if _, err := InferStates(g, [][]int{{0}, {0}}, g.InitialBelief(), DefaultConfig()); err == nil {
		t.Fatal("expected error for batch size mismatch")
	}
	if _, err := InferStates(g, [][]int{{0, 0}}, g.InitialBelief(), DefaultConfig()); err == nil {
		t.Fatal("expected error for modality count mismatch")
	}
}

func TestInferStatesSweepCapReported(t *testing.T) {
	g := noisyModel(t)
	cfg := Config{MaxSweeps: 1, Tol: 1e-12}
	res, err := InferStates(g, [][]int{{0}}, g.InitialBelief(), cfg)
	if err != nil {
		t.Fatalf("InferStates: %v", err)
	}
	if res.Sweeps[0] != 1 {
		t.Fatalf("expected 1 sweep, got %d", res.Sweeps[0])
	}
	if res.Converged[0] {
		t.Fatal("one sweep under a tight tolerance should not report convergence")
	}
	ws := res.Warnings()
	if len(ws) != 1 || ws[0].Row != 0 {
		t.Fatalf("expected one warning for row 0, got %v", ws)
	}
}
