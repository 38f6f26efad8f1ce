package model

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/active-agent/internal/tensor"
)

// #region generative-model

// GenerativeModel is an immutable container for the A/B/C/D/E/H tensors of a
// discrete active-inference agent. Construction validates every shape and
// every distribution axis; thereafter the model is read-only.
type GenerativeModel struct {
	dims Dims

	a []tensor.Dense
	b []tensor.Dense
	c []tensor.Dense
	d []tensor.Dense

	e  *tensor.Dense
	h  []tensor.Dense
	pA []tensor.Dense
	pB []tensor.Dense
}

// #endregion generative-model

// #region constructor

// New validates the tensors against dims and returns a model. Any axis
// inconsistency yields a *ShapeMismatchError; any distribution axis off by
// more than cfg.Tolerance yields a *NormalizationError unless
// cfg.Renormalize is set, in which case the axis is rescaled in place.
// Validation failures never return a partial model.
func New(dims Dims, t Tensors, cfg BuildConfig) (*GenerativeModel, error) {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultBuildConfig().Tolerance
	}
	if len(dims.NumControls) != len(dims.NumStates) {
		return nil, fmt.Errorf("model: %d control entries for %d factors", len(dims.NumControls), len(dims.NumStates))
	}
	if err := checkCounts(dims, t); err != nil {
		return nil, err
	}
	if err := checkShapes(dims, t); err != nil {
		return nil, err
	}
	if err := checkNormalization(t, cfg); err != nil {
		return nil, err
	}
	return &GenerativeModel{
		dims: dims,
		a:    t.A, b: t.B, c: t.C, d: t.D,
		e: t.E, h: t.H, pA: t.PA, pB: t.PB,
	}, nil
}

func checkCounts(dims Dims, t Tensors) error {
	m, f := dims.NumModalities(), dims.NumFactors()
	switch {
	case len(t.A) != m:
		return fmt.Errorf("model: %d A tensors for %d modalities", len(t.A), m)
	case len(t.C) != m:
		return fmt.Errorf("model: %d C tensors for %d modalities", len(t.C), m)
	case len(t.B) != f:
		return fmt.Errorf("model: %d B tensors for %d factors", len(t.B), f)
	case len(t.D) != f:
		return fmt.Errorf("model: %d D tensors for %d factors", len(t.D), f)
	case t.H != nil && len(t.H) != f:
		return fmt.Errorf("model: %d H tensors for %d factors", len(t.H), f)
	case t.PA != nil && len(t.PA) != m:
		return fmt.Errorf("model: %d pA tensors for %d modalities", len(t.PA), m)
	case t.PB != nil && len(t.PB) != f:
		return fmt.Errorf("model: %d pB tensors for %d factors", len(t.PB), f)
	}
	return nil
}

func checkShapes(dims Dims, t Tensors) error {
	likeShape := func(m int) []int {
		return append([]int{dims.Batch, dims.NumObs[m]}, dims.NumStates...)
	}
	for m := range t.A {
		if err := wantShape(fmt.Sprintf("A[%d]", m), t.A[m], likeShape(m)); err != nil {
			return err
		}
		if err := wantShape(fmt.Sprintf("C[%d]", m), t.C[m], []int{dims.Batch, dims.NumObs[m]}); err != nil {
			return err
		}
	}
	for f := range t.B {
		want := []int{dims.Batch, dims.NumStates[f], dims.NumStates[f], dims.NumControls[f]}
		if err := wantShape(fmt.Sprintf("B[%d]", f), t.B[f], want); err != nil {
			return err
		}
		if err := wantShape(fmt.Sprintf("D[%d]", f), t.D[f], []int{dims.Batch, dims.NumStates[f]}); err != nil {
			return err
		}
	}
	for f := range t.H {
		if err := wantShape(fmt.Sprintf("H[%d]", f), t.H[f], []int{dims.Batch, dims.NumStates[f]}); err != nil {
			return err
		}
	}
	for m := range t.PA {
		if err := wantShape(fmt.Sprintf("pA[%d]", m), t.PA[m], likeShape(m)); err != nil {
			return err
		}
	}
	for f := range t.PB {
		want := []int{dims.Batch, dims.NumStates[f], dims.NumStates[f], dims.NumControls[f]}
		if err := wantShape(fmt.Sprintf("pB[%d]", f), t.PB[f], want); err != nil {
			return err
		}
	}
	if t.E != nil {
		if len(t.E.Shape) != 2 || t.E.Shape[0] != dims.Batch {
			return &ShapeMismatchError{Tensor: "E", Got: t.E.Shape, Want: []int{dims.Batch, -1}}
		}
	}
	return nil
}

func wantShape(name string, t tensor.Dense, want []int) error {
	if len(t.Shape) != len(want) {
		return &ShapeMismatchError{Tensor: name, Got: t.Shape, Want: want}
	}
	for i, d := range want {
		if t.Shape[i] != d {
			return &ShapeMismatchError{Tensor: name, Got: t.Shape, Want: want}
		}
	}
	return nil
}

// checkNormalization verifies (or repairs) every distribution-bearing axis:
// the obs axis of each A, the next-state axis of each B, and the single axis
// of each C, D, and E row. H, pA, pB carry masks and pseudo-counts, not
// distributions, and are shape-checked only.
func checkNormalization(t Tensors, cfg BuildConfig) error {
	for m := range t.A {
		if err := checkLeadingAxis(fmt.Sprintf("A[%d]", m), t.A[m], cfg); err != nil {
			return err
		}
	}
	for f := range t.B {
		if err := checkLeadingAxis(fmt.Sprintf("B[%d]", f), t.B[f], cfg); err != nil {
			return err
		}
	}
	for m := range t.C {
		if err := checkLeadingAxis(fmt.Sprintf("C[%d]", m), t.C[m], cfg); err != nil {
			return err
		}
	}
	for f := range t.D {
		if err := checkLeadingAxis(fmt.Sprintf("D[%d]", f), t.D[f], cfg); err != nil {
			return err
		}
	}
	if t.E != nil {
		if err := checkLeadingAxis("E", *t.E, cfg); err != nil {
			return err
		}
	}
	return nil
}

// checkLeadingAxis treats axis 1 of a batched tensor [batch, dist, rest...]
// as the distribution axis and verifies each column sums to 1.
func checkLeadingAxis(name string, t tensor.Dense, cfg BuildConfig) error {
	for b := 0; b < t.Shape[0]; b++ {
		row := t.SliceLeading(b)
		n := row.Shape[0]
		block := row.Len() / n
		for j := 0; j < block; j++ {
			var sum float64
			for i := 0; i < n; i++ {
				sum += row.Data[i*block+j]
			}
			if math.Abs(sum-1) <= cfg.Tolerance {
				continue
			}
			if !cfg.Renormalize {
				return &NormalizationError{Tensor: name, Row: b, Sum: sum, Tol: cfg.Tolerance}
			}
			if sum <= 0 {
				return &NormalizationError{Tensor: name, Row: b, Sum: sum, Tol: cfg.Tolerance}
			}
			for i := 0; i < n; i++ {
				row.Data[i*block+j] /= sum
			}
		}
	}
	return nil
}

// #endregion constructor

// #region accessors

// Dims returns the declared dimensionality.
func (g *GenerativeModel) Dims() Dims { return g.dims }

// Likelihood returns the A tensor view for one modality and batch row:
// shape [obs_m, s_1, ..., s_F].
func (g *GenerativeModel) Likelihood(m, row int) tensor.Dense { return g.a[m].SliceLeading(row) }

// Likelihoods returns all modality views for one batch row.
func (g *GenerativeModel) Likelihoods(row int) []tensor.Dense {
	out := make([]tensor.Dense, len(g.a))
	for m := range g.a {
		out[m] = g.a[m].SliceLeading(row)
	}
	return out
}

// Transition returns the B tensor view for one factor and batch row:
// shape [s_f, s_f, controls_f].
func (g *GenerativeModel) Transition(f, row int) tensor.Dense { return g.b[f].SliceLeading(row) }

// Preference returns the C vector for one modality and batch row.
func (g *GenerativeModel) Preference(m, row int) []float64 { return g.c[m].SliceLeading(row).Data }

// Prior returns the D vector for one factor and batch row.
func (g *GenerativeModel) Prior(f, row int) []float64 { return g.d[f].SliceLeading(row).Data }

// HasGoals reports whether inductive goal vectors were supplied.
func (g *GenerativeModel) HasGoals() bool { return g.h != nil }

// Goal returns the H vector for one factor and batch row.
func (g *GenerativeModel) Goal(f, row int) []float64 { return g.h[f].SliceLeading(row).Data }

// HasPolicyPrior reports whether an E tensor was supplied.
func (g *GenerativeModel) HasPolicyPrior() bool { return g.e != nil }

// PolicyPrior returns the E vector for one batch row.
func (g *GenerativeModel) PolicyPrior(row int) []float64 { return g.e.SliceLeading(row).Data }

// HasPseudoA reports whether Dirichlet pseudo-counts over A were supplied.
func (g *GenerativeModel) HasPseudoA() bool { return g.pA != nil }

// PseudoA returns the pA view for one modality and batch row.
func (g *GenerativeModel) PseudoA(m, row int) tensor.Dense { return g.pA[m].SliceLeading(row) }

// HasPseudoB reports whether Dirichlet pseudo-counts over B were supplied.
func (g *GenerativeModel) HasPseudoB() bool { return g.pB != nil }

// PseudoB returns the pB view for one factor and batch row.
func (g *GenerativeModel) PseudoB(f, row int) tensor.Dense { return g.pB[f].SliceLeading(row) }

// InitialBelief copies D into a fresh belief, the empirical prior for the
// first timestep of a rollout.
func (g *GenerativeModel) InitialBelief() Belief {
	bel := NewBelief(g.dims)
	for row := 0; row < g.dims.Batch; row++ {
		for f := range g.dims.NumStates {
			copy(bel.Qs[row][f], g.Prior(f, row))
		}
	}
	return bel
}

// #endregion accessors
