package model

import "github.com/danielpatrickdp/active-agent/internal/tensor"

// #region dims

// Dims declares the discrete dimensionality of a generative model.
type Dims struct {
	NumObs      []int // per-modality outcome cardinality
	NumStates   []int // per-factor hidden-state cardinality
	NumControls []int // per-factor action cardinality, 1 = uncontrollable
	Batch       int   // leading axis shared by every tensor
}

// NumModalities returns the observation channel count.
func (d Dims) NumModalities() int { return len(d.NumObs) }

// NumFactors returns the hidden-state factor count.
func (d Dims) NumFactors() int { return len(d.NumStates) }

// #endregion dims

// #region tensors

// Tensors bundles the raw model tensors handed to New. A, B, C, D are
// required; E, H, PA, PB are optional and may be nil.
type Tensors struct {
	A []tensor.Dense // per modality: [batch, obs_m, s_1, ..., s_F]
	B []tensor.Dense // per factor:   [batch, s_f, s_f, controls_f]
	C []tensor.Dense // per modality: [batch, obs_m]
	D []tensor.Dense // per factor:   [batch, s_f]

	E  *tensor.Dense  // policy prior: [batch, num_policies]
	H  []tensor.Dense // per factor goal mask: [batch, s_f]
	PA []tensor.Dense // Dirichlet pseudo-counts over A, same shapes as A
	PB []tensor.Dense // Dirichlet pseudo-counts over B, same shapes as B
}

// #endregion tensors

// #region belief

// Belief holds one categorical distribution per hidden-state factor for
// every batch row: Qs[row][factor][state]. Beliefs are produced fresh each
// timestep and owned by the rollout loop, never by the model.
type Belief struct {
	Qs [][][]float64
}

// NewBelief allocates a zeroed belief for the given dims.
func NewBelief(d Dims) Belief {
	qs := make([][][]float64, d.Batch)
	for b := range qs {
		qs[b] = make([][]float64, d.NumFactors())
		for f, n := range d.NumStates {
			qs[b][f] = make([]float64, n)
		}
	}
	return Belief{Qs: qs}
}

// Clone returns a deep copy.
func (b Belief) Clone() Belief {
	out := Belief{Qs: make([][][]float64, len(b.Qs))}
	for i, row := range b.Qs {
		out.Qs[i] = make([][]float64, len(row))
		for f, q := range row {
			out.Qs[i][f] = append([]float64(nil), q...)
		}
	}
	return out
}

// NumRows returns the batch size.
func (b Belief) NumRows() int { return len(b.Qs) }

// #endregion belief

// #region build-config

// BuildConfig controls construction-time validation.
type BuildConfig struct {
	// Tolerance bounds |sum - 1| on every distribution axis.
	Tolerance float64
	// Renormalize rescales off-by-more-than-tolerance axes instead of
	// failing. Default is false: construction fails fast and no partial
	// model is ever returned.
	Renormalize bool
}

// DefaultBuildConfig returns the fail-fast defaults.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{Tolerance: 1e-4, Renormalize: false}
}

// #endregion build-config
