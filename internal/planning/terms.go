package planning

import (
	"github.com/danielpatrickdp/active-agent/internal/tensor"
)

// Term is one independent expected-free-energy scoring strategy. The
// evaluator sums enabled terms over each policy's rollout; new terms slot in
// without touching the evaluator's control flow.
type Term interface {
	Name() string
	Score(ev *Evaluator, row int, prior [][]float64, ro Rollout) float64
}

// #region utility

// utilityTerm is the risk term: expected log-preference of predicted
// observations under C.
type utilityTerm struct{}

func (utilityTerm) Name() string { return "utility" }

func (utilityTerm) Score(ev *Evaluator, row int, _ [][]float64, ro Rollout) float64 {
	var value float64
	for t := range ro.Qo {
		for m := range ro.Qo[t] {
			lnC := tensor.LogVec(ev.g.Preference(m, row))
			value += tensor.Dot(ro.Qo[t][m], lnC)
		}
	}
	return value
}

// #endregion utility

// #region state-info-gain

// stateInfoTerm is the epistemic value over hidden states: the expected
// reduction in state entropy attributable to the anticipated observation,
// H(q(o)) - E_{q(s)}[H(p(o|s))] summed over modalities and steps.
type stateInfoTerm struct{}

func (stateInfoTerm) Name() string { return "state_info_gain" }

func (stateInfoTerm) Score(ev *Evaluator, row int, _ [][]float64, ro Rollout) float64 {
	var value float64
	for t := range ro.Qs {
		for m := range ro.Qo[t] {
			a := ev.g.Likelihood(m, row)
			value += tensor.Entropy(ro.Qo[t][m]) - tensor.ExpectedColEntropy(a, ro.Qs[t])
		}
	}
	return value
}

// #endregion state-info-gain

// #region param-info-gain

// paramInfoTerm is the novelty term: expected reduction in uncertainty about
// the Dirichlet pseudo-counts pA/pB. Contributes zero when neither is
// present.
type paramInfoTerm struct{}

func (paramInfoTerm) Name() string { return "param_info_gain" }

func (paramInfoTerm) Score(ev *Evaluator, row int, prior [][]float64, ro Rollout) float64 {
	var value float64
	if ev.wA != nil {
		for t := range ro.Qo {
			for m := range ro.Qo[t] {
				expected := tensor.ContractObs(ev.wA[row][m], ro.Qs[t])
				value -= tensor.Dot(ro.Qo[t][m], expected)
			}
		}
	}
	if ev.wB != nil {
		prev := prior
		for t := range ro.Qs {
			for f := range ro.Qs[t] {
				propagated := tensor.ApplyTransition(ev.wB[row][f], prev[f], ro.Actions[t][f])
				value -= tensor.Dot(ro.Qs[t][f], propagated)
			}
			prev = ro.Qs[t]
		}
	}
	return value
}

// wnorm computes the Dirichlet novelty weights for a pseudo-count tensor
// with a leading distribution axis: w = 1/colsum - 1/count, masked where the
// count is (near) zero. Negative entries mean observing that cell would
// still sharpen the parameter posterior.
func wnorm(counts tensor.Dense) tensor.Dense {
	n := counts.Shape[0]
	block := counts.Len() / n
	out := tensor.New(counts.Shape...)
	for j := 0; j < block; j++ {
		var colSum float64
		for i := 0; i < n; i++ {
			colSum += counts.Data[i*block+j]
		}
		if colSum < tensor.Eps {
			continue
		}
		for i := 0; i < n; i++ {
			c := counts.Data[i*block+j]
			if c < tensor.Eps {
				continue
			}
			out.Data[i*block+j] = 1/colSum - 1/c
		}
	}
	return out
}

// #endregion param-info-gain
