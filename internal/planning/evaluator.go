package planning

import (
	"fmt"

	"github.com/danielpatrickdp/active-agent/internal/model"
	"github.com/danielpatrickdp/active-agent/internal/policy"
	"github.com/danielpatrickdp/active-agent/internal/tensor"
)

// #region evaluator

// Evaluator scores every candidate policy against a belief by rolling the
// belief forward through B, deriving predicted observations through A, and
// summing the enabled expected-free-energy terms. The policy set is fixed
// for the evaluator's lifetime.
type Evaluator struct {
	g        *model.GenerativeModel
	policies []policy.Policy
	cfg      Config
	terms    []weightedTerm

	// precomputed per batch row
	dist [][][]float64    // inductive goal distances, [row][factor][state]
	wA   [][]tensor.Dense // Dirichlet novelty weights over A, [row][modality]
	wB   [][]tensor.Dense // Dirichlet novelty weights over B, [row][factor]
}

type weightedTerm struct {
	weight float64
	term   Term
}

// #endregion evaluator

// #region constructor

// NewEvaluator validates the policy set against the model and precomputes
// term-specific tables (goal distances, Dirichlet novelty weights).
func NewEvaluator(g *model.GenerativeModel, policies []policy.Policy, cfg Config) (*Evaluator, error) {
	dims := g.Dims()
	if len(policies) == 0 {
		return nil, fmt.Errorf("planning: empty policy set")
	}
	horizon := policies[0].Len()
	for i, p := range policies {
		if p.Len() != horizon {
			return nil, fmt.Errorf("planning: policy %d has length %d, want %d", i, p.Len(), horizon)
		}
		for t, step := range p.Actions {
			if len(step) != dims.NumFactors() {
				return nil, fmt.Errorf("planning: policy %d step %d has %d factors, want %d", i, t, len(step), dims.NumFactors())
			}
			for f, a := range step {
				if a < 0 || a >= dims.NumControls[f] {
					return nil, fmt.Errorf("planning: policy %d step %d factor %d action %d out of range [0,%d)", i, t, f, a, dims.NumControls[f])
				}
			}
		}
	}
	if g.HasPolicyPrior() {
		if got := len(g.PolicyPrior(0)); got != len(policies) {
			return nil, &model.ShapeMismatchError{Tensor: "E", Got: []int{dims.Batch, got}, Want: []int{dims.Batch, len(policies)}}
		}
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1
	}

	ev := &Evaluator{g: g, policies: policies, cfg: cfg}

	if cfg.UseUtility {
		ev.terms = append(ev.terms, weightedTerm{cfg.UtilityWeight, utilityTerm{}})
	}
	if cfg.UseStatesInfoGain {
		ev.terms = append(ev.terms, weightedTerm{cfg.StateInfoWeight, stateInfoTerm{}})
	}
	if cfg.UseParamInfoGain {
		ev.terms = append(ev.terms, weightedTerm{cfg.ParamInfoWeight, paramInfoTerm{}})
		if g.HasPseudoA() {
			ev.wA = make([][]tensor.Dense, dims.Batch)
			for row := range ev.wA {
				ev.wA[row] = make([]tensor.Dense, dims.NumModalities())
				for m := range ev.wA[row] {
					ev.wA[row][m] = wnorm(g.PseudoA(m, row))
				}
			}
		}
		if g.HasPseudoB() {
			ev.wB = make([][]tensor.Dense, dims.Batch)
			for row := range ev.wB {
				ev.wB[row] = make([]tensor.Dense, dims.NumFactors())
				for f := range ev.wB[row] {
					ev.wB[row][f] = wnorm(g.PseudoB(f, row))
				}
			}
		}
	}
	if cfg.UseInductive {
		ev.terms = append(ev.terms, weightedTerm{cfg.InductiveWeight, inductiveTerm{}})
		if g.HasGoals() && cfg.InductiveDepth > 0 {
			ev.dist = make([][][]float64, dims.Batch)
			for row := range ev.dist {
				ev.dist[row] = make([][]float64, dims.NumFactors())
				for f := range ev.dist[row] {
					ev.dist[row][f] = goalDistances(g, row, f, cfg.InductiveDepth, cfg.InductiveThreshold)
				}
			}
		}
	}

	return ev, nil
}

// Policies returns the evaluator's fixed policy set.
func (ev *Evaluator) Policies() []policy.Policy { return ev.policies }

// #endregion constructor

// #region infer-policies

// InferPolicies scores every policy independently for every batch row and
// normalizes the scores into a policy posterior. Rows never influence each
// other; policies never influence each other; results are stacked
// afterward.
func (ev *Evaluator) InferPolicies(bel model.Belief) (Result, error) {
	dims := ev.g.Dims()
	if bel.NumRows() != dims.Batch {
		return Result{}, fmt.Errorf("planning: belief has %d rows for batch %d", bel.NumRows(), dims.Batch)
	}

	res := Result{
		Posterior: make([][]float64, dims.Batch),
		NegEFE:    make([][]float64, dims.Batch),
		Terms:     make([]TermBreakdown, len(ev.terms)),
	}
	for i, wt := range ev.terms {
		res.Terms[i] = TermBreakdown{Name: wt.term.Name(), Scores: make([][]float64, dims.Batch)}
		for row := range res.Terms[i].Scores {
			res.Terms[i].Scores[row] = make([]float64, len(ev.policies))
		}
	}

	for row := 0; row < dims.Batch; row++ {
		negEFE := make([]float64, len(ev.policies))
		prior := bel.Qs[row]
		for pi, p := range ev.policies {
			ro := ev.rollForward(row, prior, p)
			for i, wt := range ev.terms {
				score := wt.weight * wt.term.Score(ev, row, prior, ro)
				res.Terms[i].Scores[row][pi] = score
				negEFE[pi] += score
			}
		}
		if ev.g.HasPolicyPrior() {
			lnE := tensor.LogVec(ev.g.PolicyPrior(row))
			for pi := range negEFE {
				negEFE[pi] += lnE[pi]
			}
		}

		scaled := make([]float64, len(negEFE))
		for pi, v := range negEFE {
			scaled[pi] = v / ev.cfg.Temperature
		}
		res.NegEFE[row] = negEFE
		res.Posterior[row] = tensor.Softmax(scaled)
	}

	return res, nil
}

// rollForward propagates one batch row's belief through a policy's action
// sequence: one transition contraction per factor per step, then predicted
// observation distributions through the likelihood.
func (ev *Evaluator) rollForward(row int, prior [][]float64, p policy.Policy) Rollout {
	dims := ev.g.Dims()
	horizon := p.Len()
	ro := Rollout{
		Qs:      make([][][]float64, horizon),
		Qo:      make([][][]float64, horizon),
		Actions: p.Actions,
	}
	cur := prior
	for t := 0; t < horizon; t++ {
		next := make([][]float64, dims.NumFactors())
		for f := range next {
			next[f] = tensor.ApplyTransition(ev.g.Transition(f, row), cur[f], p.Actions[t][f])
		}
		qo := make([][]float64, dims.NumModalities())
		for m := range qo {
			qo[m] = tensor.ContractObs(ev.g.Likelihood(m, row), next)
		}
		ro.Qs[t] = next
		ro.Qo[t] = qo
		cur = next
	}
	return ro
}

// #endregion infer-policies
