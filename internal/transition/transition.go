package transition

import (
	"github.com/danielpatrickdp/active-agent/internal/action"
	"github.com/danielpatrickdp/active-agent/internal/model"
	"github.com/danielpatrickdp/active-agent/internal/tensor"
)

// #region history

// History is the append-only log of past beliefs and chosen actions. It is
// owned by the caller's rollout loop; Append returns a new value sharing the
// prefix, so prior entries are never mutated.
type History struct {
	Beliefs []model.Belief
	Actions [][][]int // [step][row][factor]
}

// Append returns a history extended by one (belief, actions) entry.
func (h History) Append(bel model.Belief, actions [][]int) History {
	return History{
		Beliefs: append(h.Beliefs[:len(h.Beliefs):len(h.Beliefs)], bel),
		Actions: append(h.Actions[:len(h.Actions):len(h.Actions)], actions),
	}
}

// Len returns the number of recorded steps.
func (h History) Len() int { return len(h.Beliefs) }

// #endregion history

// #region update-empirical-prior

// UpdateEmpiricalPrior propagates the posterior belief through the chosen
// actions to produce the next timestep's prior: for each factor the
// transition slice selected by the action is applied as a matrix-vector
// product. actions is [row][factor].
func UpdateEmpiricalPrior(g *model.GenerativeModel, actions [][]int, bel model.Belief) (model.Belief, error) {
	dims := g.Dims()
	next := model.NewBelief(dims)
	for row := 0; row < dims.Batch; row++ {
		for f := 0; f < dims.NumFactors(); f++ {
			a := actions[row][f]
			if a < 0 || a >= dims.NumControls[f] {
				return model.Belief{}, &action.InvalidActionError{Factor: f, Action: a, NumControls: dims.NumControls[f]}
			}
			copy(next.Qs[row][f], tensor.ApplyTransition(g.Transition(f, row), bel.Qs[row][f], a))
		}
	}
	return next, nil
}

// #endregion update-empirical-prior
