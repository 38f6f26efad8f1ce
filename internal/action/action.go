package action

import (
	"fmt"
	"math/rand"

	"github.com/danielpatrickdp/active-agent/internal/policy"
	"github.com/danielpatrickdp/active-agent/internal/tensor"
)

// #region selection-mode

// Selection modes for turning first-action marginals into actions.
const (
	// SelectStochastic draws from the marginal using the row's RNG stream.
	SelectStochastic = "stochastic"
	// SelectDeterministic takes the argmax, lowest index on ties. Consumes
	// no randomness.
	SelectDeterministic = "deterministic"
)

// #endregion selection-mode

// #region invalid-action

// InvalidActionError reports an action index outside its factor's declared
// control range. It signals an internal invariant violation, not a
// recoverable condition.
type InvalidActionError struct {
	Factor      int
	Action      int
	NumControls int
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %d for factor %d (controls [0,%d))", e.Action, e.Factor, e.NumControls)
}

// #endregion invalid-action

// #region marginals

// FirstActionMarginals collapses a policy posterior onto the first-timestep
// action of each factor: the posterior mass of all policies sharing a first
// action is summed into that action's bin.
func FirstActionMarginals(policies []policy.Policy, posterior []float64, numControls []int) ([][]float64, error) {
	if len(posterior) != len(policies) {
		return nil, fmt.Errorf("action: posterior length %d for %d policies", len(posterior), len(policies))
	}
	marginals := make([][]float64, len(numControls))
	for f, c := range numControls {
		marginals[f] = make([]float64, c)
	}
	for pi, p := range policies {
		first := p.First()
		for f, a := range first {
			if a < 0 || a >= numControls[f] {
				return nil, &InvalidActionError{Factor: f, Action: a, NumControls: numControls[f]}
			}
			marginals[f][a] += posterior[pi]
		}
	}
	for f := range marginals {
		tensor.Normalize(marginals[f])
	}
	return marginals, nil
}

// #endregion marginals

// #region sampler

// Sampler draws next actions from policy posteriors. Every batch row owns an
// independent, explicitly seeded random stream; the same seed set always
// reproduces the same action sequence, and no shared global generator is
// ever consulted.
type Sampler struct {
	rngs []*rand.Rand
}

// NewSampler creates one RNG stream per batch row from the given seeds.
func NewSampler(seeds []int64) *Sampler {
	rngs := make([]*rand.Rand, len(seeds))
	for i, seed := range seeds {
		rngs[i] = rand.New(rand.NewSource(seed))
	}
	return &Sampler{rngs: rngs}
}

// NumRows returns the batch size the sampler was built for.
func (s *Sampler) NumRows() int { return len(s.rngs) }

// Sample returns one action index per factor per batch row. posterior is
// [row][policy]. In stochastic mode each controllable factor consumes one
// draw from the row's stream via inverse-CDF sampling, so a degenerate
// (one-hot) marginal yields the same action regardless of the drawn value.
// Uncontrollable factors always take the null action without drawing.
func (s *Sampler) Sample(policies []policy.Policy, posterior [][]float64, numControls []int, mode string) ([][]int, error) {
	if len(posterior) != len(s.rngs) {
		return nil, fmt.Errorf("action: posterior has %d rows for %d streams", len(posterior), len(s.rngs))
	}
	actions := make([][]int, len(posterior))
	for row := range posterior {
		marginals, err := FirstActionMarginals(policies, posterior[row], numControls)
		if err != nil {
			return nil, err
		}
		actions[row] = make([]int, len(numControls))
		for f, marginal := range marginals {
			if numControls[f] == 1 {
				actions[row][f] = 0
				continue
			}
			switch mode {
			case SelectDeterministic:
				actions[row][f] = tensor.ArgMax(marginal)
			case SelectStochastic, "":
				actions[row][f] = drawIndex(s.rngs[row], marginal)
			default:
				return nil, fmt.Errorf("action: unknown selection mode %q", mode)
			}
		}
	}
	return actions, nil
}

// drawIndex inverts the CDF at a uniform draw.
func drawIndex(rng *rand.Rand, p []float64) int {
	u := rng.Float64()
	var cum float64
	for i, x := range p {
		cum += x
		if u < cum {
			return i
		}
	}
	return len(p) - 1
}

// #endregion sampler
