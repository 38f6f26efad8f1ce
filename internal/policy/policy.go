package policy

import (
	"fmt"
	"sync"
)

// #region policy

// Policy is a fixed-length candidate action sequence: Actions[t][factor] is
// the action index for one factor at step t of the planning horizon.
type Policy struct {
	Actions [][]int
}

// Len returns the planning horizon covered by the policy.
func (p Policy) Len() int { return len(p.Actions) }

// First returns the step-0 action indices.
func (p Policy) First() []int { return p.Actions[0] }

// #endregion policy

// #region construct

// ConstructPolicies enumerates every candidate action sequence: the
// cartesian product of per-factor action ranges (collapsed to the single
// null action when a factor is uncontrollable) repeated policyLen times, in
// lexicographic order with the last factor and the last step varying
// fastest. The count is exactly (prod controls)^policyLen and re-invocation
// with the same arguments yields an identical ordered sequence.
//
// numControls may be nil, in which case every factor is uncontrollable.
func ConstructPolicies(numStates, numControls []int, policyLen int) []Policy {
	if numControls == nil {
		numControls = make([]int, len(numStates))
		for i := range numControls {
			numControls[i] = 1
		}
	}
	if policyLen <= 0 {
		return nil
	}

	combos := actionCombos(numControls)
	total := 1
	for t := 0; t < policyLen; t++ {
		total *= len(combos)
	}

	policies := make([]Policy, total)
	idx := make([]int, policyLen)
	for i := 0; i < total; i++ {
		steps := make([][]int, policyLen)
		for t := 0; t < policyLen; t++ {
			steps[t] = combos[idx[t]]
		}
		policies[i] = Policy{Actions: steps}
		for k := policyLen - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(combos) {
				break
			}
			idx[k] = 0
		}
	}
	return policies
}

// actionCombos enumerates one step's per-factor action combinations in
// lexicographic order.
func actionCombos(numControls []int) [][]int {
	total := 1
	for _, c := range numControls {
		total *= c
	}
	combos := make([][]int, total)
	cur := make([]int, len(numControls))
	for i := 0; i < total; i++ {
		combos[i] = append([]int(nil), cur...)
		for k := len(numControls) - 1; k >= 0; k-- {
			cur[k]++
			if cur[k] < numControls[k] {
				break
			}
			cur[k] = 0
		}
	}
	return combos
}

// #endregion construct

// #region enumerator

// Enumerator caches policy sets per (numControls, policyLen) configuration.
// Cached slices are shared and must be treated as immutable by callers.
type Enumerator struct {
	mu    sync.Mutex
	cache map[string][]Policy
}

// NewEnumerator returns an empty policy cache.
func NewEnumerator() *Enumerator {
	return &Enumerator{cache: make(map[string][]Policy)}
}

// Policies returns the cached policy set for the configuration, enumerating
// it on first use.
func (e *Enumerator) Policies(numStates, numControls []int, policyLen int) []Policy {
	key := fmt.Sprintf("%v|%d", numControls, policyLen)
	e.mu.Lock()
	defer e.mu.Unlock()
	if ps, ok := e.cache[key]; ok {
		return ps
	}
	ps := ConstructPolicies(numStates, numControls, policyLen)
	e.cache[key] = ps
	return ps
}

// #endregion enumerator
