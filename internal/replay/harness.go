package replay

import (
	"fmt"

	"github.com/danielpatrickdp/active-agent/internal/agent"
	"github.com/danielpatrickdp/active-agent/internal/store"
	"github.com/danielpatrickdp/active-agent/internal/tensor"
)

// #region types

// Outcome captures one replayed timestep.
type Outcome struct {
	Step    int
	Actions [][]int // [row][factor]
	// Expected holds the recorded actions when the source had them; nil
	// otherwise. Match is true when Actions equals Expected.
	Expected [][]int
	Match    bool

	Converged        bool    // every batch row's state estimation settled
	PosteriorEntropy float64 // policy-posterior entropy, batch row 0
}

// Summary aggregates a replay run.
type Summary struct {
	TotalSteps int
	Matches    int
	Mismatches int
	Unchecked  int
	Final      agent.LoopState
}

// #endregion types

// #region run

// Run replays a recorded observation sequence through the full per-step
// pipeline entirely in memory: perception, policy evaluation, action
// selection, prior propagation. expected may be nil or hold one recorded
// action set per step for comparison.
func Run(a *agent.Agent, observations [][][]int, expected [][][]int) ([]Outcome, Summary, error) {
	if expected != nil && len(expected) != len(observations) {
		return nil, Summary{}, fmt.Errorf("replay: %d expected action sets for %d observations", len(expected), len(observations))
	}

	st := a.Init()
	outcomes := make([]Outcome, 0, len(observations))
	var sum Summary

	for i, obs := range observations {
		res, next, err := a.Step(st, obs)
		if err != nil {
			return outcomes, sum, fmt.Errorf("replay step %d: %w", i, err)
		}
		st = next

		out := Outcome{
			Step:             i,
			Actions:          res.Actions,
			Converged:        allConverged(res.Perception.Converged),
			PosteriorEntropy: tensor.Entropy(res.Planning.Posterior[0]),
		}
		if expected != nil {
			out.Expected = expected[i]
			out.Match = actionsEqual(res.Actions, expected[i])
			if out.Match {
				sum.Matches++
			} else {
				sum.Mismatches++
			}
		} else {
			sum.Unchecked++
		}
		outcomes = append(outcomes, out)
	}

	sum.TotalSteps = len(outcomes)
	sum.Final = st
	return outcomes, sum, nil
}

func allConverged(flags []bool) bool {
	for _, ok := range flags {
		if !ok {
			return false
		}
	}
	return true
}

func actionsEqual(a, b [][]int) bool {
	if len(a) != len(b) {
		return false
	}
	for row := range a {
		if len(a[row]) != len(b[row]) {
			return false
		}
		for f := range a[row] {
			if a[row][f] != b[row][f] {
				return false
			}
		}
	}
	return true
}

// #endregion run

// #region db-extract

// FromSteps extracts the observation and action sequences from persisted
// step records, for replaying a stored rollout against a rebuilt model.
func FromSteps(steps []store.StepRecord) (observations, actions [][][]int) {
	for _, s := range steps {
		observations = append(observations, s.Observations)
		actions = append(actions, s.Actions)
	}
	return observations, actions
}

// #endregion db-extract
