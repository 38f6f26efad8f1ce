package planning

import "github.com/danielpatrickdp/active-agent/internal/model"

// Inductive planning rewards policies that move predicted belief closer to
// the goal states declared in H, measured as shortest-path distance through
// the transition structure.

// #region distance

// goalDistances computes, for one batch row and factor, the shortest-path
// distance from every state to the goal set: a breadth-first search backward
// from the states where H is set, following transition entries whose
// probability exceeds the threshold under any action. Distances are capped
// at depth; states unreachable within depth also take the cap, so no
// gradient exists beyond the lookahead horizon.
func goalDistances(g *model.GenerativeModel, row, f, depth int, threshold float64) []float64 {
	n := g.Dims().NumStates[f]
	b := g.Transition(f, row)
	goal := g.Goal(f, row)

	const unvisited = -1
	dist := make([]int, n)
	var frontier []int
	for s := range dist {
		if goal[s] > threshold {
			dist[s] = 0
			frontier = append(frontier, s)
		} else {
			dist[s] = unvisited
		}
	}

	// predecessors[s'] = states s with an above-threshold edge s -> s'
	numActions := g.Dims().NumControls[f]
	preds := make([][]int, n)
	for s := 0; s < n; s++ {
		for a := 0; a < numActions; a++ {
			for sp := 0; sp < n; sp++ {
				if b.At(sp, s, a) > threshold {
					preds[sp] = append(preds[sp], s)
				}
			}
		}
	}

	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []int
		for _, sp := range frontier {
			for _, s := range preds[sp] {
				if dist[s] == unvisited {
					dist[s] = d
					next = append(next, s)
				}
			}
		}
		frontier = next
	}

	out := make([]float64, n)
	for s, d := range dist {
		if d == unvisited {
			d = depth
		}
		out[s] = float64(d)
	}
	return out
}

// #endregion distance

// #region term

// inductiveTerm scores the per-step reduction in expected goal distance.
type inductiveTerm struct{}

func (inductiveTerm) Name() string { return "inductive" }

func (inductiveTerm) Score(ev *Evaluator, row int, prior [][]float64, ro Rollout) float64 {
	if ev.cfg.InductiveDepth == 0 || ev.dist == nil {
		return 0
	}
	var value float64
	prev := prior
	for t := range ro.Qs {
		cur := ro.Qs[t]
		for f := range cur {
			value += expectedDistance(prev[f], ev.dist[row][f], ev.cfg.InductiveThreshold) -
				expectedDistance(cur[f], ev.dist[row][f], ev.cfg.InductiveThreshold)
		}
		prev = cur
	}
	return value
}

// expectedDistance averages the distance table under q, counting only mass
// above the threshold.
func expectedDistance(q, dist []float64, threshold float64) float64 {
	var acc float64
	for s, p := range q {
		if p > threshold {
			acc += p * dist[s]
		}
	}
	return acc
}

// #endregion term
