// Package gridworld is a deterministic N×N grid collaborator used by the
// end-to-end tests and the rollout demo command. Its transition and
// observation functions match the model tensors produced by BuildModel
// exactly: one hidden-state factor of N*N cells, one fully observable
// modality (identity likelihood), and five actions.
package gridworld

import (
	"fmt"

	"github.com/danielpatrickdp/active-agent/internal/model"
	"github.com/danielpatrickdp/active-agent/internal/tensor"
)

// #region cells

// Action indices.
const (
	Stay = iota
	Up
	Down
	Left
	Right
	NumActions
)

// Cell addresses a grid position.
type Cell struct {
	Row int
	Col int
}

// Index flattens the cell for a grid of the given size.
func (c Cell) Index(size int) int { return c.Row*size + c.Col }

// CellAt unflattens a state index.
func CellAt(idx, size int) Cell { return Cell{Row: idx / size, Col: idx % size} }

// Distance is the 4-neighbor graph distance between two cells.
func Distance(a, b Cell) int {
	return abs(a.Row-b.Row) + abs(a.Col-b.Col)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// move applies an action with wall clamping.
func move(c Cell, a, size int) Cell {
	switch a {
	case Up:
		if c.Row > 0 {
			c.Row--
		}
	case Down:
		if c.Row < size-1 {
			c.Row++
		}
	case Left:
		if c.Col > 0 {
			c.Col--
		}
	case Right:
		if c.Col < size-1 {
			c.Col++
		}
	}
	return c
}

// #endregion cells

// #region model-builder

// BuildModel constructs the generative model matching the simulator: identity
// likelihood, deterministic wall-clamped transitions, uniform preferences,
// a one-hot prior at start, and a goal vector H at goal.
func BuildModel(size, batch int, start, goal Cell) (*model.GenerativeModel, error) {
	if size < 2 {
		return nil, fmt.Errorf("gridworld: size %d too small", size)
	}
	n := size * size

	dims := model.Dims{
		NumObs:      []int{n},
		NumStates:   []int{n},
		NumControls: []int{NumActions},
		Batch:       batch,
	}

	a := tensor.New(batch, n, n)
	b := tensor.New(batch, n, n, NumActions)
	c := tensor.New(batch, n)
	d := tensor.New(batch, n)
	h := tensor.New(batch, n)

	for row := 0; row < batch; row++ {
		for s := 0; s < n; s++ {
			a.Set(1, row, s, s)
			c.Set(1/float64(n), row, s)
			for act := 0; act < NumActions; act++ {
				next := move(CellAt(s, size), act, size).Index(size)
				b.Set(1, row, next, s, act)
			}
		}
		d.Set(1, row, start.Index(size))
		h.Set(1, row, goal.Index(size))
	}

	return model.New(dims, model.Tensors{
		A: []tensor.Dense{a},
		B: []tensor.Dense{b},
		C: []tensor.Dense{c},
		D: []tensor.Dense{d},
		H: []tensor.Dense{h},
	}, model.DefaultBuildConfig())
}

// #endregion model-builder

// #region world

// World is the simulator side: it tracks the true cell per batch row and
// serves observations equal to the flattened cell index.
type World struct {
	size  int
	start Cell
	goal  Cell
	cells []Cell // per batch row
}

// New creates a world with every row at start.
func New(size, batch int, start, goal Cell) *World {
	cells := make([]Cell, batch)
	for i := range cells {
		cells[i] = start
	}
	return &World{size: size, start: start, goal: goal, cells: cells}
}

// Reset places every row back at start and returns the initial observations.
func (w *World) Reset() ([][]int, error) {
	for i := range w.cells {
		w.cells[i] = w.start
	}
	return w.observe(), nil
}

// Step applies one action per row and returns the next observations.
func (w *World) Step(actions [][]int) ([][]int, error) {
	if len(actions) != len(w.cells) {
		return nil, fmt.Errorf("gridworld: %d action rows for batch %d", len(actions), len(w.cells))
	}
	for row := range w.cells {
		w.cells[row] = move(w.cells[row], actions[row][0], w.size)
	}
	return w.observe(), nil
}

func (w *World) observe() [][]int {
	obs := make([][]int, len(w.cells))
	for row, c := range w.cells {
		obs[row] = []int{c.Index(w.size)}
	}
	return obs
}

// Position returns the true cell for one batch row.
func (w *World) Position(row int) Cell { return w.cells[row] }

// Goal returns the goal cell.
func (w *World) Goal() Cell { return w.goal }

// AtGoal reports whether the row has reached the goal.
func (w *World) AtGoal(row int) bool { return w.cells[row] == w.goal }

// #endregion world
