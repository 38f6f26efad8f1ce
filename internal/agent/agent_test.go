package agent

import (
	"reflect"
	"testing"

	"github.com/danielpatrickdp/active-agent/internal/action"
	"github.com/danielpatrickdp/active-agent/internal/gridworld"
	"github.com/danielpatrickdp/active-agent/internal/planning"
)

// goalSeekingConfig plans one step ahead with the inductive term driving the
// agent toward the grid goal, argmax selection.
func goalSeekingConfig(depth int) Config {
	cfg := DefaultConfig()
	cfg.Selection = action.SelectDeterministic
	cfg.Planning.UseInductive = true
	cfg.Planning.InductiveWeight = 1
	cfg.Planning.InductiveDepth = depth
	return cfg
}

func gridAgent(t *testing.T, size int, start, goal gridworld.Cell, cfg Config) (*Agent, *gridworld.World) {
	t.Helper()
	g, err := gridworld.BuildModel(size, 1, start, goal)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	a, err := New(g, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, gridworld.New(size, 1, start, goal)
}

func TestAgentReachesGridGoal(t *testing.T) {
	start := gridworld.Cell{Row: 3, Col: 3}
	goal := gridworld.Cell{Row: 6, Col: 6}
	a, world := gridAgent(t, 7, start, goal, goalSeekingConfig(7))

	obs, err := world.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	st := a.Init()
	prev := gridworld.Distance(start, goal)
	for i := 0; i < prev; i++ {
		res, next, err := a.Step(st, obs)
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		st = next
		obs, err = world.Step(res.Actions)
		if err != nil {
			t.Fatalf("world.Step %d: %v", i, err)
		}
		d := gridworld.Distance(world.Position(0), goal)
		if d >= prev {
			t.Fatalf("step %d: distance %d did not decrease from %d", i, d, prev)
		}
		prev = d
	}
	if !world.AtGoal(0) {
		t.Fatalf("expected goal after %d steps, at %v", gridworld.Distance(start, goal), world.Position(0))
	}
}

func TestAgentRolloutDrivesEnvironment(t *testing.T) {
	start := gridworld.Cell{Row: 0, Col: 0}
	goal := gridworld.Cell{Row: 2, Col: 2}
	a, world := gridAgent(t, 3, start, goal, goalSeekingConfig(6))

	out, err := a.Rollout(world, 4)
	if err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	if len(out.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(out.Steps))
	}
	if !world.AtGoal(0) {
		t.Fatalf("expected goal after rollout, at %v", world.Position(0))
	}
	if out.Final.Step != 4 || out.Final.History.Len() != 4 {
		t.Fatalf("unexpected final state: step %d, history %d", out.Final.Step, out.Final.History.Len())
	}
}

func TestStepDoesNotMutateLoopState(t *testing.T) {
	a, world := gridAgent(t, 3, gridworld.Cell{}, gridworld.Cell{Row: 2, Col: 2}, goalSeekingConfig(6))
	obs, _ := world.Reset()

	st := a.Init()
	before := st.Prior.Clone()
	res, next, err := a.Step(st, obs)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !reflect.DeepEqual(st.Prior, before) {
		t.Fatal("input prior was mutated")
	}
	if st.Step != 0 || next.Step != 1 {
		t.Fatalf("step counters wrong: %d -> %d", st.Step, next.Step)
	}
	if next.History.Len() != 1 {
		t.Fatalf("expected history length 1, got %d", next.History.Len())
	}
	if res.Step != 0 {
		t.Fatalf("result step should be 0, got %d", res.Step)
	}
}

func TestAgentStochasticReproducibleAcrossRuns(t *testing.T) {
	run := func() [][]int {
		g, err := gridworld.BuildModel(3, 1, gridworld.Cell{}, gridworld.Cell{Row: 2, Col: 2})
		if err != nil {
			t.Fatalf("BuildModel: %v", err)
		}
		cfg := DefaultConfig()
		cfg.Seeds = []int64{99}
		a, err := New(g, cfg, nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		world := gridworld.New(3, 1, gridworld.Cell{}, gridworld.Cell{Row: 2, Col: 2})
		out, err := a.Rollout(world, 5)
		if err != nil {
			t.Fatalf("Rollout: %v", err)
		}
		var actions [][]int
		for _, s := range out.Steps {
			actions = append(actions, s.Actions[0])
		}
		return actions
	}

	if !reflect.DeepEqual(run(), run()) {
		t.Fatal("same seeds should reproduce the same rollout")
	}
}

func TestNewRejectsSeedCountMismatch(t *testing.T) {
	g, err := gridworld.BuildModel(3, 2, gridworld.Cell{}, gridworld.Cell{Row: 2, Col: 2})
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Seeds = []int64{1}
	if _, err := New(g, cfg, nil); err == nil {
		t.Fatal("expected error for 1 seed with batch 2")
	}
}

func TestNewDefaultsHorizonAndSelection(t *testing.T) {
	g, err := gridworld.BuildModel(3, 1, gridworld.Cell{}, gridworld.Cell{Row: 2, Col: 2})
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	a, err := New(g, Config{Planning: planning.DefaultConfig()}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(a.Policies()) != gridworld.NumActions {
		t.Fatalf("horizon should default to 1: %d policies", len(a.Policies()))
	}
}
