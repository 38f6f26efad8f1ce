package agent

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/active-agent/internal/action"
	"github.com/danielpatrickdp/active-agent/internal/env"
	"github.com/danielpatrickdp/active-agent/internal/model"
	"github.com/danielpatrickdp/active-agent/internal/perception"
	"github.com/danielpatrickdp/active-agent/internal/planning"
	"github.com/danielpatrickdp/active-agent/internal/policy"
	"github.com/danielpatrickdp/active-agent/internal/tensor"
	"github.com/danielpatrickdp/active-agent/internal/transition"
)

// #region config

// Config assembles the per-component configurations of one agent.
type Config struct {
	// Horizon is the planning depth; the policy set is enumerated once for
	// this horizon and fixed for the agent's lifetime.
	Horizon    int
	Perception perception.Config
	Planning   planning.Config
	// Selection is action.SelectStochastic or action.SelectDeterministic.
	Selection string
	// Seeds provides one RNG seed per batch row. When nil, row indices are
	// used, which is reproducible but shared across runs.
	Seeds []int64
}

// DefaultConfig returns a one-step planner with risk and epistemic terms.
func DefaultConfig() Config {
	return Config{
		Horizon:    1,
		Perception: perception.DefaultConfig(),
		Planning:   planning.DefaultConfig(),
		Selection:  action.SelectStochastic,
	}
}

// #endregion config

// #region agent

// Agent wires the perception/planning/action components around one
// generative model. The per-timestep loop itself is a pure fold over
// LoopState; Agent holds only immutable configuration plus the sampler's
// per-row RNG streams.
type Agent struct {
	g       *model.GenerativeModel
	eval    *planning.Evaluator
	sampler *action.Sampler
	cfg     Config
	log     *zap.Logger
}

// New enumerates the policy set for the configured horizon and wires the
// evaluator and sampler. log may be nil.
func New(g *model.GenerativeModel, cfg Config, log *zap.Logger) (*Agent, error) {
	if cfg.Horizon <= 0 {
		cfg.Horizon = 1
	}
	if cfg.Selection == "" {
		cfg.Selection = action.SelectStochastic
	}
	if log == nil {
		log = zap.NewNop()
	}
	dims := g.Dims()

	policies := policy.ConstructPolicies(dims.NumStates, dims.NumControls, cfg.Horizon)
	eval, err := planning.NewEvaluator(g, policies, cfg.Planning)
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}

	seeds := cfg.Seeds
	if seeds == nil {
		seeds = make([]int64, dims.Batch)
		for i := range seeds {
			seeds[i] = int64(i)
		}
	}
	if len(seeds) != dims.Batch {
		return nil, fmt.Errorf("agent: %d seeds for batch %d", len(seeds), dims.Batch)
	}

	return &Agent{
		g:       g,
		eval:    eval,
		sampler: action.NewSampler(seeds),
		cfg:     cfg,
		log:     log,
	}, nil
}

// Policies returns the enumerated policy set.
func (a *Agent) Policies() []policy.Policy { return a.eval.Policies() }

// Model returns the generative model.
func (a *Agent) Model() *model.GenerativeModel { return a.g }

// #endregion agent

// #region loop-state

// LoopState is the immutable tuple threaded through the rollout fold. The
// initial state uses D as the empirical prior and an empty history.
type LoopState struct {
	Prior   model.Belief
	History transition.History
	Step    int
}

// Init returns the INIT state of a rollout.
func (a *Agent) Init() LoopState {
	return LoopState{Prior: a.g.InitialBelief()}
}

// StepResult bundles one timestep's outputs.
type StepResult struct {
	Step       int
	Belief     model.Belief
	Perception perception.Result
	Planning   planning.Result
	Actions    [][]int // [row][factor]
}

// #endregion loop-state

// #region step

// Step runs one timestep of the loop: perception, policy evaluation, action
// selection, and empirical-prior propagation. It returns the step outputs
// and the successor LoopState without mutating the input state.
func (a *Agent) Step(st LoopState, obs [][]int) (StepResult, LoopState, error) {
	per, err := perception.InferStates(a.g, obs, st.Prior, a.cfg.Perception)
	if err != nil {
		return StepResult{}, st, fmt.Errorf("step %d: %w", st.Step, err)
	}
	for _, w := range per.Warnings() {
		a.log.Warn("state estimation did not converge",
			zap.Int("step", st.Step),
			zap.Int("row", w.Row),
			zap.Float64("residual", w.Residual),
		)
	}

	plan, err := a.eval.InferPolicies(per.Qs)
	if err != nil {
		return StepResult{}, st, fmt.Errorf("step %d: %w", st.Step, err)
	}

	actions, err := a.sampler.Sample(a.eval.Policies(), plan.Posterior, a.g.Dims().NumControls, a.cfg.Selection)
	if err != nil {
		return StepResult{}, st, fmt.Errorf("step %d: %w", st.Step, err)
	}

	nextPrior, err := transition.UpdateEmpiricalPrior(a.g, actions, per.Qs)
	if err != nil {
		return StepResult{}, st, fmt.Errorf("step %d: %w", st.Step, err)
	}

	a.log.Debug("step complete",
		zap.Int("step", st.Step),
		zap.Ints("actions", actions[0]),
		zap.Float64("posterior_entropy", tensor.Entropy(plan.Posterior[0])),
	)

	res := StepResult{
		Step:       st.Step,
		Belief:     per.Qs,
		Perception: per,
		Planning:   plan,
		Actions:    actions,
	}
	next := LoopState{
		Prior:   nextPrior,
		History: st.History.Append(per.Qs, actions),
		Step:    st.Step + 1,
	}
	return res, next, nil
}

// #endregion step

// #region rollout

// RolloutResult collects every step of a rollout plus the terminal state.
type RolloutResult struct {
	Steps []StepResult
	Final LoopState
}

// Rollout drives the loop against an environment for a fixed number of
// steps: observation in, action out, repeat. Terminal state simply stops
// iterating.
func (a *Agent) Rollout(e env.Environment, steps int) (RolloutResult, error) {
	obs, err := e.Reset()
	if err != nil {
		return RolloutResult{}, fmt.Errorf("rollout reset: %w", err)
	}

	st := a.Init()
	out := RolloutResult{Steps: make([]StepResult, 0, steps)}
	for i := 0; i < steps; i++ {
		res, next, err := a.Step(st, obs)
		if err != nil {
			return out, err
		}
		out.Steps = append(out.Steps, res)
		st = next

		obs, err = e.Step(res.Actions)
		if err != nil {
			return out, fmt.Errorf("rollout step %d: %w", i, err)
		}
	}
	out.Final = st
	return out, nil
}

// #endregion rollout
