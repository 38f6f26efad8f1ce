package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/active-agent/internal/action"
	"github.com/danielpatrickdp/active-agent/internal/agent"
	"github.com/danielpatrickdp/active-agent/internal/config"
	"github.com/danielpatrickdp/active-agent/internal/gridworld"
	"github.com/danielpatrickdp/active-agent/internal/replay"
	"github.com/danielpatrickdp/active-agent/internal/store"
	"github.com/danielpatrickdp/active-agent/internal/tensor"
)

// #region flags

var (
	rolloutSize   int
	rolloutSteps  int
	rolloutStart  string
	rolloutGoal   string
	rolloutConfig string
	rolloutDB     string
)

var rolloutCmd = &cobra.Command{
	Use:   "rollout",
	Short: "Run a gridworld rollout",
	RunE:  runRollout,
}

func init() {
	rolloutCmd.Flags().IntVar(&rolloutSize, "size", 7, "grid side length")
	rolloutCmd.Flags().IntVar(&rolloutSteps, "steps", 7, "rollout length")
	rolloutCmd.Flags().StringVar(&rolloutStart, "start", "3,3", "start cell row,col")
	rolloutCmd.Flags().StringVar(&rolloutGoal, "goal", "6,6", "goal cell row,col")
	rolloutCmd.Flags().StringVar(&rolloutConfig, "config", "", "path to agent YAML config")
	rolloutCmd.Flags().StringVar(&rolloutDB, "db", "", "path to rollout store (optional)")
}

// #endregion flags

// #region run

func runRollout(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	start, err := parseCell(rolloutStart)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	goal, err := parseCell(rolloutGoal)
	if err != nil {
		return fmt.Errorf("--goal: %w", err)
	}

	fileCfg := config.Default()
	if rolloutConfig != "" {
		fileCfg, err = config.Load(rolloutConfig)
		if err != nil {
			return err
		}
	} else {
		// Demo defaults: goal-directed planning toward the grid goal.
		fileCfg.Selection = action.SelectDeterministic
		fileCfg.UseInductive = true
		fileCfg.InductiveDepth = rolloutSize
	}

	g, err := gridworld.BuildModel(rolloutSize, 1, start, goal)
	if err != nil {
		return err
	}
	a, err := agent.New(g, fileCfg.AgentConfig(), log)
	if err != nil {
		return err
	}
	world := gridworld.New(rolloutSize, 1, start, goal)

	var st *store.Store
	var rec store.RolloutRecord
	if rolloutDB != "" {
		st, err = store.NewStore(rolloutDB)
		if err != nil {
			return err
		}
		defer st.Close()
		meta, err := rolloutMeta(rolloutSize, start, goal, fileCfg).Encode()
		if err != nil {
			return err
		}
		rec, err = st.CreateRollout(fileCfg.Horizon, 1, g.Dims().NumStates, meta)
		if err != nil {
			return err
		}
		log.Info("rollout created", zap.String("rollout_id", rec.RolloutID))
	}

	obs, err := world.Reset()
	if err != nil {
		return err
	}
	loop := a.Init()
	for i := 0; i < rolloutSteps; i++ {
		res, next, err := a.Step(loop, obs)
		if err != nil {
			return err
		}
		loop = next

		pos := world.Position(0)
		log.Info("step",
			zap.Int("step", i),
			zap.Ints("action", res.Actions[0]),
			zap.Int("row", pos.Row), zap.Int("col", pos.Col),
			zap.Int("distance", gridworld.Distance(pos, goal)),
		)

		if st != nil {
			if err := st.AppendStep(rec.RolloutID, i, obs, res.Actions, res.Belief.Qs); err != nil {
				return err
			}
			decision := "sampled"
			if fileCfg.Selection == action.SelectDeterministic {
				decision = "argmax"
			}
			if err := st.LogDecision(store.ProvenanceEntry{
				RolloutID:        rec.RolloutID,
				Step:             i,
				Decision:         decision,
				PosteriorEntropy: tensor.Entropy(res.Planning.Posterior[0]),
				Converged:        allTrue(res.Perception.Converged),
			}); err != nil {
				return err
			}
		}

		obs, err = world.Step(res.Actions)
		if err != nil {
			return err
		}
		if world.AtGoal(0) {
			log.Info("goal reached", zap.Int("step", i+1))
			break
		}
	}

	final := world.Position(0)
	fmt.Printf("final position: (%d,%d), goal: (%d,%d)\n", final.Row, final.Col, goal.Row, goal.Col)
	return nil
}

// rolloutMeta captures everything a later replay needs to rebuild the model
// and agent this rollout ran with.
func rolloutMeta(size int, start, goal gridworld.Cell, cfg config.FileConfig) replay.Meta {
	return replay.Meta{
		Grid: replay.FixtureGrid{
			Size:  size,
			Batch: 1,
			Start: replay.FixtureCell{Row: start.Row, Col: start.Col},
			Goal:  replay.FixtureCell{Row: goal.Row, Col: goal.Col},
		},
		Config: replay.FixtureConfig{
			Horizon:            cfg.Horizon,
			Selection:          cfg.Selection,
			Seeds:              cfg.Seeds,
			MaxSweeps:          cfg.MaxSweeps,
			ConvergenceTol:     cfg.ConvergenceTol,
			UseUtility:         cfg.UseUtility,
			UseStatesInfoGain:  cfg.UseStatesInfoGain,
			UseParamInfoGain:   cfg.UseParamInfoGain,
			UseInductive:       cfg.UseInductive,
			UtilityWeight:      cfg.UtilityWeight,
			StateInfoWeight:    cfg.StateInfoWeight,
			ParamInfoWeight:    cfg.ParamInfoWeight,
			InductiveWeight:    cfg.InductiveWeight,
			InductiveDepth:     cfg.InductiveDepth,
			InductiveThreshold: cfg.InductiveThreshold,
			Temperature:        cfg.Temperature,
		},
	}
}

func allTrue(flags []bool) bool {
	for _, ok := range flags {
		if !ok {
			return false
		}
	}
	return true
}

// parseCell parses "row,col".
func parseCell(s string) (gridworld.Cell, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return gridworld.Cell{}, fmt.Errorf("want row,col, got %q", s)
	}
	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return gridworld.Cell{}, err
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return gridworld.Cell{}, err
	}
	return gridworld.Cell{Row: row, Col: col}, nil
}

// #endregion run
