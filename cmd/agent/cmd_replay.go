package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/active-agent/internal/agent"
	"github.com/danielpatrickdp/active-agent/internal/replay"
	"github.com/danielpatrickdp/active-agent/internal/store"
)

// #region flags

var (
	replayFixture string
	replayDB      string
	replayRollout string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a fixture or a stored rollout through the full pipeline",
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "path to fixture JSON (fixture mode)")
	replayCmd.Flags().StringVar(&replayDB, "db", "", "path to rollout store (DB mode)")
	replayCmd.Flags().StringVar(&replayRollout, "rollout", "", "rollout ID (DB mode, default: active rollout)")
}

// #endregion flags

// #region run

func runReplay(cmd *cobra.Command, args []string) error {
	if (replayFixture == "" && replayDB == "") || (replayFixture != "" && replayDB != "") {
		return fmt.Errorf("exactly one of --fixture or --db is required")
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	if replayFixture != "" {
		return replayFixtureMode(log)
	}
	return replayDBMode(log)
}

func replayFixtureMode(log *zap.Logger) error {
	f, err := replay.LoadFixture(replayFixture)
	if err != nil {
		return err
	}
	g, err := f.BuildModel()
	if err != nil {
		return err
	}
	a, err := agent.New(g, f.Config.ToAgentConfig(), log)
	if err != nil {
		return err
	}

	outcomes, sum, err := replay.Run(a, f.Observations, f.ExpectedActions)
	if err != nil {
		return err
	}
	printOutcomes(outcomes, sum)
	if sum.Mismatches > 0 {
		return fmt.Errorf("%d of %d steps mismatched", sum.Mismatches, sum.TotalSteps)
	}
	return nil
}

func replayDBMode(log *zap.Logger) error {
	st, err := store.NewStore(replayDB)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := resolveRollout(st, replayRollout)
	if err != nil {
		return err
	}
	steps, err := st.Steps(rec.RolloutID)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return fmt.Errorf("rollout %s has no steps", rec.RolloutID)
	}
	observations, recorded := replay.FromSteps(steps)

	if rec.MetaJSON == "" {
		return fmt.Errorf("rollout %s has no stored metadata, cannot rebuild its model", rec.RolloutID)
	}
	meta, err := replay.DecodeMeta(rec.MetaJSON)
	if err != nil {
		return err
	}
	f := &replay.Fixture{Grid: meta.Grid, Config: meta.Config}
	g, err := f.BuildModel()
	if err != nil {
		return err
	}
	a, err := agent.New(g, f.Config.ToAgentConfig(), log)
	if err != nil {
		return err
	}

	outcomes, sum, err := replay.Run(a, observations, recorded)
	if err != nil {
		return err
	}
	printOutcomes(outcomes, sum)
	if sum.Mismatches > 0 {
		return fmt.Errorf("%d of %d steps diverged from the stored rollout", sum.Mismatches, sum.TotalSteps)
	}
	return nil
}

func resolveRollout(st *store.Store, id string) (store.RolloutRecord, error) {
	if id != "" {
		return st.GetRollout(id)
	}
	return st.GetCurrent()
}

func printOutcomes(outcomes []replay.Outcome, sum replay.Summary) {
	for _, o := range outcomes {
		status := "-"
		if o.Expected != nil {
			status = "match"
			if !o.Match {
				status = "MISMATCH"
			}
		}
		fmt.Printf("step %3d  actions=%v  entropy=%.4f  %s\n", o.Step, o.Actions[0], o.PosteriorEntropy, status)
	}
	fmt.Printf("steps=%d matches=%d mismatches=%d unchecked=%d\n", sum.TotalSteps, sum.Matches, sum.Mismatches, sum.Unchecked)
}

// #endregion run
