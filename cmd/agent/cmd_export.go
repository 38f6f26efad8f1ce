package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/active-agent/internal/replay"
	"github.com/danielpatrickdp/active-agent/internal/store"
)

// #region flags

var (
	exportDB      string
	exportRollout string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored rollout as a replay fixture",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDB, "db", "", "path to rollout store (required)")
	exportCmd.Flags().StringVar(&exportRollout, "rollout", "", "rollout ID (default: active rollout)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default: stdout)")
	exportCmd.MarkFlagRequired("db")
}

// #endregion flags

// #region run

func runExport(cmd *cobra.Command, args []string) error {
	st, err := store.NewStore(exportDB)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := resolveRollout(st, exportRollout)
	if err != nil {
		return err
	}
	if rec.MetaJSON == "" {
		return fmt.Errorf("rollout %s has no stored metadata, cannot export a fixture", rec.RolloutID)
	}
	meta, err := replay.DecodeMeta(rec.MetaJSON)
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
	observations, actions := replay.FromSteps(steps)

	f := replay.Fixture{
		Description:     fmt.Sprintf("exported from rollout %s", rec.RolloutID),
		Grid:            meta.Grid,
		Config:          meta.Config,
		Observations:    observations,
		ExpectedActions: actions,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	data = append(data, '\n')

	if exportOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", exportOut, err)
	}
	return nil
}

// #endregion run
