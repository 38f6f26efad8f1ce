package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/active-agent/internal/store"
)

// #region flags

var (
	inspectDB      string
	inspectRollout string
	inspectLimit   int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List stored rollouts or show one rollout's decision log",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectDB, "db", "", "path to rollout store (required)")
	inspectCmd.Flags().StringVar(&inspectRollout, "rollout", "", "rollout ID to show in detail")
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 20, "max rollouts to list")
	inspectCmd.MarkFlagRequired("db")
}

// #endregion flags

// #region run

func runInspect(cmd *cobra.Command, args []string) error {
	st, err := store.NewStore(inspectDB)
	if err != nil {
		return err
	}
	defer st.Close()

	if inspectRollout != "" {
		return inspectOne(st, inspectRollout)
	}
	return inspectList(st)
}

func inspectList(st *store.Store) error {
	records, err := st.ListRollouts(inspectLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no rollouts stored")
		return nil
	}
	current, _ := st.GetCurrent()
	for _, rec := range records {
		marker := " "
		if rec.RolloutID == current.RolloutID {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  horizon=%d batch=%d states=%v steps=%d\n",
			marker, rec.RolloutID,
			rec.CreatedAt.Format(time.RFC3339),
			rec.Horizon, rec.Batch, rec.NumStates, rec.Steps,
		)
	}
	return nil
}

func inspectOne(st *store.Store, id string) error {
	rec, err := st.GetRollout(id)
	if err != nil {
		return err
	}
	fmt.Printf("rollout %s\n", rec.RolloutID)
	fmt.Printf("  created  %s\n", rec.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  horizon  %d\n", rec.Horizon)
	fmt.Printf("  batch    %d\n", rec.Batch)
	fmt.Printf("  states   %v\n", rec.NumStates)
	fmt.Printf("  steps    %d\n", rec.Steps)
	if rec.MetaJSON != "" {
		fmt.Printf("  meta     %s\n", rec.MetaJSON)
	}

	entries, err := st.Provenance(rec.RolloutID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	fmt.Println("decision log:")
	for _, e := range entries {
		converged := "converged"
		if !e.Converged {
			converged = "NOT CONVERGED"
		}
		fmt.Printf("  step %3d  %-8s entropy=%.4f  %s\n", e.Step, e.Decision, e.PosteriorEntropy, converged)
	}
	return nil
}

// #endregion run
