package store

import "time"

// #region rollout-record

// RolloutRecord describes one stored rollout and the dimensions needed to
// decode its belief blobs.
type RolloutRecord struct {
	RolloutID string
	CreatedAt time.Time
	Horizon   int
	Batch     int
	NumStates []int
	Steps     int
	// MetaJSON carries caller-defined context, e.g. the environment the
	// rollout was recorded against.
	MetaJSON string
}

// #endregion rollout-record

// #region step-record

// StepRecord is one persisted timestep of a rollout.
type StepRecord struct {
	RolloutID    string
	Step         int
	Observations [][]int // [row][modality]
	Actions      [][]int // [row][factor]
	Beliefs      [][][]float64
	CreatedAt    time.Time
}

// #endregion step-record

// #region provenance-entry

// ProvenanceEntry links a stored step to its decision context.
type ProvenanceEntry struct {
	RolloutID        string
	Step             int
	Decision         string // "sampled" | "argmax"
	Reason           string
	PosteriorEntropy float64
	Converged        bool
	CreatedAt        time.Time
}

// #endregion provenance-entry
