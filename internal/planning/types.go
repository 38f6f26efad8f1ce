package planning

// #region config

// Config selects and weights the expected-free-energy terms. Each enabled
// term contributes weight * score to a policy's neg-EFE; weights default to
// 1 and are an explicit configuration surface, not a hidden constant.
type Config struct {
	UseUtility        bool
	UseStatesInfoGain bool
	UseParamInfoGain  bool
	UseInductive      bool

	UtilityWeight   float64
	StateInfoWeight float64
	ParamInfoWeight float64
	InductiveWeight float64

	// InductiveDepth bounds the goal-distance lookahead; 0 makes the
	// inductive term contribute exactly 0 regardless of H or the threshold.
	InductiveDepth int
	// InductiveThreshold gates the inductive term: transition edges and
	// belief mass at or below this probability do not contribute.
	InductiveThreshold float64

	// Temperature scales the policy-posterior softmax; 1 by default.
	Temperature float64
}

// DefaultConfig enables the risk and epistemic terms with unit weights.
func DefaultConfig() Config {
	return Config{
		UseUtility:        true,
		UseStatesInfoGain: true,
		UtilityWeight:     1,
		StateInfoWeight:   1,
		ParamInfoWeight:   1,
		InductiveWeight:   1,
		Temperature:       1,
	}
}

// #endregion config

// #region rollout

// Rollout holds one policy's predicted trajectory for one batch row.
type Rollout struct {
	Qs      [][][]float64 // [t][factor][state] predicted beliefs
	Qo      [][][]float64 // [t][modality][obs] predicted observations
	Actions [][]int       // [t][factor] the policy's action sequence
}

// #endregion rollout

// #region result

// TermBreakdown exposes one term's per-policy contribution so each scoring
// strategy can be inspected and tested in isolation.
type TermBreakdown struct {
	Name   string
	Scores [][]float64 // [row][policy], already weighted
}

// Result is the output of InferPolicies.
type Result struct {
	// Posterior is the distribution over the enumerated policy set,
	// softmax(NegEFE / Temperature) per batch row.
	Posterior [][]float64
	// NegEFE is the raw per-policy score used to rank policies; higher is
	// preferred (EFE is its negation).
	NegEFE [][]float64
	// Terms holds the weighted per-term contributions, one entry per
	// enabled term.
	Terms []TermBreakdown
}

// #endregion result
