package perception

import (
	"fmt"

	"github.com/danielpatrickdp/active-agent/internal/model"
	"github.com/danielpatrickdp/active-agent/internal/tensor"
)

// #region config

// Config bounds the mean-field fixed-point iteration.
type Config struct {
	MaxSweeps int     // hard cap on coordinate-ascent sweeps
	Tol       float64 // stop when the max per-factor belief change falls below this
}

// DefaultConfig returns the standard iteration bounds.
func DefaultConfig() Config {
	return Config{MaxSweeps: 16, Tol: 1e-4}
}

// #endregion config

// #region warning

// ConvergenceWarning signals that a batch row's fixed point did not settle
// within the sweep cap. Non-fatal: the last iterate is still returned and
// the caller decides whether to continue the rollout.
type ConvergenceWarning struct {
	Row      int
	Sweeps   int
	Residual float64
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("state estimation did not converge for row %d: residual %.2e after %d sweeps", w.Row, w.Residual, w.Sweeps)
}

// #endregion warning

// #region result

// Result carries the posterior belief plus per-row iteration telemetry.
type Result struct {
	Qs        model.Belief
	Sweeps    []int
	Residual  []float64
	Converged []bool
}

// Warnings returns one ConvergenceWarning per unconverged batch row.
func (r Result) Warnings() []*ConvergenceWarning {
	var ws []*ConvergenceWarning
	for row, ok := range r.Converged {
		if !ok {
			ws = append(ws, &ConvergenceWarning{Row: row, Sweeps: r.Sweeps[row], Residual: r.Residual[row]})
		}
	}
	return ws
}

// #endregion result

// #region infer-states

// InferStates turns an observation plus the empirical prior into a posterior
// belief by coordinate-ascent (mean-field) fixed-point iteration. For each
// factor it contracts the log joint likelihood against the other factors'
// current estimates, adds the log prior, and renormalizes through a softmax,
// sweeping factors until the belief settles or the sweep cap is hit.
//
// obs holds one outcome index per modality per batch row. The function is
// pure: identical inputs always produce identical beliefs. A fully
// observable identity likelihood settles on the first sweep through the same
// code path.
func InferStates(g *model.GenerativeModel, obs [][]int, prior model.Belief, cfg Config) (Result, error) {
	dims := g.Dims()
	if cfg.MaxSweeps <= 0 {
		cfg = DefaultConfig()
	}
	if len(obs) != dims.Batch {
		return Result{}, fmt.Errorf("infer states: %d observation rows for batch %d", len(obs), dims.Batch)
	}

	res := Result{
		Qs:        model.NewBelief(dims),
		Sweeps:    make([]int, dims.Batch),
		Residual:  make([]float64, dims.Batch),
		Converged: make([]bool, dims.Batch),
	}

	for row := 0; row < dims.Batch; row++ {
		if len(obs[row]) != dims.NumModalities() {
			return Result{}, fmt.Errorf("infer states: row %d has %d observations for %d modalities", row, len(obs[row]), dims.NumModalities())
		}
		for m, o := range obs[row] {
			if o < 0 || o >= dims.NumObs[m] {
				return Result{}, fmt.Errorf("infer states: row %d modality %d observation %d out of range [0,%d)", row, m, o, dims.NumObs[m])
			}
		}

		lnJoint := tensor.JointLikelihood(g.Likelihoods(row), obs[row])
		for i, p := range lnJoint.Data {
			lnJoint.Data[i] = tensor.LogStable(p)
		}

		lnPrior := make([][]float64, dims.NumFactors())
		qs := make([][]float64, dims.NumFactors())
		for f := range qs {
			lnPrior[f] = tensor.LogVec(prior.Qs[row][f])
			qs[f] = append([]float64(nil), prior.Qs[row][f]...)
			tensor.Normalize(qs[f])
		}

		var residual float64
		sweeps := 0
		for sweeps < cfg.MaxSweeps {
			sweeps++
			residual = 0
			for f := range qs {
				qL := tensor.MarginalDot(lnJoint, qs, f)
				for s := range qL {
					qL[s] += lnPrior[f][s]
				}
				next := tensor.Softmax(qL)
				if d := tensor.MaxAbsDiff(next, qs[f]); d > residual {
					residual = d
				}
				qs[f] = next
			}
			if residual < cfg.Tol {
				res.Converged[row] = true
				break
			}
		}

		res.Sweeps[row] = sweeps
		res.Residual[row] = residual
		for f := range qs {
			copy(res.Qs.Qs[row][f], qs[f])
		}
	}

	return res, nil
}

// #endregion infer-states
