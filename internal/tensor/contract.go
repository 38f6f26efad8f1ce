package tensor

// Contractions over categorical factor axes. All functions here take
// single-batch-row views: likelihood tensors are [obs, s_1, ..., s_F],
// transition tensors are [s', s, actions], and qs holds one categorical
// vector per hidden-state factor.

// #region odometer

// eachJoint iterates every joint state combination of dims, calling fn with
// the multi-index and its row-major flat offset.
func eachJoint(dims []int, fn func(idx []int, flat int)) {
	idx := make([]int, len(dims))
	n := 1
	for _, d := range dims {
		n *= d
	}
	for flat := 0; flat < n; flat++ {
		fn(idx, flat)
		for k := len(dims) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < dims[k] {
				break
			}
			idx[k] = 0
		}
	}
}

// #endregion odometer

// #region joint-likelihood

// JointLikelihood multiplies the observed slices of every modality's
// likelihood into a single tensor over the joint state space.
func JointLikelihood(as []Dense, obs []int) Dense {
	joint := as[0].SliceLeading(obs[0]).Clone()
	for m := 1; m < len(as); m++ {
		slice := as[m].SliceLeading(obs[m])
		for i := range joint.Data {
			joint.Data[i] *= slice.Data[i]
		}
	}
	return joint
}

// #endregion joint-likelihood

// #region marginal-dot

// MarginalDot contracts a joint-state tensor against every factor's
// distribution except the one at index keep, returning the marginal over
// that factor's states.
func MarginalDot(t Dense, qs [][]float64, keep int) []float64 {
	out := make([]float64, t.Shape[keep])
	eachJoint(t.Shape, func(idx []int, flat int) {
		w := 1.0
		for g := range qs {
			if g == keep {
				continue
			}
			w *= qs[g][idx[g]]
		}
		out[idx[keep]] += w * t.Data[flat]
	})
	return out
}

// #endregion marginal-dot

// #region obs-contract

// ContractObs contracts a likelihood tensor [obs, states...] against the
// full belief, returning the predicted observation distribution.
func ContractObs(a Dense, qs [][]float64) []float64 {
	numObs := a.Shape[0]
	stateDims := a.Shape[1:]
	block := len(a.Data) / numObs
	out := make([]float64, numObs)
	eachJoint(stateDims, func(idx []int, flat int) {
		w := 1.0
		for g := range qs {
			w *= qs[g][idx[g]]
		}
		if w == 0 {
			return
		}
		for o := 0; o < numObs; o++ {
			out[o] += w * a.Data[o*block+flat]
		}
	})
	return out
}

// ExpectedColEntropy returns the belief-weighted average entropy of the
// likelihood columns: E_{q(s)}[ H(A[:, s]) ]. Used by the state
// information-gain term.
func ExpectedColEntropy(a Dense, qs [][]float64) float64 {
	numObs := a.Shape[0]
	stateDims := a.Shape[1:]
	block := len(a.Data) / numObs
	var acc float64
	eachJoint(stateDims, func(idx []int, flat int) {
		w := 1.0
		for g := range qs {
			w *= qs[g][idx[g]]
		}
		if w == 0 {
			return
		}
		var h float64
		for o := 0; o < numObs; o++ {
			p := a.Data[o*block+flat]
			if p > Eps {
				h -= p * LogStable(p)
			}
		}
		acc += w * h
	})
	return acc
}

// #endregion obs-contract

// #region transition

// ApplyTransition propagates a single factor's distribution through the
// transition slice for one action: next[s'] = sum_s B[s', s, a] q[s].
func ApplyTransition(b Dense, q []float64, a int) []float64 {
	numNext := b.Shape[0]
	numPrev := b.Shape[1]
	numActions := b.Shape[2]
	out := make([]float64, numNext)
	for sp := 0; sp < numNext; sp++ {
		base := sp * numPrev * numActions
		var acc float64
		for s := 0; s < numPrev; s++ {
			acc += b.Data[base+s*numActions+a] * q[s]
		}
		out[sp] = acc
	}
	return out
}

// #endregion transition
