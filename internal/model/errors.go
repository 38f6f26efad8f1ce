package model

import "fmt"

// #region shape-error

// ShapeMismatchError reports a tensor whose axes disagree with the declared
// dims, or a batch-size mismatch across tensors. Construction-time, fatal.
type ShapeMismatchError struct {
	Tensor string // e.g. "A[0]", "B[2]"
	Got    []int
	Want   []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %s has shape %v, want %v", e.Tensor, e.Got, e.Want)
}

// #endregion shape-error

// #region normalization-error

// NormalizationError reports a distribution axis that does not sum to 1
// within tolerance. Construction-time, fatal unless renormalization was
// requested.
type NormalizationError struct {
	Tensor string
	Row    int // batch row
	Sum    float64
	Tol    float64
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization: %s row %d axis sums to %.6f (tolerance %.0e)", e.Tensor, e.Row, e.Sum, e.Tol)
}

// #endregion normalization-error
