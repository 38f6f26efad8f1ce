package tensor

import "fmt"

// #region dense

// Dense is a row-major dense float64 tensor. Shape and Data are shared by
// views; callers treat tensors handed out by accessors as read-only.
type Dense struct {
	Shape []int
	Data  []float64
}

// New allocates a zero-filled tensor with the given shape.
func New(shape ...int) Dense {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return Dense{Shape: append([]int(nil), shape...), Data: make([]float64, n)}
}

// FromSlice wraps data in a tensor, verifying the element count.
func FromSlice(data []float64, shape ...int) (Dense, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if len(data) != n {
		return Dense{}, fmt.Errorf("tensor: %d elements for shape %v (want %d)", len(data), shape, n)
	}
	return Dense{Shape: append([]int(nil), shape...), Data: data}, nil
}

// Len returns the total element count.
func (t Dense) Len() int { return len(t.Data) }

// #endregion dense

// #region views

// SliceLeading returns a view of the tensor with the leading axis fixed at i.
// Row-major layout makes the block contiguous, so no copy is made.
func (t Dense) SliceLeading(i int) Dense {
	block := len(t.Data) / t.Shape[0]
	return Dense{
		Shape: t.Shape[1:],
		Data:  t.Data[i*block : (i+1)*block],
	}
}

// At reads the element at a full multi-index.
func (t Dense) At(idx ...int) float64 {
	return t.Data[t.flat(idx)]
}

// Set writes the element at a full multi-index.
func (t Dense) Set(v float64, idx ...int) {
	t.Data[t.flat(idx)] = v
}

func (t Dense) flat(idx []int) int {
	f := 0
	for i, d := range t.Shape {
		f = f*d + idx[i]
	}
	return f
}

// Clone returns a deep copy.
func (t Dense) Clone() Dense {
	c := Dense{Shape: append([]int(nil), t.Shape...), Data: make([]float64, len(t.Data))}
	copy(c.Data, t.Data)
	return c
}

// #endregion views
