// Package tensor holds the shape-checked matrix helpers the network is built
// from. Matrices are gonum dense matrices laid out features × samples.
package tensor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned (wrapped) whenever operand dimensions disagree.
var ErrShape = errors.New("shape mismatch")

func shapeErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrShape, format, args...)
}

// New allocates a zeroed r×c matrix.
func New(r, c int) *mat.Dense {
	return mat.NewDense(r, c, nil)
}

// FromRows builds a dense matrix from a slice of equal length rows.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, shapeErrorf("empty matrix")
	}
	c := len(rows[0])
	data := make([]float64, 0, len(rows)*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, shapeErrorf("row %d has %d values, expected %d", i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), c, data), nil
}

// SameShape checks that a and b have identical dimensions.
func SameShape(a, b mat.Matrix) error {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return shapeErrorf("%dx%d vs %dx%d", ar, ac, br, bc)
	}
	return nil
}

// CheckShape checks that m is r×c.
func CheckShape(m mat.Matrix, r, c int) error {
	mr, mc := m.Dims()
	if mr != r || mc != c {
		return shapeErrorf("got %dx%d, want %dx%d", mr, mc, r, c)
	}
	return nil
}

// Affine returns Wᵀ·A + b with the bias column broadcast over every sample.
// W is (in, out), A is (in, samples) and b is (out, 1).
func Affine(w, a, b mat.Matrix) (*mat.Dense, error) {
	wr, wc := w.Dims()
	ar, ac := a.Dims()
	if wr != ar {
		return nil, shapeErrorf("affine: weight is %dx%d but input has %d rows", wr, wc, ar)
	}
	if err := CheckShape(b, wc, 1); err != nil {
		return nil, errors.Wrap(err, "affine: bias")
	}
	z := mat.NewDense(wc, ac, nil)
	z.Mul(w.T(), a)
	for i := 0; i < wc; i++ {
		bi := b.At(i, 0)
		row := z.RawRowView(i)
		for j := range row {
			row[j] += bi
		}
	}
	return z, nil
}

// MulElem returns the elementwise product of a and b.
func MulElem(a, b mat.Matrix) (*mat.Dense, error) {
	if err := SameShape(a, b); err != nil {
		return nil, err
	}
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.MulElem(a, b)
	return out, nil
}

// Apply returns fn applied to every element of m.
func Apply(fn func(v float64) float64, m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return fn(v) }, m)
	return out
}

// Relu returns max(0, m) elementwise.
func Relu(m mat.Matrix) *mat.Dense {
	return Apply(func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	}, m)
}

// Sign returns the elementwise sign of m (0 stays 0).
func Sign(m mat.Matrix) *mat.Dense {
	return Apply(func(v float64) float64 {
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		}
		return 0
	}, m)
}

// RowSums collapses the columns of m into an (r, 1) column vector.
func RowSums(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, 1, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		out.Set(i, 0, floats.Sum(row))
	}
	return out
}

// ArgmaxColumns returns, per column, the index of the first maximum.
func ArgmaxColumns(m mat.Matrix) []int {
	r, c := m.Dims()
	out := make([]int, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		out[j] = floats.MaxIdx(col)
	}
	return out
}

// SelectColumns gathers the listed columns of m, in order, into a new matrix.
func SelectColumns(m mat.Matrix, idx []int) (*mat.Dense, error) {
	r, c := m.Dims()
	if len(idx) == 0 {
		return nil, shapeErrorf("no columns selected")
	}
	out := mat.NewDense(r, len(idx), nil)
	col := make([]float64, r)
	for k, j := range idx {
		if j < 0 || j >= c {
			return nil, shapeErrorf("column %d out of range for %d columns", j, c)
		}
		mat.Col(col, j, m)
		out.SetCol(k, col)
	}
	return out, nil
}

// SumAbs returns Σ|m|.
func SumAbs(m mat.Matrix) float64 {
	return sumFn(m, math.Abs)
}

// SumSquares returns Σm².
func SumSquares(m mat.Matrix) float64 {
	return sumFn(m, func(v float64) float64 { return v * v })
}

func sumFn(m mat.Matrix, fn func(float64) float64) float64 {
	r, c := m.Dims()
	row := make([]float64, c)
	var s float64
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		for _, v := range row {
			s += fn(v)
		}
	}
	return s
}

// Clone returns a deep copy of m.
func Clone(m mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(m)
}
