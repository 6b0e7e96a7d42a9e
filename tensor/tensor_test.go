package tensor

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFromRows(t *testing.T) {
	m, err := FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 6.0, m.At(1, 2))

	_, err = FromRows([][]float64{{1, 2}, {3}})
	assert.True(t, errors.Is(err, ErrShape))
}

func TestAffine(t *testing.T) {
	// W is (in=2, out=3); Wᵀ·A + b for two samples.
	w := mat.NewDense(2, 3, []float64{
		1, 0, 2,
		0, 1, -1,
	})
	a := mat.NewDense(2, 2, []float64{
		1, 2,
		3, 4,
	})
	b := mat.NewDense(3, 1, []float64{10, 20, 30})

	z, err := Affine(w, a, b)
	require.NoError(t, err)
	want := mat.NewDense(3, 2, []float64{
		11, 12,
		23, 24,
		29, 30,
	})
	assert.True(t, mat.Equal(want, z), "got %v", mat.Formatted(z))
}

func TestAffineShapeErrors(t *testing.T) {
	w := mat.NewDense(2, 3, nil)
	_, err := Affine(w, mat.NewDense(3, 1, nil), mat.NewDense(3, 1, nil))
	assert.True(t, errors.Is(err, ErrShape))

	_, err = Affine(w, mat.NewDense(2, 1, nil), mat.NewDense(2, 1, nil))
	assert.True(t, errors.Is(err, ErrShape))
}

func TestReluAndSign(t *testing.T) {
	m := mat.NewDense(1, 3, []float64{-1, 0, 3})
	assert.Equal(t, []float64{0, 0, 3}, Relu(m).RawMatrix().Data)
	assert.Equal(t, []float64{-1, 0, 1}, Sign(m).RawMatrix().Data)
}

func TestRowSumsAndArgmax(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		0.2, 0.5,
		0.7, 0.5,
		0.1, 0.0,
	})
	sums := RowSums(m)
	assert.InDeltaSlice(t, []float64{0.7, 1.2, 0.1}, sums.RawMatrix().Data, 1e-12)
	// ties resolve to the first index
	assert.Equal(t, []int{1, 0}, ArgmaxColumns(m))
}

func TestSelectColumns(t *testing.T) {
	m := mat.NewDense(2, 4, []float64{
		0, 1, 2, 3,
		4, 5, 6, 7,
	})
	s, err := SelectColumns(m, []int{3, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0, 7, 4}, s.RawMatrix().Data)

	_, err = SelectColumns(m, []int{4})
	assert.True(t, errors.Is(err, ErrShape))
}

func TestPenaltySums(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, -2, 3, -4})
	assert.Equal(t, 10.0, SumAbs(m))
	assert.Equal(t, 30.0, SumSquares(m))
}

func TestMulElem(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{2, 3})
	b := mat.NewDense(1, 2, []float64{4, 5})
	out, err := MulElem(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 15}, out.RawMatrix().Data)

	_, err = MulElem(a, mat.NewDense(2, 1, nil))
	assert.True(t, errors.Is(err, ErrShape))
}
