package data

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"mlpnet/tensor"
)

// indexed returns a 2 × n matrix whose columns encode their own index.
func indexed(n int) (*mat.Dense, []int) {
	x := mat.NewDense(2, n, nil)
	y := make([]int, n)
	for j := 0; j < n; j++ {
		x.Set(0, j, float64(j))
		x.Set(1, j, float64(-j))
		y[j] = j
	}
	return x, y
}

func TestSplitData(t *testing.T) {
	x, y := indexed(100)
	s, err := SplitData(x, y, 0.1)
	require.NoError(t, err)

	_, vc := s.ValidX.Dims()
	_, tc := s.TrainX.Dims()
	assert.Equal(t, 10, vc)
	assert.Equal(t, 90, tc)
	require.Len(t, s.ValidY, 10)
	require.Len(t, s.TrainY, 90)

	for j := 0; j < vc; j++ {
		assert.Equal(t, float64(j), s.ValidX.At(0, j))
		assert.Equal(t, j, s.ValidY[j])
	}
	for j := 0; j < tc; j++ {
		assert.Equal(t, float64(j+10), s.TrainX.At(0, j))
		assert.Equal(t, j+10, s.TrainY[j])
	}

	// the split owns its data
	s.TrainX.Set(0, 0, -1)
	assert.Equal(t, 10.0, x.At(0, 10))
}

func TestSplitDataEdges(t *testing.T) {
	x, y := indexed(5)
	s, err := SplitData(x, y, 0.1)
	require.NoError(t, err)
	assert.Nil(t, s.ValidX)
	assert.Empty(t, s.ValidY)
	_, tc := s.TrainX.Dims()
	assert.Equal(t, 5, tc)

	_, err = SplitData(x, y[:4], 0.1)
	assert.True(t, errors.Is(err, tensor.ErrShape))

	_, err = SplitData(x, y, 1)
	assert.Error(t, err)
}

func TestSamplerDrawsWithoutReplacement(t *testing.T) {
	x, y := indexed(30)
	s := NewSampler(rand.New(rand.NewSource(7)))
	for it := 0; it < 20; it++ {
		xb, yb, err := s.Batch(x, y, 30)
		require.NoError(t, err)
		seen := map[int]bool{}
		for k, label := range yb {
			assert.False(t, seen[label], "label %d drawn twice", label)
			seen[label] = true
			assert.Equal(t, float64(label), xb.At(0, k))
			assert.Equal(t, float64(-label), xb.At(1, k))
		}
		assert.Len(t, seen, 30)
	}

	_, _, err := s.Batch(x, y, 31)
	assert.True(t, errors.Is(err, ErrBatch))
}

func TestSamplerSeeded(t *testing.T) {
	x, y := indexed(50)
	_, a, err := NewSampler(rand.New(rand.NewSource(3))).Batch(x, y, 10)
	require.NoError(t, err)
	_, b, err := NewSampler(rand.New(rand.NewSource(3))).Batch(x, y, 10)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStandardize(t *testing.T) {
	x := mat.NewDense(2, 4, []float64{
		1, 2, 3, 4,
		5, 5, 5, 5,
	})
	mean, std := Standardize(x)
	assert.InDeltaSlice(t, []float64{2.5, 5}, mean, 1e-12)
	assert.Equal(t, 1.0, std[1])
	row := mat.Row(nil, 0, x)
	var sum float64
	for _, v := range row {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-12)
	assert.Equal(t, []float64{0, 0, 0, 0}, mat.Row(nil, 1, x))
}

func TestClusters(t *testing.T) {
	x, y, err := Clusters(4, 3, 9, 3, 0, rand.NewSource(1))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0, 1, 2}, y)
	want := mat.NewDense(4, 3, []float64{
		3, 0, -3,
		0, 3, -3,
		0, 0, 0,
		0, 0, 0,
	})
	got := x.Slice(0, 4, 0, 3)
	assert.True(t, mat.EqualApprox(want, got, 0), "got %v", mat.Formatted(got))

	_, _, err = Clusters(1, 3, 9, 3, 0, rand.NewSource(1))
	assert.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	in := "1,0.5,2\n\n0, 1.5 ,-3\n"
	x, y, err := LoadCSV(strings.NewReader(in), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, y)
	want := mat.NewDense(2, 2, []float64{
		0.5, 1.5,
		2, -3,
	})
	assert.True(t, mat.Equal(want, x))

	_, _, err = LoadCSV(strings.NewReader("1,2\n"), 2)
	assert.EqualError(t, err, "at line 1, expected 3 values, got 2")

	_, _, err = LoadCSV(strings.NewReader("a,1,2\n"), 2)
	assert.Error(t, err)

	_, _, err = LoadCSV(strings.NewReader(""), 2)
	assert.Error(t, err)
}

func TestUnseededSamplersDiffer(t *testing.T) {
	x, y := indexed(50)
	a, b := NewSampler(nil), NewSampler(nil)
	same := true
	for it := 0; it < 20 && same; it++ {
		_, ya, err := a.Batch(x, y, 8)
		require.NoError(t, err)
		_, yb, err := b.Batch(x, y, 8)
		require.NoError(t, err)
		same = assert.ObjectsAreEqual(ya, yb)
	}
	assert.False(t, same, "unseeded samplers drew identical batches")
}

func TestFitStandardizationOnTrainingColumns(t *testing.T) {
	x := mat.NewDense(1, 5, []float64{100, 1, 2, 3, 4})
	valid := ValidCount(5, 0.2)
	require.Equal(t, 1, valid)

	mean, std := FitStandardization(x.Slice(0, 1, valid, 5))
	assert.InDeltaSlice(t, []float64{2.5}, mean, 1e-12)
	// the held out column does not move the statistics
	assert.Less(t, std[0], 2.0)
	// fitting leaves the data alone
	assert.Equal(t, 100.0, x.At(0, 0))

	ApplyStandardization(x, mean, std)
	assert.InDelta(t, (100-2.5)/std[0], x.At(0, 0), 1e-12)
}
