package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

func TestActivationValues(t *testing.T) {
	inputs := []float64{-0.8, -0.2, 0.1, 0.9}
	for _, tc := range []struct {
		act  Activation
		want func(float64) float64
	}{
		{ReLU{}, func(x float64) float64 { return math.Max(0, x) }},
		{Sigmoid{}, func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }},
		{Tanh{}, math.Tanh},
	} {
		for _, x := range inputs {
			assert.InDelta(t, tc.want(x), tc.act.Activate(x), 1e-12, "%s(%v)", tc.act, x)
		}
	}
}

// Away from the ReLU kink every derivative matches central differences.
func TestActivationDerivatives(t *testing.T) {
	for _, act := range []Activation{ReLU{}, Sigmoid{}, Tanh{}} {
		for _, x := range []float64{-2.5, -0.8, -0.2, 0.1, 0.9, 3} {
			want := fd.Derivative(act.Activate, x, &fd.Settings{Formula: fd.Central, Step: 1e-6})
			assert.InDelta(t, want, act.Derivative(x), 1e-6, "%s'(%v)", act, x)
		}
	}
}

func TestActivateMatrix(t *testing.T) {
	z := mat.NewDense(2, 2, []float64{-1, 2, 0.5, -3})
	got := activate(Tanh{}, z)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, math.Tanh(z.At(i, j)), got.At(i, j), 1e-12)
		}
	}
	// the pre-activation is left untouched
	assert.Equal(t, -1.0, z.At(0, 0))

	d := derivative(ReLU{}, z)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{0, 1, 1, 0}), d))
}
