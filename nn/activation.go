package nn

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Activation is an elementwise hidden-layer nonlinearity.
type Activation interface {
	// Activate maps one pre-activation value.
	Activate(z float64) float64
	// Derivative is the slope of Activate at the pre-activation z.
	Derivative(z float64) float64
	fmt.Stringer
}

var activations = map[string]Activation{
	"relu":    ReLU{},
	"sigmoid": Sigmoid{},
	"tanh":    Tanh{},
}

// LookupActivation resolves an activation by name. An empty name is ReLU.
func LookupActivation(name string) (Activation, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ReLU{}, nil
	}
	a, ok := activations[name]
	if !ok {
		return nil, configErrorf("unknown activation %q", name)
	}
	return a, nil
}

// ReLU is max(0, z).
type ReLU struct{}

func (ReLU) Activate(z float64) float64 { return math.Max(0, z) }

// Derivative counts z == 0 as active.
func (ReLU) Derivative(z float64) float64 {
	if z >= 0 {
		return 1
	}
	return 0
}

func (ReLU) String() string { return "relu" }

// Sigmoid is the logistic function 1/(1+e^-z).
type Sigmoid struct{}

func (Sigmoid) Activate(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func (s Sigmoid) Derivative(z float64) float64 {
	a := s.Activate(z)
	return a * (1 - a)
}

func (Sigmoid) String() string { return "sigmoid" }

// Tanh is the hyperbolic tangent.
type Tanh struct{}

func (Tanh) Activate(z float64) float64 { return math.Tanh(z) }

func (Tanh) Derivative(z float64) float64 {
	t := math.Tanh(z)
	return 1 - t*t
}

func (Tanh) String() string { return "tanh" }

func activate(a Activation, z mat.Matrix) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return a.Activate(v) }, z)
	return out
}

func derivative(a Activation, z mat.Matrix) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return a.Derivative(v) }, z)
	return out
}
