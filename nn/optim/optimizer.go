// Package optim implements the parameter update rules used by the network.
//
// Each rule is a Kind, resolved once at construction into an Optimizer that
// keeps its own per-layer state:
//
//	opt, err := optim.New(optim.Config{Kind: optim.Adam, Beta1: 0.9, Beta2: 0.999}, shapes)
//	...
//	err = opt.Step(params, grads, alpha)
package optim

import (
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// Beta is the decay used by momentum and rms_prop.
	Beta = 0.9
	// Epsilon keeps rms_prop and adam away from division by zero.
	Epsilon = 1e-7
)

var (
	// ErrUnknownKind is returned for optimizer names or kinds outside the supported set.
	ErrUnknownKind = errors.New("unknown optimizer")
	// ErrDimensionMismatch is returned when gradients do not line up with parameters.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Kind selects the update rule.
type Kind int

const (
	// None is plain gradient descent.
	None Kind = iota
	Momentum
	RMSProp
	Adam
)

var kindNames = map[Kind]string{
	None:     "none",
	Momentum: "momentum",
	RMSProp:  "rms_prop",
	Adam:     "adam",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps a configuration name onto a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "plain", "sgd":
		return None, nil
	case "momentum", "sgd_momentum":
		return Momentum, nil
	case "rms_prop", "rmsprop":
		return RMSProp, nil
	case "adam":
		return Adam, nil
	}
	return None, errors.Wrapf(ErrUnknownKind, "%q", name)
}

// Layer is the parameter pair of one affine layer, in storage orientation:
// W is (in, out) and B is (out, 1).
type Layer struct {
	W, B *mat.Dense
}

// Grad is the gradient of one affine layer as the backward pass produces it:
// DW is (out, in), the transpose of Layer.W, and DB is (out, 1).
type Grad struct {
	DW, DB *mat.Dense
}

// Optimizer mutates parameters in place from a set of gradients.
type Optimizer interface {
	Step(params []Layer, grads []Grad, alpha float64) error
	Kind() Kind
}

// Config selects and parameterizes an Optimizer.
type Config struct {
	Kind Kind
	// Beta1 and Beta2 are the adam moment decays. Zero values are used as is.
	Beta1, Beta2 float64
}

// Shape is the (rows, cols) of a weight matrix in storage orientation.
type Shape struct {
	Rows, Cols int
}

// New builds the optimizer for cfg. shapes lists the weight shape of every
// layer; state for each layer is allocated up front and zeroed.
func New(cfg Config, shapes []Shape) (Optimizer, error) {
	switch cfg.Kind {
	case None:
		return plain{}, nil
	case Momentum:
		return &momentum{v: newState(shapes)}, nil
	case RMSProp:
		return &rmsProp{s: newState(shapes)}, nil
	case Adam:
		if cfg.Beta1 < 0 || cfg.Beta1 >= 1 || cfg.Beta2 < 0 || cfg.Beta2 >= 1 {
			return nil, errors.Errorf("adam betas must be in [0, 1), got %v and %v", cfg.Beta1, cfg.Beta2)
		}
		return &adam{beta1: cfg.Beta1, beta2: cfg.Beta2, m: newState(shapes), v: newState(shapes)}, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "kind %d", int(cfg.Kind))
}

// state is one accumulator per layer for weights and biases.
type state struct {
	w, b []*mat.Dense
}

func newState(shapes []Shape) state {
	s := state{w: make([]*mat.Dense, len(shapes)), b: make([]*mat.Dense, len(shapes))}
	for i, sh := range shapes {
		s.w[i] = mat.NewDense(sh.Rows, sh.Cols, nil)
		s.b[i] = mat.NewDense(sh.Cols, 1, nil)
	}
	return s
}

// oriented returns the weight and bias gradients in storage orientation,
// after checking them against params[i].
func oriented(params []Layer, grads []Grad, i int) (dw, db *mat.Dense, err error) {
	p, g := params[i], grads[i]
	wr, wc := p.W.Dims()
	gr, gc := g.DW.Dims()
	if gr != wc || gc != wr {
		return nil, nil, errors.Wrapf(ErrDimensionMismatch, "layer %d: weight %dx%d, gradient %dx%d", i, wr, wc, gr, gc)
	}
	br, bc := p.B.Dims()
	dr, dc := g.DB.Dims()
	if br != dr || bc != dc {
		return nil, nil, errors.Wrapf(ErrDimensionMismatch, "layer %d: bias %dx%d, gradient %dx%d", i, br, bc, dr, dc)
	}
	dw = mat.DenseCopyOf(g.DW.T())
	return dw, g.DB, nil
}

func checkCounts(params []Layer, grads []Grad) error {
	if len(params) != len(grads) {
		return errors.Wrapf(ErrDimensionMismatch, "%d parameter layers, %d gradients", len(params), len(grads))
	}
	return nil
}

func checkState(s state, params []Layer) error {
	if len(s.w) != len(params) {
		return errors.Wrapf(ErrDimensionMismatch, "optimizer tracks %d layers, got %d", len(s.w), len(params))
	}
	return nil
}
