package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"mlpnet/tensor"
)

// ProbFloor is the smallest probability the softmax output may hold.
const ProbFloor = 1e-5

// LayerCache is what the backward pass needs from one layer of a forward pass.
type LayerCache struct {
	Input *mat.Dense // activation fed into the layer
	W, B  *mat.Dense
	Z     *mat.Dense // affine output before activation
	// Mask is the scaled dropout mask, nil when dropout did not run.
	Mask *mat.Dense
	// Hidden is false only for the output layer.
	Hidden bool
}

// Cache holds one LayerCache per layer, input layer first.
type Cache []LayerCache

// Forward runs X (features × samples) through the network with dropout
// enabled and returns the class probabilities together with the cache for
// Backward.
func (n *Network) Forward(x mat.Matrix) (*mat.Dense, Cache, error) {
	return n.forward(x, true)
}

// Predict returns the class probabilities for X without dropout.
func (n *Network) Predict(x mat.Matrix) (*mat.Dense, error) {
	al, _, err := n.forward(x, false)
	return al, err
}

func (n *Network) forward(x mat.Matrix, train bool) (*mat.Dense, Cache, error) {
	if x == nil {
		return nil, nil, dimErrorf("nil input")
	}
	if r, c := x.Dims(); r != n.cfg.Layers[0] || c == 0 {
		return nil, nil, dimErrorf("input is %dx%d, network expects %d features", r, c, n.cfg.Layers[0])
	}

	cache := make(Cache, 0, len(n.params))
	a := mat.DenseCopyOf(x)
	last := len(n.params) - 1
	for l, p := range n.params[:last] {
		z, err := tensor.Affine(p.W, a, p.B)
		if err != nil {
			return nil, nil, shapeErr(err, fmt.Sprintf("layer %d", l))
		}
		lc := LayerCache{Input: a, W: p.W, B: p.B, Z: z, Hidden: true}
		a = n.activate(z)
		if train && n.cfg.DropProb > 0 {
			lc.Mask = n.dropoutMask(a.Dims())
			a.MulElem(a, lc.Mask)
		}
		cache = append(cache, lc)
	}

	p := n.params[last]
	z, err := tensor.Affine(p.W, a, p.B)
	if err != nil {
		return nil, nil, shapeErr(err, "output layer")
	}
	cache = append(cache, LayerCache{Input: a, W: p.W, B: p.B, Z: z})
	return Softmax(z), cache, nil
}

func (n *Network) activate(z mat.Matrix) *mat.Dense {
	if _, ok := n.act.(ReLU); ok {
		return tensor.Relu(z)
	}
	return activate(n.act, z)
}

// dropoutMask draws an inverted dropout mask: each entry is 1/(1-p) with
// probability 1-p and 0 otherwise.
func (n *Network) dropoutMask(r, c int) *mat.Dense {
	keep := 1 / (1 - n.cfg.DropProb)
	data := make([]float64, r*c)
	for i := range data {
		data[i] = n.dropout.Rand() * keep
	}
	return mat.NewDense(r, c, data)
}

// Softmax normalizes every column of z into a probability distribution. The
// column max is subtracted before exponentiating; afterwards every entry is
// floored at ProbFloor and the column renormalized, so no probability is ever
// small enough to make the log in the cost blow up.
func Softmax(z mat.Matrix) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, z)
		m := floats.Max(col)
		for i, v := range col {
			col[i] = math.Exp(v - m)
		}
		normalize(col)
		for i, v := range col {
			col[i] = math.Max(v, ProbFloor)
		}
		normalize(col)
		out.SetCol(j, col)
	}
	return out
}

func normalize(col []float64) {
	s := floats.Sum(col)
	for i := range col {
		col[i] /= s
	}
}
