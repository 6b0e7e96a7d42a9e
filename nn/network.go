// Package nn implements a fully-connected feed-forward classifier trained by
// mini-batch gradient descent.
//
// Matrices are laid out features × samples: an input batch has one column per
// sample, and Predict returns one column of class probabilities per sample.
//
//	net, err := nn.New(nn.Config{Layers: []int{784, 128, 10}}, rand.NewSource(1))
//	hist, err := net.Train(X, y, nn.DefaultTrainConfig())
//	probs, err := net.Predict(Xtest)
package nn

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"k8s.io/klog/v2"

	"mlpnet/nn/optim"
	"mlpnet/tensor"
)

// InitScale multiplies the standard normal draws used for initial weights.
const InitScale = 0.1

// Network owns its parameters, optimizer state and dropout generator.
type Network struct {
	cfg     Config
	act     Activation
	params  []optim.Layer
	opt     optim.Optimizer
	dropout distuv.Bernoulli
}

// New validates cfg and initializes the weights from src. Two networks built
// from sources with the same seed start with identical parameters.
func New(cfg Config, src rand.Source) (*Network, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, configErrorf("nil random source")
	}
	cfg.Layers = append([]int(nil), cfg.Layers...)

	n := &Network{
		cfg:     cfg,
		act:     cfg.Activation,
		params:  make([]optim.Layer, len(cfg.Layers)-1),
		dropout: distuv.Bernoulli{P: 1 - cfg.DropProb, Src: src},
	}
	if n.act == nil {
		n.act = ReLU{}
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	shapes := make([]optim.Shape, len(n.params))
	for i := range n.params {
		in, out := cfg.Layers[i], cfg.Layers[i+1]
		data := make([]float64, in*out)
		for k := range data {
			data[k] = InitScale * normal.Rand()
		}
		n.params[i] = optim.Layer{
			W: mat.NewDense(in, out, data),
			B: mat.NewDense(out, 1, nil),
		}
		shapes[i] = optim.Shape{Rows: in, Cols: out}
	}

	opt, err := optim.New(optim.Config{Kind: cfg.Optimizer, Beta1: cfg.Beta1, Beta2: cfg.Beta2}, shapes)
	if err != nil {
		return nil, configErrorf("optimizer: %v", err)
	}
	n.opt = opt

	klog.V(1).Infof("network %v: activation=%s dropout=%v l1=%v l2=%v optimizer=%s penalty=%s",
		cfg.Layers, n.act, cfg.DropProb, cfg.L1, cfg.L2, opt.Kind(), cfg.Penalty)
	return n, nil
}

// Config returns the configuration the network was built with.
func (n *Network) Config() Config {
	c := n.cfg
	c.Layers = append([]int(nil), c.Layers...)
	c.Activation = n.act
	return c
}

// Layers returns the layer widths.
func (n *Network) Layers() []int { return append([]int(nil), n.cfg.Layers...) }

// Classes is the width of the output layer.
func (n *Network) Classes() int { return n.cfg.Layers[len(n.cfg.Layers)-1] }

// Params returns a copy of every layer's weight and bias.
func (n *Network) Params() []optim.Layer {
	out := make([]optim.Layer, len(n.params))
	for i, p := range n.params {
		out[i] = optim.Layer{W: tensor.Clone(p.W), B: tensor.Clone(p.B)}
	}
	return out
}

// SetParams replaces the parameters with copies of layers, which must match
// the layer widths exactly. Optimizer state is left untouched.
func (n *Network) SetParams(layers []optim.Layer) error {
	if len(layers) != len(n.params) {
		return dimErrorf("got %d layers, network has %d", len(layers), len(n.params))
	}
	for i, l := range layers {
		if l.W == nil || l.B == nil {
			return dimErrorf("layer %d: missing weight or bias", i)
		}
		in, out := n.cfg.Layers[i], n.cfg.Layers[i+1]
		if err := tensor.CheckShape(l.W, in, out); err != nil {
			return shapeErr(err, fmt.Sprintf("weight %d", i))
		}
		if err := tensor.CheckShape(l.B, out, 1); err != nil {
			return shapeErr(err, fmt.Sprintf("bias %d", i))
		}
	}
	for i, l := range layers {
		n.params[i].W.Copy(l.W)
		n.params[i].B.Copy(l.B)
	}
	return nil
}

// Update applies one optimizer step with the given gradients.
func (n *Network) Update(grads []optim.Grad, alpha float64) error {
	if err := n.opt.Step(n.params, grads, alpha); err != nil {
		if errors.Is(err, optim.ErrDimensionMismatch) {
			return dimErrorf("update: %v", err)
		}
		return err
	}
	return nil
}
