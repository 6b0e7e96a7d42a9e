package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"mlpnet/nn/optim"
	"mlpnet/tensor"
)

// Backward propagates the gradient seed dAL through the cache of the matching
// forward pass and returns one gradient per layer, input layer first.
// Gradients are summed over the batch; weight gradients come out as (out, in).
func (n *Network) Backward(dal mat.Matrix, cache Cache) ([]optim.Grad, error) {
	if len(cache) != len(n.params) {
		return nil, dimErrorf("cache has %d layers, network has %d", len(cache), len(n.params))
	}
	last := len(cache) - 1
	if err := tensor.SameShape(dal, cache[last].Z); err != nil {
		return nil, shapeErr(err, "gradient seed")
	}

	grads := make([]optim.Grad, len(cache))
	da := mat.DenseCopyOf(dal)
	for r := last; r >= 0; r-- {
		lc := cache[r]
		dz := da
		if lc.Hidden {
			var err error
			if dz, err = n.hiddenBackward(da, lc); err != nil {
				return nil, shapeErr(err, fmt.Sprintf("layer %d", r))
			}
		}
		prev, g, err := n.affineBackward(dz, lc)
		if err != nil {
			return nil, shapeErr(err, fmt.Sprintf("layer %d", r))
		}
		grads[r] = g
		da = prev
	}
	return grads, nil
}

// hiddenBackward undoes dropout and the activation of a hidden layer.
func (n *Network) hiddenBackward(da *mat.Dense, lc LayerCache) (*mat.Dense, error) {
	if lc.Mask != nil {
		var err error
		if da, err = tensor.MulElem(da, lc.Mask); err != nil {
			return nil, err
		}
	}
	return tensor.MulElem(da, derivative(n.act, lc.Z))
}

// affineBackward returns dA_prev = W·dZ and the layer gradients
// dW = dZ·Aᵀ, db = Σ_samples dZ, plus the regularization terms.
func (n *Network) affineBackward(dz *mat.Dense, lc LayerCache) (*mat.Dense, optim.Grad, error) {
	in, out := lc.W.Dims()
	zr, samples := dz.Dims()
	if zr != out {
		return nil, optim.Grad{}, dimErrorf("gradient has %d rows, layer has %d outputs", zr, out)
	}
	if err := tensor.CheckShape(lc.Input, in, samples); err != nil {
		return nil, optim.Grad{}, err
	}

	prev := mat.NewDense(in, samples, nil)
	prev.Mul(lc.W, dz)

	dw := mat.NewDense(out, in, nil)
	dw.Mul(dz, lc.Input.T())
	db := tensor.RowSums(dz)

	if l1 := n.cfg.L1; l1 > 0 {
		var s mat.Dense
		s.Scale(l1, tensor.Sign(lc.W.T()))
		dw.Add(dw, &s)
		s.Reset()
		s.Scale(l1, tensor.Sign(lc.B))
		db.Add(db, &s)
	}
	if l2 := n.cfg.L2; l2 > 0 {
		var s mat.Dense
		s.Scale(2*l2, lc.W.T())
		dw.Add(dw, &s)
		s.Reset()
		s.Scale(2*l2, lc.B)
		db.Add(db, &s)
	}
	return prev, optim.Grad{DW: dw, DB: db}, nil
}
