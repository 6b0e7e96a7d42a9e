package nn

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"mlpnet/tensor"
)

// Loss is the outcome of scoring one batch.
type Loss struct {
	Accuracy float64
	Cost     float64
}

// Accuracy is the fraction of columns of al whose most probable class equals
// the label.
func Accuracy(al mat.Matrix, y []int) (float64, error) {
	_, c := al.Dims()
	if len(y) != c {
		return 0, dimErrorf("%d labels for %d samples", len(y), c)
	}
	correct := 0
	for j, k := range tensor.ArgmaxColumns(al) {
		if k == y[j] {
			correct++
		}
	}
	return float64(correct) / float64(c), nil
}

// Loss scores the softmax output al against labels y. It returns the accuracy
// and the cross-entropy cost (including the regularization penalty), plus the
// gradient seed dAL = al - onehot(y). The seed is summed, not averaged, over
// samples.
func (n *Network) Loss(al mat.Matrix, y []int) (Loss, *mat.Dense, error) {
	classes, samples := al.Dims()
	if classes != n.Classes() {
		return Loss{}, nil, dimErrorf("output has %d rows, network has %d classes", classes, n.Classes())
	}
	if len(y) != samples {
		return Loss{}, nil, dimErrorf("%d labels for %d samples", len(y), samples)
	}
	for j, k := range y {
		if k < 0 || k >= classes {
			return Loss{}, nil, errors.Wrapf(ErrInvalidLabel, "sample %d has label %d, want [0, %d)", j, k, classes)
		}
	}

	acc, err := Accuracy(al, y)
	if err != nil {
		return Loss{}, nil, err
	}

	var cost float64
	for j, k := range y {
		cost -= math.Log(al.At(k, j))
	}
	penalty := n.penalty()
	switch n.cfg.Penalty {
	case PenaltyPerSample:
		cost += penalty * float64(samples)
	default:
		cost += penalty
	}
	cost /= float64(samples)

	dal := mat.DenseCopyOf(al)
	for j, k := range y {
		dal.Set(k, j, dal.At(k, j)-1)
	}
	return Loss{Accuracy: acc, Cost: cost}, dal, nil
}

// penalty is l1·Σ(|W|+|b|) + l2·Σ(W²+b²) over every layer.
func (n *Network) penalty() float64 {
	var p float64
	if n.cfg.L1 > 0 {
		for _, l := range n.params {
			p += n.cfg.L1 * (tensor.SumAbs(l.W) + tensor.SumAbs(l.B))
		}
	}
	if n.cfg.L2 > 0 {
		for _, l := range n.params {
			p += n.cfg.L2 * (tensor.SumSquares(l.W) + tensor.SumSquares(l.B))
		}
	}
	return p
}
