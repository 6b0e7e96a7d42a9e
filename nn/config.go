package nn

import (
	"mlpnet/nn/optim"
)

// PenaltyPolicy decides how often the regularization penalty enters the cost.
type PenaltyPolicy int

const (
	// PenaltyPerBatch adds the penalty once per batch before averaging.
	PenaltyPerBatch PenaltyPolicy = iota
	// PenaltyPerSample adds the penalty once for every sample in the batch,
	// matching older runs of this network.
	PenaltyPerSample
)

func (p PenaltyPolicy) String() string {
	switch p {
	case PenaltyPerBatch:
		return "per_batch"
	case PenaltyPerSample:
		return "per_sample"
	}
	return "unknown"
}

// Config describes a network at construction time.
type Config struct {
	// Layers holds the width of every layer, input first and classes last.
	Layers []int
	// DropProb is the dropout probability for hidden activations, in [0, 1).
	DropProb float64
	// L1 and L2 are the regularization coefficients.
	L1, L2 float64
	// Activation is applied to hidden layers. Nil means ReLU.
	Activation Activation
	Optimizer  optim.Kind
	// Beta1 and Beta2 are only read by the adam optimizer.
	Beta1, Beta2 float64
	Penalty      PenaltyPolicy
}

func (c Config) validate() error {
	if len(c.Layers) < 2 {
		return configErrorf("need at least 2 layers, got %d", len(c.Layers))
	}
	for i, d := range c.Layers {
		if d <= 0 {
			return configErrorf("layer %d has non-positive width %d", i, d)
		}
	}
	if c.DropProb < 0 || c.DropProb >= 1 {
		return configErrorf("dropout probability %v outside [0, 1)", c.DropProb)
	}
	if c.L1 < 0 || c.L2 < 0 {
		return configErrorf("regularization coefficients must be >= 0, got l1=%v l2=%v", c.L1, c.L2)
	}
	if c.Penalty != PenaltyPerBatch && c.Penalty != PenaltyPerSample {
		return configErrorf("unknown penalty policy %d", int(c.Penalty))
	}
	return nil
}
