package nn

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"

	"mlpnet/data"
	"mlpnet/tensor"
)

const (
	// AlphaDecay multiplies the learning rate after every report.
	AlphaDecay = 0.82
	// AlphaFloor stops the decay once the learning rate falls below it.
	AlphaFloor = 1e-5
)

// TrainConfig controls one call to Train.
type TrainConfig struct {
	Iters      int
	Alpha      float64
	BatchSize  int
	PrintEvery int
	// PercentValid is the leading share of samples held out for validation.
	PercentValid float64
	// Rand drives batch sampling. Nil seeds a fresh generator from system
	// entropy on every call.
	Rand *rand.Rand
	// OnReport, if set, receives every report as it is produced.
	OnReport func(Report)
	// OnStep, if set, receives the timing of every iteration.
	OnStep func(StepTiming)
}

// DefaultTrainConfig mirrors the settings the network was tuned with.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Iters:        10000,
		Alpha:        0.0001,
		BatchSize:    200,
		PrintEvery:   100,
		PercentValid: 0.1,
	}
}

func (c TrainConfig) validate() error {
	if c.Iters <= 0 || c.BatchSize <= 0 || c.PrintEvery <= 0 {
		return configErrorf("iters, batch size and print interval must be positive, got %d, %d, %d",
			c.Iters, c.BatchSize, c.PrintEvery)
	}
	if c.Alpha <= 0 {
		return configErrorf("learning rate must be positive, got %v", c.Alpha)
	}
	if c.PercentValid < 0 || c.PercentValid >= 1 {
		return configErrorf("validation share %v outside [0, 1)", c.PercentValid)
	}
	return nil
}

// StepTiming is how long each stage of one iteration took.
type StepTiming struct {
	Forward, Loss, Backward, Update time.Duration
}

// Report is the training state at one reporting iteration.
type Report struct {
	Iter int
	// Cost and Accuracy are from the batch of this iteration.
	Cost, Accuracy float64
	// AvgCost and AvgAccuracy average the batches since the last report.
	AvgCost, AvgAccuracy float64
	// HasValid is false when there is no validation set.
	HasValid                 bool
	ValidCost, ValidAccuracy float64
	Alpha                    float64
}

// History collects the reports of a training run.
type History struct {
	Reports    []Report
	FinalAlpha float64
}

// Train fits the network to X (features × samples) and labels y. The leading
// PercentValid of the samples is held out and scored every PrintEvery
// iterations, at which point the learning rate decays.
func (n *Network) Train(x mat.Matrix, y []int, cfg TrainConfig) (*History, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if x == nil {
		return nil, dimErrorf("nil input")
	}
	if r, c := x.Dims(); r != n.cfg.Layers[0] || c != len(y) {
		return nil, dimErrorf("input is %dx%d with %d labels, network expects %d features", r, c, len(y), n.cfg.Layers[0])
	}
	split, err := data.SplitData(x, y, cfg.PercentValid)
	if err != nil {
		return nil, shapeErr(err, "split")
	}
	if _, c := split.TrainX.Dims(); cfg.BatchSize > c {
		return nil, configErrorf("batch size %d larger than the %d training samples", cfg.BatchSize, c)
	}
	sampler := data.NewSampler(cfg.Rand)

	hist := &History{}
	alpha := cfg.Alpha
	var costs, accuracies float64
	for i := 0; i < cfg.Iters; i++ {
		xb, yb, err := sampler.Batch(split.TrainX, split.TrainY, cfg.BatchSize)
		if err != nil {
			return hist, errors.Wrapf(err, "iteration %d", i)
		}
		loss, timing, err := n.step(xb, yb, alpha)
		if err != nil {
			return hist, errors.Wrapf(err, "iteration %d", i)
		}
		if cfg.OnStep != nil {
			cfg.OnStep(timing)
		}
		costs += loss.Cost
		accuracies += loss.Accuracy

		if i%cfg.PrintEvery != 0 {
			continue
		}
		rep := Report{Iter: i, Cost: loss.Cost, Accuracy: loss.Accuracy, AvgCost: costs, AvgAccuracy: accuracies, Alpha: alpha}
		if i > 0 {
			rep.AvgCost /= float64(cfg.PrintEvery)
			rep.AvgAccuracy /= float64(cfg.PrintEvery)
		}
		if split.ValidX != nil {
			v, err := n.Evaluate(split.ValidX, split.ValidY)
			if err != nil {
				return hist, errors.Wrapf(err, "validating at iteration %d", i)
			}
			rep.HasValid, rep.ValidCost, rep.ValidAccuracy = true, v.Cost, v.Accuracy
		}
		klog.Info(reportLine(rep, cfg.Iters))
		hist.Reports = append(hist.Reports, rep)
		if cfg.OnReport != nil {
			cfg.OnReport(rep)
		}

		if alpha >= AlphaFloor {
			alpha *= AlphaDecay
		}
		costs, accuracies = 0, 0
	}
	hist.FinalAlpha = alpha
	return hist, nil
}

// reportLine formats a report for the log. The validation part is left out
// when there is no validation set.
func reportLine(rep Report, iters int) string {
	line := fmt.Sprintf("[%d / %d] Cost: %.4f, Acc: %.1f%%", rep.Iter, iters, rep.Cost, 100*rep.Accuracy)
	if rep.HasValid {
		line += fmt.Sprintf(" || CostV: %.4f, AccV: %.1f%%", rep.ValidCost, 100*rep.ValidAccuracy)
	}
	return line + fmt.Sprintf(", Alpha: %.5f", rep.Alpha)
}

// step runs one forward, loss, backward and update cycle on a batch.
func (n *Network) step(x mat.Matrix, y []int, alpha float64) (Loss, StepTiming, error) {
	var t StepTiming
	start := time.Now()
	al, cache, err := n.Forward(x)
	if err != nil {
		return Loss{}, t, err
	}
	t.Forward = time.Since(start)

	start = time.Now()
	loss, dal, err := n.Loss(al, y)
	if err != nil {
		return Loss{}, t, err
	}
	t.Loss = time.Since(start)

	start = time.Now()
	grads, err := n.Backward(dal, cache)
	if err != nil {
		return Loss{}, t, err
	}
	t.Backward = time.Since(start)

	start = time.Now()
	if err := n.Update(grads, alpha); err != nil {
		return Loss{}, t, err
	}
	t.Update = time.Since(start)
	return loss, t, nil
}

// Evaluate scores X and y without dropout and without touching parameters.
func (n *Network) Evaluate(x mat.Matrix, y []int) (Loss, error) {
	al, err := n.Predict(x)
	if err != nil {
		return Loss{}, err
	}
	loss, _, err := n.Loss(al, y)
	return loss, err
}

// Classify returns the most probable class of every column of X.
func (n *Network) Classify(x mat.Matrix) ([]int, error) {
	al, err := n.Predict(x)
	if err != nil {
		return nil, err
	}
	return tensor.ArgmaxColumns(al), nil
}
