package nn

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"mlpnet/data"
	"mlpnet/nn/optim"
)

func TestTrainLearnsClusters(t *testing.T) {
	x, y, err := data.Clusters(4, 3, 20, 3, 0.2, rand.NewSource(11))
	require.NoError(t, err)
	n := newNet(t, Config{Layers: []int{4, 5, 3}}, 1)

	var reports, steps int
	cfg := TrainConfig{
		Iters:        500,
		Alpha:        0.01,
		BatchSize:    18,
		PrintEvery:   100,
		PercentValid: 0.1,
		Rand:         rand.New(rand.NewSource(5)),
		OnReport:     func(Report) { reports++ },
		OnStep:       func(StepTiming) { steps++ },
	}
	hist, err := n.Train(x, y, cfg)
	require.NoError(t, err)

	require.Len(t, hist.Reports, 5)
	assert.Equal(t, 5, reports)
	assert.Equal(t, 500, steps)
	for k, rep := range hist.Reports {
		assert.Equal(t, k*100, rep.Iter)
		assert.True(t, rep.HasValid)
		assert.InDelta(t, 0.01*math.Pow(AlphaDecay, float64(k)), rep.Alpha, 1e-15)
	}
	// the first report averages a single batch
	assert.Equal(t, hist.Reports[0].Cost, hist.Reports[0].AvgCost)
	assert.InDelta(t, 0.01*math.Pow(AlphaDecay, 5), hist.FinalAlpha, 1e-15)

	loss, err := n.Evaluate(x, y)
	require.NoError(t, err)
	assert.Greater(t, loss.Accuracy, 0.9)

	pred, err := n.Classify(x)
	require.NoError(t, err)
	assert.Len(t, pred, 20)
}

func TestTrainWithOptimizers(t *testing.T) {
	x, y, err := data.Clusters(4, 3, 30, 3, 0.2, rand.NewSource(2))
	require.NoError(t, err)
	for _, kind := range []optim.Kind{optim.None, optim.Momentum, optim.RMSProp, optim.Adam} {
		n := newNet(t, Config{Layers: []int{4, 6, 3}, Optimizer: kind, Beta1: 0.9, Beta2: 0.999, DropProb: 0.1, L2: 1e-4}, 3)
		before, err := n.Evaluate(x, y)
		require.NoError(t, err)
		_, err = n.Train(x, y, TrainConfig{
			Iters: 200, Alpha: 0.005, BatchSize: 10, PrintEvery: 50,
			Rand: rand.New(rand.NewSource(1)),
		})
		require.NoError(t, err, kind.String())
		after, err := n.Evaluate(x, y)
		require.NoError(t, err)
		assert.Less(t, after.Cost, before.Cost, kind.String())
	}
}

func TestTrainWithoutValidation(t *testing.T) {
	x, y, err := data.Clusters(2, 2, 8, 2, 0.1, rand.NewSource(1))
	require.NoError(t, err)
	n := newNet(t, Config{Layers: []int{2, 2}}, 1)
	hist, err := n.Train(x, y, TrainConfig{Iters: 3, Alpha: 0.1, BatchSize: 4, PrintEvery: 1, PercentValid: 0.1})
	require.NoError(t, err)
	require.Len(t, hist.Reports, 3)
	for _, rep := range hist.Reports {
		assert.False(t, rep.HasValid)
	}
}

func TestAlphaStopsDecayingAtFloor(t *testing.T) {
	x, y, err := data.Clusters(2, 2, 8, 2, 0.1, rand.NewSource(1))
	require.NoError(t, err)
	n := newNet(t, Config{Layers: []int{2, 2}}, 1)
	hist, err := n.Train(x, y, TrainConfig{Iters: 4, Alpha: 1.1e-5, BatchSize: 4, PrintEvery: 1})
	require.NoError(t, err)
	// one decay takes it below the floor, after which it is frozen
	assert.InDelta(t, 1.1e-5*AlphaDecay, hist.FinalAlpha, 1e-20)
}

func TestTrainRejectsBadConfig(t *testing.T) {
	x, y, err := data.Clusters(2, 2, 10, 2, 0.1, rand.NewSource(1))
	require.NoError(t, err)
	n := newNet(t, Config{Layers: []int{2, 2}}, 1)
	good := TrainConfig{Iters: 1, Alpha: 0.1, BatchSize: 4, PrintEvery: 1, PercentValid: 0.1}

	for name, mutate := range map[string]func(*TrainConfig){
		"iters":     func(c *TrainConfig) { c.Iters = 0 },
		"alpha":     func(c *TrainConfig) { c.Alpha = 0 },
		"batch":     func(c *TrainConfig) { c.BatchSize = 0 },
		"print":     func(c *TrainConfig) { c.PrintEvery = 0 },
		"valid":     func(c *TrainConfig) { c.PercentValid = 1 },
		"too large": func(c *TrainConfig) { c.BatchSize = 10 },
	} {
		cfg := good
		mutate(&cfg)
		_, err := n.Train(x, y, cfg)
		assert.True(t, errors.Is(err, ErrInvalidConfig), "%s: %v", name, err)
	}

	_, err = n.Train(mat.NewDense(3, 10, nil), y, good)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	_, err = n.Train(x, y[:5], good)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestDefaultTrainConfig(t *testing.T) {
	cfg := DefaultTrainConfig()
	assert.NoError(t, cfg.validate())
	assert.Equal(t, 10000, cfg.Iters)
	assert.Equal(t, 0.0001, cfg.Alpha)
	assert.Equal(t, 200, cfg.BatchSize)
}

func TestReportLine(t *testing.T) {
	rep := Report{Iter: 100, Cost: 0.5, Accuracy: 0.75, Alpha: 0.01}
	assert.Equal(t, "[100 / 500] Cost: 0.5000, Acc: 75.0%, Alpha: 0.01000", reportLine(rep, 500))

	rep.HasValid, rep.ValidCost, rep.ValidAccuracy = true, 0.25, 1
	assert.Equal(t, "[100 / 500] Cost: 0.5000, Acc: 75.0% || CostV: 0.2500, AccV: 100.0%, Alpha: 0.01000", reportLine(rep, 500))
}
