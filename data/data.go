// Package data prepares labelled samples for the network: splitting,
// mini-batch sampling, standardization, synthetic clusters and CSV loading.
// Feature matrices are features × samples with one label per column.
package data

import (
	crand "crypto/rand"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"mlpnet/tensor"
)

// ErrBatch is returned when a batch cannot be drawn from the samples given.
var ErrBatch = errors.New("invalid batch")

// Split is a train/validation partition of a data set.
type Split struct {
	TrainX *mat.Dense
	TrainY []int
	// ValidX is nil when the validation share rounds down to zero samples.
	ValidX *mat.Dense
	ValidY []int
}

// SplitData puts the leading int(samples·percentValid) columns into the
// validation set and the rest into the training set. Column order is kept.
func SplitData(x mat.Matrix, y []int, percentValid float64) (Split, error) {
	r, c := x.Dims()
	if len(y) != c {
		return Split{}, errors.Wrapf(tensor.ErrShape, "%d labels for %d samples", len(y), c)
	}
	if percentValid < 0 || percentValid >= 1 {
		return Split{}, errors.Errorf("validation share %v outside [0, 1)", percentValid)
	}
	split := ValidCount(c, percentValid)
	if split >= c {
		return Split{}, errors.Errorf("no training samples left after taking %d for validation", split)
	}

	var s Split
	if split > 0 {
		s.ValidX = mat.DenseCopyOf(columns(x, r, 0, split))
		s.ValidY = append([]int(nil), y[:split]...)
	}
	s.TrainX = mat.DenseCopyOf(columns(x, r, split, c))
	s.TrainY = append([]int(nil), y[split:]...)
	return s, nil
}

// ValidCount is the number of leading samples SplitData holds out.
func ValidCount(samples int, percentValid float64) int {
	return int(float64(samples) * percentValid)
}

func columns(x mat.Matrix, rows, from, to int) mat.Matrix {
	if d, ok := x.(*mat.Dense); ok {
		return d.Slice(0, rows, from, to)
	}
	return mat.DenseCopyOf(x).Slice(0, rows, from, to)
}

// Sampler draws mini-batches without replacement.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler drawing from rng. A nil rng is seeded from
// system entropy, so batches differ from run to run.
func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(entropySeed()))
	}
	return &Sampler{rng: rng}
}

// entropySeed reads a seed from crypto/rand, falling back to the clock.
// The x/exp/rand global generator always starts from seed 1.
func entropySeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Batch picks size distinct columns of x, with their labels.
func (s *Sampler) Batch(x mat.Matrix, y []int, size int) (*mat.Dense, []int, error) {
	_, c := x.Dims()
	if len(y) != c {
		return nil, nil, errors.Wrapf(tensor.ErrShape, "%d labels for %d samples", len(y), c)
	}
	if size <= 0 || size > c {
		return nil, nil, errors.Wrapf(ErrBatch, "batch of %d from %d samples", size, c)
	}
	idx := s.rng.Perm(c)[:size]
	xb, err := tensor.SelectColumns(x, idx)
	if err != nil {
		return nil, nil, err
	}
	yb := make([]int, size)
	for k, j := range idx {
		yb[k] = y[j]
	}
	return xb, yb, nil
}

// Standardize rescales every feature row of x in place to zero mean and unit
// standard deviation, returning the statistics so other sets can be scaled
// the same way with ApplyStandardization. Constant rows keep a deviation of 1.
func Standardize(x *mat.Dense) (mean, std []float64) {
	mean, std = FitStandardization(x)
	ApplyStandardization(x, mean, std)
	return mean, std
}

// FitStandardization returns the per-feature mean and standard deviation of
// x without modifying it. Constant rows get a deviation of 1.
func FitStandardization(x mat.Matrix) (mean, std []float64) {
	r, c := x.Dims()
	mean = make([]float64, r)
	std = make([]float64, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, x)
		mean[i], std[i] = stat.MeanStdDev(row, nil)
		if std[i] == 0 || c < 2 {
			std[i] = 1
		}
	}
	return mean, std
}

// ApplyStandardization scales x in place with previously computed statistics.
func ApplyStandardization(x *mat.Dense, mean, std []float64) {
	x.Apply(func(i, _ int, v float64) float64 {
		return (v - mean[i]) / std[i]
	}, x)
}

// Clusters generates linearly separable samples with gaussian noise of the
// given spread. Class k < classes-1 is centred at scale on feature k; the last
// class is centred at -scale on each of those features, so the centres sum to
// zero. Sample j has label j % classes.
func Clusters(features, classes, samples int, scale, spread float64, src rand.Source) (*mat.Dense, []int, error) {
	if features <= 0 || classes < 2 || samples <= 0 {
		return nil, nil, errors.Errorf("need positive features and samples and at least 2 classes, got %d, %d, %d", features, classes, samples)
	}
	if classes-1 > features {
		return nil, nil, errors.Errorf("%d classes need at least %d features", classes, classes-1)
	}
	noise := distuv.Normal{Mu: 0, Sigma: spread, Src: src}
	last := classes - 1
	x := mat.NewDense(features, samples, nil)
	y := make([]int, samples)
	for j := 0; j < samples; j++ {
		k := j % classes
		y[j] = k
		for i := 0; i < features; i++ {
			v := noise.Rand()
			switch {
			case k < last && i == k:
				v += scale
			case k == last && i < last:
				v -= scale
			}
			x.Set(i, j, v)
		}
	}
	return x, y, nil
}
