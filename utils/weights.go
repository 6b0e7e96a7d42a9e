package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"mlpnet/nn/optim"
)

// WeightVersion tags snapshots written by SaveWeights.
const WeightVersion = "1"

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents all weights in a model
type ModelWeights struct {
	Version string `json:"version"`
	// Architecture is the layer widths, input first.
	Architecture []int         `json:"architecture"`
	Activation   string        `json:"activation,omitempty"`
	Layers       []LayerWeight `json:"layers"`
	// Mean and Std are the feature statistics the inputs were standardized
	// with during training, if any.
	Mean []float64 `json:"mean,omitempty"`
	Std  []float64 `json:"std,omitempty"`
}

// LayerWeight contains weights and bias for a layer
type LayerWeight struct {
	Weight *WeightData `json:"weight"`
	Bias   *WeightData `json:"bias"`
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal weights")
	}
	return errors.Wrap(os.WriteFile(filepath, data, 0644), "failed to write weights")
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read weights file")
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal weights")
	}
	return &weights, nil
}

// MatrixToWeightData converts a matrix to serializable weight data
func MatrixToWeightData(name string, m mat.Matrix) *WeightData {
	r, c := m.Dims()
	d := mat.DenseCopyOf(m)
	return &WeightData{
		Name:  name,
		Shape: []int{r, c},
		Data:  append([]float64{}, d.RawMatrix().Data...),
	}
}

// WeightDataToMatrix converts weight data back to a matrix
func WeightDataToMatrix(wd *WeightData) (*mat.Dense, error) {
	if wd == nil {
		return nil, errors.New("missing weight data")
	}
	if len(wd.Shape) != 2 || wd.Shape[0] <= 0 || wd.Shape[1] <= 0 || wd.Shape[0]*wd.Shape[1] != len(wd.Data) {
		return nil, errors.Errorf("%s: shape %v does not fit %d values", wd.Name, wd.Shape, len(wd.Data))
	}
	return mat.NewDense(wd.Shape[0], wd.Shape[1], append([]float64{}, wd.Data...)), nil
}

// FromParams snapshots network parameters.
func FromParams(arch []int, params []optim.Layer) *ModelWeights {
	w := &ModelWeights{Version: WeightVersion, Architecture: append([]int(nil), arch...)}
	for i, p := range params {
		w.Layers = append(w.Layers, LayerWeight{
			Weight: MatrixToWeightData(fmt.Sprintf("layer%d.weight", i), p.W),
			Bias:   MatrixToWeightData(fmt.Sprintf("layer%d.bias", i), p.B),
		})
	}
	return w
}

// Validate checks the snapshot header: version, layer count and the
// standardization statistics, which must be absent or one positive
// deviation per input feature.
func (w *ModelWeights) Validate() error {
	if w.Version != WeightVersion {
		return errors.Errorf("unsupported weights version %q", w.Version)
	}
	if len(w.Architecture) < 2 || len(w.Layers) != len(w.Architecture)-1 {
		return errors.Errorf("%d layers stored for architecture %v", len(w.Layers), w.Architecture)
	}
	features := w.Architecture[0]
	if len(w.Mean) != len(w.Std) || (len(w.Mean) != 0 && len(w.Mean) != features) {
		return errors.Errorf("standardization has %d means and %d deviations for %d features", len(w.Mean), len(w.Std), features)
	}
	for i, s := range w.Std {
		if !(s > 0) || math.IsInf(s, 0) {
			return errors.Errorf("feature %d has standard deviation %v", i, s)
		}
	}
	return nil
}

// ToParams restores the parameters of a snapshot, ready for nn.Network.SetParams.
func (w *ModelWeights) ToParams() ([]optim.Layer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	params := make([]optim.Layer, len(w.Layers))
	for i, l := range w.Layers {
		wm, err := WeightDataToMatrix(l.Weight)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		bm, err := WeightDataToMatrix(l.Bias)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		params[i] = optim.Layer{W: wm, B: bm}
	}
	return params, nil
}
