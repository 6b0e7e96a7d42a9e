package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gopkg.in/yaml.v3"

	"mlpnet/nn"
	"mlpnet/nn/optim"
)

// Config holds training configuration
type Config struct {
	Architecture []int   `yaml:"architecture"`
	Data         string  `yaml:"data"`
	Activation   string  `yaml:"activation"`
	Optimizer    string  `yaml:"optimizer"`
	Beta1        float64 `yaml:"beta1"`
	Beta2        float64 `yaml:"beta2"`
	DropProb     float64 `yaml:"drop_prob"`
	L1           float64 `yaml:"l1"`
	L2           float64 `yaml:"l2"`
	Penalty      string  `yaml:"penalty"`
	Iters        int     `yaml:"iters"`
	Alpha        float64 `yaml:"alpha"`
	BatchSize    int     `yaml:"batch_size"`
	PrintEvery   int     `yaml:"print_every"`
	PercentValid float64 `yaml:"percent_valid"`
	Seed         uint64  `yaml:"seed"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	tc := nn.DefaultTrainConfig()
	return Config{
		Architecture: []int{4, 5, 3},
		Activation:   "relu",
		Optimizer:    "none",
		Penalty:      nn.PenaltyPerBatch.String(),
		Iters:        tc.Iters,
		Alpha:        tc.Alpha,
		BatchSize:    tc.BatchSize,
		PrintEvery:   tc.PrintEvery,
		PercentValid: tc.PercentValid,
		Seed:         1,
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(strings.ReplaceAll(archStr, ",", " "))
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		arch[i] = n
	}
	return arch, nil
}

// ParsePenalty maps a policy name to its nn value.
func ParsePenalty(name string) (nn.PenaltyPolicy, error) {
	switch strings.ToLower(name) {
	case "", nn.PenaltyPerBatch.String():
		return nn.PenaltyPerBatch, nil
	case nn.PenaltyPerSample.String():
		return nn.PenaltyPerSample, nil
	}
	return 0, errors.Wrapf(nn.ErrInvalidConfig, "unknown penalty policy %q", name)
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if len(config.Architecture) < 2 {
		return errors.New("architecture must have at least 2 layers (input and output)")
	}
	if config.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}
	if config.Iters <= 0 {
		return errors.New("iters must be positive")
	}
	if config.PrintEvery <= 0 {
		return errors.New("print interval must be positive")
	}
	if config.Alpha <= 0 {
		return errors.New("learning rate must be positive")
	}
	if _, err := optim.ParseKind(config.Optimizer); err != nil {
		return err
	}
	if _, err := nn.LookupActivation(config.Activation); err != nil {
		return err
	}
	_, err := ParsePenalty(config.Penalty)
	return err
}

// Network converts the config into the network constructor settings.
func (c Config) Network() (nn.Config, error) {
	kind, err := optim.ParseKind(c.Optimizer)
	if err != nil {
		return nn.Config{}, err
	}
	act, err := nn.LookupActivation(c.Activation)
	if err != nil {
		return nn.Config{}, err
	}
	penalty, err := ParsePenalty(c.Penalty)
	if err != nil {
		return nn.Config{}, err
	}
	return nn.Config{
		Layers:     append([]int(nil), c.Architecture...),
		DropProb:   c.DropProb,
		L1:         c.L1,
		L2:         c.L2,
		Activation: act,
		Optimizer:  kind,
		Beta1:      c.Beta1,
		Beta2:      c.Beta2,
		Penalty:    penalty,
	}, nil
}

// Training converts the config into the training loop settings. Batches are
// drawn from a generator seeded with Seed+1 so they do not mirror the weights.
func (c Config) Training() nn.TrainConfig {
	return nn.TrainConfig{
		Iters:        c.Iters,
		Alpha:        c.Alpha,
		BatchSize:    c.BatchSize,
		PrintEvery:   c.PrintEvery,
		PercentValid: c.PercentValid,
		Rand:         rand.New(rand.NewSource(c.Seed + 1)),
	}
}
