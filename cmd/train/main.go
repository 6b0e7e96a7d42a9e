// mlp-train: trains a feed-forward classifier on a CSV file or synthetic clusters.
//
// Usage:
//
//	mlp-train --data=train.csv --arch="4 16 3" --optimizer=adam --iters=2000 --output=weights.json
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"

	"mlpnet/data"
	"mlpnet/nn"
	"mlpnet/utils"
)

var (
	configFile   = flag.String("config", "", "YAML training config; flags given explicitly override it")
	dataFile     = flag.String("data", "", "CSV file of label,f1,...,fn rows; synthetic clusters when empty")
	arch         = flag.String("arch", "", "Layer widths, input first, e.g. \"4 16 3\"")
	optimizer    = flag.String("optimizer", "", "none, momentum, rms_prop or adam")
	activation   = flag.String("activation", "", "Hidden activation: relu, sigmoid, tanh")
	penalty      = flag.String("penalty", "", "Regularization penalty policy: per_batch or per_sample")
	beta1        = flag.Float64("beta1", 0, "Adam first moment decay")
	beta2        = flag.Float64("beta2", 0, "Adam second moment decay")
	dropProb     = flag.Float64("drop", 0, "Dropout probability for hidden layers")
	l1           = flag.Float64("l1", 0, "L1 regularization coefficient")
	l2           = flag.Float64("l2", 0, "L2 regularization coefficient")
	iters        = flag.Int("iters", 0, "Training iterations")
	alpha        = flag.Float64("lr", 0, "Initial learning rate")
	batchSize    = flag.Int("batch", 0, "Mini-batch size")
	printEvery   = flag.Int("print-every", 0, "Iterations between reports")
	percentValid = flag.Float64("valid", 0, "Leading share of samples held out for validation")
	seed         = flag.Uint64("seed", 0, "Random seed for weights, batches and synthetic data")
	samples      = flag.Int("samples", 300, "Number of synthetic samples")
	standardize  = flag.Bool("standardize", true, "Z-score every feature before training")
	verbose      = flag.Bool("verbose", true, "Print timing statistics")
	progress     = flag.Bool("progress", true, "Show a progress bar")
	outputFile   = flag.String("output", "", "Output weights file (JSON)")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()
	utils.Verbose = *verbose

	cfg, err := loadConfig()
	if err != nil {
		klog.Fatalf("config: %v", err)
	}
	if err := utils.ValidateConfig(&cfg); err != nil {
		klog.Fatalf("invalid config: %v", err)
	}
	netCfg, err := cfg.Network()
	if err != nil {
		klog.Fatalf("invalid config: %v", err)
	}

	stats := &utils.TimingStats{}
	totalStart := time.Now()

	start := time.Now()
	x, y, err := loadData(cfg)
	if err != nil {
		klog.Fatalf("loading data: %v", err)
	}
	features, n := x.Dims()
	var mean, std []float64
	if *standardize {
		// statistics come from the training columns only
		valid := data.ValidCount(n, cfg.PercentValid)
		if valid >= n {
			klog.Fatalf("no training samples left after holding out %d for validation", valid)
		}
		mean, std = data.FitStandardization(x.Slice(0, features, valid, n))
		data.ApplyStandardization(x, mean, std)
	}
	stats.DataLoadingTime = time.Since(start)

	start = time.Now()
	net, err := nn.New(netCfg, rand.NewSource(cfg.Seed))
	if err != nil {
		klog.Fatalf("building network: %v", err)
	}
	stats.ModelInitTime = time.Since(start)

	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Architecture:  %v\n", cfg.Architecture)
	fmt.Printf("  Parameters:    %s\n", humanize.Comma(int64(countParams(net))))
	fmt.Printf("  Samples:       %s × %d features\n", humanize.Comma(int64(n)), features)
	fmt.Printf("  Optimizer:     %s\n", netCfg.Optimizer)
	fmt.Printf("  Activation:    %s\n", netCfg.Activation)
	fmt.Printf("  Iterations:    %d\n", cfg.Iters)
	fmt.Printf("  Learning Rate: %g\n", cfg.Alpha)
	fmt.Println()

	tc := cfg.Training()
	var bar *progressbar.ProgressBar
	if *progress {
		bar = progressbar.NewOptions(cfg.Iters,
			progressbar.OptionSetDescription("training"),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("steps"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionSetWriter(os.Stderr),
		)
	}
	tc.OnStep = func(t nn.StepTiming) {
		stats.Record(t)
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	hist, err := net.Train(x, y, tc)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		klog.Fatalf("training: %v", err)
	}
	stats.TotalTime = time.Since(totalStart)

	final, err := net.Evaluate(x, y)
	if err != nil {
		klog.Fatalf("evaluating: %v", err)
	}
	fmt.Printf("\nTraining complete! %d reports, final learning rate %.6f\n", len(hist.Reports), hist.FinalAlpha)
	fmt.Printf("Cost: %.4f, Accuracy: %.1f%%\n", final.Cost, 100*final.Accuracy)
	utils.PrintTimingStats(stats)

	if *outputFile != "" {
		weights := utils.FromParams(cfg.Architecture, net.Params())
		weights.Activation = netCfg.Activation.String()
		weights.Mean, weights.Std = mean, std
		if err := utils.SaveWeights(*outputFile, weights); err != nil {
			klog.Fatalf("saving weights: %v", err)
		}
		klog.Infof("weights written to %s", *outputFile)
	}
}

// loadConfig layers explicitly set flags over the config file or the defaults.
func loadConfig() (utils.Config, error) {
	cfg := utils.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = utils.LoadConfig(*configFile); err != nil {
			return cfg, err
		}
	}
	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Data = *dataFile
		case "arch":
			var a []int
			if a, err = utils.ParseArchitecture(*arch); err == nil {
				cfg.Architecture = a
			}
		case "optimizer":
			cfg.Optimizer = *optimizer
		case "activation":
			cfg.Activation = *activation
		case "penalty":
			cfg.Penalty = *penalty
		case "beta1":
			cfg.Beta1 = *beta1
		case "beta2":
			cfg.Beta2 = *beta2
		case "drop":
			cfg.DropProb = *dropProb
		case "l1":
			cfg.L1 = *l1
		case "l2":
			cfg.L2 = *l2
		case "iters":
			cfg.Iters = *iters
		case "lr":
			cfg.Alpha = *alpha
		case "batch":
			cfg.BatchSize = *batchSize
		case "print-every":
			cfg.PrintEvery = *printEvery
		case "valid":
			cfg.PercentValid = *percentValid
		case "seed":
			cfg.Seed = *seed
		}
	})
	return cfg, errors.Wrap(err, "parsing --arch")
}

func loadData(cfg utils.Config) (*mat.Dense, []int, error) {
	features, classes := cfg.Architecture[0], cfg.Architecture[len(cfg.Architecture)-1]
	if cfg.Data == "" {
		klog.Infof("generating %d synthetic samples in %d classes", *samples, classes)
		return data.Clusters(features, classes, *samples, 3, 0.5, rand.NewSource(cfg.Seed+2))
	}
	f, err := os.Open(cfg.Data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening data")
	}
	defer f.Close()
	x, y, err := data.LoadCSV(f, features)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading %s", cfg.Data)
	}
	for j, label := range y {
		if label >= classes {
			return nil, nil, errors.Errorf("sample %d has label %d but the network has %d classes", j, label, classes)
		}
	}
	return x, y, nil
}

func countParams(net *nn.Network) int {
	total := 0
	for _, p := range net.Params() {
		r, c := p.W.Dims()
		br, _ := p.B.Dims()
		total += r*c + br
	}
	return total
}
