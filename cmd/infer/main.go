// mlp-infer: classifies a CSV file with saved weights
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"

	"mlpnet/data"
	"mlpnet/nn"
	"mlpnet/utils"
)

var (
	weightsFile = flag.String("weights", "", "Weights JSON file written by mlp-train")
	inputFile   = flag.String("input", "", "CSV file of label,f1,...,fn rows")
	activation  = flag.String("activation", "", "Hidden activation; defaults to the one stored with the weights")
	topK        = flag.Int("topk", 3, "Top predictions to show")
	show        = flag.Int("show", 5, "Number of samples to show predictions for")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if *weightsFile == "" || *inputFile == "" {
		fmt.Fprintln(os.Stderr, "both --weights and --input are required")
		flag.Usage()
		os.Exit(2)
	}

	weights, err := utils.LoadWeights(*weightsFile)
	if err != nil {
		klog.Fatalf("loading weights: %v", err)
	}
	fmt.Printf("Loaded %d layers, architecture %v\n", len(weights.Layers), weights.Architecture)
	params, err := weights.ToParams()
	if err != nil {
		klog.Fatalf("decoding weights: %v", err)
	}
	name := *activation
	if name == "" {
		name = weights.Activation
	}
	act, err := nn.LookupActivation(name)
	if err != nil {
		klog.Fatalf("%v", err)
	}
	// the source only fills parameters that SetParams replaces
	net, err := nn.New(nn.Config{Layers: weights.Architecture, Activation: act}, rand.NewSource(1))
	if err != nil {
		klog.Fatalf("building network: %v", err)
	}
	if err := net.SetParams(params); err != nil {
		klog.Fatalf("restoring weights: %v", err)
	}

	f, err := os.Open(*inputFile)
	if err != nil {
		klog.Fatalf("opening input: %v", err)
	}
	x, y, err := data.LoadCSV(f, weights.Architecture[0])
	f.Close()
	if err != nil {
		klog.Fatalf("reading %s: %v", *inputFile, err)
	}
	if len(weights.Mean) > 0 {
		data.ApplyStandardization(x, weights.Mean, weights.Std)
	}
	_, n := x.Dims()
	fmt.Printf("Samples: %d\n", n)

	start := time.Now()
	probs, err := net.Predict(x)
	if err != nil {
		klog.Fatalf("predicting: %v", err)
	}
	fmt.Printf("Inference time: %.4fs\n", time.Since(start).Seconds())

	for j := 0; j < n && j < *show; j++ {
		showResults(j, mat.Col(nil, j, probs), *topK)
	}

	loss, err := net.Evaluate(x, y)
	if err != nil {
		klog.Warningf("labels do not fit the network, skipping scoring: %v", err)
		return
	}
	fmt.Printf("\nCost: %.4f, Accuracy: %.1f%%\n", loss.Cost, 100*loss.Accuracy)
}

func showResults(sample int, probs []float64, k int) {
	indices := topKIndices(probs, k)
	fmt.Printf("\nSample %d, top %d predictions:\n", sample, len(indices))
	for i, idx := range indices {
		fmt.Printf("  %d. Class %d: %.4f\n", i+1, idx, probs[idx])
	}
}

func topKIndices(vals []float64, k int) []int {
	sorted := append([]float64(nil), vals...)
	idx := make([]int, len(vals))
	floats.Argsort(sorted, idx)
	if k > len(idx) {
		k = len(idx)
	}
	top := make([]int, k)
	for i := range top {
		top[i] = idx[len(idx)-1-i]
	}
	return top
}
