package trainer

import (
	"context"
	"errors"
	"image"
	"math"
	"path/filepath"
	"testing"

	"backprop-forge/internal/dataset"
	"backprop-forge/internal/network"
)

type fakeNet struct {
	errs    []float64
	failAt  int
	epoch   int
	rate    float64
	saved   string
	saveErr error
}

func (f *fakeNet) RunEpoch() (network.EpochResult, error) {
	f.epoch++
	if f.epoch == f.failAt {
		return network.EpochResult{Epoch: f.epoch}, &network.SampleError{Epoch: f.epoch, Key: "bad", Err: errors.New("boom")}
	}
	e := 1.0
	if f.epoch <= len(f.errs) {
		e = f.errs[f.epoch-1]
	}
	return network.EpochResult{Epoch: f.epoch, Error: e, TrainSamples: 7, ValidationSamples: 3}, nil
}

func (f *fakeNet) DecayLearningRate(factor float64) { f.rate *= factor }
func (f *fakeNet) LearningRate() float64            { return f.rate }
func (f *fakeNet) Epoch() int                       { return f.epoch }

func (f *fakeNet) SaveFile(path string) error {
	f.saved = path
	return f.saveErr
}

func TestRunStopsAtEpochCap(t *testing.T) {
	net := &fakeNet{rate: 1}
	sum, err := Run(context.Background(), net, RunConfig{WeightsOut: "w.txt"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Epochs != DefaultMaxEpochs || net.epoch != DefaultMaxEpochs {
		t.Fatalf("ran %d epochs, want %d", net.epoch, DefaultMaxEpochs)
	}
	if sum.Converged {
		t.Fatal("run reported convergence")
	}
	if want := math.Pow(DefaultDecay, DefaultMaxEpochs); math.Abs(net.rate-want) > 1e-12 {
		t.Fatalf("rate %v, want %v", net.rate, want)
	}
	if !sum.Saved || net.saved != "w.txt" {
		t.Fatalf("weights were not saved: %+v", sum)
	}
	if sum.RunID == "" {
		t.Fatal("missing run id")
	}
}

func TestRunStopsWhenErrorIsLow(t *testing.T) {
	net := &fakeNet{rate: 1, errs: []float64{0.5, 0.2, 0.01, 0.001}}
	sum, err := Run(context.Background(), net, RunConfig{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Epochs != 3 || !sum.Converged || sum.Error != 0.01 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if net.saved != "" {
		t.Fatal("saved without an output path")
	}
}

func TestRunFailureIsFatal(t *testing.T) {
	net := &fakeNet{rate: 1, failAt: 4}
	sum, err := Run(context.Background(), net, RunConfig{WeightsOut: "w.txt"})
	if !errors.Is(err, network.ErrTraining) {
		t.Fatalf("expected training failure, got %v", err)
	}
	if net.epoch != 4 || sum.Epochs != 3 {
		t.Fatalf("kept training after failure: epoch=%d summary=%d", net.epoch, sum.Epochs)
	}
	if net.saved != "" {
		t.Fatal("saved weights after a failed epoch")
	}
}

func TestRunSaveErrorIsReported(t *testing.T) {
	net := &fakeNet{rate: 1, errs: []float64{0}, saveErr: network.ErrIO}
	sum, err := Run(context.Background(), net, RunConfig{WeightsOut: "w.txt"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Saved || !errors.Is(sum.SaveErr, network.ErrIO) {
		t.Fatalf("unexpected save status %+v", sum)
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	net := &fakeNet{rate: 1}
	if _, err := Run(ctx, net, RunConfig{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if net.epoch != 0 {
		t.Fatalf("ran %d epochs after cancel", net.epoch)
	}
}

func TestRunTrainsRealNetwork(t *testing.T) {
	samples := []dataset.Sample{
		{Key: "black", Image: fill(0), Label: 0},
		{Key: "white", Image: fill(255), Label: 1},
	}
	net, err := network.New(network.Options{Width: 2, Height: 2, Hidden: 1, Classes: 2, LearningRate: 0.5, Seed: 7}, samples)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := filepath.Join(t.TempDir(), "weights.txt")
	sum, err := Run(context.Background(), net, RunConfig{WeightsOut: out, LogEvery: 50})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Epochs > DefaultMaxEpochs || sum.Epochs < 1 {
		t.Fatalf("ran %d epochs", sum.Epochs)
	}
	if !sum.Saved {
		t.Fatalf("weights not saved: %v", sum.SaveErr)
	}
	reloaded, err := network.New(network.Options{Width: 2, Height: 2, Hidden: 1, Classes: 2, LearningRate: 0.5}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := reloaded.LoadFile(out); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
}

func fill(v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}
