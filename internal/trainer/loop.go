package trainer

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"backprop-forge/internal/metrics"
	"backprop-forge/internal/network"
)

const (
	DefaultMaxEpochs   = 200
	DefaultTargetError = 0.01
	DefaultDecay       = 0.99
)

// Epocher is the part of a network the training loop drives.
type Epocher interface {
	RunEpoch() (network.EpochResult, error)
	DecayLearningRate(factor float64)
	LearningRate() float64
	Epoch() int
}

// Saver persists trained weights.
type Saver interface {
	SaveFile(path string) error
}

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	MaxEpochs   int
	TargetError float64
	Decay       float64
	LogEvery    int
	// WeightsOut is written after training when the network is a Saver.
	WeightsOut string
	RunID      string
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Epochs    int
	Error     float64
	Converged bool
	Saved     bool
	SaveErr   error
}

func (c *RunConfig) applyDefaults() {
	if c.MaxEpochs <= 0 {
		c.MaxEpochs = DefaultMaxEpochs
	}
	if c.TargetError <= 0 {
		c.TargetError = DefaultTargetError
	}
	if c.Decay <= 0 {
		c.Decay = DefaultDecay
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 1
	}
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
}

// Run repeats epochs until the validation error reaches cfg.TargetError or
// cfg.MaxEpochs epochs have run, decaying the learning rate after each one.
// A failed epoch stops training and is returned. ctx is only checked between
// epochs.
func Run(ctx context.Context, net Epocher, cfg RunConfig) (Summary, error) {
	if net == nil {
		return Summary{}, errors.New("trainer: network is nil")
	}
	cfg.applyDefaults()
	sum := Summary{RunID: cfg.RunID}
	var window metrics.Window

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := net.RunEpoch()
		if err != nil {
			log.Printf("run=%s epoch=%d training failed: %v", cfg.RunID, res.Epoch, err)
			return sum, err
		}
		sum.Epochs = net.Epoch()
		sum.Error = res.Error
		net.DecayLearningRate(cfg.Decay)

		window.Record(res.TrainSamples+res.ValidationSamples, res.ValidationSamples, res.ValidationCorrect,
			res.TrainDuration, res.ValidateDuration, res.Error)
		done := res.Error <= cfg.TargetError || sum.Epochs >= cfg.MaxEpochs
		if sum.Epochs%cfg.LogEvery == 0 || done {
			snap := window.Snapshot()
			log.Printf("run=%s epoch=%d error=%.4f mean_error=%.4f val_acc=%.2f rate=%.4f samples_per_sec=%.1f train_ms=%.2f validate_ms=%.2f",
				cfg.RunID,
				sum.Epochs,
				snap.LastError,
				snap.MeanError,
				snap.Accuracy,
				net.LearningRate(),
				snap.SamplesPerSec,
				snap.AvgTrainMS,
				snap.AvgValidateMS,
			)
		}
		if done {
			break
		}
	}
	sum.Converged = sum.Error <= cfg.TargetError
	log.Printf("run=%s finished epochs=%d error=%.4f converged=%t", cfg.RunID, sum.Epochs, sum.Error, sum.Converged)

	if cfg.WeightsOut != "" {
		if s, ok := net.(Saver); ok {
			if err := s.SaveFile(cfg.WeightsOut); err != nil {
				log.Printf("run=%s save weights: %v", cfg.RunID, err)
				sum.SaveErr = err
			} else {
				sum.Saved = true
				log.Printf("run=%s weights saved to %s", cfg.RunID, cfg.WeightsOut)
			}
		}
	}
	return sum, nil
}
