package network

import (
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"backprop-forge/internal/dataset"
)

// TrainFraction is the share of each epoch's samples used for weight updates.
// The rest is used to measure the epoch's error.
const TrainFraction = 0.7

// EpochResult summarises one pass over the samples.
type EpochResult struct {
	Epoch             int
	Error             float64
	TrainSamples      int
	TrainCorrect      int
	ValidationSamples int
	ValidationCorrect int
	TrainDuration     time.Duration
	ValidateDuration  time.Duration
}

// RunEpoch trains on the first TrainFraction of the current sample order and
// returns the mean squared error over the remainder. While it runs, the
// order for the next epoch is shuffled in the background.
func (n *Network) RunEpoch() (EpochResult, error) {
	if len(n.current) < minSamples {
		return EpochResult{}, errors.Wrapf(ErrConfiguration, "need at least %d samples (got %d)", minSamples, len(n.current))
	}
	n.epoch++
	res := EpochResult{Epoch: n.epoch}

	shuffled := n.startShuffle()

	trainSet, validationSet := split(n.current)
	err := n.trainPhase(trainSet, &res)
	if err == nil {
		err = n.validatePhase(validationSet, &res)
	}

	<-shuffled
	if err != nil {
		return res, err
	}
	n.current, n.next = n.next, n.current
	return res, nil
}

// startShuffle reorders the next epoch's collection on its own goroutine.
// The returned channel is closed once the shuffle is done.
func (n *Network) startShuffle() <-chan struct{} {
	done := make(chan struct{})
	next, rng := n.next, n.rng
	go func() {
		defer close(done)
		dataset.Shuffle(next, rng)
	}()
	return done
}

func split(samples []dataset.Sample) (train, validation []dataset.Sample) {
	count := int(float64(len(samples)) * TrainFraction)
	if count < 1 {
		count = 1
	}
	if count > len(samples)-1 {
		count = len(samples) - 1
	}
	return samples[:count], samples[count:]
}

func (n *Network) trainPhase(samples []dataset.Sample, res *EpochResult) error {
	start := time.Now()
	defer func() { res.TrainDuration = time.Since(start) }()
	for _, s := range samples {
		outputs, err := n.Forward(s.Image)
		if err != nil {
			return &SampleError{Epoch: n.epoch, Key: s.Key, Err: err}
		}
		target, err := n.oneHot(s.Label)
		if err != nil {
			return &SampleError{Epoch: n.epoch, Key: s.Key, Err: err}
		}
		if floats.MaxIdx(outputs) == s.Label {
			res.TrainCorrect++
		}
		n.stageGradients(target, outputs)
		n.commitWeights()
		res.TrainSamples++
	}
	return nil
}

func (n *Network) validatePhase(samples []dataset.Sample, res *EpochResult) error {
	start := time.Now()
	defer func() { res.ValidateDuration = time.Since(start) }()
	total := 0.0
	for _, s := range samples {
		outputs, err := n.Forward(s.Image)
		if err != nil {
			return &SampleError{Epoch: n.epoch, Key: s.Key, Err: err}
		}
		target, err := n.oneHot(s.Label)
		if err != nil {
			return &SampleError{Epoch: n.epoch, Key: s.Key, Err: err}
		}
		total += SquaredError(target, outputs)
		if floats.MaxIdx(outputs) == s.Label {
			res.ValidationCorrect++
		}
		res.ValidationSamples++
	}
	if res.ValidationSamples > 0 {
		res.Error = total / float64(res.ValidationSamples)
	}
	return nil
}

func (n *Network) oneHot(label int) ([]float64, error) {
	if label < 0 || label >= len(n.output) {
		return nil, errors.Wrapf(ErrConfiguration, "label %d outside [0, %d)", label, len(n.output))
	}
	target := make([]float64, len(n.output))
	target[label] = 1.0
	return target, nil
}

// SquaredError returns 0.5 * sum((target_i - output_i)^2).
func SquaredError(target, outputs []float64) float64 {
	diff := make([]float64, len(target))
	floats.SubTo(diff, target, outputs)
	return 0.5 * floats.Dot(diff, diff)
}

// stageGradients computes Pending for every link from the signals left by
// the last Forward call. No active weight is changed.
func (n *Network) stageGradients(target, outputs []float64) {
	delta := make([]float64, len(n.output))
	for k, o := range outputs {
		delta[k] = -(target[k] - o) * o * (1 - o)
	}

	for k, o := range n.output {
		for _, li := range n.neurons[o].In {
			l := &n.links[li]
			l.setNewWeight(delta[k]*l.Signal, n.rate)
		}
	}

	// Reads hidden->output weights, so those must still be the active ones.
	for _, h := range n.hidden {
		back := 0.0
		for _, li := range n.neurons[h].Out {
			l := &n.links[li]
			back += delta[n.outputIndex(l.Out)] * l.Weight
		}
		hs := n.outputSignal(h)
		for _, li := range n.neurons[h].In {
			l := &n.links[li]
			l.setNewWeight(back*hs*(1-hs)*l.Signal, n.rate)
		}
	}
}

// commitWeights applies staged weights, input->hidden links first.
func (n *Network) commitWeights() {
	n.traverse(func(l *Link) {
		l.commitWeight()
	})
}

func (n *Network) outputIndex(neuron int) int {
	return neuron - n.output[0]
}
