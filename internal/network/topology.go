package network

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"backprop-forge/internal/dataset"
)

const (
	initWeightMin = -0.5
	initWeightMax = 0.5

	// minSamples keeps both partitions of an epoch non-empty.
	minSamples = 2
)

// Options describes the shape of a network.
type Options struct {
	Width        int
	Height       int
	Hidden       int
	Classes      int
	LearningRate float64
	Seed         int64
}

// Validate checks that the options describe a buildable network.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return errors.Wrapf(ErrConfiguration, "image size must be positive (got %dx%d)", o.Width, o.Height)
	}
	if o.Hidden <= 0 {
		return errors.Wrapf(ErrConfiguration, "hidden layer size must be > 0 (got %d)", o.Hidden)
	}
	if o.Classes <= 0 {
		return errors.Wrapf(ErrConfiguration, "classes must be > 0 (got %d)", o.Classes)
	}
	if o.LearningRate <= 0 {
		return errors.Wrapf(ErrConfiguration, "learning rate must be > 0 (got %g)", o.LearningRate)
	}
	return nil
}

// Network is a fully connected input -> hidden -> output classifier with a
// bias unit feeding each of the two upper layers.
//
// A Network is not safe for concurrent use: Forward writes link signals.
type Network struct {
	graph

	width  int
	height int

	input  []int
	hidden []int
	output []int

	inputBias  int
	hiddenBias int

	// lower holds the sources of input->hidden links, upper the sources of
	// hidden->output links, each in traversal order.
	lower []int
	upper []int

	rate  float64
	epoch int
	rng   *rand.Rand

	current []dataset.Sample
	next    []dataset.Sample
}

// New builds the topology described by opts and takes a private copy of
// samples for training. samples may be empty for a detection-only network.
func New(opts Options, samples []dataset.Sample) (*Network, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	n := &Network{
		width:  opts.Width,
		height: opts.Height,
		rate:   opts.LearningRate,
		rng:    rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed))),
	}
	if len(samples) > 0 {
		if err := n.checkSamples(samples, opts.Classes); err != nil {
			return nil, err
		}
	}

	n.input = n.addLayer(opts.Width * opts.Height)
	n.hidden = n.addLayer(opts.Hidden)
	n.output = n.addLayer(opts.Classes)
	n.inputBias = n.addNeuron(true)
	n.hiddenBias = n.addNeuron(true)

	n.lower = append(append(make([]int, 0, len(n.input)+1), n.input...), n.inputBias)
	n.upper = append(append(make([]int, 0, len(n.hidden)+1), n.hidden...), n.hiddenBias)

	dist := distuv.Uniform{Min: initWeightMin, Max: initWeightMax, Src: n.rng}
	n.links = make([]Link, 0, len(n.lower)*len(n.hidden)+len(n.upper)*len(n.output))
	for _, src := range n.lower {
		for _, dst := range n.hidden {
			n.connect(src, dst, dist.Rand())
		}
	}
	for _, src := range n.upper {
		for _, dst := range n.output {
			n.connect(src, dst, dist.Rand())
		}
	}

	if len(samples) > 0 {
		n.current = dataset.Clone(samples)
		dataset.Shuffle(n.current, n.rng)
		n.next = dataset.Clone(n.current)
	}
	return n, nil
}

func (n *Network) addLayer(size int) []int {
	layer := make([]int, size)
	for i := range layer {
		layer[i] = n.addNeuron(false)
	}
	return layer
}

func (n *Network) checkSamples(samples []dataset.Sample, classes int) error {
	if len(samples) < minSamples {
		return errors.Wrapf(ErrConfiguration, "need at least %d samples (got %d)", minSamples, len(samples))
	}
	for _, s := range samples {
		if err := n.checkSize(s.Image); err != nil {
			return errors.Wrapf(err, "sample %s", s.Key)
		}
		if s.Label < 0 || s.Label >= classes {
			return errors.Wrapf(ErrConfiguration, "sample %s: label %d outside [0, %d)", s.Key, s.Label, classes)
		}
	}
	return nil
}

// LayerSizes returns the neuron count of the input, hidden and output layers.
func (n *Network) LayerSizes() (in, hidden, out int) {
	return len(n.input), len(n.hidden), len(n.output)
}

// ImageSize returns the image width and height the input layer expects.
func (n *Network) ImageSize() (width, height int) {
	return n.width, n.height
}

// LearningRate returns the current step size.
func (n *Network) LearningRate() float64 {
	return n.rate
}

// DecayLearningRate multiplies the learning rate by factor.
func (n *Network) DecayLearningRate(factor float64) {
	n.rate *= factor
}

// Epoch returns the number of epochs run so far.
func (n *Network) Epoch() int {
	return n.epoch
}

// Samples returns the number of samples held for training.
func (n *Network) Samples() int {
	return len(n.current)
}

// traverse visits every link in weight file order: outgoing links of the
// input layer, of the input bias, of the hidden layer, of the hidden bias.
func (n *Network) traverse(fn func(l *Link)) {
	for _, sources := range [][]int{n.lower, n.upper} {
		for _, src := range sources {
			for _, li := range n.neurons[src].Out {
				fn(&n.links[li])
			}
		}
	}
}

// Weights returns every active weight in traversal order.
func (n *Network) Weights() []float64 {
	out := make([]float64, 0, len(n.links))
	n.traverse(func(l *Link) {
		out = append(out, l.Weight)
	})
	return out
}
