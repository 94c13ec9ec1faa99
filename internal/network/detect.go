package network

import (
	"image"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

func (n *Network) checkSize(img *image.Gray) error {
	if img == nil {
		return errors.Wrap(ErrSizeMismatch, "nil image")
	}
	b := img.Bounds()
	if b.Dx() != n.width || b.Dy() != n.height {
		return errors.Wrapf(ErrSizeMismatch, "got %dx%d, want %dx%d", b.Dx(), b.Dy(), n.width, n.height)
	}
	return nil
}

// Forward propagates img through the network and returns the output layer
// signals. Weights are not modified.
func (n *Network) Forward(img *image.Gray) ([]float64, error) {
	if err := n.checkSize(img); err != nil {
		return nil, err
	}
	// The input layer has no activation: pixels go straight onto its links.
	b := img.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n.passSignal(n.input[i], float64(img.GrayAt(x, y).Y)/255.0)
			i++
		}
	}
	n.passSignal(n.inputBias, biasSignal)
	for _, h := range n.hidden {
		n.translateSignal(h)
	}
	n.passSignal(n.hiddenBias, biasSignal)

	out := make([]float64, len(n.output))
	for k, o := range n.output {
		out[k] = n.outputSignal(o)
	}
	return out, nil
}

// Detect returns the index of the strongest output neuron for img. Ties go
// to the lowest index.
func (n *Network) Detect(img *image.Gray) (int, error) {
	out, err := n.Forward(img)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(out), nil
}
