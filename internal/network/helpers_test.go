package network

import (
	"image"
	"image/color"
	"testing"

	"backprop-forge/internal/dataset"
)

func uniformImage(w, h int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: value})
		}
	}
	return img
}

func gradientImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*37 + y*91) % 256)})
		}
	}
	return img
}

func blackWhiteSamples() []dataset.Sample {
	return []dataset.Sample{
		{Key: "black", Image: uniformImage(2, 2, 0), Label: 0},
		{Key: "white", Image: uniformImage(2, 2, 255), Label: 1},
	}
}

func mustNetwork(t *testing.T, opts Options, samples []dataset.Sample) *Network {
	t.Helper()
	n, err := New(opts, samples)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}
