package dataset

import (
	"image"
	"math/rand/v2"
)

// Unlabeled is the label of a sample whose label file is missing.
const Unlabeled = -1

// Sample is a grayscale image paired with its class index.
type Sample struct {
	Key   string
	Image *image.Gray
	Label int
}

// Labeled reports whether the sample carries a class index.
func (s Sample) Labeled() bool {
	return s.Label != Unlabeled
}

// Clone returns a copy of the slice. Images are shared, they are never written.
func Clone(samples []Sample) []Sample {
	return append([]Sample(nil), samples...)
}

// Shuffle reorders samples in place.
func Shuffle(samples []Sample, rng *rand.Rand) {
	rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
}
