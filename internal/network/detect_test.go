package network

import (
	"errors"
	"math"
	"testing"
)

func TestForwardDeterministic(t *testing.T) {
	n := mustNetwork(t, Options{Width: 4, Height: 3, Hidden: 5, Classes: 3, LearningRate: 0.5, Seed: 11}, nil)
	img := gradientImage(4, 3)
	before := n.Weights()

	first, err := n.Forward(img)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	class, err := n.Detect(img)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := n.Forward(img)
		if err != nil {
			t.Fatalf("Forward: %v", err)
		}
		for k := range first {
			if again[k] != first[k] {
				t.Fatalf("signal %d changed: %v vs %v", k, again[k], first[k])
			}
		}
		c, _ := n.Detect(img)
		if c != class {
			t.Fatalf("class changed: %d vs %d", c, class)
		}
	}
	after := n.Weights()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("detect modified weight %d", i)
		}
	}
}

func TestForwardMatchesHandComputation(t *testing.T) {
	n := mustNetwork(t, Options{Width: 2, Height: 1, Hidden: 1, Classes: 2, LearningRate: 0.5}, nil)
	// Traversal order: in0->h, in1->h, bias->h, h->o0, h->o1, bias->o0, bias->o1.
	weights := []float64{0.25, -0.5, 0.1, 0.3, -0.2, 0.05, 0.4}
	i := 0
	n.traverse(func(l *Link) {
		l.Weight = weights[i]
		i++
	})
	img := uniformImage(2, 1, 0)
	img.Pix[0] = 255
	img.Pix[1] = 51

	out, err := n.Forward(img)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	h := Activation(1.0*0.25 + 0.2*-0.5 + 0.1)
	want := []float64{Activation(h*0.3 + 0.05), Activation(h*-0.2 + 0.4)}
	for k := range want {
		if math.Abs(out[k]-want[k]) > 1e-12 {
			t.Fatalf("output %d = %v, want %v", k, out[k], want[k])
		}
	}
	class, _ := n.Detect(img)
	if want[1] > want[0] && class != 1 || want[0] >= want[1] && class != 0 {
		t.Fatalf("unexpected class %d for outputs %v", class, want)
	}
}

func TestDetectTieGoesToFirstClass(t *testing.T) {
	n := mustNetwork(t, Options{Width: 2, Height: 2, Hidden: 2, Classes: 4, LearningRate: 0.5}, nil)
	n.traverse(func(l *Link) { l.Weight = 0 })

	class, err := n.Detect(uniformImage(2, 2, 128))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if class != 0 {
		t.Fatalf("expected tie to resolve to class 0, got %d", class)
	}
}

func TestDetectSizeMismatch(t *testing.T) {
	n := mustNetwork(t, Options{Width: 2, Height: 2, Hidden: 2, Classes: 2, LearningRate: 0.5}, nil)
	if _, err := n.Detect(uniformImage(2, 3, 0)); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected size mismatch, got %v", err)
	}
	if _, err := n.Detect(nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for nil image, got %v", err)
	}
}

func TestActivation(t *testing.T) {
	if got := Activation(0); got != 0.5 {
		t.Fatalf("Activation(0) = %v", got)
	}
	if got := Activation(40); got <= 0.999 || got > 1 {
		t.Fatalf("Activation(40) = %v", got)
	}
	if got := Activation(-40); got >= 0.001 || got < 0 {
		t.Fatalf("Activation(-40) = %v", got)
	}
}
