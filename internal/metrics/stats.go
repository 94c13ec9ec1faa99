package metrics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Window accumulates timing and error stats across multiple epochs.
type Window struct {
	samples  int
	correct  int
	checked  int
	train    time.Duration
	validate time.Duration
	epochs   int
	errors   []float64
}

// Record adds one epoch to the window. validated/correct count the
// validation samples and how many of them were classified correctly.
func (w *Window) Record(samples, validated, correct int, trainTime, validateTime time.Duration, loss float64) {
	w.samples += samples
	w.checked += validated
	w.correct += correct
	w.train += trainTime
	w.validate += validateTime
	w.epochs++
	w.errors = append(w.errors, loss)
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{}
	total := w.train + w.validate
	if total > 0 {
		snap.SamplesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.epochs > 0 {
		snap.AvgTrainMS = (w.train.Seconds() * 1000) / float64(w.epochs)
		snap.AvgValidateMS = (w.validate.Seconds() * 1000) / float64(w.epochs)
		snap.LastError = w.errors[len(w.errors)-1]
		snap.MeanError = stat.Mean(w.errors, nil)
		snap.MinError = floats.Min(w.errors)
	}
	if w.checked > 0 {
		snap.Accuracy = float64(w.correct) / float64(w.checked)
	} else {
		snap.Accuracy = math.NaN()
	}

	*w = Window{errors: w.errors[:0]}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	SamplesPerSec float64
	AvgTrainMS    float64
	AvgValidateMS float64
	LastError     float64
	MeanError     float64
	MinError      float64
	Accuracy      float64
}
