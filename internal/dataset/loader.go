package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// LoadOptions configures Load.
type LoadOptions struct {
	Root          string
	Width         int
	Height        int
	NumWorkers    int
	RequireLabels bool
}

type loadJob struct {
	index int
	entry Entry
}

type loadResult struct {
	index  int
	sample Sample
	err    error
}

// Load discovers and decodes every sample beneath opts.Root. Decoding is
// spread over opts.NumWorkers goroutines; the result keeps discovery order.
func Load(ctx context.Context, opts LoadOptions) ([]Sample, error) {
	if opts.Root == "" {
		return nil, errors.New("load: no root provided")
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	entries, err := Discover(opts.Root)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("load: no images under %s", opts.Root)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan loadJob, opts.NumWorkers)
	results := make(chan loadResult, opts.NumWorkers)

	go func() {
		defer close(jobs)
		for i, e := range entries {
			select {
			case <-ctx.Done():
				return
			case jobs <- loadJob{index: i, entry: e}:
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				s, err := loadEntry(job.entry, opts)
				select {
				case <-ctx.Done():
					return
				case results <- loadResult{index: job.index, sample: s, err: err}:
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	samples := make([]Sample, len(entries))
	received := 0
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		samples[res.index] = res.sample
		received++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if received != len(entries) {
		return nil, fmt.Errorf("load: decoded %d of %d samples", received, len(entries))
	}
	return samples, nil
}

func loadEntry(e Entry, opts LoadOptions) (Sample, error) {
	img, err := LoadImage(e.ImagePath, opts.Width, opts.Height)
	if err != nil {
		return Sample{}, err
	}
	s := Sample{Key: e.Key, Image: img, Label: Unlabeled}
	if e.LabelPath == "" {
		if opts.RequireLabels {
			return Sample{}, fmt.Errorf("load: %s has no %s label file", e.ImagePath, labelExt)
		}
		return s, nil
	}
	label, err := ReadLabel(e.LabelPath)
	if err != nil {
		return Sample{}, err
	}
	s.Label = label
	return s, nil
}
