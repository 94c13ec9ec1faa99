package network

import (
	"strconv"

	"github.com/pkg/errors"
)

var (
	// ErrConfiguration marks malformed or size-mismatched options and weight files.
	ErrConfiguration = errors.New("configuration error")
	// ErrSizeMismatch is returned when an image does not match the input layer.
	ErrSizeMismatch = errors.Wrap(ErrConfiguration, "image size mismatch")
	// ErrIO marks a weight file that could not be opened, read or written.
	ErrIO = errors.New("io error")
	// ErrTraining marks an epoch that was aborted part way through.
	ErrTraining = errors.New("training failure")
)

// SampleError reports the sample that aborted an epoch. It matches both
// ErrTraining and the underlying cause under errors.Is.
type SampleError struct {
	Epoch int
	Key   string
	Err   error
}

func (e *SampleError) Error() string {
	return "epoch " + strconv.Itoa(e.Epoch) + ": sample " + e.Key + ": " + e.Err.Error()
}

func (e *SampleError) Unwrap() []error {
	return []error{ErrTraining, e.Err}
}
