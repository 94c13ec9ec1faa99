package network

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Save writes the layer sizes followed by every weight in traversal order,
// one per line.
func (n *Network) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	in, hidden, out := n.LayerSizes()
	if _, err := fmt.Fprintf(bw, "%d %d %d\n", in, hidden, out); err != nil {
		return errors.Wrapf(ErrIO, "write header: %v", err)
	}
	var werr error
	n.traverse(func(l *Link) {
		if werr != nil {
			return
		}
		if _, err := bw.WriteString(strconv.FormatFloat(l.Weight, 'g', -1, 64)); err != nil {
			werr = err
			return
		}
		werr = bw.WriteByte('\n')
	})
	if werr != nil {
		return errors.Wrapf(ErrIO, "write weights: %v", werr)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrapf(ErrIO, "flush weights: %v", err)
	}
	return nil
}

// Load replaces every weight with the values read from r. The stream is
// fully parsed and checked against the live topology before any weight is
// touched.
func (n *Network) Load(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	var header [3]int
	for i := range header {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return errors.Wrapf(ErrIO, "read header: %v", err)
			}
			return errors.Wrap(ErrConfiguration, "weights: truncated header")
		}
		v, err := strconv.Atoi(sc.Text())
		if err != nil {
			return errors.Wrapf(ErrConfiguration, "weights: header field %d: %v", i, err)
		}
		header[i] = v
	}
	in, hidden, out := n.LayerSizes()
	if header != [3]int{in, hidden, out} {
		return errors.Wrapf(ErrConfiguration, "weights: layer sizes %v do not match network %v",
			header, [3]int{in, hidden, out})
	}

	weights := make([]float64, 0, len(n.links))
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return errors.Wrapf(ErrConfiguration, "weights: value %d: %v", len(weights), err)
		}
		weights = append(weights, v)
	}
	if err := sc.Err(); err != nil {
		return errors.Wrapf(ErrIO, "read weights: %v", err)
	}
	if len(weights) != len(n.links) {
		return errors.Wrapf(ErrConfiguration, "weights: got %d values, want %d", len(weights), len(n.links))
	}

	i := 0
	n.traverse(func(l *Link) {
		l.Weight = weights[i]
		l.Pending = weights[i]
		i++
	})
	return nil
}

// SaveFile writes the weights to path, replacing any existing file.
func (n *Network) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(ErrIO, "create %s: %v", path, err)
	}
	if err := n.Save(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(ErrIO, "close %s: %v", path, err)
	}
	return nil
}

// LoadFile reads weights previously written by SaveFile.
func (n *Network) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(ErrIO, "open %s: %v", path, err)
	}
	defer f.Close()
	return errors.WithMessage(n.Load(f), path)
}
