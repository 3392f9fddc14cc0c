// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

import (
	"context"
	"fmt"
	"io"

	"github.com/LSSTDESC/parallel-statistics/comm"
	"github.com/grailbio/base/errors"
)

// An Option configures a calculator at construction.
type Option func(*options)

type options struct {
	sparse bool
}

// Sparse switches a calculator's per-bin storage from a dense array
// to a sparse map. Use it when the bin count is large but each
// process touches only a few bins: only touched bins are stored and
// transmitted. All ranks in a collect must agree on this choice.
func Sparse() Option {
	return func(o *options) { o.sparse = true }
}

func makeOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// A store holds one accumulator per bin, densely or sparsely.
type store[A any] struct {
	dense []A
	sp    *sparseMap[A]
}

func newStore[A any](size int, sparse bool) *store[A] {
	if sparse {
		return &store[A]{sp: newSparseMap[A]()}
	}
	return &store[A]{dense: make([]A, size)}
}

// slot returns a pointer to bin's accumulator, materializing the slot
// for sparse stores.
func (s *store[A]) slot(bin int) *A {
	if s.sp != nil {
		return s.sp.slot(bin)
	}
	return &s.dense[bin]
}

// message returns the store's wire form.
func (s *store[A]) message() message[A] {
	if s.sp != nil {
		bins, accs := s.sp.arrays()
		return message[A]{Sparse: true, Bins: bins, Accs: accs}
	}
	return message[A]{Dense: s.dense}
}

// calculator carries the state shared by every calculator kind: the
// per-bin accumulator store and the one-shot collect latch.
type calculator[A any] struct {
	size      int
	sparse    bool
	st        *store[A]
	collected bool
}

func newCalculator[A any](size int, o options) calculator[A] {
	if size < 1 {
		panic(fmt.Sprintf("parstats: calculator needs at least one bin, got %d", size))
	}
	return calculator[A]{size: size, sparse: o.sparse, st: newStore[A](size, o.sparse)}
}

// Size returns the number of bins fixed at construction.
func (k *calculator[A]) Size() int { return k.size }

func (k *calculator[A]) layout(kind string, edges []float64) uint64 {
	return layoutHash(kind, k.size, k.sparse, edges)
}

// add absorbs one datum via upd. Out-of-range bins are dropped
// silently so that callers can feed data containing sentinel bins
// without filtering; a negative weight breaks the weight invariant
// and is an error.
func (k *calculator[A]) add(bin int, value, weight float64, upd func(*A, float64, float64)) error {
	if k.collected {
		return errors.E(errors.Invalid, "parstats: add after collect")
	}
	if weight < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("parstats: negative weight %v", weight))
	}
	if bin < 0 || bin >= k.size {
		return nil
	}
	upd(k.st.slot(bin), value, weight)
	return nil
}

// addData absorbs a chunk of values, all addressed to one bin. A nil
// weights slice means unit weights.
func (k *calculator[A]) addData(bin int, values, weights []float64, upd func(*A, float64, float64)) error {
	if weights != nil && len(weights) != len(values) {
		return errors.E(errors.Invalid, fmt.Sprintf("parstats: %d values, %d weights", len(values), len(weights)))
	}
	for i, v := range values {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		if err := k.add(bin, v, w, upd); err != nil {
			return err
		}
	}
	return nil
}

// finish runs the distributed combination and consumes the
// calculator. It returns the combined per-bin accumulators, dense,
// along with whether this rank received them.
func (k *calculator[A]) finish(ctx context.Context, c comm.Comm, mode Mode, hash uint64, merge func(A, A) A) ([]A, bool, error) {
	if k.collected {
		return nil, false, errors.E(errors.Invalid, "parstats: collect called twice")
	}
	k.collected = true
	m, ok, err := collect(ctx, c, mode, k.st.message(), hash, merge)
	k.st = nil
	if err != nil || !ok {
		return nil, ok, err
	}
	return m.dense(k.size), true, nil
}

// A Chunk is one bin's worth of values, with optional per-value
// weights (nil means unit weights).
type Chunk struct {
	Bin     int
	Values  []float64
	Weights []float64
}

// A ChunkReader yields successive chunks of a dataset. Next returns
// io.EOF after the last chunk.
type ChunkReader interface {
	Next() (Chunk, error)
}

// drain feeds every chunk of r to add.
func drain(r ChunkReader, add func(bin int, values, weights []float64) error) error {
	for {
		chunk, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := add(chunk.Bin, chunk.Values, chunk.Weights); err != nil {
			return err
		}
	}
}
