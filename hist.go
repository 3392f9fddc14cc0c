// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/LSSTDESC/parallel-statistics/comm"
	"github.com/grailbio/base/errors"
)

// A Histogram counts continuous values into bins defined by a
// monotonically increasing sequence of edges: bin b covers
// [edges[b], edges[b+1]), so len(edges)-1 bins in total. Values
// outside the edge range are dropped, not errored. For per-datum
// weights use a WeightedHistogram.
type Histogram struct {
	edges []float64
	calculator[Count]
}

// NewHistogram returns a histogram over the given edges, all bins
// empty. NewHistogram panics if fewer than two edges are given or the
// edges do not increase.
func NewHistogram(edges []float64, opts ...Option) *Histogram {
	checkEdges(edges)
	return &Histogram{edges, newCalculator[Count](len(edges) - 1, makeOptions(opts))}
}

// Edges returns the bin edges fixed at construction.
func (h *Histogram) Edges() []float64 { return h.edges }

// Add buckets one value.
func (h *Histogram) Add(value float64) error {
	return h.add(bucket(h.edges, value), value, 1, func(a *Count, _, _ float64) { a.Update() })
}

// AddData buckets a chunk of values.
func (h *Histogram) AddData(values []float64) error {
	for _, v := range values {
		if err := h.Add(v); err != nil {
			return err
		}
	}
	return nil
}

// Collect combines every rank's counts and returns the per-bin
// totals, length Size. See Sum.Collect for the collective-call
// contract. Collect consumes the calculator.
func (h *Histogram) Collect(ctx context.Context, c comm.Comm, mode Mode) ([]float64, error) {
	accs, ok, err := h.finish(ctx, c, mode, h.layout("hist", h.edges), Count.Merge)
	if err != nil || !ok {
		return nil, err
	}
	counts := make([]float64, h.size)
	for i, a := range accs {
		counts[i] = float64(a.N)
	}
	return counts, nil
}

// Run drains r into the histogram and collects: it is equivalent to
// calling AddData on every chunk followed by Collect. Chunks carrying
// weights are an error on an unweighted histogram.
func (h *Histogram) Run(ctx context.Context, r ValueReader, c comm.Comm, mode Mode) ([]float64, error) {
	for {
		chunk, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if chunk.Weights != nil {
			return nil, errors.E(errors.Invalid, "parstats: weights supplied to unweighted histogram")
		}
		if err := h.AddData(chunk.Values); err != nil {
			return nil, err
		}
	}
	return h.Collect(ctx, c, mode)
}

// A WeightedHistogram accumulates per-datum weights into bins defined
// by edges, along with the weighted sum of the bucketed values. The
// bucketing rule is the same as Histogram's.
type WeightedHistogram struct {
	edges []float64
	calculator[WeightedSum]
}

// NewWeightedHistogram returns a weighted histogram over the given
// edges, all bins empty. It panics if fewer than two edges are given
// or the edges do not increase.
func NewWeightedHistogram(edges []float64, opts ...Option) *WeightedHistogram {
	checkEdges(edges)
	return &WeightedHistogram{edges, newCalculator[WeightedSum](len(edges) - 1, makeOptions(opts))}
}

// Edges returns the bin edges fixed at construction.
func (h *WeightedHistogram) Edges() []float64 { return h.edges }

// Add buckets one unit-weight value.
func (h *WeightedHistogram) Add(value float64) error {
	return h.AddWeighted(value, 1)
}

// AddWeighted buckets one value with the given weight. Values outside
// the edge range are dropped; a negative weight is an error.
func (h *WeightedHistogram) AddWeighted(value, weight float64) error {
	return h.add(bucket(h.edges, value), value, weight, (*WeightedSum).Update)
}

// AddData buckets a chunk of values. A nil weights slice means unit
// weights.
func (h *WeightedHistogram) AddData(values, weights []float64) error {
	if weights != nil && len(weights) != len(values) {
		return errors.E(errors.Invalid, fmt.Sprintf("parstats: %d values, %d weights", len(values), len(weights)))
	}
	for i, v := range values {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		if err := h.AddWeighted(v, w); err != nil {
			return err
		}
	}
	return nil
}

// Collect combines every rank's state and returns the per-bin total
// weights and weighted value sums, each of length Size. See
// Sum.Collect for the collective-call contract. Collect consumes the
// calculator.
func (h *WeightedHistogram) Collect(ctx context.Context, c comm.Comm, mode Mode) (weights, sums []float64, err error) {
	accs, ok, err := h.finish(ctx, c, mode, h.layout("whist", h.edges), WeightedSum.Merge)
	if err != nil || !ok {
		return nil, nil, err
	}
	weights = make([]float64, h.size)
	sums = make([]float64, h.size)
	for i, a := range accs {
		weights[i] = a.Weight
		sums[i] = a.Sum
	}
	return weights, sums, nil
}

// Run drains r into the histogram and collects: it is equivalent to
// calling AddData on every chunk followed by Collect.
func (h *WeightedHistogram) Run(ctx context.Context, r ValueReader, c comm.Comm, mode Mode) (weights, sums []float64, err error) {
	for {
		chunk, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if err := h.AddData(chunk.Values, chunk.Weights); err != nil {
			return nil, nil, err
		}
	}
	return h.Collect(ctx, c, mode)
}

// A ValueChunk is a chunk of raw values to be bucketed, with optional
// per-value weights (nil means unit weights).
type ValueChunk struct {
	Values  []float64
	Weights []float64
}

// A ValueReader yields successive value chunks. Next returns io.EOF
// after the last chunk.
type ValueReader interface {
	Next() (ValueChunk, error)
}

// bucket maps a value to its bin, or -1 when the value falls outside
// the edge range. The final edge is exclusive: a value equal to it is
// out of range.
func bucket(edges []float64, v float64) int {
	i := sort.Search(len(edges), func(j int) bool { return edges[j] > v })
	b := i - 1
	if b < 0 || b >= len(edges)-1 {
		return -1
	}
	return b
}

func checkEdges(edges []float64) {
	if len(edges) < 2 {
		panic(fmt.Sprintf("parstats: histogram needs at least two edges, got %d", len(edges)))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			panic(fmt.Sprintf("parstats: histogram edges must increase: edges[%d]=%v, edges[%d]=%v",
				i-1, edges[i-1], i, edges[i]))
		}
	}
}
