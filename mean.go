// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

import (
	"context"

	"github.com/LSSTDESC/parallel-statistics/comm"
)

// A Mean is a parallel, incremental calculator of per-bin weighted
// means, updated online so that only a single pass over the data is
// needed. Bins with zero total weight report NaN.
type Mean struct {
	calculator[WeightedMean]
}

// NewMean returns a mean calculator over size bins, all empty.
func NewMean(size int, opts ...Option) *Mean {
	return &Mean{newCalculator[WeightedMean](size, makeOptions(opts))}
}

// Add absorbs one unit-weight datum into bin.
func (m *Mean) Add(bin int, value float64) error {
	return m.AddWeighted(bin, value, 1)
}

// AddWeighted absorbs one datum with the given weight. Out-of-range
// bins are dropped silently; a negative weight is an error.
func (m *Mean) AddWeighted(bin int, value, weight float64) error {
	return m.add(bin, value, weight, (*WeightedMean).Update)
}

// AddData absorbs a chunk of values, all in one bin. A nil weights
// slice means unit weights.
func (m *Mean) AddData(bin int, values, weights []float64) error {
	return m.addData(bin, values, weights, (*WeightedMean).Update)
}

// Collect combines every rank's state and returns the per-bin total
// weights and means, each of length Size; bins with zero total weight
// report a NaN mean. See Sum.Collect for the collective-call
// contract. Collect consumes the calculator.
func (m *Mean) Collect(ctx context.Context, c comm.Comm, mode Mode) (weights, means []float64, err error) {
	accs, ok, err := m.finish(ctx, c, mode, m.layout("mean", nil), WeightedMean.Merge)
	if err != nil || !ok {
		return nil, nil, err
	}
	weights = make([]float64, m.size)
	means = make([]float64, m.size)
	for i, a := range accs {
		weights[i] = a.Weight
		means[i] = a.Value()
	}
	return weights, means, nil
}

// Run drains r into the calculator and collects: it is equivalent to
// calling AddData on every chunk followed by Collect.
func (m *Mean) Run(ctx context.Context, r ChunkReader, c comm.Comm, mode Mode) (weights, means []float64, err error) {
	if err := drain(r, m.AddData); err != nil {
		return nil, nil, err
	}
	return m.Collect(ctx, c, mode)
}
