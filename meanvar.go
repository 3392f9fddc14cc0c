// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

import (
	"context"

	"github.com/LSSTDESC/parallel-statistics/comm"
)

// A MeanVariance is a parallel, incremental calculator of per-bin
// weighted means and population variances. Updates use the weighted
// Welford/West recurrence and ranks are combined with Chan's parallel
// rule, so a single pass over the data suffices and the result does
// not depend on data order or chunk assignment. Bins with zero total
// weight report NaN for both statistics.
type MeanVariance struct {
	calculator[WeightedMeanVar]
}

// NewMeanVariance returns a mean-and-variance calculator over size
// bins, all empty.
func NewMeanVariance(size int, opts ...Option) *MeanVariance {
	return &MeanVariance{newCalculator[WeightedMeanVar](size, makeOptions(opts))}
}

// Add absorbs one unit-weight datum into bin.
func (m *MeanVariance) Add(bin int, value float64) error {
	return m.AddWeighted(bin, value, 1)
}

// AddWeighted absorbs one datum with the given weight. Out-of-range
// bins are dropped silently; a negative weight is an error.
func (m *MeanVariance) AddWeighted(bin int, value, weight float64) error {
	return m.add(bin, value, weight, (*WeightedMeanVar).Update)
}

// AddData absorbs a chunk of values, all in one bin. A nil weights
// slice means unit weights.
func (m *MeanVariance) AddData(bin int, values, weights []float64) error {
	return m.addData(bin, values, weights, (*WeightedMeanVar).Update)
}

// Collect combines every rank's state and returns the per-bin total
// weights, means, and population variances, each of length Size; bins
// with zero total weight report NaN statistics. See Sum.Collect for
// the collective-call contract. Collect consumes the calculator.
func (m *MeanVariance) Collect(ctx context.Context, c comm.Comm, mode Mode) (weights, means, variances []float64, err error) {
	accs, ok, err := m.finish(ctx, c, mode, m.layout("meanvar", nil), WeightedMeanVar.Merge)
	if err != nil || !ok {
		return nil, nil, nil, err
	}
	weights = make([]float64, m.size)
	means = make([]float64, m.size)
	variances = make([]float64, m.size)
	for i, a := range accs {
		weights[i] = a.Weight
		means[i], variances[i] = a.Stats()
	}
	return weights, means, variances, nil
}

// Run drains r into the calculator and collects: it is equivalent to
// calling AddData on every chunk followed by Collect.
func (m *MeanVariance) Run(ctx context.Context, r ChunkReader, c comm.Comm, mode Mode) (weights, means, variances []float64, err error) {
	if err := drain(r, m.AddData); err != nil {
		return nil, nil, nil, err
	}
	return m.Collect(ctx, c, mode)
}
