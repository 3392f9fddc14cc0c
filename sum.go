// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

import (
	"context"

	"github.com/LSSTDESC/parallel-statistics/comm"
)

// A Sum is a parallel, incremental calculator of per-bin weighted
// sums. Create one per process, feed it data with Add, AddWeighted,
// or AddData, and finalize with a single Collect.
type Sum struct {
	calculator[WeightedSum]
}

// NewSum returns a sum calculator over size bins, all empty.
func NewSum(size int, opts ...Option) *Sum {
	return &Sum{newCalculator[WeightedSum](size, makeOptions(opts))}
}

// Add absorbs one unit-weight datum into bin.
func (s *Sum) Add(bin int, value float64) error {
	return s.AddWeighted(bin, value, 1)
}

// AddWeighted absorbs one datum with the given weight. Out-of-range
// bins are dropped silently; a negative weight is an error.
func (s *Sum) AddWeighted(bin int, value, weight float64) error {
	return s.add(bin, value, weight, (*WeightedSum).Update)
}

// AddData absorbs a chunk of values, all in one bin. A nil weights
// slice means unit weights.
func (s *Sum) AddData(bin int, values, weights []float64) error {
	return s.addData(bin, values, weights, (*WeightedSum).Update)
}

// Collect combines every rank's sums and returns the per-bin total
// weights and sums, each of length Size. It is a blocking collective
// call: every rank in c's group must enter it with the same mode. In
// Gather mode only rank 0 receives the arrays; other ranks return
// nil. A nil c collects serially. Collect consumes the calculator:
// subsequent Add or Collect calls fail.
func (s *Sum) Collect(ctx context.Context, c comm.Comm, mode Mode) (weights, sums []float64, err error) {
	accs, ok, err := s.finish(ctx, c, mode, s.layout("sum", nil), WeightedSum.Merge)
	if err != nil || !ok {
		return nil, nil, err
	}
	weights = make([]float64, s.size)
	sums = make([]float64, s.size)
	for i, a := range accs {
		weights[i] = a.Weight
		sums[i] = a.Sum
	}
	return weights, sums, nil
}

// Run drains r into the calculator and collects: it is equivalent to
// calling AddData on every chunk followed by Collect.
func (s *Sum) Run(ctx context.Context, r ChunkReader, c comm.Comm, mode Mode) (weights, sums []float64, err error) {
	if err := drain(r, s.AddData); err != nil {
		return nil, nil, err
	}
	return s.Collect(ctx, c, mode)
}
