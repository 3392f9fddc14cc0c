// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/LSSTDESC/parallel-statistics/comm"
	"github.com/grailbio/base/errors"
)

var invalidErr = errors.E(errors.Invalid)

// TestEndToEnd is the headline scenario: 4 processes each add the
// same three data points; the collected statistics must match the
// serial computation over all 12.
func TestEndToEnd(t *testing.T) {
	const nproc = 4
	for _, mode := range []Mode{Gather, AllReduce} {
		weights := make([][]float64, nproc)
		means := make([][]float64, nproc)
		variances := make([][]float64, nproc)
		err := comm.Run(context.Background(), nproc, func(ctx context.Context, c comm.Comm) error {
			calc := NewMeanVariance(2)
			calc.AddWeighted(0, 1, 1)
			calc.AddWeighted(0, 3, 1)
			calc.AddWeighted(1, 10, 2)
			w, m, v, err := calc.Collect(ctx, c, mode)
			if err != nil {
				return err
			}
			weights[c.Rank()], means[c.Rank()], variances[c.Rank()] = w, m, v
			return nil
		})
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		for rank := 0; rank < nproc; rank++ {
			if mode == Gather && rank != 0 {
				if weights[rank] != nil {
					t.Errorf("%s: rank %d: got %v, want nil", mode, rank, weights[rank])
				}
				continue
			}
			if got, want := weights[rank], []float64{8, 8}; !nearSlice(got, want) {
				t.Errorf("%s: rank %d: got weights %v, want %v", mode, rank, got, want)
			}
			if got, want := means[rank], []float64{2, 10}; !nearSlice(got, want) {
				t.Errorf("%s: rank %d: got means %v, want %v", mode, rank, got, want)
			}
			if got, want := variances[rank], []float64{1, 0}; !nearSlice(got, want) {
				t.Errorf("%s: rank %d: got variances %v, want %v", mode, rank, got, want)
			}
		}
	}
}

func nearSlice(got, want []float64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if !near(got[i], want[i]) {
			return false
		}
	}
	return true
}

// TestChunkingIndependence partitions one dataset across varying
// numbers of ranks; every split must agree with the serial result.
func TestChunkingIndependence(t *testing.T) {
	const size = 20
	rng := rand.New(rand.NewSource(1))
	var data []struct {
		bin           int
		value, weight float64
	}
	for i := 0; i < 1000; i++ {
		data = append(data, struct {
			bin           int
			value, weight float64
		}{rng.Intn(size), rng.NormFloat64() * 10, rng.Float64()})
	}

	serial := NewMeanVariance(size)
	for _, d := range data {
		if err := serial.AddWeighted(d.bin, d.value, d.weight); err != nil {
			t.Fatal(err)
		}
	}
	wantW, wantM, wantV, err := serial.Collect(context.Background(), nil, Gather)
	if err != nil {
		t.Fatal(err)
	}

	for _, nproc := range []int{1, 2, 3, 5} {
		for _, opts := range [][]Option{nil, {Sparse()}} {
			var gotW, gotM, gotV []float64
			err := comm.Run(context.Background(), nproc, func(ctx context.Context, c comm.Comm) error {
				calc := NewMeanVariance(size, opts...)
				for i, d := range data {
					if Shard(i, nproc) != c.Rank() {
						continue
					}
					if err := calc.AddWeighted(d.bin, d.value, d.weight); err != nil {
						return err
					}
				}
				w, m, v, err := calc.Collect(ctx, c, Gather)
				if err != nil {
					return err
				}
				if c.Rank() == 0 {
					gotW, gotM, gotV = w, m, v
				}
				return nil
			})
			if err != nil {
				t.Fatalf("nproc=%d: %v", nproc, err)
			}
			if !nearSlice(gotW, wantW) || !nearSlice(gotM, wantM) || !nearSlice(gotV, wantV) {
				t.Errorf("nproc=%d sparse=%v: distributed result diverged from serial", nproc, opts != nil)
			}
		}
	}
}

// TestGatherAllReduceEquivalence checks that both modes deliver the
// same numbers for the same dataset.
func TestGatherAllReduceEquivalence(t *testing.T) {
	const size, nproc = 8, 3
	results := make(map[Mode][]float64)
	for _, mode := range []Mode{Gather, AllReduce} {
		var root []float64
		err := comm.Run(context.Background(), nproc, func(ctx context.Context, c comm.Comm) error {
			calc := NewMean(size)
			local := rand.New(rand.NewSource(int64(c.Rank())))
			for i := 0; i < 200; i++ {
				if err := calc.AddWeighted(local.Intn(size), local.NormFloat64(), local.Float64()); err != nil {
					return err
				}
			}
			_, means, err := calc.Collect(ctx, c, mode)
			if err != nil {
				return err
			}
			if c.Rank() == 0 {
				root = means
			}
			return nil
		})
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		results[mode] = root
	}
	if !nearSlice(results[Gather], results[AllReduce]) {
		t.Errorf("gather %v, allreduce %v", results[Gather], results[AllReduce])
	}
}

// TestWeightConservation checks that no weight is lost or duplicated
// by the reduction.
func TestWeightConservation(t *testing.T) {
	const size, nproc = 10, 4
	var want float64
	var got []float64
	err := comm.Run(context.Background(), nproc, func(ctx context.Context, c comm.Comm) error {
		calc := NewSum(size)
		rng := rand.New(rand.NewSource(int64(c.Rank())))
		for i := 0; i < 100; i++ {
			calc.AddWeighted(rng.Intn(size), 1, float64(c.Rank()+1))
		}
		weights, _, err := calc.Collect(ctx, c, Gather)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			got = weights
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for rank := 0; rank < nproc; rank++ {
		want += 100 * float64(rank+1)
	}
	var total float64
	for _, w := range got {
		total += w
	}
	if !near(total, want) {
		t.Errorf("got total weight %v, want %v", total, want)
	}
}

// TestEmptyBin checks the no-data convention before and after a
// collect: weight zero, NaN statistics.
func TestEmptyBin(t *testing.T) {
	const nproc = 2
	results := make([][]float64, nproc)
	weights := make([][]float64, nproc)
	err := comm.Run(context.Background(), nproc, func(ctx context.Context, c comm.Comm) error {
		calc := NewMeanVariance(3)
		// Only bin 1 gets data; bin 0 gets a zero-weight datum, which
		// must behave exactly like no data at all.
		calc.AddWeighted(0, 42, 0)
		calc.Add(1, float64(c.Rank()))
		w, m, _, err := calc.Collect(ctx, c, AllReduce)
		if err != nil {
			return err
		}
		weights[c.Rank()], results[c.Rank()] = w, m
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for rank := 0; rank < nproc; rank++ {
		for _, bin := range []int{0, 2} {
			if got := weights[rank][bin]; got != 0 {
				t.Errorf("rank %d bin %d: got weight %v, want 0", rank, bin, got)
			}
			if got := results[rank][bin]; !math.IsNaN(got) {
				t.Errorf("rank %d bin %d: got mean %v, want NaN", rank, bin, got)
			}
		}
		if got, want := results[rank][1], 0.5; !near(got, want) {
			t.Errorf("rank %d: got mean %v, want %v", rank, got, want)
		}
	}
}

// TestSizeMismatch checks that ranks constructed with different sizes
// all fail the collect before any state is merged.
func TestSizeMismatch(t *testing.T) {
	const nproc = 3
	errs := make([]error, nproc)
	err := comm.Run(context.Background(), nproc, func(ctx context.Context, c comm.Comm) error {
		calc := NewSum(2 + c.Rank()%2)
		calc.Add(0, 1)
		_, _, err := calc.Collect(ctx, c, Gather)
		errs[c.Rank()] = err
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for rank, err := range errs {
		if err == nil {
			t.Errorf("rank %d: expected error", rank)
			continue
		}
		if !errors.Match(invalidErr, err) {
			t.Errorf("rank %d: got %v, want Invalid", rank, err)
		}
	}
}

func TestCollectConsumes(t *testing.T) {
	calc := NewSum(4)
	calc.Add(1, 2)
	if _, _, err := calc.Collect(context.Background(), nil, Gather); err != nil {
		t.Fatal(err)
	}
	if _, _, err := calc.Collect(context.Background(), nil, Gather); !errors.Match(invalidErr, err) {
		t.Errorf("got %v, want Invalid", err)
	}
	if err := calc.Add(1, 2); !errors.Match(invalidErr, err) {
		t.Errorf("got %v, want Invalid", err)
	}
}

func TestInvalidMode(t *testing.T) {
	calc := NewSum(1)
	if _, _, err := calc.Collect(context.Background(), nil, Mode(42)); !errors.Match(invalidErr, err) {
		t.Errorf("got %v, want Invalid", err)
	}
}
