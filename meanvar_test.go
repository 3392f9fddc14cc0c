// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

import (
	"context"
	"math/rand"
	"testing"
)

func TestMeanVarianceSerial(t *testing.T) {
	const size = 5
	rng := rand.New(rand.NewSource(3))
	calc := NewMeanVariance(size)
	binned := make([][]datum, size)
	for i := 0; i < 500; i++ {
		bin := rng.Intn(size)
		d := datum{Value: rng.NormFloat64() * 3, Weight: rng.Float64() * 2}
		binned[bin] = append(binned[bin], d)
		if err := calc.AddWeighted(bin, d.Value, d.Weight); err != nil {
			t.Fatal(err)
		}
	}
	weights, means, variances, err := calc.Collect(context.Background(), nil, Gather)
	if err != nil {
		t.Fatal(err)
	}
	for bin := 0; bin < size; bin++ {
		wantW, wantM, wantV := closedForm(binned[bin])
		if !near(weights[bin], wantW) {
			t.Errorf("bin %d: got weight %v, want %v", bin, weights[bin], wantW)
		}
		if !near(means[bin], wantM) {
			t.Errorf("bin %d: got mean %v, want %v", bin, means[bin], wantM)
		}
		if !near(variances[bin], wantV) {
			t.Errorf("bin %d: got variance %v, want %v", bin, variances[bin], wantV)
		}
	}
}
