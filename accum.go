// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

import "math"

// A Count accumulates the number of data points absorbed. The zero
// value is the identity.
type Count struct {
	N int64
}

// Update absorbs one datum.
func (c *Count) Update() { c.N++ }

// Merge combines two counts built from disjoint data.
func (c Count) Merge(d Count) Count { return Count{N: c.N + d.N} }

// A WeightedSum accumulates a weighted sum of values along with the
// total weight. The zero value is the identity.
type WeightedSum struct {
	Weight float64
	Sum    float64
}

// Update absorbs one datum with the given weight.
func (s *WeightedSum) Update(value, weight float64) {
	s.Weight += weight
	s.Sum += value * weight
}

// Merge combines two sums built from disjoint data.
func (s WeightedSum) Merge(t WeightedSum) WeightedSum {
	return WeightedSum{Weight: s.Weight + t.Weight, Sum: s.Sum + t.Sum}
}

// A WeightedMean maintains a running weighted mean using the weighted
// form of Welford's update. The zero value is the identity. Mean is
// held at zero, not NaN, while Weight == 0 so that the update rule
// stays closed; use Value to read the mean with empty accumulators
// reported as NaN.
type WeightedMean struct {
	Weight float64
	Mean   float64
}

// Update absorbs one datum with the given weight. Zero-weight data
// leaves the accumulator unchanged.
func (m *WeightedMean) Update(value, weight float64) {
	if weight == 0 {
		return
	}
	m.Weight += weight
	m.Mean += (weight / m.Weight) * (value - m.Mean)
}

// Merge combines two means built from disjoint data. The result is
// the same state, up to rounding, that a single accumulator would
// reach absorbing both sides' data in any order.
func (m WeightedMean) Merge(n WeightedMean) WeightedMean {
	switch {
	case m.Weight == 0:
		return n
	case n.Weight == 0:
		return m
	}
	w := m.Weight + n.Weight
	return WeightedMean{Weight: w, Mean: (m.Weight*m.Mean + n.Weight*n.Mean) / w}
}

// Value returns the mean, or NaN when no weight has been absorbed.
func (m WeightedMean) Value() float64 {
	if m.Weight == 0 {
		return math.NaN()
	}
	return m.Mean
}

// A WeightedMeanVar maintains a running weighted mean together with
// M2, the weighted sum of squared deviations from the mean, using the
// weighted Welford/West update. Merging uses Chan's parallel
// combination rule, so independently built accumulators combine into
// the same state, up to rounding, as serial accumulation. The zero
// value is the identity.
type WeightedMeanVar struct {
	Weight float64
	Mean   float64
	M2     float64
}

// Update absorbs one datum with the given weight. Zero-weight data
// leaves the accumulator unchanged.
func (v *WeightedMeanVar) Update(value, weight float64) {
	if weight == 0 {
		return
	}
	v.Weight += weight
	delta := value - v.Mean
	v.Mean += (weight / v.Weight) * delta
	v.M2 += weight * delta * (value - v.Mean)
}

// Merge combines two accumulators built from disjoint data.
func (v WeightedMeanVar) Merge(w WeightedMeanVar) WeightedMeanVar {
	switch {
	case v.Weight == 0:
		return w
	case w.Weight == 0:
		return v
	}
	total := v.Weight + w.Weight
	delta := w.Mean - v.Mean
	return WeightedMeanVar{
		Weight: total,
		Mean:   v.Mean + delta*(w.Weight/total),
		M2:     v.M2 + w.M2 + delta*delta*(v.Weight*w.Weight/total),
	}
}

// Stats returns the mean and the population variance M2/Weight, or
// NaN for both when no weight has been absorbed.
func (v WeightedMeanVar) Stats() (mean, variance float64) {
	if v.Weight == 0 {
		return math.NaN(), math.NaN()
	}
	return v.Mean, v.M2 / v.Weight
}
