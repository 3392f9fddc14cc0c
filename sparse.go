// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

// A sparseMap stores one accumulator per touched bin. When size is
// large but a process touches few bins, a dense per-bin array wastes
// memory and communication bandwidth, so accumulators are instead
// kept in an arena indexed by a map from bin to arena slot. Absent
// bins are the identity (zero-value) accumulator. The map grows as
// bins are first touched and never shrinks.
type sparseMap[A any] struct {
	slots []A         // arena of accumulators, in touch order
	index map[int]int // bin -> slot
}

func newSparseMap[A any]() *sparseMap[A] {
	return &sparseMap[A]{index: make(map[int]int)}
}

func (s *sparseMap[A]) len() int { return len(s.index) }

// slot returns a pointer to bin's accumulator, allocating the slot on
// first touch.
func (s *sparseMap[A]) slot(bin int) *A {
	i, ok := s.index[bin]
	if !ok {
		i = len(s.slots)
		var zero A
		s.slots = append(s.slots, zero)
		s.index[bin] = i
	}
	return &s.slots[i]
}

// get returns bin's accumulator, or the identity if the bin has never
// been touched.
func (s *sparseMap[A]) get(bin int) A {
	if i, ok := s.index[bin]; ok {
		return s.slots[i]
	}
	var zero A
	return zero
}

// dense expands the map into a slice of length size, leaving
// untouched bins at the identity. Bins at or beyond size are dropped.
func (s *sparseMap[A]) dense(size int) []A {
	d := make([]A, size)
	for bin, i := range s.index {
		if bin < size {
			d[bin] = s.slots[i]
		}
	}
	return d
}

// arrays returns the touched bins and their accumulators, slot order,
// for encoding onto the wire.
func (s *sparseMap[A]) arrays() ([]int, []A) {
	bins := make([]int, len(s.slots))
	for bin, i := range s.index {
		bins[i] = bin
	}
	return bins, s.slots
}

// sparseFromArrays rebuilds a sparseMap from its arrays form. The
// slots slice is adopted, not copied.
func sparseFromArrays[A any](bins []int, accs []A) *sparseMap[A] {
	s := &sparseMap[A]{slots: accs, index: make(map[int]int, len(bins))}
	for i, bin := range bins {
		s.index[bin] = i
	}
	return s
}

// mergeSparse folds t into s per bin and returns the result, which
// aliases one of the arguments. The smaller map is walked into the
// larger so the work is bounded by the smaller side.
func mergeSparse[A any](s, t *sparseMap[A], merge func(A, A) A) *sparseMap[A] {
	if t.len() > s.len() {
		s, t = t, s
	}
	for bin, j := range t.index {
		p := s.slot(bin)
		*p = merge(*p, t.slots[j])
	}
	return s
}
