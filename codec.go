// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

import (
	"bytes"
	"encoding/gob"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/must"
)

// A message is the wire form of one rank's accumulator state: either
// a dense per-bin slice or a sparse (bins, accumulators) pairing.
// Messages move between ranks as gob-encoded opaque payloads.
type message[A any] struct {
	Sparse bool
	Dense  []A
	Bins   []int
	Accs   []A
}

// dense returns the per-bin accumulators as a slice of length size,
// untouched bins at the identity.
func (m message[A]) dense(size int) []A {
	if !m.Sparse {
		return m.Dense
	}
	return sparseFromArrays(m.Bins, m.Accs).dense(size)
}

func encodeMessage[A any](m message[A]) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(m); err != nil {
		return nil, errors.E(err, "parstats: encode accumulator state")
	}
	return b.Bytes(), nil
}

func decodeMessage[A any](p []byte) (message[A], error) {
	var m message[A]
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode(&m); err != nil {
		return message[A]{}, errors.E(err, "parstats: decode accumulator state")
	}
	return m, nil
}

// mergeMessages combines two ranks' states per bin. The layouts have
// been fingerprint-checked before any state is exchanged, so
// mismatched shapes here are an internal fault.
func mergeMessages[A any](a, b message[A], merge func(A, A) A) message[A] {
	must.Truef(a.Sparse == b.Sparse, "mixed dense/sparse accumulator state")
	if !a.Sparse {
		must.Truef(len(a.Dense) == len(b.Dense),
			"mismatched bin counts: %d vs %d", len(a.Dense), len(b.Dense))
		for i := range a.Dense {
			a.Dense[i] = merge(a.Dense[i], b.Dense[i])
		}
		return a
	}
	s := mergeSparse(sparseFromArrays(a.Bins, a.Accs), sparseFromArrays(b.Bins, b.Accs), merge)
	bins, accs := s.arrays()
	return message[A]{Sparse: true, Bins: bins, Accs: accs}
}
