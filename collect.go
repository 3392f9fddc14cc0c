// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/LSSTDESC/parallel-statistics/comm"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/spaolacci/murmur3"
)

// Mode selects how Collect delivers the combined result.
type Mode int

const (
	// Gather delivers the combined result only to rank 0; every other
	// rank receives nil result slices.
	Gather Mode = iota
	// AllReduce delivers the identical combined result to every rank.
	AllReduce
)

// String returns the mode's name.
func (m Mode) String() string {
	switch m {
	case Gather:
		return "gather"
	case AllReduce:
		return "allreduce"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// collectRoot is the rank that accumulates gathered state.
const collectRoot = 0

// layoutHash fingerprints a calculator's layout. Ranks whose
// calculators disagree on kind, bin count, storage flavor, or
// histogram edges must fail the collect rather than silently corrupt
// the reduction.
func layoutHash(kind string, size int, sparse bool, edges []float64) uint64 {
	h := murmur3.New64()
	io.WriteString(h, kind)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(size))
	h.Write(b[:])
	if sparse {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	for _, e := range edges {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(e))
		h.Write(b[:])
	}
	return h.Sum64()
}

// checkLayout validates that every rank entered the collect with the
// same calculator layout, before any accumulator state is exchanged.
// The root reduces the fingerprints and then broadcasts a verdict so
// that every rank learns of a mismatch.
func checkLayout(ctx context.Context, c comm.Comm, hash uint64) error {
	var p [8]byte
	binary.LittleEndian.PutUint64(p[:], hash)
	verdict := []byte{1}
	_, err := comm.Reduce(ctx, c, collectRoot, p[:], func(a, b []byte) ([]byte, error) {
		if !bytes.Equal(a, b) {
			verdict[0] = 0
		}
		return a, nil
	})
	if err != nil {
		return err
	}
	verdict, err = comm.Bcast(ctx, c, collectRoot, verdict)
	if err != nil {
		return err
	}
	if verdict[0] == 0 {
		log.Error.Printf("parstats: rank %d: calculators in this collect have mismatched layouts", c.Rank())
		return errors.E(errors.Invalid, fmt.Sprintf("parstats: mismatched calculator layouts in collect (group of %d)", c.Size()))
	}
	return nil
}

// collect reduces every rank's accumulator state onto the root,
// merging per bin, then broadcasts the combined state when mode is
// AllReduce. It returns the combined state along with whether this
// rank received one (in Gather mode, only the root does). A nil comm
// collects serially: the local state is the result.
func collect[A any](ctx context.Context, c comm.Comm, mode Mode, local message[A], hash uint64, merge func(A, A) A) (message[A], bool, error) {
	if mode != Gather && mode != AllReduce {
		return message[A]{}, false, errors.E(errors.Invalid, fmt.Sprintf("parstats: invalid collect mode %s", mode))
	}
	if c == nil {
		return local, true, nil
	}
	if err := checkLayout(ctx, c, hash); err != nil {
		return message[A]{}, false, err
	}
	p, err := encodeMessage(local)
	if err != nil {
		return message[A]{}, false, err
	}
	combine := func(a, b []byte) ([]byte, error) {
		ma, err := decodeMessage[A](a)
		if err != nil {
			return nil, err
		}
		mb, err := decodeMessage[A](b)
		if err != nil {
			return nil, err
		}
		return encodeMessage(mergeMessages(ma, mb, merge))
	}
	switch mode {
	case Gather:
		p, err = comm.Reduce(ctx, c, collectRoot, p, combine)
		if err != nil {
			return message[A]{}, false, err
		}
		if c.Rank() != collectRoot {
			return message[A]{}, false, nil
		}
	default: // AllReduce
		p, err = comm.AllReduce(ctx, c, p, combine)
		if err != nil {
			return message[A]{}, false, err
		}
	}
	m, err := decodeMessage[A](p)
	if err != nil {
		return message[A]{}, false, err
	}
	return m, true, nil
}
