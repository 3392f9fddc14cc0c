// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package comm provides the collective-communication boundary between
// the calculators and whatever actually moves bytes between
// processes. The calculators need three collectives: reduce-to-root,
// all-reduce, and broadcast, all expressed over opaque payloads and a
// caller-supplied combine function. An implementation only has to
// move payloads between ranks and deliver each one exactly once to
// the combine step; no further ordering guarantees are required.
package comm

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
)

// A Comm connects one rank to the rest of its group. The collectives
// in this package are built on Send and Recv.
type Comm interface {
	// Rank returns this process's rank, in [0, Size).
	Rank() int
	// Size returns the number of ranks in the group.
	Size() int
	// Send delivers a payload to rank to. It blocks until the payload
	// has been accepted or the context is done.
	Send(ctx context.Context, to int, p []byte) error
	// Recv blocks until a payload from rank from arrives or the
	// context is done.
	Recv(ctx context.Context, from int) ([]byte, error)
}

// A CombineFunc merges two payloads into one. It must be associative
// and commutative so that the combined result is independent of the
// order in which payloads are folded together.
type CombineFunc func(a, b []byte) ([]byte, error)

// Reduce folds every rank's payload together at the root. Only the
// root receives the combined payload; every other rank returns nil.
// Every rank in the group must call Reduce with the same root, or the
// group deadlocks, as with any collective.
func Reduce(ctx context.Context, c Comm, root int, p []byte, combine CombineFunc) ([]byte, error) {
	if c.Rank() != root {
		return nil, c.Send(ctx, root, p)
	}
	acc := p
	for i := 0; i < c.Size(); i++ {
		if i == root {
			continue
		}
		q, err := c.Recv(ctx, i)
		if err != nil {
			return nil, err
		}
		acc, err = combine(acc, q)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// Bcast distributes the root's payload to every rank and returns it
// on all of them. Non-root ranks may pass a nil payload.
func Bcast(ctx context.Context, c Comm, root int, p []byte) ([]byte, error) {
	if c.Rank() != root {
		return c.Recv(ctx, root)
	}
	others := make([]int, 0, c.Size()-1)
	for i := 0; i < c.Size(); i++ {
		if i != root {
			others = append(others, i)
		}
	}
	err := traverse.Each(len(others), func(i int) error {
		return c.Send(ctx, others[i], p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AllReduce folds every rank's payload together and delivers the
// identical combined payload to every rank.
func AllReduce(ctx context.Context, c Comm, p []byte, combine CombineFunc) ([]byte, error) {
	const root = 0
	q, err := Reduce(ctx, c, root, p, combine)
	if err != nil {
		return nil, err
	}
	return Bcast(ctx, c, root, q)
}

func invalidRank(op string, rank, size int) error {
	return errors.E(errors.Invalid, fmt.Sprintf("comm: %s: rank %d out of range in group of %d", op, rank, size))
}
