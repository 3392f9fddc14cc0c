// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package comm

import (
	"context"

	"github.com/grailbio/base/errors"
	"golang.org/x/sync/errgroup"
)

// Local returns an in-process group of n ranks whose payloads move
// over channels. It implements the full collective boundary without
// any multi-process runtime, which makes it suitable both for tests
// and for running every rank as a goroutine in a single binary.
func Local(n int) []Comm {
	mail := make([][]chan []byte, n)
	for i := range mail {
		mail[i] = make([]chan []byte, n)
		for j := range mail[i] {
			mail[i][j] = make(chan []byte, 1)
		}
	}
	comms := make([]Comm, n)
	for i := range comms {
		comms[i] = &local{rank: i, mail: mail}
	}
	return comms
}

type local struct {
	rank int
	mail [][]chan []byte // mail[from][to], shared by the group
}

func (l *local) Rank() int { return l.rank }

func (l *local) Size() int { return len(l.mail) }

func (l *local) Send(ctx context.Context, to int, p []byte) error {
	if to < 0 || to >= l.Size() {
		return invalidRank("send", to, l.Size())
	}
	select {
	case l.mail[l.rank][to] <- p:
		return nil
	case <-ctx.Done():
		return errors.E(errors.Net, "comm: send", ctx.Err())
	}
}

func (l *local) Recv(ctx context.Context, from int) ([]byte, error) {
	if from < 0 || from >= l.Size() {
		return nil, invalidRank("recv", from, l.Size())
	}
	select {
	case p := <-l.mail[from][l.rank]:
		return p, nil
	case <-ctx.Done():
		return nil, errors.E(errors.Net, "comm: recv", ctx.Err())
	}
}

// Run creates a fresh local group of n ranks and invokes fn once per
// rank, each on its own goroutine. It returns when every rank has
// returned, with the first error encountered; a failing rank cancels
// the others through the context.
func Run(ctx context.Context, n int, fn func(ctx context.Context, c Comm) error) error {
	comms := Local(n)
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range comms {
		c := c
		g.Go(func() error { return fn(ctx, c) })
	}
	return g.Wait()
}
