// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
Package parstats computes weighted summary statistics (sums, means,
variances, and histograms) over datasets that are read incrementally,
in unordered chunks, by many independent processes. Each process sees
only a disjoint subset of the data; after a single collective step the
final statistics are numerically equal (up to floating-point rounding)
to the statistics of the whole dataset computed serially, in any order.

Statistics are computed per bin: a calculator is constructed with a
fixed number of bins, each datum is addressed to one bin, and the
result of a collect is one value (or several) per bin. Bins that are
never hit report weight zero and NaN statistics, distinguishing "no
data" from "exactly zero-valued data."

The usual lifecycle, on every participating process, is:

	calc := parstats.NewMeanVariance(nbins)
	for _, d := range mychunk {
		calc.AddWeighted(d.Bin, d.Value, d.Weight)
	}
	weight, mean, variance, err := calc.Collect(ctx, comm, parstats.Gather)

Add calls are purely local and never block. Collect is the single
synchronization point: it is a blocking collective call that every
process in the group must enter with the same mode. In Gather mode
only rank 0 receives the combined arrays (other ranks receive nil); in
AllReduce mode every rank receives identical arrays. Collect consumes
the calculator: further Add or Collect calls return an error.

Two properties make the unordered, distributed computation valid: the
per-datum update rule and the pairwise merge rule for each accumulator
kind are both associative and commutative up to rounding, so the final
statistic is independent of the order data is read, of how chunks are
assigned to processes, and of the reduction order inside Collect.

Communication happens through the comm.Comm interface, which requires
only the ability to move opaque payloads between ranks. The comm
package includes an in-process implementation (comm.Local, comm.Run)
that runs every rank as a goroutine in one binary; it is used by the
package's own tests and suffices for single-machine parallelism.
Passing a nil communicator collects serially.

When the number of bins is large but each process touches only a few
of them, construct calculators with the Sparse option: only touched
bins are then stored and transmitted.
*/
package parstats
