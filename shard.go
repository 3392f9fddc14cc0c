// Copyright 2020 the parallel-statistics authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parstats

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// Shard deterministically assigns key to one of width ranks. Every
// rank computes the same assignment, so callers can use it to spread
// a dataset across a group when the data has no natural partitioning.
// Any assignment works: the statistics are independent of how data is
// split across ranks, provided each datum is added exactly once.
func Shard(key, width int) int {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(key))
	return int(murmur3.Sum32(b[:]) % uint32(width))
}
