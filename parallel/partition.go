/*
 * partition.go, part of trajstat.
 *
 * Copyright 2024 The trajstat Authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package parallel evaluates per-frame observables over a trajectory with a fixed
// group of ranks. The frames are split in contiguous blocks, one per rank, each rank
// evaluates the observable on its own block and the coordinator (rank 0) gathers the
// results, in rank order, into one array ordered by timestep.
package parallel

import (
	"github.com/rmera/trajstat"
)

// Spec defines the timesteps to analyze, Offset, Offset+Stride, ... < Total,
// and the number of workers that share them.
type Spec struct {
	Total   int `yaml:"total" mapstructure:"total"`
	Workers int `yaml:"workers" mapstructure:"workers"`
	Stride  int `yaml:"stride" mapstructure:"stride"`
	Offset  int `yaml:"offset" mapstructure:"offset"`
}

// Validate returns an ErrInvalidPartition error if the spec is not usable.
func (S Spec) Validate() error {
	switch {
	case S.Workers < 1:
		return trajstat.Errorf(trajstat.ErrInvalidPartition, "Spec.Validate", "at least 1 worker needed, %d given", S.Workers)
	case S.Stride < 1:
		return trajstat.Errorf(trajstat.ErrInvalidPartition, "Spec.Validate", "stride must be at least 1, %d given", S.Stride)
	case S.Offset < 0:
		return trajstat.Errorf(trajstat.ErrInvalidPartition, "Spec.Validate", "negative offset %d", S.Offset)
	case S.Total <= 0:
		return trajstat.Errorf(trajstat.ErrInvalidPartition, "Spec.Validate", "no timesteps to partition (total %d)", S.Total)
	case S.Offset >= S.Total:
		return trajstat.Errorf(trajstat.ErrInvalidPartition, "Spec.Validate", "offset %d not smaller than the total %d", S.Offset, S.Total)
	}
	return nil
}

// bounds returns the first timestep owned by rank, aligned to the stride grid, and the
// end (exclusive) of its block. The block of rank r is
// [Offset + r*span/W, Offset + (r+1)*span/W), span = Total-Offset, the last one ending at Total.
func (S Spec) bounds(rank int) (first, stop int64) {
	off, stride := int64(S.Offset), int64(S.Stride)
	span, w := int64(S.Total)-off, int64(S.Workers)
	start := off + int64(rank)*span/w
	stop = off + int64(rank+1)*span/w
	if rank == S.Workers-1 {
		stop = int64(S.Total)
	}
	//move forward to the next point of the grid
	first = off + (start-off+stride-1)/stride*stride
	return first, stop
}

func (S Spec) count(rank int) int {
	first, stop := S.bounds(rank)
	if first >= stop {
		return 0
	}
	stride := int64(S.Stride)
	return int((stop - first + stride - 1) / stride)
}

// Partition returns the timesteps owned by rank. Concatenating the partitions of
// ranks 0 to Workers-1 gives exactly Global(S). A rank may get no timesteps, if
// there are more workers than strided timesteps.
func Partition(rank int, S Spec) ([]int, error) {
	if err := S.Validate(); err != nil {
		return nil, trajstat.ErrDecorate(err, "Partition")
	}
	if rank < 0 || rank >= S.Workers {
		return nil, trajstat.Errorf(trajstat.ErrInvalidPartition, "Partition", "rank %d out of range [0,%d)", rank, S.Workers)
	}
	first, stop := S.bounds(rank)
	ret := make([]int, 0, S.count(rank))
	for t := first; t < stop; t += int64(S.Stride) {
		ret = append(ret, int(t))
	}
	return ret, nil
}

// Global returns all the timesteps defined by S, as a single worker would process them.
func Global(S Spec) ([]int, error) {
	if err := S.Validate(); err != nil {
		return nil, trajstat.ErrDecorate(err, "Global")
	}
	ret := make([]int, 0, (S.Total-S.Offset+S.Stride-1)/S.Stride)
	for t := S.Offset; t < S.Total; t += S.Stride {
		ret = append(ret, t)
	}
	return ret, nil
}

// Sizes returns the number of timesteps of each rank.
func (S Spec) Sizes() ([]int, error) {
	if err := S.Validate(); err != nil {
		return nil, trajstat.ErrDecorate(err, "Spec.Sizes")
	}
	ret := make([]int, S.Workers)
	for r := range ret {
		ret[r] = S.count(r)
	}
	return ret, nil
}
