/*
 * buffer.go, part of trajstat.
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

package parallel

import (
	"fmt"
	"slices"

	"github.com/rmera/trajstat"
)

// Buffer is an array of results, in row-major order. The first dimension is
// the time: row j holds the observable evaluated on the j-th timestep.
type Buffer struct {
	Shape []int
	Data  []float64
}

// NewBuffer returns a zeroed buffer with the given shape.
func NewBuffer(shape ...int) *Buffer {
	return &Buffer{Shape: slices.Clone(shape), Data: make([]float64, trajstat.Size(shape))}
}

// Rows returns the number of timesteps in the buffer.
func (B *Buffer) Rows() int {
	if len(B.Shape) == 0 {
		return 0
	}
	return B.Shape[0]
}

// RowSize returns the number of elements of one row.
func (B *Buffer) RowSize() int {
	if len(B.Shape) == 0 {
		return 0
	}
	return trajstat.Size(B.Shape[1:])
}

// Row returns a view of the row j.
func (B *Buffer) Row(j int) []float64 {
	n := B.RowSize()
	return B.Data[j*n : (j+1)*n : (j+1)*n]
}

// Series returns a copy of the time series of element i of the rows.
func (B *Buffer) Series(i int) ([]float64, error) {
	n := B.RowSize()
	if i < 0 || i >= n {
		return nil, fmt.Errorf("parallel: element %d out of range for rows of %d elements", i, n)
	}
	ret := make([]float64, B.Rows())
	for j := range ret {
		ret[j] = B.Data[j*n+i]
	}
	return ret, nil
}
