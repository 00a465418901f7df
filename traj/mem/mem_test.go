/*
 * mem_test.go, part of trajstat.
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

package mem

import (
	"errors"
	"testing"

	"github.com/rmera/trajstat"
	v3 "github.com/rmera/trajstat/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two frames of 5 particles stored out of order, with image counters, box 10.
func testTraj(Te *testing.T) *Trajectory {
	T := New(5, [3]float64{10, 10, 10})
	pos := [][]float64{
		{3.11, 3.21, 3.31, 1.11, 1.21, 1.31, 4.11, 4.21, 4.31, 2.11, 2.21, 2.31, 5.11, 5.21, 5.31},
		{3.12, 3.22, 3.32, 4.12, 4.22, 4.32, 1.12, 1.22, 1.32, 2.12, 2.22, 2.32, 5.12, 5.22, 5.32},
	}
	ids := [][]int{{3, 1, 4, 2, 5}, {3, 4, 1, 2, 5}}
	images := [][][3]int{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}},
		{{0, 0, 0}, {-1, -1, -1}, {-13, 1, 1}, {2, 3, 4}, {1, 1, 0}},
	}
	for i := range pos {
		p, err := v3.NewMatrix(pos[i])
		require.NoError(Te, err)
		require.NoError(Te, T.Append(p, ids[i], images[i]))
	}
	return T
}

func TestPositions(Te *testing.T) {
	T := testTraj(Te)
	assert.Equal(Te, 5, T.Len())
	assert.Equal(Te, 2, T.NFrames())
	assert.Equal(Te, [3]float64{10, 10, 10}, T.Box())
	ps, err := trajstat.PositionsAt(T, []int{1, 0}, false)
	require.NoError(Te, err)
	unfolded1 := [][3]float64{
		{-128.88, 11.22, 11.32},
		{22.12, 32.22, 42.32},
		{3.12, 3.22, 3.32},
		{-5.88, -5.78, -5.68},
		{15.12, 15.22, 5.32},
	}
	for i, v := range unfolded1 {
		assert.InDeltaSlice(Te, v[:], ps[0].RawRowView(i), 1e-9, "particle id %d", i+1)
	}
	assert.InDeltaSlice(Te, []float64{11.11, 1.21, 1.31}, ps[1].RawRowView(0), 1e-9)

	folded, err := trajstat.PositionsAt(T, []int{1}, true)
	require.NoError(Te, err)
	assert.InDeltaSlice(Te, []float64{1.12, 1.22, 1.32}, folded[0].RawRowView(0), 1e-12)
	assert.InDeltaSlice(Te, []float64{4.12, 4.22, 4.32}, folded[0].RawRowView(3), 1e-12)

	_, err = trajstat.PositionsAt(T, []int{2}, true)
	assert.True(Te, errors.Is(err, trajstat.ErrInvalidInput))
}

func TestAppendErrors(Te *testing.T) {
	T := New(2, [3]float64{})
	assert.Error(Te, T.Append(v3.Zeros(3), nil, nil))
	assert.Error(Te, T.Append(v3.Zeros(2), []int{1, 1}, nil))
	assert.Error(Te, T.Append(v3.Zeros(2), []int{1}, nil))
	assert.Error(Te, T.Append(v3.Zeros(2), nil, [][3]int{{0, 0, 0}}))
	_, err := FromFrames(nil, [3]float64{})
	assert.Error(Te, err)
}

func TestFromFrames(Te *testing.T) {
	a, _ := v3.NewMatrix([]float64{1, 2, 3, 4, 5, 6})
	b, _ := v3.NewMatrix([]float64{7, 8, 9, 10, 11, 12})
	T, err := FromFrames([]*v3.Matrix{a, b}, [3]float64{5, 5, 5})
	require.NoError(Te, err)
	a.Set(0, 0, 100)
	dst := v3.Zeros(2)
	require.NoError(Te, T.Positions(0, false, dst))
	assert.Equal(Te, [3]float64{1, 2, 3}, dst.Vec(0), "frames should be copied on Append")
	require.NoError(Te, T.Positions(1, false, dst))
	assert.Equal(Te, [3]float64{10, 11, 12}, dst.Vec(1))
}
