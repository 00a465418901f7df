/*
 * resolve_test.go, part of trajstat.
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

package trajstat

import (
	"errors"
	"testing"

	v3 "github.com/rmera/trajstat/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// first frame of a 5-particle trajectory stored out of id order, box 10.
var (
	resolvePos = []float64{
		3.11, 3.21, 3.31,
		1.11, 1.21, 1.31,
		4.11, 4.21, 4.31,
		2.11, 2.21, 2.31,
		5.11, 5.21, 5.31,
	}
	resolveIDs    = []int{3, 1, 4, 2, 5}
	resolveImages = [][3]int{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}
	resolveBox    = [3]float64{10, 10, 10}
)

func TestResolve(Te *testing.T) {
	pos, err := v3.NewMatrix(resolvePos)
	require.NoError(Te, err)
	dst := v3.Zeros(5)
	require.NoError(Te, Resolve(dst, pos, resolveIDs, nil, resolveBox, true))
	folded := [][3]float64{
		{1.11, 1.21, 1.31},
		{2.11, 2.21, 2.31},
		{3.11, 3.21, 3.31},
		{4.11, 4.21, 4.31},
		{5.11, 5.21, 5.31},
	}
	for i, v := range folded {
		assert.InDeltaSlice(Te, v[:], dst.RawRowView(i), 1e-12)
	}
	require.NoError(Te, Resolve(dst, pos, resolveIDs, resolveImages, resolveBox, false))
	unfolded := [][3]float64{
		{11.11, 1.21, 1.31},
		{2.11, 2.21, 12.31},
		{3.11, 3.21, 3.31},
		{4.11, 14.21, 4.31},
		{15.11, 15.21, 15.31},
	}
	for i, v := range unfolded {
		assert.InDeltaSlice(Te, v[:], dst.RawRowView(i), 1e-12)
	}
	assert.Equal(Te, 3.11, pos.At(0, 0), "the input positions should not be modified")
}

func TestResolveErrors(Te *testing.T) {
	pos, err := v3.NewMatrix(resolvePos)
	require.NoError(Te, err)
	dst := v3.Zeros(5)
	err = Resolve(dst, pos, []int{3, 1, 4, 1, 5}, nil, resolveBox, true)
	assert.True(Te, errors.Is(err, ErrInvalidInput))
	err = Resolve(dst, pos, resolveIDs, resolveImages[:2], resolveBox, false)
	assert.True(Te, errors.Is(err, ErrInvalidInput))
	err = Resolve(v3.Zeros(4), pos, resolveIDs, nil, resolveBox, true)
	assert.True(Te, errors.Is(err, ErrInvalidInput))
}

func TestErrorDecoration(Te *testing.T) {
	err := Errorf(ErrProtocolShape, "Recv", "got %d", 3)
	assert.True(Te, err.Critical())
	e2 := ErrDecorate(err, "Communicate")
	assert.True(Te, errors.Is(e2, ErrProtocolShape))
	assert.Equal(Te, []string{"Recv", "Communicate"}, err.Decorate(""))
	assert.Contains(Te, e2.Error(), "Recv<-Communicate")
	assert.False(Te, NewError(ErrInvalidInput, "x", "f").Critical())
	assert.Nil(Te, ErrDecorate(nil, "f"))
}
