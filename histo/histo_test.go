/*
 * histo_test.go, part of trajstat.
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

package histo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewData(Te *testing.T) {
	raw := []float64{1, 6, 3, 2, 4, 5, 7, 6, 3.5, 3, 5, 1, 1, 0, 0, 5, 8, 1, 2, 3, 44, 3, 7, 3, 1, 3, 5, 32, 1}
	orig := append([]float64(nil), raw...)
	D := NewData([]float64{0, 1, 2, 3, 4, 8}, raw, 3)
	assert.Equal(Te, orig, raw, "the raw data should not be modified")
	assert.Equal(Te, []float64{2, 6, 2, 7, 9}, D.Copy())
	assert.Equal(Te, len(raw), D.Total())
	assert.Equal(Te, 3, D.ID())

	A := NewData([]float64{0, 1, 2, 3, 4, 8}, nil)
	A.AddData(raw...)
	assert.Equal(Te, D.Copy(), A.Copy(), "AddData and ReHisto should agree")
}

func TestNormalize(Te *testing.T) {
	D := NewData([]float64{0, 1, 2}, []float64{0.5, 0.5, 1.5, 3})
	D.Normalize()
	assert.True(Te, D.Normalized())
	assert.InDeltaSlice(Te, []float64{0.5, 0.25}, D.View(), 1e-12)
	D.Normalize()
	assert.InDeltaSlice(Te, []float64{0.5, 0.25}, D.View(), 1e-12, "normalizing twice should do nothing")
	D.AddData(1.2, 1.7, 1.1, 0.1)
	assert.InDeltaSlice(Te, []float64{3.0 / 8, 4.0 / 8}, D.View(), 1e-12)
	D.UnNormalize()
	assert.InDeltaSlice(Te, []float64{3, 4}, D.View(), 1e-12)
}

func TestMerge(Te *testing.T) {
	a := NewData([]float64{0, 1, 2}, []float64{0.5, 1.5})
	b := NewData([]float64{0, 1, 2}, []float64{0.1, 0.2})
	require.NoError(Te, a.Merge(b))
	assert.Equal(Te, []float64{3, 1}, a.Copy())
	assert.Equal(Te, 4, a.Total())
	c := NewData([]float64{0, 1, 3}, nil)
	assert.Error(Te, a.Merge(c))
}

func TestHistoJSON(Te *testing.T) {
	D := NewData([]float64{0, 1, 2, 3}, []float64{0.5, 2.5, 2.7}, 7)
	j, err := json.Marshal(D)
	require.NoError(Te, err)
	D2 := new(Data)
	require.NoError(Te, json.Unmarshal(j, D2))
	assert.Equal(Te, D.Copy(), D2.Copy())
	assert.Equal(Te, D.ID(), D2.ID())
	assert.Contains(Te, D2.String(), "ID: 7")
	assert.Error(Te, json.Unmarshal([]byte(`{"dividers":[0,1],"histo":[1,2]}`), D2))
}
