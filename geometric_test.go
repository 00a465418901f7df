/*
 * geometric_test.go, part of trajstat.
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
	"math"
	"testing"

	v3 "github.com/rmera/trajstat/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondLegendre(Te *testing.T) {
	o := [3]float64{0, 0, 0}
	x := [3]float64{1, 0, 0}
	y := [3]float64{0, 1, 0}
	z := [3]float64{0, 0, 1}
	cases := []struct {
		p2   [3]float64
		axis byte
		want float64
	}{
		{x, 'x', 1}, {y, 'x', -0.5},
		{y, 'y', 1}, {z, 'y', -0.5},
		{z, 'z', 1}, {x, 'z', -0.5},
	}
	for _, c := range cases {
		v, err := SecondLegendre(o, c.p2, c.axis)
		require.NoError(Te, err)
		assert.Equal(Te, c.want, v, "axis %c, vector %v", c.axis, c.p2)
	}
	_, err := SecondLegendre(o, x, 'w')
	assert.True(Te, errors.Is(err, ErrInvalidInput))
	_, err = SecondLegendre(o, o, 'x')
	assert.True(Te, errors.Is(err, ErrInvalidInput))
}

func linspace(n int, from, to float64) *v3.Matrix {
	c := v3.Zeros(n)
	for i := 0; i < n; i++ {
		c.SetVec(i, [3]float64{from + (to-from)*float64(i)/float64(n-1), 0, 0})
	}
	return c
}

func TestRg2(Te *testing.T) {
	c := linspace(10000, 0, 12)
	rg2, err := Rg2(c)
	require.NoError(Te, err)
	assert.InDelta(Te, 12.0, rg2, 0.01)
	comp, err := Rg2Compwise(c)
	require.NoError(Te, err)
	assert.InDelta(Te, rg2, comp[0], 1e-12)
	assert.Equal(Te, 0.0, comp[1])
	assert.Equal(Te, 0.0, comp[2])
	_, err = Rg2(v3.Zeros(0))
	assert.True(Te, errors.Is(err, ErrInvalidInput))
}

func TestEndToEndAndCOM(Te *testing.T) {
	c, err := v3.NewMatrix([]float64{0, 0, 0, 5, 5, 5, 2, 2, 0})
	require.NoError(Te, err)
	e2e, err := EndToEndDistance(c)
	require.NoError(Te, err)
	assert.InDelta(Te, 2*math.Sqrt2, e2e, 1e-12)
	com, err := CenterOfMass(c, []float64{1, 0, 1})
	require.NoError(Te, err)
	assert.InDeltaSlice(Te, []float64{1, 1, 0}, com[:], 1e-12)
	_, err = CenterOfMass(c, []float64{1, 1})
	assert.Error(Te, err)
	_, err = EndToEndDistance(v3.Zeros(1))
	assert.Error(Te, err)
}

func TestMinImage(Te *testing.T) {
	box := [3]float64{10, 10, 10}
	d := MinImage([3]float64{9, 0, -6}, box)
	assert.InDeltaSlice(Te, []float64{-1, 0, 4}, d[:], 1e-12)
	assert.InDelta(Te, 2.0, MinImageDistance([3]float64{1, 5, 5}, [3]float64{9, 5, 5}, box), 1e-12)
	d = MinImage([3]float64{9, 0, 0}, [3]float64{0, 10, 10})
	assert.Equal(Te, 9.0, d[0], "non periodic axes should not be wrapped")
}

func TestRDF(Te *testing.T) {
	c, err := v3.NewMatrix([]float64{0.5, 0, 0, 9.5, 0, 0})
	require.NoError(Te, err)
	box := [3]float64{10, 10, 10}
	g, err := RDF(c, box, []float64{0.5, 1.5, 2.5})
	require.NoError(Te, err)
	shell := 4.0 / 3.0 * math.Pi * (1.5*1.5*1.5 - 0.5*0.5*0.5)
	assert.InDelta(Te, 1000/shell, g[0], 1e-9)
	assert.Equal(Te, 0.0, g[1])
	_, err = RDF(c, box, []float64{1, 0.5})
	assert.True(Te, errors.Is(err, ErrInvalidInput))
	_, err = RDF(c, [3]float64{10, 0, 10}, []float64{0.5, 1.5})
	assert.True(Te, errors.Is(err, ErrInvalidInput))
}

func TestObservableByName(Te *testing.T) {
	c, err := v3.NewMatrix([]float64{0, 0, 0, 1, 0, 0, 2, 0, 0})
	require.NoError(Te, err)
	for _, name := range ObservableNames() {
		args := []float64{}
		if name == "rdf" {
			args = []float64{3, 6, 10, 10, 10}
		}
		o, err := ObservableByName(name, args...)
		require.NoError(Te, err, name)
		dst := make([]float64, Size(o.Shape()))
		require.NoError(Te, o.Eval(c, dst), name)
	}
	o, err := ObservableByName("p2x", 0, 1)
	require.NoError(Te, err)
	dst := make([]float64, 1)
	require.NoError(Te, o.Eval(c, dst))
	assert.Equal(Te, 1.0, dst[0])
	o, err = ObservableByName("RG2XYZ")
	require.NoError(Te, err)
	assert.Equal(Te, []int{3}, o.Shape())
	_, err = ObservableByName("nope")
	assert.True(Te, errors.Is(err, ErrInvalidInput))
	_, err = ObservableByName("rdf", 1)
	assert.Error(Te, err)
}
