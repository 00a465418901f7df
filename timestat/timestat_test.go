/*
 * timestat_test.go, part of trajstat.
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

package timestat

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/rmera/trajstat"
	v3 "github.com/rmera/trajstat/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func smooth5(x int) bool {
	for _, p := range []int{2, 3, 5} {
		for x%p == 0 {
			x /= p
		}
	}
	return x == 1
}

func TestNextRegular(Te *testing.T) {
	known := map[int]int{1: 1, 6: 6, 7: 8, 8: 8, 11: 12, 13: 15, 17: 18, 201: 216, 1000: 1000, 1025: 1080, 2188: 2250}
	for in, want := range known {
		assert.Equal(Te, want, NextRegular(in), "target %d", in)
	}
	for t := 7; t < 5000; t++ {
		r := NextRegular(t)
		require.GreaterOrEqual(Te, r, t)
		require.True(Te, smooth5(r), "%d is not 5-smooth", r)
		for x := t; x < r; x++ {
			require.False(Te, smooth5(x), "%d is 5-smooth and smaller than %d", x, r)
		}
	}
}

func normalSeries(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	ret := make([]float64, n)
	for i := range ret {
		ret[i] = r.NormFloat64()
	}
	return ret
}

// ar1 returns a series where each element is phi times the previous one plus normal noise.
func ar1(n int, phi float64, seed int64) []float64 {
	noise := normalSeries(n, seed)
	ret := make([]float64, n)
	ret[0] = noise[0]
	for i := 1; i < n; i++ {
		ret[i] = phi*ret[i-1] + noise[i]
	}
	return ret
}

// bruteACF computes the unbiased, not normalized autocorrelation directly.
func bruteACF(x []float64) []float64 {
	mean := stat.Mean(x, nil)
	n := len(x)
	ret := make([]float64, n)
	for k := 0; k < n; k++ {
		for t := 0; t+k < n; t++ {
			ret[k] += (x[t+k] - mean) * (x[t] - mean)
		}
		ret[k] /= float64(n - k)
	}
	return ret
}

func TestAutocorrelation(Te *testing.T) {
	for _, n := range []int{2, 3, 17, 100, 513} {
		x := normalSeries(n, int64(n))
		acf, err := Autocorrelation(x)
		require.NoError(Te, err)
		assert.Len(Te, acf, n)
		assert.InDelta(Te, 1.0, acf[0], 1e-9, "ACF[0] must be 1 for N=%d", n)

		O := DefaultOptions()
		O.Normalize(false)
		raw, err := Autocorrelation(x, O)
		require.NoError(Te, err)
		assert.InDeltaSlice(Te, bruteACF(x), raw, 1e-9, "N=%d", n)
		assert.InDelta(Te, stat.PopVariance(x, nil), raw[0], 1e-9)
	}
	x := normalSeries(50, 3)
	O := DefaultOptions()
	O.MaxLag(10)
	acf, err := Autocorrelation(x, O)
	require.NoError(Te, err)
	assert.Len(Te, acf, 11)
	O.MaxLag(500)
	acf, err = Autocorrelation(x, O)
	require.NoError(Te, err)
	assert.Len(Te, acf, 50, "the ACF never has more than N elements")
	assert.Equal(Te, normalSeries(50, 3), x, "the series should not be modified")
}

func TestAutocorrelationErrors(Te *testing.T) {
	_, err := Autocorrelation([]float64{1})
	assert.True(Te, errors.Is(err, trajstat.ErrInvalidInput))
	_, err = Autocorrelation(nil)
	assert.True(Te, errors.Is(err, trajstat.ErrInvalidInput))
	_, err = Autocorrelation([]float64{1, math.NaN(), 3})
	assert.True(Te, errors.Is(err, trajstat.ErrInvalidInput))
	_, err = Autocorrelation([]float64{1, math.Inf(1), 3})
	assert.True(Te, errors.Is(err, trajstat.ErrInvalidInput))
	_, err = Autocorrelation([]float64{0.1, 0.1, 0.1, 0.1})
	assert.True(Te, errors.Is(err, trajstat.ErrDegenerateSeries))
	O := DefaultOptions()
	O.Normalize(false)
	acf, err := Autocorrelation([]float64{2, 2, 2}, O)
	require.NoError(Te, err, "a constant series is only a problem when normalizing")
	assert.InDeltaSlice(Te, []float64{0, 0, 0}, acf, 1e-12)
}

func TestCrossCorrelation(Te *testing.T) {
	x := normalSeries(200, 8)
	acf, err := Autocorrelation(x)
	require.NoError(Te, err)
	cc, err := CrossCorrelation(x, x)
	require.NoError(Te, err)
	assert.InDeltaSlice(Te, acf, cc, 1e-9)

	//b is a shifted by 3 steps, so the correlation peaks at lag 3
	a := normalSeries(300, 9)
	b := make([]float64, len(a))
	copy(b, a[3:])
	cc, err = CrossCorrelation(a, b)
	require.NoError(Te, err)
	assert.Greater(Te, cc[3], 0.9)
	_, err = CrossCorrelation(a, b[:10])
	assert.True(Te, errors.Is(err, trajstat.ErrInvalidInput))
	_, err = CrossCorrelation(a, make([]float64, len(a)))
	assert.True(Te, errors.Is(err, trajstat.ErrDegenerateSeries))
}

func TestTauInt(Te *testing.T) {
	acf := make([]float64, 30)
	for i := range acf {
		acf[i] = math.Pow(0.5, float64(i))
	}
	assert.InDelta(Te, 1.5, TauInt(acf, 0), 1e-8)
	assert.InDelta(Te, 1.49609375, TauInt(acf, 6), 1e-12)
	assert.Equal(Te, 0.5, TauInt([]float64{1, 0, 0, 0}, 6))
	assert.Equal(Te, 0.5, TauInt([]float64{1}, 0))
}

func TestCalcErrorIID(Te *testing.T) {
	n := 10000
	x := normalSeries(n, 42)
	E, err := CalcError(x)
	require.NoError(Te, err)
	mean, variance := stat.PopMeanVariance(x, nil)
	naive := math.Sqrt(variance / float64(n))
	assert.Equal(Te, mean, E.Mean)
	assert.Equal(Te, n, E.N)
	assert.InDelta(Te, 0.5, E.TauInt, 0.2)
	assert.True(Te, E.StdErr > naive/2 && E.StdErr < 2*naive, "stderr %g, naive %g", E.StdErr, naive)

	O := DefaultOptions()
	O.Window(0)
	_, err = CalcError(x, O)
	require.NoError(Te, err)
}

func TestCalcErrorCorrelated(Te *testing.T) {
	n := 50000
	phi := 0.9
	x := ar1(n, phi, 7)
	E, err := CalcError(x)
	require.NoError(Te, err)
	//exact value for an AR(1) process
	tau := 0.5 * (1 + phi) / (1 - phi)
	assert.InDelta(Te, tau, E.TauInt, 0.3*tau)
	assert.InDelta(Te, float64(n)/(2*E.TauInt), E.NEff, 1e-6)
	_, variance := stat.PopMeanVariance(x, nil)
	assert.Greater(Te, E.StdErr, 3*math.Sqrt(variance/float64(n)))
	assert.Contains(Te, E.String(), "tau_int")
}

func TestCalcErrorErrors(Te *testing.T) {
	_, err := CalcError([]float64{3})
	assert.True(Te, errors.Is(err, trajstat.ErrInvalidInput))
	_, err = CalcError([]float64{3, 3, 3, 3})
	assert.True(Te, errors.Is(err, trajstat.ErrDegenerateSeries), "a constant series should not give a zero error")
}

func TestMSD(Te *testing.T) {
	n := 64
	pos := v3.Zeros(n)
	for i := 0; i < n; i++ {
		t := float64(i)
		pos.SetVec(i, [3]float64{t, 2 * t, 1})
	}
	msd, err := MSD(pos)
	require.NoError(Te, err)
	require.Len(Te, msd, n)
	for m, v := range msd {
		assert.InDelta(Te, 5*float64(m*m), v, 1e-6, "lag %d", m)
	}
	_, err = MSD(v3.Zeros(1))
	assert.True(Te, errors.Is(err, trajstat.ErrInvalidInput))

	//two particles with the same motion give the same average.
	avg, err := MSDAverage([]*v3.Matrix{pos, pos})
	require.NoError(Te, err)
	assert.InDeltaSlice(Te, msd, avg, 1e-9)
	_, err = MSDAverage([]*v3.Matrix{pos, v3.Zeros(3)})
	assert.True(Te, errors.Is(err, trajstat.ErrInvalidInput))
	_, err = MSDAverage(nil)
	assert.Error(Te, err)
}
