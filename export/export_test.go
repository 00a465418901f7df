/*
 * export_test.go, part of trajstat.
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

package export

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/trajstat"
	"github.com/rmera/trajstat/comm"
	"github.com/rmera/trajstat/parallel"
	v3 "github.com/rmera/trajstat/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultRoundTrip(Te *testing.T) {
	b := parallel.NewBuffer(4, 3)
	for i := range b.Data {
		b.Data[i] = float64(i) * 0.5
	}
	timesteps := []int{3, 7, 11, 15}
	path := filepath.Join(Te.TempDir(), "result.parquet")
	require.NoError(Te, WriteResult(path, b, timesteps))
	info, err := os.Stat(path)
	require.NoError(Te, err)
	assert.Greater(Te, info.Size(), int64(0))

	got, ts, err := ReadResult(path)
	require.NoError(Te, err)
	assert.Equal(Te, timesteps, ts)
	assert.Equal(Te, []int{4, 3}, got.Shape)
	assert.Equal(Te, b.Data, got.Data)
}

func TestRowsMismatch(Te *testing.T) {
	_, err := Rows(parallel.NewBuffer(2, 1), []int{0})
	assert.ErrorIs(Te, err, trajstat.ErrInvalidInput)
}

func TestEstimates(Te *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b := parallel.NewBuffer(2000, 2)
	for i := range b.Data {
		b.Data[i] = rng.NormFloat64()
	}
	est, err := Estimates(b)
	require.NoError(Te, err)
	require.Len(Te, est, 2)
	for _, e := range est {
		assert.Equal(Te, 2000, e.N)
		assert.InDelta(Te, 0, e.Mean, 0.15)
	}
	path := filepath.Join(Te.TempDir(), "errors.parquet")
	require.NoError(Te, WriteEstimates(path, est))
	got, err := ReadEstimates(path)
	require.NoError(Te, err)
	assert.Equal(Te, est, got)

	//a constant element is flagged, not fatal
	c := parallel.NewBuffer(10, 2)
	for j := 0; j < 10; j++ {
		c.Row(j)[0] = 3
		c.Row(j)[1] = float64(j % 3)
	}
	est, err = Estimates(c)
	require.NoError(Te, err)
	require.True(Te, est[0].Failed())
	assert.Contains(Te, est[0].Err, trajstat.ErrDegenerateSeries.Error())
	assert.Equal(Te, 3.0, est[0].Mean)
	assert.Equal(Te, 10, est[0].N)
	assert.True(Te, math.IsNaN(est[0].StdErr))
	assert.False(Te, est[1].Failed())

	//other failures still abort
	_, err = Estimates(parallel.NewBuffer(1, 1))
	assert.ErrorIs(Te, err, trajstat.ErrInvalidInput)
}

func TestEstimatesRDF(Te *testing.T) {
	rng := rand.New(rand.NewSource(11))
	frames := make([]*v3.Matrix, 20)
	for i := range frames {
		d := 1.1 + 0.8*rng.Float64()
		f, err := v3.NewMatrix([]float64{5, 5, 5, 5 + d, 5, 5, 5, 8.2, 5})
		require.NoError(Te, err)
		frames[i] = f
	}
	obs, err := trajstat.ObservableByName("rdf", 4, 8, 10, 10, 10)
	require.NoError(Te, err)
	res, err := parallel.RunLocal(context.Background(), 2, func(c comm.Communicator) (parallel.Gatherer, error) {
		return parallel.NewFrames(c, frames, obs), nil
	})
	require.NoError(Te, err)
	require.Equal(Te, []int{20, 8}, res.Shape)

	est, err := Estimates(res)
	require.NoError(Te, err)
	require.Len(Te, est, 8)
	//no pair is ever closer than 1 or in [2,3)
	for _, i := range []int{0, 1, 4, 5} {
		assert.True(Te, est[i].Failed(), "element %d", i)
		assert.Equal(Te, 0.0, est[i].Mean)
		assert.True(Te, math.IsNaN(est[i].TauInt))
	}
	//the first pair moves between the [1,1.5) and [1.5,2) shells
	for _, i := range []int{2, 3} {
		assert.False(Te, est[i].Failed(), "element %d", i)
		assert.Greater(Te, est[i].Mean, 0.0)
		assert.False(Te, math.IsNaN(est[i].StdErr))
	}

	path := filepath.Join(Te.TempDir(), "rdf.errors.parquet")
	require.NoError(Te, WriteEstimates(path, est))
	got, err := ReadEstimates(path)
	require.NoError(Te, err)
	require.Len(Te, got, len(est))
	for i := range est {
		assert.Equal(Te, est[i].Err, got[i].Err)
		assert.Equal(Te, est[i].N, got[i].N)
		assert.Equal(Te, math.IsNaN(est[i].StdErr), math.IsNaN(got[i].StdErr))
	}
}
