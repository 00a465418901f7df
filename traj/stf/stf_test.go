/*
 * stf_test.go, part of trajstat.
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

package stf

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/trajstat"
	"github.com/rmera/trajstat/traj/mem"
	v3 "github.com/rmera/trajstat/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrames(Te *testing.T) []*v3.Matrix {
	a, err := v3.NewMatrix([]float64{1.25, 2.5, -3.75, 10, 11.5, 12.125, 0, 0, 0})
	require.NoError(Te, err)
	b, err := v3.NewMatrix([]float64{1.5, 2.75, -4, 10.5, 11, 12, 0.01, -0.02, 0.03})
	require.NoError(Te, err)
	return []*v3.Matrix{a, b}
}

func TestSTFRoundTrip(Te *testing.T) {
	for _, name := range []string{"test.stf", "test.stz", "test.stl", "test.str"} {
		Te.Run(name, func(Te *testing.T) {
			fname := filepath.Join(Te.TempDir(), name)
			frames := testFrames(Te)
			W, err := NewWriter(fname, 3, map[string]string{"prec": "3", "fields": FieldsIDImages, "title": "test"})
			require.NoError(Te, err)
			ids := []int{7, 3, 5}
			images := [][3]int{{0, 0, 1}, {-1, 0, 0}, {2, 2, 2}}
			box := []float64{10, 0, 0, 0, 20, 0, 0, 0, 30}
			for _, f := range frames {
				require.NoError(Te, W.WNext(f, ids, images, box))
			}
			require.NoError(Te, W.Close())

			R, header, err := New(fname)
			require.NoError(Te, err)
			assert.Equal(Te, "test", header["title"])
			assert.Equal(Te, "3", header["prec"])
			assert.True(Te, R.HasIDs())
			assert.True(Te, R.HasImages())
			require.Equal(Te, 3, R.Len())
			c := v3.Zeros(3)
			gotIDs := make([]int, 3)
			gotImages := make([][3]int, 3)
			gotBox := make([]float64, 9)
			for _, f := range frames {
				require.NoError(Te, R.NextFull(c, gotIDs, gotImages, gotBox))
				for i := 0; i < 3; i++ {
					want, got := f.Vec(i), c.Vec(i)
					for j := range want {
						assert.InDelta(Te, want[j], got[j], 1e-3)
					}
				}
				assert.Equal(Te, ids, gotIDs)
				assert.Equal(Te, images, gotImages)
				assert.InDeltaSlice(Te, box, gotBox, 1e-6)
			}
			err = R.Next(c)
			assert.True(Te, IsLastFrame(err), "expected the end of the trajectory, got %v", err)
			assert.False(Te, R.Readable())
		})
	}
}

func TestSTFPositionsOnly(Te *testing.T) {
	fname := filepath.Join(Te.TempDir(), "pos.stf")
	W, err := NewWriter(fname, 3, nil)
	require.NoError(Te, err)
	frames := testFrames(Te)
	require.NoError(Te, W.WNext(frames[0], nil, nil))
	require.NoError(Te, W.Close())
	R, header, err := New(fname)
	require.NoError(Te, err)
	defer R.Close()
	assert.Equal(Te, "2", header["prec"])
	assert.False(Te, R.HasIDs())
	c := v3.Zeros(3)
	box := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}
	require.NoError(Te, R.Next(c, box))
	//12.125 is rounded to even at 2 decimals.
	assert.InDelta(Te, 12.12, c.At(1, 2), 1e-9)
	//no box in the file, so the slice is untouched.
	assert.Equal(Te, 1.0, box[0])
}

func TestSTFLoadSave(Te *testing.T) {
	dir := Te.TempDir()
	T := mem.New(2, [3]float64{10, 10, 10})
	p0, _ := v3.NewMatrix([]float64{9, 0, 0, 1, 0, 0})
	p1, _ := v3.NewMatrix([]float64{1, 0, 0, 9, 0, 0})
	require.NoError(Te, T.Append(p0, []int{2, 1}, [][3]int{{0, 0, 0}, {0, 0, 0}}))
	require.NoError(Te, T.Append(p1, []int{2, 1}, [][3]int{{1, 0, 0}, {-1, 0, 0}}))
	fname := filepath.Join(dir, "saved.stf")
	require.NoError(Te, Save(fname, T, 3))

	L, err := Load(fname)
	require.NoError(Te, err)
	assert.Equal(Te, 2, L.NFrames())
	assert.Equal(Te, 2, L.Len())
	assert.Equal(Te, [3]float64{10, 10, 10}, L.Box())
	dst := v3.Zeros(2)
	require.NoError(Te, L.Positions(1, false, dst))
	//particle 1 is stored second, at 9 with image -1.
	assert.InDelta(Te, -1.0, dst.At(0, 0), 1e-9)
	assert.InDelta(Te, 11.0, dst.At(1, 0), 1e-9)
	require.NoError(Te, L.Positions(1, true, dst))
	assert.InDelta(Te, 9.0, dst.At(0, 0), 1e-9)
}

func TestSTFErrors(Te *testing.T) {
	dir := Te.TempDir()
	_, err := NewWriter(filepath.Join(dir, "a.stf"), 3, map[string]string{"prec": "x"})
	assert.ErrorIs(Te, err, trajstat.ErrInvalidInput)
	_, err = NewWriter(filepath.Join(dir, "b.stf"), 3, map[string]string{"fields": "pos,vel"})
	assert.ErrorIs(Te, err, trajstat.ErrInvalidInput)

	W, err := NewWriter(filepath.Join(dir, "c.stf"), 2, map[string]string{"fields": FieldsID})
	require.NoError(Te, err)
	assert.Error(Te, W.WNext(v3.Zeros(3), []int{1, 2, 3}, nil), "wrong number of particles")
	assert.Error(Te, W.WNext(v3.Zeros(2), nil, nil), "ids are required")
	require.NoError(Te, W.Close())
	assert.Error(Te, W.WNext(v3.Zeros(2), []int{1, 2}, nil), "closed writer")

	//a gzip file with a malformed particle line
	bad := filepath.Join(dir, "bad.stz")
	f, err := os.Create(bad)
	require.NoError(Te, err)
	g := gzip.NewWriter(f)
	_, err = g.Write([]byte("prec=2\n** 2\n100 200 300\n100 abc 300\n*\n"))
	require.NoError(Te, err)
	require.NoError(Te, g.Close())
	require.NoError(Te, f.Close())
	R, _, err := New(bad)
	require.NoError(Te, err)
	defer R.Close()
	err = R.Next(v3.Zeros(2))
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, trajstat.ErrInvalidInput))
	assert.False(Te, IsLastFrame(err))

	_, err = Load(filepath.Join(dir, "missing.stf"))
	assert.ErrorIs(Te, err, trajstat.ErrInvalidInput)
}
