/*
 * tsplot_test.go, part of trajstat.
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

package tsplot

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/trajstat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestACFPlot(Te *testing.T) {
	acf := make([]float64, 100)
	for i := range acf {
		acf[i] = math.Exp(-float64(i) / 10)
	}
	name := filepath.Join(Te.TempDir(), "acf.png")
	require.NoError(Te, ACF(name, "exponential", acf))
	info, err := os.Stat(name)
	require.NoError(Te, err)
	assert.Greater(Te, info.Size(), int64(0))
}

func TestLinesErrors(Te *testing.T) {
	_, err := Lines("t", "x", "y")
	assert.ErrorIs(Te, err, trajstat.ErrInvalidInput)
	_, err = Lines("t", "x", "y", Series{Name: "a", X: []float64{1, 2}, Y: []float64{1}})
	assert.ErrorIs(Te, err, trajstat.ErrInvalidInput)
	p, err := Lines("t", "x", "y", Series{Name: "a", X: []float64{1, 2}, Y: []float64{3, 4}}, Series{Y: []float64{1, 2, 3}})
	require.NoError(Te, err)
	assert.Equal(Te, "x", p.X.Label.Text)
}
