/*
 * msd.go, part of trajstat.
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
	"github.com/rmera/trajstat"
	v3 "github.com/rmera/trajstat/v3"
)

// MSD returns the mean squared displacement of one particle, whose position at
// each time is a row of positions, for every lag from 0 to N-1.
// It uses the FFT algorithm: MSD(m) = S1(m) - 2 S2(m), where S2 is the sum over the
// 3 axes of the (unbiased, not normalized) autocorrelation of the positions.
func MSD(positions *v3.Matrix) ([]float64, error) {
	n := positions.NVecs()
	if n < 2 {
		return nil, trajstat.Errorf(trajstat.ErrInvalidInput, "MSD", "at least 2 frames needed, %d given", n)
	}
	s2 := make([]float64, n)
	axis := make([]float64, n)
	for j := 0; j < 3; j++ {
		for i := range axis {
			axis[i] = positions.At(i, j)
		}
		if err := checkSeries(axis, "MSD"); err != nil {
			return nil, err
		}
		c := correlate(axis, nil)
		for i, v := range c {
			s2[i] += v
		}
	}
	//squared norms, with a zero at the end, so d[n] and d[-1] are both 0
	d := make([]float64, n+1)
	var q float64
	for i := 0; i < n; i++ {
		v := positions.Vec(i)
		d[i] = v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
		q += 2 * d[i]
	}
	msd := make([]float64, n)
	for m := 0; m < n; m++ {
		if m > 0 {
			q -= d[m-1] + d[n-m]
		}
		msd[m] = q/float64(n-m) - 2*s2[m]
	}
	msd[0] = 0
	return msd, nil
}

// MSDAverage returns the MSD averaged over several particles, each given as its
// own trajectory. All the trajectories must have the same number of frames.
func MSDAverage(trajs []*v3.Matrix) ([]float64, error) {
	if len(trajs) == 0 {
		return nil, trajstat.NewError(trajstat.ErrInvalidInput, "no trajectories given", "MSDAverage")
	}
	var ret []float64
	for i, t := range trajs {
		m, err := MSD(t)
		if err != nil {
			return nil, trajstat.ErrDecorate(err, "MSDAverage")
		}
		if ret == nil {
			ret = m
			continue
		}
		if len(m) != len(ret) {
			return nil, trajstat.Errorf(trajstat.ErrInvalidInput, "MSDAverage", "trajectory %d has %d frames, expected %d", i, len(m), len(ret))
		}
		for j, v := range m {
			ret[j] += v
		}
	}
	for j := range ret {
		ret[j] /= float64(len(trajs))
	}
	return ret, nil
}
