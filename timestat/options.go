/*
 * options.go, part of trajstat.
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

// Options contains the options for the correlation and error estimation functions.
type Options struct {
	maxLag    int     //largest lag returned. Negative means all lags.
	normalize bool    //divide the correlation function by its value at lag 0
	window    float64 //cutoff factor for the integrated autocorrelation time. <=0 sums the whole ACF.
}

// DefaultOptions returns options that give the full, normalized correlation function
// and the automatic windowing cutoff of 6 times the running integrated autocorrelation time.
func DefaultOptions() *Options {
	return &Options{maxLag: -1, normalize: true, window: 6}
}

// MaxLag returns the largest lag for which the correlation function is returned,
// and sets it to a new value, if given. A negative value means all lags.
func (O *Options) MaxLag(n ...int) int {
	if len(n) > 0 {
		O.maxLag = n[0]
	}
	return O.maxLag
}

// Normalize returns whether correlation functions are normalized,
// and sets it to a new value, if given.
func (O *Options) Normalize(b ...bool) bool {
	if len(b) > 0 {
		O.normalize = b[0]
	}
	return O.normalize
}

// Window returns the windowing factor used to truncate the sum that gives the integrated
// autocorrelation time, and sets it to a new value, if given. The sum stops at the first lag k with
// k >= Window*tau, where tau is the running value. A value of 0 or less disables the cutoff,
// so the whole ACF is summed.
func (O *Options) Window(w ...float64) float64 {
	if len(w) > 0 {
		O.window = w[0]
	}
	return O.window
}

func getOptions(opts []*Options) *Options {
	if len(opts) > 0 && opts[0] != nil {
		return opts[0]
	}
	return DefaultOptions()
}
