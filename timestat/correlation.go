/*
 * correlation.go, part of trajstat.
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

// Package timestat implements statistics on time series obtained from trajectories:
// FFT-based auto and cross correlation functions, the integrated autocorrelation time
// and the standard error of the mean of serially correlated data, and the
// mean squared displacement.
package timestat

import (
	"math"
	"math/cmplx"

	"github.com/rmera/trajstat"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// NextRegular returns the smallest 5-smooth number (a number of the form 2^i 3^j 5^k)
// that is equal or larger than target. The FFT is fast for those lengths.
func NextRegular(target int) int {
	if target <= 6 {
		return target
	}
	if target&(target-1) == 0 {
		return target
	}
	match := math.MaxInt
	for p5 := 1; ; p5 *= 5 {
		if p5 >= target {
			match = min(match, p5)
			break
		}
		for p35 := p5; ; p35 *= 3 {
			if p35 >= target {
				match = min(match, p35)
				break
			}
			N := p35
			for N < target {
				N *= 2
			}
			if N == target {
				return N
			}
			match = min(match, N)
		}
	}
	return match
}

func checkSeries(series []float64, caller string) error {
	if len(series) < 2 {
		return trajstat.Errorf(trajstat.ErrInvalidInput, caller, "at least 2 values needed, %d given", len(series))
	}
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return trajstat.Errorf(trajstat.ErrInvalidInput, caller, "non-finite value %v at position %d", v, i)
		}
	}
	return nil
}

func constant(series []float64) bool {
	for _, v := range series[1:] {
		if v != series[0] {
			return false
		}
	}
	return true
}

// correlate returns the unbiased correlation sum_t a[t+k]b[t]/(N-k) for k in [0,N).
// If b is nil, the autocorrelation of a is computed. The series are zero-padded to
// a regular length of at least 2N+1, so there is no wrap-around.
func correlate(a, b []float64) []float64 {
	n := len(a)
	ft := fourier.NewFFT(NextRegular(2*n + 1))
	pad := make([]float64, ft.Len())
	copy(pad, a)
	ca := ft.Coefficients(nil, pad)
	if b == nil {
		for i, v := range ca {
			ca[i] = v * cmplx.Conj(v)
		}
	} else {
		clear(pad)
		copy(pad, b)
		cb := ft.Coefficients(nil, pad)
		for i, v := range cb {
			ca[i] *= cmplx.Conj(v)
		}
	}
	seq := ft.Sequence(pad, ca)
	ret := make([]float64, n)
	//the transform is not normalized
	scale := 1 / float64(ft.Len())
	for k := range ret {
		ret[k] = seq[k] * scale / float64(n-k)
	}
	return ret
}

func centered(series []float64) ([]float64, float64) {
	mean := stat.Mean(series, nil)
	ret := make([]float64, len(series))
	for i, v := range series {
		ret[i] = v - mean
	}
	return ret, mean
}

func truncate(c []float64, O *Options) []float64 {
	if O.MaxLag() >= 0 && O.MaxLag()+1 < len(c) {
		return c[:O.MaxLag()+1]
	}
	return c
}

// Autocorrelation returns the autocorrelation function of series, which is not modified.
// The mean of the series is subtracted, and the value at lag k is divided by N-k, the
// number of terms that contribute to it. If normalization is requested (the default) the
// function is divided by its value at lag 0, so the first element is exactly 1.
// The returned slice has N elements, or MaxLag+1 if that is smaller.
func Autocorrelation(series []float64, opts ...*Options) ([]float64, error) {
	O := getOptions(opts)
	if err := checkSeries(series, "Autocorrelation"); err != nil {
		return nil, err
	}
	if O.Normalize() && constant(series) {
		return nil, trajstat.NewError(trajstat.ErrDegenerateSeries, "the series has zero variance, the ACF can't be normalized", "Autocorrelation")
	}
	c, _ := centered(series)
	acf := correlate(c, nil)
	if O.Normalize() {
		c0 := acf[0]
		if c0 <= 0 {
			return nil, trajstat.NewError(trajstat.ErrDegenerateSeries, "the series has zero variance, the ACF can't be normalized", "Autocorrelation")
		}
		for i := range acf {
			acf[i] /= c0
		}
	}
	return truncate(acf, O), nil
}

// CrossCorrelation returns the cross correlation function of a and b, which must have the
// same length: sum_t (a[t+k]-<a>)(b[t]-<b>)/(N-k). If normalization is requested, the
// function is divided by the product of the (population) standard deviations of both series.
func CrossCorrelation(a, b []float64, opts ...*Options) ([]float64, error) {
	O := getOptions(opts)
	if err := checkSeries(a, "CrossCorrelation"); err != nil {
		return nil, err
	}
	if err := checkSeries(b, "CrossCorrelation"); err != nil {
		return nil, err
	}
	if len(a) != len(b) {
		return nil, trajstat.Errorf(trajstat.ErrInvalidInput, "CrossCorrelation", "series of different lengths, %d and %d", len(a), len(b))
	}
	if O.Normalize() && (constant(a) || constant(b)) {
		return nil, trajstat.NewError(trajstat.ErrDegenerateSeries, "a series has zero variance, the correlation can't be normalized", "CrossCorrelation")
	}
	ca, _ := centered(a)
	cb, _ := centered(b)
	cc := correlate(ca, cb)
	if O.Normalize() {
		norm := math.Sqrt(stat.PopVariance(a, nil) * stat.PopVariance(b, nil))
		for i := range cc {
			cc[i] /= norm
		}
	}
	return truncate(cc, O), nil
}
