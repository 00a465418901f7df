/*
 * estimate.go, part of trajstat.
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
	"fmt"
	"math"

	"github.com/rmera/trajstat"
	"gonum.org/v1/gonum/stat"
)

// Estimate is the result of the error analysis of a time series.
type Estimate struct {
	Mean   float64
	StdErr float64 //standard error of the mean, corrected for serial correlation
	TauInt float64 //integrated autocorrelation time, in units of the sampling interval
	NEff   float64 //effective number of independent samples
	N      int
}

func (E Estimate) String() string {
	return fmt.Sprintf("%g +/- %g (tau_int: %.3f, N_eff: %.1f, N: %d)", E.Mean, E.StdErr, E.TauInt, E.NEff, E.N)
}

// TauInt returns the integrated autocorrelation time 0.5+sum(acf[1:kmax]) for the normalized
// autocorrelation function acf. If window is positive, kmax is the first lag k for which
// k >= window*tau, tau being the running sum. Otherwise kmax is len(acf).
func TauInt(acf []float64, window float64) float64 {
	tau := 0.5
	for k := 1; k < len(acf); k++ {
		if window > 0 && float64(k) >= window*tau {
			break
		}
		tau += acf[k]
	}
	return tau
}

// CalcError returns the mean of series and its standard error, taking into account
// the serial correlation of the data through the integrated autocorrelation time, tau.
// If tau > 0.5, the variance of the series is divided by the effective number of
// samples, N/(2 tau), otherwise by N. Only the Window option is used, the full
// normalized ACF is always employed. A constant series is an ErrDegenerateSeries error.
func CalcError(series []float64, opts ...*Options) (Estimate, error) {
	O := getOptions(opts)
	acf, err := Autocorrelation(series)
	if err != nil {
		return Estimate{}, trajstat.ErrDecorate(err, "CalcError")
	}
	n := len(series)
	mean, variance := stat.PopMeanVariance(series, nil)
	tau := TauInt(acf, O.Window())
	E := Estimate{Mean: mean, TauInt: tau, N: n, NEff: float64(n)}
	if tau > 0.5 {
		E.NEff = float64(n) / (2 * tau)
	}
	E.StdErr = math.Sqrt(variance / E.NEff)
	return E, nil
}
