/*
 * tsplot.go, part of trajstat.
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

// Package tsplot draws time series, such as observables or their
// autocorrelation functions, as line plots saved to image files.
package tsplot

import (
	"fmt"

	"github.com/rmera/trajstat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Default size of the saved plots.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// Series is one line of a plot. If X is nil, the index of each value in Y is used.
type Series struct {
	Name string
	X    []float64
	Y    []float64
}

func (S Series) xys() (plotter.XYs, error) {
	if len(S.Y) == 0 {
		return nil, trajstat.Errorf(trajstat.ErrInvalidInput, "xys", "empty series %q", S.Name)
	}
	if S.X != nil && len(S.X) != len(S.Y) {
		return nil, trajstat.Errorf(trajstat.ErrInvalidInput, "xys", "series %q has %d x and %d y values", S.Name, len(S.X), len(S.Y))
	}
	pts := make(plotter.XYs, len(S.Y))
	for i, v := range S.Y {
		pts[i].Y = v
		pts[i].X = float64(i)
		if S.X != nil {
			pts[i].X = S.X[i]
		}
	}
	return pts, nil
}

// Lines returns a plot with a line, and a legend entry if named, for each series.
func Lines(title, xlabel, ylabel string, series ...Series) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, trajstat.NewError(trajstat.ErrInvalidInput, "nothing to plot", "Lines")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	for i, s := range series {
		pts, err := s.xys()
		if err != nil {
			return nil, trajstat.ErrDecorate(err, "Lines")
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Name, err)
		}
		l.Color = plotutil.Color(i)
		l.Dashes = plotutil.Dashes(i)
		p.Add(l)
		if s.Name != "" {
			p.Legend.Add(s.Name, l)
		}
	}
	return p, nil
}

// Save plots the series and saves the plot to filename. The image
// format is taken from the extension of the name (png, svg, pdf...).
func Save(filename, title, xlabel, ylabel string, series ...Series) error {
	p, err := Lines(title, xlabel, ylabel, series...)
	if err != nil {
		return trajstat.ErrDecorate(err, "Save")
	}
	return p.Save(Width, Height, filename)
}

// ACF saves a plot of the normalized autocorrelation function acf, as a function
// of the lag, with a zero line for reference.
func ACF(filename, title string, acf []float64) error {
	zero := Series{X: []float64{0, float64(max(len(acf)-1, 1))}, Y: []float64{0, 0}}
	err := Save(filename, title, "lag", "C(lag)", Series{Name: "ACF", Y: acf}, zero)
	return trajstat.ErrDecorate(err, "ACF")
}
