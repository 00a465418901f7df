/*
 * histo.go, part of trajstat.
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

// Package histo implements simple histograms with fixed bin dividers, used
// for distribution-like observables such as the radial distribution function.
package histo

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Data is a histogram. Bin i counts the values v with dividers[i] <= v < dividers[i+1].
// Values outside [dividers[0], dividers[last]) are counted in the total but not binned.
type Data struct {
	id         int
	normalized bool
	total      int
	dividers   []float64
	histo      []float64
}

type jsonData struct {
	ID         int       `json:"id"`
	Normalized bool      `json:"normalized"`
	Total      int       `json:"total"`
	Dividers   []float64 `json:"dividers"`
	Histo      []float64 `json:"histo"`
}

func (D *Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonData{
		ID:         D.id,
		Normalized: D.normalized,
		Total:      D.total,
		Dividers:   D.dividers,
		Histo:      D.histo,
	})
}

func (D *Data) UnmarshalJSON(b []byte) error {
	var a jsonData
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	if len(a.Dividers) < 2 || len(a.Histo) != len(a.Dividers)-1 {
		return fmt.Errorf("histo: %d dividers and %d bins in JSON histogram", len(a.Dividers), len(a.Histo))
	}
	D.id = a.ID
	D.normalized = a.Normalized
	D.total = a.Total
	D.dividers = a.Dividers
	D.histo = a.Histo
	return nil
}

// NewData returns a new histogram with the given dividers, filled with rawdata,
// which can be nil. rawdata is not modified. If an ID is given, it is set, otherwise
// the ID is -1. NewData panics if fewer than 2 dividers are given.
func NewData(dividers []float64, rawdata []float64, ID ...int) *Data {
	if len(dividers) < 2 {
		panic("histo.NewData: at least 2 dividers are needed")
	}
	d := &Data{id: -1, dividers: append([]float64(nil), dividers...)}
	if len(ID) > 0 {
		d.id = ID[0]
	}
	d.histo = make([]float64, len(dividers)-1)
	if rawdata != nil {
		d.ReHisto(rawdata)
	}
	return d
}

// ID returns the ID of the histogram
func (D *Data) ID() int {
	return D.id
}

// Total returns the number of values given to the histogram.
func (D *Data) Total() int {
	return D.total
}

// String returns a 3-line representation of the histogram.
func (D *Data) String() string {
	ret := fmt.Sprintf("ID: %d, Normalized: %v, TotalData: %d\n", D.id, D.normalized, D.total)
	d := make([]string, 0, len(D.histo))
	h := make([]string, 0, len(D.histo))
	for i, v := range D.histo {
		d = append(d, fmt.Sprintf("%4.2f-%4.2f", D.dividers[i], D.dividers[i+1]))
		h = append(h, fmt.Sprintf("%9.3f", v))
	}
	return ret + fmt.Sprintf("%s\n%s", strings.Join(d, " "), strings.Join(h, " "))
}

// AddData adds the given values to the histogram.
func (D *Data) AddData(point ...float64) {
	norma := D.normalized
	if norma {
		D.UnNormalize()
	}
	last := len(D.dividers) - 1
	for _, v := range point {
		if math.IsNaN(v) || v < D.dividers[0] || v >= D.dividers[last] {
			continue
		}
		//index of the first divider larger than v
		j := sort.Search(len(D.dividers), func(i int) bool { return D.dividers[i] > v })
		D.histo[j-1]++
	}
	D.total += len(point)
	if norma {
		D.Normalize()
	}
}

// ReHisto discards the current counts and fills the histogram with rawdata.
func (D *Data) ReHisto(rawdata []float64) {
	D.normalized = false
	D.total = len(rawdata)
	data := make([]float64, 0, len(rawdata))
	last := D.dividers[len(D.dividers)-1]
	for _, v := range rawdata {
		//stat.Histogram panics on values out of range.
		if v >= D.dividers[0] && v < last {
			data = append(data, v)
		}
	}
	sort.Float64s(data)
	D.histo = stat.Histogram(D.histo, D.dividers, data, nil)
}

// Normalized returns true if the histogram is normalized
func (D *Data) Normalized() bool {
	return D.normalized
}

// Normalize divides every bin by the total number of values given.
func (D *Data) Normalize() {
	D.normaunnorma(true)
}

// UnNormalize reverts Normalize.
func (D *Data) UnNormalize() {
	D.normaunnorma(false)
}

func (D *Data) normaunnorma(normalize bool) {
	if D.total <= 0 || D.normalized == normalize {
		return
	}
	n := float64(D.total)
	if normalize {
		n = 1 / n
	}
	D.normalized = normalize
	floats.Scale(n, D.histo)
}

// CopyDividers returns a copy of the dividers of the histogram. If dest
// is given, and has enough room, it is used.
func (D *Data) CopyDividers(dest ...[]float64) []float64 {
	d := getCopySlice(len(D.dividers), dest...)
	copy(d, D.dividers)
	return d
}

// Copy returns a copy of the bins of the histogram. If dest
// is given, and has enough room, it is used.
func (D *Data) Copy(dest ...[]float64) []float64 {
	d := getCopySlice(len(D.histo), dest...)
	copy(d, D.histo)
	return d
}

// View returns the bins of the histogram, not a copy.
func (D *Data) View() []float64 {
	return D.histo
}

// Sum returns the sum of all bins.
func (D *Data) Sum() float64 {
	return floats.Sum(D.histo)
}

// Merge adds the counts of o to the receiver. Both must have the same dividers
// and be un-normalized.
func (D *Data) Merge(o *Data) error {
	if !floats.Equal(D.dividers, o.dividers) {
		return fmt.Errorf("histo.Data.Merge: dividers don't match")
	}
	if D.normalized || o.normalized {
		return fmt.Errorf("histo.Data.Merge: can't merge normalized histograms")
	}
	floats.Add(D.histo, o.histo)
	D.total += o.total
	return nil
}

func getCopySlice(N int, dest ...[]float64) []float64 {
	if len(dest) > 0 && len(dest[0]) >= N {
		return dest[0][:N]
	}
	return make([]float64, N)
}
