/*
 * export.go, part of trajstat.
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

// Package export writes the gathered results of a parallel run, and their
// error estimates, to Parquet files, and reads the results back.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/rmera/trajstat"
	"github.com/rmera/trajstat/parallel"
	"github.com/rmera/trajstat/timestat"
	"gonum.org/v1/gonum/stat"
)

// Row is one element of the observable evaluated at one timestep.
type Row struct {
	// Timestep is the trajectory frame the value was computed on
	Timestep int64 `parquet:"timestep,snappy"`

	// Index is the position of the element in the flattened (row-major) observable
	Index int32 `parquet:"index,snappy"`

	Value float64 `parquet:"value,snappy"`
}

// EstimateRow is the error analysis of the time series of one element of the observable.
type EstimateRow struct {
	Index  int32   `parquet:"index,snappy"`
	Mean   float64 `parquet:"mean,snappy"`
	StdErr float64 `parquet:"std_err,snappy"`
	TauInt float64 `parquet:"tau_int,snappy"`
	NEff   float64 `parquet:"n_eff,snappy"`
	N      int64   `parquet:"n,snappy"`
	Err    string  `parquet:"error,snappy"`
}

// ElementEstimate is the error analysis of one element of an observable.
// Err is empty unless the analysis of the element failed. In that case
// only Mean and N are meaningful, and StdErr, TauInt and NEff are NaN.
type ElementEstimate struct {
	timestat.Estimate
	Err string
}

// Failed returns true if the element could not be analyzed.
func (E ElementEstimate) Failed() bool { return E.Err != "" }

// Rows flattens the buffer b into rows. timesteps gives the frame of each row of b.
func Rows(b *parallel.Buffer, timesteps []int) ([]Row, error) {
	if len(timesteps) != b.Rows() {
		return nil, trajstat.Errorf(trajstat.ErrInvalidInput, "Rows", "%d timesteps for %d rows of results", len(timesteps), b.Rows())
	}
	n := b.RowSize()
	ret := make([]Row, 0, n*len(timesteps))
	for j, t := range timesteps {
		for i, v := range b.Row(j) {
			ret = append(ret, Row{Timestep: int64(t), Index: int32(i), Value: v})
		}
	}
	return ret, nil
}

func write[T any](path string, data []T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		_ = file.Close()
		return fmt.Errorf("failed to write data to parquet file %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to finish parquet file %s: %w", path, err)
	}
	return file.Close()
}

func read[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = file.Close() }()
	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()
	data := make([]T, reader.NumRows())
	n, err := reader.Read(data)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read parquet file %s: %w", path, err)
	}
	return data[:n], nil
}

// WriteResult writes the buffer b, whose rows were computed on the given timesteps, to path.
func WriteResult(path string, b *parallel.Buffer, timesteps []int) error {
	rows, err := Rows(b, timesteps)
	if err != nil {
		return trajstat.ErrDecorate(err, "WriteResult")
	}
	return write(path, rows)
}

// ReadResult reads a file written by WriteResult. The returned buffer has shape
// (timesteps, elements): observables with more than one dimension come back flattened.
func ReadResult(path string) (*parallel.Buffer, []int, error) {
	rows, err := read[Row](path)
	if err != nil {
		return nil, nil, err
	}
	var timesteps []int
	n := 0
	for i, r := range rows {
		if i == 0 || r.Timestep != rows[i-1].Timestep {
			timesteps = append(timesteps, int(r.Timestep))
		}
		n = max(n, int(r.Index)+1)
	}
	if n*len(timesteps) != len(rows) {
		return nil, nil, trajstat.Errorf(trajstat.ErrInvalidInput, "ReadResult", "%d values do not fill %d timesteps of %d elements", len(rows), len(timesteps), n)
	}
	b := parallel.NewBuffer(len(timesteps), n)
	for k, r := range rows {
		j := k / n
		if r.Timestep != int64(timesteps[j]) || r.Index < 0 {
			return nil, nil, trajstat.Errorf(trajstat.ErrInvalidInput, "ReadResult", "unexpected value for timestep %d, element %d", r.Timestep, r.Index)
		}
		b.Row(j)[r.Index] = r.Value
	}
	return b, timesteps, nil
}

// WriteEstimates writes the error estimates of each element of an observable to path.
// est[i] corresponds to element i.
func WriteEstimates(path string, est []ElementEstimate) error {
	rows := make([]EstimateRow, len(est))
	for i, e := range est {
		rows[i] = EstimateRow{Index: int32(i), Mean: e.Mean, StdErr: e.StdErr, TauInt: e.TauInt, NEff: e.NEff, N: int64(e.N), Err: e.Err}
	}
	return write(path, rows)
}

// ReadEstimates reads a file written by WriteEstimates.
func ReadEstimates(path string) ([]ElementEstimate, error) {
	rows, err := read[EstimateRow](path)
	if err != nil {
		return nil, err
	}
	ret := make([]ElementEstimate, len(rows))
	for i, r := range rows {
		ret[i] = ElementEstimate{
			Estimate: timestat.Estimate{Mean: r.Mean, StdErr: r.StdErr, TauInt: r.TauInt, NEff: r.NEff, N: int(r.N)},
			Err:      r.Err,
		}
	}
	return ret, nil
}

// Estimates runs the error analysis on the time series of each element of b.
// An element whose series is degenerate (e.g. an empty RDF shell, or a coordinate
// pinned by the geometry) does not stop the analysis: it is returned with its
// Err field set. Any other failure is returned as an error.
func Estimates(b *parallel.Buffer, opts ...*timestat.Options) ([]ElementEstimate, error) {
	ret := make([]ElementEstimate, b.RowSize())
	for i := range ret {
		s, err := b.Series(i)
		if err != nil {
			return nil, trajstat.ErrDecorate(err, "Estimates")
		}
		e, err := timestat.CalcError(s, opts...)
		if errors.Is(err, trajstat.ErrDegenerateSeries) {
			nan := math.NaN()
			e = timestat.Estimate{Mean: stat.Mean(s, nil), StdErr: nan, TauInt: nan, NEff: nan, N: len(s)}
			ret[i] = ElementEstimate{Estimate: e, Err: err.Error()}
			continue
		}
		if err != nil {
			return nil, trajstat.ErrDecorate(fmt.Errorf("element %d: %w", i, err), "Estimates")
		}
		ret[i] = ElementEstimate{Estimate: e}
	}
	return ret, nil
}
