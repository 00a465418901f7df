/*
 * observables.go, part of trajstat.
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

package trajstat

import (
	"math"
	"sort"
	"strings"

	v3 "github.com/rmera/trajstat/v3"
)

// ObservableNames returns the names accepted by ObservableByName.
func ObservableNames() []string {
	ret := []string{"e2e", "rg2", "rg2xyz", "com", "p2x", "p2y", "p2z", "rdf"}
	sort.Strings(ret)
	return ret
}

// ObservableByName returns the observable with the given name.
//
//	e2e            end-to-end distance. Shape (1).
//	rg2            squared radius of gyration. Shape (1).
//	rg2xyz         components of the squared radius of gyration. Shape (3).
//	com            geometric center. Shape (3).
//	p2x, p2y, p2z  second Legendre polynomial of the angle between the vector joining
//	               particles args[0] and args[1] (defaults: first and last particle) and the axis.
//	               Shape (1).
//	rdf            radial distribution function. args are rmax, nbins, and the 3 box edges. Shape (nbins).
func ObservableByName(name string, args ...float64) (Observable, error) {
	switch strings.ToLower(name) {
	case "e2e":
		return ScalarObservable(EndToEndDistance), nil
	case "rg2":
		return ScalarObservable(Rg2), nil
	case "rg2xyz":
		return NewObservable([]int{3}, func(frame *v3.Matrix, dst []float64) error {
			c, err := Rg2Compwise(frame)
			copy(dst, c[:])
			return err
		}), nil
	case "com":
		return NewObservable([]int{3}, func(frame *v3.Matrix, dst []float64) error {
			c, err := CenterOfMass(frame, nil)
			copy(dst, c[:])
			return err
		}), nil
	case "p2x", "p2y", "p2z":
		return p2Observable(name[2], args)
	case "rdf":
		return rdfObservable(args)
	}
	return nil, Errorf(ErrInvalidInput, "ObservableByName", "unknown observable %q, available: %s", name, strings.Join(ObservableNames(), ", "))
}

func p2Observable(axis byte, args []float64) (Observable, error) {
	i, j := 0, -1
	if len(args) == 1 || len(args) > 2 {
		return nil, Errorf(ErrInvalidInput, "ObservableByName", "p2 takes 0 or 2 arguments, %d given", len(args))
	}
	if len(args) == 2 {
		if !isIndex(args[0]) || !isIndex(args[1]) {
			return nil, Errorf(ErrInvalidInput, "ObservableByName", "invalid particle indexes %v", args)
		}
		i, j = int(args[0]), int(args[1])
	}
	return ScalarObservable(func(frame *v3.Matrix) (float64, error) {
		n := frame.NVecs()
		last := j
		if last < 0 {
			last = n - 1
		}
		if i >= n || last >= n {
			return 0, Errorf(ErrInvalidInput, "p2", "particle index out of range for a frame of %d particles", n)
		}
		return SecondLegendre(frame.Vec(i), frame.Vec(last), axis)
	}), nil
}

func rdfObservable(args []float64) (Observable, error) {
	if len(args) != 5 {
		return nil, Errorf(ErrInvalidInput, "ObservableByName", "rdf takes 5 arguments (rmax, nbins, box edges), %d given", len(args))
	}
	rmax := args[0]
	if !(rmax > 0) || !isIndex(args[1]) || args[1] < 1 {
		return nil, Errorf(ErrInvalidInput, "ObservableByName", "invalid rdf rmax %g or bin number %g", args[0], args[1])
	}
	nbins := int(args[1])
	box := [3]float64{args[2], args[3], args[4]}
	dividers := make([]float64, nbins+1)
	for i := range dividers {
		dividers[i] = rmax * float64(i) / float64(nbins)
	}
	return NewObservable([]int{nbins}, func(frame *v3.Matrix, dst []float64) error {
		g, err := RDF(frame, box, dividers)
		if err != nil {
			return err
		}
		copy(dst, g)
		return nil
	}), nil
}

func isIndex(f float64) bool {
	return f >= 0 && f == math.Trunc(f) && f < math.MaxInt32
}
