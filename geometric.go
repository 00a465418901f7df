/*
 * geometric.go, part of trajstat.
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

	"github.com/rmera/trajstat/histo"
	v3 "github.com/rmera/trajstat/v3"
	"gonum.org/v1/gonum/floats"
)

// CenterOfMass returns the center of mass of the particles in coords. If masses is nil,
// all particles are given the same mass, i.e. the geometric center is returned.
func CenterOfMass(coords *v3.Matrix, masses []float64) ([3]float64, error) {
	var com [3]float64
	n := coords.NVecs()
	if n == 0 {
		return com, NewError(ErrInvalidInput, "no particles given", "CenterOfMass")
	}
	if masses == nil {
		masses = make([]float64, n)
		for i := range masses {
			masses[i] = 1
		}
	}
	if len(masses) != n {
		return com, Errorf(ErrInvalidInput, "CenterOfMass", "%d particles but %d masses", n, len(masses))
	}
	total := floats.Sum(masses)
	if total == 0 {
		return com, NewError(ErrInvalidInput, "total mass is zero", "CenterOfMass")
	}
	for i := 0; i < n; i++ {
		p := coords.Vec(i)
		for j := range com {
			com[j] += masses[i] * p[j]
		}
	}
	for j := range com {
		com[j] /= total
	}
	return com, nil
}

// Rg2Compwise returns the x, y and z components of the squared radius of
// gyration of the particles in coords. All particles have the same weight.
func Rg2Compwise(coords *v3.Matrix) ([3]float64, error) {
	var ret [3]float64
	com, err := CenterOfMass(coords, nil)
	if err != nil {
		return ret, ErrDecorate(err, "Rg2Compwise")
	}
	n := coords.NVecs()
	c, err := v3.NewMatrix(com[:])
	if err != nil {
		return ret, ErrDecorate(err, "Rg2Compwise")
	}
	centered := v3.Zeros(n)
	centered.SubVec(coords, c)
	for i := 0; i < n; i++ {
		for j := range ret {
			d := centered.At(i, j)
			ret[j] += d * d
		}
	}
	for j := range ret {
		ret[j] /= float64(n)
	}
	return ret, nil
}

// Rg2 returns the squared radius of gyration of the particles in coords.
func Rg2(coords *v3.Matrix) (float64, error) {
	c, err := Rg2Compwise(coords)
	if err != nil {
		return 0, ErrDecorate(err, "Rg2")
	}
	return c[0] + c[1] + c[2], nil
}

// EndToEndDistance returns the distance between the first and the last particle in coords.
func EndToEndDistance(coords *v3.Matrix) (float64, error) {
	n := coords.NVecs()
	if n < 2 {
		return 0, Errorf(ErrInvalidInput, "EndToEndDistance", "at least 2 particles needed, %d given", n)
	}
	d := v3.Zeros(1)
	d.SubVec(coords.View(n-1, 1), coords.View(0, 1))
	return d.VecNorm(0), nil
}

// SecondLegendre returns the second Legendre polynomial, P2=(3cos^2(t)-1)/2, of the angle t
// between the vector p1-p2 and the given axis, which must be one of 'x', 'y' or 'z'.
func SecondLegendre(p1, p2 [3]float64, axis byte) (float64, error) {
	var ax int
	switch axis {
	case 'x', 'X':
		ax = 0
	case 'y', 'Y':
		ax = 1
	case 'z', 'Z':
		ax = 2
	default:
		return 0, Errorf(ErrInvalidInput, "SecondLegendre", "axis must be 'x','y' or 'z', got %q", axis)
	}
	var v [3]float64
	for j := range v {
		v[j] = p1[j] - p2[j]
	}
	norm := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if norm == 0 {
		return 0, NewError(ErrInvalidInput, "the two positions coincide, the angle is undefined", "SecondLegendre")
	}
	cos := v[ax] / norm
	return 0.5 * (3*cos*cos - 1), nil
}

// MinImage returns the minimum image of the displacement vector d in an
// orthorhombic box with the given edge lengths. Edges equal or smaller than
// zero are taken as non-periodic.
func MinImage(d, box [3]float64) [3]float64 {
	for j := range d {
		if box[j] <= 0 {
			continue
		}
		d[j] -= box[j] * math.Round(d[j]/box[j])
	}
	return d
}

// MinImageDistance returns the distance between a and b under the
// minimum image convention.
func MinImageDistance(a, b, box [3]float64) float64 {
	var d [3]float64
	for j := range d {
		d[j] = b[j] - a[j]
	}
	d = MinImage(d, box)
	return math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
}

// RDF returns the radial distribution function g(r) of the particles in coords,
// in the shells delimited by dividers, using the minimum image convention in the given box.
// All edges of the box must be positive.
func RDF(coords *v3.Matrix, box [3]float64, dividers []float64) ([]float64, error) {
	n := coords.NVecs()
	if n < 2 {
		return nil, Errorf(ErrInvalidInput, "RDF", "at least 2 particles needed, %d given", n)
	}
	if len(dividers) < 2 || floats.HasNaN(dividers) || !sortedStrictly(dividers) {
		return nil, NewError(ErrInvalidInput, "dividers must be at least 2 strictly increasing values", "RDF")
	}
	volume := box[0] * box[1] * box[2]
	if box[0] <= 0 || box[1] <= 0 || box[2] <= 0 {
		return nil, Errorf(ErrInvalidInput, "RDF", "invalid box %v", box)
	}
	dists := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		a := coords.Vec(i)
		for j := i + 1; j < n; j++ {
			dists = append(dists, MinImageDistance(a, coords.Vec(j), box))
		}
	}
	h := histo.NewData(dividers, dists)
	g := h.Copy()
	pairs := float64(n*(n-1)) / 2
	for i := range g {
		r0, r1 := dividers[i], dividers[i+1]
		shell := 4.0 / 3.0 * math.Pi * (r1*r1*r1 - r0*r0*r0)
		g[i] /= pairs * shell / volume
	}
	return g, nil
}

func sortedStrictly(s []float64) bool {
	for i := 1; i < len(s); i++ {
		if s[i] <= s[i-1] {
			return false
		}
	}
	return true
}
