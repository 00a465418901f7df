/*
 * interfaces.go, part of trajstat.
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

import v3 "github.com/rmera/trajstat/v3"

// Source is the interface for a random-access trajectory. Particles may be
// stored in any order in each frame; Positions always returns them ordered
// by ascending particle id.
type Source interface {
	//Returns the number of particles per frame
	Len() int

	//Returns the number of frames (timesteps) in the trajectory
	NFrames() int

	//Returns the edge lengths of the (orthorhombic) simulation box
	Box() [3]float64

	//Puts in dst the positions of frame ts, sorted by particle id. If folded is false,
	//the positions are unwrapped using the image counters of the frame.
	Positions(ts int, folded bool, dst *v3.Matrix) error
}

// Observable is a per-frame quantity. It must be deterministic and free of
// side effects, as it is evaluated concurrently on different frames.
type Observable interface {
	//Shape of one result, not including the time dimension.
	Shape() []int

	//Eval computes the observable for frame and puts the result, flattened in
	//row-major order, in dst, which has Size(Shape()) elements.
	Eval(frame *v3.Matrix, dst []float64) error
}

// Size returns the number of elements of an array of the given shape.
func Size(shape []int) int {
	n := 1
	for _, v := range shape {
		n *= v
	}
	return n
}

// obsFunc adapts a function to the Observable interface.
type obsFunc struct {
	shape []int
	f     func(*v3.Matrix, []float64) error
}

func (O *obsFunc) Shape() []int { return O.shape }

func (O *obsFunc) Eval(frame *v3.Matrix, dst []float64) error { return O.f(frame, dst) }

// NewObservable returns an Observable with the given output shape that
// evaluates f. Extra arguments to the observable are captured by f.
func NewObservable(shape []int, f func(frame *v3.Matrix, dst []float64) error) Observable {
	s := make([]int, len(shape))
	copy(s, shape)
	return &obsFunc{shape: s, f: f}
}

// ScalarObservable wraps a function returning a float64 as an observable
// with shape (1).
func ScalarObservable(f func(frame *v3.Matrix) (float64, error)) Observable {
	return NewObservable([]int{1}, func(frame *v3.Matrix, dst []float64) error {
		v, err := f(frame)
		if err != nil {
			return err
		}
		dst[0] = v
		return nil
	})
}
