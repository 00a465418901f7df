/*
 * mem.go, part of trajstat.
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

// Package mem implements a trajectory kept in memory, with random access to its frames.
package mem

import (
	"github.com/rmera/trajstat"
	v3 "github.com/rmera/trajstat/v3"
)

type frame struct {
	pos    *v3.Matrix
	ids    []int
	images [][3]int
}

// Trajectory is a trajectory stored in memory. Each frame keeps the positions as
// stored, the id of each particle and, optionally, its periodic image counters.
type Trajectory struct {
	natoms int
	box    [3]float64
	frames []frame
}

// New returns an empty trajectory of natoms particles in an orthorhombic box.
func New(natoms int, box [3]float64) *Trajectory {
	return &Trajectory{natoms: natoms, box: box}
}

// FromFrames returns a trajectory with the given frames, where the particles are
// stored in id order and have no image counters.
func FromFrames(frames []*v3.Matrix, box [3]float64) (*Trajectory, error) {
	if len(frames) == 0 {
		return nil, trajstat.NewError(trajstat.ErrInvalidInput, "no frames given", "mem.FromFrames")
	}
	T := New(frames[0].NVecs(), box)
	for _, f := range frames {
		if err := T.Append(f, nil, nil); err != nil {
			return nil, trajstat.ErrDecorate(err, "mem.FromFrames")
		}
	}
	return T, nil
}

// Append adds a frame at the end of the trajectory. pos is copied. ids can be nil,
// in which case the particles are taken to be stored in id order.
// images can be nil if the positions are not wrapped.
func (T *Trajectory) Append(pos *v3.Matrix, ids []int, images [][3]int) error {
	if pos.NVecs() != T.natoms {
		return trajstat.Errorf(trajstat.ErrInvalidInput, "mem.Append", "frame has %d particles, the trajectory %d", pos.NVecs(), T.natoms)
	}
	if ids == nil {
		ids = make([]int, T.natoms)
		for i := range ids {
			ids[i] = i
		}
	} else {
		if len(ids) != T.natoms {
			return trajstat.Errorf(trajstat.ErrInvalidInput, "mem.Append", "%d ids for %d particles", len(ids), T.natoms)
		}
		if _, err := trajstat.Order(ids); err != nil {
			return trajstat.ErrDecorate(err, "mem.Append")
		}
		ids = append([]int(nil), ids...)
	}
	if images != nil {
		if len(images) != T.natoms {
			return trajstat.Errorf(trajstat.ErrInvalidInput, "mem.Append", "%d image counters for %d particles", len(images), T.natoms)
		}
		images = append([][3]int(nil), images...)
	}
	p := v3.Zeros(T.natoms)
	if T.natoms > 0 {
		p.Copy(pos)
	}
	T.frames = append(T.frames, frame{pos: p, ids: ids, images: images})
	return nil
}

// Len returns the number of particles per frame.
func (T *Trajectory) Len() int { return T.natoms }

// NFrames returns the number of frames.
func (T *Trajectory) NFrames() int { return len(T.frames) }

// Box returns the box edges.
func (T *Trajectory) Box() [3]float64 { return T.box }

// Positions puts in dst the positions of frame ts sorted by particle id,
// unwrapped unless folded is true.
func (T *Trajectory) Positions(ts int, folded bool, dst *v3.Matrix) error {
	if ts < 0 || ts >= len(T.frames) {
		return trajstat.Errorf(trajstat.ErrInvalidInput, "mem.Positions", "frame %d out of range [0,%d)", ts, len(T.frames))
	}
	f := T.frames[ts]
	images := f.images
	if images == nil {
		//no counters means nothing to unwrap
		folded = true
	}
	if err := trajstat.Resolve(dst, f.pos, f.ids, images, T.box, folded); err != nil {
		return trajstat.ErrDecorate(err, "mem.Positions")
	}
	return nil
}

// Raw returns the frame ts as stored: positions, ids and image counters (which may be nil).
// The returned values must not be modified.
func (T *Trajectory) Raw(ts int) (*v3.Matrix, []int, [][3]int) {
	f := T.frames[ts]
	return f.pos, f.ids, f.images
}
