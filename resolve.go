/*
 * resolve.go, part of trajstat.
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
	"sort"

	v3 "github.com/rmera/trajstat/v3"
)

type idSorter struct {
	ids   []int
	index []int
}

func (S idSorter) Len() int           { return len(S.index) }
func (S idSorter) Less(i, j int) bool { return S.ids[S.index[i]] < S.ids[S.index[j]] }
func (S idSorter) Swap(i, j int)      { S.index[i], S.index[j] = S.index[j], S.index[i] }

// Order returns the storage indexes of the particles sorted by ascending id.
// Duplicated ids are an error.
func Order(ids []int) ([]int, error) {
	S := idSorter{ids: ids, index: make([]int, len(ids))}
	for i := range S.index {
		S.index[i] = i
	}
	sort.Sort(S)
	for i := 1; i < len(S.index); i++ {
		if ids[S.index[i]] == ids[S.index[i-1]] {
			return nil, Errorf(ErrInvalidInput, "Order", "particle id %d appears more than once in a frame", ids[S.index[i]])
		}
	}
	return S.index, nil
}

// Resolve puts in dst the positions in pos reordered by ascending particle id.
// ids holds the id of each stored particle. If folded is false, the
// unwrapped positions, pos+image*box (element-wise per axis), are returned instead.
// images is ignored for folded positions, and may be nil in that case.
func Resolve(dst, pos *v3.Matrix, ids []int, images [][3]int, box [3]float64, folded bool) error {
	n := pos.NVecs()
	if len(ids) != n || dst.NVecs() != n {
		return Errorf(ErrInvalidInput, "Resolve", "%d positions, %d ids and room for %d positions given", n, len(ids), dst.NVecs())
	}
	if !folded && len(images) != n {
		return Errorf(ErrInvalidInput, "Resolve", "%d positions but %d image counters given", n, len(images))
	}
	order, err := Order(ids)
	if err != nil {
		return ErrDecorate(err, "Resolve")
	}
	if err := dst.SomeVecsSafe(pos, order); err != nil {
		return ErrDecorate(err, "Resolve")
	}
	if folded {
		return nil
	}
	for i, v := range order {
		for j := 0; j < 3; j++ {
			dst.Set(i, j, dst.At(i, j)+float64(images[v][j])*box[j])
		}
	}
	return nil
}

// PositionsAt returns the resolved positions of each of the frames in ts.
func PositionsAt(src Source, ts []int, folded bool) ([]*v3.Matrix, error) {
	ret := make([]*v3.Matrix, len(ts))
	for i, t := range ts {
		if t < 0 || t >= src.NFrames() {
			return nil, Errorf(ErrInvalidInput, "PositionsAt", "timestep %d out of range [0,%d)", t, src.NFrames())
		}
		ret[i] = v3.Zeros(src.Len())
		if err := src.Positions(t, folded, ret[i]); err != nil {
			return nil, ErrDecorate(err, "PositionsAt")
		}
	}
	return ret, nil
}
