/*
 * dcd_write.go, part of trajstat.
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

package dcd

import (
	"bufio"
	"encoding/binary"
	"math"
	"os"

	"github.com/rmera/trajstat"
	v3 "github.com/rmera/trajstat/v3"
)

const charmmVersion = 24

// Writer writes little endian CHARMM DCD trajectories.
type Writer struct {
	f        *os.File
	w        *bufio.Writer
	filename string
	natoms   int32
	nframes  int32
	cell     bool
	endian   binary.ByteOrder
	fields   [3][]float32
	writable bool
}

// NewWriter creates the file name for a trajectory of natoms atoms. If cell is true,
// each frame carries the lengths of the (orthorhombic) unit cell.
func NewWriter(name string, natoms int, cell bool) (*Writer, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, trajstat.NewError(trajstat.ErrInvalidInput, err.Error(), "dcd.NewWriter")
	}
	W := &Writer{f: f, w: bufio.NewWriter(f), filename: name, natoms: int32(natoms), cell: cell, endian: binary.LittleEndian}
	for i := range W.fields {
		W.fields[i] = make([]float32, natoms)
	}
	if err := W.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	W.writable = true
	return W, nil
}

// record writes data between two record markers with its size.
func (W *Writer) record(data any) error {
	size := int32(binary.Size(data))
	if err := binary.Write(W.w, W.endian, size); err != nil {
		return err
	}
	if err := binary.Write(W.w, W.endian, data); err != nil {
		return err
	}
	return binary.Write(W.w, W.endian, size)
}

func (W *Writer) writeHeader() error {
	head := make([]byte, headerSize)
	copy(head, "CORD")
	icntrl := head[4:]
	put := func(i int, v uint32) { W.endian.PutUint32(icntrl[4*i:], v) }
	put(2, 1) //frames between saves
	put(9, math.Float32bits(1))
	if W.cell {
		put(10, 1)
	}
	put(19, charmmVersion)
	title := make([]byte, 4+maxTitle)
	W.endian.PutUint32(title, 1)
	copy(title[4:], "Created by trajstat")
	for _, v := range []any{head, title, W.natoms} {
		if err := W.record(v); err != nil {
			return formatErr(W.filename, "writeHeader", "%v", err)
		}
	}
	return nil
}

// WNext writes a frame. box, the lengths of the cell, is required if the file has unit cell information.
func (W *Writer) WNext(c *v3.Matrix, box ...[3]float64) error {
	if !W.writable {
		return formatErr(W.filename, "WNext", "writer not open")
	}
	if c.NVecs() != int(W.natoms) {
		return trajstat.Errorf(trajstat.ErrInvalidInput, "dcd.WNext", "%d atoms given, %d expected", c.NVecs(), W.natoms)
	}
	if W.cell {
		if len(box) == 0 {
			return trajstat.NewError(trajstat.ErrInvalidInput, "the trajectory needs the unit cell of each frame", "dcd.WNext")
		}
		b := box[0]
		if err := W.record([6]float64{b[0], 90, b[1], 90, 90, b[2]}); err != nil {
			return formatErr(W.filename, "WNext", "%v", err)
		}
	}
	for i := 0; i < int(W.natoms); i++ {
		p := c.Vec(i)
		for j := range W.fields {
			W.fields[j][i] = float32(p[j])
		}
	}
	for _, f := range W.fields {
		if err := W.record(f); err != nil {
			return formatErr(W.filename, "WNext", "%v", err)
		}
	}
	W.nframes++
	return nil
}

// Close writes the number of frames in the header and closes the file.
func (W *Writer) Close() error {
	if !W.writable {
		return nil
	}
	W.writable = false
	err := W.w.Flush()
	if err == nil {
		n := make([]byte, 4)
		W.endian.PutUint32(n, uint32(W.nframes))
		//marker and magic number come before the frame count
		_, err = W.f.WriteAt(n, 8)
	}
	if err2 := W.f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return formatErr(W.filename, "Close", "%v", err)
	}
	return nil
}

// Save writes the positions of all the frames of T, resolved by particle id, to a DCD file.
// Unless folded is true, the positions are unwrapped.
func Save(name string, T trajstat.Source, folded bool) error {
	box := T.Box()
	W, err := NewWriter(name, T.Len(), box != [3]float64{})
	if err != nil {
		return trajstat.ErrDecorate(err, "dcd.Save")
	}
	pos := v3.Zeros(T.Len())
	for i := 0; i < T.NFrames(); i++ {
		if err := T.Positions(i, folded, pos); err != nil {
			W.Close()
			return trajstat.ErrDecorate(err, "dcd.Save")
		}
		if err := W.WNext(pos, box); err != nil {
			W.Close()
			return trajstat.ErrDecorate(err, "dcd.Save")
		}
	}
	return W.Close()
}
