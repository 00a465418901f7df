/*
 * dcd.go, part of trajstat.
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

// Package dcd reads and writes CHARMM/NAMD binary (DCD) trajectories.
// Only the CHARMM flavor is supported, with or without unit cell
// information, without fixed atoms.
package dcd

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/rmera/trajstat"
	"github.com/rmera/trajstat/traj/mem"
	v3 "github.com/rmera/trajstat/v3"
	"go.uber.org/zap"
)

const (
	maxTitle   = 80
	headerSize = 84
	cellSize   = 48
)

// ErrNoMoreFrames is returned by Next at the end of the trajectory.
var ErrNoMoreFrames = errors.New("no more frames")

func formatErr(name, caller, format string, a ...interface{}) error {
	return trajstat.Errorf(trajstat.ErrInvalidInput, caller, "dcd file %s: "+format, append([]interface{}{name}, a...)...)
}

// Reader reads DCD trajectories frame by frame.
type Reader struct {
	f        *os.File
	r        *bufio.Reader
	filename string
	natoms   int32
	nframes  int32
	cell     bool //the frames carry unit cell information
	fourdim  bool
	endian   binary.ByteOrder
	fields   [3][]float32
	readable bool
}

// New opens a DCD file for reading and reads its header.
func New(name string) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, trajstat.NewError(trajstat.ErrInvalidInput, err.Error(), "dcd.New")
	}
	D := &Reader{f: f, r: bufio.NewReader(f), filename: name, endian: binary.LittleEndian}
	if err := D.readHeader(); err != nil {
		f.Close()
		return nil, trajstat.ErrDecorate(err, "dcd.New")
	}
	for i := range D.fields {
		D.fields[i] = make([]float32, D.natoms)
	}
	D.readable = true
	return D, nil
}

func (D *Reader) readHeader() error {
	var check int32
	if err := binary.Read(D.r, D.endian, &check); err != nil {
		return formatErr(D.filename, "readHeader", "%v", err)
	}
	//the first record marker is 84, if it doesn't read as such the file is big endian.
	if check != headerSize {
		D.endian = binary.BigEndian
	}
	head := make([]byte, headerSize+4)
	if _, err := io.ReadFull(D.r, head); err != nil {
		return formatErr(D.filename, "readHeader", "%v", err)
	}
	if string(head[:4]) != "CORD" {
		return formatErr(D.filename, "readHeader", "wrong magic number %q", head[:4])
	}
	icntrl := head[4:84]
	u32 := func(i int) int32 { return int32(D.endian.Uint32(icntrl[4*i:])) }
	if u32(19) == 0 {
		return formatErr(D.filename, "readHeader", "X-PLOR DCD not supported")
	}
	D.nframes = u32(0)
	if u32(8) != 0 {
		return formatErr(D.filename, "readHeader", "fixed atoms not supported")
	}
	D.cell = u32(10) != 0
	D.fourdim = u32(11) == 1
	if int32(D.endian.Uint32(head[84:])) != headerSize {
		return formatErr(D.filename, "readHeader", "corrupted header")
	}
	//title block
	size, err := D.marker()
	if err != nil {
		return err
	}
	var ntitle int32
	if err := binary.Read(D.r, D.endian, &ntitle); err != nil {
		return formatErr(D.filename, "readHeader", "%v", err)
	}
	if ntitle < 0 || size != 4+maxTitle*ntitle {
		return formatErr(D.filename, "readHeader", "corrupted title block")
	}
	if _, err := D.r.Discard(int(maxTitle * ntitle)); err != nil {
		return formatErr(D.filename, "readHeader", "%v", err)
	}
	if err := D.closeRecord(size); err != nil {
		return err
	}
	if size, err = D.marker(); err != nil || size != 4 {
		return formatErr(D.filename, "readHeader", "expected the number of atoms")
	}
	if err := binary.Read(D.r, D.endian, &D.natoms); err != nil {
		return formatErr(D.filename, "readHeader", "%v", err)
	}
	return D.closeRecord(4)
}

// marker reads a record marker.
func (D *Reader) marker() (int32, error) {
	var size int32
	if err := binary.Read(D.r, D.endian, &size); err != nil {
		return 0, err
	}
	return size, nil
}

func (D *Reader) closeRecord(size int32) error {
	check, err := D.marker()
	if err != nil {
		return formatErr(D.filename, "closeRecord", "%v", err)
	}
	if check != size {
		return formatErr(D.filename, "closeRecord", "record of %d bytes closed by a %d marker", size, check)
	}
	return nil
}

// Readable returns true if frames can still be read from the trajectory.
func (D *Reader) Readable() bool { return D.readable }

// Len returns the number of atoms per frame.
func (D *Reader) Len() int { return int(D.natoms) }

// NFrames returns the number of frames declared in the header. Some
// programs don't update it, so it is only a hint.
func (D *Reader) NFrames() int { return int(D.nframes) }

// Next reads the next frame into c, which can be nil to skip the frame. If box is given and the file has
// unit cell information, the lengths of the cell are put in it. ErrNoMoreFrames is returned at the end.
func (D *Reader) Next(c *v3.Matrix, box ...*[3]float64) error {
	if !D.readable {
		return ErrNoMoreFrames
	}
	if c != nil && c.NVecs() != int(D.natoms) {
		return trajstat.Errorf(trajstat.ErrInvalidInput, "dcd.Next", "room for %d atoms given, %d needed", c.NVecs(), D.natoms)
	}
	size, err := D.marker()
	if errors.Is(err, io.EOF) {
		D.Close()
		return ErrNoMoreFrames
	}
	if err != nil {
		return formatErr(D.filename, "Next", "%v", err)
	}
	//The unit cell is not present in every frame of some trajectories, so the
	//size of the record is what tells it apart from the X block.
	if D.cell && size == cellSize {
		var cell [6]float64
		if err := binary.Read(D.r, D.endian, &cell); err != nil {
			return formatErr(D.filename, "Next", "%v", err)
		}
		if err := D.closeRecord(size); err != nil {
			return err
		}
		if len(box) > 0 && box[0] != nil {
			//CHARMM order: A, gamma, B, beta, alpha, C
			*box[0] = [3]float64{cell[0], cell[2], cell[5]}
		}
		if size, err = D.marker(); err != nil {
			return formatErr(D.filename, "Next", "%v", err)
		}
	}
	for i := range D.fields {
		if i > 0 {
			if size, err = D.marker(); err != nil {
				return formatErr(D.filename, "Next", "truncated frame: %v", err)
			}
		}
		if size != 4*D.natoms {
			return formatErr(D.filename, "Next", "coordinate block of %d bytes for %d atoms", size, D.natoms)
		}
		if err := binary.Read(D.r, D.endian, D.fields[i]); err != nil {
			return formatErr(D.filename, "Next", "truncated frame: %v", err)
		}
		if err := D.closeRecord(size); err != nil {
			return err
		}
	}
	if D.fourdim {
		if size, err = D.marker(); err == nil {
			if _, err = D.r.Discard(int(size)); err == nil {
				err = D.closeRecord(size)
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return formatErr(D.filename, "Next", "%v", err)
		}
	}
	if c == nil {
		return nil
	}
	for i := 0; i < int(D.natoms); i++ {
		c.SetVec(i, [3]float64{float64(D.fields[0][i]), float64(D.fields[1][i]), float64(D.fields[2][i])})
	}
	return nil
}

// Close closes the file. Next returns ErrNoMoreFrames afterwards.
func (D *Reader) Close() {
	if !D.readable {
		return
	}
	D.readable = false
	D.f.Close()
}

// Load reads a whole DCD trajectory into memory. DCD files store neither particle ids nor image
// counters, so the atoms keep the file order and the positions are used as stored. The box
// is taken from the unit cell of the first frame, or is zero if the file has none.
func Load(name string) (*mem.Trajectory, error) {
	D, err := New(name)
	if err != nil {
		return nil, trajstat.ErrDecorate(err, "dcd.Load")
	}
	defer D.Close()
	pos := v3.Zeros(D.Len())
	var box [3]float64
	var T *mem.Trajectory
	for {
		err := D.Next(pos, &box)
		if errors.Is(err, ErrNoMoreFrames) {
			break
		}
		if err != nil {
			return nil, trajstat.ErrDecorate(err, "dcd.Load")
		}
		if T == nil {
			T = mem.New(D.Len(), box)
		}
		if err := T.Append(pos, nil, nil); err != nil {
			return nil, trajstat.ErrDecorate(err, "dcd.Load")
		}
	}
	if T == nil {
		return nil, formatErr(name, "dcd.Load", "no frames")
	}
	if D.NFrames() != 0 && D.NFrames() != T.NFrames() {
		zap.L().Warn("the DCD header and the file disagree on the number of frames", zap.String("file", name),
			zap.Int("header", D.NFrames()), zap.Int("read", T.NFrames()))
	}
	return T, nil
}
