/*
 * reader.go, part of trajstat.
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

package stf

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/lzw"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rmera/trajstat"
	"github.com/rmera/trajstat/traj/mem"
	v3 "github.com/rmera/trajstat/v3"
	"go.uber.org/zap"
)

func decompressor(name string) func(io.Reader) (io.ReadCloser, error) {
	zstdreader := func(a io.Reader) (io.ReadCloser, error) {
		r, err := zstd.NewReader(a)
		if err != nil {
			return nil, err
		}
		return r.IOReadCloser(), nil
	}
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return func(a io.Reader) (io.ReadCloser, error) { return lzw.NewReader(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		return func(a io.Reader) (io.ReadCloser, error) { return gzip.NewReader(a) }
	case 'r':
		return func(a io.Reader) (io.ReadCloser, error) { return flate.NewReader(a), nil }
	}
	return zstdreader
}

// Reader reads STF trajectories, one frame at a time.
type Reader struct {
	f        *os.File
	dec      io.ReadCloser
	h        *bufio.Reader
	natoms   int
	filename string
	prec     int
	ids      bool
	images   bool
	readable bool
}

// New opens a STF trajectory for reading, and returns a pointer
// to the handle, a map with the header (never nil) and error or nil.
func New(name string) (*Reader, map[string]string, error) {
	if name == "" {
		return nil, nil, newError("empty file name", name, "New")
	}
	S := &Reader{natoms: -1, filename: name, prec: defaultPrec}
	var err error
	S.f, err = os.Open(name)
	if err != nil {
		return nil, nil, newError(err.Error(), name, "New")
	}
	S.dec, err = decompressor(name)(bufio.NewReader(S.f))
	if err != nil {
		S.f.Close()
		return nil, nil, newError("can't set up decompression: "+err.Error(), name, "New")
	}
	S.h = bufio.NewReader(S.dec)
	m := make(map[string]string)
	for {
		str, err := S.h.ReadString('\n')
		if err != nil {
			S.close()
			return nil, nil, newError("can't read header: "+err.Error(), name, "New")
		}
		str = strings.TrimSuffix(str, "\n")
		if strings.HasPrefix(str, "**") {
			nat := strings.Fields(str)
			if len(nat) < 2 {
				S.close()
				return nil, nil, newError(fmt.Sprintf("can't read the number of particles from '%s'", str), name, "New")
			}
			S.natoms, err = strconv.Atoi(nat[1])
			if err != nil || S.natoms < 0 {
				S.close()
				return nil, nil, newError(fmt.Sprintf("can't read the number of particles from '%s'", nat[1]), name, "New")
			}
			break
		}
		k, v, ok := strings.Cut(str, "=")
		if !ok {
			S.close()
			return nil, nil, newError(fmt.Sprintf("malformed header line '%s'", str), name, "New")
		}
		m[k] = v
	}
	if p, ok := m["prec"]; ok {
		prec, err := strconv.Atoi(p)
		if err == nil && prec > 0 {
			S.prec = prec
		} else {
			zap.L().Warn("invalid precision in trajectory, will assume the default", zap.String("file", name), zap.String("prec", p), zap.Int("default", defaultPrec))
		}
	}
	S.ids, S.images, err = parseFields(m["fields"])
	if err != nil {
		S.close()
		return nil, nil, newError(err.Error(), name, "New")
	}
	S.readable = true
	return S, m, nil
}

// Readable returns true if the handle is readable (if it is possible to call Next on it)
func (S *Reader) Readable() bool {
	return S.readable
}

// Len returns the number of particles in each frame of the trajectory.
func (S *Reader) Len() int {
	return S.natoms
}

// HasIDs returns true if the file stores the id of each particle.
func (S *Reader) HasIDs() bool { return S.ids }

// HasImages returns true if the file stores the image counters of each particle.
func (S *Reader) HasImages() bool { return S.images }

func (S *Reader) nfields() int {
	n := 3
	if S.ids {
		n++
	}
	if S.images {
		n += 3
	}
	return n
}

// Next puts in c the positions of the next frame of the trajectory and, if given, and the
// information is present, the box vectors in box. c can be nil, in which case the frame is
// read and checked, but not stored. At the end of the trajectory, a *LastFrameError is returned.
func (S *Reader) Next(c *v3.Matrix, box ...[]float64) error {
	return S.NextFull(c, nil, nil, box...)
}

// NextFull is like Next, but also puts in ids and images the ids and image counters
// of the particles, if the file has them and the slices are not nil.
func (S *Reader) NextFull(c *v3.Matrix, ids []int, images [][3]int, box ...[]float64) error {
	if !S.readable {
		return newError(trajUnIniRead, S.filename, "Next")
	}
	if c != nil && c.NVecs() != S.natoms {
		return newError(fmt.Sprintf("room for %d particles given, %d needed", c.NVecs(), S.natoms), S.filename, "Next")
	}
	if (ids != nil && len(ids) < S.natoms) || (images != nil && len(images) < S.natoms) {
		return newError("not enough room for the ids or image counters", S.filename, "Next")
	}
	mult := math.Pow(10, float64(S.prec))
	nf := S.nfields()
	for i := 0; i < S.natoms; i++ {
		b, err := S.h.ReadString('\n')
		if err != nil {
			//an EOF before the first particle is the normal end of the trajectory
			if err == io.EOF && i == 0 && strings.TrimSpace(b) == "" {
				S.Close()
				return newLastFrameError(S.filename, "Next")
			}
			S.Close()
			return newError(fmt.Sprintf("frame ended after %d particles: %v", i, err), S.filename, "Next")
		}
		s := strings.Fields(b)
		if len(s) != nf {
			return newError(fmt.Sprintf("%d fields in particle line '%s', expected %d", len(s), strings.TrimSpace(b), nf), S.filename, "Next")
		}
		var ints [7]int
		for j, v := range s {
			ints[j], err = strconv.Atoi(v)
			if err != nil {
				return newError(fmt.Sprintf("can't parse field %d (%s) of particle %d", j, v, i), S.filename, "Next")
			}
		}
		if c != nil {
			c.SetVec(i, [3]float64{float64(ints[0]) / mult, float64(ints[1]) / mult, float64(ints[2]) / mult})
		}
		if S.ids && ids != nil {
			ids[i] = ints[3]
		}
		if S.images && images != nil {
			images[i] = [3]int{ints[4], ints[5], ints[6]}
		}
	}
	s, err := S.h.ReadString('\n')
	if err != nil && !(err == io.EOF && s != "") {
		return newError("can't read the frame termination mark: "+err.Error(), S.filename, "Next")
	}
	if len(s) == 0 || s[0] != '*' {
		return newError(fmt.Sprintf("expected the end of the frame, found '%s'. Wrong number of particles?", strings.TrimSpace(s)), S.filename, "Next")
	}
	if len(box) > 0 && len(box[0]) >= 9 {
		fields := strings.Fields(s)
		if len(fields) < 10 {
			zap.L().Debug("frame without box information", zap.String("file", S.filename))
			return nil
		}
		var errbox error
		for j, v := range fields[1:10] {
			box[0][j], errbox = strconv.ParseFloat(v, 64)
			if errbox != nil {
				break
			}
		}
		//a bad box is not fatal, it is zeroed.
		if errbox != nil {
			zap.L().Warn("failed to read the box of a frame", zap.String("file", S.filename), zap.Error(errbox))
			clear(box[0])
		}
	}
	return nil
}

func (S *Reader) close() {
	if S.dec != nil {
		S.dec.Close()
	}
	S.f.Close()
}

// Close closes the object, and marks it as unreadable
func (S *Reader) Close() {
	if !S.readable {
		return
	}
	S.close()
	S.readable = false
}

// Load reads a whole STF trajectory into memory. The box of the trajectory is taken from
// the diagonal of the box of the first frame, or zero (no periodicity) if not present.
func Load(name string) (*mem.Trajectory, error) {
	S, _, err := New(name)
	if err != nil {
		return nil, trajstat.ErrDecorate(err, "Load")
	}
	defer S.Close()
	pos := v3.Zeros(S.Len())
	var ids []int
	var images [][3]int
	if S.HasIDs() {
		ids = make([]int, S.Len())
	}
	if S.HasImages() {
		images = make([][3]int, S.Len())
	}
	box := make([]float64, 9)
	var T *mem.Trajectory
	for {
		err := S.NextFull(pos, ids, images, box)
		if IsLastFrame(err) {
			break
		}
		if err != nil {
			return nil, trajstat.ErrDecorate(err, "Load")
		}
		if T == nil {
			if box[1] != 0 || box[2] != 0 || box[3] != 0 || box[5] != 0 || box[6] != 0 || box[7] != 0 {
				zap.L().Warn("non-orthorhombic box, only the diagonal will be used", zap.String("file", name), zap.Float64s("box", box))
			}
			T = mem.New(S.Len(), [3]float64{box[0], box[4], box[8]})
		}
		if err := T.Append(pos, ids, images); err != nil {
			return nil, trajstat.ErrDecorate(err, "Load")
		}
	}
	if T == nil {
		return nil, newError("the trajectory has no frames", name, "Load")
	}
	return T, nil
}

// Save writes the whole trajectory T to the file name with the given precision.
// The ids are always written, and the image counters if the first frame has them.
func Save(name string, T *mem.Trajectory, prec int) error {
	if T.NFrames() == 0 {
		return newError("the trajectory has no frames", name, "Save")
	}
	_, _, images := T.Raw(0)
	fields := FieldsID
	if images != nil {
		fields = FieldsIDImages
	}
	W, err := NewWriter(name, T.Len(), map[string]string{"prec": strconv.Itoa(prec), "fields": fields})
	if err != nil {
		return trajstat.ErrDecorate(err, "Save")
	}
	b := T.Box()
	box := []float64{b[0], 0, 0, 0, b[1], 0, 0, 0, b[2]}
	for i := 0; i < T.NFrames(); i++ {
		pos, ids, images := T.Raw(i)
		if fields == FieldsIDImages && images == nil {
			images = make([][3]int, T.Len())
		}
		if err := W.WNext(pos, ids, images, box); err != nil {
			W.Close()
			return trajstat.ErrDecorate(err, "Save")
		}
	}
	return W.Close()
}
