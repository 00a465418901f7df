/*
 * writer.go, part of trajstat.
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
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	v3 "github.com/rmera/trajstat/v3"
	"go.uber.org/zap"
)

const (
	lzwLitwidth int = 8
	defaultPrec int = 2
)

// Field lists accepted in the "fields" header key.
const (
	FieldsPos      = "pos"
	FieldsID       = "pos,id"
	FieldsIDImages = "pos,id,image"
)

func parseFields(s string) (ids, images bool, err error) {
	switch strings.ReplaceAll(strings.TrimSpace(s), " ", "") {
	case "", FieldsPos:
		return false, false, nil
	case FieldsID:
		return true, false, nil
	case FieldsIDImages:
		return true, true, nil
	}
	return false, false, fmt.Errorf("unknown fields %q", s)
}

// compressor returns the function that wraps a writer with the compression
// selected by the last character of the file name.
func compressor(name string, level int) func(io.Writer) (io.WriteCloser, error) {
	zstdwriter := func(a io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(a, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return func(a io.Writer) (io.WriteCloser, error) { return lzw.NewWriter(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		return func(a io.Writer) (io.WriteCloser, error) { return gzip.NewWriterLevel(a, level) }
	case 'r':
		return func(a io.Writer) (io.WriteCloser, error) { return flate.NewWriter(a, level) }
	}
	return zstdwriter
}

// Writer writes STF trajectories.
type Writer struct {
	f         *os.File
	h         io.WriteCloser
	buf       *bufio.Writer
	natoms    int
	filename  string
	writeable bool
	prec      int
	ids       bool
	images    bool
}

// NewWriter creates the file name and writes the STF header for frames of natoms particles.
// The keys in header are written to the file. The "prec" key sets the precision
// (2 if not given) and "fields" what is stored for each particle (see FieldsPos, FieldsID
// and FieldsIDImages). The compression level is only used for the gzip and DEFLATE compressions.
func NewWriter(name string, natoms int, header map[string]string, compressionLevel ...int) (*Writer, error) {
	level := flate.BestCompression
	if len(compressionLevel) > 0 {
		level = compressionLevel[0]
	}
	if name == "" {
		return nil, newError("empty file name", name, "NewWriter")
	}
	S := &Writer{natoms: natoms, filename: name, prec: defaultPrec}
	h := make(map[string]string, len(header)+1)
	for k, v := range header {
		h[k] = v
	}
	if p, ok := h["prec"]; ok {
		prec, err := strconv.Atoi(p)
		if err != nil || prec < 1 {
			return nil, newError(fmt.Sprintf("invalid precision %q", p), name, "NewWriter")
		}
		S.prec = prec
	}
	h["prec"] = strconv.Itoa(S.prec)
	var err error
	S.ids, S.images, err = parseFields(h["fields"])
	if err != nil {
		return nil, newError(err.Error(), name, "NewWriter")
	}
	S.f, err = os.Create(name)
	if err != nil {
		return nil, newError(err.Error(), name, "NewWriter")
	}
	S.h, err = compressor(name, level)(S.f)
	if err != nil {
		S.f.Close()
		return nil, newError("can't set up compression: "+err.Error(), name, "NewWriter")
	}
	S.buf = bufio.NewWriter(S.h)
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(S.buf, "%s=%s\n", k, h[k])
	}
	fmt.Fprintf(S.buf, "** %d\n", S.natoms)
	S.writeable = true
	return S, nil
}

// Len returns the number of particles per frame.
func (S *Writer) Len() int {
	return S.natoms
}

func coordsEncode(dst []byte, f [3]float64, prec int) []byte {
	p := math.Pow(10.0, float64(prec))
	for i, v := range f {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = strconv.AppendInt(dst, int64(math.RoundToEven(v*p)), 10)
	}
	return dst
}

// WNext writes the next frame. ids and images are only used, and then required, if the
// fields of the file include them. If box is given, and has at least 9 elements, the box
// vectors are written at the end of the frame.
func (S *Writer) WNext(coord *v3.Matrix, ids []int, images [][3]int, box ...[]float64) error {
	if !S.writeable {
		return newError(trajUnIniWrite, S.filename, "WNext")
	}
	if coord == nil {
		return newError(nilCoordinates, S.filename, "WNext")
	}
	v := coord.NVecs()
	if v != S.natoms {
		return newError(fmt.Sprintf("%d coordinates given, but %d expected", v, S.natoms), S.filename, "WNext")
	}
	if S.ids && len(ids) != v {
		return newError(fmt.Sprintf("%d ids given for %d particles", len(ids), v), S.filename, "WNext")
	}
	if S.images && len(images) != v {
		return newError(fmt.Sprintf("%d image counters given for %d particles", len(images), v), S.filename, "WNext")
	}
	line := make([]byte, 0, 64)
	for i := 0; i < v; i++ {
		line = coordsEncode(line[:0], coord.Vec(i), S.prec)
		if S.ids {
			line = append(line, ' ')
			line = strconv.AppendInt(line, int64(ids[i]), 10)
		}
		if S.images {
			for _, im := range images[i] {
				line = append(line, ' ')
				line = strconv.AppendInt(line, int64(im), 10)
			}
		}
		line = append(line, '\n')
		if _, err := S.buf.Write(line); err != nil {
			return newError(err.Error(), S.filename, "WNext")
		}
	}
	var err error
	if len(box) > 0 && len(box[0]) >= 9 {
		b := box[0]
		_, err = fmt.Fprintf(S.buf, "* %.6f %.6f %.6f %.6f %.6f %.6f %.6f %.6f %.6f\n", b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7], b[8])
	} else {
		if len(box) > 0 && len(box[0]) > 0 {
			zap.L().Warn("box with less than 9 elements not written", zap.String("file", S.filename), zap.Int("elements", len(box[0])))
		}
		_, err = S.buf.WriteString("*\n")
	}
	if err != nil {
		return newError(err.Error(), S.filename, "WNext")
	}
	return nil
}

// Close flushes and closes the file. The writer can't be used after this call.
func (S *Writer) Close() error {
	if S == nil || !S.writeable {
		return nil
	}
	S.writeable = false
	err := S.buf.Flush()
	if err2 := S.h.Close(); err == nil {
		err = err2
	}
	if err2 := S.f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return newError(err.Error(), S.filename, "Close")
	}
	return nil
}
