/*
 * frame.go, part of trajstat.
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

package comm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Frame size constants. A frame is a 4-byte big-endian length prefix followed by
// the zstd-compressed msgpack encoding of an envelope.
const (
	// MaxFrameSize is the maximum size of the compressed payload of a frame (256 MiB).
	MaxFrameSize = 256 * 1024 * 1024
	// MaxMessageSize is the maximum size of the decompressed payload.
	MaxMessageSize = 4 * MaxFrameSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// envelope kinds
const (
	kindHello   = "hello"
	kindWelcome = "welcome"
	kindReject  = "reject"
	kindMsg     = "msg"
	kindAck     = "ack"
)

type envelope struct {
	Kind   string    `msgpack:"kind"`
	Source int       `msgpack:"source"`
	Tag    int       `msgpack:"tag"`
	Size   int       `msgpack:"size,omitempty"`
	Shape  []int     `msgpack:"shape,omitempty"`
	Data   []float64 `msgpack:"data,omitempty"`
	Err    string    `msgpack:"err,omitempty"`
}

func (e *envelope) message() *Message {
	return &Message{Source: e.Source, Tag: e.Tag, Shape: e.Shape, Data: e.Data}
}

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a decompression or msgpack decoding error.
	FrameErrorDecode
	// FrameErrorEncode indicates a message that could not be encoded.
	FrameErrorEncode
)

// FrameError represents an error writing or reading a frame.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("comm: %s: %v", e.Msg, e.Err)
	}
	return "comm: " + e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the stream can't be used after the error.
// Partial and oversized frames leave the stream out of sync.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if err is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

// codec returns the zstd encoder and decoder shared by all connections.
// Their EncodeAll and DecodeAll methods are safe for concurrent use.
func codec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxMessageSize))
	})
	return encoder, decoder, codecErr
}

// writeFrame encodes e and writes it as a single frame.
func writeFrame(w io.Writer, e *envelope) error {
	enc, _, err := codec()
	if err != nil {
		return &FrameError{Kind: FrameErrorEncode, Msg: "failed to set up zstd", Err: err}
	}
	payload, err := msgpack.Marshal(e)
	if err != nil {
		return &FrameError{Kind: FrameErrorEncode, Msg: "failed to encode envelope", Err: err}
	}
	compressed := enc.EncodeAll(payload, make([]byte, LengthPrefixSize, LengthPrefixSize+len(payload)/2))
	size := len(compressed) - LengthPrefixSize
	if size > MaxFrameSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", size, MaxFrameSize),
		}
	}
	binary.BigEndian.PutUint32(compressed[:LengthPrefixSize], uint32(size))
	_, err = w.Write(compressed)
	return err
}

// readFrame reads a single frame from r.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
//   - *FrameError with Kind=FrameErrorDecode: corrupted payload
func readFrame(r io.Reader) (*envelope, error) {
	_, dec, err := codec()
	if err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to set up zstd", Err: err}
	}
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read length prefix", Err: err}
	}
	size := binary.BigEndian.Uint32(lengthBuf[:])
	if size > MaxFrameSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", size, MaxFrameSize),
		}
	}
	compressed := make([]byte, size)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read payload", Err: err}
	}
	payload, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decompress payload", Err: err}
	}
	e := new(envelope)
	if err := msgpack.Unmarshal(payload, e); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode envelope", Err: err}
	}
	return e, nil
}
