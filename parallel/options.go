/*
 * options.go, part of trajstat.
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

package parallel

import "go.uber.org/zap"

// Options contains the options for the trajectory drivers.
type Options struct {
	stride int
	offset int
	folded bool //only used by the Trajectory driver
	log    *zap.Logger
}

// DefaultOptions returns options to analyze every frame of a trajectory,
// using unwrapped positions, without logging.
func DefaultOptions() *Options {
	return &Options{stride: 1, offset: 0, folded: false, log: zap.NewNop()}
}

// Stride returns the number of frames between analyzed frames,
// and sets it to a new value, if given.
func (O *Options) Stride(n ...int) int {
	if len(n) > 0 {
		O.stride = n[0]
	}
	return O.stride
}

// Offset returns the first analyzed frame, and sets it to a new value, if given.
func (O *Options) Offset(n ...int) int {
	if len(n) > 0 {
		O.offset = n[0]
	}
	return O.offset
}

// Folded returns whether the positions are used as stored (wrapped into the box)
// instead of unwrapped with the image counters, and sets it to a new value, if given.
func (O *Options) Folded(b ...bool) bool {
	if len(b) > 0 {
		O.folded = b[0]
	}
	return O.folded
}

// Logger returns the logger used by the driver, and sets it to a new value, if given.
// A nil logger disables logging.
func (O *Options) Logger(l ...*zap.Logger) *zap.Logger {
	if len(l) > 0 {
		O.log = l[0]
		if O.log == nil {
			O.log = zap.NewNop()
		}
	}
	return O.log
}

func getOptions(opts []*Options) *Options {
	if len(opts) > 0 && opts[0] != nil {
		return opts[0]
	}
	return DefaultOptions()
}
