/*
 * errors.go, part of trajstat.
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
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the packages of this library
// wraps one of these, so callers can use errors.Is to tell them apart.
var (
	// ErrInvalidInput: series too short, non-finite values or malformed frame data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDegenerateSeries: a zero-variance series where a normalization needs a non-zero one.
	ErrDegenerateSeries = errors.New("degenerate series")
	// ErrInvalidPartition: a partition specification that violates its invariants.
	ErrInvalidPartition = errors.New("invalid partition")
	// ErrProtocolShape: a gathered buffer with an unexpected shape. Always critical.
	ErrProtocolShape = errors.New("protocol shape mismatch")
)

// Decorator is the interface for errors that all packages in this library implement. The Decorate method allows to add and retrieve info from the
// error, without changing it's type or wrapping it around something else.
type Decorator interface {
	Error() string
	//Decorate adds the caller name to the error and returns the decoration slice.
	//If passed an empty string, it just returns the current value.
	Decorate(string) []string
	Critical() bool
}

// Error is the general error type of trajstat.
type Error struct {
	kind     error
	message  string
	deco     []string
	critical bool
}

// NewError returns an error of the given kind, with the given message and
// the name of the function that detected the problem as first decoration.
func NewError(kind error, message, caller string) *Error {
	return &Error{kind: kind, message: message, deco: []string{caller}, critical: kind == ErrProtocolShape}
}

// Errorf is like NewError, with a formatted message.
func Errorf(kind error, caller, format string, a ...interface{}) *Error {
	return NewError(kind, fmt.Sprintf(format, a...), caller)
}

func (err *Error) Error() string {
	if len(err.deco) == 0 {
		return fmt.Sprintf("%v: %s", err.kind, err.message)
	}
	return fmt.Sprintf("%s: %v: %s", strings.Join(err.deco, "<-"), err.kind, err.message)
}

// Unwrap returns the error kind.
func (err *Error) Unwrap() error { return err.kind }

// Decorate adds new information to the error.
func (err *Error) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// Critical returns true if the error should abort the whole computation.
func (err *Error) Critical() bool { return err.critical }

// ErrDecorate decorates err with the caller's name if err implements
// Decorator. Other errors are returned unchanged. nil is returned as nil.
func ErrDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	var d Decorator
	if errors.As(err, &d) {
		d.Decorate(caller)
	}
	return err
}
