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

package stf

import (
	"errors"
	"fmt"

	"github.com/rmera/trajstat"
)

// Error is the general structure for STF trajectory errors. It implements trajstat.Decorator.
// Format errors wrap trajstat.ErrInvalidInput.
type Error struct {
	message  string
	filename string //the file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func newError(message, filename, caller string) *Error {
	return &Error{message: message, filename: filename, deco: []string{caller}, critical: true}
}

func (err *Error) Error() string {
	return fmt.Sprintf("stf file %s error: %s", err.filename, err.message)
}

// Decorate adds new information to the error
func (err *Error) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// FileName returns the file to which the failing trajectory was associated
func (err *Error) FileName() string { return err.filename }

// Critical returns true if the error is critical, false otherwise
func (err *Error) Critical() bool { return err.critical }

// Unwrap returns trajstat.ErrInvalidInput, as all STF errors come from unusable files or frames.
func (err *Error) Unwrap() error { return trajstat.ErrInvalidInput }

const (
	trajUnIniRead  = "Traj object uninitialized to read"
	trajUnIniWrite = "Traj object uninitialized to write"
	nilCoordinates = "Given nil coordinates"
)

// LastFrameError is returned by Next when the trajectory has no more frames.
// It is not an actual error.
type LastFrameError struct {
	deco     []string
	fileName string
}

// NormalLastFrameTermination does nothing, it marks the type.
func (E *LastFrameError) NormalLastFrameTermination() {}

func (E *LastFrameError) FileName() string { return E.fileName }

func (E *LastFrameError) Error() string { return "EOF" }

func (E *LastFrameError) Critical() bool { return false }

func (E *LastFrameError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newLastFrameError(filename string, caller string) *LastFrameError {
	return &LastFrameError{fileName: filename, deco: []string{caller}}
}

// IsLastFrame returns true if err signals the normal end of a trajectory.
func IsLastFrame(err error) bool {
	var l *LastFrameError
	return errors.As(err, &l)
}
