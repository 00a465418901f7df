/*
 * comm.go, part of trajstat.
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

// Package comm implements the point-to-point communication between the ranks of
// a parallel job. Two communicators are provided: Group, where the ranks are goroutines
// in one process, and TCP, where they are separate processes connected to the coordinator
// (rank 0) through TCP. Sends and receives are blocking and tagged.
package comm

import (
	"context"
	"fmt"
)

// Communicator is a fixed-size group of ranks, seen from one of them.
type Communicator interface {
	//Rank of the caller, in [0,Size())
	Rank() int
	//Number of ranks in the group
	Size() int
	//Send sends m to the rank dest with the given tag. It blocks until
	//the message has been received, or ctx is done.
	Send(ctx context.Context, dest, tag int, m *Message) error
	//Recv blocks until a message with the given tag arrives from source, or ctx is done.
	Recv(ctx context.Context, source, tag int) (*Message, error)
}

// Message is an array of float64 with its shape, in row-major order.
type Message struct {
	Source int       `msgpack:"source"`
	Tag    int       `msgpack:"tag"`
	Shape  []int     `msgpack:"shape"`
	Data   []float64 `msgpack:"data"`
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	return &Message{
		Source: m.Source,
		Tag:    m.Tag,
		Shape:  append([]int(nil), m.Shape...),
		Data:   append([]float64(nil), m.Data...),
	}
}

func checkPeer(c Communicator, peer int, op string) error {
	if peer < 0 || peer >= c.Size() {
		return fmt.Errorf("comm: %s: rank %d out of range [0,%d)", op, peer, c.Size())
	}
	if peer == c.Rank() {
		return fmt.Errorf("comm: %s: rank %d can't communicate with itself", op, peer)
	}
	return nil
}
