/*
 * group.go, part of trajstat.
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
	"context"
	"sync"
)

type route struct {
	source, dest, tag int
}

// Group is a set of ranks living in the same process, typically one goroutine each.
// Each (source, destination, tag) triplet gets its own unbuffered channel, so a Send
// only returns once the matching Recv has taken the message. Messages are copied, the
// ranks never share memory.
type Group struct {
	size   int
	mu     sync.Mutex
	routes map[route]chan *Message
}

// NewGroup returns a group of size ranks. It panics if size < 1.
func NewGroup(size int) *Group {
	if size < 1 {
		panic("comm.NewGroup: a group needs at least one rank")
	}
	return &Group{size: size, routes: make(map[route]chan *Message)}
}

// Size returns the number of ranks in the group.
func (G *Group) Size() int { return G.size }

// Comm returns the communicator for the given rank.
func (G *Group) Comm(rank int) Communicator {
	if rank < 0 || rank >= G.size {
		panic("comm.Group.Comm: rank out of range")
	}
	return &groupComm{g: G, rank: rank}
}

func (G *Group) channel(r route) chan *Message {
	G.mu.Lock()
	defer G.mu.Unlock()
	ch, ok := G.routes[r]
	if !ok {
		ch = make(chan *Message)
		G.routes[r] = ch
	}
	return ch
}

type groupComm struct {
	g    *Group
	rank int
}

func (C *groupComm) Rank() int { return C.rank }

func (C *groupComm) Size() int { return C.g.size }

func (C *groupComm) Send(ctx context.Context, dest, tag int, m *Message) error {
	if err := checkPeer(C, dest, "Send"); err != nil {
		return err
	}
	out := m.Clone()
	out.Source = C.rank
	out.Tag = tag
	select {
	case C.g.channel(route{C.rank, dest, tag}) <- out:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (C *groupComm) Recv(ctx context.Context, source, tag int) (*Message, error) {
	if err := checkPeer(C, source, "Recv"); err != nil {
		return nil, err
	}
	select {
	case m := <-C.g.channel(route{source, C.rank, tag}):
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
