/*
 * driver.go, part of trajstat.
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

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rmera/trajstat"
	"github.com/rmera/trajstat/comm"
	v3 "github.com/rmera/trajstat/v3"
	"go.uber.org/zap"
)

// ErrState is the kind of the errors returned when the phases of a driver
// are called out of order.
var ErrState = errors.New("driver phase called out of order")

// State is the phase a driver is in.
type State int

const (
	StateNew State = iota
	StateInitialized
	StateRunning
	StateRan
	StateGathering
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateRan:
		return "ran"
	case StateGathering:
		return "gathering"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Driver evaluates an observable on the frames of one rank and takes part in
// the gathering of the results. The three phases must be called in order, once.
type Driver interface {
	//Init computes the timesteps of the rank and allocates its result buffer.
	Init() error
	//Run evaluates the observable on each timestep of the rank. It never
	//waits for other ranks.
	Run(ctx context.Context) error
	//Communicate sends the results to the coordinator or, on the coordinator,
	//receives the results of all the other ranks, in rank order.
	Communicate(ctx context.Context) error
}

// Gatherer is a Driver that gives access to the gathered results.
type Gatherer interface {
	Driver
	//Result returns the gathered results on the coordinator, after Communicate.
	//It returns nil on the other ranks, and if the gathering failed.
	Result() *Buffer
}

// Execute runs the phases of d in order.
func Execute(ctx context.Context, d Driver) error {
	if err := d.Init(); err != nil {
		return err
	}
	if err := d.Run(ctx); err != nil {
		return err
	}
	return d.Communicate(ctx)
}

// base contains the machinery shared by the drivers. The variants only
// differ in where the frames come from.
type base struct {
	comm   comm.Communicator
	obs    trajstat.Observable
	log    *zap.Logger
	total  int
	stride int
	offset int

	//fetch returns the positions of the given timestep
	fetch func(ts int) (*v3.Matrix, error)

	state     State
	spec      Spec
	timesteps []int
	buffer    *Buffer
	result    *Buffer
}

func newBase(c comm.Communicator, obs trajstat.Observable, total int, O *Options) base {
	return base{
		comm:   c,
		obs:    obs,
		log:    O.Logger().With(zap.Int("rank", c.Rank())),
		total:  total,
		stride: O.Stride(),
		offset: O.Offset(),
	}
}

func (b *base) stateErr(op string, want State) error {
	return trajstat.Errorf(ErrState, op, "the driver must be %s, but it is %s", want, b.state)
}

// State returns the current phase of the driver.
func (b *base) State() State { return b.state }

// Timesteps returns the timesteps assigned to this rank, after Init.
func (b *base) Timesteps() []int { return b.timesteps }

// Local returns the results of this rank, after Run.
func (b *base) Local() *Buffer { return b.buffer }

// Result returns the gathered results on the coordinator, once Communicate is done.
func (b *base) Result() *Buffer {
	if b.state != StateDone {
		return nil
	}
	return b.result
}

func (b *base) Init() error {
	if b.state != StateNew {
		return b.stateErr("Init", StateNew)
	}
	b.spec = Spec{Total: b.total, Workers: b.comm.Size(), Stride: b.stride, Offset: b.offset}
	ts, err := Partition(b.comm.Rank(), b.spec)
	if err != nil {
		b.state = StateFailed
		return trajstat.ErrDecorate(err, "Init")
	}
	shape := b.obs.Shape()
	for _, v := range shape {
		if v < 1 {
			b.state = StateFailed
			return trajstat.Errorf(trajstat.ErrInvalidInput, "Init", "invalid observable shape %v", shape)
		}
	}
	b.timesteps = ts
	b.buffer = NewBuffer(append([]int{len(ts)}, shape...)...)
	b.state = StateInitialized
	if len(ts) > 0 {
		b.log.Debug("rank initialized", zap.Int("first", ts[0]), zap.Int("last", ts[len(ts)-1]), zap.Int("frames", len(ts)), zap.Ints("buffer_shape", b.buffer.Shape))
	} else {
		b.log.Debug("rank initialized with no frames", zap.Ints("buffer_shape", b.buffer.Shape))
	}
	return nil
}

func (b *base) Run(ctx context.Context) error {
	if b.state != StateInitialized {
		return b.stateErr("Run", StateInitialized)
	}
	b.state = StateRunning
	for j, t := range b.timesteps {
		if err := ctx.Err(); err != nil {
			b.state = StateFailed
			return err
		}
		frame, err := b.fetch(t)
		if err == nil {
			err = b.obs.Eval(frame, b.buffer.Row(j))
		}
		if err != nil {
			b.state = StateFailed
			return fmt.Errorf("rank %d, timestep %d: %w", b.comm.Rank(), t, err)
		}
	}
	b.state = StateRan
	b.log.Debug("rank finished run", zap.Int("frames", len(b.timesteps)))
	return nil
}

func (b *base) Communicate(ctx context.Context) error {
	if b.state != StateRan {
		return b.stateErr("Communicate", StateRan)
	}
	b.state = StateGathering
	rank := b.comm.Rank()
	if rank != 0 {
		m := &comm.Message{Shape: b.buffer.Shape, Data: b.buffer.Data}
		if err := b.comm.Send(ctx, 0, rank, m); err != nil {
			b.state = StateFailed
			return fmt.Errorf("rank %d sending results: %w", rank, err)
		}
		b.log.Debug("results sent", zap.Ints("shape", b.buffer.Shape))
		b.state = StateDone
		return nil
	}
	sizes, err := b.spec.Sizes()
	if err != nil {
		b.state = StateFailed
		return trajstat.ErrDecorate(err, "Communicate")
	}
	shape := b.obs.Shape()
	total := 0
	for _, v := range sizes {
		total += v
	}
	result := &Buffer{Shape: append([]int{total}, shape...)}
	result.Data = make([]float64, 0, trajstat.Size(result.Shape))
	result.Data = append(result.Data, b.buffer.Data...)
	for r := 1; r < b.comm.Size(); r++ {
		m, err := b.comm.Recv(ctx, r, r)
		if err != nil {
			b.state = StateFailed
			return fmt.Errorf("coordinator receiving from rank %d: %w", r, err)
		}
		expected := append([]int{sizes[r]}, shape...)
		if !slices.Equal(m.Shape, expected) || len(m.Data) != trajstat.Size(expected) {
			b.state = StateFailed
			b.log.Error("protocol shape mismatch", zap.Int("source", r), zap.Ints("shape", m.Shape), zap.Int("elements", len(m.Data)), zap.Ints("expected", expected))
			return trajstat.Errorf(trajstat.ErrProtocolShape, "Communicate", "rank %d sent shape %v (%d elements), expected %v", r, m.Shape, len(m.Data), expected)
		}
		b.log.Debug("results received", zap.Int("source", r), zap.Ints("shape", m.Shape))
		result.Data = append(result.Data, m.Data...)
	}
	b.result = result
	b.state = StateDone
	b.log.Debug("gather complete", zap.Ints("shape", result.Shape))
	return nil
}

// Trajectory is the driver for a trajectory source, whose positions are
// resolved to particle id order and, by default, unwrapped.
type Trajectory struct {
	base
	src    trajstat.Source
	folded bool
	frame  *v3.Matrix
}

// NewTrajectory returns a driver that evaluates obs on the frames of src, as one rank of c.
func NewTrajectory(c comm.Communicator, src trajstat.Source, obs trajstat.Observable, opts ...*Options) *Trajectory {
	O := getOptions(opts)
	T := &Trajectory{base: newBase(c, obs, src.NFrames(), O), src: src, folded: O.Folded()}
	T.frame = v3.Zeros(src.Len())
	T.fetch = func(ts int) (*v3.Matrix, error) {
		if err := T.src.Positions(ts, T.folded, T.frame); err != nil {
			return nil, err
		}
		return T.frame, nil
	}
	return T
}

// Frames is the driver for frames already in memory, with the particles in
// their canonical order.
type Frames struct {
	base
	frames []*v3.Matrix
}

// NewFrames returns a driver that evaluates obs on the given frames, as one rank of c.
func NewFrames(c comm.Communicator, frames []*v3.Matrix, obs trajstat.Observable, opts ...*Options) *Frames {
	O := getOptions(opts)
	F := &Frames{base: newBase(c, obs, len(frames), O), frames: frames}
	F.fetch = func(ts int) (*v3.Matrix, error) {
		return F.frames[ts], nil
	}
	return F
}
