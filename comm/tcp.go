/*
 * tcp.go, part of trajstat.
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
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	mailboxSize   = 16
	helloTimeout  = 10 * time.Second
	retryInterval = 200 * time.Millisecond
)

// peer is the connection between the coordinator and one worker, seen from either end.
// A goroutine reads the incoming frames and dispatches messages to a mailbox per tag and
// acknowledgements to acks.
type peer struct {
	rank int
	conn net.Conn
	log  *zap.Logger

	wmu sync.Mutex //frame writes
	smu sync.Mutex //one Send in flight

	mu      sync.Mutex
	mailbox map[int]chan *envelope

	acks chan struct{}
	done chan struct{}
	err  error //valid after done is closed
}

func newPeer(rank int, conn net.Conn, log *zap.Logger) *peer {
	p := &peer{
		rank:    rank,
		conn:    conn,
		log:     log,
		mailbox: make(map[int]chan *envelope),
		acks:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.readLoop()
	return p
}

func (p *peer) box(tag int) chan *envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.mailbox[tag]
	if !ok {
		ch = make(chan *envelope, mailboxSize)
		p.mailbox[tag] = ch
	}
	return ch
}

func (p *peer) readLoop() {
	defer close(p.done)
	for {
		e, err := readFrame(p.conn)
		if err != nil {
			p.err = err
			return
		}
		switch e.Kind {
		case kindMsg:
			e.Source = p.rank
			p.box(e.Tag) <- e
		case kindAck:
			p.acks <- struct{}{}
		default:
			p.err = &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unexpected %q frame from rank %d", e.Kind, p.rank)}
			p.conn.Close()
			return
		}
	}
}

func (p *peer) write(e *envelope) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return writeFrame(p.conn, e)
}

// closedErr returns the reason why the connection is no longer usable.
func (p *peer) closedErr() error {
	if p.err == nil {
		return fmt.Errorf("comm: connection with rank %d closed", p.rank)
	}
	return fmt.Errorf("comm: connection with rank %d: %w", p.rank, p.err)
}

// send writes m and waits for the acknowledgement. If ctx is done first, the
// connection is closed, as the stream state is no longer known.
func (p *peer) send(ctx context.Context, source, tag int, m *Message) error {
	p.smu.Lock()
	defer p.smu.Unlock()
	stop := context.AfterFunc(ctx, func() { p.conn.Close() })
	defer stop()
	err := p.write(&envelope{Kind: kindMsg, Source: source, Tag: tag, Shape: m.Shape, Data: m.Data})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	select {
	case <-p.acks:
		return nil
	case <-p.done:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return p.closedErr()
	}
}

// recv waits for a message with the given tag and acknowledges it.
func (p *peer) recv(ctx context.Context, tag int) (*Message, error) {
	stop := context.AfterFunc(ctx, func() { p.conn.Close() })
	defer stop()
	box := p.box(tag)
	var e *envelope
	select {
	case e = <-box:
	case <-p.done:
		//the peer may have closed after the frame was read
		select {
		case e = <-box:
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, p.closedErr()
		}
	}
	if err := p.write(&envelope{Kind: kindAck, Source: e.Source, Tag: tag}); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return e.message(), nil
}

// TCP is a communicator where every worker is connected to the coordinator,
// rank 0, through a TCP connection. Only messages between the coordinator and
// a worker are supported. A cancelled Send or Recv closes the connection involved.
type TCP struct {
	rank  int
	size  int
	peers map[int]*peer
	log   *zap.Logger
}

func (T *TCP) Rank() int { return T.rank }

func (T *TCP) Size() int { return T.size }

func (T *TCP) peer(other int, op string) (*peer, error) {
	if err := checkPeer(T, other, op); err != nil {
		return nil, err
	}
	p, ok := T.peers[other]
	if !ok {
		return nil, fmt.Errorf("comm: %s: rank %d has no connection with rank %d, only the coordinator (rank 0) can talk to the workers", op, T.rank, other)
	}
	return p, nil
}

func (T *TCP) Send(ctx context.Context, dest, tag int, m *Message) error {
	p, err := T.peer(dest, "Send")
	if err != nil {
		return err
	}
	T.log.Debug("sending message", zap.Int("rank", T.rank), zap.Int("dest", dest), zap.Int("tag", tag), zap.Ints("shape", m.Shape))
	return p.send(ctx, T.rank, tag, m)
}

func (T *TCP) Recv(ctx context.Context, source, tag int) (*Message, error) {
	p, err := T.peer(source, "Recv")
	if err != nil {
		return nil, err
	}
	m, err := p.recv(ctx, tag)
	if err != nil {
		return nil, err
	}
	T.log.Debug("received message", zap.Int("rank", T.rank), zap.Int("source", source), zap.Int("tag", tag), zap.Ints("shape", m.Shape))
	return m, nil
}

// Close closes all the connections of the communicator.
func (T *TCP) Close() error {
	var errs []error
	for _, p := range T.peers {
		if err := p.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Listener accepts the connections of the workers on the coordinator.
type Listener struct {
	ln  net.Listener
	log *zap.Logger
}

// Listen starts listening on addr (for instance ":7440" or "127.0.0.1:0").
// log can be nil.
func Listen(ctx context.Context, addr string, log *zap.Logger) (*Listener, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("comm: listening on %s: %w", addr, err)
	}
	return &Listener{ln: ln, log: log}, nil
}

// Addr returns the address the listener is bound to.
func (L *Listener) Addr() string {
	return L.ln.Addr().String()
}

// Close stops listening. Communicators already returned by Accept are not affected.
func (L *Listener) Close() error {
	return L.ln.Close()
}

// joining is an incoming connection whose hello frame has been read.
type joining struct {
	conn net.Conn
	rank int
	err  error
}

// Accept blocks until the size-1 workers of the group have connected, and returns
// the communicator of the coordinator. Each connection says hello on its own
// goroutine, so a peer that connects but stays silent delays no one else.
// Connections with an invalid or repeated rank are rejected, and Accept keeps
// waiting. If ctx is done first, the listener is closed and all the accepted
// connections are dropped.
func (L *Listener) Accept(ctx context.Context, size int) (*TCP, error) {
	if size < 1 {
		return nil, fmt.Errorf("comm: Accept: invalid group size %d", size)
	}
	T := &TCP{rank: 0, size: size, peers: make(map[int]*peer), log: L.log}
	if size == 1 {
		return T, nil
	}
	stop := context.AfterFunc(ctx, func() { L.ln.Close() })
	defer stop()

	joins := make(chan joining)
	done := make(chan struct{})
	var mu sync.Mutex
	inflight := make(map[net.Conn]struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := L.ln.Accept()
			if err != nil {
				select {
				case joins <- joining{err: err}:
				case <-done:
				}
				return
			}
			mu.Lock()
			inflight[conn] = struct{}{}
			mu.Unlock()
			go func() {
				rank, err := L.hello(conn, size)
				mu.Lock()
				delete(inflight, conn)
				mu.Unlock()
				select {
				case joins <- joining{conn: conn, rank: rank, err: err}:
				case <-done:
					conn.Close()
				}
			}()
		}
	}()
	defer func() {
		close(done)
		//stop the accepting goroutine, but leave the listener open
		if d, ok := L.ln.(interface{ SetDeadline(time.Time) error }); ok {
			d.SetDeadline(time.Unix(1, 0))
			wg.Wait()
			d.SetDeadline(time.Time{})
		}
		mu.Lock()
		for conn := range inflight {
			conn.Close()
		}
		mu.Unlock()
	}()

	for len(T.peers) < size-1 {
		var j joining
		select {
		case j = <-joins:
		case <-ctx.Done():
			T.Close()
			return nil, ctx.Err()
		}
		if j.conn == nil {
			T.Close()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("comm: Accept: %w", j.err)
		}
		if j.err == nil {
			j.err = L.welcome(j, T)
		}
		if j.err != nil {
			L.log.Warn("rejected connection", zap.String("remote", j.conn.RemoteAddr().String()), zap.Error(j.err))
			j.conn.Close()
			continue
		}
		T.peers[j.rank] = newPeer(j.rank, j.conn, L.log)
		L.log.Debug("worker connected", zap.Int("rank", j.rank), zap.Int("connected", len(T.peers)), zap.Int("size", size))
	}
	return T, nil
}

// hello reads the hello frame of a new connection and checks it against a group
// of the given size. Invalid requests are answered with a reject frame.
func (L *Listener) hello(conn net.Conn, size int) (int, error) {
	conn.SetDeadline(time.Now().Add(helloTimeout))
	hello, err := readFrame(conn)
	if err != nil {
		return 0, err
	}
	var reason string
	switch {
	case hello.Kind != kindHello:
		reason = fmt.Sprintf("expected a hello frame, got %q", hello.Kind)
	case hello.Size != size:
		reason = fmt.Sprintf("worker expects a group of %d ranks, the coordinator has %d", hello.Size, size)
	case hello.Source < 1 || hello.Source >= size:
		reason = fmt.Sprintf("rank %d out of range [1,%d)", hello.Source, size)
	}
	if reason != "" {
		writeFrame(conn, &envelope{Kind: kindReject, Err: reason})
		return 0, errors.New(reason)
	}
	return hello.Source, nil
}

// welcome admits the worker in j into T, unless its rank is already taken.
func (L *Listener) welcome(j joining, T *TCP) error {
	j.conn.SetDeadline(time.Now().Add(helloTimeout))
	defer j.conn.SetDeadline(time.Time{})
	if T.peers[j.rank] != nil {
		reason := fmt.Sprintf("rank %d already connected", j.rank)
		writeFrame(j.conn, &envelope{Kind: kindReject, Err: reason})
		return errors.New(reason)
	}
	return writeFrame(j.conn, &envelope{Kind: kindWelcome, Size: T.size})
}

// Dial connects the worker with the given rank to the coordinator listening on addr,
// and returns the worker's communicator. If the coordinator is not yet listening, Dial
// keeps retrying until ctx is done. log can be nil.
func Dial(ctx context.Context, addr string, rank, size int, log *zap.Logger) (*TCP, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if rank < 1 || rank >= size {
		return nil, fmt.Errorf("comm: Dial: worker rank %d out of range [1,%d)", rank, size)
	}
	var d net.Dialer
	var conn net.Conn
	var err error
	for {
		conn, err = d.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
		log.Debug("coordinator not reachable, retrying", zap.String("addr", addr), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("comm: Dial %s: %w", addr, err)
		case <-time.After(retryInterval):
		}
	}
	conn.SetDeadline(time.Now().Add(helloTimeout))
	if err := writeFrame(conn, &envelope{Kind: kindHello, Source: rank, Size: size}); err != nil {
		conn.Close()
		return nil, err
	}
	reply, err := readFrame(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("comm: Dial %s: no reply from the coordinator: %w", addr, err)
	}
	if reply.Kind != kindWelcome {
		conn.Close()
		return nil, fmt.Errorf("comm: Dial %s: rejected by the coordinator: %s", addr, reply.Err)
	}
	conn.SetDeadline(time.Time{})
	log.Debug("connected to coordinator", zap.Int("rank", rank), zap.String("addr", addr))
	return &TCP{rank: rank, size: size, peers: map[int]*peer{0: newPeer(0, conn, log)}, log: log}, nil
}
