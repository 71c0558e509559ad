// This file is part of intcode - https://github.com/ptillemans/AdventOfCode2019
//
// Copyright 2019 The intcode Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vm

import (
	"context"
	"io"
	"sync"
	"time"
)

// Source is the input endpoint of a VM. The READ instruction calls Take, which
// must block until a value is available, the context is done, or the source
// is exhausted (io.EOF). Values must be returned in the order they were
// supplied.
//
// A Source may return an error for which IsTimeout is true: the VM will retry
// the read.
type Source interface {
	Take(ctx context.Context) (Cell, error)
}

// Sink is the output endpoint of a VM. The WRITE instruction calls Deliver.
// Deliver should not block indefinitely under normal operation, but may apply
// backpressure, in which case the VM is suspended until the value is accepted.
type Sink interface {
	Deliver(ctx context.Context, v Cell) error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (Cell, error)

// Take calls f(ctx).
func (f SourceFunc) Take(ctx context.Context) (Cell, error) { return f(ctx) }

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, v Cell) error

// Deliver calls f(ctx, v).
func (f SinkFunc) Deliver(ctx context.Context, v Cell) error { return f(ctx, v) }

// Channel is a FIFO queue of Cells implementing both Source and Sink. The same
// Channel can therefore be used as the output of one VM and the input of
// another.
//
// By default a Channel is unbounded and Deliver never blocks. All methods are
// safe for concurrent use.
type Channel struct {
	mu       sync.Mutex
	buf      []Cell
	head     int
	closed   bool
	capacity int
	timeout  time.Duration
	changed  chan struct{} // closed and replaced on every state change
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// ChannelCapacity bounds the number of queued values. Deliver blocks while the
// channel is full. A capacity <= 0 means unbounded.
func ChannelCapacity(n int) ChannelOption {
	return func(c *Channel) { c.capacity = n }
}

// ChannelTimeout bounds the time spent waiting in Take. When it expires, Take
// returns ErrTimeout. A timeout <= 0 means no timeout.
func ChannelTimeout(d time.Duration) ChannelOption {
	return func(c *Channel) { c.timeout = d }
}

// NewChannel returns a new, empty Channel.
func NewChannel(opts ...ChannelOption) *Channel {
	c := &Channel{changed: make(chan struct{})}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// broadcast wakes all waiters. c.mu must be held.
func (c *Channel) broadcast() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Channel) len() int { return len(c.buf) - c.head }

// pop removes the head of the queue. c.mu must be held and the queue not empty.
func (c *Channel) pop() Cell {
	v := c.buf[c.head]
	c.buf[c.head] = Cell{}
	c.head++
	if c.head == len(c.buf) {
		c.buf, c.head = c.buf[:0], 0
	} else if c.head > 32 && c.head > len(c.buf)/2 {
		n := copy(c.buf, c.buf[c.head:])
		c.buf, c.head = c.buf[:n], 0
	}
	return v
}

// Take removes and returns the value at the head of the channel, waiting until
// one is available. It returns io.EOF if the channel is closed and empty,
// ErrTimeout if a timeout was configured and expired, or ctx.Err().
func (c *Channel) Take(ctx context.Context) (Cell, error) {
	return c.TakeTimeout(ctx, c.timeout)
}

// TakeTimeout is like Take but waits at most d, regardless of the timeout
// configured for the channel. A duration <= 0 waits forever.
func (c *Channel) TakeTimeout(ctx context.Context, d time.Duration) (Cell, error) {
	var expired <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		expired = t.C
	}
	c.mu.Lock()
	for {
		if c.len() > 0 {
			v := c.pop()
			c.broadcast()
			c.mu.Unlock()
			return v, nil
		}
		if c.closed {
			c.mu.Unlock()
			return Cell{}, io.EOF
		}
		wait := c.changed
		c.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return Cell{}, ctx.Err()
		case <-expired:
			return Cell{}, ErrTimeout
		}
		c.mu.Lock()
	}
}

// Poll removes and returns the value at the head of the channel without
// waiting. It returns false if the channel is empty.
func (c *Channel) Poll() (Cell, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.len() == 0 {
		return Cell{}, false
	}
	v := c.pop()
	c.broadcast()
	return v, true
}

// Deliver appends v to the channel. If the channel has a capacity and is full,
// Deliver waits for space. It returns io.ErrClosedPipe if the channel is
// closed.
func (c *Channel) Deliver(ctx context.Context, v Cell) error {
	return c.Push(ctx, v)
}

// Push appends all values to the channel in a single operation: concurrent
// producers cannot interleave values between them. With a bounded channel,
// Push waits until all values fit, or just until the channel is empty if there
// are more values than the channel capacity.
func (c *Channel) Push(ctx context.Context, vs ...Cell) error {
	c.mu.Lock()
	for {
		if c.closed {
			c.mu.Unlock()
			return io.ErrClosedPipe
		}
		if c.capacity <= 0 || c.len()+len(vs) <= c.capacity || c.len() == 0 {
			break
		}
		wait := c.changed
		c.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.mu.Lock()
	}
	c.buf = append(c.buf, vs...)
	c.broadcast()
	c.mu.Unlock()
	return nil
}

// Send is a convenience function that pushes int64 values to the channel.
func (c *Channel) Send(vs ...int64) error {
	return c.Push(context.Background(), Values(vs...)...)
}

// Len returns the number of queued values.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.len()
}

// Drain removes and returns all queued values.
func (c *Channel) Drain() []Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	vs := make([]Cell, c.len())
	copy(vs, c.buf[c.head:])
	c.buf, c.head = c.buf[:0], 0
	c.broadcast()
	return vs
}

// Close closes the channel. Pending values can still be taken, after which
// Take returns io.EOF. Any blocked Take or Deliver is woken up.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.broadcast()
	}
	return nil
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
