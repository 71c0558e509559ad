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

// Package network runs a packet switched network of Intcode machines.
//
// Every node of the network runs the same program. The first value a node
// reads is its network address, from 0 to size-1. After that, it receives
// packets as pairs of X and Y values. When no packet is waiting, a read returns
// -1 after a short poll. A node sends a packet by writing three values: the
// destination address, X and Y.
//
// Packets sent to address 255 go to the NAT, which keeps only the last one.
// When the whole network is idle, that is all inboxes are empty and every node
// has polled its empty inbox several times in a row, the NAT sends its packet
// to node 0 to wake the network up.
package network

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ptillemans/AdventOfCode2019/vm"
)

// NATAddress is the network address of the NAT.
const NATAddress = 255

// Default timings.
const (
	DefaultPollTimeout   = time.Millisecond
	DefaultIdleThreshold = 3
)

// Packet is a network packet.
type Packet struct {
	Src  int // address of the sender, -1 for the NAT
	Dst  vm.Cell
	X, Y vm.Cell
}

func (p Packet) String() string {
	return fmt.Sprintf("%d->%v (%v, %v)", p.Src, p.Dst, p.X, p.Y)
}

// EventType is the type of a network Event.
type EventType int

// Event types.
const (
	NATReceived   EventType = iota // the NAT received a packet
	NATWake                        // the NAT sent its packet to node 0
	Undeliverable                  // a packet was sent to a non existing address
)

func (t EventType) String() string {
	switch t {
	case NATReceived:
		return "NAT received"
	case NATWake:
		return "NAT wake"
	case Undeliverable:
		return "undeliverable"
	}
	return "unknown"
}

// Event is a notable network event.
type Event struct {
	Type   EventType
	Packet Packet
}

// Network is a network of Intcode machines. The nodes of a Network are owned by
// it and only reachable through it.
type Network struct {
	nodes   []*node
	log     *zap.Logger
	poll    time.Duration
	idleMin int32
	events  chan Event

	mu     sync.Mutex // guards nat and hasNat
	nat    Packet
	hasNat bool
}

// Option configures a Network.
type Option func(*Network) error

// Logger sets the logger of the network and its machines.
func Logger(l *zap.Logger) Option {
	return func(n *Network) error {
		if l == nil {
			l = zap.NewNop()
		}
		n.log = l
		return nil
	}
}

// PollTimeout sets how long a node waits for a packet before reading -1.
func PollTimeout(d time.Duration) Option {
	return func(n *Network) error {
		if d <= 0 {
			return errors.Errorf("invalid poll timeout %v", d)
		}
		n.poll = d
		return nil
	}
}

// IdleThreshold sets the number of consecutive empty polls after which a node
// is considered idle.
func IdleThreshold(polls int) Option {
	return func(n *Network) error {
		if polls < 1 {
			return errors.Errorf("invalid idle threshold %d", polls)
		}
		n.idleMin = int32(polls)
		return nil
	}
}

// New creates a network of size nodes, all running program p. The size must be
// between 1 and 255.
func New(p vm.Program, size int, opts ...Option) (*Network, error) {
	if size < 1 || size > NATAddress {
		return nil, errors.Errorf("invalid network size %d", size)
	}
	nw := &Network{
		log:     vm.DefaultLogger(),
		poll:    DefaultPollTimeout,
		idleMin: DefaultIdleThreshold,
		events:  make(chan Event, 64),
	}
	for _, opt := range opts {
		if err := opt(nw); err != nil {
			return nil, err
		}
	}
	nw.nodes = make([]*node, size)
	for addr := range nw.nodes {
		n := &node{addr: addr, net: nw, inbox: vm.NewChannel()}
		n.inbox.Send(int64(addr))
		i, err := vm.New(p, vm.Input(n), vm.Output(n),
			vm.Name(fmt.Sprintf("node%d", addr)), vm.Logger(nw.log))
		if err != nil {
			return nil, err
		}
		n.vm = i
		nw.nodes[addr] = n
	}
	return nw, nil
}

// Size returns the number of nodes.
func (nw *Network) Size() int { return len(nw.nodes) }

// Instance returns the machine at address addr.
func (nw *Network) Instance(addr int) *vm.Instance { return nw.nodes[addr].vm }

// NAT returns the last packet received by the NAT and false if it never
// received any.
func (nw *Network) NAT() (Packet, bool) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	return nw.nat, nw.hasNat
}

// Run boots all nodes and runs the network until handler returns true, every
// node has halted, or ctx is done. The handler is called from a single
// goroutine for every Event and may be nil.
//
// Run returns nil when stopped by the handler or when all nodes halted, the
// error of the first failing node, or ctx.Err().
func (nw *Network) Run(ctx context.Context, handler func(Event) bool) error {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	running := int32(len(nw.nodes))
	halted := make(chan struct{})
	for _, n := range nw.nodes {
		g.Go(func() error {
			err := n.vm.Run(runCtx)
			if atomic.AddInt32(&running, -1) == 0 {
				close(halted)
			}
			if err != nil && runCtx.Err() != nil {
				// shutting down
				return nil
			}
			return errors.Wrap(err, n.vm.Name())
		})
	}

	g.Go(func() error {
		tick := time.NewTicker(nw.poll)
		defer tick.Stop()
		var lastY vm.Cell
		var woken bool
		for {
			select {
			case <-runCtx.Done():
				return nil
			case <-halted:
				nw.log.Info("all nodes halted")
				stop()
				return nil
			case ev := <-nw.events:
				if handler != nil && handler(ev) {
					nw.log.Debug("network stopped by handler", zap.Stringer("event", ev.Type))
					stop()
					return nil
				}
			case <-tick.C:
				p, ok := nw.NAT()
				if !ok || !nw.idle() {
					continue
				}
				if woken && p.Y.Equal(lastY) {
					nw.log.Warn("NAT sent duplicate Y", zap.Stringer("y", p.Y))
				}
				lastY, woken = p.Y, true
				p.Src, p.Dst = -1, vm.Int(0)
				nw.log.Debug("NAT wake", zap.Stringer("packet", p))
				if err := nw.nodes[0].inbox.Push(runCtx, p.X, p.Y); err != nil {
					return nil
				}
				if handler != nil && handler(Event{Type: NATWake, Packet: p}) {
					stop()
					return nil
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// idle reports whether the whole network is idle.
func (nw *Network) idle() bool {
	for _, n := range nw.nodes {
		if n.inbox.Len() > 0 || n.pending.Load() > 0 || n.polls.Load() < nw.idleMin {
			return false
		}
	}
	return true
}

// route delivers a packet sent by a node.
func (nw *Network) route(ctx context.Context, p Packet) error {
	dst, ok := p.Dst.Int64()
	switch {
	case ok && dst >= 0 && dst < int64(len(nw.nodes)):
		return nw.nodes[dst].inbox.Push(ctx, p.X, p.Y)
	case ok && dst == NATAddress:
		nw.mu.Lock()
		nw.nat, nw.hasNat = p, true
		nw.mu.Unlock()
		nw.log.Debug("NAT received", zap.Stringer("packet", p))
		return nw.emit(ctx, Event{Type: NATReceived, Packet: p})
	default:
		nw.log.Warn("undeliverable packet", zap.Stringer("packet", p))
		return nw.emit(ctx, Event{Type: Undeliverable, Packet: p})
	}
}

func (nw *Network) emit(ctx context.Context, ev Event) error {
	select {
	case nw.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
