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

package network

import (
	"context"
	"sync/atomic"

	"github.com/ptillemans/AdventOfCode2019/vm"
)

// node is both the input and the output endpoint of a network machine.
type node struct {
	addr  int
	net   *Network
	vm    *vm.Instance
	inbox *vm.Channel

	polls   atomic.Int32 // consecutive empty polls
	pending atomic.Int32 // values of an incomplete outgoing packet
	out     [3]vm.Cell
}

var noPacket = vm.Int(-1)

// Take implements vm.Source. It returns -1 if no value arrives in time.
func (n *node) Take(ctx context.Context) (vm.Cell, error) {
	v, err := n.inbox.TakeTimeout(ctx, n.net.poll)
	if err == vm.ErrTimeout {
		n.polls.Add(1)
		return noPacket, nil
	}
	if err == nil {
		n.polls.Store(0)
	}
	return v, err
}

// Deliver implements vm.Sink. Values are grouped in packets of three.
func (n *node) Deliver(ctx context.Context, v vm.Cell) error {
	n.polls.Store(0)
	k := n.pending.Load()
	n.out[k] = v
	if k < 2 {
		n.pending.Store(k + 1)
		return nil
	}
	p := Packet{Src: n.addr, Dst: n.out[0], X: n.out[1], Y: n.out[2]}
	err := n.net.route(ctx, p)
	n.pending.Store(0)
	return err
}
