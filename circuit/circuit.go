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

// Package circuit runs chains of Intcode machines, called amplifiers, where
// the output of each machine is wired to the input of the next one.
//
// Every amplifier runs the same program. Its first input value is its phase
// setting, the first amplifier then receives the input signal. In a Series
// circuit the output of the last amplifier is the result. In a Feedback
// circuit it is also wired back to the first amplifier, and the result is the
// last value it writes before all amplifiers halt.
package circuit

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ptillemans/AdventOfCode2019/vm"
)

// ErrNoOutput is returned when the last amplifier halts without writing any
// value.
var ErrNoOutput = errors.New("no output signal")

type config struct {
	log *zap.Logger
}

// Option configures a circuit.
type Option func(*config)

// Logger sets the logger for the circuit and its machines.
func Logger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// Series runs one amplifier per phase setting, each one feeding the next, and
// returns the output signal of the last one.
func Series(ctx context.Context, p vm.Program, phases []int64, signal int64, opts ...Option) (vm.Cell, error) {
	return run(ctx, p, phases, signal, false, opts)
}

// Feedback is like Series, but the output of the last amplifier is also fed
// back into the first one. It returns the last signal written by the last
// amplifier.
func Feedback(ctx context.Context, p vm.Program, phases []int64, signal int64, opts ...Option) (vm.Cell, error) {
	return run(ctx, p, phases, signal, true, opts)
}

func name(k int) string {
	if k < 26 {
		return "amp" + string(rune('A'+k))
	}
	return "amp" + vm.Int(int64(k)).String()
}

func run(ctx context.Context, p vm.Program, phases []int64, signal int64, feedback bool, opts []Option) (vm.Cell, error) {
	cfg := config{log: vm.DefaultLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	n := len(phases)
	if n == 0 {
		return vm.Cell{}, errors.New("circuit: no amplifiers")
	}

	// inputs[k] is the input of amplifier k
	inputs := make([]*vm.Channel, n)
	for k, ph := range phases {
		inputs[k] = vm.NewChannel()
		inputs[k].Send(ph)
	}
	inputs[0].Send(signal)

	result := vm.NewRecorder(nil)
	if feedback {
		result.Next = inputs[0]
	} else {
		inputs[0].Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	for k := range phases {
		var out vm.Sink = result
		if k < n-1 {
			out = inputs[k+1]
		}
		// downstream of the last amplifier is the first one in a feedback
		// loop. In series its input is already closed.
		next := inputs[(k+1)%n]
		i, err := vm.New(p, vm.Input(inputs[k]), vm.Output(out), vm.Name(name(k)), vm.Logger(cfg.log))
		if err != nil {
			return vm.Cell{}, err
		}
		g.Go(func() error {
			err := i.Run(gctx)
			if err == nil {
				// downstream gets io.EOF instead of waiting forever. On error
				// it is stopped by the cancellation of gctx.
				next.Close()
			}
			if err == io.EOF {
				return errors.Errorf("%s: input exhausted", i.Name())
			}
			return errors.Wrap(err, i.Name())
		})
	}
	if err := g.Wait(); err != nil {
		return vm.Cell{}, err
	}

	v, ok := result.Last()
	if !ok {
		return vm.Cell{}, ErrNoOutput
	}
	cfg.log.Debug("circuit done",
		zap.Int("amplifiers", n),
		zap.Bool("feedback", feedback),
		zap.Stringer("signal", v))
	return v, nil
}

// Best tries every permutation of phases and returns the highest output signal
// along with the phase settings that produced it.
func Best(ctx context.Context, p vm.Program, phases []int64, feedback bool, opts ...Option) (best vm.Cell, order []int64, err error) {
	found := false
	perm := append([]int64(nil), phases...)
	err = permute(perm, len(perm), func(ph []int64) error {
		v, err := run(ctx, p, ph, 0, feedback, opts)
		if err != nil {
			return errors.Wrapf(err, "phases %v", ph)
		}
		if !found || v.Cmp(best) > 0 {
			best, found = v, true
			order = append(order[:0], ph...)
		}
		return nil
	})
	return best, order, err
}

// permute calls fn for every permutation of the first k elements of a, using
// Heap's algorithm.
func permute(a []int64, k int, fn func([]int64) error) error {
	if k <= 1 {
		return fn(a)
	}
	for i := 0; i < k-1; i++ {
		if err := permute(a, k-1, fn); err != nil {
			return err
		}
		if k%2 == 0 {
			a[i], a[k-1] = a[k-1], a[i]
		} else {
			a[0], a[k-1] = a[k-1], a[0]
		}
	}
	return permute(a, k-1, fn)
}
