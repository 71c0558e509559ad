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
	"sync"
)

// Recorder is a Sink that records every delivered value. If Next is not nil,
// values are forwarded to it after being recorded.
type Recorder struct {
	Next Sink

	mu     sync.Mutex
	values []Cell
}

// NewRecorder returns a Recorder forwarding to next, which may be nil.
func NewRecorder(next Sink) *Recorder {
	return &Recorder{Next: next}
}

// Deliver implements Sink.
func (r *Recorder) Deliver(ctx context.Context, v Cell) error {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	if r.Next != nil {
		return r.Next.Deliver(ctx, v)
	}
	return nil
}

// Values returns a copy of the recorded values.
func (r *Recorder) Values() []Cell {
	r.mu.Lock()
	defer r.mu.Unlock()
	vs := make([]Cell, len(r.values))
	copy(vs, r.values)
	return vs
}

// Last returns the last recorded value and false if nothing was recorded.
func (r *Recorder) Last() (Cell, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return Cell{}, false
	}
	return r.values[len(r.values)-1], true
}

// Reset discards the recorded values.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.values = nil
	r.mu.Unlock()
}

// Replay returns a closed Channel pre-filled with the given values. Once they
// have been consumed, Take returns io.EOF.
func Replay(vs ...Cell) *Channel {
	c := NewChannel()
	c.Push(context.Background(), vs...)
	c.Close()
	return c
}

type teeSink []Sink

func (t teeSink) Deliver(ctx context.Context, v Cell) error {
	for _, s := range t {
		if err := s.Deliver(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// Tee returns a Sink that delivers every value to each of sinks in turn. It
// stops at the first error.
func Tee(sinks ...Sink) Sink {
	return teeSink(sinks)
}
