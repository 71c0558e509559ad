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
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ptillemans/AdventOfCode2019/internal/errw"
)

// State is the run state of an Instance.
type State int32

// Run states.
const (
	NotStarted State = iota // fresh or reset, memory loaded from the program
	Running
	Halted  // the program executed HALT
	Aborted // the run ended with an error or was cancelled
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// halt sentinel for the program counter.
const pcHalted = -1

// Instance represents an Intcode VM instance.
type Instance struct {
	program  Program
	mem      *Memory
	pc       int64
	rb       Cell
	insCount int64
	state    atomic.Int32
	input    Source
	output   Sink
	name     string
	log      *zap.Logger
	trace    bool

	mu   sync.Mutex // guards done and err
	done chan struct{}
	err  error
}

// Option interface
type Option func(*Instance) error

// Input sets the input endpoint. The default is a new, unbounded Channel.
func Input(s Source) Option {
	return func(i *Instance) error {
		if s == nil {
			return errors.New("nil input")
		}
		i.input = s
		return nil
	}
}

// Output sets the output endpoint. The default is a new, unbounded Channel.
func Output(s Sink) Option {
	return func(i *Instance) error {
		if s == nil {
			return errors.New("nil output")
		}
		i.output = s
		return nil
	}
}

// Name sets the instance name used in log messages.
func Name(name string) Option {
	return func(i *Instance) error { i.name = name; return nil }
}

// Logger sets the logger for the instance. The default is the package logger.
func Logger(l *zap.Logger) Option {
	return func(i *Instance) error {
		if l == nil {
			l = zap.NewNop()
		}
		i.log = l
		return nil
	}
}

// Trace enables logging of every executed instruction at debug level.
func Trace(enable bool) Option {
	return func(i *Instance) error { i.trace = enable; return nil }
}

// SetOptions sets the provided options. Options must not be changed while the
// instance is running.
func (i *Instance) SetOptions(opts ...Option) error {
	if i.State() == Running {
		return ErrRunning
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return err
		}
	}
	return nil
}

// New creates a new Intcode VM instance that will run program p. The program
// is copied into the instance memory, and is never modified.
//
// Unless set with the Input and Output options, New creates a Channel for
// either endpoint. They can be retrieved with the Input and Output methods.
func New(p Program, opts ...Option) (*Instance, error) {
	i := &Instance{
		program: p.Clone(),
		log:     DefaultLogger(),
	}
	i.mem = NewMemory(i.program)
	if err := i.SetOptions(opts...); err != nil {
		return nil, err
	}
	if i.input == nil {
		i.input = NewChannel()
	}
	if i.output == nil {
		i.output = NewChannel()
	}
	return i, nil
}

// Input returns the input endpoint.
func (i *Instance) Input() Source { return i.input }

// Output returns the output endpoint.
func (i *Instance) Output() Sink { return i.output }

// In returns the input endpoint if it is a Channel, nil otherwise.
func (i *Instance) In() *Channel {
	c, _ := i.input.(*Channel)
	return c
}

// Out returns the output endpoint if it is a Channel, nil otherwise.
func (i *Instance) Out() *Channel {
	c, _ := i.output.(*Channel)
	return c
}

// Name returns the instance name.
func (i *Instance) Name() string { return i.name }

// Program returns the program the instance was created with.
func (i *Instance) Program() Program { return i.program }

// Memory returns the instance memory. It may only be accessed while the
// instance is not running, e.g. to patch cells before calling Run.
func (i *Instance) Memory() *Memory { return i.mem }

// PC returns the program counter. It is -1 once the program has halted.
func (i *Instance) PC() int64 { return i.pc }

// RelativeBase returns the relative base register.
func (i *Instance) RelativeBase() Cell { return i.rb }

// InstructionCount returns the number of instructions executed so far by the
// current or last run.
func (i *Instance) InstructionCount() int64 {
	return i.insCount
}

// State returns the current run state. It is safe to call from any goroutine.
func (i *Instance) State() State { return State(i.state.Load()) }

// Finished reports whether the last run has completed, either by halting or
// with an error. It is safe to call from any goroutine.
func (i *Instance) Finished() bool {
	s := i.State()
	return s == Halted || s == Aborted
}

// Reset restores the memory, program counter and relative base from the
// program. Input and output endpoints are left untouched.
func (i *Instance) Reset() error {
	for {
		s := i.state.Load()
		if State(s) == Running {
			return ErrRunning
		}
		if i.state.CompareAndSwap(s, int32(NotStarted)) {
			break
		}
	}
	i.reset()
	return nil
}

func (i *Instance) reset() {
	i.mem.load(i.program)
	i.pc = 0
	i.rb = Cell{}
	i.insCount = 0
}

// Dump writes the memory image to w as a program, that is a comma separated
// list of cell values. Only the dense region of memory is written.
func (i *Instance) Dump(w io.Writer) error {
	ew := errw.New(w)
	for k, v := range i.mem.cells {
		if k > 0 {
			ew.Write([]byte{','})
		}
		io.WriteString(ew, v.String())
	}
	return ew.Err
}
