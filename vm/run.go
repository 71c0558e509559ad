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

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// the context is polled every ctxCheckMask+1 instructions.
const ctxCheckMask = 1<<10 - 1

// begin moves the instance to the Running state, resetting it first if a
// previous run has completed.
func (i *Instance) begin() error {
	for {
		s := i.state.Load()
		if State(s) == Running {
			return ErrRunning
		}
		if i.state.CompareAndSwap(s, int32(Running)) {
			if State(s) != NotStarted {
				i.reset()
			}
			return nil
		}
	}
}

// Run starts execution of the VM and returns when the program halts or the
// run is aborted. Run occupies the calling goroutine for the whole run; use
// Start to run the VM on its own goroutine.
//
// If the instance has already run, its memory, program counter and relative
// base are reset before starting. A fresh or explicitly Reset instance is run
// as is, so that memory patched after New or Reset is preserved.
//
// If the program executes HALT, Run returns nil. If an error occurs, the
// instance is Aborted and PC points to the instruction that triggered the
// error. Invalid instructions or operands return a *Fault. If the input
// endpoint returns io.EOF, Run returns io.EOF: with a finite input this is a
// normal exit condition in most use cases. If ctx is cancelled, Run returns an
// error wrapping ctx.Err().
//
// Run discards the result of a previous Start: Wait then returns nil and Done
// a closed channel, as if Start had never been called.
func (i *Instance) Run(ctx context.Context) error {
	if err := i.begin(); err != nil {
		return err
	}
	i.mu.Lock()
	i.done, i.err = nil, nil
	i.mu.Unlock()
	return i.run(ctx)
}

// Start is like Run but executes the VM on a new goroutine. It returns
// ErrRunning if the instance is already running. Use Wait or Done to get
// notified when the run completes.
func (i *Instance) Start(ctx context.Context) error {
	if err := i.begin(); err != nil {
		return err
	}
	done := make(chan struct{})
	i.mu.Lock()
	i.done, i.err = done, nil
	i.mu.Unlock()
	go func() {
		err := i.run(ctx)
		i.mu.Lock()
		i.err = err
		i.mu.Unlock()
		close(done)
	}()
	return nil
}

// Wait waits for the run started with Start to complete and returns its
// result. It returns nil immediately if Start was never called.
func (i *Instance) Wait() error {
	i.mu.Lock()
	done := i.done
	i.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Done returns a channel that is closed when the run started with Start
// completes. If Start was never called, the returned channel is closed.
func (i *Instance) Done() <-chan struct{} {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.done == nil {
		return closedChan
	}
	return i.done
}

func (i *Instance) run(ctx context.Context) (err error) {
	log := i.log
	if i.name != "" {
		log = log.With(zap.String("vm", i.name))
	}
	log.Debug("run started", zap.Int("size", len(i.program)))
	defer func() {
		if e := recover(); e != nil {
			switch e := e.(type) {
			case error:
				err = errors.Wrapf(e, "recovered error @pc=%d", i.pc)
			default:
				err = errors.Errorf("recovered panic @pc=%d: %v", i.pc, e)
			}
		}
		if err != nil {
			i.state.Store(int32(Aborted))
			log.Debug("run aborted", zap.Int64("pc", i.pc), zap.Int64("instructions", i.insCount), zap.Error(err))
			return
		}
		i.state.Store(int32(Halted))
		log.Debug("run halted", zap.Int64("instructions", i.insCount))
	}()

	for i.pc != pcHalted {
		if i.insCount&ctxCheckMask == 0 {
			if err = ctx.Err(); err != nil {
				return errors.Wrap(err, "run cancelled")
			}
		}
		if err = i.step(ctx, log); err != nil {
			return err
		}
		i.insCount++
	}
	return nil
}

// step executes the instruction at pc. All operands are resolved before any
// effect is committed, so a failing instruction leaves memory untouched.
func (i *Instance) step(ctx context.Context, log *zap.Logger) error {
	w, err := i.mem.Read(i.pc)
	if err != nil {
		return i.fault(w, err)
	}
	ins, err := Decode(w)
	if err != nil {
		return i.fault(w, err)
	}
	if i.trace {
		log.Debug("exec", zap.Int64("pc", i.pc), zap.Stringer("ins", ins), zap.Stringer("rb", i.rb))
	}

	switch ins.Op {
	case OpAdd, OpMul, OpLessThan, OpEquals:
		a, err := i.source(1, ins.Modes[0])
		if err != nil {
			return i.fault(w, err)
		}
		b, err := i.source(2, ins.Modes[1])
		if err != nil {
			return i.fault(w, err)
		}
		dst, err := i.target(3, ins.Modes[2])
		if err != nil {
			return i.fault(w, err)
		}
		var v Cell
		switch ins.Op {
		case OpAdd:
			v = a.Add(b)
		case OpMul:
			v = a.Mul(b)
		case OpLessThan:
			v = boolCell(a.Cmp(b) < 0)
		case OpEquals:
			v = boolCell(a.Equal(b))
		}
		if err = i.mem.Write(dst, v); err != nil {
			return i.fault(w, err)
		}
	case OpRead:
		dst, err := i.target(1, ins.Modes[0])
		if err != nil {
			return i.fault(w, err)
		}
		v, err := i.read(ctx, log)
		if err != nil {
			return err
		}
		if err = i.mem.Write(dst, v); err != nil {
			return i.fault(w, err)
		}
	case OpWrite:
		v, err := i.source(1, ins.Modes[0])
		if err != nil {
			return i.fault(w, err)
		}
		if err = i.output.Deliver(ctx, v); err != nil {
			return errors.Wrapf(err, "write @pc=%d", i.pc)
		}
	case OpJumpIfTrue, OpJumpIfFalse:
		v, err := i.source(1, ins.Modes[0])
		if err != nil {
			return i.fault(w, err)
		}
		t, err := i.source(2, ins.Modes[1])
		if err != nil {
			return i.fault(w, err)
		}
		if v.IsZero() == (ins.Op == OpJumpIfFalse) {
			pc, err := address(t)
			if err != nil {
				return i.fault(w, err)
			}
			i.pc = pc
			return nil
		}
	case OpAdjustBase:
		v, err := i.source(1, ins.Modes[0])
		if err != nil {
			return i.fault(w, err)
		}
		i.rb = i.rb.Add(v)
	case OpHalt:
		i.pc = pcHalted
		return nil
	}
	i.pc += int64(ins.Width())
	return nil
}

func (i *Instance) fault(w Cell, err error) error {
	return &Fault{PC: i.pc, Word: w, Err: err}
}

// read takes the next input value. Timeouts are not fatal: the read is
// retried until a value arrives, the input is closed or ctx is done.
func (i *Instance) read(ctx context.Context, log *zap.Logger) (Cell, error) {
	for {
		v, err := i.input.Take(ctx)
		switch {
		case err == nil:
			return v, nil
		case err == io.EOF:
			return Cell{}, io.EOF
		case IsTimeout(err) && ctx.Err() == nil:
			log.Debug("input stalled", zap.Int64("pc", i.pc))
		default:
			return Cell{}, errors.Wrapf(err, "read @pc=%d", i.pc)
		}
	}
}

// address converts a cell to a memory address.
func address(c Cell) (int64, error) {
	n, ok := c.Int64()
	if !ok || n < 0 {
		return 0, errors.Wrapf(ErrInvalidAddress, "address %v", c)
	}
	return n, nil
}

func (i *Instance) operand(n int) (Cell, error) {
	return i.mem.Read(i.pc + int64(n))
}

// source resolves operand n as a value.
func (i *Instance) source(n int, m Mode) (Cell, error) {
	raw, err := i.operand(n)
	if err != nil {
		return Cell{}, err
	}
	if m == Immediate {
		return raw, nil
	}
	addr, err := i.resolve(raw, m)
	if err != nil {
		return Cell{}, err
	}
	return i.mem.Read(addr)
}

// target resolves operand n as a write address.
func (i *Instance) target(n int, m Mode) (int64, error) {
	if m == Immediate {
		return 0, errors.Wrapf(ErrInvalidWriteMode, "operand %d", n)
	}
	raw, err := i.operand(n)
	if err != nil {
		return 0, err
	}
	return i.resolve(raw, m)
}

// resolve returns the address designated by a Positional or Relative operand.
func (i *Instance) resolve(raw Cell, m Mode) (int64, error) {
	if m == Relative {
		raw = i.rb.Add(raw)
	}
	return address(raw)
}
