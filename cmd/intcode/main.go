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

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/ptillemans/AdventOfCode2019/asm"
	"github.com/ptillemans/AdventOfCode2019/lang/ascii"
	"github.com/ptillemans/AdventOfCode2019/vm"
)

func newLogger(c *config) (*zap.Logger, error) {
	if c.Debug || c.Trace {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	zc.Encoding = "console"
	return zc.Build()
}

func loadProgram(fileName string, isAsm bool) (vm.Program, error) {
	if !isAsm {
		return vm.Load(fileName)
	}
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "Load")
	}
	defer f.Close()
	return asm.Assemble(fileName, f)
}

func atExit(i *vm.Instance, debug bool, err error) {
	if err == nil {
		return
	}
	if !debug {
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "\n%+v\n", err)
	if i != nil {
		pc := i.PC()
		if w, e := i.Memory().Read(pc); e == nil {
			fmt.Fprintf(os.Stderr, "PC: %v (%v), RB: %v, instructions: %d\n", pc, w, i.RelativeBase(), i.InstructionCount())
		} else {
			fmt.Fprintf(os.Stderr, "PC: %v, RB: %v, instructions: %d\n", pc, i.RelativeBase(), i.InstructionCount())
		}
	}
	os.Exit(1)
}

// setupIO returns the endpoints for the VM and a function to call once the run
// is complete.
func setupIO(c *config, stdin io.Reader, stdout *bufio.Writer) (vm.Source, vm.Sink, func() error, error) {
	values, err := c.inputValues()
	if err != nil {
		return nil, nil, nil, err
	}
	tearDown := func() error { return nil }
	if f, ok := stdin.(*os.File); ok && c.ASCII && c.Raw && term.IsTerminal(int(f.Fd())) {
		restore, err := setRawIO(f.Fd())
		if err != nil {
			return nil, nil, nil, err
		}
		stdin = &eotReader{r: f}
		tearDown = func() error { restore(); return nil }
	}

	src := chain{vm.Replay(values...)}
	if !c.ASCII {
		src = append(src, newNumberReader(stdin))
		return flusher{&src, stdout}, numberWriter{stdout}, tearDown, nil
	}

	src = append(src, ascii.NewReader(stdin))
	w := ascii.NewWriter(stdout)
	done := func() error {
		tearDown()
		// non ASCII values, usually the answer, on their own line
		for _, v := range w.Values() {
			if _, err := fmt.Fprintln(stdout, v); err != nil {
				return errors.Wrap(err, "stdout")
			}
		}
		return nil
	}
	return flusher{&src, stdout}, w, done, nil
}

// run runs the command with the given arguments, reading program input from
// stdin and writing program output to stdout.
func run(args []string, stdin io.Reader, w io.Writer) (i *vm.Instance, debug bool, err error) {
	f := newFlags("intcode")
	f.fs.Usage = func() {
		fmt.Fprintf(f.fs.Output(), "Usage: %s [flags] program-file\n", f.fs.Name())
		f.fs.PrintDefaults()
	}
	c, err := f.parse(args)
	if err != nil {
		if err == flag.ErrHelp {
			err = nil
		}
		return nil, false, err
	}
	debug = c.Debug
	if f.fs.NArg() != 1 {
		f.fs.Usage()
		return nil, debug, errors.New("expected exactly one program file")
	}

	log, err := newLogger(&c)
	if err != nil {
		return nil, debug, err
	}
	defer log.Sync()
	vm.SetDefaultLogger(log)

	fileName := f.fs.Arg(0)
	prog, err := loadProgram(fileName, c.Asm)
	if err != nil {
		return nil, debug, err
	}
	log.Debug("program loaded",
		zap.String("file", fileName),
		zap.Int("size", len(prog)),
		zap.String("fingerprint", prog.Fingerprint()))

	stdout := bufio.NewWriter(w)
	defer stdout.Flush()

	if c.Disasm {
		return nil, debug, asm.DisassembleAll(prog, 0, stdout)
	}

	src, sink, done, err := setupIO(&c, stdin, stdout)
	if err != nil {
		return nil, debug, err
	}
	i, err = vm.New(prog, vm.Input(src), vm.Output(sink), vm.Name(fileName), vm.Trace(c.Trace))
	if err != nil {
		done()
		return nil, debug, err
	}
	if err = c.patches(i.Memory()); err != nil {
		done()
		return i, debug, err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if c.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	err = i.Run(ctx)
	if e := done(); err == nil {
		err = e
	}
	if err == io.EOF {
		// the input is closed: a normal exit condition
		log.Debug("end of input", zap.Int64("pc", i.PC()))
		err = nil
	}
	if err == nil && c.Dump {
		if err = i.Dump(stdout); err == nil {
			_, err = stdout.WriteString("\n")
		}
	}
	return i, debug, err
}

func main() {
	i, debug, err := run(os.Args[1:], os.Stdin, os.Stdout)
	atExit(i, debug, err)
}
