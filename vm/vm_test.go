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

package vm_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ptillemans/AdventOfCode2019/asm"
	"github.com/ptillemans/AdventOfCode2019/vm"
)

type C []int64

// M maps addresses to expected memory contents.
type M map[int64]string

func setup(code string, input C) *vm.Instance {
	i, err := vm.New(vm.MustParse(code))
	if err != nil {
		panic(err)
	}
	i.In().Send(input...)
	i.In().Close()
	return i
}

func join(vs []vm.Cell) string {
	var b strings.Builder
	for k, v := range vs {
		if k > 0 {
			b.WriteByte(',')
		}
		b.WriteString(v.String())
	}
	return b.String()
}

func check(t *testing.T, testName string, i *vm.Instance, output string, mem M) {
	t.Helper()
	err := i.Run(context.Background())
	if err != nil {
		t.Errorf("%s: %+v", testName, err)
		return
	}
	if i.State() != vm.Halted || !i.Finished() || i.PC() != -1 {
		t.Errorf("%s: bad final state %v, pc %d", testName, i.State(), i.PC())
	}
	if got := join(i.Out().Drain()); got != output {
		t.Errorf("%s: Output error: expected %s, got %s", testName, output, got)
	}
	for addr, exp := range mem {
		v, err := i.Memory().Read(addr)
		if err != nil {
			t.Errorf("%s: %v", testName, err)
			continue
		}
		if v.String() != exp {
			t.Errorf("%s: Memory error at %d: expected %s, got %v", testName, addr, exp, v)
		}
	}
}

const quine = "109,1,204,-1,1001,100,1,100,1008,100,16,101,1006,101,0,99"

const compare8 = "3,21,1008,21,8,20,1005,20,22,107,8,21,20,1006,20,31," +
	"1106,0,36,98,0,0,1002,21,125,20,4,20,1105,1,46,104," +
	"999,1105,1,46,1101,1000,1,20,4,20,1105,1,46,98,99"

var tests = [...]struct {
	name   string
	code   string
	input  C
	output string
	mem    M
}{
	{"self add", "1,0,0,0,99", nil, "", M{0: "2"}},
	{"echo", "3,0,4,0,99", C{42}, "42", M{0: "42"}},
	{"immediate mul", "1002,4,3,4,33", nil, "", M{4: "99"}},
	{"negative", "1101,100,-1,4,0", nil, "", M{4: "99"}},
	{"mul positional", "2,3,0,3,99", nil, "", M{3: "6"}},
	{"mul far", "2,4,4,5,99,0", nil, "", M{5: "9801"}},
	{"chain", "1,1,1,4,99,5,6,0,99", nil, "", M{0: "30", 4: "2"}},
	{"quine", quine, nil, quine, nil},
	{"16 digits", "1102,34915192,34915192,7,4,7,99,0", nil, "1219070632396864", nil},
	{"large literal", "104,1125899906842624,99", nil, "1125899906842624", nil},
	{"add overflow", "1101,9223372036854775807,1,7,4,7,99", nil, "9223372036854775808", nil},
	{"mul overflow", "1102,9223372036854775807,9223372036854775807,7,4,7,99",
		nil, "85070591730234615847396907784232501249", nil},
	{"big lt", "1107,-99999999999999999999,1,7,4,7,99", nil, "1", nil},
	{"big eq", "1108,99999999999999999999,99999999999999999999,7,4,7,99", nil, "1", nil},
	{"eq 8 positional", "3,9,8,9,10,9,4,9,99,-1,8", C{8}, "1", nil},
	{"neq 8 positional", "3,9,8,9,10,9,4,9,99,-1,8", C{7}, "0", nil},
	{"lt 8 positional", "3,9,7,9,10,9,4,9,99,-1,8", C{5}, "1", nil},
	{"eq 8 immediate", "3,3,1108,-1,8,3,4,3,99", C{8}, "1", nil},
	{"lt 8 immediate", "3,3,1107,-1,8,3,4,3,99", C{9}, "0", nil},
	{"jump positional 0", "3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9", C{0}, "0", nil},
	{"jump positional 1", "3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9", C{5}, "1", nil},
	{"jump immediate 0", "3,3,1105,-1,9,1101,0,0,12,4,12,99,1", C{0}, "0", nil},
	{"jump immediate 1", "3,3,1105,-1,9,1101,0,0,12,4,12,99,1", C{-3}, "1", nil},
	{"below 8", compare8, C{7}, "999", nil},
	{"equal 8", compare8, C{8}, "1000", nil},
	{"above 8", compare8, C{9}, "1001", nil},
	{"relative write", "109,10,21101,2,3,0,204,0,99", nil, "5", M{10: "5"}},
	{"relative negative base", "109,20,109,-15,21101,2,3,0,204,0,99", nil, "5", M{5: "5"}},
	{"extend dense", "1101,1,2,1000,4,1000,99", nil, "3", M{1000: "3", 999: "0"}},
	{"extend sparse", "1101,1,2,100000000,4,100000000,99", nil, "3", M{100000000: "3"}},
	{"read unwritten", "4,12345,99", nil, "0", nil},
	{"ignored high digits", "1000001,0,0,0,99", nil, "", M{0: "2000002"}},
}

func TestCore(t *testing.T) {
	for _, test := range tests {
		i := setup(test.code, test.input)
		check(t, test.name, i, test.output, test.mem)
	}
}

// programs built with the assembler.
func TestCore_asm(t *testing.T) {
	// count down from the input, using the relative base as a stack pointer.
	code := `
		arb  #stack
		in   @0
:loop	out  @0
		add  @0 #-1 @1
		arb  #1
		jt   @0 #loop
		hlt
:stack	0
`
	p := asm.MustAssemble("countdown", code)
	i, err := vm.New(p)
	if err != nil {
		t.Fatal(err)
	}
	i.In().Send(5)
	check(t, "countdown", i, "5,4,3,2,1", nil)
	if rb := i.RelativeBase(); !rb.Equal(vm.Int(int64(len(p) - 1 + 5))) {
		t.Errorf("bad relative base %v", rb)
	}
}

func TestFaults(t *testing.T) {
	for _, test := range []struct {
		name  string
		code  string
		cause error
		pc    int64
	}{
		{"invalid opcode", "1,0,0,0,42", vm.ErrInvalidOpcode, 4},
		{"run off the end", "1,0,0,0", vm.ErrInvalidOpcode, 4},
		{"invalid mode", "30001,0,0,0,99", vm.ErrInvalidOpcode, 0},
		{"negative word", "1101,-1,0,4,0", vm.ErrInvalidOpcode, 4},
		{"immediate write", "11101,1,1,1,99", vm.ErrInvalidWriteMode, 0},
		{"immediate read", "103,0,99", vm.ErrInvalidWriteMode, 0},
		{"negative address", "1,-1,0,0,99", vm.ErrInvalidAddress, 0},
		{"negative relative", "109,-5,204,0,99", vm.ErrInvalidAddress, 2},
		{"negative jump", "1105,1,-3", vm.ErrInvalidAddress, 0},
		{"huge address", "4,99999999999999999999,99", vm.ErrInvalidAddress, 0},
	} {
		i := setup(test.code, C{1})
		before := join(i.Memory().Cells())
		err := i.Run(context.Background())
		if !errors.Is(err, test.cause) {
			t.Errorf("%s: expected %v, got %v", test.name, test.cause, err)
			continue
		}
		var f *vm.Fault
		if !errors.As(err, &f) {
			t.Errorf("%s: %v is not a *vm.Fault", test.name, err)
			continue
		}
		if errors.Cause(f) != test.cause {
			t.Errorf("%s: bad cause %v", test.name, errors.Cause(f))
		}
		if f.PC != test.pc || i.PC() != test.pc {
			t.Errorf("%s: bad pc %d (instance %d), expected %d", test.name, f.PC, i.PC(), test.pc)
		}
		if i.State() != vm.Aborted || !i.Finished() {
			t.Errorf("%s: bad state %v", test.name, i.State())
		}
		if test.pc == 0 && join(i.Memory().Cells()) != before {
			t.Errorf("%s: memory modified by faulting instruction", test.name)
		}
	}
}

func TestFault_format(t *testing.T) {
	i := setup("1,0,0,0,42", nil)
	err := i.Run(context.Background())
	msg := err.Error()
	if !strings.HasPrefix(msg, "fault @pc=4 (42): ") || !strings.Contains(msg, "invalid opcode") {
		t.Errorf("bad message %q", msg)
	}
	if s := fmt.Sprintf("%+v", err); !strings.Contains(s, "vm.Decode") {
		t.Errorf("expected stack trace in %q", s)
	}
}

func TestRun_resets(t *testing.T) {
	i := setup("1,0,0,0,99", nil)
	if i.State() != vm.NotStarted || i.Finished() {
		t.Fatalf("bad initial state %v", i.State())
	}
	for n := 0; n < 3; n++ {
		check(t, "rerun", i, "", M{0: "2"})
	}
	if c := i.InstructionCount(); c != 2 {
		t.Errorf("bad instruction count %d", c)
	}
}

func TestRun_patched(t *testing.T) {
	i := setup("1,0,0,0,99", nil)
	i.Memory().Write(1, vm.Int(4))
	check(t, "patched", i, "", M{0: "100"})

	// Reset restores the program, patching after Reset is preserved.
	if err := i.Reset(); err != nil {
		t.Fatal(err)
	}
	if i.State() != vm.NotStarted || i.PC() != 0 {
		t.Fatalf("bad state after reset: %v, pc %d", i.State(), i.PC())
	}
	if v, _ := i.Memory().Read(1); !v.IsZero() {
		t.Errorf("memory not restored: %v", v)
	}
	i.Memory().Write(2, vm.Int(4))
	check(t, "patched after reset", i, "", M{0: "100"})
	if i.Program().String() != "1,0,0,0,99" {
		t.Errorf("program modified: %v", i.Program())
	}
}

func TestRun_deterministic(t *testing.T) {
	var outs [2]string
	var counts [2]int64
	for k := range outs {
		i := setup(compare8, C{9})
		if err := i.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		outs[k] = join(i.Out().Drain())
		counts[k] = i.InstructionCount()
	}
	if outs[0] != outs[1] || counts[0] != counts[1] {
		t.Errorf("runs differ: %v, %v", outs, counts)
	}
}

func TestRun_eof(t *testing.T) {
	i := setup("3,0,3,0,99", C{1})
	err := i.Run(context.Background())
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
	if i.PC() != 2 || i.State() != vm.Aborted {
		t.Errorf("bad pc %d or state %v", i.PC(), i.State())
	}
}

func TestRun_closedOutput(t *testing.T) {
	out := vm.NewChannel()
	out.Close()
	i, _ := vm.New(vm.MustParse("104,1,99"), vm.Output(out))
	if err := i.Run(context.Background()); errors.Cause(err) != io.ErrClosedPipe {
		t.Errorf("expected io.ErrClosedPipe, got %v", err)
	}
}

func TestRun_cancel(t *testing.T) {
	// busy loop
	i := setup("1105,1,0", nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := i.Start(ctx); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := i.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if i.State() != vm.Aborted {
		t.Errorf("bad state %v", i.State())
	}

	// blocked read
	i, _ = vm.New(vm.MustParse("3,0,99"))
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := i.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

// echo loop: in x, out x, jump to 0.
const echo = "3,9,4,9,1105,1,0,0,0,0"

func TestStart(t *testing.T) {
	i, _ := vm.New(vm.MustParse(echo))
	select {
	case <-i.Done():
	default:
		t.Error("Done not closed before Start")
	}
	if err := i.Wait(); err != nil {
		t.Errorf("Wait before Start: %v", err)
	}

	ctx := context.Background()
	if err := i.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := i.Start(ctx); err != vm.ErrRunning {
		t.Errorf("expected ErrRunning, got %v", err)
	}
	if err := i.Reset(); err != vm.ErrRunning {
		t.Errorf("expected ErrRunning, got %v", err)
	}
	if err := i.SetOptions(vm.Name("foo")); err != vm.ErrRunning {
		t.Errorf("expected ErrRunning, got %v", err)
	}
	if err := i.Run(ctx); err != vm.ErrRunning {
		t.Errorf("expected ErrRunning, got %v", err)
	}
	for n := int64(1); n <= 10; n++ {
		i.In().Send(n)
		v, err := i.Out().Take(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !v.Equal(vm.Int(n)) {
			t.Errorf("expected %d, got %v", n, v)
		}
	}
	if i.Finished() {
		t.Error("finished early")
	}
	i.In().Close()
	<-i.Done()
	if err := i.Wait(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
	if !i.Finished() {
		t.Error("not finished")
	}
}

func TestStart_thenRun(t *testing.T) {
	i, _ := vm.New(vm.MustParse("99"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := i.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := i.Wait(); errors.Cause(err) != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := i.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := i.Wait(); err != nil {
		t.Errorf("Wait after Run returned the result of Start: %v", err)
	}
	select {
	case <-i.Done():
	default:
		t.Error("Done not closed after Run")
	}
}

// two engines wired through a shared channel.
func TestWiring(t *testing.T) {
	const n = 1000
	mid := vm.NewChannel()
	a, _ := vm.New(vm.MustParse(echo), vm.Output(mid), vm.Name("a"))
	b, _ := vm.New(vm.MustParse(echo), vm.Input(mid), vm.Name("b"))
	ctx := context.Background()
	if err := b.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := a.Start(ctx); err != nil {
		t.Fatal(err)
	}
	for k := int64(0); k < n; k++ {
		a.In().Send(k)
	}
	a.In().Close()
	if err := a.Wait(); err != io.EOF {
		t.Fatal(err)
	}
	mid.Close()
	if err := b.Wait(); err != io.EOF {
		t.Fatal(err)
	}
	out := b.Out().Drain()
	if len(out) != n {
		t.Fatalf("expected %d values, got %d", n, len(out))
	}
	for k, v := range out {
		if !v.Equal(vm.Int(int64(k))) {
			t.Fatalf("value %d out of order: %v", k, v)
		}
	}
}

func TestInput_timeoutRetry(t *testing.T) {
	in := vm.NewChannel(vm.ChannelTimeout(time.Millisecond))
	i, _ := vm.New(vm.MustParse("3,0,4,0,99"), vm.Input(in))
	if err := i.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if i.Finished() {
		t.Fatal("read timeout aborted the run")
	}
	in.Send(7)
	if err := i.Wait(); err != nil {
		t.Fatal(err)
	}
	if v, _ := i.Out().Poll(); !v.Equal(vm.Int(7)) {
		t.Errorf("expected 7, got %v", v)
	}
}

func TestOutput_backpressure(t *testing.T) {
	out := vm.NewChannel(vm.ChannelCapacity(1))
	i, _ := vm.New(vm.MustParse("104,1,104,2,104,3,99"), vm.Output(out))
	ctx := context.Background()
	if err := i.Start(ctx); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if i.Finished() || out.Len() != 1 {
		t.Fatalf("backpressure not applied: finished %v, len %d", i.Finished(), out.Len())
	}
	for n := int64(1); n <= 3; n++ {
		v, err := out.Take(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !v.Equal(vm.Int(n)) {
			t.Errorf("expected %d, got %v", n, v)
		}
	}
	if err := i.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	i, err := vm.New(vm.MustParse("1101,1,2,0,99"),
		vm.Name("logged"), vm.Logger(zap.New(core)), vm.Trace(true))
	if err != nil {
		t.Fatal(err)
	}
	if err = i.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := logs.FilterMessage("exec").Len(); n != 2 {
		t.Errorf("expected 2 traced instructions, got %d", n)
	}
	halted := logs.FilterMessage("run halted").All()
	if len(halted) != 1 {
		t.Fatalf("expected a halt message, got %v", logs.All())
	}
	if f := halted[0].ContextMap(); f["vm"] != "logged" || f["instructions"] != int64(2) {
		t.Errorf("bad log context %v", f)
	}
}

func TestOptions_nil(t *testing.T) {
	if _, err := vm.New(nil, vm.Input(nil)); err == nil {
		t.Error("expected error for nil input")
	}
	if _, err := vm.New(nil, vm.Output(nil)); err == nil {
		t.Error("expected error for nil output")
	}
	i, err := vm.New(nil, vm.Input(vm.Replay()), vm.Output(vm.NewRecorder(nil)))
	if err != nil {
		t.Fatal(err)
	}
	if i.In() == nil || i.Out() != nil {
		t.Error("In and Out must reflect the endpoint types")
	}
	// empty program runs off the end.
	if err = i.Run(context.Background()); !errors.Is(err, vm.ErrInvalidOpcode) {
		t.Errorf("expected ErrInvalidOpcode, got %v", err)
	}
}

func BenchmarkRun(b *testing.B) {
	p := vm.MustParse(compare8)
	i, _ := vm.New(p)
	ctx := context.Background()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		i.In().Send(8)
		if err := i.Run(ctx); err != nil {
			b.Fatal(err)
		}
		i.Out().Drain()
	}
}
