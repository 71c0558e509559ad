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

// Package vm implements the Intcode VM.
//
// An Intcode program is a list of integers that serves as the initial memory
// image of the VM. Instructions are variable length: the first cell holds the
// opcode in its two lowest decimal digits and the addressing mode of each
// operand in the hundreds, thousands and ten-thousands digits. Operands follow
// the instruction word. Memory is logically infinite and all arithmetic is
// done with arbitrary precision.
//
//	opcode	asm	operands	effect
//	------	---	--------	------------------------------------------
//	1	add	a b dst		dst = a + b
//	2	mul	a b dst		dst = a * b
//	3	in	dst		dst = next input value
//	4	out	a		output a
//	5	jt	a t		jump to t if a != 0
//	6	jf	a t		jump to t if a == 0
//	7	lt	a b dst		dst = 1 if a < b, 0 otherwise
//	8	eq	a b dst		dst = 1 if a == b, 0 otherwise
//	9	arb	a		relative base += a
//	99	hlt			halt
//
// The VM communicates with Go code through two endpoints: a Source, read by
// the "in" instruction, and a Sink, written by "out". The default endpoints
// are unbounded Channels. Since a Channel is both a Source and a Sink, the
// output of one VM can be wired directly as the input of another, which is how
// several VMs are composed into a communicating network. Any type implementing
// Source or Sink can be substituted, for example to encode text or to record a
// trace.
//
// An Instance is driven by a single goroutine at a time: either the caller's
// with Run, or its own with Start. Since "in" suspends until a value is
// available, interactive use requires Start: the caller then pushes input and
// pulls output concurrently, the endpoints being the only synchronization
// point.
package vm
