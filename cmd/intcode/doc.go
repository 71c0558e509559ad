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

// The intcode command line tool runs an Intcode program, streaming its input
// from stdin and its output to stdout.
//
// Usage:
//
//	intcode [flags] program-file
//
//	-ascii
//		  exchange ASCII text with the program
//	-asm
//		  the program file is assembly source
//	-config filename
//		  load settings from TOML file filename
//	-debug
//		  enable debug diagnostics
//	-disasm
//		  disassemble the program and exit
//	-dump
//		  dump memory to stdout after the program halts
//	-input values
//		  comma separated values to feed before stdin
//	-patch addr=value
//		  patch memory before running, as comma separated addr=value pairs
//	-raw
//		  switch the terminal to character mode in -ascii mode
//	-timeout duration
//		  abort the program after duration
//	-trace
//		  log every executed instruction
//
// The program file is a comma separated list of integers. Files with a ".zst"
// extension are decompressed on the fly. With -asm, the file is assembled
// first, see package github.com/ptillemans/AdventOfCode2019/asm for the
// syntax.
//
// By default input values are read from stdin as integers separated by commas
// or white space, and every output value is written on its own line. With
// -ascii, stdin is fed to the program one byte per value, and ASCII values are
// written to stdout as text. Values outside of the ASCII range are printed on
// their own line once the program has completed.
//
// -input: these values are fed to the program before anything read from
// stdin, e.g. a system ID or a phase setting.
//
// -patch: cells are patched after the program is loaded, before it runs. This
// is how the "noun" and "verb" of a gravity assist program are set:
//
//	intcode -patch 1=12,2=2 -dump gravity.txt
//
// -raw: in -ascii mode with stdin connected to a terminal, characters are
// sent to the program as they are typed instead of line by line. Use CTRL-D to
// close the input.
//
// -debug: will print a full stacktrace should the VM crash, along with the
// program counter and relative base. It also enables debug logs.
//
// -config: settings can also be read from a TOML file, flags given on the
// command line override it:
//
//	ascii = true
//	input = "1,2"
//	timeout = "30s"
//
//	[patch]
//	1 = 12
//	2 = 2
//
// The program ends when it halts or when its input is exhausted. Exit status
// is 1 on any error.
package main
