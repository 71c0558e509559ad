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

// Package ascii provides utility functions and types to run Intcode programs
// that talk ASCII: text is exchanged one character per value, lines are
// terminated by a newline (10). Values outside of the ASCII range are not
// text, they usually carry a program's final answer.
package ascii

import (
	"strings"

	"github.com/ptillemans/AdventOfCode2019/vm"
)

// MaxChar is the largest value treated as a character.
const MaxChar = 127

// Char returns the character for v and whether v is in the ASCII range.
func Char(v vm.Cell) (byte, bool) {
	n, ok := v.Int64()
	if !ok || n < 0 || n > MaxChar {
		return 0, false
	}
	return byte(n), true
}

// Encode returns the values for the bytes of s.
func Encode(s string) []vm.Cell {
	vs := make([]vm.Cell, len(s))
	for k := 0; k < len(s); k++ {
		vs[k] = vm.Int(int64(s[k]))
	}
	return vs
}

// Lines encodes the given lines, each terminated by a newline.
func Lines(lines ...string) []vm.Cell {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return Encode(b.String())
}

// Decode splits vs into text and non ASCII values. Both keep their relative
// order.
func Decode(vs []vm.Cell) (text string, rest []vm.Cell) {
	var b strings.Builder
	for _, v := range vs {
		if c, ok := Char(v); ok {
			b.WriteByte(c)
		} else {
			rest = append(rest, v)
		}
	}
	return b.String(), rest
}
