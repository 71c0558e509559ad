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
	"bufio"
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

// Program is an Intcode program: the initial memory image of a VM.
type Program []Cell

// Clone returns a copy of p.
func (p Program) Clone() Program {
	t := make(Program, len(p))
	copy(t, p)
	return t
}

// String returns the program in its textual form: a comma separated list of
// base 10 integers.
func (p Program) String() string {
	var b strings.Builder
	for k, v := range p {
		if k > 0 {
			b.WriteByte(',')
		}
		b.WriteString(v.String())
	}
	return b.String()
}

// Fingerprint returns a hex encoded blake3 digest of the program text. Two
// programs have the same fingerprint if they have the same contents.
func (p Program) Fingerprint() string {
	sum := blake3.Sum256([]byte(p.String()))
	return hex.EncodeToString(sum[:8])
}

func scanCommas(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, ','); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Parse reads a program in textual form from r. Values are separated by
// commas, white space around them is ignored. An empty input yields an empty
// program.
func Parse(r io.Reader) (Program, error) {
	var p Program
	var blank bool
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 4096), 1<<20)
	s.Split(scanCommas)
	for s.Scan() {
		t := strings.TrimSpace(s.Text())
		if t == "" && len(p) == 0 && !blank {
			// white space only file, unless more values follow
			blank = true
			continue
		}
		if t == "" || blank {
			return nil, errors.Errorf("empty value at position %d", len(p))
		}
		v, err := ParseCell(t)
		if err != nil {
			return nil, errors.Wrapf(err, "value at position %d", len(p))
		}
		p = append(p, v)
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "Parse")
	}
	return p, nil
}

// ParseString parses a program in textual form.
func ParseString(s string) (Program, error) {
	return Parse(strings.NewReader(s))
}

// MustParse is like ParseString but panics on error. It simplifies the
// initialization of global variables holding programs.
func MustParse(s string) Program {
	p, err := ParseString(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Load loads a program from file fileName. Files with a ".zst" extension are
// decompressed on the fly.
func Load(fileName string) (Program, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "Load")
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(fileName, ".zst") {
		d, err := zstd.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "Load %v", fileName)
		}
		defer d.Close()
		r = d
	}
	p, err := Parse(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Load %v", fileName)
	}
	return p, nil
}
