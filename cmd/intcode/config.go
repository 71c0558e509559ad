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
	"flag"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/ptillemans/AdventOfCode2019/vm"
)

// config holds the runner settings. It can be loaded from a TOML file, command
// line flags override the file.
type config struct {
	ASCII   bool                `toml:"ascii"`
	Asm     bool                `toml:"asm"`
	Input   string              `toml:"input"`
	Patch   map[string]cellText `toml:"patch"`
	Raw     bool                `toml:"raw"`
	Trace   bool                `toml:"trace"`
	Debug   bool                `toml:"debug"`
	Dump    bool                `toml:"dump"`
	Disasm  bool                `toml:"disasm"`
	Timeout time.Duration       `toml:"timeout"`
}

// cellText is a cell value in text form. In TOML files it can be written as an
// integer or, for values that do not fit in 64 bits, as a string.
type cellText string

func (t *cellText) UnmarshalTOML(v interface{}) error {
	switch v := v.(type) {
	case int64:
		*t = cellText(strconv.FormatInt(v, 10))
	case string:
		*t = cellText(v)
	default:
		return errors.Errorf("invalid cell value %v", v)
	}
	return nil
}

// patchList is a flag.Value for "addr=value,..." lists.
type patchList map[string]string

func (p *patchList) String() string {
	var s []string
	for k, v := range *p {
		s = append(s, k+"="+v)
	}
	sort.Strings(s)
	return strings.Join(s, ",")
}

func (p *patchList) Set(s string) error {
	if *p == nil {
		*p = make(patchList)
	}
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return errors.Errorf("invalid patch %q, expected addr=value", kv)
		}
		(*p)[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return nil
}

func (p *patchList) Get() interface{} { return *p }

// flags registers the command line flags on fs. They are applied to c with
// apply once parsed.
type flags struct {
	fs      *flag.FlagSet
	config  string
	c       config
	patches patchList
}

func newFlags(name string) *flags {
	f := &flags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	fs := f.fs
	fs.StringVar(&f.config, "config", "", "load settings from TOML file `filename`")
	fs.BoolVar(&f.c.ASCII, "ascii", false, "exchange ASCII text with the program")
	fs.BoolVar(&f.c.Asm, "asm", false, "the program file is assembly source")
	fs.StringVar(&f.c.Input, "input", "", "comma separated `values` to feed before stdin")
	fs.Var(&f.patches, "patch", "patch memory before running, as comma separated `addr=value` pairs")
	fs.BoolVar(&f.c.Raw, "raw", false, "switch the terminal to character mode in -ascii mode")
	fs.BoolVar(&f.c.Trace, "trace", false, "log every executed instruction")
	fs.BoolVar(&f.c.Debug, "debug", false, "enable debug diagnostics")
	fs.BoolVar(&f.c.Dump, "dump", false, "dump memory to stdout after the program halts")
	fs.BoolVar(&f.c.Disasm, "disasm", false, "disassemble the program and exit")
	fs.DurationVar(&f.c.Timeout, "timeout", 0, "abort the program after `duration`")
	return f
}

// parse parses args and returns the resulting configuration.
func (f *flags) parse(args []string) (config, error) {
	if err := f.fs.Parse(args); err != nil {
		return config{}, err
	}
	var c config
	if f.config != "" {
		md, err := toml.DecodeFile(f.config, &c)
		if err != nil {
			return config{}, errors.Wrap(err, "config")
		}
		if u := md.Undecoded(); len(u) > 0 {
			return config{}, errors.Errorf("config: unknown keys %v", u)
		}
	}
	// explicitly set flags win
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "ascii":
			c.ASCII = f.c.ASCII
		case "asm":
			c.Asm = f.c.Asm
		case "input":
			c.Input = f.c.Input
		case "patch":
			if c.Patch == nil {
				c.Patch = make(map[string]cellText)
			}
			for k, v := range f.patches {
				c.Patch[k] = cellText(v)
			}
		case "raw":
			c.Raw = f.c.Raw
		case "trace":
			c.Trace = f.c.Trace
		case "debug":
			c.Debug = f.c.Debug
		case "dump":
			c.Dump = f.c.Dump
		case "disasm":
			c.Disasm = f.c.Disasm
		case "timeout":
			c.Timeout = f.c.Timeout
		}
	})
	return c, nil
}

// inputValues parses the input list.
func (c *config) inputValues() ([]vm.Cell, error) {
	p, err := vm.ParseString(c.Input)
	return p, errors.Wrap(err, "input")
}

// patches applies the memory patches to m.
func (c *config) patches(m *vm.Memory) error {
	for k, v := range c.Patch {
		addr, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "patch address %q", k)
		}
		val, err := vm.ParseCell(string(v))
		if err != nil {
			return errors.Wrapf(err, "patch value %q", v)
		}
		if err = m.Write(addr, val); err != nil {
			return errors.Wrap(err, "patch")
		}
	}
	return nil
}
