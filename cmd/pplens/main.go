// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command pplens is the CLI front end for the pplens preprocessor
// analyser: it parses -D/-U and the rest of the §6 option surface,
// resolves input files, drives the core over each one, and renders
// either rewritten source (source/spin) or a listing (the report
// commands).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/pplens/pplens"
)

const usage = `pplens COMMAND [options] file...

Commands: help version source spin symbols includes defs pragmas errors lines directives
Run "pplens help" for the full option list.`

func main() {
	defer glog.Flush()
	os.Exit(run(os.Args[1:]))
}

// exitBits accumulates the §6 bits beyond severity (0x10 any line
// dropped, 0x20 any line changed, 0x40 #error emitted by the tool,
// 0x80 unconditional #error now live in output).
type exitBits struct {
	dropped, changed, errorEmitted, errorLive bool
}

func (b exitBits) bits() int {
	n := 0
	if b.dropped {
		n |= 0x10
	}
	if b.changed {
		n |= 0x20
	}
	if b.errorEmitted {
		n |= 0x40
	}
	if b.errorLive {
		n |= 0x80
	}
	return n
}

func run(argv []string) int {
	opt, err := ParseArgs(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 0x4
	}

	switch opt.Command {
	case "help":
		fmt.Println(usage)
		return 0
	case "version":
		fmt.Println("pplens 1.0")
		return 0
	}

	gag := parseGag(opt.Gag)
	sink := pplens.NewSink(gag)
	an := pplens.NewAnalyser(sink)
	applyOptions(an.Config, opt)

	for _, raw := range opt.Defines {
		id, params, defn, err := parseDefineArg(raw)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 0x4
		}
		if err := an.DefineGlobal(id, params, defn); err != nil {
			reportAbend(err)
		}
	}
	for _, id := range opt.Undefs {
		if err := an.UndefGlobal(id); err != nil {
			reportAbend(err)
		}
	}

	files, err := ResolveInputs(opt.Files, opt.Recurse, opt.Filter)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 0x4
	}

	var bits exitBits
	for _, f := range files {
		if !MatchesFilter(f, opt.Filter) {
			continue
		}
		buf, err := ReadSource(f)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			if !opt.KeepGoing {
				return sink.ExitBits() | 0x4
			}
			continue
		}
		if err := processOneFile(an, buf, f, opt, &bits); err != nil {
			if _, ok := err.(pplens.AbendError); ok {
				return sink.ExitBits() | bits.bits()
			}
			if !opt.KeepGoing {
				return sink.ExitBits() | bits.bits()
			}
		}
	}
	return sink.ExitBits() | bits.bits()
}

func processOneFile(an *pplens.Analyser, buf []byte, file string, opt *Options, bits *exitBits) error {
	if opt.Command == "source" || opt.Command == "spin" {
		out, err := an.ProcessSource(buf, file, opt.Explain)
		if strings.Contains(out, "#error") && !strings.Contains(string(buf), "#error") {
			bits.errorEmitted = true
		}
		if out != string(buf) {
			bits.changed = true
		}
		if len(out) < len(buf) {
			bits.dropped = true
		}
		if err != nil {
			return err
		}
		target := NewOutputTarget(file, opt)
		return target.Write(out)
	}
	return RunReport(an, buf, file, opt, os.Stdout)
}

func applyOptions(cfg *pplens.Config, opt *Options) {
	switch opt.Conflict {
	case "comment":
		cfg.Conflict = pplens.ConflictComment
	case "error":
		cfg.Conflict = pplens.ConflictError
	default:
		cfg.Conflict = pplens.ConflictDelete
	}
	switch opt.Discard {
	case "blank":
		cfg.Discard = pplens.DiscardBlank
	case "comment":
		cfg.Discard = pplens.DiscardComment
	default:
		cfg.Discard = pplens.DiscardDrop
	}
	cfg.Implicit = opt.Implicit
	cfg.EvalWip = opt.EvalWip
	cfg.Complement = opt.Complement
	cfg.EmitLine = opt.EmitLine
	cfg.NoTransients = opt.NoTransients
	if n, err := ParseMaxExpansion(opt.MaxExpansion); err == nil && n > 0 {
		cfg.MaxExpansion = n
	}
}

func parseGag(gags []string) pplens.GagSet {
	if len(gags) == 0 {
		return nil
	}
	set := make(pplens.GagSet)
	for _, g := range gags {
		switch g {
		case "progress":
			set[pplens.Progress] = true
		case "info":
			set[pplens.Info] = true
		case "warning":
			set[pplens.Warning] = true
		case "error":
			set[pplens.Error] = true
		case "abend":
			set[pplens.Abend] = true
		}
	}
	return set
}

func reportAbend(err error) {
	fmt.Fprintln(os.Stderr, err)
}

// parseDefineArg parses one -D value: NAME[(params)][=value].
func parseDefineArg(raw string) (id string, params *pplens.ParamList, defn string, err error) {
	name, defn, hasDefn := strings.Cut(raw, "=")
	if !hasDefn {
		defn = "1"
	}
	if i := strings.IndexByte(name, '('); i >= 0 && strings.HasSuffix(name, ")") {
		id = name[:i]
		paramStr := name[i+1 : len(name)-1]
		var names []string
		for _, p := range strings.Split(paramStr, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				names = append(names, p)
			}
		}
		return id, &pplens.ParamList{Names: names}, defn, nil
	}
	return name, nil, defn, nil
}
