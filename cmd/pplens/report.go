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

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pplens/pplens"
)

// ReportLine is one row of a listing report command (§6): a source
// line annotated with its directive kind and live/dead status under
// the driver's #if-branch evaluation.
type ReportLine struct {
	File      string
	Line      int
	Directive pplens.DirectiveType
	Text      string
	Dropping  bool
}

// RunReport drives one input file through the directive dispatcher
// exactly as the source/spin commands do, but collects a filtered
// listing instead of rewritten source text (§6 report commands:
// symbols, includes, defs, pragmas, errors, lines, directives).
func RunReport(an *pplens.Analyser, buf []byte, file string, opt *Options, w io.Writer) error {
	ex := pplens.NewExpander(opt.Implicit, mustMaxExpansion(opt.MaxExpansion))
	an.Table.ResetForFile()
	drv := pplens.NewDriver(an.Table, an.Config, an.Sink, ex, file)
	reader := pplens.NewLineReader(buf)

	var kept directiveFilter
	switch opt.Command {
	case "symbols":
		kept = nil
	case "includes":
		kept = kind(pplens.DirInclude)
	case "defs":
		kept = kindAny{pplens.DirDefine, pplens.DirUndef}
	case "pragmas":
		kept = kind(pplens.DirPragma)
	case "errors":
		kept = kind(pplens.DirError)
	case "lines":
		kept = kind(pplens.DirLine)
	case "directives":
		kept = anyDirective{}
	default:
		return fmt.Errorf("pplens: unsupported report command %q", opt.Command)
	}

	if opt.Command == "symbols" {
		// drive the whole file through the dispatcher first so any
		// in-source #define/#undef lands in the table as a transient
		// symbol, then list the table rather than individual lines.
		for {
			pl, ok := reader.Next()
			if !ok {
				break
			}
			if res := drv.ProcessLine(&pl); res.Err != nil {
				return res.Err
			}
		}
		if err := reportSymbols(an, opt, w); err != nil {
			return err
		}
		return an.Sink.Flush()
	}

	for {
		pl, ok := reader.Next()
		if !ok {
			break
		}
		res := drv.ProcessLine(&pl)
		if res.Err != nil {
			return res.Err
		}
		if pl.Directive == pplens.DirNone {
			continue
		}
		if !kept.matches(pl.Directive) {
			continue
		}
		if opt.Active && pl.Dropping {
			continue
		}
		if opt.Inactive && !pl.Dropping {
			continue
		}
		rl := ReportLine{File: file, Line: pl.FirstLine, Directive: pl.Directive, Text: strings.TrimSpace(pl.Text), Dropping: pl.Dropping}
		fmt.Fprintln(w, rl.String())
	}
	return an.Sink.Flush()
}

// String renders one report row as "file:line: text", marking dropped
// (dead-branch) lines with a leading '-' the way `diff`-style tools
// flag a removed line.
func (r ReportLine) String() string {
	marker := " "
	if r.Dropping {
		marker = "-"
	}
	return fmt.Sprintf("%s%s:%d: %s", marker, r.File, r.Line, r.Text)
}

// directiveFilter is a small matcher over pplens.DirectiveType values,
// letting each report command select the directive kinds it lists.
type directiveFilter interface {
	matches(pplens.DirectiveType) bool
}

type kind pplens.DirectiveType

func (k kind) matches(d pplens.DirectiveType) bool { return pplens.DirectiveType(k) == d }

type kindAny []pplens.DirectiveType

func (k kindAny) matches(d pplens.DirectiveType) bool {
	for _, want := range k {
		if want == d {
			return true
		}
	}
	return false
}

type anyDirective struct{}

func (anyDirective) matches(pplens.DirectiveType) bool { return true }

func mustMaxExpansion(s string) int {
	n, err := ParseMaxExpansion(s)
	if err != nil || n == 0 {
		return pplens.DefaultMaxExpansion
	}
	return n
}
