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

// Package pplens is a selective C/C++ preprocessor analyser: given a
// set of source files and a configuration of symbol definitions and
// undefinitions, it partitions each file's lines into live and dead
// under the assumed configuration, simplifies #if/#elif expressions,
// and reports on directives, symbols and macro references found (§1).
package pplens

import "github.com/golang/glog"

// Analyser is the process-wide core: one symbol table, one diagnostic
// sink, one reference cache (owned by the table), and the
// configuration that both seeds the table from -D/-U and drives the
// per-file directive digestion. It is the single entry point cmd/pplens
// and the test suite both drive (§5 "process-wide state... init at
// process start, reset per input file, teardown at process exit").
type Analyser struct {
	Table  *SymbolTable
	Sink   *Sink
	Config *Config
}

// NewAnalyser creates an Analyser with a fresh symbol table bound to
// sink, and a Config defaulting to --conflict=delete, --discard=drop.
func NewAnalyser(sink *Sink) *Analyser {
	table := NewSymbolTable(sink)
	return &Analyser{Table: table, Sink: sink, Config: NewConfig(table, sink)}
}

// DefineGlobal applies one -D option (§4.4, §6).
func (a *Analyser) DefineGlobal(id string, params *ParamList, defn string) error {
	return a.Config.DigestGlobalDefine(id, params, defn)
}

// UndefGlobal applies one -U option (§4.4, §6).
func (a *Analyser) UndefGlobal(id string) error {
	return a.Config.DigestGlobalUndef(id)
}

// newExpander builds the expansion-engine variant selected by
// --explain (§4.5's "two variants behind one interface").
func (a *Analyser) newExpander(explain bool, file string, line int) Expander {
	if explain {
		return NewExplainedExpander(a.Config.Implicit, a.Config.MaxExpansion, a.Sink, file, line)
	}
	return NewExpander(a.Config.Implicit, a.Config.MaxExpansion)
}

// ProcessSource runs the §4.7 per-file pipeline over buf and returns
// the simplified output text, honoring Config.Conflict/Config.Discard
// and the --explain expansion variant.
func (a *Analyser) ProcessSource(buf []byte, file string, explain bool) (string, error) {
	ex := a.newExpander(explain, file, 0)
	a.Table.Cache().SetMaxExpansion(a.Config.MaxExpansion)
	glog.V(1).Infof("pplens: processing %s", file)
	out, err := ProcessFile(buf, file, a.Table, a.Config, a.Sink, ex)
	if err != nil {
		glog.Warningf("pplens: %s: %v", file, err)
	}
	return out, err
}

// SymbolReport is one row of the `symbols` report command (§6).
type SymbolReport struct {
	ID         string
	Defined    bool
	Provenance Provenance
	Definition string
	LastLine   int
	Deselected bool
}

// Symbols returns a stable, name-sorted report of every known symbol
// (the `symbols` command's default listing, §6).
func (a *Analyser) Symbols() []SymbolReport {
	var out []SymbolReport
	for id, loc := range a.Table.byName {
		sym := a.Table.Symbol(loc)
		if sym == nil {
			continue
		}
		out = append(out, SymbolReport{
			ID: id, Defined: sym.IsDefined(), Provenance: sym.Provenance,
			Definition: sym.Definition, LastLine: sym.LastLine, Deselected: sym.Deselected,
		})
	}
	sortSymbolReports(out)
	return out
}

// Explain renders the step-by-step substitution chain for one symbol,
// invoking it with its own formal parameter names standing in for
// actual arguments, so a function-like macro that expands into
// another macro call reports one step per level of the chain (§8
// scenario 4, the `symbols --explain` listing). It returns nil for an
// unknown or undefined symbol, or for an expansion that performs no
// substitution.
func (a *Analyser) Explain(id string) []string {
	loc, ok := a.Table.byName[id]
	if !ok {
		return nil
	}
	sym := a.Table.Symbol(loc)
	if sym == nil || !sym.IsDefined() {
		return nil
	}
	ref := Reference{Callee: loc}
	if !sym.IsObjectLike() {
		ref.Args = sym.Formals.Names
		ref.HasArgs = true
	}
	sink := NewSink(nil)
	ex := NewExplainedExpander(a.Config.Implicit, a.Config.MaxExpansion, sink, id, sym.LastLine)
	ex.Expand(a.Table, ref, 0)
	var steps []string
	for _, d := range sink.Emitted() {
		steps = append(steps, d.Message)
	}
	return steps
}

func sortSymbolReports(rs []SymbolReport) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && rs[j-1].ID > rs[j].ID; j-- {
			rs[j-1], rs[j] = rs[j], rs[j-1]
		}
	}
}

// Select applies a `--select` wildcard pattern (a literal prefix with
// an optional trailing `*`) to mark matching symbols Deselected=false
// and every other symbol Deselected=true, per §6.
func (a *Analyser) Select(patterns []string) {
	if len(patterns) == 0 {
		return
	}
	for _, loc := range a.Table.byName {
		sym := a.Table.Symbol(loc)
		if sym == nil {
			continue
		}
		sym.Deselected = !matchesAny(sym.ID, patterns)
	}
}

func matchesAny(id string, patterns []string) bool {
	for _, p := range patterns {
		if matchesSelectPattern(id, p) {
			return true
		}
	}
	return false
}

// matchesSelectPattern implements §6's "wildcard * permitted only as
// final char" rule.
func matchesSelectPattern(id, pattern string) bool {
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		prefix := pattern[:n-1]
		return len(id) >= len(prefix) && id[:len(prefix)] == prefix
	}
	return id == pattern
}
