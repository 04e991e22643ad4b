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

package pplens

import (
	"errors"
	"reflect"
)

// ConflictPolicy selects how an in-source #define/#undef that
// contradicts a global -D/-U is resolved (§4.7 "Contradiction
// handling").
type ConflictPolicy int

const (
	ConflictDelete ConflictPolicy = iota
	ConflictComment
	ConflictError
)

// DiscardPolicy controls how a dropped line is rendered in the output
// (§6 --discard).
type DiscardPolicy int

const (
	DiscardDrop DiscardPolicy = iota
	DiscardBlank
	DiscardComment
)

var errGlobalConflict = errors.New("pplens: conflicting command-line configuration")

// Config bundles the command-line configuration consulted by the
// symbol table's global-consistency checks and by the directive
// dispatcher's contradiction handling.
type Config struct {
	Table        *SymbolTable
	Sink         *Sink
	Conflict     ConflictPolicy
	Discard      DiscardPolicy
	Implicit     bool
	EvalWip      bool
	Complement   bool
	EmitLine     bool
	NoTransients bool
	MaxExpansion int

	pendingUndefDefer map[string]int
}

func NewConfig(table *SymbolTable, sink *Sink) *Config {
	return &Config{
		Table:             table,
		Sink:              sink,
		Conflict:          ConflictDelete,
		Discard:           DiscardDrop,
		MaxExpansion:      DefaultMaxExpansion,
		pendingUndefDefer: make(map[string]int),
	}
}

func paramsEqual(a, b *ParamList) bool {
	if a.Null() != b.Null() {
		return false
	}
	if a.Null() {
		return true
	}
	return a.Variadic == b.Variadic && reflect.DeepEqual(a.Names, b.Names)
}

// DigestGlobalDefine enforces §4.4's command-line consistency rule for
// a -D option, applied once per option before any source file is read.
func (c *Config) DigestGlobalDefine(id string, params *ParamList, defn string) error {
	loc := c.Table.Locator(id)
	sym := c.Table.Symbol(loc)
	if sym.IsDefined() && sym.Provenance == Global {
		if sym.Definition == defn && paramsEqual(sym.Formals, params) {
			c.Sink.Emit(Diagnostic{Severity: Warning, ID: ReasonConflict, Message: "duplicate -D for " + id})
			return nil
		}
		c.Sink.Emit(Diagnostic{Severity: Error, ID: ReasonConflict, Message: "conflicting -D for " + id})
		return errGlobalConflict
	}
	return c.Table.Define(id, params, defn, 0, Global)
}

// DigestGlobalUndef enforces the -U side of the same rule.
func (c *Config) DigestGlobalUndef(id string) error {
	loc := c.Table.Locator(id)
	sym := c.Table.Symbol(loc)
	if sym.IsDefined() && sym.Provenance == Global {
		c.Sink.Emit(Diagnostic{Severity: Error, ID: ReasonConflict, Message: "-U conflicts with earlier -D for " + id})
		return errGlobalConflict
	}
	c.Table.Undef(id, 0, Global)
	return nil
}

// DefineOutcome is the §4.4 decision-table result for an in-source
// #define.
type DefineOutcome int

const (
	DefineDropDuplicate DefineOutcome = iota // matches existing global def verbatim: drop the directive
	DefineKeep                               // new content applied; directive stays in source
	DefineConflict                           // contradicts the global configuration: apply --conflict policy
)

// DigestTransientDefine implements §4.4's decision table for an
// in-source #define. On DefineKeep it has already applied the
// definition to the table; on DefineConflict and DefineDropDuplicate
// it has not mutated the table (the global configuration stands).
func (c *Config) DigestTransientDefine(id string, params *ParamList, defn string, line int, file string) (DefineOutcome, error) {
	c.resolvePendingUndef(id, defn, params)

	loc := c.Table.Locator(id)
	sym := c.Table.Symbol(loc)
	switch {
	case sym.IsDefined() && sym.Provenance == Global:
		if sym.Definition == defn && paramsEqual(sym.Formals, params) {
			return DefineDropDuplicate, nil
		}
		return DefineConflict, nil
	case !sym.IsDefined() && sym.Provenance == Global:
		return DefineConflict, nil
	case sym.IsDefined() && sym.Provenance == Transient:
		if sym.Definition != defn || !paramsEqual(sym.Formals, params) {
			c.Sink.Emit(Diagnostic{Severity: Warning, ID: ReasonDifferingRedef, File: file, Line: line,
				Message: id + " redefined differently"})
		}
		if err := c.Table.Define(id, params, defn, line, Transient); err != nil {
			return DefineKeep, err
		}
		return DefineKeep, nil
	default: // unconfigured
		c.Sink.Emit(Diagnostic{Severity: Warning, ID: ReasonConflict, File: file, Line: line,
			Message: id + " transiently defined"})
		if err := c.Table.Define(id, params, defn, line, Transient); err != nil {
			return DefineKeep, err
		}
		return DefineKeep, nil
	}
}

// UndefOutcome is the §4.4 decision-table result for an in-source
// #undef.
type UndefOutcome int

const (
	UndefDrop               UndefOutcome = iota // already undefined, global: drop directive
	UndefKeep                                   // already undefined, transient: keep directive, no-op
	UndefApply                                  // applied (transient undef, possibly warned)
	UndefConflictDeferred                       // contradicts global -D: deferred (§4.7)
)

// DigestTransientUndef implements §4.4's decision table for an
// in-source #undef.
func (c *Config) DigestTransientUndef(id string, line int, file string) (UndefOutcome, error) {
	loc := c.Table.Locator(id)
	sym := c.Table.Symbol(loc)
	switch {
	case sym.IsDefined() && sym.Provenance == Global:
		tkt := c.Sink.Defer(Diagnostic{Severity: Error, ID: ReasonConflict, File: file, Line: line,
			Message: id + " #undef conflicts with a global -D"})
		c.pendingUndefDefer[id] = tkt
		return UndefConflictDeferred, nil
	case !sym.IsDefined() && sym.Provenance == Global:
		return UndefDrop, nil
	case sym.IsDefined() && sym.Provenance == Transient:
		c.Sink.Emit(Diagnostic{Severity: Warning, ID: ReasonUndefingDefined, File: file, Line: line,
			Message: id + " undefined while transiently defined"})
		c.Table.Undef(id, line, Transient)
		return UndefApply, nil
	case !sym.IsDefined() && sym.Provenance == Transient:
		return UndefKeep, nil
	default: // unconfigured
		c.Sink.Emit(Diagnostic{Severity: Warning, ID: ReasonConflict, File: file, Line: line,
			Message: id + " transiently undefined"})
		c.Table.Undef(id, line, Transient)
		return UndefApply, nil
	}
}

// resolvePendingUndef implements the "#undef FOO\n#define FOO …" idiom
// (§4.7): a pending deferred #undef-vs-global conflict for id is
// discarded (never reported) if this #define restores agreement with
// the global definition, otherwise it is left to be flushed as a real
// diagnostic by the caller's next Sink.Flush (at the next directive or
// EOF).
func (c *Config) resolvePendingUndef(id, defn string, params *ParamList) {
	tkt, ok := c.pendingUndefDefer[id]
	if !ok {
		return
	}
	delete(c.pendingUndefDefer, id)
	loc := c.Table.Locator(id)
	sym := c.Table.Symbol(loc)
	if sym.Provenance == Global && sym.Definition == defn && paramsEqual(sym.Formals, params) {
		c.Sink.Discard(tkt)
	}
}
