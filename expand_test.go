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

import "testing"

func TestExpandObjectLikeMacro(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("FOO", nil, "1", 1, Global)
	ex := NewExpander(false, DefaultMaxExpansion)
	loc := table.Lookup("FOO")

	out, complete := ex.Expand(table, Reference{Callee: loc, HasArgs: false}, 0)
	if !complete || out != "1" {
		t.Fatalf("got (%q, %v), want (\"1\", true)", out, complete)
	}
}

func TestExpandFunctionLikeMacroSubstitutesArgs(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("ADD", &ParamList{Names: []string{"a", "b"}}, "(a)+(b)", 1, Global)
	ex := NewExpander(false, DefaultMaxExpansion)
	loc := table.Lookup("ADD")

	out, complete := ex.Expand(table, Reference{Callee: loc, Args: []string{"1", "2"}, HasArgs: true}, 0)
	if !complete || out != "(1)+(2)" {
		t.Fatalf("got (%q, %v), want (\"(1)+(2)\", true)", out, complete)
	}
}

func TestExpandUndefinedNonImplicitReturnsRawText(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	ex := NewExpander(false, DefaultMaxExpansion)
	loc := table.Lookup("NEVER_SEEN")

	out, complete := ex.Expand(table, Reference{Callee: loc, HasArgs: false}, 0)
	if !complete || out != "NEVER_SEEN" {
		t.Fatalf("got (%q, %v), want (\"NEVER_SEEN\", true)", out, complete)
	}
}

func TestExpandUndefinedImplicitReturnsEmpty(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	ex := NewExpander(true, DefaultMaxExpansion)
	loc := table.Lookup("NEVER_SEEN")

	out, complete := ex.Expand(table, Reference{Callee: loc, HasArgs: false}, 0)
	if !complete || out != "" {
		t.Fatalf("got (%q, %v), want (\"\", true)", out, complete)
	}
}

func TestExpandRescanChainsThroughAnotherMacro(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("FOO", nil, "BAR", 1, Global)
	table.Define("BAR", nil, "1", 2, Global)
	ex := NewExpander(false, DefaultMaxExpansion)
	loc := table.Lookup("FOO")

	out, complete := ex.Expand(table, Reference{Callee: loc, HasArgs: false}, 0)
	if !complete || out != "1" {
		t.Fatalf("got (%q, %v), want (\"1\", true)", out, complete)
	}
}

func TestExpandSelfReferentialStaysRaw(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("LOOP", nil, "LOOP", 1, Global)
	ex := NewExpander(false, DefaultMaxExpansion)
	loc := table.Lookup("LOOP")

	out, complete := ex.Expand(table, Reference{Callee: loc, HasArgs: false}, 0)
	if !complete || out != "LOOP" {
		t.Fatalf("a self-referential macro should expand to its own raw text, got (%q, %v)", out, complete)
	}
}

func TestExplainedExpanderEmitsStepDiagnostic(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("FOO", nil, "1", 1, Global)
	sink := NewSink(nil)
	ex := NewExplainedExpander(false, DefaultMaxExpansion, sink, "t.c", 5)
	loc := table.Lookup("FOO")

	out, _ := ex.Expand(table, Reference{Callee: loc, HasArgs: false}, 0)
	if out != "1" {
		t.Fatalf("got %q, want \"1\"", out)
	}
	emitted := sink.Emitted()
	if len(emitted) != 1 || emitted[0].Severity != Info {
		t.Fatalf("expected one Info diagnostic describing the expansion step, got %v", emitted)
	}
}

func TestExplainedExpanderChainsStepsThroughNestedMacro(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("FOO", nil, "BAR", 1, Global)
	table.Define("BAR", nil, "1", 2, Global)
	sink := NewSink(nil)
	ex := NewExplainedExpander(false, DefaultMaxExpansion, sink, "t.c", 5)
	loc := table.Lookup("FOO")

	out, _ := ex.Expand(table, Reference{Callee: loc, HasArgs: false}, 0)
	if out != "1" {
		t.Fatalf("got %q, want \"1\"", out)
	}
	emitted := sink.Emitted()
	if len(emitted) != 2 {
		t.Fatalf("expected a step per level of the chain, got %v", emitted)
	}
	if emitted[0].Message != "step 1: BAR => 1" {
		t.Fatalf("expected the inner edit to be reported first, got %q", emitted[0].Message)
	}
	if emitted[1].Message != "step 2: FOO => 1" {
		t.Fatalf("expected the outer edit reported after its nested edit, got %q", emitted[1].Message)
	}
}

func TestDigestWrongArgCountIsInsoluble(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("ADD", &ParamList{Names: []string{"a", "b"}}, "(a)+(b)", 1, Global)
	ex := NewExpander(false, DefaultMaxExpansion)
	loc := table.Lookup("ADD")

	entry := digest(table, Reference{Callee: loc, Args: []string{"1"}, HasArgs: true}, ex, DefaultMaxExpansion)
	if !entry.Eval.Insoluble {
		t.Fatalf("a call with the wrong argument count should be insoluble, got %+v", entry)
	}
}

func TestDigestStringLiteralResultIsInsoluble(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("STR", nil, `"hello"`, 1, Global)
	ex := NewExpander(false, DefaultMaxExpansion)
	loc := table.Lookup("STR")

	entry := digest(table, Reference{Callee: loc, HasArgs: false}, ex, DefaultMaxExpansion)
	if !entry.Eval.Insoluble {
		t.Fatalf("a macro expanding to a string literal should be insoluble, got %+v", entry)
	}
}

func TestDigestVariadicIsInsoluble(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("VA", &ParamList{Names: []string{"a"}, Variadic: true}, "a", 1, Global)
	ex := NewExpander(false, DefaultMaxExpansion)
	loc := table.Lookup("VA")

	entry := digest(table, Reference{Callee: loc, Args: []string{"1"}, HasArgs: true}, ex, DefaultMaxExpansion)
	if !entry.Eval.Insoluble {
		t.Fatalf("a variadic macro should always be insoluble, got %+v", entry)
	}
}
