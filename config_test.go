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

func newTestConfig() *Config {
	sink := NewSink(nil)
	table := NewSymbolTable(sink)
	return NewConfig(table, sink)
}

func TestDigestGlobalDefineDuplicate(t *testing.T) {
	c := newTestConfig()
	if err := c.DigestGlobalDefine("FOO", nil, "1"); err != nil {
		t.Fatalf("first -D FOO=1: %v", err)
	}
	if err := c.DigestGlobalDefine("FOO", nil, "1"); err != nil {
		t.Fatalf("duplicate -D FOO=1 should be a warning, not an error: %v", err)
	}
}

func TestDigestGlobalDefineConflict(t *testing.T) {
	c := newTestConfig()
	if err := c.DigestGlobalDefine("FOO", nil, "1"); err != nil {
		t.Fatalf("first -D FOO=1: %v", err)
	}
	if err := c.DigestGlobalDefine("FOO", nil, "2"); err != errGlobalConflict {
		t.Fatalf("conflicting -D FOO=2 should fail with errGlobalConflict, got %v", err)
	}
}

func TestDigestGlobalUndefConflict(t *testing.T) {
	c := newTestConfig()
	if err := c.DigestGlobalDefine("FOO", nil, "1"); err != nil {
		t.Fatalf("-D FOO=1: %v", err)
	}
	if err := c.DigestGlobalUndef("FOO"); err != errGlobalConflict {
		t.Fatalf("-U FOO after -D FOO=1 should conflict, got %v", err)
	}
}

func TestDigestTransientDefineAgainstGlobal(t *testing.T) {
	c := newTestConfig()
	c.DigestGlobalDefine("FOO", nil, "1")

	outcome, err := c.DigestTransientDefine("FOO", nil, "1", 10, "a.c")
	if err != nil || outcome != DefineDropDuplicate {
		t.Fatalf("in-source #define FOO 1 matching -D FOO=1 should drop, got %v/%v", outcome, err)
	}

	outcome, err = c.DigestTransientDefine("FOO", nil, "2", 11, "a.c")
	if err != nil || outcome != DefineConflict {
		t.Fatalf("in-source #define FOO 2 contradicting -D FOO=1 should conflict, got %v/%v", outcome, err)
	}
}

func TestDigestTransientDefineUnconfigured(t *testing.T) {
	c := newTestConfig()
	outcome, err := c.DigestTransientDefine("BAR", nil, "1", 5, "a.c")
	if err != nil || outcome != DefineKeep {
		t.Fatalf("first in-source #define BAR 1 should keep, got %v/%v", outcome, err)
	}
	sym := c.Table.Symbol(c.Table.Locator("BAR"))
	if sym.Provenance != Transient || sym.Definition != "1" {
		t.Fatalf("BAR should be transiently defined as 1, got %+v", sym)
	}
}

// TestDeferredUndefForgotten exercises spec.md §8 scenario 6: source
// applied to "#undef X\n#define X 1" with global -DX=1 defers the
// #undef's conflict diagnostic, then forgets it once the #define
// restores agreement with the global definition.
func TestDeferredUndefForgotten(t *testing.T) {
	c := newTestConfig()
	c.DigestGlobalDefine("X", nil, "1")

	outcome, err := c.DigestTransientUndef("X", 1, "a.c")
	if err != nil || outcome != UndefConflictDeferred {
		t.Fatalf("#undef X against global -DX=1 should defer, got %v/%v", outcome, err)
	}
	if len(c.pendingUndefDefer) != 1 {
		t.Fatalf("expected one pending deferred diagnostic, got %d", len(c.pendingUndefDefer))
	}

	defOutcome, err := c.DigestTransientDefine("X", nil, "1", 2, "a.c")
	if err != nil || defOutcome != DefineDropDuplicate {
		t.Fatalf("#define X 1 restoring the global definition should drop as a duplicate, got %v/%v", defOutcome, err)
	}
	if len(c.pendingUndefDefer) != 0 {
		t.Fatalf("the pending #undef diagnostic should have been resolved (discarded), got %d still pending", len(c.pendingUndefDefer))
	}
	if len(c.Sink.Emitted()) != 0 {
		t.Fatalf("no diagnostic should have been emitted, only discarded: %v", c.Sink.Emitted())
	}
}

func TestDigestTransientUndefAlreadyUndefinedGlobal(t *testing.T) {
	c := newTestConfig()
	c.DigestGlobalUndef("FOO")
	outcome, err := c.DigestTransientUndef("FOO", 3, "a.c")
	if err != nil || outcome != UndefDrop {
		t.Fatalf("#undef FOO when already globally undefined should drop, got %v/%v", outcome, err)
	}
}
