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

func TestSinkEmitRecordsAndCounts(t *testing.T) {
	s := NewSink(nil)
	s.Emit(Diagnostic{Severity: Warning, ID: ReasonZeroDivide, File: "t.c", Line: 3})
	if len(s.Emitted()) != 1 {
		t.Fatalf("expected one emitted diagnostic, got %v", s.Emitted())
	}
	if s.ExitBits() != 0x2 {
		t.Fatalf("expected exit bit 0x2 for a Warning, got 0x%x", s.ExitBits())
	}
}

func TestSinkEmitAbendReturnsError(t *testing.T) {
	s := NewSink(nil)
	err := s.Emit(Diagnostic{Severity: Abend, ID: ReasonIfNestTooDeep})
	if _, ok := err.(AbendError); !ok {
		t.Fatalf("expected an AbendError, got %v", err)
	}
	if s.ExitBits() != 0x8 {
		t.Fatalf("expected exit bit 0x8 for an Abend, got 0x%x", s.ExitBits())
	}
}

func TestSinkGaggedSeverityNotEmittedButCounted(t *testing.T) {
	s := NewSink(GagSet{Warning: true})
	s.Emit(Diagnostic{Severity: Warning, ID: ReasonZeroDivide})
	if len(s.Emitted()) != 0 {
		t.Fatalf("gagged Warning should not appear in Emitted(), got %v", s.Emitted())
	}
	if s.ExitBits() != 0x2 {
		t.Fatalf("a gagged diagnostic still counts toward ExitBits, got 0x%x", s.ExitBits())
	}
}

func TestSinkDeferAndFlush(t *testing.T) {
	s := NewSink(nil)
	tkt := s.Defer(Diagnostic{Severity: Error, ID: ReasonUndefingDefined})
	if len(s.Emitted()) != 0 {
		t.Fatalf("a deferred diagnostic should not emit until Flush, got %v", s.Emitted())
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(s.Emitted()) != 1 {
		t.Fatalf("expected the deferred diagnostic to emit on Flush, got %v", s.Emitted())
	}
	_ = tkt
}

func TestSinkDeferAndDiscard(t *testing.T) {
	s := NewSink(nil)
	tkt := s.Defer(Diagnostic{Severity: Error, ID: ReasonUndefingDefined})
	s.Discard(tkt)
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(s.Emitted()) != 0 {
		t.Fatalf("a discarded ticket should never emit, got %v", s.Emitted())
	}
}

func TestSinkFlushOrdersByTicket(t *testing.T) {
	s := NewSink(nil)
	s.Defer(Diagnostic{Severity: Info, ID: ReasonNone, Message: "first"})
	s.Defer(Diagnostic{Severity: Info, ID: ReasonNone, Message: "second"})
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	got := s.Emitted()
	if len(got) != 2 || got[0].Message != "first" || got[1].Message != "second" {
		t.Fatalf("expected deferred diagnostics flushed in ticket order, got %v", got)
	}
}

func TestDiagnosticReasonEncoding(t *testing.T) {
	d := Diagnostic{Severity: Error, ID: ReasonZeroDivide}
	want := int(Error)<<8 | int(ReasonZeroDivide)
	if d.Reason() != want {
		t.Fatalf("got 0x%x, want 0x%x", d.Reason(), want)
	}
}

func TestSeverityString(t *testing.T) {
	cases := map[Severity]string{
		Progress: "progress",
		Info:     "info",
		Warning:  "warning",
		Error:    "error",
		Abend:    "abend",
	}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Fatalf("Severity(%d).String() = %q, want %q", sev, got, want)
		}
	}
}
