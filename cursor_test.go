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

func TestCursorCurrentCharOutOfRange(t *testing.T) {
	c := NewCursor([]byte("ab"), true, nil, "t.c", 1)
	c.SetPosition(5)
	if c.CurrentChar() != 0 {
		t.Fatalf("out-of-range CurrentChar should be 0")
	}
	if c.InRange() {
		t.Fatalf("out-of-range position should report InRange() == false")
	}
}

func TestCursorAtBounds(t *testing.T) {
	c := NewCursor([]byte("ab"), true, nil, "t.c", 1)
	if c.At(-1) != 0 || c.At(2) != 0 {
		t.Fatalf("At() should clamp to 0 outside the buffer")
	}
	if c.At(0) != 'a' || c.At(1) != 'b' {
		t.Fatalf("At() should read in-range bytes")
	}
}

func TestCursorScanGreyspaceSkipsCommentsInCxxMode(t *testing.T) {
	c := NewCursor([]byte("  /* c */  x"), true, nil, "t.c", 1)
	c.Scan(Greyspace, Continuation)
	if c.CurrentChar() != 'x' {
		t.Fatalf("expected cursor at 'x', got %q at pos %d", c.CurrentChar(), c.Position())
	}
}

func TestCursorScanGreyspaceNonCxxModeStopsAtComment(t *testing.T) {
	c := NewCursor([]byte("  /* c */  x"), false, nil, "t.c", 1)
	c.Scan(Greyspace, Continuation)
	if c.CurrentChar() != '/' {
		t.Fatalf("non-cxxMode Greyspace should not skip comments, got %q", c.CurrentChar())
	}
}

func TestCursorScanContinuation(t *testing.T) {
	c := NewCursor([]byte("\\\nx"), true, nil, "t.c", 1)
	c.Scan(Continuation)
	if c.CurrentChar() != 'x' {
		t.Fatalf("expected cursor past the line continuation, at 'x', got %q", c.CurrentChar())
	}
}

func TestCursorScanCxxCommentConsumesToNewline(t *testing.T) {
	c := NewCursor([]byte("// comment\nx"), true, nil, "t.c", 1)
	c.Scan(CxxComment)
	if c.CurrentChar() != '\n' {
		t.Fatalf("line comment should stop at the newline, got %q", c.CurrentChar())
	}
}

func TestCursorScanNameReadsIdentifier(t *testing.T) {
	c := NewCursor([]byte("foo_123 bar"), true, nil, "t.c", 1)
	name := canonSymbol(c)
	if name != "foo_123" {
		t.Fatalf("got %q, want %q", name, "foo_123")
	}
	if c.CurrentChar() != ' ' {
		t.Fatalf("cursor should stop at the space following the identifier")
	}
}
