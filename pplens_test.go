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

func TestAnalyserProcessSourceDropsDeadBranch(t *testing.T) {
	an := NewAnalyser(NewSink(nil))
	if err := an.DefineGlobal("FOO", nil, "1"); err != nil {
		t.Fatalf("DefineGlobal: %v", err)
	}
	out, err := an.ProcessSource([]byte("a\n#if defined(FOO)\nlive\n#else\ndead\n#endif\nb\n"), "t.c", false)
	if err != nil {
		t.Fatalf("ProcessSource: %v", err)
	}
	if want := "a\nlive\nb\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestAnalyserUndefGlobalThenDefinedIsFalse(t *testing.T) {
	an := NewAnalyser(NewSink(nil))
	if err := an.UndefGlobal("FOO"); err != nil {
		t.Fatalf("UndefGlobal: %v", err)
	}
	out, err := an.ProcessSource([]byte("#if defined(FOO)\ndead\n#endif\nb\n"), "t.c", false)
	if err != nil {
		t.Fatalf("ProcessSource: %v", err)
	}
	if want := "b\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestAnalyserSymbolsAndSelect(t *testing.T) {
	an := NewAnalyser(NewSink(nil))
	an.DefineGlobal("FOO_A", nil, "1")
	an.DefineGlobal("FOO_B", nil, "1")
	an.DefineGlobal("BAR", nil, "1")

	an.Select([]string{"FOO_*"})
	reports := an.Symbols()
	byID := map[string]SymbolReport{}
	for _, r := range reports {
		byID[r.ID] = r
	}
	if byID["FOO_A"].Deselected || byID["FOO_B"].Deselected {
		t.Fatalf("FOO_* should select FOO_A and FOO_B, got %+v", byID)
	}
	if !byID["BAR"].Deselected {
		t.Fatalf("FOO_* should not select BAR, got %+v", byID["BAR"])
	}
}

func TestAnalyserSymbolsSortedByID(t *testing.T) {
	an := NewAnalyser(NewSink(nil))
	an.DefineGlobal("ZEBRA", nil, "1")
	an.DefineGlobal("ALPHA", nil, "1")
	an.DefineGlobal("MIDDLE", nil, "1")

	reports := an.Symbols()
	for i := 1; i < len(reports); i++ {
		if reports[i-1].ID > reports[i].ID {
			t.Fatalf("Symbols() should be sorted by ID, got %v", reports)
		}
	}
}

func TestMatchesSelectPattern(t *testing.T) {
	cases := []struct {
		id, pattern string
		want        bool
	}{
		{"FOO", "FOO", true},
		{"FOO", "FOO*", true},
		{"FOOBAR", "FOO*", true},
		{"FOO", "FOOBAR", false},
		{"BAR", "FOO*", false},
		{"", "*", true},
	}
	for _, c := range cases {
		if got := matchesSelectPattern(c.id, c.pattern); got != c.want {
			t.Fatalf("matchesSelectPattern(%q, %q) = %v, want %v", c.id, c.pattern, got, c.want)
		}
	}
}
