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

func TestParamListNullVsEmpty(t *testing.T) {
	var null *ParamList
	if !null.Null() {
		t.Fatalf("nil ParamList should be Null")
	}
	empty := &ParamList{}
	if empty.Null() {
		t.Fatalf("&ParamList{} should not be Null")
	}
}

func TestParseFormalParamsBasic(t *testing.T) {
	cur := NewCursor([]byte("(a, b, c)"), true, nil, "t.c", 1)
	pl := ParseFormalParams(cur)
	if pl == nil || pl.Defect != DefectNone {
		t.Fatalf("got %+v", pl)
	}
	if got, want := pl.Names, []string{"a", "b", "c"}; !namesEqual(got, want) {
		t.Fatalf("got names %v, want %v", got, want)
	}
}

func TestParseFormalParamsVariadic(t *testing.T) {
	cur := NewCursor([]byte("(a, ...)"), true, nil, "t.c", 1)
	pl := ParseFormalParams(cur)
	if pl == nil || !pl.Variadic || pl.Defect != DefectNone {
		t.Fatalf("got %+v", pl)
	}
}

func TestParseFormalParamsUnclosed(t *testing.T) {
	cur := NewCursor([]byte("(a, b"), true, nil, "t.c", 1)
	pl := ParseFormalParams(cur)
	if pl == nil || pl.Defect != DefectUnclosed {
		t.Fatalf("expected DefectUnclosed, got %+v", pl)
	}
}

func TestParseFormalParamsObjectLike(t *testing.T) {
	cur := NewCursor([]byte("1 + 2"), true, nil, "t.c", 1)
	if pl := ParseFormalParams(cur); pl != nil {
		t.Fatalf("no '(' at cursor should return nil, got %+v", pl)
	}
}

func TestParseActualArgsNestedParens(t *testing.T) {
	cur := NewCursor([]byte("(a, (b,c), d)"), true, nil, "t.c", 1)
	args, defect := ParseActualArgs(cur)
	if defect != DefectNone {
		t.Fatalf("unexpected defect %v", defect)
	}
	want := []string{"a", "(b,c)", "d"}
	if !namesEqual(args, want) {
		t.Fatalf("got args %v, want %v", args, want)
	}
}

func TestBuildSubstitutionFormatSubstitutesParams(t *testing.T) {
	formals := &ParamList{Names: []string{"a", "b"}}
	sf, err := BuildSubstitutionFormat("(a)+(b)", formals, NewSink(nil), "t.c", 1)
	if err != nil {
		t.Fatalf("BuildSubstitutionFormat: %v", err)
	}
	got := sf.Render(func(s specifier) string {
		return []string{"<A>", "<B>"}[s.ParamIndex()]
	})
	if want := "(<A>)+(<B>)"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildSubstitutionFormatStringify(t *testing.T) {
	formals := &ParamList{Names: []string{"x"}}
	sf, err := BuildSubstitutionFormat("#x", formals, NewSink(nil), "t.c", 1)
	if err != nil {
		t.Fatalf("BuildSubstitutionFormat: %v", err)
	}
	specs := sf.Specifiers()
	if len(specs) != 1 || specs[0].Handling() != SubstituteQuoted {
		t.Fatalf("expected one quoted specifier, got %+v", specs)
	}
}

func TestBuildSubstitutionFormatTokenPaste(t *testing.T) {
	formals := &ParamList{Names: []string{"a", "b"}}
	sf, err := BuildSubstitutionFormat("a##b", formals, NewSink(nil), "t.c", 1)
	if err != nil {
		t.Fatalf("BuildSubstitutionFormat: %v", err)
	}
	for _, s := range sf.Specifiers() {
		if s.Handling() != SubstituteLiteral {
			t.Fatalf("both sides of ## should downgrade to literal handling, got %+v", sf.Specifiers())
		}
	}
}

func TestBuildSubstitutionFormatTrailingPasteIsError(t *testing.T) {
	formals := &ParamList{Names: []string{"a"}}
	_, err := BuildSubstitutionFormat("a##", formals, NewSink(nil), "t.c", 1)
	if err == nil {
		t.Fatalf("expected an error for a trailing '##'")
	}
}

func TestQuoteArgumentEscapes(t *testing.T) {
	got := QuoteArgument(`a"b\c`)
	want := `"a\"b\\c"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func namesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
