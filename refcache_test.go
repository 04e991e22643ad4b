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

func TestReferenceCacheLookupCachesEntry(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("FOO", nil, "1", 1, Global)
	ex := NewExpander(false, DefaultMaxExpansion)
	loc := table.Lookup("FOO")

	first := table.Cache().Lookup(Reference{Callee: loc, HasArgs: false}, ex)
	if first.Expansion != "1" {
		t.Fatalf("expected expansion %q, got %q", "1", first.Expansion)
	}
	second := table.Cache().Lookup(Reference{Callee: loc, HasArgs: false}, ex)
	if second != first {
		t.Fatalf("expected the same cached *CacheEntry on a second lookup")
	}
}

func TestReferenceCacheInvalidatedOnRedefine(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("FOO", nil, "1", 1, Global)
	ex := NewExpander(false, DefaultMaxExpansion)
	loc := table.Lookup("FOO")

	first := table.Cache().Lookup(Reference{Callee: loc, HasArgs: false}, ex)
	if first.Expansion != "1" {
		t.Fatalf("expected expansion %q, got %q", "1", first.Expansion)
	}
	table.Define("FOO", nil, "2", 2, Global)
	second := table.Cache().Lookup(Reference{Callee: loc, HasArgs: false}, ex)
	if second.Expansion != "2" {
		t.Fatalf("expected the cache to reflect the redefinition, got %q", second.Expansion)
	}
}

func TestReferenceCacheClearDropsEntries(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("FOO", nil, "1", 1, Global)
	ex := NewExpander(false, DefaultMaxExpansion)
	loc := table.Lookup("FOO")

	table.Cache().Lookup(Reference{Callee: loc, HasArgs: false}, ex)
	if len(table.Cache().Entries()) == 0 {
		t.Fatalf("expected a populated cache before Clear")
	}
	table.Cache().Clear()
	if len(table.Cache().Entries()) != 0 {
		t.Fatalf("expected an empty cache after Clear")
	}
}

func TestReferenceKeyIncludesArgs(t *testing.T) {
	table := NewSymbolTable(NewSink(nil))
	table.Define("MAX", &ParamList{Names: []string{"a", "b"}}, "((a)>(b)?(a):(b))", 1, Global)
	loc := table.Lookup("MAX")
	ref := Reference{Callee: loc, Args: []string{"1", "2"}, HasArgs: true}
	if got, want := ref.Key(table), "MAX(1,2)"; got != want {
		t.Fatalf("got key %q, want %q", got, want)
	}
}
