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
	"fmt"
	"strings"
)

// Expander is the shared contract of §4.5's two expansion-engine
// variants (unexpanded and explained), as suggested by §9 "Expansion
// recursion": two implementations of one small capability interface.
type Expander interface {
	// Expand recursively replaces identifiers by their substitution
	// formats, substituting arguments per-parameter (literal,
	// macro-expanded, quoted), and returns the resulting text.
	Expand(t *SymbolTable, ref Reference, depth int) (string, bool /*complete*/)
	// Implicit reports whether unconfigured symbols should still be
	// expanded as "undefined" (i.e. --implicit is in effect).
	Implicit() bool
}

// unexpandedExpander is the default, silent expansion variant.
type unexpandedExpander struct {
	implicit  bool
	maxExpand int
	// self is the outermost Expander that rescan/substitute recurse
	// through for nested references; it defaults to the receiver
	// itself but explainedExpander overrides it to itself so that
	// embedding doesn't swallow the polymorphic dispatch.
	self Expander
}

func NewExpander(implicit bool, maxExpand int) Expander {
	e := &unexpandedExpander{implicit: implicit, maxExpand: maxExpand}
	e.self = e
	return e
}

func (e *unexpandedExpander) Implicit() bool { return e.implicit }

func (e *unexpandedExpander) Expand(t *SymbolTable, ref Reference, depth int) (string, bool) {
	sym := t.Symbol(ref.Callee)
	if sym == nil || !sym.IsDefined() {
		if !e.implicit {
			return rawReferenceText(t, ref), true
		}
		return "", true
	}
	if sym.snapshot == SnapInfinite {
		return rawReferenceText(t, ref), true
	}
	text, ok := e.substitute(t, sym, ref, depth)
	if !ok {
		return text, false
	}
	return e.rescan(t, text, depth)
}

// substitute applies the callee's substitution format, expanding
// arguments whose specifier handling requires it before substitution.
func (e *unexpandedExpander) substitute(t *SymbolTable, sym *Symbol, ref Reference, depth int) (string, bool) {
	if sym.Format == nil {
		return "", true
	}
	argExpanded := make(map[int]string)
	complete := true
	result := sym.Format.Render(func(s specifier) string {
		if s.ParamIndex() >= len(ref.Args) {
			return ""
		}
		raw := ref.Args[s.ParamIndex()]
		switch s.Handling() {
		case SubstituteQuoted:
			return QuoteArgument(raw)
		case SubstituteExpanded:
			if v, ok := argExpanded[s.ParamIndex()]; ok {
				return v
			}
			expanded, ok := expandArgumentText(t, raw, e, depth+1)
			if !ok {
				complete = false
			}
			argExpanded[s.ParamIndex()] = expanded
			return expanded
		default: // SubstituteLiteral
			return raw
		}
	})
	if len(result) > e.maxExpand {
		return result[:e.maxExpand], false
	}
	return result, complete
}

// rescan replaces every identifier in text that resolves to a
// configured or in-progress symbol by a recursive expansion of that
// identifier's invocation, so the text keeps expanding while change is
// possible (§4.5 "Expansion engine").
func (e *unexpandedExpander) rescan(t *SymbolTable, text string, depth int) (string, bool) {
	if depth > 200 {
		return text, false
	}
	var sb strings.Builder
	cur := NewCursor([]byte(text), true, nil, "", 0)
	changed := false
	complete := true
	for cur.InRange() {
		if isNameStart(cur.CurrentChar()) {
			start := cur.pos
			cur.scanName()
			name := text[start:cur.pos]
			loc := t.Lookup(name)
			sym := t.Symbol(loc)
			if sym != nil && (sym.IsDefined() || sym.snapshot == SnapDefineInProgress) {
				ref := parseInvocation(cur, loc, sym)
				sub, ok := e.self.Expand(t, ref, depth+1)
				if !ok {
					complete = false
				}
				sb.WriteString(sub)
				changed = true
				continue
			}
			sb.WriteString(name)
			continue
		}
		sb.WriteByte(cur.CurrentChar())
		cur.pos++
	}
	out := sb.String()
	if !changed {
		return out, complete
	}
	if out == text {
		return out, complete
	}
	next, ok := e.rescan(t, out, depth+1)
	return next, ok && complete
}

// explainedExpander behaves like unexpandedExpander but emits a
// diagnostic at every edit with a sequence number, propagating each
// edit upward through the chain of invoking expansions (§4.5
// "Explained expansion").
type explainedExpander struct {
	unexpandedExpander
	sink *Sink
	seq  int
	file string
	line int
}

func NewExplainedExpander(implicit bool, maxExpand int, sink *Sink, file string, line int) Expander {
	e := &explainedExpander{
		unexpandedExpander: unexpandedExpander{implicit: implicit, maxExpand: maxExpand},
		sink:               sink, file: file, line: line,
	}
	e.unexpandedExpander.self = e
	return e
}

// Expand wraps unexpandedExpander.Expand, diffing before/after text to
// report each edit. Because self points back here, a nested reference
// found during rescan re-enters this method too, so a chained
// expansion like type_comb3 -> type_comb2 -> ... logs one step per
// level instead of collapsing into a single outermost diff.
func (e *explainedExpander) Expand(t *SymbolTable, ref Reference, depth int) (string, bool) {
	sym := t.Symbol(ref.Callee)
	before := rawReferenceText(t, ref)
	out, ok := e.unexpandedExpander.Expand(t, ref, depth)
	if sym != nil && sym.IsDefined() && out != before {
		e.seq++
		e.sink.Emit(Diagnostic{
			Severity: Info, File: e.file, Line: e.line,
			Message: fmt.Sprintf("step %d: %s => %s", e.seq, before, out),
		})
	}
	return out, ok
}

func rawReferenceText(t *SymbolTable, ref Reference) string {
	sym := t.Symbol(ref.Callee)
	name := ""
	if sym != nil {
		name = sym.ID
	}
	if !ref.HasArgs {
		return name
	}
	return name + "(" + strings.Join(ref.Args, ",") + ")"
}

// expandArgumentText recursively expands an actual-argument string
// (itself possibly containing nested references) as plain text, used
// by the "macro-expanded" per-parameter handling.
func expandArgumentText(t *SymbolTable, text string, e Expander, depth int) (string, bool) {
	if depth > 200 {
		return text, false
	}
	sub, ok := e.(*unexpandedExpander)
	if !ok {
		return text, true
	}
	return sub.rescan(t, text, depth)
}

// parseInvocation recognizes an optional parenthesized argument list
// immediately following a bare identifier (cur is positioned right
// after the identifier name), advancing cur past the argument list
// when present.
func parseInvocation(cur *Cursor, loc Locator, sym *Symbol) Reference {
	if sym.IsObjectLike() || cur.CurrentChar() != '(' {
		return Reference{Callee: loc, HasArgs: false}
	}
	args, _ := ParseActualArgs(cur)
	return Reference{Callee: loc, Args: args, HasArgs: true}
}

// digest performs §4.5's full expansion+evaluation outline for one
// reference, producing a CacheEntry.
func digest(t *SymbolTable, ref Reference, ex Expander, maxExpand int) *CacheEntry {
	sym := t.Symbol(ref.Callee)
	if sym == nil {
		return &CacheEntry{Complete: true}
	}
	if sym.Formals != nil && sym.Formals.Variadic {
		return &CacheEntry{Eval: InsolubleResult(), Complete: true}
	}
	if ref.HasArgs && sym.Formals != nil && !sym.Formals.Variadic {
		want := len(sym.Formals.Names)
		if len(ref.Args) != want {
			if sym.IsDefined() {
				return &CacheEntry{Eval: InsolubleResult(), Complete: true}
			}
		}
	}
	if sym.snapshot == SnapInfinite {
		return &CacheEntry{Eval: InsolubleResult(), Complete: true}
	}
	if !sym.IsDefined() && !ex.Implicit() {
		return &CacheEntry{Expansion: rawReferenceText(t, ref), Eval: UnresolvedResult(), Complete: true}
	}
	text, complete := ex.Expand(t, ref, 0)
	entry := &CacheEntry{Expansion: text, Complete: complete}
	if looksLikeStringOrHeader(text) {
		entry.Eval = InsolubleResult()
		return entry
	}
	entry.Eval = EvaluateExpr(text, t, ex, nil)
	return entry
}

// looksLikeStringOrHeader reports whether text scans as exactly one
// string_literal or one header_name, which per §4.5 cannot be further
// reduced and must be marked insoluble rather than handed to the
// expression evaluator.
func looksLikeStringOrHeader(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 2 {
		return false
	}
	if trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		return true
	}
	if trimmed[0] == '<' && trimmed[len(trimmed)-1] == '>' {
		return true
	}
	return false
}
