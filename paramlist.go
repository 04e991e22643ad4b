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

import "strings"

// ParamDefect is the defect code of a parameter list (§3).
type ParamDefect int

const (
	DefectNone ParamDefect = iota
	DefectEmptyParam
	DefectUnclosed
	DefectNonParam
)

// ParamList is the shared base for formal and actual parameter lists.
// A nil ParamList ("null list") is distinct from an empty ParamList{}
// ("()"), per §3.
type ParamList struct {
	Names    []string
	Defect   ParamDefect
	Variadic bool
}

// Null reports whether this is the null list (no parameter list at
// all, as opposed to an explicit empty "()").
func (p *ParamList) Null() bool { return p == nil }

// Canonical renders "(a,b,c)" with whitespace collapsed (§3).
func (p *ParamList) Canonical() string {
	if p == nil {
		return ""
	}
	return canonicalParamList(p.Names)
}

// ParseFormalParams parses a formal parameter list "(a, b, ...)"
// starting at cur's current '(' and consumes through the matching ')'.
// Returns nil if cur is not positioned at '(' (an object-like macro).
func ParseFormalParams(cur *Cursor) *ParamList {
	if cur.CurrentChar() != '(' {
		return nil
	}
	cur.pos++
	pl := &ParamList{}
	for {
		cur.Scan(Greyspace, Continuation)
		if cur.CurrentChar() == ')' {
			cur.pos++
			return pl
		}
		if !cur.InRange() {
			pl.Defect = DefectUnclosed
			return pl
		}
		if cur.CurrentChar() == '.' && cur.At(1) == '.' && cur.At(2) == '.' {
			cur.pos += 3
			pl.Variadic = true
			cur.Scan(Greyspace, Continuation)
			if cur.CurrentChar() == ')' {
				cur.pos++
			} else {
				pl.Defect = DefectUnclosed
			}
			return pl
		}
		name := canonSymbol(cur)
		if name == "" {
			pl.Defect = DefectNonParam
			// advance past the offending character to make progress.
			cur.pos++
		} else {
			pl.Names = append(pl.Names, name)
		}
		cur.Scan(Greyspace, Continuation)
		switch cur.CurrentChar() {
		case ',':
			cur.pos++
		case ')':
			cur.pos++
			return pl
		default:
			pl.Defect = DefectUnclosed
			return pl
		}
	}
}

// ParseActualArgs splits a balanced invocation argument list
// "(a, (b,c), d)" into canonical actual-argument strings, honoring
// nested parens per §4.2's macro-argument-canonical rule. cur must be
// positioned at the opening '('.
func ParseActualArgs(cur *Cursor) (args []string, defect ParamDefect) {
	if cur.CurrentChar() != '(' {
		return nil, DefectNone
	}
	cur.pos++
	cur.Scan(Greyspace, Continuation)
	if cur.CurrentChar() == ')' {
		cur.pos++
		return []string{}, DefectNone
	}
	for {
		arg := canonMacroArg(cur)
		args = append(args, arg)
		switch cur.CurrentChar() {
		case ',':
			cur.pos++
			continue
		case ')':
			cur.pos++
			return args, DefectNone
		default:
			return args, DefectUnclosed
		}
	}
}

// HandlingCode is the per-specifier substitution handling (§3).
type HandlingCode byte

const (
	SubstituteLiteral HandlingCode = iota
	SubstituteExpanded
	SubstituteQuoted
)

// specifier is one parameter reference embedded in a
// SubstitutionFormat (see DESIGN.md "Specifier encoding" for why this
// is a struct rather than the spec's inline byte-sentinel encoding).
type specifier struct {
	paramIndex int
	handling   HandlingCode
}

// SubstitutionFormat is a symbol's definition string with every
// parameter reference replaced by a specifier (§3). segs holds the
// literal runs and specs the specifiers; specs[i] sits between segs[i]
// and segs[i+1].
type SubstitutionFormat struct {
	segs  []string    // literal runs, len(segs) == len(specs)+1
	specs []specifier // one per gap between segs
}

// BuildSubstitutionFormat scans defn for identifiers that name a
// formal parameter and builds the interleaved format, applying the
// §3 adjustments for '#' (stringify) and '##' (token paste).
func BuildSubstitutionFormat(defn string, formals *ParamList, sink *Sink, file string, line int) (*SubstitutionFormat, error) {
	idx := map[string]int{}
	if formals != nil {
		for i, n := range formals.Names {
			idx[n] = i
		}
	}
	sf := rawSubstitutionFormat(defn, idx)
	return collapseStringifyAndPaste(sf, sink, file, line)
}

// rawSubstitutionFormat does the textual scan, replacing formal-
// parameter identifiers by substitute-expanded specifiers (the
// default handling before # / ## adjustments are applied).
func rawSubstitutionFormat(defn string, idx map[string]int) *SubstitutionFormat {
	sf := &SubstitutionFormat{segs: []string{""}}
	cur := NewCursor([]byte(defn), true, nil, "", 0)
	var lit strings.Builder
	flush := func() {
		sf.segs[len(sf.segs)-1] += lit.String()
		lit.Reset()
	}
	for cur.InRange() {
		ch := cur.CurrentChar()
		if isNameStart(ch) {
			start := cur.pos
			cur.scanName()
			name := defn[start:cur.pos]
			if pi, ok := idx[name]; ok {
				flush()
				sf.specs = append(sf.specs, specifier{paramIndex: pi, handling: SubstituteExpanded})
				sf.segs = append(sf.segs, "")
				continue
			}
			lit.WriteString(name)
			continue
		}
		if ch == '"' || ch == '\'' {
			start := cur.pos
			cur.scanStringLiteral()
			cur.scanCharacterLiteral()
			if cur.pos == start {
				cur.pos++
			}
			lit.WriteString(defn[start:cur.pos])
			continue
		}
		lit.WriteByte(ch)
		cur.pos++
	}
	flush()
	return sf
}

// collapseStringifyAndPaste applies the §3 adjustments:
//   - "# <param>" collapses to a single specifier with
//     handling=substitute-quoted.
//   - "<op> ## <op>" collapses: both operands (if specifiers) get
//     handling downgraded to substitute-literal, and the "##" plus
//     surrounding whitespace is excised. "##" at either end, or
//     pasting non-token operands, is a defined error.
func collapseStringifyAndPaste(sf *SubstitutionFormat, sink *Sink, file string, line int) (*SubstitutionFormat, error) {
	// stringify: a literal segment ending in "#" immediately before a
	// specifier collapses that '#' away and marks the specifier quoted.
	for i := range sf.specs {
		seg := sf.segs[i]
		trimmed := strings.TrimRight(seg, " \t")
		if strings.HasSuffix(trimmed, "#") && !strings.HasSuffix(trimmed, "##") {
			sf.segs[i] = strings.TrimSuffix(trimmed, "#")
			sf.specs[i].handling = SubstituteQuoted
		}
	}
	// token paste between a specifier and an adjoining literal token:
	// the "##" and the whitespace around it are excised and the
	// specifier is downgraded to substitute-literal.
	for i := range sf.specs {
		if left := strings.TrimRight(sf.segs[i], " \t"); strings.HasSuffix(left, "##") && strings.TrimSpace(left) != "##" {
			sf.segs[i] = strings.TrimRight(strings.TrimSuffix(left, "##"), " \t")
			sf.specs[i].handling = SubstituteLiteral
		}
		if right := strings.TrimLeft(sf.segs[i+1], " \t"); strings.HasPrefix(right, "##") && strings.TrimSpace(right) != "##" {
			sf.segs[i+1] = strings.TrimLeft(strings.TrimPrefix(right, "##"), " \t")
			sf.specs[i].handling = SubstituteLiteral
		}
	}
	// token paste between two specifiers: a literal segment between
	// them consisting solely of "##" (optionally surrounded by
	// whitespace) triggers the paste collapse.
	out := &SubstitutionFormat{segs: []string{sf.segs[0]}}
	i := 0
	for i < len(sf.specs) {
		out.specs = append(out.specs, sf.specs[i])
		gap := sf.segs[i+1]
		trimmedGap := strings.TrimSpace(gap)
		if trimmedGap == "##" {
			if i == len(sf.specs)-1 {
				sink.Emit(Diagnostic{Severity: Error, ID: ReasonBadTokenPaste, File: file, Line: line, Message: "'##' cannot appear at the end of a macro expansion"})
				return nil, errBadTokenPaste
			}
			out.specs[len(out.specs)-1].handling = SubstituteLiteral
			sf.specs[i+1].handling = SubstituteLiteral
			out.segs = append(out.segs, "")
			i++
			continue
		}
		out.segs = append(out.segs, gap)
		i++
	}
	if len(out.segs) == 0 {
		out.segs = []string{""}
	}
	if strings.HasPrefix(strings.TrimSpace(out.segs[0]), "##") && len(out.specs) > 0 {
		sink.Emit(Diagnostic{Severity: Error, ID: ReasonBadTokenPaste, File: file, Line: line, Message: "'##' cannot appear at the start of a macro expansion"})
		return nil, errBadTokenPaste
	}
	return out, nil
}

var errBadTokenPaste = &substFormatError{"invalid use of '##'"}

type substFormatError struct{ msg string }

func (e *substFormatError) Error() string { return e.msg }

// Render substitutes args (already in literal/expanded/quoted form per
// specifier, supplied by the caller) into the format, producing the
// expansion text.
func (sf *SubstitutionFormat) Render(argFor func(specifier) string) string {
	var sb strings.Builder
	for i, seg := range sf.segs {
		sb.WriteString(seg)
		if i < len(sf.specs) {
			sb.WriteString(argFor(sf.specs[i]))
		}
	}
	return sb.String()
}

// Specifiers exposes the parsed specifier list, e.g. so the caller can
// precompute literal/expanded/quoted forms of each actual argument.
func (sf *SubstitutionFormat) Specifiers() []specifier { return sf.specs }

func (s specifier) ParamIndex() int        { return s.paramIndex }
func (s specifier) Handling() HandlingCode { return s.handling }

// QuoteArgument applies the §4.5 quoting rule: surround with "…" and
// escape every \ and " by prefixing a \.
func QuoteArgument(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || s[i] == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}
