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

// canonSymbol reads one identifier from c, skipping continuation
// sequences internally, and returns its canonical (as-written) text
// (§4.2 symbol-canonical).
func canonSymbol(c *Cursor) string {
	var sb strings.Builder
	for {
		c.scanContinuation()
		ch := c.CurrentChar()
		ok := isNameCont(ch)
		if sb.Len() == 0 {
			ok = isNameStart(ch)
		}
		if !ok {
			break
		}
		sb.WriteByte(ch)
		c.pos++
	}
	return sb.String()
}

// canonMacroArg reads one balanced macro argument, stopping at an
// unnested ',' or ')'; inner parens are preserved, runs of whitespace
// collapse to a single space except at a boundary following
// punctuation other than '#', and block comments are consumed
// silently (§4.2 macro-argument-canonical).
func canonMacroArg(c *Cursor) string {
	var sb strings.Builder
	depth := 0
	pendingSpace := false
	for c.InRange() {
		before := c.pos
		c.scanContinuation()
		if c.pos != before {
			continue
		}
		ch := c.CurrentChar()
		switch {
		case ch == '/' && c.At(1) == '*':
			c.scanCComment()
			pendingSpace = true
			continue
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\v' || ch == '\f':
			pendingSpace = true
			c.pos++
			continue
		case ch == '(':
			depth++
		case ch == ')':
			if depth == 0 {
				return sb.String()
			}
			depth--
		case ch == ',':
			if depth == 0 {
				return sb.String()
			}
		}
		if pendingSpace {
			pendingSpace = false
			if sb.Len() > 0 {
				last := sb.String()[sb.Len()-1]
				if !isPunctNonHash(last) {
					sb.WriteByte(' ')
				}
			}
		}
		sb.WriteByte(ch)
		c.pos++
	}
	return sb.String()
}

func isPunctNonHash(ch byte) bool {
	if ch == '#' {
		return false
	}
	if isNameCont(ch) || isWhitespaceByte(ch) {
		return false
	}
	return true
}

// canonFreeText reads to end of range, collapsing any run of
// whitespace + continuation to a single space and trimming trailing
// space (§4.2 free-text-canonical).
func canonFreeText(c *Cursor) string {
	var sb strings.Builder
	pendingSpace := false
	for c.InRange() {
		before := c.pos
		c.scanContinuation()
		if c.pos != before {
			pendingSpace = true
			continue
		}
		ch := c.CurrentChar()
		if isWhitespaceByte(ch) {
			pendingSpace = true
			c.pos++
			continue
		}
		if pendingSpace {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			pendingSpace = false
		}
		sb.WriteByte(ch)
		c.pos++
	}
	return strings.TrimRight(sb.String(), " ")
}

// canonicalParamList renders a formal/actual parameter list into the
// canonical string form "(a,b,c)" with whitespace collapsed (§3).
func canonicalParamList(names []string) string {
	return "(" + strings.Join(names, ",") + ")"
}
