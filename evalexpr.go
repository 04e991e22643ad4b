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

// EvalResult is the record of §3 "Evaluation": an integer value (or
// unresolved), a net-infix-operator count measuring residual
// complexity, an insoluble flag, an empty flag, and optional paren
// offsets.
type EvalResult struct {
	Value        Integer
	Resolved     bool
	NetOperators int
	Insoluble    bool
	Empty        bool
	ParenStart   int
	ParenEnd     int
	HasParens    bool
	Simplified   string
}

func UnresolvedResult() EvalResult { return EvalResult{Resolved: false} }
func InsolubleResult() EvalResult  { return EvalResult{Resolved: false, Insoluble: true} }
func ResolvedResult(v Integer) EvalResult {
	return EvalResult{Value: v, Resolved: !v.IsUndefined()}
}

// precedence levels, lowest first (so index 0 binds loosest). Matches
// the grammar in §4.6, including the `or/and/not/compl/bitand/bitor/
// xor/not_eq` alternative spellings.
var precLevels = [][]string{
	{","},
	{"?:"},
	{"||", "or"},
	{"&&", "and"},
	{"|", "bitor"},
	{"^", "xor"},
	{"&", "bitand"},
	{"==", "!=", "not_eq"},
	{"<", "<=", ">", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

var shortCircuitable = map[string]bool{"&&": true, "and": true, "||": true, "or": true, ",": true, "?:": true}

// altOperators are the identifier-shaped operator spellings, which the
// tokenizer marks as operators rather than operands.
var altOperators = map[string]bool{"and": true, "or": true, "not": true, "compl": true, "bitand": true, "bitor": true, "xor": true, "not_eq": true}

// evalCtx carries the shared dependencies through recursive descent.
type evalCtx struct {
	table     *SymbolTable
	expander  Expander
	sink      *Sink
	file      string
	line      int
	evalWip   bool // --eval-wip: literal 0/1 are values, not "unknowns"
	cuts      []cutSpan
	insoluble bool
}

type cutSpan struct{ start, end int }

// EvaluateExpr parses text as a preprocessor constant expression and
// evaluates it, performing the §4.6 partial evaluation and recording
// cuts for the simplified residual text.
func EvaluateExpr(text string, t *SymbolTable, ex Expander, sink *Sink) EvalResult {
	ctx := &evalCtx{table: t, expander: ex, sink: sink}
	toks, ok := tokenizeExpr(text)
	if !ok {
		return InsolubleResult()
	}
	if len(toks) == 0 {
		return EvalResult{Empty: true, Resolved: false}
	}
	res, _, _ := ctx.evalLevel(toks, 0, len(toks), 0)
	res.Simplified = ctx.simplify(toks, 0, len(toks))
	return res
}

// token is a lexed piece of the expression: an operator/punctuation
// spelling, or an operand (identifier/number/defined-expr), carrying
// its source span for cut bookkeeping.
type token struct {
	text   string
	start  int
	end    int
	isOp   bool
	isOpen bool // '(' opens a paren group starting here
}

// tokenizeExpr performs a minimal pp-expression tokenization: it does
// not itself evaluate, only splits into operator/operand/paren tokens,
// honoring nested parens so the precedence scan can skip over them.
func tokenizeExpr(text string) ([]token, bool) {
	var toks []token
	cur := NewCursor([]byte(text), true, nil, "", 0)
	for cur.InRange() {
		cur.Scan(Greyspace, Continuation)
		if !cur.InRange() {
			break
		}
		start := cur.pos
		ch := cur.CurrentChar()
		switch {
		case ch == '(' || ch == ')':
			cur.pos++
			toks = append(toks, token{text: string(ch), start: start, end: cur.pos, isOp: true, isOpen: ch == '('})
		case isNameStart(ch):
			cur.scanName()
			word := text[start:cur.pos]
			if word == "defined" {
				t, ok := parseDefinedOperand(cur, text, start)
				if !ok {
					return nil, false
				}
				toks = append(toks, t)
				continue
			}
			toks = append(toks, token{text: word, start: start, end: cur.pos, isOp: altOperators[word]})
		case isDigit(ch) || (ch == '.' && isDigit(cur.At(1))):
			cur.scanNumber()
			toks = append(toks, token{text: text[start:cur.pos], start: start, end: cur.pos})
		case ch == '\'':
			cur.scanCharacterLiteral()
			if cur.pos == start {
				return nil, false
			}
			toks = append(toks, token{text: text[start:cur.pos], start: start, end: cur.pos})
		case ch == '"':
			cur.scanStringLiteral()
			toks = append(toks, token{text: text[start:cur.pos], start: start, end: cur.pos})
		default:
			op := scanOperatorPunct(cur)
			if op == "" {
				return nil, false
			}
			toks = append(toks, token{text: op, start: start, end: cur.pos, isOp: true})
		}
	}
	return toks, true
}

func scanOperatorPunct(cur *Cursor) string {
	two := string([]byte{cur.CurrentChar(), cur.At(1)})
	switch two {
	case "&&", "||", "==", "!=", "<=", ">=", "<<", ">>":
		cur.pos += 2
		return two
	}
	one := cur.CurrentChar()
	switch one {
	case '+', '-', '*', '/', '%', '&', '|', '^', '~', '!', '<', '>', '?', ':', ',':
		cur.pos++
		return string(one)
	}
	return ""
}

func parseDefinedOperand(cur *Cursor, text string, start int) (token, bool) {
	cur.Scan(Greyspace, Continuation)
	if cur.CurrentChar() == '(' {
		cur.pos++
		cur.Scan(Greyspace, Continuation)
		ns := cur.pos
		cur.scanName()
		name := text[ns:cur.pos]
		cur.Scan(Greyspace, Continuation)
		if cur.CurrentChar() != ')' {
			return token{}, false
		}
		cur.pos++
		return token{text: "defined(" + name + ")", start: start, end: cur.pos}, true
	}
	ns := cur.pos
	cur.scanName()
	if cur.pos == ns {
		return token{}, false
	}
	name := text[ns:cur.pos]
	return token{text: "defined(" + name + ")", start: start, end: cur.pos}, true
}

// evalLevel implements the §4.6 strategy: for the operator class at
// level `lvl`, scan [s,e) left to right counting parens; record the
// rightmost top-level operator of that class; recurse into lhs (same
// level) and rhs (one level tighter), so every binary level, ','
// included, is left-associative. The '?:' level is handed to
// evalTernary, which is right-associative. level index beyond the
// table recurses to evalUnary.
func (ctx *evalCtx) evalLevel(toks []token, s, e, lvl int) (EvalResult, int, int) {
	if s >= e {
		return EvalResult{Empty: true}, s, e
	}
	if lvl >= len(precLevels) {
		return ctx.evalUnary(toks, s, e)
	}
	ops := precLevels[lvl]
	if lvl == 1 { // ?: ternary, right-associative
		return ctx.evalTernary(toks, s, e)
	}
	pos, depth := -1, 0
	for i := s; i < e; i++ {
		t := toks[i]
		if t.isOpen {
			depth++
			continue
		}
		if t.text == ")" {
			depth--
			continue
		}
		if depth == 0 && t.isOp && inSet(ops, t.text) {
			pos = i // keep scanning: left-to-right search, last match wins (left-associative)
		}
	}
	if pos < 0 {
		return ctx.evalLevel(toks, s, e, lvl+1)
	}
	lres, ls, le := ctx.evalLevel(toks, s, pos, lvl)
	rres, rs, re := ctx.evalLevel(toks, pos+1, e, lvl+1)
	return ctx.combineBinary(toks[pos].text, lres, rres, ls, le, rs, re, pos)
}

func (ctx *evalCtx) evalTernary(toks []token, s, e int) (EvalResult, int, int) {
	depth, qpos, cpos := 0, -1, -1
	for i := s; i < e; i++ {
		t := toks[i]
		if t.isOpen {
			depth++
			continue
		}
		if t.text == ")" {
			depth--
			continue
		}
		if depth == 0 && t.isOp && t.text == "?" && qpos < 0 {
			qpos = i
		}
		if depth == 0 && t.isOp && t.text == ":" && qpos >= 0 && cpos < 0 {
			cpos = i
		}
	}
	if qpos < 0 || cpos < 0 {
		return ctx.evalLevel(toks, s, e, 2)
	}
	cond, _, _ := ctx.evalLevel(toks, s, qpos, 2)
	tres, ts, te := ctx.evalTernary(toks, qpos+1, cpos)
	fres, fs, fe := ctx.evalTernary(toks, cpos+1, e)
	if !cond.Resolved {
		return EvalResult{Insoluble: cond.Insoluble || !tres.Resolved || !fres.Resolved, NetOperators: 2 + tres.NetOperators + fres.NetOperators}, s, e
	}
	if cond.Value.IsTrue() {
		ctx.cut(cpos, fe)  // else-branch and trailing ':' are redundant
		ctx.cut(s, qpos+1) // so are the resolved condition and its '?'
		return tres, ts, te
	}
	ctx.cut(s, cpos+1)
	return fres, fs, fe
}

func (ctx *evalCtx) evalUnary(toks []token, s, e int) (EvalResult, int, int) {
	if s >= e {
		return EvalResult{Empty: true}, s, e
	}
	t := toks[s]
	if t.isOp && (t.text == "!" || t.text == "-" || t.text == "+" || t.text == "~" || t.text == "not" || t.text == "compl") {
		inner, is, ie := ctx.evalUnary(toks, s+1, e)
		if !inner.Resolved {
			return inner, s, e
		}
		op := t.text
		switch op {
		case "not":
			op = "!"
		case "compl":
			op = "~"
		}
		_ = is
		_ = ie
		return ResolvedResult(UnaryOp(op, inner.Value)), s, e
	}
	if t.isOpen {
		depth := 1
		j := s + 1
		for j < e && depth > 0 {
			if toks[j].isOpen {
				depth++
			} else if toks[j].text == ")" {
				depth--
			}
			if depth == 0 {
				break
			}
			j++
		}
		if depth != 0 {
			ctx.insoluble = true
			return InsolubleResult(), s, e
		}
		inner, _, _ := ctx.evalLevel(toks, s+1, j, 0)
		if !inner.Resolved {
			return inner, s, j + 1
		}
		inner.HasParens = true
		inner.ParenStart = s
		inner.ParenEnd = j
		return inner, s, j + 1
	}
	return ctx.evalOperand(t), s, s + 1
}

func (ctx *evalCtx) evalOperand(t token) EvalResult {
	if strings.HasPrefix(t.text, "defined(") {
		name := strings.TrimSuffix(strings.TrimPrefix(t.text, "defined("), ")")
		loc := ctx.table.Lookup(name)
		sym := ctx.table.Symbol(loc)
		switch {
		case sym != nil && sym.IsDefined():
			return ResolvedResult(Integer{Tag: TagInt, Payload: 1})
		case sym != nil && !sym.IsDefined() && sym.Provenance != Unconfigured:
			return ResolvedResult(Integer{Tag: TagInt, Payload: 0})
		case ctx.expander != nil && ctx.expander.Implicit():
			return ResolvedResult(Integer{Tag: TagInt, Payload: 0})
		default:
			return UnresolvedResult()
		}
	}
	if len(t.text) > 0 && t.text[0] == '\'' {
		body := strings.TrimSuffix(strings.TrimPrefix(t.text, "'"), "'")
		return ResolvedResult(DecodeCharConstant(body, ctx.sink, ctx.file, ctx.line))
	}
	if isDigit(t.text[0]) {
		return ResolvedResult(ParseIntLiteral(t.text, ctx.sink, ctx.file, ctx.line))
	}
	if t.text == "1" || t.text == "0" {
		// unreachable: digit branch above handles this; kept for clarity.
	}
	// identifier operand: look up and, if configured, expand via the
	// reference cache before re-evaluating as an expression (§4.6).
	loc := ctx.table.Lookup(t.text)
	sym := ctx.table.Symbol(loc)
	if sym == nil || !sym.IsDefined() {
		if sym != nil && sym.Provenance != Unconfigured {
			return ResolvedResult(Integer{Tag: TagInt, Payload: 0})
		}
		return UnresolvedResult()
	}
	entry := ctx.table.Cache().Lookup(Reference{Callee: loc, HasArgs: false}, ctx.expander)
	if !entry.Complete {
		if ctx.sink != nil {
			ctx.sink.Emit(Diagnostic{Severity: Error, ID: ReasonIncompleteExpansion, File: ctx.file, Line: ctx.line,
				Message: "expansion of " + t.text + " exceeded the size cap"})
		}
		return InsolubleResult()
	}
	if entry.Eval.Insoluble && !entry.Eval.Resolved {
		if ctx.sink != nil {
			ctx.sink.Emit(Diagnostic{Severity: Error, ID: ReasonNonTerm, File: ctx.file, Line: ctx.line,
				Message: t.text + " expanded to something that is not a constant expression"})
		}
	}
	return entry.Eval
}

func (ctx *evalCtx) combineBinary(op string, lres, rres EvalResult, ls, le, rs, re, opPos int) (EvalResult, int, int) {
	if op == "," {
		// the comma operator discards lhs and yields rhs (§4.6); the
		// discarded left operand is always a cut.
		ctx.cut(ls, opPos+1)
		return rres, rs, re
	}
	if lres.Resolved && rres.Resolved {
		return ResolvedResult(BinOp(normalizeOpName(op), lres.Value, rres.Value, ctx.sink, ctx.file, ctx.line)), ls, re
	}
	if shortCircuitable[op] {
		if lres.Resolved && shortCircuitDetermines(op, lres.Value) {
			ctx.cut(opPos, re)
			return lres, ls, re
		}
		if rres.Resolved && op != "," {
			// a resolved right operand alone does not short-circuit:
			// both operands stay in the residual.
		}
	}
	res := EvalResult{
		Resolved:     false,
		Insoluble:    lres.Insoluble || rres.Insoluble,
		NetOperators: 1 + lres.NetOperators + rres.NetOperators,
	}
	return res, ls, re
}

func shortCircuitDetermines(op string, v Integer) bool {
	switch op {
	case "&&", "and":
		return !v.IsTrue()
	case "||", "or":
		return v.IsTrue()
	}
	return false
}

func normalizeOpName(op string) string {
	switch op {
	case "and":
		return "&&"
	case "or":
		return "||"
	case "bitand":
		return "&"
	case "bitor":
		return "|"
	case "xor":
		return "^"
	case "not_eq":
		return "!="
	}
	return op
}

func (ctx *evalCtx) cut(s, e int) {
	ctx.cuts = append(ctx.cuts, cutSpan{s, e})
}

func inSet(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// simplify produces the residual text by copying the original tokens
// and skipping any index that falls inside a cut span (§4.6 "cuts").
func (ctx *evalCtx) simplify(toks []token, s, e int) string {
	if s >= e || len(toks) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := s; i < e; i++ {
		if ctx.cutAt(i) {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(toks[i].text)
	}
	return sb.String()
}

func (ctx *evalCtx) cutAt(i int) bool {
	for _, c := range ctx.cuts {
		if i >= c.start && i < c.end {
			return true
		}
	}
	return false
}
