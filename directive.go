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

// DirectiveType is the keyword a parsed line carries, drawn from the
// fixed set of §4.7; DirNone marks a non-directive (plain) line.
type DirectiveType int

const (
	DirNone DirectiveType = iota
	DirIf
	DirIfdef
	DirIfndef
	DirElse
	DirElif
	DirEndif
	DirDefine
	DirUndef
	DirInclude
	DirPragma
	DirError
	DirLine
	DirUnknown
	DirCommandLine // internal pseudo-directive for the -D/-U digestion pass; never produced by classifyDirective
)

func (d DirectiveType) String() string {
	switch d {
	case DirNone:
		return "none"
	case DirIf:
		return "if"
	case DirIfdef:
		return "ifdef"
	case DirIfndef:
		return "ifndef"
	case DirElse:
		return "else"
	case DirElif:
		return "elif"
	case DirEndif:
		return "endif"
	case DirDefine:
		return "define"
	case DirUndef:
		return "undef"
	case DirInclude:
		return "include"
	case DirPragma:
		return "pragma"
	case DirError:
		return "error"
	case DirLine:
		return "line"
	case DirUnknown:
		return "unknown"
	case DirCommandLine:
		return "commandline"
	}
	return "?"
}

var directiveKeywords = map[string]DirectiveType{
	"if":      DirIf,
	"ifdef":   DirIfdef,
	"ifndef":  DirIfndef,
	"else":    DirElse,
	"elif":    DirElif,
	"endif":   DirEndif,
	"define":  DirDefine,
	"undef":   DirUndef,
	"include": DirInclude,
	"pragma":  DirPragma,
	"error":   DirError,
	"line":    DirLine,
}

var rewriteKeyword = map[LineAction]string{
	ActionRewriteIf:    "if",
	ActionRewriteElse:  "else",
	ActionRewriteEndif: "endif",
}

// ParsedLine is one logical source line after joining `\<newline>`
// continuations (§3 "Parsed line").
type ParsedLine struct {
	Text       string
	FirstLine  int
	LastLine   int
	Indent     int
	Directive  DirectiveType
	KeyStart   int
	KeyLen     int
	Dropping   bool
	Simplified bool
}

// Keyword returns the directive keyword text as written, or "" for a
// non-directive line.
func (p *ParsedLine) Keyword() string {
	if p.Directive == DirNone {
		return ""
	}
	return p.Text[p.KeyStart : p.KeyStart+p.KeyLen]
}

// Argument returns the raw text following the keyword, greyspace-
// trimmed at the front.
func (p *ParsedLine) Argument() string {
	s := p.Text[p.KeyStart+p.KeyLen:]
	i := 0
	for i < len(s) && isWhitespaceByte(s[i]) {
		i++
	}
	return s[i:]
}

// LineReader reads successive logical lines from a buffer, joining
// `\<newline>` continuations into one logical line per §4.7's line
// dispatcher responsibility. Grounded on the teacher's parser.go
// readLine continuation-joining loop, generalized to track both the
// first and last physical line number (§3 "Parsed line").
type LineReader struct {
	buf  []byte
	pos  int
	line int
}

func NewLineReader(buf []byte) *LineReader {
	return &LineReader{buf: buf, line: 1}
}

// Next reads the next logical line. ok is false at end of input.
func (r *LineReader) Next() (ParsedLine, bool) {
	if r.pos >= len(r.buf) {
		return ParsedLine{}, false
	}
	first := r.line
	var sb strings.Builder
	for {
		nl := indexByte(r.buf, r.pos, '\n')
		var raw []byte
		atEOF := nl < 0
		if atEOF {
			raw = r.buf[r.pos:]
			r.pos = len(r.buf)
		} else {
			raw = r.buf[r.pos:nl]
			r.pos = nl + 1
		}
		r.line++
		if n := len(raw); n > 0 && raw[n-1] == '\r' {
			raw = raw[:n-1]
		}
		if n := len(raw); n > 0 && raw[n-1] == '\\' {
			sb.Write(raw[:n-1])
			if atEOF {
				break
			}
			continue
		}
		sb.Write(raw)
		break
	}
	pl := ParsedLine{Text: sb.String(), FirstLine: first, LastLine: r.line - 1}
	classifyDirective(&pl)
	return pl, true
}

func indexByte(buf []byte, from int, b byte) int {
	for i := from; i < len(buf); i++ {
		if buf[i] == b {
			return i
		}
	}
	return -1
}

// classifyDirective locates the first non-whitespace character; if
// it's '#', reads the keyword and sets pl.Directive accordingly
// (§4.7 "Line dispatcher").
func classifyDirective(pl *ParsedLine) {
	i := 0
	for i < len(pl.Text) && isWhitespaceByte(pl.Text[i]) {
		i++
	}
	pl.Indent = i
	if i >= len(pl.Text) || pl.Text[i] != '#' {
		pl.Directive = DirNone
		return
	}
	j := i + 1
	for j < len(pl.Text) && isWhitespaceByte(pl.Text[j]) {
		j++
	}
	k := j
	for k < len(pl.Text) && isNameCont(pl.Text[k]) {
		k++
	}
	pl.KeyStart = j
	pl.KeyLen = k - j
	if k == j {
		pl.Directive = DirUnknown
		return
	}
	if dt, ok := directiveKeywords[pl.Text[j:k]]; ok {
		pl.Directive = dt
	} else {
		pl.Directive = DirUnknown
	}
}

// parseDefine parses a #define argument "NAME[(params)] [defn]" into
// its parts. ok is false if NAME is missing or malformed.
func parseDefine(arg string) (name string, params *ParamList, defn string, ok bool) {
	cur := NewCursor([]byte(arg), true, nil, "", 0)
	name = canonSymbol(cur)
	if name == "" {
		return "", nil, "", false
	}
	if cur.CurrentChar() == '(' {
		params = ParseFormalParams(cur)
	}
	cur.Scan(Greyspace, Continuation)
	defn = canonFreeText(cur)
	return name, params, defn, true
}

// parseUndef parses a #undef argument "NAME".
func parseUndef(arg string) (name string, ok bool) {
	cur := NewCursor([]byte(arg), true, nil, "", 0)
	name = canonSymbol(cur)
	return name, name != ""
}

// Driver ties the symbol table, configuration, expander, and #if
// machine together to process one file's logical lines (§4.7's "Line
// dispatcher" plus §5's per-file driver). Grounded on the teacher's
// parser.go handleDirective dispatch table, generalized from kati's
// make-variable semantics to pplens's #if/#define/#undef semantics.
type Driver struct {
	Table    *SymbolTable
	Config   *Config
	Sink     *Sink
	Expander Expander
	If       *IfMachine
	File     string
}

func NewDriver(table *SymbolTable, cfg *Config, sink *Sink, ex Expander, file string) *Driver {
	return &Driver{Table: table, Config: cfg, Sink: sink, Expander: ex, If: NewIfMachine(sink, file), File: file}
}

// LineResult is what ProcessLine decided for one logical line.
type LineResult struct {
	Action LineAction
	Output string // the rendered replacement text, written out when both Omit and Dead are false
	Omit   bool   // true: the directive itself is unconditionally removed (not subject to --discard), e.g. a duplicate global #define or a --conflict=delete rewrite
	Dead   bool   // true if the line fell in a branch not taken, so --discard governs its rendering
	Err    error
}

// classify computes the LineType this logical line contributes to the
// #if state machine, evaluating any #if/#ifdef/#ifndef/#elif condition
// along the way (§4.7).
func (d *Driver) classify(pl *ParsedLine) (LineType, EvalResult) {
	switch pl.Directive {
	case DirIf:
		if d.If.DeadLine() {
			// a nested #if inside a branch not taken collapses the
			// same way (fdrop) regardless of its own condition, so
			// don't risk a spurious diagnostic evaluating it.
			return LtIf, EvalResult{}
		}
		res := EvaluateExpr(pl.Argument(), d.Table, d.Expander, d.Sink)
		return ClassifyIfLine(res), res
	case DirIfdef:
		if d.If.DeadLine() {
			return LtIf, EvalResult{}
		}
		name, _ := parseUndef(pl.Argument())
		res := EvaluateExpr("defined("+name+")", d.Table, d.Expander, d.Sink)
		return ClassifyIfLine(res), res
	case DirIfndef:
		if d.If.DeadLine() {
			return LtIf, EvalResult{}
		}
		name, _ := parseUndef(pl.Argument())
		res := EvaluateExpr("!defined("+name+")", d.Table, d.Expander, d.Sink)
		return ClassifyIfLine(res), res
	case DirElif:
		res := EvaluateExpr(pl.Argument(), d.Table, d.Expander, d.Sink)
		return ClassifyElifLine(res), res
	case DirElse:
		return LtElse, EvalResult{}
	case DirEndif:
		return LtEndif, EvalResult{}
	default:
		return LtPlain, EvalResult{}
	}
}

// ProcessLine advances the #if machine by pl and, for a live
// #define/#undef, applies the §4.4 configuration digest and the §4.7
// contradiction policy. It returns the rendered output text (already
// reflecting drop/comment/rewrite decisions) for the caller to emit.
func (d *Driver) ProcessLine(pl *ParsedLine) LineResult {
	lt, cond := d.classify(pl)
	action, err := d.If.Transition(lt, pl.FirstLine)
	if err != nil {
		if _, abend := err.(AbendError); abend {
			return LineResult{Action: action, Err: err}
		}
		// ErrUnterminatedIf: file-level cancellation (§5), caller decides.
	}

	if action == ActionDrop {
		pl.Dropping = true
		return LineResult{Action: action, Dead: true, Err: err}
	}

	var res LineResult
	switch pl.Directive {
	case DirDefine:
		res = d.processDefine(pl, action, err)
	case DirUndef:
		res = d.processUndef(pl, action, err)
	case DirIf:
		// always the unresolved/kept case: Transition drops a resolved
		// #if before reaching here, so cond is always worth re-rendering.
		pl.Simplified = true
		res = LineResult{Action: action, Output: renderCondition(pl, cond), Err: err}
	case DirElif:
		if action == ActionRewriteIf || action == ActionRewriteElse || action == ActionRewriteEndif {
			pl.Simplified = true
			res = LineResult{Action: action, Output: rewriteLine(pl, action, cond), Err: err}
		} else {
			pl.Simplified = true
			res = LineResult{Action: action, Output: renderCondition(pl, cond), Err: err}
		}
	case DirElse, DirEndif:
		if action == ActionRewriteIf || action == ActionRewriteElse || action == ActionRewriteEndif {
			pl.Simplified = true
			res = LineResult{Action: action, Output: rewriteLine(pl, action, cond), Err: err}
		} else {
			res = LineResult{Action: action, Output: pl.Text, Err: err}
		}
	default:
		res = LineResult{Action: action, Output: pl.Text, Err: err}
	}
	pl.Dropping = pl.Dropping || res.Action == ActionDrop || res.Omit
	return res
}

// renderCondition re-emits a kept #if/#elif using the evaluator's
// simplified residual (§4.7 "rewrite expression") rather than the
// original argument text, falling back to the original when the
// evaluator left Simplified empty (an empty or untokenizable
// condition never reaches ctx.simplify).
func renderCondition(pl *ParsedLine, cond EvalResult) string {
	arg := cond.Simplified
	if arg == "" {
		arg = pl.Argument()
	}
	prefix := pl.Text[:pl.Indent] + "#" + pl.Keyword()
	if arg == "" {
		return prefix
	}
	return prefix + " " + arg
}

func rewriteLine(pl *ParsedLine, action LineAction, cond EvalResult) string {
	kw := rewriteKeyword[action]
	prefix := pl.Text[:pl.Indent] + "#"
	if action == ActionRewriteIf {
		// the elif's own condition survives as the new #if's condition,
		// simplified the same way a kept #if/#elif is (§4.7).
		arg := cond.Simplified
		if arg == "" {
			arg = pl.Argument()
		}
		return prefix + kw + " " + arg
	}
	return prefix + kw // #else / #endif take no argument
}

func (d *Driver) processDefine(pl *ParsedLine, action LineAction, err error) LineResult {
	name, params, defn, ok := parseDefine(pl.Argument())
	if !ok {
		return LineResult{Action: action, Output: pl.Text, Err: err}
	}
	outcome, derr := d.Config.DigestTransientDefine(name, params, defn, pl.FirstLine, d.File)
	if derr != nil {
		return LineResult{Action: ActionDrop, Omit: true, Err: derr}
	}
	switch outcome {
	case DefineDropDuplicate:
		return LineResult{Action: ActionDrop, Omit: true, Err: err}
	case DefineConflict:
		out, omit := d.applyConflictPolicy(pl)
		return LineResult{Action: ActionDrop, Output: out, Omit: omit, Err: err}
	default: // DefineKeep
		return LineResult{Action: action, Output: pl.Text, Err: err}
	}
}

func (d *Driver) processUndef(pl *ParsedLine, action LineAction, err error) LineResult {
	name, ok := parseUndef(pl.Argument())
	if !ok {
		return LineResult{Action: action, Output: pl.Text, Err: err}
	}
	outcome, derr := d.Config.DigestTransientUndef(name, pl.FirstLine, d.File)
	if derr != nil {
		return LineResult{Action: ActionDrop, Omit: true, Err: derr}
	}
	switch outcome {
	case UndefDrop:
		return LineResult{Action: ActionDrop, Omit: true, Err: err}
	case UndefConflictDeferred:
		out, omit := d.applyConflictPolicy(pl)
		return LineResult{Action: ActionDrop, Output: out, Omit: omit, Err: err}
	default: // UndefKeep, UndefApply
		return LineResult{Action: action, Output: pl.Text, Err: err}
	}
}

// applyConflictPolicy renders a #define/#undef that contradicts the
// global configuration per the --conflict policy (§4.7). The returned
// bool is true when the policy is "delete" and the line should be
// fully removed rather than replaced by rendered text.
func (d *Driver) applyConflictPolicy(pl *ParsedLine) (string, bool) {
	switch d.Config.Conflict {
	case ConflictComment:
		return "/* " + pl.Text + " */ /* conflicts with command-line configuration */", false
	case ConflictError:
		d.Sink.Emit(Diagnostic{Severity: Warning, ID: ReasonConflict, File: d.File, Line: pl.FirstLine,
			Message: "rewritten as #error: unconditional #error is now live in output"})
		return pl.Text[:pl.Indent] + "#error " + strings.TrimSpace(pl.Text[pl.Indent:]), false
	default: // ConflictDelete
		return "", true
	}
}

// RenderDrop renders a dropped line per the --discard policy (§6).
func RenderDrop(pl *ParsedLine, policy DiscardPolicy) (string, bool) {
	switch policy {
	case DiscardBlank:
		return "", true
	case DiscardComment:
		return "/* " + pl.Text + " */", true
	default: // DiscardDrop
		return "", false
	}
}

// ProcessFile runs the full per-file pipeline over buf: reset the
// symbol table (§4.4), read logical lines, drive them through the
// #if machine and directive digestion, and render the simplified
// output (§4.7, §5 "per-file driver is idempotent").
func ProcessFile(buf []byte, file string, table *SymbolTable, cfg *Config, sink *Sink, ex Expander) (string, error) {
	table.ResetForFile()
	drv := NewDriver(table, cfg, sink, ex, file)
	reader := NewLineReader(buf)
	var out strings.Builder

	for {
		pl, ok := reader.Next()
		if !ok {
			break
		}
		res := drv.ProcessLine(&pl)
		if res.Err != nil {
			if _, abend := res.Err.(AbendError); abend {
				return out.String(), res.Err
			}
			if res.Err == ErrUnterminatedIf {
				return out.String(), res.Err
			}
		}
		switch {
		case res.Omit:
			// the directive vanishes entirely: no replacement line, not
			// subject to --discard (duplicate global #define/#undef, or a
			// --conflict=delete rewrite).
		case res.Dead:
			text, keep := RenderDrop(&pl, cfg.Discard)
			if keep {
				out.WriteString(text)
				out.WriteByte('\n')
			}
		default:
			out.WriteString(res.Output)
			out.WriteByte('\n')
		}
		// a deferred #undef conflict stays queued past its own line so
		// that a following #define restoring the global definition can
		// discard it.
		if pl.Directive != DirUndef {
			sink.Flush()
		}
	}
	sink.Flush()
	return out.String(), nil
}
