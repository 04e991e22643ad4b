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
	"errors"

	"github.com/golang/glog"
)

// LineType classifies one physical line for the purposes of #if-state
// transition, per §4.7. IF/TRUE/FALSE distinguish an unresolved,
// statically-true, and statically-false #if (or #ifdef/#ifndef)
// condition; ELIF/ELTRUE/ELFALSE are the analogous #elif
// classifications. ELSE and ENDIF have no condition. PLAIN covers
// every other line, including non-#if directives. EOF is end of input.
type LineType int

const (
	LtIf LineType = iota
	LtTrue
	LtFalse
	LtElif
	LtElTrue
	LtElFalse
	LtElse
	LtEndif
	LtPlain
	LtEOF
	numLineTypes
)

func (t LineType) String() string {
	switch t {
	case LtIf:
		return "if"
	case LtTrue:
		return "true"
	case LtFalse:
		return "false"
	case LtElif:
		return "elif"
	case LtElTrue:
		return "eltrue"
	case LtElFalse:
		return "elfalse"
	case LtElse:
		return "else"
	case LtEndif:
		return "endif"
	case LtPlain:
		return "plain"
	case LtEOF:
		return "eof"
	}
	return "?"
}

// ClassifyIfLine derives the LineType of an #if/#ifdef/#ifndef
// directive from its evaluated condition.
func ClassifyIfLine(cond EvalResult) LineType {
	switch {
	case cond.Insoluble || !cond.Resolved:
		return LtIf
	case cond.Value.IsTrue():
		return LtTrue
	default:
		return LtFalse
	}
}

// ClassifyElifLine derives the LineType of an #elif directive from its
// evaluated condition.
func ClassifyElifLine(cond EvalResult) LineType {
	switch {
	case cond.Insoluble || !cond.Resolved:
		return LtElif
	case cond.Value.IsTrue():
		return LtElTrue
	default:
		return LtElFalse
	}
}

// ifState is the per-frame #if-control state, ported from the ten
// states of the original implementation's if_control::if_state.
type ifState int

const (
	stOutside ifState = iota
	stFalsePrefix
	stTruePrefix
	stPassMiddle
	stFalseMiddle
	stTrueMiddle
	stPassElse
	stFalseElse
	stTrueElse
	stFalseTrailer
)

func (s ifState) String() string {
	switch s {
	case stOutside:
		return "outside"
	case stFalsePrefix:
		return "false_prefix"
	case stTruePrefix:
		return "true_prefix"
	case stPassMiddle:
		return "pass_middle"
	case stFalseMiddle:
		return "false_middle"
	case stTrueMiddle:
		return "true_middle"
	case stPassElse:
		return "pass_else"
	case stFalseElse:
		return "false_else"
	case stTrueElse:
		return "true_else"
	case stFalseTrailer:
		return "false_trailer"
	}
	return "?"
}

// LineAction is what the line dispatcher should do with the line just
// classified.
type LineAction int

const (
	ActionDrop LineAction = iota
	ActionKeep
	ActionRewriteIf   // Mpass: this #elif becomes the group's #if
	ActionRewriteElse // Mtrue: this #elif becomes the group's #else
	ActionRewriteEndif // Melif/Melse: this #elif/#else becomes #endif
)

const maxIfDepth = 64

// ErrUnterminatedIf is returned by Transition on end-of-file while an
// #if is still open (§4.7 "early_eof"); the caller aborts the current
// file (§5 "Cancellation").
var ErrUnterminatedIf = errors.New("pplens: unexpected end of file inside #if")

// IfMachine drives #if/#elif/#else/#endif branch selection, ported
// from the classic transition table of if_control.cpp/.h: the table
// guarantees that the output, after dropping untaken branches and
// rewriting boundary keywords, means the same thing under any further
// configuration as the original did (§4.7, §8 "Semantic preservation").
type IfMachine struct {
	sink       *Sink
	file       string
	states     []ifState
	startLines []int
}

// NewIfMachine creates a machine positioned outside any #if.
func NewIfMachine(sink *Sink, file string) *IfMachine {
	return &IfMachine{sink: sink, file: file, states: []ifState{stOutside}, startLines: []int{0}}
}

// Depth reports the current #if nesting depth (0 outside any #if).
func (m *IfMachine) Depth() int { return len(m.states) - 1 }

// IfStartLine reports the source line of the innermost open #if.
func (m *IfMachine) IfStartLine() int { return m.startLines[len(m.startLines)-1] }

// DeadLine reports whether the line just classified falls in a
// not-taken branch and so must not be macro-expanded or type-checked.
func (m *IfMachine) DeadLine() bool {
	switch m.top() {
	case stFalsePrefix, stFalseMiddle, stFalseElse, stFalseTrailer:
		return true
	}
	return false
}

// IsUnconditionalLine reports whether the current position is outside
// any #if, or inside a branch known to be unconditionally taken.
func (m *IfMachine) IsUnconditionalLine() bool {
	switch m.top() {
	case stOutside, stTruePrefix, stTrueMiddle, stTrueElse:
		return true
	}
	return false
}

func (m *IfMachine) top() ifState { return m.states[len(m.states)-1] }

func (m *IfMachine) setState(s ifState) { m.states[len(m.states)-1] = s }

func (m *IfMachine) pop() {
	m.states = m.states[:len(m.states)-1]
	m.startLines = m.startLines[:len(m.startLines)-1]
}

func (m *IfMachine) push(lineNo int) error {
	if len(m.states) >= maxIfDepth {
		m.diag(Abend, ReasonIfNestTooDeep, "too many levels of #if nesting")
		return AbendError{Diagnostic: Diagnostic{Severity: Abend, ID: ReasonIfNestTooDeep, File: m.file, Line: lineNo}}
	}
	m.states = append(m.states, stOutside)
	m.startLines = append(m.startLines, lineNo)
	glog.V(2).Infof("%s:%d: #if nest to depth %d", m.file, lineNo, m.Depth())
	return nil
}

func (m *IfMachine) diag(sev Severity, id ReasonID, msg string) {
	if m.sink == nil {
		return
	}
	m.sink.Emit(Diagnostic{Severity: sev, ID: id, File: m.file, Line: m.IfStartLine(), Message: msg})
}

// Transition advances the machine by one classified line (§4.7's
// "fixed table"), returning the action the line dispatcher must apply.
// lineNo is the source line, used to record a new #if frame's start.
func (m *IfMachine) Transition(lt LineType, lineNo int) (LineAction, error) {
	switch m.top() {
	case stOutside:
		switch lt {
		case LtIf:
			return m.fpass(lineNo)
		case LtTrue:
			return m.ftrue(lineNo)
		case LtFalse:
			return m.ffalse(lineNo)
		case LtElif, LtElTrue, LtElFalse:
			return m.orphanElif(lineNo)
		case LtElse:
			return m.orphanElse(lineNo)
		case LtEndif:
			return m.orphanEndif(lineNo)
		case LtEOF:
			return ActionKeep, nil
		default: // LtPlain
			return ActionKeep, nil
		}
	case stFalsePrefix:
		switch lt {
		case LtIf, LtTrue, LtFalse:
			return m.fdrop(lineNo)
		case LtElif:
			return m.mpass()
		case LtElTrue:
			return m.strue()
		case LtElFalse:
			return m.sfalse()
		case LtElse:
			return m.selse()
		case LtEndif:
			return m.dendif()
		case LtEOF:
			return m.earlyEOF(lineNo)
		default:
			return ActionDrop, nil
		}
	case stTruePrefix:
		switch lt {
		case LtIf:
			return m.fpass(lineNo)
		case LtTrue:
			return m.ftrue(lineNo)
		case LtFalse:
			return m.ffalse(lineNo)
		case LtElif, LtElTrue, LtElFalse:
			return m.dfalse()
		case LtElse:
			return m.delse()
		case LtEndif:
			return m.dendif()
		case LtEOF:
			return m.earlyEOF(lineNo)
		default:
			return ActionKeep, nil
		}
	case stPassMiddle:
		switch lt {
		case LtIf:
			return m.fpass(lineNo)
		case LtTrue:
			return m.ftrue(lineNo)
		case LtFalse:
			return m.ffalse(lineNo)
		case LtElif:
			return m.pelif()
		case LtElTrue:
			return m.mtrue()
		case LtElFalse:
			return m.delif()
		case LtElse:
			return m.pelse()
		case LtEndif:
			return m.pendif()
		case LtEOF:
			return m.earlyEOF(lineNo)
		default:
			return ActionKeep, nil
		}
	case stFalseMiddle:
		switch lt {
		case LtIf, LtTrue, LtFalse:
			return m.fdrop(lineNo)
		case LtElif:
			return m.pelif()
		case LtElTrue:
			return m.mtrue()
		case LtElFalse:
			return m.delif()
		case LtElse:
			return m.pelse()
		case LtEndif:
			return m.pendif()
		case LtEOF:
			return m.earlyEOF(lineNo)
		default:
			return ActionDrop, nil
		}
	case stTrueMiddle:
		switch lt {
		case LtIf:
			return m.fpass(lineNo)
		case LtTrue:
			return m.ftrue(lineNo)
		case LtFalse:
			return m.ffalse(lineNo)
		case LtElif, LtElTrue, LtElFalse:
			return m.melif()
		case LtElse:
			return m.melse()
		case LtEndif:
			return m.pendif()
		case LtEOF:
			return m.earlyEOF(lineNo)
		default:
			return ActionKeep, nil
		}
	case stPassElse:
		switch lt {
		case LtIf:
			return m.fpass(lineNo)
		case LtTrue:
			return m.ftrue(lineNo)
		case LtFalse:
			return m.ffalse(lineNo)
		case LtElif, LtElTrue, LtElFalse:
			return m.orphanElif(lineNo)
		case LtElse:
			return m.orphanElse(lineNo)
		case LtEndif:
			return m.pendif()
		case LtEOF:
			return m.earlyEOF(lineNo)
		default:
			return ActionKeep, nil
		}
	case stFalseElse:
		switch lt {
		case LtIf, LtTrue, LtFalse:
			return m.fdrop(lineNo)
		case LtElif, LtElTrue, LtElFalse:
			return m.orphanElif(lineNo)
		case LtElse:
			return m.orphanElse(lineNo)
		case LtEndif:
			return m.dendif()
		case LtEOF:
			return m.earlyEOF(lineNo)
		default:
			return ActionDrop, nil
		}
	case stTrueElse:
		switch lt {
		case LtIf:
			return m.fpass(lineNo)
		case LtTrue:
			return m.ftrue(lineNo)
		case LtFalse:
			return m.ffalse(lineNo)
		case LtElif, LtElTrue, LtElFalse:
			return m.orphanElif(lineNo)
		case LtElse:
			return m.orphanElse(lineNo)
		case LtEndif:
			return m.dendif()
		case LtEOF:
			return m.earlyEOF(lineNo)
		default:
			return ActionKeep, nil
		}
	case stFalseTrailer:
		switch lt {
		case LtIf, LtTrue, LtFalse:
			return m.fdrop(lineNo)
		case LtElif, LtElTrue, LtElFalse:
			return m.dfalse()
		case LtElse:
			return m.delse()
		case LtEndif:
			return m.dendif()
		case LtEOF:
			return m.earlyEOF(lineNo)
		default:
			return ActionDrop, nil
		}
	}
	return ActionKeep, nil
}

// -- transition primitives, named after the original S/P/D/M/F action
// categories (§4.7). Each sets the new state of the current frame and
// reports the line action; the F-prefixed variants additionally push a
// new frame before delegating.

func (m *IfMachine) strue() (LineAction, error) { m.setState(stTruePrefix); return ActionDrop, nil }
func (m *IfMachine) sfalse() (LineAction, error) { m.setState(stFalsePrefix); return ActionDrop, nil }
func (m *IfMachine) selse() (LineAction, error) { m.setState(stTrueElse); return ActionDrop, nil }

func (m *IfMachine) pelif() (LineAction, error) { m.setState(stPassMiddle); return ActionKeep, nil }
func (m *IfMachine) pelse() (LineAction, error) { m.setState(stPassElse); return ActionKeep, nil }
func (m *IfMachine) pendif() (LineAction, error) { m.pop(); return ActionKeep, nil }

func (m *IfMachine) dfalse() (LineAction, error) { m.setState(stFalseTrailer); return ActionDrop, nil }
func (m *IfMachine) delif() (LineAction, error) { m.setState(stFalseMiddle); return ActionDrop, nil }
func (m *IfMachine) delse() (LineAction, error) { m.setState(stFalseElse); return ActionDrop, nil }
func (m *IfMachine) dendif() (LineAction, error) { m.pop(); return ActionDrop, nil }

func (m *IfMachine) mpass() (LineAction, error) { m.setState(stPassMiddle); return ActionRewriteIf, nil }
func (m *IfMachine) mtrue() (LineAction, error) { m.setState(stTrueMiddle); return ActionRewriteElse, nil }
func (m *IfMachine) melif() (LineAction, error) { m.setState(stFalseTrailer); return ActionRewriteEndif, nil }
func (m *IfMachine) melse() (LineAction, error) { m.setState(stFalseElse); return ActionRewriteEndif, nil }

func (m *IfMachine) fdrop(lineNo int) (LineAction, error) {
	if err := m.push(lineNo); err != nil {
		return ActionDrop, err
	}
	return m.dfalse()
}

func (m *IfMachine) fpass(lineNo int) (LineAction, error) {
	if err := m.push(lineNo); err != nil {
		return ActionKeep, err
	}
	return m.pelif()
}

func (m *IfMachine) ftrue(lineNo int) (LineAction, error) {
	if err := m.push(lineNo); err != nil {
		return ActionDrop, err
	}
	return m.strue()
}

func (m *IfMachine) ffalse(lineNo int) (LineAction, error) {
	if err := m.push(lineNo); err != nil {
		return ActionDrop, err
	}
	return m.sfalse()
}

func (m *IfMachine) orphanElif(lineNo int) (LineAction, error) {
	m.emitAt(Error, ReasonOrphanElif, lineNo, "orphan #elif")
	return ActionKeep, nil
}

func (m *IfMachine) orphanElse(lineNo int) (LineAction, error) {
	m.emitAt(Error, ReasonOrphanElse, lineNo, "orphan #else")
	return ActionKeep, nil
}

func (m *IfMachine) orphanEndif(lineNo int) (LineAction, error) {
	m.emitAt(Error, ReasonOrphanEndif, lineNo, "orphan #endif")
	return ActionKeep, nil
}

func (m *IfMachine) earlyEOF(lineNo int) (LineAction, error) {
	m.diag(Error, ReasonUnexpectedEOF, "unexpected end of file: unterminated #if")
	return ActionKeep, ErrUnterminatedIf
}

func (m *IfMachine) emitAt(sev Severity, id ReasonID, lineNo int, msg string) {
	if m.sink == nil {
		return
	}
	m.sink.Emit(Diagnostic{Severity: sev, ID: id, File: m.file, Line: lineNo, Message: msg})
}
