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
	"sync"

	"github.com/golang/glog"
)

// Severity is one of the five diagnostic severities of §7.
type Severity int

const (
	Progress Severity = iota
	Info
	Warning
	Error
	Abend
)

func (s Severity) String() string {
	switch s {
	case Progress:
		return "progress"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Abend:
		return "abend"
	}
	return "unknown"
}

// ReasonID enumerates every distinct diagnosable cause. New causes are
// appended; existing values must never be renumbered once shipped.
type ReasonID int

const (
	ReasonNone ReasonID = iota
	ReasonUnterminatedLiteral
	ReasonUnterminatedComment
	ReasonSignChanged
	ReasonZeroDivide
	ReasonShiftOverflow
	ReasonLiteralOverflow
	ReasonCharOverflow
	ReasonUnbalancedParen
	ReasonOrphanColon
	ReasonOrphanQuestion
	ReasonTrailingText
	ReasonEmptyOperand
	ReasonNonTerm
	ReasonIncompleteExpansion
	ReasonWrongArgCount
	ReasonVariadicUnsupported
	ReasonSelfReferential
	ReasonUnclosedParamList
	ReasonBadTokenPaste
	ReasonDifferingRedef
	ReasonUndefingDefined
	ReasonRetrospectiveRedefinition
	ReasonConflict
	ReasonUnsupported
	ReasonIOError
	ReasonOrphanElif
	ReasonOrphanElse
	ReasonOrphanEndif
	ReasonIfNestTooDeep
	ReasonUnexpectedEOF
)

// Reason is the externally observable "reason code": (severity<<8)|id.
func Reason(sev Severity, id ReasonID) int {
	return int(sev)<<8 | int(id)
}

// Diagnostic is one reported condition, carrying enough to render the
// §7 user-visible line: program, file, line, severity, reason, message.
type Diagnostic struct {
	Severity Severity
	ID       ReasonID
	File     string
	Line     int
	Message  string
}

func (d Diagnostic) Reason() int { return Reason(d.Severity, d.ID) }

func (d Diagnostic) String() string {
	loc := d.File
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	if loc == "" {
		return fmt.Sprintf("pplens: %s: 0x%04x: %s", d.Severity, d.Reason(), d.Message)
	}
	return fmt.Sprintf("pplens: %s: %s: 0x%04x: %s", loc, d.Severity, d.Reason(), d.Message)
}

// GagSet controls which severities are suppressed from emission, the
// way --gag selects {progress|info|warning|error|abend}.
type GagSet map[Severity]bool

func (g GagSet) gagged(sev Severity) bool { return g != nil && g[sev] }

// AbendError is raised by Sink.emit when an Abend diagnostic is
// dispatched; the caller is expected to terminate immediately.
type AbendError struct{ Diagnostic Diagnostic }

func (e AbendError) Error() string { return e.Diagnostic.String() }

// Sink is the process-wide diagnostic queue (§7, §9 "Deferred diagnostics").
// It mirrors the teacher's log.go (Warn/Error/LogAlways) generalized
// into a structured, filterable, deferrable queue instead of bare
// fmt.Printf-to-stdout calls.
type Sink struct {
	mu       sync.Mutex
	gag      GagSet
	emitted  []Diagnostic
	deferred map[int]Diagnostic // keyed by an opaque ticket for discard()
	nextTkt  int
	counts   [Abend + 1]int
}

func NewSink(gag GagSet) *Sink {
	return &Sink{gag: gag, deferred: make(map[int]Diagnostic)}
}

// Emit dispatches a diagnostic immediately. It returns an AbendError
// when sev is Abend so the caller can unwind/terminate.
func (s *Sink) Emit(d Diagnostic) error {
	s.mu.Lock()
	s.counts[d.Severity]++
	gagged := s.gag.gagged(d.Severity)
	if !gagged {
		s.emitted = append(s.emitted, d)
	}
	s.mu.Unlock()
	if glog.V(1) {
		glog.Infof("diag: %s", d)
	}
	if d.Severity == Abend {
		return AbendError{Diagnostic: d}
	}
	return nil
}

// Defer queues a diagnostic for possible later Discard, implementing
// the §4.7 "deferred #undef" contradiction handling. It returns a
// ticket that Discard or Flush uses to resolve it.
func (s *Sink) Defer(d Diagnostic) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTkt++
	tkt := s.nextTkt
	s.deferred[tkt] = d
	return tkt
}

// Discard drops a previously deferred diagnostic without emitting it,
// used when a contradicting #undef is immediately followed by a #define
// that agrees with the global configuration (§4.7).
func (s *Sink) Discard(tkt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deferred, tkt)
}

// Flush emits every still-pending deferred diagnostic, in ticket order.
// Called at the next directive or at EOF (§4.7).
func (s *Sink) Flush() error {
	s.mu.Lock()
	tkts := make([]int, 0, len(s.deferred))
	for t := range s.deferred {
		tkts = append(tkts, t)
	}
	s.mu.Unlock()
	sortInts(tkts)
	var err error
	for _, t := range tkts {
		s.mu.Lock()
		d, ok := s.deferred[t]
		delete(s.deferred, t)
		s.mu.Unlock()
		if !ok {
			continue
		}
		if e := s.Emit(d); e != nil {
			err = e
		}
	}
	return err
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

// Emitted returns every non-gagged diagnostic emitted so far.
func (s *Sink) Emitted() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Diagnostic, len(s.emitted))
	copy(out, s.emitted)
	return out
}

// ExitBits computes the severity portion (bits 0-3) of the §6 exit
// code bitmask from everything emitted through this sink.
func (s *Sink) ExitBits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	bits := 0
	if s.counts[Info] > 0 {
		bits |= 0x1
	}
	if s.counts[Warning] > 0 {
		bits |= 0x2
	}
	if s.counts[Error] > 0 {
		bits |= 0x4
	}
	if s.counts[Abend] > 0 {
		bits |= 0x8
	}
	return bits
}
