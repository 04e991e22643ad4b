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
	"sync"

	"github.com/golang/glog"
)

// Provenance classifies how a symbol became configured (§3).
type Provenance int

const (
	Unconfigured Provenance = iota
	Global
	Transient
)

// Snapshot is a monotonically increasing version tag, or one of the
// pseudo-values below (§3 "Snapshots").
type Snapshot int64

const (
	SnapPristine Snapshot = -1
	SnapDefineInProgress Snapshot = -2
	SnapUndefInProgress Snapshot = -3
	SnapInfinite Snapshot = -4
)

// clean reports whether s is a real (non-pseudo) snapshot value.
func (s Snapshot) clean() bool { return s >= 0 }

// snapshotCounter is the process-wide monotonically increasing counter.
// Mirrors the teacher's package-level `symtab` singleton pattern
// (symtab.go) generalized from a string intern pool to a version
// counter.
type snapshotCounter struct {
	mu  sync.Mutex
	cur int64
}

func (c *snapshotCounter) next() Snapshot {
	c.mu.Lock()
	c.cur++
	v := c.cur
	c.mu.Unlock()
	return Snapshot(v)
}

func (c *snapshotCounter) peek() Snapshot {
	c.mu.Lock()
	v := c.cur
	c.mu.Unlock()
	return Snapshot(v)
}

// Locator is an arena handle into a SymbolTable (§9 design note: in a
// language without pointer-based bidirectional edges and safe
// self-edges, the symbol table is an arena owning Symbol records and
// contributor/subscriber lists are locator slices). Locator 0 is the
// reserved null entry.
type Locator int

const NullLocator Locator = 0

// Symbol is one identifier's record (§3).
type Symbol struct {
	ID         string
	Definition string // "" and Formals == nil means undefined
	Formals    *ParamList
	Format     *SubstitutionFormat
	Provenance Provenance
	LastLine   int
	Deselected bool
	Invoked    bool
	snapshot   Snapshot
	contrib    map[Locator]bool
	subscr     map[Locator]bool
}

func (s *Symbol) IsDefined() bool { return s.Definition != "" || s.Formals != nil }

// IsObjectLike reports whether this is an object-like macro (no
// parameter list) as opposed to function-like (Formals != nil, even
// if zero-size).
func (s *Symbol) IsObjectLike() bool { return s.Formals.Null() }

func (s *Symbol) Snapshot() Snapshot { return s.snapshot }

func (s *Symbol) Clean() bool { return s.snapshot.clean() }

// SymbolTable is a mapping from identifier to Symbol record (§3, §4.4).
// It owns every Symbol as an arena; Locator values index into locs.
type SymbolTable struct {
	byName map[string]Locator
	locs   []*Symbol // locs[0] is the reserved null entry
	snaps  *snapshotCounter
	sink   *Sink
	cache  *ReferenceCache
}

func NewSymbolTable(sink *Sink) *SymbolTable {
	t := &SymbolTable{
		byName: make(map[string]Locator),
		locs:   []*Symbol{nil}, // index 0 reserved
		snaps:  &snapshotCounter{},
		sink:   sink,
	}
	t.cache = NewReferenceCache(t)
	return t
}

// Cache returns the reference cache bound to this table (§4.5).
func (t *SymbolTable) Cache() *ReferenceCache { return t.cache }

// Lookup returns the locator for id, or NullLocator if absent.
func (t *SymbolTable) Lookup(id string) Locator {
	if l, ok := t.byName[id]; ok {
		return l
	}
	return NullLocator
}

// Locator inserts id if absent (provenance Unconfigured) and returns
// its locator.
func (t *SymbolTable) Locator(id string) Locator {
	if l, ok := t.byName[id]; ok {
		return l
	}
	sym := &Symbol{ID: id, snapshot: SnapPristine, contrib: map[Locator]bool{}, subscr: map[Locator]bool{}}
	t.locs = append(t.locs, sym)
	l := Locator(len(t.locs) - 1)
	t.byName[id] = l
	return l
}

// Symbol dereferences a locator. NullLocator dereferences to nil.
func (t *SymbolTable) Symbol(l Locator) *Symbol {
	if l == NullLocator || int(l) >= len(t.locs) {
		return nil
	}
	return t.locs[l]
}

// invalidateByPrefix discards every reference-cache entry whose key
// begins with id followed by '(' or end-of-key (i.e. invocations of
// id), per §4.4 define/undef contract.
func (t *SymbolTable) invalidateByPrefix(id string) {
	t.cache.invalidatePrefix(id)
}

// Define implements §4.4 define(id, params, defn): modifies the entry
// in place, invalidates cache entries, resets the snapshot, rewires
// the dependency graph.
func (t *SymbolTable) Define(id string, params *ParamList, defn string, line int, prov Provenance) error {
	l := t.Locator(id)
	sym := t.locs[l]
	t.unsubscribeAll(l)
	sym.Definition = defn
	sym.Formals = params
	sym.Provenance = prov
	sym.LastLine = line
	sym.snapshot = SnapDefineInProgress
	var format *SubstitutionFormat
	if defn != "" || params != nil {
		var err error
		format, err = BuildSubstitutionFormat(defn, params, t.sink, id, line)
		if err != nil {
			return err
		}
	}
	sym.Format = format
	t.invalidateByPrefix(id)
	t.subscribeToDefinition(l, sym)
	return nil
}

// Undef implements §4.4 undef(id).
func (t *SymbolTable) Undef(id string, line int, prov Provenance) {
	l := t.Locator(id)
	sym := t.locs[l]
	t.unsubscribeAll(l)
	sym.Definition = ""
	sym.Formals = nil
	sym.Format = nil
	sym.Provenance = prov
	sym.LastLine = line
	sym.snapshot = SnapUndefInProgress
	t.invalidateByPrefix(id)
}

// subscribeToDefinition scans the new definition for contributor
// identifiers (any name not coinciding with a formal parameter) and
// calls subscribeTo for each (§4.4 "Subscription algorithm").
func (t *SymbolTable) subscribeToDefinition(self Locator, sym *Symbol) {
	if sym.Definition == "" {
		t.markClean(self)
		return
	}
	formal := map[string]bool{}
	if sym.Formals != nil {
		for _, n := range sym.Formals.Names {
			formal[n] = true
		}
	}
	cur := NewCursor([]byte(sym.Definition), true, nil, "", 0)
	seen := map[string]bool{}
	for cur.InRange() {
		if isNameStart(cur.CurrentChar()) {
			start := cur.pos
			cur.scanName()
			name := sym.Definition[start:cur.pos]
			if formal[name] || seen[name] {
				continue
			}
			seen[name] = true
			other := t.Locator(name)
			t.subscribeTo(self, other)
			continue
		}
		cur.pos++
	}
	t.markClean(self)
}

// subscribeTo implements §4.4: if other == self, mark self-referential;
// if other transitively subscribes to self, mark both infinite
// (cyclic); else add self->other and the inverse edge, then
// recursively subscribe to every contributor of other.
func (t *SymbolTable) subscribeTo(self, other Locator) {
	if other == NullLocator {
		return
	}
	if other == self {
		t.locs[self].snapshot = SnapInfinite
		glog.V(2).Infof("symbol %q is self-referential", t.locs[self].ID)
		return
	}
	if t.transitivelySubscribesTo(other, self) {
		t.locs[self].snapshot = SnapInfinite
		t.locs[other].snapshot = SnapInfinite
		glog.Warningf("cyclic macro dependency between %q and %q", t.locs[self].ID, t.locs[other].ID)
		return
	}
	self_ := t.locs[self]
	other_ := t.locs[other]
	if self_.contrib[other] {
		return
	}
	self_.contrib[other] = true
	other_.subscr[self] = true
	for c := range other_.contrib {
		t.subscribeTo(self, c)
	}
}

func (t *SymbolTable) transitivelySubscribesTo(from, to Locator) bool {
	visited := map[Locator]bool{}
	var walk func(Locator) bool
	walk = func(l Locator) bool {
		if l == to {
			return true
		}
		if visited[l] {
			return false
		}
		visited[l] = true
		for c := range t.locs[l].contrib {
			if walk(c) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// unsubscribeAll removes self from every contributor's subscriber set
// (the inverse of subscribeTo), called before a redefinition rewires
// the dependency graph.
func (t *SymbolTable) unsubscribeAll(self Locator) {
	sym := t.locs[self]
	for c := range sym.contrib {
		delete(t.locs[c].subscr, self)
	}
	sym.contrib = map[Locator]bool{}
}

// markClean records the current snapshot counter value on sym once
// it is fully resolved in the current configuration.
func (t *SymbolTable) markClean(self Locator) {
	sym := t.locs[self]
	if sym.snapshot == SnapInfinite {
		return
	}
	sym.snapshot = t.snaps.next()
	t.dirtySubscribers(self)
}

// dirtySubscribers sets every (recursive) subscriber's snapshot to
// pristine (or infinite if a cycle was introduced), emitting an
// informational retrospective_redefinition diagnostic for each.
func (t *SymbolTable) dirtySubscribers(self Locator) {
	sym := t.locs[self]
	for s := range sym.subscr {
		sub := t.locs[s]
		if sub.snapshot == SnapInfinite {
			continue
		}
		sub.snapshot = SnapPristine
		if t.sink != nil {
			t.sink.Emit(Diagnostic{
				Severity: Info, ID: ReasonRetrospectiveRedefinition,
				Message: "retrospective redefinition: " + sub.ID + " depends on " + sym.ID,
			})
		}
		t.dirtySubscribers(s)
	}
}

// Dirty reports whether l's recorded snapshot is less than the
// maximum snapshot in the transitive closure of its contributors
// (§3 "Dirty").
func (t *SymbolTable) Dirty(l Locator) bool {
	sym := t.locs[l]
	if !sym.snapshot.clean() {
		return true
	}
	maxc := t.maxContributorSnapshot(l, map[Locator]bool{})
	return sym.snapshot < maxc
}

func (t *SymbolTable) maxContributorSnapshot(l Locator, seen map[Locator]bool) Snapshot {
	if seen[l] {
		return SnapPristine
	}
	seen[l] = true
	sym := t.locs[l]
	max := sym.snapshot
	for c := range sym.contrib {
		cs := t.locs[c].snapshot
		if cs > max {
			max = cs
		}
		if sub := t.maxContributorSnapshot(c, seen); sub > max {
			max = sub
		}
	}
	return max
}

// ResetForFile implements §4.4's per-file reset: unsubscribe every
// symbol, erase every transient symbol, subscribe every remaining
// symbol. The caller is responsible for draining/emitting the
// "commandline" pseudo-line afterward.
func (t *SymbolTable) ResetForFile() {
	for l := Locator(1); int(l) < len(t.locs); l++ {
		t.unsubscribeAll(l)
	}
	for id, l := range t.byName {
		sym := t.locs[l]
		if sym.Provenance == Transient {
			delete(t.byName, id)
			t.locs[l] = nil
		}
	}
	for l := Locator(1); int(l) < len(t.locs); l++ {
		if t.locs[l] == nil {
			continue
		}
		t.subscribeToDefinition(l, t.locs[l])
	}
	t.cache.Clear()
}
