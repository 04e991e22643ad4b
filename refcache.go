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
	"sort"
	"strings"
	"sync"
)

// DefaultMaxExpansion is the hard cut-off of §4.5, configurable per
// invocation via --max-expansion.
const DefaultMaxExpansion = 4196

// Reference is a textual use of a symbol, including its (possibly
// empty) argument list (§3 "Reference").
type Reference struct {
	Callee  Locator
	Args    []string // nil means "no parens at all" (object-like use)
	HasArgs bool
}

// Key is the literal invocation string used as the cache key, e.g.
// "name(a,b,...)" (§3, §9 "String/buffer identity").
func (r Reference) Key(t *SymbolTable) string {
	sym := t.Symbol(r.Callee)
	if sym == nil {
		return ""
	}
	if !r.HasArgs {
		return sym.ID
	}
	return sym.ID + "(" + strings.Join(r.Args, ",") + ")"
}

// CacheEntry is the memoized expansion+evaluation of one invocation
// (§3 "Reference cache entry").
type CacheEntry struct {
	Expansion string
	Eval      EvalResult
	Reported  bool
	Complete  bool
}

// ReferenceCache memoizes digest(reference) keyed by literal
// invocation text (§4.5).
type ReferenceCache struct {
	mu        sync.Mutex
	table     *SymbolTable
	entries   map[string]*cacheSlot
	maxExpand int
}

type cacheSlot struct {
	calleeID string
	entry    *CacheEntry
}

func NewReferenceCache(t *SymbolTable) *ReferenceCache {
	return &ReferenceCache{table: t, entries: map[string]*cacheSlot{}, maxExpand: DefaultMaxExpansion}
}

func (c *ReferenceCache) SetMaxExpansion(n int) { c.maxExpand = n }

// Clear discards every entry, e.g. on per-file reset (§4.4).
func (c *ReferenceCache) Clear() {
	c.mu.Lock()
	c.entries = map[string]*cacheSlot{}
	c.mu.Unlock()
}

func (c *ReferenceCache) invalidatePrefix(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, slot := range c.entries {
		if slot.calleeID == id {
			delete(c.entries, k)
		}
	}
}

// Lookup implements the §4.5 lookup protocol: binary-search (here, a
// map lookup) the cache; if absent call digest and insert; if present
// but callee.dirty() replace with fresh digest(); else return cached.
func (c *ReferenceCache) Lookup(ref Reference, ex Expander) *CacheEntry {
	key := ref.Key(c.table)
	sym := c.table.Symbol(ref.Callee)

	c.mu.Lock()
	slot, ok := c.entries[key]
	c.mu.Unlock()

	if ok && sym != nil && !c.table.Dirty(ref.Callee) {
		return slot.entry
	}

	entry := digest(c.table, ref, ex, c.maxExpand)
	c.mu.Lock()
	c.entries[key] = &cacheSlot{calleeID: sym.idOrEmpty(), entry: entry}
	c.mu.Unlock()
	return entry
}

func (s *Symbol) idOrEmpty() string {
	if s == nil {
		return ""
	}
	return s.ID
}

// Entries returns a copy of the cache's key-to-entry map for
// diagnostics/reporting commands; its iteration order is unspecified
// (SortedKeys gives a deterministic order).
func (c *ReferenceCache) Entries() map[string]*CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*CacheEntry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v.entry
	}
	return out
}

// SortedKeys is a small helper for deterministic report ordering.
func SortedKeys(m map[string]*CacheEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
