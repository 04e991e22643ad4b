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

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolveInputs expands the command line's positional file arguments
// into a concrete file list: plain files pass through, directories are
// walked (only when --recurse is set) and filtered by --filter's
// extension list (§6).
func ResolveInputs(args []string, recurse bool, filter []string) ([]string, error) {
	exts := extensionSet(filter)
	var out []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, a)
			continue
		}
		if !recurse {
			continue
		}
		matches, err := walkDir(a, exts)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}

func extensionSet(filter []string) map[string]bool {
	if len(filter) == 0 {
		return nil
	}
	set := make(map[string]bool)
	for _, group := range filter {
		for _, ext := range strings.Split(group, ",") {
			ext = strings.TrimSpace(ext)
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			set[ext] = true
		}
	}
	return set
}

// walkDir recursively finds files under root whose extension matches
// exts (nil means "everything"), using a doublestar glob so the same
// `**` matching semantics apply to --filter's per-extension grouping
// as to any brace-expanded pattern a caller passes directly.
func walkDir(root string, exts map[string]bool) ([]string, error) {
	pattern := filepath.ToSlash(filepath.Join(root, "**", "*"))
	if !doublestar.ValidatePattern(pattern) {
		pattern = filepath.ToSlash(filepath.Join(root, "*"))
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if exts != nil && !exts[filepath.Ext(m)] {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// MatchesFilter reports whether path's extension is named by --filter,
// or --filter was not given at all.
func MatchesFilter(path string, filter []string) bool {
	exts := extensionSet(filter)
	if exts == nil {
		return true
	}
	return exts[filepath.Ext(path)]
}
