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
	"fmt"
	"os"
	"path/filepath"
)

// OutputTarget is where one input file's transformed text goes: stdout
// (the default), the input file itself (--replace, optionally via a
// --backup copy), or a path mirrored under --dir DIR (spin mode). It
// owns the resources (§5 "Scoped resources") for exactly one file.
type OutputTarget struct {
	path       string // original input path
	replace    bool
	backup     string
	spinDir    string
	backupPath string
}

// NewOutputTarget scopes the output destination for one input file
// given the already-validated command options.
func NewOutputTarget(path string, opt *Options) *OutputTarget {
	return &OutputTarget{path: path, replace: opt.Replace, backup: opt.Backup, spinDir: opt.Dir}
}

// Write commits text to this target's destination, creating a backup
// first if configured and mirroring directory structure under --dir.
func (o *OutputTarget) Write(text string) error {
	switch {
	case o.spinDir != "":
		return o.writeSpin(text)
	case o.replace:
		return o.writeReplace(text)
	default:
		_, err := fmt.Print(text)
		return err
	}
}

func (o *OutputTarget) writeReplace(text string) error {
	if o.backup != "" {
		bp, err := uniqueBackupName(o.path, o.backup)
		if err != nil {
			return err
		}
		if err := copyFile(o.path, bp); err != nil {
			return err
		}
		o.backupPath = bp
	}
	return os.WriteFile(o.path, []byte(text), 0644)
}

func (o *OutputTarget) writeSpin(text string) error {
	dest := filepath.Join(o.spinDir, o.path)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(text), 0644)
}

// uniqueBackupName appends suffix to path, retrying with a numeric tag
// until the name does not already exist (§6 "trying repeatedly until
// the name is unique").
func uniqueBackupName(path, suffix string) (string, error) {
	candidate := path + suffix
	for n := 0; ; n++ {
		if n > 0 {
			candidate = fmt.Sprintf("%s%s.%d", path, suffix, n)
		}
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
		if n > 10000 {
			return "", fmt.Errorf("pplens: could not find a unique backup name for %s", path)
		}
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

// ReadSource reads one input file's full contents for processing.
func ReadSource(path string) ([]byte, error) {
	return os.ReadFile(path)
}
