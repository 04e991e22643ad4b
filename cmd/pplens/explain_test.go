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
	"bytes"
	"strings"
	"testing"

	"github.com/pplens/pplens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReportSymbolsListsDefinitionFromSourceDefine(t *testing.T) {
	an := pplens.NewAnalyser(pplens.NewSink(nil))
	src := "#define FOO 1\n"
	var buf bytes.Buffer
	require.NoError(t, RunReport(an, []byte(src), "t.c", &Options{Command: "symbols"}, &buf))

	out := buf.String()
	assert.Contains(t, out, "FOO")
	assert.Contains(t, out, "\tdef\t")
	assert.Contains(t, out, "1")
}

func TestRunReportSymbolsExplainChainsNestedMacro(t *testing.T) {
	an := pplens.NewAnalyser(pplens.NewSink(nil))
	src := "#define type_comb2(T1, T2) __typeof__(0 ? (T1)0 : (T2)0)\n" +
		"#define type_comb3(T1, T2, T3) type_comb2(T1, type_comb2(T2, T3))\n"
	var buf bytes.Buffer
	require.NoError(t, RunReport(an, []byte(src), "t.c", &Options{Command: "symbols", Explain: true}, &buf))

	out := buf.String()
	assert.Contains(t, out, "type_comb2")
	assert.Contains(t, out, "type_comb3")

	lines := strings.Split(out, "\n")
	var sawStep bool
	for i, l := range lines {
		if strings.HasPrefix(l, "type_comb3\t") {
			if i+1 < len(lines) && strings.Contains(lines[i+1], "step 1:") {
				sawStep = true
			}
		}
	}
	assert.True(t, sawStep, "expected a step log following type_comb3's row, got %q", out)
}
