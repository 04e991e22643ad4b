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
	"io"
	"sort"

	"github.com/pplens/pplens"
)

// reportSymbols implements the `symbols` command (§6): a sorted
// listing of every symbol the configuration and the processed file
// have touched, each row naming its status, provenance and
// definition text, honoring --select and --local/--system as coarse
// filters. Under --explain, a defined symbol's row is followed by its
// step-by-step substitution chain, one call expanded with its own
// formal names standing in for arguments (§8 scenario 4).
func reportSymbols(an *pplens.Analyser, opt *Options, w io.Writer) error {
	an.Select(opt.Select)
	reports := an.Symbols()
	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })
	for _, r := range reports {
		if len(opt.Select) > 0 && r.Deselected {
			continue
		}
		if opt.Local && r.Provenance != pplens.Transient {
			continue
		}
		if opt.System && r.Provenance != pplens.Global {
			continue
		}
		status := "undef"
		if r.Defined {
			status = "def"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, status, provenanceLabel(r.Provenance), r.Definition)
		if opt.Explain && r.Defined {
			for _, step := range an.Explain(r.ID) {
				fmt.Fprintf(w, "\t%s\n", step)
			}
		}
	}
	return nil
}

func provenanceLabel(p pplens.Provenance) string {
	switch p {
	case pplens.Global:
		return "global"
	case pplens.Transient:
		return "transient"
	default:
		return "unconfigured"
	}
}
