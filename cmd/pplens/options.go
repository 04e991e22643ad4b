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
	"strconv"
	"strings"

	"github.com/jpvetterli/args"
)

// Options is the fully parsed command line (§6): one command plus the
// option surface shared, with exclusions, by every command.
type Options struct {
	Command string
	Files   []string

	Defines []string // raw "NAME[(params)][=value]", one per -D
	Undefs  []string // raw "NAME", one per -U

	OptFile      string
	Replace      bool
	Backup       string
	Conflict     string
	Gag          []string
	Verbose      bool
	Complement   bool
	EvalWip      bool
	Discard      string
	EmitLine     bool
	Pod          bool
	Recurse      bool
	Filter       []string
	KeepGoing    bool
	Implicit     bool
	NoTransients bool
	Dir          string
	Prefix       string
	Explain      bool
	Select       []string
	MaxExpansion string

	// Report-command-specific listing options.
	Ifs         bool
	Defs        bool
	UndefsList  bool
	Includes    bool
	Lns         bool
	System      bool
	Locate      bool
	OnceOnly    bool
	OncePerFile bool
	Active      bool
	Inactive    bool
	Local       bool
	ExpandRefs  bool
}

// commands is the fixed set of permitted first positional arguments (§6).
var commands = map[string]bool{
	"help": true, "version": true, "source": true, "spin": true,
	"symbols": true, "includes": true, "defs": true, "pragmas": true,
	"errors": true, "lines": true, "directives": true,
}

// ParseArgs builds an args.Parser over the §6 option surface and
// translates conventional Unix-style argv into the name=value mini
// language the library consumes, mirroring the way the pack's own
// args_test.go examples construct a parameter set (see SPEC_FULL.md §9).
func ParseArgs(argv []string) (*Options, error) {
	if len(argv) == 0 {
		return &Options{Command: "help"}, nil
	}
	opt := &Options{}
	opt.Command = argv[0]
	if !commands[opt.Command] {
		return nil, fmt.Errorf("pplens: unknown command %q", opt.Command)
	}
	rest := argv[1:]

	p := args.NewParser(nil)
	p.Def("D", &opt.Defines).Aka("-D")
	p.Def("U", &opt.Undefs).Aka("-U")
	p.Def("f", &opt.OptFile).Aka("-f").Opt()
	p.Def("replace", &opt.Replace).Aka("-r").Aka("--replace").Opt()
	p.Def("backup", &opt.Backup).Aka("-b").Aka("--backup").Opt()
	p.Def("conflict", &opt.Conflict).Aka("-x").Aka("--conflict").Opt()
	p.Def("gag", &opt.Gag).Aka("-g").Aka("--gag")
	p.Def("verbose", &opt.Verbose).Aka("-V").Aka("--verbose").Opt()
	p.Def("complement", &opt.Complement).Aka("-c").Aka("--complement").Opt()
	p.Def("eval-wip", &opt.EvalWip).Aka("-E").Aka("--eval-wip").Opt()
	p.Def("discard", &opt.Discard).Aka("-k").Aka("--discard").Opt()
	p.Def("line", &opt.EmitLine).Aka("--line").Opt()
	p.Def("pod", &opt.Pod).Aka("-P").Aka("--pod").Opt()
	p.Def("recurse", &opt.Recurse).Aka("-R").Aka("--recurse").Opt()
	p.Def("filter", &opt.Filter).Aka("-F").Aka("--filter")
	p.Def("keepgoing", &opt.KeepGoing).Aka("-K").Aka("--keepgoing").Opt()
	p.Def("implicit", &opt.Implicit).Aka("-m").Aka("--implicit").Opt()
	p.Def("no-transients", &opt.NoTransients).Aka("--no-transients").Opt()
	p.Def("dir", &opt.Dir).Aka("--dir").Opt()
	p.Def("prefix", &opt.Prefix).Aka("-p").Aka("--prefix").Opt()
	p.Def("explain", &opt.Explain).Aka("--explain").Opt()
	p.Def("select", &opt.Select).Aka("--select")
	p.Def("max-expansion", &opt.MaxExpansion).Aka("--max-expansion").Opt()

	p.Def("ifs", &opt.Ifs).Aka("--ifs").Opt()
	p.Def("defs", &opt.Defs).Aka("--defs").Opt()
	p.Def("undefs", &opt.UndefsList).Aka("--undefs").Opt()
	p.Def("includes", &opt.Includes).Aka("--includes").Opt()
	p.Def("lns", &opt.Lns).Aka("--lns").Opt()
	p.Def("system", &opt.System).Aka("-s").Aka("--system").Opt()
	p.Def("locate", &opt.Locate).Aka("-L").Aka("--locate").Opt()
	p.Def("once-only", &opt.OnceOnly).Aka("-o").Aka("--once-only").Opt()
	p.Def("once-per-file", &opt.OncePerFile).Aka("--once-per-file").Opt()
	p.Def("active", &opt.Active).Aka("-A").Aka("--active").Opt()
	p.Def("inactive", &opt.Inactive).Aka("-I").Aka("--inactive").Opt()
	p.Def("local", &opt.Local).Aka("-l").Aka("--local").Opt()
	p.Def("expand", &opt.ExpandRefs).Aka("-e").Aka("--expand").Opt()
	p.Def("", &opt.Files).Aka("file")

	translated, err := translateArgv(rest)
	if err != nil {
		return nil, err
	}
	if err := p.ParseStrings(translated); err != nil {
		return nil, err
	}
	if err := validateForCommand(opt); err != nil {
		return nil, err
	}
	return opt, nil
}

// translateArgv rewrites a conventional "-flag value" / "--flag=value"
// argv into the args library's "name=value" word tokens, so the option
// table above (built with args.Def/Aka) can be driven by a familiar
// Unix-style command line. Bare positional words (not starting with
// "-") pass through unchanged as standalone file names.
func translateArgv(argv []string) ([]string, error) {
	var out []string
	boolFlags := map[string]bool{
		"-r": true, "--replace": true, "-V": true, "--verbose": true,
		"-c": true, "--complement": true, "-E": true, "--eval-wip": true,
		"--line": true, "-P": true, "--pod": true, "-R": true, "--recurse": true,
		"-K": true, "--keepgoing": true, "-m": true, "--implicit": true,
		"--no-transients": true, "--explain": true, "--ifs": true, "--defs": true,
		"--undefs": true, "--includes": true, "--lns": true, "-s": true, "--system": true,
		"-L": true, "--locate": true, "-o": true, "--once-only": true,
		"--once-per-file": true, "-A": true, "--active": true, "-I": true,
		"--inactive": true, "-l": true, "--local": true, "-e": true, "--expand": true,
	}
	for i := 0; i < len(argv); i++ {
		a := argv[i]
		switch {
		case !strings.HasPrefix(a, "-"):
			out = append(out, quoteValue(a))
		case strings.Contains(a, "="):
			name, val, _ := strings.Cut(a, "=")
			out = append(out, flagName(name)+"="+quoteValue(val))
		case boolFlags[a]:
			out = append(out, flagName(a)+"=true")
		default:
			if i+1 >= len(argv) {
				return nil, fmt.Errorf("pplens: option %s requires a value", a)
			}
			i++
			out = append(out, flagName(a)+"="+quoteValue(argv[i]))
		}
	}
	return out, nil
}

// quoteValue brackets a value containing whitespace so the args
// tokenizer treats it as one word (§6 "NAME[(params)][=value]" values
// such as parameter lists can contain no spaces, but replacement text
// supplied via -D can).
func quoteValue(v string) string {
	if strings.ContainsAny(v, " \t=[]$\\") {
		return "[" + v + "]"
	}
	return v
}

// flagName strips leading dashes; the option table's aliases (Aka)
// already map both the short and long spellings to one Param.
func flagName(flag string) string {
	return strings.TrimLeft(flag, "-")
}

// ParseMaxExpansion parses the "N[kK]" suffix form of --max-expansion
// (§6).
func ParseMaxExpansion(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	mult := 1
	if n := len(s); n > 0 && (s[n-1] == 'k' || s[n-1] == 'K') {
		mult = 1024
		s = s[:n-1]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("pplens: invalid --max-expansion value: %w", err)
	}
	return n * mult, nil
}

// reportOnly lists the commands for which the §6 listing options
// (--ifs, --defs, --undefs, --includes, --lns, -s, -L, -o,
// --once-per-file, -A, -I, -l, -e) are meaningful at all. No finer
// check is made of which listing option applies to which report
// command.
var reportOnly = map[string]bool{
	"symbols": true, "includes": true, "defs": true, "pragmas": true,
	"errors": true, "lines": true, "directives": true,
}

// validateForCommand enforces the coarse §6 "unknown options for a
// command are usage errors" rule: --dir is rejected for source,
// --replace for spin, and --replace/--backup/--dir for the report
// commands. No other option is checked per command.
func validateForCommand(o *Options) error {
	switch o.Command {
	case "source":
		if o.Dir != "" {
			return fmt.Errorf("pplens: --dir is only valid with the spin command")
		}
	case "spin":
		if o.Replace {
			return fmt.Errorf("pplens: --replace is only valid with the source command")
		}
	default:
		if reportOnly[o.Command] {
			if o.Replace || o.Backup != "" || o.Dir != "" {
				return fmt.Errorf("pplens: --replace/--backup/--dir are not valid with %s", o.Command)
			}
		}
	}
	return nil
}
