package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"slang/internal/ast"
	"slang/internal/codegen"
	"slang/internal/conformance"
	"slang/internal/ir"
	"slang/internal/parser"
	"slang/internal/runtime"
	"slang/internal/value"
	"slang/internal/vm"
)

const version = "0.1.0"

var stdin io.Reader = os.Stdin

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "run":
		code, err := cmdRun(os.Args[2:])
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		os.Exit(code)
	case "build":
		if err := cmdBuild(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "verify":
		if err := cmdVerify(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "test":
		ok, err := cmdTest(os.Args[2:])
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		if !ok {
			os.Exit(1)
		}
	case "hosts":
		cmdHosts(os.Stdout)
	case "help", "-h", "--help":
		usage()
	case "version", "--version":
		fmt.Println("slangc", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`SLang compiler

Usage:
  slangc build [-o out.slc] [-v] [-ast dump.txt] [file.json|-]
  slangc run [-v] <file.json|file.slc>
  slangc verify <file.slc>
  slangc test [-dir tests] [-v]
  slangc hosts

Commands:
  version  Compiler version
  build    Compile a JSON IR file into an .slc module
  run      Compile and run a JSON IR file, or run an .slc module
  verify   Check the checksum and bytecode of an .slc module
  test     Run the conformance cases found in a tests directory
  hosts    List the host methods foreign routines can bind to

The exit code of run is the Integer returned by the program, 0 otherwise.

Flags (build):
  -o       Output file name (default: <input>.slc, required for stdin)
  -v       Trace compilation stages on stderr
  -ast     Write the parsed IR to the given file

build reads standard input when the input is "-" or missing.`)
}

// -------------- RUN --------------

func cmdRun(args []string) (int, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	verbose := fs.Bool("v", false, "trace compilation stages")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if fs.NArg() < 1 {
		return 0, fmt.Errorf("run: missing input file")
	}
	input := fs.Arg(0)

	var mod *ir.Module
	var err error
	switch ext := filepath.Ext(input); ext {
	case ".json":
		mod, err = compileFile(input, *verbose)
	case ".slc":
		mod, err = ir.ReadModuleFromFile(input)
		if err != nil {
			err = fmt.Errorf("failed to read module: %w", err)
		}
	default:
		return 0, fmt.Errorf("run: unsupported file extension %q (use .json or .slc)", ext)
	}
	if err != nil {
		return 0, err
	}

	v, err := vm.NewVM(mod, runtime.DefaultEnv()).RunMain()
	if err != nil {
		return 0, err
	}
	if v.Kind == value.KindInt {
		return int(v.Int), nil
	}
	return 0, nil
}

// -------------- BUILD --------------

func cmdBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var out, astPath string
	var verbose bool

	fs.StringVar(&out, "o", "", "output file (default: <input>.slc)")
	fs.BoolVar(&verbose, "v", false, "trace compilation stages")
	fs.StringVar(&astPath, "ast", "", "write the parsed IR to this file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	input := fs.Arg(0)

	var src io.Reader
	if input == "" || input == "-" {
		if out == "" {
			return fmt.Errorf("build: -o is required when reading standard input")
		}
		src = stdin
	} else {
		if filepath.Ext(input) != ".json" {
			return fmt.Errorf("build: input must be a .json IR file")
		}
		if out == "" {
			out = input[:len(input)-len(filepath.Ext(input))] + ".slc"
		}
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	mod, err := compileSource(src, verbose, astPath)
	if err != nil {
		return err
	}
	if err := ir.WriteModuleToFile(out, mod); err != nil {
		return fmt.Errorf("failed to write module: %w", err)
	}
	return nil
}

// -------------- VERIFY --------------

func cmdVerify(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("verify: missing input file")
	}
	mod, err := ir.ReadModuleFromFile(args[0])
	if err != nil {
		return err
	}
	if err := ir.Verify(mod); err != nil {
		return err
	}
	sum, err := ir.Checksum(mod)
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d types, %d functions, blake2b %x)\n", args[0], len(mod.Types), len(mod.Functions), sum[:8])
	return nil
}

// -------------- HOSTS --------------

func cmdHosts(w io.Writer) {
	for _, m := range runtime.HostMethods() {
		fmt.Fprintln(w, m)
	}
}

// -------------- TEST --------------

func cmdTest(args []string) (bool, error) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var dir string
	var verbose bool
	fs.StringVar(&dir, "dir", "", "tests directory (default: nearest ./tests in the working directory or its parents)")
	fs.BoolVar(&verbose, "v", false, "trace compilation stages")
	if err := fs.Parse(args); err != nil {
		return false, err
	}

	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return false, err
		}
		if dir, err = conformance.FindRoot(wd, "tests"); err != nil {
			return false, fmt.Errorf("%w; try -dir", err)
		}
	}
	fmt.Printf("Test repository root: %s\n", dir)

	cases, err := conformance.LoadCases(dir)
	if err != nil {
		return false, err
	}
	if fs.NArg() > 0 {
		cases = selectCases(cases, fs.Args())
	}

	reports := conformance.NewRunner(newLogger(verbose)).RunAll(cases)
	conformance.PrintReports(os.Stdout, reports)
	return conformance.ComputeStats(reports).Failed == 0, nil
}

func selectCases(cases []conformance.Case, names []string) []conformance.Case {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []conformance.Case
	for _, c := range cases {
		if want[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// -------------- Pipeline: .json -> *ir.Module --------------

func compileFile(path string, verbose bool) (*ir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return compileSource(f, verbose, "")
}

// compileSource parses and compiles the JSON IR read from r. A non-empty
// astPath receives a dump of the parsed IR.
func compileSource(r io.Reader, verbose bool, astPath string) (*ir.Module, error) {
	comp, err := parser.ParseJSON(r)
	if err != nil {
		return nil, err
	}
	if astPath != "" {
		if err := os.WriteFile(astPath, []byte(ast.Dump(comp)), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write IR dump: %w", err)
		}
	}
	mod, err := codegen.Compile(comp, codegen.WithLogger(newLogger(verbose)))
	if err != nil {
		return nil, fmt.Errorf("compilation failed: %w", err)
	}
	return mod, nil
}

// newLogger returns a stderr logger when verbose, nil otherwise.
func newLogger(verbose bool) *log.Logger {
	if !verbose {
		return nil
	}
	return log.New(os.Stderr, "slangc: ", 0)
}
