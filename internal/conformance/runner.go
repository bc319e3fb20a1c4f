package conformance

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"slang/internal/ast"
	"slang/internal/codegen"
	"slang/internal/ir"
	"slang/internal/parser"
	"slang/internal/runtime"
	"slang/internal/value"
	"slang/internal/vm"
)

// Stage names, in pipeline order.
const (
	StageParser   = "parser"
	StageCompiler = "compiler"
	StageVerify   = "verify"
	StageRun      = "run"
)

// StageResult is the outcome of one stage of a case.
type StageResult struct {
	Stage string
	Pass  bool
	Error string
}

// Report collects the stages a case went through. A stage is only reached
// when every stage before it passed and was expected to pass.
type Report struct {
	Case        Case
	Skipped     bool
	Stages      []StageResult
	compiled    []byte
	compilation *ast.Compilation
}

// Passed reports whether every stage that ran passed.
func (r *Report) Passed() bool {
	for _, s := range r.Stages {
		if !s.Pass {
			return false
		}
	}
	return !r.Skipped
}

// Failure returns the first failed stage.
func (r *Report) Failure() (StageResult, bool) {
	for _, s := range r.Stages {
		if !s.Pass {
			return s, true
		}
	}
	return StageResult{}, false
}

func (r *Report) add(s StageResult) bool {
	r.Stages = append(r.Stages, s)
	return s.Pass
}

// Runner runs test cases through parse, compile, verify and run.
type Runner struct {
	logger *log.Logger
}

func NewRunner(logger *log.Logger) *Runner {
	return &Runner{logger: logger}
}

func (r *Runner) RunAll(cases []Case) []Report {
	reports := make([]Report, len(cases))
	for i, c := range cases {
		reports[i] = r.Run(c)
	}
	return reports
}

func (r *Runner) Run(c Case) Report {
	report := Report{Case: c}
	if c.Meta.Skip {
		report.Skipped = true
		return report
	}
	stages := c.Meta.Stages

	if !report.add(r.stageParser(&report)) || !stages.Parser.Pass {
		return report
	}
	if !report.add(r.stageCompiler(&report)) || !stages.Compiler.Pass {
		return report
	}
	if !report.add(r.stageVerify(&report)) || !stages.Verify.Pass {
		return report
	}
	if stages.Run.Run {
		report.add(r.stageRun(&report))
	}
	return report
}

// expect turns the error of a stage into its result under want.
func expect(stage string, want StageExpect, err error) StageResult {
	if err == nil {
		if !want.Pass {
			return StageResult{Stage: stage, Error: "should not have passed"}
		}
		return StageResult{Stage: stage, Pass: true}
	}
	msg := err.Error()
	return StageResult{
		Stage: stage,
		Pass:  !want.Pass && want.Error.Match(msg),
		Error: msg,
	}
}

func (r *Runner) stageParser(report *Report) StageResult {
	comp, err := parser.ParseFile(report.Case.SourcePath())
	report.compilation = comp
	return expect(StageParser, report.Case.Meta.Stages.Parser, err)
}

func (r *Runner) stageCompiler(report *Report) StageResult {
	var opts []codegen.Option
	if r.logger != nil {
		opts = append(opts, codegen.WithLogger(r.logger))
	}
	mod, err := codegen.Compile(report.compilation, opts...)
	if err == nil {
		var buf bytes.Buffer
		if err = ir.WriteModule(&buf, mod); err == nil {
			report.compiled = buf.Bytes()
		}
	}
	return expect(StageCompiler, report.Case.Meta.Stages.Compiler, err)
}

// stageVerify checks the serialized module the way a loader would.
func (r *Runner) stageVerify(report *Report) StageResult {
	mod, err := ir.ReadModule(bytes.NewReader(report.compiled))
	if err == nil {
		err = ir.Verify(mod)
	}
	return expect(StageVerify, report.Case.Meta.Stages.Verify, err)
}

type runResult struct {
	exitCode int
	stdout   string
	stderr   string
}

func (r *Runner) stageRun(report *Report) StageResult {
	want := report.Case.Meta.Stages.Run
	mod, err := ir.ReadModule(bytes.NewReader(report.compiled))
	if err != nil {
		return StageResult{Stage: StageRun, Error: err.Error()}
	}

	done := make(chan runResult, 1)
	go func() { done <- execute(mod) }()

	var res runResult
	select {
	case res = <-done:
	case <-time.After(time.Duration(want.Timeout) * time.Second):
		return StageResult{Stage: StageRun, Error: "timeout"}
	}

	switch {
	case res.exitCode != want.ExitCode:
		return StageResult{Stage: StageRun, Error: fmt.Sprintf("exit code (expected: %d, actual: %d)", want.ExitCode, res.exitCode)}
	case !want.Output.Match(res.stdout):
		return StageResult{Stage: StageRun, Error: fmt.Sprintf("standard output mismatch (expected: %s, actual: %q)", want.Output, res.stdout)}
	case !want.Error.Match(res.stderr):
		return StageResult{Stage: StageRun, Error: fmt.Sprintf("standard error mismatch (expected: %s, actual: %q)", want.Error, res.stderr)}
	}
	return StageResult{Stage: StageRun, Pass: true}
}

// execute runs the entry point. An Integer result is the exit code; a
// runtime error exits with 1 and is reported on stderr.
func execute(mod *ir.Module) runResult {
	io := runtime.NewBufferIO("")
	v, err := vm.NewVM(mod, runtime.NewEnv(io)).RunMain()
	res := runResult{stdout: io.Out.String()}
	switch {
	case err != nil:
		res.exitCode = 1
		res.stderr = err.Error()
	case v.Kind == value.KindInt:
		res.exitCode = int(v.Int)
	}
	return res
}
