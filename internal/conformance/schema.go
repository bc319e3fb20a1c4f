package conformance

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Meta is the meta.yaml of one test case. Fields left out of the file keep
// the values of DefaultMeta.
type Meta struct {
	Skip   bool   `yaml:"skip,omitempty"`
	Stages Stages `yaml:"stages"`
}

// Stages holds the expectation of every pipeline stage, in pipeline order.
type Stages struct {
	Parser   StageExpect `yaml:"parser"`
	Compiler StageExpect `yaml:"compiler"`
	Verify   StageExpect `yaml:"verify"`
	Run      RunExpect   `yaml:"run"`
}

// StageExpect says whether a stage must succeed, and if not, which error
// message it must fail with.
type StageExpect struct {
	Pass  bool    `yaml:"pass"`
	Error Matcher `yaml:"error"`
}

// RunExpect describes the expected behavior of the compiled program.
type RunExpect struct {
	Run      bool     `yaml:"run"`
	Args     []string `yaml:"args,omitempty"` // accepted, the entry point takes no parameters
	ExitCode int      `yaml:"exit_code"`
	Output   Matcher  `yaml:"output"`
	Error    Matcher  `yaml:"error"`
	Timeout  int      `yaml:"timeout"` // seconds
}

// DefaultMeta expects every stage to pass and the program to exit with 0
// and no output.
func DefaultMeta() Meta {
	pass := StageExpect{Pass: true}
	return Meta{
		Stages: Stages{
			Parser:   pass,
			Compiler: pass,
			Verify:   pass,
			Run:      RunExpect{Run: true, Timeout: 10},
		},
	}
}

// ParseMeta decodes a meta.yaml document over DefaultMeta.
func ParseMeta(data []byte) (Meta, error) {
	meta := DefaultMeta()
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

type matcherKind int

const (
	matchExact matcherKind = iota
	matchRegex
	matchIgnore
)

// Matcher matches an error message or program output. In YAML it is either
// a plain string (exact match), {regex: ...} (whole-string match) or
// {ignore: true}. The zero Matcher matches only the empty string.
type Matcher struct {
	kind    matcherKind
	literal string
	re      *regexp.Regexp
}

func Exact(s string) Matcher { return Matcher{kind: matchExact, literal: s} }

func Ignore() Matcher { return Matcher{kind: matchIgnore} }

// Regex compiles pattern anchored at both ends.
func Regex(pattern string) (Matcher, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return Matcher{}, err
	}
	return Matcher{kind: matchRegex, literal: pattern, re: re}, nil
}

func (m Matcher) Match(s string) bool {
	switch m.kind {
	case matchIgnore:
		return true
	case matchRegex:
		return m.re.MatchString(s)
	default:
		return m.literal == s
	}
}

func (m Matcher) String() string {
	switch m.kind {
	case matchIgnore:
		return "<any>"
	case matchRegex:
		return "/" + m.literal + "/"
	default:
		return fmt.Sprintf("%q", m.literal)
	}
}

func (m *Matcher) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*m = Exact(s)
		return nil
	}

	var obj struct {
		Regex  *string `yaml:"regex"`
		Ignore bool    `yaml:"ignore"`
	}
	if err := node.Decode(&obj); err != nil {
		return fmt.Errorf("line %d: matcher must be a string, {regex: ...} or {ignore: true}", node.Line)
	}
	switch {
	case obj.Ignore:
		*m = Ignore()
	case obj.Regex != nil:
		re, err := Regex(*obj.Regex)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*m = re
	default:
		return fmt.Errorf("line %d: matcher must be a string, {regex: ...} or {ignore: true}", node.Line)
	}
	return nil
}
