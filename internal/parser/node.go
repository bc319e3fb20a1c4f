package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"slang/internal/ast"
)

// Node is one entity of the JSON IR: a labeled tree where every node has a
// type, an optional string value and ordered children. Children may be null.
type Node struct {
	Type     string  `json:"type"`
	Value    *string `json:"value"`
	Children []*Node `json:"children"`
}

// Decode reads one JSON IR tree from r.
func Decode(r io.Reader) (*Node, error) {
	var root Node
	dec := json.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return nil, &FormatError{Msg: "invalid JSON", Err: err}
	}
	return &root, nil
}

// FormatError reports an IR tree that does not have the expected shape.
type FormatError struct {
	Path string // node types from the root, e.g. COMPILATION/ROUTINE/CALL
	Msg  string
	Err  error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("format error")
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *FormatError) Unwrap() error { return e.Err }

// ParseJSON decodes and parses a whole compilation.
func ParseJSON(r io.Reader) (*ast.Compilation, error) {
	root, err := Decode(r)
	if err != nil {
		return nil, err
	}
	p := New()
	comp := p.ParseCompilation(root)
	if errs := p.Errors(); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, errors.Join(joined...)
	}
	return comp, nil
}

// ParseFile parses the JSON IR file at path.
func ParseFile(path string) (*ast.Compilation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseJSON(f)
}
