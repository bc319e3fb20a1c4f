package parser_test

import (
	"errors"
	"strings"
	"testing"

	"slang/internal/ast"
	"slang/internal/parser"
)

const helloWorld = `{
  "type": "COMPILATION", "value": null,
  "children": [
    {"type": "DECLARATION_LIST", "value": null, "children": []},
    {"type": "ROUTINE", "value": null, "children": [
      {"type": "IDENTIFIER", "value": "$anonymous"},
      null,
      {"type": "PARAMETER_LIST", "value": null, "children": []},
      null,
      null,
      {"type": "ENTITY_LIST", "value": null, "children": [
        {"type": "CALL", "value": null, "children": [
          {"type": "CALLEE", "value": null, "children": [
            null,
            {"type": "IDENTIFIER", "value": "StandardIO$put$String"}
          ]},
          {"type": "EXPRESSION_LIST", "value": null, "children": [
            {"type": "LITERAL", "value": "Hello, World!", "children": [
              {"type": "UNIT_REF", "value": "String"}
            ]}
          ]}
        ]}
      ]},
      null
    ]}
  ]
}`

func mustParse(t *testing.T, src string) *ast.Compilation {
	t.Helper()
	comp, err := parser.ParseJSON(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseJSON error: %v", err)
	}
	return comp
}

func TestParseHelloWorld(t *testing.T) {
	comp := mustParse(t, helloWorld)

	if len(comp.Declarations) != 0 {
		t.Fatalf("expected no declarations, got %d", len(comp.Declarations))
	}
	anon := comp.Anonymous
	if anon == nil {
		t.Fatalf("expected anonymous routine")
	}
	if anon.ReturnType != ast.VoidRef {
		t.Fatalf("expected void return type, got %s", anon.ReturnType)
	}
	if len(anon.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(anon.Body))
	}
	call, ok := anon.Body[0].(*ast.Call)
	if !ok {
		t.Fatalf("expected *ast.Call, got %T", anon.Body[0])
	}
	if !call.Callee.Unit.IsEmpty() || call.Callee.Routine != ast.Ident("StandardIO$put$String") {
		t.Fatalf("unexpected callee %s", call.Callee)
	}
	lit, ok := call.Args[0].(*ast.Literal)
	if !ok || lit.Value != "Hello, World!" || lit.Type.Name != ast.Ident("String") {
		t.Fatalf("unexpected argument %#v", call.Args[0])
	}
}

const routines = `{
  "type": "COMPILATION", "value": null,
  "children": [
    {"type": "DECLARATION_LIST", "value": null, "children": [
      {"type": "ROUTINE", "value": null, "children": [
        {"type": "IDENTIFIER", "value": "putLine"},
        {"type": "FOREIGN_SPEC", "value": "foreign"},
        {"type": "PARAMETER_LIST", "value": null, "children": [
          {"type": "PARAMETER", "value": null, "children": [
            {"type": "UNIT_REF", "value": "String"},
            {"type": "IDENTIFIER", "value": "s"}
          ]}
        ]},
        null,
        null,
        {"type": "ENTITY_LIST", "value": null, "children": []},
        null
      ]},
      {"type": "ROUTINE", "value": null, "children": [
        {"type": "IDENTIFIER", "value": "pick"},
        {"type": "FOREIGN_SPEC", "value": null},
        {"type": "PARAMETER_LIST", "value": null, "children": [
          {"type": "PARAMETER", "value": null, "children": [
            {"type": "UNIT_REF", "value": "Integer"},
            {"type": "IDENTIFIER", "value": "a"}
          ]},
          {"type": "PARAMETER", "value": null, "children": [
            {"type": "UNIT_REF", "value": "Integer"},
            {"type": "IDENTIFIER", "value": "b"}
          ]}
        ]},
        {"type": "UNIT_REF", "value": "Integer"},
        {"type": "PRECONDITION", "value": null, "children": [
          {"type": "EXPRESSION_LIST", "value": null, "children": [
            {"type": "REFERENCE", "value": null, "children": [{"type": "IDENTIFIER", "value": "a"}]}
          ]}
        ]},
        {"type": "ENTITY_LIST", "value": null, "children": [
          {"type": "VARIABLE", "value": null, "children": [
            {"type": "IDENTIFIER", "value": "x"},
            {"type": "UNIT_REF", "value": "Integer"},
            {"type": "LITERAL", "value": "0", "children": [{"type": "UNIT_REF", "value": "Integer"}]}
          ]},
          {"type": "IF", "value": null, "children": [
            {"type": "STMT_IF_THEN_LIST", "value": null, "children": [
              {"type": "STMT_IF_THEN", "value": null, "children": [
                {"type": "REFERENCE", "value": null, "children": [{"type": "IDENTIFIER", "value": "a"}]},
                {"type": "ENTITY_LIST", "value": null, "children": [
                  {"type": "ASSIGNMENT", "value": null, "children": [
                    {"type": "REFERENCE", "value": null, "children": [{"type": "IDENTIFIER", "value": "x"}]},
                    {"type": "LITERAL", "value": "1", "children": [{"type": "UNIT_REF", "value": "Integer"}]}
                  ]}
                ]}
              ]},
              {"type": "STMT_IF_THEN", "value": null, "children": [
                {"type": "REFERENCE", "value": null, "children": [{"type": "IDENTIFIER", "value": "b"}]},
                {"type": "ENTITY_LIST", "value": null, "children": []}
              ]}
            ]},
            {"type": "ENTITY_LIST", "value": null, "children": [
              {"type": "ENTITY_LIST", "value": null, "children": [
                {"type": "VARIABLE", "value": null, "children": [
                  {"type": "IDENTIFIER", "value": "y"},
                  {"type": "REFERENCE", "value": null, "children": [{"type": "IDENTIFIER", "value": "b"}]}
                ]}
              ]}
            ]}
          ]},
          {"type": "RETURN", "value": null, "children": [
            {"type": "REFERENCE", "value": null, "children": [{"type": "IDENTIFIER", "value": "x"}]}
          ]}
        ]},
        {"type": "POSTCONDITION", "value": null, "children": []}
      ]},
      {"type": "UNIT", "value": null, "children": [
        {"type": "IDENTIFIER", "value": "Point"},
        {"type": "REF_VAL_SPEC", "value": "val"},
        {"type": "CONCURRENT_SPEC", "value": "concurrent"},
        {"type": "DECLARATION_LIST", "value": null, "children": []}
      ]}
    ]},
    {"type": "ROUTINE", "value": null, "children": [
      {"type": "IDENTIFIER", "value": "$anonymous"},
      {"type": "PARAMETER_LIST", "value": null, "children": []},
      {"type": "ENTITY_LIST", "value": null, "children": [
        {"type": "RETURN", "value": null, "children": []}
      ]}
    ]}
  ]
}`

func TestParseDeclarations(t *testing.T) {
	comp := mustParse(t, routines)

	if len(comp.Declarations) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(comp.Declarations))
	}

	putLine := comp.Declarations[0].(*ast.RoutineDecl)
	if !putLine.IsForeign || len(putLine.Params) != 1 || putLine.Params[0].Name != ast.Ident("s") {
		t.Fatalf("unexpected foreign routine %#v", putLine)
	}

	pick := comp.Declarations[1].(*ast.RoutineDecl)
	if pick.IsForeign {
		t.Fatalf("expected pick not to be foreign")
	}
	if pick.ReturnType.Name != ast.Ident("Integer") || len(pick.Params) != 2 {
		t.Fatalf("unexpected signature of pick: %#v", pick)
	}
	if len(pick.Pre) != 1 || len(pick.Post) != 0 {
		t.Fatalf("expected 1 precondition and no postcondition, got %d and %d", len(pick.Pre), len(pick.Post))
	}
	if len(pick.Body) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(pick.Body))
	}

	v := pick.Body[0].(*ast.VariableDecl)
	if v.Type == nil || v.Type.Name != ast.Ident("Integer") || v.Init == nil {
		t.Fatalf("unexpected variable %#v", v)
	}

	st := pick.Body[1].(*ast.If)
	if len(st.Branches) != 2 || st.Else == nil {
		t.Fatalf("expected 2 branches and an else, got %d, %v", len(st.Branches), st.Else)
	}
	if _, ok := st.Branches[0].Body.Stmts[0].(*ast.Assignment); !ok {
		t.Fatalf("expected assignment in first branch, got %T", st.Branches[0].Body.Stmts[0])
	}
	if len(st.Branches[1].Body.Stmts) != 0 {
		t.Fatalf("expected empty second branch")
	}
	nested, ok := st.Else.Stmts[0].(*ast.Block)
	if !ok || len(nested.Stmts) != 1 {
		t.Fatalf("expected nested block in else, got %#v", st.Else.Stmts)
	}
	if y := nested.Stmts[0].(*ast.VariableDecl); y.Type != nil || y.Init == nil {
		t.Fatalf("expected untyped initialized variable, got %#v", y)
	}

	if _, ok := pick.Body[2].(*ast.Return); !ok {
		t.Fatalf("expected return, got %T", pick.Body[2])
	}

	unit := comp.Declarations[2].(*ast.UnitDecl)
	if unit.Name != ast.Ident("Point") || unit.IsRef || !unit.IsConcurrent || unit.IsForeign {
		t.Fatalf("unexpected unit %#v", unit)
	}

	ret := comp.Anonymous.Body[0].(*ast.Return)
	if ret.Value != nil {
		t.Fatalf("expected bare return, got %#v", ret.Value)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		path string
		msg  string
	}{
		{
			name: "invalid json",
			src:  `{"type": `,
			msg:  "invalid JSON",
		},
		{
			name: "wrong root",
			src:  `{"type": "ROUTINE", "value": null, "children": []}`,
			path: "ROUTINE",
			msg:  "root must be COMPILATION",
		},
		{
			name: "unknown node",
			src:  `{"type": "COMPILATION", "value": null, "children": [{"type": "WHILE"}]}`,
			path: "COMPILATION/WHILE",
			msg:  `unknown node type "WHILE"`,
		},
		{
			name: "missing type",
			src:  `{"type": "COMPILATION", "value": null, "children": [{"value": "x"}]}`,
			path: "COMPILATION",
			msg:  "node without type",
		},
		{
			name: "compilation with value",
			src:  `{"type": "COMPILATION", "value": "x", "children": []}`,
			path: "COMPILATION",
			msg:  "value must be null",
		},
		{
			name: "empty identifier",
			src: `{"type": "COMPILATION", "children": [
				{"type": "REFERENCE", "children": [{"type": "IDENTIFIER", "value": ""}]}]}`,
			path: "COMPILATION/REFERENCE/IDENTIFIER",
			msg:  "identifier must not be empty",
		},
		{
			name: "variable without type or initializer",
			src: `{"type": "COMPILATION", "children": [
				{"type": "VARIABLE", "children": [{"type": "IDENTIFIER", "value": "x"}]}]}`,
			path: "COMPILATION/VARIABLE",
			msg:  "variable x has no type nor initializer",
		},
		{
			name: "bad ref val spec",
			src: `{"type": "COMPILATION", "children": [
				{"type": "UNIT", "children": [
					{"type": "IDENTIFIER", "value": "U"},
					{"type": "REF_VAL_SPEC", "value": "box"}]}]}`,
			path: "COMPILATION/UNIT/REF_VAL_SPEC",
			msg:  "value must be either ref or val",
		},
		{
			name: "bad foreign spec",
			src:  `{"type": "COMPILATION", "children": [{"type": "FOREIGN_SPEC", "value": "extern"}]}`,
			path: "COMPILATION/FOREIGN_SPEC",
			msg:  `value must be either null or "foreign"`,
		},
		{
			name: "callee arity",
			src: `{"type": "COMPILATION", "children": [
				{"type": "CALLEE", "children": [{"type": "IDENTIFIER", "value": "f"}]}]}`,
			path: "COMPILATION/CALLEE",
			msg:  "expected unit and routine, got 1 children",
		},
		{
			name: "literal without unit",
			src:  `{"type": "COMPILATION", "children": [{"type": "LITERAL", "value": "1", "children": []}]}`,
			path: "COMPILATION/LITERAL",
			msg:  "literal unit reference not found",
		},
		{
			name: "routine without body",
			src: `{"type": "COMPILATION", "children": [
				{"type": "ROUTINE", "children": [
					{"type": "IDENTIFIER", "value": "f"},
					{"type": "PARAMETER_LIST", "children": []}]}]}`,
			path: "COMPILATION/ROUTINE",
			msg:  "expected exactly one routine body, got 0",
		},
		{
			name: "assignment arity",
			src: `{"type": "COMPILATION", "children": [
				{"type": "ASSIGNMENT", "children": [
					{"type": "REFERENCE", "children": [{"type": "IDENTIFIER", "value": "x"}]}]}]}`,
			path: "COMPILATION/ASSIGNMENT",
			msg:  "expected target and value, got 1 expressions",
		},
		{
			name: "non statement in body",
			src: `{"type": "COMPILATION", "children": [
				{"type": "ROUTINE", "children": [
					{"type": "IDENTIFIER", "value": "f"},
					{"type": "PARAMETER_LIST", "children": []},
					{"type": "ENTITY_LIST", "children": [{"type": "UNIT_REF", "value": "Integer"}]}]}]}`,
			path: "COMPILATION/ROUTINE",
			msg:  "ast.UnitRef is not a statement",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp, err := parser.ParseJSON(strings.NewReader(tt.src))
			if err == nil {
				t.Fatalf("expected error, got %#v", comp)
			}
			var fe *parser.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *parser.FormatError, got %T: %v", err, err)
			}
			if fe.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, fe.Path)
			}
			if fe.Msg != tt.msg {
				t.Fatalf("expected message %q, got %q", tt.msg, fe.Msg)
			}
		})
	}
}

func TestParserCollectsErrors(t *testing.T) {
	root, err := parser.Decode(strings.NewReader(`{"type": "COMPILATION", "children": [
		{"type": "IDENTIFIER", "value": ""},
		{"type": "UNIT_REF"},
		{"type": "GOTO"}]}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	p := parser.New()
	p.ParseCompilation(root)
	if errs := p.Errors(); len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}
