package ast

import (
	"fmt"
	"io"
	"strings"
)

// Dump returns a human-readable representation of the IR tree.
func Dump(e Entity) string {
	var sb strings.Builder
	fprintEntity(&sb, e, 0)
	return sb.String()
}

func fprintEntity(w io.Writer, e Entity, indent int) {
	if e == nil {
		return
	}

	ind := strings.Repeat("  ", indent)

	switch n := e.(type) {
	case *Compilation:
		fmt.Fprintf(w, "%sCompilation\n", ind)
		for _, d := range n.Declarations {
			fprintEntity(w, d, indent+1)
		}
		if n.Anonymous != nil {
			fmt.Fprintf(w, "%s  Anonymous:\n", ind)
			fprintEntity(w, n.Anonymous, indent+2)
		}

	case *RoutineDecl:
		foreign := ""
		if n.IsForeign {
			foreign = " foreign"
		}
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Name.String() + ": " + p.Type.String()
		}
		fmt.Fprintf(w, "%sRoutine name=%s%s (%s) -> %s\n", ind, n.Name, foreign, strings.Join(params, ", "), n.ReturnType)
		for _, st := range n.Body {
			fprintEntity(w, st, indent+1)
		}

	case *UnitDecl:
		spec := "val"
		if n.IsRef {
			spec = "ref"
		}
		foreign := ""
		if n.IsForeign {
			foreign = " foreign"
		}
		fmt.Fprintf(w, "%sUnit name=%s %s%s\n", ind, n.Name, spec, foreign)
		for _, d := range n.Declarations {
			fprintEntity(w, d, indent+1)
		}

	case *Block:
		fmt.Fprintf(w, "%sBlock\n", ind)
		for _, st := range n.Stmts {
			fprintEntity(w, st, indent+1)
		}

	case *Return:
		fmt.Fprintf(w, "%sReturn\n", ind)
		if n.Value != nil {
			fprintEntity(w, n.Value, indent+1)
		}

	case *VariableDecl:
		typ := "<inferred>"
		if n.Type != nil {
			typ = n.Type.String()
		}
		fmt.Fprintf(w, "%sVariable name=%s type=%s\n", ind, n.Name, typ)
		if n.Init != nil {
			fprintEntity(w, n.Init, indent+1)
		}

	case *Assignment:
		fmt.Fprintf(w, "%sAssignment\n", ind)
		fprintEntity(w, n.Target, indent+1)
		fprintEntity(w, n.Value, indent+1)

	case *If:
		fmt.Fprintf(w, "%sIf\n", ind)
		for i, br := range n.Branches {
			fmt.Fprintf(w, "%s  Cond[%d]:\n", ind, i)
			fprintEntity(w, br.Cond, indent+2)
			fmt.Fprintf(w, "%s  Then[%d]:\n", ind, i)
			fprintEntity(w, br.Body, indent+2)
		}
		if n.Else != nil {
			fmt.Fprintf(w, "%s  Else:\n", ind)
			fprintEntity(w, n.Else, indent+2)
		}

	case *Literal:
		fmt.Fprintf(w, "%sLiteral %q : %s\n", ind, n.Value, n.Type)

	case *Reference:
		fmt.Fprintf(w, "%sReference %s\n", ind, n.Name)

	case *Call:
		fmt.Fprintf(w, "%sCall %s\n", ind, n.Callee)
		for _, a := range n.Args {
			fprintEntity(w, a, indent+1)
		}

	default:
		fmt.Fprintf(w, "%s<unknown %T>\n", ind, e)
	}
}
