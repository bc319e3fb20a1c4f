package codegen

import (
	"fmt"

	"slang/internal/ast"
)

// UnitNotFoundError reports a unit reference that matches no registered unit.
type UnitNotFoundError struct {
	Unit ast.Identifier
}

func (e *UnitNotFoundError) Error() string {
	return fmt.Sprintf("unit not found: %s", e.Unit)
}

// RoutineNotFoundError reports a routine reference that could not be resolved.
// Unit is empty for unqualified lookups (global, then runtime unit).
type RoutineNotFoundError struct {
	Unit    ast.Identifier
	Routine ast.Identifier
}

func (e *RoutineNotFoundError) Error() string {
	if e.Unit.IsEmpty() {
		return fmt.Sprintf("routine not found: %s", e.Routine)
	}
	return fmt.Sprintf("routine not found: %s.%s", e.Unit, e.Routine)
}

// VariableNotFoundError reports a name missing from the whole scope chain
// starting at Scope.
type VariableNotFoundError struct {
	Scope *Scope
	Name  ast.Identifier
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("variable not found: %s", e.Name)
}

// UnresolvedReferenceError is raised for a name reference in a routine body
// that no enclosing scope declares.
type UnresolvedReferenceError struct {
	Routine string
	Name    ast.Identifier
	Err     error
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference %q in %s", e.Name.String(), e.Routine)
}

func (e *UnresolvedReferenceError) Unwrap() error { return e.Err }

// ArityMismatchError reports a call whose argument count differs from the
// callee's parameter count.
type ArityMismatchError struct {
	Routine  string
	Expected int
	Actual   int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("arity mismatch calling %s: expected %d arguments, got %d", e.Routine, e.Expected, e.Actual)
}

// TypeMismatchError reports a failed assignability check.
type TypeMismatchError struct {
	Expected ast.Identifier
	Actual   ast.Identifier
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Actual)
}

type EmptyConditionalsError struct {
	Routine string
}

func (e *EmptyConditionalsError) Error() string {
	return fmt.Sprintf("if statement without conditions in %s", e.Routine)
}

// LoadFromLiteralError reports a literal token that is not a valid value of
// its unit.
type LoadFromLiteralError struct {
	Unit    ast.Identifier
	Literal string
	Err     error
}

func (e *LoadFromLiteralError) Error() string {
	return fmt.Sprintf("unable to parse %s literal %q", e.Unit, e.Literal)
}

func (e *LoadFromLiteralError) Unwrap() error { return e.Err }

type LiteralsNotSupportedError struct {
	Unit ast.Identifier
}

func (e *LiteralsNotSupportedError) Error() string {
	return fmt.Sprintf("unit %s does not support literal values", e.Unit)
}

// CompilationStageError is an ordering violation: a routine's method handle
// was needed before its stage 1 completed.
type CompilationStageError struct {
	Routine string
	Stage   int
}

func (e *CompilationStageError) Error() string {
	return fmt.Sprintf("routine %s used before stage %d completed", e.Routine, e.Stage)
}

type DuplicateUnitError struct {
	Unit ast.Identifier
}

func (e *DuplicateUnitError) Error() string {
	return fmt.Sprintf("unit %s is already declared", e.Unit)
}

type DuplicateRoutineError struct {
	Unit    ast.Identifier
	Routine ast.Identifier
}

func (e *DuplicateRoutineError) Error() string {
	return fmt.Sprintf("routine %s is already declared in unit %s", e.Routine, e.Unit)
}

type VariableRedeclaredError struct {
	Name ast.Identifier
}

func (e *VariableRedeclaredError) Error() string {
	return fmt.Sprintf("variable %s is already declared in this scope", e.Name)
}

// ForeignBindingError reports a foreign routine that has no matching host
// method, or whose signature disagrees with it.
type ForeignBindingError struct {
	Routine ast.Identifier
	Msg     string
}

func (e *ForeignBindingError) Error() string {
	return fmt.Sprintf("foreign routine %s: %s", e.Routine, e.Msg)
}

// UnsupportedError marks IR shapes that are accepted by the parser but have
// no lowering.
type UnsupportedError struct {
	What string
}

func (e *UnsupportedError) Error() string {
	return "not supported: " + e.What
}
