package codegen

import (
	"slang/internal/ast"
	"slang/internal/ir"
)

// Parameter is one, possibly anonymous, routine parameter.
type Parameter[T any] struct {
	Name ast.Identifier
	Type T
}

// Signature is a return type plus ordered parameters. It comes in two
// forms: SignatureReference holds unresolved unit names, and
// SignatureDefinition holds the units they resolve to.
type Signature[T any] struct {
	Return T
	Params []Parameter[T]
}

type (
	SignatureReference  = Signature[UnitReference]
	SignatureDefinition = Signature[*UnitDefinition]
)

func (s *Signature[T]) Arity() int { return len(s.Params) }

// ParamIndex returns the position of the parameter named name, or -1.
func (s *Signature[T]) ParamIndex(name ast.Identifier) int {
	for i, p := range s.Params {
		if !p.Name.IsEmpty() && p.Name == name {
			return i
		}
	}
	return -1
}

// NewSignatureReference builds an unnamed-parameter signature from units.
func NewSignatureReference(ret UnitReference, params ...UnitReference) SignatureReference {
	sig := SignatureReference{Return: ret}
	for _, p := range params {
		sig.Params = append(sig.Params, Parameter[UnitReference]{Type: p})
	}
	return sig
}

func signatureOf(ctx *Context, decl *ast.RoutineDecl) SignatureReference {
	ret := decl.ReturnType
	if ret.Name.IsEmpty() {
		ret = ast.VoidRef
	}
	sig := SignatureReference{Return: ctx.UnitRef(ret.Name)}
	for _, p := range decl.Params {
		sig.Params = append(sig.Params, Parameter[UnitReference]{
			Name: p.Name,
			Type: ctx.UnitRef(p.Type.Name),
		})
	}
	return sig
}

// ResolveSignature resolves every unit of ref. The first unit that cannot be
// found fails the whole signature.
func ResolveSignature(ref SignatureReference) (*SignatureDefinition, error) {
	ret, err := ref.Return.Resolve()
	if err != nil {
		return nil, err
	}
	def := &SignatureDefinition{Return: ret}
	for _, p := range ref.Params {
		u, err := p.Type.Resolve()
		if err != nil {
			return nil, err
		}
		def.Params = append(def.Params, Parameter[*UnitDefinition]{Name: p.Name, Type: u})
	}
	return def, nil
}

func nativeParams(def *SignatureDefinition) []ir.Param {
	params := make([]ir.Param, len(def.Params))
	for i, p := range def.Params {
		params[i] = ir.Param{Name: p.Name.String(), Type: p.Type.NativeType()}
	}
	return params
}

// VerifyCallArguments checks that args match def by count and, position by
// position, by nominal type. The first mismatching position is reported.
func VerifyCallArguments(routine string, def *SignatureDefinition, args []Typed) error {
	if len(args) != len(def.Params) {
		return &ArityMismatchError{
			Routine:  routine,
			Expected: len(def.Params),
			Actual:   len(args),
		}
	}
	for i, arg := range args {
		if err := def.Params[i].Type.AssertIsAssignableFrom(arg); err != nil {
			return err
		}
	}
	return nil
}
