package codegen

import "slang/internal/ast"

// Scope is one level of the lexical environment of a routine body.
type Scope struct {
	parent *Scope
	root   *Scope
	vars   map[ast.Identifier]Variable
}

// NewScope creates a root scope.
func NewScope() *Scope {
	s := &Scope{vars: make(map[ast.Identifier]Variable)}
	s.root = s
	return s
}

// Child creates a scope nested in s.
func (s *Scope) Child() *Scope {
	return &Scope{
		parent: s,
		root:   s.root,
		vars:   make(map[ast.Identifier]Variable),
	}
}

func (s *Scope) Parent() *Scope { return s.parent }
func (s *Scope) Root() *Scope   { return s.root }

// Declare binds v under its name in s. Shadowing an outer name is allowed,
// redeclaring one in the same scope is not.
func (s *Scope) Declare(v Variable) error {
	name := v.Name()
	if _, exists := s.vars[name]; exists {
		return &VariableRedeclaredError{Name: name}
	}
	s.vars[name] = v
	return nil
}

func (s *Scope) Lookup(name ast.Identifier) (Variable, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Get is Lookup that reports a miss as *VariableNotFoundError.
func (s *Scope) Get(name ast.Identifier) (Variable, error) {
	if v, ok := s.Lookup(name); ok {
		return v, nil
	}
	return nil, &VariableNotFoundError{Scope: s, Name: name}
}
