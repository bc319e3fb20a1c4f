package builtins

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Env provides host services to builtins.
// This interface is implemented by runtime.Env to avoid import cycles.
type Env interface {
	IO() IO
}

// IO is the console used by host methods.
type IO interface {
	Write(string)
	ReadLine() (string, error)
}

// ID is a builtin function identifier.
type ID int

const (
	PutInteger ID = iota
	PutReal
	PutString
	PutLine
	ReadLine

	StringLength
	StringConcat
	StringContains
	StringStartsWith
	StringEndsWith
	StringIndexOf
	StringLastIndexOf
	StringToUpper
	StringToLower
	StringTrim
	StringTrimLeft
	StringTrimRight
	StringReplace
	StringToInteger
)

// TypeKind represents a raw host type of a builtin parameter or result.
type TypeKind int

const (
	TypeInt TypeKind = iota
	TypeFloat
	TypeString
	TypeVoid
	TypeAny
)

func (k TypeKind) String() string {
	switch k {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeVoid:
		return "void"
	}
	return "any"
}

// TypeRef describes a type in the builtin type system.
type TypeRef struct {
	Kind TypeKind
}

// Meta contains metadata about a host method. Foreign routines bind to a
// host method by Name.
type Meta struct {
	ID         ID
	Name       string
	Arity      int
	ParamNames []string // Parameter names in order (must match Arity)
	Params     []TypeRef
	Result     TypeRef
}

// String renders m as "name(param kind, ...) result".
func (m Meta) String() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = m.ParamNames[i] + " " + p.Kind.String()
	}
	return fmt.Sprintf("%s(%s) %s", m.Name, strings.Join(params, ", "), m.Result.Kind)
}

// Builtin represents a complete builtin function with both metadata and implementation.
// The Call function signature uses interface{} to avoid import cycles.
// Implementations should import the value package and cast appropriately.
type Builtin struct {
	Meta Meta
	// Call executes the builtin with raw (unwrapped) arguments.
	Call func(env Env, args []interface{}) (interface{}, error)
}

// registry holds all registered builtins with fast lookup indexes.
type registry struct {
	mu sync.RWMutex

	byID   map[ID]*Builtin
	byName map[string]*Builtin
}

var globalRegistry = &registry{
	byID:   make(map[ID]*Builtin),
	byName: make(map[string]*Builtin),
}

// Register registers a builtin. This is called automatically by each builtin's init() function.
// Panics if the builtin ID or name is already registered or if metadata is invalid.
func Register(b Builtin) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if len(b.Meta.ParamNames) != b.Meta.Arity || len(b.Meta.Params) != b.Meta.Arity {
		panic(fmt.Sprintf("builtin %s (ID %d): ParamNames/Params length != Arity (%d)",
			b.Meta.Name, b.Meta.ID, b.Meta.Arity))
	}
	if _, exists := globalRegistry.byID[b.Meta.ID]; exists {
		panic(fmt.Sprintf("builtin ID %d (%s) is already registered", b.Meta.ID, b.Meta.Name))
	}
	if _, exists := globalRegistry.byName[b.Meta.Name]; exists {
		panic(fmt.Sprintf("builtin name %q is already registered", b.Meta.Name))
	}

	globalRegistry.byID[b.Meta.ID] = &b
	globalRegistry.byName[b.Meta.Name] = &b
}

// LookupByName finds a builtin by name. Returns nil if not found.
func LookupByName(name string) *Builtin {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return globalRegistry.byName[name]
}

// All returns all registered builtin metadata ordered by ID.
func All() []Meta {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	result := make([]Meta, 0, len(globalRegistry.byID))
	for _, b := range globalRegistry.byID {
		result = append(result, b.Meta)
	}
	slices.SortFunc(result, func(a, b Meta) int { return int(a.ID) - int(b.ID) })
	return result
}
