// Package stdlib catalogs the built-in modules and functions a contract
// source program can reference without an explicit declaration: the
// "std::evm"/"std::block" environment accessors and the specification
// built-ins dispatched by C3 (the type annotator) and C6/C7 (the
// expression and specification translators).
//
// Grounded on kanso's internal/stdlib/modules.go: the same
// ModuleDefinition/FunctionDefinition/TypeRef catalog shape, re-pointed
// from a general-purpose standard library (Table, ascii, vector) to the
// small fixed set of environment accessors a verification pipeline needs
// to type.
package stdlib

import "civl/internal/builtins"

type ModuleDefinition struct {
	Name      string
	Path      string
	Functions map[string]FunctionDefinition
}

type FunctionDefinition struct {
	Name       string
	Parameters []ParameterDefinition
	ReturnType *TypeRef
}

type ParameterDefinition struct {
	Name string
	Type *TypeRef
}

// TypeRef is a lightweight type reference sufficient to describe stdlib
// signatures; internal/types.Registry resolves these names the same way
// it resolves any other source-level type reference.
type TypeRef struct {
	Name      string
	IsGeneric bool
}

func NewTypeRef(name string) *TypeRef { return &TypeRef{Name: name} }

func AddressType() *TypeRef { return &TypeRef{Name: string(builtins.Address)} }
func BoolType() *TypeRef    { return &TypeRef{Name: string(builtins.Bool)} }
func U256Type() *TypeRef    { return &TypeRef{Name: "uint256"} }
func GenericParam(name string) *TypeRef { return &TypeRef{Name: name, IsGeneric: true} }

func NewFunction(name string, ret *TypeRef, params ...ParameterDefinition) FunctionDefinition {
	return FunctionDefinition{Name: name, Parameters: params, ReturnType: ret}
}

func NewParam(name string, t *TypeRef) ParameterDefinition {
	return ParameterDefinition{Name: name, Type: t}
}

// GetStandardModules returns the "std::evm" and "std::block" environment
// modules: the only state a contract can read without it being one of its
// own declared fields (spec.md §4.3's msg.sender/msg.value/block.timestamp
// rules).
func GetStandardModules() map[string]*ModuleDefinition {
	evmModule := &ModuleDefinition{
		Name: "evm",
		Path: "std::evm",
		Functions: map[string]FunctionDefinition{
			"sender": NewFunction("sender", AddressType()),
			"value":  NewFunction("value", U256Type()),
			"emit":   NewFunction("emit", nil, NewParam("event", GenericParam("T"))),
		},
	}

	blockModule := &ModuleDefinition{
		Name: "block",
		Path: "std::block",
		Functions: map[string]FunctionDefinition{
			"timestamp": NewFunction("timestamp", U256Type()),
		},
	}

	return map[string]*ModuleDefinition{
		"std::evm":   evmModule,
		"std::block": blockModule,
	}
}

// Lookup resolves "module::function" against the standard module table.
func Lookup(path, name string) (FunctionDefinition, bool) {
	mod, ok := GetStandardModules()[path]
	if !ok {
		return FunctionDefinition{}, false
	}
	fn, ok := mod.Functions[name]
	return fn, ok
}
