package semantic

import (
	"fmt"

	"civl/internal/ast"
	"civl/internal/types"
)

// Context owns every registry C3 and C4 need: the resolved type table,
// the function/resource/interface/ghost-implementation tables, and the
// declared state field types. One Context is built per contract and
// discarded at the end of the run (spec.md §3's "lives for one
// verification run" lifecycle).
type Context struct {
	Contract    *ast.Contract
	Types       *types.Registry
	Functions   map[string]*ast.Function
	Structs     map[string]*ast.Struct
	Resources   map[ast.ResourceIdentity]*ast.ResourceDecl
	Interfaces  map[string]*ast.InterfaceDecl
	GhostImpls  map[string]*ast.GhostFunctionDecl
	Lemmas      map[string]*ast.Lemma
	StateFields map[string]*types.Type
	TypeOf      map[ast.Expr]*types.Type
}

// NewContext resolves every declaration on contract into the registries
// above. Resolution errors (an unresolvable type reference) are returned
// immediately: nothing downstream can proceed without a complete type
// table.
func NewContext(contract *ast.Contract) (*Context, error) {
	ctx := &Context{
		Contract:    contract,
		Types:       types.NewRegistry(),
		Functions:   make(map[string]*ast.Function),
		Structs:     make(map[string]*ast.Struct),
		Resources:   make(map[ast.ResourceIdentity]*ast.ResourceDecl),
		Interfaces:  make(map[string]*ast.InterfaceDecl),
		GhostImpls:  make(map[string]*ast.GhostFunctionDecl),
		Lemmas:      make(map[string]*ast.Lemma),
		StateFields: make(map[string]*types.Type),
		TypeOf:      make(map[ast.Expr]*types.Type),
	}

	// Structs first: field types may reference other structs declared
	// earlier in the same contract.
	for _, s := range contract.Structs() {
		if _, err := ctx.Types.DeclareStruct(s); err != nil {
			return nil, fmt.Errorf("semantic: struct %s: %w", s.Name.Value, err)
		}
		ctx.Structs[s.Name.Value] = s
	}

	for _, item := range contract.Items {
		switch decl := item.(type) {
		case *ast.ResourceDecl:
			t, err := ctx.Types.DeclareResource(decl)
			if err != nil {
				return nil, fmt.Errorf("semantic: resource %s: %w", decl.Name.Value, err)
			}
			_ = t
			ctx.Resources[decl.Identity()] = decl
		case *ast.InterfaceDecl:
			ctx.Types.DeclareInterface(decl)
			ctx.Interfaces[decl.Name.Value] = decl
			for _, r := range decl.Resources {
				if _, err := ctx.Types.DeclareResource(r); err != nil {
					return nil, fmt.Errorf("semantic: resource %s: %w", r.Name.Value, err)
				}
				ctx.Resources[r.Identity()] = r
			}
		case *ast.GhostFunctionDecl:
			ctx.GhostImpls[decl.Name.Value] = decl
		case *ast.Function:
			ctx.Functions[decl.Name.Value] = decl
		}
	}

	for _, l := range contract.Lemmas {
		ctx.Lemmas[l.Name.Value] = l
	}

	if storage := contract.StorageStruct(); storage != nil {
		for _, field := range storage.Items {
			t, err := ctx.Types.Resolve(field.VariableType)
			if err != nil {
				return nil, fmt.Errorf("semantic: state field %s: %w", field.Name.Value, err)
			}
			ctx.StateFields[field.Name.Value] = t
		}
	}

	return ctx, nil
}

// ResolveParamTypes resolves a function parameter list to concrete types,
// in declaration order.
func (c *Context) ResolveParamTypes(params []*ast.FunctionParam) ([]*types.Type, error) {
	resolved := make([]*types.Type, len(params))
	for i, p := range params {
		t, err := c.Types.Resolve(p.Type)
		if err != nil {
			return nil, fmt.Errorf("semantic: parameter %s: %w", p.Name.Value, err)
		}
		resolved[i] = t
	}
	return resolved, nil
}
