package types

import (
	"fmt"

	"civl/internal/ast"
	"civl/internal/builtins"
)

// Registry resolves surface type references against the struct, event,
// resource and interface declarations of the contract currently being
// translated. One Registry is built per translation unit.
type Registry struct {
	named map[string]*Type
}

func NewRegistry() *Registry {
	return &Registry{named: make(map[string]*Type)}
}

// Declare registers a resolved named type (struct, event, resource,
// interface) so later Resolve calls referencing it by name succeed.
func (r *Registry) Declare(name string, t *Type) {
	r.named[name] = t
}

// Lookup returns a previously declared named type.
func (r *Registry) Lookup(name string) (*Type, bool) {
	t, ok := r.named[name]
	return t, ok
}

// Resolve lowers a surface VariableType to a Type, given the already
// declared named types in this Registry. It does not declare anything
// itself; struct/event/resource/interface declarations are fed in ahead
// of time via Declare by semantic.NewContext.
func (r *Registry) Resolve(vt *ast.VariableType) (*Type, error) {
	if vt == nil {
		return nil, fmt.Errorf("types: nil type reference")
	}
	name := vt.Name.Value

	if vt.IsArray {
		if len(vt.Generics) != 1 {
			return nil, fmt.Errorf("types: array type %q must have exactly one element type", vt.String())
		}
		elem, err := r.Resolve(vt.Generics[0])
		if err != nil {
			return nil, err
		}
		return Array(elem, vt.ArrayLen), nil
	}

	if len(vt.TupleElements) > 0 {
		members := make([]*Type, len(vt.TupleElements))
		for i, te := range vt.TupleElements {
			m, err := r.Resolve(te)
			if err != nil {
				return nil, err
			}
			members[i] = m
		}
		return &Type{Kind: KindUnion, Name: "tuple", Members: members}, nil
	}

	if name == "Slots" || name == "Map" {
		if len(vt.Generics) != 1 {
			return nil, fmt.Errorf("types: map type %q must have exactly one value type", vt.String())
		}
		value, err := r.Resolve(vt.Generics[0])
		if err != nil {
			return nil, err
		}
		return Map(value), nil
	}

	if name == "Creator" {
		if len(vt.Generics) != 1 {
			return nil, fmt.Errorf("types: Creator<T> requires exactly one type argument")
		}
		return Creator(vt.Generics[0].Name.Value), nil
	}

	if builtins.IsBuiltinType(name) {
		if name == string(builtins.Bool) {
			return Bool(), nil
		}
		if name == string(builtins.Address) {
			return Address(), nil
		}
		width, _ := builtins.IntegerWidth(name)
		return Int(width, builtins.IsSignedInteger(name)), nil
	}

	if t, ok := r.named[name]; ok {
		return t, nil
	}

	return nil, fmt.Errorf("types: unresolved type %q", name)
}

// DeclareStruct resolves and registers a struct or event declaration,
// returning the resolved Type for use by the symbol checker.
func (r *Registry) DeclareStruct(s *ast.Struct) (*Type, error) {
	fields := make([]Field, len(s.Items))
	for i, item := range s.Items {
		ft, err := r.Resolve(item.VariableType)
		if err != nil {
			return nil, fmt.Errorf("types: struct %q field %q: %w", s.Name.Value, item.Name.Value, err)
		}
		fields[i] = Field{Name: item.Name.Value, Type: ft}
	}
	var t *Type
	if s.IsEvent() {
		t = Event(s.Name.Value, fields)
	} else {
		t = Struct(s.Name.Value, fields)
	}
	r.Declare(s.Name.Value, t)
	return t, nil
}

// DeclareResource resolves and registers a resource declaration.
func (r *Registry) DeclareResource(decl *ast.ResourceDecl) (*Type, error) {
	params := make([]Field, len(decl.Params))
	for i, p := range decl.Params {
		pt, err := r.Resolve(p.Type)
		if err != nil {
			return nil, fmt.Errorf("types: resource %q param %q: %w", decl.Name.Value, p.Name.Value, err)
		}
		params[i] = Field{Name: p.Name.Value, Type: pt}
	}
	t := Resource(decl.Name.Value, params)
	r.Declare(decl.Name.Value, t)
	return t, nil
}

// DeclareInterface registers an interface's abstract surface.
func (r *Registry) DeclareInterface(decl *ast.InterfaceDecl) *Type {
	t := Interface(decl.Name.Value)
	r.Declare(decl.Name.Value, t)
	return t
}
