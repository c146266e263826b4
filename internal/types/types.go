// Package types implements C5, the Type Translator: it resolves a
// surface-syntax ast.VariableType into a stable Type value and knows how
// to lower every Type to its IVL sort plus the supporting expressions
// (default value, non-negativity bound, array length) C6-C11 need.
//
// Grounded on kanso's internal/types/registry.go (a name-keyed registry
// resolving source type references to concrete Go type values) and
// internal/builtins/types.go (the primitive type table), adapted from
// EVM storage-layout types to verification sorts.
package types

import (
	"fmt"

	"civl/internal/builtins"
	"civl/internal/ivl"
)

// Kind discriminates the concrete shape of a Type.
type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindAddress
	KindArray
	KindMap
	KindStruct
	KindEvent
	KindResource
	KindInterface
	KindUnion
	KindCreator
)

// Type is the resolved, structural type of a contract-source declaration.
type Type struct {
	Kind     Kind
	Name     string // struct/event/resource/interface name; "" for primitives
	Width    int    // integer bit width, or Address width
	Signed   bool
	Elem     *Type // array/map value element; map key is always Int (address/uint)
	ArrayLen int
	Fields   []Field  // struct/event/resource field order
	Members  []*Type  // union member types
}

// Field is one member of a struct, event or resource type.
type Field struct {
	Name string
	Type *Type
}

func Int(width int, signed bool) *Type { return &Type{Kind: KindInt, Width: width, Signed: signed} }

var boolType = &Type{Kind: KindBool}
var addressType = &Type{Kind: KindAddress, Width: builtins.AddressWidth}

func Bool() *Type    { return boolType }
func Address() *Type { return addressType }

func Array(elem *Type, length int) *Type {
	return &Type{Kind: KindArray, Elem: elem, ArrayLen: length}
}

func Map(value *Type) *Type { return &Type{Kind: KindMap, Elem: value} }

func Struct(name string, fields []Field) *Type {
	return &Type{Kind: KindStruct, Name: name, Fields: fields}
}

func Event(name string, fields []Field) *Type {
	return &Type{Kind: KindEvent, Name: name, Fields: fields}
}

// Resource types always carry an implicit leading "address" field bound
// to the declaring contract's instance (SPEC_FULL.md's resource model).
func Resource(name string, params []Field) *Type {
	fields := append([]Field{{Name: "address", Type: addressType}}, params...)
	return &Type{Kind: KindResource, Name: name, Fields: fields}
}

func Interface(name string) *Type { return &Type{Kind: KindInterface, Name: name} }

func Union(members []*Type) *Type { return &Type{Kind: KindUnion, Members: members} }

// Creator is the synthetic type of a "create(Contract)" call's result
// (SPEC_FULL.md's supplemented "create" performs-action).
func Creator(target string) *Type { return &Type{Kind: KindCreator, Name: target} }

func (t *Type) String() string {
	switch t.Kind {
	case KindInt:
		prefix := "uint"
		if t.Signed {
			prefix = "int"
		}
		return fmt.Sprintf("%s%d", prefix, t.Width)
	case KindBool:
		return "bool"
	case KindAddress:
		return "address"
	case KindArray:
		return fmt.Sprintf("[%s; %d]", t.Elem.String(), t.ArrayLen)
	case KindMap:
		return fmt.Sprintf("Slots<%s>", t.Elem.String())
	case KindCreator:
		return fmt.Sprintf("Creator<%s>", t.Name)
	default:
		return t.Name
	}
}

// Sort lowers Type to the IVL sort it is represented by.
func (t *Type) Sort() ivl.Sort {
	switch t.Kind {
	case KindInt:
		return ivl.IntSort{}
	case KindBool:
		return ivl.BoolSort{}
	case KindAddress:
		return ivl.IntSort{}
	case KindArray:
		return ivl.SeqSort{Elem: t.Elem.Sort()}
	case KindMap:
		return ivl.MapSort{Key: ivl.IntSort{}, Value: t.Elem.Sort()}
	case KindStruct, KindEvent, KindResource, KindInterface:
		return ivl.RefSort{Name: t.Name}
	case KindCreator:
		return ivl.RefSort{Name: "Creator$" + t.Name}
	case KindUnion:
		// A union's runtime representation is its first member's sort;
		// members of other sorts are not distinguished.
		if len(t.Members) > 0 {
			return t.Members[0].Sort()
		}
		return ivl.IntSort{}
	default:
		return ivl.IntSort{}
	}
}

// IsNumeric reports whether arithmetic operators apply directly to t.
func (t *Type) IsNumeric() bool { return t.Kind == KindInt || t.Kind == KindAddress }

// NonNegative reports whether every value of t is provably >= 0 without a
// runtime check: unsigned integers and addresses.
func (t *Type) NonNegative() bool {
	return t.Kind == KindAddress || (t.Kind == KindInt && !t.Signed)
}

// Bounds returns the inclusive [min, max] range of t as decimal strings,
// ok is false for non-integer-like types.
func (t *Type) Bounds() (min, max string, ok bool) {
	if t.Kind == KindAddress {
		return "0", twoPow(builtins.AddressWidth, true), true
	}
	if t.Kind != KindInt {
		return "", "", false
	}
	if !t.Signed {
		return "0", twoPow(t.Width, true), true
	}
	return negTwoPow(t.Width - 1), twoPow(t.Width-1, true), true
}

// FieldType returns the Type of a named struct/event/resource field.
func (t *Type) FieldType(name string) (*Type, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}
