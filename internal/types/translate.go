package types

import (
	"strconv"

	"civl/internal/ivl"
	"civl/internal/registry"
)

// DefaultValue returns the IVL expression for a type's zero value: 0 for
// integers and addresses, false for bool, an all-default-valued struct
// literal for records, and the empty map/sequence for collections.
func DefaultValue(t *Type, b *ivl.Builder, pos registry.Position) ivl.Expr {
	switch t.Kind {
	case KindInt, KindAddress:
		return &ivl.IntLit{Value: "0", Pos: pos}
	case KindBool:
		return &ivl.BoolLit{Value: false, Pos: pos}
	case KindMap:
		return &ivl.FuncApp{Name: "map_empty", Type: t.Sort(), Pos: pos}
	case KindArray:
		return &ivl.FuncApp{Name: "seq_default", Args: []ivl.Expr{&ivl.IntLit{Value: strconv.Itoa(t.ArrayLen), Pos: pos}}, Type: t.Sort(), Pos: pos}
	case KindStruct, KindEvent, KindResource:
		fields := make(map[string]ivl.Expr, len(t.Fields))
		for _, f := range t.Fields {
			fields[f.Name] = DefaultValue(f.Type, b, pos)
		}
		init, err := b.Struct(ivl.RefSort{Name: t.Name}, fields, pos)
		if err != nil {
			// Fields were derived from t.Fields itself; this cannot fail
			// unless the Builder's record declaration and this Type have
			// drifted apart, which is a translator bug, not bad input.
			panic(err)
		}
		return init
	default:
		return &ivl.IntLit{Value: "0", Pos: pos}
	}
}

// NonNegativeBound returns "0 <= value" for a type whose signedness does
// not already guarantee it, or nil when the bound is vacuous (spec.md
// §4.5's "only emit a check a type doesn't already rule out").
func NonNegativeBound(t *Type, value ivl.Expr, b *ivl.Builder, pos registry.Position) ivl.Expr {
	if t.NonNegative() {
		return nil
	}
	bound, err := b.BinOp("<=", &ivl.IntLit{Value: "0", Pos: pos}, value, pos)
	if err != nil {
		panic(err)
	}
	return bound
}

// RangeBounds returns "min <= value && value <= max" for an integer-like
// type, or nil for a type with no finite range (anything non-numeric).
func RangeBounds(t *Type, value ivl.Expr, b *ivl.Builder, pos registry.Position) ivl.Expr {
	min, max, ok := t.Bounds()
	if !ok {
		return nil
	}
	lo, err := b.BinOp("<=", &ivl.IntLit{Value: min, Pos: pos}, value, pos)
	if err != nil {
		panic(err)
	}
	hi, err := b.BinOp("<=", value, &ivl.IntLit{Value: max, Pos: pos}, pos)
	if err != nil {
		panic(err)
	}
	conj, err := b.BinOp("&&", lo, hi, pos)
	if err != nil {
		panic(err)
	}
	return conj
}

// ArrayLength returns the statically known length of an array type as an
// IVL literal; arrays are fixed-capacity so this never needs a runtime
// read (spec.md §4.5).
func ArrayLength(t *Type, pos registry.Position) ivl.Expr {
	return &ivl.IntLit{Value: strconv.Itoa(t.ArrayLen), Pos: pos}
}

// TypeCheck returns the well-formedness predicate for a value of type t:
// its range bound for integer-like types, and true for every other type;
// array elements and struct fields are not checked.
func TypeCheck(t *Type, value ivl.Expr, b *ivl.Builder, pos registry.Position) ivl.Expr {
	if bound := RangeBounds(t, value, b, pos); bound != nil {
		return bound
	}
	return &ivl.BoolLit{Value: true, Pos: pos}
}
