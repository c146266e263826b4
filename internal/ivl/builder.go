package ivl

import (
	"fmt"

	"civl/internal/registry"
)

// Position is a local alias so every constructor in this file can be
// spelled "pos Position" instead of repeating the import qualifier.
type Position = registry.Position

// Builder is C1: the single point through which every IVL node is
// constructed. It owns no mutable translation state of its own (that
// belongs to internal/translate's Context); its job is purely to refuse
// to build an ill-sorted node, the same role kanso's internal/ir builder
// plays for its SSA instructions.
type Builder struct {
	recordFields map[string][]string // record sort name -> field names, for FieldAccess validation
}

func NewBuilder() *Builder {
	return &Builder{recordFields: make(map[string][]string)}
}

// DeclareRecord registers the field set of a struct, event, resource or
// interface sort so later FieldAccess/StructInit calls can be validated.
func (b *Builder) DeclareRecord(sortName string, fields []string) {
	b.recordFields[sortName] = fields
}

var arithOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}
var compareOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true}
var eqOps = map[string]bool{"==": true, "!=": true}
var logicOps = map[string]bool{"&&": true, "||": true, "==>": true, "<==>": true}

// BinOp builds a binary expression, refusing to combine operands of the
// wrong sort for the requested operator (spec.md §3's "every expression
// node carries a non-null type" invariant starts here: a BinExpr can only
// ever be constructed with a type that is actually consistent with Op).
func (b *Builder) BinOp(op string, left, right Expr, pos Position) (*BinExpr, error) {
	switch {
	case arithOps[op]:
		if !SortsEqual(left.ExprSort(), IntSort{}) || !SortsEqual(right.ExprSort(), IntSort{}) {
			return nil, fmt.Errorf("ivl: arithmetic op %q requires Int operands, got %s and %s",
				op, left.ExprSort().SortName(), right.ExprSort().SortName())
		}
		return &BinExpr{Op: op, Left: left, Right: right, Type: IntSort{}, Pos: pos}, nil
	case compareOps[op]:
		if !SortsEqual(left.ExprSort(), IntSort{}) || !SortsEqual(right.ExprSort(), IntSort{}) {
			return nil, fmt.Errorf("ivl: comparison op %q requires Int operands, got %s and %s",
				op, left.ExprSort().SortName(), right.ExprSort().SortName())
		}
		return &BinExpr{Op: op, Left: left, Right: right, Type: BoolSort{}, Pos: pos}, nil
	case eqOps[op]:
		if !SortsEqual(left.ExprSort(), right.ExprSort()) {
			return nil, fmt.Errorf("ivl: equality op %q requires equal-sorted operands, got %s and %s",
				op, left.ExprSort().SortName(), right.ExprSort().SortName())
		}
		return &BinExpr{Op: op, Left: left, Right: right, Type: BoolSort{}, Pos: pos}, nil
	case logicOps[op]:
		if !SortsEqual(left.ExprSort(), BoolSort{}) || !SortsEqual(right.ExprSort(), BoolSort{}) {
			return nil, fmt.Errorf("ivl: logical op %q requires Bool operands, got %s and %s",
				op, left.ExprSort().SortName(), right.ExprSort().SortName())
		}
		return &BinExpr{Op: op, Left: left, Right: right, Type: BoolSort{}, Pos: pos}, nil
	default:
		return nil, fmt.Errorf("ivl: unknown binary op %q", op)
	}
}

// UnOp builds a unary expression: "-" on Int, "!" on Bool.
func (b *Builder) UnOp(op string, value Expr, pos Position) (*UnExpr, error) {
	switch op {
	case "-":
		if !SortsEqual(value.ExprSort(), IntSort{}) {
			return nil, fmt.Errorf("ivl: unary %q requires an Int operand, got %s", op, value.ExprSort().SortName())
		}
		return &UnExpr{Op: op, Value: value, Type: IntSort{}, Pos: pos}, nil
	case "!":
		if !SortsEqual(value.ExprSort(), BoolSort{}) {
			return nil, fmt.Errorf("ivl: unary %q requires a Bool operand, got %s", op, value.ExprSort().SortName())
		}
		return &UnExpr{Op: op, Value: value, Type: BoolSort{}, Pos: pos}, nil
	default:
		return nil, fmt.Errorf("ivl: unknown unary op %q", op)
	}
}

// Cond builds an if-then-else expression, requiring a Bool condition and
// identically sorted branches.
func (b *Builder) Cond(cond, then, els Expr, pos Position) (*CondExpr, error) {
	if !SortsEqual(cond.ExprSort(), BoolSort{}) {
		return nil, fmt.Errorf("ivl: conditional expression requires a Bool condition, got %s", cond.ExprSort().SortName())
	}
	if !SortsEqual(then.ExprSort(), els.ExprSort()) {
		return nil, fmt.Errorf("ivl: conditional branches must agree in sort, got %s and %s",
			then.ExprSort().SortName(), els.ExprSort().SortName())
	}
	return &CondExpr{Cond: cond, Then: then, Else: els, Type: then.ExprSort(), Pos: pos}, nil
}

// Field builds a field access, requiring the receiver's record sort to be
// declared and Field to be one of its members.
func (b *Builder) Field(receiver Expr, field string, fieldType Sort, pos Position) (*FieldAccess, error) {
	ref, ok := receiver.ExprSort().(RefSort)
	if !ok {
		return nil, fmt.Errorf("ivl: field access %q requires a record-sorted receiver, got %s", field, receiver.ExprSort().SortName())
	}
	fields, known := b.recordFields[ref.Name]
	if !known {
		return nil, fmt.Errorf("ivl: unknown record sort %q", ref.Name)
	}
	if !contains(fields, field) {
		return nil, fmt.Errorf("ivl: record %q has no field %q", ref.Name, field)
	}
	return &FieldAccess{Receiver: receiver, Field: field, Type: fieldType, Pos: pos}, nil
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

// Struct builds a record value, requiring every declared field to be
// supplied exactly once.
func (b *Builder) Struct(sort RefSort, fields map[string]Expr, pos Position) (*StructInit, error) {
	order, known := b.recordFields[sort.Name]
	if !known {
		return nil, fmt.Errorf("ivl: unknown record sort %q", sort.Name)
	}
	if len(fields) != len(order) {
		return nil, fmt.Errorf("ivl: record %q requires %d fields, got %d", sort.Name, len(order), len(fields))
	}
	for _, name := range order {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("ivl: record %q missing field %q", sort.Name, name)
		}
	}
	return &StructInit{Type: sort, FieldOrder: order, Fields: fields, Pos: pos}, nil
}

// PredAccess builds a permission-guarded predicate access, requiring a
// non-zero permission amount (spec.md §4.4: "acc(p, none)" is never
// emitted — absence of a predicate access already expresses no
// permission).
func (b *Builder) PredAccess(name string, args []Expr, perm Perm, pos Position) (*PredicateAccess, error) {
	if !perm.Full && !perm.Read && perm.Num == 0 {
		return nil, fmt.Errorf("ivl: predicate access %q built with zero permission", name)
	}
	return &PredicateAccess{Name: name, Args: args, Perm: perm, Pos: pos}, nil
}

// Seqn flattens nested Seqn statements into a single flat sequence,
// matching spec.md §4.1's "a Seqn never directly nests another Seqn"
// normal form.
func (b *Builder) Seqn(stmts []Stmt, pos Position) *Seqn {
	flat := make([]Stmt, 0, len(stmts))
	for _, s := range stmts {
		if inner, ok := s.(*Seqn); ok {
			flat = append(flat, inner.Stmts...)
			continue
		}
		flat = append(flat, s)
	}
	return &Seqn{Stmts: flat, Pos: pos}
}
