package ivl

import "civl/internal/registry"

// Expr is any pure IVL expression node. Every node carries the Sort it
// was built with and the registry.Position of the source construct that
// produced it (registry.NoPosition() for prelude-internal expressions).
type Expr interface {
	ExprSort() Sort
	ExprPos() registry.Position
	String() string
}

type IntLit struct {
	Value string // decimal literal text; arbitrary precision, not a machine int
	Pos   registry.Position
}

func (l *IntLit) ExprSort() Sort             { return IntSort{} }
func (l *IntLit) ExprPos() registry.Position { return l.Pos }
func (l *IntLit) String() string             { return l.Value }

type BoolLit struct {
	Value bool
	Pos   registry.Position
}

func (l *BoolLit) ExprSort() Sort             { return BoolSort{} }
func (l *BoolLit) ExprPos() registry.Position { return l.Pos }
func (l *BoolLit) String() string {
	if l.Value {
		return "true"
	}
	return "false"
}

// LocalVar references a method-local variable, parameter, or loop binder.
type LocalVar struct {
	Name string
	Type Sort
	Pos  registry.Position
}

func (v *LocalVar) ExprSort() Sort             { return v.Type }
func (v *LocalVar) ExprPos() registry.Position { return v.Pos }
func (v *LocalVar) String() string             { return v.Name }

// Result references the current (pure) function's return value.
type Result struct {
	Type Sort
	Pos  registry.Position
}

func (r *Result) ExprSort() Sort             { return r.Type }
func (r *Result) ExprPos() registry.Position { return r.Pos }
func (r *Result) String() string             { return "result()" }

// Old evaluates Value against the state bundle snapshot named Label (see
// internal/translate's state translator, C9).
type Old struct {
	Label string
	Value Expr
	Pos   registry.Position
}

func (o *Old) ExprSort() Sort             { return o.Value.ExprSort() }
func (o *Old) ExprPos() registry.Position { return o.Pos }
func (o *Old) String() string             { return "old[" + o.Label + "](" + o.Value.String() + ")" }

// BinExpr is a binary arithmetic, comparison or logical operation. The
// Builder constructors enforce that arithmetic ops only ever combine
// IntSort operands and logical ops only ever combine BoolSort operands.
type BinExpr struct {
	Op    string
	Left  Expr
	Right Expr
	Type  Sort
	Pos   registry.Position
}

func (b *BinExpr) ExprSort() Sort             { return b.Type }
func (b *BinExpr) ExprPos() registry.Position { return b.Pos }
func (b *BinExpr) String() string             { return "(" + b.Left.String() + " " + b.Op + " " + b.Right.String() + ")" }

type UnExpr struct {
	Op    string
	Value Expr
	Type  Sort
	Pos   registry.Position
}

func (u *UnExpr) ExprSort() Sort             { return u.Type }
func (u *UnExpr) ExprPos() registry.Position { return u.Pos }
func (u *UnExpr) String() string             { return u.Op + u.Value.String() }

// CondExpr is an if-then-else expression, used for short-circuit boolean
// lowering and for min/max.
type CondExpr struct {
	Cond Expr
	Then Expr
	Else Expr
	Type Sort
	Pos  registry.Position
}

func (c *CondExpr) ExprSort() Sort             { return c.Type }
func (c *CondExpr) ExprPos() registry.Position { return c.Pos }
func (c *CondExpr) String() string {
	return "(" + c.Cond.String() + " ? " + c.Then.String() + " : " + c.Else.String() + ")"
}

// FieldAccess reads a record field. The Builder validates that Field
// names a member of Receiver's record sort.
type FieldAccess struct {
	Receiver Expr
	Field    string
	Type     Sort
	Pos      registry.Position
}

func (f *FieldAccess) ExprSort() Sort             { return f.Type }
func (f *FieldAccess) ExprPos() registry.Position { return f.Pos }
func (f *FieldAccess) String() string             { return f.Receiver.String() + "." + f.Field }

// MapGet is a total-function read: every map has a Default, so this never
// needs a bounds check.
type MapGet struct {
	Map Expr
	Key Expr
	Pos registry.Position
}

func (m *MapGet) ExprSort() Sort {
	if ms, ok := m.Map.ExprSort().(MapSort); ok {
		return ms.Value
	}
	return IntSort{}
}
func (m *MapGet) ExprPos() registry.Position { return m.Pos }
func (m *MapGet) String() string             { return m.Map.String() + "[" + m.Key.String() + "]" }

// MapUpdate is a pure functional map update: map_update(m, k, v).
type MapUpdate struct {
	Map   Expr
	Key   Expr
	Value Expr
	Pos   registry.Position
}

func (m *MapUpdate) ExprSort() Sort             { return m.Map.ExprSort() }
func (m *MapUpdate) ExprPos() registry.Position { return m.Pos }
func (m *MapUpdate) String() string {
	return "map_update(" + m.Map.String() + ", " + m.Key.String() + ", " + m.Value.String() + ")"
}

// ArrayIndex reads a fixed-capacity array; the caller (C6) is responsible
// for emitting the length-bounds-check statement ahead of this pure read.
type ArrayIndex struct {
	Array Expr
	Index Expr
	Pos   registry.Position
}

func (a *ArrayIndex) ExprSort() Sort {
	if ss, ok := a.Array.ExprSort().(SeqSort); ok {
		return ss.Elem
	}
	return IntSort{}
}
func (a *ArrayIndex) ExprPos() registry.Position { return a.Pos }
func (a *ArrayIndex) String() string             { return a.Array.String() + "[" + a.Index.String() + "]" }

// ArrayUpdate is a pure functional array update: seq_update(a, i, v).
type ArrayUpdate struct {
	Array Expr
	Index Expr
	Value Expr
	Pos   registry.Position
}

func (a *ArrayUpdate) ExprSort() Sort             { return a.Array.ExprSort() }
func (a *ArrayUpdate) ExprPos() registry.Position { return a.Pos }
func (a *ArrayUpdate) String() string {
	return "seq_update(" + a.Array.String() + ", " + a.Index.String() + ", " + a.Value.String() + ")"
}

// StructInit builds a record value. FieldOrder preserves declaration order
// for deterministic printing.
type StructInit struct {
	Type       RefSort
	FieldOrder []string
	Fields     map[string]Expr
	Pos        registry.Position
}

func (s *StructInit) ExprSort() Sort             { return s.Type }
func (s *StructInit) ExprPos() registry.Position { return s.Pos }
func (s *StructInit) String() string             { return s.Type.Name + "{...}" }

// VarDecl is a typed binder: a method parameter, return, local, or
// quantifier-bound variable.
type VarDecl struct {
	Name string
	Type Sort
}

// Forall is a universally quantified pure expression with optional
// trigger sets controlling SMT instantiation.
type Forall struct {
	Vars     []VarDecl
	Triggers [][]Expr
	Body     Expr
	Pos      registry.Position
}

func (f *Forall) ExprSort() Sort             { return BoolSort{} }
func (f *Forall) ExprPos() registry.Position { return f.Pos }
func (f *Forall) String() string             { return "forall ... :: " + f.Body.String() }

// Let binds Var to Value for the evaluation of Body.
type Let struct {
	Var   VarDecl
	Value Expr
	Body  Expr
	Pos   registry.Position
}

func (l *Let) ExprSort() Sort             { return l.Body.ExprSort() }
func (l *Let) ExprPos() registry.Position { return l.Pos }
func (l *Let) String() string             { return "let " + l.Var.Name + " == (" + l.Value.String() + ") in " + l.Body.String() }

// FuncApp applies a domain or program function (sum, a ghost function, a
// lemma, an intrinsic like array_length) to arguments.
type FuncApp struct {
	Name string
	Args []Expr
	Type Sort
	Pos  registry.Position
}

func (f *FuncApp) ExprSort() Sort             { return f.Type }
func (f *FuncApp) ExprPos() registry.Position { return f.Pos }
func (f *FuncApp) String() string             { return f.Name + "(...)" }

// Perm is a permission amount: full (1/1), a fractional numerator/
// denominator, or a read-only wildcard.
type Perm struct {
	Full  bool
	Read  bool
	Num   int
	Denom int
}

func FullPerm() Perm           { return Perm{Full: true} }
func ReadPerm() Perm           { return Perm{Read: true} }
func FractionalPerm(n, d int) Perm { return Perm{Num: n, Denom: d} }

func (p Perm) String() string {
	switch {
	case p.Full:
		return "write"
	case p.Read:
		return "rd"
	default:
		return "frac"
	}
}

// PredicateAccess is "acc(Name(args...), perm)": permission to a
// resource, allocation map entry, offer, trust or accessibility
// predicate.
type PredicateAccess struct {
	Name string
	Args []Expr
	Perm Perm
	Pos  registry.Position
}

func (p *PredicateAccess) ExprSort() Sort             { return BoolSort{} }
func (p *PredicateAccess) ExprPos() registry.Position { return p.Pos }
func (p *PredicateAccess) String() string             { return "acc(" + p.Name + "(...), " + p.Perm.String() + ")" }
