package ivl

import "civl/internal/registry"

// Field is a program-level mutable field, used for the single `state`
// record that backs the State Translator's snapshot model (spec.md §4.9).
type Field struct {
	Name string
	Type Sort
}

// LocalDecl is a method-local variable or parameter declaration.
type LocalDecl struct {
	Name string
	Type Sort
}

// Method is an impure, statement-bodied IVL procedure: the translation
// target of one contract function (C11) or one synthesized helper (e.g.
// a constructor's allocation prelude, or a loop's step-case procedure).
type Method struct {
	Name       string
	Params     []LocalDecl
	Returns    []LocalDecl
	Locals     []LocalDecl
	Pres       []Expr
	Posts      []Expr
	Body       []Stmt
	Pos        registry.Position
}

// Function is a pure, single-expression-bodied IVL function: the
// translation target of a ghost function, a lemma, or an internal helper
// like array_length or sum.
type Function struct {
	Name    string
	Params  []LocalDecl
	Return  Sort
	Pres    []Expr
	Body    Expr
	Pos     registry.Position
}

// Predicate is a named, parameterized permission bundle: a declared
// resource, the allocation map entry, an "offered" or "trusted" relation,
// or an "accessible" predicate (spec.md §4.4, §4.7).
type Predicate struct {
	Name   string
	Params []LocalDecl
	Body   Expr // nil for an abstract (uninterpreted) predicate
	Pos    registry.Position
}

// Domain is an uninterpreted sort together with the functions and axioms
// defined over it, used for resource identity and the allocation map.
type Domain struct {
	Name      string
	Functions []*Function
	Axioms    []Expr
}

// Program is the root of one translation unit: everything the external
// verifier is handed for a single contract file.
type Program struct {
	Fields     []Field
	Domains    []*Domain
	Functions  []*Function
	Predicates []*Predicate
	Methods    []*Method
}

func NewProgram() *Program {
	return &Program{}
}

func (p *Program) AddField(f Field)          { p.Fields = append(p.Fields, f) }
func (p *Program) AddDomain(d *Domain)       { p.Domains = append(p.Domains, d) }
func (p *Program) AddFunction(f *Function)   { p.Functions = append(p.Functions, f) }
func (p *Program) AddPredicate(pr *Predicate) { p.Predicates = append(p.Predicates, pr) }
func (p *Program) AddMethod(m *Method)       { p.Methods = append(p.Methods, m) }
