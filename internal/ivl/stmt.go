package ivl

import "civl/internal/registry"

// Stmt is any IVL statement. Pure expression translation never produces
// these directly (spec.md §4.6's purity contract); only the statement and
// function translators (C8, C11) and the impure paths of C6 do.
type Stmt interface {
	StmtPos() registry.Position
	String() string
}

type AssignLocal struct {
	Var   string
	Value Expr
	Pos   registry.Position
}

func (a *AssignLocal) StmtPos() registry.Position { return a.Pos }
func (a *AssignLocal) String() string             { return a.Var + " := " + a.Value.String() }

type AssignField struct {
	Receiver Expr
	Field    string
	Value    Expr
	Pos      registry.Position
}

func (a *AssignField) StmtPos() registry.Position { return a.Pos }
func (a *AssignField) String() string {
	return a.Receiver.String() + "." + a.Field + " := " + a.Value.String()
}

// AssignMap assigns a freshly map_update'd value back to Target (a local
// or field), matching C8's "nested l-value" lowering: the receiver is
// never mutated in place, a new map value is built functionally and
// reassigned.
type AssignMap struct {
	Target Stmt // an *AssignLocal or *AssignField whose Value is the MapUpdate
	Pos    registry.Position
}

func (a *AssignMap) StmtPos() registry.Position { return a.Pos }
func (a *AssignMap) String() string             { return a.Target.String() }

type Inhale struct {
	Expr Expr
	Pos  registry.Position
}

func (i *Inhale) StmtPos() registry.Position { return i.Pos }
func (i *Inhale) String() string             { return "inhale " + i.Expr.String() }

type Exhale struct {
	Expr Expr
	Pos  registry.Position
}

func (e *Exhale) StmtPos() registry.Position { return e.Pos }
func (e *Exhale) String() string             { return "exhale " + e.Expr.String() }

type Assert struct {
	Expr Expr
	Pos  registry.Position
}

func (a *Assert) StmtPos() registry.Position { return a.Pos }
func (a *Assert) String() string             { return "assert " + a.Expr.String() }

type Fold struct {
	Predicate *PredicateAccess
	Pos       registry.Position
}

func (f *Fold) StmtPos() registry.Position { return f.Pos }
func (f *Fold) String() string             { return "fold " + f.Predicate.String() }

type Unfold struct {
	Predicate *PredicateAccess
	Pos       registry.Position
}

func (u *Unfold) StmtPos() registry.Position { return u.Pos }
func (u *Unfold) String() string             { return "unfold " + u.Predicate.String() }

type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
	Pos  registry.Position
}

func (i *If) StmtPos() registry.Position { return i.Pos }
func (i *If) String() string             { return "if (" + i.Cond.String() + ") { ... }" }

// While is retained for completeness of the node set (spec.md §3 lists it
// among IVL statements) but the statement translator (C8) never emits it
// for source "for" loops: bounded loops are either fully unrolled or
// lowered through the base-case/step-case havoc protocol (spec.md §4.8),
// both of which compile to If/Label/Goto. A hand-written IVL prelude
// method could still use While directly.
type While struct {
	Cond       Expr
	Invariants []Expr
	Body       []Stmt
	Pos        registry.Position
}

func (w *While) StmtPos() registry.Position { return w.Pos }
func (w *While) String() string             { return "while (" + w.Cond.String() + ") { ... }" }

type Label struct {
	Name string
	Pos  registry.Position
}

func (l *Label) StmtPos() registry.Position { return l.Pos }
func (l *Label) String() string             { return l.Name + ":" }

type Goto struct {
	Label string
	Pos   registry.Position
}

func (g *Goto) StmtPos() registry.Position { return g.Pos }
func (g *Goto) String() string             { return "goto " + g.Label }

type MethodCall struct {
	Callee  string
	Args    []Expr
	Targets []string
	Pos     registry.Position
}

func (m *MethodCall) StmtPos() registry.Position { return m.Pos }
func (m *MethodCall) String() string             { return m.Callee + "(...)" }

// Seqn is a flattened statement sequence; the Builder's Seqn constructor
// guarantees no Seqn ever directly nests another Seqn (spec.md §4.1).
type Seqn struct {
	Stmts []Stmt
	Pos   registry.Position
}

func (s *Seqn) StmtPos() registry.Position { return s.Pos }
func (s *Seqn) String() string             { return "{ ... }" }
