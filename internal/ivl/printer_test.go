package ivl

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"

	"civl/internal/ast"
	"civl/internal/registry"
)

// buildSampleProgram assembles a tiny but representative program by hand:
// one field, one domain, one predicate, one pure function and one method
// with an if/goto/label control-flow shape mirroring C11's revert/return
// protocol. This exercises printStmt's If case and its default case
// (goto, label, assert) in one snapshot; the Seqn and While cases are not
// part of the sample.
func buildSampleProgram(reg *registry.Registry) *Program {
	selfRef := RefSort{Name: "Self"}
	balPos := reg.ToPosition(&ast.Ident{Value: "transfer"}, "transfer")

	p := NewProgram()
	p.AddField(Field{Name: "balances", Type: MapSort{Key: IntSort{}, Value: IntSort{}}})
	p.AddDomain(&Domain{
		Name: "Havoc",
		Functions: []*Function{
			{Name: "havoc_int", Params: []LocalDecl{{Name: "n", Type: IntSort{}}}, Return: IntSort{}},
		},
	})
	p.AddPredicate(&Predicate{Name: "valid$Token"})
	p.AddFunction(&Function{
		Name:   "isOwner",
		Params: []LocalDecl{{Name: "this", Type: selfRef}},
		Return: BoolSort{},
		Body:   &BoolLit{Value: true},
	})

	cond := &BinExpr{Op: "==", Left: &IntLit{Value: "0"}, Right: &IntLit{Value: "0"}, Type: BoolSort{}}
	body := []Stmt{
		&If{
			Cond: cond,
			Then: []Stmt{&Goto{Label: "revert", Pos: balPos}},
			Pos:  balPos,
		},
		&Label{Name: "revert"},
		&Assert{Expr: &BoolLit{Value: true}, Pos: balPos},
		&Label{Name: "exit"},
	}
	p.AddMethod(&Method{
		Name:    "transfer",
		Params:  []LocalDecl{{Name: "to", Type: IntSort{}}, {Name: "this", Type: selfRef}},
		Returns: []LocalDecl{{Name: "result", Type: BoolSort{}}},
		Body:    body,
	})
	return p
}

func TestPrintProgramGolden(t *testing.T) {
	reg := registry.New()
	p := buildSampleProgram(reg)
	out := Print(p)
	require.NotEmpty(t, out)
	snaps.MatchSnapshot(t, "print_program", out)
}

func TestPrintStmtTagsRegisteredPositions(t *testing.T) {
	reg := registry.New()
	pos := reg.ToPosition(&ast.Ident{Value: "f"}, "f")

	out := Print(&Program{
		Methods: []*Method{{
			Name: "f",
			Body: []Stmt{&Assert{Expr: &BoolLit{Value: true}, Pos: pos}},
		}},
	})
	require.Contains(t, out, "// @1")
}

func TestPrintStmtOmitsTagForUnregisteredPosition(t *testing.T) {
	out := Print(&Program{
		Methods: []*Method{{
			Name: "f",
			Body: []Stmt{&Assert{Expr: &BoolLit{Value: true}, Pos: registry.NoPosition()}},
		}},
	})
	require.NotContains(t, out, "// @")
}
