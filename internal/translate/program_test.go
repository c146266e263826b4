package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civl/internal/ast"
	"civl/internal/ivl"
	"civl/internal/semantic"
)

// deposit builds a small but representative contract by hand, bypassing
// the parser: one storage struct with a single balance field and one
// public function that requires a positive amount, adds it to the
// stored balance, and ensures the balance increased by exactly
// that amount. This exercises C9 (state bundles), C11 (the
// revert/return/exit protocol) and C12 (the program driver) together,
// mirroring kanso's own internal/ir "parse, analyze, translate" test
// shape but against a hand-built AST instead of source text.
func deposit(t *testing.T) *ast.Contract {
	t.Helper()
	u256 := &ast.VariableType{Name: ast.Ident{Value: "uint256"}}

	storage := &ast.Struct{
		Attribute: &ast.Attribute{Name: "storage"},
		Name:      ast.Ident{Value: "State"},
		Items: []*ast.StructField{
			{Name: ast.Ident{Value: "balance"}, VariableType: u256},
		},
	}

	self := func(field string) *ast.FieldAccessExpr {
		return &ast.FieldAccessExpr{Target: &ast.IdentExpr{Name: "self"}, Field: field}
	}

	zero := &ast.LiteralExpr{Value: "0", Kind: ast.IntLiteral}

	deposit := &ast.Function{
		Name:       ast.Ident{Value: "deposit"},
		Decorators: []*ast.Decorator{{Name: "public"}},
		Params: []*ast.FunctionParam{
			{Name: ast.Ident{Value: "amount"}, Type: u256},
		},
		Writes: []ast.Ident{{Value: "State"}},
		Requires: []ast.Expr{
			&ast.BinaryExpr{Op: ">", Left: &ast.IdentExpr{Name: "amount"}, Right: zero},
		},
		Ensures: []ast.Expr{
			&ast.BinaryExpr{
				Op:   "==",
				Left: self("balance"),
				Right: &ast.BinaryExpr{
					Op:    "+",
					Left:  &ast.OldExpr{Value: self("balance")},
					Right: &ast.IdentExpr{Name: "amount"},
				},
			},
		},
		Body: &ast.FunctionBlock{
			Items: []ast.FunctionBlockItem{
				&ast.AssignStmt{
					Target:   self("balance"),
					Operator: ast.PLUS_ASSIGN,
					Value:    &ast.IdentExpr{Name: "amount"},
				},
			},
		},
	}

	return &ast.Contract{
		Name:  ast.Ident{Value: "Wallet"},
		Items: []ast.ContractItem{storage, deposit},
	}
}

func analyze(t *testing.T, contract *ast.Contract) *semantic.Context {
	t.Helper()
	a := semantic.NewAnalyzer()
	diags := a.Analyze(contract)
	require.Empty(t, diags, "contract must analyze cleanly")
	return a.Context
}

func TestEncodeProgramTranslatesPublicFunction(t *testing.T) {
	sem := analyze(t, deposit(t))

	prog, reg, errs := EncodeProgram(sem)
	require.Empty(t, errs)
	require.NotNil(t, reg)

	require.Len(t, prog.Methods, 1)
	m := prog.Methods[0]
	assert.Equal(t, "deposit", m.Name)
	assert.Len(t, m.Pres, 1, "the requires clause lowers to one precondition")
	assert.Len(t, m.Posts, 1, "the ensures clause lowers to one postcondition")

	var labels []string
	for _, s := range m.Body {
		if l, ok := s.(*ivl.Label); ok {
			labels = append(labels, l.Name)
		}
	}
	assert.Equal(t, []string{"revert", "return", "exit"}, labels,
		"every public function follows the revert/return/exit protocol")
}

func TestEncodeProgramEncodesStorageContractWithoutErrors(t *testing.T) {
	sem := analyze(t, deposit(t))
	_, _, errs := EncodeProgram(sem)
	require.Empty(t, errs)
}

func TestEncodeProgramEncodesContractWithoutStorageStruct(t *testing.T) {
	// A contract with no storage struct at all still encodes: declareRecords
	// falls back to the ledger-only Self record.
	contract := &ast.Contract{
		Name: ast.Ident{Value: "Empty"},
		Items: []ast.ContractItem{
			&ast.Function{
				Name:       ast.Ident{Value: "noop"},
				Decorators: []*ast.Decorator{{Name: "public"}},
				Body:       &ast.FunctionBlock{},
			},
		},
	}
	sem := analyze(t, contract)
	prog, reg, errs := EncodeProgram(sem)
	require.Empty(t, errs)
	require.NotNil(t, reg)
	require.Len(t, prog.Methods, 1)
	assert.Equal(t, "noop", prog.Methods[0].Name)
}
