package translate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civl/internal/ast"
	"civl/internal/ivl"
)

// flatten walks a statement list depth-first through every ivl.If branch,
// so a test can search the whole try/finally dispatch tree translateTry
// builds rather than just its top-level statements.
func flatten(stmts []ivl.Stmt) []ivl.Stmt {
	var out []ivl.Stmt
	for _, s := range stmts {
		out = append(out, s)
		if ifs, ok := s.(*ivl.If); ok {
			out = append(out, flatten(ifs.Then)...)
			out = append(out, flatten(ifs.Else)...)
		}
	}
	return out
}

// withdrawContract builds a contract whose one function raises a typed
// error inside a try body with a matching catch handler and a finally
// block, to exercise translateTry's finally_mode/error_var dispatch
// (spec.md §4.8).
func withdrawContract(t *testing.T) *ast.Contract {
	t.Helper()
	u256 := &ast.VariableType{Name: ast.Ident{Value: "uint256"}}
	one := &ast.LiteralExpr{Value: "1", Kind: ast.IntLiteral}

	errStruct := &ast.Struct{
		Name: ast.Ident{Value: "InsufficientBalance"},
		Items: []*ast.StructField{
			{Name: ast.Ident{Value: "needed"}, VariableType: u256},
		},
	}

	storage := &ast.Struct{
		Attribute: &ast.Attribute{Name: "storage"},
		Name:      ast.Ident{Value: "State"},
		Items: []*ast.StructField{
			{Name: ast.Ident{Value: "recovered"}, VariableType: u256},
			{Name: ast.Ident{Value: "cleaned"}, VariableType: u256},
		},
	}

	self := func(field string) *ast.FieldAccessExpr {
		return &ast.FieldAccessExpr{Target: &ast.IdentExpr{Name: "self"}, Field: field}
	}

	withdraw := &ast.Function{
		Name:       ast.Ident{Value: "withdraw"},
		Decorators: []*ast.Decorator{{Name: "public"}},
		Writes:     []ast.Ident{{Value: "State"}},
		Body: &ast.FunctionBlock{
			Items: []ast.FunctionBlockItem{
				&ast.TryStmt{
					Body: &ast.FunctionBlock{
						Items: []ast.FunctionBlockItem{
							&ast.RaiseStmt{Value: &ast.StructLiteralExpr{
								Name: "InsufficientBalance",
								Fields: []*ast.StructLiteralField{
									{Name: ast.Ident{Value: "needed"}, Value: one},
								},
							}},
						},
					},
					Handlers: []*ast.CatchClause{
						{
							ErrorType: &ast.VariableType{Name: ast.Ident{Value: "InsufficientBalance"}},
							Binding:   ast.Ident{Value: "e"},
							Body: &ast.FunctionBlock{
								Items: []ast.FunctionBlockItem{
									&ast.AssignStmt{Target: self("recovered"), Operator: ast.ASSIGN, Value: one},
								},
							},
						},
					},
					Finally: &ast.FunctionBlock{
						Items: []ast.FunctionBlockItem{
							&ast.AssignStmt{Target: self("cleaned"), Operator: ast.ASSIGN, Value: one},
						},
					},
				},
			},
		},
	}

	return &ast.Contract{
		Name:  ast.Ident{Value: "Vault"},
		Items: []ast.ContractItem{errStruct, storage, withdraw},
	}
}

// TestTranslateTryRoutesRaiseIntoMatchingHandler proves a raise inside a
// try body is not a disguised no-op: the handler's own assignment must
// actually appear, reachable, in the emitted IVL rather than being
// translated and discarded.
func TestTranslateTryRoutesRaiseIntoMatchingHandler(t *testing.T) {
	sem := analyze(t, withdrawContract(t))
	prog, _, errs := EncodeProgram(sem)
	require.Empty(t, errs)
	require.Len(t, prog.Methods, 1)

	all := flatten(prog.Methods[0].Body)

	var sawFinallyGoto, sawHandlerWrite, sawFinallyWrite bool
	for _, s := range all {
		switch st := s.(type) {
		case *ivl.Goto:
			if strings.HasPrefix(st.Label, "finally$") {
				sawFinallyGoto = true
			}
		case *ivl.AssignField:
			switch st.Field {
			case "recovered":
				sawHandlerWrite = true
			case "cleaned":
				sawFinallyWrite = true
			}
		}
	}

	assert.True(t, sawFinallyGoto, "raise must jump to the try's finally label, not straight to revert")
	assert.True(t, sawHandlerWrite, "the matching catch handler's body must be reachable, not discarded")
	assert.True(t, sawFinallyWrite, "the finally block must run regardless of the exception path taken")
}

// TestTranslateTryReraisesUnmatchedErrorToRevert proves that when no
// handler's declared type matches, control still reaches the function's
// revert label (no handler silently swallows an error it cannot catch).
func TestTranslateTryReraisesUnmatchedErrorToRevert(t *testing.T) {
	contract := withdrawContract(t)
	// Rewrite the one handler to catch a type that is never raised.
	other := &ast.Struct{Name: ast.Ident{Value: "Unrelated"}}
	contract.Items = append(contract.Items, other)
	fn := contract.Items[2].(*ast.Function)
	tryStmt := fn.Body.Items[0].(*ast.TryStmt)
	tryStmt.Handlers[0].ErrorType = &ast.VariableType{Name: ast.Ident{Value: "Unrelated"}}

	sem := analyze(t, contract)
	prog, _, errs := EncodeProgram(sem)
	require.Empty(t, errs)

	all := flatten(prog.Methods[0].Body)
	var sawRevertGoto bool
	for _, s := range all {
		if g, ok := s.(*ivl.Goto); ok && g.Label == "revert" {
			sawRevertGoto = true
		}
	}
	assert.True(t, sawRevertGoto, "an error no handler catches must still reach the function's revert label")
}
