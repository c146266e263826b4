package ivl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civl/internal/registry"
)

func TestBuilderBinOpRejectsMismatchedSorts(t *testing.T) {
	b := NewBuilder()
	i := &IntLit{Value: "1", Pos: registry.NoPosition()}
	bo := &BoolLit{Value: true, Pos: registry.NoPosition()}

	_, err := b.BinOp("+", i, bo, registry.NoPosition())
	assert.Error(t, err)

	expr, err := b.BinOp("+", i, i, registry.NoPosition())
	require.NoError(t, err)
	assert.Equal(t, IntSort{}, expr.ExprSort())
}

func TestBuilderBinOpComparisonYieldsBool(t *testing.T) {
	b := NewBuilder()
	i := &IntLit{Value: "1", Pos: registry.NoPosition()}

	expr, err := b.BinOp("<", i, i, registry.NoPosition())
	require.NoError(t, err)
	assert.Equal(t, BoolSort{}, expr.ExprSort())
}

func TestBuilderBinOpEqualityRequiresSameSort(t *testing.T) {
	b := NewBuilder()
	i := &IntLit{Value: "1", Pos: registry.NoPosition()}
	bo := &BoolLit{Value: true, Pos: registry.NoPosition()}

	_, err := b.BinOp("==", i, bo, registry.NoPosition())
	assert.Error(t, err)

	expr, err := b.BinOp("==", bo, bo, registry.NoPosition())
	require.NoError(t, err)
	assert.Equal(t, BoolSort{}, expr.ExprSort())
}

func TestBuilderCondRequiresBoolCondAndMatchingBranches(t *testing.T) {
	b := NewBuilder()
	i := &IntLit{Value: "1", Pos: registry.NoPosition()}
	bo := &BoolLit{Value: true, Pos: registry.NoPosition()}

	_, err := b.Cond(i, i, i, registry.NoPosition())
	assert.Error(t, err, "condition must be Bool")

	_, err = b.Cond(bo, i, bo, registry.NoPosition())
	assert.Error(t, err, "branches must agree in sort")

	expr, err := b.Cond(bo, i, i, registry.NoPosition())
	require.NoError(t, err)
	assert.Equal(t, IntSort{}, expr.ExprSort())
}

func TestBuilderFieldRequiresDeclaredRecordAndField(t *testing.T) {
	b := NewBuilder()
	b.DeclareRecord("Self", []string{"balances", "events"})
	this := &LocalVar{Name: "this", Type: RefSort{Name: "Self"}, Pos: registry.NoPosition()}

	_, err := b.Field(this, "missing", IntSort{}, registry.NoPosition())
	assert.Error(t, err)

	f, err := b.Field(this, "balances", MapSort{Key: IntSort{}, Value: IntSort{}}, registry.NoPosition())
	require.NoError(t, err)
	assert.Equal(t, "balances", f.Field)
}

func TestBuilderFieldRejectsNonRecordReceiver(t *testing.T) {
	b := NewBuilder()
	i := &IntLit{Value: "1", Pos: registry.NoPosition()}
	_, err := b.Field(i, "anything", IntSort{}, registry.NoPosition())
	assert.Error(t, err)
}

func TestBuilderStructRequiresEveryField(t *testing.T) {
	b := NewBuilder()
	b.DeclareRecord("Pair", []string{"a", "b"})
	i := &IntLit{Value: "1", Pos: registry.NoPosition()}

	_, err := b.Struct(RefSort{Name: "Pair"}, map[string]Expr{"a": i}, registry.NoPosition())
	assert.Error(t, err, "missing field b")

	s, err := b.Struct(RefSort{Name: "Pair"}, map[string]Expr{"a": i, "b": i}, registry.NoPosition())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.FieldOrder)
}

func TestBuilderPredAccessRejectsZeroPermission(t *testing.T) {
	b := NewBuilder()
	_, err := b.PredAccess("valid", nil, Perm{}, registry.NoPosition())
	assert.Error(t, err)

	_, err = b.PredAccess("valid", nil, FullPerm(), registry.NoPosition())
	assert.NoError(t, err)
}

func TestBuilderSeqnFlattensNestedSequences(t *testing.T) {
	b := NewBuilder()
	inner := b.Seqn([]Stmt{&Assert{Expr: &BoolLit{Value: true}, Pos: registry.NoPosition()}}, registry.NoPosition())
	outer := b.Seqn([]Stmt{inner, &Assert{Expr: &BoolLit{Value: false}, Pos: registry.NoPosition()}}, registry.NoPosition())

	assert.Len(t, outer.Stmts, 2)
	for _, s := range outer.Stmts {
		_, isSeqn := s.(*Seqn)
		assert.False(t, isSeqn, "Seqn must not nest another Seqn")
	}
}
