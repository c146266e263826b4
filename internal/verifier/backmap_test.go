package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civl/internal/ast"
	"civl/internal/registry"
)

func TestBackMapRendersKnownReasonCode(t *testing.T) {
	reg := registry.New()
	pos := reg.ToPosition(&ast.Ident{Value: "x", Pos: ast.Position{Filename: "t.ka", Line: 3, Column: 5}}, "transfer")

	diags := BackMap(reg, []Failure{{ReasonCode: "division.by.zero", PositionID: pos.ID()}})
	require.Len(t, diags, 1)
	assert.Equal(t, "division by zero", diags[0].CompilerError.Message)
	assert.Equal(t, "transfer", diags[0].FunctionName)
	assert.Equal(t, 3, diags[0].CompilerError.Position.Line)
}

func TestBackMapAppliesRuleRemap(t *testing.T) {
	reg := registry.New()
	pos := reg.ToPosition(&ast.Ident{Value: "x"}, "f",
		registry.WithRules(map[string]string{"assertion.false": "invariant.violated"}))

	diags := BackMap(reg, []Failure{{ReasonCode: "assertion.false", PositionID: pos.ID()}})
	require.Len(t, diags, 1)
	assert.Equal(t, "invariant does not hold", diags[0].CompilerError.Message)
}

func TestBackMapDeduplicatesIdenticalFailures(t *testing.T) {
	reg := registry.New()
	pos := reg.ToPosition(&ast.Ident{Value: "x"}, "f")

	diags := BackMap(reg, []Failure{
		{ReasonCode: "assertion.false", PositionID: pos.ID()},
		{ReasonCode: "assertion.false", PositionID: pos.ID()},
	})
	assert.Len(t, diags, 1)
}

func TestBackMapFallsBackForUnknownPositionID(t *testing.T) {
	reg := registry.New()
	diags := BackMap(reg, []Failure{{ReasonCode: "assertion.false", PositionID: 9999}})
	require.Len(t, diags, 1)
	assert.Equal(t, "assertion does not hold", diags[0].CompilerError.Message)
}

func TestBackMapFallsBackForUnknownReasonCode(t *testing.T) {
	reg := registry.New()
	pos := reg.ToPosition(&ast.Ident{Value: "x"}, "f")
	diags := BackMap(reg, []Failure{{ReasonCode: "some.future.code", PositionID: pos.ID()}})
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].CompilerError.Message, "some.future.code")
}

func TestBackMapAppliesModelTransform(t *testing.T) {
	reg := registry.New()
	pos := reg.ToPosition(&ast.Ident{Value: "x"}, "f",
		registry.WithModelTransform(&registry.ModelTransformation{
			Apply: func(m map[string]string) map[string]string {
				out := make(map[string]string, len(m))
				for k, v := range m {
					out["src$"+k] = v
				}
				return out
			},
		}))

	diags := BackMap(reg, []Failure{{
		ReasonCode:     "assertion.false",
		PositionID:     pos.ID(),
		Counterexample: map[string]string{"balance": "5"},
	}})
	require.Len(t, diags, 1)
	assert.Equal(t, "5", diags[0].Model["src$balance"])
}

func TestFormatIDE(t *testing.T) {
	reg := registry.New()
	pos := reg.ToPosition(&ast.Ident{Value: "x", Pos: ast.Position{Filename: "t.ka", Line: 4, Column: 2}}, "f")
	diags := BackMap(reg, []Failure{{ReasonCode: "no.offer", PositionID: pos.ID()}})

	lines := FormatIDE(diags)
	require.Len(t, lines, 1)
	assert.Equal(t, "t.ka:4:2: no matching offer for this reallocation", lines[0])
}
