package semantic

import (
	"civl/internal/ast"
	"civl/internal/errors"
)

// Analyzer is the single entry point C3 and C4 are driven through: build
// a Context from the parsed contract, run the symbol checks, then run
// the type annotator over every function body and specification
// expression. Grounded on kanso's internal/semantic.Analyzer driver
// shape, re-pointed at this package's Context/SymbolChecker/Annotator
// split instead of kanso's single monolithic pass.
type Analyzer struct {
	Context *Context
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze runs C4 before C3: a contract with an unsatisfied "implements"
// clause or a duplicate resource has no well-defined symbol table for C3
// to type against, so declaration-level problems are reported first.
func (a *Analyzer) Analyze(contract *ast.Contract) []errors.CompilerError {
	ctx, err := NewContext(contract)
	if err != nil {
		return []errors.CompilerError{
			errors.NewSemanticError(errors.ErrorUnresolvedType, err.Error(), contract.Pos).Build(),
		}
	}
	a.Context = ctx

	checker := NewSymbolChecker(ctx)
	diags := checker.CheckContract()
	for _, fn := range ctx.Functions {
		diags = append(diags, checker.CheckFunctionBody(fn)...)
	}
	if len(diags) > 0 {
		return diags
	}

	annotator := NewAnnotator(ctx)
	return annotator.AnnotateContract()
}
