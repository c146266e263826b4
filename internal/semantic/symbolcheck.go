package semantic

import (
	"civl/internal/ast"
	"civl/internal/errors"
)

// SymbolChecker implements C4: it validates the declarations a Context
// has already resolved against each other, independent of any function
// body's expression types. Grounded on kanso's internal/semantic
// declaration-conflict checks (duplicate struct/function names), extended
// per spec.md §4.4 to resources and ghost functions borrowed across
// implemented interfaces.
type SymbolChecker struct {
	ctx  *Context
	errs []errors.CompilerError
}

func NewSymbolChecker(ctx *Context) *SymbolChecker {
	return &SymbolChecker{ctx: ctx}
}

// CheckContract runs every C4 rule and returns the accumulated
// diagnostics. An empty return means the contract's declaration surface
// is internally consistent: every implemented interface is fully
// realized, and no resource or ghost function identity collides.
func (c *SymbolChecker) CheckContract() []errors.CompilerError {
	c.checkDuplicateResources()
	c.checkDuplicateGhostFunctions()
	c.checkImplementsClauses()
	return c.errs
}

// checkDuplicateResources flags two ResourceDecl values with the same
// name but different declaring identities reaching the same contract
// (spec.md §4.4's "duplicate.resource").
func (c *SymbolChecker) checkDuplicateResources() {
	seenByName := make(map[string]ast.ResourceIdentity)
	for identity, decl := range c.ctx.Resources {
		prior, ok := seenByName[identity.Name]
		if !ok {
			seenByName[identity.Name] = identity
			continue
		}
		if prior != identity {
			c.errs = append(c.errs, errors.DuplicateResource(decl.Name.Value, decl.Pos))
		}
	}
}

// checkDuplicateGhostFunctions flags two ghost function implementations
// with the same name whose interfaces disagree on signature (spec.md
// §4.4's "duplicate.ghost").
func (c *SymbolChecker) checkDuplicateGhostFunctions() {
	// GhostImpls keeps only the last declaration per name, so walk the
	// contract's own items to see every declaration.
	seen := make(map[string]*ast.GhostFunctionDecl)
	for _, item := range c.ctx.Contract.Items {
		g, ok := item.(*ast.GhostFunctionDecl)
		if !ok {
			continue
		}
		name := g.Name.Value
		if prior, ok := seen[name]; ok && !ghostSignaturesMatch(prior, g) {
			c.errs = append(c.errs, errors.DuplicateDeclaration(name, g.Pos))
		}
		seen[name] = g
	}
}

func ghostSignaturesMatch(a, b *ast.GhostFunctionDecl) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i].Type.String() != b.Params[i].Type.String() {
			return false
		}
	}
	if (a.Return == nil) != (b.Return == nil) {
		return false
	}
	if a.Return != nil && a.Return.String() != b.Return.String() {
		return false
	}
	return true
}

// checkImplementsClauses enforces that every interface a contract claims
// to implement has all of its ghost functions and resources satisfied:
// a matching GhostFunctionDecl for each GhostFunctionSignature, and a
// ResourceDecl registered under each declared resource's own (file,
// interface, name) identity. A contract-local resource of the same name
// has a different identity and does not count; NewContext registers every
// interface's own resources, so an interface declared in this contract
// always passes the resource part (spec.md §4.4's "missing.ghost",
// "missing.resource", "ghost.not.implemented").
func (c *SymbolChecker) checkImplementsClauses() {
	for _, clause := range c.ctx.Contract.Implements {
		iface, ok := c.ctx.Interfaces[clause.InterfaceName.Value]
		if !ok {
			c.errs = append(c.errs, errors.UnknownInterface(clause.InterfaceName.Value, clause.Pos, c.interfaceNames()))
			continue
		}

		for _, sig := range iface.GhostFunctions {
			impl, ok := c.ctx.GhostImpls[sig.Name.Value]
			if !ok {
				c.errs = append(c.errs, errors.MissingImplementation(sig.Name.Value, iface.Name.Value, clause.Pos))
				continue
			}
			if !ghostSignatureSatisfies(sig, impl) {
				c.errs = append(c.errs, errors.GhostFunctionMismatch(sig.Name.Value, iface.Name.Value, impl.Pos))
			}
		}

		for _, resource := range iface.Resources {
			identity := resource.Identity()
			if _, ok := c.ctx.Resources[identity]; !ok {
				c.errs = append(c.errs, errors.UnknownResource(resource.Name.Value, clause.Pos, c.resourceNames()))
			}
		}
	}
}

func ghostSignatureSatisfies(sig *ast.GhostFunctionSignature, impl *ast.GhostFunctionDecl) bool {
	if len(sig.Params) != len(impl.Params) {
		return false
	}
	for i := range sig.Params {
		if sig.Params[i].Type.String() != impl.Params[i].Type.String() {
			return false
		}
	}
	if (sig.Return == nil) != (impl.Return == nil) {
		return false
	}
	if sig.Return != nil && sig.Return.String() != impl.Return.String() {
		return false
	}
	return true
}

func (c *SymbolChecker) interfaceNames() []string {
	names := make([]string, 0, len(c.ctx.Interfaces))
	for name := range c.ctx.Interfaces {
		names = append(names, name)
	}
	return names
}

func (c *SymbolChecker) resourceNames() []string {
	names := make([]string, 0, len(c.ctx.Resources))
	for identity := range c.ctx.Resources {
		names = append(names, identity.Name)
	}
	return names
}

// CheckFunctionBody enforces the per-function structural rules that do
// not depend on expression types: break/continue only inside a loop, and
// every call reached from a requires/ensures/check expression resolving
// to something C7 can treat as pure (spec.md §4.7's purity rule for
// specification expressions). Loop invariants and contract invariants
// are not walked here.
func (c *SymbolChecker) CheckFunctionBody(fn *ast.Function) []errors.CompilerError {
	var errs []errors.CompilerError
	if fn.Body != nil {
		errs = append(errs, checkLoopControlFlow(fn.Body, false)...)
	}
	for _, e := range fn.Requires {
		errs = append(errs, c.checkPureExpr(fn.Name.Value, e)...)
	}
	for _, e := range fn.Ensures {
		errs = append(errs, c.checkPureExpr(fn.Name.Value, e)...)
	}
	for _, e := range fn.Checks {
		errs = append(errs, c.checkPureExpr(fn.Name.Value, e)...)
	}
	return errs
}

func checkLoopControlFlow(block *ast.FunctionBlock, inLoop bool) []errors.CompilerError {
	var errs []errors.CompilerError
	for _, item := range block.Items {
		switch s := item.(type) {
		case *ast.BreakStmt:
			if !inLoop {
				errs = append(errs, errors.BreakOutsideLoop(s.Pos))
			}
		case *ast.ContinueStmt:
			if !inLoop {
				errs = append(errs, errors.ContinueOutsideLoop(s.Pos))
			}
		case *ast.ForStmt:
			errs = append(errs, checkLoopControlFlow(s.Body, true)...)
		case *ast.IfStmt:
			errs = append(errs, checkLoopControlFlow(s.Then, inLoop)...)
			if s.Else != nil {
				errs = append(errs, checkLoopControlFlow(s.Else, inLoop)...)
			}
		case *ast.TryStmt:
			errs = append(errs, checkLoopControlFlow(s.Body, inLoop)...)
			for _, h := range s.Handlers {
				errs = append(errs, checkLoopControlFlow(h.Body, inLoop)...)
			}
			if s.Finally != nil {
				errs = append(errs, checkLoopControlFlow(s.Finally, inLoop)...)
			}
		}
	}
	return errs
}

// checkPureExpr walks a specification expression looking for calls to
// functions that are neither builtins, ghost functions, lemmas, nor
// decorated #[pure] (spec.md §4.7).
func (c *SymbolChecker) checkPureExpr(functionName string, expr ast.Expr) []errors.CompilerError {
	var errs []errors.CompilerError
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.CallExpr:
			if name, ok := n.CalleeName(); ok {
				if _, isGhost := c.ctx.GhostImpls[name]; !isGhost {
					if _, isLemma := c.ctx.Lemmas[name]; !isLemma {
						if fn, isFn := c.ctx.Functions[name]; isFn && !fn.IsPure() {
							errs = append(errs, errors.ImpureSpecification(name, n.Pos))
						}
					}
				}
			}
			for _, arg := range n.Args {
				walk(arg)
			}
		case *ast.BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		case *ast.UnaryExpr:
			walk(n.Value)
		case *ast.FieldAccessExpr:
			walk(n.Target)
		case *ast.IndexExpr:
			walk(n.Target)
			walk(n.Index)
		case *ast.ParenExpr:
			walk(n.Value)
		case *ast.TupleExpr:
			for _, el := range n.Elements {
				walk(el)
			}
		case *ast.OldExpr:
			walk(n.Value)
		case *ast.QuantifierExpr:
			walk(n.Body)
		case *ast.StructLiteralExpr:
			for _, f := range n.Fields {
				walk(f.Value)
			}
		}
	}
	walk(expr)
	_ = functionName
	return errs
}
