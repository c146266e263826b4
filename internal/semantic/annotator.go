package semantic

import (
	"fmt"

	"civl/internal/ast"
	"civl/internal/errors"
	"civl/internal/stdlib"
	"civl/internal/types"
)

// Annotator implements C3: it walks every function's body and attached
// specification expressions, assigning each a concrete type via the
// TypeOf side table on Context. It mutates nothing on the AST nodes
// themselves (spec.md §9's design note: a side table avoids the
// interior-mutability hazard a field-mutating annotator would have).
type Annotator struct {
	ctx  *Context
	fn   *ast.Function // function currently being annotated, for "result" and error messages
	errs []errors.CompilerError
}

func NewAnnotator(ctx *Context) *Annotator {
	return &Annotator{ctx: ctx}
}

// AnnotateContract runs C3 over every function and returns any
// TypeAnnotationErrors found. An empty return means every reachable
// expression node now has an entry in ctx.TypeOf (the "Typing total"
// property, spec.md §8).
func (a *Annotator) AnnotateContract() []errors.CompilerError {
	for _, expr := range a.ctx.Contract.Invariants {
		scope := a.rootScope()
		a.annotateExpr(scope, expr, nil)
	}
	for _, fn := range a.ctx.Functions {
		a.annotateFunction(fn)
	}
	for _, g := range a.ctx.GhostImpls {
		a.annotateGhostFunction(g)
	}
	for _, l := range a.ctx.Lemmas {
		scope := NewSymbolTable(a.rootScope())
		for _, p := range l.Params {
			t, err := a.ctx.Types.Resolve(p.Type)
			if err != nil {
				a.fail(p.Pos, err.Error())
				continue
			}
			scope.Define(p.Name.Value, SymbolParameter, t, p.Pos)
		}
		a.annotateExpr(scope, l.Body, nil)
	}
	return a.errs
}

// rootScope is the scope visible to invariants and lemmas: state fields
// only, no function parameters or locals.
func (a *Annotator) rootScope() *SymbolTable {
	scope := NewSymbolTable(nil)
	for name, t := range a.ctx.StateFields {
		scope.Define(name, SymbolLocal, t, ast.Position{})
	}
	return scope
}

func (a *Annotator) annotateFunction(fn *ast.Function) {
	a.fn = fn
	scope := NewSymbolTable(a.rootScope())
	for _, p := range fn.Params {
		t, err := a.ctx.Types.Resolve(p.Type)
		if err != nil {
			a.fail(p.Pos, err.Error())
			continue
		}
		scope.Define(p.Name.Value, SymbolParameter, t, p.Pos)
	}

	for _, e := range fn.Requires {
		a.annotateExpr(scope, e, nil)
	}
	for _, e := range fn.Checks {
		a.annotateExpr(scope, e, nil)
	}
	// Postconditions additionally see "result()" via annotateCall's
	// BuiltinResult case, which resolves a.fn's declared return type, not
	// a bound name.
	for _, e := range fn.Ensures {
		a.annotateExpr(scope, e, nil)
	}

	if fn.Body != nil {
		a.annotateBlock(scope, fn.Body)
	}
	a.fn = nil
}

func (a *Annotator) annotateGhostFunction(g *ast.GhostFunctionDecl) {
	scope := NewSymbolTable(a.rootScope())
	for _, p := range g.Params {
		t, err := a.ctx.Types.Resolve(p.Type)
		if err != nil {
			a.fail(p.Pos, err.Error())
			continue
		}
		scope.Define(p.Name.Value, SymbolParameter, t, p.Pos)
	}
	a.annotateExpr(scope, g.Body, nil)
}

func (a *Annotator) annotateBlock(scope *SymbolTable, block *ast.FunctionBlock) {
	inner := NewSymbolTable(scope)
	for _, item := range block.Items {
		a.annotateStmt(inner, item)
	}
	if block.TailExpr != nil {
		a.annotateExpr(inner, block.TailExpr.Expr, nil)
	}
}

func (a *Annotator) annotateStmt(scope *SymbolTable, item ast.FunctionBlockItem) {
	switch s := item.(type) {
	case *ast.LetStmt:
		var expected *types.Type
		if s.Type != nil {
			t, err := a.ctx.Types.Resolve(s.Type)
			if err != nil {
				a.fail(s.Pos, err.Error())
			} else {
				expected = t
			}
		}
		t := a.annotateExpr(scope, s.Expr, expected)
		if expected == nil {
			expected = t
		}
		scope.Define(s.Name.Value, SymbolLocal, expected, s.Pos)
	case *ast.AssignStmt:
		target := a.annotateExpr(scope, s.Target, nil)
		a.annotateExpr(scope, s.Value, target)
	case *ast.RequireStmt:
		for _, arg := range s.Args {
			a.annotateExpr(scope, arg, nil)
		}
	case *ast.AssertStmt:
		for _, arg := range s.Args {
			a.annotateExpr(scope, arg, nil)
		}
	case *ast.IfStmt:
		a.annotateExpr(scope, s.Cond, types.Bool())
		a.annotateBlock(scope, s.Then)
		if s.Else != nil {
			a.annotateBlock(scope, s.Else)
		}
	case *ast.ForStmt:
		a.annotateExpr(scope, s.IterCount, types.Int(256, false))
		loopScope := NewSymbolTable(scope)
		loopScope.Define(s.Var.Value, SymbolLocal, types.Int(256, false), s.Var.Pos)
		for _, inv := range s.Invariants {
			a.annotateExpr(loopScope, inv, types.Bool())
		}
		a.annotateBlock(loopScope, s.Body)
	case *ast.ReturnStmt:
		if s.Value != nil {
			var expected *types.Type
			if a.fn != nil {
				if t, err := a.ctx.Types.Resolve(a.fn.Return); err == nil {
					expected = t
				}
			}
			a.annotateExpr(scope, s.Value, expected)
		}
	case *ast.ExprStmt:
		a.annotateExpr(scope, s.Expr, nil)
	case *ast.RaiseStmt:
		if !s.IsUnreachable() {
			a.annotateExpr(scope, s.Value, nil)
		}
	case *ast.BreakStmt, *ast.ContinueStmt:
		// no expression to type
	case *ast.TryStmt:
		a.annotateBlock(scope, s.Body)
		for _, h := range s.Handlers {
			handlerScope := NewSymbolTable(scope)
			if h.ErrorType != nil {
				if t, err := a.ctx.Types.Resolve(h.ErrorType); err == nil {
					handlerScope.Define(h.Binding.Value, SymbolLocal, t, h.Binding.Pos)
				}
			}
			a.annotateBlock(handlerScope, h.Body)
		}
		if s.Finally != nil {
			a.annotateBlock(scope, s.Finally)
		}
	default:
		a.fail(item.NodePos(), fmt.Sprintf("unsupported statement kind in type annotator: %T", item))
	}
}

// annotateExpr types expr and records it in ctx.TypeOf, returning the
// resolved type (or nil on a hard type error, which is also recorded in
// a.errs). expected carries context-directed typing for integer literals
// and return/assignment targets, per spec.md §4.3.
func (a *Annotator) annotateExpr(scope *SymbolTable, expr ast.Expr, expected *types.Type) *types.Type {
	var t *types.Type
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		t = a.annotateLiteral(e, expected)
	case *ast.IdentExpr:
		t = a.annotateIdent(scope, e)
	case *ast.CalleePath:
		t = a.annotatePath(e)
	case *ast.BinaryExpr:
		t = a.annotateBinary(scope, e)
	case *ast.UnaryExpr:
		t = a.annotateUnary(scope, e)
	case *ast.CallExpr:
		t = a.annotateCall(scope, e, expected)
	case *ast.FieldAccessExpr:
		t = a.annotateFieldAccess(scope, e)
	case *ast.IndexExpr:
		t = a.annotateIndex(scope, e)
	case *ast.StructLiteralExpr:
		t = a.annotateStructLiteral(scope, e)
	case *ast.ParenExpr:
		t = a.annotateExpr(scope, e.Value, expected)
	case *ast.TupleExpr:
		members := make([]*types.Type, len(e.Elements))
		for i, el := range e.Elements {
			members[i] = a.annotateExpr(scope, el, nil)
		}
		t = &types.Type{Kind: types.KindUnion, Name: "tuple", Members: members}
	case *ast.QuantifierExpr:
		t = a.annotateQuantifier(scope, e)
	case *ast.OldExpr:
		t = a.annotateExpr(scope, e.Value, expected)
	case *ast.BadExpr:
		a.fail(e.Pos, "parse error propagated to type annotator: "+e.Message)
		return nil
	default:
		a.fail(expr.NodePos(), fmt.Sprintf("unsupported expression kind in type annotator: %T", expr))
		return nil
	}
	if t != nil {
		a.ctx.TypeOf[expr] = t
	}
	return t
}

func (a *Annotator) annotateLiteral(e *ast.LiteralExpr, expected *types.Type) *types.Type {
	switch e.Kind {
	case ast.IntLiteral:
		if expected != nil && expected.IsNumeric() {
			return expected
		}
		return types.Int(256, false)
	case ast.BoolLiteral:
		return types.Bool()
	case ast.AddressLiteral:
		return types.Address()
	case ast.StringLiteral:
		return types.Array(types.Int(8, false), len(e.Value))
	default:
		a.fail(e.Pos, "literal of unknown kind")
		return nil
	}
}

func (a *Annotator) annotateIdent(scope *SymbolTable, e *ast.IdentExpr) *types.Type {
	if sym := scope.Lookup(e.Name); sym != nil {
		return sym.Type
	}
	a.fail(e.Pos, fmt.Sprintf("undefined name %q", e.Name))
	return nil
}

// annotatePath types a "::"-qualified reference. The only paths C3
// encounters outside a call position are stdlib constant-like accessors;
// calls are handled by annotateCall via CalleeName/Generic dispatch.
func (a *Annotator) annotatePath(e *ast.CalleePath) *types.Type {
	if len(e.Parts) == 0 {
		return nil
	}
	a.fail(e.Pos, fmt.Sprintf("qualified name %q used outside of call position", e.String()))
	return nil
}

var arithOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}
var compareOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true}
var eqOps = map[string]bool{"==": true, "!=": true}
var logicOps = map[string]bool{"&&": true, "||": true, "==>": true, "<==>": true}

func (a *Annotator) annotateBinary(scope *SymbolTable, e *ast.BinaryExpr) *types.Type {
	switch {
	case arithOps[e.Op]:
		left := a.annotateExpr(scope, e.Left, nil)
		right := a.annotateExpr(scope, e.Right, left)
		if left == nil {
			return right
		}
		// Wider operand wins per spec.md §4.3; a literal already adopted
		// the other side's type via the expected-type hint above.
		if right != nil && right.Width > left.Width {
			return right
		}
		return left
	case compareOps[e.Op], eqOps[e.Op]:
		left := a.annotateExpr(scope, e.Left, nil)
		a.annotateExpr(scope, e.Right, left)
		return types.Bool()
	case logicOps[e.Op]:
		a.annotateExpr(scope, e.Left, types.Bool())
		a.annotateExpr(scope, e.Right, types.Bool())
		return types.Bool()
	default:
		a.fail(e.Pos, fmt.Sprintf("unknown binary operator %q", e.Op))
		return nil
	}
}

func (a *Annotator) annotateUnary(scope *SymbolTable, e *ast.UnaryExpr) *types.Type {
	switch e.Op {
	case "-":
		return a.annotateExpr(scope, e.Value, nil)
	case "!":
		a.annotateExpr(scope, e.Value, types.Bool())
		return types.Bool()
	case "&", "*":
		return a.annotateExpr(scope, e.Value, nil)
	default:
		a.fail(e.Pos, fmt.Sprintf("unknown unary operator %q", e.Op))
		return nil
	}
}

func (a *Annotator) annotateFieldAccess(scope *SymbolTable, e *ast.FieldAccessExpr) *types.Type {
	if ident, ok := e.Target.(*ast.IdentExpr); ok {
		switch {
		case ident.Name == "msg" && e.Field == "sender":
			return types.Address()
		case ident.Name == "msg" && e.Field == "value":
			return types.Int(256, false)
		case ident.Name == "block" && e.Field == "timestamp":
			return types.Int(256, false)
		}
		if ident.Name == "self" {
			if t, ok := a.ctx.StateFields[e.Field]; ok {
				return t
			}
			a.fail(e.Pos, fmt.Sprintf("unknown state field %q", e.Field))
			return nil
		}
	}

	receiver := a.annotateExpr(scope, e.Target, nil)
	if receiver == nil {
		return nil
	}
	t, ok := receiver.FieldType(e.Field)
	if !ok {
		a.fail(e.Pos, fmt.Sprintf("type %s has no field %q", receiver.String(), e.Field))
		return nil
	}
	return t
}

func (a *Annotator) annotateIndex(scope *SymbolTable, e *ast.IndexExpr) *types.Type {
	target := a.annotateExpr(scope, e.Target, nil)
	a.annotateExpr(scope, e.Index, nil)
	if target == nil {
		return nil
	}
	switch target.Kind {
	case types.KindMap:
		return target.Elem
	case types.KindArray:
		return target.Elem
	default:
		a.fail(e.Pos, fmt.Sprintf("cannot index into type %s", target.String()))
		return nil
	}
}

func (a *Annotator) annotateStructLiteral(scope *SymbolTable, e *ast.StructLiteralExpr) *types.Type {
	t, ok := a.ctx.Types.Lookup(e.Name)
	if !ok {
		a.fail(e.Pos, fmt.Sprintf("unknown struct type %q", e.Name))
		return nil
	}
	for _, f := range e.Fields {
		fieldType, ok := t.FieldType(f.Name.Value)
		if !ok {
			a.fail(f.Pos, fmt.Sprintf("%s has no field %q", e.Name, f.Name.Value))
			continue
		}
		a.annotateExpr(scope, f.Value, fieldType)
	}
	return t
}

func (a *Annotator) annotateQuantifier(scope *SymbolTable, e *ast.QuantifierExpr) *types.Type {
	inner := NewSymbolTable(scope)
	for _, binder := range e.Binders {
		t, err := a.ctx.Types.Resolve(binder.Type)
		if err != nil {
			a.fail(binder.Pos, err.Error())
			continue
		}
		inner.Define(binder.Name.Value, SymbolQuantifierBinder, t, binder.Pos)
	}
	for _, trigger := range e.Triggers {
		for _, te := range trigger {
			a.annotateExpr(inner, te, nil)
		}
	}
	a.annotateExpr(inner, e.Body, types.Bool())
	return types.Bool()
}

// annotateCall types a call by built-in contract first (spec.md §4.3),
// falling back to a user-declared function's signature.
func (a *Annotator) annotateCall(scope *SymbolTable, e *ast.CallExpr, expected *types.Type) *types.Type {
	name, isSimple := e.CalleeName()
	if !isSimple {
		a.fail(e.Pos, "unsupported call target")
		return nil
	}

	switch stdlib.LookupBuiltin(name) {
	case stdlib.BuiltinMin, stdlib.BuiltinMax:
		var t *types.Type
		for _, arg := range e.Args {
			at := a.annotateExpr(scope, arg, expected)
			if t == nil {
				t = at
			}
		}
		return t
	case stdlib.BuiltinImplies, stdlib.BuiltinSuccess:
		for _, arg := range e.Args {
			a.annotateExpr(scope, arg, types.Bool())
		}
		return types.Bool()
	case stdlib.BuiltinSum:
		if len(e.Args) != 1 {
			a.fail(e.Pos, "sum takes exactly one argument")
			return nil
		}
		arg := a.annotateExpr(scope, e.Args[0], nil)
		if arg == nil {
			return nil
		}
		return arg.Elem
	case stdlib.BuiltinResult:
		if a.fn == nil || a.fn.Return == nil {
			a.fail(e.Pos, "result() used outside of a function with a return type")
			return nil
		}
		t, err := a.ctx.Types.Resolve(a.fn.Return)
		if err != nil {
			a.fail(e.Pos, err.Error())
			return nil
		}
		return t
	case stdlib.BuiltinClear:
		for _, arg := range e.Args {
			a.annotateExpr(scope, arg, nil)
		}
		return types.Bool()
	case stdlib.BuiltinAllocated, stdlib.BuiltinOffered, stdlib.BuiltinTrusted, stdlib.BuiltinAccessible:
		for _, arg := range e.Args {
			a.annotateExpr(scope, arg, nil)
		}
		return types.Bool()
	case stdlib.BuiltinRange:
		if len(e.Args) == 1 {
			a.annotateExpr(scope, e.Args[0], types.Int(256, false))
		}
		return types.Int(256, false)
	}

	if path, ok := e.Callee.(*ast.CalleePath); ok && len(path.Parts) >= 2 {
		modPath := ""
		for i := 0; i < len(path.Parts)-1; i++ {
			if i > 0 {
				modPath += "::"
			}
			modPath += path.Parts[i].Value
		}
		fnDef, ok := stdlib.Lookup(modPath, name)
		if !ok {
			a.fail(e.Pos, fmt.Sprintf("unknown stdlib function %q in %q", name, modPath))
			return nil
		}
		for _, arg := range e.Args {
			a.annotateExpr(scope, arg, nil)
		}
		return a.resolveStdlibType(fnDef.ReturnType, e.Pos)
	}

	fn, ok := a.ctx.Functions[name]
	if !ok {
		if g, ok := a.ctx.GhostImpls[name]; ok {
			for i, arg := range e.Args {
				var pt *types.Type
				if i < len(g.Params) {
					pt, _ = a.ctx.Types.Resolve(g.Params[i].Type)
				}
				a.annotateExpr(scope, arg, pt)
			}
			t, err := a.ctx.Types.Resolve(g.Return)
			if err != nil {
				a.fail(e.Pos, err.Error())
				return nil
			}
			return t
		}
		a.fail(e.Pos, fmt.Sprintf("call to undefined function %q", name))
		return nil
	}

	for i, arg := range e.Args {
		var pt *types.Type
		if i < len(fn.Params) {
			pt, _ = a.ctx.Types.Resolve(fn.Params[i].Type)
		}
		a.annotateExpr(scope, arg, pt)
	}
	if fn.Return == nil {
		return nil
	}
	t, err := a.ctx.Types.Resolve(fn.Return)
	if err != nil {
		a.fail(e.Pos, err.Error())
		return nil
	}
	return t
}

func (a *Annotator) resolveStdlibType(ref *stdlib.TypeRef, pos ast.Position) *types.Type {
	if ref == nil {
		return nil
	}
	switch ref.Name {
	case "bool":
		return types.Bool()
	case "address":
		return types.Address()
	default:
		return types.Int(256, false)
	}
}

func (a *Annotator) fail(pos ast.Position, message string) {
	a.errs = append(a.errs, errors.CompilerError{
		Level:    errors.Error,
		Code:     errors.ErrorUnresolvedType,
		Message:  "type annotation failed: " + message,
		Position: pos,
	})
}
