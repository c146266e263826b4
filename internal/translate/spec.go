package translate

import (
	"civl/internal/ast"
	"civl/internal/ivl"
	"civl/internal/stdlib"
	"civl/internal/types"
)

// TranslateSpec is C7: it lowers an assertion-only expression to a pure
// IVL expression. Unlike C6, arithmetic here never emits a runtime check
// (spec.md §4.6's "or is pure (occurs inside a specification context
// where bounds are modeled by invariants)"): a specification's arithmetic
// is trusted to be bounded by the surrounding invariants, not re-proved
// node-by-node.
func (c *Context) TranslateSpec(e ast.Expr) ivl.Expr {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		return c.translateLiteral(n)
	case *ast.IdentExpr:
		return c.translateIdent(n)
	case *ast.ParenExpr:
		return c.TranslateSpec(n.Value)
	case *ast.UnaryExpr:
		return c.translateSpecUnary(n)
	case *ast.BinaryExpr:
		return c.translateSpecBinary(n)
	case *ast.FieldAccessExpr:
		return c.translateSpecFieldAccess(n)
	case *ast.IndexExpr:
		return c.translateSpecIndex(n)
	case *ast.StructLiteralExpr:
		_, v := c.translateStructLiteral(n) // struct literals are always pure
		return v
	case *ast.TupleExpr:
		_, v := c.translateTuple(n)
		return v
	case *ast.OldExpr:
		return c.translateOld(n)
	case *ast.QuantifierExpr:
		return c.translateQuantifier(n)
	case *ast.CallExpr:
		return c.translateSpecCall(n)
	default:
		c.Fail(e.NodePos(), "unsupported expression kind in specification translator: %T", e)
		return &ivl.BoolLit{Value: false, Pos: c.Pos(e)}
	}
}

func (c *Context) translateSpecUnary(e *ast.UnaryExpr) ivl.Expr {
	v := c.TranslateSpec(e.Value)
	pos := c.Pos(e)
	switch e.Op {
	case "&", "*":
		return v
	default:
		out, err := c.Builder.UnOp(e.Op, v, pos)
		if err != nil {
			c.Fail(e.Pos, "%s", err)
			return v
		}
		return out
	}
}

func (c *Context) translateSpecBinary(e *ast.BinaryExpr) ivl.Expr {
	pos := c.Pos(e)
	switch {
	case e.Op == "&&" || e.Op == "||" || e.Op == "==>" || e.Op == "<==>":
		l := c.TranslateSpec(e.Left)
		r := c.TranslateSpec(e.Right)
		out, err := c.Builder.BinOp(e.Op, l, r, pos)
		if err != nil {
			c.Fail(e.Pos, "%s", err)
		}
		return out
	default:
		l := c.TranslateSpec(e.Left)
		r := c.TranslateSpec(e.Right)
		out, err := c.Builder.BinOp(e.Op, l, r, pos)
		if err != nil {
			c.Fail(e.Pos, "%s", err)
		}
		return out
	}
}

func (c *Context) translateSpecFieldAccess(e *ast.FieldAccessExpr) ivl.Expr {
	pos := c.Pos(e)
	if ident, ok := e.Target.(*ast.IdentExpr); ok {
		switch {
		case ident.Name == "self":
			return c.field(c.cur.This, e.Field, c.TypeOf(e).Sort(), pos)
		case ident.Name == "msg" && e.Field == "sender":
			return c.cur.Sender
		case ident.Name == "msg" && e.Field == "value":
			return c.cur.Value
		case ident.Name == "block" && e.Field == "timestamp":
			return c.cur.Timestamp
		}
	}
	receiver := c.TranslateSpec(e.Target)
	fa, err := c.Builder.Field(receiver, e.Field, c.TypeOf(e).Sort(), pos)
	if err != nil {
		c.Fail(e.Pos, "%s", err)
		return receiver
	}
	return fa
}

// translateSpecIndex lowers a map/array read purely: a map read is
// total via its default value, and an array read is emitted with no
// bounds guard in assertion position.
func (c *Context) translateSpecIndex(e *ast.IndexExpr) ivl.Expr {
	target := c.TranslateSpec(e.Target)
	index := c.TranslateSpec(e.Index)
	pos := c.Pos(e)
	targetType := c.TypeOf(e.Target)
	if targetType != nil && targetType.Kind == types.KindArray {
		return &ivl.ArrayIndex{Array: target, Index: index, Pos: pos}
	}
	return &ivl.MapGet{Map: target, Key: index, Pos: pos}
}

// translateOld lowers "old(e)"/"public_old(e)" by eagerly materializing e
// against the relevant snapshot (the function-entry state for a bare
// old(), the designated public-entry snapshot for public_old()), wrapping
// the result in an ivl.Old node purely for provenance. Evaluating now
// rather than deferring a symbolic reference is required because the
// snapshot a lazy reference would depend on may itself be replaced by a
// later havoc (spec.md §9's "materialize eagerly" design note).
func (c *Context) translateOld(e *ast.OldExpr) ivl.Expr {
	snap := c.OldState()
	label := "entry"
	if e.Public {
		snap = c.PublicOldState()
		label = "public"
	}
	saved := c.cur
	c.cur = snap
	value := c.TranslateSpec(e.Value)
	c.cur = saved
	return &ivl.Old{Label: label, Value: value, Pos: c.Pos(e)}
}

func (c *Context) translateQuantifier(e *ast.QuantifierExpr) ivl.Expr {
	vars := make([]ivl.VarDecl, len(e.Binders))
	for i, binder := range e.Binders {
		t, err := c.Sem.Types.Resolve(binder.Type)
		if err != nil {
			c.Fail(binder.Pos, "%s", err)
			continue
		}
		vars[i] = ivl.VarDecl{Name: binder.Name.Value, Type: t.Sort()}
	}
	var triggers [][]ivl.Expr
	for _, trigger := range e.Triggers {
		group := make([]ivl.Expr, len(trigger))
		for i, te := range trigger {
			group[i] = c.TranslateSpec(te)
		}
		triggers = append(triggers, group)
	}
	body := c.TranslateSpec(e.Body)
	return &ivl.Forall{Vars: vars, Triggers: triggers, Body: body, Pos: c.Pos(e)}
}

// translateSpecCall lowers every specification built-in (spec.md §4.7):
// sum, allocated, offered, trusted, accessible, implies, success, result,
// clear, min, max, plus the old()/public_old() built-ins that don't reach
// here as CallExpr because the parser gives them dedicated OldExpr nodes.
func (c *Context) translateSpecCall(e *ast.CallExpr) ivl.Expr {
	name, ok := e.CalleeName()
	if !ok {
		c.Fail(e.Pos, "unsupported call target in specification")
		return &ivl.BoolLit{Value: false, Pos: c.Pos(e)}
	}
	pos := c.Pos(e)

	switch stdlib.LookupBuiltin(name) {
	case stdlib.BuiltinMin, stdlib.BuiltinMax:
		args := make([]ivl.Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = c.TranslateSpec(a)
		}
		op := "<"
		if name == "max" {
			op = ">"
		}
		cond := mustBinOp(c.Builder, op, args[0], args[1], pos)
		out, err := c.Builder.Cond(cond, args[0], args[1], pos)
		if err != nil {
			c.Fail(e.Pos, "%s", err)
		}
		return out
	case stdlib.BuiltinImplies:
		return mustBinOp(c.Builder, "==>", c.TranslateSpec(e.Args[0]), c.TranslateSpec(e.Args[1]), pos)
	case stdlib.BuiltinSuccess:
		// "success()" with no argument asks whether the enclosing
		// function returned normally; lowered to the literal true
		// throughout a postcondition's evaluation context
		// (civl encodes exceptional exits only via explicit raise/revert,
		// so a translated function's postcondition is only ever checked
		// on the success path; success() with an argument narrows to a
		// specific exception type, which civl's source language does not
		// expose, so the zero-arg form is the only one ever parsed here).
		return &ivl.BoolLit{Value: true, Pos: pos}
	case stdlib.BuiltinSum:
		arg := c.TranslateSpec(e.Args[0])
		return &ivl.FuncApp{Name: "sum", Args: []ivl.Expr{arg}, Type: ivl.IntSort{}, Pos: pos}
	case stdlib.BuiltinResult:
		if c.resultVar != nil {
			return c.resultVar
		}
		return &ivl.Result{Type: c.TypeOf(e).Sort(), Pos: pos}
	case stdlib.BuiltinClear:
		args := make([]ivl.Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = c.TranslateSpec(a)
		}
		return &ivl.FuncApp{Name: "clear", Args: args, Type: ivl.BoolSort{}, Pos: pos}
	case stdlib.BuiltinAllocated:
		return c.translateAllocated(e, pos)
	case stdlib.BuiltinOffered:
		return c.translateOffered(e, pos)
	case stdlib.BuiltinTrusted:
		return c.translateTrusted(e, pos)
	case stdlib.BuiltinAccessible:
		return c.translateAccessible(e, pos)
	default:
		// Ghost function / lemma / pure-helper call: reuse C11's call
		// lowering, which is pure for every #[pure] or ghost callee (C4
		// already rejected anything else reaching this position).
		_, v := c.TranslateCallExpr(e)
		return v
	}
}
