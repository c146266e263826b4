package translate

import (
	"civl/internal/ast"
	"civl/internal/ivl"
	"civl/internal/registry"
	"civl/internal/stdlib"
	"civl/internal/types"
)

// TranslateExpr is C6: it lowers a pure-or-impure source expression to a
// (stmts, expr) pair, where stmts must execute, in order, before expr is
// evaluated. Non-empty stmts come from arithmetic overflow/underflow and
// division-by-zero checks, array bounds checks, calls that lower to
// statements (impure function calls, emit(), lemma calls), and the
// branch a short-circuit "&&"/"||" builds around such a right operand;
// every other node lowers to a pure IVL expression with no statements.
// Field access emits no receiver-not-null check.
func (c *Context) TranslateExpr(e ast.Expr) ([]ivl.Stmt, ivl.Expr) {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		return nil, c.translateLiteral(n)
	case *ast.IdentExpr:
		return nil, c.translateIdent(n)
	case *ast.ParenExpr:
		return c.TranslateExpr(n.Value)
	case *ast.UnaryExpr:
		return c.translateUnary(n)
	case *ast.BinaryExpr:
		return c.translateBinary(n)
	case *ast.FieldAccessExpr:
		return c.translateFieldAccess(n)
	case *ast.IndexExpr:
		return c.translateIndex(n)
	case *ast.StructLiteralExpr:
		return c.translateStructLiteral(n)
	case *ast.TupleExpr:
		return c.translateTuple(n)
	case *ast.CallExpr:
		return c.translateCall(n)
	case *ast.OldExpr, *ast.QuantifierExpr:
		// Assertion-only constructs: no impure sub-expression is ever
		// legal inside them, so defer entirely to C7.
		return nil, c.TranslateSpec(e)
	default:
		c.Fail(e.NodePos(), "unsupported expression kind in expression translator: %T", e)
		return nil, &ivl.BoolLit{Value: false, Pos: c.Pos(e)}
	}
}

// TranslatePure lowers e and raises a PurityViolation-class error if any
// statements were produced: the contract of every call site inside a
// specification-only context (spec.md §4.6).
func (c *Context) TranslatePure(e ast.Expr) ivl.Expr {
	stmts, expr := c.TranslateExpr(e)
	if len(stmts) != 0 {
		c.Fail(e.NodePos(), "purity violation: %T requires side-effecting statements in a specification context", e)
	}
	return expr
}

func (c *Context) translateLiteral(e *ast.LiteralExpr) ivl.Expr {
	pos := c.Pos(e)
	switch e.Kind {
	case ast.IntLiteral:
		return &ivl.IntLit{Value: e.Value, Pos: pos}
	case ast.BoolLiteral:
		return &ivl.BoolLit{Value: e.Value == "true", Pos: pos}
	case ast.AddressLiteral:
		return &ivl.IntLit{Value: e.Value, Pos: pos}
	case ast.StringLiteral:
		return &ivl.FuncApp{Name: "string_const", Args: []ivl.Expr{&ivl.IntLit{Value: itoa(uint64(len(e.Value))), Pos: pos}}, Type: ivl.SeqSort{Elem: ivl.IntSort{}}, Pos: pos}
	default:
		c.Fail(e.Pos, "literal of unknown kind")
		return &ivl.IntLit{Value: "0", Pos: pos}
	}
}

func (c *Context) translateIdent(e *ast.IdentExpr) ivl.Expr {
	pos := c.Pos(e)
	t := c.TypeOf(e)
	return &ivl.LocalVar{Name: e.Name, Type: t.Sort(), Pos: pos}
}

func (c *Context) translateUnary(e *ast.UnaryExpr) ([]ivl.Stmt, ivl.Expr) {
	stmts, v := c.TranslateExpr(e.Value)
	pos := c.Pos(e)
	switch e.Op {
	case "&", "*":
		return stmts, v
	default:
		out, err := c.Builder.UnOp(e.Op, v, pos)
		if err != nil {
			c.Fail(e.Pos, "%s", err)
			return stmts, v
		}
		return stmts, out
	}
}

var arithOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}
var compareOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true}
var eqOps = map[string]bool{"==": true, "!=": true}

// translateBinary lowers a binary operator. Arithmetic and division carry
// runtime checks (spec.md §4.6); "&&"/"||" short-circuit whenever the
// right operand is itself impure.
func (c *Context) translateBinary(e *ast.BinaryExpr) ([]ivl.Stmt, ivl.Expr) {
	switch {
	case arithOps[e.Op]:
		return c.translateArith(e)
	case compareOps[e.Op] || eqOps[e.Op]:
		lstmts, l := c.TranslateExpr(e.Left)
		rstmts, r := c.TranslateExpr(e.Right)
		pos := c.Pos(e)
		out, err := c.Builder.BinOp(e.Op, l, r, pos)
		if err != nil {
			c.Fail(e.Pos, "%s", err)
		}
		return append(lstmts, rstmts...), out
	case e.Op == "&&":
		return c.translateShortCircuit(e, false)
	case e.Op == "||":
		return c.translateShortCircuit(e, true)
	default:
		c.Fail(e.Pos, "unsupported binary operator %q", e.Op)
		return nil, &ivl.BoolLit{Value: false, Pos: c.Pos(e)}
	}
}

// translateShortCircuit lowers "a && b" / "a || b". When b's translation
// needs statements, the statements only run on the branch where they are
// observable, matching source short-circuit semantics exactly (spec.md
// §4.6); a side-effect-free b collapses to a plain conjunction/disjunction.
func (c *Context) translateShortCircuit(e *ast.BinaryExpr, isOr bool) ([]ivl.Stmt, ivl.Expr) {
	lstmts, l := c.TranslateExpr(e.Left)
	pos := c.Pos(e)
	rstmts, r := c.TranslateExpr(e.Right)
	if len(rstmts) == 0 {
		op := "&&"
		if isOr {
			op = "||"
		}
		out := mustBinOp(c.Builder, op, l, r, pos)
		return lstmts, out
	}

	// "a && b": b only runs when a holds. "a || b": b only runs when a
	// does not, and the short-circuited value is true rather than false.
	result := c.FreshLocal("shortcircuit", ivl.BoolSort{}, pos)
	evalRHS := rstmtsAssign(rstmts, result, r, pos)
	shortCircuitTo := append([]ivl.Stmt{}, &ivl.AssignLocal{Var: result.Name, Value: &ivl.BoolLit{Value: isOr, Pos: pos}, Pos: pos})
	cond := l
	then, els := evalRHS, shortCircuitTo
	if isOr {
		then, els = shortCircuitTo, evalRHS
	}
	ifStmt := &ivl.If{Cond: cond, Then: then, Else: els, Pos: pos}
	return append(lstmts, ifStmt), result
}

func rstmtsAssign(rstmts []ivl.Stmt, result *ivl.LocalVar, r ivl.Expr, pos registry.Position) []ivl.Stmt {
	out := make([]ivl.Stmt, 0, len(rstmts)+1)
	out = append(out, rstmts...)
	out = append(out, &ivl.AssignLocal{Var: result.Name, Value: r, Pos: pos})
	return out
}

// translateArith lowers +, -, *, /, % with the checks of spec.md §4.6:
// a bounds assertion on the result for +/-/*, a divisor-nonzero check for
// /and %. Every check branches to the revert label on failure rather than
// asserting, since an arithmetic fault in contract code is a revert, not
// an internal inconsistency.
func (c *Context) translateArith(e *ast.BinaryExpr) ([]ivl.Stmt, ivl.Expr) {
	lstmts, l := c.TranslateExpr(e.Left)
	rstmts, r := c.TranslateExpr(e.Right)
	stmts := append(lstmts, rstmts...)
	pos := c.Pos(e)
	resultType := c.TypeOf(e)

	if e.Op == "/" || e.Op == "%" {
		nonzero, err := c.Builder.BinOp("!=", r, &ivl.IntLit{Value: "0", Pos: pos}, pos)
		if err != nil {
			c.Fail(e.Pos, "%s", err)
		}
		stmts = append(stmts, c.revertUnless(nonzero, pos))
	}

	out, err := c.Builder.BinOp(e.Op, l, r, pos)
	if err != nil {
		c.Fail(e.Pos, "%s", err)
		return stmts, l
	}

	if bound := types.RangeBounds(resultType, out, c.Builder, pos); bound != nil {
		stmts = append(stmts, c.revertUnless(bound, pos))
	}
	return stmts, out
}

// revertUnless returns "if (!cond) goto revert", the uniform lowering
// every runtime check in C6/C8 uses (spec.md §4.8's raise/assert
// lowering reuses the same revert label).
func (c *Context) revertUnless(cond ivl.Expr, pos registry.Position) ivl.Stmt {
	neg, err := c.Builder.UnOp("!", cond, pos)
	if err != nil {
		c.Fail(ast.Position{}, "%s", err)
	}
	return &ivl.If{Cond: neg, Then: []ivl.Stmt{&ivl.Goto{Label: "revert", Pos: pos}}, Pos: pos}
}

// translateFieldAccess lowers attribute access: "self.<field>" reads the
// record field of the current state bundle; "msg.sender"/"msg.value"/
// "block.timestamp" read the corresponding state-bundle scalar; any other
// receiver desugars to an ordinary FieldAccess on its translated value.
func (c *Context) translateFieldAccess(e *ast.FieldAccessExpr) ([]ivl.Stmt, ivl.Expr) {
	pos := c.Pos(e)
	if ident, ok := e.Target.(*ast.IdentExpr); ok {
		switch {
		case ident.Name == "self":
			return nil, c.field(c.cur.This, e.Field, c.TypeOf(e).Sort(), pos)
		case ident.Name == "msg" && e.Field == "sender":
			return nil, c.cur.Sender
		case ident.Name == "msg" && e.Field == "value":
			return nil, c.cur.Value
		case ident.Name == "block" && e.Field == "timestamp":
			return nil, c.cur.Timestamp
		}
	}
	stmts, receiver := c.TranslateExpr(e.Target)
	fa, err := c.Builder.Field(receiver, e.Field, c.TypeOf(e).Sort(), pos)
	if err != nil {
		c.Fail(e.Pos, "%s", err)
		return stmts, receiver
	}
	return stmts, fa
}

// translateIndex lowers map/array indexing. Maps are total functions so a
// read never fails; fixed-capacity arrays need a bounds check emitted
// ahead of the read (spec.md §4.6).
func (c *Context) translateIndex(e *ast.IndexExpr) ([]ivl.Stmt, ivl.Expr) {
	stmts, target := c.TranslateExpr(e.Target)
	istmts, index := c.TranslateExpr(e.Index)
	stmts = append(stmts, istmts...)
	pos := c.Pos(e)

	targetType := c.TypeOf(e.Target)
	if targetType != nil && targetType.Kind == types.KindArray {
		inBounds, err := c.Builder.BinOp("&&",
			mustBinOp(c.Builder, "<=", &ivl.IntLit{Value: "0", Pos: pos}, index, pos),
			mustBinOp(c.Builder, "<", index, &ivl.IntLit{Value: itoa(uint64(targetType.ArrayLen)), Pos: pos}, pos),
			pos)
		if err != nil {
			c.Fail(e.Pos, "%s", err)
		}
		stmts = append(stmts, c.revertUnless(inBounds, pos))
		return stmts, &ivl.ArrayIndex{Array: target, Index: index, Pos: pos}
	}
	return stmts, &ivl.MapGet{Map: target, Key: index, Pos: pos}
}

func mustBinOp(b *ivl.Builder, op string, l, r ivl.Expr, pos registry.Position) ivl.Expr {
	out, err := b.BinOp(op, l, r, pos)
	if err != nil {
		panic(err)
	}
	return out
}

func (c *Context) translateStructLiteral(e *ast.StructLiteralExpr) ([]ivl.Stmt, ivl.Expr) {
	pos := c.Pos(e)
	t := c.TypeOf(e)
	c.Builder.DeclareRecord(t.Name, fieldNames(t))
	var stmts []ivl.Stmt
	fields := make(map[string]ivl.Expr, len(e.Fields))
	for _, f := range e.Fields {
		fstmts, fv := c.TranslateExpr(f.Value)
		stmts = append(stmts, fstmts...)
		fields[f.Name.Value] = fv
	}
	out, err := c.Builder.Struct(ivl.RefSort{Name: t.Name}, fields, pos)
	if err != nil {
		c.Fail(e.Pos, "%s", err)
		return stmts, &ivl.BoolLit{Value: false, Pos: pos}
	}
	return stmts, out
}

func fieldNames(t *types.Type) []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

func (c *Context) translateTuple(e *ast.TupleExpr) ([]ivl.Stmt, ivl.Expr) {
	var stmts []ivl.Stmt
	args := make([]ivl.Expr, len(e.Elements))
	for i, el := range e.Elements {
		s, v := c.TranslateExpr(el)
		stmts = append(stmts, s...)
		args[i] = v
	}
	pos := c.Pos(e)
	return stmts, &ivl.FuncApp{Name: "tuple", Args: args, Type: c.TypeOf(e).Sort(), Pos: pos}
}

// translateCall dispatches min/max (usable in ordinary expression
// position per spec.md §4.3) to C6, and everything else (user function
// calls, stdlib accessors) to the Function Encoder's call-lowering path.
func (c *Context) translateCall(e *ast.CallExpr) ([]ivl.Stmt, ivl.Expr) {
	name, ok := e.CalleeName()
	if !ok {
		c.Fail(e.Pos, "unsupported call target")
		return nil, &ivl.BoolLit{Value: false, Pos: c.Pos(e)}
	}
	pos := c.Pos(e)
	switch stdlib.LookupBuiltin(name) {
	case stdlib.BuiltinMin, stdlib.BuiltinMax:
		var stmts []ivl.Stmt
		args := make([]ivl.Expr, len(e.Args))
		for i, arg := range e.Args {
			s, v := c.TranslateExpr(arg)
			stmts = append(stmts, s...)
			args[i] = v
		}
		if len(args) != 2 {
			c.Fail(e.Pos, "%s takes exactly two arguments", name)
			return stmts, args[0]
		}
		op := "<"
		if name == "max" {
			op = ">"
		}
		cond := mustBinOp(c.Builder, op, args[0], args[1], pos)
		cnd, err := c.Builder.Cond(cond, args[0], args[1], pos)
		if err != nil {
			c.Fail(e.Pos, "%s", err)
		}
		return stmts, cnd
	default:
		return c.TranslateCallExpr(e)
	}
}
