package translate

import (
	"civl/internal/ast"
	"civl/internal/ivl"
	"civl/internal/registry"
	"civl/internal/types"
)

// TranslateBlock is C8: it lowers a statement sequence in order, threading
// the accumulated IVL statements through every item. The block's trailing
// tail expression (if any) is evaluated for its side effects only; callers
// that need its value (a function body, an if/let used in expression
// position) should call TranslateBlockValue instead.
func (c *Context) TranslateBlock(block *ast.FunctionBlock) []ivl.Stmt {
	stmts, _ := c.TranslateBlockValue(block)
	return stmts
}

// TranslateBlockValue lowers block and additionally returns the value of
// its tail expression, or nil if the block ends in an ordinary statement.
func (c *Context) TranslateBlockValue(block *ast.FunctionBlock) ([]ivl.Stmt, ivl.Expr) {
	var stmts []ivl.Stmt
	for _, item := range block.Items {
		stmts = append(stmts, c.TranslateStmt(item)...)
	}
	if block.TailExpr != nil {
		vstmts, v := c.TranslateExpr(block.TailExpr.Expr)
		stmts = append(stmts, vstmts...)
		return stmts, v
	}
	return stmts, nil
}

// TranslateStmt dispatches one function-body statement to its lowering.
func (c *Context) TranslateStmt(item ast.FunctionBlockItem) []ivl.Stmt {
	switch s := item.(type) {
	case *ast.LetStmt:
		return c.translateLet(s)
	case *ast.AssignStmt:
		return c.translateAssign(s)
	case *ast.ExprStmt:
		stmts, _ := c.TranslateExpr(s.Expr)
		return stmts
	case *ast.AssertStmt:
		return c.translateAssert(s)
	case *ast.RequireStmt:
		return c.translateRequire(s)
	case *ast.RaiseStmt:
		return c.translateRaise(s)
	case *ast.ReturnStmt:
		return c.translateReturn(s)
	case *ast.IfStmt:
		return c.translateIf(s)
	case *ast.ForStmt:
		return c.translateFor(s)
	case *ast.BreakStmt:
		return c.translateBreak(s)
	case *ast.ContinueStmt:
		return c.translateContinue(s)
	case *ast.TryStmt:
		return c.translateTry(s)
	default:
		c.Fail(item.NodePos(), "unsupported statement kind: %T", item)
		return nil
	}
}

func (c *Context) declareNamedLocal(name string, sort ivl.Sort) {
	if c.seen[name] {
		return
	}
	c.seen[name] = true
	c.locals = append(c.locals, ivl.LocalDecl{Name: name, Type: sort})
}

func (c *Context) translateLet(s *ast.LetStmt) []ivl.Stmt {
	stmts, v := c.TranslateExpr(s.Expr)
	pos := c.Pos(s)
	c.declareNamedLocal(s.Name.Value, v.ExprSort())
	stmts = append(stmts, &ivl.AssignLocal{Var: s.Name.Value, Value: v, Pos: pos})
	return stmts
}

// lvalue is a resolved assignment target: get reads its current value
// (with any statements that read requires, e.g. evaluating an index
// expression), set produces the statements that write a new value back.
// IVL has no in-place mutation node, so every assignment bottoms out in a
// fresh AssignLocal/AssignField whose value is functionally rebuilt
// (spec.md §4.8's "nested l-value assignment: struct/map/array deep
// update").
type lvalue struct {
	get func() ([]ivl.Stmt, ivl.Expr)
	set func(ivl.Expr) []ivl.Stmt
}

func (c *Context) resolveLValue(target ast.Expr, pos registry.Position) lvalue {
	switch t := target.(type) {
	case *ast.IdentExpr:
		name := t.Name
		return lvalue{
			get: func() ([]ivl.Stmt, ivl.Expr) { return nil, c.translateIdent(t) },
			set: func(v ivl.Expr) []ivl.Stmt {
				return []ivl.Stmt{&ivl.AssignLocal{Var: name, Value: v, Pos: pos}}
			},
		}
	case *ast.FieldAccessExpr:
		if ident, ok := t.Target.(*ast.IdentExpr); ok && ident.Name == "self" {
			field := t.Field
			fieldType := c.TypeOf(t).Sort()
			return lvalue{
				get: func() ([]ivl.Stmt, ivl.Expr) { return nil, c.field(c.cur.This, field, fieldType, pos) },
				set: func(v ivl.Expr) []ivl.Stmt {
					return []ivl.Stmt{&ivl.AssignField{Receiver: c.cur.This, Field: field, Value: v, Pos: pos}}
				},
			}
		}
		parent := c.resolveLValue(t.Target, pos)
		field := t.Field
		parentType := c.TypeOf(t.Target)
		return lvalue{
			get: func() ([]ivl.Stmt, ivl.Expr) {
				stmts, recv := parent.get()
				return stmts, c.field(recv, field, c.TypeOf(t).Sort(), pos)
			},
			set: func(v ivl.Expr) []ivl.Stmt {
				stmts, recv := parent.get()
				fields := make(map[string]ivl.Expr, len(parentType.Fields))
				for _, f := range parentType.Fields {
					if f.Name == field {
						fields[f.Name] = v
					} else {
						fields[f.Name] = c.field(recv, f.Name, f.Type.Sort(), pos)
					}
				}
				updated, err := c.Builder.Struct(ivl.RefSort{Name: parentType.Name}, fields, pos)
				if err != nil {
					c.Fail(t.Pos, "%s", err)
					return stmts
				}
				return append(stmts, parent.set(updated)...)
			},
		}
	case *ast.IndexExpr:
		parent := c.resolveLValue(t.Target, pos)
		idxStmts, index := c.TranslateExpr(t.Index)
		targetType := c.TypeOf(t.Target)
		isArray := targetType != nil && targetType.Kind == types.KindArray
		return lvalue{
			get: func() ([]ivl.Stmt, ivl.Expr) {
				stmts, recv := parent.get()
				stmts = append(stmts, idxStmts...)
				if isArray {
					return stmts, &ivl.ArrayIndex{Array: recv, Index: index, Pos: pos}
				}
				return stmts, &ivl.MapGet{Map: recv, Key: index, Pos: pos}
			},
			set: func(v ivl.Expr) []ivl.Stmt {
				pstmts, recv := parent.get()
				var updated ivl.Expr
				if isArray {
					updated = &ivl.ArrayUpdate{Array: recv, Index: index, Value: v, Pos: pos}
				} else {
					updated = &ivl.MapUpdate{Map: recv, Key: index, Value: v, Pos: pos}
				}
				stmts := append(pstmts, idxStmts...)
				return append(stmts, parent.set(updated)...)
			},
		}
	default:
		c.Fail(target.NodePos(), "unsupported assignment target: %T", target)
		return lvalue{
			get: func() ([]ivl.Stmt, ivl.Expr) { return nil, &ivl.BoolLit{Value: false, Pos: pos} },
			set: func(ivl.Expr) []ivl.Stmt { return nil },
		}
	}
}

var compoundOps = map[ast.AssignType]string{
	ast.PLUS_ASSIGN:    "+",
	ast.MINUS_ASSIGN:   "-",
	ast.STAR_ASSIGN:    "*",
	ast.SLASH_ASSIGN:   "/",
	ast.PERCENT_ASSIGN: "%",
}

// translateAssign lowers "target = value" and "target op= value". A
// compound assignment gets the same overflow/underflow/division bounds
// check as an ordinary binary expression of the same operator (the Open
// Question of whether op= should re-check is resolved in favor of
// checking: skipping it would let "x += y" silently wrap where "x = x + y"
// would not, a surprising asymmetry for a verifier to bake in).
func (c *Context) translateAssign(a *ast.AssignStmt) []ivl.Stmt {
	pos := c.Pos(a)
	lv := c.resolveLValue(a.Target, pos)

	if a.Operator == ast.ASSIGN {
		vstmts, v := c.TranslateExpr(a.Value)
		return append(vstmts, lv.set(v)...)
	}

	op, ok := compoundOps[a.Operator]
	if !ok {
		c.Fail(a.Pos, "unsupported compound assignment operator")
		return nil
	}
	getStmts, cur := lv.get()
	vstmts, v := c.TranslateExpr(a.Value)
	stmts := append(getStmts, vstmts...)

	if op == "/" || op == "%" {
		nonzero, err := c.Builder.BinOp("!=", v, &ivl.IntLit{Value: "0", Pos: pos}, pos)
		if err != nil {
			c.Fail(a.Pos, "%s", err)
		}
		stmts = append(stmts, c.revertUnless(nonzero, pos))
	}

	out, err := c.Builder.BinOp(op, cur, v, pos)
	if err != nil {
		c.Fail(a.Pos, "%s", err)
		return stmts
	}
	if bound := types.RangeBounds(c.TypeOf(a.Target), out, c.Builder, pos); bound != nil {
		stmts = append(stmts, c.revertUnless(bound, pos))
	}
	return append(stmts, lv.set(out)...)
}

// translateAssert lowers "assert(cond)" to a runtime revert check, and
// "assert(cond, UNREACHABLE)" to an unconditional verification obligation
// the prover must discharge directly, with no guarding branch: declaring a
// site UNREACHABLE is a claim that cond is already known true whenever
// control reaches it (spec.md §4.8).
func (c *Context) translateAssert(s *ast.AssertStmt) []ivl.Stmt {
	pos := c.Pos(s)
	if len(s.Args) == 0 {
		c.Fail(s.Pos, "assert() needs a condition")
		return nil
	}
	stmts, cond := c.TranslateExpr(s.Args[0])
	if s.IsUnreachable() {
		return append(stmts, &ivl.Assert{Expr: cond, Pos: pos})
	}
	return append(stmts, c.revertUnless(cond, pos))
}

// translateRequire lowers "require(cond, error)" to the same conditional
// revert as a plain assert; the error argument documents the failure for
// the Error Back-Mapper (C13) but contributes no IVL of its own beyond the
// registered position.
func (c *Context) translateRequire(s *ast.RequireStmt) []ivl.Stmt {
	pos := c.Pos(s)
	if len(s.Args) == 0 {
		c.Fail(s.Pos, "require() needs a condition")
		return nil
	}
	stmts, cond := c.TranslateExpr(s.Args[0])
	return append(stmts, c.revertUnless(cond, pos))
}

// translateRaise lowers "raise UNREACHABLE;" to an unconditional failing
// assertion (the prover must show this statement is never reached at all).
// A plain "raise expr;" outside any enclosing try is an unconditional
// revert, same as before; inside a try it instead tags the enclosing
// scope's error_var with expr's static type and sets finally_mode = 2
// before jumping to the finally label, so the try's handler dispatch (see
// translateTry) gets a chance to catch it (spec.md §4.8).
func (c *Context) translateRaise(s *ast.RaiseStmt) []ivl.Stmt {
	pos := c.Pos(s)
	if s.IsUnreachable() {
		return []ivl.Stmt{&ivl.Assert{Expr: &ivl.BoolLit{Value: false, Pos: pos}, Pos: pos}}
	}
	stmts, _ := c.TranslateExpr(s.Value)

	scope, ok := c.CurrentTry()
	if !ok {
		return append(stmts, &ivl.Goto{Label: "revert", Pos: pos})
	}
	tag := c.ErrorTag(c.TypeOf(s.Value).String())
	stmts = append(stmts,
		&ivl.AssignLocal{Var: scope.errorVar.Name, Value: &ivl.IntLit{Value: itoa(uint64(tag)), Pos: pos}, Pos: pos},
		&ivl.AssignLocal{Var: scope.modeVar.Name, Value: &ivl.IntLit{Value: "2", Pos: pos}, Pos: pos},
	)
	return append(stmts, &ivl.Goto{Label: scope.finallyLabel, Pos: pos})
}

// translateReturn lowers "return expr;" / "return;" by assigning the
// function's result local (if any) and jumping to the shared return label,
// letting a single epilogue (postcondition checks, the leak check) run
// once regardless of how many return sites a function has. A return
// reached from inside a try body cannot jump to the function's return
// label directly: the enclosing finally block still owes a run, so it
// instead sets finally_mode = 1 and routes through the try's finally
// label, which re-issues the jump to "return" once the finally block has
// executed (spec.md §4.8).
func (c *Context) translateReturn(s *ast.ReturnStmt) []ivl.Stmt {
	pos := c.Pos(s)
	var stmts []ivl.Stmt
	if s.Value != nil {
		vstmts, v := c.TranslateExpr(s.Value)
		stmts = append(stmts, vstmts...)
		if c.resultVar != nil {
			stmts = append(stmts, &ivl.AssignLocal{Var: c.resultVar.Name, Value: v, Pos: pos})
		}
	}
	if scope, ok := c.CurrentTry(); ok {
		stmts = append(stmts, &ivl.AssignLocal{Var: scope.modeVar.Name, Value: &ivl.IntLit{Value: "1", Pos: pos}, Pos: pos})
		return append(stmts, &ivl.Goto{Label: scope.finallyLabel, Pos: pos})
	}
	return append(stmts, &ivl.Goto{Label: "return", Pos: pos})
}

func (c *Context) translateIf(s *ast.IfStmt) []ivl.Stmt {
	pos := c.Pos(s)
	cstmts, cond := c.TranslateExpr(s.Cond)
	then := c.TranslateBlock(s.Then)
	var els []ivl.Stmt
	if s.Else != nil {
		els = c.TranslateBlock(s.Else)
	}
	return append(cstmts, &ivl.If{Cond: cond, Then: then, Else: els, Pos: pos})
}

func (c *Context) translateBreak(s *ast.BreakStmt) []ivl.Stmt {
	label, ok := c.BreakLabel()
	if !ok {
		c.Fail(s.Pos, "break outside of a loop")
		return nil
	}
	return []ivl.Stmt{&ivl.Goto{Label: label, Pos: c.Pos(s)}}
}

func (c *Context) translateContinue(s *ast.ContinueStmt) []ivl.Stmt {
	label, ok := c.ContinueLabel()
	if !ok {
		c.Fail(s.Pos, "continue outside of a loop")
		return nil
	}
	return []ivl.Stmt{&ivl.Goto{Label: label, Pos: c.Pos(s)}}
}

// maxUnrollCount bounds how large a literal iteration count may be before
// translateFor falls back to the havoc-and-assume protocol even for an
// invariant-free loop: fully unrolling an unbounded or very large count
// would make the emitted IVL program's size depend on a contract constant
// rather than on its source size (spec.md §2's per-component size model).
const maxUnrollCount = 32

// translateFor is C8's loop lowering (spec.md §4.8): with no loop
// invariants and a small literal bound it unrolls, binding the loop
// variable to each literal index in turn; otherwise it uses the
// havoc-and-assume protocol: prove the invariants at i=0 (base case),
// havoc the whole state and a fresh loop counter, assume the invariants
// and the counter's range hold for an arbitrary counter value (the
// inductive hypothesis), then either fall through with the invariants
// known to hold at the bound (the exit state) or execute one more loop
// body and re-assert the invariants at i+1 (the step case), cutting the
// branch off with "assume false" since nothing past a step case's
// assertion is reachable along the path the solver needs to check.
func (c *Context) translateFor(s *ast.ForStmt) []ivl.Stmt {
	pos := c.Pos(s)

	if lit, ok := literalBound(s.IterCount); ok && len(s.Invariants) == 0 && lit >= 0 && lit <= maxUnrollCount {
		return c.unrollFor(s, lit, pos)
	}
	return c.havocFor(s, pos)
}

func literalBound(e ast.Expr) (int, bool) {
	lit, ok := e.(*ast.LiteralExpr)
	if !ok || lit.Kind != ast.IntLiteral {
		return 0, false
	}
	n := 0
	for _, ch := range lit.Value {
		if ch < '0' || ch > '9' {
			return 0, false
		}
		n = n*10 + int(ch-'0')
	}
	return n, true
}

func (c *Context) unrollFor(s *ast.ForStmt, count int, pos registry.Position) []ivl.Stmt {
	var stmts []ivl.Stmt
	c.declareNamedLocal(s.Var.Value, ivl.IntSort{})
	breakLabel := c.FreshLabel("loopbreak")
	pop := c.PushLoopLabels(breakLabel, breakLabel)
	for i := 0; i < count; i++ {
		stmts = append(stmts, &ivl.AssignLocal{Var: s.Var.Value, Value: &ivl.IntLit{Value: itoa(uint64(i)), Pos: pos}, Pos: pos})
		stmts = append(stmts, c.TranslateBlock(s.Body)...)
	}
	pop()
	stmts = append(stmts, &ivl.Label{Name: breakLabel, Pos: pos})
	return stmts
}

func (c *Context) havocFor(s *ast.ForStmt, pos registry.Position) []ivl.Stmt {
	var stmts []ivl.Stmt
	c.declareNamedLocal(s.Var.Value, ivl.IntSort{})
	countStmts, count := c.TranslateExpr(s.IterCount)
	stmts = append(stmts, countStmts...)

	// Base case: the invariants hold before the loop ever runs (i == 0).
	stmts = append(stmts, &ivl.AssignLocal{Var: s.Var.Value, Value: &ivl.IntLit{Value: "0", Pos: pos}, Pos: pos})
	for _, inv := range s.Invariants {
		iv := c.TranslatePure(inv)
		stmts = append(stmts, &ivl.Assert{Expr: iv, Pos: pos})
	}

	stmts = append(stmts, c.HavocCurrent(pos)...)
	loopVar := c.FreshLocal(s.Var.Value+"$havoc", ivl.IntSort{}, pos)
	stmts = append(stmts, &ivl.AssignLocal{Var: s.Var.Value, Value: loopVar, Pos: pos})

	lowerBound := mustBinOp(c.Builder, "<=", &ivl.IntLit{Value: "0", Pos: pos}, loopVar, pos)
	upperBound := mustBinOp(c.Builder, "<=", loopVar, count, pos)
	stmts = append(stmts, &ivl.Inhale{Expr: mustBinOp(c.Builder, "&&", lowerBound, upperBound, pos), Pos: pos})
	var invExprs []ivl.Expr
	for _, inv := range s.Invariants {
		iv := c.TranslatePure(inv)
		invExprs = append(invExprs, iv)
		stmts = append(stmts, &ivl.Inhale{Expr: iv, Pos: pos})
	}

	inProgress := mustBinOp(c.Builder, "<", loopVar, count, pos)
	breakLabel := c.FreshLabel("loopbreak")
	continueLabel := c.FreshLabel("loopcontinue")
	pop := c.PushLoopLabels(breakLabel, continueLabel)
	stepBody := c.TranslateBlock(s.Body)
	pop()
	stepBody = append(stepBody, &ivl.Label{Name: continueLabel, Pos: pos})
	nextVar := mustBinOp(c.Builder, "+", loopVar, &ivl.IntLit{Value: "1", Pos: pos}, pos)
	stepBody = append(stepBody, &ivl.AssignLocal{Var: s.Var.Value, Value: nextVar, Pos: pos})
	for _, iv := range invExprs {
		stepBody = append(stepBody, &ivl.Assert{Expr: iv, Pos: pos})
	}
	// Nothing past the step case needs exploring: the step case's own
	// re-assertion of the invariants is the only fact the solver needs
	// about it, and the surrounding function continues along the exit
	// (i == count) branch instead.
	stepBody = append(stepBody, &ivl.Inhale{Expr: &ivl.BoolLit{Value: false, Pos: pos}, Pos: pos})

	stmts = append(stmts, &ivl.If{Cond: inProgress, Then: stepBody, Pos: pos})
	stmts = append(stmts, &ivl.Label{Name: breakLabel, Pos: pos})
	return stmts
}

// translateTry lowers try/finally per spec.md §4.8's synthetic-variable
// protocol: every try allocates a finally_mode local (0 = fallthrough,
// 1 = return, 2 = exception) and an error_var local, both declared 0/unset
// on entry. The body runs with this try pushed as the current scope, so
// translateRaise/translateReturn inside it (including inside a nested
// try's re-raise) set these locals and jump to finallyLabel instead of
// going straight to the function-wide return/revert labels. Once control
// reaches finallyLabel — by that jump, or by simply falling off the end of
// the body with mode still 0 — the finally block (if any) always runs
// next, then dispatch switches on finally_mode:
//
//   - 1 (return): re-issue the jump to the function's return label, now
//     that the finally block has run.
//   - 2 (exception): walk the handlers in source order, testing error_var
//     against each one's declared type tag; the first match binds the
//     handler's variable and runs its body, then jumps to postLabel,
//     skipping the rest. No match re-raises to the next enclosing try
//     (same finally_mode/error_var dance one level up) or, with no
//     enclosing try, reverts.
//   - 0 (fallthrough): neither branch above fires, so control falls
//     straight through to postLabel — the "post_<try>" label spec.md
//     names.
func (c *Context) translateTry(s *ast.TryStmt) []ivl.Stmt {
	pos := c.Pos(s)
	modeVar := c.FreshLocal("finally_mode", ivl.IntSort{}, pos)
	errorVar := c.FreshLocal("error_var", ivl.IntSort{}, pos)
	finallyLabel := c.FreshLabel("finally")
	postLabel := c.FreshLabel("post_try")
	scope := &tryScope{finallyLabel: finallyLabel, modeVar: modeVar, errorVar: errorVar}

	stmts := []ivl.Stmt{
		&ivl.AssignLocal{Var: modeVar.Name, Value: &ivl.IntLit{Value: "0", Pos: pos}, Pos: pos},
		&ivl.AssignLocal{Var: errorVar.Name, Value: &ivl.IntLit{Value: "0", Pos: pos}, Pos: pos},
	}
	pop := c.PushTry(scope)
	stmts = append(stmts, c.TranslateBlock(s.Body)...)
	pop()

	stmts = append(stmts, &ivl.Label{Name: finallyLabel, Pos: pos})
	if s.Finally != nil {
		stmts = append(stmts, c.TranslateBlock(s.Finally)...)
	}

	returnMode := mustBinOp(c.Builder, "==", modeVar, &ivl.IntLit{Value: "1", Pos: pos}, pos)
	stmts = append(stmts, &ivl.If{
		Cond: returnMode,
		Then: []ivl.Stmt{&ivl.Goto{Label: "return", Pos: pos}},
		Pos:  pos,
	})

	var reraise []ivl.Stmt
	if outer, ok := c.CurrentTry(); ok {
		reraise = []ivl.Stmt{
			&ivl.AssignLocal{Var: outer.errorVar.Name, Value: errorVar, Pos: pos},
			&ivl.AssignLocal{Var: outer.modeVar.Name, Value: &ivl.IntLit{Value: "2", Pos: pos}, Pos: pos},
			&ivl.Goto{Label: outer.finallyLabel, Pos: pos},
		}
	} else {
		reraise = []ivl.Stmt{&ivl.Goto{Label: "revert", Pos: pos}}
	}
	dispatch := reraise
	for i := len(s.Handlers) - 1; i >= 0; i-- {
		handler := s.Handlers[i]
		c.declareNamedLocal(handler.Binding.Value, ivl.IntSort{})
		caught, err := c.Sem.Types.Resolve(handler.ErrorType)
		typeName := handler.ErrorType.Name.Value
		if err == nil && caught != nil {
			typeName = caught.String()
		}
		tag := c.ErrorTag(typeName)
		match := mustBinOp(c.Builder, "==", errorVar, &ivl.IntLit{Value: itoa(uint64(tag)), Pos: pos}, pos)
		body := append([]ivl.Stmt{&ivl.AssignLocal{Var: handler.Binding.Value, Value: errorVar, Pos: pos}},
			c.TranslateBlock(handler.Body)...)
		body = append(body, &ivl.Goto{Label: postLabel, Pos: pos})
		dispatch = []ivl.Stmt{&ivl.If{Cond: match, Then: body, Else: dispatch, Pos: pos}}
	}
	exceptionMode := mustBinOp(c.Builder, "==", modeVar, &ivl.IntLit{Value: "2", Pos: pos}, pos)
	stmts = append(stmts, &ivl.If{Cond: exceptionMode, Then: dispatch, Pos: pos})

	stmts = append(stmts, &ivl.Label{Name: postLabel, Pos: pos})
	return stmts
}
