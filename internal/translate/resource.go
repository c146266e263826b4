package translate

import (
	"civl/internal/ast"
	"civl/internal/ivl"
	"civl/internal/registry"
)

// resourceKey combines two addresses into the single IntSort key the
// offers/trusts maps are indexed by (state.go models both as address-keyed
// maps of a second address's standing, SPEC_FULL.md's "offered"/"trusted"
// predicates). pair is an uninterpreted injective domain function the
// external verifier's prelude defines.
func (c *Context) resourceKey(a, b ivl.Expr, pos registry.Position) ivl.Expr {
	return &ivl.FuncApp{Name: "pair", Args: []ivl.Expr{a, b}, Type: ivl.IntSort{}, Pos: pos}
}

func (c *Context) allocMap(name string, pos registry.Position) ivl.Expr {
	if m, ok := c.cur.Allocations[name]; ok {
		return m
	}
	return c.field(c.cur.This, "alloc$"+name, ivl.MapSort{Key: ivl.IntSort{}, Value: ivl.IntSort{}}, pos)
}

// translateAllocated lowers "allocated(Resource, address)" to the number
// of units of Resource currently allocated to address (spec.md §4.7).
func (c *Context) translateAllocated(e *ast.CallExpr, pos registry.Position) ivl.Expr {
	name, addr := c.resourceCallArgs(e)
	return &ivl.MapGet{Map: c.allocMap(name, pos), Key: addr, Pos: pos}
}

// translateOffered lowers "offered(from, to)": the amount from has offered
// to transfer to to, pending a reallocate or exchange performs-action.
func (c *Context) translateOffered(e *ast.CallExpr, pos registry.Position) ivl.Expr {
	if len(e.Args) < 2 {
		c.Fail(e.Pos, "offered() takes a from and a to address")
		return &ivl.IntLit{Value: "0", Pos: pos}
	}
	from := c.TranslatePure(e.Args[0])
	to := c.TranslatePure(e.Args[1])
	key := c.resourceKey(from, to, pos)
	return &ivl.MapGet{Map: c.cur.Offers, Key: key, Pos: pos}
}

// translateTrusted lowers "trusted(truster, trustee)": whether truster has
// unconditionally authorized trustee to reallocate on its behalf.
func (c *Context) translateTrusted(e *ast.CallExpr, pos registry.Position) ivl.Expr {
	if len(e.Args) < 2 {
		c.Fail(e.Pos, "trusted() takes a truster and a trustee address")
		return &ivl.BoolLit{Value: false, Pos: pos}
	}
	truster := c.TranslatePure(e.Args[0])
	trustee := c.TranslatePure(e.Args[1])
	key := c.resourceKey(truster, trustee, pos)
	return &ivl.MapGet{Map: c.cur.Trusts, Key: key, Pos: pos}
}

// translateAccessible lowers "accessible(address, amount)": whether
// address's balance currently covers amount, the guard every balance
// withdrawal check is expected to have asserted beforehand.
func (c *Context) translateAccessible(e *ast.CallExpr, pos registry.Position) ivl.Expr {
	if len(e.Args) < 2 {
		c.Fail(e.Pos, "accessible() takes an address and an amount")
		return &ivl.BoolLit{Value: false, Pos: pos}
	}
	addr := c.TranslatePure(e.Args[0])
	amount := c.TranslatePure(e.Args[1])
	balance := &ivl.MapGet{Map: c.cur.Balances, Key: addr, Pos: pos}
	return mustBinOp(c.Builder, ">=", balance, amount, pos)
}

// resourceCallArgs extracts (resourceName, address) from a call whose
// first argument names a resource type (a bare identifier resolved
// against c.Sem.Resources) and second argument is the address.
func (c *Context) resourceCallArgs(e *ast.CallExpr) (string, ivl.Expr) {
	name := ""
	if len(e.Args) > 0 {
		if id, ok := e.Args[0].(*ast.IdentExpr); ok {
			name = id.Name
		}
	}
	var addr ivl.Expr = &ivl.IntLit{Value: "0", Pos: c.Pos(e)}
	if len(e.Args) > 1 {
		addr = c.TranslatePure(e.Args[1])
	}
	return name, addr
}

// exempted reports whether fn's "performs" clauses exempt resource from
// the leak check at the function's exit (spec.md §4.10). An exchange
// clause exempts both resource types it swaps.
func exempted(fn *ast.Function, resource string) bool {
	for _, p := range fn.Performs {
		if p.Resource.Value == resource {
			return true
		}
		if p.Action == ast.PerformsExchange && p.Resource2.Value == resource {
			return true
		}
	}
	return false
}

// LeakCheckStmts asserts, for every resource not named in fn's "performs"
// clauses, that the function did not change its allocation map: a public
// function may only move resource units through a declared performs
// action (spec.md §4.10's "leak check").
func (c *Context) LeakCheckStmts(fn *ast.Function, entry *StateBundle, pos registry.Position) []ivl.Stmt {
	var stmts []ivl.Stmt
	for identity := range c.Sem.Resources {
		name := identity.Name
		if exempted(fn, name) {
			continue
		}
		cur := c.allocMap(name, pos)
		before, ok := entry.Allocations[name]
		if !ok {
			continue
		}
		unchanged, err := c.Builder.BinOp("==", cur, before, pos)
		if err != nil {
			c.Fail(fn.Pos, "%s", err)
			continue
		}
		stmts = append(stmts, &ivl.Assert{Expr: unchanged, Pos: pos})
	}
	return stmts
}

// ApplyPerforms encodes the allocation-map effect of each of fn's
// "performs" clauses (spec.md §4.10): allocate credits an address,
// destroy debits one, reallocate and exchange move units between two
// addresses subject to an offer-map permission check (the trust map is
// not consulted), and create
// exempts the newly instantiated resource's own allocation bookkeeping
// (its effect is entirely on the new instance, outside this contract's
// own state bundle).
func (c *Context) ApplyPerforms(fn *ast.Function, pos registry.Position) []ivl.Stmt {
	var stmts []ivl.Stmt
	for _, p := range fn.Performs {
		name := p.Resource.Value
		switch p.Action {
		case ast.PerformsAllocate:
			if len(p.Args) < 2 {
				c.Fail(p.Pos, "performs allocate(%s, ...) needs an address and an amount", name)
				continue
			}
			addr := c.TranslatePure(p.Args[0])
			amount := c.TranslatePure(p.Args[1])
			stmts = append(stmts, c.mapDelta(name, addr, amount, "+", pos))
		case ast.PerformsDestroy:
			if len(p.Args) < 2 {
				c.Fail(p.Pos, "performs destroy(%s, ...) needs an address and an amount", name)
				continue
			}
			addr := c.TranslatePure(p.Args[0])
			amount := c.TranslatePure(p.Args[1])
			stmts = append(stmts, c.mapDelta(name, addr, amount, "-", pos))
		case ast.PerformsReallocate:
			if len(p.Args) < 3 {
				c.Fail(p.Pos, "performs reallocate(%s, ...) needs a from, a to and an amount", name)
				continue
			}
			offerPos := c.Pos(p, registry.WithRules(map[string]string{"assertion.false": "no.offer"}))
			from := c.TranslatePure(p.Args[0])
			to := c.TranslatePure(p.Args[1])
			amount := c.TranslatePure(p.Args[2])
			key := c.resourceKey(from, to, pos)
			permitted, err := c.Builder.BinOp(">=", &ivl.MapGet{Map: c.cur.Offers, Key: key, Pos: pos}, amount, pos)
			if err != nil {
				c.Fail(p.Pos, "%s", err)
			}
			stmts = append(stmts, c.revertUnless(permitted, offerPos))
			stmts = append(stmts, c.mapDelta(name, from, amount, "-", pos))
			stmts = append(stmts, c.mapDelta(name, to, amount, "+", pos))
		case ast.PerformsExchange:
			// Exchange swaps two resource types between the same pair of
			// parties in one atomic step: the first resource moves from ->
			// to, the second moves to -> from, both gated on the same
			// standing offer between the two addresses (spec.md §4.10).
			if len(p.Args) < 4 {
				c.Fail(p.Pos, "performs exchange(%s, %s, ...) needs a from, a to and two amounts", name, p.Resource2.Value)
				continue
			}
			resource2 := p.Resource2.Value
			offerPos := c.Pos(p, registry.WithRules(map[string]string{"assertion.false": "no.offer"}))
			from := c.TranslatePure(p.Args[0])
			to := c.TranslatePure(p.Args[1])
			amount1 := c.TranslatePure(p.Args[2])
			amount2 := c.TranslatePure(p.Args[3])
			key := c.resourceKey(from, to, pos)
			offer := &ivl.MapGet{Map: c.cur.Offers, Key: key, Pos: pos}
			coversFirst, err := c.Builder.BinOp(">=", offer, amount1, pos)
			if err != nil {
				c.Fail(p.Pos, "%s", err)
			}
			coversSecond, err := c.Builder.BinOp(">=", offer, amount2, pos)
			if err != nil {
				c.Fail(p.Pos, "%s", err)
			}
			permitted, err := c.Builder.BinOp("&&", coversFirst, coversSecond, pos)
			if err != nil {
				c.Fail(p.Pos, "%s", err)
			}
			stmts = append(stmts, c.revertUnless(permitted, offerPos))
			stmts = append(stmts, c.mapDelta(name, from, amount1, "-", pos))
			stmts = append(stmts, c.mapDelta(name, to, amount1, "+", pos))
			stmts = append(stmts, c.mapDelta(resource2, to, amount2, "-", pos))
			stmts = append(stmts, c.mapDelta(resource2, from, amount2, "+", pos))
		case ast.PerformsCreate:
			// The new instance's own bookkeeping is outside this contract's
			// state bundle; nothing to encode here beyond exempting it from
			// the leak check (handled by "exempted" above).
		}
	}
	return stmts
}

// mapDelta adds (op "+") or subtracts (op "-") amount from resource name's
// allocation at addr, functionally rebuilding the map and reassigning it
// to the owning storage field.
func (c *Context) mapDelta(name string, addr, amount ivl.Expr, op string, pos registry.Position) ivl.Stmt {
	m := c.allocMap(name, pos)
	cur := &ivl.MapGet{Map: m, Key: addr, Pos: pos}
	next := mustBinOp(c.Builder, op, cur, amount, pos)
	updated := &ivl.MapUpdate{Map: m, Key: addr, Value: next, Pos: pos}
	return &ivl.AssignField{Receiver: c.cur.This, Field: "alloc$" + name, Value: updated, Pos: pos}
}
