package translate

import (
	"civl/internal/ivl"
	"civl/internal/registry"
)

// StateBundle is C9's "state bundle": every piece of verification state
// touched by a contract function, bound together so it can be snapshotted
// and havoced as a unit. "This" is the record value carrying every
// declared storage field; balances, per-resource allocation maps, the
// offer/trust maps and the event log are modeled as separate total-
// function fields on the same record (internal/types.Resource and the
// Program Encoder agree on this record's field set).
type StateBundle struct {
	Label       string // "" for the live/current bundle
	This        ivl.Expr
	Balances    ivl.Expr
	Allocations map[string]ivl.Expr
	Offers      ivl.Expr
	Trusts      ivl.Expr
	Events      ivl.Expr
	Sender      ivl.Expr
	Value       ivl.Expr
	Timestamp   ivl.Expr
}

// SelfSortName is the record sort name the Program Encoder declares for
// the contract's storage, with balances/allocation/offer/trust/event
// fields appended (see internal/translate/program.go's DeclareRecord
// call).
const SelfSortName = "Self"

// selfRef is the canonical receiver every method uses for self.<field>
// field accesses: a single implicit "this" parameter, the same role a
// Viper-style heap reference plays, simplified here to an ordinary record
// value since civl does not model separation-logic permissions on it.
func selfRef(pos registry.Position) ivl.Expr {
	return &ivl.LocalVar{Name: "this", Type: ivl.RefSort{Name: SelfSortName}, Pos: pos}
}

// NewEntryState builds the live StateBundle referencing "this" and its
// well-known fields, for use at the top of a freshly entered method body.
func (c *Context) NewEntryState(pos registry.Position) *StateBundle {
	this := selfRef(pos)
	b := &StateBundle{
		This:        this,
		Balances:    c.field(this, "balances", ivl.MapSort{Key: ivl.IntSort{}, Value: ivl.IntSort{}}, pos),
		Allocations: make(map[string]ivl.Expr),
		Offers:      c.field(this, "offers", ivl.MapSort{Key: ivl.IntSort{}, Value: ivl.IntSort{}}, pos),
		Trusts:      c.field(this, "trusts", ivl.MapSort{Key: ivl.IntSort{}, Value: ivl.BoolSort{}}, pos),
		Events:      c.field(this, "events", ivl.SeqSort{Elem: ivl.RefSort{Name: "Event"}}, pos),
		Sender:      c.FreshLocal("msg$sender", ivl.IntSort{}, pos),
		Value:       c.FreshLocal("msg$value", ivl.IntSort{}, pos),
		Timestamp:   c.FreshLocal("block$timestamp", ivl.IntSort{}, pos),
	}
	for name := range c.Sem.Resources {
		b.Allocations[name.Name] = c.field(this, "alloc$"+name.Name, ivl.MapSort{Key: ivl.IntSort{}, Value: ivl.IntSort{}}, pos)
	}
	c.cur = b
	return b
}

func (c *Context) field(receiver ivl.Expr, name string, sort ivl.Sort, pos registry.Position) ivl.Expr {
	fa, err := c.Builder.Field(receiver, name, sort, pos)
	if err != nil {
		// The Program Encoder declares SelfSortName with exactly this
		// field set before any function is translated; a mismatch here
		// is a translator bug, not bad input.
		panic(err)
	}
	return fa
}

// Current returns the live state bundle for the function presently being
// translated.
func (c *Context) Current() *StateBundle { return c.cur }

// Snapshot materializes the current state bundle into fresh locals under
// label and pushes it onto the old-state stack, returning the statements
// that perform the binding. This is eager by construction (spec.md §9's
// design note: never defer expression construction past the point its
// source state might be replaced).
func (c *Context) Snapshot(label string, pos registry.Position) []ivl.Stmt {
	var stmts []ivl.Stmt
	bind := func(prefix string, value ivl.Expr) ivl.Expr {
		local := c.FreshLocal(label+"$"+prefix, value.ExprSort(), pos)
		stmts = append(stmts, &ivl.AssignLocal{Var: local.Name, Value: value, Pos: pos})
		return local
	}
	snap := &StateBundle{
		Label:       label,
		This:        bind("self", c.cur.This),
		Balances:    bind("balances", c.cur.Balances),
		Allocations: make(map[string]ivl.Expr, len(c.cur.Allocations)),
		Offers:      bind("offers", c.cur.Offers),
		Trusts:      bind("trusts", c.cur.Trusts),
		Events:      bind("events", c.cur.Events),
		Sender:      c.cur.Sender,
		Value:       c.cur.Value,
		Timestamp:   c.cur.Timestamp,
	}
	for name, alloc := range c.cur.Allocations {
		snap.Allocations[name] = bind("alloc$"+name, alloc)
	}
	c.oldStack = append(c.oldStack, snap)
	return stmts
}

// PopSnapshot removes the innermost old-state snapshot, matching the
// scoped-acquisition discipline of spec.md §5: every Snapshot within a
// function or loop entry is paired with a pop on every exit path.
func (c *Context) PopSnapshot() {
	c.oldStack = c.oldStack[:len(c.oldStack)-1]
}

// OldState returns the innermost snapshot on the old-state stack, for
// "old(e)".
func (c *Context) OldState() *StateBundle {
	if len(c.oldStack) == 0 {
		return c.cur
	}
	return c.oldStack[len(c.oldStack)-1]
}

// SetPublicOld installs the snapshot to use for "public_old(e)" for the
// remainder of the current function's translation.
func (c *Context) SetPublicOld(snap *StateBundle) { c.publicOld = snap }

// PublicOldState returns the state to use for "public_old(e)".
func (c *Context) PublicOldState() *StateBundle {
	if c.publicOld == nil {
		return c.cur
	}
	return c.publicOld
}

// havocValue produces a fresh, unconstrained value of sort by applying an
// uninterpreted "havoc_<sort>" domain function to a fresh nonce. Each call
// is guaranteed distinct because the nonce is a monotonic counter, which
// is the only property the SMT backend needs to treat the result as
// genuinely unconstrained across repeated havocs in one method body.
func (c *Context) havocValue(sort ivl.Sort, pos registry.Position) ivl.Expr {
	c.tmp++
	return &ivl.FuncApp{
		Name: "havoc_" + sortTag(sort),
		Args: []ivl.Expr{&ivl.IntLit{Value: itoa(c.tmp), Pos: pos}},
		Type: sort,
		Pos:  pos,
	}
}

func sortTag(s ivl.Sort) string {
	switch s.(type) {
	case ivl.IntSort:
		return "int"
	case ivl.BoolSort:
		return "bool"
	case ivl.SeqSort:
		return "seq"
	case ivl.MapSort:
		return "map"
	default:
		return "ref_" + s.SortName()
	}
}

// HavocCurrent reassigns every component of the live state bundle to a
// fresh unconstrained value: self, balances, every resource's allocation
// map, the offer/trust maps and the event log (spec.md §4.9). Used by the
// loop encoding (havocFor); a revert restores entry values through
// rollback in function.go instead.
func (c *Context) HavocCurrent(pos registry.Position) []ivl.Stmt {
	var stmts []ivl.Stmt
	set := func(field string, target ivl.Expr) {
		fresh := c.havocValue(target.ExprSort(), pos)
		stmts = append(stmts, &ivl.AssignField{Receiver: c.cur.This, Field: field, Value: fresh, Pos: pos})
	}
	set("balances", c.cur.Balances)
	set("offers", c.cur.Offers)
	set("trusts", c.cur.Trusts)
	set("events", c.cur.Events)
	for name := range c.cur.Allocations {
		set("alloc$"+name, c.cur.Allocations[name])
	}
	// "this" itself is havoced by reassigning the local it is bound to
	// directly, since it is the receiver rather than a field of itself.
	if local, ok := c.cur.This.(*ivl.LocalVar); ok {
		stmts = append(stmts, &ivl.AssignLocal{Var: local.Name, Value: c.havocValue(local.Type, pos), Pos: pos})
	}
	return stmts
}

// AssumeFramed inhales every invariant in invs against the current state,
// re-establishing the contract's local-state invariants after a havoc
// (spec.md §4.9).
func (c *Context) AssumeFramed(invs []ivl.Expr, pos registry.Position) []ivl.Stmt {
	stmts := make([]ivl.Stmt, len(invs))
	for i, inv := range invs {
		stmts[i] = &ivl.Inhale{Expr: inv, Pos: pos}
	}
	return stmts
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
