package translate

import (
	"civl/internal/errors"
	"civl/internal/ivl"
	"civl/internal/registry"
	"civl/internal/semantic"
)

// EncodeProgram is C12: it drives C9 through C11 over one annotated
// contract, declaring every record sort and prelude domain function the
// state and resource encodings assume before translating each function,
// ghost implementation and lemma, and returns the assembled ivl.Program,
// the C2 registry it populated along the way (internal/verifier's
// back-mapper needs it to resolve a verifier failure's position id back
// to a source location), and any error diagnostics accumulated along the
// way.
//
// Grounded on kanso's internal/ir package-level "Build" entry point: one
// pass over the contract's declarations populating a single output
// artifact (spec.md §9's "driver is a thin loop" note). Functions are
// encoded in source order; ghost implementations and lemmas come from the
// semantic Context's name-keyed maps, so their order follows Go map
// iteration and is not fixed.
func EncodeProgram(sem *semantic.Context) (*ivl.Program, *registry.Registry, []errors.CompilerError) {
	c := NewContext(sem)
	prog := ivl.NewProgram()
	pos := c.NoPos()

	c.declareRecords(pos)
	c.declarePrelude()

	for _, s := range sem.Contract.Structs() {
		if s.IsStorage() {
			continue
		}
		prog.AddPredicate(&ivl.Predicate{Name: "valid$" + s.Name.Value, Pos: pos})
	}

	for _, fn := range sem.Contract.Functions() {
		if fn.IsPure() {
			prog.AddFunction(c.TranslatePureFunction(fn))
		} else {
			prog.AddMethod(c.TranslateFunction(fn))
		}
	}
	for _, g := range sem.GhostImpls {
		prog.AddFunction(c.TranslateGhost(g))
	}
	for _, l := range sem.Lemmas {
		prog.AddFunction(c.TranslateLemma(l))
	}
	for _, d := range c.domains() {
		prog.AddDomain(d)
	}

	return prog, c.Registry, c.Errors
}

// declareRecords registers every record sort the state bundle (C9) and
// resource encoder (C10) assume exists: "Self" carries the storage
// struct's own fields plus the balances/offers/trusts/events ledgers and
// one allocation map per declared resource; every other struct and event
// becomes its own record, field-for-field.
func (c *Context) declareRecords(pos registry.Position) {
	selfFields := []string{"balances", "offers", "trusts", "events"}
	if storage := c.Sem.Contract.StorageStruct(); storage != nil {
		for _, item := range storage.Items {
			selfFields = append(selfFields, item.Name.Value)
		}
	}
	for identity := range c.Sem.Resources {
		selfFields = append(selfFields, "alloc$"+identity.Name)
	}
	c.Builder.DeclareRecord(SelfSortName, selfFields)

	for _, s := range c.Sem.Contract.Structs() {
		if s.IsStorage() {
			continue
		}
		names := make([]string, len(s.Items))
		for i, item := range s.Items {
			names[i] = item.Name.Value
		}
		c.Builder.DeclareRecord(s.Name.Value, names)
	}
	c.Builder.DeclareRecord("Event", []string{})
}

// declarePrelude records the uninterpreted domain this contract's
// translation depends on: pair() for the offer/trust key encoding (C10),
// sum()/clear() for the specification aggregate builtins (C7), and one
// havoc_<sort> generator per primitive sort a loop or revert rollback
// might havoc (C8, C9). The external verifier axiomatizes these; civl
// only needs to declare their signatures so the printed IVL program
// type-checks standalone.
func (c *Context) declarePrelude() {
	c.pairDomain = &ivl.Domain{
		Name: "Pair",
		Functions: []*ivl.Function{
			{Name: "pair", Params: []ivl.LocalDecl{{Name: "a", Type: ivl.IntSort{}}, {Name: "b", Type: ivl.IntSort{}}}, Return: ivl.IntSort{}},
		},
	}
	c.havocDomain = &ivl.Domain{
		Name: "Havoc",
		Functions: []*ivl.Function{
			{Name: "havoc_int", Params: []ivl.LocalDecl{{Name: "n", Type: ivl.IntSort{}}}, Return: ivl.IntSort{}},
			{Name: "havoc_bool", Params: []ivl.LocalDecl{{Name: "n", Type: ivl.IntSort{}}}, Return: ivl.BoolSort{}},
			{Name: "havoc_map", Params: []ivl.LocalDecl{{Name: "n", Type: ivl.IntSort{}}}, Return: ivl.MapSort{Key: ivl.IntSort{}, Value: ivl.IntSort{}}},
			{Name: "havoc_seq", Params: []ivl.LocalDecl{{Name: "n", Type: ivl.IntSort{}}}, Return: ivl.SeqSort{Elem: ivl.RefSort{Name: "Event"}}},
			{Name: "havoc_ref_" + SelfSortName, Params: []ivl.LocalDecl{{Name: "n", Type: ivl.IntSort{}}}, Return: ivl.RefSort{Name: SelfSortName}},
		},
	}
	c.aggregateDomain = &ivl.Domain{
		Name: "Aggregate",
		Functions: []*ivl.Function{
			{Name: "sum", Params: []ivl.LocalDecl{{Name: "m", Type: ivl.MapSort{Key: ivl.IntSort{}, Value: ivl.IntSort{}}}}, Return: ivl.IntSort{}},
			{Name: "clear", Params: nil, Return: ivl.BoolSort{}},
			{Name: "seq_append", Params: []ivl.LocalDecl{{Name: "s", Type: ivl.SeqSort{Elem: ivl.RefSort{Name: "Event"}}}, {Name: "e", Type: ivl.RefSort{Name: "Event"}}}, Return: ivl.SeqSort{Elem: ivl.RefSort{Name: "Event"}}},
		},
	}
}

// domains returns the prelude domains assembled by declarePrelude, for
// EncodeProgram to attach to the final program.
func (c *Context) domains() []*ivl.Domain {
	var ds []*ivl.Domain
	if c.pairDomain != nil {
		ds = append(ds, c.pairDomain)
	}
	if c.havocDomain != nil {
		ds = append(ds, c.havocDomain)
	}
	if c.aggregateDomain != nil {
		ds = append(ds, c.aggregateDomain)
	}
	return ds
}
