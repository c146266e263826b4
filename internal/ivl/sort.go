// Package ivl implements C1, the IVL AST Builder: constructors for every
// node of the intermediate verification language program handed to the
// external SMT-backed verifier, plus the textual printer that serializes
// it.
//
// Grounded on kanso's internal/ir package: the same "tagged-variant nodes
// with an explicit Sort/Type, assembled into Program/Method/BasicBlock"
// shape as kanso's SSA IR (Program/Function/BasicBlock/Value/Instruction),
// repointed from EVM bytecode lowering to a verification IL with
// inhale/exhale/fold/unfold/predicate-access nodes instead of
// storage-slot loads and stores.
package ivl

import "fmt"

// Sort is an IVL type. Every expression node carries one so C1's
// constructors can enforce "arithmetic only on integers, logical only on
// booleans" without a runtime type-check pass.
type Sort interface {
	SortName() string
}

type IntSort struct{}

func (IntSort) SortName() string { return "Int" }

type BoolSort struct{}

func (BoolSort) SortName() string { return "Bool" }

// PermSort is the sort of a permission amount (full, fractional, or
// read-perm) used by predicate accesses.
type PermSort struct{}

func (PermSort) SortName() string { return "Perm" }

// RefSort is the sort of a record value: a struct, event, resource or
// interface instance translated by internal/types.
type RefSort struct{ Name string }

func (r RefSort) SortName() string { return r.Name }

// SeqSort is the sort of a fixed-capacity array, modeled as a sequence
// with a length invariant carried alongside it (spec.md §4.5).
type SeqSort struct{ Elem Sort }

func (s SeqSort) SortName() string { return fmt.Sprintf("Seq[%s]", s.Elem.SortName()) }

// MapSort is the sort of a total function K -> V with a default value.
type MapSort struct{ Key, Value Sort }

func (m MapSort) SortName() string {
	return fmt.Sprintf("Map[%s,%s]", m.Key.SortName(), m.Value.SortName())
}

// DomainSort names a user or prelude domain (an uninterpreted sort with
// axiomatized functions), used for resource and allocation-map encodings.
type DomainSort struct{ Name string }

func (d DomainSort) SortName() string { return d.Name }

func SortsEqual(a, b Sort) bool { return a.SortName() == b.SortName() }
