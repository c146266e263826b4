// Package registry implements C2, the Position & Error Registry: it
// allocates an identifier for every IVL node that might fail verification,
// remembers which source node (and, for inlined calls, which call chain)
// that identifier came from, and later lets internal/verifier map a
// returned failure back to a source-level diagnostic.
//
// Grounded on kanso's internal/ir builder ID counters (valueCounter,
// blockCounter, instCounter): the same "allocate a monotonically
// increasing int, keep a side table keyed by it" idiom, repointed from
// SSA value IDs to verifier position IDs.
package registry

import "civl/internal/ast"

// Position is an opaque handle returned by ToPosition/NoPosition. It
// carries no payload of its own; callers pass it straight through to
// internal/ivl node constructors and it is looked up again only inside
// internal/verifier after the external verifier reports a failure.
type Position struct {
	id   uint64
	none bool
}

// None reports whether this is the sentinel "no source position" handle
// (used only by built-in prelude nodes, per spec.md §8's position-coverage
// invariant).
func (p Position) None() bool { return p.none }

// ID exposes the raw identifier for serialization into the IVL program
// text handed to the external verifier.
func (p Position) ID() uint64 { return p.id }

// Via records one inlining step: a call site whose callee was inlined, so
// that a failure inside the callee's body can be reported as "in foo,
// called from bar at file:line".
type Via struct {
	CallSite ast.Position
	Callee   string
}

// ModelTransformation rewrites a counterexample model before it is
// rendered, e.g. projecting an internal snapshot variable back onto a
// source-level name.
type ModelTransformation struct {
	Description string
	Apply       func(model map[string]string) map[string]string
}

// ErrorInfo is everything needed to turn a failing node identifier into a
// source-level diagnostic.
type ErrorInfo struct {
	FunctionName      string
	SourceNode        ast.Node
	Rules             map[string]string // verifier reason code -> rewritten diagnostic code
	Vias              []Via
	ModelTransform    *ModelTransformation
}

// Registry is append-only within a single translation run: entries are
// never removed or mutated once allocated, matching the "registry entries
// live for the whole run" lifecycle in spec.md §3.
type Registry struct {
	nextID  uint64
	entries map[uint64]ErrorInfo
}

func New() *Registry {
	return &Registry{entries: make(map[uint64]ErrorInfo)}
}

// Option configures a ToPosition call.
type Option func(*ErrorInfo)

// WithRules overrides the diagnostic code chosen for specific verifier
// reason codes reported against this node, e.g. remapping a generic
// "assertion.false" to "invariant.violated".
func WithRules(rules map[string]string) Option {
	return func(e *ErrorInfo) { e.Rules = rules }
}

// WithVias records the inlined-call chain leading to this node, innermost
// call last.
func WithVias(vias []Via) Option {
	return func(e *ErrorInfo) { e.Vias = vias }
}

// WithModelTransform attaches a counterexample rewrite rule.
func WithModelTransform(t *ModelTransformation) Option {
	return func(e *ErrorInfo) { e.ModelTransform = t }
}

// ToPosition allocates a fresh identifier for node, scoped to the
// function currently being translated, and returns a positioned handle
// that every IVL constructor in internal/ivl accepts.
func (r *Registry) ToPosition(node ast.Node, functionName string, opts ...Option) Position {
	r.nextID++
	id := r.nextID

	info := ErrorInfo{FunctionName: functionName, SourceNode: node}
	for _, opt := range opts {
		opt(&info)
	}
	r.entries[id] = info

	return Position{id: id}
}

// NoPosition returns the sentinel used for built-in prelude nodes that
// have no corresponding source location.
func NoPosition() Position {
	return Position{none: true}
}

// Lookup returns the registered ErrorInfo for a position previously
// produced by ToPosition. ok is false for a sentinel NoPosition or an
// identifier this registry never allocated (e.g. from a different run).
func (r *Registry) Lookup(pos Position) (ErrorInfo, bool) {
	if pos.none {
		return ErrorInfo{}, false
	}
	info, ok := r.entries[pos.id]
	return info, ok
}

// Len reports how many positions have been allocated so far; used by
// tests asserting position-coverage (spec.md §8).
func (r *Registry) Len() int { return len(r.entries) }

// LookupID is Lookup for a raw identifier recovered from outside the
// process boundary: the external verifier reports failures against the
// numeric ids printed into the IVL program text (internal/ivl/printer.go's
// "// @<id>" annotations), not against Position handles, so
// internal/verifier's back-mapper (C13) needs a way back in from the bare
// number.
func (r *Registry) LookupID(id uint64) (ErrorInfo, bool) {
	info, ok := r.entries[id]
	return info, ok
}
