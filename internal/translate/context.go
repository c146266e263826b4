// Package translate implements C6 through C12: the expression, statement,
// specification, state, resource and function translators that lower an
// annotated contract IR (internal/semantic's output) to an internal/ivl
// program, plus the top-level Program Encoder that drives the whole pass.
//
// Grounded on kanso's internal/ir builder: the same "one mutable Context
// threaded through every translation call, owning a monotonic counter and
// scoped stacks" idiom (spec.md §9's "Context object as global" design
// note, kept explicit per its guidance rather than hidden as package
// state).
package translate

import (
	"fmt"

	"civl/internal/ast"
	"civl/internal/errors"
	"civl/internal/ivl"
	"civl/internal/registry"
	"civl/internal/semantic"
	"civl/internal/types"
)

// Context owns every piece of mutable state a translation pass needs:
// the identifier counter (delegated to the registry), the current
// function's locals, the break/continue/program-scope stacks, and the
// current/old state bundles (C9). One Context is built per contract
// translation and discarded at the end of the run, matching the
// concurrency model of spec.md §5: single-threaded, no shared mutable
// state escapes one translation.
type Context struct {
	Sem      *semantic.Context
	Registry *registry.Registry
	Builder  *ivl.Builder

	fn     *ast.Function // function currently being translated; nil outside one
	locals []ivl.LocalDecl
	seen   map[string]bool // local/param names already declared, for fresh-name collision avoidance

	cur       *StateBundle   // the live state bundle
	publicOld *StateBundle   // snapshot at the last public function's entry
	oldStack  []*StateBundle // function-entry and loop-entry snapshots, innermost last

	resultVar *ivl.LocalVar // the function currently being translated's return-value local, nil for void functions

	breakLabels    []string
	continueLabels []string

	tryStack  []*tryScope     // enclosing try/finally scopes, innermost last (spec.md §4.8)
	errorTags map[string]int // error-type name -> the stable discriminator error_var carries

	scopeStack []string // program_scope(interface) names, innermost last

	// Prelude domains declared once by the Program Encoder (C12) and
	// attached to the final ivl.Program.
	pairDomain      *ivl.Domain
	havocDomain     *ivl.Domain
	aggregateDomain *ivl.Domain

	tmp uint64

	Errors []errors.CompilerError
}

// NewContext builds a fresh translation Context over an already
// annotated and symbol-checked semantic.Context.
func NewContext(sem *semantic.Context) *Context {
	return &Context{
		Sem:      sem,
		Registry: registry.New(),
		Builder:  ivl.NewBuilder(),
		seen:     make(map[string]bool),
	}
}

// Pos allocates a fresh registered position for node, scoped to the
// function currently being translated (C2).
func (c *Context) Pos(node ast.Node, opts ...registry.Option) registry.Position {
	name := ""
	if c.fn != nil {
		name = c.fn.Name.Value
	}
	return c.Registry.ToPosition(node, name, opts...)
}

// NoPos is shorthand for registry.NoPosition, used for synthesized
// prelude nodes that carry no source location.
func (c *Context) NoPos() registry.Position { return registry.NoPosition() }

// Fail records an InternalError-class diagnostic: a post-condition of the
// translator itself was violated (spec.md §7's InternalError kind), e.g.
// an expression reaching C6/C7 with no type recorded by C3.
func (c *Context) Fail(pos ast.Position, format string, args ...any) {
	c.Errors = append(c.Errors, errors.CompilerError{
		Level:   errors.Error,
		Code:    errors.ErrorInvalidOperation,
		Message: fmt.Sprintf(format, args...),
		Position: pos,
	})
}

// TypeOf looks up the type C3 attached to expr, failing loudly (an
// InternalError) if it is missing: every reachable expression node must
// carry a type by the time translation begins (spec.md §8's "Typing
// total" property).
func (c *Context) TypeOf(e ast.Expr) *types.Type {
	t, ok := c.Sem.TypeOf[e]
	if !ok {
		c.Fail(e.NodePos(), "internal error: expression reached the translator with no annotated type: %T", e)
		return types.Int(256, false)
	}
	return t
}

// FreshLocal declares a new method-local variable of the given sort and
// returns a reference to it. prefix is a readable hint (e.g. "idx",
// "tmp", "old$self"); the counter suffix guarantees no collision within
// one function translation.
func (c *Context) FreshLocal(prefix string, sort ivl.Sort, pos registry.Position) *ivl.LocalVar {
	c.tmp++
	name := fmt.Sprintf("%s$%d", prefix, c.tmp)
	c.locals = append(c.locals, ivl.LocalDecl{Name: name, Type: sort})
	c.seen[name] = true
	return &ivl.LocalVar{Name: name, Type: sort, Pos: pos}
}

// FreshLabel returns a unique label name for loop/try control flow.
func (c *Context) FreshLabel(prefix string) string {
	c.tmp++
	return fmt.Sprintf("%s$%d", prefix, c.tmp)
}

// TakeLocals drains and returns the locals accumulated since the last
// call, for installation on the ivl.Method currently being built.
func (c *Context) TakeLocals() []ivl.LocalDecl {
	out := c.locals
	c.locals = nil
	return out
}

// PushLoopLabels scopes the break/continue label stack for the
// translation of one loop body; the returned func must be deferred to
// guarantee the pop happens on every exit path, including a translation
// panic (spec.md §5's "scoped acquisition ... guaranteed to be popped on
// all exit paths, including translation errors").
func (c *Context) PushLoopLabels(breakLabel, continueLabel string) func() {
	c.breakLabels = append(c.breakLabels, breakLabel)
	c.continueLabels = append(c.continueLabels, continueLabel)
	return func() {
		c.breakLabels = c.breakLabels[:len(c.breakLabels)-1]
		c.continueLabels = c.continueLabels[:len(c.continueLabels)-1]
	}
}

func (c *Context) BreakLabel() (string, bool) {
	if len(c.breakLabels) == 0 {
		return "", false
	}
	return c.breakLabels[len(c.breakLabels)-1], true
}

func (c *Context) ContinueLabel() (string, bool) {
	if len(c.continueLabels) == 0 {
		return "", false
	}
	return c.continueLabels[len(c.continueLabels)-1], true
}

// PushProgramScope scopes interface/ghost-function resolution to iface
// for the duration of translating one inlined or cross-interface call
// (spec.md §5, §9).
func (c *Context) PushProgramScope(iface string) func() {
	c.scopeStack = append(c.scopeStack, iface)
	return func() {
		c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
	}
}

func (c *Context) CurrentProgramScope() (string, bool) {
	if len(c.scopeStack) == 0 {
		return "", false
	}
	return c.scopeStack[len(c.scopeStack)-1], true
}

// tryScope is one live try/finally translation: the synthetic finally_mode
// and error_var locals spec.md §4.8 mandates, and the label the body/
// handlers/finally block all funnel through.
type tryScope struct {
	finallyLabel string
	modeVar      *ivl.LocalVar
	errorVar     *ivl.LocalVar
}

// PushTry scopes raise/return translation to one try statement's dispatch
// variables; the returned func must be deferred/called on every exit path,
// matching PushLoopLabels' scoped-acquisition discipline (spec.md §5).
func (c *Context) PushTry(scope *tryScope) func() {
	c.tryStack = append(c.tryStack, scope)
	return func() {
		c.tryStack = c.tryStack[:len(c.tryStack)-1]
	}
}

func (c *Context) CurrentTry() (*tryScope, bool) {
	if len(c.tryStack) == 0 {
		return nil, false
	}
	return c.tryStack[len(c.tryStack)-1], true
}

// ErrorTag assigns a stable small integer to an error type name: error_var
// is an uninterpreted Int discriminator rather than a real tagged union
// (civl's IVL target has no runtime type-of), so a caught type is
// identified by comparing against the tag its declaring type was first
// seen with. Tag 0 is reserved for "no exception in flight".
func (c *Context) ErrorTag(typeName string) int {
	if c.errorTags == nil {
		c.errorTags = make(map[string]int)
	}
	if tag, ok := c.errorTags[typeName]; ok {
		return tag
	}
	tag := len(c.errorTags) + 1
	c.errorTags[typeName] = tag
	return tag
}
