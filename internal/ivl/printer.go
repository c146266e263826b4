package ivl

import (
	"fmt"
	"sort"
	"strings"

	"civl/internal/registry"
)

// Print renders Program as IVL source text in the concrete syntax the
// external verifier backend parses (spec.md §6). Grounded on kanso's
// internal/ir/printer.go: one top-level declaration per line, bodies
// indented, deterministic ordering of everything keyed by a map.
func Print(p *Program) string {
	var b strings.Builder

	for _, f := range p.Fields {
		fmt.Fprintf(&b, "field %s: %s\n", f.Name, f.Type.SortName())
	}
	if len(p.Fields) > 0 {
		b.WriteByte('\n')
	}

	for _, d := range p.Domains {
		printDomain(&b, d)
	}

	for _, pr := range p.Predicates {
		printPredicate(&b, pr)
	}

	for _, fn := range p.Functions {
		printFunction(&b, fn)
	}

	for _, m := range p.Methods {
		printMethod(&b, m)
	}

	return b.String()
}

func printDomain(b *strings.Builder, d *Domain) {
	fmt.Fprintf(b, "domain %s {\n", d.Name)
	for _, fn := range d.Functions {
		fmt.Fprintf(b, "  function %s\n", signature(fn.Name, fn.Params, fn.Return))
	}
	for _, ax := range d.Axioms {
		fmt.Fprintf(b, "  axiom { %s }\n", ax.String())
	}
	b.WriteString("}\n\n")
}

func printPredicate(b *strings.Builder, pr *Predicate) {
	fmt.Fprintf(b, "predicate %s(%s)", pr.Name, paramList(pr.Params))
	if pr.Body == nil {
		b.WriteString("\n\n")
		return
	}
	fmt.Fprintf(b, " {\n  %s\n}\n\n", pr.Body.String())
}

func printFunction(b *strings.Builder, fn *Function) {
	fmt.Fprintf(b, "function %s\n", signature(fn.Name, fn.Params, fn.Return))
	for _, pre := range fn.Pres {
		fmt.Fprintf(b, "  requires %s\n", pre.String())
	}
	fmt.Fprintf(b, "{\n  %s\n}\n\n", fn.Body.String())
}

func printMethod(b *strings.Builder, m *Method) {
	fmt.Fprintf(b, "method %s(%s) returns (%s)\n", m.Name, paramList(m.Params), paramList(m.Returns))
	for _, pre := range m.Pres {
		fmt.Fprintf(b, "  requires %s\n", pre.String())
	}
	for _, post := range m.Posts {
		fmt.Fprintf(b, "  ensures %s\n", post.String())
	}
	b.WriteString("{\n")
	for _, l := range m.Locals {
		fmt.Fprintf(b, "  var %s: %s\n", l.Name, l.Type.SortName())
	}
	for _, s := range m.Body {
		printStmt(b, s, 1)
	}
	b.WriteString("}\n\n")
}

// printStmt renders one statement, trailing it with "// @<id>" whenever it
// carries a registered position (spec.md §1's "every IVL node carries an
// identifier" requirement): the external verifier echoes that id back in
// its failure report, and internal/verifier's back-mapper (C13) looks it
// up again in the same registry.Registry this program was built against.
func printStmt(b *strings.Builder, s Stmt, depth int) {
	indent := strings.Repeat("  ", depth)
	switch st := s.(type) {
	case *Seqn:
		for _, inner := range st.Stmts {
			printStmt(b, inner, depth)
		}
	case *If:
		fmt.Fprintf(b, "%sif (%s) {%s\n", indent, st.Cond.String(), posTag(st.Pos))
		for _, t := range st.Then {
			printStmt(b, t, depth+1)
		}
		if len(st.Else) > 0 {
			fmt.Fprintf(b, "%s} else {\n", indent)
			for _, e := range st.Else {
				printStmt(b, e, depth+1)
			}
		}
		fmt.Fprintf(b, "%s}\n", indent)
	case *While:
		fmt.Fprintf(b, "%swhile (%s)%s\n", indent, st.Cond.String(), posTag(st.Pos))
		for _, inv := range st.Invariants {
			fmt.Fprintf(b, "%s  invariant %s\n", indent, inv.String())
		}
		fmt.Fprintf(b, "%s{\n", indent)
		for _, inner := range st.Body {
			printStmt(b, inner, depth+1)
		}
		fmt.Fprintf(b, "%s}\n", indent)
	default:
		fmt.Fprintf(b, "%s%s%s\n", indent, st.String(), posTag(st.StmtPos()))
	}
}

func posTag(pos registry.Position) string {
	if pos.None() {
		return ""
	}
	return fmt.Sprintf(" // @%d", pos.ID())
}

func paramList(locals []LocalDecl) string {
	parts := make([]string, len(locals))
	for i, l := range locals {
		parts[i] = fmt.Sprintf("%s: %s", l.Name, l.Type.SortName())
	}
	return strings.Join(parts, ", ")
}

func signature(name string, params []LocalDecl, ret Sort) string {
	retName := ""
	if ret != nil {
		retName = ": " + ret.SortName()
	}
	return fmt.Sprintf("%s(%s)%s", name, paramList(params), retName)
}

// SortNames returns the keys (field names) of a record-field map in
// sorted order, for a caller that needs to print a StructInit
// deterministically without depending on Go's randomized map iteration.
func SortNames(fields map[string]Expr) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
