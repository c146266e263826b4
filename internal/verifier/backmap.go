package verifier

import (
	"fmt"
	"sort"

	"civl/internal/errors"
	"civl/internal/registry"
)

// messageTemplates renders a verifier reason code (spec.md §6's code
// table) into a human-readable sentence. Grounded on original_source
// twovyper/verification/messages.py's code -> English-template mapping,
// adapted to this tool's "error[Exxxx]: message" rendering
// (internal/errors/reporter.go).
var messageTemplates = map[string]string{
	"assertion.false":             "assertion does not hold",
	"division.by.zero":            "division by zero",
	"seq.index.length":            "index out of bounds",
	"seq.index.negative":          "negative index",
	"arithmetic.overflow":         "arithmetic operation overflows",
	"arithmetic.underflow":        "arithmetic operation underflows",
	"insufficient.permission":     "insufficient permission",
	"receiver.null":               "receiver address is zero",
	"receiver.not.injective":      "receiver expression is not injective",
	"negative.permission":         "permission amount is negative",
	"insufficient.funds":          "insufficient balance for this transfer",
	"no.offer":                    "no matching offer for this reallocation",
	"allocation.leaked":           "function changed an allocation it did not declare in its performs clause",
	"not.implements.interface":    "resource does not implement the required interface",
	"invariant.violated":          "invariant does not hold",
	"invariant.not.preserved":     "invariant is not preserved across this operation",
	"invariant.not.established":   "invariant does not hold on entry",
	"exhale.failed":               "failed to exhale permission",
	"inhale.failed":               "failed to inhale permission",
	"fold.failed":                 "failed to fold predicate",
	"unfold.failed":               "failed to unfold predicate",
	"call.failed":                 "call failed",
	"assignment.failed":           "assignment failed",
	"if.failed":                   "conditional branch failed",
	"while.failed":                "loop failed",
	"assert.failed":               "assertion failed",
	"postcondition.violated":      "postcondition does not hold",
	"call.precondition":           "precondition of called function does not hold",
	"call.invariant":              "invariant does not hold at call site",
	"call.check":                  "check clause does not hold at call site",
	"application.precondition":    "precondition of applied function does not hold",
	"reallocate.failed":           "reallocate action failed",
	"exchange.failed":             "exchange action failed",
	"leakcheck.failed":            "resource leak check failed",
	"transitivity.violated":       "trust relation is not transitive",
	"constant.balance":            "balance changed without a corresponding performs action",
}

// Diagnostic is one back-mapped verifier failure, ready to format as a
// CompilerError or an IDE-mode "file:line:col: message" line.
type Diagnostic struct {
	CompilerError errors.CompilerError
	FunctionName  string
	Vias          []registry.Via
	Model         map[string]string
}

// BackMap is C13: it consumes the external verifier's raw Failure list and
// the same registry.Registry the translation built, and produces
// de-duplicated, source-positioned diagnostics.
//
// 1. Look up position_id in C2 -> ErrorInfo.
// 2. Apply the optional rule remap to reason_code.
// 3. Format via the §6 message templates above.
// 4. De-duplicate identical final strings.
func BackMap(reg *registry.Registry, failures []Failure) []Diagnostic {
	seen := make(map[string]bool)
	var out []Diagnostic

	for _, f := range failures {
		info, ok := reg.LookupID(f.PositionID)
		if !ok {
			// A failure against a position this registry never allocated
			// (e.g. a prelude-only node) still needs to surface; render it
			// without a source location rather than dropping it silently.
			d := Diagnostic{CompilerError: errors.CompilerError{
				Level:   errors.Error,
				Code:    errors.ErrorVerificationFailed,
				Message: renderMessage(f.ReasonCode, f.ReasonCode),
			}}
			key := d.CompilerError.Message
			if !seen[key] {
				seen[key] = true
				out = append(out, d)
			}
			continue
		}

		code := f.ReasonCode
		if info.Rules != nil {
			if remapped, ok := info.Rules[f.ReasonCode]; ok {
				code = remapped
			}
		}

		model := f.Counterexample
		if info.ModelTransform != nil && model != nil {
			model = info.ModelTransform.Apply(model)
		}

		pos := info.SourceNode.NodePos()
		d := Diagnostic{
			CompilerError: errors.CompilerError{
				Level:    errors.Error,
				Code:     errors.ErrorVerificationFailed,
				Message:  renderMessage(code, f.ReasonCode),
				Position: pos,
			},
			FunctionName: info.FunctionName,
			Vias:         info.Vias,
			Model:        model,
		}

		key := fmt.Sprintf("%s@%s:%d:%d", d.CompilerError.Message, pos.Filename, pos.Line, pos.Column)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompilerError.Position.Line < out[j].CompilerError.Position.Line
	})
	return out
}

func renderMessage(code, fallback string) string {
	if msg, ok := messageTemplates[code]; ok {
		return msg
	}
	return fmt.Sprintf("verification failed (%s)", fallback)
}

// FormatIDE renders diagnostics one per line as "file:line:col: message"
// (spec.md §7's "in IDE mode, one line per failure").
func FormatIDE(diags []Diagnostic) []string {
	lines := make([]string, len(diags))
	for i, d := range diags {
		p := d.CompilerError.Position
		lines[i] = fmt.Sprintf("%s:%d:%d: %s", p.Filename, p.Line, p.Column, d.CompilerError.Message)
	}
	return lines
}
