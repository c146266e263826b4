package errors

import (
	"fmt"

	"civl/internal/ast"
)

// SemanticErrorBuilder provides a fluent interface for building a
// CompilerError with suggestions, notes and help text attached.
type SemanticErrorBuilder struct {
	err CompilerError
}

func NewSemanticError(code, message string, pos ast.Position) *SemanticErrorBuilder {
	return &SemanticErrorBuilder{
		err: CompilerError{Level: Error, Code: code, Message: message, Position: pos, Length: 1},
	}
}

func NewSemanticWarning(code, message string, pos ast.Position) *SemanticErrorBuilder {
	return &SemanticErrorBuilder{
		err: CompilerError{Level: Warning, Code: code, Message: message, Position: pos, Length: 1},
	}
}

func (b *SemanticErrorBuilder) WithLength(length int) *SemanticErrorBuilder {
	b.err.Length = length
	return b
}

func (b *SemanticErrorBuilder) WithSuggestion(message string) *SemanticErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

func (b *SemanticErrorBuilder) WithNote(note string) *SemanticErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

func (b *SemanticErrorBuilder) WithHelp(help string) *SemanticErrorBuilder {
	b.err.HelpText = help
	return b
}

func (b *SemanticErrorBuilder) Build() CompilerError { return b.err }

// UndefinedVariable reports a reference to a name with no binding in
// scope, suggesting the closest-spelled in-scope names.
func UndefinedVariable(name string, pos ast.Position, similarNames []string) CompilerError {
	b := NewSemanticError(ErrorUndefinedVariable, fmt.Sprintf("cannot find value `%s` in this scope", name), pos).
		WithLength(len(name))
	if close := findSimilarNames(name, similarNames); len(close) > 0 {
		b.WithSuggestion(fmt.Sprintf("a local variable with a similar name exists: `%s`", close[0]))
	}
	return b.Build()
}

// UndefinedFunction reports a call to a name that resolves to no
// imported or declared function.
func UndefinedFunction(name string, pos ast.Position, similarNames []string) CompilerError {
	b := NewSemanticError(ErrorUndefinedFunction, fmt.Sprintf("cannot find function `%s` in this scope", name), pos).
		WithLength(len(name))
	if close := findSimilarNames(name, similarNames); len(close) > 0 {
		b.WithSuggestion(fmt.Sprintf("did you mean `%s`?", close[0]))
	}
	return b.Build()
}

func TypeMismatch(expected, actual string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorTypeMismatch,
		fmt.Sprintf("expected `%s`, found `%s`", expected, actual), pos).Build()
}

func FieldNotFound(structName, fieldName string, pos ast.Position, availableFields []string) CompilerError {
	b := NewSemanticError(ErrorFieldNotFound,
		fmt.Sprintf("no field `%s` on type `%s`", fieldName, structName), pos).WithLength(len(fieldName))
	if close := findSimilarNames(fieldName, availableFields); len(close) > 0 {
		b.WithSuggestion(fmt.Sprintf("a field with a similar name exists: `%s`", close[0]))
	}
	return b.Build()
}

func DuplicateField(fieldName string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorDuplicateField, fmt.Sprintf("field `%s` specified more than once", fieldName), pos).Build()
}

func MissingField(structName, fieldName string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorMissingField,
		fmt.Sprintf("missing field `%s` in initializer of `%s`", fieldName, structName), pos).Build()
}

func InvalidOperation(op, leftType, rightType string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorInvalidBinaryOperation,
		fmt.Sprintf("cannot apply `%s` to `%s` and `%s`", op, leftType, rightType), pos).Build()
}

func MissingReturn(functionName, returnType string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorMissingReturn,
		fmt.Sprintf("function `%s` declares return type `%s` but may not return a value on every path", functionName, returnType), pos).Build()
}

func UnreachableCode(pos ast.Position) CompilerError {
	return NewSemanticWarning(WarningUnreachableCode, "unreachable statement", pos).Build()
}

func DuplicateDeclaration(name string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorDuplicateDeclaration, fmt.Sprintf("the name `%s` is defined multiple times", name), pos).Build()
}

func InvalidAttribute(attributeName string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorInvalidAttribute, fmt.Sprintf("unknown attribute `#[%s]`", attributeName), pos).Build()
}

func InvalidArguments(functionName string, expected, actual int, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorInvalidArguments,
		fmt.Sprintf("function `%s` takes %d argument(s) but %d were supplied", functionName, expected, actual), pos).Build()
}

// UnknownResource reports a "performs"/resource-predicate reference to a
// resource with no matching ResourceDecl in scope.
func UnknownResource(name string, pos ast.Position, similarNames []string) CompilerError {
	b := NewSemanticError(ErrorUnknownResource, fmt.Sprintf("no resource `%s` declared or imported", name), pos)
	if close := findSimilarNames(name, similarNames); len(close) > 0 {
		b.WithSuggestion(fmt.Sprintf("did you mean `%s`?", close[0]))
	}
	return b.Build()
}

// UnknownInterface reports an "implements I" clause naming an interface
// with no matching InterfaceDecl in scope.
func UnknownInterface(name string, pos ast.Position, similarNames []string) CompilerError {
	b := NewSemanticError(ErrorUnknownInterface, fmt.Sprintf("no interface `%s` declared or imported", name), pos)
	if close := findSimilarNames(name, similarNames); len(close) > 0 {
		b.WithSuggestion(fmt.Sprintf("did you mean `%s`?", close[0]))
	}
	return b.Build()
}

func DuplicateResource(name string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorDuplicateResource, fmt.Sprintf("resource `%s` is already declared in this scope", name), pos).Build()
}

// GhostFunctionMismatch reports that a contract's implementation of an
// interface ghost function disagrees with the interface's signature.
func GhostFunctionMismatch(name, interfaceName string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorGhostFunctionMismatch,
		fmt.Sprintf("ghost function `%s` does not match the signature declared by interface `%s`", name, interfaceName), pos).Build()
}

func MissingImplementation(member, interfaceName string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorMissingImplementation,
		fmt.Sprintf("missing implementation of `%s` required by interface `%s`", member, interfaceName), pos).
		WithHelp(fmt.Sprintf("implement `%s` or remove `implements %s`", member, interfaceName)).Build()
}

// InvalidPerformsClause reports a "performs" clause whose action does not
// match any action the named resource's declaration supports.
func InvalidPerformsClause(action, resource string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorInvalidPerformsClause,
		fmt.Sprintf("`performs %s(%s, ...)` does not correspond to a supported resource action", action, resource), pos).Build()
}

// ImpureSpecification reports a requires/ensures/invariant expression
// that calls a function the symbol checker cannot prove pure.
func ImpureSpecification(functionName string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorImpureSpecification,
		fmt.Sprintf("call to `%s` is not allowed in a specification expression: not a pure function", functionName), pos).
		WithHelp("specification expressions may only call pure functions, ghost functions and lemmas").Build()
}

func BreakOutsideLoop(pos ast.Position) CompilerError {
	return NewSemanticError(ErrorBreakOutsideLoop, "`break` outside of a loop", pos).Build()
}

func ContinueOutsideLoop(pos ast.Position) CompilerError {
	return NewSemanticError(ErrorContinueOutsideLoop, "`continue` outside of a loop", pos).Build()
}

// VerificationFailed wraps a failure reported by the external verifier
// backend, after internal/verifier has remapped it to a source position.
func VerificationFailed(message string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorVerificationFailed, message, pos).Build()
}

// findSimilarNames returns candidates within Levenshtein distance 2 of
// target, closest first, capped at 3 suggestions.
func findSimilarNames(target string, candidates []string) []string {
	type scored struct {
		name string
		dist int
	}
	var scoredNames []scored
	for _, c := range candidates {
		if c == target {
			continue
		}
		d := levenshteinDistance(target, c)
		if d <= 2 {
			scoredNames = append(scoredNames, scored{c, d})
		}
	}
	for i := 1; i < len(scoredNames); i++ {
		for j := i; j > 0 && scoredNames[j-1].dist > scoredNames[j].dist; j-- {
			scoredNames[j-1], scoredNames[j] = scoredNames[j], scoredNames[j-1]
		}
	}
	limit := 3
	if len(scoredNames) < limit {
		limit = len(scoredNames)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = scoredNames[i].name
	}
	return out
}

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
