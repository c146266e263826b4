package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"civl/internal/ast"
)

func TestErrorReporter(t *testing.T) {
	source := `contract Test {
    fn test() -> uint256 {
        let x = unknownVar;
        return x;
    }
}`

	reporter := NewErrorReporter("test.ka", source)

	err := UndefinedVariable("unknownVar", ast.Position{Line: 3, Column: 17}, []string{"knownVar", "anotherVar"})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrorUndefinedVariable+"]")
	assert.Contains(t, formatted, "unknownVar")
	assert.Contains(t, formatted, "test.ka:3:17")
}

func TestUndefinedVariableError(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 5}

	err := UndefinedVariable("balace", pos, []string{"balance"})
	assert.Equal(t, ErrorUndefinedVariable, err.Code)
	assert.Contains(t, err.Message, "balace")
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0].Message, "balance")

	err = UndefinedVariable("xyz", pos, []string{})
	assert.Empty(t, err.Suggestions)
}

func TestUndefinedFunctionError(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 5}

	err := UndefinedFunction("sende", pos, []string{"sender"})
	assert.Equal(t, ErrorUndefinedFunction, err.Code)
	assert.Contains(t, err.Message, "sende")
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0].Message, "sender")
}

func TestTypeMismatchError(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 5}

	err := TypeMismatch("uint256", "uint64", pos)
	assert.Equal(t, ErrorTypeMismatch, err.Code)
	assert.Contains(t, err.Message, "uint256")
	assert.Contains(t, err.Message, "uint64")
}

func TestFieldNotFoundError(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 5}

	err := FieldNotFound("Person", "nam", pos, []string{"name", "age", "email"})
	assert.Equal(t, ErrorFieldNotFound, err.Code)
	assert.Contains(t, err.Message, "Person")
	assert.Contains(t, err.Message, "nam")
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0].Message, "name")
}

func TestUnknownResourceError(t *testing.T) {
	pos := ast.Position{Line: 2, Column: 3}

	err := UnknownResource("toekn", pos, []string{"token"})
	assert.Equal(t, ErrorUnknownResource, err.Code)
	assert.Contains(t, err.Suggestions[0].Message, "token")
}

func TestInvalidPerformsClauseError(t *testing.T) {
	pos := ast.Position{Line: 4, Column: 1}

	err := InvalidPerformsClause("exchange", "token", pos)
	assert.Equal(t, ErrorInvalidPerformsClause, err.Code)
	assert.Contains(t, err.Message, "exchange")
	assert.Contains(t, err.Message, "token")
}

func TestErrorMarkerCreation(t *testing.T) {
	source := `let variable = value;`
	reporter := NewErrorReporter("test.ka", source)

	marker := reporter.createMarker(5, 8, Error)

	spaces := strings.Count(marker, " ")
	assert.Equal(t, 4, spaces)
	carets := strings.Count(marker, "^")
	assert.Equal(t, 8, carets)
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("hello", "hello"))
	assert.Equal(t, 1, levenshteinDistance("hello", "hallo"))
	assert.Equal(t, 1, levenshteinDistance("hello", "helo"))
	assert.Equal(t, 5, levenshteinDistance("hello", ""))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}

func TestSimilarNameFinding(t *testing.T) {
	candidates := []string{"balance", "amount", "total", "balanceOf", "xyz"}

	similar := findSimilarNames("balace", candidates)
	assert.Contains(t, similar, "balance")
	assert.NotContains(t, similar, "xyz")

	similar = findSimilarNames("verydifferent", candidates)
	assert.Empty(t, similar)
}

func TestErrorLevels(t *testing.T) {
	source := `test`
	reporter := NewErrorReporter("test.ka", source)
	pos := ast.Position{Line: 1, Column: 1}

	errorErr := CompilerError{Level: Error, Message: "test error", Position: pos}
	warningErr := CompilerError{Level: Warning, Message: "test warning", Position: pos}

	assert.Contains(t, reporter.FormatError(errorErr), "error:")
	assert.Contains(t, reporter.FormatError(warningErr), "warning:")
}
