// Package builtins enumerates the primitive type names of the contract
// source language: signed/unsigned integers of fixed width, booleans and
// the address type. These are the leaves that internal/types builds IVL
// sorts and bounds predicates from.
package builtins

import "fmt"

// BuiltinType is the lexical spelling of a primitive type, e.g. "uint256"
// or "int128".
type BuiltinType string

const (
	Bool    BuiltinType = "bool"
	Address BuiltinType = "address"
)

var integerWidths = []int{8, 16, 32, 64, 128, 256}

// IntegerTypes contains every valid signed and unsigned integer spelling,
// e.g. "uint256", "int128".
var IntegerTypes = buildIntegerTypes()

func buildIntegerTypes() map[string]bool {
	m := make(map[string]bool, len(integerWidths)*2)
	for _, w := range integerWidths {
		m[fmt.Sprintf("uint%d", w)] = true
		m[fmt.Sprintf("int%d", w)] = true
	}
	return m
}

// BuiltinTypes contains every non-generic built-in type name.
var BuiltinTypes = buildBuiltinTypes()

func buildBuiltinTypes() map[string]bool {
	m := map[string]bool{
		string(Bool):    true,
		string(Address): true,
	}
	for name := range IntegerTypes {
		m[name] = true
	}
	return m
}

// IsBuiltinType reports whether typeName names a primitive type.
func IsBuiltinType(typeName string) bool {
	return BuiltinTypes[typeName]
}

// IsIntegerType reports whether typeName is a fixed-width integer type.
func IsIntegerType(typeName string) bool {
	return IntegerTypes[typeName]
}

// IsSignedInteger reports whether an integer type spelling is signed.
func IsSignedInteger(typeName string) bool {
	return IsIntegerType(typeName) && len(typeName) >= 3 && typeName[:3] == "int"
}

// IntegerWidth returns the bit width encoded in an integer type's name,
// e.g. IntegerWidth("uint256") == 256. ok is false for non-integer names.
func IntegerWidth(typeName string) (width int, ok bool) {
	if !IsIntegerType(typeName) {
		return 0, false
	}
	prefix := "uint"
	if IsSignedInteger(typeName) {
		prefix = "int"
	}
	var w int
	if _, err := fmt.Sscanf(typeName[len(prefix):], "%d", &w); err != nil {
		return 0, false
	}
	return w, true
}

// AddressWidth is the bit width of the address type, modeled as a bounded
// unsigned integer.
const AddressWidth = 160
