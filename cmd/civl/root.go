// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "civl",
	Short: "civl verifies annotated smart-contract source against its specification",
	Long: `civl translates a contract annotated with preconditions, postconditions,
invariants and resource specifications into an Intermediate Verification
Language program, hands it to an external SMT-backed verifier, and maps
any reported counterexample back to the offending source location.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func bulletList(title string, lines []string) string {
	out := title + "\n"
	for _, l := range lines {
		out += fmt.Sprintf("  - %s\n", l)
	}
	return out
}
