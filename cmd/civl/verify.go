// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"civl/internal/errors"
	"civl/internal/parser"
	"civl/internal/semantic"
	"civl/internal/translate"
	"civl/internal/verifier"
)

var (
	flagBackend            string
	flagIDEMode            bool
	flagShowVerifierErrors bool
	flagTimeoutSeconds     int
	flagSMTPath            string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Verify an annotated contract source file",
	Long: `verify parses, type-checks, translates and verifies one contract
source file, reporting either success or a list of failing positions.

Examples:
  civl verify token.ka
  civl verify token.ka --ide-mode
  civl verify token.ka --backend=alt --timeout=30`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&flagBackend, "backend", "default", "verifier backend: default or alt")
	verifyCmd.Flags().BoolVar(&flagIDEMode, "ide-mode", false, "emit one \"file:line:col: message\" line per failure")
	verifyCmd.Flags().BoolVar(&flagShowVerifierErrors, "show-verifier-errors", false, "forward the external verifier's stderr")
	verifyCmd.Flags().IntVar(&flagTimeoutSeconds, "timeout", 0, "verifier timeout in seconds (0 means no timeout)")
	verifyCmd.Flags().StringVar(&flagSMTPath, "smt-path", "", "override SMT_SOLVER_PATH for this run")
}

// runVerify drives C1 through C13 over one source file: parse, analyze
// (C3, C4), encode (C6 through C12), verify, back-map (C13). Every stage
// short-circuits the next on failure per spec.md §7's propagation policy:
// translation errors never reach the verifier, and a verifier failure
// never masks an earlier translation error.
func runVerify(cmd *cobra.Command, args []string) error {
	path := args[0]

	contract, err := parser.ParseFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to parse %s: %v\n", path, err)
		return fmt.Errorf("parse failed")
	}

	analyzer := semantic.NewAnalyzer()
	diags := analyzer.Analyze(contract)
	if hasErrors(diags) {
		reportDiagnostics(path, diags)
		return fmt.Errorf("invalid program: %d error(s)", countErrors(diags))
	}

	program, reg, transErrs := translate.EncodeProgram(analyzer.Context)
	if hasErrors(transErrs) {
		reportDiagnostics(path, transErrs)
		return fmt.Errorf("invalid program: %d error(s)", countErrors(transErrs))
	}

	smtPath, auxPath, err := resolveVerifierPaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return err
	}

	opts := verifier.Options{
		Backend:            flagBackend,
		SMTSolverPath:      smtPath,
		AuxVerifierPath:    auxPath,
		ShowVerifierStderr: flagShowVerifierErrors,
	}
	if flagTimeoutSeconds > 0 {
		opts.Timeout = time.Duration(flagTimeoutSeconds) * time.Second
	}

	client := verifier.NewProcessClient()
	result, err := client.Verify(context.Background(), program, opts)
	if err != nil {
		var unavail *verifier.UnavailableError
		if ok := asUnavailable(err, &unavail); ok {
			fmt.Fprintf(os.Stderr, "error: %s\n", unavail.Error())
			return unavail
		}
		fmt.Fprintf(os.Stderr, "error: verifier run failed: %v\n", err)
		return err
	}

	if result.Verified {
		fmt.Printf("%s verified\n", path)
		return nil
	}

	diagnostics := verifier.BackMap(reg, result.Failures)
	if flagIDEMode {
		for _, line := range verifier.FormatIDE(diagnostics) {
			fmt.Println(line)
		}
	} else {
		lines := make([]string, len(diagnostics))
		for i, d := range diagnostics {
			p := d.CompilerError.Position
			lines[i] = fmt.Sprintf("%s:%d:%d: %s", p.Filename, p.Line, p.Column, d.CompilerError.Message)
		}
		fmt.Print(bulletList("Verification failed\nErrors:", lines))
	}
	return fmt.Errorf("verification failed: %d failure(s)", len(diagnostics))
}

func resolveVerifierPaths() (smtPath, auxPath string, err error) {
	smtPath, auxPath, err = verifier.ResolveFromEnv()
	if err != nil {
		return "", "", err
	}
	if flagSMTPath != "" {
		smtPath = flagSMTPath
	}
	return smtPath, auxPath, nil
}

func asUnavailable(err error, target **verifier.UnavailableError) bool {
	if u, ok := err.(*verifier.UnavailableError); ok {
		*target = u
		return true
	}
	return false
}

func hasErrors(diags []errors.CompilerError) bool {
	return countErrors(diags) > 0
}

func countErrors(diags []errors.CompilerError) int {
	n := 0
	for _, d := range diags {
		if d.Level == errors.Error {
			n++
		}
	}
	return n
}

// reportDiagnostics renders a batch of pre-verification diagnostics
// (parse, symbol-check or translation errors) using the same
// Rust-style ErrorReporter the rest of the pipeline's diagnostics use.
func reportDiagnostics(path string, diags []errors.CompilerError) {
	source, readErr := os.ReadFile(path)
	text := ""
	if readErr == nil {
		text = string(source)
	}
	reporter := errors.NewErrorReporter(path, text)
	for _, d := range diags {
		fmt.Fprint(os.Stderr, reporter.FormatError(d))
	}
}
