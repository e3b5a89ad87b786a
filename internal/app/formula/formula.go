// Package formula implements the Safe Formula Evaluator (spec.md §4.1): a
// restricted arithmetic expression language compiled and evaluated over a
// float environment, with a fixed whitelist of nodes and functions. It
// never delegates to a general-purpose host evaluator — the grammar is
// parsed and interpreted entirely by this package's own lexer, parser, and
// stack machine.
package formula

import (
	"context"
	"fmt"
	"time"
)

// ExtractIdentifiers returns the free variable names referenced on the
// right-hand side of any statement in script, in deterministic,
// order-stable (first-appearance) order. A name assigned earlier in the
// script is not "free" by the time a later statement reads it, matching
// top-to-bottom evaluation order.
func ExtractIdentifiers(script string) ([]string, error) {
	stmts, err := parseScript(script)
	if err != nil {
		return nil, err
	}

	assigned := map[string]bool{}
	seen := map[string]bool{}
	var free []string

	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case Ident:
			if !assigned[n.Name] && !seen[n.Name] {
				seen[n.Name] = true
				free = append(free, n.Name)
			}
		case Unary:
			walk(n.X)
		case Binary:
			walk(n.L)
			walk(n.R)
		case Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}

	for _, stmt := range stmts {
		walk(stmt.Expr)
		assigned[stmt.Name] = true
	}
	return free, nil
}

// EvaluateScript parses and runs script top-to-bottom, left-to-right
// against env, returning the final environment (env plus every assigned
// variable). It fails with *InvalidFormulaError if the script contains a
// node outside the whitelisted grammar, with *ExecutionError if evaluation
// divides by zero or produces a non-finite value, and with ErrMissingValue
// if no statement ever assigns "value".
func EvaluateScript(ctx context.Context, script string, env map[string]float64, timeoutSecs float64) (map[string]float64, error) {
	stmts, err := parseScript(script)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return nil, &InvalidFormulaError{Reason: "script contains no statements"}
	}

	timeout := ctxDeadlineOrDefault(ctx, timeoutSecs)
	result, err := evaluateStatements(stmts, env, timeout)
	if err != nil {
		return nil, err
	}
	if _, ok := result["value"]; !ok {
		return nil, ErrMissingValue
	}
	return result, nil
}

// ValidateFormula performs a static lint of script without evaluating it:
// it still parses (so a script violating the grammar fails exactly as
// EvaluateScript would), then reports non-fatal warnings.
func ValidateFormula(script string, maxLines int) ([]string, error) {
	stmts, err := parseScript(script)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if maxLines > 0 && len(stmts) > maxLines {
		warnings = append(warnings, fmt.Sprintf("script has %d statements, exceeding the recommended maximum of %d", len(stmts), maxLines))
	}

	assignsValue := false
	assigned := make(map[string]int, len(stmts))
	for _, stmt := range stmts {
		if stmt.Name == "value" {
			assignsValue = true
		}
		assigned[stmt.Name]++
	}
	if !assignsValue {
		warnings = append(warnings, "script never assigns a variable named \"value\"")
	}
	for name, count := range assigned {
		if count > 1 {
			warnings = append(warnings, fmt.Sprintf("variable %q is reassigned %d times", name, count))
		}
	}

	// Detect assigned-but-never-read variables (aside from "value", which is
	// the script's output by convention).
	read := map[string]bool{}
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case Ident:
			read[n.Name] = true
		case Unary:
			walk(n.X)
		case Binary:
			walk(n.L)
			walk(n.R)
		case Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	for _, stmt := range stmts {
		walk(stmt.Expr)
	}
	for _, stmt := range stmts {
		if stmt.Name == "value" {
			continue
		}
		if !read[stmt.Name] {
			warnings = append(warnings, fmt.Sprintf("variable %q is assigned but never used", stmt.Name))
		}
	}

	return warnings, nil
}

// defaultTimeout is used when callers pass a non-positive timeoutSecs and
// supply no context deadline.
const defaultTimeout = 5 * time.Second
