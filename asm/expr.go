package asm

import (
	"regexp"
	"strconv"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// exprPattern matches $(...) with at most one level of nested parentheses.
var exprPattern = regexp.MustCompile(`\$\(((?:[^()]|\([^()]*\))*)\)`)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// evalExpression evaluates a compile-time expression. Every label that is
// a valid identifier is predeclared as its byte address, and pc holds the
// address of the instruction being assembled.
func evalExpression(expr string, symbols *SymbolTable, address uint64) (int64, error) {
	thread := starlark.Thread{Name: "expr"}
	opts := syntax.FileOptions{}

	pred := starlark.StringDict{
		"pc": starlark.MakeUint64(address),
	}
	for _, sym := range symbols.Symbols() {
		if identPattern.MatchString(sym.Label) {
			pred[sym.Label] = starlark.MakeUint64(sym.Address)
		}
	}

	prog := "rc = " + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return 0, err
	}

	rc, ok := dict["rc"].(starlark.Int)
	if !ok {
		return 0, ErrExpression(expr)
	}
	value, ok := rc.Int64()
	if !ok {
		return 0, ErrExpression(expr)
	}

	return value, nil
}

// expandExpressions replaces every $(...) in line with its decimal value.
func expandExpressions(line string, symbols *SymbolTable, address uint64) (string, error) {
	var err error
	out := exprPattern.ReplaceAllStringFunc(line, func(match string) string {
		if err != nil {
			return match
		}
		value, evalErr := evalExpression(match[2:len(match)-1], symbols, address)
		if evalErr != nil {
			err = evalErr
			return match
		}
		return strconv.FormatInt(value, 10)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
