package engine

import (
	"fmt"
	"math"

	"gridsheet/internal/formula"
	"gridsheet/internal/refs"
)

// eval computes the numeric value of node against base. It reads cell
// values through the table and never mutates it. References to cells
// that have no record read as 0.
//
// Unknown function names and wrong arities are contract violations (the
// parser only produces the closed function set) and come back as plain
// errors rather than typed ones.
func (t *Table) eval(node formula.Node, base refs.Ref) (float64, error) {
	switch n := node.(type) {
	case formula.Number:
		return n.Value, nil
	case formula.CellRef:
		if c, ok := t.cells[n.Resolve(base).String()]; ok {
			return c.value, nil
		}
		return 0, nil
	case formula.Apply:
		args := make([]float64, len(n.Args))
		for i, arg := range n.Args {
			v, err := t.eval(arg, base)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return apply(n.Fn, args)
	}
	return 0, fmt.Errorf("unknown ast node %T", node)
}

// apply dispatches the fixed function library. Division by zero is not
// special-cased: it yields IEEE Inf/NaN, which propagates as a value.
func apply(fn string, args []float64) (float64, error) {
	switch fn {
	case "+":
		if len(args) != 2 {
			return 0, arityErr(fn, len(args))
		}
		return args[0] + args[1], nil
	case "-":
		// overloaded on arity: one argument negates, two subtracts
		switch len(args) {
		case 1:
			return -args[0], nil
		case 2:
			return args[0] - args[1], nil
		}
		return 0, arityErr(fn, len(args))
	case "*":
		if len(args) != 2 {
			return 0, arityErr(fn, len(args))
		}
		return args[0] * args[1], nil
	case "/":
		if len(args) != 2 {
			return 0, arityErr(fn, len(args))
		}
		return args[0] / args[1], nil
	case "min":
		if len(args) != 2 {
			return 0, arityErr(fn, len(args))
		}
		return math.Min(args[0], args[1]), nil
	case "max":
		if len(args) != 2 {
			return 0, arityErr(fn, len(args))
		}
		return math.Max(args[0], args[1]), nil
	}
	return 0, fmt.Errorf("unknown function %q", fn)
}

func arityErr(fn string, n int) error {
	return fmt.Errorf("function %q does not take %d arguments", fn, n)
}
