package caos

import (
	"strings"

	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/types"
)

// Condition evaluates a comparison chain. Clauses are combined strictly
// left to right with no precedence, and every clause is evaluated.
func (c *Context) Condition() (bool, error) {
	var result bool
	logic := bytecode.LogicEnd
	for {
		a, err := c.Value()
		if err != nil {
			return false, err
		}
		cmp, err := c.code.Byte()
		if err != nil {
			return false, err
		}
		b, err := c.Value()
		if err != nil {
			return false, err
		}
		ok, err := compare(a, cmp, b)
		if err != nil {
			return false, err
		}

		switch logic {
		case bytecode.LogicEnd:
			result = ok
		case bytecode.LogicAnd:
			result = result && ok
		case bytecode.LogicOr:
			result = result || ok
		}

		if logic, err = c.code.Byte(); err != nil {
			return false, err
		}
		switch logic {
		case bytecode.LogicEnd:
			return result, nil
		case bytecode.LogicAnd, bytecode.LogicOr:
		default:
			return false, NewRunError(ErrCorrupt, "logic byte")
		}
	}
}

// compare applies cmp to a and b. Integers compare as integers; if
// either side is a float both are compared as float64. Strings compare
// by bytes. Agents compare by identity and only for (in)equality. An
// unset variable is integer zero, or NULL next to an agent.
func compare(a types.Value, cmp byte, b types.Value) (bool, error) {
	if cmp > bytecode.CmpLE {
		return false, NewRunError(ErrCorrupt, "comparator")
	}
	if _, ok := a.(types.Handle); ok && b == nil {
		b = types.Null
	}
	if _, ok := b.(types.Handle); ok && a == nil {
		a = types.Null
	}

	switch x := a.(type) {
	case nil, types.Integer, types.Float:
		if !types.Numeric(b) {
			return false, mismatch(a, b)
		}
		_, af := a.(types.Float)
		_, bf := b.(types.Float)
		if af || bf {
			fa, _ := types.ToFloat64(a)
			fb, _ := types.ToFloat64(b)
			return ordered(fa, fb, cmp), nil
		}
		ia, _ := types.ToInt(a)
		ib, _ := types.ToInt(b)
		return ordered(ia, ib, cmp), nil
	case types.String:
		y, ok := b.(types.String)
		if !ok {
			return false, mismatch(a, b)
		}
		return ordered(strings.Compare(string(x), string(y)), 0, cmp), nil
	case types.Handle:
		y, ok := b.(types.Handle)
		if !ok {
			return false, mismatch(a, b)
		}
		switch cmp {
		case bytecode.CmpEQ:
			return x.Agent == y.Agent, nil
		case bytecode.CmpNE:
			return x.Agent != y.Agent, nil
		}
		return false, NewRunError(ErrAgentCompare)
	}
	return false, mismatch(a, b)
}

func mismatch(a, b types.Value) error {
	return NewRunError(ErrWrongType, types.TypeName(a), types.TypeName(b))
}

func ordered[T int | int32 | float64](a, b T, cmp byte) bool {
	switch cmp {
	case bytecode.CmpEQ:
		return a == b
	case bytecode.CmpNE:
		return a != b
	case bytecode.CmpGT:
		return a > b
	case bytecode.CmpGE:
		return a >= b
	case bytecode.CmpLT:
		return a < b
	}
	return a <= b
}
