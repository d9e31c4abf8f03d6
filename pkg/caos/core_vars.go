package caos

import "github.com/psilLang/caos/pkg/types"

func registerVars(l *Language) {
	cmd(l, "setv", setv, ParamVariable, ParamNumber)
	cmd(l, "addv", arith(add), ParamVariable, ParamNumber)
	cmd(l, "subv", arith(sub), ParamVariable, ParamNumber)
	cmd(l, "mulv", arith(mul), ParamVariable, ParamNumber)
	cmd(l, "divv", arith(div), ParamVariable, ParamNumber)
	cmd(l, "modv", bitwise("modv", func(a, b int32) (int32, error) {
		if b == 0 {
			return 0, NewRunError(ErrDivideByZero)
		}
		return a % b, nil
	}), ParamVariable, ParamNumber)
	cmd(l, "andv", bitwise("andv", func(a, b int32) (int32, error) { return a & b, nil }), ParamVariable, ParamNumber)
	cmd(l, "orrv", bitwise("orrv", func(a, b int32) (int32, error) { return a | b, nil }), ParamVariable, ParamNumber)
	cmd(l, "negv", unary(func(n int32) int32 { return -n }, func(f float32) float32 { return -f }), ParamVariable)
	cmd(l, "absv", unary(absInt, absFloat), ParamVariable)
	cmd(l, "sets", sets, ParamVariable, ParamString)
	cmd(l, "adds", adds, ParamVariable, ParamString)
	cmd(l, "seta", seta, ParamVariable, ParamAgent)

	slotted(l, "va", func(c *Context, i int) (*types.Value, error) {
		return &c.vars[i], nil
	})
	slotted(l, "ov", func(c *Context, i int) (*types.Value, error) {
		a, err := c.ValidTarg()
		if err != nil {
			return nil, err
		}
		return a.Slot(i), nil
	})
	slotted(l, "mv", func(c *Context, i int) (*types.Value, error) {
		a, err := valid(c.owner, "ownr")
		if err != nil {
			return nil, err
		}
		return a.Slot(i), nil
	})

	l.MustRegister(KindVariable, Descriptor{Name: "avar", Params: []Param{ParamAgent, ParamNumber}, Access: avar})
	l.MustRegister(KindVariable, Descriptor{Name: "game", Params: []Param{ParamString}, Access: func(c *Context) (*types.Value, error) {
		name, err := c.Text()
		if err != nil {
			return nil, err
		}
		return c.host.GameVar(name), nil
	}})
	l.MustRegister(KindVariable, Descriptor{Name: "name", Params: []Param{ParamString}, Access: func(c *Context) (*types.Value, error) {
		key, err := c.Text()
		if err != nil {
			return nil, err
		}
		a, err := valid(c.owner, "ownr")
		if err != nil {
			return nil, err
		}
		return a.Named(key), nil
	}})

	produce(l, KindVariant, "_p1_", func(c *Context) (types.Value, error) { return c.p1, nil })
	produce(l, KindVariant, "_p2_", func(c *Context) (types.Value, error) { return c.p2, nil })
}

func slotted(l *Language, prefix string, get func(c *Context, i int) (*types.Value, error)) {
	l.MustRegister(KindVariable, Descriptor{Name: prefix, Slotted: true, Access: func(c *Context) (*types.Value, error) {
		i, err := c.Slot()
		if err != nil {
			return nil, err
		}
		return get(c, i)
	}})
}

func avar(c *Context) (*types.Value, error) {
	a, err := c.ValidAgent("avar")
	if err != nil {
		return nil, err
	}
	i, err := c.Int()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= types.SlotCount {
		return nil, NewRunError(ErrSlotRange, i)
	}
	return a.Slot(int(i)), nil
}

func setv(c *Context) error {
	p, err := c.Variable()
	if err != nil {
		return err
	}
	v, err := c.Number()
	if err != nil {
		return err
	}
	*p = v
	return nil
}

type arithOp struct {
	ints   func(a, b int32) (int32, error)
	floats func(a, b float32) (float32, error)
}

var (
	add = arithOp{
		ints:   func(a, b int32) (int32, error) { return a + b, nil },
		floats: func(a, b float32) (float32, error) { return a + b, nil },
	}
	sub = arithOp{
		ints:   func(a, b int32) (int32, error) { return a - b, nil },
		floats: func(a, b float32) (float32, error) { return a - b, nil },
	}
	mul = arithOp{
		ints:   func(a, b int32) (int32, error) { return a * b, nil },
		floats: func(a, b float32) (float32, error) { return a * b, nil },
	}
	div = arithOp{
		ints: func(a, b int32) (int32, error) {
			if b == 0 {
				return 0, NewRunError(ErrDivideByZero)
			}
			return a / b, nil
		},
		floats: func(a, b float32) (float32, error) {
			if b == 0 {
				return 0, NewRunError(ErrDivideByZero)
			}
			return a / b, nil
		},
	}
)

// arith applies op to a numeric variable. Integer op integer stays an
// integer; a float on either side makes the result a float.
func arith(op arithOp) Handler {
	return func(c *Context) error {
		p, err := c.Variable()
		if err != nil {
			return err
		}
		rhs, err := c.Number()
		if err != nil {
			return err
		}
		lhs := *p
		if !types.Numeric(lhs) {
			return NewRunError(ErrWrongType, "number", types.TypeName(lhs))
		}
		_, lf := lhs.(types.Float)
		_, rf := rhs.(types.Float)
		if lf || rf {
			a, _ := types.ToFloat(lhs)
			b, _ := types.ToFloat(rhs)
			r, err := op.floats(a, b)
			if err != nil {
				return err
			}
			*p = types.Float(r)
			return nil
		}
		a, _ := types.ToInt(lhs)
		b, _ := types.ToInt(rhs)
		r, err := op.ints(a, b)
		if err != nil {
			return err
		}
		*p = types.Integer(r)
		return nil
	}
}

// bitwise applies an integer-only op; floats are rejected.
func bitwise(name string, op func(a, b int32) (int32, error)) Handler {
	return func(c *Context) error {
		p, err := c.Variable()
		if err != nil {
			return err
		}
		rhs, err := c.Number()
		if err != nil {
			return err
		}
		a, aok := (*p).(types.Integer)
		if *p == nil {
			aok = true
		}
		b, bok := rhs.(types.Integer)
		if !aok || !bok {
			return NewRunError(ErrWrongType, "integer for "+name, "float")
		}
		r, err := op(int32(a), int32(b))
		if err != nil {
			return err
		}
		*p = types.Integer(r)
		return nil
	}
}

func unary(ints func(int32) int32, floats func(float32) float32) Handler {
	return func(c *Context) error {
		p, err := c.Variable()
		if err != nil {
			return err
		}
		switch v := (*p).(type) {
		case nil:
			*p = types.Integer(0)
		case types.Integer:
			*p = types.Integer(ints(int32(v)))
		case types.Float:
			*p = types.Float(floats(float32(v)))
		default:
			return NewRunError(ErrWrongType, "number", types.TypeName(v))
		}
		return nil
	}
}

func absInt(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}

func absFloat(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func sets(c *Context) error {
	p, err := c.Variable()
	if err != nil {
		return err
	}
	s, err := c.Text()
	if err != nil {
		return err
	}
	*p = types.String(s)
	return nil
}

func adds(c *Context) error {
	p, err := c.Variable()
	if err != nil {
		return err
	}
	s, err := c.Text()
	if err != nil {
		return err
	}
	switch v := (*p).(type) {
	case nil:
		*p = types.String(s)
	case types.String:
		*p = v + types.String(s)
	default:
		return NewRunError(ErrWrongType, "string", types.TypeName(v))
	}
	return nil
}

func seta(c *Context) error {
	p, err := c.Variable()
	if err != nil {
		return err
	}
	a, err := c.Agent()
	if err != nil {
		return err
	}
	*p = types.Handle{Agent: a}
	return nil
}
