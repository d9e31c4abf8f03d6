package caos

import (
	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/types"
)

// Operand fetchers. Handlers call these in the order of their Params; each
// decodes one operand at the instruction pointer, evaluating producers and
// variables as it goes.

// Value fetches any rvalue.
func (c *Context) Value() (types.Value, error) {
	op, err := c.code.Operand()
	if err != nil {
		return nil, err
	}
	switch op.Tag {
	case bytecode.TagInt:
		return types.Integer(op.Int), nil
	case bytecode.TagFloat:
		return types.Float(op.Float), nil
	case bytecode.TagString:
		return types.String(op.Str), nil
	case bytecode.TagNumber:
		return c.produce(KindNumber, op.Op)
	case bytecode.TagText:
		return c.produce(KindString, op.Op)
	case bytecode.TagAgent:
		return c.produce(KindAgent, op.Op)
	case bytecode.TagVariant:
		return c.produce(KindVariant, op.Op)
	case bytecode.TagVar:
		p, err := c.access(op.Op)
		if err != nil {
			return nil, err
		}
		return *p, nil
	}
	return nil, NewRunError(ErrCorrupt, op.Tag)
}

func (c *Context) produce(kind Kind, id uint16) (types.Value, error) {
	d, ok := c.lang.Descriptor(kind, id)
	if !ok {
		return nil, NewRunError(ErrBadOpcode, kind.String(), id)
	}
	d, err := c.sub(d)
	if err != nil {
		return nil, err
	}
	return d.Eval(c)
}

func (c *Context) access(id uint16) (*types.Value, error) {
	d, ok := c.lang.Descriptor(KindVariable, id)
	if !ok {
		return nil, NewRunError(ErrBadOpcode, KindVariable.String(), id)
	}
	d, err := c.sub(d)
	if err != nil {
		return nil, err
	}
	return d.Access(c)
}

// Number fetches a numeric rvalue as an Integer or Float.
func (c *Context) Number() (types.Value, error) {
	v, err := c.Value()
	if err != nil {
		return nil, err
	}
	switch v.(type) {
	case nil:
		return types.Integer(0), nil
	case types.Integer, types.Float:
		return v, nil
	}
	return nil, NewRunError(ErrWrongType, "number", types.TypeName(v))
}

// Int fetches a numeric rvalue, truncating floats.
func (c *Context) Int() (int32, error) {
	v, err := c.Number()
	if err != nil {
		return 0, err
	}
	n, _ := types.ToInt(v)
	return n, nil
}

// Float fetches a numeric rvalue as a float.
func (c *Context) Float() (float32, error) {
	v, err := c.Number()
	if err != nil {
		return 0, err
	}
	f, _ := types.ToFloat(v)
	return f, nil
}

// Text fetches a string rvalue.
func (c *Context) Text() (string, error) {
	v, err := c.Value()
	if err != nil {
		return "", err
	}
	s, ok := v.(types.String)
	if !ok {
		return "", NewRunError(ErrWrongType, "string", types.TypeName(v))
	}
	return string(s), nil
}

// Agent fetches an agent rvalue. NULL is returned as nil.
func (c *Context) Agent() (types.Agent, error) {
	v, err := c.Value()
	if err != nil {
		return nil, err
	}
	switch h := v.(type) {
	case nil:
		return nil, nil
	case types.Handle:
		return h.Agent, nil
	}
	return nil, NewRunError(ErrWrongType, "agent", types.TypeName(v))
}

// ValidAgent fetches an agent rvalue that must be live.
func (c *Context) ValidAgent(role string) (types.Agent, error) {
	a, err := c.Agent()
	if err != nil {
		return nil, err
	}
	return valid(a, role)
}

func valid(a types.Agent, role string) (types.Agent, error) {
	if a == nil || !a.Alive() {
		return nil, NewRunError(ErrInvalidAgent, role)
	}
	return a, nil
}

// Variable fetches a variable reference.
func (c *Context) Variable() (*types.Value, error) {
	op, err := c.code.Operand()
	if err != nil {
		return nil, err
	}
	if op.Tag != bytecode.TagVar {
		return nil, NewRunError(ErrCorrupt, op.Tag)
	}
	return c.access(op.Op)
}

// Slot fetches the slot number following a slotted variable's opcode.
func (c *Context) Slot() (int, error) {
	b, err := c.code.Byte()
	if err != nil {
		return 0, err
	}
	if int(b) >= types.SlotCount {
		return 0, NewRunError(ErrSlotRange, int(b))
	}
	return int(b), nil
}

// Bytes fetches a byte-string.
func (c *Context) Bytes() ([]byte, error) { return c.code.Bytes() }

// Addr fetches a jump address.
func (c *Context) Addr() (int, error) { return c.code.Addr() }
