package caos

import (
	"fmt"
	"strings"

	"github.com/psilLang/caos/pkg/bytecode"
)

// Disassemble renders unit as one instruction per line, prefixed with its
// address. Jump and label operands are shown as @address.
func (l *Language) Disassemble(unit *bytecode.Unit) (string, error) {
	d := &disassembler{lang: l, r: bytecode.NewReader(unit.Code())}
	var sb strings.Builder
	for !d.r.AtEnd() {
		at := d.r.Pos()
		line, err := d.instruction()
		if err != nil {
			return sb.String(), fmt.Errorf("disassemble at %04x: %w", at, err)
		}
		fmt.Fprintf(&sb, "%04x  %s\n", at, line)
	}
	return sb.String(), nil
}

type disassembler struct {
	lang *Language
	r    *bytecode.Reader
}

func (d *disassembler) instruction() (string, error) {
	id, err := d.r.Op()
	if err != nil {
		return "", err
	}
	desc, ok := d.lang.Descriptor(KindCommand, id)
	if !ok {
		return "", fmt.Errorf("unknown command %d", id)
	}
	return d.call(desc)
}

// call renders a descriptor whose opcode has been read, with its operands.
func (d *disassembler) call(desc *Descriptor) (string, error) {
	parts := []string{desc.Name}
	if len(desc.Sub) > 0 {
		idx, err := d.r.Op()
		if err != nil {
			return "", err
		}
		if int(idx) >= len(desc.Sub) {
			return "", fmt.Errorf("%s: sub-command %d out of range", desc.Name, idx)
		}
		desc = &desc.Sub[idx]
		parts = append(parts, desc.Name)
	}
	for _, p := range desc.Params {
		s, err := d.param(p)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "), nil
}

func (d *disassembler) param(p Param) (string, error) {
	switch p {
	case ParamAddr, ParamLabel:
		addr, err := d.r.Addr()
		return fmt.Sprintf("@%04x", addr), err
	case ParamBytes:
		b, err := d.r.Bytes()
		if err != nil {
			return "", err
		}
		nums := make([]string, len(b))
		for i, v := range b {
			nums[i] = fmt.Sprint(v)
		}
		return "[" + strings.Join(nums, " ") + "]", nil
	case ParamCondition:
		return d.condition()
	}
	return d.operand()
}

func (d *disassembler) operand() (string, error) {
	op, err := d.r.Operand()
	if err != nil {
		return "", err
	}
	if op.Tag.Literal() {
		return op.String(), nil
	}
	kind, ok := tagKinds[op.Tag]
	if !ok {
		return "", fmt.Errorf("bad operand tag %s", op.Tag)
	}
	desc, ok := d.lang.Descriptor(kind, op.Op)
	if !ok {
		return "", fmt.Errorf("unknown %s %d", kind, op.Op)
	}
	if desc.Slotted {
		slot, err := d.r.Byte()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s%02d", desc.Name, slot), nil
	}
	return d.call(desc)
}

var tagKinds = map[bytecode.Tag]Kind{
	bytecode.TagNumber:  KindNumber,
	bytecode.TagText:    KindString,
	bytecode.TagAgent:   KindAgent,
	bytecode.TagVariant: KindVariant,
	bytecode.TagVar:     KindVariable,
}

func (d *disassembler) condition() (string, error) {
	var parts []string
	for {
		a, err := d.operand()
		if err != nil {
			return "", err
		}
		cmp, err := d.r.Byte()
		if err != nil {
			return "", err
		}
		b, err := d.operand()
		if err != nil {
			return "", err
		}
		parts = append(parts, a, bytecode.ComparatorName(cmp), b)

		logic, err := d.r.Byte()
		if err != nil {
			return "", err
		}
		switch logic {
		case bytecode.LogicEnd:
			return strings.Join(parts, " "), nil
		case bytecode.LogicAnd:
			parts = append(parts, "and")
		case bytecode.LogicOr:
			parts = append(parts, "or")
		default:
			return "", fmt.Errorf("bad logic byte %d", logic)
		}
	}
}
