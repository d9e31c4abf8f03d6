package caos

import "github.com/psilLang/caos/pkg/types"

func registerFlow(l *Language) {
	blockCmd(l, "doif", RoleOpen, BlockConditional, doif, ParamCondition, ParamAddr)
	blockCmd(l, "elif", RoleAlternative, BlockConditional, jump, ParamAddr)
	blockCmd(l, "else", RoleElse, BlockConditional, jump, ParamAddr)
	blockCmd(l, "endi", RoleClose, BlockConditional, nop)

	blockCmd(l, "reps", RoleOpen, BlockRepeat, reps, ParamNumber, ParamAddr)
	blockCmd(l, "repe", RoleClose, BlockRepeat, repe, ParamAddr)

	blockCmd(l, "loop", RoleOpen, BlockLoop, nop)
	blockCmd(l, "untl", RoleClose, BlockLoop, untl, ParamCondition, ParamAddr)
	blockCmd(l, "ever", RoleClose, BlockLoop, jump, ParamAddr)

	blockCmd(l, "enum", RoleOpen, BlockEnumeration, enum, ParamNumber, ParamNumber, ParamNumber, ParamAddr)
	blockCmd(l, "esee", RoleOpen, BlockEnumeration, esee, ParamNumber, ParamNumber, ParamNumber, ParamAddr)
	blockCmd(l, "next", RoleClose, BlockEnumeration, next, ParamAddr)

	blockCmd(l, "subr", RoleLabel, BlockNone, stop)
	cmd(l, "gsub", gsub, ParamLabel)
	blockCmd(l, "retn", RoleReturn, BlockNone, retn)
	blockCmd(l, "stop", RoleTerminate, BlockNone, stop)

	cmd(l, "wait", wait, ParamNumber)
	cmd(l, "inst", func(c *Context) error { c.fast = true; return nil })
	cmd(l, "slow", func(c *Context) error { c.fast = false; return nil })
	cmd(l, "lock", func(c *Context) error { c.locked = true; return nil })
	cmd(l, "unlk", func(c *Context) error { c.locked = false; return nil })
}

func nop(*Context) error { return nil }

func stop(c *Context) error {
	c.finish()
	return nil
}

func jump(c *Context) error {
	addr, err := c.Addr()
	if err != nil {
		return err
	}
	return c.Jump(addr)
}

func doif(c *Context) error {
	ok, err := c.Condition()
	if err != nil {
		return err
	}
	addr, err := c.Addr()
	if err != nil || ok {
		return err
	}
	return c.Jump(addr)
}

func untl(c *Context) error {
	ok, err := c.Condition()
	if err != nil {
		return err
	}
	addr, err := c.Addr()
	if err != nil || ok {
		return err
	}
	return c.Jump(addr)
}

// reps keeps the remaining count on the numeric stack while the body runs.
func reps(c *Context) error {
	n, err := c.Int()
	if err != nil {
		return err
	}
	skip, err := c.Addr()
	if err != nil {
		return err
	}
	if n < 0 {
		return NewRunError(ErrNegative, n, "reps")
	}
	if n == 0 {
		return c.Jump(skip)
	}
	c.PushInt(n)
	return nil
}

func repe(c *Context) error {
	body, err := c.Addr()
	if err != nil {
		return err
	}
	n, err := c.PopInt()
	if err != nil {
		return err
	}
	if n--; n > 0 {
		c.PushInt(n)
		return c.Jump(body)
	}
	return nil
}

func enum(c *Context) error {
	class, skip, err := enumOperands(c)
	if err != nil {
		return err
	}
	return enumStart(c, c.host.Enumerate(class), skip)
}

func esee(c *Context) error {
	class, skip, err := enumOperands(c)
	if err != nil {
		return err
	}
	owner, err := valid(c.owner, "ownr")
	if err != nil {
		return err
	}
	return enumStart(c, c.host.Visible(owner, class), skip)
}

func enumOperands(c *Context) (types.Classifier, int, error) {
	class, err := classifier(c)
	if err != nil {
		return class, 0, err
	}
	skip, err := c.Addr()
	return class, skip, err
}

func classifier(c *Context) (types.Classifier, error) {
	var parts [3]int32
	for i := range parts {
		n, err := c.Int()
		if err != nil {
			return types.Classifier{}, err
		}
		parts[i] = n
	}
	return types.NewClassifier(parts[0], parts[1], parts[2], 0), nil
}

// enumStart saves targ and the pending agents on the agent stack and the
// pending count on the numeric stack, then enters the body with targ set
// to the first match. With no matches the body is skipped and targ kept.
func enumStart(c *Context, agents []types.Agent, skip int) error {
	live := agents[:0:0]
	for _, a := range agents {
		if a != nil && a.Alive() {
			live = append(live, a)
		}
	}
	if len(live) == 0 {
		return c.Jump(skip)
	}
	c.PushAgent(c.targ)
	for i := len(live) - 1; i >= 1; i-- {
		c.PushAgent(live[i])
	}
	c.PushInt(int32(len(live) - 1))
	c.targ = live[0]
	return nil
}

// next moves targ to the next pending agent still alive, or restores the
// saved targ once none remain.
func next(c *Context) error {
	body, err := c.Addr()
	if err != nil {
		return err
	}
	left, err := c.PopInt()
	if err != nil {
		return err
	}
	for left > 0 {
		a, err := c.PopAgent()
		if err != nil {
			return err
		}
		left--
		if a != nil && a.Alive() {
			c.PushInt(left)
			c.targ = a
			return c.Jump(body)
		}
	}
	saved, err := c.PopAgent()
	if err != nil {
		return err
	}
	c.targ = saved
	return nil
}

func gsub(c *Context) error {
	addr, err := c.Addr()
	if err != nil {
		return err
	}
	c.PushInt(int32(c.code.Pos()))
	return c.Jump(addr)
}

func retn(c *Context) error {
	ret, err := c.PopInt()
	if err != nil {
		return err
	}
	return c.Jump(int(ret))
}

type waitFor struct {
	ticks int32
}

func (w *waitFor) Resume(*Context) (bool, error) {
	w.ticks--
	return w.ticks <= 0, nil
}

func wait(c *Context) error {
	n, err := c.Int()
	if err != nil {
		return err
	}
	if n < 0 {
		return NewRunError(ErrNegative, n, "wait")
	}
	if n > 0 {
		c.Block(&waitFor{ticks: n})
	}
	return nil
}
