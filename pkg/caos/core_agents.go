package caos

import "github.com/psilLang/caos/pkg/types"

func registerAgents(l *Language) {
	cmd(l, "targ", func(c *Context) error {
		a, err := c.Agent()
		if err != nil {
			return err
		}
		c.targ = a
		return nil
	}, ParamAgent)
	cmd(l, "kill", func(c *Context) error {
		a, err := c.ValidAgent("kill")
		if err != nil {
			return err
		}
		return c.host.Kill(a)
	}, ParamAgent)
	cmd(l, "mvto", mvto, ParamNumber, ParamNumber)

	l.MustRegister(KindCommand, Descriptor{
		Name:   "new:",
		Params: []Param{ParamSub},
		Sub: []Descriptor{
			{Name: "simp", Params: []Param{ParamNumber, ParamNumber, ParamNumber}, Exec: newSimple},
			{Name: "comp", Params: []Param{ParamNumber, ParamNumber, ParamNumber}, Exec: newCompound},
		},
	})
	l.MustRegister(KindCommand, Descriptor{
		Name:   "mesg",
		Params: []Param{ParamSub},
		Sub: []Descriptor{
			{Name: "writ", Params: []Param{ParamAgent, ParamNumber}, Exec: mesgWrite},
			{Name: "wrt+", Params: []Param{ParamAgent, ParamNumber, ParamGeneric, ParamGeneric, ParamNumber}, Exec: mesgWritePlus},
		},
	})

	role := func(name string, get func(c *Context) types.Agent) {
		produce(l, KindAgent, name, func(c *Context) (types.Value, error) {
			return types.Handle{Agent: get(c)}, nil
		})
	}
	role("targ", func(c *Context) types.Agent { return c.targ })
	role("ownr", func(c *Context) types.Agent { return c.owner })
	role("from", func(c *Context) types.Agent { return c.from })
	role("_it_", func(c *Context) types.Agent { return c.it })
	role("null", func(*Context) types.Agent { return nil })

	produce(l, KindAgent, "agnt", func(c *Context) (types.Value, error) {
		id, err := c.Int()
		if err != nil {
			return nil, err
		}
		return types.Handle{Agent: c.host.AgentByID(id)}, nil
	}, ParamNumber)
}

func mvto(c *Context) error {
	x, err := c.Float()
	if err != nil {
		return err
	}
	y, err := c.Float()
	if err != nil {
		return err
	}
	a, err := c.ValidTarg()
	if err != nil {
		return err
	}
	return c.host.Move(a, x, y)
}

func newSimple(c *Context) error {
	class, err := classifier(c)
	if err != nil {
		return err
	}
	a, err := c.host.NewAgent(class)
	if err != nil {
		return err
	}
	c.targ = a
	return nil
}

// newCompound creates its agent on the tick after the command runs, so
// the script blocks once.
func newCompound(c *Context) error {
	class, err := classifier(c)
	if err != nil {
		return err
	}
	c.Block(ContinuationFunc(func(c *Context) (bool, error) {
		a, err := c.host.NewAgent(class)
		if err != nil {
			return false, err
		}
		c.targ = a
		return true, nil
	}))
	return nil
}

func mesgWrite(c *Context) error {
	to, err := c.ValidAgent("mesg writ")
	if err != nil {
		return err
	}
	event, err := c.Int()
	if err != nil {
		return err
	}
	return c.host.Send(Message{From: c.owner, To: to, Event: event})
}

func mesgWritePlus(c *Context) error {
	to, err := c.ValidAgent("mesg wrt+")
	if err != nil {
		return err
	}
	event, err := c.Int()
	if err != nil {
		return err
	}
	p1, err := c.Value()
	if err != nil {
		return err
	}
	p2, err := c.Value()
	if err != nil {
		return err
	}
	delay, err := c.Int()
	if err != nil {
		return err
	}
	if delay < 0 {
		return NewRunError(ErrNegative, delay, "mesg wrt+")
	}
	return c.host.Send(Message{From: c.owner, To: to, Event: event, P1: p1, P2: p2, Delay: delay})
}
