package caos

import (
	"bufio"
	"errors"
	"io"

	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/types"
)

// State is the execution state of a context.
type State uint8

const (
	Finished State = iota // nothing to run
	Fetching              // decoding the next instruction
	Blocking              // waiting on a continuation
)

func (s State) String() string {
	switch s {
	case Finished:
		return "finished"
	case Fetching:
		return "fetching"
	case Blocking:
		return "blocking"
	}
	return "unknown"
}

// Continuation is resumed once per Step call while a context blocks.
// Resume returns true once the blocking operation has completed.
type Continuation interface {
	Resume(c *Context) (done bool, err error)
}

// ContinuationFunc adapts a function to Continuation.
type ContinuationFunc func(c *Context) (bool, error)

func (f ContinuationFunc) Resume(c *Context) (bool, error) { return f(c) }

// MaxNesting bounds how deeply the caos string function may recurse.
const MaxNesting = 8

// Context is one running script: its instruction pointer, private
// variables, role references, stacks, and scheduling flags. A context is
// owned by one goroutine at a time.
type Context struct {
	lang *Language
	host Host

	ref  *bytecode.Ref
	code bytecode.Reader

	opAddr int
	op     *Descriptor

	ints    []int32
	handles []types.Agent
	vars    [types.SlotCount]types.Value

	owner, from, targ, it types.Agent
	p1, p2                types.Value

	state  State
	cont   Continuation
	fast   bool
	locked bool
	fault  error
	depth  int

	out   io.Writer
	debug io.Writer
	in    *bufio.Reader
}

// NewContext returns a finished context running against host.
func NewContext(lang *Language, host Host) *Context {
	if host == nil {
		host = NewNullHost()
	}
	return &Context{lang: lang, host: host}
}

// Language returns the language the context decodes with.
func (c *Context) Language() *Language { return c.lang }

// Host returns the world the context runs against.
func (c *Context) Host() Host { return c.host }

// Start begins running unit from its first instruction. Any previous run
// is stopped first. owner is the agent the script belongs to, from the
// agent that caused it to run; p1 and p2 are the message parameters.
func (c *Context) Start(unit *bytecode.Unit, owner, from types.Agent, p1, p2 types.Value) {
	c.Stop()
	c.ref = unit.Acquire()
	c.code.Reset(unit.Code())
	c.vars = [types.SlotCount]types.Value{}
	c.owner, c.from, c.targ, c.it = owner, from, owner, nil
	c.p1, c.p2 = p1, p2
	c.state = Fetching
}

// Stop abandons the current run, releases the unit, and clears any fault.
// Variables and role references stay readable.
func (c *Context) Stop() {
	c.release()
	c.state = Finished
	c.cont = nil
	c.fault = nil
	c.fast = false
	c.locked = false
	c.ints = c.ints[:0]
	c.handles = c.handles[:0]
	c.op = nil
}

func (c *Context) release() {
	if c.ref != nil {
		c.ref.Release()
		c.ref = nil
	}
}

// finish ends the run normally.
func (c *Context) finish() {
	c.release()
	c.state = Finished
	c.cont = nil
	c.fast = false
}

// Step runs up to n instructions, or without limit when n is negative. In
// fast mode instructions do not count against n. A blocked context is
// resumed at most once per call. After a fault every call returns that
// fault until Stop or Start.
func (c *Context) Step(n int) error {
	if c.fault != nil {
		return c.fault
	}
	for count := 0; n < 0 || count < n; {
		switch c.state {
		case Finished:
			return nil
		case Blocking:
			done, err := c.cont.Resume(c)
			if err != nil {
				return c.raise(err)
			}
			if !done {
				return nil
			}
			c.state = Fetching
			c.cont = nil
			count++
			continue
		}

		if c.code.AtEnd() {
			c.finish()
			return nil
		}
		if err := c.dispatch(); err != nil {
			return c.raise(err)
		}
		if c.state == Blocking {
			return nil
		}
		if !c.fast {
			count++
		}
	}
	return nil
}

func (c *Context) dispatch() error {
	c.opAddr = c.code.Pos()
	c.op = nil
	id, err := c.code.Op()
	if err != nil {
		return err
	}
	d, ok := c.lang.Descriptor(KindCommand, id)
	if !ok {
		return NewRunError(ErrBadOpcode, KindCommand.String(), id)
	}
	c.op = d
	if d, err = c.sub(d); err != nil {
		return err
	}
	return d.Exec(c)
}

// sub resolves the sub-command selected by the next operand when d has a
// sub-table.
func (c *Context) sub(d *Descriptor) (*Descriptor, error) {
	if len(d.Sub) == 0 {
		return d, nil
	}
	idx, err := c.code.Op()
	if err != nil {
		return nil, err
	}
	if int(idx) >= len(d.Sub) {
		return nil, NewRunError(ErrSubCommand, idx, d.Name)
	}
	return &d.Sub[idx], nil
}

// raise records err as the context's fault, decorated with the location
// of the instruction that raised it.
func (c *Context) raise(err error) error {
	var re *RunError
	switch {
	case errors.As(err, &re):
	case errors.Is(err, bytecode.ErrTruncated), errors.Is(err, bytecode.ErrCorrupt):
		re = NewRunError(ErrCorrupt, err)
		re.Err = err
	default:
		re = NewRunError(ErrHost, err)
		re.Err = err
	}
	if re.catalog == nil {
		re.catalog = c.host.Catalog()
	}
	if re.Op == "" && c.op != nil {
		re.Op = c.op.Name
		re.IP = c.opAddr
		if c.ref != nil {
			if off, ok := c.ref.Unit().SourceOffset(c.opAddr); ok {
				re.SourceOffset = off
			}
		}
	}
	c.fault = re
	c.state = Finished
	c.cont = nil
	return re
}

// Block suspends the context until cont reports completion. Fast mode
// ends when a context blocks.
func (c *Context) Block(cont Continuation) {
	c.state = Blocking
	c.cont = cont
	c.fast = false
}

// State returns the execution state.
func (c *Context) State() State { return c.state }

// Fault returns the error that stopped the context, if any.
func (c *Context) Fault() error { return c.fault }

// Running reports whether the context has more to do.
func (c *Context) Running() bool { return c.state != Finished }

// Fast reports whether instructions currently run without counting.
func (c *Context) Fast() bool { return c.fast }

// Locked reports whether the script asked not to be interrupted.
func (c *Context) Locked() bool { return c.locked }

// Unit returns the unit being run, nil when finished.
func (c *Context) Unit() *bytecode.Unit {
	if c.ref == nil {
		return nil
	}
	return c.ref.Unit()
}

// IP returns the address of the next instruction.
func (c *Context) IP() int { return c.code.Pos() }

// Jump moves the instruction pointer.
func (c *Context) Jump(addr int) error { return c.code.Seek(addr) }

// Role references.

func (c *Context) Owner() types.Agent    { return c.owner }
func (c *Context) From() types.Agent     { return c.from }
func (c *Context) Targ() types.Agent     { return c.targ }
func (c *Context) It() types.Agent       { return c.it }
func (c *Context) SetTarg(a types.Agent) { c.targ = a }
func (c *Context) SetIt(a types.Agent)   { c.it = a }
func (c *Context) P1() types.Value       { return c.p1 }
func (c *Context) P2() types.Value       { return c.p2 }

// ValidTarg returns targ, failing unless it is a live agent.
func (c *Context) ValidTarg() (types.Agent, error) { return valid(c.targ, "targ") }

// Var returns context variable i (va00..va99).
func (c *Context) Var(i int) types.Value {
	if i < 0 || i >= types.SlotCount {
		return nil
	}
	return c.vars[i]
}

// SetVar sets context variable i.
func (c *Context) SetVar(i int, v types.Value) {
	if i >= 0 && i < types.SlotCount {
		c.vars[i] = v
	}
}

// Streams.

// SetOutput attaches the stream outs/outv/outx write to.
func (c *Context) SetOutput(w io.Writer) { c.out = w }

// SetDebug attaches the stream dbg: commands write to.
func (c *Context) SetDebug(w io.Writer) { c.debug = w }

// SetInput attaches the stream innl reads from.
func (c *Context) SetInput(r io.Reader) {
	if r == nil {
		c.in = nil
		return
	}
	if br, ok := r.(*bufio.Reader); ok {
		c.in = br
		return
	}
	c.in = bufio.NewReader(r)
}

// Stacks. Block commands keep loop state here; every push in a block
// prologue is matched by a pop when the block ends.

func (c *Context) PushInt(v int32) { c.ints = append(c.ints, v) }

func (c *Context) PopInt() (int32, error) {
	n := len(c.ints)
	if n == 0 {
		return 0, NewRunError(ErrStackUnderflow, "numeric")
	}
	v := c.ints[n-1]
	c.ints = c.ints[:n-1]
	return v, nil
}

func (c *Context) PushAgent(a types.Agent) { c.handles = append(c.handles, a) }

func (c *Context) PopAgent() (types.Agent, error) {
	n := len(c.handles)
	if n == 0 {
		return nil, NewRunError(ErrStackUnderflow, "agent")
	}
	a := c.handles[n-1]
	c.handles[n-1] = nil
	c.handles = c.handles[:n-1]
	return a, nil
}

// StackDepth returns the depth of the numeric and agent stacks.
func (c *Context) StackDepth() (ints, agents int) {
	return len(c.ints), len(c.handles)
}
