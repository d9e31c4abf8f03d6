package caos

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/psilLang/caos/pkg/types"
)

type flusher interface {
	Flush() error
}

func registerStreams(l *Language) {
	cmd(l, "outs", func(c *Context) error {
		s, err := c.Text()
		if err != nil {
			return err
		}
		return c.write(s)
	}, ParamString)
	cmd(l, "outv", func(c *Context) error {
		v, err := c.Number()
		if err != nil {
			return err
		}
		return c.write(v.String())
	}, ParamNumber)
	cmd(l, "outx", func(c *Context) error {
		s, err := c.Text()
		if err != nil {
			return err
		}
		return c.write(strconv.Quote(s))
	}, ParamString)
	cmd(l, "innl", innl, ParamVariable)

	l.MustRegister(KindCommand, Descriptor{
		Name:   "dbg:",
		Params: []Param{ParamSub},
		Sub: []Descriptor{
			{Name: "outs", Params: []Param{ParamString}, Exec: func(c *Context) error {
				s, err := c.Text()
				if err != nil {
					return err
				}
				c.debugf("%s", s)
				return nil
			}},
			{Name: "outv", Params: []Param{ParamNumber}, Exec: func(c *Context) error {
				v, err := c.Number()
				if err != nil {
					return err
				}
				c.debugf("%s", v)
				return nil
			}},
			{Name: "flsh", Exec: func(c *Context) error {
				if f, ok := c.debug.(flusher); ok {
					return f.Flush()
				}
				return nil
			}},
		},
	})
}

func (c *Context) write(s string) error {
	if c.out == nil {
		return NewRunError(ErrStreamClosed, "output")
	}
	_, err := io.WriteString(c.out, s)
	return err
}

// debugf writes to the debug stream; without one, debug output is dropped.
func (c *Context) debugf(format string, args ...any) {
	if c.debug != nil {
		fmt.Fprintf(c.debug, format, args...)
	}
}

// innl reads one line into a variable, without its line ending.
func innl(c *Context) error {
	p, err := c.Variable()
	if err != nil {
		return err
	}
	if c.in == nil {
		return NewRunError(ErrStreamClosed, "input")
	}
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	*p = types.String(strings.TrimRight(line, "\r\n"))
	return nil
}
