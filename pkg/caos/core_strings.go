package caos

import (
	"strings"

	"github.com/psilLang/caos/pkg/catalog"
	"github.com/psilLang/caos/pkg/types"
)

func registerStrings(l *Language) {
	produce(l, KindString, "vtos", func(c *Context) (types.Value, error) {
		v, err := c.Number()
		if err != nil {
			return nil, err
		}
		return types.String(v.String()), nil
	}, ParamNumber)
	produce(l, KindString, "subs", subs, ParamString, ParamNumber, ParamNumber)
	produce(l, KindString, "read", func(c *Context) (types.Value, error) {
		tag, err := c.Text()
		if err != nil {
			return nil, err
		}
		i, err := c.Int()
		if err != nil {
			return nil, err
		}
		return types.String(catalog.Format(c.host.Catalog(), tag, int(i))), nil
	}, ParamString, ParamNumber)
	produce(l, KindString, "uppa", mapText(strings.ToUpper), ParamString)
	produce(l, KindString, "lowa", mapText(strings.ToLower), ParamString)
	produce(l, KindString, "caos", nested, ParamString)
}

func mapText(f func(string) string) Producer {
	return func(c *Context) (types.Value, error) {
		s, err := c.Text()
		if err != nil {
			return nil, err
		}
		return types.String(f(s)), nil
	}
}

// subs returns length bytes starting at the 1-based index start.
func subs(c *Context) (types.Value, error) {
	s, err := c.Text()
	if err != nil {
		return nil, err
	}
	start, err := c.Int()
	if err != nil {
		return nil, err
	}
	length, err := c.Int()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, NewRunError(ErrNegative, length, "subs")
	}
	if start < 1 || int(start) > len(s)+1 {
		return nil, NewRunError(ErrIndexRange, start, len(s))
	}
	end := int(start) - 1 + int(length)
	if end > len(s) {
		return nil, NewRunError(ErrIndexRange, end, len(s))
	}
	return types.String(s[start-1 : end]), nil
}

// nested compiles and runs a script to completion in a fresh context that
// shares this one's roles, returning whatever it wrote. Compile and
// runtime failures are returned as text rather than raised.
func nested(c *Context) (types.Value, error) {
	text, err := c.Text()
	if err != nil {
		return nil, err
	}
	if c.depth >= MaxNesting {
		return nil, NewRunError(ErrNesting, MaxNesting)
	}
	unit, err := c.lang.Compile(text)
	if err != nil {
		return types.String(err.Error()), nil
	}

	var out strings.Builder
	inner := NewContext(c.lang, c.host)
	inner.depth = c.depth + 1
	inner.SetOutput(&out)
	inner.debug = c.debug
	inner.Start(unit, c.owner, c.from, c.p1, c.p2)
	inner.targ, inner.it = c.targ, c.it
	err = inner.Step(-1)
	inner.Stop()
	if err != nil {
		out.WriteString(err.Error())
	}
	return types.String(out.String()), nil
}
