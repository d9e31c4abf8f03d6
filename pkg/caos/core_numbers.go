package caos

import (
	"math"
	"strings"
	"unicode"

	"github.com/psilLang/caos/pkg/types"
)

func registerNumbers(l *Language) {
	produce(l, KindNumber, "rand", func(c *Context) (types.Value, error) {
		lo, err := c.Int()
		if err != nil {
			return nil, err
		}
		hi, err := c.Int()
		if err != nil {
			return nil, err
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		return types.Integer(c.host.Rand(lo, hi)), nil
	}, ParamNumber, ParamNumber)
	produce(l, KindNumber, "strl", func(c *Context) (types.Value, error) {
		s, err := c.Text()
		if err != nil {
			return nil, err
		}
		return types.Integer(len(s)), nil
	}, ParamString)
	produce(l, KindNumber, "stoi", func(c *Context) (types.Value, error) {
		s, err := c.Text()
		if err != nil {
			return nil, err
		}
		return types.Integer(leadingInt(s)), nil
	}, ParamString)
	produce(l, KindNumber, "ftoi", func(c *Context) (types.Value, error) {
		n, err := c.Int()
		return types.Integer(n), err
	}, ParamNumber)
	produce(l, KindNumber, "itof", func(c *Context) (types.Value, error) {
		f, err := c.Float()
		return types.Float(f), err
	}, ParamNumber)
	produce(l, KindNumber, "char", func(c *Context) (types.Value, error) {
		s, err := c.Text()
		if err != nil {
			return nil, err
		}
		i, err := c.Int()
		if err != nil {
			return nil, err
		}
		if i < 1 || int(i) > len(s) {
			return nil, NewRunError(ErrIndexRange, i, len(s))
		}
		return types.Integer(s[i-1]), nil
	}, ParamString, ParamNumber)
	produce(l, KindNumber, "tick", func(c *Context) (types.Value, error) {
		return types.Integer(c.host.Tick()), nil
	})
	produce(l, KindNumber, "totl", func(c *Context) (types.Value, error) {
		class, err := classifier(c)
		if err != nil {
			return nil, err
		}
		n := 0
		for _, a := range c.host.Enumerate(class) {
			if a != nil && a.Alive() {
				n++
			}
		}
		return types.Integer(n), nil
	}, ParamNumber, ParamNumber, ParamNumber)

	targ := func(name string, get func(a types.Agent) types.Value) {
		produce(l, KindNumber, name, func(c *Context) (types.Value, error) {
			a, err := c.ValidTarg()
			if err != nil {
				return nil, err
			}
			return get(a), nil
		})
	}
	targ("unid", func(a types.Agent) types.Value { return types.Integer(a.UNID()) })
	targ("fmly", func(a types.Agent) types.Value { return types.Integer(a.Classifier().Family) })
	targ("gnus", func(a types.Agent) types.Value { return types.Integer(a.Classifier().Genus) })
	targ("spcs", func(a types.Agent) types.Value { return types.Integer(a.Classifier().Species) })
	targ("posx", func(a types.Agent) types.Value { x, _ := a.Position(); return types.Float(x) })
	targ("posy", func(a types.Agent) types.Value { _, y := a.Position(); return types.Float(y) })

	produce(l, KindNumber, "inok", func(c *Context) (types.Value, error) {
		if c.in == nil {
			return types.Integer(0), nil
		}
		if _, err := c.in.Peek(1); err != nil {
			return types.Integer(0), nil
		}
		return types.Integer(1), nil
	})
	produce(l, KindNumber, "sqrt", func(c *Context) (types.Value, error) {
		f, err := c.Float()
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, NewRunError(ErrNegative, f, "sqrt")
		}
		return types.Float(math.Sqrt(float64(f))), nil
	}, ParamNumber)
	produce(l, KindNumber, "abso", func(c *Context) (types.Value, error) {
		v, err := c.Number()
		if err != nil {
			return nil, err
		}
		if f, ok := v.(types.Float); ok {
			return types.Float(absFloat(float32(f))), nil
		}
		n, _ := types.ToInt(v)
		return types.Integer(absInt(n)), nil
	}, ParamNumber)
}

// leadingInt parses an optional sign and digits at the start of s,
// returning 0 when there are none.
func leadingInt(s string) int32 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var n int64
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int64(s[i]-'0')
		if n > math.MaxInt32 {
			n = math.MaxInt32
		}
	}
	if neg {
		n = -n
	}
	return int32(n)
}
