package sandbox

import (
	"github.com/psilLang/caos/pkg/caos"
	"github.com/psilLang/caos/pkg/types"
)

// Register adds the sandbox vocabulary to l. Every entry acts on the
// script's owner, which must be a live agent of the world the context
// runs against.
func Register(l *caos.Language) {
	sense := func(name string, read func(w *World, a *Agent) int) {
		l.MustRegister(caos.KindNumber, caos.Descriptor{
			Name: name,
			Eval: func(c *caos.Context) (types.Value, error) {
				w, a, err := owner(c, name)
				if err != nil {
					return nil, err
				}
				return types.Integer(read(w, a)), nil
			},
		})
	}
	sense("food", func(w *World, a *Agent) int {
		d, _ := w.NearestFood(a.X, a.Y)
		return d
	})
	sense("dirf", func(w *World, a *Agent) int {
		_, dir := w.NearestFood(a.X, a.Y)
		return dir
	})
	sense("near", func(w *World, a *Agent) int { return w.NearestAgent(a.X, a.Y, a.ID) })
	sense("enrg", func(_ *World, a *Agent) int { return a.Energy })
	sense("hlth", func(_ *World, a *Agent) int { return a.Health })
	sense("hngr", func(_ *World, a *Agent) int { return a.Hunger })

	l.MustRegister(caos.KindCommand, caos.Descriptor{
		Name:   "walk",
		Params: []caos.Param{caos.ParamNumber},
		Exec:   walk,
	})
	l.MustRegister(caos.KindCommand, caos.Descriptor{
		Name: "eat",
		Exec: func(c *caos.Context) error {
			w, a, err := owner(c, "eat")
			if err != nil {
				return err
			}
			w.eat(a)
			return nil
		},
	})
	l.MustRegister(caos.KindCommand, caos.Descriptor{
		Name:   "tick",
		Params: []caos.Param{caos.ParamNumber},
		Exec:   timerRate,
	})
}

func owner(c *caos.Context, op string) (*World, *Agent, error) {
	w, ok := c.Host().(*World)
	if !ok {
		return nil, nil, caos.NewRunError(caos.ErrHost, op+" needs a sandbox world")
	}
	a, ok := c.Owner().(*Agent)
	if !ok || !a.Alive() {
		return nil, nil, caos.NewRunError(caos.ErrInvalidAgent, "ownr")
	}
	return w, a, nil
}

// walk moves the owner one tile in a direction. Blocked moves are ignored.
func walk(c *caos.Context) error {
	dir, err := c.Int()
	if err != nil {
		return err
	}
	if dir < DirNone || int(dir) >= len(dirDelta) {
		return caos.NewRunError(caos.ErrWrongType, "direction 0..4", dir)
	}
	w, a, err := owner(c, "walk")
	if err != nil {
		return err
	}
	d := dirDelta[dir]
	nx, ny := a.X+d[0], a.Y+d[1]
	if !w.free(nx, ny) {
		return nil
	}
	return w.Move(a, float32(nx), float32(ny))
}

func timerRate(c *caos.Context) error {
	rate, err := c.Int()
	if err != nil {
		return err
	}
	if rate < 0 {
		return caos.NewRunError(caos.ErrNegative, rate)
	}
	t, err := c.ValidTarg()
	if err != nil {
		return err
	}
	a, ok := t.(*Agent)
	if !ok {
		return caos.NewRunError(caos.ErrInvalidAgent, "targ")
	}
	a.TimerRate = int(rate)
	return nil
}

// eat consumes food on or next to a's tile.
func (w *World) eat(a *Agent) bool {
	for _, d := range dirDelta {
		x, y := a.X+d[0], a.Y+d[1]
		if !w.InBounds(x, y) || w.TileAt(x, y).Type() != TileFood {
			continue
		}
		w.SetTile(x, y, MakeTile(TileEmpty))
		a.Energy += 30
		if a.Energy > 200 {
			a.Energy = 200
		}
		a.Health += 5
		if a.Health > 100 {
			a.Health = 100
		}
		a.FoodEaten++
		a.Hunger = 0
		return true
	}
	return false
}
