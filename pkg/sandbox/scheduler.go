package sandbox

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/caos"
	"github.com/psilLang/caos/pkg/scriptorium"
	"github.com/psilLang/caos/pkg/types"
)

// EventTimer is the event fired every TimerRate ticks.
const EventTimer = 9

// NewLanguage returns the core language extended with the sandbox vocabulary.
func NewLanguage(opts ...caos.Option) *caos.Language {
	l := caos.NewLanguage(opts...)
	Register(l)
	return l
}

// Scheduler runs the sandbox tick loop.
type Scheduler struct {
	World   *World
	Lang    *caos.Language
	Scripts *scriptorium.Scriptorium
	Quota   int // instructions per agent per tick
	// ImmediateQuota bounds injected scripts; negative means unlimited.
	ImmediateQuota int
	Output         io.Writer
	Log            zerolog.Logger
	RunID          uuid.UUID

	Faults    int
	Delivered int
}

// NewScheduler creates a scheduler for the given world.
func NewScheduler(w *World, lang *caos.Language, quota int, output io.Writer) *Scheduler {
	return &Scheduler{
		World:          w,
		Lang:           lang,
		Scripts:        scriptorium.New(),
		Quota:          quota,
		ImmediateQuota: -1,
		Output:         output,
		Log:            zerolog.Nop(),
		RunID:          uuid.New(),
	}
}

// Tick runs one simulation step.
func (s *Scheduler) Tick() {
	w := s.World

	// 1. Deliver messages that are due
	for _, m := range w.due() {
		to, ok := m.To.(*Agent)
		if !ok || !to.Alive() {
			continue
		}
		if to.ctx != nil && to.ctx.Running() && to.ctx.Locked() {
			w.mail = append(w.mail, pending{msg: m, due: w.Clock + 1})
			continue
		}
		if s.Fire(to, m.Event, m.From, m.P1, m.P2) {
			s.Delivered++
		}
	}

	// 2. Timers
	for _, a := range w.Agents {
		if !a.Alive() || a.TimerRate <= 0 || w.Clock%a.TimerRate != 0 {
			continue
		}
		if a.ctx != nil && a.ctx.Running() {
			continue
		}
		s.Fire(a, EventTimer, nil, nil, nil)
	}

	// 3. Run scripts. Agents created this tick start next tick.
	agents := append([]*Agent(nil), w.Agents...)
	for _, a := range agents {
		if a.ctx == nil || !a.ctx.Running() {
			continue
		}
		if err := a.ctx.Step(s.Quota); err != nil {
			s.Faults++
			s.Log.Warn().Err(err).
				Int32("agent", a.ID).
				Stringer("classifier", a.Class).
				Stringer("run", s.RunID).
				Int("tick", w.Clock).
				Msg("script fault, context stopped")
			a.ctx.Stop()
		}
	}

	// 4. Decay
	for _, a := range w.Agents {
		if !a.Alive() {
			continue
		}
		a.Energy--
		if a.Energy <= 0 {
			a.Health -= 5
			a.Energy = 0
		}
		a.Age++
		a.Hunger++
	}

	// 5. Remove the dead
	for _, a := range append([]*Agent(nil), w.Agents...) {
		if a.Alive() {
			continue
		}
		if a.ctx != nil {
			a.ctx.Stop()
		}
		w.Remove(a.ID)
		s.Log.Debug().Int32("agent", a.ID).Int("age", a.Age).Msg("agent died")
	}

	// 6. Respawn food
	w.RespawnFood()

	w.Clock++
	s.Log.Trace().Int("tick", w.Clock).Int("agents", len(w.Agents)).Msg("tick")
}

// Fire starts the script answering event on a, interrupting whatever a
// was running unless that script holds a lock. It reports whether a
// script was started.
func (s *Scheduler) Fire(a *Agent, event int32, from types.Agent, p1, p2 types.Value) bool {
	class := a.Class
	class.Event = event
	unit, ok := s.Scripts.Find(class)
	if !ok {
		return false
	}
	if a.ctx == nil {
		a.ctx = caos.NewContext(s.Lang, s.World)
		if s.Output != nil {
			a.ctx.SetOutput(s.Output)
		}
	}
	if a.ctx.Running() && a.ctx.Locked() {
		return false
	}
	a.ctx.Start(unit, a, from, p1, p2)
	return true
}

// Inject compiles and runs text immediately with no owner, returning what
// it wrote to its output.
func (s *Scheduler) Inject(text string) (string, error) {
	unit, err := s.Lang.Compile(text)
	if err != nil {
		return "", err
	}
	return s.runNow(unit)
}

func (s *Scheduler) runNow(unit *bytecode.Unit) (string, error) {
	var out strings.Builder
	ctx := caos.NewContext(s.Lang, s.World)
	ctx.SetOutput(&out)
	ctx.Start(unit, nil, nil, nil, nil)
	defer ctx.Stop()
	if err := ctx.Step(s.ImmediateQuota); err != nil {
		return out.String(), err
	}
	if ctx.Running() {
		return out.String(), fmt.Errorf("injected script did not finish: %s", ctx.State())
	}
	return out.String(), nil
}

// InstallFile installs a compiled script file: its event scripts go into
// the scriptorium, then its install script runs immediately.
func (s *Scheduler) InstallFile(f *caos.File) error {
	if err := s.Scripts.InstallAll(f.Scripts); err != nil {
		s.Log.Error().Err(err).Msg("installing event scripts")
		return err
	}
	s.Log.Info().Int("scripts", len(f.Scripts)).Msg("installed event scripts")
	if f.Install == nil {
		return nil
	}
	out, err := s.runNow(f.Install)
	if s.Output != nil && out != "" {
		io.WriteString(s.Output, out)
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("install script failed")
	}
	return err
}

// RemoveFile runs a file's removal script and uninstalls its event
// scripts.
func (s *Scheduler) RemoveFile(f *caos.File) error {
	for _, u := range f.Scripts {
		s.Scripts.Remove(u.Classifier())
	}
	if f.Remove == nil {
		return nil
	}
	out, err := s.runNow(f.Remove)
	if s.Output != nil && out != "" {
		io.WriteString(s.Output, out)
	}
	return err
}

// Stats is a snapshot of the simulation counters.
type Stats struct {
	Tick      int
	Agents    int
	Food      int
	Scripts   int
	Faults    int
	Delivered int
	Pending   int
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Tick:      s.World.Clock,
		Agents:    len(s.World.Agents),
		Food:      s.World.FoodCount(),
		Scripts:   s.Scripts.Len(),
		Faults:    s.Faults,
		Delivered: s.Delivered,
		Pending:   s.World.Pending(),
	}
}
