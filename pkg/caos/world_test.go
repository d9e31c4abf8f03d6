package caos

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/psilLang/caos/pkg/catalog"
	"github.com/psilLang/caos/pkg/types"
)

type testAgent struct {
	id    int32
	class types.Classifier
	dead  bool
	slots [types.SlotCount]types.Value
	named map[string]*types.Value
	x, y  float32
}

func (a *testAgent) UNID() int32                  { return a.id }
func (a *testAgent) Alive() bool                  { return !a.dead }
func (a *testAgent) Classifier() types.Classifier { return a.class }
func (a *testAgent) Slot(i int) *types.Value      { return &a.slots[i] }
func (a *testAgent) Position() (float32, float32) { return a.x, a.y }

func (a *testAgent) Named(key string) *types.Value {
	if a.named == nil {
		a.named = make(map[string]*types.Value)
	}
	v, ok := a.named[key]
	if !ok {
		v = new(types.Value)
		a.named[key] = v
	}
	return v
}

// testWorld is a deterministic in-memory host.
type testWorld struct {
	NullHost
	agents map[int32]*testAgent
	nextID int32
	tick   int32
	sent   []Message
}

func newTestWorld() *testWorld {
	return &testWorld{NullHost: NullHost{Strings: catalog.Default()}, agents: make(map[int32]*testAgent), nextID: 1}
}

func (w *testWorld) add(f, g, s int32) *testAgent {
	a := &testAgent{id: w.nextID, class: types.NewClassifier(f, g, s, 0)}
	w.agents[a.id] = a
	w.nextID++
	return a
}

func (w *testWorld) AgentByID(id int32) types.Agent {
	if a, ok := w.agents[id]; ok && a.Alive() {
		return a
	}
	return nil
}

func (w *testWorld) Enumerate(class types.Classifier) []types.Agent {
	var ids []int
	for id, a := range w.agents {
		if a.Alive() && class.Matches(a.class) {
			ids = append(ids, int(id))
		}
	}
	sort.Ints(ids)
	out := make([]types.Agent, len(ids))
	for i, id := range ids {
		out[i] = w.agents[int32(id)]
	}
	return out
}

func (w *testWorld) Visible(from types.Agent, class types.Classifier) []types.Agent {
	var out []types.Agent
	for _, a := range w.Enumerate(class) {
		if a != from {
			out = append(out, a)
		}
	}
	return out
}

func (w *testWorld) NewAgent(class types.Classifier) (types.Agent, error) {
	return w.add(class.Family, class.Genus, class.Species), nil
}

func (w *testWorld) Kill(a types.Agent) error {
	a.(*testAgent).dead = true
	return nil
}

func (w *testWorld) Move(a types.Agent, x, y float32) error {
	t := a.(*testAgent)
	t.x, t.y = x, y
	return nil
}

func (w *testWorld) Send(m Message) error {
	w.sent = append(w.sent, m)
	return nil
}

func (w *testWorld) Tick() int32 { return w.tick }

// run compiles text and steps it to completion with the given owner,
// returning what it wrote.
func run(t *testing.T, w *testWorld, owner types.Agent, text string) (*Context, string, error) {
	t.Helper()
	lang := NewLanguage()
	unit, err := lang.Compile(text)
	require.NoError(t, err, "compiling %q", text)

	var out strings.Builder
	c := NewContext(lang, w)
	c.SetOutput(&out)
	c.Start(unit, owner, nil, nil, nil)
	err = c.Step(-1)
	return c, out.String(), err
}
