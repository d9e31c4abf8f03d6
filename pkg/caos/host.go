package caos

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/psilLang/caos/pkg/catalog"
	"github.com/psilLang/caos/pkg/types"
)

// ErrNoWorld is returned by NullHost for operations that need agents.
var ErrNoWorld = errors.New("caos: no world attached")

// Message is an event sent from one agent to another.
type Message struct {
	From  types.Agent
	To    types.Agent
	Event int32
	P1    types.Value
	P2    types.Value
	Delay int32
}

// Host is the world a context runs against. Every runtime operation that
// touches agents, time, or game state goes through it.
type Host interface {
	// GameVar returns storage for a named global variable
	GameVar(name string) *types.Value
	// AgentByID finds a live agent, nil if none
	AgentByID(id int32) types.Agent
	// Enumerate lists live agents matching class
	Enumerate(class types.Classifier) []types.Agent
	// Visible lists agents matching class that from can see
	Visible(from types.Agent, class types.Classifier) []types.Agent
	// NewAgent creates an agent of the given classification
	NewAgent(class types.Classifier) (types.Agent, error)
	// Kill removes an agent from the world
	Kill(a types.Agent) error
	// Move places an agent at world coordinates
	Move(a types.Agent, x, y float32) error
	// Send queues a message for delivery
	Send(m Message) error
	// Tick returns the world clock
	Tick() int32
	// Rand returns a uniform integer in [lo, hi]
	Rand(lo, hi int32) int32
	// Catalog returns the catalog runtime diagnostics use
	Catalog() catalog.Catalog
}

// NullHost is a host with no agents, for running scripts that only touch
// variables and streams.
type NullHost struct {
	Strings catalog.Catalog

	mu   sync.Mutex
	vars map[string]*types.Value
	rng  *rand.Rand
}

// NewNullHost returns a NullHost using the default catalog.
func NewNullHost() *NullHost {
	return &NullHost{Strings: catalog.Default()}
}

func (h *NullHost) GameVar(name string) *types.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.vars == nil {
		h.vars = make(map[string]*types.Value)
	}
	v, ok := h.vars[name]
	if !ok {
		v = new(types.Value)
		h.vars[name] = v
	}
	return v
}

func (h *NullHost) AgentByID(int32) types.Agent                         { return nil }
func (h *NullHost) Enumerate(types.Classifier) []types.Agent            { return nil }
func (h *NullHost) Visible(types.Agent, types.Classifier) []types.Agent { return nil }
func (h *NullHost) NewAgent(types.Classifier) (types.Agent, error)      { return nil, ErrNoWorld }
func (h *NullHost) Kill(types.Agent) error                              { return ErrNoWorld }
func (h *NullHost) Move(types.Agent, float32, float32) error            { return ErrNoWorld }
func (h *NullHost) Send(Message) error                                  { return ErrNoWorld }
func (h *NullHost) Tick() int32                                         { return 0 }

func (h *NullHost) Rand(lo, hi int32) int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rng == nil {
		h.rng = rand.New(rand.NewSource(1))
	}
	return lo + int32(h.rng.Int63n(int64(hi)-int64(lo)+1))
}

func (h *NullHost) Catalog() catalog.Catalog {
	if h.Strings == nil {
		return catalog.Default()
	}
	return h.Strings
}
