package sandbox

import (
	"github.com/psilLang/caos/pkg/caos"
	"github.com/psilLang/caos/pkg/types"
)

// Move directions
const (
	DirNone  = 0
	DirNorth = 1
	DirEast  = 2
	DirSouth = 3
	DirWest  = 4
)

var dirDelta = [...][2]int{
	DirNone:  {0, 0},
	DirNorth: {0, -1},
	DirEast:  {1, 0},
	DirSouth: {0, 1},
	DirWest:  {-1, 0},
}

// Agent represents a creature in the sandbox world.
type Agent struct {
	ID     int32
	Class  types.Classifier
	X, Y   int
	Health int
	Energy int
	Age    int

	// Internal state
	Hunger    int // ticks since last ate
	FoodEaten int

	// TimerRate fires the timer event every TimerRate ticks; 0 disables it.
	TimerRate int

	slots [types.SlotCount]types.Value
	named map[string]*types.Value
	ctx   *caos.Context
}

// NewAgent creates an agent with default stats.
func NewAgent(class types.Classifier) *Agent {
	return &Agent{
		Class:  class.Kind(),
		Health: 100,
		Energy: 100,
	}
}

func (a *Agent) UNID() int32                  { return a.ID }
func (a *Agent) Alive() bool                  { return a.Health > 0 }
func (a *Agent) Classifier() types.Classifier { return a.Class }
func (a *Agent) Slot(i int) *types.Value      { return &a.slots[i] }

func (a *Agent) Position() (float32, float32) {
	return float32(a.X), float32(a.Y)
}

func (a *Agent) Named(key string) *types.Value {
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

// Context returns the agent's script context, nil until a script has
// been fired on it.
func (a *Agent) Context() *caos.Context { return a.ctx }
