package sandbox

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/psilLang/caos/pkg/caos"
	"github.com/psilLang/caos/pkg/catalog"
	"github.com/psilLang/caos/pkg/types"
)

// Tile types
const (
	TileEmpty = iota
	TileWall
	TileFood
)

// Tile is pure terrain; occupancy is tracked separately in OccGrid.
type Tile byte

func MakeTile(typ byte) Tile {
	return Tile(typ)
}

func (t Tile) Type() byte { return byte(t) }

// DayCycle is the number of ticks in one day cycle.
const DayCycle = 256

// VisionRange is how far, in Manhattan distance, an agent can see.
const VisionRange = 8

type pending struct {
	msg caos.Message
	due int
}

// World is a 2D tile grid with agents. It is the host scripts run against.
type World struct {
	Size   int // width and height (square)
	Grid   []Tile
	Agents []*Agent
	Clock  int

	// Occupancy grid: parallel to Grid, stores agent ID (0 = empty)
	OccGrid []int32
	byID    map[int32]*Agent

	foodCount int

	// Config
	FoodRate    float64 // probability of food spawn per tick
	MaxFood     int     // max food tiles on map
	Rng         *rand.Rand
	NextID      int32
	FoodSpawned int
	Strings     catalog.Catalog

	vars map[string]*types.Value
	mail []pending
}

// NewWorld creates a Size×Size world.
func NewWorld(size int, rng *rand.Rand) *World {
	return &World{
		Size:     size,
		Grid:     make([]Tile, size*size),
		OccGrid:  make([]int32, size*size),
		Agents:   make([]*Agent, 0, 32),
		byID:     make(map[int32]*Agent),
		FoodRate: 0.25,
		MaxFood:  size * 3 / 4,
		Rng:      rng,
		NextID:   1,
		Strings:  catalog.Default(),
		vars:     make(map[string]*types.Value),
	}
}

func (w *World) idx(x, y int) int {
	return y*w.Size + x
}

func (w *World) InBounds(x, y int) bool {
	return x >= 0 && x < w.Size && y >= 0 && y < w.Size
}

func (w *World) TileAt(x, y int) Tile {
	if !w.InBounds(x, y) {
		return Tile(TileWall)
	}
	return w.Grid[w.idx(x, y)]
}

func (w *World) SetTile(x, y int, t Tile) {
	if !w.InBounds(x, y) {
		return
	}
	i := w.idx(x, y)
	if w.Grid[i].Type() == TileFood {
		w.foodCount--
	}
	if t.Type() == TileFood {
		w.foodCount++
	}
	w.Grid[i] = t
}

// OccAt returns the agent ID occupying (x,y), or 0 if empty.
func (w *World) OccAt(x, y int) int32 {
	if !w.InBounds(x, y) {
		return 0
	}
	return w.OccGrid[w.idx(x, y)]
}

func (w *World) setOcc(x, y int, id int32) {
	if w.InBounds(x, y) {
		w.OccGrid[w.idx(x, y)] = id
	}
}

func (w *World) free(x, y int) bool {
	return w.InBounds(x, y) && w.TileAt(x, y).Type() != TileWall && w.OccAt(x, y) == 0
}

// Spawn places a in the world, at its own position if free or at a random
// free tile otherwise.
func (w *World) Spawn(a *Agent) bool {
	if a.ID == 0 {
		a.ID = w.NextID
		w.NextID++
	}
	if !w.free(a.X, a.Y) {
		placed := false
		for tries := 0; tries < 100; tries++ {
			x := w.Rng.Intn(w.Size)
			y := w.Rng.Intn(w.Size)
			if w.free(x, y) {
				a.X, a.Y = x, y
				placed = true
				break
			}
		}
		if !placed {
			return false
		}
	}
	w.setOcc(a.X, a.Y, a.ID)
	w.Agents = append(w.Agents, a)
	w.byID[a.ID] = a
	return true
}

// Remove takes an agent out of the world.
func (w *World) Remove(id int32) {
	a := w.byID[id]
	if a == nil {
		return
	}
	w.setOcc(a.X, a.Y, 0)
	delete(w.byID, id)
	for i, n := range w.Agents {
		if n.ID == id {
			w.Agents = append(w.Agents[:i], w.Agents[i+1:]...)
			return
		}
	}
}

// AgentNamed returns the agent with the given ID even if it has died
// this tick, or nil.
func (w *World) AgentNamed(id int32) *Agent {
	return w.byID[id]
}

func (w *World) FoodCount() int {
	return w.foodCount
}

func (w *World) RespawnFood() {
	// Winter: last quarter of day cycle, no food spawns
	if w.Clock%DayCycle >= DayCycle*3/4 {
		return
	}
	if w.FoodCount() >= w.MaxFood {
		return
	}
	if w.Rng.Float64() > w.FoodRate {
		return
	}
	n := 1 + w.Rng.Intn(3)
	for i := 0; i < n && w.FoodCount() < w.MaxFood; i++ {
		for tries := 0; tries < 50; tries++ {
			x := w.Rng.Intn(w.Size)
			y := w.Rng.Intn(w.Size)
			if w.TileAt(x, y).Type() == TileEmpty && w.OccAt(x, y) == 0 {
				w.SetTile(x, y, MakeTile(TileFood))
				w.FoodSpawned++
				break
			}
		}
	}
}

// scanManhattanRing calls fn for each cell at exactly Manhattan distance d from (cx,cy).
// fn returns true to stop scanning. Returns true if fn stopped early.
func (w *World) scanManhattanRing(cx, cy, d int, fn func(x, y int) bool) bool {
	if d == 0 {
		if w.InBounds(cx, cy) {
			return fn(cx, cy)
		}
		return false
	}
	for i := 0; i < d; i++ {
		if x, y := cx+i, cy-d+i; w.InBounds(x, y) && fn(x, y) {
			return true
		}
		if x, y := cx+d-i, cy+i; w.InBounds(x, y) && fn(x, y) {
			return true
		}
		if x, y := cx-i, cy+d-i; w.InBounds(x, y) && fn(x, y) {
			return true
		}
		if x, y := cx-d+i, cy-i; w.InBounds(x, y) && fn(x, y) {
			return true
		}
	}
	return false
}

const maxSearchRadius = 31

// NearestFood returns the Manhattan distance and direction to the nearest
// food tile, or (31, DirNone) if none.
func (w *World) NearestFood(x, y int) (int, int) {
	for d := 0; d <= maxSearchRadius; d++ {
		bx, by := -1, -1
		w.scanManhattanRing(x, y, d, func(fx, fy int) bool {
			if w.TileAt(fx, fy).Type() == TileFood {
				bx, by = fx, fy
				return true
			}
			return false
		})
		if bx >= 0 {
			return d, directionToward(x, y, bx, by)
		}
	}
	return maxSearchRadius, DirNone
}

// NearestAgent returns the distance to the nearest other live agent, or 31.
func (w *World) NearestAgent(x, y int, exclude int32) int {
	for d := 1; d <= maxSearchRadius; d++ {
		found := false
		w.scanManhattanRing(x, y, d, func(fx, fy int) bool {
			occ := w.OccAt(fx, fy)
			if occ != 0 && occ != exclude {
				if a := w.byID[occ]; a != nil && a.Alive() {
					found = true
					return true
				}
			}
			return false
		})
		if found {
			return d
		}
	}
	return maxSearchRadius
}

// directionToward returns the move direction toward (tx,ty) from (fx,fy).
// Picks the axis with the larger delta. Returns DirNone if same position.
func directionToward(fx, fy, tx, ty int) int {
	dx := tx - fx
	dy := ty - fy
	if dx == 0 && dy == 0 {
		return DirNone
	}
	if abs(dy) >= abs(dx) {
		if dy < 0 {
			return DirNorth
		}
		return DirSouth
	}
	if dx > 0 {
		return DirEast
	}
	return DirWest
}

// Host implementation.

func (w *World) GameVar(name string) *types.Value {
	v, ok := w.vars[name]
	if !ok {
		v = new(types.Value)
		w.vars[name] = v
	}
	return v
}

func (w *World) AgentByID(id int32) types.Agent {
	if a := w.byID[id]; a != nil && a.Alive() {
		return a
	}
	return nil
}

func (w *World) Enumerate(class types.Classifier) []types.Agent {
	var out []types.Agent
	for _, a := range w.Agents {
		if a.Alive() && class.Matches(a.Class) {
			out = append(out, a)
		}
	}
	return out
}

// Visible lists matching agents within VisionRange of from, nearest first.
func (w *World) Visible(from types.Agent, class types.Classifier) []types.Agent {
	self, ok := from.(*Agent)
	if !ok {
		return nil
	}
	var out []types.Agent
	for d := 1; d <= VisionRange; d++ {
		w.scanManhattanRing(self.X, self.Y, d, func(x, y int) bool {
			if a := w.byID[w.OccAt(x, y)]; a != nil && a.Alive() && class.Matches(a.Class) {
				out = append(out, a)
			}
			return false
		})
	}
	return out
}

func (w *World) NewAgent(class types.Classifier) (types.Agent, error) {
	a := NewAgent(class.Kind())
	a.X, a.Y = -1, -1
	if !w.Spawn(a) {
		return nil, fmt.Errorf("no room for agent %s", class.Kind())
	}
	return a, nil
}

func (w *World) Kill(t types.Agent) error {
	a, ok := t.(*Agent)
	if !ok {
		return fmt.Errorf("agent %d is not from this world", t.UNID())
	}
	a.Health = 0
	return nil
}

func (w *World) Move(t types.Agent, x, y float32) error {
	a, ok := t.(*Agent)
	if !ok {
		return fmt.Errorf("agent %d is not from this world", t.UNID())
	}
	nx, ny := int(math.Round(float64(x))), int(math.Round(float64(y)))
	if nx == a.X && ny == a.Y {
		return nil
	}
	if !w.free(nx, ny) {
		return fmt.Errorf("cannot move agent %d to %d,%d", a.ID, nx, ny)
	}
	w.setOcc(a.X, a.Y, 0)
	a.X, a.Y = nx, ny
	w.setOcc(nx, ny, a.ID)
	return nil
}

// Send queues m for delivery Delay ticks from now.
func (w *World) Send(m caos.Message) error {
	w.mail = append(w.mail, pending{msg: m, due: w.Clock + int(m.Delay)})
	return nil
}

// due removes and returns the messages due by the current tick.
func (w *World) due() []caos.Message {
	var out []caos.Message
	keep := w.mail[:0]
	for _, p := range w.mail {
		if p.due <= w.Clock {
			out = append(out, p.msg)
		} else {
			keep = append(keep, p)
		}
	}
	w.mail = keep
	return out
}

// Pending returns the number of undelivered messages.
func (w *World) Pending() int { return len(w.mail) }

func (w *World) Tick() int32 { return int32(w.Clock) }

func (w *World) Rand(lo, hi int32) int32 {
	return lo + int32(w.Rng.Int63n(int64(hi)-int64(lo)+1))
}

func (w *World) Catalog() catalog.Catalog { return w.Strings }

// AutoWorldSize returns an appropriate world size for the given number of agents.
func AutoWorldSize(agents int) int {
	s := int(math.Sqrt(float64(agents))) * 4
	if s < 32 {
		s = 32
	}
	return s
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
