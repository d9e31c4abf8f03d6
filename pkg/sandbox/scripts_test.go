package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psilLang/caos/pkg/caos"
	"github.com/psilLang/caos/pkg/types"
)

func loadScript(t *testing.T, s *Scheduler, name string) *caos.File {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "scripts", name))
	require.NoError(t, err)
	f, err := s.Lang.CompileFile(string(data))
	require.NoError(t, err)
	require.NoError(t, s.InstallFile(f))
	return f
}

func TestForagerScript(t *testing.T) {
	s, _ := setup(t)
	f := loadScript(t, s, "forager.cos")
	require.Len(t, s.World.Agents, 12)
	for _, a := range s.World.Agents {
		assert.Equal(t, 1, a.TimerRate)
	}
	for i := 0; i < 16; i++ {
		x, y := s.World.Rng.Intn(16), s.World.Rng.Intn(16)
		if s.World.OccAt(x, y) == 0 {
			s.World.SetTile(x, y, MakeTile(TileFood))
		}
	}

	for i := 0; i < 80; i++ {
		s.Tick()
	}
	assert.Zero(t, s.Faults)
	eaten := 0
	for _, a := range s.World.Agents {
		eaten += a.FoodEaten
	}
	assert.Positive(t, eaten)

	require.NoError(t, s.RemoveFile(f))
	s.Tick()
	assert.Empty(t, s.World.Agents)
}

func TestCounterScript(t *testing.T) {
	s, out := setup(t)
	loadScript(t, s, "counter.cos")
	require.Len(t, s.World.Agents, 1)
	counter := s.World.Agents[0]
	assert.Equal(t, types.Handle{Agent: counter}, *s.World.GameVar("counter"))

	for i := 0; i < 40; i++ {
		s.Tick()
	}
	assert.Equal(t, "counter ready\ncount 1\ncount 2\ncount 3\ncounter done\n", out.String())
	assert.Zero(t, counter.TimerRate)
}
